package store

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"go.uber.org/zap"

	"github.com/cleared-dev/sepadd/internal/codec"
	"github.com/cleared-dev/sepadd/internal/id"
	"github.com/cleared-dev/sepadd/internal/model"
)

const readChunk = 64

// Parser reads documents back into the model. *codec.Parser implements it.
type Parser interface {
	Parse(r io.Reader, source string) (*model.CustomerDirectDebitInitiation, error)
	ParseFile(path string) (*model.CustomerDirectDebitInitiation, error)
}

// FilesystemConfig holds the collaborators of a Filesystem adapter.
type FilesystemConfig struct {
	Generator *codec.Generator
	Parser    Parser
	Cache     *Cache
	Metrics   *Metrics
	Logger    *zap.Logger
}

// Filesystem stores each batch as {dir}/{id}.xml.
type Filesystem struct {
	dir     string
	gen     *codec.Generator
	parser  Parser
	cache   *Cache
	metrics *Metrics
	logger  *zap.Logger
}

var _ Adapter = (*Filesystem)(nil)

// NewFilesystem creates dir if needed and returns an adapter over it.
func NewFilesystem(dir string, cfg FilesystemConfig) (*Filesystem, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: save path is empty", model.ErrInvalidArgument)
	}
	if cfg.Generator == nil {
		return nil, fmt.Errorf("%w: generator is required", model.ErrInvalidArgument)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating save path: %w", err)
	}
	if cfg.Parser == nil {
		cfg.Parser = codec.NewParser(false, nil)
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewMetrics(nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Filesystem{
		dir:     dir,
		gen:     cfg.Generator,
		parser:  cfg.Parser,
		cache:   cfg.Cache,
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
	}, nil
}

// Dir returns the directory documents are stored in.
func (f *Filesystem) Dir() string { return f.dir }

// Path returns the document path for batchID.
func (f *Filesystem) Path(batchID string) string {
	return filepath.Join(f.dir, id.FileName(batchID))
}

func (f *Filesystem) All() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		d, err := os.Open(f.dir)
		if err != nil {
			f.metrics.observe("all", err)
			yield("", fmt.Errorf("opening save path: %w", err))
			return
		}
		defer d.Close()

		for {
			entries, err := d.ReadDir(readChunk)
			for _, e := range entries {
				if e.IsDir() {
					continue
				}
				batchID, ok := id.FromFileName(e.Name())
				if !ok {
					continue
				}
				if !yield(batchID, nil) {
					return
				}
			}
			if errors.Is(err, io.EOF) {
				f.metrics.observe("all", nil)
				return
			}
			if err != nil {
				f.metrics.observe("all", err)
				yield("", fmt.Errorf("reading save path: %w", err))
				return
			}
		}
	}
}

func (f *Filesystem) Has(batchID string) bool {
	if id.Validate(batchID) != nil {
		return false
	}
	info, err := os.Stat(f.Path(batchID))
	return err == nil && info.Mode().IsRegular()
}

func (f *Filesystem) Load(batchID string) (*model.CustomerDirectDebitInitiation, error) {
	doc, err := f.load(batchID)
	f.metrics.observe("load", err)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (f *Filesystem) load(batchID string) (*model.CustomerDirectDebitInitiation, error) {
	if err := id.Validate(batchID); err != nil {
		return nil, err
	}
	path := f.Path(batchID)
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %q", model.ErrIDNotFound, batchID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading batch %q: %w", batchID, err)
	}

	if doc, ok := f.cache.Get(path, info); ok {
		f.metrics.cacheHits.Inc()
		f.logger.Debug("cache hit", zap.String("id", batchID))
		return doc, nil
	}

	doc, err := f.parser.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading batch %q: %w", batchID, err)
	}
	f.cache.Add(path, info, doc)
	f.metrics.cacheEntries.Set(float64(f.cache.Len()))
	f.logger.Debug("batch loaded", zap.String("id", batchID), zap.String("path", path))
	return doc, nil
}

func (f *Filesystem) Save(p *model.PaymentInformation, replace bool) (*model.CustomerDirectDebitInitiation, error) {
	doc, err := f.save(p, replace)
	f.metrics.observe("save", err)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (f *Filesystem) save(p *model.PaymentInformation, replace bool) (*model.CustomerDirectDebitInitiation, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: batch is nil", model.ErrInvalidArgument)
	}
	batchID := p.ID()
	if err := id.Validate(batchID); err != nil {
		return nil, err
	}
	if !replace && f.Has(batchID) {
		return nil, fmt.Errorf("%w: %q", model.ErrDuplicateID, batchID)
	}

	data, err := f.gen.Generate(p)
	if err != nil {
		return nil, fmt.Errorf("generating batch %q: %w", batchID, err)
	}

	// The document is read back before it is written, so nothing that cannot
	// be loaded again reaches the save path.
	path := f.Path(batchID)
	doc, err := f.parser.Parse(bytes.NewReader(data), path)
	if err != nil {
		return nil, fmt.Errorf("generated batch %q does not read back: %w", batchID, err)
	}

	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("writing batch %q: %w", batchID, err)
	}
	f.invalidate(path)
	if info, err := os.Stat(path); err == nil {
		f.cache.Add(path, info, doc)
		f.metrics.cacheEntries.Set(float64(f.cache.Len()))
	}
	f.logger.Info("batch saved",
		zap.String("id", batchID),
		zap.String("path", path),
		zap.Int("transactions", p.NumberOfTransactions()),
		zap.Stringer("control_sum", p.ControlSum()),
		zap.Bool("replace", replace),
	)
	return doc, nil
}

func (f *Filesystem) Remove(batchID string) error {
	err := f.remove(batchID)
	f.metrics.observe("remove", err)
	return err
}

func (f *Filesystem) remove(batchID string) error {
	if err := id.Validate(batchID); err != nil {
		return err
	}
	path := f.Path(batchID)
	err := os.Remove(path)
	f.invalidate(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %q", model.ErrIDNotFound, batchID)
	}
	if err != nil {
		return fmt.Errorf("removing batch %q: %w", batchID, err)
	}
	f.logger.Info("batch removed", zap.String("id", batchID), zap.String("path", path))
	return nil
}

func (f *Filesystem) invalidate(path string) {
	f.cache.Invalidate(path)
	f.metrics.cacheEntries.Set(float64(f.cache.Len()))
}
