// Package importer moves pain.008 documents dropped into an inbox directory
// into the store.
package importer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/cleared-dev/sepadd/internal/codec"
	"github.com/cleared-dev/sepadd/internal/store"
)

// ProcessedDir is the inbox subdirectory imported documents are moved to.
const ProcessedDir = "processed"

// FileInfo describes an XML document in the inbox.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// Scan returns the XML documents directly inside dir. A missing dir is an
// empty inbox.
func Scan(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if !strings.EqualFold(filepath.Ext(e.Name()), ".xml") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
			Size: info.Size(),
		})
	}
	return files, nil
}

// MarkProcessed moves a file from dir to dir/processed/.
func MarkProcessed(dir, fileName string) error {
	src := filepath.Join(dir, fileName)
	dstDir := filepath.Join(dir, ProcessedDir)

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	dst := filepath.Join(dstDir, fileName)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}

// Result is the outcome for one inbox file.
type Result struct {
	File FileInfo
	ID   string // batch id, set on success
	Err  error
}

// Importer parses inbox documents and saves them through a store.
type Importer struct {
	Parser *codec.Parser
	Store  store.Adapter
	Logger *zap.Logger
}

// Run imports every document in dir. A document that fails to parse or save
// stays in the inbox and is reported in its Result; the others are moved to
// processed/. The error is only set when the inbox itself cannot be read.
func (im *Importer) Run(dir string, replace bool) ([]Result, error) {
	logger := im.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	files, err := Scan(dir)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(files))
	for _, f := range files {
		r := Result{File: f}
		r.ID, r.Err = im.importFile(f, replace)
		if r.Err == nil {
			r.Err = MarkProcessed(dir, f.Name)
		}
		if r.Err != nil {
			logger.Warn("import failed", zap.String("file", f.Name), zap.Error(r.Err))
		} else {
			logger.Info("imported", zap.String("file", f.Name), zap.String("id", r.ID))
		}
		results = append(results, r)
	}
	return results, nil
}

func (im *Importer) importFile(f FileInfo, replace bool) (string, error) {
	doc, err := im.Parser.ParseFile(f.Path)
	if err != nil {
		return "", err
	}
	saved, err := im.Store.Save(doc.PaymentInformation(), replace)
	if err != nil {
		return "", err
	}
	return saved.PaymentInformation().ID(), nil
}
