// Package store persists direct debit batches as one pain.008 document per id.
package store

import (
	"fmt"
	"iter"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/cleared-dev/sepadd/internal/codec"
	"github.com/cleared-dev/sepadd/internal/model"
)

// AdapterFilesystem is the name of the directory-backed adapter.
const AdapterFilesystem = "filesystem"

// DefaultCacheSize is the parse cache bound used when none is configured.
const DefaultCacheSize = 128

// Adapter is identifier-keyed batch persistence.
type Adapter interface {
	// All yields the known ids lazily, in no particular order.
	All() iter.Seq2[string, error]
	Has(id string) bool
	// Load fails with model.ErrIDNotFound when no document exists for id.
	Load(id string) (*model.CustomerDirectDebitInitiation, error)
	// Save fails with model.ErrDuplicateID when a document exists and replace
	// is false. It returns the batch as re-read from storage.
	Save(p *model.PaymentInformation, replace bool) (*model.CustomerDirectDebitInitiation, error)
	// Remove fails with model.ErrIDNotFound when no document exists for id.
	Remove(id string) error
}

// Options configures Open.
type Options struct {
	Adapter  string // "filesystem" when empty
	Dir      string
	Defaults model.Defaults
	Debug    bool

	// CacheSize bounds the parse cache. 0 disables it.
	CacheSize int

	Logger     *zap.Logger
	Registerer prometheus.Registerer // metrics are not registered when nil
}

// Open builds the adapter named in opts.
func Open(opts Options) (Adapter, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	switch strings.ToLower(strings.TrimSpace(opts.Adapter)) {
	case "", AdapterFilesystem:
		cache, err := NewCache(opts.CacheSize)
		if err != nil {
			return nil, err
		}
		return NewFilesystem(opts.Dir, FilesystemConfig{
			Generator: codec.NewGenerator(opts.Defaults),
			Parser:    codec.NewParser(opts.Debug, logger.Named("codec")),
			Cache:     cache,
			Metrics:   NewMetrics(opts.Registerer),
			Logger:    logger.Named("store"),
		})
	default:
		return nil, fmt.Errorf("%w: unknown adapter %q", model.ErrInvalidArgument, opts.Adapter)
	}
}
