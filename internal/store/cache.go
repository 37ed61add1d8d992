package store

import (
	"fmt"
	"io/fs"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cleared-dev/sepadd/internal/model"
)

type cacheEntry struct {
	doc     *model.CustomerDirectDebitInitiation
	modTime time.Time
	size    int64
}

// Cache holds parsed documents keyed by path. Entries are evicted least
// recently used first, dropped explicitly on save and remove, and ignored
// when the file's modification time or size no longer match.
// A nil *Cache or one created with size 0 caches nothing.
type Cache struct {
	entries *lru.Cache[string, cacheEntry]
}

// NewCache creates a cache bounded to size entries.
func NewCache(size int) (*Cache, error) {
	if size < 0 {
		return nil, fmt.Errorf("%w: cache size %d is negative", model.ErrInvalidArgument, size)
	}
	if size == 0 {
		return &Cache{}, nil
	}
	entries, err := lru.New[string, cacheEntry](size)
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}
	return &Cache{entries: entries}, nil
}

// Get returns the document cached for path if info still describes the file
// it was parsed from. Stale entries are removed.
func (c *Cache) Get(path string, info fs.FileInfo) (*model.CustomerDirectDebitInitiation, bool) {
	if c == nil || c.entries == nil {
		return nil, false
	}
	e, ok := c.entries.Get(path)
	if !ok {
		return nil, false
	}
	if !e.modTime.Equal(info.ModTime()) || e.size != info.Size() {
		c.entries.Remove(path)
		return nil, false
	}
	return e.doc, true
}

// Add caches doc as parsed from the file described by info.
func (c *Cache) Add(path string, info fs.FileInfo, doc *model.CustomerDirectDebitInitiation) {
	if c == nil || c.entries == nil {
		return
	}
	c.entries.Add(path, cacheEntry{doc: doc, modTime: info.ModTime(), size: info.Size()})
}

// Invalidate drops the entry for path.
func (c *Cache) Invalidate(path string) {
	if c == nil || c.entries == nil {
		return
	}
	c.entries.Remove(path)
}

// Len returns the number of cached documents.
func (c *Cache) Len() int {
	if c == nil || c.entries == nil {
		return 0
	}
	return c.entries.Len()
}
