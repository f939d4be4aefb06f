package bookstore

import (
	"os"
	"sync"
	"time"

	"github.com/eringen/bookstore/meta"
	"github.com/eringen/bookstore/render"
)

// MetaCache holds the UI metadata tree and its renderer. A tree loaded
// from a file is re-read when the file changes, checked at most once per
// TTL.
type MetaCache struct {
	mu       sync.RWMutex
	path     string
	ttl      time.Duration
	renderer *render.Renderer
	modTime  time.Time
	checked  time.Time
}

// NewMetaCache creates a MetaCache for the tree at path; an empty path
// selects the built-in tree.
func NewMetaCache(path string, ttl time.Duration) *MetaCache {
	return &MetaCache{path: path, ttl: ttl}
}

func (c *MetaCache) valid() bool {
	if c.renderer == nil {
		return false
	}
	return c.path == "" || time.Since(c.checked) < c.ttl
}

// Invalidate clears the cache so the next read reloads the tree.
func (c *MetaCache) Invalidate() {
	c.mu.Lock()
	c.renderer = nil
	c.mu.Unlock()
}

func (c *MetaCache) load() error {
	if c.valid() {
		return nil
	}
	if c.path == "" {
		c.renderer = render.New(meta.Default())
		return nil
	}
	info, err := os.Stat(c.path)
	if err != nil {
		return err
	}
	if c.renderer != nil && info.ModTime().Equal(c.modTime) {
		c.checked = time.Now()
		return nil
	}
	tree, err := meta.LoadFile(c.path)
	if err != nil {
		return err
	}
	c.renderer = render.New(tree)
	c.modTime = info.ModTime()
	c.checked = time.Now()
	return nil
}

// Renderer returns the renderer for the current tree.
// It tries a read lock first; only takes a write lock if a reload is needed.
func (c *MetaCache) Renderer() (*render.Renderer, error) {
	c.mu.RLock()
	if c.valid() {
		r := c.renderer
		c.mu.RUnlock()
		return r, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.load(); err != nil {
		return nil, err
	}
	return c.renderer, nil
}

// Refs returns the top-level refs of the current tree.
func (c *MetaCache) Refs() ([]string, error) {
	r, err := c.Renderer()
	if err != nil {
		return nil, err
	}
	return r.Tree().Refs(), nil
}
