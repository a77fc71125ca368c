package store

import (
	"context"
	"errors"
	"strings"

	"github.com/gogpu/vrt/cache"
)

// Cached is a read-through, write-through cache in front of a Store.
//
// Misses are not cached, so a baseline recorded by another process becomes
// visible on the next read.
type Cached struct {
	next  Store
	cache *cache.Cache
}

// NewCached wraps s with c. A nil c uses a cache with the default budget.
func NewCached(s Store, c *cache.Cache) *Cached {
	if c == nil {
		c = cache.New(0)
	}
	return &Cached{next: s, cache: c}
}

// ReadFile implements Store.
func (c *Cached) ReadFile(ctx context.Context, key string) ([]byte, error) {
	if data, ok := c.cache.Get(key); ok {
		return data, nil
	}
	data, err := c.next.ReadFile(ctx, key)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, data)
	return data, nil
}

// WriteFile implements Store.
func (c *Cached) WriteFile(ctx context.Context, key string, data []byte) error {
	if err := c.next.WriteFile(ctx, key, data); err != nil {
		c.cache.Delete(key)
		return err
	}
	c.cache.Set(key, data)
	return nil
}

// List implements Lister when the wrapped store does.
func (c *Cached) List(ctx context.Context, prefix string) ([]string, error) {
	l, ok := c.next.(Lister)
	if !ok {
		return nil, errors.ErrUnsupported
	}
	return l.List(ctx, prefix)
}

// Delete implements Deleter when the wrapped store does.
func (c *Cached) Delete(ctx context.Context, prefix string) (int, error) {
	d, ok := c.next.(Deleter)
	if !ok {
		return 0, errors.ErrUnsupported
	}
	c.cache.DeleteFunc(func(k string) bool { return strings.HasPrefix(k, prefix) })
	return d.Delete(ctx, prefix)
}

// Stats returns the cache statistics.
func (c *Cached) Stats() cache.Stats {
	return c.cache.Stats()
}
