package menu

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

var _ Source = (*CachedReader)(nil)

// CachedReader serves a recent menu for up to ttl before re-reading the
// underlying source. Concurrent misses share one fetch. Failures are never
// cached.
type CachedReader struct {
	source Source
	ttl    time.Duration
	now    func() time.Time

	group singleflight.Group

	mu        sync.RWMutex
	menu      *Menu
	fetchedAt time.Time
}

// NewCachedReader wraps source. A non-positive ttl disables caching.
func NewCachedReader(source Source, ttl time.Duration) *CachedReader {
	return &CachedReader{source: source, ttl: ttl, now: time.Now}
}

// FetchMenu returns the cached menu while fresh, otherwise re-reads.
func (c *CachedReader) FetchMenu(ctx context.Context) (*Menu, error) {
	if c.ttl <= 0 {
		return c.source.FetchMenu(ctx)
	}
	if m, ok := c.fresh(); ok {
		return m, nil
	}

	v, err, _ := c.group.Do("menu", func() (any, error) {
		// Another caller may have refreshed while we waited on the group.
		if m, ok := c.fresh(); ok {
			return m, nil
		}
		m, err := c.source.FetchMenu(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.menu = m
		c.fetchedAt = c.now()
		c.mu.Unlock()
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Menu), nil
}

// Invalidate drops the cached menu.
func (c *CachedReader) Invalidate() {
	c.mu.Lock()
	c.menu = nil
	c.mu.Unlock()
}

func (c *CachedReader) fresh() (*Menu, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.menu == nil || c.now().Sub(c.fetchedAt) >= c.ttl {
		return nil, false
	}
	return c.menu, true
}
