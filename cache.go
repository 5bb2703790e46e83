package vcmstore

import (
	"context"
	"sync"
	"time"

	"github.com/dimilowe/vcmstore/content"
)

// IndexedLister is the store query the page cache wraps.
type IndexedLister interface {
	ListIndexedURLs(ctx context.Context) ([]content.URL, error)
}

// PageCache is an in-memory cache of indexed URLs with TTL. It backs the
// sitemap, the feed and the robots meta on pillar pages.
type PageCache struct {
	mu      sync.RWMutex
	urls    []content.URL
	byURL   map[string]content.URL
	fetched time.Time
	ttl     time.Duration
	store   IndexedLister
}

// NewPageCache creates a PageCache backed by the given store.
func NewPageCache(s IndexedLister, ttl time.Duration) *PageCache {
	return &PageCache{store: s, ttl: ttl}
}

func (c *PageCache) valid() bool {
	return c.urls != nil && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *PageCache) Invalidate() {
	c.mu.Lock()
	c.urls = nil
	c.byURL = nil
	c.mu.Unlock()
}

// ensureLoaded returns the cached rows after ensuring the cache is fresh.
// It tries a read lock first; only takes a write lock if a reload is needed.
func (c *PageCache) ensureLoaded(ctx context.Context) ([]content.URL, map[string]content.URL, error) {
	c.mu.RLock()
	if c.valid() {
		urls, byURL := c.urls, c.byURL
		c.mu.RUnlock()
		return urls, byURL, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid() {
		return c.urls, c.byURL, nil
	}
	urls, err := c.store.ListIndexedURLs(ctx)
	if err != nil {
		return nil, nil, err
	}
	if urls == nil {
		urls = []content.URL{}
	}
	byURL := make(map[string]content.URL, len(urls))
	for _, u := range urls {
		byURL[u.URL] = u
	}
	c.urls, c.byURL, c.fetched = urls, byURL, time.Now()
	return urls, byURL, nil
}

// Indexed returns every indexed URL.
func (c *PageCache) Indexed(ctx context.Context) ([]content.URL, error) {
	urls, _, err := c.ensureLoaded(ctx)
	return urls, err
}

// IndexedOfType returns the indexed URLs of type t.
func (c *PageCache) IndexedOfType(ctx context.Context, t content.Type) ([]content.URL, error) {
	urls, _, err := c.ensureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	var out []content.URL
	for _, u := range urls {
		if u.Type == t {
			out = append(out, u)
		}
	}
	return out, nil
}

// IsIndexed reports whether path is in the indexed set.
func (c *PageCache) IsIndexed(ctx context.Context, path string) (bool, error) {
	_, byURL, err := c.ensureLoaded(ctx)
	if err != nil {
		return false, err
	}
	_, ok := byURL[path]
	return ok, nil
}
