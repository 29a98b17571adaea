package pricing

import (
	"sync"
	"time"
)

type cacheEntry struct {
	quote     Quote
	fetchedAt time.Time
}

type quoteCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

func newQuoteCache(ttl time.Duration, now func() time.Time) *quoteCache {
	return &quoteCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     now,
	}
}

func (c *quoteCache) get(key string) (Quote, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return Quote{}, false
	}
	if c.now().Sub(e.fetchedAt) >= c.ttl {
		delete(c.entries, key)
		return Quote{}, false
	}
	return e.quote, true
}

func (c *quoteCache) set(key string, q Quote) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{quote: q, fetchedAt: c.now()}
}
