package signal

import (
	"fmt"
	"sync"
	"time"

	"github.com/quantline/signal-engine/internal/entity"
)

// DedupCache remembers when a symbol last produced a signal so the scanner
// does not re-signal it within the dedup window. Entries are written the
// moment a signal is created, independent of whether posting succeeded.
type DedupCache struct {
	mu     sync.Mutex
	seen   map[string]time.Time
	window time.Duration
	now    func() time.Time
}

type DedupOption func(c *DedupCache)

func WithDedupClock(now func() time.Time) DedupOption {
	return func(c *DedupCache) {
		c.now = now
	}
}

func NewDedupCache(window time.Duration, opts ...DedupOption) *DedupCache {
	c := &DedupCache{
		seen:   make(map[string]time.Time),
		window: window,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func dedupKey(symbol string, market entity.Market) string {
	return fmt.Sprintf("%s-%s", symbol, market)
}

func (c *DedupCache) Recent(symbol string, market entity.Market) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	at, ok := c.seen[dedupKey(symbol, market)]
	return ok && c.now().Sub(at) < c.window
}

func (c *DedupCache) Mark(symbol string, market entity.Market) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	c.seen[dedupKey(symbol, market)] = now
	// opportunistic cleanup keeps the map from growing with the universe
	for k, at := range c.seen {
		if now.Sub(at) >= c.window {
			delete(c.seen, k)
		}
	}
}
