package indicator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/quantline/signal-engine/internal/entity"
)

const historyLimit = 120

type snapshotEntry struct {
	snap      Snapshot
	fetchedAt time.Time
}

// CachingProvider computes snapshots from a per-market kline source and
// caches them briefly so the scanner and scorer see one consistent vector
// per cycle.
type CachingProvider struct {
	sources map[entity.Market]KlineSource

	mu      sync.Mutex
	entries map[string]snapshotEntry
	ttl     time.Duration
	now     func() time.Time
}

type ProviderOption func(p *CachingProvider)

func WithTTL(ttl time.Duration) ProviderOption {
	return func(p *CachingProvider) {
		p.ttl = ttl
	}
}

func WithProviderClock(now func() time.Time) ProviderOption {
	return func(p *CachingProvider) {
		p.now = now
	}
}

func NewCachingProvider(sources map[entity.Market]KlineSource, opts ...ProviderOption) *CachingProvider {
	p := &CachingProvider{
		sources: sources,
		entries: make(map[string]snapshotEntry),
		ttl:     2 * time.Minute,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *CachingProvider) Snapshot(ctx context.Context, symbol string, market entity.Market) (Snapshot, error) {
	key := fmt.Sprintf("%s::%s", symbol, market)

	p.mu.Lock()
	if e, ok := p.entries[key]; ok && p.now().Sub(e.fetchedAt) < p.ttl {
		p.mu.Unlock()
		return e.snap, nil
	}
	p.mu.Unlock()

	source, ok := p.sources[market]
	if !ok {
		return Snapshot{}, fmt.Errorf("indicator: no kline source for market %s", market)
	}
	klines, err := source.RecentKlines(ctx, symbol, historyLimit)
	if err != nil {
		return Snapshot{}, err
	}
	snap, err := Compute(klines)
	if err != nil {
		return Snapshot{}, err
	}

	p.mu.Lock()
	p.entries[key] = snapshotEntry{snap: snap, fetchedAt: p.now()}
	p.mu.Unlock()
	return snap, nil
}
