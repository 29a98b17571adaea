package pricing

import (
	"context"
	"log/slog"
	"time"
)

// Aggregator resolves a symbol to a quote by walking an ordered provider
// list. Earlier providers are always preferred when healthy; the first
// usable result wins and fills the cache.
type Aggregator struct {
	providers []Provider
	breaker   *BreakerRegistry
	cache     *quoteCache

	timeout time.Duration
	now     func() time.Time
}

type AggregatorOption func(a *Aggregator)

func WithCacheTTL(ttl time.Duration) AggregatorOption {
	return func(a *Aggregator) {
		a.cache = newQuoteCache(ttl, a.now)
	}
}

func WithBreaker(breaker *BreakerRegistry) AggregatorOption {
	return func(a *Aggregator) {
		a.breaker = breaker
	}
}

func WithCallTimeout(timeout time.Duration) AggregatorOption {
	return func(a *Aggregator) {
		a.timeout = timeout
	}
}

// WithClock swaps the clock on the cache and on whichever breaker
// registry the aggregator holds at that point, so apply it after
// WithBreaker when both are used.
func WithClock(now func() time.Time) AggregatorOption {
	return func(a *Aggregator) {
		a.now = now
		a.cache = newQuoteCache(a.cache.ttl, now)
		a.breaker.now = now
	}
}

func NewAggregator(providers []Provider, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		providers: providers,
		breaker:   NewBreakerRegistry(3, time.Minute),
		timeout:   5 * time.Second,
		now:       time.Now,
	}
	a.cache = newQuoteCache(45*time.Second, a.now)
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// FetchPrice never returns any error other than ErrNotFound; individual
// provider failures only move the cascade along.
func (a *Aggregator) FetchPrice(ctx context.Context, symbol string) (Quote, error) {
	base, quote := SplitSymbol(symbol)
	key := cacheKey(base, quote)

	if cached, ok := a.cache.get(key); ok {
		return cached, nil
	}

	for _, p := range a.providers {
		if a.breaker.Open(p.Name()) {
			continue
		}

		callCtx, cancel := context.WithTimeout(ctx, a.timeout)
		q, err := p.Fetch(callCtx, base, quote)
		cancel()
		if err != nil {
			a.breaker.MarkFailure(p.Name())
			slog.Debug("price provider failed", "provider", p.Name(), "symbol", key, "error", err)
			continue
		}

		a.breaker.MarkSuccess(p.Name())
		a.cache.set(key, q)
		return q, nil
	}

	return Quote{}, ErrNotFound
}
