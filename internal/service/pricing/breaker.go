package pricing

import (
	"log/slog"
	"sync"
	"time"
)

type breakerState struct {
	failures    int
	lastFailure time.Time
	openUntil   time.Time
}

// BreakerRegistry tracks consecutive failures per provider and keeps a
// provider out of the cascade while its circuit is open.
type BreakerRegistry struct {
	mu        sync.Mutex
	states    map[string]*breakerState
	threshold int
	openFor   time.Duration
	now       func() time.Time
}

type BreakerOption func(r *BreakerRegistry)

func WithBreakerClock(now func() time.Time) BreakerOption {
	return func(r *BreakerRegistry) {
		r.now = now
	}
}

func NewBreakerRegistry(threshold int, openFor time.Duration, opts ...BreakerOption) *BreakerRegistry {
	r := &BreakerRegistry{
		states:    make(map[string]*breakerState),
		threshold: threshold,
		openFor:   openFor,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *BreakerRegistry) state(provider string) *breakerState {
	st, ok := r.states[provider]
	if !ok {
		st = &breakerState{}
		r.states[provider] = st
	}
	return st
}

func (r *BreakerRegistry) Open(provider string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.state(provider)
	return r.now().Before(st.openUntil)
}

func (r *BreakerRegistry) MarkFailure(provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.state(provider)
	st.failures++
	st.lastFailure = r.now()
	if st.failures >= r.threshold {
		st.openUntil = r.now().Add(r.openFor)
		slog.Warn("circuit opened for provider", "provider", provider, "open_for", r.openFor)
	}
}

func (r *BreakerRegistry) MarkSuccess(provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.state(provider)
	st.failures = 0
	st.openUntil = time.Time{}
}
