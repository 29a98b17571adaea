package signal

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/quantline/signal-engine/internal/entity"
	"github.com/quantline/signal-engine/internal/repo"
)

// CooldownManager owns the per-binding cooldown blobs. Every read-merge-write
// against a blob happens under the manager mutex so concurrent scanner and
// monitor writes cannot drop each other's expiries.
type CooldownManager struct {
	mu       sync.Mutex
	bindings repo.BindingRepo
	now      func() time.Time
}

type CooldownOption func(m *CooldownManager)

func WithCooldownClock(now func() time.Time) CooldownOption {
	return func(m *CooldownManager) {
		m.now = now
	}
}

func NewCooldownManager(bindings repo.BindingRepo, opts ...CooldownOption) *CooldownManager {
	m := &CooldownManager{
		bindings: bindings,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// OnCooldown reports whether the binding's cooldown for market has not yet
// expired. Lookup failures count as not on cooldown so a storage hiccup
// never silences a destination permanently.
func (m *CooldownManager) OnCooldown(ctx context.Context, bindingID int64, market entity.Market) bool {
	cooldowns, err := m.bindings.GetCooldowns(ctx, bindingID)
	if err != nil {
		slog.Warn("failed to read binding cooldowns", "binding", bindingID, "error", err)
		return false
	}
	until, ok := cooldowns[entity.CooldownKey(market)]
	return ok && m.now().UnixMilli() < until
}

// MarkBinding sets the binding's market cooldown to now+d.
func (m *CooldownManager) MarkBinding(ctx context.Context, bindingID int64, market entity.Market, d time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cooldowns, err := m.bindings.GetCooldowns(ctx, bindingID)
	if err != nil {
		return err
	}
	cooldowns[entity.CooldownKey(market)] = m.now().Add(d).UnixMilli()
	return m.bindings.SetCooldowns(ctx, bindingID, cooldowns)
}

// MarkMarket applies the cooldown to every binding of the market. Per-binding
// failures are logged and do not stop the sweep.
func (m *CooldownManager) MarkMarket(ctx context.Context, market entity.Market, d time.Duration) {
	bindings, err := m.bindings.ListByMarket(ctx, market)
	if err != nil {
		slog.Error("failed to list bindings for market cooldown", "market", market, "error", err)
		return
	}
	for _, b := range bindings {
		if err := m.MarkBinding(ctx, b.ID, market, d); err != nil {
			slog.Warn("failed to set market cooldown", "binding", b.ID, "market", market, "error", err)
		}
	}
}
