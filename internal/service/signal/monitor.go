package signal

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/quantline/signal-engine/internal/config"
	"github.com/quantline/signal-engine/internal/entity"
	"github.com/quantline/signal-engine/internal/repo"
	"github.com/quantline/signal-engine/internal/schedule"
	"github.com/quantline/signal-engine/internal/service/notification"
	"github.com/quantline/signal-engine/internal/service/oracle"
	"github.com/quantline/signal-engine/pkg/decimalx"
	"github.com/shopspring/decimal"
)

// Baseline per-cycle volatility; a move of twice the baseline is treated as
// a structural shift worth an immediate update.
var baselineVolatility = map[entity.Market]decimal.Decimal{
	entity.MarketCrypto: decimal.NewFromFloat(2.5),
	entity.MarketForex:  decimal.NewFromFloat(0.25),
}

var _ schedule.Task = (*Monitor)(nil)

// Monitor re-evaluates every active signal each cycle: it closes signals
// whose TP or SL was crossed and posts structural-move or heartbeat updates
// for the rest.
type Monitor struct {
	cfg       config.Engine
	signals   repo.SignalRepo
	bindings  repo.BindingRepo
	cooldowns *CooldownManager
	prices    PriceService
	oracle    OracleService
	notifier  notification.Notifier
	now       func() time.Time
}

type MonitorOption func(m *Monitor)

func WithMonitorClock(now func() time.Time) MonitorOption {
	return func(m *Monitor) {
		m.now = now
	}
}

func NewMonitor(
	cfg config.Engine,
	signals repo.SignalRepo,
	bindings repo.BindingRepo,
	cooldowns *CooldownManager,
	prices PriceService,
	oracleSvc OracleService,
	notifier notification.Notifier,
	opts ...MonitorOption,
) *Monitor {
	m := &Monitor{
		cfg:       cfg,
		signals:   signals,
		bindings:  bindings,
		cooldowns: cooldowns,
		prices:    prices,
		oracle:    oracleSvc,
		notifier:  notifier,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Monitor) Name() string {
	return "signal-monitor"
}

// Run fans active signals out to a bounded worker set. One signal's failure
// or panic never blocks the rest of the cycle.
func (m *Monitor) Run(ctx context.Context) error {
	active := m.signals.ListActive(ctx)
	if len(active) == 0 {
		return nil
	}

	sem := make(chan struct{}, m.cfg.MonitorConcurrency)
	var wg sync.WaitGroup
	for _, sig := range active {
		sig := sig
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					slog.Error("panic while monitoring signal", "signal", sig.ID, "symbol", sig.Symbol, "panic", r)
				}
			}()
			m.process(ctx, sig)
		}()
	}
	wg.Wait()
	return nil
}

func (m *Monitor) process(ctx context.Context, sig entity.Signal) {
	quote, err := m.prices.FetchPrice(ctx, sig.Symbol)
	if err != nil {
		slog.Debug("price unavailable, deferring signal", "signal", sig.ID, "symbol", sig.Symbol, "error", err)
		return
	}
	price := quote.Price
	kind := decideUpdate(sig, price, m.now(), m.cfg.HeartbeatInterval)

	if kind == kindNone {
		// nothing visible this cycle; remember the price for the next delta
		priceStr := price.String()
		if err := m.signals.Update(ctx, sig.ID, func(stored *entity.Signal) {
			stored.LastPrice = &priceStr
		}); err != nil {
			slog.Warn("failed to persist observed price", "signal", sig.ID, "error", err)
		}
		return
	}

	priceStr := price.String()
	text := updateText(kind, sig, price, m.commentary(ctx, sig, kind, price))
	states := m.post(ctx, sig, text, priceStr)
	now := m.now()
	terminal := kind.terminal()
	if err := m.signals.Update(ctx, sig.ID, func(stored *entity.Signal) {
		if stored.SideChannel == nil {
			stored.SideChannel = entity.SideChannel{}
		}
		for key, st := range states {
			stored.SideChannel[key] = st
		}
		stored.LastPrice = &priceStr
		stored.LastUpdateAt = now
		if terminal {
			stored.Status = entity.StatusCompleted
		}
	}); err != nil {
		slog.Error("failed to update signal", "signal", sig.ID, "error", err)
		return
	}

	if terminal {
		slog.Info("signal completed", "signal", sig.ID, "symbol", sig.Symbol, "outcome", kind.String())
		m.cooldowns.MarkMarket(ctx, sig.Market, m.cfg.CloseCooldown)
	}
}

// decideUpdate classifies what, if anything, this cycle should post.
func decideUpdate(sig entity.Signal, price decimal.Decimal, now time.Time, heartbeat time.Duration) updateKind {
	bullish := sig.Bias == entity.BiasBullish

	if sl, ok := decimalx.FromStringPtr(sig.StopLoss); ok {
		if (bullish && price.LessThanOrEqual(sl)) || (!bullish && price.GreaterThanOrEqual(sl)) {
			return kindStopLoss
		}
	}
	if tp, ok := decimalx.FromStringPtr(sig.TakeProfit); ok {
		if (bullish && price.GreaterThanOrEqual(tp)) || (!bullish && price.LessThanOrEqual(tp)) {
			return kindTakeProfit
		}
	}

	baseline, ok := decimalx.FromStringPtr(sig.LastPrice)
	if !ok {
		baseline, ok = decimalx.FromStringPtr(sig.EntryPrice)
	}
	if ok && !baseline.IsZero() {
		threshold := baselineVolatility[sig.Market].Mul(decimal.NewFromInt(2))
		if decimalx.PercentChange(baseline, price).GreaterThanOrEqual(threshold) {
			return kindBigMove
		}
	}

	if now.Sub(sig.LastUpdateAt) >= heartbeat {
		return kindHeartbeat
	}
	return kindNone
}

// commentary asks the oracle for a short enrichment line; any failure falls
// back to the plain status text.
func (m *Monitor) commentary(ctx context.Context, sig entity.Signal, kind updateKind, price decimal.Decimal) string {
	if m.oracle == nil || !m.oracle.Ready() {
		return ""
	}
	entry, ok := decimalx.FromStringPtr(sig.EntryPrice)
	if !ok {
		entry = price
	}
	text, err := m.oracle.Commentary(ctx, oracle.CommentaryRequest{
		Symbol: sig.Symbol,
		Status: kind.String(),
		Price:  price,
		Entry:  entry,
	})
	if err != nil {
		slog.Debug("commentary unavailable", "signal", sig.ID, "error", err)
		return ""
	}
	return text
}

// post replaces the previous update message in every destination bound to
// the signal's market. Destinations already recorded in the side channel go
// first so the original audience sees the update even if later sends fail.
func (m *Monitor) post(ctx context.Context, sig entity.Signal, text, priceStr string) map[string]entity.ChannelState {
	bindings, err := m.bindings.ListByMarket(ctx, sig.Market)
	if err != nil {
		slog.Error("failed to list bindings", "market", sig.Market, "error", err)
		return nil
	}

	ordered := make([]entity.GroupBinding, 0, len(bindings))
	var rest []entity.GroupBinding
	for _, b := range bindings {
		dest, err := bindingDestination(b)
		if err != nil {
			slog.Warn("skipping malformed binding", "binding", b.ID, "error", err)
			continue
		}
		if _, recorded := sig.SideChannel[dest.Key()]; recorded {
			ordered = append(ordered, b)
		} else {
			rest = append(rest, b)
		}
	}
	ordered = append(ordered, rest...)

	states := make(map[string]entity.ChannelState)
	for _, b := range ordered {
		dest, _ := bindingDestination(b)
		key := dest.Key()

		if prev, ok := sig.SideChannel[key]; ok && prev.LastMessageID != "" {
			if err := m.notifier.Delete(ctx, dest, prev.LastMessageID); err != nil {
				slog.Debug("failed to delete previous update", "signal", sig.ID, "dest", key, "error", err)
			}
		}
		msgID, err := m.notifier.Send(ctx, dest, text)
		if err != nil {
			slog.Warn("failed to post update", "signal", sig.ID, "dest", key, "error", err)
			continue
		}
		states[key] = entity.ChannelState{
			LastMessageID:      msgID,
			TopicID:            b.TopicID,
			LastMonitoredPrice: priceStr,
		}
	}
	return states
}
