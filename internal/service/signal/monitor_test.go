package signal

import (
	"context"
	"testing"
	"time"

	"github.com/quantline/signal-engine/internal/config"
	"github.com/quantline/signal-engine/internal/entity"
	"github.com/quantline/signal-engine/internal/repo"
	"github.com/quantline/signal-engine/internal/service/pricing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type monitorFixture struct {
	cfg      config.Engine
	signals  repo.SignalRepo
	bindings *memBindings
	prices   *stubPrices
	oracle   *stubOracle
	notifier *recordingNotifier
	now      time.Time
}

func newMonitorFixture() *monitorFixture {
	f := &monitorFixture{
		cfg: config.Default(),
		bindings: newMemBindings(
			entity.GroupBinding{GroupID: "100", Market: entity.MarketCrypto},
		),
		prices:   &stubPrices{quotes: map[string]pricing.Quote{}},
		oracle:   &stubOracle{},
		notifier: &recordingNotifier{},
		now:      time.Date(2024, 6, 5, 12, 0, 0, 0, time.UTC),
	}
	f.signals = repo.NewSignalRepo(nil, repo.WithSignalClock(func() time.Time { return f.now }))
	return f
}

func (f *monitorFixture) build() *Monitor {
	return NewMonitor(
		f.cfg,
		f.signals,
		f.bindings,
		NewCooldownManager(f.bindings, WithCooldownClock(func() time.Time { return f.now })),
		f.prices,
		f.oracle,
		f.notifier,
		WithMonitorClock(func() time.Time { return f.now }),
	)
}

func (f *monitorFixture) seedSignal(t *testing.T, sig entity.Signal) entity.Signal {
	t.Helper()
	created, err := f.signals.Create(context.Background(), sig)
	require.NoError(t, err)
	return created
}

func bullishBTC() entity.Signal {
	return entity.Signal{
		Symbol:     "BTC",
		Market:     entity.MarketCrypto,
		Bias:       entity.BiasBullish,
		Status:     entity.StatusActive,
		EntryPrice: strp("100"),
		TakeProfit: strp("120"),
		StopLoss:   strp("90"),
	}
}

func TestMonitor_TakeProfitCompletesSignal(t *testing.T) {
	ctx := context.Background()
	f := newMonitorFixture()
	sig := f.seedSignal(t, bullishBTC())
	f.prices.quotes["BTC"] = quoteAt(121)
	m := f.build()

	require.NoError(t, m.Run(ctx))

	got, ok := f.signals.Get(ctx, sig.ID)
	require.True(t, ok)
	assert.Equal(t, entity.StatusCompleted, got.Status)
	assert.Equal(t, "121", *got.LastPrice)

	require.Len(t, f.notifier.sent, 1)
	assert.Contains(t, f.notifier.sent[0].text, "take profit")

	// the close puts every binding of the market on cooldown
	mgr := NewCooldownManager(f.bindings, WithCooldownClock(func() time.Time { return f.now }))
	assert.True(t, mgr.OnCooldown(ctx, 1, entity.MarketCrypto))
}

func TestMonitor_StopLossCompletesSignal(t *testing.T) {
	ctx := context.Background()
	f := newMonitorFixture()
	sig := f.seedSignal(t, bullishBTC())
	f.prices.quotes["BTC"] = quoteAt(88)
	m := f.build()

	require.NoError(t, m.Run(ctx))

	got, _ := f.signals.Get(ctx, sig.ID)
	assert.Equal(t, entity.StatusCompleted, got.Status)
	require.Len(t, f.notifier.sent, 1)
	assert.Contains(t, f.notifier.sent[0].text, "stop loss")
}

func TestMonitor_BearishHitTestsAreMirrored(t *testing.T) {
	ctx := context.Background()
	f := newMonitorFixture()
	sig := f.seedSignal(t, entity.Signal{
		Symbol:     "BTC",
		Market:     entity.MarketCrypto,
		Bias:       entity.BiasBearish,
		Status:     entity.StatusActive,
		EntryPrice: strp("100"),
		TakeProfit: strp("80"),
		StopLoss:   strp("110"),
	})
	f.prices.quotes["BTC"] = quoteAt(79)
	m := f.build()

	require.NoError(t, m.Run(ctx))

	got, _ := f.signals.Get(ctx, sig.ID)
	assert.Equal(t, entity.StatusCompleted, got.Status)
	assert.Contains(t, f.notifier.sent[0].text, "take profit")
}

func TestMonitor_HeartbeatAfterQuietPeriod(t *testing.T) {
	ctx := context.Background()
	f := newMonitorFixture()
	sig := f.seedSignal(t, bullishBTC())
	f.prices.quotes["BTC"] = quoteAt(100.5)
	m := f.build()

	f.now = f.now.Add(11 * time.Minute)
	require.NoError(t, m.Run(ctx))

	got, _ := f.signals.Get(ctx, sig.ID)
	assert.Equal(t, entity.StatusActive, got.Status)
	assert.Equal(t, f.now, got.LastUpdateAt, "heartbeat bumps the update clock")
	require.Len(t, f.notifier.sent, 1)
	assert.Contains(t, f.notifier.sent[0].text, "still")
}

func TestMonitor_SilentPricePersist(t *testing.T) {
	ctx := context.Background()
	f := newMonitorFixture()
	sig := f.seedSignal(t, bullishBTC())
	f.prices.quotes["BTC"] = quoteAt(101)
	m := f.build()

	f.now = f.now.Add(3 * time.Minute)
	require.NoError(t, m.Run(ctx))

	got, _ := f.signals.Get(ctx, sig.ID)
	assert.Equal(t, entity.StatusActive, got.Status)
	require.NotNil(t, got.LastPrice)
	assert.Equal(t, "101", *got.LastPrice)
	assert.Equal(t, sig.LastUpdateAt, got.LastUpdateAt, "silent persist must not reset the heartbeat timer")
	assert.Empty(t, f.notifier.sent)
}

func TestMonitor_BigMoveAgainstLastObservedPrice(t *testing.T) {
	ctx := context.Background()
	f := newMonitorFixture()
	sig := bullishBTC()
	sig.TakeProfit = strp("200")
	sig.LastPrice = strp("100")
	created := f.seedSignal(t, sig)
	// 6% in one cycle clears the 5% crypto threshold
	f.prices.quotes["BTC"] = quoteAt(106)
	m := f.build()

	f.now = f.now.Add(3 * time.Minute)
	require.NoError(t, m.Run(ctx))

	got, _ := f.signals.Get(ctx, created.ID)
	assert.Equal(t, entity.StatusActive, got.Status)
	require.Len(t, f.notifier.sent, 1)
	assert.Contains(t, f.notifier.sent[0].text, "structural")
}

func TestMonitor_ForexBigMoveThreshold(t *testing.T) {
	// forex baseline is far tighter: 0.6% is structural, 0.3% is noise
	base := decimal.NewFromFloat(1.0)
	assert.Equal(t, kindBigMove, decideUpdate(entity.Signal{
		Market: entity.MarketForex, Bias: entity.BiasBullish, LastPrice: strp("1.0"),
	}, base.Mul(decimal.NewFromFloat(1.006)), time.Now(), 10*time.Minute))
	assert.Equal(t, kindNone, decideUpdate(entity.Signal{
		Market: entity.MarketForex, Bias: entity.BiasBullish, LastPrice: strp("1.0"),
		LastUpdateAt: time.Now(),
	}, base.Mul(decimal.NewFromFloat(1.003)), time.Now(), 10*time.Minute))
}

func TestMonitor_ReplacesPreviousUpdateMessage(t *testing.T) {
	ctx := context.Background()
	f := newMonitorFixture()
	sig := bullishBTC()
	sig.SideChannel = entity.SideChannel{
		"100:0": {LastMessageID: "7", LastMonitoredPrice: "100"},
	}
	created := f.seedSignal(t, sig)
	f.prices.quotes["BTC"] = quoteAt(121)
	m := f.build()

	require.NoError(t, m.Run(ctx))

	assert.Equal(t, []string{"7"}, f.notifier.deleted)
	got, _ := f.signals.Get(ctx, created.ID)
	assert.Equal(t, f.notifier.sent[0].id, got.SideChannel["100:0"].LastMessageID)
	assert.Equal(t, "121", got.SideChannel["100:0"].LastMonitoredPrice)
}

func TestMonitor_PriceFailureDefersSignal(t *testing.T) {
	ctx := context.Background()
	f := newMonitorFixture()
	sig := f.seedSignal(t, bullishBTC())
	m := f.build() // no quote registered

	require.NoError(t, m.Run(ctx))

	got, _ := f.signals.Get(ctx, sig.ID)
	assert.Equal(t, entity.StatusActive, got.Status)
	assert.Nil(t, got.LastPrice)
	assert.Empty(t, f.notifier.sent)
}

func TestMonitor_CommentaryEnrichesUpdate(t *testing.T) {
	ctx := context.Background()
	f := newMonitorFixture()
	f.seedSignal(t, bullishBTC())
	f.prices.quotes["BTC"] = quoteAt(121)
	f.oracle.ready = true
	f.oracle.commentary = "Momentum confirmed the breakout."
	m := f.build()

	require.NoError(t, m.Run(ctx))

	require.Len(t, f.notifier.sent, 1)
	assert.Contains(t, f.notifier.sent[0].text, "Momentum confirmed")
}

func TestDecideUpdate_TerminalBeatsBigMove(t *testing.T) {
	sig := bullishBTC()
	sig.LastPrice = strp("100")
	// 21% jump is also past take profit; the terminal outcome wins
	kind := decideUpdate(sig, decimal.NewFromInt(121), time.Now(), 10*time.Minute)
	assert.Equal(t, kindTakeProfit, kind)
}
