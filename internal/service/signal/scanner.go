package signal

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/quantline/signal-engine/internal/config"
	"github.com/quantline/signal-engine/internal/entity"
	"github.com/quantline/signal-engine/internal/repo"
	"github.com/quantline/signal-engine/internal/schedule"
	"github.com/quantline/signal-engine/internal/service/indicator"
	"github.com/quantline/signal-engine/internal/service/notification"
	"github.com/quantline/signal-engine/internal/service/oracle"
	"github.com/quantline/signal-engine/internal/service/scorer"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

var _ schedule.Task = (*Scanner)(nil)

// Scanner walks each market on a fixed interval and tries to turn at most
// one candidate symbol per market into an active signal.
type Scanner struct {
	cfg       config.Engine
	signals   repo.SignalRepo
	bindings  repo.BindingRepo
	cooldowns *CooldownManager
	prices    PriceService
	snapshots indicator.SnapshotProvider
	sentiment SentimentService
	oracle    OracleService
	notifier  notification.Notifier
	universes map[entity.Market]Universe

	dedup *DedupCache
	now   func() time.Time

	// drawCooldown picks the extended scan pause applied after a closure.
	drawCooldown func() time.Duration

	scanning map[entity.Market]*atomic.Bool

	mu         sync.Mutex
	pauseUntil map[int64]time.Time // closed signal id -> scan allowed after
}

type ScannerOption func(s *Scanner)

func WithScannerClock(now func() time.Time) ScannerOption {
	return func(s *Scanner) {
		s.now = now
	}
}

func WithCooldownDraw(draw func() time.Duration) ScannerOption {
	return func(s *Scanner) {
		s.drawCooldown = draw
	}
}

func NewScanner(
	cfg config.Engine,
	signals repo.SignalRepo,
	bindings repo.BindingRepo,
	cooldowns *CooldownManager,
	prices PriceService,
	snapshots indicator.SnapshotProvider,
	sentiment SentimentService,
	oracleSvc OracleService,
	notifier notification.Notifier,
	universes map[entity.Market]Universe,
	opts ...ScannerOption,
) *Scanner {
	s := &Scanner{
		cfg:       cfg,
		signals:   signals,
		bindings:  bindings,
		cooldowns: cooldowns,
		prices:    prices,
		snapshots: snapshots,
		sentiment: sentiment,
		oracle:    oracleSvc,
		notifier:  notifier,
		universes: universes,
		dedup:     NewDedupCache(cfg.DedupWindow),
		now:       time.Now,
		scanning: map[entity.Market]*atomic.Bool{
			entity.MarketCrypto: {},
			entity.MarketForex:  {},
		},
		pauseUntil: make(map[int64]time.Time),
	}
	s.drawCooldown = func() time.Duration {
		spread := cfg.ScanCooldownMax - cfg.ScanCooldownMin
		return cfg.ScanCooldownMin + time.Duration(rand.Int63n(int64(spread)))
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scanner) Name() string {
	return "signal-scan"
}

func (s *Scanner) Run(ctx context.Context) error {
	for _, market := range []entity.Market{entity.MarketCrypto, entity.MarketForex} {
		s.scanMarket(ctx, market)
	}
	return nil
}

func (s *Scanner) scanMarket(ctx context.Context, market entity.Market) {
	flag := s.scanning[market]
	if !flag.CompareAndSwap(false, true) {
		slog.Debug("scan already in flight", "market", market)
		return
	}
	defer flag.Store(false)

	if market == entity.MarketForex && !ForexMarketOpen(s.now()) {
		slog.Debug("forex market closed, skipping scan")
		return
	}
	for _, sig := range s.signals.ListActive(ctx) {
		if sig.Market == market {
			slog.Debug("active signal exists, skipping scan", "market", market, "symbol", sig.Symbol)
			return
		}
	}
	if until, paused := s.pausedAfterClose(ctx, market); paused {
		slog.Debug("extended cooldown after close", "market", market, "until", until)
		return
	}

	bindings, err := s.bindings.ListByMarket(ctx, market)
	if err != nil {
		slog.Error("failed to list bindings", "market", market, "error", err)
		return
	}
	if len(bindings) == 0 {
		slog.Warn("no destinations bound, skipping scan", "market", market)
		return
	}

	universe, ok := s.universes[market]
	if !ok {
		slog.Warn("no universe configured", "market", market)
		return
	}
	symbols, err := universe.Symbols(ctx)
	if err != nil {
		slog.Error("failed to list universe", "market", market, "error", err)
		return
	}
	candidates := lo.Samples(filterDenylisted(symbols), s.cfg.ScanSampleSize)

	for _, symbol := range candidates {
		if s.dedup.Recent(symbol, market) {
			slog.Debug("recently signaled, skipping", "market", market, "symbol", symbol)
			continue
		}
		ev, err := s.evaluateSymbol(ctx, market, symbol)
		if err != nil {
			if !s.oracle.Ready() {
				// the oracle logs its own standing warning
				return
			}
			slog.Debug("candidate rejected", "market", market, "symbol", symbol, "reason", err)
			continue
		}

		created, err := s.createSignal(ctx, market, symbol, ev)
		if err != nil {
			slog.Error("failed to store signal", "market", market, "symbol", symbol, "error", err)
			return
		}
		slog.Info("signal created",
			"market", market, "symbol", symbol, "bias", created.Bias, "confirmations", len(ev.factors))
		s.announce(ctx, created, ev, bindings, false)
		return // one signal per market per cycle
	}
}

type candidateEval struct {
	price      decimal.Decimal
	evaluation oracle.Evaluation
	factors    []string
}

// evaluateSymbol runs one candidate through the price, snapshot, oracle and
// confirmation gates. The returned error is a rejection reason, not a fault.
func (s *Scanner) evaluateSymbol(ctx context.Context, market entity.Market, symbol string) (candidateEval, error) {
	quote, err := s.prices.FetchPrice(ctx, symbol)
	if err != nil {
		return candidateEval{}, fmt.Errorf("price unavailable: %w", err)
	}
	snap, err := s.snapshots.Snapshot(ctx, symbol, market)
	if err != nil {
		return candidateEval{}, fmt.Errorf("snapshot unavailable: %w", err)
	}

	sentiment := neutralSentiment
	if market == entity.MarketCrypto && s.sentiment != nil {
		sentiment = s.sentiment.Headline(ctx, symbol)
	}

	eval, err := s.oracle.Evaluate(ctx, oracle.EvaluateRequest{
		Symbol:    symbol,
		Market:    market,
		Price:     quote.Price,
		Sentiment: sentiment,
		Snapshot:  snap,
	})
	if err != nil {
		return candidateEval{}, err
	}
	if eval.Neutral {
		return candidateEval{}, fmt.Errorf("oracle neutral")
	}

	result := scorer.Score(snap, eval.Bias)
	if result.Count < s.cfg.RequiredConfirmations {
		return candidateEval{}, fmt.Errorf("confirmations %d below threshold %d", result.Count, s.cfg.RequiredConfirmations)
	}
	return candidateEval{price: quote.Price, evaluation: eval, factors: result.Factors}, nil
}

func (s *Scanner) createSignal(ctx context.Context, market entity.Market, symbol string, ev candidateEval) (entity.Signal, error) {
	entry := ev.evaluation.Entry
	if entry == nil {
		p := formatPrice(market, ev.price)
		entry = &p
	}
	created, err := s.signals.Create(ctx, entity.Signal{
		Symbol:     symbol,
		Market:     market,
		Bias:       ev.evaluation.Bias,
		Status:     entity.StatusActive,
		EntryPrice: entry,
		TakeProfit: ev.evaluation.TakeProfit,
		StopLoss:   ev.evaluation.StopLoss,
		Reasoning:  ev.evaluation.Text,
	})
	if err != nil {
		return entity.Signal{}, err
	}
	// marked only once the signal exists; posting failures still count
	s.dedup.Mark(symbol, market)
	return created, nil
}

// announce fans the new signal out to every eligible binding. Per-binding
// failures are logged and never stop the fan-out.
func (s *Scanner) announce(ctx context.Context, sig entity.Signal, ev candidateEval, bindings []entity.GroupBinding, force bool) {
	text := announceText(sig, ev.price, ev.factors)
	for _, b := range bindings {
		dest, err := bindingDestination(b)
		if err != nil {
			slog.Warn("skipping malformed binding", "binding", b.ID, "error", err)
			continue
		}
		if !force && s.cooldowns.OnCooldown(ctx, b.ID, sig.Market) {
			slog.Debug("binding on cooldown", "binding", b.ID, "market", sig.Market)
			continue
		}

		msgID, err := s.notifier.Send(ctx, dest, text)
		if err != nil {
			slog.Warn("failed to post announcement", "binding", b.ID, "error", err)
			continue
		}
		if !force {
			if err := s.notifier.Pin(ctx, dest, msgID); err != nil {
				slog.Warn("failed to pin announcement", "binding", b.ID, "error", err)
			}
			if err := s.cooldowns.MarkBinding(ctx, b.ID, sig.Market, s.cfg.PostCooldown); err != nil {
				slog.Warn("failed to set post cooldown", "binding", b.ID, "error", err)
			}
		}

		topicID := b.TopicID
		if err := s.signals.Update(ctx, sig.ID, func(stored *entity.Signal) {
			if stored.SideChannel == nil {
				stored.SideChannel = entity.SideChannel{}
			}
			stored.SideChannel[dest.Key()] = entity.ChannelState{
				LastMessageID: msgID,
				TopicID:       topicID,
			}
		}); err != nil {
			slog.Warn("failed to record announcement message", "signal", sig.ID, "error", err)
		}
	}
}

// ForceScan evaluates an explicit symbol right now, bypassing the
// single-flight, cooldown, dedup and market-hours gates. The confirmation
// gate still applies. An empty symbol sweeps the whole universe without the
// sample cap. When dest is non-nil the announcement goes only there.
func (s *Scanner) ForceScan(ctx context.Context, market entity.Market, symbol string, dest *notification.Destination) (entity.Signal, error) {
	var (
		ev  candidateEval
		err error
	)
	if symbol != "" {
		ev, err = s.evaluateSymbol(ctx, market, symbol)
	} else {
		symbol, ev, err = s.sweep(ctx, market)
	}
	if err != nil {
		return entity.Signal{}, err
	}
	created, err := s.createSignal(ctx, market, symbol, ev)
	if err != nil {
		return entity.Signal{}, err
	}

	if dest != nil {
		text := announceText(created, ev.price, ev.factors)
		msgID, err := s.notifier.Send(ctx, *dest, text)
		if err != nil {
			slog.Warn("failed to post forced announcement", "error", err)
			return created, nil
		}
		destKey := dest.Key()
		if err := s.signals.Update(ctx, created.ID, func(stored *entity.Signal) {
			if stored.SideChannel == nil {
				stored.SideChannel = entity.SideChannel{}
			}
			stored.SideChannel[destKey] = entity.ChannelState{LastMessageID: msgID}
		}); err != nil {
			slog.Warn("failed to record forced announcement", "signal", created.ID, "error", err)
		}
		return created, nil
	}

	bindings, err := s.bindings.ListByMarket(ctx, market)
	if err != nil {
		slog.Error("failed to list bindings", "market", market, "error", err)
		return created, nil
	}
	s.announce(ctx, created, ev, bindings, true)
	return created, nil
}

// sweep evaluates the entire filtered universe in shuffled order and
// returns the first candidate that passes every gate.
func (s *Scanner) sweep(ctx context.Context, market entity.Market) (string, candidateEval, error) {
	universe, ok := s.universes[market]
	if !ok {
		return "", candidateEval{}, fmt.Errorf("no universe configured for market %s", market)
	}
	symbols, err := universe.Symbols(ctx)
	if err != nil {
		return "", candidateEval{}, err
	}
	var lastErr error
	for _, symbol := range lo.Shuffle(filterDenylisted(symbols)) {
		ev, err := s.evaluateSymbol(ctx, market, symbol)
		if err != nil {
			lastErr = err
			continue
		}
		return symbol, ev, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("empty universe for market %s", market)
	}
	return "", candidateEval{}, fmt.Errorf("no candidate passed: %w", lastErr)
}

// pausedAfterClose reports whether the market is inside the randomized
// extended cooldown that follows its most recent signal closure. The drawn
// duration is cached per closure so repeated checks agree.
func (s *Scanner) pausedAfterClose(ctx context.Context, market entity.Market) (time.Time, bool) {
	var latest *entity.Signal
	for _, sig := range s.signals.List(ctx) {
		if sig.Market != market || sig.Status != entity.StatusCompleted {
			continue
		}
		if latest == nil || sig.LastUpdateAt.After(latest.LastUpdateAt) {
			cp := sig
			latest = &cp
		}
	}
	if latest == nil {
		return time.Time{}, false
	}

	now := s.now()
	s.mu.Lock()
	until, ok := s.pauseUntil[latest.ID]
	if !ok {
		until = latest.LastUpdateAt.Add(s.drawCooldown())
		s.pauseUntil[latest.ID] = until
	}
	for id, t := range s.pauseUntil {
		// A redraw extends a pause by at most ScanCooldownMax past the
		// closure, so an entry this far gone can never re-block a scan.
		if now.Sub(t) >= s.cfg.ScanCooldownMax {
			delete(s.pauseUntil, id)
		}
	}
	s.mu.Unlock()

	if now.Before(until) {
		return until, true
	}
	return time.Time{}, false
}
