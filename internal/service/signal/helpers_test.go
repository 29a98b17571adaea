package signal

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/quantline/signal-engine/internal/entity"
	"github.com/quantline/signal-engine/internal/service/indicator"
	"github.com/quantline/signal-engine/internal/service/notification"
	"github.com/quantline/signal-engine/internal/service/oracle"
	"github.com/quantline/signal-engine/internal/service/pricing"
	"github.com/shopspring/decimal"
)

type stubPrices struct {
	quotes map[string]pricing.Quote
	err    error
}

func (s *stubPrices) FetchPrice(ctx context.Context, symbol string) (pricing.Quote, error) {
	if s.err != nil {
		return pricing.Quote{}, s.err
	}
	q, ok := s.quotes[symbol]
	if !ok {
		return pricing.Quote{}, pricing.ErrNotFound
	}
	return q, nil
}

type stubSnapshots struct {
	snap indicator.Snapshot
	err  error
}

func (s *stubSnapshots) Snapshot(ctx context.Context, symbol string, market entity.Market) (indicator.Snapshot, error) {
	if s.err != nil {
		return indicator.Snapshot{}, s.err
	}
	return s.snap, nil
}

type stubOracle struct {
	ready      bool
	eval       oracle.Evaluation
	evalErr    error
	commentary string
}

func (s *stubOracle) Ready() bool { return s.ready }

func (s *stubOracle) Evaluate(ctx context.Context, req oracle.EvaluateRequest) (oracle.Evaluation, error) {
	if !s.ready {
		return oracle.Evaluation{}, fmt.Errorf("oracle: no model credentials configured")
	}
	if s.evalErr != nil {
		return oracle.Evaluation{}, s.evalErr
	}
	return s.eval, nil
}

func (s *stubOracle) Commentary(ctx context.Context, req oracle.CommentaryRequest) (string, error) {
	if !s.ready {
		return "", fmt.Errorf("oracle: no model credentials configured")
	}
	return s.commentary, nil
}

type sentMessage struct {
	dest notification.Destination
	text string
	id   string
}

type recordingNotifier struct {
	mu      sync.Mutex
	nextID  int
	sent    []sentMessage
	deleted []string
	pinned  []string
	sendErr error
}

func (n *recordingNotifier) Send(ctx context.Context, dest notification.Destination, text string) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sendErr != nil {
		return "", n.sendErr
	}
	n.nextID++
	id := strconv.Itoa(n.nextID)
	n.sent = append(n.sent, sentMessage{dest: dest, text: text, id: id})
	return id, nil
}

func (n *recordingNotifier) Delete(ctx context.Context, dest notification.Destination, messageID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deleted = append(n.deleted, messageID)
	return nil
}

func (n *recordingNotifier) Pin(ctx context.Context, dest notification.Destination, messageID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pinned = append(n.pinned, messageID)
	return nil
}

func (n *recordingNotifier) sentTexts() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.sent))
	for i, m := range n.sent {
		out[i] = m.text
	}
	return out
}

// memBindings is an in-memory BindingRepo double.
type memBindings struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]entity.GroupBinding
}

func newMemBindings(bindings ...entity.GroupBinding) *memBindings {
	m := &memBindings{items: make(map[int64]entity.GroupBinding)}
	for _, b := range bindings {
		m.nextID++
		b.ID = m.nextID
		if b.Cooldowns == nil {
			b.Cooldowns = entity.CooldownMap{}
		}
		m.items[b.ID] = b
	}
	return m
}

func (m *memBindings) Create(ctx context.Context, binding entity.GroupBinding) (entity.GroupBinding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	binding.ID = m.nextID
	if binding.Cooldowns == nil {
		binding.Cooldowns = entity.CooldownMap{}
	}
	m.items[binding.ID] = binding
	return binding, nil
}

func (m *memBindings) ListByMarket(ctx context.Context, market entity.Market) ([]entity.GroupBinding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.GroupBinding
	for _, b := range m.items {
		if b.Market == market {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memBindings) GetCooldowns(ctx context.Context, id int64) (entity.CooldownMap, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("binding %d not found", id)
	}
	out := entity.CooldownMap{}
	for k, v := range b.Cooldowns {
		out[k] = v
	}
	return out, nil
}

func (m *memBindings) SetCooldowns(ctx context.Context, id int64, cooldowns entity.CooldownMap) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.items[id]
	if !ok {
		return fmt.Errorf("binding %d not found", id)
	}
	b.Cooldowns = cooldowns
	m.items[id] = b
	return nil
}

func fullBullishSnapshot() indicator.Snapshot {
	return indicator.Snapshot{
		PriceAboveEMA9:  true,
		PriceAboveEMA21: true,
		RSI:             55,
		MACDBullish:     true,
		MACDHistRising:  true,
		MACDAligned:     true,
		BandPosition:    indicator.BandLower,
		Squeeze:         true,
		AboveVWAP:       true,
		VWAPAligned:     true,
		AboveCloud:      true,
		CloudAligned:    true,
		Pattern:         indicator.PatternBullishReversal,
	}
}

// weakBullishSnapshot confirms exactly five factors against a bullish bias.
func weakBullishSnapshot() indicator.Snapshot {
	return indicator.Snapshot{
		PriceAboveEMA9:  true,
		PriceAboveEMA21: true,
		RSI:             55,
		MACDBullish:     true,
		MACDAligned:     true,
		BandPosition:    indicator.BandMiddle,
		Pattern:         indicator.PatternIndecision,
	}
}

func quoteAt(price float64) pricing.Quote {
	return pricing.Quote{Price: decimal.NewFromFloat(price), Quote: "USDT", Source: "test"}
}

func strp(s string) *string { return &s }
