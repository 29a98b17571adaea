package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name  string
	quote Quote
	err   error
	calls int
}

func (p *fakeProvider) Name() string {
	return p.name
}

func (p *fakeProvider) Fetch(ctx context.Context, base, quote string) (Quote, error) {
	p.calls++
	if p.err != nil {
		return Quote{}, p.err
	}
	q := p.quote
	q.Quote = quote
	return q, nil
}

func newFake(name string, price float64) *fakeProvider {
	return &fakeProvider{
		name:  name,
		quote: Quote{Price: decimal.NewFromFloat(price), Source: name},
	}
}

func TestAggregator_FirstHealthyProviderWins(t *testing.T) {
	first := newFake("first", 100)
	second := newFake("second", 200)
	agg := NewAggregator([]Provider{first, second})

	q, err := agg.FetchPrice(context.Background(), "BTC/USDT")
	require.NoError(t, err)
	assert.Equal(t, "first", q.Source)
	assert.Equal(t, 0, second.calls, "cascade must stop at the first success")
}

func TestAggregator_FailingProviderFallsThrough(t *testing.T) {
	broken := &fakeProvider{name: "broken", err: errors.New("timeout")}
	backup := newFake("backup", 123)
	agg := NewAggregator([]Provider{broken, backup})

	q, err := agg.FetchPrice(context.Background(), "ETH/USDT")
	require.NoError(t, err)
	assert.Equal(t, "backup", q.Source)
}

func TestAggregator_AllProvidersFailReturnsNotFound(t *testing.T) {
	providers := []Provider{
		&fakeProvider{name: "a", err: errors.New("down")},
		&fakeProvider{name: "b", err: errors.New("down")},
	}
	agg := NewAggregator(providers)

	_, err := agg.FetchPrice(context.Background(), "XYZ/USDT")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAggregator_OpenCircuitSkipsProviderWithoutCall(t *testing.T) {
	broken := &fakeProvider{name: "broken", err: errors.New("down")}
	backup := newFake("backup", 50)
	breaker := NewBreakerRegistry(3, time.Minute)
	agg := NewAggregator([]Provider{broken, backup},
		WithBreaker(breaker), WithCacheTTL(time.Nanosecond))

	for i := 0; i < 3; i++ {
		_, err := agg.FetchPrice(context.Background(), "BTC/USDT")
		require.NoError(t, err)
	}
	assert.Equal(t, 3, broken.calls)

	// Circuit is open now; the broken provider must not be attempted.
	_, err := agg.FetchPrice(context.Background(), "BTC/USDT")
	require.NoError(t, err)
	assert.Equal(t, 3, broken.calls)
	assert.Equal(t, 4, backup.calls)
}

func TestAggregator_ClockDrivesDefaultBreaker(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	broken := &fakeProvider{name: "broken", err: errors.New("down")}
	backup := newFake("backup", 50)
	agg := NewAggregator([]Provider{broken, backup},
		WithCacheTTL(time.Nanosecond), WithClock(func() time.Time { return now }))

	for i := 0; i < 3; i++ {
		now = now.Add(time.Second)
		_, err := agg.FetchPrice(context.Background(), "BTC/USDT")
		require.NoError(t, err)
	}
	assert.Equal(t, 3, broken.calls)

	now = now.Add(time.Second)
	_, err := agg.FetchPrice(context.Background(), "BTC/USDT")
	require.NoError(t, err)
	assert.Equal(t, 3, broken.calls, "open circuit must follow the injected clock")

	now = now.Add(time.Minute)
	_, err = agg.FetchPrice(context.Background(), "BTC/USDT")
	require.NoError(t, err)
	assert.Equal(t, 4, broken.calls, "provider retried once the open window lapses")
}

func TestAggregator_CacheServesWithinTTLAndExpires(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	provider := newFake("only", 77)
	agg := NewAggregator([]Provider{provider},
		WithCacheTTL(45*time.Second), WithClock(func() time.Time { return now }))

	first, err := agg.FetchPrice(context.Background(), "SOL/USDT")
	require.NoError(t, err)

	now = now.Add(30 * time.Second)
	cached, err := agg.FetchPrice(context.Background(), "SOL/USDT")
	require.NoError(t, err)
	assert.Equal(t, first, cached)
	assert.Equal(t, 1, provider.calls)

	now = now.Add(20 * time.Second)
	_, err = agg.FetchPrice(context.Background(), "SOL/USDT")
	require.NoError(t, err)
	assert.Equal(t, 2, provider.calls, "expired entry must trigger a new cascade")
}

func TestSplitSymbol(t *testing.T) {
	testCases := []struct {
		in          string
		base, quote string
	}{
		{in: "BTC/USDT", base: "BTC", quote: "USDT"},
		{in: "eth", base: "ETH", quote: "USDT"},
		{in: "EUR/USD", base: "EUR", quote: "USD"},
		{in: " sol/usdt ", base: "SOL", quote: "USDT"},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			base, quote := SplitSymbol(tc.in)
			assert.Equal(t, tc.base, base)
			assert.Equal(t, tc.quote, quote)
		})
	}
}
