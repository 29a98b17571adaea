package indicator

import (
	"context"
	"errors"
	"time"

	"github.com/quantline/signal-engine/internal/entity"
	"github.com/shopspring/decimal"
)

// ErrInsufficientHistory means the kline source could not supply enough
// bars; callers treat the symbol like an unpriceable one and skip it.
var ErrInsufficientHistory = errors.New("indicator: not enough kline history")

type Kline struct {
	OpenTime  time.Time
	CloseTime time.Time
	Open      decimal.Decimal
	Close     decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Volume    decimal.Decimal
}

type BandPosition string

const (
	BandLower  BandPosition = "lower"
	BandMiddle BandPosition = "middle"
	BandUpper  BandPosition = "upper"
)

type CandlePattern string

const (
	PatternBullishReversal CandlePattern = "bullish-reversal"
	PatternBearishReversal CandlePattern = "bearish-reversal"
	PatternIndecision      CandlePattern = "indecision"
)

// Snapshot is the feature vector the scorer and oracle consume. It is
// computed from kline history only, so identical inputs always produce the
// identical snapshot.
type Snapshot struct {
	PriceAboveEMA9  bool
	PriceAboveEMA21 bool
	EMACrossForming bool

	RSI float64

	MACDBullish    bool
	MACDHistRising bool
	MACDAligned    bool

	BandPosition BandPosition
	Squeeze      bool

	AboveVWAP   bool
	VWAPAligned bool

	AboveCloud         bool
	FutureCloudBullish bool
	CloudAligned       bool

	Pattern CandlePattern
}

type SnapshotProvider interface {
	Snapshot(ctx context.Context, symbol string, market entity.Market) (Snapshot, error)
}

// KlineSource supplies recent bars for one market's symbols.
type KlineSource interface {
	RecentKlines(ctx context.Context, symbol string, limit int) ([]Kline, error)
}
