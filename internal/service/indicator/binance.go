package indicator

import (
	"context"
	"fmt"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/quantline/signal-engine/internal/service/pricing"
	"github.com/shopspring/decimal"
)

var _ KlineSource = (*BinanceKlineSource)(nil)

// BinanceKlineSource serves crypto symbols from Binance spot 4h candles.
type BinanceKlineSource struct {
	cli      *binance.Client
	interval string
}

func NewBinanceKlineSource(cli *binance.Client) *BinanceKlineSource {
	return &BinanceKlineSource{
		cli:      cli,
		interval: "4h",
	}
}

func (s *BinanceKlineSource) RecentKlines(ctx context.Context, symbol string, limit int) ([]Kline, error) {
	base, quote := pricing.SplitSymbol(symbol)
	raw, err := s.cli.NewKlinesService().
		Symbol(fmt.Sprintf("%s%s", base, quote)).
		Interval(s.interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	return convertKlines(raw)
}

func convertKlines(raw []*binance.Kline) ([]Kline, error) {
	kls := make([]Kline, len(raw))
	for i, k := range raw {
		open, err := decimal.NewFromString(k.Open)
		if err != nil {
			return nil, fmt.Errorf("bad open %q: %w", k.Open, err)
		}
		closeP, err := decimal.NewFromString(k.Close)
		if err != nil {
			return nil, fmt.Errorf("bad close %q: %w", k.Close, err)
		}
		high, err := decimal.NewFromString(k.High)
		if err != nil {
			return nil, fmt.Errorf("bad high %q: %w", k.High, err)
		}
		low, err := decimal.NewFromString(k.Low)
		if err != nil {
			return nil, fmt.Errorf("bad low %q: %w", k.Low, err)
		}
		volume, err := decimal.NewFromString(k.Volume)
		if err != nil {
			return nil, fmt.Errorf("bad volume %q: %w", k.Volume, err)
		}
		kls[i] = Kline{
			OpenTime:  time.UnixMilli(k.OpenTime),
			CloseTime: time.UnixMilli(k.CloseTime),
			Open:      open,
			Close:     closeP,
			High:      high,
			Low:       low,
			Volume:    volume,
		}
	}
	return kls, nil
}
