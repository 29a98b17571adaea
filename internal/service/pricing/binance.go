package pricing

import (
	"context"
	"fmt"

	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"
)

var _ Provider = (*BinanceProvider)(nil)

// BinanceProvider is the first provider in the cascade. Spot ticker price
// only; 24h stats are not needed on the hot path.
type BinanceProvider struct {
	cli *binance.Client
}

func NewBinanceProvider(cli *binance.Client) *BinanceProvider {
	return &BinanceProvider{cli: cli}
}

func (p *BinanceProvider) Name() string {
	return "binance"
}

func (p *BinanceProvider) Fetch(ctx context.Context, base, quote string) (Quote, error) {
	prices, err := p.cli.NewListPricesService().Symbol(fmt.Sprintf("%s%s", base, quote)).Do(ctx)
	if err != nil {
		return Quote{}, err
	}
	if len(prices) == 0 {
		return Quote{}, fmt.Errorf("binance: no ticker for %s%s", base, quote)
	}
	price, err := decimal.NewFromString(prices[0].Price)
	if err != nil {
		return Quote{}, fmt.Errorf("binance: bad price %q: %w", prices[0].Price, err)
	}
	return Quote{
		Price:   price,
		High24h: price,
		Low24h:  price,
		Quote:   quote,
		Source:  "Binance",
	}, nil
}
