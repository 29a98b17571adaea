package indicator

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/quantline/signal-engine/internal/service/pricing"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

var _ KlineSource = (*YahooKlineSource)(nil)

// YahooKlineSource serves forex symbols, which have no Binance market,
// from the Yahoo Finance chart API.
type YahooKlineSource struct {
	cli *http.Client
}

func NewYahooKlineSource(cli *http.Client) *YahooKlineSource {
	return &YahooKlineSource{cli: cli}
}

func (s *YahooKlineSource) RecentKlines(ctx context.Context, symbol string, limit int) ([]Kline, error) {
	base, quote := pricing.SplitSymbol(symbol)
	u := fmt.Sprintf("https://query1.finance.yahoo.com/v8/finance/chart/%s%s=X?interval=1h&range=1mo", base, quote)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	resp, err := s.cli.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("yahoo chart: unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	result := gjson.GetBytes(body, "chart.result.0")
	if !result.Exists() {
		return nil, fmt.Errorf("yahoo chart: empty result for %s/%s", base, quote)
	}
	timestamps := result.Get("timestamp").Array()
	bars := result.Get("indicators.quote.0")
	opens := bars.Get("open").Array()
	highs := bars.Get("high").Array()
	lows := bars.Get("low").Array()
	closes := bars.Get("close").Array()
	volumes := bars.Get("volume").Array()

	kls := make([]Kline, 0, len(timestamps))
	for i := range timestamps {
		if i >= len(opens) || i >= len(highs) || i >= len(lows) || i >= len(closes) {
			break
		}
		// Yahoo pads open hours with nulls; drop incomplete bars.
		if closes[i].Type == gjson.Null || opens[i].Type == gjson.Null {
			continue
		}
		var volume float64
		if i < len(volumes) {
			volume = volumes[i].Float()
		}
		openTime := time.Unix(timestamps[i].Int(), 0).UTC()
		kls = append(kls, Kline{
			OpenTime:  openTime,
			CloseTime: openTime.Add(time.Hour),
			Open:      decimal.NewFromFloat(opens[i].Float()),
			High:      decimal.NewFromFloat(highs[i].Float()),
			Low:       decimal.NewFromFloat(lows[i].Float()),
			Close:     decimal.NewFromFloat(closes[i].Float()),
			Volume:    decimal.NewFromFloat(volume),
		})
	}
	if len(kls) > limit {
		kls = kls[len(kls)-limit:]
	}
	return kls, nil
}
