package pricing

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// getJSON issues a GET bounded by ctx and returns the body for gjson parsing.
func getJSON(ctx context.Context, cli *http.Client, rawURL string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := cli.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, rawURL)
	}
	return io.ReadAll(resp.Body)
}

var _ Provider = (*CryptoCompareProvider)(nil)

type CryptoCompareProvider struct {
	cli *http.Client
}

func NewCryptoCompareProvider(cli *http.Client) *CryptoCompareProvider {
	return &CryptoCompareProvider{cli: cli}
}

func (p *CryptoCompareProvider) Name() string {
	return "cryptocompare"
}

func (p *CryptoCompareProvider) Fetch(ctx context.Context, base, quote string) (Quote, error) {
	u := fmt.Sprintf("https://min-api.cryptocompare.com/data/price?fsym=%s&tsyms=%s", base, quote)
	body, err := getJSON(ctx, p.cli, u, nil)
	if err != nil {
		return Quote{}, err
	}
	res := gjson.GetBytes(body, quote)
	if !res.Exists() || res.Float() <= 0 {
		return Quote{}, fmt.Errorf("cryptocompare: no %s price for %s", quote, base)
	}
	price := decimal.NewFromFloat(res.Float())
	return Quote{
		Price:   price,
		High24h: price,
		Low24h:  price,
		Quote:   quote,
		Source:  "CryptoCompare",
	}, nil
}

var _ Provider = (*YahooProvider)(nil)

type YahooProvider struct {
	cli *http.Client
}

func NewYahooProvider(cli *http.Client) *YahooProvider {
	return &YahooProvider{cli: cli}
}

func (p *YahooProvider) Name() string {
	return "yahoo"
}

// yahooSymbol maps forex pairs to the EURUSD=X convention and everything
// else to BASE-QUOTE.
func yahooSymbol(base, quote string) string {
	if isForexBase(base) {
		return fmt.Sprintf("%s%s=X", base, quote)
	}
	return fmt.Sprintf("%s-%s", base, quote)
}

func (p *YahooProvider) Fetch(ctx context.Context, base, quote string) (Quote, error) {
	u := fmt.Sprintf("https://query1.finance.yahoo.com/v8/finance/chart/%s?interval=1m&range=1d", yahooSymbol(base, quote))
	body, err := getJSON(ctx, p.cli, u, map[string]string{"User-Agent": "Mozilla/5.0"})
	if err != nil {
		return Quote{}, err
	}
	meta := gjson.GetBytes(body, "chart.result.0.meta")
	if !meta.Exists() {
		return Quote{}, fmt.Errorf("yahoo: empty chart result for %s/%s", base, quote)
	}
	price := meta.Get("regularMarketPrice").Float()
	if price <= 0 {
		return Quote{}, fmt.Errorf("yahoo: no market price for %s/%s", base, quote)
	}
	d := decimal.NewFromFloat(price)
	return Quote{
		Price:   d,
		High24h: d,
		Low24h:  d,
		Quote:   quote,
		Source:  "Yahoo Finance",
	}, nil
}

var _ Provider = (*CoinGeckoProvider)(nil)

type CoinGeckoProvider struct {
	cli *http.Client
}

func NewCoinGeckoProvider(cli *http.Client) *CoinGeckoProvider {
	return &CoinGeckoProvider{cli: cli}
}

func (p *CoinGeckoProvider) Name() string {
	return "coingecko"
}

func (p *CoinGeckoProvider) simplePrice(ctx context.Context, id string) (gjson.Result, error) {
	u := fmt.Sprintf("https://api.coingecko.com/api/v3/simple/price?ids=%s&vs_currencies=usd&include_24hr_vol=true&include_24hr_change=true", url.QueryEscape(id))
	body, err := getJSON(ctx, p.cli, u, nil)
	if err != nil {
		return gjson.Result{}, err
	}
	return gjson.GetBytes(body, id), nil
}

func (p *CoinGeckoProvider) Fetch(ctx context.Context, base, quote string) (Quote, error) {
	id := strings.ToLower(base)
	data, err := p.simplePrice(ctx, id)
	if err != nil {
		return Quote{}, err
	}
	if !data.Exists() {
		// The lower-cased base is often not the CoinGecko id; resolve via search.
		body, err := getJSON(ctx, p.cli, fmt.Sprintf("https://api.coingecko.com/api/v3/search?query=%s", url.QueryEscape(id)), nil)
		if err != nil {
			return Quote{}, err
		}
		coinID := gjson.GetBytes(body, "coins.0.id").String()
		if coinID == "" {
			return Quote{}, fmt.Errorf("coingecko: unknown coin %s", base)
		}
		if data, err = p.simplePrice(ctx, coinID); err != nil {
			return Quote{}, err
		}
	}
	usd := data.Get("usd").Float()
	if usd <= 0 {
		return Quote{}, fmt.Errorf("coingecko: no usd price for %s", base)
	}
	price := decimal.NewFromFloat(usd)
	spread := decimal.NewFromFloat(0.02)
	return Quote{
		Price:     price,
		Change24h: data.Get("usd_24h_change").Float(),
		High24h:   price.Add(price.Mul(spread)),
		Low24h:    price.Sub(price.Mul(spread)),
		Volume24h: data.Get("usd_24h_vol").Float(),
		Quote:     quote,
		Source:    "CoinGecko",
	}, nil
}

var _ Provider = (*DIAProvider)(nil)

type DIAProvider struct {
	cli *http.Client
}

func NewDIAProvider(cli *http.Client) *DIAProvider {
	return &DIAProvider{cli: cli}
}

func (p *DIAProvider) Name() string {
	return "dia"
}

func (p *DIAProvider) Fetch(ctx context.Context, base, quote string) (Quote, error) {
	body, err := getJSON(ctx, p.cli, fmt.Sprintf("https://api.diadata.org/v1/quotation/%s", base), nil)
	if err != nil {
		return Quote{}, err
	}
	raw := gjson.GetBytes(body, "Price").Float()
	if raw <= 0 {
		return Quote{}, fmt.Errorf("dia: no quotation for %s", base)
	}
	price := decimal.NewFromFloat(raw)
	spread := decimal.NewFromFloat(0.02)
	return Quote{
		Price:     price,
		Change24h: gjson.GetBytes(body, "PricePercentageChange24h").Float(),
		High24h:   price.Add(price.Mul(spread)),
		Low24h:    price.Sub(price.Mul(spread)),
		Volume24h: gjson.GetBytes(body, "Volume24h").Float(),
		Quote:     quote,
		Source:    "DIA",
	}, nil
}
