package signal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/samber/lo"
	"github.com/tidwall/gjson"
)

// Pegged tickers and BCH are never worth a directional signal.
var excludedTicker = regexp.MustCompile(`(?i)^(USDT|USDC|BUSD|DAI|TUSD|USDP|MIM|DOLA|CUSD|UST|FRAX|LUSD|OUSD|ALUSD|FEI|TRIBE|BCH)$`)

// fallbackCryptoSymbols is used when the top-volume lookup fails.
var fallbackCryptoSymbols = []string{
	"BTC", "ETH", "SOL", "BNB", "XRP",
	"ADA", "DOGE", "AVAX", "DOT", "LINK",
	"TON", "TRX", "MATIC", "LTC", "NEAR",
	"UNI", "ATOM", "APT", "ARB", "OP",
	"FIL", "INJ", "SUI", "AAVE", "RNDR",
}

// DefaultForexPairs is the fixed scannable forex universe.
var DefaultForexPairs = []string{
	"EUR/USD", "GBP/USD", "USD/JPY", "USD/CHF", "AUD/USD",
	"USD/CAD", "NZD/USD", "EUR/GBP", "EUR/JPY", "GBP/JPY",
	"AUD/JPY", "EUR/CHF", "CHF/JPY", "CAD/JPY", "EUR/AUD",
}

var _ Universe = (StaticUniverse)(nil)

// StaticUniverse serves a fixed symbol list.
type StaticUniverse []string

func (u StaticUniverse) Symbols(ctx context.Context) ([]string, error) {
	out := make([]string, len(u))
	copy(out, u)
	return out, nil
}

var _ Universe = (*CryptoCompareUniverse)(nil)

// CryptoCompareUniverse lists the current top-volume coins, falling back to
// a fixed set when the lookup fails so a provider outage never empties the
// scan cycle.
type CryptoCompareUniverse struct {
	cli    *http.Client
	apiKey string
	limit  int
}

func NewCryptoCompareUniverse(cli *http.Client, apiKey string, limit int) *CryptoCompareUniverse {
	if limit <= 0 {
		limit = 30
	}
	return &CryptoCompareUniverse{cli: cli, apiKey: apiKey, limit: limit}
}

func (u *CryptoCompareUniverse) Symbols(ctx context.Context) ([]string, error) {
	symbols, err := u.topByVolume(ctx)
	if err != nil {
		slog.Warn("top-volume lookup failed, using fallback universe", "error", err)
		return StaticUniverse(fallbackCryptoSymbols).Symbols(ctx)
	}
	return symbols, nil
}

func (u *CryptoCompareUniverse) topByVolume(ctx context.Context) ([]string, error) {
	rawURL := fmt.Sprintf("https://min-api.cryptocompare.com/data/top/totalvolfull?limit=%d&tsym=USD", u.limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if u.apiKey != "" {
		req.Header.Set("Authorization", "Apikey "+u.apiKey)
	}
	resp, err := u.cli.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, rawURL)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	names := gjson.GetBytes(body, "Data.#.CoinInfo.Name").Array()
	symbols := lo.FilterMap(names, func(r gjson.Result, _ int) (string, bool) {
		name := r.String()
		return name, name != ""
	})
	if len(symbols) == 0 {
		return nil, fmt.Errorf("empty top-volume response")
	}
	return symbols, nil
}

// filterDenylisted drops tickers the engine refuses to signal on.
func filterDenylisted(symbols []string) []string {
	return lo.Filter(symbols, func(s string, _ int) bool {
		base, _, _ := strings.Cut(s, "/")
		return !excludedTicker.MatchString(base)
	})
}
