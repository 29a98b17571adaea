package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrNotFound means every provider was skipped or failed; callers treat the
// symbol as unpriceable for now.
var ErrNotFound = errors.New("pricing: symbol not found on any provider")

// Quote is one provider's answer for a trading pair.
type Quote struct {
	Price     decimal.Decimal
	Change24h float64
	High24h   decimal.Decimal
	Low24h    decimal.Decimal
	Volume24h float64
	Quote     string
	Source    string
}

// Provider fetches a quote for base/quote from one upstream.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, base, quote string) (Quote, error)
}

var forexBases = []string{"EUR", "GBP", "JPY", "AUD", "CAD", "CHF", "NZD"}

func isForexBase(base string) bool {
	for _, b := range forexBases {
		if b == base {
			return true
		}
	}
	return false
}

// SplitSymbol normalizes a pair string to upper-case base and quote.
// The quote defaults to USDT when absent.
func SplitSymbol(symbol string) (string, string) {
	parts := strings.SplitN(strings.ToUpper(strings.TrimSpace(symbol)), "/", 2)
	base := parts[0]
	quote := "USDT"
	if len(parts) == 2 && parts[1] != "" {
		quote = parts[1]
	}
	return base, quote
}

func cacheKey(base, quote string) string {
	return fmt.Sprintf("%s/%s", base, quote)
}
