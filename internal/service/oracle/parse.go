package oracle

import (
	"regexp"

	"github.com/quantline/signal-engine/internal/entity"
	"github.com/shopspring/decimal"
)

var (
	bullishRe = regexp.MustCompile(`(?i)bullish`)
	bearishRe = regexp.MustCompile(`(?i)bearish`)

	entryRe = regexp.MustCompile(`(?i)Entry:\s*\$?([\d.]+)`)
	tpRes   = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Take Profit:\s*\$?([\d.]+)`),
		regexp.MustCompile(`(?i)Target \(TP\):\s*\$?([\d.]+)`),
	}
	slRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Stop Loss:\s*\$?([\d.]+)`),
		regexp.MustCompile(`(?i)Invalidation \(SL\):\s*\$?([\d.]+)`),
	}
)

// ParseBias extracts the directional keyword. The second return is false
// when the text is neutral (no keyword at all).
func ParseBias(text string) (entity.Bias, bool) {
	if bullishRe.MatchString(text) {
		return entity.BiasBullish, true
	}
	if bearishRe.MatchString(text) {
		return entity.BiasBearish, true
	}
	return "", false
}

// ExtractLevels pulls optional Entry/TP/SL numbers out of free text.
// Best effort only: anything missing or malformed comes back nil.
func ExtractLevels(text string) (entry, takeProfit, stopLoss *string) {
	entry = firstDecimal(text, entryRe)
	for _, re := range tpRes {
		if takeProfit = firstDecimal(text, re); takeProfit != nil {
			break
		}
	}
	for _, re := range slRes {
		if stopLoss = firstDecimal(text, re); stopLoss != nil {
			break
		}
	}
	return entry, takeProfit, stopLoss
}

func firstDecimal(text string, re *regexp.Regexp) *string {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return nil
	}
	if _, err := decimal.NewFromString(m[1]); err != nil {
		return nil
	}
	v := m[1]
	return &v
}
