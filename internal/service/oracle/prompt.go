package oracle

import (
	"fmt"
	"strings"

	"github.com/quantline/signal-engine/internal/entity"
	"github.com/quantline/signal-engine/internal/service/indicator"
)

const scanSystemPrompt = `ROLE: Institutional market strategist.

Identify high-confluence setups from the supplied indicator data. Analyze
structure, momentum, volatility and fair value. Open your answer with the
single word BULLISH or BEARISH when a setup exists, or NEUTRAL when it does
not.

When a setup exists, include exact levels on their own lines:
Entry: <price>
Take Profit: <price>
Stop Loss: <price>

Rules:
- Respond NEUTRAL unless at least 6 confluence factors align.
- Stop Loss must sit at structural invalidation, not an arbitrary distance.
- Risk/Reward must be at least 1:3.
Then give 4-6 lines of reasoning grounded in the indicator data provided.`

const updateSystemPrompt = `ROLE: Institutional market analyst. Provide a brief
two-sentence position update in a professional register. On a structural
shift, suggest a concrete adjustment (move stop to breakeven, reduce, hold).`

func scanUserPrompt(symbol string, market entity.Market, price, sentiment string, snap indicator.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze %s (%s).\nCurrent Price: %s.\nMarket Sentiment: %s.\n\nINDICATOR DATA:\n%s\n", symbol, market, price, sentiment, renderSnapshot(snap))
	b.WriteString("\nUse the indicator data above to justify any bias you state.")
	return b.String()
}

func updateUserPrompt(symbol, status, price, entry string) string {
	return fmt.Sprintf("Update for %s at status %q. Current price %s vs entry %s.", symbol, status, price, entry)
}

func renderSnapshot(snap indicator.Snapshot) string {
	side := func(above bool) string {
		if above {
			return "above"
		}
		return "below"
	}
	lines := []string{
		fmt.Sprintf("EMA9: price %s", side(snap.PriceAboveEMA9)),
		fmt.Sprintf("EMA21: price %s", side(snap.PriceAboveEMA21)),
		fmt.Sprintf("EMA cross forming: %v", snap.EMACrossForming),
		fmt.Sprintf("RSI: %.1f", snap.RSI),
		fmt.Sprintf("MACD: bullish=%v, histogram rising=%v, aligned=%v", snap.MACDBullish, snap.MACDHistRising, snap.MACDAligned),
		fmt.Sprintf("Bollinger: position=%s, squeeze=%v", snap.BandPosition, snap.Squeeze),
		fmt.Sprintf("VWAP: price %s, aligned=%v", side(snap.AboveVWAP), snap.VWAPAligned),
		fmt.Sprintf("Ichimoku: price %s cloud, future bullish=%v, aligned=%v", side(snap.AboveCloud), snap.FutureCloudBullish, snap.CloudAligned),
		fmt.Sprintf("Candlestick: %s", snap.Pattern),
	}
	return strings.Join(lines, "\n")
}
