package signal

import (
	"fmt"
	"strings"

	"github.com/quantline/signal-engine/internal/entity"
	"github.com/shopspring/decimal"
)

type updateKind int

const (
	kindNone updateKind = iota
	kindTakeProfit
	kindStopLoss
	kindBigMove
	kindHeartbeat
)

func (k updateKind) String() string {
	switch k {
	case kindTakeProfit:
		return "take-profit"
	case kindStopLoss:
		return "stop-loss"
	case kindBigMove:
		return "big-move"
	case kindHeartbeat:
		return "heartbeat"
	default:
		return "none"
	}
}

func (k updateKind) terminal() bool {
	return k == kindTakeProfit || k == kindStopLoss
}

// formatPrice renders a price at the precision its market trades at.
func formatPrice(market entity.Market, d decimal.Decimal) string {
	if market == entity.MarketForex {
		return d.StringFixed(5)
	}
	return d.StringFixed(2)
}

func biasTag(bias entity.Bias) string {
	if bias == entity.BiasBullish {
		return "🟢 LONG"
	}
	return "🔴 SHORT"
}

// announceText composes the HTML announcement for a freshly created signal.
func announceText(sig entity.Signal, price decimal.Decimal, factors []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>%s</b> — %s\n", biasTag(sig.Bias), sig.Symbol, strings.ToUpper(string(sig.Bias)))
	fmt.Fprintf(&b, "Price: <code>%s</code>\n", formatPrice(sig.Market, price))
	if sig.EntryPrice != nil {
		fmt.Fprintf(&b, "Entry: <code>%s</code>\n", *sig.EntryPrice)
	}
	if sig.TakeProfit != nil {
		fmt.Fprintf(&b, "Take Profit: <code>%s</code>\n", *sig.TakeProfit)
	}
	if sig.StopLoss != nil {
		fmt.Fprintf(&b, "Stop Loss: <code>%s</code>\n", *sig.StopLoss)
	}
	if len(factors) > 0 {
		fmt.Fprintf(&b, "\nConfluence (%d): %s", len(factors), strings.Join(factors, ", "))
	}
	return b.String()
}

// updateText composes the HTML status update the monitor posts.
func updateText(kind updateKind, sig entity.Signal, price decimal.Decimal, commentary string) string {
	var b strings.Builder
	switch kind {
	case kindTakeProfit:
		fmt.Fprintf(&b, "✅ <b>%s</b> take profit hit", sig.Symbol)
	case kindStopLoss:
		fmt.Fprintf(&b, "🛑 <b>%s</b> stop loss hit", sig.Symbol)
	case kindBigMove:
		fmt.Fprintf(&b, "⚡ <b>%s</b> structural move", sig.Symbol)
	default:
		fmt.Fprintf(&b, "ℹ️ <b>%s</b> still %s", sig.Symbol, strings.ToUpper(string(sig.Bias)))
	}
	fmt.Fprintf(&b, "\nPrice: <code>%s</code>", formatPrice(sig.Market, price))
	if sig.EntryPrice != nil {
		fmt.Fprintf(&b, " | Entry: <code>%s</code>", *sig.EntryPrice)
	}
	if commentary != "" {
		fmt.Fprintf(&b, "\n<i>%s</i>", commentary)
	}
	return b.String()
}
