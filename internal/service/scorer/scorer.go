// Package scorer gates signal creation by counting how many confirmation
// factors agree with a proposed bias. Scoring is deterministic and
// side-effect free: the same snapshot and bias always yield the same result.
package scorer

import (
	"github.com/quantline/signal-engine/internal/entity"
	"github.com/quantline/signal-engine/internal/service/indicator"
)

type Result struct {
	Count   int
	Factors []string
}

type factor struct {
	label string
	match func(snap indicator.Snapshot, bias entity.Bias) bool
}

// The factor list is fixed and ordered only for reproducible labels; the
// predicates are independent, so order never changes the count.
var factors = []factor{
	{"EMA 9 aligned", func(s indicator.Snapshot, b entity.Bias) bool {
		return s.PriceAboveEMA9 == (b == entity.BiasBullish)
	}},
	{"EMA 21 aligned", func(s indicator.Snapshot, b entity.Bias) bool {
		return s.PriceAboveEMA21 == (b == entity.BiasBullish)
	}},
	{"RSI confirmation", func(s indicator.Snapshot, b entity.Bias) bool {
		if b == entity.BiasBullish {
			return s.RSI > 35 && s.RSI < 80
		}
		return s.RSI > 20 && s.RSI < 65
	}},
	{"MACD momentum", func(s indicator.Snapshot, b entity.Bias) bool {
		return s.MACDBullish == (b == entity.BiasBullish)
	}},
	{"MACD aligned with trend", func(s indicator.Snapshot, b entity.Bias) bool {
		return s.MACDAligned
	}},
	{"VWAP institutional bias", func(s indicator.Snapshot, b entity.Bias) bool {
		return s.AboveVWAP == (b == entity.BiasBullish)
	}},
	{"VWAP aligned with price", func(s indicator.Snapshot, b entity.Bias) bool {
		return s.VWAPAligned
	}},
	{"Ichimoku cloud aligned", func(s indicator.Snapshot, b entity.Bias) bool {
		return s.AboveCloud == (b == entity.BiasBullish)
	}},
	{"Ichimoku continuation", func(s indicator.Snapshot, b entity.Bias) bool {
		return s.CloudAligned
	}},
	{"Bollinger band support", func(s indicator.Snapshot, b entity.Bias) bool {
		if b == entity.BiasBullish {
			return s.BandPosition == indicator.BandLower
		}
		return s.BandPosition == indicator.BandUpper
	}},
	{"volatility squeeze", func(s indicator.Snapshot, b entity.Bias) bool {
		return s.Squeeze
	}},
	{"candlestick pattern", func(s indicator.Snapshot, b entity.Bias) bool {
		if b == entity.BiasBullish {
			return s.Pattern == indicator.PatternBullishReversal
		}
		return s.Pattern == indicator.PatternBearishReversal
	}},
}

// NumFactors is the size of the fixed predicate list.
var NumFactors = len(factors)

func Score(snap indicator.Snapshot, bias entity.Bias) Result {
	res := Result{}
	for _, f := range factors {
		if f.match(snap, bias) {
			res.Count++
			res.Factors = append(res.Factors, f.label)
		}
	}
	return res
}
