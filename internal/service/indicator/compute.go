package indicator

import (
	"math"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/trend"
)

// MinKlines is what Compute needs: 52 bars for the Ichimoku baseline plus
// warmup for the 26-period EMA inside MACD.
const MinKlines = 60

const (
	bollingerPeriod = 20
	vwapPeriod      = 20
	tenkanPeriod    = 9
	kijunPeriod     = 26
	senkouBPeriod   = 52

	// bands tighter than 2% of the middle band count as a squeeze
	squeezeBandwidth = 0.02
	// ema9/ema21 within 0.1% of each other counts as a forming cross
	crossBandwidth = 0.001
)

// Compute derives a Snapshot from kline history. Pure: no I/O, no clock.
func Compute(klines []Kline) (Snapshot, error) {
	if len(klines) < MinKlines {
		return Snapshot{}, ErrInsufficientHistory
	}

	closes := make([]float64, len(klines))
	for i, k := range klines {
		closes[i], _ = k.Close.Float64()
	}
	price := closes[len(closes)-1]

	ema9 := lastValue(trend.NewEmaWithPeriod[float64](9), closes)
	ema21 := lastValue(trend.NewEmaWithPeriod[float64](21), closes)

	rsiValues := helper.ChanToSlice(momentum.NewRsiWithPeriod[float64](14).Compute(helper.SliceToChan(closes)))
	rsi := rsiValues[len(rsiValues)-1]

	// both channels feed off one duplicated stream, so they must be
	// drained in lockstep
	macdLine, signalLine := trend.NewMacdWithPeriod[float64](12, 26, 9).Compute(helper.SliceToChan(closes))
	var hist, prevHist float64
	var macdBullish, histRising bool
	first := true
	for m := range macdLine {
		sv, ok := <-signalLine
		if !ok {
			break
		}
		prevHist, hist = hist, m-sv
		if first {
			prevHist = hist
			first = false
		}
		macdBullish = m > sv
		histRising = hist > prevHist
	}
	helper.Drain(signalLine)

	priceAboveEMA9 := price > ema9
	priceAboveEMA21 := price > ema21

	lower, middle, upper := bollinger(closes)
	vwap := typicalVWAP(klines)
	aboveVWAP := price > vwap

	aboveCloud, futureBullish := ichimoku(klines)

	snap := Snapshot{
		PriceAboveEMA9:  priceAboveEMA9,
		PriceAboveEMA21: priceAboveEMA21,
		EMACrossForming: ema21 != 0 && math.Abs(ema9-ema21)/math.Abs(ema21) < crossBandwidth,

		RSI: rsi,

		MACDBullish:    macdBullish,
		MACDHistRising: histRising,
		MACDAligned:    macdBullish == priceAboveEMA9,

		BandPosition: bandPosition(price, lower, upper),
		Squeeze:      middle != 0 && (upper-lower)/middle < squeezeBandwidth,

		AboveVWAP:   aboveVWAP,
		VWAPAligned: aboveVWAP == priceAboveEMA9,

		AboveCloud:         aboveCloud,
		FutureCloudBullish: futureBullish,
		CloudAligned:       aboveCloud == futureBullish,

		Pattern: classifyPattern(klines),
	}
	return snap, nil
}

func lastValue(ind *trend.Ema[float64], values []float64) float64 {
	out := helper.ChanToSlice(ind.Compute(helper.SliceToChan(values)))
	return out[len(out)-1]
}

func bollinger(closes []float64) (lower, middle, upper float64) {
	window := closes[len(closes)-bollingerPeriod:]
	for _, v := range window {
		middle += v
	}
	middle /= float64(len(window))

	var variance float64
	for _, v := range window {
		variance += (v - middle) * (v - middle)
	}
	std := math.Sqrt(variance / float64(len(window)))
	return middle - 2*std, middle, middle + 2*std
}

func bandPosition(price, lower, upper float64) BandPosition {
	width := upper - lower
	if width <= 0 {
		return BandMiddle
	}
	switch pos := (price - lower) / width; {
	case pos <= 0.2:
		return BandLower
	case pos >= 0.8:
		return BandUpper
	default:
		return BandMiddle
	}
}

func typicalVWAP(klines []Kline) float64 {
	window := klines[len(klines)-vwapPeriod:]
	var pv, vol float64
	for _, k := range window {
		h, _ := k.High.Float64()
		l, _ := k.Low.Float64()
		c, _ := k.Close.Float64()
		v, _ := k.Volume.Float64()
		pv += (h + l + c) / 3 * v
		vol += v
	}
	if vol == 0 {
		c, _ := window[len(window)-1].Close.Float64()
		return c
	}
	return pv / vol
}

func midRange(klines []Kline, period int) float64 {
	window := klines[len(klines)-period:]
	hi, _ := window[0].High.Float64()
	lo, _ := window[0].Low.Float64()
	for _, k := range window[1:] {
		h, _ := k.High.Float64()
		l, _ := k.Low.Float64()
		hi = math.Max(hi, h)
		lo = math.Min(lo, l)
	}
	return (hi + lo) / 2
}

func ichimoku(klines []Kline) (aboveCloud, futureBullish bool) {
	tenkan := midRange(klines, tenkanPeriod)
	kijun := midRange(klines, kijunPeriod)
	senkouA := (tenkan + kijun) / 2
	senkouB := midRange(klines, senkouBPeriod)

	price, _ := klines[len(klines)-1].Close.Float64()
	return price > math.Max(senkouA, senkouB), senkouA > senkouB
}

func classifyPattern(klines []Kline) CandlePattern {
	prev := klines[len(klines)-2]
	cur := klines[len(klines)-1]

	open, _ := cur.Open.Float64()
	closeP, _ := cur.Close.Float64()
	high, _ := cur.High.Float64()
	low, _ := cur.Low.Float64()

	body := math.Abs(closeP - open)
	upperWick := high - math.Max(open, closeP)
	lowerWick := math.Min(open, closeP) - low

	prevOpen, _ := prev.Open.Float64()
	prevClose, _ := prev.Close.Float64()

	bullishEngulfing := prevClose < prevOpen && closeP > open &&
		closeP >= prevOpen && open <= prevClose
	bearishEngulfing := prevClose > prevOpen && closeP < open &&
		closeP <= prevOpen && open >= prevClose

	switch {
	case bullishEngulfing:
		return PatternBullishReversal
	case bearishEngulfing:
		return PatternBearishReversal
	case body > 0 && lowerWick > 2*body && upperWick < body:
		// hammer
		return PatternBullishReversal
	case body > 0 && upperWick > 2*body && lowerWick < body:
		// shooting star
		return PatternBearishReversal
	default:
		return PatternIndecision
	}
}
