// Package indicators computes the technical indicators and buy conditions
// the analyzer scores symbols with.
package indicators

import (
	"math"

	"biosonar/internal/models"
)

// Row is one candle with every indicator defined.
type Row struct {
	Close      float64
	Volume     float64
	EMA50      float64
	EMA200     float64
	RSI14      float64
	MACD       float64
	MACDSignal float64
	BBUpper    float64
	BBMid      float64
	BBLower    float64
	ADX14      float64
	OBV        float64
	StochK     float64
	StochD     float64
}

// Compute derives indicators for candles (ascending by date) and returns only
// the rows where all of them are defined.
func Compute(candles []models.Candle) []Row {
	n := len(candles)
	if n == 0 {
		return nil
	}

	high := make([]float64, n)
	low := make([]float64, n)
	closes := make([]float64, n)
	volume := make([]float64, n)
	for i, c := range candles {
		high[i], low[i], closes[i], volume[i] = c.High, c.Low, c.Close, c.Volume
	}

	ema50 := ema(closes, 50)
	ema200 := ema(closes, 200)
	rsi14 := RSI(closes, 14)
	macd, signal := MACD(closes, 12, 26, 9)
	upper, mid, lower := Bollinger(closes, 20, 2)
	adx14 := ADX(high, low, closes, 14)
	obv := OBV(closes, volume)
	k, d := Stochastic(high, low, closes, 14, 3)

	rows := make([]Row, 0, n)
	for i := 0; i < n; i++ {
		row := Row{
			Close:      closes[i],
			Volume:     volume[i],
			EMA50:      ema50[i],
			EMA200:     ema200[i],
			RSI14:      rsi14[i],
			MACD:       macd[i],
			MACDSignal: signal[i],
			BBUpper:    upper[i],
			BBMid:      mid[i],
			BBLower:    lower[i],
			ADX14:      adx14[i],
			OBV:        obv[i],
			StochK:     k[i],
			StochD:     d[i],
		}
		if row.defined() {
			rows = append(rows, row)
		}
	}
	return rows
}

func (r Row) defined() bool {
	return !hasNaN([]float64{
		r.Close, r.Volume, r.EMA50, r.EMA200, r.RSI14, r.MACD, r.MACDSignal,
		r.BBUpper, r.BBMid, r.BBLower, r.ADX14, r.OBV, r.StochK, r.StochD,
	})
}

// RSI uses simple rolling means of gains and losses. A window without
// losses has no defined RSI.
func RSI(closes []float64, window int) []float64 {
	delta := diff(closes)
	gain := make([]float64, len(delta))
	loss := make([]float64, len(delta))
	for i, v := range delta {
		if v > 0 {
			gain[i] = v
		}
		if v < 0 {
			loss[i] = -v
		}
	}

	up := rollingMean(gain, window)
	down := rollingMean(loss, window)
	out := make([]float64, len(closes))
	for i := range out {
		rs := up[i] / nonZero(down[i])
		out[i] = 100 - 100/(1+rs)
	}
	return out
}

// MACD returns the MACD line and its signal line.
func MACD(closes []float64, fast, slow, signal int) ([]float64, []float64) {
	fastEMA := ema(closes, fast)
	slowEMA := ema(closes, slow)
	line := make([]float64, len(closes))
	for i := range line {
		line[i] = fastEMA[i] - slowEMA[i]
	}
	return line, ema(line, signal)
}

// Bollinger returns upper, middle and lower bands.
func Bollinger(closes []float64, window int, numStd float64) ([]float64, []float64, []float64) {
	mid := rollingMean(closes, window)
	std := rollingStd(closes, window)
	upper := make([]float64, len(closes))
	lower := make([]float64, len(closes))
	for i := range closes {
		upper[i] = mid[i] + numStd*std[i]
		lower[i] = mid[i] - numStd*std[i]
	}
	return upper, mid, lower
}

// ADX is the rolling mean of DX, with ATR as a rolling mean of true range.
func ADX(high, low, closes []float64, window int) []float64 {
	n := len(closes)
	tr := make([]float64, n)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 0; i < n; i++ {
		tr[i] = high[i] - low[i]
		if i == 0 {
			continue
		}
		prev := closes[i-1]
		tr[i] = math.Max(tr[i], math.Max(math.Abs(high[i]-prev), math.Abs(low[i]-prev)))

		up := high[i] - high[i-1]
		down := low[i-1] - low[i]
		if up > down && up > 0 {
			plusDM[i] = up
		}
		// Compared against the already filtered +DM.
		if down > plusDM[i] && down > 0 {
			minusDM[i] = down
		}
	}

	atr := rollingMean(tr, window)
	plusSum := rollingSum(plusDM, window)
	minusSum := rollingSum(minusDM, window)

	dx := make([]float64, n)
	for i := range dx {
		plusDI := 100 * plusSum[i] / atr[i]
		minusDI := 100 * minusSum[i] / atr[i]
		dx[i] = math.Abs(plusDI-minusDI) / nonZero(plusDI+minusDI) * 100
	}
	return rollingMean(dx, window)
}

// OBV is on-balance volume. Missing volume counts as zero.
func OBV(closes, volume []float64) []float64 {
	delta := diff(closes)
	out := make([]float64, len(closes))
	total := 0.0
	for i := range closes {
		d := delta[i]
		if math.IsNaN(d) {
			d = 0
		}
		step := sign(d) * volume[i]
		if math.IsNaN(step) {
			step = 0
		}
		total += step
		out[i] = total
	}
	return out
}

// Stochastic returns %K over kWindow and %D as its dWindow mean.
func Stochastic(high, low, closes []float64, kWindow, dWindow int) ([]float64, []float64) {
	lowest := rollingMin(low, kWindow)
	highest := rollingMax(high, kWindow)
	k := make([]float64, len(closes))
	for i := range k {
		k[i] = 100 * (closes[i] - lowest[i]) / nonZero(highest[i]-lowest[i])
	}
	return k, rollingMean(k, dWindow)
}
