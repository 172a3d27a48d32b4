package indicators

import "math"

// Series helpers. Undefined values are NaN and propagate like missing values
// in a rolling window: a window containing NaN yields NaN.

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// ema is an exponential moving average with alpha = 2/(span+1), seeded with
// the first value.
func ema(xs []float64, span int) []float64 {
	out := make([]float64, len(xs))
	if len(xs) == 0 {
		return out
	}
	alpha := 2.0 / float64(span+1)
	out[0] = xs[0]
	for i := 1; i < len(xs); i++ {
		out[i] = alpha*xs[i] + (1-alpha)*out[i-1]
	}
	return out
}

// diff returns xs[i]-xs[i-1], NaN at index 0.
func diff(xs []float64) []float64 {
	out := nanSeries(len(xs))
	for i := 1; i < len(xs); i++ {
		out[i] = xs[i] - xs[i-1]
	}
	return out
}

// rolling applies fn to every full window of size n.
func rolling(xs []float64, n int, fn func(window []float64) float64) []float64 {
	out := nanSeries(len(xs))
	for i := n - 1; i < len(xs); i++ {
		window := xs[i-n+1 : i+1]
		if hasNaN(window) {
			continue
		}
		out[i] = fn(window)
	}
	return out
}

func rollingMean(xs []float64, n int) []float64 {
	return rolling(xs, n, mean)
}

func rollingSum(xs []float64, n int) []float64 {
	return rolling(xs, n, sum)
}

// rollingStd is the population standard deviation of each window.
func rollingStd(xs []float64, n int) []float64 {
	return rolling(xs, n, func(w []float64) float64 {
		m := mean(w)
		ss := 0.0
		for _, v := range w {
			ss += (v - m) * (v - m)
		}
		return math.Sqrt(ss / float64(len(w)))
	})
}

func rollingMin(xs []float64, n int) []float64 {
	return rolling(xs, n, func(w []float64) float64 {
		m := w[0]
		for _, v := range w[1:] {
			m = math.Min(m, v)
		}
		return m
	})
}

func rollingMax(xs []float64, n int) []float64 {
	return rolling(xs, n, func(w []float64) float64 {
		m := w[0]
		for _, v := range w[1:] {
			m = math.Max(m, v)
		}
		return m
	})
}

func sum(xs []float64) float64 {
	s := 0.0
	for _, v := range xs {
		s += v
	}
	return s
}

func mean(xs []float64) float64 {
	return sum(xs) / float64(len(xs))
}

func hasNaN(xs []float64) bool {
	for _, v := range xs {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// nonZero maps 0 to NaN so a division by it is undefined.
func nonZero(v float64) float64 {
	if v == 0 {
		return math.NaN()
	}
	return v
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
