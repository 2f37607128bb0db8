// Package stats computes trailing-window statistics over candle-aligned series.
//
// Every function returns a fresh series of the same length as its (joined) input. Positions whose window is
// not yet full, or whose window is degenerate, hold NaN.
package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"pairwatch-go/internal/market"
)

// relTol treats a windowed std this small relative to the mean as zero.
const relTol = 1e-12

// Closes extracts the close column of candles keyed by bucket start.
func Closes(candles []market.Candle) market.Series {
	out := make(market.Series, len(candles))
	for i, c := range candles {
		out[i] = market.Point{Ts: c.Start, Value: c.Close}
	}
	return out
}

// DropNaN returns the points whose value is defined.
func DropNaN(s market.Series) market.Series {
	out := make(market.Series, 0, len(s))
	for _, p := range s {
		if !math.IsNaN(p.Value) {
			out = append(out, p)
		}
	}
	return out
}

// rolling applies fn to each full trailing window.
func rolling(s market.Series, window int, fn func(w []float64, last float64) float64) market.Series {
	out := make(market.Series, len(s))
	values := s.Values()
	for i, p := range s {
		out[i] = market.Point{Ts: p.Ts, Value: math.NaN()}
		if window <= 0 || i < window-1 {
			continue
		}
		w := values[i-window+1 : i+1]
		if hasNaN(w) {
			continue
		}
		out[i].Value = fn(w, values[i])
	}
	return out
}

// RollingMean is the trailing arithmetic mean.
func RollingMean(s market.Series, window int) market.Series {
	return rolling(s, window, func(w []float64, _ float64) float64 {
		return stat.Mean(w, nil)
	})
}

// RollingStd is the trailing sample (n-1) standard deviation.
func RollingStd(s market.Series, window int) market.Series {
	return rolling(s, window, func(w []float64, _ float64) float64 {
		_, std := stat.MeanStdDev(w, nil)
		return std
	})
}

// ZScore is (x - mean) / std over each trailing window, using the sample std.
func ZScore(s market.Series, window int) market.Series {
	return rolling(s, window, func(w []float64, last float64) float64 {
		mean, std := stat.MeanStdDev(w, nil)
		if degenerate(mean, std) {
			return math.NaN()
		}
		return (last - mean) / std
	})
}

// RollingCorrelation inner-joins a and b on timestamp and computes Pearson correlation per trailing window.
// When the joined length is below window the whole output is NaN.
func RollingCorrelation(a, b market.Series, window int) market.Series {
	ts, xa, xb := Align(a, b)
	out := make(market.Series, len(ts))
	for i := range ts {
		out[i] = market.Point{Ts: ts[i], Value: math.NaN()}
	}
	if window < 2 || len(ts) < window {
		return out
	}
	for i := window - 1; i < len(ts); i++ {
		wa := xa[i-window+1 : i+1]
		wb := xb[i-window+1 : i+1]
		if hasNaN(wa) || hasNaN(wb) {
			continue
		}
		ma, sa := stat.MeanStdDev(wa, nil)
		mb, sb := stat.MeanStdDev(wb, nil)
		if degenerate(ma, sa) || degenerate(mb, sb) {
			continue
		}
		r := stat.Correlation(wa, wb, nil)
		if math.IsNaN(r) || math.IsInf(r, 0) {
			continue
		}
		out[i].Value = clamp(r, -1, 1)
	}
	return out
}

func degenerate(mean, std float64) bool {
	if math.IsNaN(std) || std == 0 {
		return true
	}
	return std <= relTol*math.Abs(mean)
}

func hasNaN(xs []float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
