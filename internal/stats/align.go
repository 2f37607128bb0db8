package stats

import (
	"time"

	"pairwatch-go/internal/market"
)

// Align inner-joins two series on timestamp, keeping a's order. Points present in only one series are dropped.
// If b repeats a timestamp its last value wins.
func Align(a, b market.Series) ([]time.Time, []float64, []float64) {
	lookup := make(map[int64]float64, len(b))
	for _, p := range b {
		lookup[p.Ts.UnixNano()] = p.Value
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	ts := make([]time.Time, 0, n)
	xa := make([]float64, 0, n)
	xb := make([]float64, 0, n)
	for _, p := range a {
		v, ok := lookup[p.Ts.UnixNano()]
		if !ok {
			continue
		}
		ts = append(ts, p.Ts)
		xa = append(xa, p.Value)
		xb = append(xb, v)
	}
	return ts, xa, xb
}
