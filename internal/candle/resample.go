package candle

import (
	"math"
	"sort"

	"pairwatch-go/internal/market"
)

// Resample assigns ticks to [start, start+d) buckets and emits one candle per non-empty bucket, ascending.
// Input that is not already time-ordered is copied and stably sorted first, so ties keep arrival order.
func Resample(ticks []market.Tick, iv Interval) []market.Candle {
	if len(ticks) == 0 || iv.Duration <= 0 {
		return []market.Candle{}
	}
	if !sort.SliceIsSorted(ticks, func(i, j int) bool { return ticks[i].Ts.Before(ticks[j].Ts) }) {
		sorted := make([]market.Tick, len(ticks))
		copy(sorted, ticks)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Ts.Before(sorted[j].Ts) })
		ticks = sorted
	}

	out := make([]market.Candle, 0, 16)
	var cur *market.Candle
	for _, tk := range ticks {
		if math.IsNaN(tk.Price) {
			continue
		}
		start := iv.BucketStart(tk.Ts)
		if cur == nil || !cur.Start.Equal(start) {
			out = append(out, market.Candle{
				Symbol: tk.Symbol,
				Start:  start,
				Open:   tk.Price,
				High:   tk.Price,
				Low:    tk.Price,
			})
			cur = &out[len(out)-1]
		}
		if tk.Price > cur.High {
			cur.High = tk.Price
		}
		if tk.Price < cur.Low {
			cur.Low = tk.Price
		}
		cur.Close = tk.Price
		cur.Volume += tk.Qty
		cur.Trades++
	}
	return out
}

// ResampleNamed looks up the interval by name and resamples.
func ResampleNamed(ticks []market.Tick, name string) ([]market.Candle, error) {
	iv, err := GetInterval(name)
	if err != nil {
		return nil, err
	}
	return Resample(ticks, iv), nil
}
