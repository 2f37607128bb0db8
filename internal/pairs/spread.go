package pairs

import (
	"pairwatch-go/internal/market"
	"pairwatch-go/internal/stats"
)

// BuildSpread returns a - beta*b on timestamps shared by both legs. An invalid estimate yields an empty spread.
func BuildSpread(a, b market.Series, est HedgeEstimate) market.Series {
	if !est.Valid {
		return market.Series{}
	}
	ts, xa, xb := stats.Align(a, b)
	out := make(market.Series, len(ts))
	for i := range ts {
		out[i] = market.Point{Ts: ts[i], Value: xa[i] - est.Beta*xb[i]}
	}
	return out
}

// SpreadZScore is the rolling z-score of the spread values.
func SpreadZScore(spread market.Series, window int) market.Series {
	return stats.ZScore(spread, window)
}
