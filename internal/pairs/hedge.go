// Package pairs estimates the hedge ratio between two legs and derives the spread series.
package pairs

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"pairwatch-go/internal/market"
	"pairwatch-go/internal/stats"
)

// DefaultMinPoints is the minimum number of paired observations for a regression.
const DefaultMinPoints = 20

// Reason explains why an estimate is invalid.
type Reason string

const (
	ReasonOK                Reason = ""
	ReasonInsufficientData  Reason = "insufficient_data"
	ReasonDegenerateRegress Reason = "degenerate_regression"
)

// HedgeEstimate is the OLS fit Y = Alpha + Beta*X. Callers must check Valid before using Beta.
type HedgeEstimate struct {
	Beta   float64
	Alpha  float64
	RSq    float64
	N      int
	Valid  bool
	Reason Reason
}

// Estimate inner-joins x and y on timestamp, drops undefined pairs, and regresses y on x with an intercept.
// minPoints <= 0 uses DefaultMinPoints.
func Estimate(x, y market.Series, minPoints int) HedgeEstimate {
	if minPoints <= 0 {
		minPoints = DefaultMinPoints
	}
	_, xs, ys := stats.Align(x, y)
	xv := make([]float64, 0, len(xs))
	yv := make([]float64, 0, len(ys))
	for i := range xs {
		if isFinite(xs[i]) && isFinite(ys[i]) {
			xv = append(xv, xs[i])
			yv = append(yv, ys[i])
		}
	}

	est := HedgeEstimate{N: len(xv), Beta: math.NaN(), Alpha: math.NaN(), RSq: math.NaN()}
	if len(xv) < minPoints || len(xv) < 2 {
		est.Reason = ReasonInsufficientData
		return est
	}
	if _, std := stat.MeanStdDev(xv, nil); !(std > 0) {
		est.Reason = ReasonDegenerateRegress
		return est
	}

	alpha, beta := stat.LinearRegression(xv, yv, nil, false)
	if !isFinite(alpha) || !isFinite(beta) {
		est.Reason = ReasonDegenerateRegress
		return est
	}
	est.Alpha, est.Beta, est.Valid = alpha, beta, true
	est.RSq = stat.RSquared(xv, yv, nil, alpha, beta)
	return est
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
