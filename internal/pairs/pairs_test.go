package pairs

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pairwatch-go/internal/market"
)

var t0 = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func series(values ...float64) market.Series {
	out := make(market.Series, len(values))
	for i, v := range values {
		out[i] = market.Point{Ts: t0.Add(time.Duration(i) * time.Minute), Value: v}
	}
	return out
}

func TestEstimateExactLine(t *testing.T) {
	xs := make([]float64, 20)
	ys := make([]float64, 20)
	for i := range xs {
		xs[i] = float64(i + 1)
		ys[i] = 3 * xs[i]
	}
	est := Estimate(series(xs...), series(ys...), 20)
	require.True(t, est.Valid)
	assert.InDelta(t, 3.0, est.Beta, 1e-9)
	assert.InDelta(t, 0.0, est.Alpha, 1e-9)
	assert.InDelta(t, 1.0, est.RSq, 1e-9)
	assert.Equal(t, 20, est.N)
}

func TestEstimateTooFewPoints(t *testing.T) {
	xs := make([]float64, 19)
	for i := range xs {
		xs[i] = float64(i)
	}
	est := Estimate(series(xs...), series(xs...), 20)
	assert.False(t, est.Valid)
	assert.Equal(t, ReasonInsufficientData, est.Reason)
	assert.True(t, math.IsNaN(est.Beta))
}

func TestEstimateConstantX(t *testing.T) {
	xs := make([]float64, 30)
	ys := make([]float64, 30)
	for i := range xs {
		xs[i] = 4
		ys[i] = float64(i)
	}
	est := Estimate(series(xs...), series(ys...), 20)
	assert.False(t, est.Valid)
	assert.Equal(t, ReasonDegenerateRegress, est.Reason)
}

func TestEstimateDropsUndefinedAndUnmatched(t *testing.T) {
	xs := make([]float64, 25)
	ys := make([]float64, 25)
	for i := range xs {
		xs[i] = float64(i + 1)
		ys[i] = 2*xs[i] + 1
	}
	xs[3] = math.NaN()
	x := series(xs...)
	y := series(ys...)[:22]
	est := Estimate(x, y, 20)
	require.True(t, est.Valid)
	assert.Equal(t, 21, est.N)
	assert.InDelta(t, 2.0, est.Beta, 1e-9)
	assert.InDelta(t, 1.0, est.Alpha, 1e-9)
}

func TestEstimateConvergesAsNoiseShrinks(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for _, noise := range []float64{1, 0.1, 0.001} {
		xs := make([]float64, 200)
		ys := make([]float64, 200)
		for i := range xs {
			xs[i] = float64(i) / 10
			ys[i] = 2*xs[i] + rng.NormFloat64()*noise
		}
		est := Estimate(series(xs...), series(ys...), 20)
		require.True(t, est.Valid)
		// slope standard error is about noise/80 for this design
		assert.Less(t, math.Abs(est.Beta-2), noise/10, "noise %g", noise)
	}
}

func TestBuildSpread(t *testing.T) {
	a := series(10, 12, 14)
	b := series(1, 2, 3)
	spread := BuildSpread(a, b, HedgeEstimate{Beta: 2, Valid: true})
	require.Len(t, spread, 3)
	assert.Equal(t, []float64{8, 8, 8}, spread.Values())

	assert.Empty(t, BuildSpread(a, b, HedgeEstimate{Beta: 2}))
}

func TestBuildSpreadSharedTimestampsOnly(t *testing.T) {
	a := series(10, 12, 14, 16)
	b := market.Series{a[1], a[3]}
	b[0].Value, b[1].Value = 1, 2
	spread := BuildSpread(a, b, HedgeEstimate{Beta: 1, Valid: true})
	require.Len(t, spread, 2)
	assert.True(t, spread[0].Ts.Equal(a[1].Ts))
	assert.Equal(t, 11.0, spread[0].Value)
	assert.Equal(t, 14.0, spread[1].Value)
}

func TestSpreadZScoreMatchesRolling(t *testing.T) {
	spread := series(1, 2, 3, 4)
	z := SpreadZScore(spread, 3)
	assert.True(t, math.IsNaN(z[1].Value))
	assert.InDelta(t, 1.0, z[3].Value, 1e-12)
}
