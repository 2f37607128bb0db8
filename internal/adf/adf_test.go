package adf

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pairwatch-go/internal/market"
)

func ornsteinUhlenbeck(rng *rand.Rand, n int, phi float64) []float64 {
	out := make([]float64, n)
	for i := 1; i < n; i++ {
		out[i] = phi*out[i-1] + rng.NormFloat64()
	}
	return out
}

func randomWalk(rng *rand.Rand, n int) []float64 {
	out := make([]float64, n)
	out[0] = 100
	for i := 1; i < n; i++ {
		out[i] = out[i-1] + rng.NormFloat64()
	}
	return out
}

func TestStationaryProcessDetected(t *testing.T) {
	hits := 0
	for seed := int64(1); seed <= 20; seed++ {
		res := TestValues(ornsteinUhlenbeck(rand.New(rand.NewSource(seed)), 300, 0.5), 20)
		require.True(t, res.Valid(), "seed %d", seed)
		if res.Stationary {
			hits++
		}
	}
	assert.GreaterOrEqual(t, hits, 18)
}

func TestRandomWalkNotStationary(t *testing.T) {
	hits := 0
	for seed := int64(1); seed <= 20; seed++ {
		res := TestValues(randomWalk(rand.New(rand.NewSource(seed)), 300), 20)
		require.True(t, res.Valid(), "seed %d", seed)
		if res.Stationary {
			hits++
		}
	}
	assert.LessOrEqual(t, hits, 5)
}

func TestInsufficientData(t *testing.T) {
	values := make([]float64, 25)
	for i := range values {
		values[i] = float64(i)
		if i%4 == 0 {
			values[i] = math.NaN()
		}
	}
	res := TestValues(values, 20)
	assert.Equal(t, OutcomeInsufficientData, res.Outcome)
	assert.False(t, res.Valid())
	assert.False(t, res.Stationary)
	assert.Equal(t, 18, res.NObs)
	assert.True(t, math.IsNaN(res.PValue))
}

func TestConstantSeriesIsDegenerate(t *testing.T) {
	values := make([]float64, 50)
	for i := range values {
		values[i] = 3
	}
	res := TestValues(values, 20)
	assert.Equal(t, OutcomeDegenerate, res.Outcome)
	assert.False(t, res.Stationary)
}

func TestSeriesWrapperDropsNaN(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	vals := ornsteinUhlenbeck(rng, 120, 0.2)
	s := make(market.Series, 0, 130)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		s = append(s, market.Point{Ts: base.Add(time.Duration(i) * time.Minute), Value: math.NaN()})
	}
	for i, v := range vals {
		s = append(s, market.Point{Ts: base.Add(time.Duration(10+i) * time.Minute), Value: v})
	}
	res := Test(s, 20)
	require.True(t, res.Valid())
	assert.Less(t, res.Statistic, res.CriticalValues.FivePct)
	assert.True(t, res.Stationary)
	assert.GreaterOrEqual(t, res.UsedLag, 0)
	assert.Less(t, res.NObs, 120)
}

func TestPValueSurface(t *testing.T) {
	assert.InDelta(t, 0.05, pValue(-2.86154), 0.002)
	assert.InDelta(t, 0.01, pValue(-3.43035), 0.002)
	assert.Equal(t, 1.0, pValue(3))
	assert.Equal(t, 0.0, pValue(-20))
	prev := 0.0
	for s := -6.0; s <= 2.0; s += 0.25 {
		p := pValue(s)
		assert.GreaterOrEqual(t, p, prev, "p-value must increase with the statistic at %v", s)
		prev = p
	}
}

func TestCriticalValues(t *testing.T) {
	asym := criticalValues(1 << 30)
	assert.InDelta(t, -3.43035, asym.OnePct, 1e-6)
	assert.InDelta(t, -2.86154, asym.FivePct, 1e-6)
	assert.InDelta(t, -2.56677, asym.TenPct, 1e-6)

	small := criticalValues(50)
	assert.Less(t, small.OnePct, small.FivePct)
	assert.Less(t, small.FivePct, small.TenPct)
	assert.Less(t, small.OnePct, asym.OnePct)
}
