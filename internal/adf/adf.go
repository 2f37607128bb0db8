// Package adf implements the augmented Dickey-Fuller unit-root test with a constant term.
//
// Lag order is chosen by AIC between 0 and ceil(12*(n/100)^(1/4)), all candidates fitted on a common sample.
// P-values follow MacKinnon (1994) response surfaces and critical values MacKinnon (2010), N=1, constant only.
package adf

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"pairwatch-go/internal/market"
)

// DefaultMinPoints is the fewest defined observations the test accepts.
const DefaultMinPoints = 20

// Outcome classifies a test run.
type Outcome string

const (
	OutcomeOK               Outcome = "ok"
	OutcomeInsufficientData Outcome = "insufficient_data"
	OutcomeDegenerate       Outcome = "degenerate"
)

// CriticalValues are the test-statistic thresholds at standard significance levels.
type CriticalValues struct {
	OnePct  float64 `json:"1%"`
	FivePct float64 `json:"5%"`
	TenPct  float64 `json:"10%"`
}

// Result is the outcome of Test. Statistic and PValue are NaN unless Outcome is OutcomeOK.
type Result struct {
	Outcome        Outcome
	Statistic      float64
	PValue         float64
	CriticalValues CriticalValues
	UsedLag        int
	NObs           int
	AIC            float64
	Stationary     bool
}

// Valid reports whether the test ran.
func (r Result) Valid() bool { return r.Outcome == OutcomeOK }

var errDegenerate = errors.New("degenerate regression")

// Test drops undefined points from s and runs the test on the remaining values.
func Test(s market.Series, minPoints int) Result {
	return TestValues(s.Values(), minPoints)
}

// TestValues runs the test on raw observations. minPoints <= 0 uses DefaultMinPoints.
func TestValues(values []float64, minPoints int) Result {
	if minPoints <= 0 {
		minPoints = DefaultMinPoints
	}
	x := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			x = append(x, v)
		}
	}
	res := Result{Statistic: math.NaN(), PValue: math.NaN(), AIC: math.NaN(), NObs: len(x)}
	if len(x) < minPoints {
		res.Outcome = OutcomeInsufficientData
		return res
	}

	n := len(x)
	maxlag := int(math.Ceil(12 * math.Pow(float64(n)/100, 0.25)))
	if lim := n/2 - 2; maxlag > lim {
		maxlag = lim
	}
	if maxlag < 0 {
		res.Outcome = OutcomeInsufficientData
		return res
	}
	dx := make([]float64, n-1)
	for i := range dx {
		dx[i] = x[i+1] - x[i]
	}

	bestLag, bestAIC := -1, math.Inf(1)
	for lag := 0; lag <= maxlag; lag++ {
		fit, err := regress(x, dx, maxlag, lag)
		if err != nil {
			continue
		}
		if fit.aic < bestAIC {
			bestLag, bestAIC = lag, fit.aic
		}
	}
	if bestLag < 0 {
		res.Outcome = OutcomeDegenerate
		return res
	}

	fit, err := regress(x, dx, bestLag, bestLag)
	if err != nil {
		res.Outcome = OutcomeDegenerate
		return res
	}
	res.Outcome = OutcomeOK
	res.Statistic = fit.tstat
	res.PValue = pValue(fit.tstat)
	res.CriticalValues = criticalValues(fit.nobs)
	res.UsedLag = bestLag
	res.NObs = fit.nobs
	res.AIC = fit.aic
	res.Stationary = res.PValue < 0.05
	return res
}

type olsFit struct {
	tstat float64
	aic   float64
	nobs  int
}

// regress fits dx[t] = g*x[t] + sum_j c_j*dx[t-j] + const over t >= trim, for j = 1..lag.
func regress(x, dx []float64, trim, lag int) (olsFit, error) {
	nobs := len(dx) - trim
	k := lag + 2
	if nobs <= k {
		return olsFit{}, errDegenerate
	}
	design := mat.NewDense(nobs, k, nil)
	y := mat.NewDense(nobs, 1, nil)
	for r := 0; r < nobs; r++ {
		t := trim + r
		y.Set(r, 0, dx[t])
		design.Set(r, 0, x[t])
		for j := 1; j <= lag; j++ {
			design.Set(r, j, dx[t-j])
		}
		design.Set(r, k-1, 1)
	}

	var qr mat.QR
	qr.Factorize(design)
	if c := qr.Cond(); math.IsInf(c, 0) || math.IsNaN(c) || c > 1e13 {
		return olsFit{}, errDegenerate
	}
	var coef mat.Dense
	if err := qr.SolveTo(&coef, false, y); err != nil {
		return olsFit{}, errDegenerate
	}

	var fitted, resid mat.Dense
	fitted.Mul(design, &coef)
	resid.Sub(y, &fitted)
	ssr := mat.Dot(resid.ColView(0), resid.ColView(0))

	// (X'X)^-1 = R^-1 R^-T
	var full mat.Dense
	qr.RTo(&full)
	r := mat.NewTriDense(k, mat.Upper, nil)
	for i := 0; i < k; i++ {
		for j := i; j < k; j++ {
			r.SetTri(i, j, full.At(i, j))
		}
	}
	var rinv mat.TriDense
	if err := rinv.InverseTri(r); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return olsFit{}, errDegenerate
		}
	}
	var cov mat.Dense
	cov.Mul(&rinv, rinv.T())

	s2 := ssr / float64(nobs-k)
	se := math.Sqrt(s2 * cov.At(0, 0))
	if !(se > 0) || math.IsInf(se, 0) {
		return olsFit{}, errDegenerate
	}
	tstat := coef.At(0, 0) / se
	if math.IsNaN(tstat) || math.IsInf(tstat, 0) {
		return olsFit{}, errDegenerate
	}

	fn := float64(nobs)
	llf := -fn / 2 * (math.Log(2*math.Pi) + math.Log(ssr/fn) + 1)
	return olsFit{tstat: tstat, aic: -2*llf + 2*float64(k), nobs: nobs}, nil
}

// MacKinnon (1994) surface for the constant-only case, one series.
var (
	tauMax   = 2.74
	tauMin   = -18.83
	tauStar  = -1.61
	tauSmall = []float64{2.1659, 1.4412, 0.038269}
	tauLarge = []float64{1.7339, 0.93202, -0.12745, -0.010368}
)

func pValue(stat float64) float64 {
	switch {
	case stat > tauMax:
		return 1
	case stat < tauMin:
		return 0
	}
	coef := tauLarge
	if stat <= tauStar {
		coef = tauSmall
	}
	return distuv.UnitNormal.CDF(polyval(coef, stat))
}

// MacKinnon (2010) finite-sample critical values, constant only, one series.
var (
	crit1  = []float64{-3.43035, -6.5393, -16.786, -79.433}
	crit5  = []float64{-2.86154, -2.8903, -4.234, -40.040}
	crit10 = []float64{-2.56677, -1.5384, -2.809, 0}
)

func criticalValues(nobs int) CriticalValues {
	inv := 1 / float64(nobs)
	return CriticalValues{
		OnePct:  polyval(crit1, inv),
		FivePct: polyval(crit5, inv),
		TenPct:  polyval(crit10, inv),
	}
}

// polyval evaluates c[0] + c[1]*x + c[2]*x^2 + ...
func polyval(c []float64, x float64) float64 {
	var out float64
	for i := len(c) - 1; i >= 0; i-- {
		out = out*x + c[i]
	}
	return out
}
