package stats

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Alpha is the significance level used for every interpretation string.
const Alpha = 0.05

// TwoTailedT returns the two-tailed p-value of a t statistic with df degrees
// of freedom. df may be fractional (Welch–Satterthwaite).
func TwoTailedT(t, df float64) float64 {
	if df <= 0 || math.IsNaN(t) {
		return 1
	}
	if math.IsInf(t, 0) {
		return 0
	}
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return clampProb(2 * dist.Survival(math.Abs(t)))
}

// ChiSquareSurvival returns P(X >= x) for a chi-square variable with k dof.
func ChiSquareSurvival(x float64, k int) float64 {
	if k <= 0 {
		return 1
	}
	dist := distuv.ChiSquared{K: float64(k)}
	return clampProb(dist.Survival(x))
}

// FSurvival returns P(X >= x) for an F(d1, d2) variable.
func FSurvival(x float64, d1, d2 int) float64 {
	if d1 <= 0 || d2 <= 0 {
		return 1
	}
	dist := distuv.F{D1: float64(d1), D2: float64(d2)}
	return clampProb(dist.Survival(x))
}

func clampProb(p float64) float64 {
	switch {
	case math.IsNaN(p):
		return 1
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}

func finite(xs []float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
