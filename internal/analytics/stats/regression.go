package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// RegressionResult is an ordinary least squares fit of y on x.
type RegressionResult struct {
	Slope          float64 `json:"slope"`
	Intercept      float64 `json:"intercept"`
	RSquared       float64 `json:"r_squared"`
	RValue         float64 `json:"r_value"`
	PValue         float64 `json:"p_value"`
	StdErr         float64 `json:"std_err"`
	N              int     `json:"n"`
	Equation       string  `json:"equation"`
	Significant    bool    `json:"significant"`
	Interpretation string  `json:"interpretation"`
}

// Predict evaluates the fitted line at x.
func (r *RegressionResult) Predict(x float64) float64 {
	return r.Intercept + r.Slope*x
}

// LinearRegression fits y = intercept + slope*x. A constant x is degenerate.
// A constant y fits exactly with slope 0; R² is then reported as 0 and the
// p-value as 1. With only two points there are no residual degrees of
// freedom and the p-value is 1.
func LinearRegression(x, y []float64) (*RegressionResult, error) {
	if err := checkPaired(x, y, "regression"); err != nil {
		return nil, err
	}
	if isConstant(x) {
		return nil, Degeneratef("regression is undefined when x is constant")
	}

	n := len(x)
	intercept, slope := stat.LinearRegression(x, y, nil, false)

	mx, my := stat.Mean(x, nil), stat.Mean(y, nil)
	var sxx, sst, sse float64
	for i := range x {
		dx, dy := x[i]-mx, y[i]-my
		sxx += dx * dx
		sst += dy * dy
		res := y[i] - (intercept + slope*x[i])
		sse += res * res
	}

	res := &RegressionResult{
		Slope:     slope,
		Intercept: intercept,
		N:         n,
		PValue:    1,
	}
	if sst > 0 {
		res.RSquared = math.Max(0, math.Min(1, 1-sse/sst))
		res.RValue = math.Copysign(math.Sqrt(res.RSquared), slope)
	} else {
		res.Slope = 0
	}

	if n > 2 && sst > 0 {
		dof := float64(n - 2)
		res.StdErr = math.Sqrt(sse/dof) / math.Sqrt(sxx)
		switch {
		case res.StdErr > 0:
			res.PValue = TwoTailedT(slope/res.StdErr, dof)
		case slope != 0:
			res.PValue = 0
		}
	}

	res.Significant = res.PValue < Alpha
	res.Equation = fmt.Sprintf("y = %.4fx + %.4f", res.Slope, res.Intercept)
	res.Interpretation = InterpretCorrelation(res.RValue, res.PValue)
	return res, nil
}
