// Package psa computes PSA kinetics from a timed series of PSA draws.
package psa

import (
	"math"

	"github.com/oncostat/oncostat/internal/analytics/stats"
)

// Time units accepted for a series. Kinetics are always reported per year.
const (
	UnitYears  = "years"
	UnitMonths = "months"
)

// Series is a PSA history: Values[i] in ng/mL was drawn at Times[i].
type Series struct {
	Values   []float64 `json:"psa_values"`
	Times    []float64 `json:"time_points"`
	TimeUnit string    `json:"time_unit,omitempty"`
}

// years validates the series and returns its time axis in years.
func (s Series) years() ([]float64, error) {
	if len(s.Values) != len(s.Times) {
		return nil, stats.ShapeMismatchf("psa values and time points differ in length (%d and %d)", len(s.Values), len(s.Times))
	}
	if len(s.Values) < 2 {
		return nil, stats.Insufficientf("PSA kinetics need at least 2 measurements (got %d)", len(s.Values))
	}

	scale := 1.0
	switch s.TimeUnit {
	case "", UnitYears:
	case UnitMonths:
		scale = 1.0 / 12
	default:
		return nil, stats.InvalidParameterf("unknown time unit %q (want years or months)", s.TimeUnit)
	}

	t := make([]float64, len(s.Times))
	for i, v := range s.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) || math.IsNaN(s.Times[i]) || math.IsInf(s.Times[i], 0) {
			return nil, stats.InvalidParameterf("PSA series contains non-finite values")
		}
		if v < 0 {
			return nil, stats.InvalidParameterf("PSA values must be non-negative (index %d is %g)", i, v)
		}
		if i > 0 && s.Times[i] <= s.Times[i-1] {
			return nil, stats.InvalidParameterf("time points must be strictly increasing (index %d)", i)
		}
		t[i] = s.Times[i] * scale
	}
	return t, nil
}
