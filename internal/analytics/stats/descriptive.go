package stats

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary holds the descriptive statistics of a single sample.
type Summary struct {
	Count    int     `json:"count"`
	Mean     float64 `json:"mean"`
	Median   float64 `json:"median"`
	StdDev   float64 `json:"std_dev"`
	Variance float64 `json:"variance"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Q1       float64 `json:"q1"`
	Q3       float64 `json:"q3"`
	IQR      float64 `json:"iqr"`
	Skewness float64 `json:"skewness"`
	Kurtosis float64 `json:"kurtosis"`
}

// Describe computes the descriptive statistics of data. Variance and standard
// deviation use the n-1 denominator and are reported as 0 for a single value.
// Skewness and excess kurtosis are the biased moment ratios m3/m2^1.5 and
// m4/m2^2 - 3 over population central moments; both are 0 for a constant
// sample.
func Describe(data []float64) (*Summary, error) {
	if len(data) == 0 {
		return nil, Insufficientf("descriptive statistics need at least 1 value")
	}
	if !finite(data) {
		return nil, InvalidParameterf("data contains non-finite values")
	}

	sorted := sortedCopy(data)
	n := len(data)
	s := &Summary{
		Count:  n,
		Mean:   stat.Mean(data, nil),
		Median: quantileSorted(sorted, 0.5),
		Min:    floats.Min(data),
		Max:    floats.Max(data),
		Q1:     quantileSorted(sorted, 0.25),
		Q3:     quantileSorted(sorted, 0.75),
	}
	s.IQR = s.Q3 - s.Q1
	if n >= 2 {
		s.Variance = stat.Variance(data, nil)
		s.StdDev = math.Sqrt(s.Variance)
	}
	if m2 := stat.Moment(2, data, nil); m2 > 0 {
		s.Skewness = stat.Moment(3, data, nil) / math.Pow(m2, 1.5)
		s.Kurtosis = stat.Moment(4, data, nil)/(m2*m2) - 3
	}
	return s, nil
}

// GroupSummary is the per-group block attached to test results.
type GroupSummary struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
	N    int     `json:"n"`
}

func summarize(g []float64) GroupSummary {
	gs := GroupSummary{N: len(g)}
	if len(g) == 0 {
		return gs
	}
	gs.Mean = stat.Mean(g, nil)
	if len(g) >= 2 {
		gs.Std = stat.StdDev(g, nil)
	}
	return gs
}
