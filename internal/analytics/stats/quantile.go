package stats

import (
	"math"
	"sort"
)

// Quantile returns the p-quantile of data using linear interpolation between
// closest ranks (h = (n-1)p), the default method of numpy.percentile and R
// type 7. data does not need to be sorted and is not modified.
func Quantile(data []float64, p float64) float64 {
	sorted := sortedCopy(data)
	return quantileSorted(sorted, p)
}

func sortedCopy(data []float64) []float64 {
	s := make([]float64, len(data))
	copy(s, data)
	sort.Float64s(s)
	return s
}

func quantileSorted(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 || p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}
	h := float64(n-1) * p
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= n {
		return sorted[n-1]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}

// Quartiles returns Q1 and Q3 of data.
func Quartiles(data []float64) (q1, q3 float64) {
	sorted := sortedCopy(data)
	return quantileSorted(sorted, 0.25), quantileSorted(sorted, 0.75)
}
