package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Correlation methods.
const (
	MethodPearson  = "pearson"
	MethodSpearman = "spearman"
)

// CorrelationResult is the outcome of a correlation test.
type CorrelationResult struct {
	Correlation    float64 `json:"correlation"`
	PValue         float64 `json:"p_value"`
	Method         string  `json:"method"`
	N              int     `json:"n"`
	Strength       string  `json:"strength"`
	Significant    bool    `json:"significant"`
	Interpretation string  `json:"interpretation"`
}

// Correlate computes the Pearson or Spearman correlation of paired samples.
// An empty method selects Pearson.
func Correlate(x, y []float64, method string) (*CorrelationResult, error) {
	if method == "" {
		method = MethodPearson
	}
	var (
		r   float64
		err error
	)
	switch method {
	case MethodPearson:
		r, err = Pearson(x, y)
	case MethodSpearman:
		r, err = Spearman(x, y)
	default:
		return nil, InvalidParameterf("unknown correlation method %q (want pearson or spearman)", method)
	}
	if err != nil {
		return nil, err
	}

	p := correlationPValue(r, len(x))
	return &CorrelationResult{
		Correlation:    r,
		PValue:         p,
		Method:         method,
		N:              len(x),
		Strength:       CorrelationStrength(r),
		Significant:    p < Alpha,
		Interpretation: InterpretCorrelation(r, p),
	}, nil
}

// Pearson returns the Pearson product-moment correlation of x and y.
func Pearson(x, y []float64) (float64, error) {
	if err := checkPaired(x, y, "correlation"); err != nil {
		return 0, err
	}
	if isConstant(x) || isConstant(y) {
		return 0, Degeneratef("correlation is undefined for a constant sample")
	}
	r := stat.Correlation(x, y, nil)
	return math.Max(-1, math.Min(1, r)), nil
}

// Spearman returns the rank correlation of x and y. Ties share their average
// rank.
func Spearman(x, y []float64) (float64, error) {
	if err := checkPaired(x, y, "correlation"); err != nil {
		return 0, err
	}
	return Pearson(Rank(x), Rank(y))
}

// Rank returns the 1-based fractional ranks of data.
func Rank(data []float64) []float64 {
	idx := make([]int, len(data))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return data[idx[a]] < data[idx[b]] })

	ranks := make([]float64, len(data))
	for i := 0; i < len(idx); {
		j := i
		for j+1 < len(idx) && data[idx[j+1]] == data[idx[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[idx[k]] = avg
		}
		i = j + 1
	}
	return ranks
}

// correlationPValue uses t = r*sqrt(n-2)/sqrt(1-r^2) with n-2 dof.
func correlationPValue(r float64, n int) float64 {
	if n <= 2 {
		return 1
	}
	if math.Abs(r) >= 1 {
		return 0
	}
	t := r * math.Sqrt(float64(n-2)) / math.Sqrt(1-r*r)
	return TwoTailedT(t, float64(n-2))
}

func checkPaired(x, y []float64, what string) error {
	if len(x) != len(y) {
		return ShapeMismatchf("%s needs equal-length samples (got %d and %d)", what, len(x), len(y))
	}
	if len(x) < 2 {
		return Insufficientf("%s needs at least 2 pairs (got %d)", what, len(x))
	}
	if !finite(x) || !finite(y) {
		return InvalidParameterf("%s samples contain non-finite values", what)
	}
	return nil
}

func isConstant(xs []float64) bool {
	for _, v := range xs[1:] {
		if v != xs[0] {
			return false
		}
	}
	return true
}
