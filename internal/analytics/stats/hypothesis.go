package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// TestResult is the common part of every hypothesis test outcome. Values are
// returned once per call and never mutated afterwards.
type TestResult struct {
	Statistic        float64 `json:"statistic"`
	PValue           float64 `json:"p_value"`
	DegreesOfFreedom float64 `json:"degrees_of_freedom"`
	Significant      bool    `json:"significant"`
	Interpretation   string  `json:"interpretation"`
}

func newTestResult(statistic, p, df float64) TestResult {
	return TestResult{
		Statistic:        statistic,
		PValue:           p,
		DegreesOfFreedom: df,
		Significant:      p < Alpha,
		Interpretation:   InterpretPValue(p),
	}
}

// TTestResult is the outcome of Welch's two-sample t-test.
type TTestResult struct {
	TestResult
	Group1 GroupSummary `json:"group1"`
	Group2 GroupSummary `json:"group2"`
}

// WelchTTest runs an independent two-sample t-test without assuming equal
// variances. Each group needs at least two values.
func WelchTTest(group1, group2 []float64) (*TTestResult, error) {
	if len(group1) < 2 || len(group2) < 2 {
		return nil, Insufficientf("t-test needs at least 2 samples per group (got %d and %d)", len(group1), len(group2))
	}
	if !finite(group1) || !finite(group2) {
		return nil, InvalidParameterf("t-test groups contain non-finite values")
	}

	n1, n2 := float64(len(group1)), float64(len(group2))
	m1, v1 := stat.MeanVariance(group1, nil)
	m2, v2 := stat.MeanVariance(group2, nil)
	se1, se2 := v1/n1, v2/n2
	se := math.Sqrt(se1 + se2)
	if se == 0 {
		return nil, Degeneratef("t-test is undefined when both groups have zero variance")
	}

	t := (m1 - m2) / se
	df := (se1 + se2) * (se1 + se2) / (se1*se1/(n1-1) + se2*se2/(n2-1))

	return &TTestResult{
		TestResult: newTestResult(t, TwoTailedT(t, df), df),
		Group1:     summarize(group1),
		Group2:     summarize(group2),
	}, nil
}

// ChiSquareResult is the outcome of a chi-square test of independence.
type ChiSquareResult struct {
	TestResult
	Expected [][]float64 `json:"expected"`
	Yates    bool        `json:"yates_correction"`
}

// ChiSquareIndependence tests independence of the rows and columns of an
// observed contingency table. When yates is set and the table is 2x2 the
// continuity correction is applied.
func ChiSquareIndependence(observed [][]float64, yates bool) (*ChiSquareResult, error) {
	rows := len(observed)
	if rows == 0 || len(observed[0]) == 0 {
		return nil, Insufficientf("chi-square needs at least one row and one column")
	}
	cols := len(observed[0])

	rowSums := make([]float64, rows)
	colSums := make([]float64, cols)
	var total float64
	for i, row := range observed {
		if len(row) != cols {
			return nil, ShapeMismatchf("chi-square row %d has %d columns, expected %d", i, len(row), cols)
		}
		for j, v := range row {
			if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, InvalidParameterf("chi-square observed counts must be finite and non-negative")
			}
			rowSums[i] += v
			colSums[j] += v
			total += v
		}
	}
	if total == 0 {
		return nil, Degeneratef("chi-square table has no observations")
	}

	expected := make([][]float64, rows)
	for i := range expected {
		expected[i] = make([]float64, cols)
		for j := range expected[i] {
			e := rowSums[i] * colSums[j] / total
			if e == 0 {
				return nil, Degeneratef("expected frequency at row %d, column %d is zero", i, j)
			}
			expected[i][j] = e
		}
	}

	dof := (rows - 1) * (cols - 1)
	if dof == 0 {
		res := &ChiSquareResult{TestResult: newTestResult(0, 1, 0), Expected: expected}
		return res, nil
	}

	correct := yates && rows == 2 && cols == 2
	var chi2 float64
	for i, row := range observed {
		for j, o := range row {
			e := expected[i][j]
			d := math.Abs(o - e)
			if correct {
				d = math.Max(d-0.5, 0)
			}
			chi2 += d * d / e
		}
	}

	return &ChiSquareResult{
		TestResult: newTestResult(chi2, ChiSquareSurvival(chi2, dof), float64(dof)),
		Expected:   expected,
		Yates:      correct,
	}, nil
}

// ANOVAResult is the outcome of a one-way analysis of variance.
type ANOVAResult struct {
	TestResult
	DFBetween int            `json:"df_between"`
	DFWithin  int            `json:"df_within"`
	SSBetween float64        `json:"ss_between"`
	SSWithin  float64        `json:"ss_within"`
	Groups    []GroupSummary `json:"groups"`
}

// OneWayANOVA compares the means of two or more non-empty groups.
func OneWayANOVA(groups [][]float64) (*ANOVAResult, error) {
	k := len(groups)
	if k < 2 {
		return nil, Insufficientf("ANOVA needs at least 2 groups (got %d)", k)
	}

	var n int
	var grandSum float64
	summaries := make([]GroupSummary, k)
	for i, g := range groups {
		if len(g) == 0 {
			return nil, Insufficientf("ANOVA group %d is empty", i+1)
		}
		if !finite(g) {
			return nil, InvalidParameterf("ANOVA group %d contains non-finite values", i+1)
		}
		summaries[i] = summarize(g)
		n += len(g)
		for _, v := range g {
			grandSum += v
		}
	}
	if n <= k {
		return nil, Insufficientf("ANOVA needs more observations (%d) than groups (%d)", n, k)
	}
	grand := grandSum / float64(n)

	var ssb, ssw float64
	for i, g := range groups {
		m := summaries[i].Mean
		ssb += float64(len(g)) * (m - grand) * (m - grand)
		for _, v := range g {
			ssw += (v - m) * (v - m)
		}
	}
	if ssw == 0 {
		return nil, Degeneratef("ANOVA is undefined when every group has zero variance")
	}

	dfb, dfw := k-1, n-k
	f := (ssb / float64(dfb)) / (ssw / float64(dfw))

	res := &ANOVAResult{
		TestResult: newTestResult(f, FSurvival(f, dfb, dfw), float64(dfb)),
		DFBetween:  dfb,
		DFWithin:   dfw,
		SSBetween:  ssb,
		SSWithin:   ssw,
		Groups:     summaries,
	}
	return res, nil
}
