package statistics

import "github.com/oncostat/oncostat/internal/analytics/stats"

type TTestRequest struct {
	Group1 []float64 `json:"group1"`
	Group2 []float64 `json:"group2"`
}

type ChiSquareRequest struct {
	Observed        [][]float64 `json:"observed"`
	YatesCorrection bool        `json:"yates_correction,omitempty"`
}

type RegressionRequest struct {
	XData []float64 `json:"x_data"`
	YData []float64 `json:"y_data"`
}

type CorrelationRequest struct {
	XData  []float64 `json:"x_data"`
	YData  []float64 `json:"y_data"`
	Method string    `json:"method,omitempty"`
}

type ANOVARequest struct {
	Groups [][]float64 `json:"groups"`
}

type DescriptiveRequest struct {
	Data []float64 `json:"data"`
}

type TTestResponse struct {
	TStatistic       float64            `json:"t_statistic"`
	PValue           float64            `json:"p_value"`
	DegreesOfFreedom float64            `json:"degrees_of_freedom"`
	Significant      bool               `json:"significant"`
	Interpretation   string             `json:"interpretation"`
	Group1           stats.GroupSummary `json:"group1"`
	Group2           stats.GroupSummary `json:"group2"`
}

func newTTestResponse(r *stats.TTestResult) *TTestResponse {
	return &TTestResponse{
		TStatistic:       r.Statistic,
		PValue:           r.PValue,
		DegreesOfFreedom: r.DegreesOfFreedom,
		Significant:      r.Significant,
		Interpretation:   r.Interpretation,
		Group1:           r.Group1,
		Group2:           r.Group2,
	}
}

type ChiSquareResponse struct {
	ChiSquare       float64     `json:"chi_square"`
	PValue          float64     `json:"p_value"`
	DOF             int         `json:"dof"`
	Significant     bool        `json:"significant"`
	Interpretation  string      `json:"interpretation"`
	Expected        [][]float64 `json:"expected_frequencies"`
	YatesCorrection bool        `json:"yates_correction"`
}

func newChiSquareResponse(r *stats.ChiSquareResult) *ChiSquareResponse {
	return &ChiSquareResponse{
		ChiSquare:       r.Statistic,
		PValue:          r.PValue,
		DOF:             int(r.DegreesOfFreedom),
		Significant:     r.Significant,
		Interpretation:  r.Interpretation,
		Expected:        r.Expected,
		YatesCorrection: r.Yates,
	}
}

type ANOVAResponse struct {
	FStatistic     float64              `json:"f_statistic"`
	PValue         float64              `json:"p_value"`
	DFBetween      int                  `json:"df_between"`
	DFWithin       int                  `json:"df_within"`
	SSBetween      float64              `json:"ss_between"`
	SSWithin       float64              `json:"ss_within"`
	Significant    bool                 `json:"significant"`
	Interpretation string               `json:"interpretation"`
	Groups         []stats.GroupSummary `json:"groups"`
}

func newANOVAResponse(r *stats.ANOVAResult) *ANOVAResponse {
	return &ANOVAResponse{
		FStatistic:     r.Statistic,
		PValue:         r.PValue,
		DFBetween:      r.DFBetween,
		DFWithin:       r.DFWithin,
		SSBetween:      r.SSBetween,
		SSWithin:       r.SSWithin,
		Significant:    r.Significant,
		Interpretation: r.Interpretation,
		Groups:         r.Groups,
	}
}
