// Package anomaly flags outliers in a numeric sample with Tukey fences.
package anomaly

import (
	"github.com/oncostat/oncostat/internal/analytics/stats"
)

const (
	// MethodIQR is the only supported detection method.
	MethodIQR = "iqr"

	// MinSamples is the smallest sample with meaningful quartiles.
	MinSamples = 4

	// FenceFactor scales the IQR to obtain the fences.
	FenceFactor = 1.5
)

const (
	AboveUpperBound = "above_upper_bound"
	BelowLowerBound = "below_lower_bound"
)

type Bounds struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Q1    float64 `json:"q1"`
	Q3    float64 `json:"q3"`
	IQR   float64 `json:"iqr"`
}

type Anomaly struct {
	Index  int     `json:"index"`
	Value  float64 `json:"value"`
	Reason string  `json:"reason"`
}

type Report struct {
	Method       string    `json:"method"`
	AnomalyCount int       `json:"anomaly_count"`
	Bounds       Bounds    `json:"bounds"`
	Anomalies    []Anomaly `json:"anomalies"`
}

// Detect reports every value outside [Q1 - 1.5 IQR, Q3 + 1.5 IQR] with its
// original index. An empty method selects IQR.
func Detect(data []float64, method string) (*Report, error) {
	if method == "" {
		method = MethodIQR
	}
	if method != MethodIQR {
		return nil, stats.InvalidParameterf("unknown anomaly method %q (want iqr)", method)
	}
	if len(data) < MinSamples {
		return nil, stats.Insufficientf("anomaly detection needs at least %d values (got %d)", MinSamples, len(data))
	}
	s, err := stats.Describe(data)
	if err != nil {
		return nil, err
	}

	b := Bounds{
		Q1:    s.Q1,
		Q3:    s.Q3,
		IQR:   s.IQR,
		Lower: s.Q1 - FenceFactor*s.IQR,
		Upper: s.Q3 + FenceFactor*s.IQR,
	}
	r := &Report{Method: method, Bounds: b, Anomalies: []Anomaly{}}
	for i, v := range data {
		switch {
		case v < b.Lower:
			r.Anomalies = append(r.Anomalies, Anomaly{Index: i, Value: v, Reason: BelowLowerBound})
		case v > b.Upper:
			r.Anomalies = append(r.Anomalies, Anomaly{Index: i, Value: v, Reason: AboveUpperBound})
		}
	}
	r.AnomalyCount = len(r.Anomalies)
	return r, nil
}
