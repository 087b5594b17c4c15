package psa

import (
	"errors"
	"math"

	"github.com/oncostat/oncostat/internal/analytics/stats"
)

// ErrNonRisingPSA is matched by the error returned when a doubling time is
// requested for a flat or falling series. The same error also matches
// stats.ErrDegenerateInput.
var ErrNonRisingPSA = errors.New("non-rising PSA")

// Velocity categories.
const (
	VelocityRapidRise  = "rapid_rise"
	VelocityConcerning = "concerning"
	VelocityStable     = "stable_declining"
)

// Doubling-time risk levels.
const (
	RiskHigh         = "high"
	RiskIntermediate = "intermediate"
	RiskLow          = "low"
)

// MinReliablePoints is the series length below which R² carries no
// information about fit quality.
const MinReliablePoints = 3

type VelocityResult struct {
	Velocity         float64 `json:"velocity"`
	VelocityPerMonth float64 `json:"velocity_per_month"`
	Unit             string  `json:"unit"`
	RSquared         float64 `json:"r_squared"`
	PValue           float64 `json:"p_value"`
	N                int     `json:"n"`
	Reliable         bool    `json:"reliable"`
	Category         string  `json:"category"`
	Interpretation   string  `json:"interpretation"`
}

// Velocity fits PSA against time and reports the slope in ng/mL/year.
func Velocity(s Series) (*VelocityResult, error) {
	t, err := s.years()
	if err != nil {
		return nil, err
	}
	fit, err := stats.LinearRegression(t, s.Values)
	if err != nil {
		return nil, err
	}

	v := fit.Slope
	res := &VelocityResult{
		Velocity:         v,
		VelocityPerMonth: v / 12,
		Unit:             "ng/mL/year",
		RSquared:         fit.RSquared,
		PValue:           fit.PValue,
		N:                len(t),
		Reliable:         len(t) >= MinReliablePoints,
	}
	switch {
	case v > 2:
		res.Category = VelocityRapidRise
		res.Interpretation = "Rapid rise: consider aggressive monitoring"
	case v > 0.75:
		res.Category = VelocityConcerning
		res.Interpretation = "Concerning: standard surveillance recommended"
	case v > 0:
		res.Category = VelocityStable
		res.Interpretation = "Stable: low concern"
	default:
		res.Category = VelocityStable
		res.Interpretation = "Declining: favorable trend"
	}
	return res, nil
}

type DoublingTimeResult struct {
	Months         float64 `json:"doubling_time_months"`
	Years          float64 `json:"doubling_time_years"`
	LogSlope       float64 `json:"log_slope"`
	RSquared       float64 `json:"r_squared"`
	PValue         float64 `json:"p_value"`
	RiskLevel      string  `json:"risk_level"`
	Interpretation string  `json:"interpretation"`
}

// DoublingTime fits ln(PSA) against time. It is defined only for a rising
// series of strictly positive values.
func DoublingTime(s Series) (*DoublingTimeResult, error) {
	t, err := s.years()
	if err != nil {
		return nil, err
	}
	logs := make([]float64, len(s.Values))
	for i, v := range s.Values {
		if v <= 0 {
			return nil, stats.InvalidParameterf("doubling time needs strictly positive PSA values (index %d is %g)", i, v)
		}
		logs[i] = math.Log(v)
	}
	fit, err := stats.LinearRegression(t, logs)
	if err != nil {
		return nil, err
	}
	if fit.Slope <= 0 {
		return nil, &stats.Error{
			Kind:    stats.KindDegenerateInput,
			Message: "PSA is not rising; doubling time is undefined",
			Err:     ErrNonRisingPSA,
		}
	}

	years := math.Ln2 / fit.Slope
	months := years * 12
	res := &DoublingTimeResult{
		Months:   months,
		Years:    years,
		LogSlope: fit.Slope,
		RSquared: fit.RSquared,
		PValue:   fit.PValue,
	}
	switch {
	case months < 3:
		res.RiskLevel = RiskHigh
		res.Interpretation = "Critical: rapid progression, consider immediate intervention"
	case months < 6:
		res.RiskLevel = RiskHigh
		res.Interpretation = "High risk: aggressive disease pattern"
	case months < 12:
		res.RiskLevel = RiskIntermediate
		res.Interpretation = "Intermediate: close monitoring required"
	default:
		res.RiskLevel = RiskLow
		res.Interpretation = "Favorable: slow progression"
	}
	return res, nil
}

// Kinetics combines velocity and doubling time. A failing section is
// reported through its Problem and does not suppress the other one.
type Kinetics struct {
	N                 int                 `json:"n"`
	Velocity          *VelocityResult     `json:"velocity,omitempty"`
	VelocityError     *stats.Problem      `json:"velocity_error,omitempty"`
	DoublingTime      *DoublingTimeResult `json:"doubling_time,omitempty"`
	DoublingTimeError *stats.Problem      `json:"doubling_time_error,omitempty"`
}

// Analyze computes both kinetics measures. Series-level validation errors
// are returned directly since neither section could succeed.
func Analyze(s Series) (*Kinetics, error) {
	if _, err := s.years(); err != nil {
		return nil, err
	}
	k := &Kinetics{N: len(s.Values)}

	v, err := Velocity(s)
	if err != nil {
		k.VelocityError = stats.AsProblem(err)
	} else {
		k.Velocity = v
	}

	dt, err := DoublingTime(s)
	if err != nil {
		k.DoublingTimeError = stats.AsProblem(err)
	} else {
		k.DoublingTime = dt
	}
	return k, nil
}
