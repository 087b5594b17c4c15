package psa

import (
	"math"

	"github.com/oncostat/oncostat/internal/analytics/stats"
)

// ForecastHorizon is the number of future time steps predicted by Trend.
const ForecastHorizon = 3

type Forecast struct {
	TimePoint    float64 `json:"time_point"`
	PredictedPSA float64 `json:"predicted_psa"`
}

type TrendResult struct {
	CurrentTrend      string     `json:"current_trend"`
	Slope             float64    `json:"slope"`
	Intercept         float64    `json:"intercept"`
	RSquared          float64    `json:"r_squared"`
	Confidence        float64    `json:"confidence"`
	FuturePredictions []Forecast `json:"future_predictions"`
}

// Trend fits a line through the series and extrapolates it one, two and
// three time units past the last draw. Times stay in the caller's unit and
// forecasts are clamped at zero.
func Trend(s Series) (*TrendResult, error) {
	if _, err := s.years(); err != nil {
		return nil, err
	}
	fit, err := stats.LinearRegression(s.Times, s.Values)
	if err != nil {
		return nil, err
	}

	res := &TrendResult{
		Slope:      fit.Slope,
		Intercept:  fit.Intercept,
		RSquared:   fit.RSquared,
		Confidence: math.Min(95, math.Max(50, fit.RSquared*100)),
	}
	switch {
	case fit.Slope > 0:
		res.CurrentTrend = "increasing"
	case fit.Slope < 0:
		res.CurrentTrend = "decreasing"
	default:
		res.CurrentTrend = "stable"
	}

	last := s.Times[len(s.Times)-1]
	res.FuturePredictions = make([]Forecast, ForecastHorizon)
	for i := range res.FuturePredictions {
		tp := last + float64(i+1)
		res.FuturePredictions[i] = Forecast{TimePoint: tp, PredictedPSA: math.Max(0, fit.Predict(tp))}
	}
	return res, nil
}
