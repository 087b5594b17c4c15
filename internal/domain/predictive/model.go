package predictive

import (
	"github.com/oncostat/oncostat/internal/analytics/cluster"
	"github.com/oncostat/oncostat/internal/analytics/psa"
	"github.com/oncostat/oncostat/internal/analytics/risk"
)

// DefaultClusters applies when n_clusters is omitted.
const DefaultClusters = 3

type PredictRiskRequest struct {
	Features []risk.FeatureVector `json:"features"`
}

type PSATrendRequest struct {
	HistoricalPSA []float64 `json:"historical_psa"`
	TimePoints    []float64 `json:"time_points"`
	TimeUnit      string    `json:"time_unit,omitempty"`
}

func (r PSATrendRequest) series() psa.Series {
	return psa.Series{Values: r.HistoricalPSA, Times: r.TimePoints, TimeUnit: r.TimeUnit}
}

type AnomalyRequest struct {
	Data   []float64 `json:"data"`
	Method string    `json:"method,omitempty"`
}

type ClusterRequest struct {
	Features  []risk.FeatureVector `json:"features"`
	NClusters *int                 `json:"n_clusters,omitempty"`
}

func (r ClusterRequest) clusters() int {
	if r.NClusters == nil {
		return DefaultClusters
	}
	return *r.NClusters
}

type ClusterResponse struct {
	*cluster.Result
	Features []string `json:"features"`
}
