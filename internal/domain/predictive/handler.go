// Package predictive serves the rule-based risk, PSA trend, anomaly and
// clustering endpoints.
package predictive

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/oncostat/oncostat/internal/analytics/anomaly"
	"github.com/oncostat/oncostat/internal/analytics/cluster"
	"github.com/oncostat/oncostat/internal/analytics/psa"
	"github.com/oncostat/oncostat/internal/analytics/risk"
	"github.com/oncostat/oncostat/internal/clinicaltables"
	"github.com/oncostat/oncostat/internal/platform/auth"
	"github.com/oncostat/oncostat/internal/platform/compute"
	"github.com/oncostat/oncostat/internal/platform/httpapi"
)

type Handler struct {
	runner  *compute.Runner
	tables  *clinicaltables.Store
	cluster cluster.Options
}

func NewHandler(runner *compute.Runner, tables *clinicaltables.Store, opts cluster.Options) *Handler {
	return &Handler{runner: runner, tables: tables, cluster: opts}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/ml", auth.RequireRole(auth.RoleClinician, auth.RoleResearcher))
	g.POST("/predict-risk", h.PredictRisk)
	g.POST("/predict-psa-trend", h.PredictPSATrend)
	g.POST("/detect-anomalies", h.DetectAnomalies)
	g.POST("/cluster-patients", h.ClusterPatients)
}

func (h *Handler) PredictRisk(c echo.Context) error {
	var req PredictRiskRequest
	if err := httpapi.Bind(c, &req); err != nil {
		return err
	}
	t := h.tables.Get()
	res, err := compute.Do(h.runner, "predict_risk", compute.Versioned(t.Digest, req), func() (*risk.PredictionSet, error) {
		return risk.PredictRisk(&t.Risk, req.Features)
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) PredictPSATrend(c echo.Context) error {
	var req PSATrendRequest
	if err := httpapi.Bind(c, &req); err != nil {
		return err
	}
	res, err := compute.Do(h.runner, "predict_psa_trend", req, func() (*psa.TrendResult, error) {
		return psa.Trend(req.series())
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) DetectAnomalies(c echo.Context) error {
	var req AnomalyRequest
	if err := httpapi.Bind(c, &req); err != nil {
		return err
	}
	res, err := compute.Do(h.runner, "detect_anomalies", req, func() (*anomaly.Report, error) {
		return anomaly.Detect(req.Data, req.Method)
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) ClusterPatients(c echo.Context) error {
	var req ClusterRequest
	if err := httpapi.Bind(c, &req); err != nil {
		return err
	}
	// the seed and restart count change the answer, so they are part of the key
	key := struct {
		ClusterRequest
		Options cluster.Options `json:"options"`
	}{req, h.cluster}
	res, err := compute.Do(h.runner, "cluster_patients", key, func() (*ClusterResponse, error) {
		samples, names, err := cluster.FeatureMatrix(req.Features)
		if err != nil {
			return nil, err
		}
		r, err := cluster.KMeans(samples, req.clusters(), h.cluster)
		if err != nil {
			return nil, err
		}
		return &ClusterResponse{Result: r, Features: names}, nil
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}
