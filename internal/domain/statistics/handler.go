// Package statistics serves the hypothesis-test, correlation, regression and
// descriptive endpoints.
package statistics

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/oncostat/oncostat/internal/analytics/stats"
	"github.com/oncostat/oncostat/internal/platform/auth"
	"github.com/oncostat/oncostat/internal/platform/compute"
	"github.com/oncostat/oncostat/internal/platform/httpapi"
)

type Handler struct {
	runner *compute.Runner
}

func NewHandler(runner *compute.Runner) *Handler {
	return &Handler{runner: runner}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/statistics", auth.RequireRole(auth.RoleClinician, auth.RoleResearcher))
	g.POST("/t-test", h.TTest)
	g.POST("/chi-square", h.ChiSquare)
	g.POST("/regression", h.Regression)
	g.POST("/correlation", h.Correlation)
	g.POST("/anova", h.ANOVA)
	g.POST("/descriptive", h.Descriptive)
}

func (h *Handler) TTest(c echo.Context) error {
	var req TTestRequest
	if err := httpapi.Bind(c, &req); err != nil {
		return err
	}
	res, err := compute.Do(h.runner, "t_test", req, func() (*TTestResponse, error) {
		r, err := stats.WelchTTest(req.Group1, req.Group2)
		if err != nil {
			return nil, err
		}
		return newTTestResponse(r), nil
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) ChiSquare(c echo.Context) error {
	var req ChiSquareRequest
	if err := httpapi.Bind(c, &req); err != nil {
		return err
	}
	res, err := compute.Do(h.runner, "chi_square", req, func() (*ChiSquareResponse, error) {
		r, err := stats.ChiSquareIndependence(req.Observed, req.YatesCorrection)
		if err != nil {
			return nil, err
		}
		return newChiSquareResponse(r), nil
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) Regression(c echo.Context) error {
	var req RegressionRequest
	if err := httpapi.Bind(c, &req); err != nil {
		return err
	}
	res, err := compute.Do(h.runner, "regression", req, func() (*stats.RegressionResult, error) {
		return stats.LinearRegression(req.XData, req.YData)
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) Correlation(c echo.Context) error {
	var req CorrelationRequest
	if err := httpapi.Bind(c, &req); err != nil {
		return err
	}
	res, err := compute.Do(h.runner, "correlation", req, func() (*stats.CorrelationResult, error) {
		return stats.Correlate(req.XData, req.YData, req.Method)
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) ANOVA(c echo.Context) error {
	var req ANOVARequest
	if err := httpapi.Bind(c, &req); err != nil {
		return err
	}
	res, err := compute.Do(h.runner, "anova", req, func() (*ANOVAResponse, error) {
		r, err := stats.OneWayANOVA(req.Groups)
		if err != nil {
			return nil, err
		}
		return newANOVAResponse(r), nil
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) Descriptive(c echo.Context) error {
	var req DescriptiveRequest
	if err := httpapi.Bind(c, &req); err != nil {
		return err
	}
	res, err := compute.Do(h.runner, "descriptive", req, func() (*stats.Summary, error) {
		return stats.Describe(req.Data)
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}
