// Package clinicalreport serves the Surgical Intelligence report and its
// component endpoints, both for explicit records and for stored patients.
package clinicalreport

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/oncostat/oncostat/internal/analytics/intel"
	"github.com/oncostat/oncostat/internal/analytics/psa"
	"github.com/oncostat/oncostat/internal/analytics/recovery"
	"github.com/oncostat/oncostat/internal/analytics/risk"
	"github.com/oncostat/oncostat/internal/platform/auth"
	"github.com/oncostat/oncostat/internal/platform/httpapi"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/reports/clinical")

	records := g.Group("", auth.RequireRole(auth.RoleClinician, auth.RoleResearcher))
	records.POST("/surgical-intelligence", h.SurgicalIntelligence)
	records.POST("/psa-kinetics", h.PSAKinetics)
	records.POST("/capra", h.CAPRA)
	records.POST("/surgical-difficulty", h.SurgicalDifficulty)
	records.POST("/recovery", h.Recovery)

	if !h.svc.HasPatients() {
		return
	}
	patients := g.Group("/patients", auth.RequireRole(auth.RoleClinician))
	patients.GET("/:id/surgical-intelligence", h.PatientSurgicalIntelligence)
	patients.GET("/:id/psa-analysis", h.PatientPSAAnalysis)
	patients.GET("/:id/risk-assessment", h.PatientRiskAssessment)
	patients.GET("/:id/recovery-prediction", h.PatientRecovery)
}

// -- Explicit records --

func (h *Handler) SurgicalIntelligence(c echo.Context) error {
	var in intel.Input
	if err := httpapi.Bind(c, &in); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.svc.SurgicalIntelligence(in))
}

func (h *Handler) PSAKinetics(c echo.Context) error {
	var s psa.Series
	if err := httpapi.Bind(c, &s); err != nil {
		return err
	}
	res, err := h.svc.PSAKinetics(s)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) CAPRA(c echo.Context) error {
	var in risk.CAPRAInput
	if err := httpapi.Bind(c, &in); err != nil {
		return err
	}
	res, err := h.svc.CAPRA(in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) SurgicalDifficulty(c echo.Context) error {
	var in risk.DifficultyInput
	if err := httpapi.Bind(c, &in); err != nil {
		return err
	}
	res, err := h.svc.SurgicalDifficulty(in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) Recovery(c echo.Context) error {
	var in recovery.Input
	if err := httpapi.Bind(c, &in); err != nil {
		return err
	}
	res, err := h.svc.Recovery(in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// -- Stored patients --

func (h *Handler) PatientSurgicalIntelligence(c echo.Context) error {
	id, err := patientID(c)
	if err != nil {
		return err
	}
	ns, err := nerveSparing(c)
	if err != nil {
		return err
	}
	res, err := h.svc.PatientSurgicalIntelligence(c.Request().Context(), id, ns)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) PatientPSAAnalysis(c echo.Context) error {
	id, err := patientID(c)
	if err != nil {
		return err
	}
	res, err := h.svc.PatientPSAAnalysis(c.Request().Context(), id)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) PatientRiskAssessment(c echo.Context) error {
	id, err := patientID(c)
	if err != nil {
		return err
	}
	res, err := h.svc.PatientRiskAssessment(c.Request().Context(), id)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) PatientRecovery(c echo.Context) error {
	id, err := patientID(c)
	if err != nil {
		return err
	}
	ns, err := nerveSparing(c)
	if err != nil {
		return err
	}
	res, err := h.svc.PatientRecovery(c.Request().Context(), id, ns)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func patientID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	return id, nil
}

func nerveSparing(c echo.Context) (*bool, error) {
	v, err := ParseNerveSparing(c.QueryParam("nerve_sparing"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return v, nil
}

// Engine errors pass through to the error handler as 422s.
func storeError(err error) error {
	if errors.Is(err, ErrPatientNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	return err
}
