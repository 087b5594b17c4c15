package clinicalreport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/oncostat/oncostat/internal/analytics/risk"
	"github.com/oncostat/oncostat/internal/clinicaltables"
	"github.com/oncostat/oncostat/internal/platform/auth"
	"github.com/oncostat/oncostat/internal/platform/cache"
	"github.com/oncostat/oncostat/internal/platform/compute"
	"github.com/oncostat/oncostat/internal/platform/httpapi"
)

func asRoles(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := auth.WithIdentity(c.Request().Context(), "user-1", roles)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func newTestServer(repo PatientRepository, roles ...string) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = httpapi.ErrorHandler(zerolog.Nop())
	runner := compute.NewRunner(cache.New(32, time.Minute), nil)
	svc := NewService(repo, clinicaltables.StaticStore(clinicaltables.Default()), runner, zerolog.Nop())
	api := e.Group("/api/v1", asRoles(roles...))
	NewHandler(svc).RegisterRoutes(api)
	return e
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body httpapi.ErrorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal error body: %v", err)
	}
	return body.Error
}

func TestHandler_CAPRA(t *testing.T) {
	e := newTestServer(nil, auth.RoleResearcher)
	rec := do(e, http.MethodPost, "/api/v1/reports/clinical/capra",
		`{"age":72,"psa":25,"gleason_primary":4,"gleason_secondary":4,"clinical_stage":"T3a","percent_positive_cores":60}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var res risk.CAPRAResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	// age 1 + psa 3 + gleason 3 + stage 1 + cores 1
	if res.Score != 9 || res.Category != risk.High {
		t.Errorf("unexpected CAPRA %v (%s)", res.Score, res.Category)
	}
}

func TestHandler_CAPRA_MissingAge(t *testing.T) {
	e := newTestServer(nil, auth.RoleClinician)
	rec := do(e, http.MethodPost, "/api/v1/reports/clinical/capra", `{"psa":5,"gleason_score":6,"clinical_stage":"T1c"}`)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "invalid_parameter" {
		t.Errorf("expected invalid_parameter, got %q", code)
	}
}

func TestHandler_SurgicalIntelligence_PartialReport(t *testing.T) {
	e := newTestServer(nil, auth.RoleClinician)
	rec := do(e, http.MethodPost, "/api/v1/reports/clinical/surgical-intelligence",
		`{"age":64,"psa":7.2,"gleason_score":7,"clinical_stage":"T2a","nerve_sparing":true}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var res struct {
		ReportID    string          `json:"report_id"`
		PSAKinetics json.RawMessage `json:"psa_kinetics"`
		CAPRA       struct {
			Result *risk.CAPRAResult `json:"result"`
		} `json:"capra"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if res.ReportID == "" {
		t.Error("expected a report id")
	}
	if res.CAPRA.Result == nil {
		t.Error("expected a CAPRA section")
	}
	if !strings.Contains(string(res.PSAKinetics), "insufficient_data") {
		t.Errorf("expected kinetics section error, got %s", res.PSAKinetics)
	}
}

func TestHandler_PatientRiskAssessment(t *testing.T) {
	e := newTestServer(newMockRepo(), auth.RoleClinician)
	rec := do(e, http.MethodGet, "/api/v1/reports/clinical/patients/1/risk-assessment", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var res RiskAssessment
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if res.CAPRA.Result == nil || res.CAPRA.Result.Score != 5 {
		t.Errorf("unexpected CAPRA section %+v", res.CAPRA)
	}
	if res.InputData.ClinicalStage != "T2b" {
		t.Errorf("unexpected input data %+v", res.InputData)
	}
}

func TestHandler_PatientErrors(t *testing.T) {
	e := newTestServer(newMockRepo(), auth.RoleClinician)

	tests := []struct {
		name   string
		path   string
		status int
		code   string
	}{
		{"unknown patient", "/api/v1/reports/clinical/patients/99/risk-assessment", http.StatusNotFound, "not_found"},
		{"non-numeric id", "/api/v1/reports/clinical/patients/abc/psa-analysis", http.StatusBadRequest, "invalid_request"},
		{"negative id", "/api/v1/reports/clinical/patients/-4/psa-analysis", http.StatusBadRequest, "invalid_request"},
		{"single PSA draw", "/api/v1/reports/clinical/patients/2/psa-analysis", http.StatusUnprocessableEntity, "insufficient_data"},
		{"bad nerve sparing flag", "/api/v1/reports/clinical/patients/1/recovery-prediction?nerve_sparing=perhaps", http.StatusBadRequest, "invalid_request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(e, http.MethodGet, tt.path, "")
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			if code := errorCode(t, rec); code != tt.code {
				t.Errorf("expected %q, got %q", tt.code, code)
			}
		})
	}
}

func TestHandler_PatientRecovery_NoNerveSparing(t *testing.T) {
	e := newTestServer(newMockRepo(), auth.RoleClinician)
	rec := do(e, http.MethodGet, "/api/v1/reports/clinical/patients/1/recovery-prediction?nerve_sparing=false", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var res RecoveryReport
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if res.NerveSparingPlanned {
		t.Error("expected nerve sparing to be off")
	}
	if res.Predictions.PotencyApplicable || res.Predictions.Potency != nil {
		t.Errorf("expected no potency prediction, got %+v", res.Predictions.Potency)
	}
}

func TestHandler_PatientRoutesRequireClinician(t *testing.T) {
	e := newTestServer(newMockRepo(), auth.RoleResearcher)
	rec := do(e, http.MethodGet, "/api/v1/reports/clinical/patients/1/psa-analysis", "")

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestHandler_NoPatientSource(t *testing.T) {
	e := newTestServer(nil, auth.RoleClinician)
	rec := do(e, http.MethodGet, "/api/v1/reports/clinical/patients/1/psa-analysis", "")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without a patient source, got %d", rec.Code)
	}
}
