package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/oncostat/oncostat/internal/analytics/stats"
)

type payload struct {
	Data []float64 `json:"data"`
}

func newContext(body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(http.MethodPost, "/", nil)
	} else {
		req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	}
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestBind_Valid(t *testing.T) {
	c, _ := newContext(`{"data":[1,2,3]}`)
	var p payload
	if err := Bind(c, &p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.Data) != 3 {
		t.Errorf("expected 3 values, got %d", len(p.Data))
	}
}

func TestBind_Rejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty", ""},
		{"unknown field", `{"data":[1],"extra":true}`},
		{"malformed", `{"data":[1,}`},
		{"wrong type", `{"data":"abc"}`},
		{"trailing", `{"data":[1]} {"data":[2]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newContext(tt.body)
			var p payload
			err := Bind(c, &p)
			httpErr, ok := err.(*echo.HTTPError)
			if !ok {
				t.Fatalf("expected echo.HTTPError, got %T (%v)", err, err)
			}
			if httpErr.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", httpErr.Code)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"engine", stats.Insufficientf("need 4 values"), http.StatusUnprocessableEntity, "insufficient_data"},
		{"bad request", echo.NewHTTPError(http.StatusBadRequest, "bad"), http.StatusBadRequest, CodeInvalidRequest},
		{"not found", echo.NewHTTPError(http.StatusNotFound, "patient not found"), http.StatusNotFound, CodeNotFound},
		{"route not found", echo.ErrNotFound, http.StatusNotFound, CodeNotFound},
		{"method", echo.ErrMethodNotAllowed, http.StatusMethodNotAllowed, "method_not_allowed"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := Resolve(tt.err)
			if status != tt.status {
				t.Errorf("expected %d, got %d", tt.status, status)
			}
			if body.Error != tt.code {
				t.Errorf("expected %s, got %s", tt.code, body.Error)
			}
		})
	}
}

func TestErrorHandler_HidesInternalDetails(t *testing.T) {
	c, rec := newContext("")
	ErrorHandler(zerolog.Nop())(errors.New("dial tcp 10.0.0.1:5432: refused"), c)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var body ErrorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if strings.Contains(body.Message, "10.0.0.1") {
		t.Error("internal error text leaked to client")
	}
}

func TestErrorHandler_EngineError(t *testing.T) {
	c, rec := newContext("")
	ErrorHandler(zerolog.Nop())(stats.Degeneratef("x is constant"), c)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	var body ErrorBody
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Error != "degenerate_input" || body.Message != "x is constant" {
		t.Errorf("unexpected body %+v", body)
	}
}
