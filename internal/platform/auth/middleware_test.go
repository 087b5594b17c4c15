package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var testSigningKey = []byte("test-secret-key-for-unit-tests-only")

func createTestToken(t *testing.T, claims Claims, key []byte) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenStr, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return tokenStr
}

func validClaims() Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			Issuer:    "https://idp.example.org",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(1 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Roles: []string{RoleClinician},
	}
}

func runJWT(t *testing.T, cfg JWTConfig, header string, path string) (bool, echo.Context, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath(path)

	called := false
	var seen echo.Context
	handler := func(c echo.Context) error {
		called = true
		seen = c
		return c.String(http.StatusOK, "ok")
	}
	err := JWTMiddleware(cfg)(handler)(c)
	return called, seen, err
}

func expectStatus(t *testing.T, err error, code int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with status %d", code)
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != code {
		t.Errorf("expected %d, got %d", code, httpErr.Code)
	}
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	called, _, err := runJWT(t, JWTConfig{SigningKey: testSigningKey}, "", "/api/v1/statistics/t-test")
	expectStatus(t, err, http.StatusUnauthorized)
	if called {
		t.Error("handler should not be called")
	}
}

func TestJWTMiddleware_InvalidFormat(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"no bearer prefix", "Token abc123"},
		{"missing token", "Bearer"},
		{"empty value", "Bearer "},
		{"basic auth", "Basic dXNlcjpwYXNz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runJWT(t, JWTConfig{SigningKey: testSigningKey}, tt.header, "/api/v1/ml/predict-risk")
			expectStatus(t, err, http.StatusUnauthorized)
		})
	}
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	tokenStr := createTestToken(t, validClaims(), testSigningKey)

	called, c, err := runJWT(t, JWTConfig{SigningKey: testSigningKey, Issuer: "https://idp.example.org"}, "Bearer "+tokenStr, "/api/v1/ml/predict-risk")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatal("expected handler to be called")
	}
	ctx := c.Request().Context()
	if UserIDFromContext(ctx) != "user-123" {
		t.Errorf("expected user-123, got %q", UserIDFromContext(ctx))
	}
	roles := RolesFromContext(ctx)
	if len(roles) != 1 || roles[0] != RoleClinician {
		t.Errorf("expected [clinician], got %v", roles)
	}
}

func TestJWTMiddleware_Rejects(t *testing.T) {
	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-1 * time.Hour))

	noExpiry := validClaims()
	noExpiry.ExpiresAt = nil

	wrongIssuer := validClaims()
	wrongIssuer.Issuer = "https://other.example.org"

	tests := []struct {
		name  string
		token string
	}{
		{"expired", createTestToken(t, expired, testSigningKey)},
		{"no expiry", createTestToken(t, noExpiry, testSigningKey)},
		{"wrong key", createTestToken(t, validClaims(), []byte("another-secret-key-entirely-here!"))},
		{"wrong issuer", createTestToken(t, wrongIssuer, testSigningKey)},
		{"garbage", "not.a.jwt"},
	}
	cfg := JWTConfig{SigningKey: testSigningKey, Issuer: "https://idp.example.org"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called, _, err := runJWT(t, cfg, "Bearer "+tt.token, "/api/v1/ml/predict-risk")
			expectStatus(t, err, http.StatusUnauthorized)
			if called {
				t.Error("handler should not be called")
			}
		})
	}
}

func TestJWTMiddleware_SkipsPublicPaths(t *testing.T) {
	called, _, err := runJWT(t, JWTConfig{SigningKey: testSigningKey}, "", "/metrics")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("expected handler to be called for public path")
	}
}

func TestDevAuthMiddleware_GrantsAdmin(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var roles []string
	handler := func(c echo.Context) error {
		roles = RolesFromContext(c.Request().Context())
		return nil
	}
	if err := DevAuthMiddleware()(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(roles) != 1 || roles[0] != RoleAdmin {
		t.Errorf("expected [admin], got %v", roles)
	}
}
