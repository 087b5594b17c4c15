package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oncostat/oncostat/internal/clinicaltables"
	"github.com/oncostat/oncostat/internal/config"
	"github.com/oncostat/oncostat/internal/platform/cache"
	"github.com/oncostat/oncostat/internal/platform/compute"
	"github.com/oncostat/oncostat/internal/platform/metrics"
	"github.com/oncostat/oncostat/internal/platform/middleware"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func testServer(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()
	m := metrics.New()
	srv := &server{
		cfg:     cfg,
		logger:  zerolog.Nop(),
		metrics: m,
		runner:  compute.NewRunner(cache.New(16, time.Minute), m),
		tables:  clinicaltables.StaticStore(clinicaltables.Default()),
	}
	e, err := srv.routes()
	require.NoError(t, err)
	return e
}

func devConfig() *config.Config {
	return &config.Config{
		Env:            "development",
		CORSOrigins:    []string{"http://localhost:3000"},
		RequestTimeout: 5 * time.Second,
		BodyLimit:      "1M",
		KMeansSeed:     42,
		KMeansMaxIter:  100,
		KMeansNInit:    10,
	}
}

func TestRoutes_Health(t *testing.T) {
	h := testServer(t, devConfig())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
}

func TestRoutes_DatabaseHealthAbsentWithoutSource(t *testing.T) {
	h := testServer(t, devConfig())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/db", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRoutes_DescriptiveThenMetrics(t *testing.T) {
	h := testServer(t, devConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/statistics/descriptive", strings.NewReader(`{"data":[1,2,3,4,5]}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res struct {
		Mean   float64 `json:"mean"`
		Median float64 `json:"median"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.InDelta(t, 3.0, res.Mean, 1e-12)
	assert.InDelta(t, 3.0, res.Median, 1e-12)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "oncostat_computations_total")
}

func TestRoutes_JWTModeRejectsAnonymous(t *testing.T) {
	cfg := devConfig()
	cfg.Env = "production"
	cfg.AuthSigningKey = testKey
	h := testServer(t, cfg)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/statistics/descriptive", strings.NewReader(`{"data":[1,2,3]}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestParseNumbers(t *testing.T) {
	got, err := parseNumbers("1, 2.5\n3\t4,,5")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2.5, 3, 4, 5}, got)

	_, err = parseNumbers("1, two, 3")
	assert.Error(t, err)
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := &cobra.Command{Use: "oncostat-server", SilenceUsage: true, SilenceErrors: true}
	root.AddCommand(tablesCmd(), analyzeCmd(), migrateCmd(), seedCmd())
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestAnalyzeDescribe_Stdin(t *testing.T) {
	out, err := run(t, "2 4 4 4 5 5 7 9", "analyze", "describe")
	require.NoError(t, err)

	var res struct {
		Mean  float64 `json:"mean"`
		Count int     `json:"count"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 8, res.Count)
	assert.InDelta(t, 5.0, res.Mean, 1e-12)
}

func TestAnalyzeAnomalies_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "values.txt")
	require.NoError(t, os.WriteFile(path, []byte("10,11,12,11,10,12,11,95\n"), 0o600))

	out, err := run(t, "", "analyze", "anomalies", "--file", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"index": 7`)
}

func TestTablesValidate(t *testing.T) {
	good := filepath.Join(t.TempDir(), "tables.yaml")
	require.NoError(t, os.WriteFile(good, clinicaltables.DefaultYAML(), 0o600))

	out, err := run(t, "", "tables", "validate", "--file", good)
	require.NoError(t, err)
	assert.Contains(t, out, "is valid")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("risk: [not, a, table]\n"), 0o600))
	_, err = run(t, "", "tables", "validate", "--file", bad)
	assert.Error(t, err)
}

func TestTablesPrint_RoundTrips(t *testing.T) {
	t.Setenv("CLINICAL_TABLES_FILE", "")
	out, err := run(t, "", "tables", "print")
	require.NoError(t, err)

	parsed, err := clinicaltables.Parse([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, clinicaltables.Default().Risk.Categories, parsed.Risk.Categories)
	assert.Equal(t, clinicaltables.Default().Digest, parsed.Digest)
}

func TestSeedThenMigrateStatus(t *testing.T) {
	t.Setenv("DATABASE_URL", "sqlite://"+filepath.Join(t.TempDir(), "demo.db"))

	out, err := run(t, "", "seed", "--patients", "5", "--draws", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Seeded 5 patient(s)")

	out, err = run(t, "", "migrate", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "001_patients.sql")
	assert.NotContains(t, out, "pending")
}
