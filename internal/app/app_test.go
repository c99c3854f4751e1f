package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scorecli/internal/config"
	"scorecli/internal/dataprocessing"
	"scorecli/internal/infrastructure"
	"scorecli/internal/operations"
	"scorecli/internal/shared/testutil"
)

var day0 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

// testConfig lays out <base>/data with one US workbook of six days and a
// file map that also names a missing KR workbook.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()
	dataDir := filepath.Join(base, "data")
	require.NoError(t, os.MkdirAll(dataDir, 0o755))

	testutil.WriteWorkbook(t, filepath.Join(dataDir, "US_TECH.xlsx"),
		testutil.RawSheet{
			Name:  dataprocessing.PriceSheet,
			Dates: testutil.DateHeaders(day0, 6),
			Rows: []testutil.RawRow{
				{Name: "Apple", Code: "AAPL", Values: testutil.Ramp(6, 100, 2)},
				{Name: "Microsoft", Code: "MSFT", Values: testutil.Ramp(6, 300, -1)},
			},
		},
		testutil.RawSheet{
			Name:  dataprocessing.VolumeSheet,
			Dates: testutil.DateHeaders(day0, 6),
			Rows: []testutil.RawRow{
				{Name: "Apple", Code: "AAPL", Values: testutil.Ramp(6, 1000, 10)},
				{Name: "Microsoft", Code: "MSFT", Values: testutil.Ramp(6, 2000, 5)},
			},
		},
	)

	fileMap, err := json.Marshal(map[string]string{
		"US_TECH": "US_TECH.xlsx",
		"KR_BIO":  "KR_BIO.xlsx",
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, config.DefaultFileMap), fileMap, 0o644))

	cfg := config.Default()
	cfg.Paths.BaseDir = base
	cfg.Logging.Output = "console"
	cfg.Metrics = []config.MetricConfig{
		{Kind: "gap"},
		{Kind: "s", Window: 3},
		{Kind: "z", Window: 3},
	}
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestNewRunner_RunAll(t *testing.T) {
	cfg := testConfig(t)
	logger, _ := testutil.NewTestLogger(t)

	paths, err := cfg.ResolvePaths()
	require.NoError(t, err)
	providers, err := infrastructure.InitializeOTel(infrastructure.NewOTelConfig(cfg.Telemetry), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = providers.Shutdown(context.Background()) })

	runner, err := NewRunner(cfg, paths, providers, logger)
	require.NoError(t, err)
	assert.Equal(t, []string{"s3", "z3", "gap"}, runner.Manager.GetRegistry().ListIDs())

	files, err := config.LoadFileMap(paths.FileMap)
	require.NoError(t, err)

	manifest, err := runner.Manager.RunAll(context.Background(), files)
	require.NoError(t, err)
	assert.Equal(t, operations.RunStatusCompleted, manifest.Status)
	require.Len(t, manifest.Missing, 1)
	assert.Equal(t, "KR_BIO", manifest.Missing[0].Category)
	assert.Equal(t, 3, manifest.Totals.StepsCompleted)

	names, err := runner.Store.SheetNames(filepath.Join(paths.DataDir, "US_TECH.xlsx"))
	require.NoError(t, err)
	assert.Subset(t, names, []string{"s3", "z3", "gap"})

	_, err = os.Stat(paths.GetManifestPath(manifest.RunID))
	assert.NoError(t, err)
}

func TestNewRunner_InvalidMetrics(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics = []config.MetricConfig{{Kind: "s", Window: 3}, {Kind: "s", Window: 3}}
	paths, err := cfg.ResolvePaths()
	require.NoError(t, err)

	_, err = NewRunner(cfg, paths, nil, nil)
	assert.ErrorContains(t, err, "duplicate sheet")
}

func TestApplication_Routes(t *testing.T) {
	cfg := testConfig(t)
	logger, _ := testutil.NewTestLogger(t)

	paths, err := cfg.ResolvePaths()
	require.NoError(t, err)
	runner, err := NewRunner(cfg, paths, nil, logger)
	require.NoError(t, err)
	files, err := config.LoadFileMap(paths.FileMap)
	require.NoError(t, err)
	_, err = runner.Manager.RunAll(context.Background(), files)
	require.NoError(t, err)

	application, err := NewApplication(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.OTelProviders.Shutdown(context.Background()) })

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   string
	}{
		{name: "health", path: "/api/health", wantStatus: http.StatusOK, wantBody: `"status":"ok"`},
		{name: "readiness", path: "/api/health/ready", wantStatus: http.StatusOK, wantBody: `"ready"`},
		{name: "version", path: "/api/version", wantStatus: http.StatusOK, wantBody: `"sheet_format"`},
		{name: "files", path: "/api/files", wantStatus: http.StatusOK, wantBody: `"US_TECH"`},
		{name: "sheet", path: "/api/files/US_TECH/sheets/s3?from=20240104", wantStatus: http.StatusOK, wantBody: `"AAPL"`},
		{name: "entity", path: "/api/files/US_TECH/sheets/gap/entities/msft", wantStatus: http.StatusOK, wantBody: `"MSFT"`},
		{name: "missing sheet", path: "/api/files/US_TECH/sheets/s99", wantStatus: http.StatusNotFound, wantBody: `"/errors/sheet/not-found"`},
		{name: "missing workbook", path: "/api/files/KR_BIO/sheets/s3", wantStatus: http.StatusNotFound, wantBody: `"/errors/source/missing"`},
		{name: "bad date", path: "/api/files/US_TECH/sheets/s3?to=2024", wantStatus: http.StatusBadRequest, wantBody: `"VALIDATION_FAILED"`},
		{name: "unknown route", path: "/api/nope", wantStatus: http.StatusNotFound, wantBody: `"/errors/not-found"`},
		{name: "metrics", path: "/metrics", wantStatus: http.StatusOK, wantBody: "http_requests_total"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()
			application.Router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		})
	}
}

func TestApplication_MissingFileMapDiscoversWorkbooks(t *testing.T) {
	cfg := testConfig(t)
	cfg.Paths.FileMap = "absent.json"
	cfg.Server.RateLimit.Enabled = false

	application, err := NewApplication(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.OTelProviders.Shutdown(context.Background()) })
	assert.Equal(t, map[string]string{"US_TECH": "US_TECH.xlsx"}, application.Files)

	rec := httptest.NewRecorder()
	application.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestApplication_NoWorkbooks(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.BaseDir = t.TempDir()
	require.NoError(t, cfg.Validate())

	application, err := NewApplication(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.OTelProviders.Shutdown(context.Background()) })
	assert.Empty(t, application.Files)

	rec := httptest.NewRecorder()
	application.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestNewApplication_NilConfig(t *testing.T) {
	_, err := NewApplication(nil, nil)
	assert.Error(t, err)
}

func TestRunner_ExportCSV(t *testing.T) {
	cfg := testConfig(t)
	logger, _ := testutil.NewTestLogger(t)
	paths, err := cfg.ResolvePaths()
	require.NoError(t, err)

	runner, err := NewRunner(cfg, paths, nil, logger)
	require.NoError(t, err)
	files, err := config.LoadFileMap(paths.FileMap)
	require.NoError(t, err)

	written, err := runner.ExportCSV(context.Background(), files, logger)
	require.NoError(t, err)
	assert.Zero(t, written, "nothing computed yet")

	_, err = runner.Manager.RunAll(context.Background(), files)
	require.NoError(t, err)

	written, err = runner.ExportCSV(context.Background(), files, logger)
	require.NoError(t, err)
	assert.Equal(t, 3, written)

	data, err := os.ReadFile(paths.GetReportPath("US_TECH_gap.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "AAPL")
	assert.Contains(t, string(data), "20240107")
}
