package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httpadapter "github.com/couchcryptid/culvert-eval/internal/adapter/http"
	"github.com/couchcryptid/culvert-eval/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockTracker struct {
	err  error
	last *domain.RunSummary
}

func (m *mockTracker) CheckReadiness(_ context.Context) error { return m.err }

func (m *mockTracker) LastRun() (domain.RunSummary, bool) {
	if m.last == nil {
		return domain.RunSummary{}, false
	}
	return *m.last, true
}

type mockRuns struct {
	runs      []domain.RunSummary
	err       error
	gotRegion string
	gotLimit  int
}

func (m *mockRuns) Runs(_ context.Context, region string, limit int) ([]domain.RunSummary, error) {
	m.gotRegion, m.gotLimit = region, limit
	return m.runs, m.err
}

func serve(srv *httpadapter.Server, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealthzReturns200(t *testing.T) {
	srv := httpadapter.NewServer(":0", &mockTracker{}, nil, slog.Default())

	rec := serve(srv, "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "healthy", decode(t, rec)["status"])
}

func TestReadyzReturns503BeforeFirstRun(t *testing.T) {
	srv := httpadapter.NewServer(":0", &mockTracker{err: errors.New("no region run has finished yet")}, nil, slog.Default())

	rec := serve(srv, "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "no region run has finished yet", body["error"])
	assert.NotContains(t, body, "last_run")
}

func TestReadyzReportsLastRun(t *testing.T) {
	finished := time.Date(2026, time.March, 1, 12, 0, 5, 0, time.UTC)
	tracker := &mockTracker{last: &domain.RunSummary{
		RunID:      "r1",
		Region:     "lake",
		Status:     domain.RunFailed,
		FinishedAt: finished,
	}}
	srv := httpadapter.NewServer(":0", tracker, nil, slog.Default())

	rec := serve(srv, "/readyz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready","last_run":{"run_id":"r1","region":"lake","status":"failed","finished_at":"2026-03-01T12:00:05Z"}}`,
		rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	srv := httpadapter.NewServer(":0", &mockTracker{}, nil, slog.Default())

	rec := serve(srv, "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRunsNotRegisteredWithoutLister(t *testing.T) {
	srv := httpadapter.NewServer(":0", &mockTracker{}, nil, slog.Default())

	assert.Equal(t, http.StatusNotFound, serve(srv, "/runs").Code)
}

func TestRunsEndpoint(t *testing.T) {
	runs := &mockRuns{runs: []domain.RunSummary{{
		RunID:   "r1",
		Region:  "lake",
		Status:  domain.RunSucceeded,
		Results: []domain.CrossingResult{{BarrierID: "lake_1"}},
	}}}
	srv := httpadapter.NewServer(":0", &mockTracker{}, runs, slog.Default())

	rec := serve(srv, "/runs?region=lake&limit=5")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "lake", runs.gotRegion)
	assert.Equal(t, 5, runs.gotLimit)

	var body []domain.RunSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, "r1", body[0].RunID)
	assert.Empty(t, body[0].Results)
	assert.Len(t, runs.runs[0].Results, 1, "lister's slice is not modified")
}

func TestRunsEndpoint_DefaultLimitAndEmpty(t *testing.T) {
	runs := &mockRuns{}
	srv := httpadapter.NewServer(":0", &mockTracker{}, runs, slog.Default())

	rec := serve(srv, "/runs")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 50, runs.gotLimit)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestRunsEndpoint_Errors(t *testing.T) {
	srv := httpadapter.NewServer(":0", &mockTracker{}, &mockRuns{err: errors.New("disk I/O error")}, slog.Default())

	for _, limit := range []string{"zero", "0", "-3"} {
		assert.Equal(t, http.StatusBadRequest, serve(srv, "/runs?limit="+limit).Code, limit)
	}

	rec := serve(srv, "/runs")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "disk I/O")
}
