// Package http serves the operational endpoints of a batch run: liveness,
// readiness, Prometheus metrics and the run history kept by the ledger.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/culvert-eval/internal/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	defaultRunsLimit = 50
	readyTimeout     = 2 * time.Second
)

// RunTracker reports on region runs made by this process.
type RunTracker interface {
	// CheckReadiness returns nil once a region run has finished.
	CheckReadiness(ctx context.Context) error
	// LastRun returns the most recently finished run, if any.
	LastRun() (domain.RunSummary, bool)
}

// RunLister returns recorded region runs, most recent first.
type RunLister interface {
	Runs(ctx context.Context, region string, limit int) ([]domain.RunSummary, error)
}

type statusResponse struct {
	Status  string      `json:"status"`
	Error   string      `json:"error,omitempty"`
	LastRun *lastRunRef `json:"last_run,omitempty"`
}

type lastRunRef struct {
	RunID      string           `json:"run_id"`
	Region     string           `json:"region"`
	Status     domain.RunStatus `json:"status"`
	FinishedAt time.Time        `json:"finished_at"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server exposes health, readiness, metrics and run history over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    RunTracker
	runs       RunLister
	logger     *slog.Logger
}

// NewServer creates a server with /healthz, /readyz and /metrics. /runs is
// added only when runs is non-nil.
func NewServer(addr string, tracker RunTracker, runs RunLister, logger *slog.Logger) *Server {
	s := &Server{tracker: tracker, runs: runs, logger: logger}
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())
	if s.runs != nil {
		mux.HandleFunc("GET /runs", s.handleRuns)
	}
	return mux
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown drains connections within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the route table, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "healthy"})
}

// handleReady answers 503 until the first region run finishes, then 200 with
// a reference to the latest run.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := s.tracker.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, statusResponse{Status: "not ready", Error: err.Error()})
		return
	}
	resp := statusResponse{Status: "ready"}
	if last, ok := s.tracker.LastRun(); ok {
		resp.LastRun = &lastRunRef{
			RunID:      last.RunID,
			Region:     last.Region,
			Status:     last.Status,
			FinishedAt: last.FinishedAt,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleRuns serves GET /runs?region=<tag>&limit=<n>. Crossing results are
// left out; they live in each run's model_output.csv.
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r.URL.Query().Get("limit"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
		return
	}

	list, err := s.runs.Runs(r.Context(), r.URL.Query().Get("region"), limit)
	if err != nil {
		s.logger.Error("list runs failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "list runs failed"})
		return
	}
	out := make([]domain.RunSummary, len(list))
	for i, run := range list {
		run.Results = nil
		out[i] = run
	}
	writeJSON(w, http.StatusOK, out)
}

func parseLimit(v string) (int, bool) {
	if v == "" {
		return defaultRunsLimit, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
