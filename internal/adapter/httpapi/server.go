// Package httpapi exposes the query pipeline over HTTP: a snapshot endpoint
// for drivers plus health, readiness, and metrics routes.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/hazard-intel-service/internal/pipeline"
)

// QueryRunner executes one query cycle.
type QueryRunner interface {
	RunQuery(ctx context.Context, params pipeline.QueryParams) (pipeline.Report, error)
	CheckReadiness(ctx context.Context) error
}

// Defaults bound and default the snapshot endpoint's query parameters.
type Defaults struct {
	HoursBack    int
	MinHoursBack int
	MaxHoursBack int
	AOIQuery     string
	RadiusKM     float64
}

// Server exposes the snapshot API and operational endpoints.
type Server struct {
	httpServer *http.Server
	runner     QueryRunner
	defaults   Defaults
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /api/v1/snapshot, /healthz, /readyz,
// and /metrics routes.
func NewServer(addr string, runner QueryRunner, defaults Defaults, logger *slog.Logger) *Server {
	s := &Server{
		runner:   runner,
		defaults: defaults,
		logger:   logger,
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/snapshot", s.handleSnapshot).Methods(http.MethodGet)

	handler := handlers.RecoveryHandler()(handlers.CompressHandler(r))

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 120 * time.Second, // a snapshot request runs three feed fetches
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// handleSnapshot runs one query cycle from request parameters and returns the
// full report. Out-of-range look-back hours are clamped to the configured
// bounds rather than rejected.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	params := pipeline.QueryParams{
		HoursBack: s.defaults.HoursBack,
		AOIQuery:  s.defaults.AOIQuery,
		RadiusKM:  s.defaults.RadiusKM,
	}

	q := r.URL.Query()
	if v := q.Get("hours"); v != "" {
		hours, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid hours parameter"})
			return
		}
		params.HoursBack = clamp(hours, s.defaults.MinHoursBack, s.defaults.MaxHoursBack)
	}
	if v := q.Get("aoi"); v != "" {
		params.AOIQuery = v
	}
	if v := q.Get("radius_km"); v != "" {
		radius, err := strconv.ParseFloat(v, 64)
		if err != nil || radius <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid radius_km parameter"})
			return
		}
		params.RadiusKM = radius
	}

	report, err := s.runner.RunQuery(r.Context(), params)
	if err != nil {
		s.logger.Error("query cycle failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.runner.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
