// Package api exposes the HTTP interface for the scrape service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/placescout/placescout/internal/config"
	"github.com/placescout/placescout/internal/metrics"
	"github.com/placescout/placescout/internal/scout"
)

// Runner executes one scrape run end to end.
type Runner interface {
	Run(ctx context.Context, runID string, params scout.RunParameters) (*scout.RunResult, error)
}

// Server wires HTTP handlers to the orchestrator and stores.
type Server struct {
	router    chi.Router
	runs      scout.RunStore
	runner    Runner
	publisher scout.Publisher
	idGen     scout.IDGenerator
	clock     scout.Clock
	cfg       config.Config
	logger    *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	runs scout.RunStore,
	runner Runner,
	publisher scout.Publisher,
	idGen scout.IDGenerator,
	clock scout.Clock,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		runs:      runs,
		runner:    runner,
		publisher: publisher,
		idGen:     idGen,
		clock:     clock,
		cfg:       cfg,
		logger:    logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metricsMiddleware)
	r.Use(timeoutMiddleware(60 * time.Second))
	if cfg.Auth.Enabled {
		r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
	}

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/runs", func(r chi.Router) {
			r.Post("/", s.submitRun)
			r.Get("/", s.listRuns)
			r.Route("/{run_id}", func(r chi.Router) {
				r.Get("/", s.getRun)
				r.Get("/records", s.getRunRecords)
			})
		})
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if _, err := s.runs.ListRuns(r.Context(), 1); err != nil {
		writeError(w, http.StatusServiceUnavailable, "run store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// submitRunRequest decodes max_results as a pointer so an omitted value
// and an explicit zero stay distinguishable: only the former gets the
// default, while zero flows through and produces an empty run.
type submitRunRequest struct {
	Query           string `json:"query"`
	Location        string `json:"location"`
	MaxResults      *int   `json:"max_results"`
	DetailedResults int    `json:"detailed_results"`
}

func (s *Server) submitRun(w http.ResponseWriter, r *http.Request) {
	var req submitRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	maxResults := scout.DefaultMaxResults
	if req.MaxResults != nil {
		maxResults = *req.MaxResults
	}
	params := scout.RunParameters{
		Query:           req.Query,
		Location:        req.Location,
		MaxResults:      maxResults,
		DetailedResults: req.DetailedResults,
	}.Normalize()

	runID, err := s.idGen.NewID()
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("generate run id: %v", err))
		return
	}
	run := scout.Run{
		ID:        runID,
		Params:    params,
		Status:    scout.RunStatusQueued,
		StartedAt: s.clock.Now().UTC(),
	}
	if err := s.runs.CreateRun(r.Context(), run); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("create run: %v", err))
		return
	}

	// Runs outlive the submitting request.
	go s.executeRun(context.Background(), runID, params)

	writeJSON(w, http.StatusAccepted, map[string]string{
		"run_id": runID,
		"status": string(scout.RunStatusQueued),
	})
}

// executeRun drives one run to a terminal state and records the outcome.
func (s *Server) executeRun(ctx context.Context, runID string, params scout.RunParameters) {
	logger := s.logger.With(zap.String("run_id", runID))

	if err := s.runs.UpdateRunStatus(ctx, runID, scout.RunStatusRunning, ""); err != nil {
		logger.Error("mark run running failed", zap.Error(err))
	}

	start := s.clock.Now()
	result, runErr := s.runner.Run(ctx, runID, params)
	duration := s.clock.Now().Sub(start)

	status := scout.RunStatusSucceeded
	errText := ""
	if runErr != nil {
		status = scout.RunStatusFailed
		errText = runErr.Error()
		logger.Error("run failed", zap.Error(runErr))
	}

	if err := s.runs.CompleteRun(ctx, runID, status, errText, result, duration); err != nil {
		logger.Error("complete run failed", zap.Error(err))
	}
	metrics.ObserveRun(string(status))

	s.publishCompletion(ctx, runID, status, result, duration, logger)
}

func (s *Server) publishCompletion(ctx context.Context, runID string, status scout.RunStatus, result *scout.RunResult, duration time.Duration, logger *zap.Logger) {
	if s.publisher == nil {
		return
	}
	event := map[string]any{
		"run_id":      runID,
		"status":      string(status),
		"duration_ms": duration.Milliseconds(),
	}
	if result != nil {
		event["total_results"] = result.TotalResults
		event["detailed_results"] = result.DetailedCount
	}
	if _, err := s.publisher.Publish(ctx, s.cfg.PubSub.TopicName, event); err != nil {
		logger.Warn("publish run completion failed", zap.Error(err))
	}
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	runs, err := s.runs.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []scout.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")
	run, err := s.runs.GetRun(r.Context(), runID)
	if errors.Is(err, scout.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch run")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"run": run})
}

func (s *Server) getRunRecords(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")
	result, err := s.runs.GetRunResult(r.Context(), runID)
	if errors.Is(err, scout.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch run result")
		return
	}
	if result == nil {
		writeError(w, http.StatusConflict, "run has not finished")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
