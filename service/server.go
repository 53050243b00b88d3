// Package service exposes the HTTP surface: mapping configuration
// management, the ingestion trigger, health, and metrics.
package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/c360/fileingest/errors"
	"github.com/c360/fileingest/mapping"
	"github.com/c360/fileingest/pipeline"
	"github.com/c360/fileingest/report"
)

// maxRequestSize bounds request bodies on the POST endpoints
const maxRequestSize = 1 << 20 // 1MB

// Runner starts one pipeline run and blocks until it is terminal
type Runner interface {
	Run(ctx context.Context, locator, mappingSource string) *pipeline.Result
}

// Server is the HTTP surface of the ingestion service
type Server struct {
	addr           string
	registry       mapping.Registry
	runner         Runner
	metricsHandler http.Handler
	logger         *slog.Logger

	httpServer *http.Server
	running    atomic.Bool
}

// NewServer creates the HTTP server. The metrics handler may be nil when no
// metrics registry is configured.
func NewServer(addr string, registry mapping.Registry, runner Runner,
	metricsHandler http.Handler, logger *slog.Logger) (*Server, error) {
	if registry == nil || runner == nil {
		return nil, errors.WrapFatal(errors.ErrMissingConfig, "Server", "NewServer",
			"registry and runner are required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		addr:           addr,
		registry:       registry,
		runner:         runner,
		metricsHandler: metricsHandler,
		logger:         logger,
	}, nil
}

// Handler returns the route table, exposed for tests
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/mappings", s.handleListMappings)
	mux.HandleFunc("POST /api/v1/mappings", s.handleUpsertMapping)
	mux.HandleFunc("POST /api/v1/ingest", s.handleIngest)
	mux.HandleFunc("GET /health", s.handleHealth)
	if s.metricsHandler != nil {
		mux.Handle("GET /metrics", s.metricsHandler)
	}
	return mux
}

// Start begins serving. It returns once the listener is running; serve
// errors after startup are logged.
func (s *Server) Start(_ context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.WrapFatal(errors.ErrAlreadyStarted, "Server", "Start", "server already running")
	}

	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		s.logger.Info("HTTP server listening", "component", "Server", "addr", s.addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server stopped", "component", "Server", "error", err)
		}
	}()

	return nil
}

// Stop shuts the server down gracefully
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return errors.WrapTransient(err, "Server", "Stop", "shutdown")
	}
	return nil
}

// upsertMappingRequest is the POST /api/v1/mappings body
type upsertMappingRequest struct {
	Name     string                `json:"name"`
	Mappings []mapping.TargetField `json:"mappings"`
}

// upsertMappingResponse confirms an upsert
type upsertMappingResponse struct {
	Message string `json:"message"`
	Name    string `json:"name"`
}

// ingestRequest is the POST /api/v1/ingest body
type ingestRequest struct {
	Locator       string `json:"locator"`
	MappingSource string `json:"mappingSource"`
}

// ingestResponse is the terminal outcome of a triggered run
type ingestResponse struct {
	Status  string          `json:"status"`
	Locator string          `json:"locator"`
	Summary *report.Summary `json:"summary,omitempty"`
	Error   string          `json:"error,omitempty"`
	Cause   string          `json:"cause,omitempty"`
}

// handleListMappings returns every stored mapping configuration
func (s *Server) handleListMappings(w http.ResponseWriter, r *http.Request) {
	all, err := s.registry.ListAll(r.Context())
	if err != nil {
		s.logger.Error("Failed to list mapping configurations",
			"component", "Server", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list mapping configurations")
		return
	}
	s.writeJSON(w, http.StatusOK, all)
}

// handleUpsertMapping creates or replaces a named mapping configuration
func (s *Server) handleUpsertMapping(w http.ResponseWriter, r *http.Request) {
	var req upsertMappingRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	if req.Name == "" {
		s.writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if len(req.Mappings) == 0 {
		s.writeError(w, http.StatusBadRequest, "mappings must not be empty")
		return
	}

	cfg := &mapping.Config{Name: req.Name, Fields: req.Mappings}
	if err := s.registry.Upsert(r.Context(), req.Name, cfg); err != nil {
		if errors.IsInvalid(err) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("Failed to store mapping configuration",
			"component", "Server", "name", req.Name, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to store mapping configuration")
		return
	}

	s.writeJSON(w, http.StatusOK, upsertMappingResponse{
		Message: "mapping configuration saved",
		Name:    req.Name,
	})
}

// handleIngest triggers a pipeline run and waits for its terminal state
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	if req.Locator == "" {
		s.writeError(w, http.StatusBadRequest, "locator is required")
		return
	}

	result := s.runner.Run(r.Context(), req.Locator, req.MappingSource)

	resp := ingestResponse{Status: result.Status, Locator: req.Locator}

	if result.Status == report.StatusSuccess {
		sc := result.Context
		resp.Summary = &report.Summary{
			TotalRecords:   sc.MappedData.Total,
			ValidRecords:   sc.MappedData.Valid,
			InvalidRecords: sc.MappedData.Invalid,
			SavedRecords:   sc.StorageResult.SavedCount,
			FailedRecords:  sc.StorageResult.FailedCount,
		}
		s.writeJSON(w, http.StatusOK, resp)
		return
	}

	resp.Error = errors.KindOf(result.Err).String()
	if result.Err != nil {
		resp.Cause = result.Err.Error()
	}
	s.writeJSON(w, http.StatusUnprocessableEntity, resp)
}

// handleHealth reports liveness
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// decodeBody reads and unmarshals a bounded request body, writing the error
// response itself on failure
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, target any) bool {
	defer func() {
		_ = r.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestSize+1))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to read request body")
		return false
	}
	if len(body) > maxRequestSize {
		s.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return false
	}

	if err := json.Unmarshal(body, target); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("Failed to write response", "component", "Server", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
