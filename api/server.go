// Package api - Thin HTTP layer over the eligibility pipeline
// The API is ONLY responsible for: request decoding, pipeline invocation and
// response serialization. The API NEVER scores or allocates itself.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"microcredit/adapters/storage"
	"microcredit/core/allocation"
	"microcredit/core/rules"
	"microcredit/internal/errors"
	"microcredit/internal/logging"
)

// Options configures a server
type Options struct {
	Version string

	// Rules are used by /allocate; nil means the built-in defaults
	Rules *rules.Rules

	// Runner executes POST /runs; nil disables the endpoint
	Runner Runner

	// History backs GET /runs; nil means an in-memory store
	History storage.Store

	// InputRoot confines the paths of run requests
	InputRoot string

	// Gatherer serves GET /metrics; nil disables the endpoint
	Gatherer prometheus.Gatherer
}

// Server is the API server
type Server struct {
	mux       *http.ServeMux
	version   string
	allocator *allocation.Allocator
	runner    Runner
	history   storage.Store
	inputRoot string
}

// NewServer creates a new API server
func NewServer(opts Options) (*Server, error) {
	r := opts.Rules
	if r == nil {
		r = rules.Default()
	}
	alloc, err := allocation.New(r.Allocation)
	if err != nil {
		return nil, err
	}
	history := opts.History
	if history == nil {
		history = storage.NewMemoryStore()
	}
	root, err := filepath.Abs(opts.InputRoot)
	if err != nil {
		return nil, errors.Config("invalid input root", err)
	}

	s := &Server{
		mux:       http.NewServeMux(),
		version:   opts.Version,
		allocator: alloc,
		runner:    opts.Runner,
		history:   history,
		inputRoot: root,
	}
	s.registerRoutes(opts.Gatherer)
	return s, nil
}

// registerRoutes registers all API routes
func (s *Server) registerRoutes(g prometheus.Gatherer) {
	// Core endpoints
	s.mux.HandleFunc("POST /runs", s.handleRun)
	s.mux.HandleFunc("GET /runs", s.handleListRuns)
	s.mux.HandleFunc("GET /runs/{id}", s.handleGetRun)
	s.mux.HandleFunc("POST /allocate", s.handleAllocate)

	// Supporting endpoints
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /version", s.handleVersion)
	if g != nil {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	}
}

func writeJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.Debug("failed to write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, code, message string, status int) {
	writeJSON(w, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}}, status)
}

// writeErr writes a typed error with its mapped status
func writeErr(w http.ResponseWriter, err error) {
	writeJSON(w, ErrorResponse{Error: ErrorDetail{
		Code:    codeOf(err),
		Message: err.Error(),
		Columns: errors.ColumnsOf(err),
	}}, statusOf(err))
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	s.mux.ServeHTTP(w, r)
	logging.Debug("request",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Duration("duration", time.Since(start)))
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
