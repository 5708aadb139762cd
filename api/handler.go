// Package api - HTTP handlers for the eligibility service
// Handlers wrap the pipeline adapter; they contain NO scoring or allocation
// logic. All logic is delegated to core packages.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	adapter "microcredit/adapters/cli"
	"microcredit/adapters/storage"
	"microcredit/core/output"
	"microcredit/core/types"
	"microcredit/internal/errors"
	"microcredit/internal/logging"
)

// Runner executes one pipeline run
type Runner interface {
	Run(ctx context.Context, req *adapter.RunRequest) (*output.Summary, error)
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, HealthResponse{
		Status:  "healthy",
		Version: s.version,
		Time:    time.Now().UTC(),
	}, http.StatusOK)
}

// handleVersion handles GET /version
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{
		"version":     s.version,
		"engine":      "microcredit",
		"api_version": "v1",
	}, http.StatusOK)
}

// handleAllocate handles POST /allocate
func (s *Server) handleAllocate(w http.ResponseWriter, r *http.Request) {
	var req AllocateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "INVALID_JSON", err.Error(), http.StatusBadRequest)
		return
	}
	if req.Category == "" {
		req.Category = types.CustomerIndividual
	}

	line, err := s.allocator.Allocate(req.ProfileCode, req.Category)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, AllocateResponse{
		ProfileCode:   req.ProfileCode,
		Category:      req.Category,
		WeightedScore: line.WeightedScore,
		Normalized:    line.Normalized,
		Amounts:       line.Amounts,
	}, http.StatusOK)
}

// handleRun handles POST /runs
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		writeError(w, "UNAVAILABLE", "runs are not enabled on this server", http.StatusServiceUnavailable)
		return
	}

	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "INVALID_JSON", err.Error(), http.StatusBadRequest)
		return
	}
	runReq, err := s.runRequest(&req)
	if err != nil {
		writeErr(w, err)
		return
	}

	summary, err := s.runner.Run(r.Context(), runReq)
	if err != nil {
		logging.Warn("run failed", zap.Error(err))
		if summary == nil {
			writeErr(w, err)
			return
		}
		// partial runs still report what completed
		writeJSON(w, summary, statusOf(err))
		return
	}
	writeJSON(w, summary, http.StatusCreated)
}

// runRequest confines the request's paths to the input root
func (s *Server) runRequest(req *RunRequest) (*adapter.RunRequest, error) {
	if req.Usage == "" || req.KYC == "" {
		return nil, errors.Input("usage and kyc are required")
	}
	out := &adapter.RunRequest{Period: req.Period}

	var err error
	if out.UsagePath, err = s.inputPath(req.Usage); err != nil {
		return nil, err
	}
	if out.KYCPath, err = s.inputPath(req.KYC); err != nil {
		return nil, err
	}
	if req.Ledger != "" {
		if out.LedgerPath, err = s.inputPath(req.Ledger); err != nil {
			return nil, err
		}
	}
	if req.AsOf != "" {
		if out.Reference, err = time.Parse("2006-01-02", req.AsOf); err != nil {
			return nil, errors.Newf(errors.TypeInput, "as_of %q must be YYYY-MM-DD", req.AsOf)
		}
	}
	return out, nil
}

func (s *Server) inputPath(rel string) (string, error) {
	if filepath.IsAbs(rel) {
		return "", errors.Newf(errors.TypeInput, "path %q must be relative to the input root", rel)
	}
	path := filepath.Join(s.inputRoot, rel)
	back, err := filepath.Rel(s.inputRoot, path)
	if err != nil || back == ".." || strings.HasPrefix(back, ".."+string(filepath.Separator)) {
		return "", errors.Newf(errors.TypeInput, "path %q escapes the input root", rel)
	}
	return path, nil
}

// handleListRuns handles GET /runs
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	filter := &storage.ListFilter{
		Status: storage.RunStatus(r.URL.Query().Get("status")),
		Limit:  20,
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, string(errors.TypeInput), "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		filter.Limit = n
	}

	runs, err := s.history.List(r.Context(), filter)
	if err != nil {
		writeErr(w, err)
		return
	}
	if runs == nil {
		runs = []*storage.RunRecord{}
	}
	writeJSON(w, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	}, http.StatusOK)
}

// handleGetRun handles GET /runs/{id}
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.history.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, run, http.StatusOK)
}

// statusOf maps an error type onto an HTTP status
func statusOf(err error) int {
	switch {
	case errors.IsType(err, errors.TypeNotFound):
		return http.StatusNotFound
	case errors.IsType(err, errors.TypeMissingColumn),
		errors.IsType(err, errors.TypeMissingValue),
		errors.IsType(err, errors.TypeParsing),
		errors.IsType(err, errors.TypeValidation):
		return http.StatusUnprocessableEntity
	case errors.IsType(err, errors.TypeInput):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func codeOf(err error) string {
	for _, t := range []errors.Type{
		errors.TypeNotFound,
		errors.TypeMissingColumn,
		errors.TypeMissingValue,
		errors.TypeParsing,
		errors.TypeValidation,
		errors.TypeInput,
		errors.TypeConfig,
		errors.TypeStorage,
	} {
		if errors.IsType(err, t) {
			return string(t)
		}
	}
	return string(errors.TypeInternal)
}
