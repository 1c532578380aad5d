package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/form-autopilot/internal/logging"
	"github.com/form-autopilot/internal/models"
	"github.com/form-autopilot/internal/storage"
	"github.com/form-autopilot/internal/types"
)

// handleBatchApply handles POST /api/applications/batch
// The batch returns immediately with the queued pending records; outcomes
// converge asynchronously and are read back via the list/get endpoints.
func (s *Server) handleBatchApply(w http.ResponseWriter, r *http.Request) {
	var req models.BatchApplyRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	queued, err := s.lifecycle.BatchApply(r.Context(), &req)
	if err != nil {
		logging.FromContext(r.Context()).Error("batch apply failed",
			zap.String("candidateId", req.CandidateID), zap.Error(err))
		respondServiceError(w, err)
		return
	}
	if queued == nil {
		queued = []*models.ApplicationRecord{}
	}

	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"queued":    queued,
		"count":     len(queued),
		"requested": len(req.URLs),
	})
}

// handleListApplications handles GET /api/applications
// Supports candidateId, status, and batchId filters plus pagination.
func (s *Server) handleListApplications(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, offset := parsePagination(r)

	filters := &storage.ApplicationFilters{
		CandidateID: query.Get("candidateId"),
		Status:      types.ApplicationStatus(query.Get("status")),
		BatchID:     query.Get("batchId"),
		Limit:       limit,
		Offset:      offset,
	}

	records, err := s.applications.List(r.Context(), filters)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if records == nil {
		records = []*models.ApplicationRecord{}
	}

	// Profiling payloads are large; the list view strips them.
	for _, rec := range records {
		rec.Profiling = nil
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"applications": records,
		"count":        len(records),
	})
}

// handleGetApplication handles GET /api/applications/{id}
// Query parameter include_profiling=true keeps the profiling breakdown in
// the response.
func (s *Server) handleGetApplication(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	record, err := s.applications.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if record == nil {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "application record not found", nil)
		return
	}

	if !includeProfiling(r, "include_profiling") {
		record.Profiling = nil
	}

	respondJSON(w, http.StatusOK, record)
}

// handleRetryApplication handles POST /api/applications/{id}/retry
func (s *Server) handleRetryApplication(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	record, err := s.lifecycle.Retry(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusAccepted, record)
}

// handleProfilingStats handles GET /api/analytics/profiling
func (s *Server) handleProfilingStats(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filters := &storage.ApplicationFilters{
		CandidateID: query.Get("candidateId"),
		Status:      types.ApplicationStatus(query.Get("status")),
		BatchID:     query.Get("batchId"),
	}

	stats, err := s.lifecycle.ProfilingStats(r.Context(), filters)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}
