package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/form-autopilot/internal/logging"
	"github.com/form-autopilot/internal/models"
	"github.com/form-autopilot/internal/types"
)

// handleSearchJobs handles GET /api/jobs/search
// Requires a source parameter; search terms map onto the board's query
// model (what/where/radiusKm plus pagination).
func (s *Server) handleSearchJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	source := types.JobSource(query.Get("source"))
	if source == "" {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "source parameter required", map[string]interface{}{
			"sources": s.registry.Sources(),
		})
		return
	}

	conn, err := s.registry.Get(source)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, err.Error(), nil)
		return
	}

	searchQuery := &models.JobSearchQuery{
		What:  query.Get("what"),
		Where: query.Get("where"),
	}
	if v, err := strconv.Atoi(query.Get("radiusKm")); err == nil && v > 0 {
		searchQuery.RadiusKm = v
	}
	if v, err := strconv.Atoi(query.Get("page")); err == nil && v > 0 {
		searchQuery.Page = v
	}
	if v, err := strconv.Atoi(query.Get("pageSize")); err == nil && v > 0 {
		searchQuery.PageSize = v
	}

	result, err := conn.Search(r.Context(), searchQuery)
	if err != nil {
		logging.FromContext(r.Context()).Error("job search failed",
			zap.String("source", string(source)), zap.Error(err))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// handleGetJob handles GET /api/jobs/{source}/{id}
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	conn, err := s.registry.Get(types.JobSource(vars["source"]))
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, err.Error(), nil)
		return
	}

	job, err := conn.GetJob(r.Context(), vars["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if job == nil {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "job not found", nil)
		return
	}

	respondJSON(w, http.StatusOK, job)
}
