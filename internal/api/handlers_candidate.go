package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/form-autopilot/internal/logging"
	"github.com/form-autopilot/internal/models"
)

// handleCreateCandidate handles POST /api/candidates
func (s *Server) handleCreateCandidate(w http.ResponseWriter, r *http.Request) {
	var candidate models.Candidate
	if err := parseJSONBody(r, &candidate); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	if candidate.Name == "" || candidate.Email == "" {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "name and email are required", nil)
		return
	}

	if err := s.candidates.Create(r.Context(), &candidate); err != nil {
		logging.FromContext(r.Context()).Error("create candidate failed", zap.Error(err))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, candidate)
}

// handleListCandidates handles GET /api/candidates
func (s *Server) handleListCandidates(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	candidates, err := s.candidates.List(r.Context(), limit, offset)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if candidates == nil {
		candidates = []*models.Candidate{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"candidates": candidates,
		"count":      len(candidates),
	})
}

// handleGetCandidate handles GET /api/candidates/{id}
func (s *Server) handleGetCandidate(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	candidate, err := s.candidates.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if candidate == nil {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "candidate not found", nil)
		return
	}

	respondJSON(w, http.StatusOK, candidate)
}

// handleUpdateCandidate handles PUT /api/candidates/{id}
func (s *Server) handleUpdateCandidate(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var candidate models.Candidate
	if err := parseJSONBody(r, &candidate); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	candidate.ID = id

	existing, err := s.candidates.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if existing == nil {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "candidate not found", nil)
		return
	}
	candidate.CreatedAt = existing.CreatedAt

	if err := s.candidates.Update(r.Context(), &candidate); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, candidate)
}

// handleDeleteCandidate handles DELETE /api/candidates/{id}
func (s *Server) handleDeleteCandidate(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	existing, err := s.candidates.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if existing == nil {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "candidate not found", nil)
		return
	}

	if err := s.candidates.Delete(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}

// parsePagination reads limit/offset query parameters with safe defaults
func parsePagination(r *http.Request) (limit, offset int) {
	limit = 50
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	if limit > 500 {
		limit = 500
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}
