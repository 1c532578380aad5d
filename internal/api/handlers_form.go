package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/form-autopilot/internal/logging"
	"github.com/form-autopilot/internal/models"
)

// handleDetectForm handles POST /api/forms/detect
// Query parameter enable_profiling=true includes the profiling breakdown in
// the response when the detector collected one.
func (s *Server) handleDetectForm(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	if req.URL == "" {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "url is required", nil)
		return
	}

	schema, profilingData, err := s.lifecycle.DetectAndStore(r.Context(), req.URL)
	if err != nil {
		logging.FromContext(r.Context()).Error("form detection failed",
			zap.String("url", req.URL), zap.Error(err))
		respondServiceError(w, err)
		return
	}

	response := map[string]interface{}{
		"schema": schema,
	}
	if includeProfiling(r, "enable_profiling") && profilingData != nil {
		response["profiling"] = profilingData
	}

	respondJSON(w, http.StatusCreated, response)
}

// handleGetSchema handles GET /api/forms/{id}
func (s *Server) handleGetSchema(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	schema, err := s.schemas.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if schema == nil {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "form schema not found", nil)
		return
	}

	respondJSON(w, http.StatusOK, schema)
}

// handleUpdateMapping handles PUT /api/forms/{id}/mapping
func (s *Server) handleUpdateMapping(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req models.FormMappingRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	if len(req.FieldMappings) == 0 {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "fieldMappings is required", nil)
		return
	}

	schema, err := s.lifecycle.UpdateFieldMappings(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, schema)
}

// includeProfiling reads a boolean query flag
func includeProfiling(r *http.Request, param string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(param))
	return err == nil && v
}
