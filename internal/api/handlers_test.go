package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/form-autopilot/internal/connectors"
	apperrors "github.com/form-autopilot/internal/errors"
	"github.com/form-autopilot/internal/lifecycle"
	"github.com/form-autopilot/internal/models"
	"github.com/form-autopilot/internal/profiling"
	"github.com/form-autopilot/internal/storage"
	"github.com/form-autopilot/internal/types"
)

// fakeLifecycle implements LifecycleServiceInterface with canned responses
type fakeLifecycle struct {
	detectErr error
	retryErr  error
	queued    []*models.ApplicationRecord
}

func (f *fakeLifecycle) DetectAndStore(_ context.Context, url string) (*models.FormSchema, *profiling.Data, error) {
	if f.detectErr != nil {
		return nil, nil, f.detectErr
	}
	return &models.FormSchema{
			ID:             "schema-1",
			URL:            url,
			DetectedAt:     time.Now().UTC(),
			CaptchaType:    types.CaptchaNone,
			SubmitSelector: models.DefaultSubmitSelector,
		}, &profiling.Data{
			Operation:       "form_detection",
			TotalDurationMs: 1234,
		}, nil
}

func (f *fakeLifecycle) UpdateFieldMappings(_ context.Context, schemaID string, req *models.FormMappingRequest) (*models.FormSchema, error) {
	return &models.FormSchema{ID: schemaID}, nil
}

func (f *fakeLifecycle) BatchApply(_ context.Context, req *models.BatchApplyRequest) ([]*models.ApplicationRecord, error) {
	if req.CandidateID == "" {
		return nil, apperrors.NewInvalidParameterError("batch request", "candidateId and urls are required")
	}
	return f.queued, nil
}

func (f *fakeLifecycle) Retry(_ context.Context, recordID string) (*models.ApplicationRecord, error) {
	if f.retryErr != nil {
		return nil, f.retryErr
	}
	return &models.ApplicationRecord{ID: recordID, Status: types.StatusPending, AttemptCount: 2}, nil
}

func (f *fakeLifecycle) ProfilingStats(_ context.Context, _ *storage.ApplicationFilters) (*lifecycle.ProfilingStats, error) {
	return &lifecycle.ProfilingStats{Count: 2, MinDurationMs: 100, AvgDurationMs: 150, MaxDurationMs: 200}, nil
}

type fakeRegistry struct {
	conn connectors.Connector
}

func (f *fakeRegistry) Get(source types.JobSource) (connectors.Connector, error) {
	if f.conn != nil && f.conn.Source() == source {
		return f.conn, nil
	}
	return nil, apperrors.NewInvalidParameterError("source", "unsupported job source")
}

func (f *fakeRegistry) Sources() []types.JobSource {
	return []types.JobSource{types.SourceBundesagentur}
}

type testServer struct {
	server       *Server
	lifecycle    *fakeLifecycle
	candidates   *storage.MemoryCandidateRepository
	applications *storage.MemoryApplicationRepository
	schemas      *storage.MemorySchemaRepository
}

func createTestServer(t *testing.T) *testServer {
	t.Helper()

	ts := &testServer{
		lifecycle:    &fakeLifecycle{},
		candidates:   storage.NewMemoryCandidateRepository(),
		applications: storage.NewMemoryApplicationRepository(),
		schemas:      storage.NewMemorySchemaRepository(),
	}
	ts.server = NewServer(
		&ServerConfig{Host: "127.0.0.1", Port: "0"},
		ts.lifecycle,
		ts.candidates,
		ts.schemas,
		ts.applications,
		&fakeRegistry{},
		zaptest.NewLogger(t),
	)
	return ts
}

func (ts *testServer) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.server.router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	ts := createTestServer(t)

	w := ts.do("GET", "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "form-autopilot")
}

func TestCreateCandidate(t *testing.T) {
	ts := createTestServer(t)

	w := ts.do("POST", "/api/candidates", map[string]interface{}{
		"name":  "Maria Schmidt",
		"email": "maria@example.com",
		"phone": "+49 170 1234567",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created models.Candidate
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Maria Schmidt", created.Name)
}

func TestCreateCandidate_Invalid(t *testing.T) {
	ts := createTestServer(t)

	tests := []struct {
		name string
		body interface{}
	}{
		{"missing name", map[string]interface{}{"email": "a@b.com"}},
		{"missing email", map[string]interface{}{"name": "Maria"}},
		{"unknown field", map[string]interface{}{"name": "Maria", "email": "a@b.com", "bogus": true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do("POST", "/api/candidates", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestGetCandidate_NotFound(t *testing.T) {
	ts := createTestServer(t)

	w := ts.do("GET", "/api/candidates/no-such-id", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDetectForm(t *testing.T) {
	ts := createTestServer(t)

	w := ts.do("POST", "/api/forms/detect", map[string]interface{}{
		"url": "https://jobs.example.com/apply",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp, "schema")
	assert.NotContains(t, resp, "profiling", "profiling omitted unless requested")
}

func TestDetectForm_WithProfiling(t *testing.T) {
	ts := createTestServer(t)

	w := ts.do("POST", "/api/forms/detect?enable_profiling=true", map[string]interface{}{
		"url": "https://jobs.example.com/apply",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp, "profiling")
}

func TestDetectForm_MissingURL(t *testing.T) {
	ts := createTestServer(t)

	w := ts.do("POST", "/api/forms/detect", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDetectForm_DetectionFailure(t *testing.T) {
	ts := createTestServer(t)
	ts.lifecycle.detectErr = apperrors.NewDetectionFailedError("https://down.example.com", assert.AnError)

	w := ts.do("POST", "/api/forms/detect", map[string]interface{}{
		"url": "https://down.example.com",
	})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "DETECTION_FAILED")
}

func TestBatchApply(t *testing.T) {
	ts := createTestServer(t)
	ts.lifecycle.queued = []*models.ApplicationRecord{
		{ID: "rec-1", Status: types.StatusPending, AttemptCount: 1},
		{ID: "rec-2", Status: types.StatusPending, AttemptCount: 1},
	}

	w := ts.do("POST", "/api/applications/batch", map[string]interface{}{
		"candidateId": "cand-1",
		"urls":        []string{"https://a.example.com", "https://b.example.com"},
		"autoDetect":  true,
	})
	require.Equal(t, http.StatusAccepted, w.Code)

	var resp struct {
		Queued    []models.ApplicationRecord `json:"queued"`
		Count     int                        `json:"count"`
		Requested int                        `json:"requested"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, 2, resp.Requested)
}

func TestBatchApply_MissingCandidate(t *testing.T) {
	ts := createTestServer(t)

	w := ts.do("POST", "/api/applications/batch", map[string]interface{}{
		"urls": []string{"https://a.example.com"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListApplications_StripsProfiling(t *testing.T) {
	ts := createTestServer(t)

	require.NoError(t, ts.applications.Create(context.Background(), &models.ApplicationRecord{
		CandidateID:  "cand-1",
		FormSchemaID: "schema-1",
		URL:          "https://a.example.com",
		Status:       types.StatusSubmitted,
		Profiling:    &profiling.Data{Operation: "form_filling", TotalDurationMs: 500},
	}))

	w := ts.do("GET", "/api/applications?candidateId=cand-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "form_filling")
}

func TestGetApplication_ProfilingToggle(t *testing.T) {
	ts := createTestServer(t)

	rec := &models.ApplicationRecord{
		CandidateID:  "cand-1",
		FormSchemaID: "schema-1",
		URL:          "https://a.example.com",
		Status:       types.StatusSubmitted,
		Profiling:    &profiling.Data{Operation: "form_filling", TotalDurationMs: 500},
	}
	require.NoError(t, ts.applications.Create(context.Background(), rec))

	w := ts.do("GET", "/api/applications/"+rec.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "form_filling")

	w = ts.do("GET", "/api/applications/"+rec.ID+"?include_profiling=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "form_filling")
}

func TestRetryApplication_CeilingRejection(t *testing.T) {
	ts := createTestServer(t)
	ts.lifecycle.retryErr = apperrors.NewRetryRejectedError("rec-1", 3, 3)

	w := ts.do("POST", "/api/applications/rec-1/retry", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "MAX_ATTEMPTS_EXCEEDED")
}

func TestProfilingStats(t *testing.T) {
	ts := createTestServer(t)

	w := ts.do("GET", "/api/analytics/profiling", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats lifecycle.ProfilingStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.Count)
	assert.Equal(t, 150.0, stats.AvgDurationMs)
}

func TestSearchJobs_RequiresSource(t *testing.T) {
	ts := createTestServer(t)

	w := ts.do("GET", "/api/jobs/search?what=Pflege", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
