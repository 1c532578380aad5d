package lifecycle

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/form-autopilot/internal/config"
	apperrors "github.com/form-autopilot/internal/errors"
	"github.com/form-autopilot/internal/models"
	"github.com/form-autopilot/internal/profiling"
	"github.com/form-autopilot/internal/storage"
	"github.com/form-autopilot/internal/types"
)

type fakeDetector struct {
	calls  atomic.Int32
	err    error
	schema func(url string) *models.FormSchema
}

func (d *fakeDetector) Detect(_ context.Context, url string) (*models.FormSchema, *profiling.Data, error) {
	d.calls.Add(1)
	if d.err != nil {
		return nil, nil, d.err
	}
	if d.schema != nil {
		return d.schema(url), nil, nil
	}
	return &models.FormSchema{
		URL:            url,
		DetectedAt:     time.Now().UTC(),
		CaptchaType:    types.CaptchaNone,
		SubmitSelector: models.DefaultSubmitSelector,
	}, nil, nil
}

type fakeFiller struct {
	mu     sync.Mutex
	filled []string
	status types.ApplicationStatus
}

func (f *fakeFiller) FillAndSubmit(_ context.Context, schema *models.FormSchema, _ *models.Candidate) *models.ApplicationRecord {
	f.mu.Lock()
	f.filled = append(f.filled, schema.URL)
	f.mu.Unlock()

	status := f.status
	if status == "" {
		status = types.StatusSubmitted
	}
	now := time.Now().UTC()
	return &models.ApplicationRecord{
		Status:      status,
		SubmittedAt: &now,
	}
}

type testEnv struct {
	manager      *Manager
	detector     *fakeDetector
	filler       *fakeFiller
	candidates   *storage.MemoryCandidateRepository
	schemas      *storage.MemorySchemaRepository
	applications *storage.MemoryApplicationRepository
}

func setupManager(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		detector:     &fakeDetector{},
		filler:       &fakeFiller{},
		candidates:   storage.NewMemoryCandidateRepository(),
		schemas:      storage.NewMemorySchemaRepository(),
		applications: storage.NewMemoryApplicationRepository(),
	}
	env.manager = NewManager(
		env.detector,
		env.filler,
		env.candidates,
		env.schemas,
		env.applications,
		nil,
		config.AutomationConfig{MaxAttempts: 3, BatchConcurrency: 4},
		zaptest.NewLogger(t),
	)
	return env
}

func seedCandidate(t *testing.T, env *testEnv) *models.Candidate {
	t.Helper()
	candidate := &models.Candidate{
		Name:  "Maria Schmidt",
		Email: "maria@example.com",
		Phone: "+49 170 1234567",
	}
	require.NoError(t, env.candidates.Create(context.Background(), candidate))
	return candidate
}

func TestBatchApply_ReusesStoredSchema(t *testing.T) {
	env := setupManager(t)
	ctx := context.Background()
	candidate := seedCandidate(t, env)

	// One URL already has a detected schema on record.
	known := &models.FormSchema{
		URL:            "https://known.example.com/apply",
		DetectedAt:     time.Now().UTC(),
		SubmitSelector: models.DefaultSubmitSelector,
	}
	require.NoError(t, env.schemas.Create(ctx, known))

	queued, err := env.manager.BatchApply(ctx, &models.BatchApplyRequest{
		CandidateID: candidate.ID,
		URLs:        []string{"https://known.example.com/apply", "https://new.example.com/apply"},
		AutoDetect:  true,
	})
	require.NoError(t, err)
	env.manager.Wait()

	assert.Len(t, queued, 2)
	assert.Equal(t, int32(1), env.detector.calls.Load(), "only the new URL should be detected")

	for _, rec := range queued {
		assert.Equal(t, 1, rec.AttemptCount)
		assert.NotEmpty(t, rec.BatchID)

		stored, err := env.applications.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, types.StatusSubmitted, stored.Status)
	}
}

func TestBatchApply_SkipsUnknownURLWithoutAutoDetect(t *testing.T) {
	env := setupManager(t)
	ctx := context.Background()
	candidate := seedCandidate(t, env)

	queued, err := env.manager.BatchApply(ctx, &models.BatchApplyRequest{
		CandidateID: candidate.ID,
		URLs:        []string{"https://unknown.example.com/apply"},
		AutoDetect:  false,
	})
	require.NoError(t, err)
	env.manager.Wait()

	assert.Empty(t, queued, "unattempted urls are skipped, not recorded")
	assert.Equal(t, int32(0), env.detector.calls.Load())

	records, err := env.applications.List(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestBatchApply_ReturnedRecordsStableWhileFillsRun(t *testing.T) {
	env := setupManager(t)
	ctx := context.Background()
	candidate := seedCandidate(t, env)

	urls := []string{"https://a.example.com/apply", "https://b.example.com/apply"}
	for _, url := range urls {
		require.NoError(t, env.schemas.Create(ctx, &models.FormSchema{
			URL:            url,
			DetectedAt:     time.Now().UTC(),
			SubmitSelector: models.DefaultSubmitSelector,
		}))
	}

	queued, err := env.manager.BatchApply(ctx, &models.BatchApplyRequest{
		CandidateID: candidate.ID,
		URLs:        urls,
	})
	require.NoError(t, err)
	require.Len(t, queued, 2)

	// Encode the queued records while the fills are still in flight, the
	// same way the HTTP handler serializes its response.
	done := make(chan struct{})
	go func() {
		env.manager.Wait()
		close(done)
	}()
	for settled := false; !settled; {
		_, err := json.Marshal(queued)
		require.NoError(t, err)
		select {
		case <-done:
			settled = true
		default:
		}
	}

	for _, rec := range queued {
		assert.Equal(t, types.StatusPending, rec.Status,
			"queued records are snapshots; outcomes land in the store")
		stored, err := env.applications.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, types.StatusSubmitted, stored.Status)
	}
}

func TestBatchApply_CandidateNotFound(t *testing.T) {
	env := setupManager(t)

	_, err := env.manager.BatchApply(context.Background(), &models.BatchApplyRequest{
		CandidateID: "missing",
		URLs:        []string{"https://a.example.com"},
	})
	require.Error(t, err)

	var catErr *apperrors.CategorizedError
	require.ErrorAs(t, err, &catErr)
	assert.Equal(t, apperrors.CategoryNotFound, catErr.Category)
}

func TestBatchApply_SkipsURLWhenDetectionFails(t *testing.T) {
	env := setupManager(t)
	ctx := context.Background()
	candidate := seedCandidate(t, env)
	env.detector.err = apperrors.NewDetectionFailedError("https://broken.example.com", assert.AnError)

	queued, err := env.manager.BatchApply(ctx, &models.BatchApplyRequest{
		CandidateID: candidate.ID,
		URLs:        []string{"https://broken.example.com"},
		AutoDetect:  true,
	})
	require.NoError(t, err)
	assert.Empty(t, queued)
}

func TestRetry_ResetsAndIncrements(t *testing.T) {
	env := setupManager(t)
	ctx := context.Background()
	candidate := seedCandidate(t, env)

	schema := &models.FormSchema{
		URL:            "https://jobs.example.com/apply",
		SubmitSelector: models.DefaultSubmitSelector,
	}
	require.NoError(t, env.schemas.Create(ctx, schema))

	record := &models.ApplicationRecord{
		CandidateID:  candidate.ID,
		FormSchemaID: schema.ID,
		URL:          schema.URL,
		Status:       types.StatusFailed,
		AttemptCount: 1,
		MaxAttempts:  3,
		LastError:    "submit click failed",
		ErrorType:    types.ErrorSubmitFailed,
	}
	require.NoError(t, env.applications.Create(ctx, record))

	retried, err := env.manager.Retry(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, retried.AttemptCount)
	assert.Empty(t, retried.LastError)

	env.manager.Wait()

	// The caller's record is a snapshot of the re-queued state.
	assert.Equal(t, types.StatusPending, retried.Status)

	stored, err := env.applications.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusSubmitted, stored.Status)
	assert.Equal(t, 2, stored.AttemptCount)
}

func TestRetry_RejectedForValidationFailure(t *testing.T) {
	env := setupManager(t)
	ctx := context.Background()
	candidate := seedCandidate(t, env)

	record := &models.ApplicationRecord{
		CandidateID:  candidate.ID,
		FormSchemaID: "schema-1",
		URL:          "https://jobs.example.com/apply",
		Status:       types.StatusFailed,
		AttemptCount: 1,
		MaxAttempts:  3,
		ErrorType:    types.ErrorValidation,
		LastError:    "required field not mapped: kennziffer",
	}
	require.NoError(t, env.applications.Create(ctx, record))

	_, err := env.manager.Retry(ctx, record.ID)
	require.Error(t, err)

	var catErr *apperrors.CategorizedError
	require.ErrorAs(t, err, &catErr)
	assert.Equal(t, apperrors.CategoryValidation, catErr.Category)

	// The same candidate data would fail the same mapping again; nothing
	// may change on the record.
	stored, err := env.applications.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusFailed, stored.Status)
	assert.Equal(t, 1, stored.AttemptCount)
}

func TestRetry_RejectedAtCeiling(t *testing.T) {
	env := setupManager(t)
	ctx := context.Background()
	candidate := seedCandidate(t, env)

	record := &models.ApplicationRecord{
		CandidateID:  candidate.ID,
		FormSchemaID: "schema-1",
		URL:          "https://jobs.example.com/apply",
		Status:       types.StatusFailed,
		AttemptCount: 3,
		MaxAttempts:  3,
	}
	require.NoError(t, env.applications.Create(ctx, record))

	_, err := env.manager.Retry(ctx, record.ID)
	require.Error(t, err)

	var catErr *apperrors.CategorizedError
	require.ErrorAs(t, err, &catErr)
	assert.Equal(t, "MAX_ATTEMPTS_EXCEEDED", catErr.Code)

	// State must be unchanged after rejection.
	stored, err := env.applications.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusFailed, stored.Status)
	assert.Equal(t, 3, stored.AttemptCount)
}

func TestRetry_RejectedForTerminalStatus(t *testing.T) {
	env := setupManager(t)
	ctx := context.Background()
	candidate := seedCandidate(t, env)

	for _, status := range []types.ApplicationStatus{types.StatusSuccess, types.StatusCaptchaQuarantine} {
		record := &models.ApplicationRecord{
			CandidateID:  candidate.ID,
			FormSchemaID: "schema-1",
			URL:          "https://jobs.example.com/apply",
			Status:       status,
			AttemptCount: 1,
			MaxAttempts:  3,
		}
		require.NoError(t, env.applications.Create(ctx, record))

		_, err := env.manager.Retry(ctx, record.ID)
		assert.Error(t, err, "status %s must not be retryable", status)
	}
}

func TestUpdateFieldMappings(t *testing.T) {
	env := setupManager(t)
	ctx := context.Background()

	schema := &models.FormSchema{
		URL: "https://jobs.example.com/apply",
		Fields: []models.FormField{
			{Name: "kontakt", FieldType: types.FieldText, InferredCandidateField: models.UnknownCandidateField},
			{Name: "email", FieldType: types.FieldEmail, InferredCandidateField: "candidate.email"},
		},
		SubmitSelector: models.DefaultSubmitSelector,
	}
	require.NoError(t, env.schemas.Create(ctx, schema))

	updated, err := env.manager.UpdateFieldMappings(ctx, schema.ID, &models.FormMappingRequest{
		FieldMappings: map[string]string{"kontakt": "candidate.phone"},
	})
	require.NoError(t, err)

	assert.Equal(t, "candidate.phone", updated.Fields[0].InferredCandidateField)
	assert.True(t, updated.Fields[0].UserConfirmed)
	assert.Equal(t, "candidate.email", updated.Fields[1].InferredCandidateField)
	assert.False(t, updated.Fields[1].UserConfirmed)
}

func TestProfilingStats(t *testing.T) {
	env := setupManager(t)
	ctx := context.Background()

	durations := []float64{100, 300, 200}
	for _, d := range durations {
		rec := &models.ApplicationRecord{
			CandidateID:  "cand-1",
			FormSchemaID: "schema-1",
			URL:          "https://jobs.example.com/apply",
			Status:       types.StatusSubmitted,
			Profiling:    &profiling.Data{Operation: "form_filling", TotalDurationMs: d},
		}
		require.NoError(t, env.applications.Create(ctx, rec))
	}
	// One unprofiled record must not count.
	require.NoError(t, env.applications.Create(ctx, &models.ApplicationRecord{
		CandidateID: "cand-1", FormSchemaID: "schema-1",
		URL: "https://jobs.example.com/apply", Status: types.StatusFailed,
	}))

	stats, err := env.manager.ProfilingStats(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Count)
	assert.Equal(t, 100.0, stats.MinDurationMs)
	assert.Equal(t, 300.0, stats.MaxDurationMs)
	assert.Equal(t, 200.0, stats.AvgDurationMs)
}
