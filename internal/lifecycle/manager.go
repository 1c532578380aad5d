// Package lifecycle owns the application attempt state machine: schema
// resolution, batch orchestration, asynchronous fill dispatch, and retries.
package lifecycle

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/form-autopilot/internal/config"
	apperrors "github.com/form-autopilot/internal/errors"
	"github.com/form-autopilot/internal/logging"
	"github.com/form-autopilot/internal/models"
	"github.com/form-autopilot/internal/profiling"
	"github.com/form-autopilot/internal/storage"
	"github.com/form-autopilot/internal/types"
)

// Detector obtains a form schema from a live page
type Detector interface {
	Detect(ctx context.Context, url string) (*models.FormSchema, *profiling.Data, error)
}

// Filler fills and submits one form for one candidate
type Filler interface {
	FillAndSubmit(ctx context.Context, schema *models.FormSchema, candidate *models.Candidate) *models.ApplicationRecord
}

// Manager orchestrates application attempts. Batches are fire-and-forget:
// records are queued in pending state and converge to a terminal status as
// the asynchronous fill attempts complete.
type Manager struct {
	detector     Detector
	filler       Filler
	candidates   storage.CandidateRepository
	schemas      storage.SchemaRepository
	applications storage.ApplicationRepository
	cache        *storage.SchemaCache
	cfg          config.AutomationConfig
	logger       *zap.Logger

	sem chan struct{}
	wg  sync.WaitGroup
}

// NewManager creates a lifecycle manager. cache may be nil when Redis is
// not configured; schema reuse then falls back to the repository alone.
func NewManager(
	detector Detector,
	filler Filler,
	candidates storage.CandidateRepository,
	schemas storage.SchemaRepository,
	applications storage.ApplicationRepository,
	cache *storage.SchemaCache,
	cfg config.AutomationConfig,
	logger *zap.Logger,
) *Manager {
	concurrency := cfg.BatchConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Manager{
		detector:     detector,
		filler:       filler,
		candidates:   candidates,
		schemas:      schemas,
		applications: applications,
		cache:        cache,
		cfg:          cfg,
		logger:       logger,
		sem:          make(chan struct{}, concurrency),
	}
}

// DetectAndStore runs form detection against a URL and persists the
// resulting schema. Any existing cache entry for the URL is replaced.
func (m *Manager) DetectAndStore(ctx context.Context, url string) (*models.FormSchema, *profiling.Data, error) {
	schema, data, err := m.detector.Detect(ctx, url)
	if err != nil {
		return nil, data, err
	}

	schema.ID = uuid.New().String()
	if err := m.schemas.Create(ctx, schema); err != nil {
		return nil, data, apperrors.NewDatabaseError("store form schema", err)
	}
	m.cacheSchema(ctx, schema)
	return schema, data, nil
}

// ResolveSchema finds a usable schema for a URL: cache first, then the
// repository, then a fresh detection when autoDetect permits. Returns
// (nil, nil) when no schema exists and detection is not permitted.
func (m *Manager) ResolveSchema(ctx context.Context, url string, autoDetect bool) (*models.FormSchema, error) {
	logger := logging.FromContext(ctx)

	if m.cache != nil {
		schema, found, err := m.cache.Get(ctx, url)
		if err != nil {
			logger.Warn("schema cache read failed", zap.Error(err))
		} else if found {
			return schema, nil
		}
	}

	schema, err := m.schemas.GetByURL(ctx, url)
	if err != nil {
		return nil, apperrors.NewDatabaseError("load form schema", err)
	}
	if schema != nil {
		m.cacheSchema(ctx, schema)
		return schema, nil
	}

	if !autoDetect {
		return nil, nil
	}

	schema, _, err = m.DetectAndStore(ctx, url)
	return schema, err
}

// UpdateFieldMappings applies manual field-mapping corrections to a stored
// schema. Corrected fields are flagged user-confirmed so later detections
// do not silently overwrite them.
func (m *Manager) UpdateFieldMappings(ctx context.Context, schemaID string, req *models.FormMappingRequest) (*models.FormSchema, error) {
	schema, err := m.schemas.Get(ctx, schemaID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("load form schema", err)
	}
	if schema == nil {
		return nil, apperrors.NewNotFoundError("form schema", schemaID)
	}

	for i := range schema.Fields {
		mapped, ok := req.FieldMappings[schema.Fields[i].Name]
		if !ok {
			continue
		}
		schema.Fields[i].InferredCandidateField = mapped
		schema.Fields[i].UserConfirmed = true
	}

	if err := m.schemas.Update(ctx, schema); err != nil {
		return nil, apperrors.NewDatabaseError("update form schema", err)
	}
	m.cacheSchema(ctx, schema)
	return schema, nil
}

// BatchApply queues one application per target URL for a candidate and
// returns the pending records immediately. URLs with no schema on record
// are detected fresh when req.AutoDetect is set, otherwise skipped.
func (m *Manager) BatchApply(ctx context.Context, req *models.BatchApplyRequest) ([]*models.ApplicationRecord, error) {
	logger := logging.FromContext(ctx)

	if req.CandidateID == "" || len(req.URLs) == 0 {
		return nil, apperrors.NewInvalidParameterError("batch request", "candidateId and urls are required")
	}

	candidate, err := m.candidates.Get(ctx, req.CandidateID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("load candidate", err)
	}
	if candidate == nil {
		return nil, apperrors.NewNotFoundError("candidate", req.CandidateID)
	}

	batchID := uuid.New().String()
	var queued []*models.ApplicationRecord

	for _, url := range req.URLs {
		schema, err := m.ResolveSchema(ctx, url, req.AutoDetect)
		if err != nil {
			logger.Warn("skipping url, schema resolution failed",
				zap.String("url", url), zap.Error(err))
			continue
		}
		if schema == nil {
			logger.Info("skipping url, no schema on record and auto-detect disabled",
				zap.String("url", url))
			continue
		}

		record := &models.ApplicationRecord{
			ID:           uuid.New().String(),
			CandidateID:  candidate.ID,
			FormSchemaID: schema.ID,
			URL:          url,
			Status:       types.StatusPending,
			AttemptCount: 1,
			MaxAttempts:  m.maxAttempts(),
			BatchID:      batchID,
		}
		if err := m.applications.Create(ctx, record); err != nil {
			return nil, apperrors.NewDatabaseError("create application record", err)
		}

		queued = append(queued, record)
		m.dispatch(record, schema, candidate)
	}

	logger.Info("batch queued",
		zap.String("batchId", batchID),
		zap.Int("queued", len(queued)),
		zap.Int("requested", len(req.URLs)))
	return queued, nil
}

// Retry re-queues a fill attempt for a failed record. Requests beyond the
// attempt ceiling, or on records that are terminal for automation, are
// rejected without state change.
func (m *Manager) Retry(ctx context.Context, recordID string) (*models.ApplicationRecord, error) {
	record, err := m.applications.Get(ctx, recordID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("load application record", err)
	}
	if record == nil {
		return nil, apperrors.NewNotFoundError("application record", recordID)
	}

	switch record.Status {
	case types.StatusSuccess, types.StatusCaptchaQuarantine:
		return nil, apperrors.NewInvalidParameterError("id",
			fmt.Sprintf("record in status %s cannot be retried", record.Status))
	}
	if !apperrors.IsRetryable(record.ErrorType) {
		return nil, apperrors.NewInvalidParameterError("id",
			fmt.Sprintf("%s failures repeat identically and cannot be retried", record.ErrorType))
	}
	if !record.CanRetry() {
		return nil, apperrors.NewRetryRejectedError(recordID, record.AttemptCount, record.MaxAttempts)
	}

	candidate, err := m.candidates.Get(ctx, record.CandidateID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("load candidate", err)
	}
	if candidate == nil {
		return nil, apperrors.NewNotFoundError("candidate", record.CandidateID)
	}

	schema, err := m.schemas.Get(ctx, record.FormSchemaID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("load form schema", err)
	}
	if schema == nil {
		return nil, apperrors.NewNotFoundError("form schema", record.FormSchemaID)
	}

	record.Status = types.StatusPending
	record.AttemptCount++
	record.LastError = ""
	record.ErrorType = ""
	record.RequiresManualAction = false
	record.ManualActionType = ""
	if err := m.applications.Update(ctx, record); err != nil {
		return nil, apperrors.NewDatabaseError("update application record", err)
	}

	m.dispatch(record, schema, candidate)
	return record, nil
}

// Wait blocks until all in-flight fill attempts have completed. Called on
// shutdown and by tests that need batch outcomes to settle.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// dispatch hands a pending record to the filler on its own goroutine,
// bounded by the configured batch concurrency. The attempt runs detached
// from the request context: the batch caller has already returned. The
// caller keeps the record it was handed and may still be serializing it,
// so the attempt works on a private copy and publishes its outcome through
// the repository only.
func (m *Manager) dispatch(record *models.ApplicationRecord, schema *models.FormSchema, candidate *models.Candidate) {
	stored := *record
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.sem <- struct{}{}
		defer func() { <-m.sem }()

		ctx := logging.WithLogger(context.Background(), m.logger)
		result := m.filler.FillAndSubmit(ctx, schema, candidate)
		m.mergeResult(ctx, &stored, result)
	}()
}

// mergeResult folds a fill outcome into the stored record. The stored
// identity fields (ID, attempt count, batch) are authoritative; the result
// carries only the outcome of this attempt.
func (m *Manager) mergeResult(ctx context.Context, record *models.ApplicationRecord, result *models.ApplicationRecord) {
	record.Status = result.Status
	record.LastError = result.LastError
	record.ErrorType = result.ErrorType
	record.SubmittedAt = result.SubmittedAt
	record.ScreenshotPath = result.ScreenshotPath
	record.FormDataSubmitted = result.FormDataSubmitted
	record.RequiresManualAction = result.RequiresManualAction
	record.ManualActionType = result.ManualActionType
	record.Profiling = result.Profiling

	if err := m.applications.Update(ctx, record); err != nil {
		m.logger.Error("failed to persist fill outcome",
			zap.String("recordId", record.ID), zap.Error(err))
	}
}

func (m *Manager) cacheSchema(ctx context.Context, schema *models.FormSchema) {
	if m.cache == nil {
		return
	}
	if err := m.cache.Set(ctx, schema); err != nil {
		logging.FromContext(ctx).Warn("schema cache write failed", zap.Error(err))
	}
}

func (m *Manager) maxAttempts() int {
	if m.cfg.MaxAttempts > 0 {
		return m.cfg.MaxAttempts
	}
	return models.DefaultMaxAttempts
}
