package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/form-autopilot/internal/models"
	"github.com/form-autopilot/internal/profiling"
)

// PostgresApplicationRepository persists application records in Postgres
type PostgresApplicationRepository struct {
	db *PostgresDB
}

// NewPostgresApplicationRepository creates a new application repository
func NewPostgresApplicationRepository(db *PostgresDB) *PostgresApplicationRepository {
	return &PostgresApplicationRepository{db: db}
}

// Create creates a new application record
func (r *PostgresApplicationRepository) Create(ctx context.Context, record *models.ApplicationRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	formData, profilingData, err := marshalRecordBlobs(record)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO application_records (
			id, candidate_id, form_schema_id, url, status, attempt_count,
			max_attempts, last_error, error_type, submitted_at, screenshot_path,
			form_data_submitted, requires_manual_action, manual_action_type,
			batch_id, profiling, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	_, err = r.db.Pool().Exec(ctx, query,
		record.ID,
		record.CandidateID,
		record.FormSchemaID,
		record.URL,
		record.Status,
		record.AttemptCount,
		record.MaxAttempts,
		record.LastError,
		record.ErrorType,
		record.SubmittedAt,
		record.ScreenshotPath,
		formData,
		record.RequiresManualAction,
		record.ManualActionType,
		record.BatchID,
		profilingData,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create application record: %w", err)
	}
	return nil
}

// Get retrieves an application record by ID
func (r *PostgresApplicationRepository) Get(ctx context.Context, id string) (*models.ApplicationRecord, error) {
	query := selectApplicationColumns + ` WHERE id = $1`

	row := r.db.Pool().QueryRow(ctx, query, id)
	record, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found, return nil without error
		}
		return nil, fmt.Errorf("failed to get application record: %w", err)
	}
	return record, nil
}

// List retrieves application records with optional filters and pagination
func (r *PostgresApplicationRepository) List(ctx context.Context, filters *ApplicationFilters) ([]*models.ApplicationRecord, error) {
	query := selectApplicationColumns + ` WHERE 1=1`
	args := []any{}
	argPos := 1

	if filters != nil {
		if filters.CandidateID != "" {
			query += fmt.Sprintf(" AND candidate_id = $%d", argPos)
			args = append(args, filters.CandidateID)
			argPos++
		}
		if filters.Status != "" {
			query += fmt.Sprintf(" AND status = $%d", argPos)
			args = append(args, filters.Status)
			argPos++
		}
		if filters.BatchID != "" {
			query += fmt.Sprintf(" AND batch_id = $%d", argPos)
			args = append(args, filters.BatchID)
			argPos++
		}
	}

	query += " ORDER BY created_at DESC"

	if filters != nil {
		if filters.Limit > 0 {
			query += fmt.Sprintf(" LIMIT $%d", argPos)
			args = append(args, filters.Limit)
			argPos++
		}
		if filters.Offset > 0 {
			query += fmt.Sprintf(" OFFSET $%d", argPos)
			args = append(args, filters.Offset)
		}
	}

	rows, err := r.db.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list application records: %w", err)
	}
	defer rows.Close()

	var records []*models.ApplicationRecord
	for rows.Next() {
		record, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan application record: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Update updates an existing application record
func (r *PostgresApplicationRepository) Update(ctx context.Context, record *models.ApplicationRecord) error {
	record.UpdatedAt = time.Now().UTC()

	formData, profilingData, err := marshalRecordBlobs(record)
	if err != nil {
		return err
	}

	query := `
		UPDATE application_records
		SET status = $2, attempt_count = $3, max_attempts = $4, last_error = $5,
			error_type = $6, submitted_at = $7, screenshot_path = $8,
			form_data_submitted = $9, requires_manual_action = $10,
			manual_action_type = $11, batch_id = $12, profiling = $13,
			updated_at = $14
		WHERE id = $1
	`

	result, err := r.db.Pool().Exec(ctx, query,
		record.ID,
		record.Status,
		record.AttemptCount,
		record.MaxAttempts,
		record.LastError,
		record.ErrorType,
		record.SubmittedAt,
		record.ScreenshotPath,
		formData,
		record.RequiresManualAction,
		record.ManualActionType,
		record.BatchID,
		profilingData,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update application record: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("application record not found: %s", record.ID)
	}
	return nil
}

const selectApplicationColumns = `
	SELECT id, candidate_id, form_schema_id, url, status, attempt_count,
		   max_attempts, last_error, error_type, submitted_at, screenshot_path,
		   form_data_submitted, requires_manual_action, manual_action_type,
		   batch_id, profiling, created_at, updated_at
	FROM application_records
`

func marshalRecordBlobs(record *models.ApplicationRecord) (formData, profilingData []byte, err error) {
	if record.FormDataSubmitted != nil {
		formData, err = json.Marshal(record.FormDataSubmitted)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal submitted form data: %w", err)
		}
	}
	if record.Profiling != nil {
		profilingData, err = json.Marshal(record.Profiling)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal profiling data: %w", err)
		}
	}
	return formData, profilingData, nil
}

func scanApplication(row pgx.Row) (*models.ApplicationRecord, error) {
	var rec models.ApplicationRecord
	var formData, profilingData []byte

	err := row.Scan(
		&rec.ID,
		&rec.CandidateID,
		&rec.FormSchemaID,
		&rec.URL,
		&rec.Status,
		&rec.AttemptCount,
		&rec.MaxAttempts,
		&rec.LastError,
		&rec.ErrorType,
		&rec.SubmittedAt,
		&rec.ScreenshotPath,
		&formData,
		&rec.RequiresManualAction,
		&rec.ManualActionType,
		&rec.BatchID,
		&profilingData,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(formData) > 0 {
		if err := json.Unmarshal(formData, &rec.FormDataSubmitted); err != nil {
			return nil, fmt.Errorf("failed to unmarshal submitted form data: %w", err)
		}
	}
	if len(profilingData) > 0 {
		rec.Profiling = &profiling.Data{}
		if err := json.Unmarshal(profilingData, rec.Profiling); err != nil {
			return nil, fmt.Errorf("failed to unmarshal profiling data: %w", err)
		}
	}
	return &rec, nil
}
