package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/form-autopilot/internal/models"
)

// PostgresSchemaRepository persists form schemas in Postgres. Field lists
// are stored as JSONB since their shape follows the schema model, not a
// relational access pattern.
type PostgresSchemaRepository struct {
	db *PostgresDB
}

// NewPostgresSchemaRepository creates a new schema repository
func NewPostgresSchemaRepository(db *PostgresDB) *PostgresSchemaRepository {
	return &PostgresSchemaRepository{db: db}
}

// Create creates a new form schema record
func (r *PostgresSchemaRepository) Create(ctx context.Context, schema *models.FormSchema) error {
	if schema.ID == "" {
		schema.ID = uuid.New().String()
	}

	fields, err := json.Marshal(schema.Fields)
	if err != nil {
		return fmt.Errorf("failed to marshal schema fields: %w", err)
	}

	query := `
		INSERT INTO form_schemas (
			id, url, detected_at, last_verified, fields, captcha_type,
			submit_selector, is_multistep, success_indicator, form_type
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = r.db.Pool().Exec(ctx, query,
		schema.ID,
		schema.URL,
		schema.DetectedAt,
		schema.LastVerified,
		fields,
		schema.CaptchaType,
		schema.SubmitSelector,
		schema.IsMultistep,
		schema.SuccessIndicator,
		schema.FormType,
	)
	if err != nil {
		return fmt.Errorf("failed to create form schema: %w", err)
	}
	return nil
}

// Get retrieves a form schema by ID
func (r *PostgresSchemaRepository) Get(ctx context.Context, id string) (*models.FormSchema, error) {
	return r.getOne(ctx, `WHERE id = $1`, id)
}

// GetByURL retrieves the most recently detected schema for a URL
func (r *PostgresSchemaRepository) GetByURL(ctx context.Context, url string) (*models.FormSchema, error) {
	return r.getOne(ctx, `WHERE url = $1 ORDER BY detected_at DESC LIMIT 1`, url)
}

func (r *PostgresSchemaRepository) getOne(ctx context.Context, clause string, arg any) (*models.FormSchema, error) {
	query := `
		SELECT id, url, detected_at, last_verified, fields, captcha_type,
			   submit_selector, is_multistep, success_indicator, form_type
		FROM form_schemas
	` + clause

	var s models.FormSchema
	var fields []byte
	err := r.db.Pool().QueryRow(ctx, query, arg).Scan(
		&s.ID,
		&s.URL,
		&s.DetectedAt,
		&s.LastVerified,
		&fields,
		&s.CaptchaType,
		&s.SubmitSelector,
		&s.IsMultistep,
		&s.SuccessIndicator,
		&s.FormType,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found, return nil without error
		}
		return nil, fmt.Errorf("failed to get form schema: %w", err)
	}

	if len(fields) > 0 {
		if err := json.Unmarshal(fields, &s.Fields); err != nil {
			return nil, fmt.Errorf("failed to unmarshal schema fields: %w", err)
		}
	}
	return &s, nil
}

// Update updates an existing form schema
func (r *PostgresSchemaRepository) Update(ctx context.Context, schema *models.FormSchema) error {
	fields, err := json.Marshal(schema.Fields)
	if err != nil {
		return fmt.Errorf("failed to marshal schema fields: %w", err)
	}

	query := `
		UPDATE form_schemas
		SET url = $2, detected_at = $3, last_verified = $4, fields = $5,
			captcha_type = $6, submit_selector = $7, is_multistep = $8,
			success_indicator = $9, form_type = $10
		WHERE id = $1
	`

	result, err := r.db.Pool().Exec(ctx, query,
		schema.ID,
		schema.URL,
		schema.DetectedAt,
		schema.LastVerified,
		fields,
		schema.CaptchaType,
		schema.SubmitSelector,
		schema.IsMultistep,
		schema.SuccessIndicator,
		schema.FormType,
	)
	if err != nil {
		return fmt.Errorf("failed to update form schema: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("form schema not found: %s", schema.ID)
	}
	return nil
}

// Delete deletes a form schema by ID
func (r *PostgresSchemaRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Pool().Exec(ctx, `DELETE FROM form_schemas WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete form schema: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("form schema not found: %s", id)
	}
	return nil
}
