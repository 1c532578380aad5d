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
)

// PostgresCandidateRepository persists candidates in Postgres
type PostgresCandidateRepository struct {
	db *PostgresDB
}

// NewPostgresCandidateRepository creates a new candidate repository
func NewPostgresCandidateRepository(db *PostgresDB) *PostgresCandidateRepository {
	return &PostgresCandidateRepository{db: db}
}

// Create creates a new candidate record
func (r *PostgresCandidateRepository) Create(ctx context.Context, candidate *models.Candidate) error {
	if candidate.ID == "" {
		candidate.ID = uuid.New().String()
	}
	if candidate.CreatedAt.IsZero() {
		candidate.CreatedAt = time.Now().UTC()
	}

	metadata, err := json.Marshal(candidate.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal candidate metadata: %w", err)
	}

	query := `
		INSERT INTO candidates (
			id, name, first_name, last_name, email, phone, cv_file,
			certifications, languages, motivation, metadata, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = r.db.Pool().Exec(ctx, query,
		candidate.ID,
		candidate.Name,
		candidate.FirstName,
		candidate.LastName,
		candidate.Email,
		candidate.Phone,
		candidate.CVFile,
		candidate.Certifications,
		candidate.Languages,
		candidate.Motivation,
		metadata,
		candidate.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create candidate: %w", err)
	}
	return nil
}

// Get retrieves a candidate by ID
func (r *PostgresCandidateRepository) Get(ctx context.Context, id string) (*models.Candidate, error) {
	query := `
		SELECT id, name, first_name, last_name, email, phone, cv_file,
			   certifications, languages, motivation, metadata, created_at
		FROM candidates
		WHERE id = $1
	`

	var c models.Candidate
	var metadata []byte
	err := r.db.Pool().QueryRow(ctx, query, id).Scan(
		&c.ID,
		&c.Name,
		&c.FirstName,
		&c.LastName,
		&c.Email,
		&c.Phone,
		&c.CVFile,
		&c.Certifications,
		&c.Languages,
		&c.Motivation,
		&metadata,
		&c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found, return nil without error
		}
		return nil, fmt.Errorf("failed to get candidate: %w", err)
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &c.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal candidate metadata: %w", err)
		}
	}
	return &c, nil
}

// List retrieves candidates with pagination
func (r *PostgresCandidateRepository) List(ctx context.Context, limit, offset int) ([]*models.Candidate, error) {
	query := `
		SELECT id, name, first_name, last_name, email, phone, cv_file,
			   certifications, languages, motivation, metadata, created_at
		FROM candidates
		ORDER BY created_at DESC
	`
	args := []any{}
	argPos := 1

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argPos)
		args = append(args, limit)
		argPos++
	}
	if offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argPos)
		args = append(args, offset)
	}

	rows, err := r.db.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	defer rows.Close()

	var candidates []*models.Candidate
	for rows.Next() {
		var c models.Candidate
		var metadata []byte
		err := rows.Scan(
			&c.ID,
			&c.Name,
			&c.FirstName,
			&c.LastName,
			&c.Email,
			&c.Phone,
			&c.CVFile,
			&c.Certifications,
			&c.Languages,
			&c.Motivation,
			&metadata,
			&c.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &c.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal candidate metadata: %w", err)
			}
		}
		candidates = append(candidates, &c)
	}
	return candidates, rows.Err()
}

// Update updates an existing candidate
func (r *PostgresCandidateRepository) Update(ctx context.Context, candidate *models.Candidate) error {
	metadata, err := json.Marshal(candidate.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal candidate metadata: %w", err)
	}

	query := `
		UPDATE candidates
		SET name = $2, first_name = $3, last_name = $4, email = $5, phone = $6,
			cv_file = $7, certifications = $8, languages = $9, motivation = $10,
			metadata = $11
		WHERE id = $1
	`

	result, err := r.db.Pool().Exec(ctx, query,
		candidate.ID,
		candidate.Name,
		candidate.FirstName,
		candidate.LastName,
		candidate.Email,
		candidate.Phone,
		candidate.CVFile,
		candidate.Certifications,
		candidate.Languages,
		candidate.Motivation,
		metadata,
	)
	if err != nil {
		return fmt.Errorf("failed to update candidate: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("candidate not found: %s", candidate.ID)
	}
	return nil
}

// Delete deletes a candidate by ID
func (r *PostgresCandidateRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Pool().Exec(ctx, `DELETE FROM candidates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete candidate: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("candidate not found: %s", id)
	}
	return nil
}
