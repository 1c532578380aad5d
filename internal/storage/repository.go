package storage

import (
	"context"

	"github.com/form-autopilot/internal/models"
	"github.com/form-autopilot/internal/types"
)

// CandidateRepository handles candidate persistence
type CandidateRepository interface {
	Create(ctx context.Context, candidate *models.Candidate) error
	Get(ctx context.Context, id string) (*models.Candidate, error)
	List(ctx context.Context, limit, offset int) ([]*models.Candidate, error)
	Update(ctx context.Context, candidate *models.Candidate) error
	Delete(ctx context.Context, id string) error
}

// SchemaRepository handles form schema persistence. Schemas are keyed by ID
// and additionally resolvable by source URL so batch runs can reuse an
// earlier detection of the same form.
type SchemaRepository interface {
	Create(ctx context.Context, schema *models.FormSchema) error
	Get(ctx context.Context, id string) (*models.FormSchema, error)
	GetByURL(ctx context.Context, url string) (*models.FormSchema, error)
	Update(ctx context.Context, schema *models.FormSchema) error
	Delete(ctx context.Context, id string) error
}

// ApplicationFilters defines filters for listing application records
type ApplicationFilters struct {
	CandidateID string
	Status      types.ApplicationStatus
	BatchID     string
	Limit       int
	Offset      int
}

// ApplicationRepository handles application record persistence
type ApplicationRepository interface {
	Create(ctx context.Context, record *models.ApplicationRecord) error
	Get(ctx context.Context, id string) (*models.ApplicationRecord, error)
	List(ctx context.Context, filters *ApplicationFilters) ([]*models.ApplicationRecord, error)
	Update(ctx context.Context, record *models.ApplicationRecord) error
}
