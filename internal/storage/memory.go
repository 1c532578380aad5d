package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/form-autopilot/internal/models"
)

// In-memory repository implementations backing tests and single-process
// deployments that run without Postgres.

// MemoryCandidateRepository is an in-memory CandidateRepository
type MemoryCandidateRepository struct {
	mu         sync.RWMutex
	candidates map[string]*models.Candidate
}

// NewMemoryCandidateRepository creates an empty in-memory candidate repository
func NewMemoryCandidateRepository() *MemoryCandidateRepository {
	return &MemoryCandidateRepository{candidates: make(map[string]*models.Candidate)}
}

// Create stores a new candidate
func (r *MemoryCandidateRepository) Create(_ context.Context, candidate *models.Candidate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if candidate.ID == "" {
		candidate.ID = uuid.New().String()
	}
	if candidate.CreatedAt.IsZero() {
		candidate.CreatedAt = time.Now().UTC()
	}
	if _, exists := r.candidates[candidate.ID]; exists {
		return fmt.Errorf("candidate already exists: %s", candidate.ID)
	}

	clone := *candidate
	r.candidates[candidate.ID] = &clone
	return nil
}

// Get retrieves a candidate by ID; missing IDs return (nil, nil)
func (r *MemoryCandidateRepository) Get(_ context.Context, id string) (*models.Candidate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.candidates[id]
	if !ok {
		return nil, nil
	}
	clone := *c
	return &clone, nil
}

// List retrieves candidates newest-first with pagination
func (r *MemoryCandidateRepository) List(_ context.Context, limit, offset int) ([]*models.Candidate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*models.Candidate, 0, len(r.candidates))
	for _, c := range r.candidates {
		clone := *c
		all = append(all, &clone)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return paginate(all, limit, offset), nil
}

// Update replaces an existing candidate
func (r *MemoryCandidateRepository) Update(_ context.Context, candidate *models.Candidate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.candidates[candidate.ID]; !ok {
		return fmt.Errorf("candidate not found: %s", candidate.ID)
	}
	clone := *candidate
	r.candidates[candidate.ID] = &clone
	return nil
}

// Delete removes a candidate by ID
func (r *MemoryCandidateRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.candidates[id]; !ok {
		return fmt.Errorf("candidate not found: %s", id)
	}
	delete(r.candidates, id)
	return nil
}

// MemorySchemaRepository is an in-memory SchemaRepository
type MemorySchemaRepository struct {
	mu      sync.RWMutex
	schemas map[string]*models.FormSchema
}

// NewMemorySchemaRepository creates an empty in-memory schema repository
func NewMemorySchemaRepository() *MemorySchemaRepository {
	return &MemorySchemaRepository{schemas: make(map[string]*models.FormSchema)}
}

// Create stores a new schema
func (r *MemorySchemaRepository) Create(_ context.Context, schema *models.FormSchema) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if schema.ID == "" {
		schema.ID = uuid.New().String()
	}
	if _, exists := r.schemas[schema.ID]; exists {
		return fmt.Errorf("form schema already exists: %s", schema.ID)
	}
	r.schemas[schema.ID] = cloneSchema(schema)
	return nil
}

// Get retrieves a schema by ID; missing IDs return (nil, nil)
func (r *MemorySchemaRepository) Get(_ context.Context, id string) (*models.FormSchema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.schemas[id]
	if !ok {
		return nil, nil
	}
	return cloneSchema(s), nil
}

// GetByURL retrieves the most recently detected schema for a URL
func (r *MemorySchemaRepository) GetByURL(_ context.Context, url string) (*models.FormSchema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var newest *models.FormSchema
	for _, s := range r.schemas {
		if s.URL != url {
			continue
		}
		if newest == nil || s.DetectedAt.After(newest.DetectedAt) {
			newest = s
		}
	}
	if newest == nil {
		return nil, nil
	}
	return cloneSchema(newest), nil
}

// Update replaces an existing schema
func (r *MemorySchemaRepository) Update(_ context.Context, schema *models.FormSchema) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.schemas[schema.ID]; !ok {
		return fmt.Errorf("form schema not found: %s", schema.ID)
	}
	r.schemas[schema.ID] = cloneSchema(schema)
	return nil
}

// Delete removes a schema by ID
func (r *MemorySchemaRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.schemas[id]; !ok {
		return fmt.Errorf("form schema not found: %s", id)
	}
	delete(r.schemas, id)
	return nil
}

// MemoryApplicationRepository is an in-memory ApplicationRepository
type MemoryApplicationRepository struct {
	mu      sync.RWMutex
	records map[string]*models.ApplicationRecord
}

// NewMemoryApplicationRepository creates an empty in-memory application repository
func NewMemoryApplicationRepository() *MemoryApplicationRepository {
	return &MemoryApplicationRepository{records: make(map[string]*models.ApplicationRecord)}
}

// Create stores a new application record
func (r *MemoryApplicationRepository) Create(_ context.Context, record *models.ApplicationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	if _, exists := r.records[record.ID]; exists {
		return fmt.Errorf("application record already exists: %s", record.ID)
	}

	clone := *record
	r.records[record.ID] = &clone
	return nil
}

// Get retrieves a record by ID; missing IDs return (nil, nil)
func (r *MemoryApplicationRepository) Get(_ context.Context, id string) (*models.ApplicationRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, nil
	}
	clone := *rec
	return &clone, nil
}

// List retrieves records matching the filters, newest-first
func (r *MemoryApplicationRepository) List(_ context.Context, filters *ApplicationFilters) ([]*models.ApplicationRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*models.ApplicationRecord
	for _, rec := range r.records {
		if filters != nil {
			if filters.CandidateID != "" && rec.CandidateID != filters.CandidateID {
				continue
			}
			if filters.Status != "" && rec.Status != filters.Status {
				continue
			}
			if filters.BatchID != "" && rec.BatchID != filters.BatchID {
				continue
			}
		}
		clone := *rec
		matched = append(matched, &clone)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if filters != nil {
		return paginate(matched, filters.Limit, filters.Offset), nil
	}
	return matched, nil
}

// Update replaces an existing record
func (r *MemoryApplicationRepository) Update(_ context.Context, record *models.ApplicationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[record.ID]; !ok {
		return fmt.Errorf("application record not found: %s", record.ID)
	}
	record.UpdatedAt = time.Now().UTC()
	clone := *record
	r.records[record.ID] = &clone
	return nil
}

func cloneSchema(s *models.FormSchema) *models.FormSchema {
	clone := *s
	clone.Fields = make([]models.FormField, len(s.Fields))
	copy(clone.Fields, s.Fields)
	return &clone
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
