package models

import (
	"time"

	"github.com/form-autopilot/internal/profiling"
	"github.com/form-autopilot/internal/types"
)

// DefaultMaxAttempts bounds automatic retries per application
const DefaultMaxAttempts = 3

// ManualActionCaptcha marks records quarantined behind a CAPTCHA
const ManualActionCaptcha = "captcha"

// ApplicationRecord tracks a single form submission attempt
type ApplicationRecord struct {
	ID                   string                  `json:"id" db:"id"`
	CandidateID          string                  `json:"candidateId" db:"candidate_id"`
	FormSchemaID         string                  `json:"formSchemaId" db:"form_schema_id"`
	URL                  string                  `json:"url" db:"url"`
	Status               types.ApplicationStatus `json:"status" db:"status"`
	AttemptCount         int                     `json:"attemptCount" db:"attempt_count"`
	MaxAttempts          int                     `json:"maxAttempts" db:"max_attempts"`
	LastError            string                  `json:"lastError,omitempty" db:"last_error"`
	ErrorType            types.ErrorType         `json:"errorType,omitempty" db:"error_type"`
	SubmittedAt          *time.Time              `json:"submittedAt,omitempty" db:"submitted_at"`
	ScreenshotPath       string                  `json:"screenshotPath,omitempty" db:"screenshot_path"`
	FormDataSubmitted    map[string]string       `json:"formDataSubmitted,omitempty" db:"form_data_submitted"`
	RequiresManualAction bool                    `json:"requiresManualAction" db:"requires_manual_action"`
	ManualActionType     string                  `json:"manualActionType,omitempty" db:"manual_action_type"`
	BatchID              string                  `json:"batchId,omitempty" db:"batch_id"`
	Profiling            *profiling.Data         `json:"profiling,omitempty" db:"profiling"`
	CreatedAt            time.Time               `json:"createdAt" db:"created_at"`
	UpdatedAt            time.Time               `json:"updatedAt" db:"updated_at"`
}

// CanRetry reports whether another automatic attempt is allowed
func (r *ApplicationRecord) CanRetry() bool {
	max := r.MaxAttempts
	if max == 0 {
		max = DefaultMaxAttempts
	}
	return r.AttemptCount < max
}

// BatchApplyRequest asks the lifecycle manager to apply to multiple forms
type BatchApplyRequest struct {
	CandidateID string   `json:"candidateId"`
	URLs        []string `json:"urls"`
	AutoDetect  bool     `json:"autoDetect"`
}

// FormMappingRequest carries manual field-mapping corrections for a schema
type FormMappingRequest struct {
	FieldMappings map[string]string `json:"fieldMappings"` // field name -> "candidate.<attr>"
	Notes         string            `json:"notes,omitempty"`
}
