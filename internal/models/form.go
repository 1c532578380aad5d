package models

import (
	"time"

	"github.com/form-autopilot/internal/types"
)

// UnknownCandidateField is the sentinel inferred path for fields that
// cannot be auto-filled.
const UnknownCandidateField = "candidate.unknown"

// DefaultSubmitSelector is the fallback submit locator when discovery
// finds nothing.
const DefaultSubmitSelector = "button[type='submit']"

// FormField represents one detected input element and its classification
type FormField struct {
	Selector               string          `json:"selector" db:"selector"`
	Name                   string          `json:"name" db:"name"`
	HTMLType               string          `json:"htmlType" db:"html_type"`
	FieldType              types.FieldType `json:"fieldType" db:"field_type"`
	Required               bool            `json:"required" db:"required"`
	Placeholder            string          `json:"placeholder,omitempty" db:"placeholder"`
	LabelText              string          `json:"labelText,omitempty" db:"label_text"`
	InferredCandidateField string          `json:"inferredCandidateField" db:"inferred_candidate_field"`
	UserConfirmed          bool            `json:"userConfirmed" db:"user_confirmed"`
}

// FormSchema represents the learned structure of one web form
type FormSchema struct {
	ID               string            `json:"id" db:"id"`
	URL              string            `json:"url" db:"url"`
	DetectedAt       time.Time         `json:"detectedAt" db:"detected_at"`
	LastVerified     time.Time         `json:"lastVerified" db:"last_verified"`
	Fields           []FormField       `json:"fields" db:"fields"`
	CaptchaType      types.CaptchaType `json:"captchaType" db:"captcha_type"`
	SubmitSelector   string            `json:"submitSelector" db:"submit_selector"`
	IsMultistep      bool              `json:"isMultistep" db:"is_multistep"`
	SuccessIndicator string            `json:"successIndicator,omitempty" db:"success_indicator"`
	FormType         string            `json:"formType,omitempty" db:"form_type"`
}

// HasCaptcha reports whether the schema carries any CAPTCHA marker
func (s *FormSchema) HasCaptcha() bool {
	return s.CaptchaType != "" && s.CaptchaType != types.CaptchaNone
}
