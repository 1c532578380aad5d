// Package types provides common type definitions for the form autopilot system.
package types

// FieldType represents the semantic classification of a form field
type FieldType string

const (
	// FieldEmail represents an email address input
	FieldEmail FieldType = "email"
	// FieldPhone represents a telephone number input
	FieldPhone FieldType = "phone"
	// FieldText represents a generic single-line text input
	FieldText FieldType = "text"
	// FieldLongText represents a multi-line text area
	FieldLongText FieldType = "long_text"
	// FieldCheckbox represents a checkbox input
	FieldCheckbox FieldType = "checkbox"
	// FieldDropdown represents a select element
	FieldDropdown FieldType = "dropdown"
	// FieldFileUpload represents a file input
	FieldFileUpload FieldType = "file_upload"
	// FieldFirstName represents a given-name input
	FieldFirstName FieldType = "first_name"
	// FieldLastName represents a family-name input
	FieldLastName FieldType = "last_name"
	// FieldDate represents a date input
	FieldDate FieldType = "date"
	// FieldUnknown represents a field that could not be classified
	FieldUnknown FieldType = "unknown"
)

// CaptchaType represents the CAPTCHA variant detected on a form
type CaptchaType string

const (
	// CaptchaRecaptchaV2 represents Google reCAPTCHA v2 (checkbox widget)
	CaptchaRecaptchaV2 CaptchaType = "reCAPTCHA_v2"
	// CaptchaRecaptchaV3 represents Google reCAPTCHA v3 (score-based)
	CaptchaRecaptchaV3 CaptchaType = "reCAPTCHA_v3"
	// CaptchaHcaptcha represents hCaptcha
	CaptchaHcaptcha CaptchaType = "hCaptcha"
	// CaptchaCloudflare represents Cloudflare Turnstile
	CaptchaCloudflare CaptchaType = "Cloudflare_Turnstile"
	// CaptchaNone means no CAPTCHA was detected
	CaptchaNone CaptchaType = "none"
)

// ApplicationStatus represents the lifecycle state of a submission attempt
type ApplicationStatus string

const (
	// StatusPending represents an attempt queued but not yet processed
	StatusPending ApplicationStatus = "pending"
	// StatusFilled represents a form filled but not yet submitted
	StatusFilled ApplicationStatus = "filled"
	// StatusCaptchaQuarantine represents a form blocked by a CAPTCHA
	StatusCaptchaQuarantine ApplicationStatus = "captcha_quarantine"
	// StatusSubmitted represents a submitted form without confirmed success
	StatusSubmitted ApplicationStatus = "submitted"
	// StatusFailed represents a failed attempt
	StatusFailed ApplicationStatus = "failed"
	// StatusSuccess represents a submission with a matched success indicator
	StatusSuccess ApplicationStatus = "success"
)

// ErrorType classifies attempt failures for retry decisions
type ErrorType string

const (
	// ErrorCaptcha means the form requires CAPTCHA solving, which is never attempted
	ErrorCaptcha ErrorType = "captcha"
	// ErrorValidation means candidate data could not satisfy required fields
	ErrorValidation ErrorType = "validation"
	// ErrorNetwork means navigation or detection failed at the network level
	ErrorNetwork ErrorType = "network"
	// ErrorFieldNotFound means a mapped field could not be filled on the live page
	ErrorFieldNotFound ErrorType = "field_not_found"
	// ErrorSubmitFailed means the submit action or post-submit wait errored
	ErrorSubmitFailed ErrorType = "submit_failed"
	// ErrorUnknown is the uncaught fallback classification
	ErrorUnknown ErrorType = "unknown"
)

// JobSource identifies a job board connector
type JobSource string

const (
	// SourceBundesagentur represents the German federal employment agency job board
	SourceBundesagentur JobSource = "bundesagentur"
	// SourceRemotive represents the Remotive remote-jobs API
	SourceRemotive JobSource = "remotive"
	// SourceRemoteOK represents the RemoteOK API
	SourceRemoteOK JobSource = "remoteok"
)

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}
