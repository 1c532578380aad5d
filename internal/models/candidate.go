// Package models provides data models for the form autopilot system.
package models

import "time"

// Candidate represents an applicant profile available for autofilling forms.
// A candidate is owned by the caller and referenced, not copied, by each
// fill attempt.
type Candidate struct {
	ID             string                 `json:"id" db:"id"`
	Name           string                 `json:"name" db:"name"`
	FirstName      string                 `json:"firstName,omitempty" db:"first_name"`
	LastName       string                 `json:"lastName,omitempty" db:"last_name"`
	Email          string                 `json:"email" db:"email"`
	Phone          string                 `json:"phone" db:"phone"`
	CVFile         string                 `json:"cvFile" db:"cv_file"` // path to the CV document
	Certifications []string               `json:"certifications,omitempty" db:"certifications"`
	Languages      []string               `json:"languages,omitempty" db:"languages"`
	Motivation     string                 `json:"motivation,omitempty" db:"motivation"`
	Metadata       map[string]interface{} `json:"metadata,omitempty" db:"metadata"`
	CreatedAt      time.Time              `json:"createdAt" db:"created_at"`
}

// Attribute resolves a candidate attribute by the name used in inferred
// field paths ("candidate.<attr>"). The mapping is a closed set; unknown
// names return ok=false so callers can treat the field as unmappable.
func (c *Candidate) Attribute(name string) (string, bool) {
	switch name {
	case "name":
		return c.Name, c.Name != ""
	case "first_name":
		return c.FirstName, c.FirstName != ""
	case "last_name":
		return c.LastName, c.LastName != ""
	case "email":
		return c.Email, c.Email != ""
	case "phone":
		return c.Phone, c.Phone != ""
	case "cv_file":
		return c.CVFile, c.CVFile != ""
	case "motivation":
		return c.Motivation, c.Motivation != ""
	default:
		return "", false
	}
}
