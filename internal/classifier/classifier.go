// Package classifier assigns semantic field types to raw form elements.
// Classification is a pure function of the element attributes so detection
// runs are reproducible.
package classifier

import (
	"strings"

	"github.com/form-autopilot/internal/models"
	"github.com/form-autopilot/internal/types"
)

// classification pairs a semantic type with the keywords that suggest it.
// Order matters: the first matching entry wins when several keywords hit.
type classification struct {
	fieldType types.FieldType
	keywords  []string
}

// classifications is scanned in order after the native HTML type check.
// Keywords cover English and German form conventions.
var classifications = []classification{
	{types.FieldEmail, []string{"email", "mail"}},
	{types.FieldPhone, []string{"phone", "mobile", "tel", "telefon"}},
	{types.FieldFirstName, []string{"first", "fname", "vorname"}},
	{types.FieldLastName, []string{"last", "lname", "surname", "nachname"}},
	{types.FieldFileUpload, []string{"file", "cv", "resume", "lebenslauf", "upload"}},
	{types.FieldCheckbox, []string{"checkbox"}},
	{types.FieldDropdown, []string{"select"}},
}

// candidatePaths maps a semantic type to the candidate attribute path it
// auto-fills from. Types absent here resolve to the unknown sentinel.
var candidatePaths = map[types.FieldType]string{
	types.FieldEmail:      "candidate.email",
	types.FieldPhone:      "candidate.phone",
	types.FieldFirstName:  "candidate.first_name",
	types.FieldLastName:   "candidate.last_name",
	types.FieldFileUpload: "candidate.cv_file",
	types.FieldLongText:   "candidate.motivation",
}

// Classify returns the semantic type for a form element. The native HTML
// type is authoritative; keyword heuristics over name, placeholder and
// label text break remaining ties in table order; element kind decides the
// fallback.
func Classify(name, htmlType, placeholder, label string) types.FieldType {
	nameLower := strings.ToLower(name)
	htmlTypeLower := strings.ToLower(htmlType)
	placeholderLower := strings.ToLower(placeholder)
	labelLower := strings.ToLower(label)

	switch htmlTypeLower {
	case "email":
		return types.FieldEmail
	case "tel":
		return types.FieldPhone
	case "file":
		return types.FieldFileUpload
	case "checkbox":
		return types.FieldCheckbox
	case "date":
		return types.FieldDate
	}

	for _, c := range classifications {
		for _, keyword := range c.keywords {
			if strings.Contains(nameLower, keyword) ||
				strings.Contains(placeholderLower, keyword) ||
				strings.Contains(labelLower, keyword) {
				return c.fieldType
			}
		}
	}

	switch htmlTypeLower {
	case "textarea":
		return types.FieldLongText
	case "select":
		return types.FieldDropdown
	}

	return types.FieldText
}

// InferCandidateField maps a classified type to the dotted candidate
// attribute path, or the unknown sentinel when the field cannot be
// auto-filled.
func InferCandidateField(fieldType types.FieldType) string {
	if path, ok := candidatePaths[fieldType]; ok {
		return path
	}
	return models.UnknownCandidateField
}
