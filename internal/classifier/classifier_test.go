package classifier

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	"github.com/form-autopilot/internal/models"
	"github.com/form-autopilot/internal/types"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		fieldName   string
		htmlType    string
		placeholder string
		label       string
		want        types.FieldType
	}{
		{"native email type wins", "kontakt", "email", "", "", types.FieldEmail},
		{"native tel type wins over email keyword", "email_phone", "tel", "", "", types.FieldPhone},
		{"native file type", "anhang", "file", "", "", types.FieldFileUpload},
		{"native checkbox type", "agb", "checkbox", "", "", types.FieldCheckbox},
		{"native date type", "startdatum", "date", "", "", types.FieldDate},
		{"email keyword in name", "user_email", "text", "", "", types.FieldEmail},
		{"email keyword beats phone keyword", "phone", "email", "", "", types.FieldEmail},
		{"german vorname", "vorname", "text", "", "", types.FieldFirstName},
		{"german nachname", "nachname", "text", "", "", types.FieldLastName},
		{"keyword from placeholder", "f1", "text", "Telefonnummer", "", types.FieldPhone},
		{"keyword from label", "f2", "text", "", "Lebenslauf hochladen", types.FieldFileUpload},
		{"table order breaks keyword ties", "first_name_file", "text", "", "", types.FieldFirstName},
		{"textarea fallback", "nachricht", "textarea", "", "", types.FieldLongText},
		{"select fallback", "bundesland", "select", "", "", types.FieldDropdown},
		{"plain text fallback", "kennziffer", "text", "", "", types.FieldText},
		{"case insensitive", "VORNAME", "TEXT", "", "", types.FieldFirstName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.fieldName, tt.htmlType, tt.placeholder, tt.label)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInferCandidateField(t *testing.T) {
	tests := []struct {
		fieldType types.FieldType
		want      string
	}{
		{types.FieldEmail, "candidate.email"},
		{types.FieldPhone, "candidate.phone"},
		{types.FieldFirstName, "candidate.first_name"},
		{types.FieldLastName, "candidate.last_name"},
		{types.FieldFileUpload, "candidate.cv_file"},
		{types.FieldLongText, "candidate.motivation"},
		{types.FieldText, models.UnknownCandidateField},
		{types.FieldCheckbox, models.UnknownCandidateField},
		{types.FieldDropdown, models.UnknownCandidateField},
		{types.FieldDate, models.UnknownCandidateField},
	}

	for _, tt := range tests {
		t.Run(string(tt.fieldType), func(t *testing.T) {
			assert.Equal(t, tt.want, InferCandidateField(tt.fieldType))
		})
	}
}

func TestClassifyProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	// Property: classification is a pure function of its inputs
	properties.Property("classification is deterministic", prop.ForAll(
		func(name, htmlType, placeholder, label string) bool {
			first := Classify(name, htmlType, placeholder, label)
			second := Classify(name, htmlType, placeholder, label)
			return first == second
		},
		gen.AlphaString(),
		gen.AlphaString(),
		gen.AlphaString(),
		gen.AlphaString(),
	))

	// Property: input casing never changes the outcome
	properties.Property("classification is case insensitive", prop.ForAll(
		func(name, htmlType string) bool {
			lower := Classify(strings.ToLower(name), strings.ToLower(htmlType), "", "")
			upper := Classify(strings.ToUpper(name), strings.ToUpper(htmlType), "", "")
			return lower == upper
		},
		gen.AlphaString(),
		gen.AlphaString(),
	))

	// Property: every inferred path targets the candidate namespace
	properties.Property("inferred paths stay in the candidate namespace", prop.ForAll(
		func(name, htmlType string) bool {
			fieldType := Classify(name, htmlType, "", "")
			return strings.HasPrefix(InferCandidateField(fieldType), "candidate.")
		},
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
