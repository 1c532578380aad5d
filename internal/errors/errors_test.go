package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/form-autopilot/internal/types"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		errorType types.ErrorType
		retryable bool
	}{
		{types.ErrorNetwork, true},
		{types.ErrorSubmitFailed, true},
		{types.ErrorFieldNotFound, true},
		{types.ErrorUnknown, true},
		{"", true}, // never attempted
		{types.ErrorCaptcha, false},
		{types.ErrorValidation, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.retryable, IsRetryable(tt.errorType), "error type %q", tt.errorType)
	}
}

func TestCategorize(t *testing.T) {
	catErr := Categorize(NewNotFoundError("candidate", "cand-1"))
	require.NotNil(t, catErr)
	assert.Equal(t, CategoryNotFound, catErr.Category)
	assert.Equal(t, http.StatusNotFound, catErr.StatusCode)

	// Plain errors fall back to an internal categorization.
	catErr = Categorize(errors.New("boom"))
	require.NotNil(t, catErr)
	assert.Equal(t, CategorySystem, catErr.Category)
	assert.Equal(t, http.StatusInternalServerError, catErr.StatusCode)

	assert.Nil(t, Categorize(nil))
}

func TestCategorizedError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewDetectionFailedError("https://jobs.example.com/apply", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "DETECTION_FAILED")
}
