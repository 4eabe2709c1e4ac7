package errors

import (
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	err := New(ErrCodeValidationFailed, "body must not be empty")
	assert.Equal(t, "VALIDATION_FAILED: body must not be empty", err.Error())

	cause := stderrors.New("disk full")
	wrapped := Wrap(cause, ErrCodePersistence, "save failed")
	assert.Equal(t, "PERSISTENCE: save failed: disk full", wrapped.Error())
}

func TestAppError_Unwrap(t *testing.T) {
	cause := stderrors.New("root cause")
	err := Wrap(cause, ErrCodeInternalError, "wrapped")

	assert.ErrorIs(t, err, cause)
	assert.Nil(t, New(ErrCodeInternalError, "no cause").Unwrap())
}

func TestAppError_WithContext(t *testing.T) {
	err := New(ErrCodeValidationFailed, "bad field").
		WithContext("field", "body").
		WithContext("length", 0)

	require.NotNil(t, err.Context)
	assert.Equal(t, "body", err.Context["field"])
	assert.Equal(t, 0, err.Context["length"])
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrCodeTimeout, GetCode(New(ErrCodeTimeout, "slow")))
	assert.Equal(t, ErrCodeInternalError, GetCode(stderrors.New("plain")))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(WrapRetryable(stderrors.New("x"), ErrCodeDatabaseConnection, "retry me")))
	assert.False(t, IsRetryable(New(ErrCodeValidationFailed, "never")))
	assert.False(t, IsRetryable(stderrors.New("plain")))
}

func TestGetUserMessage(t *testing.T) {
	err := New(ErrCodeValidationFailed, "internal detail").WithUserMessage("Please check your input")
	assert.Equal(t, "Please check your input", GetUserMessage(err))

	assert.Equal(t, "An internal error occurred", GetUserMessage(stderrors.New("plain")))
	assert.Equal(t, "An internal error occurred", GetUserMessage(New(ErrCodeInternalError, "no user message")))
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("body", "must not be empty")
	assert.Equal(t, ErrCodeValidationFailed, err.Code)
	assert.Equal(t, "body", err.Context["field"])
	assert.Contains(t, err.UserMessage, "body")
}

func TestNewAuthorizationError(t *testing.T) {
	cause := stderrors.New("not a member")
	err := NewAuthorizationError("u1", "channel:c1", cause)

	assert.Equal(t, ErrCodeAuthorization, err.Code)
	assert.Equal(t, "channel:c1", err.Context["room"])
	assert.ErrorIs(t, err, cause)
}

func TestNewTimeoutError(t *testing.T) {
	err := NewTimeoutError("message send", "10s")
	assert.Equal(t, ErrCodeTimeout, err.Code)
	assert.Contains(t, err.Message, "10s")
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"validation", New(ErrCodeValidationFailed, "x"), http.StatusBadRequest},
		{"invalid input", New(ErrCodeInvalidInput, "x"), http.StatusBadRequest},
		{"authorization", New(ErrCodeAuthorization, "x"), http.StatusForbidden},
		{"not found", New(ErrCodeNotFound, "x"), http.StatusNotFound},
		{"timeout", New(ErrCodeTimeout, "x"), http.StatusGatewayTimeout},
		{"persistence", New(ErrCodePersistence, "x"), http.StatusInternalServerError},
		{"plain error", stderrors.New("x"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HTTPStatus(tt.err))
		})
	}
}
