package errors

import (
	"fmt"
	"net/http"
)

// Common error creators for the chat pipeline

// NewValidationError creates a validation error with field context
func NewValidationError(field, message string) *AppError {
	return New(ErrCodeValidationFailed, message).
		WithContext("field", field).
		WithUserMessage(fmt.Sprintf("Invalid %s: %s", field, message))
}

// NewAuthorizationError creates an authorization error for a room access check
func NewAuthorizationError(userID, room string, cause error) *AppError {
	return Wrap(cause, ErrCodeAuthorization, "sender is not a member of the target room").
		WithContext("room", room).
		WithUserMessage("You do not have access to this conversation")
}

// NewPersistenceError creates a storage error with operation context
func NewPersistenceError(operation string, err error) *AppError {
	return Wrap(err, ErrCodePersistence, fmt.Sprintf("storage %s failed", operation)).
		WithContext("operation", operation).
		WithUserMessage("Message could not be saved")
}

// NewDeliveryError records a broadcast fan-out failure for one connection.
// Delivery errors never propagate to the sending client.
func NewDeliveryError(socketID string, err error) *AppError {
	return Wrap(err, ErrCodeDeliveryFailed, "broadcast delivery failed").
		WithContext("socket_id", socketID)
}

// NewTimeoutError creates a timeout error with context
func NewTimeoutError(operation string, timeout string) *AppError {
	return New(ErrCodeTimeout, fmt.Sprintf("%s timed out after %s", operation, timeout)).
		WithContext("operation", operation).
		WithContext("timeout", timeout).
		WithUserMessage("Operation timed out, please try again")
}

// NewConfigError creates a configuration error
func NewConfigError(key, message string) *AppError {
	return New(ErrCodeInvalidConfig, message).
		WithContext("config_key", key).
		WithUserMessage("Configuration error")
}

// HTTPStatus maps an error to the HTTP status used by the send API envelope.
func HTTPStatus(err error) int {
	switch GetCode(err) {
	case ErrCodeValidationFailed, ErrCodeInvalidInput:
		return http.StatusBadRequest
	case ErrCodeAuthorization:
		return http.StatusForbidden
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
