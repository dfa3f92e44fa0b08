package errors

import (
	"fmt"
	"net/http"
)

// APIError represents a custom error type for API responses
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"` // implicated argument, if any
	Status  int    `json:"-"`
	Details string `json:"details,omitempty"`
}

// Error returns the error message
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAPIError(code, message string, status int, details ...string) *APIError {
	err := &APIError{
		Code:    code,
		Message: message,
		Status:  status,
	}
	if len(details) > 0 {
		err.Details = details[0]
	}
	return err
}

// NewValidationError reports a schema, length or uniqueness violation on the
// named argument.
func NewValidationError(field, message string) *APIError {
	return &APIError{
		Code:    "VALIDATION_ERROR",
		Message: message,
		Field:   field,
		Status:  http.StatusBadRequest,
	}
}

// NewNotFound reports a missing entity referenced by the named argument.
func NewNotFound(field, message string) *APIError {
	return &APIError{
		Code:    "NOT_FOUND",
		Message: message,
		Field:   field,
		Status:  http.StatusNotFound,
	}
}

var (
	ErrInvalidInput    = NewAPIError("INVALID_INPUT", "Invalid request data", http.StatusBadRequest)
	ErrUnauthenticated = NewAPIError("UNAUTHENTICATED", "Not authenticated", http.StatusUnauthorized)
	ErrInternal        = NewAPIError("INTERNAL_SERVER_ERROR", "Internal server error", http.StatusInternalServerError)

	ErrSelfReference    = &APIError{Code: "SELF_REFERENCE", Message: "Cannot befriend yourself", Field: "id", Status: http.StatusBadRequest}
	ErrAlreadyFriends   = &APIError{Code: "ALREADY_FRIENDS", Message: "User is already in friends list", Field: "id", Status: http.StatusConflict}
	ErrDuplicateRequest = &APIError{Code: "DUPLICATE_REQUEST", Message: "Cannot make more than one friend request to the same user", Field: "id", Status: http.StatusConflict}

	// Deliberately identical for unknown user and wrong password.
	ErrCredentialMismatch = NewAPIError("CREDENTIAL_MISMATCH", "Username or password invalid", http.StatusUnauthorized)
)

func Wrap(err error, code, message string, status int) *APIError {
	if apiErr, ok := err.(*APIError); ok {
		return apiErr
	}
	return NewAPIError(code, message, status, err.Error())
}
