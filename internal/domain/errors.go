package domain

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

var (
	// ErrAuthRequired is returned for authenticated operations while no
	// session is established.
	ErrAuthRequired = errors.New("authentication required")

	// ErrAlreadyCredited reports that the ledger has already credited the
	// transaction hash. Callers treat it as a successful terminal outcome.
	ErrAlreadyCredited = errors.New("transaction already credited")
)

// ValidationError rejects malformed input before any network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// AuthError covers invalid credentials and expired or revoked tokens.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("auth error (status %d): %s", e.StatusCode, e.Message)
	}
	return "auth error: " + e.Message
}

// TransientError covers network faults and server-side (5xx) failures.
// Only retried where a call is explicitly declared retryable.
type TransientError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *TransientError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transient error (status %d): %s", e.StatusCode, e.Message)
	}
	return "transient error: " + e.Message
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsAuthError reports whether err classifies as an authentication failure.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// IsTransient reports whether err is worth retrying. Network-level errors
// without an HTTP status classify as transient.
func IsTransient(err error) bool {
	var transientErr *TransientError
	if errors.As(err, &transientErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "connection reset")
}

// IsValidation reports whether err is a local input-validation failure.
func IsValidation(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}
