package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Common error types for the gateway
var (
	// Configuration errors
	ErrMissingConfig = errors.New("missing required configuration")

	// Service identity errors
	ErrServiceAuth      = errors.New("service authentication failed")
	ErrNotAuthenticated = errors.New("no refresh token available, must authenticate first")

	// Session errors
	ErrUnauthorized    = errors.New("unauthorized")
	ErrSessionNotFound = errors.New("session not found")

	// Token errors
	ErrRefreshFailed = errors.New("token refresh failed")

	// General errors
	ErrNotFound = errors.New("not found")
	ErrInternal = errors.New("internal error")
)

// ValidationError reports a payload that failed shape validation at a trust
// boundary: upstream API responses, cache reads, registration payloads.
type ValidationError struct {
	Subject string   // what was being validated, e.g. "token", "user"
	Reasons []string // one entry per failed constraint
}

func NewValidationError(subject string, reasons ...string) *ValidationError {
	return &ValidationError{Subject: subject, Reasons: reasons}
}

func (e *ValidationError) Error() string {
	if len(e.Reasons) == 0 {
		return fmt.Sprintf("invalid %s", e.Subject)
	}
	return fmt.Sprintf("invalid %s: %s", e.Subject, strings.Join(e.Reasons, "; "))
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
