// Package apperr defines the error kinds shared by every component and their
// translation to HTTP status codes and client-safe messages.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrAuthFailure       = errors.New("authentication failed")
	ErrInvalidAPIKey     = errors.New("invalid api key")
	ErrTokenInvalid      = errors.New("invalid token")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrDependencyTimeout = errors.New("dependency timeout")
	ErrDependency        = errors.New("dependency error")
	ErrInternal          = errors.New("internal error")
)

// Validation wraps ErrValidation with a message that is safe to show to clients.
func Validation(msg string) error {
	return &validationError{msg: msg}
}

type validationError struct {
	msg string
}

func (e *validationError) Error() string { return e.msg }

func (e *validationError) Unwrap() error { return ErrValidation }

// FromContext converts context deadline and cancellation errors into
// ErrDependencyTimeout. Other errors are returned untouched.
func FromContext(err error, dependency string) error {
	if err == nil || errors.Is(err, ErrDependencyTimeout) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w: %w", dependency, ErrDependencyTimeout, err)
	}
	return err
}

// Status maps an error to the HTTP status the outer layer responds with.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrAuthFailure), errors.Is(err, ErrInvalidAPIKey), errors.Is(err, ErrTokenInvalid):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrDependencyTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrDependency):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the generic text for err. Only validation errors carry
// their own message; everything else is reduced to its kind.
func PublicMessage(err error) string {
	var v *validationError
	switch {
	case errors.As(err, &v):
		return v.msg
	case errors.Is(err, ErrAuthFailure):
		return "invalid credentials"
	case errors.Is(err, ErrInvalidAPIKey):
		return "invalid api key"
	case errors.Is(err, ErrTokenInvalid):
		return "invalid or expired token"
	case errors.Is(err, ErrNotFound):
		return "not found"
	case errors.Is(err, ErrConflict):
		return "already exists"
	case errors.Is(err, ErrDependencyTimeout):
		return "upstream timeout"
	case errors.Is(err, ErrDependency):
		return "upstream unavailable"
	case errors.Is(err, ErrValidation):
		return "invalid request"
	default:
		return "internal server error"
	}
}
