// Package apperr defines the error kinds shared by services and their mapping to
// HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

var (
	// ErrValidation marks malformed or insufficient input.
	ErrValidation = errors.New("validation failed")
	// ErrConflict marks a violated uniqueness invariant or two disagreeing identities.
	ErrConflict = errors.New("conflict")
	// ErrNotFound marks a referenced record that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAuth marks a credential that failed verification.
	ErrAuth = errors.New("authentication failed")
	// ErrForbidden marks an authenticated caller acting on a resource it does not own.
	ErrForbidden = errors.New("forbidden")
	// ErrStore marks a failure of the underlying data store.
	ErrStore = errors.New("store failure")
)

// Validation wraps ErrValidation with a caller-facing message.
func Validation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// Conflict wraps ErrConflict with a caller-facing message.
func Conflict(msg string) error {
	return fmt.Errorf("%w: %s", ErrConflict, msg)
}

// NotFound wraps ErrNotFound with a caller-facing message.
func NotFound(msg string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, msg)
}

// Auth wraps ErrAuth with a caller-facing message.
func Auth(msg string) error {
	return fmt.Errorf("%w: %s", ErrAuth, msg)
}

// Forbidden wraps ErrForbidden with a caller-facing message.
func Forbidden(msg string) error {
	return fmt.Errorf("%w: %s", ErrForbidden, msg)
}

// Store wraps a data-store failure. The original error stays reachable through
// errors.Is / errors.As.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}

// Status maps an error to its HTTP status code.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// HTTP converts a service error into a fiber error. Store and unknown failures
// get an opaque message so internals do not leak to callers.
func HTTP(err error) *fiber.Error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe
	}
	status := Status(err)
	if status == http.StatusInternalServerError {
		return fiber.NewError(status, "internal server error")
	}
	return fiber.NewError(status, err.Error())
}
