package common

import (
	"errors"
	"net/http"
	"strconv"
)

var (

	// crypto errors
	ErrAuthentication = errors.New("authentication failed")

	// remote errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrNetwork      = errors.New("network error")

	// login flow errors
	ErrStateMismatch = errors.New("state mismatch")
	ErrInvalidToken  = errors.New("invalid token")

	// transfer errors
	ErrCancelled = errors.New("cancelled")

	// local store errors
	ErrLocalDataNotAvailable = errors.New("local data not available")
	ErrVersionConflict       = errors.New("version conflict")

	// server side errors
	ErrInternal   = errors.New("internal error")
	ErrValidation = errors.New("validation error")
	ErrForbidden  = errors.New("forbidden")
)

// StatusCode returns the HTTP-like code a UI shows for err, or an empty
// string when err does not map to one.
func StatusCode(err error) string {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return strconv.Itoa(http.StatusUnauthorized)
	case errors.Is(err, ErrNotFound):
		return strconv.Itoa(http.StatusNotFound)
	}
	return ""
}

// IsReportable reports whether err should be surfaced as a failure.
// Cancellation is an outcome the user asked for.
func IsReportable(err error) bool {
	return err != nil && !errors.Is(err, ErrCancelled)
}
