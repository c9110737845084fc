package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel kinds for the request path. Wrap them with fmt.Errorf("%w: ...")
// so handlers can map any error back to a status with Status.
var (
	ErrNotFound     = fmt.Errorf("not found")
	ErrForbidden    = fmt.Errorf("forbidden")
	ErrBadRequest   = fmt.Errorf("bad request")
	ErrConflict     = fmt.Errorf("conflict")
	ErrUnauthorized = fmt.Errorf("unauthorized")
	ErrInternal     = fmt.Errorf("internal error")
)

func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrNotFound}, args...)...)
}

func Forbidden(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrForbidden}, args...)...)
}

func BadRequest(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrBadRequest}, args...)...)
}

func Conflict(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrConflict}, args...)...)
}

func Internal(err error) error {
	return fmt.Errorf("%w: %w", ErrInternal, err)
}

// Status maps an error to its HTTP status code. Unrecognized errors count as
// internal faults.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
