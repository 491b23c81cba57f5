// Package apperr defines the error kinds the API surfaces to clients and maps
// them to HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds. Match with errors.Is.
var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrSlotUnavailable   = errors.New("slot unavailable")
	ErrInvalidSlot       = errors.New("invalid slot")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrRateLimited       = errors.New("too many requests")
)

// Error carries a client-safe message alongside its kind.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

// New returns an error of the given kind with a client-safe message.
func New(kind error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Validation builds a formatted ErrValidation.
func Validation(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Msg: fmt.Sprintf(format, args...)}
}

// HTTPStatus maps an error to its status code. Unknown errors are 500.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidSlot):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrSlotUnavailable):
		return http.StatusConflict
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message safe to send to clients. Errors without a
// known kind never leak their text.
func PublicMessage(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Msg
	}
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrSlotUnavailable), errors.Is(err, ErrInvalidSlot), errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrRateLimited):
		return err.Error()
	}
	return "internal server error"
}
