// Package apperr defines the error kinds the API reports to callers.
//
// Every error returned from the services layer is either an *Error or is
// treated as a backend failure. Handlers map the kind to an HTTP status.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindAuthentication    Kind = "authentication"
	KindForbidden         Kind = "forbidden"
	KindNotFound          Kind = "not_found"
	KindValidation        Kind = "validation"
	KindConflict          Kind = "conflict"
	KindInvalidTransition Kind = "invalid_transition"
	KindBackend           Kind = "backend"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
	// Details are extra fields rendered next to the message in API responses.
	Details map[string]any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// WithDetail returns a copy of e carrying key=value in its Details.
func (e *Error) WithDetail(key string, value any) *Error {
	cp := *e
	cp.Details = make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		cp.Details[k] = v
	}
	cp.Details[key] = value
	return &cp
}

// Is matches any *Error of the same kind, so errors.Is(err, apperr.ErrConflict) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Details == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrAuthentication    = &Error{Kind: KindAuthentication}
	ErrForbidden         = &Error{Kind: KindForbidden}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrValidation        = &Error{Kind: KindValidation}
	ErrConflict          = &Error{Kind: KindConflict}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition}
	ErrBackend           = &Error{Kind: KindBackend}
)

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Authentication(format string, args ...any) *Error {
	return newf(KindAuthentication, format, args...)
}

func Forbidden(format string, args ...any) *Error { return newf(KindForbidden, format, args...) }

func NotFound(format string, args ...any) *Error { return newf(KindNotFound, format, args...) }

func Validation(format string, args ...any) *Error { return newf(KindValidation, format, args...) }

func Conflict(format string, args ...any) *Error { return newf(KindConflict, format, args...) }

func InvalidTransition(format string, args ...any) *Error {
	return newf(KindInvalidTransition, format, args...)
}

// Backend wraps a storage or broker failure.
func Backend(err error, msg string) *Error {
	return &Error{Kind: KindBackend, Message: msg, Err: err}
}

// DetailsOf returns the details attached to err, if any.
func DetailsOf(err error) map[string]any {
	var e *Error
	if errors.As(err, &e) {
		return e.Details
	}
	return nil
}

// KindOf returns the kind of err; anything that is not an *Error is a backend failure.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindBackend
}

func HTTPStatus(kind Kind) int {
	switch kind {
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindInvalidTransition:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the text safe to return to a client. Backend details stay in the logs.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindBackend {
		return e.Message
	}
	return "internal error"
}
