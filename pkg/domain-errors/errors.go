// Package domainerrors defines the typed error taxonomy shared by services
// and transports. Services construct these at the boundary between domain
// rules and callers; transports translate codes to HTTP statuses.
//
// Stores do not use this package. They return pkg/platform/sentinel errors
// and services translate them here.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error.
type Code string

const (
	// CodeValidation marks a missing or malformed mandatory input, for
	// example a blank justification. Always detected before any mutation.
	CodeValidation Code = "validation"

	// CodePrecondition marks a transition attempted on an entity in the
	// wrong state, for example approving an already-approved document.
	CodePrecondition Code = "precondition_failed"

	// CodeConflict marks an optimistic update that lost a race. Callers
	// may retry with a fresh snapshot.
	CodeConflict Code = "conflict"

	// CodeUnauthorized marks a missing or invalid actor identity.
	CodeUnauthorized Code = "unauthorized"

	// CodeForbidden marks an actor lacking the required role or acting on
	// a protected target.
	CodeForbidden Code = "forbidden"

	CodeNotFound    Code = "not_found"
	CodeUnavailable Code = "unavailable"
	CodeInternal    Code = "internal"
)

// Error carries a code plus a caller-facing message. It optionally wraps an
// underlying cause for logs; the cause is never serialized to clients.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New constructs a domain error with a code and message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) is a domain error with
// the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for
// unclassified errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf extracts the caller-facing message, falling back to a generic
// message for unclassified errors so internals never leak to clients.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}

// ToHTTPStatus maps a domain error code to an HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodePrecondition:
		return http.StatusUnprocessableEntity
	case CodeConflict:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
