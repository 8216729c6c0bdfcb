// apps/go-server/internal/apperr/apperr.go
//
// Coded domain errors shared by the engines, the lifecycle and the HTTP layer.
// Each error carries a machine-readable Code plus the client-facing message;
// HTTPStatus maps codes onto response statuses so handlers never switch on text.

package apperr

import (
	"errors"
	"net/http"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeNotFound              Code = "NOT_FOUND"
	CodeAlreadyCompleted      Code = "ALREADY_COMPLETED"
	CodeValidation            Code = "VALIDATION"
	CodeInternalInconsistency Code = "INTERNAL_INCONSISTENCY"
	CodeSummaryUnavailable    Code = "SUMMARY_UNAVAILABLE"
)

// Error is the domain error type.
type Error struct {
	Code    Code   // machine-readable code
	Message string // client-facing message
	Cause   error  // wrapped underlying error, if any
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// MessageOf returns the client-facing message of err.
// Errors outside the taxonomy collapse to a generic message so internals never leak.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Internal server error"
}

// HTTPStatus maps an error onto the status code the request surface returns.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeAlreadyCompleted, CodeValidation:
		return http.StatusBadRequest
	case CodeSummaryUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
