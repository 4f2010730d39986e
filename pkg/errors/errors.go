// Package errors provides structured error types for codecity.
//
// Errors carry a machine-readable [Code] so the CLI and the HTTP API can
// react to them uniformly:
//   - INVALID_*: input validation failures
//   - *NOT_FOUND: missing resources
//   - NO_COMMITS, NO_DATA: analysis produced nothing usable
//   - NETWORK_ERROR, TIMEOUT: remote failures, usually retryable
//   - INTERNAL_ERROR: everything else
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidPath, "not a directory: %s", path)
//	if errors.Is(err, errors.ErrCodeInvalidPath) {
//	    // handle
//	}
//
//	err = errors.Wrap(errors.ErrCodeNetwork, cause, "clone %s", url)
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code represents a machine-readable error code.
type Code string

// Error codes.
const (
	// Input validation errors
	ErrCodeInvalidInput   Code = "INVALID_INPUT"
	ErrCodeInvalidPath    Code = "INVALID_PATH"
	ErrCodeInvalidFormat  Code = "INVALID_FORMAT"
	ErrCodeInvalidView    Code = "INVALID_VIEW"
	ErrCodeInvalidRepoRef Code = "INVALID_REPO_REF"
	ErrCodeInvalidConfig  Code = "INVALID_CONFIG"

	// Resource errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeRepoNotFound Code = "REPO_NOT_FOUND"
	ErrCodeNotGitRepo   Code = "NOT_GIT_REPO"
	ErrCodeNoCommits    Code = "NO_COMMITS"
	ErrCodeNoData       Code = "NO_DATA"

	// Network errors
	ErrCodeNetwork Code = "NETWORK_ERROR"
	ErrCodeTimeout Code = "TIMEOUT"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error pairs a [Code] with a message and, for wrapped errors, the cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	msg := string(e.Code) + ": " + e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// New returns an error with code and a fmt-style message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap is New with a cause that stays reachable through errors.Is and errors.As.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	e := New(code, format, args...)
	e.Cause = cause
	return e
}

// coded returns the outermost *Error in err's chain.
func coded(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// Is reports whether the outermost coded error in err's chain has code.
func Is(err error, code Code) bool {
	e, ok := coded(err)
	return ok && e.Code == code
}

// GetCode returns the code of the outermost coded error, or "".
func GetCode(err error) Code {
	if e, ok := coded(err); ok {
		return e.Code
	}
	return ""
}

// UserMessage returns the message without code or cause, for display.
// Errors without a code are returned as err.Error().
func UserMessage(err error) string {
	if e, ok := coded(err); ok {
		return e.Message
	}
	return err.Error()
}

// HTTPStatus maps an error to the status code the API responds with.
func HTTPStatus(err error) int {
	switch GetCode(err) {
	case ErrCodeInvalidInput, ErrCodeInvalidPath, ErrCodeInvalidFormat,
		ErrCodeInvalidView, ErrCodeInvalidRepoRef, ErrCodeNotGitRepo, ErrCodeNoCommits:
		return http.StatusBadRequest
	case ErrCodeNotFound, ErrCodeRepoNotFound:
		return http.StatusNotFound
	case ErrCodeNoData:
		return http.StatusUnprocessableEntity
	case ErrCodeNetwork:
		return http.StatusBadGateway
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeUnsupported:
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}
