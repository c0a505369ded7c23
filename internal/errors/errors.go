// Package errors provides structured error handling with error codes,
// wrapping, and HTTP status mapping for the Shelfmark server.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions so callers only need this package.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// New creates a basic error (re-exported from stdlib).
func New(text string) error {
	return errors.New(text)
}

// Code represents a machine-readable error code.
type Code string

const (
	// CodeNotFound indicates the requested resource doesn't exist.
	CodeNotFound Code = "NOT_FOUND"
	// CodeAlreadyExists indicates a resource with the same identity exists.
	CodeAlreadyExists Code = "ALREADY_EXISTS"
	// CodeUnauthorized indicates missing or invalid authentication.
	CodeUnauthorized Code = "UNAUTHORIZED"
	// CodeForbidden indicates the caller lacks permission.
	CodeForbidden Code = "FORBIDDEN"
	// CodeValidation indicates invalid input data.
	CodeValidation Code = "VALIDATION"
	// CodeConflict indicates a state conflict (e.g. concurrent modification).
	CodeConflict Code = "CONFLICT"
	// CodeInternal indicates an unexpected internal error.
	CodeInternal Code = "INTERNAL"
	// CodeInvalidCredentials indicates wrong email/password.
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	// CodeTokenExpired indicates an expired token.
	CodeTokenExpired Code = "TOKEN_EXPIRED"
)

// HTTPStatus maps an error code to its HTTP status code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeAlreadyExists, CodeConflict:
		return http.StatusConflict
	case CodeUnauthorized, CodeInvalidCredentials, CodeTokenExpired:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error is a structured error with a code, message, and optional details.
type Error struct {
	Details map[string]any `json:"details,omitempty"`
	cause   error
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is supports errors.Is comparison by code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a copy of the error with the given details attached.
func (e *Error) WithDetails(details map[string]any) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		cause:   e.cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *Error) WithCause(cause error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		cause:   cause,
	}
}

// Sentinel errors for comparison with errors.Is.
var (
	ErrNotFound           = &Error{Code: CodeNotFound, Message: "resource not found"}
	ErrAlreadyExists      = &Error{Code: CodeAlreadyExists, Message: "resource already exists"}
	ErrUnauthorized       = &Error{Code: CodeUnauthorized, Message: "unauthorized"}
	ErrForbidden          = &Error{Code: CodeForbidden, Message: "forbidden"}
	ErrValidation         = &Error{Code: CodeValidation, Message: "validation failed"}
	ErrConflict           = &Error{Code: CodeConflict, Message: "conflict"}
	ErrInternal           = &Error{Code: CodeInternal, Message: "internal error"}
	ErrInvalidCredentials = &Error{Code: CodeInvalidCredentials, Message: "invalid credentials"}
	ErrTokenExpired       = &Error{Code: CodeTokenExpired, Message: "token expired"}
)

// NotFound creates a not-found error with a custom message.
func NotFound(message string) *Error {
	return &Error{Code: CodeNotFound, Message: message}
}

// NotFoundf creates a not-found error with a formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// AlreadyExists creates an already-exists error with a custom message.
func AlreadyExists(message string) *Error {
	return &Error{Code: CodeAlreadyExists, Message: message}
}

// Unauthorized creates an unauthorized error with a custom message.
func Unauthorized(message string) *Error {
	return &Error{Code: CodeUnauthorized, Message: message}
}

// Forbidden creates a forbidden error with a custom message.
func Forbidden(message string) *Error {
	return &Error{Code: CodeForbidden, Message: message}
}

// Validation creates a validation error with a custom message.
func Validation(message string) *Error {
	return &Error{Code: CodeValidation, Message: message}
}

// ValidationWithDetails creates a validation error with field details.
func ValidationWithDetails(message string, details map[string]any) *Error {
	return &Error{Code: CodeValidation, Message: message, Details: details}
}

// Conflict creates a conflict error with a custom message.
func Conflict(message string) *Error {
	return &Error{Code: CodeConflict, Message: message}
}

// Internal creates an internal error with a custom message.
func Internal(message string) *Error {
	return &Error{Code: CodeInternal, Message: message}
}

// InvalidCredentials creates an invalid-credentials error.
func InvalidCredentials(message string) *Error {
	return &Error{Code: CodeInvalidCredentials, Message: message}
}

// TokenExpired creates a token-expired error.
func TokenExpired(message string) *Error {
	return &Error{Code: CodeTokenExpired, Message: message}
}

// Wrap wraps an error with an internal error code and message.
func Wrap(err error, message string) *Error {
	return &Error{Code: CodeInternal, Message: message, cause: err}
}

// Wrapf wraps an error with an internal error code and formatted message.
func Wrapf(err error, format string, args ...any) *Error {
	return &Error{Code: CodeInternal, Message: fmt.Sprintf(format, args...), cause: err}
}
