package apperr

import (
	"errors"
	"net/http"
)

// Code identifies a class of client-visible failure.
type Code string

const (
	CodeValidationFailed Code = "validation_failed"
	CodeAuthFailed       Code = "auth_failed"
	CodeTokenInvalid     Code = "token_invalid"
	CodeTokenExpired     Code = "token_expired"
	CodeAccountLocked    Code = "account_locked"
	CodeForbidden        Code = "forbidden"
	CodeNotFound         Code = "not_found"
	CodeConflict         Code = "conflict"
	CodeTooManyRequests  Code = "too_many_requests"
	CodeInternal         Code = "internal_error"
)

var statusByCode = map[Code]int{
	CodeValidationFailed: http.StatusBadRequest,
	CodeAuthFailed:       http.StatusUnauthorized,
	CodeTokenInvalid:     http.StatusUnauthorized,
	CodeTokenExpired:     http.StatusUnauthorized,
	CodeAccountLocked:    http.StatusLocked,
	CodeForbidden:        http.StatusForbidden,
	CodeNotFound:         http.StatusNotFound,
	CodeConflict:         http.StatusConflict,
	CodeTooManyRequests:  http.StatusTooManyRequests,
	CodeInternal:         http.StatusInternalServerError,
}

// Error is an operational error whose message is safe to return to clients.
// Unexpected errors are never wrapped into one; they stay plain and get
// replaced with a generic message at the HTTP boundary.
type Error struct {
	Code    Code
	Message string
	Fields  map[string]string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// Status returns the HTTP status for the error's code.
func (e *Error) Status() int {
	if s, ok := statusByCode[e.Code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// WithFields attaches field-level validation detail.
func (e *Error) WithFields(fields map[string]string) *Error {
	e.Fields = fields
	return e
}

func ValidationFailed(message string) *Error { return New(CodeValidationFailed, message) }
func AuthFailed(message string) *Error       { return New(CodeAuthFailed, message) }
func TokenInvalid(message string) *Error     { return New(CodeTokenInvalid, message) }
func TokenExpired(message string) *Error     { return New(CodeTokenExpired, message) }
func AccountLocked(message string) *Error    { return New(CodeAccountLocked, message) }
func Forbidden(message string) *Error        { return New(CodeForbidden, message) }
func NotFound(message string) *Error         { return New(CodeNotFound, message) }
func Conflict(message string) *Error         { return New(CodeConflict, message) }

// From extracts an *Error from err's chain, or nil if the error is not
// an operational one.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	appErr := From(err)
	return appErr != nil && appErr.Code == code
}
