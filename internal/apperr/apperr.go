// Package apperr defines the application's error taxonomy. Every failure a
// client can observe is an Error with a stable code; route handlers map the
// code to an HTTP status and serialize {code, message}.
package apperr

import "errors"

// Error codes surfaced to clients.
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeNotFound         = "NOT_FOUND"
	CodeUserNotFound     = "USER_NOT_FOUND"
	CodeTokenNotFound    = "TOKEN_NOT_FOUND"
	CodeInvalidToken     = "INVALID_TOKEN"
	CodeTokenExpired     = "TOKEN_EXPIRED"
	CodeTokenAlreadyUsed = "TOKEN_ALREADY_USED"
	CodeWeakPassword     = "WEAK_PASSWORD"
	CodeInvalidCreds     = "INVALID_CREDENTIALS"
	CodeInternal         = "INTERNAL_ERROR"
)

// Error is a client-visible failure with a stable code.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

// New builds an Error with the given code and message.
func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Validation builds a VALIDATION_ERROR.
func Validation(message string) *Error {
	return New(CodeValidation, message)
}

// Unauthorized builds an UNAUTHORIZED error.
func Unauthorized(message string) *Error {
	return New(CodeUnauthorized, message)
}

// Forbidden builds a FORBIDDEN error.
func Forbidden(message string) *Error {
	return New(CodeForbidden, message)
}

// NotFound builds a NOT_FOUND error.
func NotFound(message string) *Error {
	return New(CodeNotFound, message)
}

// Internal is the generic error returned when something unexpected happens.
// It deliberately carries no detail about the underlying failure.
func Internal() *Error {
	return New(CodeInternal, "An internal error occurred")
}

// CodeOf extracts the code from err, or CodeInternal when err is not an
// *Error (unexpected failures must never leak their text to clients).
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// From converts err into an *Error, collapsing anything unexpected into the
// generic internal error.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal()
}
