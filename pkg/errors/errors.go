// Package errors carries the HTTP-facing error taxonomy for the Download
// Controller. The core package (internal/core) never imports this package —
// it raises its own sealed Kind values (see internal/core/errors.go) — this
// package only exists at the adapter boundary, the same way
// dcs/adapters/inbound/fastapi_/http_exceptions.py maps core exceptions to
// HTTP exception classes one for one.
package errors

import (
	"fmt"
	"net/http"
)

// AppError represents an application error with an HTTP status code and the
// exception_id the DRS surface advertises to clients.
type AppError struct {
	Code        int    `json:"code"`
	ExceptionID string `json:"exception_id"`
	Message     string `json:"message"`
	Details     string `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Details)
	}
	return e.Message
}

// NewAppError creates a new application error.
func NewAppError(code int, exceptionID, message string, details ...string) *AppError {
	err := &AppError{
		Code:        code,
		ExceptionID: exceptionID,
		Message:     message,
	}
	if len(details) > 0 {
		err.Details = details[0]
	}
	return err
}

// New is an alias for NewAppError for convenience.
func New(code int, exceptionID, message string, details ...string) *AppError {
	return NewAppError(code, exceptionID, message, details...)
}

// Predefined errors, named after the exception_id taxonomy in spec.md §6.1.
var (
	ErrNoSuchObject        = NewAppError(http.StatusNotFound, "noSuchObject", "The requested DrsObject wasn't found")
	ErrEnvelopeNotFound    = NewAppError(http.StatusNotFound, "envelopeNotFoundError", "Envelope for the given download could not be found")
	ErrExternalAPI         = NewAppError(http.StatusInternalServerError, "externalAPIError", "Failed to communicate with an external API")
	ErrDBInteraction       = NewAppError(http.StatusInternalServerError, "dbInteractionError", "Interaction with the database failed")
	ErrTokenMalformed      = NewAppError(http.StatusForbidden, "tokenMalformedError", "The work order token is malformed")
	ErrTokenExpired        = NewAppError(http.StatusForbidden, "tokenExpiredError", "The work order token has expired")
	ErrTokenSignature      = NewAppError(http.StatusForbidden, "tokenSignatureError", "The work order token signature is invalid")
	ErrStorageAliasUnknown = NewAppError(http.StatusInternalServerError, "storageAliasNotConfiguredError", "The configured S3 endpoint alias is unknown")
)

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// GetAppError extracts an AppError from err, falling back to a generic
// internal server error carrying err's message as Details.
func GetAppError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	if unwrapped, ok := err.(interface{ Unwrap() error }); ok {
		if appErr, ok := unwrapped.Unwrap().(*AppError); ok {
			return appErr
		}
	}
	return &AppError{
		Code:        http.StatusInternalServerError,
		ExceptionID: "dbInteractionError",
		Message:     "Internal server error",
		Details:     err.Error(),
	}
}
