// Package errors provides typed errors for the trading journal.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error cases.
var (
	// ErrNotFound indicates a resource was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrUnauthorized indicates the user is not authenticated.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrValidation indicates a validation error.
	ErrValidation = errors.New("validation error")

	// ErrConflict indicates a resource conflict (e.g., duplicate).
	ErrConflict = errors.New("resource conflict")

	// ErrInternal indicates an internal server error.
	ErrInternal = errors.New("internal error")

	// ErrRateLimit indicates too many requests.
	ErrRateLimit = errors.New("rate limit exceeded")

	// ErrConfiguration indicates missing or invalid deployment configuration
	// (client id, consumer secret, redirect URI). Fatal at flow start; never
	// retried.
	ErrConfiguration = errors.New("configuration error")

	// ErrTransport indicates a failed HTTP exchange with an external
	// collaborator (non-2xx status or network failure).
	ErrTransport = errors.New("transport error")

	// ErrSessionState indicates an invalid, expired, or already-resolved
	// connection session, or a sync attempted without registration.
	ErrSessionState = errors.New("session state error")

	// ErrPartialSync indicates one or more per-account refreshes failed while
	// the rest of the sync completed.
	ErrPartialSync = errors.New("partial sync error")
)

// AppError is a structured application error.
type AppError struct {
	// Type is the error type (sentinel error).
	Type error
	// Message is the user-facing error message.
	Message string
	// StatusCode is the upstream HTTP status for transport errors, 0 otherwise.
	StatusCode int
	// Details contains additional error details.
	Details map[string]any
	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error type.
func (e *AppError) Unwrap() error {
	return e.Type
}

// Is checks if this error matches the target.
func (e *AppError) Is(target error) bool {
	return errors.Is(e.Type, target)
}

// New creates a new AppError.
func New(errType error, message string) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
	}
}

// Wrap wraps an error with additional context.
func Wrap(errType error, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
	}
}

// WithDetails adds details to an AppError.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

// NotFound creates a not found error.
func NotFound(resource string) *AppError {
	return &AppError{
		Type:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// Unauthorized creates an unauthorized error.
func Unauthorized(message string) *AppError {
	if message == "" {
		message = "authentication required"
	}
	return &AppError{
		Type:    ErrUnauthorized,
		Message: message,
	}
}

// Validation creates a validation error.
func Validation(message string) *AppError {
	return &AppError{
		Type:    ErrValidation,
		Message: message,
	}
}

// Conflict creates a conflict error.
func Conflict(message string) *AppError {
	return &AppError{
		Type:    ErrConflict,
		Message: message,
	}
}

// Internal creates an internal error.
func Internal(message string, cause error) *AppError {
	return &AppError{
		Type:    ErrInternal,
		Message: message,
		Cause:   cause,
	}
}

// Configuration creates a configuration error.
func Configuration(message string) *AppError {
	return &AppError{
		Type:    ErrConfiguration,
		Message: message,
	}
}

// Transport creates a transport error carrying the upstream HTTP status.
// statusCode is 0 for network-level failures.
func Transport(statusCode int, message string, cause error) *AppError {
	return &AppError{
		Type:       ErrTransport,
		Message:    message,
		StatusCode: statusCode,
		Cause:      cause,
	}
}

// SessionState creates a session/state error.
func SessionState(message string) *AppError {
	return &AppError{
		Type:    ErrSessionState,
		Message: message,
	}
}

// PartialSync creates a partial sync error listing the failed refreshes.
func PartialSync(message string, cause error) *AppError {
	return &AppError{
		Type:    ErrPartialSync,
		Message: message,
		Cause:   cause,
	}
}

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if an error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsConflict checks if an error is a conflict error.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsConfiguration checks if an error is a configuration error.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsTransport checks if an error is a transport error.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}

// IsSessionState checks if an error is a session/state error.
func IsSessionState(err error) bool {
	return errors.Is(err, ErrSessionState)
}

// IsPartialSync checks if an error is a partial sync error.
func IsPartialSync(err error) bool {
	return errors.Is(err, ErrPartialSync)
}

// TransportStatus returns the upstream HTTP status of a transport error,
// or 0 if the error is not a transport error.
func TransportStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && errors.Is(appErr.Type, ErrTransport) {
		return appErr.StatusCode
	}
	return 0
}

// HTTPStatus returns the appropriate HTTP status code for an error.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return 404
	case errors.Is(err, ErrUnauthorized):
		return 401
	case errors.Is(err, ErrValidation):
		return 400
	case errors.Is(err, ErrConflict):
		return 409
	case errors.Is(err, ErrRateLimit):
		return 429
	case errors.Is(err, ErrSessionState):
		return 409
	case errors.Is(err, ErrConfiguration):
		return 500
	case errors.Is(err, ErrTransport):
		return 502
	default:
		return 500
	}
}
