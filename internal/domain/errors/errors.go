package errors

import (
	"net/http"

	"threads/internal/errors"
)

// AppError defines the interface for application-specific errors
type AppError interface {
	error
	HTTPCode() int     // HTTP status code
	ErrorCode() string // Business error code
	Message() string   // User-facing error message
	Details() string   // Detailed error information (optional)
}

// BaseError is a basic error structure that implements the AppError interface
type BaseError struct {
	httpCode  int
	errorCode string
	message   string
	details   string
	retryable bool
}

// NewBaseError creates a new base error
func NewBaseError(httpCode int, errorCode, message, details string) *BaseError {
	return &BaseError{
		httpCode:  httpCode,
		errorCode: errorCode,
		message:   message,
		details:   details,
	}
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.details != "" {
		return e.message + ": " + e.details
	}

	return e.message
}

// WrapMessage wraps the error with additional context message
func (e *BaseError) WrapMessage(message string) error {
	return errors.Wrap(e, message)
}

// HTTPCode returns the HTTP status code
func (e *BaseError) HTTPCode() int {
	return e.httpCode
}

// ErrorCode returns the business error code
func (e *BaseError) ErrorCode() string {
	return e.errorCode
}

// Message returns the user-facing error message
func (e *BaseError) Message() string {
	return e.message
}

// Details returns detailed error information
func (e *BaseError) Details() string {
	return e.details
}

// Retryable reports whether the caller may simply try the same action again.
func (e *BaseError) Retryable() bool {
	return e.retryable
}

// WithDetails returns a copy carrying details. The copy still matches the
// original sentinel with errors.Is.
func (e *BaseError) WithDetails(details string) *BaseError {
	return &BaseError{
		httpCode:  e.httpCode,
		errorCode: e.errorCode,
		message:   e.message,
		details:   details,
		retryable: e.retryable,
	}
}

// Is matches any BaseError with the same business code.
func (e *BaseError) Is(target error) bool {
	t, ok := target.(*BaseError)
	if !ok {
		return false
	}

	return t.errorCode == e.errorCode
}

func retryable(e *BaseError) *BaseError {
	e.retryable = true

	return e
}

// Predefined error types
var (
	// ErrTimedOut is returned when a bounded operation outlives its deadline.
	// The remote effect may still happen; callers only stopped waiting.
	ErrTimedOut = retryable(NewBaseError(
		http.StatusGatewayTimeout,
		"TIMED_OUT",
		"The request timed out. Please try again.",
		"",
	))

	ErrUnauthenticated = NewBaseError(
		http.StatusUnauthorized,
		"UNAUTHENTICATED",
		"You need to sign in first.",
		"",
	)

	ErrInvalidCredentials = NewBaseError(
		http.StatusUnauthorized,
		"INVALID_CREDENTIALS",
		"The email or password is incorrect. Please check and try again.",
		"",
	)

	ErrIdentityExists = NewBaseError(
		http.StatusConflict,
		"IDENTITY_EXISTS",
		"An account with this email already exists.",
		"",
	)

	ErrProfileNotFound = NewBaseError(
		http.StatusNotFound,
		"PROFILE_NOT_FOUND",
		"The user profile could not be found.",
		"",
	)

	// ErrDecodeFailure marks a stored record that does not fit the expected
	// shape. Read flows treat it as absent instead of surfacing it.
	ErrDecodeFailure = NewBaseError(
		http.StatusInternalServerError,
		"DECODE_FAILURE",
		"A stored record could not be read.",
		"",
	)

	ErrValidationFailed = NewBaseError(
		http.StatusBadRequest,
		"VALIDATION_FAILED",
		"Some fields are missing or invalid.",
		"",
	)

	ErrImageInvalid = NewBaseError(
		http.StatusBadRequest,
		"IMAGE_INVALID",
		"The selected image could not be processed.",
		"",
	)

	ErrForbidden = NewBaseError(
		http.StatusForbidden,
		"FORBIDDEN",
		"You are not allowed to do that.",
		"",
	)

	ErrInternalError = NewBaseError(
		http.StatusInternalServerError,
		"INTERNAL_ERROR",
		"Something went wrong.",
		"",
	)
)

// UpstreamError reports a failure of an external collaborator (auth provider,
// document store, object store). The collaborator's own text is kept verbatim.
type UpstreamError struct {
	err          error
	collaborator string
}

// NewUpstreamError wraps err as a collaborator failure. Errors that already are
// AppErrors (timeouts, decode failures, ...) pass through unchanged.
func NewUpstreamError(err error, collaborator string) error {
	if err == nil {
		return nil
	}

	var appErr AppError
	if errors.As(err, &appErr) {
		return err
	}

	return &UpstreamError{err: err, collaborator: collaborator}
}

// Error implements the error interface
func (e *UpstreamError) Error() string {
	return e.collaborator + ": " + e.err.Error()
}

// Unwrap exposes the collaborator error.
func (e *UpstreamError) Unwrap() error {
	return e.err
}

// Collaborator names the external system that failed.
func (e *UpstreamError) Collaborator() string {
	return e.collaborator
}

// HTTPCode returns the HTTP status code
func (e *UpstreamError) HTTPCode() int {
	return http.StatusBadGateway
}

// ErrorCode returns the business error code
func (e *UpstreamError) ErrorCode() string {
	return "UPSTREAM_FAILURE"
}

// Message returns the user-facing error message
func (e *UpstreamError) Message() string {
	return e.err.Error()
}

// Details returns detailed error information
func (e *UpstreamError) Details() string {
	return e.collaborator
}

// IsUpstream reports whether err is a collaborator failure.
func IsUpstream(err error) bool {
	var upstream *UpstreamError

	return errors.As(err, &upstream)
}
