package response

import (
	"net/http"

	deliverycontext "threads/internal/delivery/context"
	domainerrors "threads/internal/domain/errors"
	"threads/internal/errors"

	"github.com/labstack/echo/v4"
)

// SuccessResponse defines the structure for successful responses
type SuccessResponse struct {
	Data any       `json:"data"`
	Meta *MetaInfo `json:"meta"`
}

// ErrorResponse defines the structure for error responses
type ErrorResponse struct {
	Error *ErrorInfo `json:"error"`
	Meta  *MetaInfo  `json:"meta"`
}

// ErrorInfo contains detailed error information
type ErrorInfo struct {
	Code      string `json:"code"`              // Machine-readable error code, e.g., "VALIDATION_FAILED"
	Message   string `json:"message"`           // Human-readable message, safe to show as is
	Details   any    `json:"details,omitempty"` // Additional error context
	Retryable bool   `json:"retryable,omitempty"`
}

// MetaInfo represents response metadata
type MetaInfo struct {
	RequestID string `json:"request_id"` // Request tracking ID
}

// Success returns a successful response
func Success(c echo.Context, statusCode int, data any) error {
	return c.JSON(statusCode, SuccessResponse{
		Data: data,
		Meta: &MetaInfo{
			RequestID: deliverycontext.GetRequestID(c),
		},
	})
}

// NoContent returns 204 without a body.
func NoContent(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}

// Error returns an error response
func Error(c echo.Context, statusCode int, errorCode string, message string, details any) error {
	// Internal failures keep their details in the logs.
	if statusCode >= 500 && statusCode != http.StatusBadGateway && statusCode != http.StatusGatewayTimeout {
		details = nil
	}

	return c.JSON(statusCode, ErrorResponse{
		Error: &ErrorInfo{
			Code:    errorCode,
			Message: message,
			Details: details,
		},
		Meta: &MetaInfo{
			RequestID: deliverycontext.GetRequestID(c),
		},
	})
}

// AppError renders an application error with its own status and message.
func AppError(c echo.Context, appErr domainerrors.AppError) error {
	var details any
	if d := appErr.Details(); d != "" {
		details = d
	}

	statusCode := appErr.HTTPCode()
	if statusCode >= 500 && statusCode != http.StatusBadGateway && statusCode != http.StatusGatewayTimeout {
		details = nil
	}

	var retryable bool
	var base *domainerrors.BaseError
	if errors.As(appErr, &base) {
		retryable = base.Retryable()
	}

	return c.JSON(statusCode, ErrorResponse{
		Error: &ErrorInfo{
			Code:      appErr.ErrorCode(),
			Message:   appErr.Message(),
			Details:   details,
			Retryable: retryable,
		},
		Meta: &MetaInfo{
			RequestID: deliverycontext.GetRequestID(c),
		},
	})
}

// BindingError returns a binding error response
func BindingError(c echo.Context, errorCode string, message string) error {
	return Error(c, http.StatusBadRequest, errorCode, message, nil)
}

// InternalServerError returns a 500 error
func InternalServerError(c echo.Context, errorCode string, message string) error {
	return Error(c, http.StatusInternalServerError, errorCode, message, nil)
}
