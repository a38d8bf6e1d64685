// Package context carries request-scoped values from the HTTP edge down to
// the services: the request id, which also tags published events, and a
// logger already labelled with it.
package context

import (
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"
)

type contextKey int

const (
	requestIDKey contextKey = iota
	loggerKey
)

const (
	// HeaderXRequestID is the HTTP header name for request ID.
	HeaderXRequestID = echo.HeaderXRequestID

	// echoKeyRequestID is where the id sits on echo.Context for the response envelope.
	echoKeyRequestID = "request_id"
)

// GetRequestID returns the request ID set by the request id middleware, or ""
// for requests that never passed through it.
func GetRequestID(c echo.Context) string {
	id, _ := c.Get(echoKeyRequestID).(string)

	return id
}

// SetRequestID stores the request ID on echo.Context and on the request context.
func SetRequestID(c echo.Context, requestID string) {
	c.Set(echoKeyRequestID, requestID)
	c.SetRequest(c.Request().WithContext(WithRequestID(c.Request().Context(), requestID)))
}

// GetRequestIDFromContext returns the request ID, or "" outside a request.
func GetRequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)

	return id
}

// WithRequestID returns a new context with the request ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetLoggerOrDefault returns the request-scoped logger, or fallback when ctx
// carries none (background work such as the session store's re-fetch loop).
func GetLoggerOrDefault(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok && logger != nil {
		return logger
	}

	return fallback
}

// WithLogger returns a new context with the logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// AddLoggerAttrs labels the request-scoped logger of c with attrs, so every
// later log line of the request carries them. Without any logger it does nothing.
func AddLoggerAttrs(c echo.Context, fallback *slog.Logger, attrs ...any) {
	ctx := c.Request().Context()
	logger := GetLoggerOrDefault(ctx, fallback)
	if logger == nil {
		return
	}
	c.SetRequest(c.Request().WithContext(WithLogger(ctx, logger.With(attrs...))))
}
