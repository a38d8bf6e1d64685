package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"threads/internal/delivery/api/response"
	deliverycontext "threads/internal/delivery/context"
	"threads/internal/errors"
	"threads/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// SessionHandlerParams holds dependencies for SessionHandler, injected by Fx.
type SessionHandlerParams struct {
	fx.In

	Store  usecase.SessionStore
	Logger *slog.Logger
}

// SessionHandler exposes the session store.
type SessionHandler struct {
	store  usecase.SessionStore
	logger *slog.Logger
}

// NewSessionHandler is the constructor for SessionHandler
func NewSessionHandler(params SessionHandlerParams) *SessionHandler {
	return &SessionHandler{
		store:  params.Store,
		logger: params.Logger,
	}
}

// GetSnapshot returns the current snapshot.
func (h *SessionHandler) GetSnapshot(c echo.Context) error {
	return response.Success(c, http.StatusOK, toSnapshotResponse(h.store.Snapshot()))
}

// Refresh re-reads the signed-in profile and surfaces any failure.
func (h *SessionHandler) Refresh(c echo.Context) error {
	if _, err := h.store.RefreshProfile(c.Request().Context()); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, toSnapshotResponse(h.store.Snapshot()))
}

// Events streams every snapshot as a server-sent event until the client goes away.
func (h *SessionHandler) Events(c echo.Context) error {
	ctx := c.Request().Context()
	logger := deliverycontext.GetLoggerOrDefault(ctx, h.logger)

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	// Writes happen on the dispatcher goroutine only; the handler goroutine
	// waits below and does not touch the response until Close returns.
	dispatcher := usecase.NewSerialDispatcher()
	failed := make(chan struct{})
	var writeErr error

	sub := h.store.Subscribe(func(snap usecase.SessionSnapshot) {
		if writeErr != nil {
			return
		}
		if writeErr = writeEvent(res, toSnapshotResponse(snap)); writeErr != nil {
			close(failed)
		}
	}, dispatcher)

	select {
	case <-ctx.Done():
	case <-failed:
	}

	sub.Unsubscribe()
	dispatcher.Close()

	if writeErr != nil {
		logger.Debug("Session event stream closed", slog.Any("error", writeErr))
	}

	return nil
}

func writeEvent(res *echo.Response, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "failed to encode event")
	}

	if _, err := res.Write([]byte("data: ")); err != nil {
		return errors.WithStack(err)
	}
	if _, err := res.Write(data); err != nil {
		return errors.WithStack(err)
	}
	if _, err := res.Write([]byte("\n\n")); err != nil {
		return errors.WithStack(err)
	}
	res.Flush()

	return nil
}
