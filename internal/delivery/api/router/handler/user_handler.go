package handler

import (
	"log/slog"
	"net/http"
	"time"

	"threads/internal/delivery/api/response"
	"threads/internal/errors"
	"threads/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// UserHandlerParams holds dependencies for UserHandler, injected by Fx.
type UserHandlerParams struct {
	fx.In

	UserUC usecase.UserUsecase
	PostUC usecase.PostUsecase
	Logger *slog.Logger
}

// UserHandler serves other users' profiles and threads.
type UserHandler struct {
	userUC usecase.UserUsecase
	postUC usecase.PostUsecase
	logger *slog.Logger
}

// NewUserHandler is the constructor for UserHandler
func NewUserHandler(params UserHandlerParams) *UserHandler {
	return &UserHandler{
		userUC: params.UserUC,
		postUC: params.PostUC,
		logger: params.Logger,
	}
}

// ListUsers returns every profile except the caller's.
func (h *UserHandler) ListUsers(c echo.Context) error {
	users, err := h.userUC.ListUsers(c.Request().Context())
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, toProfileResponses(users))
}

// GetUser returns one profile.
func (h *UserHandler) GetUser(c echo.Context) error {
	user, err := h.userUC.GetUser(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, toProfileResponse(user))
}

// ListUserThreads returns the threads of one user, newest first.
func (h *UserHandler) ListUserThreads(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := h.userUC.GetUser(ctx, c.Param("id"))
	if err != nil {
		return errors.WithStack(err)
	}

	posts, err := h.postUC.ListPostsByAuthor(ctx, user)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, toThreadResponses(posts, time.Now()))
}
