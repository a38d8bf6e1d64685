package handler

import (
	"log/slog"
	"net/http"
	"time"

	"threads/internal/delivery/api/middleware"
	"threads/internal/delivery/api/response"
	"threads/internal/errors"
	"threads/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// ThreadHandlerParams holds dependencies for ThreadHandler, injected by Fx.
type ThreadHandlerParams struct {
	fx.In

	PostUC usecase.PostUsecase
	Logger *slog.Logger
}

// ThreadHandler serves the feed and thread composition.
type ThreadHandler struct {
	postUC usecase.PostUsecase
	logger *slog.Logger
}

// NewThreadHandler is the constructor for ThreadHandler
func NewThreadHandler(params ThreadHandlerParams) *ThreadHandler {
	return &ThreadHandler{
		postUC: params.PostUC,
		logger: params.Logger,
	}
}

// ListThreads returns the feed, newest first.
func (h *ThreadHandler) ListThreads(c echo.Context) error {
	posts, err := h.postUC.ListPosts(c.Request().Context())
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, toThreadResponses(posts, time.Now()))
}

// CreateThread publishes a thread as the signed-in user.
func (h *ThreadHandler) CreateThread(c echo.Context) error {
	var req usecase.CreatePostInput
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid thread input")
	}
	if req.AuthorID == "" {
		req.AuthorID, _ = middleware.GetUID(c)
	}

	post, err := h.postUC.CreatePost(c.Request().Context(), &req)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusCreated, toThreadResponse(post, time.Now()))
}
