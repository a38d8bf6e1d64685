package handler

import (
	"log/slog"
	"net/http"

	"threads/internal/delivery/api/response"
	"threads/internal/errors"
	"threads/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// AuthHandlerParams holds dependencies for AuthHandler, injected by Fx.
type AuthHandlerParams struct {
	fx.In

	AuthUC usecase.AuthUsecase
	Logger *slog.Logger
}

// AuthHandler serves sign-up, sign-in and sign-out.
type AuthHandler struct {
	authUC usecase.AuthUsecase
	logger *slog.Logger
}

// NewAuthHandler is the constructor for AuthHandler
func NewAuthHandler(params AuthHandlerParams) *AuthHandler {
	return &AuthHandler{
		authUC: params.AuthUC,
		logger: params.Logger,
	}
}

// SignUp registers an identity and its profile.
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req usecase.SignUpInput
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid sign-up input")
	}

	session, err := h.authUC.SignUp(c.Request().Context(), &req)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusCreated, toSessionResponse(session))
}

// SignIn exchanges credentials for a session.
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req usecase.SignInInput
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid sign-in input")
	}

	session, err := h.authUC.SignIn(c.Request().Context(), &req)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, toSessionResponse(session))
}

// SignOut ends the current session.
func (h *AuthHandler) SignOut(c echo.Context) error {
	if err := h.authUC.SignOut(c.Request().Context()); err != nil {
		return errors.WithStack(err)
	}

	return response.NoContent(c)
}
