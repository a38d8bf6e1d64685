package handler

import (
	"io"
	"log/slog"
	"net/http"

	"threads/internal/delivery/api/middleware"
	"threads/internal/delivery/api/response"
	domainerrors "threads/internal/domain/errors"
	"threads/internal/errors"
	"threads/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// ProfileHandlerParams holds dependencies for ProfileHandler, injected by Fx.
type ProfileHandlerParams struct {
	fx.In

	ProfileUC usecase.ProfileUsecase
	Logger    *slog.Logger
}

// ProfileHandler edits the signed-in user's own profile and account.
type ProfileHandler struct {
	profileUC usecase.ProfileUsecase
	logger    *slog.Logger
}

// NewProfileHandler is the constructor for ProfileHandler
func NewProfileHandler(params ProfileHandlerParams) *ProfileHandler {
	return &ProfileHandler{
		profileUC: params.ProfileUC,
		logger:    params.Logger,
	}
}

// UpdateBioRequest is the body of PUT /profile/bio.
type UpdateBioRequest struct {
	Bio string `json:"bio"`
}

// UpdateBio writes the bio of the signed-in user.
func (h *ProfileHandler) UpdateBio(c echo.Context) error {
	var req UpdateBioRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid bio input")
	}

	profile, err := h.profileUC.UpdateBio(c.Request().Context(), req.Bio)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, toProfileResponse(profile))
}

// UploadImage takes the raw image as the request body.
func (h *ProfileHandler) UploadImage(c echo.Context) error {
	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return errors.WithStack(domainerrors.ErrImageInvalid.WithDetails("failed to read request body"))
	}

	url, err := h.profileUC.UploadProfileImage(c.Request().Context(), raw)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"profileImageUrl": url})
}

// DeleteAccount removes the signed-in account with all its threads.
func (h *ProfileHandler) DeleteAccount(c echo.Context) error {
	uid, ok := middleware.GetUID(c)
	if !ok {
		return errors.WithStack(domainerrors.ErrUnauthenticated)
	}

	if err := h.profileUC.DeleteAccount(c.Request().Context(), uid); err != nil {
		return errors.WithStack(err)
	}

	return response.NoContent(c)
}
