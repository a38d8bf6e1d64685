package usecase

import (
	"context"

	"threads/internal/domain/entity"
)

// UpdateProfileInput combines the editable parts of the own profile.
type UpdateProfileInput struct {
	Image []byte  `json:"-"`
	Bio   *string `json:"bio,omitempty"`
}

// ProfileUsecase edits the signed-in user's own profile and account.
type ProfileUsecase interface {
	// UploadProfileImage stores the image and returns its durable URL.
	UploadProfileImage(ctx context.Context, raw []byte) (string, error)
	// UpdateBio writes bio when it is non-empty and differs from the current one.
	UpdateBio(ctx context.Context, bio string) (*entity.Profile, error)
	// UpdateProfile runs the image step, then the bio step.
	UpdateProfile(ctx context.Context, input *UpdateProfileInput) (*entity.Profile, error)
	// DeleteAccount removes identity, posts and profile, then signs out locally.
	DeleteAccount(ctx context.Context, identityID string) error
}
