package usecase

import (
	"context"

	"threads/internal/domain/entity"
)

// UserUsecase reads other users' profiles.
type UserUsecase interface {
	// ListUsers returns every profile except the signed-in user's own.
	ListUsers(ctx context.Context) ([]*entity.Profile, error)
	// GetUser returns a single profile.
	GetUser(ctx context.Context, id string) (*entity.Profile, error)
}
