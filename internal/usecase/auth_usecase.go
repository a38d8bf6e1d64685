package usecase

import (
	"context"

	"threads/internal/domain/entity"
)

// --- Input DTOs ---

// SignUpInput defines the data required to register a new account.
type SignUpInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	FullName string `json:"fullname" validate:"required,max=64"`
	Username string `json:"username" validate:"required,max=32"`
}

// SignInInput defines the data required to sign in.
type SignInInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthUsecase drives the auth collaborator and keeps the session store in step.
type AuthUsecase interface {
	// SignUp creates the identity and its profile document.
	SignUp(ctx context.Context, input *SignUpInput) (*entity.Session, error)
	SignIn(ctx context.Context, input *SignInInput) (*entity.Session, error)
	// SignOut clears local state first, then ends the remote session.
	SignOut(ctx context.Context) error
}
