package impl

import (
	"context"
	"log/slog"
	"time"

	"threads/config"
	"threads/internal/domain/entity"
	"threads/internal/domain/repository"
	"threads/internal/infra/metrics"
	"threads/internal/usecase"

	"go.uber.org/fx"
)

// UserServiceParams holds dependencies for UserService, injected by Fx.
type UserServiceParams struct {
	fx.In

	Profiles repository.ProfileRepository
	Store    usecase.SessionStore
	Config   *config.Config
	Recorder metrics.Recorder
	Logger   *slog.Logger
}

type userService struct {
	profiles    repository.ProfileRepository
	store       usecase.SessionStore
	runner      *boundedRunner
	readTimeout time.Duration
}

// NewUserService creates a service for browsing other users.
func NewUserService(params UserServiceParams) usecase.UserUsecase {
	return &userService{
		profiles:    params.Profiles,
		store:       params.Store,
		runner:      newBoundedRunner(params.Recorder, params.Logger),
		readTimeout: params.Config.Timeouts.Write,
	}
}

func (s *userService) ListUsers(ctx context.Context) ([]*entity.Profile, error) {
	session, err := requireSession(s.store)
	if err != nil {
		return nil, err
	}

	profiles, err := boundedCall(ctx, s.runner, "profile.list", s.readTimeout, s.profiles.List)
	if err != nil {
		return nil, err
	}

	users := make([]*entity.Profile, 0, len(profiles))
	for _, p := range profiles {
		if p.ID == session.UID {
			continue
		}
		users = append(users, p)
	}

	return users, nil
}

func (s *userService) GetUser(ctx context.Context, id string) (*entity.Profile, error) {
	if _, err := requireSession(s.store); err != nil {
		return nil, err
	}

	profile, err := boundedCall(ctx, s.runner, "profile.fetch", s.readTimeout, func(ctx context.Context) (*entity.Profile, error) {
		return s.profiles.FindByID(ctx, id)
	})
	if err != nil {
		return nil, mapProfileReadError(err)
	}

	return profile, nil
}
