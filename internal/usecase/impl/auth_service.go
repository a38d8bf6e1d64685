package impl

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode"

	"threads/config"
	"threads/internal/domain/entity"
	domainerrors "threads/internal/domain/errors"
	"threads/internal/domain/repository"
	"threads/internal/domain/service"
	"threads/internal/errors"
	"threads/internal/infra/metrics"
	"threads/internal/usecase"
	"threads/internal/util"

	"go.uber.org/fx"
)

// AuthServiceParams holds dependencies for AuthService, injected by Fx.
type AuthServiceParams struct {
	fx.In

	Auth      service.AuthProvider
	Profiles  repository.ProfileRepository
	Store     usecase.SessionStore
	Sanitizer service.Sanitizer
	Config    *config.Config
	Recorder  metrics.Recorder
	Logger    *slog.Logger
}

type authService struct {
	auth      service.AuthProvider
	profiles  repository.ProfileRepository
	store     usecase.SessionStore
	sanitizer service.Sanitizer
	runner    *boundedRunner
	logger    *slog.Logger

	writeTimeout      time.Duration
	minPasswordLength int
}

// NewAuthService creates a new authentication service.
func NewAuthService(params AuthServiceParams) usecase.AuthUsecase {
	return &authService{
		auth:              params.Auth,
		profiles:          params.Profiles,
		store:             params.Store,
		sanitizer:         params.Sanitizer,
		runner:            newBoundedRunner(params.Recorder, params.Logger),
		logger:            params.Logger,
		writeTimeout:      params.Config.Timeouts.Write,
		minPasswordLength: params.Config.Auth.MinPasswordLength,
	}
}

// SignUp creates the identity, then its profile document. When the profile
// write fails the session is kept; the store re-fetches in the background
// in case the write landed after all.
func (s *authService) SignUp(ctx context.Context, input *usecase.SignUpInput) (*entity.Session, error) {
	if input == nil {
		return nil, errors.WithStack(domainerrors.ErrValidationFailed)
	}
	normalized := *input
	normalized.Email = normalizeEmail(input.Email)
	normalized.Username = strings.TrimSpace(input.Username)
	input = &normalized

	if err := util.ValidateStruct(input); err != nil {
		return nil, err
	}
	if len(input.Password) < s.minPasswordLength {
		return nil, errors.WithStack(domainerrors.ErrValidationFailed.WithDetails(
			"password must be at least " + strconv.Itoa(s.minPasswordLength) + " characters"))
	}

	if strings.ContainsFunc(input.Username, unicode.IsSpace) {
		return nil, errors.WithStack(domainerrors.ErrValidationFailed.WithDetails("username must not contain spaces"))
	}

	fullName := s.sanitizer.Sanitize(input.FullName)
	if fullName == "" {
		return nil, errors.WithStack(domainerrors.ErrValidationFailed.WithDetails("fullname is required"))
	}

	email := input.Email
	session, err := boundedCall(ctx, s.runner, "identity.create", s.writeTimeout, func(ctx context.Context) (*entity.Session, error) {
		return s.auth.CreateIdentity(ctx, email, input.Password)
	})
	if err != nil {
		return nil, err
	}

	profile := &entity.Profile{
		ID:       session.UID,
		FullName: fullName,
		Email:    email,
		Username: input.Username,
	}

	err = boundedDo(ctx, s.runner, "profile.create", s.writeTimeout, func(ctx context.Context) error {
		return s.profiles.Create(ctx, profile)
	})
	if err != nil {
		requestLogger(ctx, s.logger).WarnContext(ctx, "Profile write after sign-up failed",
			slog.String("uid", session.UID),
			slog.Any("error", err),
		)

		return nil, err
	}

	if !s.store.SetProfile(profile) {
		requestLogger(ctx, s.logger).WarnContext(ctx, "Session moved on before the new profile was stored",
			slog.String("uid", session.UID),
		)
	}

	return session, nil
}

func (s *authService) SignIn(ctx context.Context, input *usecase.SignInInput) (*entity.Session, error) {
	if input == nil {
		return nil, errors.WithStack(domainerrors.ErrValidationFailed)
	}
	email := normalizeEmail(input.Email)

	if err := util.ValidateStruct(&usecase.SignInInput{Email: email, Password: input.Password}); err != nil {
		return nil, err
	}

	return boundedCall(ctx, s.runner, "identity.signin", s.writeTimeout, func(ctx context.Context) (*entity.Session, error) {
		return s.auth.SignIn(ctx, email, input.Password)
	})
}

// SignOut clears the store in one transition before telling the collaborator,
// so no observer ever sees a session without its profile. When the
// collaborator fails the store follows whatever session it still holds.
func (s *authService) SignOut(ctx context.Context) error {
	s.store.Clear()

	if err := boundedDo(ctx, s.runner, "identity.signout", s.writeTimeout, s.auth.SignOut); err != nil {
		s.store.Resync()

		return err
	}

	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
