// Package firebase implements the auth collaborator on Firebase Authentication.
// Identities are managed with the Admin SDK; password sign-in goes through the
// Identity Toolkit REST API, which is what the client SDKs call underneath.
package firebase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"threads/config"
	"threads/internal/domain/entity"
	domainerrors "threads/internal/domain/errors"
	"threads/internal/domain/service"
	"threads/internal/errors"
	"threads/internal/infra/auth"

	fbauth "firebase.google.com/go/v4/auth"
	"go.uber.org/fx"
)

const collaboratorName = "auth provider"

// IdentityAdmin is the part of *auth.Client the provider uses.
type IdentityAdmin interface {
	CreateUser(ctx context.Context, user *fbauth.UserToCreate) (*fbauth.UserRecord, error)
	DeleteUser(ctx context.Context, uid string) error
}

// VerifiedIdentity is the outcome of a successful password check.
type VerifiedIdentity struct {
	UID     string
	Email   string
	IDToken string
}

// PasswordVerifier exchanges email and password for an ID token.
type PasswordVerifier interface {
	VerifyPassword(ctx context.Context, email, password string) (*VerifiedIdentity, error)
}

// Params defines the required parameters
type Params struct {
	fx.In

	Admin    *fbauth.Client
	Verifier PasswordVerifier
	Config   *config.Config
	Logger   *slog.Logger
}

type provider struct {
	admin    IdentityAdmin
	verifier PasswordVerifier
	hub      *auth.SessionHub
	logger   *slog.Logger
	debug    bool
	now      func() time.Time
}

// NewProvider is the constructor for the Firebase auth provider.
func NewProvider(params Params) service.AuthProvider {
	return newProvider(params.Admin, params.Verifier, params.Logger, params.Config.Collaborators.Debug)
}

func newProvider(admin IdentityAdmin, verifier PasswordVerifier, logger *slog.Logger, debug bool) *provider {
	return &provider{
		admin:    admin,
		verifier: verifier,
		hub:      auth.NewSessionHub(),
		logger:   logger,
		debug:    debug,
		now:      time.Now,
	}
}

func (p *provider) SignIn(ctx context.Context, email, password string) (*entity.Session, error) {
	p.trace(ctx, "auth.sign_in")

	identity, err := p.verifier.VerifyPassword(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return nil, err
	}

	return p.startSession(identity), nil
}

func (p *provider) CreateIdentity(ctx context.Context, email, password string) (*entity.Session, error) {
	p.trace(ctx, "auth.create_identity")

	email = strings.TrimSpace(email)
	user := (&fbauth.UserToCreate{}).Email(email).Password(password)
	if _, err := p.admin.CreateUser(ctx, user); err != nil {
		if fbauth.IsEmailAlreadyExists(err) {
			return nil, domainerrors.ErrIdentityExists
		}

		return nil, domainerrors.NewUpstreamError(errors.Wrap(err, "failed to create identity"), collaboratorName)
	}

	identity, err := p.verifier.VerifyPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}

	return p.startSession(identity), nil
}

func (p *provider) SignOut(ctx context.Context) error {
	p.trace(ctx, "auth.sign_out")
	p.hub.Set(nil)

	return nil
}

func (p *provider) DeleteCurrentIdentity(ctx context.Context) error {
	current := p.hub.Current()
	if current == nil {
		return domainerrors.ErrUnauthenticated
	}

	p.trace(ctx, "auth.delete_identity", slog.String("uid", current.UID))

	if err := p.admin.DeleteUser(ctx, current.UID); err != nil && !fbauth.IsUserNotFound(err) {
		return domainerrors.NewUpstreamError(errors.Wrap(err, "failed to delete identity"), collaboratorName)
	}

	p.hub.Set(nil)

	return nil
}

func (p *provider) CurrentSession() *entity.Session {
	return p.hub.Current()
}

func (p *provider) OnSessionChange(listener service.SessionListener) func() {
	return p.hub.Subscribe(listener)
}

func (p *provider) startSession(identity *VerifiedIdentity) *entity.Session {
	session := &entity.Session{
		UID:      identity.UID,
		Email:    identity.Email,
		Token:    identity.IDToken,
		IssuedAt: p.now().UTC(),
	}
	p.hub.Set(session)

	return session.Clone()
}

func (p *provider) trace(ctx context.Context, op string, attrs ...any) {
	if p.debug {
		p.logger.DebugContext(ctx, "Auth provider call", append([]any{slog.String("op", op)}, attrs...)...)
	}
}
