// Package local implements the auth collaborator against the document store:
// identities live in their own collection, passwords are bcrypt hashed and
// sessions are HS256 tokens.
package local

import (
	"context"
	"log/slog"
	"strings"

	"threads/internal/domain/entity"
	domainerrors "threads/internal/domain/errors"
	"threads/internal/domain/repository"
	"threads/internal/domain/service"
	"threads/internal/errors"
	"threads/internal/infra/auth"

	"github.com/google/uuid"
	"go.uber.org/fx"
)

// Params defines the required parameters
type Params struct {
	fx.In

	Identities repository.IdentityRepository
	Hasher     service.PasswordHasher
	Tokens     service.TokenService
	Logger     *slog.Logger
}

type provider struct {
	identities repository.IdentityRepository
	hasher     service.PasswordHasher
	tokens     service.TokenService
	hub        *auth.SessionHub
	logger     *slog.Logger
}

// NewProvider is the constructor for the local auth provider.
func NewProvider(params Params) service.AuthProvider {
	return &provider{
		identities: params.Identities,
		hasher:     params.Hasher,
		tokens:     params.Tokens,
		hub:        auth.NewSessionHub(),
		logger:     params.Logger,
	}
}

func (p *provider) SignIn(ctx context.Context, email, password string) (*entity.Session, error) {
	record, err := p.identities.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrIdentityNotFound) {
			return nil, domainerrors.ErrInvalidCredentials
		}

		return nil, err
	}

	if !p.hasher.Check(password, record.PasswordHash) {
		return nil, domainerrors.ErrInvalidCredentials
	}

	return p.startSession(record)
}

func (p *provider) CreateIdentity(ctx context.Context, email, password string) (*entity.Session, error) {
	hash, err := p.hasher.Hash(password)
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash password")
	}

	record := &repository.IdentityRecord{
		UID:          uuid.NewString(),
		Email:        normalizeEmail(email),
		PasswordHash: hash,
	}
	if err := p.identities.Create(ctx, record); err != nil {
		if errors.Is(err, repository.ErrIdentityExists) {
			return nil, domainerrors.ErrIdentityExists
		}

		return nil, err
	}

	p.logger.InfoContext(ctx, "Identity created", slog.String("uid", record.UID))

	return p.startSession(record)
}

func (p *provider) SignOut(_ context.Context) error {
	p.hub.Set(nil)

	return nil
}

func (p *provider) DeleteCurrentIdentity(ctx context.Context) error {
	current := p.hub.Current()
	if current == nil {
		return domainerrors.ErrUnauthenticated
	}

	// Deleting needs a live token, the same way Firebase asks for a recent login.
	claims, err := p.tokens.Validate(current.Token)
	if err != nil || claims.Subject != current.UID {
		return domainerrors.ErrUnauthenticated.WithDetails("session expired, sign in again")
	}

	if err := p.identities.Delete(ctx, current.UID); err != nil {
		return err
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

func (p *provider) startSession(record *repository.IdentityRecord) (*entity.Session, error) {
	token, issuedAt, err := p.tokens.Issue(record.UID, record.Email)
	if err != nil {
		return nil, err
	}

	session := &entity.Session{
		UID:      record.UID,
		Email:    record.Email,
		Token:    token,
		IssuedAt: issuedAt,
	}
	p.hub.Set(session)

	return session.Clone(), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
