// Package service defines interfaces for core, stateless domain logic and for
// the external collaborators the application talks to.
package service

import (
	"context"

	"threads/internal/domain/entity"
)

// SessionListener receives every session change. A nil session means signed out.
type SessionListener func(session *entity.Session)

// AuthProvider is the authentication collaborator. It issues and revokes
// sessions; the application only mirrors them.
type AuthProvider interface {
	// SignIn exchanges credentials for a session. Wrong credentials yield
	// domain ErrInvalidCredentials.
	SignIn(ctx context.Context, email, password string) (*entity.Session, error)

	// CreateIdentity registers new credentials and signs them in.
	CreateIdentity(ctx context.Context, email, password string) (*entity.Session, error)

	// SignOut drops the current session.
	SignOut(ctx context.Context) error

	// DeleteCurrentIdentity removes the signed-in identity and drops its session.
	DeleteCurrentIdentity(ctx context.Context) error

	// CurrentSession returns the live session or nil.
	CurrentSession() *entity.Session

	// OnSessionChange registers listener for every later session change and
	// returns a function that removes it.
	OnSessionChange(listener SessionListener) (cancel func())
}
