// Package usecase contains the application-specific business rules.
package usecase

import (
	"context"

	"threads/internal/domain/entity"
)

// Dispatcher decides on which goroutine an observer callback runs.
type Dispatcher interface {
	Dispatch(fn func())
}

// Subscription is returned by every observe call.
type Subscription interface {
	// Unsubscribe stops further deliveries. It is idempotent.
	Unsubscribe()
}

// SessionSnapshot is an immutable view of the session store. Every transition
// produces a new snapshot with a higher Version.
type SessionSnapshot struct {
	State   entity.SessionState
	Session *entity.Session
	Profile *entity.Profile
	Version uint64
}

// SessionStore mirrors the auth collaborator's session and the signed-in
// user's profile for the rest of the process. A non-nil profile always
// belongs to the current session.
type SessionStore interface {
	// Start subscribes to the auth collaborator and adopts its current session.
	Start(ctx context.Context) error
	// Stop unsubscribes and cancels any background profile fetch.
	Stop()

	// ObserveSession delivers the current session, then every session change.
	ObserveSession(fn func(*entity.Session), dispatcher Dispatcher) Subscription
	// ObserveProfile delivers the current profile, then every profile change.
	ObserveProfile(fn func(*entity.Profile), dispatcher Dispatcher) Subscription
	// Subscribe delivers the current snapshot, then every later one, in version order.
	Subscribe(fn func(SessionSnapshot), dispatcher Dispatcher) Subscription

	CurrentSession() *entity.Session
	CurrentProfile() *entity.Profile
	Snapshot() SessionSnapshot

	// RefreshProfile fetches the profile of the current session and stores it.
	RefreshProfile(ctx context.Context) (*entity.Profile, error)
	// SetProfile stores profile if it belongs to the current session and
	// reports whether it did.
	SetProfile(profile *entity.Profile) bool
	// Reset drops the profile but keeps the session.
	Reset()
	// Clear drops session and profile in a single transition.
	Clear()
	// Resync adopts the auth collaborator's current session again.
	Resync()
}
