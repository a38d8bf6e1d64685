package entity

import "time"

// Session is the handle the auth collaborator issues after a successful
// credential exchange. A nil *Session means nobody is signed in.
type Session struct {
	UID      string    // Subject of the identity; matches Profile.ID.
	Email    string    // Email the identity signed in with.
	Token    string    // Opaque token issued by the collaborator.
	IssuedAt time.Time // When the collaborator issued the token.
}

// Clone returns a copy of the session, or nil.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}

	clone := *s

	return &clone
}

// SameIdentity reports whether both sessions belong to the same subject.
func (s *Session) SameIdentity(other *Session) bool {
	if s == nil || other == nil {
		return s == nil && other == nil
	}

	return s.UID == other.UID
}

// SessionState is the position of the session store in its state machine.
type SessionState string

const (
	// SessionStateSignedOut means no session and no profile.
	SessionStateSignedOut SessionState = "signed_out"
	// SessionStateSessionOnly means a live session whose profile is missing or incomplete.
	SessionStateSessionOnly SessionState = "session_only"
	// SessionStateReady means a live session with a complete profile.
	SessionStateReady SessionState = "ready"
)
