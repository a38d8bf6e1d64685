// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

// Profile is the durable record of one user. The document store owns it across
// restarts; while the process runs, the session store owns the signed-in copy.
type Profile struct {
	ID              string  // Equals the owning session's UID. Never changes once created.
	FullName        string  // Display name. Required for a profile to count as complete.
	Email           string  // Contact email, mirrored from the identity at registration.
	Username        string  // Handle. Uniqueness is enforced by the backing store, not here.
	ProfileImageURL *string // Durable download reference of the avatar, if any.
	Bio             *string // Short biography, if any.
}

// IsComplete reports whether the profile carries every required field.
// A session with an incomplete profile is not yet Ready.
func (p *Profile) IsComplete() bool {
	return p != nil && p.ID != "" && p.FullName != ""
}

// Clone returns a deep copy so callers can never mutate shared state.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}

	clone := *p
	clone.ProfileImageURL = cloneString(p.ProfileImageURL)
	clone.Bio = cloneString(p.Bio)

	return &clone
}

// BioText returns the bio or an empty string.
func (p *Profile) BioText() string {
	if p == nil || p.Bio == nil {
		return ""
	}

	return *p.Bio
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}

	v := *s

	return &v
}
