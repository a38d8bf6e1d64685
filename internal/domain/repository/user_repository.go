// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"
	"errors"

	"threads/internal/domain/entity"
)

// ErrProfileNotFound is returned when no profile document exists for an id.
var ErrProfileNotFound = errors.New("profile not found")

// ProfileUpdate lists the mutable profile fields. Nil fields are left untouched.
type ProfileUpdate struct {
	ProfileImageURL *string
	Bio             *string
}

// IsEmpty reports whether the update changes nothing.
func (u ProfileUpdate) IsEmpty() bool {
	return u.ProfileImageURL == nil && u.Bio == nil
}

// ProfileRepository reads and writes the users collection.
type ProfileRepository interface {
	// FindByID returns ErrProfileNotFound when the document is absent and a
	// decode failure when it exists but does not fit the profile shape.
	FindByID(ctx context.Context, id string) (*entity.Profile, error)

	// Create writes the profile document under its own id, replacing any previous one.
	Create(ctx context.Context, profile *entity.Profile) error

	// Update applies the non-nil fields of update to an existing document.
	Update(ctx context.Context, id string, update ProfileUpdate) error

	// Delete removes the document. Deleting an absent document is not an error.
	Delete(ctx context.Context, id string) error

	// List returns every decodable profile. Malformed documents are skipped.
	List(ctx context.Context) ([]*entity.Profile, error)
}
