package repository

import (
	"context"
	"errors"
)

var (
	// ErrIdentityNotFound is returned when no identity matches the lookup.
	ErrIdentityNotFound = errors.New("identity not found")

	// ErrIdentityExists is returned when an identity with the same email exists.
	ErrIdentityExists = errors.New("identity already exists")
)

// IdentityRecord is the stored credential of a locally managed identity.
type IdentityRecord struct {
	UID          string
	Email        string
	PasswordHash string
}

// IdentityRepository persists credentials for the local auth collaborator.
// The hosted auth provider keeps its own store and does not use it.
type IdentityRepository interface {
	FindByEmail(ctx context.Context, email string) (*IdentityRecord, error)
	Create(ctx context.Context, record *IdentityRecord) error
	Delete(ctx context.Context, uid string) error
}
