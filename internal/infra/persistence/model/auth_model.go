package model

import (
	"time"

	"threads/internal/domain/repository"
)

// Field names of the identities collection, used by the local auth provider
// only. The normalized email is the document key.
const (
	IdentityUIDField     = "uid"
	IdentityEmailField   = "email"
	IdentityHashField    = "passwordHash"
	IdentityCreatedField = "createdAt"
)

var identityRequired = []string{IdentityUIDField, IdentityEmailField, IdentityHashField}

// IdentityModel mirrors a document of the 'identities' collection.
type IdentityModel struct {
	UID          string    `doc:"uid"`
	Email        string    `doc:"email"`
	PasswordHash string    `doc:"passwordHash"`
	CreatedAt    time.Time `doc:"createdAt"`
}

// IdentityKey returns the minimal document addressing the identity registered with email.
func IdentityKey(email string) Document {
	return Document{IdentityEmailField: email}
}

// FromIdentity encodes an identity record stamped with createdAt.
func FromIdentity(r *repository.IdentityRecord, createdAt time.Time) Document {
	return Document{
		IdentityUIDField:     r.UID,
		IdentityEmailField:   r.Email,
		IdentityHashField:    r.PasswordHash,
		IdentityCreatedField: createdAt,
	}
}

// ToIdentity decodes an identities document.
func ToIdentity(doc Document) (*repository.IdentityRecord, error) {
	var m IdentityModel
	if err := decodeDocument("identity", doc, identityRequired, &m); err != nil {
		return nil, err
	}

	return &repository.IdentityRecord{
		UID:          m.UID,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
	}, nil
}
