package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims defines the custom claims of a session token.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenService issues and validates the opaque session tokens of the local
// auth collaborator.
type TokenService interface {
	// Issue creates a token for uid and returns it with its issue time.
	Issue(uid, email string) (token string, issuedAt time.Time, err error)

	// Validate parses a token and returns its claims.
	Validate(token string) (*Claims, error)
}
