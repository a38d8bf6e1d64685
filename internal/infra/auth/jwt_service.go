// Package auth provides concrete implementations for authentication-related domain services.
package auth

import (
	"time"

	"threads/config"
	"threads/internal/domain/service"
	"threads/internal/errors"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "threads-local"

// jwtService is a concrete implementation of the TokenService interface using the JWT standard.
type jwtService struct {
	secret []byte        // Secret key for signing session tokens.
	ttl    time.Duration // Time-to-live for session tokens.
	now    func() time.Time
}

// NewJWTService is the constructor for jwtService.
func NewJWTService(cfg *config.Config) (service.TokenService, error) {
	if cfg.Auth == nil || cfg.Auth.JWTSecret == "" {
		return nil, errors.New("jwt secret must be provided")
	}

	return &jwtService{
		secret: []byte(cfg.Auth.JWTSecret),
		ttl:    cfg.Auth.SessionTTL,
		now:    time.Now,
	}, nil
}

// Issue creates a signed session token for uid.
func (s *jwtService) Issue(uid, email string) (string, time.Time, error) {
	issuedAt := s.now().UTC().Truncate(time.Second)
	claims := service.Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "failed to sign session token")
	}

	return token, issuedAt, nil
}

// Validate checks the signature and expiry of a session token.
func (s *jwtService) Validate(tokenString string) (*service.Claims, error) {
	claims := &service.Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		// Ensure the signing method is what we expect.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}

		return s.secret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, errors.Wrap(err, "invalid session token")
	}

	return claims, nil
}
