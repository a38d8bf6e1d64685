package firebase

import (
	"context"
	"net/http"
	"strings"

	"threads/config"
	domainerrors "threads/internal/domain/errors"
	"threads/internal/errors"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"
)

// Identity Toolkit error messages that mean "wrong credentials".
var credentialFailures = []string{
	"EMAIL_NOT_FOUND",
	"INVALID_PASSWORD",
	"INVALID_LOGIN_CREDENTIALS",
	"INVALID_EMAIL",
	"USER_DISABLED",
}

type identityToolkitVerifier struct {
	relyingParty *identitytoolkit.RelyingpartyService
}

// NewPasswordVerifier builds a verifier on the Identity Toolkit API using the web API key.
func NewPasswordVerifier(cfg *config.Config) (PasswordVerifier, error) {
	if cfg.Auth.APIKey == "" {
		return nil, errors.New("auth.apiKey is required for password sign-in")
	}

	svc, err := identitytoolkit.NewService(context.Background(), option.WithAPIKey(cfg.Auth.APIKey))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create identity toolkit service")
	}

	return &identityToolkitVerifier{relyingParty: svc.Relyingparty}, nil
}

func (v *identityToolkitVerifier) VerifyPassword(ctx context.Context, email, password string) (*VerifiedIdentity, error) {
	resp, err := v.relyingParty.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return nil, mapVerifyError(err)
	}

	return &VerifiedIdentity{
		UID:     resp.LocalId,
		Email:   resp.Email,
		IDToken: resp.IdToken,
	}, nil
}

func mapVerifyError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusBadRequest {
		for _, reason := range credentialFailures {
			if strings.HasPrefix(apiErr.Message, reason) {
				return domainerrors.ErrInvalidCredentials
			}
		}
	}

	return domainerrors.NewUpstreamError(errors.Wrap(err, "password sign-in failed"), collaboratorName)
}
