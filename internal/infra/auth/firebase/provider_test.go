package firebase

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"threads/internal/domain/entity"
	domainerrors "threads/internal/domain/errors"
	"threads/internal/errors"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

type mockAdmin struct {
	mock.Mock
}

func (m *mockAdmin) CreateUser(ctx context.Context, user *fbauth.UserToCreate) (*fbauth.UserRecord, error) {
	args := m.Called(ctx, user)
	if rec, ok := args.Get(0).(*fbauth.UserRecord); ok {
		return rec, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *mockAdmin) DeleteUser(ctx context.Context, uid string) error {
	return m.Called(ctx, uid).Error(0)
}

type mockVerifier struct {
	mock.Mock
}

func (m *mockVerifier) VerifyPassword(ctx context.Context, email, password string) (*VerifiedIdentity, error) {
	args := m.Called(ctx, email, password)
	if id, ok := args.Get(0).(*VerifiedIdentity); ok {
		return id, args.Error(1)
	}

	return nil, args.Error(1)
}

func newTestProvider() (*provider, *mockAdmin, *mockVerifier) {
	admin := &mockAdmin{}
	verifier := &mockVerifier{}

	return newProvider(admin, verifier, slog.New(slog.NewTextHandler(io.Discard, nil)), true), admin, verifier
}

func TestProvider_SignIn(t *testing.T) {
	ctx := context.Background()
	p, _, verifier := newTestProvider()

	verifier.On("VerifyPassword", ctx, "ada@example.com", "pw").
		Return(&VerifiedIdentity{UID: "u1", Email: "ada@example.com", IDToken: "id-token"}, nil).Once()

	var seen *entity.Session
	cancel := p.OnSessionChange(func(s *entity.Session) { seen = s })
	defer cancel()

	session, err := p.SignIn(ctx, " ada@example.com ", "pw")
	require.NoError(t, err)
	assert.Equal(t, "u1", session.UID)
	assert.Equal(t, "id-token", session.Token)
	assert.Equal(t, "u1", p.CurrentSession().UID)
	require.NotNil(t, seen)
	assert.Equal(t, "u1", seen.UID)

	verifier.AssertExpectations(t)
}

func TestProvider_SignInWrongPassword(t *testing.T) {
	ctx := context.Background()
	p, _, verifier := newTestProvider()

	verifier.On("VerifyPassword", ctx, "ada@example.com", "bad").Return(nil, domainerrors.ErrInvalidCredentials)

	_, err := p.SignIn(ctx, "ada@example.com", "bad")
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidCredentials))
	assert.Nil(t, p.CurrentSession())
}

func TestProvider_CreateIdentity(t *testing.T) {
	ctx := context.Background()
	p, admin, verifier := newTestProvider()

	admin.On("CreateUser", ctx, mock.Anything).Return(&fbauth.UserRecord{}, nil).Once()
	verifier.On("VerifyPassword", ctx, "ada@example.com", "pw").
		Return(&VerifiedIdentity{UID: "u1", Email: "ada@example.com", IDToken: "t"}, nil).Once()

	session, err := p.CreateIdentity(ctx, "ada@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "u1", session.UID)

	admin.AssertExpectations(t)
	verifier.AssertExpectations(t)
}

func TestProvider_CreateIdentityUpstreamFailure(t *testing.T) {
	ctx := context.Background()
	p, admin, verifier := newTestProvider()

	admin.On("CreateUser", ctx, mock.Anything).Return(nil, errors.New("quota exceeded")).Once()

	_, err := p.CreateIdentity(ctx, "ada@example.com", "pw")
	require.Error(t, err)
	assert.True(t, domainerrors.IsUpstream(err))
	assert.Contains(t, err.Error(), "quota exceeded")
	verifier.AssertNotCalled(t, "VerifyPassword", mock.Anything, mock.Anything, mock.Anything)
}

func TestProvider_DeleteCurrentIdentity(t *testing.T) {
	ctx := context.Background()
	p, admin, verifier := newTestProvider()

	assert.True(t, errors.Is(p.DeleteCurrentIdentity(ctx), domainerrors.ErrUnauthenticated))

	verifier.On("VerifyPassword", ctx, "ada@example.com", "pw").
		Return(&VerifiedIdentity{UID: "u1", Email: "ada@example.com", IDToken: "t"}, nil)
	_, err := p.SignIn(ctx, "ada@example.com", "pw")
	require.NoError(t, err)

	admin.On("DeleteUser", ctx, "u1").Return(errors.New("backend down")).Once()
	err = p.DeleteCurrentIdentity(ctx)
	assert.True(t, domainerrors.IsUpstream(err))
	assert.NotNil(t, p.CurrentSession(), "a failed delete keeps the session")

	admin.On("DeleteUser", ctx, "u1").Return(nil).Once()
	require.NoError(t, p.DeleteCurrentIdentity(ctx))
	assert.Nil(t, p.CurrentSession())
}

func TestMapVerifyError(t *testing.T) {
	err := mapVerifyError(&googleapi.Error{Code: http.StatusBadRequest, Message: "INVALID_PASSWORD"})
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidCredentials))

	err = mapVerifyError(&googleapi.Error{Code: http.StatusBadRequest, Message: "INVALID_LOGIN_CREDENTIALS"})
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidCredentials))

	err = mapVerifyError(&googleapi.Error{Code: http.StatusServiceUnavailable, Message: "unavailable"})
	assert.True(t, domainerrors.IsUpstream(err))
}
