package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"threads/config"
	"threads/internal/delivery/api/middleware"
	"threads/internal/delivery/api/response"
	"threads/internal/delivery/api/router"
	"threads/internal/delivery/api/router/handler"
	deliverycontext "threads/internal/delivery/context"
	"threads/internal/domain/entity"
	domainerrors "threads/internal/domain/errors"
	"threads/internal/errors"
	"threads/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAuthUC struct{ mock.Mock }

func (m *mockAuthUC) SignUp(ctx context.Context, in *usecase.SignUpInput) (*entity.Session, error) {
	args := m.Called(ctx, in)
	s, _ := args.Get(0).(*entity.Session)

	return s, args.Error(1)
}

func (m *mockAuthUC) SignIn(ctx context.Context, in *usecase.SignInInput) (*entity.Session, error) {
	args := m.Called(ctx, in)
	s, _ := args.Get(0).(*entity.Session)

	return s, args.Error(1)
}

func (m *mockAuthUC) SignOut(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type mockPostUC struct{ mock.Mock }

func (m *mockPostUC) CreatePost(ctx context.Context, in *usecase.CreatePostInput) (*entity.Post, error) {
	args := m.Called(ctx, in)
	p, _ := args.Get(0).(*entity.Post)

	return p, args.Error(1)
}

func (m *mockPostUC) ListPosts(ctx context.Context) ([]*entity.Post, error) {
	args := m.Called(ctx)
	p, _ := args.Get(0).([]*entity.Post)

	return p, args.Error(1)
}

func (m *mockPostUC) ListPostsByAuthor(ctx context.Context, author *entity.Profile) ([]*entity.Post, error) {
	args := m.Called(ctx, author)
	p, _ := args.Get(0).([]*entity.Post)

	return p, args.Error(1)
}

type mockUserUC struct{ mock.Mock }

func (m *mockUserUC) ListUsers(ctx context.Context) ([]*entity.Profile, error) {
	args := m.Called(ctx)
	p, _ := args.Get(0).([]*entity.Profile)

	return p, args.Error(1)
}

func (m *mockUserUC) GetUser(ctx context.Context, id string) (*entity.Profile, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*entity.Profile)

	return p, args.Error(1)
}

type mockProfileUC struct{ mock.Mock }

func (m *mockProfileUC) UploadProfileImage(ctx context.Context, raw []byte) (string, error) {
	args := m.Called(ctx, raw)

	return args.String(0), args.Error(1)
}

func (m *mockProfileUC) UpdateBio(ctx context.Context, bio string) (*entity.Profile, error) {
	args := m.Called(ctx, bio)
	p, _ := args.Get(0).(*entity.Profile)

	return p, args.Error(1)
}

func (m *mockProfileUC) UpdateProfile(ctx context.Context, in *usecase.UpdateProfileInput) (*entity.Profile, error) {
	args := m.Called(ctx, in)
	p, _ := args.Get(0).(*entity.Profile)

	return p, args.Error(1)
}

func (m *mockProfileUC) DeleteAccount(ctx context.Context, identityID string) error {
	return m.Called(ctx, identityID).Error(0)
}

// stubStore is a SessionStore with a fixed session.
type stubStore struct {
	session *entity.Session
	profile *entity.Profile
}

func (s *stubStore) Start(context.Context) error { return nil }
func (s *stubStore) Stop()                       {}

func (s *stubStore) ObserveSession(fn func(*entity.Session), d usecase.Dispatcher) usecase.Subscription {
	d.Dispatch(func() { fn(s.session) })

	return noSub{}
}

func (s *stubStore) ObserveProfile(fn func(*entity.Profile), d usecase.Dispatcher) usecase.Subscription {
	d.Dispatch(func() { fn(s.profile) })

	return noSub{}
}

func (s *stubStore) Subscribe(fn func(usecase.SessionSnapshot), d usecase.Dispatcher) usecase.Subscription {
	snap := s.Snapshot()
	d.Dispatch(func() { fn(snap) })

	return noSub{}
}

func (s *stubStore) CurrentSession() *entity.Session { return s.session.Clone() }
func (s *stubStore) CurrentProfile() *entity.Profile { return s.profile.Clone() }

func (s *stubStore) Snapshot() usecase.SessionSnapshot {
	state := entity.SessionStateSignedOut
	switch {
	case s.session != nil && s.profile.IsComplete():
		state = entity.SessionStateReady
	case s.session != nil:
		state = entity.SessionStateSessionOnly
	}

	return usecase.SessionSnapshot{State: state, Session: s.CurrentSession(), Profile: s.CurrentProfile(), Version: 3}
}

func (s *stubStore) RefreshProfile(context.Context) (*entity.Profile, error) {
	if s.session == nil {
		return nil, errors.WithStack(domainerrors.ErrUnauthenticated)
	}

	return s.profile.Clone(), nil
}

func (s *stubStore) SetProfile(*entity.Profile) bool { return false }
func (s *stubStore) Reset()                          {}
func (s *stubStore) Clear()                          {}
func (s *stubStore) Resync()                         {}

type noSub struct{}

func (noSub) Unsubscribe() {}

type apiFixture struct {
	echo    *echo.Echo
	store   *stubStore
	auth    *mockAuthUC
	posts   *mockPostUC
	users   *mockUserUC
	profile *mockProfileUC
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Default()

	f := &apiFixture{
		store:   &stubStore{},
		auth:    &mockAuthUC{},
		posts:   &mockPostUC{},
		users:   &mockUserUC{},
		profile: &mockProfileUC{},
	}
	t.Cleanup(func() {
		f.auth.AssertExpectations(t)
		f.posts.AssertExpectations(t)
		f.users.AssertExpectations(t)
		f.profile.AssertExpectations(t)
	})

	r := router.NewRouter(router.RouterParams{
		AuthHandler:       handler.NewAuthHandler(handler.AuthHandlerParams{AuthUC: f.auth, Logger: logger}),
		SessionHandler:    handler.NewSessionHandler(handler.SessionHandlerParams{Store: f.store, Logger: logger}),
		ThreadHandler:     handler.NewThreadHandler(handler.ThreadHandlerParams{PostUC: f.posts, Logger: logger}),
		UserHandler:       handler.NewUserHandler(handler.UserHandlerParams{UserUC: f.users, PostUC: f.posts, Logger: logger}),
		ProfileHandler:    handler.NewProfileHandler(handler.ProfileHandlerParams{ProfileUC: f.profile, Logger: logger}),
		SessionMiddleware: middleware.NewSessionMiddleware(f.store),
		Gatherer:          prometheus.NewRegistry(),
	})
	f.echo = NewEcho(cfg, logger, r)

	return f
}

func (f *apiFixture) signIn() {
	f.store.session = &entity.Session{UID: "u1", Email: "yoon@example.com", Token: "tok", IssuedAt: time.Unix(1700000000, 0).UTC()}
	f.store.profile = &entity.Profile{ID: "u1", FullName: "Yoon", Email: "yoon@example.com", Username: "yoon"}
}

func (f *apiFixture) do(method, target, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)

	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) *response.ErrorInfo {
	t.Helper()

	var body response.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	require.NotNil(t, body.Meta)
	assert.NotEmpty(t, body.Meta.RequestID)

	return body.Error
}

func TestAPI_HealthAndMetrics(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec = f.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPI_SessionRequiredRoutes(t *testing.T) {
	f := newAPIFixture(t)

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/threads"},
		{http.MethodPost, "/threads"},
		{http.MethodGet, "/users"},
		{http.MethodGet, "/users/u2"},
		{http.MethodPut, "/profile/bio"},
		{http.MethodPost, "/profile/image"},
		{http.MethodDelete, "/account"},
	} {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			rec := f.do(route.method, route.path, "")
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "UNAUTHENTICATED", decodeError(t, rec).Code)
		})
	}
}

func TestAPI_RejectsForeignBearerToken(t *testing.T) {
	f := newAPIFixture(t)
	f.signIn()

	for _, header := range []string{
		"Bearer someone-else",
		"Bearer to",
		"Bearer tokk",
		"Bearer ",
		"tok",
	} {
		t.Run(header, func(t *testing.T) {
			rec := f.do(http.MethodGet, "/threads", "", echo.HeaderAuthorization, header)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestAPI_RequestIDReachesUsecase(t *testing.T) {
	f := newAPIFixture(t)
	f.signIn()

	f.posts.On("ListPosts", mock.MatchedBy(func(ctx context.Context) bool {
		return deliverycontext.GetRequestIDFromContext(ctx) == "client-req-1"
	})).Return([]*entity.Post{}, nil).Once()

	rec := f.do(http.MethodGet, "/threads", "", "X-Request-Id", "client-req-1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "client-req-1", rec.Header().Get("X-Request-Id"))
}

func TestAPI_ReplacesUnusableRequestID(t *testing.T) {
	f := newAPIFixture(t)

	for _, id := range []string{"has space", strings.Repeat("x", 129), "caf\u00e9"} {
		rec := f.do(http.MethodGet, "/health", "", "X-Request-Id", id)
		got := rec.Header().Get("X-Request-Id")
		assert.NotEqual(t, id, got)
		_, err := uuid.Parse(got)
		assert.NoError(t, err)
	}
}

func TestAPI_ListThreads(t *testing.T) {
	f := newAPIFixture(t)
	f.signIn()

	posts := []*entity.Post{{
		ID: "t1", OwnerUID: "u1", Caption: "hello world",
		Timestamp: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		Author:    f.store.profile,
	}}
	f.posts.On("ListPosts", mock.Anything).Return(posts, nil)

	rec := f.do(http.MethodGet, "/threads", "", echo.HeaderAuthorization, "Bearer tok")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []handler.ThreadResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "hello world", body.Data[0].Caption)
	assert.Equal(t, "Yoon", body.Data[0].Author.FullName)
}

func TestAPI_CreateThreadDefaultsAuthor(t *testing.T) {
	f := newAPIFixture(t)
	f.signIn()

	f.posts.On("CreatePost", mock.Anything, mock.MatchedBy(func(in *usecase.CreatePostInput) bool {
		return in.AuthorID == "u1" && in.Caption == "hi"
	})).Return(&entity.Post{ID: "t9", OwnerUID: "u1", Caption: "hi"}, nil)

	rec := f.do(http.MethodPost, "/threads", `{"caption":"hi"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestAPI_ErrorEnvelope(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		status    int
		code      string
		message   string
		retryable bool
	}{
		{
			name:    "invalid credentials",
			err:     errors.WithStack(domainerrors.ErrInvalidCredentials),
			status:  http.StatusUnauthorized,
			code:    "INVALID_CREDENTIALS",
			message: domainerrors.ErrInvalidCredentials.Message(),
		},
		{
			name:      "timed out",
			err:       errors.Wrap(domainerrors.ErrTimedOut, "operation exceeded 10s"),
			status:    http.StatusGatewayTimeout,
			code:      "TIMED_OUT",
			message:   domainerrors.ErrTimedOut.Message(),
			retryable: true,
		},
		{
			name:    "upstream",
			err:     domainerrors.NewUpstreamError(errors.New("The email address is badly formatted."), "auth provider"),
			status:  http.StatusBadGateway,
			code:    "UPSTREAM_FAILURE",
			message: "The email address is badly formatted.",
		},
		{
			name:    "unexpected",
			err:     errors.New("boom"),
			status:  http.StatusInternalServerError,
			code:    "INTERNAL_ERROR",
			message: domainerrors.ErrInternalError.Message(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAPIFixture(t)
			f.auth.On("SignIn", mock.Anything, mock.Anything).Return(nil, tt.err)

			rec := f.do(http.MethodPost, "/auth/signin", `{"email":"a@example.com","password":"secret1"}`)
			assert.Equal(t, tt.status, rec.Code)

			info := decodeError(t, rec)
			assert.Equal(t, tt.code, info.Code)
			assert.Equal(t, tt.message, info.Message)
			assert.Equal(t, tt.retryable, info.Retryable)
		})
	}
}

func TestAPI_BindingError(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(http.MethodPost, "/auth/signup", `{"email":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_INPUT", decodeError(t, rec).Code)
}

func TestAPI_SessionSnapshotAndRefresh(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(http.MethodGet, "/session", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"state":"signed_out"`)

	rec = f.do(http.MethodPost, "/session/refresh", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	f.signIn()
	rec = f.do(http.MethodPost, "/session/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"state":"ready"`)
}

func TestAPI_SessionEventsStreamsSnapshots(t *testing.T) {
	f := newAPIFixture(t)
	f.signIn()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/session/events", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)

	assert.Equal(t, "text/event-stream", rec.Header().Get(echo.HeaderContentType))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "data: {"))
	assert.Contains(t, rec.Body.String(), `"uid":"u1"`)
}

func TestAPI_DeleteAccountUsesSessionUID(t *testing.T) {
	f := newAPIFixture(t)
	f.signIn()
	f.profile.On("DeleteAccount", mock.Anything, "u1").Return(nil)

	rec := f.do(http.MethodDelete, "/account", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAPI_UploadImagePassesRawBody(t *testing.T) {
	f := newAPIFixture(t)
	f.signIn()
	f.profile.On("UploadProfileImage", mock.Anything, []byte("raw-image")).Return("https://files/x.jpg", nil)

	req := httptest.NewRequest(http.MethodPost, "/profile/image", strings.NewReader("raw-image"))
	req.Header.Set(echo.HeaderContentType, "image/png")
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "https://files/x.jpg")
}

func TestAPI_UserThreads(t *testing.T) {
	f := newAPIFixture(t)
	f.signIn()

	grace := &entity.Profile{ID: "u2", FullName: "Grace"}
	f.users.On("GetUser", mock.Anything, "u2").Return(grace, nil)
	f.posts.On("ListPostsByAuthor", mock.Anything, grace).Return([]*entity.Post{{ID: "t1", OwnerUID: "u2", Author: grace}}, nil)
	f.users.On("GetUser", mock.Anything, "ghost").Return(nil, errors.WithStack(domainerrors.ErrProfileNotFound))

	rec := f.do(http.MethodGet, "/users/u2/threads", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/users/ghost", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "PROFILE_NOT_FOUND", decodeError(t, rec).Code)
}
