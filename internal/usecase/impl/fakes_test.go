package impl

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"threads/config"
	"threads/internal/domain/entity"
	domainerrors "threads/internal/domain/errors"
	"threads/internal/domain/repository"
	"threads/internal/domain/service"
	"threads/internal/errors"
	"threads/internal/infra/auth"
	"threads/internal/infra/metrics"
	"threads/internal/infra/sanitizer"
	"threads/internal/usecase"

	"github.com/stretchr/testify/require"
)

var errConnection = errors.New("connection reset by peer")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Timeouts.Upload = 200 * time.Millisecond
	cfg.Timeouts.Write = 200 * time.Millisecond
	cfg.Timeouts.DownloadURL = 200 * time.Millisecond
	cfg.Session.RefetchAttempts = 5
	cfg.Session.RefetchInterval = 10 * time.Millisecond

	return cfg
}

// callLog records collaborator calls across fakes in order.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(call string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (l *callLog) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = nil
}

func (l *callLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]string(nil), l.calls...)
}

// fakeAuth is an auth collaborator backed by a SessionHub.
type fakeAuth struct {
	hub *auth.SessionHub
	log *callLog

	mu          sync.Mutex
	next        int
	createErr   error
	signInErr   error
	signOutErr  error
	deleteErr   error
	deleteDelay time.Duration
}

func newFakeAuth(log *callLog) *fakeAuth {
	return &fakeAuth{hub: auth.NewSessionHub(), log: log}
}

func (a *fakeAuth) issue(uid, email string) *entity.Session {
	return &entity.Session{UID: uid, Email: email, Token: "token-" + uid, IssuedAt: time.Unix(1700000000, 0).UTC()}
}

func (a *fakeAuth) signIn(uid string) *entity.Session {
	session := a.issue(uid, uid+"@example.com")
	a.hub.Set(session)

	return session
}

func (a *fakeAuth) SignIn(_ context.Context, email, _ string) (*entity.Session, error) {
	a.log.add("auth.SignIn")
	a.mu.Lock()
	err := a.signInErr
	a.mu.Unlock()
	if err != nil {
		return nil, err
	}
	session := a.issue("uid-"+email, email)
	a.hub.Set(session)

	return session, nil
}

func (a *fakeAuth) CreateIdentity(_ context.Context, email, _ string) (*entity.Session, error) {
	a.log.add("auth.CreateIdentity")
	a.mu.Lock()
	err := a.createErr
	a.next++
	uid := "uid-" + strconv.Itoa(a.next)
	a.mu.Unlock()
	if err != nil {
		return nil, err
	}
	session := a.issue(uid, email)
	a.hub.Set(session)

	return session, nil
}

func (a *fakeAuth) SignOut(_ context.Context) error {
	a.log.add("auth.SignOut")
	a.mu.Lock()
	err := a.signOutErr
	a.mu.Unlock()
	if err != nil {
		return err
	}
	a.hub.Set(nil)

	return nil
}

func (a *fakeAuth) DeleteCurrentIdentity(ctx context.Context) error {
	a.log.add("auth.DeleteCurrentIdentity")
	a.mu.Lock()
	err, delay := a.deleteErr, a.deleteDelay
	a.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err != nil {
		return err
	}
	a.hub.Set(nil)

	return nil
}

func (a *fakeAuth) CurrentSession() *entity.Session {
	return a.hub.Current()
}

func (a *fakeAuth) OnSessionChange(listener service.SessionListener) func() {
	return a.hub.Subscribe(listener)
}

// memProfiles is an in-memory ProfileRepository. Raw entries simulate
// documents that do not decode.
type memProfiles struct {
	log *callLog

	mu        sync.Mutex
	profiles  map[string]*entity.Profile
	malformed map[string]bool
	findErr   error
	writeErr  error
	findDelay time.Duration
	finds     int
}

func newMemProfiles(log *callLog) *memProfiles {
	return &memProfiles{log: log, profiles: map[string]*entity.Profile{}, malformed: map[string]bool{}}
}

func (r *memProfiles) put(p *entity.Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[p.ID] = p.Clone()
}

func (r *memProfiles) get(id string) *entity.Profile {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.profiles[id].Clone()
}

func (r *memProfiles) findCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.finds
}

func (r *memProfiles) FindByID(ctx context.Context, id string) (*entity.Profile, error) {
	r.mu.Lock()
	r.finds++
	delay, err := r.findDelay, r.findErr
	r.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.malformed[id] {
		return nil, domainerrors.ErrDecodeFailure.WithDetails("users/" + id)
	}
	p, ok := r.profiles[id]
	if !ok {
		return nil, repository.ErrProfileNotFound
	}

	return p.Clone(), nil
}

func (r *memProfiles) Create(_ context.Context, p *entity.Profile) error {
	r.log.add("profiles.Create")
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writeErr != nil {
		return r.writeErr
	}
	r.profiles[p.ID] = p.Clone()

	return nil
}

func (r *memProfiles) Update(_ context.Context, id string, update repository.ProfileUpdate) error {
	r.log.add("profiles.Update")
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writeErr != nil {
		return r.writeErr
	}
	p, ok := r.profiles[id]
	if !ok {
		return repository.ErrProfileNotFound
	}
	if update.ProfileImageURL != nil {
		v := *update.ProfileImageURL
		p.ProfileImageURL = &v
	}
	if update.Bio != nil {
		v := *update.Bio
		p.Bio = &v
	}

	return nil
}

func (r *memProfiles) Delete(_ context.Context, id string) error {
	r.log.add("profiles.Delete")
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writeErr != nil {
		return r.writeErr
	}
	delete(r.profiles, id)

	return nil
}

func (r *memProfiles) List(_ context.Context) ([]*entity.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	out := make([]*entity.Profile, 0, len(r.profiles))
	for id, p := range r.profiles {
		if r.malformed[id] {
			continue
		}
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

// memPosts is an in-memory PostRepository.
type memPosts struct {
	log *callLog

	mu      sync.Mutex
	posts   []*entity.Post
	next    int
	clock   time.Time
	listErr error
	err     error
}

func newMemPosts(log *callLog) *memPosts {
	return &memPosts{log: log, clock: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (r *memPosts) Create(_ context.Context, post *entity.Post) error {
	r.log.add("posts.Create")
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.next++
	r.clock = r.clock.Add(time.Minute)
	post.ID = "thread-" + strconv.Itoa(r.next)
	post.Timestamp = r.clock
	stored := *post
	stored.Author = nil
	r.posts = append(r.posts, &stored)

	return nil
}

func (r *memPosts) ListAll(_ context.Context) ([]*entity.Post, error) {
	return r.filter("")
}

func (r *memPosts) ListByOwner(_ context.Context, ownerUID string) ([]*entity.Post, error) {
	return r.filter(ownerUID)
}

func (r *memPosts) filter(owner string) ([]*entity.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []*entity.Post
	for i := len(r.posts) - 1; i >= 0; i-- {
		if owner != "" && r.posts[i].OwnerUID != owner {
			continue
		}
		p := *r.posts[i]
		out = append(out, &p)
	}

	return out, nil
}

func (r *memPosts) DeleteByOwner(_ context.Context, ownerUID string) (int, error) {
	r.log.add("posts.DeleteByOwner")
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return 0, r.err
	}
	kept := r.posts[:0]
	deleted := 0
	for _, p := range r.posts {
		if p.OwnerUID == ownerUID {
			deleted++

			continue
		}
		kept = append(kept, p)
	}
	r.posts = kept

	return deleted, nil
}

// memObjects is an in-memory ObjectStore.
type memObjects struct {
	log *callLog

	mu       sync.Mutex
	objects  map[string][]byte
	putDelay time.Duration
	urlErr   error
}

func newMemObjects(log *callLog) *memObjects {
	return &memObjects{log: log, objects: map[string][]byte{}}
}

func (o *memObjects) Put(ctx context.Context, path string, data []byte, _ string) error {
	o.log.add("objects.Put")
	o.mu.Lock()
	delay := o.putDelay
	o.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.objects[path] = append([]byte(nil), data...)

	return nil
}

func (o *memObjects) DownloadURL(_ context.Context, path string) (string, error) {
	o.log.add("objects.DownloadURL")
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.urlErr != nil {
		return "", o.urlErr
	}

	return "https://files.example.com/" + path + "?token=t", nil
}

func (o *memObjects) Delete(_ context.Context, path string) error {
	o.log.add("objects.Delete")
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.objects, path)

	return nil
}

func (o *memObjects) Close() error { return nil }

func (o *memObjects) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()

	return len(o.objects)
}

// passEncoder accepts any non-empty input.
type passEncoder struct{}

func (passEncoder) Encode(raw []byte) (*service.EncodedImage, error) {
	if len(raw) == 0 {
		return nil, domainerrors.ErrImageInvalid.WithDetails("empty image")
	}

	return &service.EncodedImage{Data: raw, ContentType: "image/jpeg", Extension: "jpg"}, nil
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []*service.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event *service.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)

	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}

	return out
}

// harness wires every service against the fakes.
type harness struct {
	cfg       *config.Config
	log       *callLog
	auth      *fakeAuth
	profiles  *memProfiles
	posts     *memPosts
	objects   *memObjects
	publisher *recordingPublisher
	store     usecase.SessionStore

	authUC    usecase.AuthUsecase
	postUC    usecase.PostUsecase
	profileUC usecase.ProfileUsecase
	userUC    usecase.UserUsecase
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{cfg: testConfig(), log: &callLog{}, publisher: &recordingPublisher{}}
	h.auth = newFakeAuth(h.log)
	h.profiles = newMemProfiles(h.log)
	h.posts = newMemPosts(h.log)
	h.objects = newMemObjects(h.log)

	logger := discardLogger()
	recorder := metrics.Nop{}

	h.store = NewSessionStore(SessionStoreParams{
		Auth: h.auth, Profiles: h.profiles, Config: h.cfg, Recorder: recorder, Logger: logger,
	})
	require.NoError(t, h.store.Start(context.Background()))
	t.Cleanup(h.store.Stop)

	h.authUC = NewAuthService(AuthServiceParams{
		Auth: h.auth, Profiles: h.profiles, Store: h.store, Sanitizer: sanitizer.New(),
		Config: h.cfg, Recorder: recorder, Logger: logger,
	})
	h.postUC = NewPostService(PostServiceParams{
		Posts: h.posts, Profiles: h.profiles, Store: h.store, Sanitizer: sanitizer.New(),
		Publisher: h.publisher, Config: h.cfg, Recorder: recorder, Logger: logger,
	})
	h.profileUC = NewProfileService(ProfileServiceParams{
		Auth: h.auth, Profiles: h.profiles, Posts: h.posts, Objects: h.objects, Encoder: passEncoder{},
		Sanitizer: sanitizer.New(), Publisher: h.publisher, Store: h.store,
		Config: h.cfg, Recorder: recorder, Logger: logger,
	})
	h.userUC = NewUserService(UserServiceParams{
		Profiles: h.profiles, Store: h.store, Config: h.cfg, Recorder: recorder, Logger: logger,
	})

	return h
}

// signInAs stores a complete profile for uid and signs it in, waiting until
// the store is Ready.
func (h *harness) signInAs(t *testing.T, uid string) *entity.Profile {
	t.Helper()

	profile := &entity.Profile{ID: uid, FullName: "User " + uid, Email: uid + "@example.com", Username: uid}
	h.profiles.put(profile)
	h.auth.signIn(uid)

	require.Eventually(t, func() bool {
		return h.store.Snapshot().State == entity.SessionStateReady
	}, testWait, testTick)

	return profile
}

const (
	testWait = time.Second
	testTick = 5 * time.Millisecond
)
