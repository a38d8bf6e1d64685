package impl

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"threads/config"
	"threads/internal/domain/entity"
	domainerrors "threads/internal/domain/errors"
	"threads/internal/domain/repository"
	"threads/internal/domain/service"
	"threads/internal/errors"
	"threads/internal/infra/metrics"
	"threads/internal/usecase"

	"go.uber.org/fx"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// SessionStoreParams holds dependencies for the session store, injected by Fx.
type SessionStoreParams struct {
	fx.In

	Auth     service.AuthProvider
	Profiles repository.ProfileRepository
	Config   *config.Config
	Recorder metrics.Recorder
	Logger   *slog.Logger
}

// change tells observers which half of the pair moved.
type change struct {
	session bool
	profile bool
}

func (c change) any() bool {
	return c.session || c.profile
}

// sessionStore implements usecase.SessionStore.
//
// Lock order is publishMu, then mu. publishMu is held for a whole transition
// including its publication, so observers see versions in order; mu guards
// the fields and is never held while a callback runs.
type sessionStore struct {
	auth     service.AuthProvider
	profiles repository.ProfileRepository
	runner   *boundedRunner
	recorder metrics.Recorder
	logger   *slog.Logger

	documentTimeout time.Duration
	refetchAttempts int
	refetchInterval time.Duration

	publishMu sync.Mutex

	mu           sync.Mutex
	session      *entity.Session
	profile      *entity.Profile
	version      uint64
	observers    []*observer
	nextObserver uint64
	started      bool
	stopAuth     func()
	healCancel   context.CancelFunc
	baseCtx      context.Context
	baseCancel   context.CancelFunc

	heals   sync.WaitGroup
	fetches singleflight.Group
}

// NewSessionStore builds a signed out store. Call Start to begin mirroring
// the auth collaborator.
func NewSessionStore(params SessionStoreParams) usecase.SessionStore {
	return newSessionStore(params)
}

func newSessionStore(params SessionStoreParams) *sessionStore {
	recorder := params.Recorder
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	baseCtx, baseCancel := context.WithCancel(context.Background())

	return &sessionStore{
		auth:            params.Auth,
		profiles:        params.Profiles,
		runner:          newBoundedRunner(recorder, params.Logger),
		recorder:        recorder,
		logger:          params.Logger,
		documentTimeout: params.Config.Timeouts.Write,
		refetchAttempts: params.Config.Session.RefetchAttempts,
		refetchInterval: params.Config.Session.RefetchInterval,
		baseCtx:         baseCtx,
		baseCancel:      baseCancel,
	}
}

// RegisterSessionStoreLifecycle starts and stops the store with the app.
func RegisterSessionStoreLifecycle(lc fx.Lifecycle, store usecase.SessionStore) {
	lc.Append(fx.Hook{
		OnStart: store.Start,
		OnStop: func(context.Context) error {
			store.Stop()

			return nil
		},
	})
}

func (s *sessionStore) Start(_ context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()

		return nil
	}
	s.started = true
	s.mu.Unlock()

	cancel := s.auth.OnSessionChange(s.onSession)

	s.mu.Lock()
	s.stopAuth = cancel
	s.mu.Unlock()

	// Events raised before the subscription existed are covered by adopting
	// the current session; adopting the same identity twice is a no-op.
	s.onSession(s.auth.CurrentSession())

	return nil
}

func (s *sessionStore) Stop() {
	s.mu.Lock()
	stopAuth := s.stopAuth
	s.stopAuth = nil
	s.cancelHealLocked()
	s.baseCancel()
	s.mu.Unlock()

	if stopAuth != nil {
		stopAuth()
	}
	s.heals.Wait()
}

func (s *sessionStore) CurrentSession() *entity.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.session.Clone()
}

func (s *sessionStore) CurrentProfile() *entity.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.profile.Clone()
}

func (s *sessionStore) Snapshot() usecase.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshotLocked()
}

func (s *sessionStore) ObserveSession(fn func(*entity.Session), dispatcher usecase.Dispatcher) usecase.Subscription {
	return s.observe(&observer{onSession: fn, dispatcher: dispatcher})
}

func (s *sessionStore) ObserveProfile(fn func(*entity.Profile), dispatcher usecase.Dispatcher) usecase.Subscription {
	return s.observe(&observer{onProfile: fn, dispatcher: dispatcher})
}

func (s *sessionStore) Subscribe(fn func(usecase.SessionSnapshot), dispatcher usecase.Dispatcher) usecase.Subscription {
	return s.observe(&observer{onSnapshot: fn, dispatcher: dispatcher})
}

func (s *sessionStore) RefreshProfile(ctx context.Context) (*entity.Profile, error) {
	session := s.CurrentSession()
	if session == nil {
		return nil, errors.WithStack(domainerrors.ErrUnauthenticated)
	}

	profile, err := s.fetch(ctx, session.UID)
	if err != nil {
		return nil, err
	}

	if !s.accept(session.UID, profile) {
		return nil, errors.WithStack(domainerrors.ErrUnauthenticated.WithDetails("session changed during refresh"))
	}

	return profile, nil
}

func (s *sessionStore) SetProfile(profile *entity.Profile) bool {
	if profile == nil {
		return false
	}

	accepted := false
	s.transition(func() change {
		if s.session == nil || profile.ID != s.session.UID {
			return change{}
		}
		accepted = true

		if sameProfile(s.profile, profile) {
			return change{}
		}
		s.profile = profile.Clone()
		if s.profile.IsComplete() {
			s.cancelHealLocked()
		} else {
			s.restartHealLocked()
		}

		return change{profile: true}
	})

	return accepted
}

func (s *sessionStore) Reset() {
	s.transition(func() change {
		if s.profile == nil {
			return change{}
		}
		s.profile = nil
		s.restartHealLocked()

		return change{profile: true}
	})
}

func (s *sessionStore) Clear() {
	s.transition(func() change {
		if s.session == nil && s.profile == nil {
			return change{}
		}
		hadProfile := s.profile != nil
		s.session, s.profile = nil, nil
		s.cancelHealLocked()

		return change{session: true, profile: hadProfile}
	})
}

// onSession is the auth collaborator listener.
func (s *sessionStore) Resync() {
	s.onSession(s.auth.CurrentSession())
}

func (s *sessionStore) onSession(session *entity.Session) {
	s.transition(func() change {
		switch {
		case session == nil:
			if s.session == nil && s.profile == nil {
				return change{}
			}
			hadProfile := s.profile != nil
			s.session, s.profile = nil, nil
			s.cancelHealLocked()

			return change{session: true, profile: hadProfile}

		case s.session != nil && s.session.UID == session.UID:
			// Same identity with a refreshed token: the profile stays valid.
			if sameSession(s.session, session) {
				return change{}
			}
			s.session = session.Clone()

			return change{session: true}

		default:
			hadProfile := s.profile != nil
			s.session = session.Clone()
			s.profile = nil
			s.restartHealLocked()

			return change{session: true, profile: hadProfile}
		}
	})
}

// transition applies mutate under the state lock and publishes the result if
// anything changed. mutate runs with mu held.
func (s *sessionStore) transition(mutate func() change) {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	s.mu.Lock()
	ch := mutate()
	if !ch.any() {
		s.mu.Unlock()

		return
	}
	s.version++
	snap := s.snapshotLocked()
	observers := append([]*observer(nil), s.observers...)
	s.mu.Unlock()

	s.recorder.RecordSessionTransition(string(snap.State))
	s.logger.Debug("Session store transition",
		slog.String("state", string(snap.State)),
		slog.Uint64("version", snap.Version),
	)

	for _, o := range observers {
		o.deliver(snap, ch)
	}
}

// accept stores a fetched profile unless the session moved on meanwhile.
func (s *sessionStore) accept(uid string, profile *entity.Profile) bool {
	accepted := false
	s.transition(func() change {
		if s.session == nil || s.session.UID != uid || profile.ID != uid {
			return change{}
		}
		accepted = true

		if profile.IsComplete() {
			s.cancelHealLocked()
		}
		if sameProfile(s.profile, profile) {
			return change{}
		}
		s.profile = profile.Clone()

		return change{profile: true}
	})

	return accepted
}

// fetch reads the profile of uid. Concurrent fetches for one uid share a
// call. The shared call keeps the first caller's values but is cancelled only
// by Stop, so one caller leaving does not fail the others.
func (s *sessionStore) fetch(ctx context.Context, uid string) (*entity.Profile, error) {
	ch := s.fetches.DoChan(uid, func() (any, error) {
		shared, cancel := context.WithCancel(context.WithoutCancel(ctx))
		defer cancel()
		defer context.AfterFunc(s.baseCtx, cancel)()

		return boundedCall(shared, s.runner, "profile.fetch", s.documentTimeout, func(ctx context.Context) (*entity.Profile, error) {
			return s.profiles.FindByID(ctx, uid)
		})
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, mapProfileReadError(res.Err)
		}

		return res.Val.(*entity.Profile).Clone(), nil
	case <-ctx.Done():
		return nil, errors.WithStack(ctx.Err())
	}
}

// heal re-fetches the profile of uid until a complete one is stored, the
// attempts run out or ctx is cancelled.
func (s *sessionStore) heal(ctx context.Context, uid string) {
	limiter := rate.NewLimiter(rate.Every(s.refetchInterval), 1)

	for attempt := 1; attempt <= s.refetchAttempts; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return
		}

		profile, err := s.fetch(ctx, uid)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			s.logger.Warn("Profile re-fetch failed",
				slog.String("uid", uid),
				slog.Int("attempt", attempt),
				slog.Any("error", err),
			)

			continue
		}

		if s.accept(uid, profile) && profile.IsComplete() {
			return
		}
	}

	s.logger.Warn("Giving up profile re-fetch", slog.String("uid", uid), slog.Int("attempts", s.refetchAttempts))
}

func (s *sessionStore) restartHealLocked() {
	s.cancelHealLocked()
	if s.session == nil || s.profile.IsComplete() || s.baseCtx.Err() != nil {
		return
	}

	ctx, cancel := context.WithCancel(s.baseCtx)
	s.healCancel = cancel
	uid := s.session.UID

	s.heals.Add(1)
	go func() {
		defer s.heals.Done()
		s.heal(ctx, uid)
	}()
}

func (s *sessionStore) cancelHealLocked() {
	if s.healCancel != nil {
		s.healCancel()
		s.healCancel = nil
	}
}

func (s *sessionStore) snapshotLocked() usecase.SessionSnapshot {
	return usecase.SessionSnapshot{
		State:   stateOf(s.session, s.profile),
		Session: s.session.Clone(),
		Profile: s.profile.Clone(),
		Version: s.version,
	}
}

func (s *sessionStore) observe(o *observer) usecase.Subscription {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	s.mu.Lock()
	o.id = s.nextObserver
	s.nextObserver++
	o.active.Store(true)
	s.observers = append(s.observers, o)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	o.deliver(snap, change{session: true, profile: true})

	return &subscription{cancel: func() {
		o.active.Store(false)

		s.mu.Lock()
		defer s.mu.Unlock()
		for i, candidate := range s.observers {
			if candidate.id == o.id {
				s.observers = append(s.observers[:i], s.observers[i+1:]...)

				break
			}
		}
	}}
}

func stateOf(session *entity.Session, profile *entity.Profile) entity.SessionState {
	switch {
	case session == nil:
		return entity.SessionStateSignedOut
	case profile.IsComplete():
		return entity.SessionStateReady
	default:
		return entity.SessionStateSessionOnly
	}
}

// observer is one registered callback. Exactly one of the callbacks is set.
type observer struct {
	id         uint64
	dispatcher usecase.Dispatcher
	active     atomic.Bool

	onSnapshot func(usecase.SessionSnapshot)
	onSession  func(*entity.Session)
	onProfile  func(*entity.Profile)
}

func (o *observer) deliver(snap usecase.SessionSnapshot, ch change) {
	var fn func()

	switch {
	case o.onSnapshot != nil:
		own := snap
		own.Session = snap.Session.Clone()
		own.Profile = snap.Profile.Clone()
		fn = func() { o.onSnapshot(own) }
	case o.onSession != nil:
		if !ch.session {
			return
		}
		session := snap.Session.Clone()
		fn = func() { o.onSession(session) }
	case o.onProfile != nil:
		if !ch.profile {
			return
		}
		profile := snap.Profile.Clone()
		fn = func() { o.onProfile(profile) }
	default:
		return
	}

	o.dispatcher.Dispatch(func() {
		if o.active.Load() {
			fn()
		}
	})
}

type subscription struct {
	once   sync.Once
	cancel func()
}

func (s *subscription) Unsubscribe() {
	s.once.Do(s.cancel)
}

func sameSession(a, b *entity.Session) bool {
	return a.UID == b.UID && a.Email == b.Email && a.Token == b.Token && a.IssuedAt.Equal(b.IssuedAt)
}

func sameProfile(a, b *entity.Profile) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	return a.ID == b.ID &&
		a.FullName == b.FullName &&
		a.Email == b.Email &&
		a.Username == b.Username &&
		sameOptional(a.ProfileImageURL, b.ProfileImageURL) &&
		sameOptional(a.Bio, b.Bio)
}

func sameOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	return *a == *b
}
