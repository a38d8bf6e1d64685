package impl

import (
	"context"
	"log/slog"
	"strconv"
	"time"
	"unicode/utf8"

	"threads/config"
	"threads/internal/domain/entity"
	domainerrors "threads/internal/domain/errors"
	"threads/internal/domain/repository"
	"threads/internal/domain/service"
	"threads/internal/errors"
	"threads/internal/infra/metrics"
	"threads/internal/usecase"

	"github.com/google/uuid"
	"go.uber.org/fx"
)

// ProfileServiceParams holds dependencies for ProfileService, injected by Fx.
type ProfileServiceParams struct {
	fx.In

	Auth      service.AuthProvider
	Profiles  repository.ProfileRepository
	Posts     repository.PostRepository
	Objects   service.ObjectStore
	Encoder   service.ImageEncoder
	Sanitizer service.Sanitizer
	Publisher service.EventPublisher
	Store     usecase.SessionStore
	Config    *config.Config
	Recorder  metrics.Recorder
	Logger    *slog.Logger
}

type profileService struct {
	auth      service.AuthProvider
	profiles  repository.ProfileRepository
	posts     repository.PostRepository
	objects   service.ObjectStore
	encoder   service.ImageEncoder
	sanitizer service.Sanitizer
	store     usecase.SessionStore
	events    *eventEmitter
	runner    *boundedRunner
	logger    *slog.Logger

	uploadTimeout      time.Duration
	writeTimeout       time.Duration
	downloadURLTimeout time.Duration
	imagePrefix        string
	maxBioLength       int
}

// NewProfileService creates the service that edits the signed-in user's own profile.
func NewProfileService(params ProfileServiceParams) usecase.ProfileUsecase {
	return &profileService{
		auth:               params.Auth,
		profiles:           params.Profiles,
		posts:              params.Posts,
		objects:            params.Objects,
		encoder:            params.Encoder,
		sanitizer:          params.Sanitizer,
		store:              params.Store,
		events:             newEventEmitter(params.Publisher, params.Logger),
		runner:             newBoundedRunner(params.Recorder, params.Logger),
		logger:             params.Logger,
		uploadTimeout:      params.Config.Timeouts.Upload,
		writeTimeout:       params.Config.Timeouts.Write,
		downloadURLTimeout: params.Config.Timeouts.DownloadURL,
		imagePrefix:        params.Config.Storage.ImagePrefix,
		maxBioLength:       params.Config.Content.MaxBioLength,
	}
}

// UploadProfileImage encodes raw, stores it, resolves its download URL and
// points the profile document at it. Any failure after the upload removes the
// object again, best effort.
func (s *profileService) UploadProfileImage(ctx context.Context, raw []byte) (string, error) {
	session, err := requireSession(s.store)
	if err != nil {
		return "", err
	}

	image, err := s.encoder.Encode(raw)
	if err != nil {
		return "", errors.WithStack(err)
	}

	path := s.imagePrefix + "/" + uuid.NewString() + "." + image.Extension
	err = boundedDo(ctx, s.runner, "object.put", s.uploadTimeout, func(ctx context.Context) error {
		return s.objects.Put(ctx, path, image.Data, image.ContentType)
	})
	if err != nil {
		return "", err
	}

	url, err := boundedCall(ctx, s.runner, "object.download_url", s.downloadURLTimeout, func(ctx context.Context) (string, error) {
		return s.objects.DownloadURL(ctx, path)
	})
	if err != nil {
		s.discardObject(ctx, path)

		return "", err
	}

	err = boundedDo(ctx, s.runner, "profile.update", s.writeTimeout, func(ctx context.Context) error {
		return s.profiles.Update(ctx, session.UID, repository.ProfileUpdate{ProfileImageURL: &url})
	})
	if err != nil {
		s.discardObject(ctx, path)

		return "", mapProfileReadError(err)
	}

	s.applyToStore(session.UID, func(p *entity.Profile) { p.ProfileImageURL = &url })
	s.events.emit(ctx, service.EventProfileUpdated, session.UID, session.UID, map[string]string{"field": "profileImageUrl"})

	return url, nil
}

// discardObject deletes an object whose profile update never happened.
func (s *profileService) discardObject(ctx context.Context, path string) {
	ctx = context.WithoutCancel(ctx)
	err := boundedDo(ctx, s.runner, "object.delete", s.uploadTimeout, func(ctx context.Context) error {
		return s.objects.Delete(ctx, path)
	})
	if err != nil {
		requestLogger(ctx, s.logger).WarnContext(ctx, "Failed to remove orphaned image",
			slog.String("path", path),
			slog.Any("error", err),
		)
	}
}

// UpdateBio writes bio only when it is non-empty and differs from the stored one.
func (s *profileService) UpdateBio(ctx context.Context, bio string) (*entity.Profile, error) {
	session, err := requireSession(s.store)
	if err != nil {
		return nil, err
	}

	bio = s.sanitizer.Sanitize(bio)
	if utf8.RuneCountInString(bio) > s.maxBioLength {
		return nil, errors.WithStack(domainerrors.ErrValidationFailed.WithDetails(
			"bio must be at most " + strconv.Itoa(s.maxBioLength) + " characters"))
	}

	current, err := s.ownProfile(ctx, session.UID)
	if err != nil {
		return nil, err
	}
	if bio == "" || bio == current.BioText() {
		return current, nil
	}

	err = boundedDo(ctx, s.runner, "profile.update", s.writeTimeout, func(ctx context.Context) error {
		return s.profiles.Update(ctx, session.UID, repository.ProfileUpdate{Bio: &bio})
	})
	if err != nil {
		return nil, mapProfileReadError(err)
	}

	updated := current.Clone()
	updated.Bio = &bio
	s.applyToStore(session.UID, func(p *entity.Profile) { p.Bio = &bio })
	s.events.emit(ctx, service.EventProfileUpdated, session.UID, session.UID, map[string]string{"field": "bio"})

	return updated, nil
}

func (s *profileService) UpdateProfile(ctx context.Context, input *usecase.UpdateProfileInput) (*entity.Profile, error) {
	session, err := requireSession(s.store)
	if err != nil {
		return nil, err
	}
	if input == nil {
		input = &usecase.UpdateProfileInput{}
	}

	if len(input.Image) > 0 {
		if _, err := s.UploadProfileImage(ctx, input.Image); err != nil {
			return nil, err
		}
	}

	if input.Bio != nil {
		return s.UpdateBio(ctx, *input.Bio)
	}

	return s.ownProfile(ctx, session.UID)
}

// DeleteAccount removes the identity first so a half-finished cascade can
// never leave a usable login without a profile. Posts go before the profile.
func (s *profileService) DeleteAccount(ctx context.Context, identityID string) error {
	session, err := requireSession(s.store)
	if err != nil {
		return err
	}
	if identityID != session.UID {
		return errors.WithStack(domainerrors.ErrForbidden.WithDetails("only the signed-in account can be deleted"))
	}

	logger := requestLogger(ctx, s.logger).With(slog.String("uid", session.UID))

	if err := boundedDo(ctx, s.runner, "identity.delete", s.writeTimeout, s.auth.DeleteCurrentIdentity); err != nil {
		return err
	}

	deleted, err := boundedCall(ctx, s.runner, "post.delete_by_owner", s.writeTimeout, func(ctx context.Context) (int, error) {
		return s.posts.DeleteByOwner(ctx, session.UID)
	})
	if err != nil {
		logger.ErrorContext(ctx, "Identity deleted but threads remain", slog.Any("error", err))

		return err
	}

	err = boundedDo(ctx, s.runner, "profile.delete", s.writeTimeout, func(ctx context.Context) error {
		return s.profiles.Delete(ctx, session.UID)
	})
	if err != nil {
		logger.ErrorContext(ctx, "Identity and threads deleted but profile remains", slog.Any("error", err))

		return err
	}

	s.store.Clear()

	logger.InfoContext(ctx, "Account deleted", slog.Int("threads_deleted", deleted))
	s.events.emit(ctx, service.EventAccountDeleted, session.UID, session.UID, map[string]string{
		"threads_deleted": strconv.Itoa(deleted),
	})

	return nil
}

// ownProfile returns the store's profile or reads it when the store has none yet.
func (s *profileService) ownProfile(ctx context.Context, uid string) (*entity.Profile, error) {
	if current := s.store.CurrentProfile(); current != nil && current.ID == uid {
		return current, nil
	}

	profile, err := boundedCall(ctx, s.runner, "profile.fetch", s.writeTimeout, func(ctx context.Context) (*entity.Profile, error) {
		return s.profiles.FindByID(ctx, uid)
	})
	if err != nil {
		return nil, mapProfileReadError(err)
	}

	return profile, nil
}

// applyToStore mirrors a successful write into the store. Without a held
// profile the store is left to fetch the fresh document itself.
func (s *profileService) applyToStore(uid string, apply func(*entity.Profile)) {
	current := s.store.CurrentProfile()
	if current == nil || current.ID != uid {
		s.store.Reset()

		return
	}

	apply(current)
	s.store.SetProfile(current)
}
