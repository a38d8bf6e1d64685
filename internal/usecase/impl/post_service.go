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
	"threads/internal/util"

	"go.uber.org/fx"
)

// skipKindOrphanPost labels posts dropped because their author is unreadable.
const skipKindOrphanPost = "orphan_post"

// PostServiceParams holds dependencies for PostService, injected by Fx.
type PostServiceParams struct {
	fx.In

	Posts     repository.PostRepository
	Profiles  repository.ProfileRepository
	Store     usecase.SessionStore
	Sanitizer service.Sanitizer
	Publisher service.EventPublisher
	Config    *config.Config
	Recorder  metrics.Recorder
	Logger    *slog.Logger
}

type postService struct {
	posts     repository.PostRepository
	profiles  repository.ProfileRepository
	store     usecase.SessionStore
	sanitizer service.Sanitizer
	events    *eventEmitter
	runner    *boundedRunner
	recorder  metrics.Recorder
	logger    *slog.Logger

	writeTimeout  time.Duration
	maxPostLength int
}

// NewPostService creates the thread publishing and listing service.
func NewPostService(params PostServiceParams) usecase.PostUsecase {
	recorder := params.Recorder
	if recorder == nil {
		recorder = metrics.Nop{}
	}

	return &postService{
		posts:         params.Posts,
		profiles:      params.Profiles,
		store:         params.Store,
		sanitizer:     params.Sanitizer,
		events:        newEventEmitter(params.Publisher, params.Logger),
		runner:        newBoundedRunner(recorder, params.Logger),
		recorder:      recorder,
		logger:        params.Logger,
		writeTimeout:  params.Config.Timeouts.Write,
		maxPostLength: params.Config.Content.MaxPostLength,
	}
}

func (s *postService) CreatePost(ctx context.Context, input *usecase.CreatePostInput) (*entity.Post, error) {
	session, err := requireSession(s.store)
	if err != nil {
		return nil, err
	}
	if err := util.ValidateStruct(input); err != nil {
		return nil, err
	}

	authorID := input.AuthorID
	if authorID == "" {
		authorID = session.UID
	}
	if authorID != session.UID {
		return nil, errors.WithStack(domainerrors.ErrForbidden.WithDetails("threads can only be posted as yourself"))
	}

	caption := s.sanitizer.Sanitize(input.Caption)
	if caption == "" {
		return nil, errors.WithStack(domainerrors.ErrValidationFailed.WithDetails("caption is empty"))
	}
	if utf8.RuneCountInString(caption) > s.maxPostLength {
		return nil, errors.WithStack(domainerrors.ErrValidationFailed.WithDetails(
			"caption must be at most " + strconv.Itoa(s.maxPostLength) + " characters"))
	}

	author, err := s.authorOf(ctx, authorID)
	if err != nil {
		return nil, err
	}

	post := &entity.Post{
		OwnerUID: authorID,
		Caption:  caption,
		Likes:    0,
	}
	err = boundedDo(ctx, s.runner, "post.create", s.writeTimeout, func(ctx context.Context) error {
		return s.posts.Create(ctx, post)
	})
	if err != nil {
		return nil, err
	}
	post.Author = author

	requestLogger(ctx, s.logger).InfoContext(ctx, "Thread created",
		slog.String("thread_id", post.ID),
		slog.String("owner_uid", post.OwnerUID),
	)
	s.events.emit(ctx, service.EventThreadCreated, post.ID, session.UID, nil)

	return post, nil
}

// authorOf prefers the profile held by the store and reads the document otherwise.
func (s *postService) authorOf(ctx context.Context, uid string) (*entity.Profile, error) {
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

func (s *postService) ListPosts(ctx context.Context) ([]*entity.Post, error) {
	if _, err := requireSession(s.store); err != nil {
		return nil, err
	}

	posts, err := boundedCall(ctx, s.runner, "post.list", s.writeTimeout, s.posts.ListAll)
	if err != nil {
		return nil, err
	}

	// nil entries remember authors that could not be read.
	authors := make(map[string]*entity.Profile)
	result := make([]*entity.Post, 0, len(posts))

	for _, post := range posts {
		author, seen := authors[post.OwnerUID]
		if !seen {
			if err := ctx.Err(); err != nil {
				return nil, errors.Wrap(err, "listing threads")
			}

			profile, err := boundedCall(ctx, s.runner, "profile.fetch", s.writeTimeout, func(ctx context.Context) (*entity.Profile, error) {
				return s.profiles.FindByID(ctx, post.OwnerUID)
			})
			err = mapProfileReadError(err)

			switch {
			case err == nil:
				author = profile
			case isProfileAbsent(err):
				author = nil
			default:
				return nil, err
			}
			authors[post.OwnerUID] = author
		}

		if author == nil {
			s.recorder.RecordSkippedRecord(skipKindOrphanPost)
			requestLogger(ctx, s.logger).DebugContext(ctx, "Skipping thread without readable author",
				slog.String("thread_id", post.ID),
				slog.String("owner_uid", post.OwnerUID),
			)

			continue
		}

		post.Author = author.Clone()
		result = append(result, post)
	}

	return result, nil
}

func (s *postService) ListPostsByAuthor(ctx context.Context, author *entity.Profile) ([]*entity.Post, error) {
	if _, err := requireSession(s.store); err != nil {
		return nil, err
	}
	if author == nil || author.ID == "" {
		return nil, errors.WithStack(domainerrors.ErrValidationFailed.WithDetails("author is required"))
	}

	posts, err := boundedCall(ctx, s.runner, "post.list_by_owner", s.writeTimeout, func(ctx context.Context) ([]*entity.Post, error) {
		return s.posts.ListByOwner(ctx, author.ID)
	})
	if err != nil {
		return nil, err
	}

	for _, post := range posts {
		post.Author = author.Clone()
	}

	return posts, nil
}
