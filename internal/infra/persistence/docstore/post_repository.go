package docstore

import (
	"cmp"
	"context"
	"io"
	"log/slog"
	"slices"
	"time"

	"threads/internal/domain/entity"
	"threads/internal/domain/repository"
	"threads/internal/infra/metrics"
	"threads/internal/infra/persistence/model"

	"github.com/google/uuid"
	"gocloud.dev/docstore"
)

// postRepository implements repository.PostRepository on the threads collection.
type postRepository struct {
	coll     *docstore.Collection
	logger   *slog.Logger
	recorder metrics.Recorder
	debug    bool
	now      func() time.Time
}

// NewPostRepository is the constructor for postRepository.
func NewPostRepository(params RepositoryParams) repository.PostRepository {
	return &postRepository{
		coll:     params.Collections.Threads,
		logger:   params.Logger,
		recorder: params.Recorder,
		debug:    params.Config.Collaborators.Debug,
		now:      time.Now,
	}
}

// Create stores a new post. The id and timestamp are assigned here and copied
// back into post only once the write succeeded.
func (repo *postRepository) Create(ctx context.Context, post *entity.Post) error {
	stored := *post
	stored.ID = uuid.NewString()
	// Firestore keeps microseconds; truncating keeps reads equal to what we return.
	stored.Timestamp = repo.now().UTC().Truncate(time.Microsecond)

	repo.trace(ctx, "post.create", slog.String("id", stored.ID), slog.String("owner", stored.OwnerUID))

	if err := repo.coll.Create(ctx, model.FromPost(&stored)); err != nil {
		return upstream(err, "failed to create post")
	}

	post.ID = stored.ID
	post.Timestamp = stored.Timestamp

	return nil
}

// ListAll returns every post, newest first.
func (repo *postRepository) ListAll(ctx context.Context) ([]*entity.Post, error) {
	repo.trace(ctx, "post.list")

	return repo.collect(ctx, repo.coll.Query())
}

// ListByOwner returns the posts of ownerUID, newest first.
func (repo *postRepository) ListByOwner(ctx context.Context, ownerUID string) ([]*entity.Post, error) {
	repo.trace(ctx, "post.list_by_owner", slog.String("owner", ownerUID))

	return repo.collect(ctx, repo.coll.Query().Where(model.PostOwnerField, "=", ownerUID))
}

// DeleteByOwner deletes every post of ownerUID, decodable or not.
func (repo *postRepository) DeleteByOwner(ctx context.Context, ownerUID string) (int, error) {
	repo.trace(ctx, "post.delete_by_owner", slog.String("owner", ownerUID))

	iter := repo.coll.Query().Where(model.PostOwnerField, "=", ownerUID).Get(ctx, model.PostKeyField)
	defer iter.Stop()

	actions := repo.coll.Actions()
	count := 0
	for {
		doc := model.Document{}
		err := iter.Next(ctx, doc)
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, upstream(err, "failed to list posts for deletion")
		}
		actions.Delete(model.PostKey(docKey(doc)))
		count++
	}

	if count == 0 {
		return 0, nil
	}

	if err := actions.Do(ctx); err != nil {
		return 0, upstream(err, "failed to delete posts")
	}

	return count, nil
}

// collect drains q and orders the result by timestamp, newest first. Ordering
// happens here because the store cannot order a filtered query by another field.
func (repo *postRepository) collect(ctx context.Context, q *docstore.Query) ([]*entity.Post, error) {
	iter := q.Get(ctx)
	defer iter.Stop()

	var posts []*entity.Post
	for {
		doc := model.Document{}
		err := iter.Next(ctx, doc)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, upstream(err, "failed to list posts")
		}

		post, err := model.ToPost(doc)
		if err != nil {
			repo.recorder.RecordSkippedRecord("post")
			repo.logger.WarnContext(ctx, "Skipping undecodable document", slog.String("kind", "post"), slog.Any("error", err))

			continue
		}
		posts = append(posts, post)
	}

	slices.SortStableFunc(posts, func(a, b *entity.Post) int {
		return cmp.Compare(b.Timestamp.UnixNano(), a.Timestamp.UnixNano())
	})

	return posts, nil
}

func (repo *postRepository) trace(ctx context.Context, op string, attrs ...any) {
	if repo.debug {
		repo.logger.DebugContext(ctx, "Document store call", append([]any{slog.String("op", op)}, attrs...)...)
	}
}

func docKey(doc model.Document) string {
	key, _ := doc[model.PostKeyField].(string)

	return key
}
