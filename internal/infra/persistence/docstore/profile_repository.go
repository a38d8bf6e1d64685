package docstore

import (
	"context"
	"io"
	"log/slog"

	"threads/config"
	"threads/internal/domain/entity"
	"threads/internal/domain/repository"
	"threads/internal/infra/metrics"
	"threads/internal/infra/persistence/model"

	"go.uber.org/fx"
	"gocloud.dev/docstore"
)

// RepositoryParams defines what the document repositories need
type RepositoryParams struct {
	fx.In

	Collections *Collections
	Config      *config.Config
	Logger      *slog.Logger
	Recorder    metrics.Recorder
}

// profileRepository implements repository.ProfileRepository on the users collection.
type profileRepository struct {
	coll     *docstore.Collection
	logger   *slog.Logger
	recorder metrics.Recorder
	debug    bool
}

// NewProfileRepository is the constructor for profileRepository.
func NewProfileRepository(params RepositoryParams) repository.ProfileRepository {
	return &profileRepository{
		coll:     params.Collections.Users,
		logger:   params.Logger,
		recorder: params.Recorder,
		debug:    params.Config.Collaborators.Debug,
	}
}

// FindByID loads the users document keyed by id.
func (repo *profileRepository) FindByID(ctx context.Context, id string) (*entity.Profile, error) {
	repo.trace(ctx, "profile.get", slog.String("id", id))

	doc := model.ProfileKey(id)
	if err := repo.coll.Get(ctx, doc); err != nil {
		if isNotFound(err) {
			return nil, repository.ErrProfileNotFound
		}

		return nil, upstream(err, "failed to get profile")
	}

	return model.ToProfile(doc)
}

// Create writes the document, replacing a previous one with the same id.
func (repo *profileRepository) Create(ctx context.Context, profile *entity.Profile) error {
	repo.trace(ctx, "profile.put", slog.String("id", profile.ID))

	if err := repo.coll.Put(ctx, model.FromProfile(profile)); err != nil {
		return upstream(err, "failed to write profile")
	}

	return nil
}

// Update sets the given optional fields on an existing document.
func (repo *profileRepository) Update(ctx context.Context, id string, update repository.ProfileUpdate) error {
	if update.IsEmpty() {
		return nil
	}

	mods := docstore.Mods{}
	if update.ProfileImageURL != nil {
		mods[model.ProfileImageURLField] = *update.ProfileImageURL
	}
	if update.Bio != nil {
		mods[model.ProfileBioField] = *update.Bio
	}

	repo.trace(ctx, "profile.update", slog.String("id", id), slog.Int("fields", len(mods)))

	if err := repo.coll.Update(ctx, model.ProfileKey(id), mods); err != nil {
		if isNotFound(err) {
			return repository.ErrProfileNotFound
		}

		return upstream(err, "failed to update profile")
	}

	return nil
}

// Delete removes the document. An absent document is not an error.
func (repo *profileRepository) Delete(ctx context.Context, id string) error {
	repo.trace(ctx, "profile.delete", slog.String("id", id))

	if err := repo.coll.Delete(ctx, model.ProfileKey(id)); err != nil && !isNotFound(err) {
		return upstream(err, "failed to delete profile")
	}

	return nil
}

// List returns every decodable profile.
func (repo *profileRepository) List(ctx context.Context) ([]*entity.Profile, error) {
	repo.trace(ctx, "profile.list")

	iter := repo.coll.Query().Get(ctx)
	defer iter.Stop()

	var profiles []*entity.Profile
	for {
		doc := model.Document{}
		err := iter.Next(ctx, doc)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, upstream(err, "failed to list profiles")
		}

		profile, err := model.ToProfile(doc)
		if err != nil {
			repo.skip(ctx, "profile", err)

			continue
		}
		profiles = append(profiles, profile)
	}

	return profiles, nil
}

func (repo *profileRepository) trace(ctx context.Context, op string, attrs ...any) {
	if repo.debug {
		repo.logger.DebugContext(ctx, "Document store call", append([]any{slog.String("op", op)}, attrs...)...)
	}
}

func (repo *profileRepository) skip(ctx context.Context, kind string, err error) {
	repo.recorder.RecordSkippedRecord(kind)
	repo.logger.WarnContext(ctx, "Skipping undecodable document", slog.String("kind", kind), slog.Any("error", err))
}
