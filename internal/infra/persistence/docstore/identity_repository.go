package docstore

import (
	"context"
	"io"
	"log/slog"
	"time"

	"threads/internal/domain/repository"
	"threads/internal/infra/persistence/model"

	"gocloud.dev/docstore"
)

// identityRepository implements repository.IdentityRepository for the local auth provider.
type identityRepository struct {
	coll   *docstore.Collection
	logger *slog.Logger
	debug  bool
	now    func() time.Time
}

// NewIdentityRepository is the constructor for identityRepository.
func NewIdentityRepository(params RepositoryParams) repository.IdentityRepository {
	return &identityRepository{
		coll:   params.Collections.Identities,
		logger: params.Logger,
		debug:  params.Config.Collaborators.Debug,
		now:    time.Now,
	}
}

// FindByEmail returns the identity registered with email. Identities are
// keyed by their normalized email.
func (repo *identityRepository) FindByEmail(ctx context.Context, email string) (*repository.IdentityRecord, error) {
	if repo.debug {
		repo.logger.DebugContext(ctx, "Document store call", slog.String("op", "identity.find_by_email"))
	}

	doc := model.IdentityKey(email)
	if err := repo.coll.Get(ctx, doc); err != nil {
		if isNotFound(err) {
			return nil, repository.ErrIdentityNotFound
		}

		return nil, upstream(err, "failed to find identity")
	}

	return model.ToIdentity(doc)
}

// Create stores record. The document key is the email, so a second identity
// for the same email fails atomically in the store.
func (repo *identityRepository) Create(ctx context.Context, record *repository.IdentityRecord) error {
	if err := repo.coll.Create(ctx, model.FromIdentity(record, repo.now().UTC())); err != nil {
		if isAlreadyExists(err) {
			return repository.ErrIdentityExists
		}

		return upstream(err, "failed to create identity")
	}

	return nil
}

// Delete removes the identity with uid. Deleting an absent identity is not an error.
func (repo *identityRepository) Delete(ctx context.Context, uid string) error {
	iter := repo.coll.Query().Where(model.IdentityUIDField, "=", uid).Get(ctx, model.IdentityEmailField)
	defer iter.Stop()

	var emails []string
	for {
		doc := model.Document{}
		err := iter.Next(ctx, doc)
		if err == io.EOF {
			break
		}
		if err != nil {
			return upstream(err, "failed to find identity")
		}
		if email, ok := doc[model.IdentityEmailField].(string); ok {
			emails = append(emails, email)
		}
	}

	for _, email := range emails {
		if err := repo.coll.Delete(ctx, model.IdentityKey(email)); err != nil && !isNotFound(err) {
			return upstream(err, "failed to delete identity")
		}
	}

	return nil
}
