// Package docstore implements the persistence layer on gocloud.dev/docstore,
// backed by Firestore in production and by the in-memory driver locally.
package docstore

import (
	"context"
	"log/slog"
	"time"

	"threads/config"
	domainerrors "threads/internal/domain/errors"
	"threads/internal/errors"

	"go.uber.org/fx"
	"gocloud.dev/docstore"
	_ "gocloud.dev/docstore/gcpfirestore" // firestore:// collections
	_ "gocloud.dev/docstore/memdocstore"  // mem:// collections
	"gocloud.dev/gcerrors"
)

const collaboratorName = "document store"

// Collections groups the collections the client reads and writes.
type Collections struct {
	Users      *docstore.Collection
	Threads    *docstore.Collection
	Identities *docstore.Collection
}

// Params defines the required parameters
type Params struct {
	fx.In
	fx.Lifecycle

	Config *config.Config
	Logger *slog.Logger
}

// New opens every configured collection and closes them on shutdown.
func New(params Params) (*Collections, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cols, err := Open(ctx, params.Config.DocStore)
	if err != nil {
		return nil, err
	}

	params.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return cols.Close()
		},
	})

	params.Logger.Info("Document collections opened",
		slog.String("users", params.Config.DocStore.UsersURL),
		slog.String("threads", params.Config.DocStore.ThreadsURL),
	)

	return cols, nil
}

// Open opens the collections named by cfg. On failure every collection
// opened so far is closed again.
func Open(ctx context.Context, cfg *config.DocStoreConfig) (*Collections, error) {
	cols := &Collections{}

	var err error
	if cols.Users, err = docstore.OpenCollection(ctx, cfg.UsersURL); err != nil {
		return nil, errors.Wrapf(err, "failed to open users collection %q", cfg.UsersURL)
	}
	if cols.Threads, err = docstore.OpenCollection(ctx, cfg.ThreadsURL); err != nil {
		_ = cols.Close()

		return nil, errors.Wrapf(err, "failed to open threads collection %q", cfg.ThreadsURL)
	}
	if cols.Identities, err = docstore.OpenCollection(ctx, cfg.IdentitiesURL); err != nil {
		_ = cols.Close()

		return nil, errors.Wrapf(err, "failed to open identities collection %q", cfg.IdentitiesURL)
	}

	return cols, nil
}

// Close releases every open collection.
func (c *Collections) Close() error {
	var errs []error
	for _, coll := range []*docstore.Collection{c.Users, c.Threads, c.Identities} {
		if coll == nil {
			continue
		}
		if err := coll.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func isNotFound(err error) bool {
	return gcerrors.Code(err) == gcerrors.NotFound
}

func isAlreadyExists(err error) bool {
	return gcerrors.Code(err) == gcerrors.AlreadyExists
}

// upstream tags a driver failure as a collaborator error.
func upstream(err error, msg string) error {
	return domainerrors.NewUpstreamError(errors.Wrap(err, msg), collaboratorName)
}
