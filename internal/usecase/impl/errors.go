package impl

import (
	"context"
	"log/slog"

	deliverycontext "threads/internal/delivery/context"
	"threads/internal/domain/entity"
	domainerrors "threads/internal/domain/errors"
	"threads/internal/domain/repository"
	"threads/internal/errors"
	"threads/internal/usecase"
)

// mapProfileReadError folds "absent" and "unreadable" into ErrProfileNotFound.
// Other failures pass through.
func mapProfileReadError(err error) error {
	if errors.IsAny(err, repository.ErrProfileNotFound, domainerrors.ErrDecodeFailure) {
		return errors.WithStack(domainerrors.ErrProfileNotFound)
	}

	return err
}

// isProfileAbsent reports whether err means the profile cannot be read at all.
func isProfileAbsent(err error) bool {
	return errors.Is(err, domainerrors.ErrProfileNotFound)
}

// requireSession returns the signed-in session or ErrUnauthenticated.
func requireSession(store usecase.SessionStore) (*entity.Session, error) {
	session := store.CurrentSession()
	if session == nil {
		return nil, errors.WithStack(domainerrors.ErrUnauthenticated)
	}

	return session, nil
}

func requestLogger(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, fallback)
}
