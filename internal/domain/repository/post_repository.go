package repository

import (
	"context"

	"threads/internal/domain/entity"
)

// PostRepository reads and writes the threads collection. Lists are ordered
// by timestamp, newest first, and skip documents that fail to decode.
type PostRepository interface {
	// Create stores post, assigning its ID and Timestamp in place.
	Create(ctx context.Context, post *entity.Post) error

	// ListAll returns every post.
	ListAll(ctx context.Context) ([]*entity.Post, error)

	// ListByOwner returns the posts authored by ownerUID.
	ListByOwner(ctx context.Context, ownerUID string) ([]*entity.Post, error)

	// DeleteByOwner removes every post authored by ownerUID and reports how many were removed.
	DeleteByOwner(ctx context.Context, ownerUID string) (int, error)
}
