package usecase

import (
	"context"

	"threads/internal/domain/entity"
)

// CreatePostInput defines the data required to publish a thread.
type CreatePostInput struct {
	// AuthorID defaults to the signed-in user and must match it.
	AuthorID string `json:"author_id,omitempty"`
	Caption  string `json:"caption" validate:"required"`
}

// PostUsecase publishes and lists threads.
type PostUsecase interface {
	CreatePost(ctx context.Context, input *CreatePostInput) (*entity.Post, error)
	// ListPosts returns every post newest first with its author joined in.
	// Posts whose author cannot be read are left out.
	ListPosts(ctx context.Context) ([]*entity.Post, error)
	// ListPostsByAuthor returns author's posts newest first.
	ListPostsByAuthor(ctx context.Context, author *entity.Profile) ([]*entity.Post, error)
}
