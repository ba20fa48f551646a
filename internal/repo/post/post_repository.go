package post

import (
	"context"

	"github.com/mkrupp/homecase-postboard/internal/domain"
)

// Repository defines the interface for post persistence.
type Repository interface {
	// CreatePost adds a new post owned by userID and returns it.
	// Returns a unique *domain.ConstraintError if the title is already taken.
	CreatePost(ctx context.Context, userID int64, title, text string, category domain.Category) (*domain.Post, error)

	// GetPost retrieves a post by id. Returns ErrPostNotFound if no such post exists.
	GetPost(ctx context.Context, id int64) (*domain.Post, error)

	// ListPostsByUser returns the posts of userID, newest first.
	ListPostsByUser(ctx context.Context, userID int64) ([]domain.Post, error)

	// DeletePost removes a post. Returns ErrPostNotFound if no such post exists.
	DeletePost(ctx context.Context, id int64) error
}
