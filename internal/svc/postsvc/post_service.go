// Package postsvc manages the posts of authenticated users.
// Every error it returns is already classified for the HTTP boundary.
package postsvc

import (
	"context"
	"fmt"

	"github.com/mkrupp/homecase-postboard/internal/domain"
	"github.com/mkrupp/homecase-postboard/internal/httperr"
	"github.com/mkrupp/homecase-postboard/internal/infra/logging"
	"github.com/mkrupp/homecase-postboard/internal/repo/post"
)

// PostService provides listing, lookup, creation and deletion of posts.
type PostService struct {
	PostRepo post.Repository
	Log      logging.Logger
}

// NewPostService creates a new PostService on repo.
func NewPostService(repo post.Repository) *PostService {
	return &PostService{
		PostRepo: repo,
		Log:      logging.GetLogger("svc.postsvc.post_service"),
	}
}

func notFound(id int64) httperr.StoreOption {
	return httperr.NotFoundMessage(fmt.Sprintf("No post found with id %d", id))
}

// ListPosts returns the posts of the requesting user, newest first.
func (s *PostService) ListPosts(ctx context.Context, identity domain.Identity) ([]domain.Post, error) {
	posts, err := s.PostRepo.ListPostsByUser(ctx, identity.UserID)
	if err != nil {
		return nil, httperr.FromStore(fmt.Errorf("list posts: %w", err))
	}

	return posts, nil
}

// GetPost returns the post id. Any authenticated user may read any post.
func (s *PostService) GetPost(ctx context.Context, id int64) (*domain.Post, error) {
	p, err := s.PostRepo.GetPost(ctx, id)
	if err != nil {
		return nil, httperr.FromStore(fmt.Errorf("get post: %w", err), notFound(id))
	}

	return p, nil
}

// CreatePost adds a post owned by the requesting user. Titles are unique;
// reusing one is a conflict. An empty category defaults to Feed.
func (s *PostService) CreatePost(
	ctx context.Context,
	identity domain.Identity,
	title, text string,
	category domain.Category,
) (created *domain.Post, err error) {
	log := s.Log.With(logging.Group("post", "title", title, "user", identity.UserID))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "create post failed", "error", err)
		} else {
			log.DebugContext(ctx, "post created", "id", created.ID)
		}
	}()

	if category == "" {
		category = domain.CategoryFeed
	}

	created, err = s.PostRepo.CreatePost(ctx, identity.UserID, title, text, category)
	if err != nil {
		return nil, httperr.FromStore(fmt.Errorf("create post: %w", err), httperr.UniqueAsConflict())
	}

	return created, nil
}

// DeletePost removes the post id. Only its owner may do so.
func (s *PostService) DeletePost(ctx context.Context, identity domain.Identity, id int64) (err error) {
	log := s.Log.With(logging.Group("post", "id", id, "user", identity.UserID))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "delete post failed", "error", err)
		} else {
			log.DebugContext(ctx, "post deleted")
		}
	}()

	p, err := s.GetPost(ctx, id)
	if err != nil {
		return err
	}

	if p.UserID != identity.UserID {
		return httperr.Newf(httperr.KindForbidden, "You are not allowed to delete post %d", id)
	}

	if err := s.PostRepo.DeletePost(ctx, id); err != nil {
		return httperr.FromStore(fmt.Errorf("delete post: %w", err), notFound(id))
	}

	return nil
}
