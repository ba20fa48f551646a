package domain

import "errors"

// ErrPostNotFound is returned when looking up a non-existent post.
var ErrPostNotFound = errors.Join(ErrNotFound, errors.New("post not found"))

// Category classifies a post.
type Category string

const (
	CategoryFeed  Category = "Feed"
	CategoryStory Category = "Story"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryFeed, CategoryStory:
		return true
	default:
		return false
	}
}

// Post is a piece of content owned by a user.
type Post struct {
	ID        int64    `json:"id"`
	UserID    int64    `json:"userId"`
	Title     string   `json:"title"`
	Text      string   `json:"text"`
	Category  Category `json:"category"`
	CreatedAt int64    `json:"createdAt"`
	UpdatedAt int64    `json:"updatedAt"`
}
