package user

import (
	"context"

	"github.com/mkrupp/homecase-postboard/internal/domain"
)

// Repository defines the interface for user data persistence.
type Repository interface {
	// CreateUser adds a new user to the repository and returns it.
	// Returns a unique *domain.ConstraintError if the name or email is already taken.
	CreateUser(ctx context.Context, name, email string, passwordHash []byte) (*domain.User, error)

	// GetUserByEmail retrieves a user by their email.
	// Returns ErrUserNotFound if no such user exists.
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)

	// GetUserByID retrieves a user by their id.
	// Returns ErrUserNotFound if no such user exists.
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)

	// DeleteUser removes a user. With thoroughly set, the user's posts are
	// removed in the same transaction; otherwise existing posts make the
	// delete fail with a foreign key *domain.ConstraintError.
	DeleteUser(ctx context.Context, id int64, thoroughly bool) error
}

// RepositoryFactory is a function that creates a new Repository instance.
// Returns an error if initialization fails.
type RepositoryFactory func() (Repository, error)
