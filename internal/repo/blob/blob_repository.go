package blob

import (
	"context"
	"errors"

	"github.com/mkrupp/homecase-postboard/internal/domain"
)

// Repository defines the interface for blob storage operations.
type Repository interface {
	// Exists checks if a blob with the given ID exists.
	Exists(ctx context.Context, id domain.BlobID) bool

	// Store persists a blob, replacing any previous blob with the same ID.
	// Readers never observe a partially written blob.
	Store(ctx context.Context, blob *domain.Blob) error

	// Fetch retrieves a blob by its ID.
	// Returns ErrBlobNotFound if no such blob exists.
	Fetch(ctx context.Context, id domain.BlobID) (*domain.Blob, error)

	// Delete removes the blob with the given ID.
	// Returns ErrBlobNotFound if no such blob exists.
	Delete(ctx context.Context, id domain.BlobID) error
}

// RepositoryFactory is a function that creates a new Repository instance
// storing its blobs under the named namespace.
type RepositoryFactory func(ctx context.Context, namespace string) (Repository, error)

// ErrBlobNotFound is returned when a blob does not exist.
var ErrBlobNotFound = errors.Join(domain.ErrNotFound, errors.New("blob not found"))
