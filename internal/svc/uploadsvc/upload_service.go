// Package uploadsvc stores user uploads as blobs and derives previews for images.
package uploadsvc

import (
	"context"

	"github.com/mkrupp/homecase-postboard/internal/domain"
)

// UploadService defines the interface for managing uploads.
type UploadService interface {
	// Store persists data uploaded by owner under name.
	// Returns domain.ErrUploadTooLarge if data exceeds MaxSize.
	Store(ctx context.Context, owner int64, name string, data []byte) (domain.UploadMeta, error)

	// Fetch retrieves an upload of owner, or its preview when preview is set.
	// Uploads of other users are reported as domain.ErrUploadNotFound.
	Fetch(ctx context.Context, owner int64, id domain.BlobID, preview bool) (domain.UploadMeta, *domain.Blob, error)

	// MaxSize returns the maximum allowed upload size in bytes.
	MaxSize() int64
}
