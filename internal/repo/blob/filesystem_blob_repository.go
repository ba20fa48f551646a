package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mkrupp/homecase-postboard/internal/domain"
	"github.com/mkrupp/homecase-postboard/internal/infra/logging"
)

var ErrBytesWrittenMismatch = errors.New("bytes written mismatch")

const (
	dirPrefixLength = 2 // 32^2 = 1024 directories per level
	dirPrefixDepth  = 2
	idMinLength     = dirPrefixDepth * dirPrefixLength
)

// FileSystemBlobRepositoryConfig holds configuration for the filesystem-based blob repository.
type FileSystemBlobRepositoryConfig struct {
	// Basedir is the root directory for blob storage
	Basedir string `env:"BASEDIR" default:"var/storage/blob"`
}

// FileSystemBlobRepositoryFactory creates a factory function that returns a new FileSystemRepository.
func FileSystemBlobRepositoryFactory(cfg FileSystemBlobRepositoryConfig) RepositoryFactory {
	return func(ctx context.Context, namespace string) (Repository, error) {
		return NewFileSystemBlobRepository(ctx, namespace, cfg)
	}
}

// FileSystemRepository implements Repository on the local filesystem.
// Blobs are spread over a shallow directory tree keyed by ID prefix.
type FileSystemRepository struct {
	root string
	log  logging.Logger
}

var _ Repository = (*FileSystemRepository)(nil)

// NewFileSystemBlobRepository creates the namespace directory below cfg.Basedir.
func NewFileSystemBlobRepository(
	ctx context.Context,
	namespace string,
	cfg FileSystemBlobRepositoryConfig,
) (repo *FileSystemRepository, err error) {
	repo = &FileSystemRepository{
		root: filepath.Join(cfg.Basedir, namespace),
		log: logging.GetLogger("repo.blob.filesystem_repository").With(
			logging.Group("repo", "basedir", cfg.Basedir, "namespace", namespace),
		),
	}

	defer func() {
		if err != nil {
			repo.log.ErrorContext(ctx, "init storage failed", "error", err)
		} else {
			repo.log.DebugContext(ctx, "init storage")
		}
	}()

	if err := os.MkdirAll(repo.root, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir all: %w", err)
	}

	return repo, nil
}

// Filename returns the full filesystem path of the blob with the given ID.
func (r *FileSystemRepository) Filename(id domain.BlobID) string {
	name := strings.ReplaceAll(string(id), string(filepath.Separator), "")
	name = strings.ReplaceAll(name, "..", "")

	padded := name
	if len(padded) < idMinLength {
		padded = strings.Repeat("0", idMinLength-len(padded)) + padded
	}

	parts := []string{r.root}
	for i := 0; i < idMinLength; i += dirPrefixLength {
		parts = append(parts, padded[i:i+dirPrefixLength])
	}

	return filepath.Join(append(parts, name+".blob")...)
}

func (r *FileSystemRepository) Exists(_ context.Context, id domain.BlobID) bool {
	_, err := os.Stat(r.Filename(id))

	return err == nil
}

func (r *FileSystemRepository) Store(ctx context.Context, blob *domain.Blob) (err error) {
	filename := r.Filename(blob.ID)

	defer func() {
		log := r.log.With(logging.Group("blob", "id", blob.ID, "filename", filename))
		if err != nil {
			log.ErrorContext(ctx, "blob store failed", "error", err)
		} else {
			log.DebugContext(ctx, "blob stored", "size", blob.Size())
		}
	}()

	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("mkdir all: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(filename), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	n, err := blob.WriteTo(tmp)
	if err != nil {
		_ = tmp.Close()

		return fmt.Errorf("write: %w", err)
	}

	if n != blob.Size() {
		_ = tmp.Close()

		return fmt.Errorf("%w: expected %d, got %d", ErrBytesWrittenMismatch, blob.Size(), n)
	}

	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()

		return fmt.Errorf("sync: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}

	if err := os.Rename(tmp.Name(), filename); err != nil {
		return fmt.Errorf("rename: %w", err)
	}

	return nil
}

func (r *FileSystemRepository) Fetch(ctx context.Context, id domain.BlobID) (blob *domain.Blob, err error) {
	filename := r.Filename(id)

	defer func() {
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			r.log.ErrorContext(ctx, "blob fetch failed", "id", id, "error", err)
		}
	}()

	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Join(ErrBlobNotFound, err)
		}

		return nil, fmt.Errorf("read file: %w", err)
	}

	return domain.NewBlob(id, data), nil
}

func (r *FileSystemRepository) Delete(ctx context.Context, id domain.BlobID) error {
	if err := os.Remove(r.Filename(id)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return errors.Join(ErrBlobNotFound, err)
		}

		return fmt.Errorf("remove: %w", err)
	}

	r.log.DebugContext(ctx, "blob deleted", "id", id)

	return nil
}
