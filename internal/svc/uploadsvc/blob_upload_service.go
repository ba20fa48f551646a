package uploadsvc

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/image/draw"

	"github.com/mkrupp/homecase-postboard/internal/domain"
	"github.com/mkrupp/homecase-postboard/internal/infra/logging"
	"github.com/mkrupp/homecase-postboard/internal/repo/blob"
)

// BlobUploadService implements UploadService using blob storage.
// Upload content, previews and metadata live in separate blob repositories.
type BlobUploadService struct {
	dataRepo    blob.Repository
	previewRepo blob.Repository
	metaRepo    blob.Repository
	interpol    draw.Interpolator
	cfg         UploadConfig
	log         logging.Logger
}

var _ UploadService = (*BlobUploadService)(nil)

// NewBlobUploadService creates a new BlobUploadService with the given configuration.
// Returns an error if the interpolator is unknown or any repository cannot be created.
func NewBlobUploadService(
	ctx context.Context,
	repoFactory blob.RepositoryFactory,
	cfg UploadConfig,
) (*BlobUploadService, error) {
	interpol, err := getInterpolatorByName(cfg.Interpolator)
	if err != nil {
		return nil, err
	}

	if cfg.MaxPixels <= 0 {
		cfg.MaxPixels = defaultMaxPixels
	}

	dataRepo, err := repoFactory(ctx, "data")
	if err != nil {
		return nil, fmt.Errorf("new data repository: %w", err)
	}

	previewRepo, err := repoFactory(ctx, "preview")
	if err != nil {
		return nil, fmt.Errorf("new preview repository: %w", err)
	}

	metaRepo, err := repoFactory(ctx, "meta")
	if err != nil {
		return nil, fmt.Errorf("new meta repository: %w", err)
	}

	return &BlobUploadService{
		dataRepo:    dataRepo,
		previewRepo: previewRepo,
		metaRepo:    metaRepo,
		interpol:    interpol,
		cfg:         cfg,
		log:         logging.GetLogger("svc.uploadsvc.blob_upload_service"),
	}, nil
}

// MaxSize implements UploadService.MaxSize.
func (s *BlobUploadService) MaxSize() int64 {
	return s.cfg.MaxSize
}

// Store implements UploadService.Store. Storing the same content under the
// same name twice yields the same upload.
func (s *BlobUploadService) Store(
	ctx context.Context,
	owner int64,
	name string,
	data []byte,
) (meta domain.UploadMeta, err error) {
	log := s.log.With(logging.Group("upload", "name", name, "owner", owner, "size", len(data)))

	defer func() {
		switch {
		case errors.Is(err, domain.ErrUploadTooLarge), errors.Is(err, domain.ErrImageTypeNotSupported):
			log.DebugContext(ctx, "upload rejected", "error", err)
		case err != nil:
			log.ErrorContext(ctx, "upload store failed", "error", err)
		default:
			log.DebugContext(ctx, "upload stored", "id", meta.ID, "type", meta.ContentType)
		}
	}()

	if int64(len(data)) > s.cfg.MaxSize {
		return domain.UploadMeta{}, fmt.Errorf("%w: %d exceeds %d", domain.ErrUploadTooLarge, len(data), s.cfg.MaxSize)
	}

	contentType, isImage := sniffContentType(data)
	meta = domain.NewUploadMeta(name, owner, contentType, data)

	if isImage {
		preview, ok, err := renderPreview(data, contentType, s.cfg.PreviewWidth, s.cfg.MaxPixels, s.interpol)
		if err != nil {
			return domain.UploadMeta{}, fmt.Errorf("render preview: %w", err)
		}

		if ok {
			if err := s.previewRepo.Store(ctx, domain.NewBlob(meta.ID, preview)); err != nil {
				return domain.UploadMeta{}, fmt.Errorf("store preview: %w", err)
			}

			meta.PreviewID = meta.ID
		}
	}

	// Same owner, name and content give the same ID, so stored data can be reused.
	if !s.dataRepo.Exists(ctx, meta.ID) {
		if err := s.dataRepo.Store(ctx, domain.NewBlob(meta.ID, data)); err != nil {
			return domain.UploadMeta{}, fmt.Errorf("store data: %w", err)
		}
	}

	metaBlob, err := meta.AsBlob()
	if err != nil {
		return domain.UploadMeta{}, fmt.Errorf("convert meta to blob: %w", err)
	}

	// Metadata goes last so a visible upload always has its content.
	if err := s.metaRepo.Store(ctx, metaBlob); err != nil {
		return domain.UploadMeta{}, fmt.Errorf("store meta: %w", err)
	}

	return meta, nil
}

// Fetch implements UploadService.Fetch.
func (s *BlobUploadService) Fetch(
	ctx context.Context,
	owner int64,
	id domain.BlobID,
	preview bool,
) (meta domain.UploadMeta, data *domain.Blob, err error) {
	log := s.log.With(logging.Group("upload", "id", id, "owner", owner, "preview", preview))

	defer func() {
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			log.ErrorContext(ctx, "upload fetch failed", "error", err)
		} else if err == nil {
			log.DebugContext(ctx, "upload fetched")
		}
	}()

	metaBlob, err := s.metaRepo.Fetch(ctx, domain.UploadMeta{ID: id}.MetaID()) //nolint:exhaustruct
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.UploadMeta{}, nil, errors.Join(domain.ErrUploadNotFound, err)
		}

		return domain.UploadMeta{}, nil, fmt.Errorf("fetch meta: %w", err)
	}

	meta, err = domain.NewUploadMetaFromBlob(metaBlob)
	if err != nil {
		return domain.UploadMeta{}, nil, fmt.Errorf("convert meta blob: %w", err)
	}

	if meta.Owner != owner {
		return domain.UploadMeta{}, nil, fmt.Errorf("%w: user %d is not owner", domain.ErrUploadNotFound, owner)
	}

	repo, blobID := s.dataRepo, meta.ID
	if preview {
		if meta.PreviewID == "" {
			return domain.UploadMeta{}, nil, fmt.Errorf("%w: no preview", domain.ErrUploadNotFound)
		}

		repo, blobID = s.previewRepo, meta.PreviewID
	}

	data, err = repo.Fetch(ctx, blobID)
	if err != nil {
		return domain.UploadMeta{}, nil, fmt.Errorf("fetch data: %w", err)
	}

	return meta, data, nil
}
