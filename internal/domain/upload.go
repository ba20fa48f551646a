package domain

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mkrupp/homecase-postboard/internal/util/encoding"
)

var (
	ErrUploadTooLarge        = errors.New("upload too large")
	ErrUploadNotFound        = errors.Join(ErrNotFound, errors.New("upload not found"))
	ErrImageTypeNotSupported = errors.New("image type not supported")
)

// UploadMeta describes a stored upload.
//
//nolint:recvcheck
type UploadMeta struct {
	Name        string `json:"name"`                // Client supplied name
	ID          BlobID `json:"id"`                  // Unique identifier
	Hash        string `json:"hash"`                // Content hash (Crockford Base32)
	Size        int64  `json:"size"`                // Size in bytes
	Owner       int64  `json:"owner"`               // ID of the uploading user
	ContentType string `json:"contentType"`         // Sniffed MIME type
	PreviewID   BlobID `json:"previewId,omitempty"` // Resized preview, images only
}

// NewUploadMeta creates metadata for data uploaded by owner under name.
func NewUploadMeta(name string, owner int64, contentType string, data []byte) UploadMeta {
	meta := UploadMeta{
		Name:        name,
		Owner:       owner,
		ContentType: contentType,
	}
	meta.update(data)

	return meta
}

// NewUploadMetaFromBlob decodes metadata from a JSON-encoded blob.
func NewUploadMetaFromBlob(blob *Blob) (UploadMeta, error) {
	var meta UploadMeta
	if err := json.Unmarshal(blob.Bytes(), &meta); err != nil {
		return UploadMeta{}, fmt.Errorf("unmarshal metadata: %w", err)
	}

	return meta, nil
}

func (meta *UploadMeta) update(data []byte) {
	hasher := sha256.New()
	hasher.Write(data)
	meta.Hash = encoding.EncodeCrockfordB32LC(hasher.Sum(nil))
	meta.Size = int64(len(data))

	hasher.Reset()
	hasher.Write([]byte(meta.Hash))
	hasher.Write([]byte(meta.Name))
	hasher.Write([]byte(meta.ContentType))
	fmt.Fprintf(hasher, "%d", meta.Owner)
	meta.ID = BlobID(encoding.EncodeCrockfordB32LC(hasher.Sum(nil)))
}

// MetaID is the blob id under which the metadata itself is stored.
func (meta UploadMeta) MetaID() BlobID {
	return meta.ID + ".meta"
}

// AsBlob converts the metadata to a JSON-encoded blob keyed by MetaID.
func (meta UploadMeta) AsBlob() (*Blob, error) {
	data, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}

	return NewBlob(meta.MetaID(), data), nil
}
