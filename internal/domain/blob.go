package domain

import (
	"fmt"
	"io"
)

// BlobID names a stored blob. Upload data, previews and metadata share the
// content-derived Crockford Base32 ID and live in separate namespaces.
type BlobID string

func (id BlobID) String() string {
	return string(id)
}

// Blob is an opaque byte payload kept by a blob repository.
type Blob struct {
	ID   BlobID
	Body []byte
}

func NewBlob(id BlobID, body []byte) *Blob {
	return &Blob{ID: id, Body: body}
}

func (blob *Blob) Size() int64 {
	return int64(len(blob.Body))
}

func (blob *Blob) Bytes() []byte {
	return blob.Body
}

// WriteTo implements io.WriterTo. A short write reports the bytes that made it.
func (blob *Blob) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(blob.Body)
	if err != nil {
		return int64(n), fmt.Errorf("write blob %s: %w", blob.ID, err)
	}

	return int64(n), nil
}
