package uploadsvc

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"

	"golang.org/x/image/tiff"

	"github.com/mkrupp/homecase-postboard/internal/domain"
)

const (
	MIMETypeJPEG = "image/jpeg"
	MIMETypePNG  = "image/png"
	MIMETypeTIFF = "image/tiff"
)

//nolint:gochecknoglobals
var (
	imageHeaders = map[string][]string{
		MIMETypeJPEG: {"\xFF\xD8"},
		MIMETypePNG:  {"\x89\x50\x4E\x47\x0D\x0A\x1A\x0A"},
		MIMETypeTIFF: {"\x49\x49\x2A\x00", "\x4D\x4D\x00\x2A"},
	}

	imageDecoders = map[string]func(io.Reader) (image.Image, error){
		MIMETypeJPEG: jpeg.Decode,
		MIMETypeTIFF: tiff.Decode,
		MIMETypePNG:  png.Decode,
	}

	imageConfigDecoders = map[string]func(io.Reader) (image.Config, error){
		MIMETypeJPEG: jpeg.DecodeConfig,
		MIMETypeTIFF: tiff.DecodeConfig,
		MIMETypePNG:  png.DecodeConfig,
	}

	imageEncoders = map[string]func(io.Writer, image.Image) error{
		MIMETypeJPEG: func(w io.Writer, i image.Image) error { return jpeg.Encode(w, i, nil) },
		MIMETypeTIFF: func(w io.Writer, i image.Image) error { return tiff.Encode(w, i, nil) },
		MIMETypePNG:  png.Encode,
	}
)

// sniffContentType returns the MIME type of data. Supported image formats are
// recognized by their magic bytes; everything else falls back to content sniffing.
func sniffContentType(data []byte) (mimeType string, isImage bool) {
	for mimeType, headers := range imageHeaders {
		for _, header := range headers {
			if bytes.HasPrefix(data, []byte(header)) {
				return mimeType, true
			}
		}
	}

	return http.DetectContentType(data), false
}

func getDecoderByType(mimeType string) (func(io.Reader) (image.Image, error), error) {
	decoder, ok := imageDecoders[mimeType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrImageTypeNotSupported, mimeType)
	}

	return decoder, nil
}

func getConfigDecoderByType(mimeType string) (func(io.Reader) (image.Config, error), error) {
	decoder, ok := imageConfigDecoders[mimeType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrImageTypeNotSupported, mimeType)
	}

	return decoder, nil
}

func getEncoderByType(mimeType string) (func(io.Writer, image.Image) error, error) {
	encoder, ok := imageEncoders[mimeType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrImageTypeNotSupported, mimeType)
	}

	return encoder, nil
}
