package uploadsvc

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"strings"

	"golang.org/x/image/draw"

	"github.com/mkrupp/homecase-postboard/internal/domain"
)

// ErrUnknownInterpolator is returned when an unsupported interpolation method is specified.
var ErrUnknownInterpolator = errors.New("unknown interpolator")

//nolint:gochecknoglobals
var interpolators = map[string]draw.Interpolator{
	"nearestneighbor": draw.NearestNeighbor,
	"catmullrom":      draw.CatmullRom,
	"bilinear":        draw.BiLinear,
	"approxbilinear":  draw.ApproxBiLinear,
}

func getInterpolatorByName(name string) (draw.Interpolator, error) {
	interpol, ok := interpolators[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownInterpolator, name)
	}

	return interpol, nil
}

// checkDimensions reads only the image header and rejects images whose
// declared pixel count exceeds maxPixels.
func checkDimensions(data []byte, mimeType string, maxPixels int64) error {
	decodeConfig, err := getConfigDecoderByType(mimeType)
	if err != nil {
		return err
	}

	cfg, err := decodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: decode config: %w", domain.ErrImageTypeNotSupported, err)
	}

	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("%w: empty image %dx%d", domain.ErrImageTypeNotSupported, cfg.Width, cfg.Height)
	}

	if int64(cfg.Width) > maxPixels/int64(cfg.Height) {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels",
			domain.ErrImageTypeNotSupported, cfg.Width, cfg.Height, maxPixels)
	}

	return nil
}

// renderPreview scales an image down to width keeping its aspect ratio and
// encodes it in its original format. It returns false when the image is
// already no wider than width. Images above maxPixels are never decoded.
func renderPreview(
	data []byte,
	mimeType string,
	width int,
	maxPixels int64,
	interpol draw.Interpolator,
) (preview []byte, ok bool, err error) {
	if err := checkDimensions(data, mimeType, maxPixels); err != nil {
		return nil, false, err
	}

	decode, err := getDecoderByType(mimeType)
	if err != nil {
		return nil, false, err
	}

	original, err := decode(bytes.NewReader(data))
	if err != nil {
		return nil, false, fmt.Errorf("%w: decode: %w", domain.ErrImageTypeNotSupported, err)
	}

	bounds := original.Bounds()
	if bounds.Dx() <= width {
		return nil, false, nil
	}

	height := max(1, bounds.Dy()*width/bounds.Dx())
	bitmap := image.NewRGBA(image.Rect(0, 0, width, height))
	interpol.Scale(bitmap, bitmap.Bounds(), original, bounds, draw.Over, nil)

	encode, err := getEncoderByType(mimeType)
	if err != nil {
		return nil, false, err
	}

	var buf bytes.Buffer
	if err := encode(&buf, bitmap); err != nil {
		return nil, false, fmt.Errorf("encode: %w", err)
	}

	return buf.Bytes(), true, nil
}
