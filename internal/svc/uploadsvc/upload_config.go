package uploadsvc

const defaultMaxPixels = 40_000_000

// UploadConfig holds configuration parameters for the upload service.
type UploadConfig struct {
	// MaxSize is the maximum allowed file size for uploads in bytes.
	// Default is 20MB.
	MaxSize int64 `env:"MAX_SIZE" default:"20971520"`

	// PreviewWidth is the width in pixels of generated image previews.
	// Images no wider than this get no preview.
	PreviewWidth int `env:"PREVIEW_WIDTH" default:"320"`

	// MaxPixels bounds width*height of images that are decoded for a preview.
	// Larger images are rejected from their header alone.
	MaxPixels int64 `env:"MAX_PIXELS" default:"40000000"`

	// Interpolator specifies the image scaling algorithm to use.
	// Valid values are: "nearestneighbor", "catmullrom", "bilinear", "approxbilinear"
	Interpolator string `env:"INTERPOLATOR" default:"catmullrom"`
}
