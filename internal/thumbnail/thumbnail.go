package thumbnail

import (
	"fmt"
	"image"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"pixiv_mirror/internal/domain"
)

const (
	// Files smaller than this are uploaded as-is, no derivative produced.
	maxBytes = 512000
	// Pixel-area ceiling for encoded derivatives.
	maxPixelArea = 512 * 512
)

// Creator produces a size-bounded JPEG derivative of a staged image, or
// passes the original path through when it is already small enough.
type Creator struct {
	logger *slog.Logger
}

func NewCreator(logger *slog.Logger) *Creator {
	return &Creator{logger: logger.With("component", "thumbnail")}
}

// Create returns either path unchanged (small file, nothing written) or the
// path of a new derivative. Derivatives keep the original extension in their
// name with a ".thumbnail" infix but are always JPEG-encoded. Returns
// domain.ErrThumbnailCreation when the file does not decode.
func (c *Creator) Create(path string) (string, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: decode %s: %v", domain.ErrThumbnailCreation, path, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() < maxBytes {
		return path, nil
	}

	ext := filepath.Ext(path)
	thumbPath := strings.TrimSuffix(path, ext) + ".thumbnail" + ext

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	if width*height > maxPixelArea {
		aspectRatio := float64(width) / float64(height)
		newWidth := math.Sqrt(maxPixelArea * aspectRatio)
		newHeight := maxPixelArea / newWidth
		img = imaging.Resize(img, int(newWidth), int(newHeight), imaging.Lanczos)

		c.logger.Debug("resized image",
			"path", path,
			"from_width", width,
			"from_height", height,
			"to_width", int(newWidth),
			"to_height", int(newHeight),
		)
	}

	if err := c.encode(img, thumbPath); err != nil {
		return "", fmt.Errorf("%w: encode %s: %v", domain.ErrThumbnailCreation, thumbPath, err)
	}

	return thumbPath, nil
}

// encode always writes JPEG regardless of the target name's extension.
func (c *Creator) encode(img image.Image, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}

	err = imaging.Encode(file, img, imaging.JPEG)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	return err
}
