package thumbnail

import (
	"errors"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"

	"pixiv_mirror/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// writeNoisePNG writes an incompressible image so byte-size gates are
// predictable: random pixels keep the PNG close to raw size.
func writeNoisePNG(t *testing.T, path string, width, height int) {
	t.Helper()

	rng := rand.New(rand.NewSource(42))
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{
				R: uint8(rng.Intn(256)),
				G: uint8(rng.Intn(256)),
				B: uint8(rng.Intn(256)),
				A: 255,
			})
		}
	}

	file, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(file, img))
	require.NoError(t, file.Close())
}

func fileSize(t *testing.T, path string) int64 {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	return info.Size()
}

func TestCreate_SmallFilePassesThrough(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "small.png")
	writeNoisePNG(t, path, 10, 10)
	require.Less(t, fileSize(t, path), int64(512000))

	out, err := NewCreator(testLogger()).Create(path)
	require.NoError(t, err)
	require.Equal(t, path, out)

	_, err = os.Stat(filepath.Join(dir, "small.thumbnail.png"))
	require.True(t, os.IsNotExist(err), "no derivative should be written")
}

func TestCreate_LargeFileSmallAreaKeepsDimensions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dense.png")
	writeNoisePNG(t, path, 512, 512)
	require.GreaterOrEqual(t, fileSize(t, path), int64(512000), "noise image must trip the byte gate")

	out, err := NewCreator(testLogger()).Create(path)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "dense.thumbnail.png"), out)

	img, err := imaging.Open(out)
	require.NoError(t, err)
	require.Equal(t, 512, img.Bounds().Dx())
	require.Equal(t, 512, img.Bounds().Dy())

	// Always JPEG regardless of the name's extension.
	file, err := os.Open(out)
	require.NoError(t, err)
	defer file.Close()
	_, format, err := image.DecodeConfig(file)
	require.NoError(t, err)
	require.Equal(t, "jpeg", format)
}

func TestCreate_OversizedImageIsBounded(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.png")
	writeNoisePNG(t, path, 1000, 800)
	require.GreaterOrEqual(t, fileSize(t, path), int64(512000))

	out, err := NewCreator(testLogger()).Create(path)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "big.thumbnail.png"), out)

	img, err := imaging.Open(out)
	require.NoError(t, err)
	width, height := img.Bounds().Dx(), img.Bounds().Dy()

	require.LessOrEqual(t, width*height, 512*512)

	sourceRatio := 1000.0 / 800.0
	outRatio := float64(width) / float64(height)
	require.InDelta(t, sourceRatio, outRatio, 0.01, "aspect ratio must survive the resize")
}

func TestCreate_UndecodableFileFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.png")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o644))

	_, err := NewCreator(testLogger()).Create(path)
	require.Error(t, err)
	require.True(t, errors.Is(err, domain.ErrThumbnailCreation))
}
