package utils

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBoxOrdersCorners(t *testing.T) {
	b := NewBox(10, 20, 2, 4)
	assert.Equal(t, Box{X1: 2, Y1: 4, X2: 10, Y2: 20}, b)
	assert.Equal(t, 8, b.Width())
	assert.Equal(t, 16, b.Height())
	assert.False(t, b.Empty())
	assert.True(t, Box{X1: 3, Y1: 3, X2: 3, Y2: 9}.Empty())
}

func TestCropImageRectOutside(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	out := CropImageRect(img, image.Rect(20, 20, 30, 30))
	assert.Equal(t, 0, out.Bounds().Dx())
	assert.Equal(t, 0, out.Bounds().Dy())
}

func TestDrawRectAndLabel(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 60, 40))
	red := color.RGBA{255, 0, 0, 255}
	DrawRect(dst, image.Rect(5, 5, 50, 30), red, 2)
	assert.Equal(t, red, dst.RGBAAt(5, 5))
	assert.Equal(t, red, dst.RGBAAt(49, 29))
	assert.Equal(t, color.RGBA{}, dst.RGBAAt(20, 15))

	DrawLabel(dst, 2, 38, "OK", red)
	found := false
	for x := range 20 {
		for y := 25; y < 40; y++ {
			if dst.RGBAAt(x, y) == red {
				found = true
			}
		}
	}
	assert.True(t, found)
}

func TestLoadImage(t *testing.T) {
	dir := t.TempDir()
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	path := filepath.Join(dir, "sheet.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	got, meta, err := LoadImage(path)
	require.NoError(t, err)
	assert.Equal(t, 40, got.Bounds().Dx())
	assert.Equal(t, "png", meta.Format)
	assert.Equal(t, 20, meta.Height)

	_, _, err = LoadImage(filepath.Join(dir, "missing.png"))
	var ipe *ImageProcessingError
	require.ErrorAs(t, err, &ipe)
	assert.Equal(t, "load", ipe.Operation)

	bad := filepath.Join(dir, "bad.jpg")
	require.NoError(t, os.WriteFile(bad, []byte("not an image"), 0o600))
	_, _, err = LoadImage(bad)
	require.ErrorAs(t, err, &ipe)
	assert.Equal(t, "decode", ipe.Operation)

	_, _, err = LoadImage(filepath.Join(dir, "doc.gif"))
	require.Error(t, err)
}

func TestIsSupportedImage(t *testing.T) {
	assert.True(t, IsSupportedImage("a/B.JPG"))
	assert.True(t, IsSupportedImage("scan.tiff"))
	assert.False(t, IsSupportedImage("scan.pdf"))
	assert.True(t, IsPDF("scan.PDF"))
}

func TestValidateImageConstraints(t *testing.T) {
	c := DefaultImageConstraints()
	require.NoError(t, ValidateImageConstraints(image.NewGray(image.Rect(0, 0, 64, 64)), c))
	require.Error(t, ValidateImageConstraints(image.NewGray(image.Rect(0, 0, 8, 64)), c))
	require.Error(t, ValidateImageConstraints(nil, c))
}

func TestSaveJPEGAndEncodePNG(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	path := filepath.Join(t.TempDir(), "nested", "out.jpg")
	require.NoError(t, SaveJPEG(path, img, 90))
	_, err := os.Stat(path)
	require.NoError(t, err)

	data, err := EncodePNG(img)
	require.NoError(t, err)
	decoded, _, err := DecodeImage(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 16, decoded.Bounds().Dx())
}
