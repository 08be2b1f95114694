package pdf

import (
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePageFromFilename(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     int
		wantErr  bool
	}{
		{name: "legacy naming", filename: "page_1_image_1.png", want: 1},
		{name: "legacy naming page 12", filename: "page_12_image_3.jpg", want: 12},
		{name: "stem naming", filename: "scan_1_Im0.jpg", want: 1},
		{name: "stem with underscores", filename: "my_mark_sheet_2_Im4.png", want: 2},
		{name: "too few fields", filename: "image.png", wantErr: true},
		{name: "non numeric page", filename: "scan_x_Im0.png", wantErr: true},
		{name: "legacy non numeric", filename: "page_x_image_1.png", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePageFromFilename(tt.filename)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func writeImage(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 200, B: 200, A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	if filepath.Ext(path) == ".png" {
		require.NoError(t, png.Encode(f, img))
	} else {
		require.NoError(t, jpeg.Encode(f, img, nil))
	}
}

func TestCollectExtractedImages(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, filepath.Join(dir, "scan_1_Im0.png"), 20, 10)
	writeImage(t, filepath.Join(dir, "scan_1_Im1.jpg"), 60, 80)
	writeImage(t, filepath.Join(dir, "scan_2_Im2.png"), 5, 5)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scan_3_Im3.png"), []byte("not an image"), 0o600))

	pages, err := collectExtractedImages(dir)
	require.NoError(t, err)
	assert.Len(t, pages[1], 2)
	assert.Len(t, pages[2], 1)
	assert.Empty(t, pages[3], "undecodable files are skipped")

	best := largest(pages[1])
	require.NotNil(t, best)
	assert.Equal(t, 60, best.Bounds().Dx())
	assert.Equal(t, 80, best.Bounds().Dy())
	assert.Nil(t, largest(nil))
}

func TestFirstPageImage_Errors(t *testing.T) {
	_, err := FirstPageImage(filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Error(t, err)

	bogus := filepath.Join(t.TempDir(), "bogus.pdf")
	require.NoError(t, os.WriteFile(bogus, []byte("this is not a pdf"), 0o600))
	_, err = FirstPageImage(bogus)
	assert.Error(t, err)

	_, err = PageCount(bogus)
	assert.Error(t, err)
}
