package normalize

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filled(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

func newNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	n, err := New(DefaultConfig())
	require.NoError(t, err)
	return n
}

func TestNormalizeRotatesLandscapeToPortrait(t *testing.T) {
	n := newNormalizer(t)
	img := filled(300, 200, color.Gray{Y: 128})
	draw.Draw(img, image.Rect(40, 30, 260, 170), image.NewUniform(color.White), image.Point{}, draw.Src)

	res, err := n.Normalize(img)
	require.NoError(t, err)
	assert.True(t, res.Rotated)
	ob := res.Oriented.Bounds()
	assert.Equal(t, 200, ob.Dx())
	assert.Equal(t, 300, ob.Dy())
	b := res.Image.Bounds()
	assert.GreaterOrEqual(t, b.Dy(), b.Dx())
}

func TestNormalizeCropsLargestRegion(t *testing.T) {
	n := newNormalizer(t)
	img := filled(200, 300, color.Gray{Y: 90})
	draw.Draw(img, image.Rect(40, 50, 160, 250), image.NewUniform(color.White), image.Point{}, draw.Src)
	// Small speck well away from the page must not win.
	draw.Draw(img, image.Rect(5, 5, 9, 9), image.NewUniform(color.White), image.Point{}, draw.Src)

	res, err := n.Normalize(img)
	require.NoError(t, err)
	assert.False(t, res.Rotated)
	assert.False(t, res.Fallback)

	c := res.Crop
	assert.InDelta(t, 38, c.X1, 6)
	assert.InDelta(t, 47, c.Y1, 6)
	assert.InDelta(t, 162, c.X2, 6)
	assert.InDelta(t, 253, c.Y2, 6)
	assert.Equal(t, c.Width(), res.Image.Bounds().Dx())
	assert.Equal(t, c.Height(), res.Image.Bounds().Dy())
}

func TestNormalizeFallsBackToFullImage(t *testing.T) {
	n := newNormalizer(t)
	res, err := n.Normalize(filled(120, 160, color.Gray{Y: 200}))
	require.NoError(t, err)
	assert.True(t, res.Fallback)
	assert.Equal(t, [4]int{0, 0, 120, 160}, res.Crop.Coords())
	assert.Equal(t, 120, res.Image.Bounds().Dx())
}

func TestNormalizeRejectsEmptyInput(t *testing.T) {
	n := newNormalizer(t)
	_, err := n.Normalize(nil)
	require.Error(t, err)
	_, err = n.Normalize(image.NewRGBA(image.Rect(0, 0, 0, 0)))
	require.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.PadRatio = 0.9
	require.Error(t, bad.Validate())

	bad = cfg
	bad.CannyHigh = 10
	require.Error(t, bad.Validate())

	bad = cfg
	bad.CLAHETiles = 0
	_, err := New(bad)
	require.Error(t, err)
}

func TestCLAHESingleTileWithoutClipIsHistogramEqualization(t *testing.T) {
	w, h := 10, 4
	plane := make([]uint8, w*h)
	for i := range plane {
		if i%w < 5 {
			plane[i] = 100
		} else {
			plane[i] = 110
		}
	}
	out := clahe(plane, w, h, 0, 1)
	assert.Equal(t, uint8(128), out[0])
	assert.Equal(t, uint8(255), out[9])
}

func TestCLAHEPreservesOrderWithinTile(t *testing.T) {
	w, h := 64, 1
	plane := make([]uint8, w)
	for i := range plane {
		plane[i] = uint8(100 + i/4)
	}
	out := clahe(plane, w, h, 2.0, 1)
	for i := 1; i < w; i++ {
		assert.GreaterOrEqual(t, out[i], out[i-1])
	}
}

func TestScaleSaturation(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.Pix = []uint8{200, 100, 100, 255, 50, 50, 50, 255}
	ScaleSaturation(img, 0.85)
	assert.Equal(t, []uint8{200, 115, 115, 255, 50, 50, 50, 255}, img.Pix)
}

func TestEqualizeGrayIsGray(t *testing.T) {
	img := filled(32, 32, color.RGBA{200, 30, 30, 255})
	draw.Draw(img, image.Rect(0, 0, 16, 32), image.NewUniform(color.RGBA{10, 10, 200, 255}), image.Point{}, draw.Src)
	out := EqualizeGray(img, 9, 8)
	o := out.PixOffset(3, 3)
	assert.Equal(t, out.Pix[o], out.Pix[o+1])
	assert.Equal(t, out.Pix[o], out.Pix[o+2])
}

func TestDilateAndComponents(t *testing.T) {
	w, h := 10, 10
	mask := make([]bool, w*h)
	mask[5*w+5] = true
	d := dilateMask(mask, w, h, 3)
	count := 0
	for _, v := range d {
		if v {
			count++
		}
	}
	assert.Equal(t, 9, count)

	mask[0] = true
	comps := connectedComponents(mask, w, h)
	assert.Len(t, comps, 2)

	best, ok := largestComponent(d, w, h)
	require.True(t, ok)
	assert.Equal(t, compStats{count: 9, minX: 4, minY: 4, maxX: 6, maxY: 6}, best)

	_, ok = largestComponent(make([]bool, w*h), w, h)
	assert.False(t, ok)
}
