package crop

import (
	"image"
	"testing"

	"github.com/MeKo-Tech/marksheet/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPad(t *testing.T) {
	tests := []struct {
		name   string
		box    utils.Box
		margin float64
		want   utils.Box
	}{
		{
			name:   "inside image",
			box:    utils.Box{X1: 20, Y1: 20, X2: 60, Y2: 40},
			margin: 0.10,
			want:   utils.Box{X1: 16, Y1: 18, X2: 64, Y2: 42},
		},
		{
			name:   "clamped at edges",
			box:    utils.Box{X1: 0, Y1: 0, X2: 100, Y2: 50},
			margin: 0.15,
			want:   utils.Box{X1: 0, Y1: 0, X2: 100, Y2: 58},
		},
		{
			name:   "swapped corners",
			box:    utils.Box{X1: 60, Y1: 40, X2: 20, Y2: 20},
			margin: 0,
			want:   utils.Box{X1: 20, Y1: 20, X2: 60, Y2: 40},
		},
		{
			name:   "entirely outside",
			box:    utils.Box{X1: 150, Y1: 150, X2: 180, Y2: 190},
			margin: 0.1,
			want:   utils.Box{X1: 100, Y1: 100, X2: 100, Y2: 100},
		},
		{
			name:   "entirely negative",
			box:    utils.Box{X1: -50, Y1: -40, X2: -10, Y2: -5},
			margin: 0.1,
			want:   utils.Box{X1: 0, Y1: 0, X2: 0, Y2: 0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Pad(tt.box, tt.margin, 100, 100)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got.Width(), 0)
			assert.GreaterOrEqual(t, got.Height(), 0)
		})
	}
}

func TestRegionOutsideImageIsEmpty(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 80))
	out, box, err := Region(img, utils.Box{X1: 200, Y1: 10, X2: 260, Y2: 40}, 0.1)
	require.ErrorIs(t, err, ErrEmptyRegion)
	assert.Nil(t, out)
	assert.True(t, box.Empty())
	assert.GreaterOrEqual(t, box.Width(), 0)
}

func TestRegionCrops(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 80))
	out, box, err := Region(img, utils.Box{X1: 10, Y1: 10, X2: 50, Y2: 30}, 0.10)
	require.NoError(t, err)
	assert.Equal(t, utils.Box{X1: 6, Y1: 8, X2: 54, Y2: 32}, box)
	assert.Equal(t, 48, out.Bounds().Dx())
	assert.Equal(t, 24, out.Bounds().Dy())
}

func TestRegionHonoursNonZeroOrigin(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 100)).SubImage(image.Rect(50, 50, 100, 100))
	out, box, err := Region(img, utils.Box{X1: 0, Y1: 0, X2: 10, Y2: 10}, 0)
	require.NoError(t, err)
	assert.Equal(t, utils.Box{X1: 0, Y1: 0, X2: 10, Y2: 10}, box)
	assert.Equal(t, 10, out.Bounds().Dx())
}

func TestNormBoxToPixels(t *testing.T) {
	nb := NormBox{CX: 0.5, CY: 0.5, W: 0.5, H: 0.25}
	assert.Equal(t, utils.Box{X1: 50, Y1: 150, X2: 150, Y2: 250}, nb.ToPixels(200, 400))
}

func TestNormalized(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1000, 2000))
	out, box, err := Normalized(img, NormBox{CX: 0.395423, CY: 0.163709, W: 0.653978, H: 0.128660}, 0.02)
	require.NoError(t, err)
	assert.Equal(t, box.Width(), out.Bounds().Dx())
	assert.Positive(t, box.X1)
	assert.LessOrEqual(t, box.X2, 1000)

	_, _, err = Normalized(img, NormBox{CX: 1.5, CY: 0.5, W: 0.1, H: 0.1}, 0.02)
	require.Error(t, err)

	_, _, err = Normalized(nil, NormBox{}, 0)
	require.Error(t, err)
}
