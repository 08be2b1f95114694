package onnx

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewImageTensor(t *testing.T) {
	tt, err := NewImageTensor(make([]float32, 12), 3, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 2, 2}, tt.Shape)
	require.NoError(t, VerifyImageTensor(tt))

	_, err = NewImageTensor(make([]float32, 5), 3, 2, 2)
	require.Error(t, err)
	_, err = NewImageTensor(nil, 3, 2, 2)
	require.Error(t, err)
}

func TestValidateNCHW(t *testing.T) {
	require.NoError(t, ValidateNCHW([]int64{1, 3, 4, 4}))
	require.Error(t, ValidateNCHW([]int64{1, 3, 4}))
	require.Error(t, ValidateNCHW([]int64{1, 0, 4, 4}))
}

func TestLetterboxTensor(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 200, 100))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	tt, lb, err := LetterboxTensor(img, 64)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 64, 64}, tt.Shape)
	assert.InDelta(t, 0.32, lb.Scale, 1e-9)
	assert.Equal(t, 0, lb.PadX)
	assert.Equal(t, 16, lb.PadY)

	// Padding row is gray, content row is white.
	assert.InDelta(t, 114.0/255, tt.Data[0], 1e-6)
	assert.InDelta(t, 1.0, tt.Data[32*64+32], 1e-6)

	x, y := lb.Unmap(32, 32)
	assert.InDelta(t, 100, x, 1e-6)
	assert.InDelta(t, 50, y, 1e-6)

	_, _, err = LetterboxTensor(nil, 64)
	require.Error(t, err)
}
