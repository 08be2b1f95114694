package onnx

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/MeKo-Tech/marksheet/internal/mempool"
	"github.com/disintegration/imaging"
)

// Tensor represents a float32 tensor prepared for ONNX input.
// Data layout is row-major, NCHW for images.
type Tensor struct {
	Data  []float32
	Shape []int64
}

// NewImageTensor builds a single-image tensor with shape [1, C, H, W].
func NewImageTensor(data []float32, c, h, w int) (Tensor, error) {
	if data == nil {
		return Tensor{}, errors.New("nil data")
	}
	if expected := c * h * w; len(data) != expected {
		return Tensor{}, fmt.Errorf("unexpected data length: got %d, want %d", len(data), expected)
	}
	return Tensor{Data: data, Shape: []int64{1, int64(c), int64(h), int64(w)}}, nil
}

// ValidateNCHW ensures a shape is [N, C, H, W] with positive dimensions.
func ValidateNCHW(shape []int64) error {
	if len(shape) != 4 {
		return fmt.Errorf("shape rank %d != 4", len(shape))
	}
	for i, v := range shape {
		if v <= 0 {
			return fmt.Errorf("dimension %d must be > 0, got %d", i, v)
		}
	}
	return nil
}

// VerifyImageTensor checks data length matches the NCHW shape.
func VerifyImageTensor(t Tensor) error {
	if err := ValidateNCHW(t.Shape); err != nil {
		return err
	}
	expected := int(t.Shape[0] * t.Shape[1] * t.Shape[2] * t.Shape[3])
	if len(t.Data) != expected {
		return fmt.Errorf("tensor data length %d != expected %d for shape %v", len(t.Data), expected, t.Shape)
	}
	return nil
}

// Letterbox describes how an image was fitted into a square model input.
type Letterbox struct {
	Scale float64
	PadX  int
	PadY  int
}

// Unmap converts a point in model input space back to source pixels.
func (l Letterbox) Unmap(x, y float64) (float64, float64) {
	return (x - float64(l.PadX)) / l.Scale, (y - float64(l.PadY)) / l.Scale
}

// LetterboxTensor resizes img to fit size×size keeping aspect ratio, pads
// with gray and returns an RGB tensor scaled to [0,1]. The data comes from
// mempool; callers may hand it back with mempool.PutFloat32 after use.
func LetterboxTensor(img image.Image, size int) (Tensor, Letterbox, error) {
	if img == nil {
		return Tensor{}, Letterbox{}, errors.New("input image is nil")
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 || size <= 0 {
		return Tensor{}, Letterbox{}, errors.New("empty image or size")
	}

	scale := min(float64(size)/float64(b.Dx()), float64(size)/float64(b.Dy()))
	nw := max(1, int(float64(b.Dx())*scale))
	nh := max(1, int(float64(b.Dy())*scale))
	resized := imaging.Resize(img, nw, nh, imaging.Linear)

	canvas := imaging.New(size, size, color.NRGBA{R: 114, G: 114, B: 114, A: 255})
	lb := Letterbox{Scale: scale, PadX: (size - nw) / 2, PadY: (size - nh) / 2}
	canvas = imaging.Paste(canvas, resized, image.Pt(lb.PadX, lb.PadY))

	plane := size * size
	data := mempool.GetFloat32(3 * plane)
	for y := range size {
		for x := range size {
			o := canvas.PixOffset(x, y)
			i := y*size + x
			data[i] = float32(canvas.Pix[o]) / 255
			data[plane+i] = float32(canvas.Pix[o+1]) / 255
			data[2*plane+i] = float32(canvas.Pix[o+2]) / 255
		}
	}
	t, err := NewImageTensor(data, 3, size, size)
	return t, lb, err
}
