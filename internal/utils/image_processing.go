package utils

import (
	"errors"
	"fmt"
	"image"
)

// ImageProcessingError represents errors that can occur during image processing.
type ImageProcessingError struct {
	Operation string
	Err       error
}

func (e *ImageProcessingError) Error() string {
	return fmt.Sprintf("image processing error in %s: %v", e.Operation, e.Err)
}

func (e *ImageProcessingError) Unwrap() error {
	return e.Err
}

// ImageConstraints defines the size limits accepted by the pipeline.
type ImageConstraints struct {
	MaxWidth  int
	MaxHeight int
	MinWidth  int
	MinHeight int
}

// DefaultImageConstraints returns the default constraints for marksheet scans.
func DefaultImageConstraints() ImageConstraints {
	return ImageConstraints{
		MaxWidth:  12000,
		MaxHeight: 12000,
		MinWidth:  32,
		MinHeight: 32,
	}
}

// ValidateImageConstraints checks dimensions against the provided constraints.
func ValidateImageConstraints(img image.Image, constraints ImageConstraints) error {
	if img == nil {
		return &ImageProcessingError{Operation: "validate", Err: errors.New("input image is nil")}
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < constraints.MinWidth || h < constraints.MinHeight {
		return &ImageProcessingError{
			Operation: "validate",
			Err:       fmt.Errorf("image too small: %dx%d < %dx%d", w, h, constraints.MinWidth, constraints.MinHeight),
		}
	}
	if constraints.MaxWidth > 0 && w > constraints.MaxWidth || constraints.MaxHeight > 0 && h > constraints.MaxHeight {
		return &ImageProcessingError{
			Operation: "validate",
			Err:       fmt.Errorf("image too large: %dx%d > %dx%d", w, h, constraints.MaxWidth, constraints.MaxHeight),
		}
	}
	return nil
}

// ClampInt limits v to [lo, hi].
func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
