// Package crop cuts padded regions out of a normalized marksheet.
package crop

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/MeKo-Tech/marksheet/internal/utils"
	"github.com/disintegration/imaging"
)

// ErrEmptyRegion is returned when a region has no area after clamping.
var ErrEmptyRegion = errors.New("region is empty after clamping")

// NormBox is a region given as centre and size fractions of the image.
type NormBox struct {
	CX float64 `json:"cx" mapstructure:"cx" yaml:"cx"`
	CY float64 `json:"cy" mapstructure:"cy" yaml:"cy"`
	W  float64 `json:"w"  mapstructure:"w"  yaml:"w"`
	H  float64 `json:"h"  mapstructure:"h"  yaml:"h"`
}

// Validate checks that every component lies in [0,1].
func (n NormBox) Validate() error {
	for _, v := range []float64{n.CX, n.CY, n.W, n.H} {
		if v < 0 || v > 1 || math.IsNaN(v) {
			return fmt.Errorf("normalized box component out of range: %v", n)
		}
	}
	return nil
}

// ToPixels converts the box into pixel corners for an image of size w×h.
// The result is not clamped.
func (n NormBox) ToPixels(w, h int) utils.Box {
	fw, fh := float64(w), float64(h)
	return utils.Box{
		X1: int(math.Round((n.CX - n.W/2) * fw)),
		Y1: int(math.Round((n.CY - n.H/2) * fh)),
		X2: int(math.Round((n.CX + n.W/2) * fw)),
		Y2: int(math.Round((n.CY + n.H/2) * fh)),
	}
}

// Pad expands box by margin×box size on each side and clamps it to a w×h
// image. The result never has negative size, but may be empty.
func Pad(box utils.Box, margin float64, w, h int) utils.Box {
	box = utils.NewBox(box.X1, box.Y1, box.X2, box.Y2)
	padX := int(math.Round(float64(box.Width()) * margin))
	padY := int(math.Round(float64(box.Height()) * margin))
	out := utils.Box{
		X1: utils.ClampInt(box.X1-padX, 0, w),
		Y1: utils.ClampInt(box.Y1-padY, 0, h),
		X2: utils.ClampInt(box.X2+padX, 0, w),
		Y2: utils.ClampInt(box.Y2+padY, 0, h),
	}
	out.X2 = max(out.X2, out.X1)
	out.Y2 = max(out.Y2, out.Y1)
	return out
}

// Region crops a padded pixel box out of img. The returned box is the
// clamped region actually cut, relative to img's origin.
func Region(img image.Image, box utils.Box, margin float64) (*image.NRGBA, utils.Box, error) {
	if img == nil {
		return nil, utils.Box{}, &utils.ImageProcessingError{Operation: "crop", Err: errors.New("input image is nil")}
	}
	b := img.Bounds()
	padded := Pad(box, margin, b.Dx(), b.Dy())
	if padded.Empty() {
		return nil, padded, ErrEmptyRegion
	}
	out := imaging.Crop(img, padded.Rect().Add(b.Min))
	return out, padded, nil
}

// Normalized crops a centre/size box out of img.
func Normalized(img image.Image, box NormBox, margin float64) (*image.NRGBA, utils.Box, error) {
	if img == nil {
		return nil, utils.Box{}, &utils.ImageProcessingError{Operation: "crop", Err: errors.New("input image is nil")}
	}
	if err := box.Validate(); err != nil {
		return nil, utils.Box{}, err
	}
	b := img.Bounds()
	return Region(img, box.ToPixels(b.Dx(), b.Dy()), margin)
}
