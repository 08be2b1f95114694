// Package normalize turns a raw marksheet scan into a portrait, tightly
// cropped and contrast-stabilised image for the detection and recognition stages.
package normalize

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/marksheet/internal/utils"
	"github.com/disintegration/imaging"
)

// Config controls the normalisation steps.
type Config struct {
	PadRatio       float64 // Fraction of width/height added around the detected page
	BlurSigma      float64 // Gaussian sigma applied before edge detection
	CannyLow       float64 // Hysteresis low threshold on gradient magnitude
	CannyHigh      float64 // Hysteresis high threshold on gradient magnitude
	DilateSize     int     // Square structuring element size
	DilateIters    int
	CLAHEClip      float64 // Contrast limit for the luminance equalisation
	CLAHETiles     int     // Tiles per axis
	SaturationGain float64 // Multiplier applied to HSV saturation
}

// DefaultConfig returns the settings tuned for phone photos and flatbed scans.
func DefaultConfig() Config {
	return Config{
		PadRatio:       0.01,
		BlurSigma:      1.1,
		CannyLow:       50,
		CannyHigh:      150,
		DilateSize:     3,
		DilateIters:    1,
		CLAHEClip:      2.0,
		CLAHETiles:     8,
		SaturationGain: 0.85,
	}
}

// Validate checks the configuration for values the algorithms cannot use.
func (c Config) Validate() error {
	if c.PadRatio < 0 || c.PadRatio > 0.5 {
		return fmt.Errorf("pad ratio must be in [0,0.5], got %f", c.PadRatio)
	}
	if c.CannyLow < 0 || c.CannyHigh < c.CannyLow {
		return fmt.Errorf("invalid canny thresholds %f/%f", c.CannyLow, c.CannyHigh)
	}
	if c.CLAHETiles < 1 {
		return fmt.Errorf("clahe tiles must be >= 1, got %d", c.CLAHETiles)
	}
	if c.SaturationGain < 0 {
		return fmt.Errorf("saturation gain must be >= 0, got %f", c.SaturationGain)
	}
	return nil
}

// Result is the outcome of normalisation. Crop is expressed in the pixel
// space of Oriented, which equals the input unless Rotated is set.
type Result struct {
	Image    *image.NRGBA
	Oriented image.Image
	Crop     utils.Box
	Rotated  bool
	Fallback bool // Crop covers the whole image because no page region was found
}

// Normalizer applies orientation, page cropping and enhancement.
type Normalizer struct {
	config Config
}

// New creates a Normalizer.
func New(config Config) (*Normalizer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Normalizer{config: config}, nil
}

// Normalize runs the full normalisation on img.
func (n *Normalizer) Normalize(img image.Image) (*Result, error) {
	if img == nil {
		return nil, &utils.ImageProcessingError{Operation: "normalize", Err: errors.New("input image is nil")}
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, &utils.ImageProcessingError{Operation: "normalize", Err: errors.New("empty image")}
	}

	start := time.Now()
	res := &Result{Oriented: img}
	if b.Dx() > b.Dy() {
		res.Oriented = imaging.Rotate90(img)
		res.Rotated = true
	}

	ob := res.Oriented.Bounds()
	crop, ok := n.pageBox(res.Oriented)
	if !ok {
		crop = utils.Box{X1: 0, Y1: 0, X2: ob.Dx(), Y2: ob.Dy()}
		res.Fallback = true
	}
	res.Crop = crop

	cropped := imaging.Crop(res.Oriented, crop.Rect().Add(ob.Min))
	if cropped.Bounds().Empty() {
		cropped = imaging.Clone(res.Oriented)
		res.Crop = utils.Box{X1: 0, Y1: 0, X2: ob.Dx(), Y2: ob.Dy()}
		res.Fallback = true
	}

	enhanced := EqualizeLuminance(cropped, n.config.CLAHEClip, n.config.CLAHETiles)
	ScaleSaturation(enhanced, n.config.SaturationGain)
	res.Image = enhanced

	slog.Debug("Normalized image",
		"rotated", res.Rotated,
		"fallback", res.Fallback,
		"crop", res.Crop.Coords(),
		"duration_ms", time.Since(start).Milliseconds())
	return res, nil
}

// pageBox locates the bounding box of the largest edge region, padded and
// clamped. It reports false when nothing usable was found.
func (n *Normalizer) pageBox(img image.Image) (utils.Box, bool) {
	gray := toGray(imaging.Blur(img, n.config.BlurSigma))
	w, h := gray.w, gray.h

	edges := cannyEdges(gray, n.config.CannyLow, n.config.CannyHigh)
	for range n.config.DilateIters {
		edges = dilateMask(edges, w, h, n.config.DilateSize)
	}

	comp, ok := largestComponent(edges, w, h)
	if !ok {
		return utils.Box{}, false
	}

	padX := int(n.config.PadRatio * float64(w))
	padY := int(n.config.PadRatio * float64(h))
	box := utils.Box{
		X1: utils.ClampInt(comp.minX-padX, 0, w),
		Y1: utils.ClampInt(comp.minY-padY, 0, h),
		X2: utils.ClampInt(comp.maxX+1+padX, 0, w),
		Y2: utils.ClampInt(comp.maxY+1+padY, 0, h),
	}
	if box.Empty() {
		return utils.Box{}, false
	}
	return box, true
}
