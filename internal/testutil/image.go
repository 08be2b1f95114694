package testutil

import (
	"image"
	"image/color"
	"image/draw"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// MarksheetConfig describes a synthetic marksheet photo: a white page on a
// darker backdrop with a crest, a photo frame and two ruled tables.
type MarksheetConfig struct {
	Width, Height int
	Landscape     bool
	Backdrop      color.Color
	Title         string
	InfoLines     []string
	MarksLines    []string
	Photo         bool
}

// DefaultMarksheetConfig returns a portrait page carrying the CBSE fixture
// text.
func DefaultMarksheetConfig() MarksheetConfig {
	return MarksheetConfig{
		Width:      600,
		Height:     840,
		Backdrop:   color.RGBA{70, 60, 50, 255},
		Title:      "SECONDARY SCHOOL EXAMINATION",
		InfoLines:  splitLines(CBSEFixture.Info),
		MarksLines: splitLines(CBSEFixture.Marks),
		Photo:      true,
	}
}

// GenerateMarksheet renders cfg. When Landscape is set the portrait page is
// rotated a quarter turn.
func GenerateMarksheet(cfg MarksheetConfig) *image.NRGBA {
	w, h := cfg.Width, cfg.Height
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{cfg.Backdrop}, image.Point{}, draw.Src)

	px, py := w/12, h/14
	pageRect := image.Rect(px, py, w-px, h-py)
	draw.Draw(img, pageRect, image.White, image.Point{}, draw.Src)

	pw := pageRect.Dx()
	ink := color.Black
	crest := image.Rect(pageRect.Min.X+pw/20, pageRect.Min.Y+pw/20, pageRect.Min.X+pw/5, pageRect.Min.Y+pw/5)
	fillRect(img, crest, color.RGBA{20, 40, 140, 255})
	drawText(img, crest.Max.X+10, crest.Min.Y+20, cfg.Title, ink)

	if cfg.Photo {
		photo := image.Rect(pageRect.Max.X-pw/4, pageRect.Min.Y+pw/20, pageRect.Max.X-pw/20, pageRect.Min.Y+pw/3)
		fillRect(img, photo, color.RGBA{160, 120, 100, 255})
	}

	info := image.Rect(pageRect.Min.X+pw/20, pageRect.Min.Y+pageRect.Dy()*2/10, pageRect.Max.X-pw/20, pageRect.Min.Y+pageRect.Dy()*4/10)
	drawTable(img, info, cfg.InfoLines)
	marks := image.Rect(pageRect.Min.X+pw/20, pageRect.Min.Y+pageRect.Dy()*5/10, pageRect.Max.X-pw/20, pageRect.Min.Y+pageRect.Dy()*9/10)
	drawTable(img, marks, cfg.MarksLines)

	out := imaging.Clone(img)
	if cfg.Landscape {
		out = imaging.Rotate90(out)
	}
	return out
}

// drawTable outlines r, rules one row per line and writes the lines.
func drawTable(img *image.RGBA, r image.Rectangle, lines []string) {
	ink := color.Black
	outline(img, r, ink)
	if len(lines) == 0 {
		return
	}
	row := r.Dy() / len(lines)
	for i, line := range lines {
		y := r.Min.Y + i*row
		if i > 0 {
			fillRect(img, image.Rect(r.Min.X, y, r.Max.X, y+1), ink)
		}
		drawText(img, r.Min.X+6, y+row/2+4, line, ink)
	}
}

func outline(img *image.RGBA, r image.Rectangle, c color.Color) {
	fillRect(img, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+2), c)
	fillRect(img, image.Rect(r.Min.X, r.Max.Y-2, r.Max.X, r.Max.Y), c)
	fillRect(img, image.Rect(r.Min.X, r.Min.Y, r.Min.X+2, r.Max.Y), c)
	fillRect(img, image.Rect(r.Max.X-2, r.Min.Y, r.Max.X, r.Max.Y), c)
}

func fillRect(img *image.RGBA, r image.Rectangle, c color.Color) {
	draw.Draw(img, r, &image.Uniform{c}, image.Point{}, draw.Src)
}

func drawText(img *image.RGBA, x, y int, text string, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{c},
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == '\n' {
			if i > start {
				lines = append(lines, s[start:i])
			}
			start = i + 1
		}
	}
	return lines
}

// SaveImage encodes img to path, choosing the format from the extension.
func SaveImage(t *testing.T, img image.Image, path string) {
	t.Helper()

	require.NoError(t, EnsureDir(filepath.Dir(path)))
	require.NoError(t, imaging.Save(img, path), "Failed to save image: %s", path)
}

// WriteMarksheet renders cfg into dir/name and returns the path.
func WriteMarksheet(t *testing.T, dir, name string, cfg MarksheetConfig) string {
	t.Helper()

	path := filepath.Join(dir, name)
	SaveImage(t, GenerateMarksheet(cfg), path)
	return path
}

// LoadImage loads an image file for comparison in tests.
func LoadImage(t *testing.T, path string) image.Image {
	t.Helper()

	img, err := imaging.Open(path)
	require.NoError(t, err, "Failed to load image: %s", path)
	return img
}
