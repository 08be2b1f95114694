// Package pdf turns single page marksheet PDFs into images.
//
// Scanned marksheets embed the page scan as an image, so the first page is
// recovered by extracting its embedded images and keeping the largest one.
package pdf

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/marksheet/internal/utils"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// ErrNoImages is returned when the first page carries no embedded image.
var ErrNoImages = errors.New("pdf page has no embedded images")

// FirstPageImage returns the largest image embedded in page 1 of filename.
func FirstPageImage(filename string) (image.Image, error) {
	n, err := api.PageCountFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF: %w", err)
	}
	if n < 1 {
		return nil, errors.New("pdf has no pages")
	}

	tempDir, err := os.MkdirTemp("", "marksheet-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	if err := api.ExtractImagesFile(filename, tempDir, []string{"1"}, nil); err != nil {
		return nil, fmt.Errorf("failed to extract images from PDF: %w", err)
	}

	pages, err := collectExtractedImages(tempDir)
	if err != nil {
		return nil, fmt.Errorf("failed to process extracted images: %w", err)
	}
	img := largest(pages[1])
	if img == nil {
		return nil, ErrNoImages
	}
	return img, nil
}

// PageCount reports the number of pages in filename.
func PageCount(filename string) (int, error) {
	return api.PageCountFile(filename)
}

func largest(imgs []image.Image) image.Image {
	var best image.Image
	bestArea := 0
	for _, img := range imgs {
		b := img.Bounds()
		if area := b.Dx() * b.Dy(); area > bestArea {
			best, bestArea = img, area
		}
	}
	return best
}

// collectExtractedImages walks dir and groups images by page number. It
// expects pdfcpu's naming: <stem>_<page>_<idx>.<ext> or page_<page>_image_<idx>.<ext>.
func collectExtractedImages(dir string) (map[int][]image.Image, error) {
	result := make(map[int][]image.Image)

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		pageNum, err := parsePageFromFilename(info.Name())
		if err != nil {
			return nil
		}

		img, _, err := utils.LoadImage(path)
		if err != nil {
			return nil
		}
		result[pageNum] = append(result[pageNum], img)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// parsePageFromFilename extracts the page number from an extracted image
// name. The page is the second to last underscore separated field.
func parsePageFromFilename(filename string) (int, error) {
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	parts := strings.Split(stem, "_")
	if len(parts) < 3 {
		return 0, errors.New("invalid filename format")
	}

	if parts[0] == "page" && len(parts) >= 4 && parts[2] == "image" {
		n, err := strconv.Atoi(parts[1])
		if err != nil {
			return 0, errors.New("invalid page number")
		}
		return n, nil
	}

	n, err := strconv.Atoi(parts[len(parts)-2])
	if err != nil {
		return 0, errors.New("invalid page number")
	}
	return n, nil
}
