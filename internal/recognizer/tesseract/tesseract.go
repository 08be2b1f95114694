// Package tesseract provides a local recognizer backend on top of the
// Tesseract engine. Importing it registers the "tesseract" backend.
package tesseract

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/MeKo-Tech/marksheet/internal/recognizer"
	"github.com/MeKo-Tech/marksheet/internal/utils"
	"github.com/otiai10/gosseract/v2"
)

func init() {
	recognizer.RegisterBackend("tesseract", func(cfg recognizer.Config) (recognizer.Recognizer, error) {
		return New(cfg.Languages), nil
	})
}

// Engine recognizes text with a fresh Tesseract client per call; clients
// are not safe for concurrent use.
type Engine struct {
	languages     []string
	clientFactory func() *gosseract.Client
}

// New creates an Engine for the given languages (default "eng").
func New(languages []string) *Engine {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &Engine{languages: languages, clientFactory: gosseract.NewClient}
}

// Recognize implements recognizer.Recognizer.
func (e *Engine) Recognize(ctx context.Context, img image.Image) string {
	text, err := e.recognize(ctx, img)
	if err != nil {
		return recognizer.Failed(err)
	}
	return text
}

func (e *Engine) recognize(ctx context.Context, img image.Image) (string, error) {
	if img == nil {
		return "", errors.New("input image is nil")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := utils.EncodePNG(img)
	if err != nil {
		return "", err
	}

	c := e.clientFactory()
	defer func() { _ = c.Close() }()

	if err := c.SetLanguage(e.languages...); err != nil {
		return "", fmt.Errorf("set languages: %w", err)
	}
	// Single uniform block keeps table rows on their own lines.
	if err := c.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		return "", fmt.Errorf("set page segmentation: %w", err)
	}
	if err := c.SetVariable(gosseract.SettableVariable("preserve_interword_spaces"), "1"); err != nil {
		return "", fmt.Errorf("set variable: %w", err)
	}
	if err := c.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return recognizer.CleanText(strings.TrimSpace(text)), nil
}
