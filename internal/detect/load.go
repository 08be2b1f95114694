package detect

import (
	"errors"
	"io"
	"log/slog"

	"github.com/MeKo-Tech/marksheet/internal/onnx"
)

// ModelsConfig names the model files backing each capability.
type ModelsConfig struct {
	BoardModel      string
	PhotoModel      string
	TableModel      string
	InputSize       int
	PhotoWindow     float64
	PhotoConfidence float64
	Runtime         onnx.RuntimeConfig
}

// Capabilities bundles the detection backends. It is created once per
// process and read-only afterwards.
type Capabilities struct {
	Board  BoardClassifier
	Photo  PhotoDetector
	Tables TableLocator

	closers []io.Closer
}

// Load opens every configured model. A model that fails to load degrades
// its capability to Unavailable; Load itself never fails.
func Load(cfg ModelsConfig) *Capabilities {
	c := &Capabilities{}

	if det, err := c.open("board classifier", cfg.BoardModel, 3, cfg); err != nil {
		c.Board = Unavailable{Name: "board classifier", Reason: err}
	} else {
		c.Board = &ModelBoardClassifier{Model: det, Classes: DefaultBoardClasses()}
	}

	if det, err := c.open("photo detector", cfg.PhotoModel, 1, cfg); err != nil {
		c.Photo = Unavailable{Name: "photo detector", Reason: err}
	} else {
		c.Photo = &WindowedPhotoDetector{Model: det, Fraction: cfg.PhotoWindow, MinConfidence: cfg.PhotoConfidence}
	}

	if det, err := c.open("table locator", cfg.TableModel, 2, cfg); err != nil {
		c.Tables = Unavailable{Name: "table locator", Reason: err}
	} else {
		c.Tables = &ModelTableLocator{Model: det, Labels: DefaultTableLabels()}
	}
	return c
}

func (c *Capabilities) open(name, path string, classes int, cfg ModelsConfig) (*YOLODetector, error) {
	if path == "" {
		slog.Warn("No model configured, capability unavailable", "capability", name)
		return nil, errors.New("no model configured")
	}
	yc := DefaultYOLOConfig(path, classes)
	if cfg.InputSize > 0 {
		yc.InputSize = cfg.InputSize
	}
	yc.Runtime = cfg.Runtime
	det, err := NewYOLODetector(yc)
	if err != nil {
		slog.Warn("Failed to load model, capability unavailable", "capability", name, "model_path", path, "error", err)
		return nil, err
	}
	c.closers = append(c.closers, det)
	return det, nil
}

// Status reports which capabilities are backed by a model.
func (c *Capabilities) Status() map[string]bool {
	return map[string]bool{
		"board_classifier": IsAvailable(c.Board),
		"photo_detector":   IsAvailable(c.Photo),
		"table_locator":    IsAvailable(c.Tables),
	}
}

// Close releases model sessions, returning the first error seen.
func (c *Capabilities) Close() error {
	var first error
	for _, cl := range c.closers {
		if err := cl.Close(); err != nil && first == nil {
			first = err
		}
	}
	c.closers = nil
	return first
}
