package detect

import (
	"context"
	"fmt"
	"image"
)

// Unavailable stands in for any capability whose backend failed to load.
type Unavailable struct {
	Name   string
	Reason error
}

func (u Unavailable) err() error {
	if u.Reason == nil {
		return fmt.Errorf("%s: %w", u.Name, ErrUnavailable)
	}
	return fmt.Errorf("%s: %w: %w", u.Name, ErrUnavailable, u.Reason)
}

func (u Unavailable) ClassifyBoard(context.Context, image.Image) (Classification, error) {
	return Classification{Board: BoardUnknown}, u.err()
}

func (u Unavailable) DetectPhoto(context.Context, image.Image, BoardID) (PhotoResult, error) {
	return PhotoResult{}, u.err()
}

func (u Unavailable) LocateTables(context.Context, image.Image, Thresholds) ([]Table, error) {
	return nil, u.err()
}

func (u Unavailable) Detect(context.Context, image.Image) ([]Detection, error) {
	return nil, u.err()
}

// IsAvailable reports whether c is backed by a real implementation.
func IsAvailable(c any) bool {
	if c == nil {
		return false
	}
	_, un := c.(Unavailable)
	return !un
}
