// Package recognizer turns cropped table images into raw text.
//
// Recognizers never return errors. Misconfiguration and remote failures are
// reported as sentinel text so every downstream artifact stays well-formed;
// use IsSentinel before treating output as recognised text.
package recognizer

import (
	"context"
	"image"
	"strings"
)

const (
	// NotAvailableText is returned when no usable backend is configured.
	NotAvailableText = "OCR not available - no valid API key"
	// FailedPrefix starts the text returned for a failed recognition.
	FailedPrefix = "OCR failed: "
)

// Recognizer extracts text from an image region.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) string
}

// IsSentinel reports whether text is a failure placeholder rather than
// recognised content. Recognised text that merely mentions a failure is not
// a sentinel.
func IsSentinel(text string) bool {
	return text == NotAvailableText || strings.HasPrefix(text, FailedPrefix)
}

// Failed formats the failure sentinel for err.
func Failed(err error) string {
	return FailedPrefix + err.Error()
}

// Unavailable is the recognizer used when no backend could be initialised.
type Unavailable struct{}

// Recognize implements Recognizer.
func (Unavailable) Recognize(context.Context, image.Image) string {
	return NotAvailableText
}

// Available reports whether r is backed by a real implementation.
func Available(r Recognizer) bool {
	if r == nil {
		return false
	}
	_, un := r.(Unavailable)
	return !un
}

// Func adapts a function to the Recognizer interface.
type Func func(ctx context.Context, img image.Image) string

// Recognize implements Recognizer.
func (f Func) Recognize(ctx context.Context, img image.Image) string { return f(ctx, img) }
