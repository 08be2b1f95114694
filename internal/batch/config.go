// Package batch runs the marksheet pipeline over many files with a worker
// pool and summarizes the outcome.
package batch

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/MeKo-Tech/marksheet/internal/pipeline"
)

// Config holds all configuration for batch processing.
type Config struct {
	Workers int

	// Mode is "school" (detected geometry) or "college" (fixed geometry).
	Mode        string
	ExpectedSem string

	// File discovery settings
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	Format     string // text, json or csv
	OutputFile string
	Quiet      bool
}

// DefaultConfig returns a single-worker school-mode configuration.
func DefaultConfig() Config {
	return Config{Workers: 1, Mode: pipeline.ModeSchool, Format: "text"}
}

// Processor is the part of the pipeline a batch needs. *pipeline.Pipeline
// implements it.
type Processor interface {
	Process(ctx context.Context, path string) (*pipeline.Result, error)
	ProcessFixed(ctx context.Context, path, expectedSem string) (*pipeline.FixedResult, error)
}

// Item is the outcome for one file.
type Item struct {
	File   string                `json:"file"`
	Result *pipeline.Result      `json:"result,omitempty"`
	Fixed  *pipeline.FixedResult `json:"fixed,omitempty"`
	Error  string                `json:"error,omitempty"`
}

// Status returns the overall status of the item. Failed files count as
// errors.
func (i Item) Status() string {
	switch {
	case i.Result != nil:
		return i.Result.OverallStatus
	case i.Fixed != nil && i.Fixed.Data != nil:
		return pipeline.StatusValid
	case i.Fixed != nil:
		return pipeline.StatusPartialMatch
	default:
		return pipeline.StatusError
	}
}

// Board returns the board the item was processed as.
func (i Item) Board() string {
	switch {
	case i.Result != nil:
		return i.Result.LogoDetection.BoardName
	case i.Fixed != nil:
		return i.Fixed.Board
	default:
		return "Unknown"
	}
}

// Result holds the result of batch processing.
type Result struct {
	Items       []Item
	Duration    time.Duration
	WorkerCount int
}

// Summary aggregates the items.
func (r *Result) Summary() Summary {
	return Summarize(r.Items, r.Duration)
}

// FormatResults formats the batch results in the given format.
func (r *Result) FormatResults(format string) (string, error) {
	return formatBatchResults(r, format)
}

// SaveResults writes the formatted results to outputFile, or to w when no
// file is given.
func (r *Result) SaveResults(w io.Writer, format, outputFile string, quiet bool) error {
	output, err := r.FormatResults(format)
	if err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(output), 0o600); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		if !quiet {
			_, _ = fmt.Fprintf(w, "Results written to %s\n", outputFile)
		}
	} else {
		_, _ = fmt.Fprint(w, output)
	}
	return nil
}
