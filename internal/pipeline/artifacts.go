package pipeline

import (
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MeKo-Tech/marksheet/internal/utils"
	"github.com/google/uuid"
)

// Artifact subdirectories under the output root.
const (
	dirResults      = "results"
	dirProcessed    = "processed"
	dirOCR          = "ocr"
	dirAnnotated    = "annotated"
	dirPreprocessed = "preprocessed"
)

// Store owns the artifact tree of a pipeline. An empty root disables
// persistence: every writer becomes a no-op returning an empty path.
type Store struct {
	root string
	now  func() time.Time
}

// NewStore creates a store rooted at root.
func NewStore(root string) *Store {
	return &Store{root: root, now: time.Now}
}

// Enabled reports whether artifacts are written.
func (s *Store) Enabled() bool { return s != nil && s.root != "" }

// Root returns the output directory.
func (s *Store) Root() string { return s.root }

// NewRunID returns an id of the form YYYYMMDD_HHMMSS_<8 hex>.
func NewRunID(t time.Time) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return t.Format("20060102_150405") + "_" + hex[:8]
}

// Run namespaces the artifacts of one document so concurrent runs on the
// same filename never collide.
type Run struct {
	ID        string
	Namespace string
	store     *Store
}

// NewRun starts a run for the document at path.
func (s *Store) NewRun(path string) *Run {
	id := NewRunID(s.now())
	return &Run{ID: id, Namespace: Stem(path) + "_" + id, store: s}
}

// Stem returns the file name of path without directory and extension.
func Stem(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" || stem == "." || stem == string(filepath.Separator) {
		return "document"
	}
	return stem
}

func (r *Run) path(dir, suffix string) string {
	if !r.store.Enabled() {
		return ""
	}
	return filepath.Join(r.store.root, dir, r.Namespace+suffix)
}

// ResultsPath is the PipelineResult location.
func (r *Run) ResultsPath() string { return r.path(dirResults, "_result.json") }

// CoordinatesPath is the table coordinates location.
func (r *Run) CoordinatesPath() string { return r.path(dirProcessed, "_table_coords.json") }

// RecordPath is the extracted record location.
func (r *Run) RecordPath() string { return r.path(dirProcessed, ".json") }

// InfoTextPath is the information table text location.
func (r *Run) InfoTextPath() string { return r.path(dirOCR, "_info.txt") }

// MarksTextPath is the marks table text location.
func (r *Run) MarksTextPath() string { return r.path(dirOCR, "_marks.txt") }

// AnnotatedPath is the preview image location.
func (r *Run) AnnotatedPath() string { return r.path(dirAnnotated, "_annotated.jpg") }

// PreprocessedPath is the normalized image location.
func (r *Run) PreprocessedPath() string { return r.path(dirPreprocessed, "_clean.jpg") }

// coordinatesFile is the table coordinates artifact.
type coordinatesFile struct {
	File             string            `json:"file"`
	TableCoordinates []TableCoordinate `json:"table_coordinates"`
}

// WriteJSON marshals v with indentation and writes it to path. An empty
// path is a no-op.
func WriteJSON(path string, v any) error {
	if path == "" {
		return nil
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	return writeFile(path, data)
}

// WriteText writes text to path. An empty path is a no-op.
func WriteText(path, text string) error {
	if path == "" {
		return nil
	}
	return writeFile(path, []byte(text))
}

// SaveImage writes img as JPEG to path. An empty path is a no-op.
func SaveImage(path string, img image.Image) error {
	if path == "" {
		return nil
	}
	return utils.SaveJPEG(path, img, 90)
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadText loads a persisted RawText file.
func ReadText(path string) (string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: reading a caller supplied artifact path
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}
