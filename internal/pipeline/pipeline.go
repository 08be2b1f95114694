package pipeline

import (
	"errors"
	"fmt"

	"github.com/MeKo-Tech/marksheet/internal/crop"
	"github.com/MeKo-Tech/marksheet/internal/detect"
	"github.com/MeKo-Tech/marksheet/internal/normalize"
	"github.com/MeKo-Tech/marksheet/internal/recognizer"
)

// Config holds configuration for the marksheet pipeline and its components.
type Config struct {
	Normalize  normalize.Config
	Models     detect.ModelsConfig
	Recognizer recognizer.Config

	BoardFloor float64   // Minimum board classifier confidence
	ClipValues []float64 // CLAHE clip values tried by the board sweep
	Tables     detect.Thresholds

	InfoMargin  float64 // Padding applied to the info table before recognition
	MarksMargin float64 // Padding applied to the marks table before recognition

	// Fixed-geometry (college) mode
	FixedMargin   float64
	FixedInfoBox  crop.NormBox
	FixedMarksBox crop.NormBox

	OutputDir      string // Artifact root; empty disables persistence
	Annotate       bool
	ValidateSchema bool
}

// Default boxes of the college grade sheet layout.
var (
	DefaultFixedInfoBox  = crop.NormBox{CX: 0.395423, CY: 0.163709, W: 0.653978, H: 0.128660}
	DefaultFixedMarksBox = crop.NormBox{CX: 0.492943, CY: 0.472937, W: 0.849016, H: 0.492458}
)

// DefaultConfig returns a default pipeline config with component defaults.
func DefaultConfig() Config {
	return Config{
		Normalize: normalize.DefaultConfig(),
		Models: detect.ModelsConfig{
			PhotoWindow:     detect.DefaultPhotoWindow,
			PhotoConfidence: 0.5,
		},
		Recognizer: recognizer.Config{
			Backend:   "whisperer",
			Whisperer: recognizer.DefaultWhispererConfig(),
			Languages: []string{"eng"},
		},
		BoardFloor:     detect.DefaultBoardFloor,
		ClipValues:     append([]float64(nil), detect.DefaultClipValues...),
		Tables:         detect.DefaultThresholds(),
		InfoMargin:     0.15,
		MarksMargin:    0.10,
		FixedMargin:    0.02,
		FixedInfoBox:   DefaultFixedInfoBox,
		FixedMarksBox:  DefaultFixedMarksBox,
		OutputDir:      "output",
		Annotate:       true,
		ValidateSchema: true,
	}
}

// Validate checks the configuration for values the stages cannot use.
func (c Config) Validate() error {
	if err := c.Normalize.Validate(); err != nil {
		return fmt.Errorf("normalize: %w", err)
	}
	if c.BoardFloor < 0 || c.BoardFloor > 1 {
		return fmt.Errorf("board floor must be in [0,1], got %f", c.BoardFloor)
	}
	if len(c.ClipValues) == 0 {
		return errors.New("at least one clip value is required")
	}
	for label, v := range c.Tables {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s table threshold must be in [0,1], got %f", label, v)
		}
	}
	for name, m := range map[string]float64{"info": c.InfoMargin, "marks": c.MarksMargin, "fixed": c.FixedMargin} {
		if m < 0 || m > 0.5 {
			return fmt.Errorf("%s margin must be in [0,0.5], got %f", name, m)
		}
	}
	if err := c.FixedInfoBox.Validate(); err != nil {
		return fmt.Errorf("fixed info box: %w", err)
	}
	if err := c.FixedMarksBox.Validate(); err != nil {
		return fmt.Errorf("fixed marks box: %w", err)
	}
	return nil
}

// Builder constructs a Pipeline with fluent configuration.
type Builder struct {
	cfg  Config
	caps *detect.Capabilities
	rec  recognizer.Recognizer
}

// NewBuilder creates a new pipeline builder with defaults.
func NewBuilder() *Builder { return &Builder{cfg: DefaultConfig()} }

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.cfg = cfg
	return b
}

// WithModels sets the detection model paths.
func (b *Builder) WithModels(board, photo, tables string) *Builder {
	b.cfg.Models.BoardModel = board
	b.cfg.Models.PhotoModel = photo
	b.cfg.Models.TableModel = tables
	return b
}

// WithThreads sets onnx intra-op threads (if >0).
func (b *Builder) WithThreads(n int) *Builder {
	if n > 0 {
		b.cfg.Models.Runtime.NumThreads = n
	}
	return b
}

// WithGPU enables GPU execution for the detection models.
func (b *Builder) WithGPU(enabled bool) *Builder {
	b.cfg.Models.Runtime.UseGPU = enabled
	return b
}

// WithBoardFloor sets the board classifier confidence floor.
func (b *Builder) WithBoardFloor(floor float64) *Builder {
	b.cfg.BoardFloor = floor
	return b
}

// WithClipValues sets the CLAHE clip values tried by the board sweep.
func (b *Builder) WithClipValues(clips []float64) *Builder {
	if len(clips) > 0 {
		b.cfg.ClipValues = append([]float64(nil), clips...)
	}
	return b
}

// WithTableThresholds sets the per-label table confidence floors.
func (b *Builder) WithTableThresholds(info, marks float64) *Builder {
	b.cfg.Tables = detect.Thresholds{detect.LabelInfo: info, detect.LabelMarks: marks}
	return b
}

// WithMargins sets the crop padding for the info and marks tables.
func (b *Builder) WithMargins(info, marks float64) *Builder {
	b.cfg.InfoMargin = info
	b.cfg.MarksMargin = marks
	return b
}

// WithRecognizer selects the recognizer backend configuration.
func (b *Builder) WithRecognizer(cfg recognizer.Config) *Builder {
	b.cfg.Recognizer = cfg
	return b
}

// WithOutputDir sets the artifact root. An empty dir disables persistence.
func (b *Builder) WithOutputDir(dir string) *Builder {
	b.cfg.OutputDir = dir
	return b
}

// WithAnnotate toggles the annotated preview.
func (b *Builder) WithAnnotate(enabled bool) *Builder {
	b.cfg.Annotate = enabled
	return b
}

// WithSchemaValidation toggles validation of written JSON artifacts.
func (b *Builder) WithSchemaValidation(enabled bool) *Builder {
	b.cfg.ValidateSchema = enabled
	return b
}

// WithCapabilities injects detection backends instead of loading models.
func (b *Builder) WithCapabilities(caps *detect.Capabilities) *Builder {
	b.caps = caps
	return b
}

// WithRecognizerInstance injects a recognizer instead of building one.
func (b *Builder) WithRecognizerInstance(r recognizer.Recognizer) *Builder {
	b.rec = r
	return b
}

// Config returns a copy of the current config.
func (b *Builder) Config() Config { return b.cfg }

// Validate checks the configuration.
func (b *Builder) Validate() error { return b.cfg.Validate() }

// Pipeline sequences normalization, detection, recognition and extraction.
// It is safe for concurrent use once built.
type Pipeline struct {
	cfg        Config
	normalizer *normalize.Normalizer
	caps       *detect.Capabilities
	recognizer recognizer.Recognizer
	store      *Store
	ownsCaps   bool
}

// Build initializes the pipeline components. Missing models or credentials
// degrade the affected capability; they never fail the build.
func (b *Builder) Build() (*Pipeline, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	norm, err := normalize.New(b.cfg.Normalize)
	if err != nil {
		return nil, fmt.Errorf("init normalizer: %w", err)
	}
	p := &Pipeline{cfg: b.cfg, normalizer: norm, store: NewStore(b.cfg.OutputDir)}

	p.caps = b.caps
	if p.caps == nil {
		p.caps = detect.Load(b.cfg.Models)
		p.ownsCaps = true
	}
	fillUnavailable(p.caps)

	p.recognizer = b.rec
	if p.recognizer == nil {
		p.recognizer = recognizer.New(b.cfg.Recognizer)
	}
	return p, nil
}

func fillUnavailable(c *detect.Capabilities) {
	if c.Board == nil {
		c.Board = detect.Unavailable{Name: "board classifier"}
	}
	if c.Photo == nil {
		c.Photo = detect.Unavailable{Name: "photo detector"}
	}
	if c.Tables == nil {
		c.Tables = detect.Unavailable{Name: "table locator"}
	}
}

// Close releases model sessions loaded by Build.
func (p *Pipeline) Close() error {
	if p.caps != nil && p.ownsCaps {
		return p.caps.Close()
	}
	return nil
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// Store returns the artifact store.
func (p *Pipeline) Store() *Store { return p.store }

// Status reports which capabilities are available.
func (p *Pipeline) Status() map[string]bool {
	s := p.caps.Status()
	s["text_recognizer"] = recognizer.Available(p.recognizer)
	return s
}
