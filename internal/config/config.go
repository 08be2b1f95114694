package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/MeKo-Tech/marksheet/internal/batch"
	"github.com/MeKo-Tech/marksheet/internal/crop"
	"github.com/MeKo-Tech/marksheet/internal/detect"
	"github.com/MeKo-Tech/marksheet/internal/models"
	"github.com/MeKo-Tech/marksheet/internal/onnx"
	"github.com/MeKo-Tech/marksheet/internal/pipeline"
	"github.com/MeKo-Tech/marksheet/internal/recognizer"
	"github.com/MeKo-Tech/marksheet/internal/server"
)

// Backends lists the recognizer backend names accepted in configuration.
var Backends = []string{"whisperer", "tesseract", "none"}

// LogLevels lists the accepted log levels.
var LogLevels = []string{"debug", "info", "warn", "error"}

// DefaultConfig returns the configuration used when nothing else is set.
func DefaultConfig() Config {
	p := pipeline.DefaultConfig()
	w := recognizer.DefaultWhispererConfig()

	return Config{
		LogLevel: "info",
		Pipeline: PipelineConfig{
			Thresholds: ThresholdsConfig{
				BoardConfidence: p.BoardFloor,
				BoardClipValues: slices.Clone(p.ClipValues),
				InfoTable:       p.Tables[detect.LabelInfo],
				MarksTable:      p.Tables[detect.LabelMarks],
				PhotoConfidence: p.Models.PhotoConfidence,
				PhotoWindow:     p.Models.PhotoWindow,
			},
			Crop: CropConfig{
				InfoMargin:  p.InfoMargin,
				MarksMargin: p.MarksMargin,
				FixedMargin: p.FixedMargin,
			},
			Normalize: NormalizeConfig{
				PadRatio:   p.Normalize.PadRatio,
				CLAHEClip:  p.Normalize.CLAHEClip,
				CLAHETiles: p.Normalize.CLAHETiles,
				Saturation: p.Normalize.SaturationGain,
			},
			Recognizer: RecognizerConfig{
				Backend:         p.Recognizer.Backend,
				BaseURL:         w.BaseURL,
				PollInterval:    w.PollInterval,
				MaxPollInterval: w.MaxPollInterval,
				Timeout:         w.Timeout,
				Languages:       slices.Clone(p.Recognizer.Languages),
			},
			FixedGeometry: FixedGeometryConfig{
				Info:  boxConfig(p.FixedInfoBox),
				Marks: boxConfig(p.FixedMarksBox),
			},
		},
		Output: OutputConfig{
			Dir:            p.OutputDir,
			Annotate:       p.Annotate,
			ValidateSchema: p.ValidateSchema,
		},
		Batch: BatchConfig{
			Workers: 1,
			Format:  "text",
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     20,
			TimeoutSec:      360,
			ShutdownTimeout: 10,
			RateLimit: RateLimitConfig{
				RequestsPerMinute: 30,
				RequestsPerHour:   500,
				MaxRequestsPerDay: 2000,
				MaxDataPerDay:     500 * 1024 * 1024,
			},
		},
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if !slices.Contains(LogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level %q, must be one of %v", c.LogLevel, LogLevels)
	}

	t := c.Pipeline.Thresholds
	for name, v := range map[string]float64{
		"board_confidence": t.BoardConfidence,
		"info_table":       t.InfoTable,
		"marks_table":      t.MarksTable,
		"photo_confidence": t.PhotoConfidence,
		"photo_window":     t.PhotoWindow,
	} {
		if err := validateThreshold(v, name); err != nil {
			return err
		}
	}
	if len(t.BoardClipValues) == 0 {
		return errors.New("board_clip_values must contain at least one value")
	}

	m := c.Pipeline.Crop
	for name, v := range map[string]float64{
		"info_margin":  m.InfoMargin,
		"marks_margin": m.MarksMargin,
		"fixed_margin": m.FixedMargin,
	} {
		if v < 0 || v > 0.5 {
			return fmt.Errorf("%s must be between 0.0 and 0.5, got %f", name, v)
		}
	}

	if !slices.Contains(Backends, c.Pipeline.Recognizer.Backend) {
		return fmt.Errorf("invalid recognizer backend %q, must be one of %v", c.Pipeline.Recognizer.Backend, Backends)
	}
	if c.Pipeline.Models.NumThreads < 0 {
		return fmt.Errorf("num_threads must not be negative, got %d", c.Pipeline.Models.NumThreads)
	}
	if c.Batch.Workers < 1 {
		return fmt.Errorf("batch workers must be at least 1, got %d", c.Batch.Workers)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port number: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB < 1 {
		return fmt.Errorf("max_upload_mb must be at least 1, got %d", c.Server.MaxUploadMB)
	}

	// The remaining rules live with the pipeline itself.
	pc := c.ToPipelineConfig()
	if err := pc.Validate(); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	return nil
}

// ToPipelineConfig converts the configuration to a pipeline.Config.
func (c *Config) ToPipelineConfig() pipeline.Config {
	p := pipeline.DefaultConfig()
	pc := c.Pipeline

	p.Models = detect.ModelsConfig{
		BoardModel:      models.ResolveModelPath(pc.Models.Dir, pc.Models.BoardClassifier, models.BoardClassifier),
		PhotoModel:      models.ResolveModelPath(pc.Models.Dir, pc.Models.PhotoDetector, models.PhotoDetector),
		TableModel:      models.ResolveModelPath(pc.Models.Dir, pc.Models.TableLocator, models.TableLocator),
		InputSize:       pc.Models.InputSize,
		PhotoWindow:     pc.Thresholds.PhotoWindow,
		PhotoConfidence: pc.Thresholds.PhotoConfidence,
		Runtime: onnx.RuntimeConfig{
			LibraryPath: pc.Models.OnnxLibrary,
			UseGPU:      pc.Models.GPU,
			DeviceID:    pc.Models.GPUDevice,
			NumThreads:  pc.Models.NumThreads,
		},
	}

	p.BoardFloor = pc.Thresholds.BoardConfidence
	p.ClipValues = slices.Clone(pc.Thresholds.BoardClipValues)
	p.Tables = detect.Thresholds{
		detect.LabelInfo:  pc.Thresholds.InfoTable,
		detect.LabelMarks: pc.Thresholds.MarksTable,
	}

	p.InfoMargin = pc.Crop.InfoMargin
	p.MarksMargin = pc.Crop.MarksMargin
	p.FixedMargin = pc.Crop.FixedMargin
	p.FixedInfoBox = pc.FixedGeometry.Info.normBox()
	p.FixedMarksBox = pc.FixedGeometry.Marks.normBox()

	p.Normalize.PadRatio = pc.Normalize.PadRatio
	p.Normalize.CLAHEClip = pc.Normalize.CLAHEClip
	p.Normalize.CLAHETiles = pc.Normalize.CLAHETiles
	p.Normalize.SaturationGain = pc.Normalize.Saturation

	p.Recognizer = c.toRecognizerConfig()

	p.OutputDir = c.Output.Dir
	p.Annotate = c.Output.Annotate
	p.ValidateSchema = c.Output.ValidateSchema
	return p
}

func (c *Config) toRecognizerConfig() recognizer.Config {
	rc := c.Pipeline.Recognizer
	w := recognizer.DefaultWhispererConfig()
	if rc.BaseURL != "" {
		w.BaseURL = rc.BaseURL
	}
	w.APIKey = rc.APIKey
	if rc.PollInterval > 0 {
		w.PollInterval = rc.PollInterval
	}
	if rc.MaxPollInterval > 0 {
		w.MaxPollInterval = rc.MaxPollInterval
	}
	if rc.Timeout > 0 {
		w.Timeout = rc.Timeout
	}
	return recognizer.Config{
		Backend:   rc.Backend,
		Whisperer: w,
		Languages: slices.Clone(rc.Languages),
	}
}

// ToServerConfig converts the configuration to a server.Config.
func (c *Config) ToServerConfig() server.Config {
	s := c.Server
	return server.Config{
		Host:        s.Host,
		Port:        s.Port,
		CORSOrigin:  s.CORSOrigin,
		MaxUploadMB: int64(s.MaxUploadMB),
		TimeoutSec:  s.TimeoutSec,
		UploadDir:   s.UploadDir,
		KeepUploads: s.KeepUploads,
		RateLimit: server.RateLimitConfig{
			Enabled:           s.RateLimit.Enabled,
			RequestsPerMinute: s.RateLimit.RequestsPerMinute,
			RequestsPerHour:   s.RateLimit.RequestsPerHour,
			MaxRequestsPerDay: s.RateLimit.MaxRequestsPerDay,
			MaxDataPerDay:     s.RateLimit.MaxDataPerDay,
		},
	}
}

// ToBatchConfig converts the configuration to a batch.Config.
func (c *Config) ToBatchConfig() batch.Config {
	b := batch.DefaultConfig()
	b.Workers = c.Batch.Workers
	b.Recursive = c.Batch.Recursive
	b.IncludePatterns = slices.Clone(c.Batch.Include)
	b.ExcludePatterns = slices.Clone(c.Batch.Exclude)
	if c.Batch.Format != "" {
		b.Format = c.Batch.Format
	}
	return b
}

func boxConfig(b crop.NormBox) BoxConfig {
	return BoxConfig{CX: b.CX, CY: b.CY, W: b.W, H: b.H}
}

func (b BoxConfig) normBox() crop.NormBox {
	return crop.NormBox{CX: b.CX, CY: b.CY, W: b.W, H: b.H}
}

// validateThreshold validates that a threshold value is between 0 and 1.
func validateThreshold(value float64, name string) error {
	if value < 0.0 || value > 1.0 {
		return fmt.Errorf("%s must be between 0.0 and 1.0, got %f", name, value)
	}
	return nil
}
