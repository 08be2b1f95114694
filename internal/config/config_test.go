package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MeKo-Tech/marksheet/internal/detect"
	"github.com/MeKo-Tech/marksheet/internal/pipeline"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config is invalid: %v", err)
	}
	if cfg.Pipeline.Thresholds.BoardConfidence != 0.25 {
		t.Errorf("board confidence = %v, want 0.25", cfg.Pipeline.Thresholds.BoardConfidence)
	}
	if got := len(cfg.Pipeline.Thresholds.BoardClipValues); got != 5 {
		t.Errorf("clip values = %d, want 5", got)
	}
	if cfg.Pipeline.Thresholds.MarksTable != 0.8 || cfg.Pipeline.Thresholds.InfoTable != 0.5 {
		t.Errorf("table floors = %v/%v", cfg.Pipeline.Thresholds.InfoTable, cfg.Pipeline.Thresholds.MarksTable)
	}
	if cfg.Server.Port != 8080 || cfg.Server.MaxUploadMB != 20 {
		t.Errorf("server defaults = %d/%d", cfg.Server.Port, cfg.Server.MaxUploadMB)
	}
	if cfg.Output.Dir != "output" || !cfg.Output.Annotate || !cfg.Output.ValidateSchema {
		t.Errorf("output defaults = %+v", cfg.Output)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"log level", func(c *Config) { c.LogLevel = "loud" }, "invalid log level"},
		{"board floor", func(c *Config) { c.Pipeline.Thresholds.BoardConfidence = 1.5 }, "board_confidence"},
		{"marks floor", func(c *Config) { c.Pipeline.Thresholds.MarksTable = -0.1 }, "marks_table"},
		{"no clips", func(c *Config) { c.Pipeline.Thresholds.BoardClipValues = nil }, "board_clip_values"},
		{"margin", func(c *Config) { c.Pipeline.Crop.InfoMargin = 0.6 }, "info_margin"},
		{"backend", func(c *Config) { c.Pipeline.Recognizer.Backend = "cloud" }, "invalid recognizer backend"},
		{"workers", func(c *Config) { c.Batch.Workers = 0 }, "batch workers"},
		{"port", func(c *Config) { c.Server.Port = 70000 }, "invalid port"},
		{"upload", func(c *Config) { c.Server.MaxUploadMB = 0 }, "max_upload_mb"},
		{"fixed box", func(c *Config) { c.Pipeline.FixedGeometry.Info.W = 1.5 }, "pipeline"},
		{"normalize", func(c *Config) { c.Pipeline.Normalize.CLAHETiles = 0 }, "pipeline"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestToPipelineConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Pipeline.Models.BoardClassifier = "models/board.onnx"
	cfg.Pipeline.Models.NumThreads = 4
	cfg.Pipeline.Thresholds.MarksTable = 0.7
	cfg.Pipeline.Recognizer.APIKey = "secret"
	cfg.Pipeline.Recognizer.Backend = "none"
	cfg.Output.Dir = ""

	p := cfg.ToPipelineConfig()
	if p.Models.BoardModel != "models/board.onnx" || p.Models.Runtime.NumThreads != 4 {
		t.Errorf("models = %+v", p.Models)
	}
	if p.Tables[detect.LabelMarks] != 0.7 || p.Tables[detect.LabelInfo] != 0.5 {
		t.Errorf("tables = %v", p.Tables)
	}
	if p.Recognizer.Whisperer.APIKey != "secret" || p.Recognizer.Backend != "none" {
		t.Errorf("recognizer = %+v", p.Recognizer)
	}
	if p.FixedInfoBox != pipeline.DefaultFixedInfoBox || p.FixedMarksBox != pipeline.DefaultFixedMarksBox {
		t.Errorf("fixed boxes = %+v %+v", p.FixedInfoBox, p.FixedMarksBox)
	}
	if p.OutputDir != "" {
		t.Errorf("output dir = %q", p.OutputDir)
	}
	if err := p.Validate(); err != nil {
		t.Errorf("pipeline config invalid: %v", err)
	}
}

func TestToServerAndBatchConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.RateLimit.Enabled = true
	cfg.Server.KeepUploads = true
	cfg.Batch.Workers = 3
	cfg.Batch.Include = []string{"*.jpg"}

	s := cfg.ToServerConfig()
	if !s.RateLimit.Enabled || s.MaxUploadMB != 20 || !s.KeepUploads {
		t.Errorf("server config = %+v", s)
	}

	b := cfg.ToBatchConfig()
	if b.Workers != 3 || len(b.IncludePatterns) != 1 || b.Mode != pipeline.ModeSchool {
		t.Errorf("batch config = %+v", b)
	}
}

func TestToPipelineConfigModelsDir(t *testing.T) {
	t.Setenv("MARKSHEET_MODELS_DIR", "")
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "table_locator.onnx"), []byte("onnx"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	cfg.Pipeline.Models.Dir = dir
	cfg.Pipeline.Models.PhotoDetector = "/explicit/photo.onnx"

	p := cfg.ToPipelineConfig()
	if want := filepath.Join(dir, "table_locator.onnx"); p.Models.TableModel != want {
		t.Errorf("table model = %q, want %q", p.Models.TableModel, want)
	}
	if p.Models.PhotoModel != "/explicit/photo.onnx" {
		t.Errorf("photo model = %q", p.Models.PhotoModel)
	}
	if p.Models.BoardModel != "" {
		t.Errorf("board model = %q, want empty for a missing file", p.Models.BoardModel)
	}
}
