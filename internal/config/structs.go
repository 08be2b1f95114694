//nolint:lll
package config

import "time"

// Config represents the complete configuration of the marksheet tool. It is
// shared by the process, batch, watch and serve commands and is loaded from
// configuration files, environment variables, and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline" json:"pipeline"`
	Output   OutputConfig   `mapstructure:"output" yaml:"output" json:"output"`
	Batch    BatchConfig    `mapstructure:"batch" yaml:"batch" json:"batch"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server" json:"server"`
}

// PipelineConfig contains the extraction pipeline settings.
type PipelineConfig struct {
	Models        ModelsConfig        `mapstructure:"models" yaml:"models" json:"models"`
	Thresholds    ThresholdsConfig    `mapstructure:"thresholds" yaml:"thresholds" json:"thresholds"`
	Crop          CropConfig          `mapstructure:"crop" yaml:"crop" json:"crop"`
	Normalize     NormalizeConfig     `mapstructure:"normalize" yaml:"normalize" json:"normalize"`
	Recognizer    RecognizerConfig    `mapstructure:"recognizer" yaml:"recognizer" json:"recognizer"`
	FixedGeometry FixedGeometryConfig `mapstructure:"fixed_geometry" yaml:"fixed_geometry" json:"fixed_geometry"`
}

// ModelsConfig locates the ONNX detection models. An empty path leaves the
// capability unavailable.
type ModelsConfig struct {
	Dir             string `mapstructure:"dir" yaml:"dir" json:"dir"`
	BoardClassifier string `mapstructure:"board_classifier" yaml:"board_classifier" json:"board_classifier"`
	PhotoDetector   string `mapstructure:"photo_detector" yaml:"photo_detector" json:"photo_detector"`
	TableLocator    string `mapstructure:"table_locator" yaml:"table_locator" json:"table_locator"`
	InputSize       int    `mapstructure:"input_size" yaml:"input_size" json:"input_size"`
	OnnxLibrary     string `mapstructure:"onnx_library" yaml:"onnx_library" json:"onnx_library"`
	NumThreads      int    `mapstructure:"num_threads" yaml:"num_threads" json:"num_threads"`
	GPU             bool   `mapstructure:"gpu" yaml:"gpu" json:"gpu"`
	GPUDevice       int    `mapstructure:"gpu_device" yaml:"gpu_device" json:"gpu_device"`
}

// ThresholdsConfig holds the empirically tuned confidence floors.
type ThresholdsConfig struct {
	BoardConfidence float64   `mapstructure:"board_confidence" yaml:"board_confidence" json:"board_confidence"`
	BoardClipValues []float64 `mapstructure:"board_clip_values" yaml:"board_clip_values" json:"board_clip_values"`
	InfoTable       float64   `mapstructure:"info_table" yaml:"info_table" json:"info_table"`
	MarksTable      float64   `mapstructure:"marks_table" yaml:"marks_table" json:"marks_table"`
	PhotoConfidence float64   `mapstructure:"photo_confidence" yaml:"photo_confidence" json:"photo_confidence"`
	PhotoWindow     float64   `mapstructure:"photo_window" yaml:"photo_window" json:"photo_window"`
}

// CropConfig holds the padding applied to table regions before recognition.
type CropConfig struct {
	InfoMargin  float64 `mapstructure:"info_margin" yaml:"info_margin" json:"info_margin"`
	MarksMargin float64 `mapstructure:"marks_margin" yaml:"marks_margin" json:"marks_margin"`
	FixedMargin float64 `mapstructure:"fixed_margin" yaml:"fixed_margin" json:"fixed_margin"`
}

// NormalizeConfig exposes the tunable parts of the region normalizer.
type NormalizeConfig struct {
	PadRatio   float64 `mapstructure:"pad_ratio" yaml:"pad_ratio" json:"pad_ratio"`
	CLAHEClip  float64 `mapstructure:"clahe_clip" yaml:"clahe_clip" json:"clahe_clip"`
	CLAHETiles int     `mapstructure:"clahe_tiles" yaml:"clahe_tiles" json:"clahe_tiles"`
	Saturation float64 `mapstructure:"saturation" yaml:"saturation" json:"saturation"`
}

// RecognizerConfig selects and configures the text recognizer backend.
type RecognizerConfig struct {
	Backend         string        `mapstructure:"backend" yaml:"backend" json:"backend"`
	BaseURL         string        `mapstructure:"base_url" yaml:"base_url" json:"base_url"`
	APIKey          string        `mapstructure:"api_key" yaml:"api_key" json:"-"`
	PollInterval    time.Duration `mapstructure:"poll_interval" yaml:"poll_interval" json:"poll_interval"`
	MaxPollInterval time.Duration `mapstructure:"max_poll_interval" yaml:"max_poll_interval" json:"max_poll_interval"`
	Timeout         time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
	Languages       []string      `mapstructure:"languages" yaml:"languages" json:"languages"`
}

// BoxConfig is a region in page-relative centre/size coordinates.
type BoxConfig struct {
	CX float64 `mapstructure:"cx" yaml:"cx" json:"cx"`
	CY float64 `mapstructure:"cy" yaml:"cy" json:"cy"`
	W  float64 `mapstructure:"w" yaml:"w" json:"w"`
	H  float64 `mapstructure:"h" yaml:"h" json:"h"`
}

// FixedGeometryConfig holds the college grade sheet layout.
type FixedGeometryConfig struct {
	Info  BoxConfig `mapstructure:"info" yaml:"info" json:"info"`
	Marks BoxConfig `mapstructure:"marks" yaml:"marks" json:"marks"`
}

// OutputConfig controls the persisted artifacts.
type OutputConfig struct {
	Dir            string `mapstructure:"dir" yaml:"dir" json:"dir"`
	Annotate       bool   `mapstructure:"annotate" yaml:"annotate" json:"annotate"`
	ValidateSchema bool   `mapstructure:"validate_schema" yaml:"validate_schema" json:"validate_schema"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	Workers   int      `mapstructure:"workers" yaml:"workers" json:"workers"`
	Recursive bool     `mapstructure:"recursive" yaml:"recursive" json:"recursive"`
	Include   []string `mapstructure:"include" yaml:"include" json:"include"`
	Exclude   []string `mapstructure:"exclude" yaml:"exclude" json:"exclude"`
	Format    string   `mapstructure:"format" yaml:"format" json:"format"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string          `mapstructure:"host" yaml:"host" json:"host"`
	Port            int             `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string          `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int             `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int             `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int             `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	UploadDir       string          `mapstructure:"upload_dir" yaml:"upload_dir" json:"upload_dir"`
	KeepUploads     bool            `mapstructure:"keep_uploads" yaml:"keep_uploads" json:"keep_uploads"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
}

// RateLimitConfig contains per-client request limits.
type RateLimitConfig struct {
	Enabled           bool  `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	RequestsPerMinute int   `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	RequestsPerHour   int   `mapstructure:"requests_per_hour" yaml:"requests_per_hour" json:"requests_per_hour"`
	MaxRequestsPerDay int   `mapstructure:"max_requests_per_day" yaml:"max_requests_per_day" json:"max_requests_per_day"`
	MaxDataPerDay     int64 `mapstructure:"max_data_per_day" yaml:"max_data_per_day" json:"max_data_per_day"`
}
