package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "marksheet"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "MARKSHEET"

	// LegacyAPIKeyEnv is consulted when no recognizer API key is configured.
	LegacyAPIKeyEnv = "UNSTRANCT_API_KEY"
)

// Loader handles loading configuration from various sources.
type Loader struct {
	v *viper.Viper
	// DotEnv is the dotenv file read before environment variables. Missing
	// files are ignored.
	DotEnv string
}

// NewLoader creates a loader on the global viper instance so that cobra
// flag bindings apply.
func NewLoader() *Loader {
	return NewLoaderWith(viper.GetViper())
}

// NewLoaderWith creates a loader on v.
func NewLoaderWith(v *viper.Viper) *Loader {
	return &Loader{v: v, DotEnv: ".env"}
}

// Load loads configuration from the first config file found in the search
// paths, the environment and defaults, then validates it.
func (l *Loader) Load() (*Config, error) {
	return l.LoadWithFile("")
}

// LoadWithFile loads configuration from configFile, or from the search
// paths when configFile is empty.
func (l *Loader) LoadWithFile(configFile string) (*Config, error) {
	cfg, err := l.LoadWithoutValidation(configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadWithoutValidation is LoadWithFile without the validation step.
func (l *Loader) LoadWithoutValidation(configFile string) (*Config, error) {
	l.loadDotEnv()
	l.setupEnvironmentVariables()
	l.setDefaults()

	if configFile != "" {
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file does not exist: %s", configFile)
		}
		l.v.SetConfigFile(configFile)
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
	} else {
		l.v.SetConfigName(ConfigFileName)
		l.v.SetConfigType("yaml")
		l.addConfigPaths()
		if err := l.v.ReadInConfig(); err != nil {
			// A missing config file is fine; defaults and env vars apply.
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	return l.unmarshal()
}

func (l *Loader) unmarshal() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if cfg.Pipeline.Recognizer.APIKey == "" {
		cfg.Pipeline.Recognizer.APIKey = os.Getenv(LegacyAPIKeyEnv)
	}
	return &cfg, nil
}

// Resolve re-reads the effective configuration, picking up flags bound
// after the initial load.
func (l *Loader) Resolve() (*Config, error) {
	return l.unmarshal()
}

// GetConfigFileUsed returns the path of the config file used.
func (l *Loader) GetConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// GetViper returns the underlying viper instance for flag binding.
func (l *Loader) GetViper() *viper.Viper {
	return l.v
}

func (l *Loader) loadDotEnv() {
	if l.DotEnv == "" {
		return
	}
	// godotenv never overrides variables that are already set.
	_ = godotenv.Load(l.DotEnv)
}

// addConfigPaths adds the standard configuration search paths.
func (l *Loader) addConfigPaths() {
	for _, p := range GetConfigSearchPaths() {
		l.v.AddConfigPath(p)
	}
}

// setupEnvironmentVariables configures environment variable handling.
func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// setDefaults registers every default so that AutomaticEnv can resolve
// nested keys.
func (l *Loader) setDefaults() {
	d := DefaultConfig()

	l.v.SetDefault("log_level", d.LogLevel)
	l.v.SetDefault("verbose", d.Verbose)

	m := d.Pipeline.Models
	l.v.SetDefault("pipeline.models.dir", m.Dir)
	l.v.SetDefault("pipeline.models.board_classifier", m.BoardClassifier)
	l.v.SetDefault("pipeline.models.photo_detector", m.PhotoDetector)
	l.v.SetDefault("pipeline.models.table_locator", m.TableLocator)
	l.v.SetDefault("pipeline.models.input_size", m.InputSize)
	l.v.SetDefault("pipeline.models.onnx_library", m.OnnxLibrary)
	l.v.SetDefault("pipeline.models.num_threads", m.NumThreads)
	l.v.SetDefault("pipeline.models.gpu", m.GPU)
	l.v.SetDefault("pipeline.models.gpu_device", m.GPUDevice)

	t := d.Pipeline.Thresholds
	l.v.SetDefault("pipeline.thresholds.board_confidence", t.BoardConfidence)
	l.v.SetDefault("pipeline.thresholds.board_clip_values", t.BoardClipValues)
	l.v.SetDefault("pipeline.thresholds.info_table", t.InfoTable)
	l.v.SetDefault("pipeline.thresholds.marks_table", t.MarksTable)
	l.v.SetDefault("pipeline.thresholds.photo_confidence", t.PhotoConfidence)
	l.v.SetDefault("pipeline.thresholds.photo_window", t.PhotoWindow)

	l.v.SetDefault("pipeline.crop.info_margin", d.Pipeline.Crop.InfoMargin)
	l.v.SetDefault("pipeline.crop.marks_margin", d.Pipeline.Crop.MarksMargin)
	l.v.SetDefault("pipeline.crop.fixed_margin", d.Pipeline.Crop.FixedMargin)

	n := d.Pipeline.Normalize
	l.v.SetDefault("pipeline.normalize.pad_ratio", n.PadRatio)
	l.v.SetDefault("pipeline.normalize.clahe_clip", n.CLAHEClip)
	l.v.SetDefault("pipeline.normalize.clahe_tiles", n.CLAHETiles)
	l.v.SetDefault("pipeline.normalize.saturation", n.Saturation)

	r := d.Pipeline.Recognizer
	l.v.SetDefault("pipeline.recognizer.backend", r.Backend)
	l.v.SetDefault("pipeline.recognizer.base_url", r.BaseURL)
	l.v.SetDefault("pipeline.recognizer.api_key", r.APIKey)
	l.v.SetDefault("pipeline.recognizer.poll_interval", r.PollInterval)
	l.v.SetDefault("pipeline.recognizer.max_poll_interval", r.MaxPollInterval)
	l.v.SetDefault("pipeline.recognizer.timeout", r.Timeout)
	l.v.SetDefault("pipeline.recognizer.languages", r.Languages)

	for name, b := range map[string]BoxConfig{"info": d.Pipeline.FixedGeometry.Info, "marks": d.Pipeline.FixedGeometry.Marks} {
		prefix := "pipeline.fixed_geometry." + name + "."
		l.v.SetDefault(prefix+"cx", b.CX)
		l.v.SetDefault(prefix+"cy", b.CY)
		l.v.SetDefault(prefix+"w", b.W)
		l.v.SetDefault(prefix+"h", b.H)
	}

	l.v.SetDefault("output.dir", d.Output.Dir)
	l.v.SetDefault("output.annotate", d.Output.Annotate)
	l.v.SetDefault("output.validate_schema", d.Output.ValidateSchema)

	l.v.SetDefault("batch.workers", d.Batch.Workers)
	l.v.SetDefault("batch.recursive", d.Batch.Recursive)
	l.v.SetDefault("batch.include", d.Batch.Include)
	l.v.SetDefault("batch.exclude", d.Batch.Exclude)
	l.v.SetDefault("batch.format", d.Batch.Format)

	s := d.Server
	l.v.SetDefault("server.host", s.Host)
	l.v.SetDefault("server.port", s.Port)
	l.v.SetDefault("server.cors_origin", s.CORSOrigin)
	l.v.SetDefault("server.max_upload_mb", s.MaxUploadMB)
	l.v.SetDefault("server.timeout_sec", s.TimeoutSec)
	l.v.SetDefault("server.shutdown_timeout", s.ShutdownTimeout)
	l.v.SetDefault("server.upload_dir", s.UploadDir)
	l.v.SetDefault("server.keep_uploads", s.KeepUploads)
	l.v.SetDefault("server.rate_limit.enabled", s.RateLimit.Enabled)
	l.v.SetDefault("server.rate_limit.requests_per_minute", s.RateLimit.RequestsPerMinute)
	l.v.SetDefault("server.rate_limit.requests_per_hour", s.RateLimit.RequestsPerHour)
	l.v.SetDefault("server.rate_limit.max_requests_per_day", s.RateLimit.MaxRequestsPerDay)
	l.v.SetDefault("server.rate_limit.max_data_per_day", s.RateLimit.MaxDataPerDay)
}

// GetConfigSearchPaths returns the paths where configuration files are searched.
func GetConfigSearchPaths() []string {
	paths := []string{"."}

	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists && configDir != "" {
		paths = append(paths, filepath.Join(configDir, "marksheet"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "marksheet"))
	}

	return append(paths, "/etc/marksheet")
}

// Marshal renders cfg as YAML. The API key is redacted.
func Marshal(cfg Config) ([]byte, error) {
	if cfg.Pipeline.Recognizer.APIKey != "" {
		cfg.Pipeline.Recognizer.APIKey = "<redacted>"
	}
	return yaml.Marshal(cfg)
}

// GenerateDefaultConfigFile writes the default configuration as YAML. It
// refuses to replace an existing file unless force is set.
func GenerateDefaultConfigFile(filename string, force bool) error {
	if filename == "" {
		filename = ConfigFileName + ".yaml"
	}
	if !force {
		if _, err := os.Stat(filename); err == nil {
			return fmt.Errorf("config file already exists: %s", filename)
		}
	}

	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to encode default config: %w", err)
	}
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(filename, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
