package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

func newTestLoader(t *testing.T) *Loader {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv(LegacyAPIKeyEnv, "")
	return NewLoaderWith(viper.New())
}

func TestLoadWithNoConfigFile(t *testing.T) {
	loader := newTestLoader(t)
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Pipeline.Recognizer.PollInterval != 5*time.Second {
		t.Errorf("poll interval = %v", cfg.Pipeline.Recognizer.PollInterval)
	}
	if loader.GetConfigFileUsed() != "" {
		t.Errorf("unexpected config file %q", loader.GetConfigFileUsed())
	}
}

func TestLoadFromSearchPath(t *testing.T) {
	loader := newTestLoader(t)
	content := "log_level: debug\n" +
		"pipeline:\n" +
		"  thresholds:\n" +
		"    marks_table: 0.7\n" +
		"    board_clip_values: [10, 12]\n" +
		"  recognizer:\n" +
		"    timeout: 90s\n" +
		"server:\n" +
		"  port: 9090\n"
	if err := os.WriteFile("marksheet.yaml", []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.LogLevel != "debug" || cfg.Server.Port != 9090 {
		t.Errorf("loaded %q/%d", cfg.LogLevel, cfg.Server.Port)
	}
	if cfg.Pipeline.Thresholds.MarksTable != 0.7 {
		t.Errorf("marks table = %v", cfg.Pipeline.Thresholds.MarksTable)
	}
	if got := cfg.Pipeline.Thresholds.BoardClipValues; len(got) != 2 || got[0] != 10 {
		t.Errorf("clip values = %v", got)
	}
	if cfg.Pipeline.Recognizer.Timeout != 90*time.Second {
		t.Errorf("timeout = %v", cfg.Pipeline.Recognizer.Timeout)
	}
	// Untouched sections keep their defaults.
	if cfg.Pipeline.Thresholds.InfoTable != 0.5 {
		t.Errorf("info table = %v", cfg.Pipeline.Thresholds.InfoTable)
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	loader := newTestLoader(t)
	t.Setenv("MARKSHEET_SERVER_PORT", "9191")
	t.Setenv("MARKSHEET_PIPELINE_RECOGNIZER_BACKEND", "none")

	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.Server.Port != 9191 {
		t.Errorf("port = %d, want 9191", cfg.Server.Port)
	}
	if cfg.Pipeline.Recognizer.Backend != "none" {
		t.Errorf("backend = %q", cfg.Pipeline.Recognizer.Backend)
	}
}

func TestLoadAPIKeySources(t *testing.T) {
	loader := newTestLoader(t)
	if err := os.WriteFile(".env", []byte(LegacyAPIKeyEnv+"=from-dotenv\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	// godotenv sets the variable for the rest of the process.
	t.Cleanup(func() { _ = os.Unsetenv(LegacyAPIKeyEnv) })
	_ = os.Unsetenv(LegacyAPIKeyEnv)

	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.Pipeline.Recognizer.APIKey != "from-dotenv" {
		t.Errorf("api key = %q, want value from .env", cfg.Pipeline.Recognizer.APIKey)
	}

	t.Setenv("MARKSHEET_PIPELINE_RECOGNIZER_API_KEY", "explicit")
	cfg, err = NewLoaderWith(viper.New()).Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.Pipeline.Recognizer.APIKey != "explicit" {
		t.Errorf("api key = %q, want explicit", cfg.Pipeline.Recognizer.APIKey)
	}
}

func TestLoadWithFile(t *testing.T) {
	loader := newTestLoader(t)
	if _, err := loader.LoadWithFile("missing.yaml"); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(path, []byte("batch:\n  workers: 0\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := NewLoaderWith(viper.New()).LoadWithFile(path)
	if err == nil || !strings.Contains(err.Error(), "batch workers") {
		t.Errorf("expected validation error, got %v", err)
	}

	cfg, err := NewLoaderWith(viper.New()).LoadWithoutValidation(path)
	if err != nil {
		t.Fatalf("LoadWithoutValidation() unexpected error: %v", err)
	}
	if cfg.Batch.Workers != 0 {
		t.Errorf("workers = %d", cfg.Batch.Workers)
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("server: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewLoaderWith(viper.New()).LoadWithFile(bad); err == nil {
		t.Error("expected parse error")
	}
}

func TestGenerateDefaultConfigFile(t *testing.T) {
	newTestLoader(t)
	path := filepath.Join("conf", "marksheet.yaml")
	if err := GenerateDefaultConfigFile(path, false); err != nil {
		t.Fatalf("GenerateDefaultConfigFile() error: %v", err)
	}
	if err := GenerateDefaultConfigFile(path, false); err == nil {
		t.Error("expected error when file exists")
	}
	if err := GenerateDefaultConfigFile(path, true); err != nil {
		t.Errorf("force overwrite failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		t.Fatalf("generated file is not YAML: %v", err)
	}
	if !strings.Contains(string(data), "poll_interval: 5s") {
		t.Errorf("durations should be written as strings:\n%s", data)
	}

	cfg, err := NewLoaderWith(viper.New()).LoadWithFile(path)
	if err != nil {
		t.Fatalf("generated file does not load: %v", err)
	}
	if cfg.Pipeline.Recognizer.Timeout != 5*time.Minute {
		t.Errorf("timeout = %v", cfg.Pipeline.Recognizer.Timeout)
	}
}

func TestMarshalRedactsAPIKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Pipeline.Recognizer.APIKey = "secret"
	out, err := Marshal(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(out), "secret") {
		t.Error("api key leaked")
	}
	if cfg.Pipeline.Recognizer.APIKey != "secret" {
		t.Error("Marshal mutated its argument")
	}
}

func TestGetConfigSearchPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	paths := GetConfigSearchPaths()
	if paths[0] != "." || paths[len(paths)-1] != "/etc/marksheet" {
		t.Errorf("paths = %v", paths)
	}
	found := false
	for _, p := range paths {
		if p == filepath.Join("/xdg", "marksheet") {
			found = true
		}
	}
	if !found {
		t.Errorf("xdg path missing from %v", paths)
	}
}
