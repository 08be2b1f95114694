package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "marksheet.yaml")

	out, _, err := executeCommand(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration written to "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "board_clip_values:")
	assert.Contains(t, string(data), "fixed_geometry:")

	_, _, err = executeCommand(t, "config", "init", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, _, err = executeCommand(t, "config", "init", path, "--force")
	require.NoError(t, err)
}

func TestConfigShow(t *testing.T) {
	t.Setenv("MARKSHEET_PIPELINE_RECOGNIZER_API_KEY", "secret-key")

	out, _, err := executeCommand(t, "config", "show", "--backend", "tesseract")
	require.NoError(t, err)
	assert.Contains(t, out, "log_level: info")
	assert.Contains(t, out, "backend: tesseract")
	assert.Contains(t, out, "<redacted>")
	assert.NotContains(t, out, "secret-key")
}

func TestConfigShowInvalidBackend(t *testing.T) {
	_, _, err := executeCommand(t, "config", "show", "--backend", "carrier-pigeon")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend")
}

func TestConfigPaths(t *testing.T) {
	out, _, err := executeCommand(t, "config", "paths")
	require.NoError(t, err)
	assert.Contains(t, out, "/etc/marksheet")
}
