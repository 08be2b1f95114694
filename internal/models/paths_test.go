package models

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetModelsDir(t *testing.T) {
	tests := []struct {
		name           string
		explicitDir    string
		envVar         string
		expectedResult string
	}{
		{
			name:           "explicit directory takes precedence",
			explicitDir:    "/explicit/path",
			envVar:         "/env/path",
			expectedResult: "/explicit/path",
		},
		{
			name:           "environment variable used when no explicit dir",
			envVar:         "/env/path",
			expectedResult: "/env/path",
		},
		{
			name:           "nothing configured",
			expectedResult: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvModelsDir, tt.envVar)
			assert.Equal(t, tt.expectedResult, GetModelsDir(tt.explicitDir))
		})
	}
}

func TestResolveModelPath(t *testing.T) {
	t.Setenv(EnvModelsDir, "")
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, BoardClassifier), []byte("onnx"), 0o600))

	assert.Equal(t, "/custom/board.onnx", ResolveModelPath(dir, "/custom/board.onnx", BoardClassifier))
	assert.Equal(t, filepath.Join(dir, BoardClassifier), ResolveModelPath(dir, "", BoardClassifier))
	assert.Empty(t, ResolveModelPath(dir, "", PhotoDetector), "missing files are not resolved")
	assert.Empty(t, ResolveModelPath("", "", BoardClassifier), "no directory configured")
}

func TestValidateModelExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, TableLocator)
	require.Error(t, ValidateModelExists(path))
	require.Error(t, ValidateModelExists(dir))

	require.NoError(t, os.WriteFile(path, []byte("onnx"), 0o600))
	require.NoError(t, ValidateModelExists(path))
}

func TestDiscover(t *testing.T) {
	t.Setenv(EnvModelsDir, "")
	dir := t.TempDir()
	for _, name := range []string{PhotoDetector, TableLocator} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("onnx"), 0o600))
	}

	found := Discover(dir)
	require.Len(t, found, 2)
	assert.Equal(t, "photo_detector", found[0].Capability)
	assert.Equal(t, filepath.Join(dir, TableLocator), found[1].Path)
	assert.Empty(t, Discover(""))
}
