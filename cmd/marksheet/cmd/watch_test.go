package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/marksheet/internal/config"
	"github.com/MeKo-Tech/marksheet/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchCommandErrors(t *testing.T) {
	file := filepath.Join(t.TempDir(), "scan.png")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	_, _, err := executeCommand(t, "watch", file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")

	_, _, err = executeCommand(t, "watch", t.TempDir(), "--mode", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid mode")
}

func TestWatchHandler(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Pipeline.Recognizer.Backend = "none"
	cfg.Output.Dir = ""
	p, err := buildPipeline(&cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	dir := t.TempDir()
	scan := writeScan(t, dir, "scan.png")
	broken := filepath.Join(dir, "broken.png")
	require.NoError(t, os.WriteFile(broken, []byte("nope"), 0o600))

	for _, mode := range []string{pipeline.ModeSchool, pipeline.ModeCollege} {
		h := watchHandler(p, mode, "")
		assert.NoError(t, h(context.Background(), scan), mode)
		assert.Error(t, h(context.Background(), broken), mode)
	}
}
