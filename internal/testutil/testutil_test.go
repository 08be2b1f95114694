package testutil

import (
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetProjectRoot(t *testing.T) {
	root, err := GetProjectRoot()
	require.NoError(t, err)
	assert.True(t, FileExists(filepath.Join(root, "go.mod")))
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(CreateTempDir(t), "test", "nested", "dir")
	require.NoError(t, EnsureDir(dir))
	assert.True(t, DirExists(dir))
	assert.False(t, DirExists(filepath.Join(dir, "missing")))
	assert.False(t, FileExists("/non/existent/file"))
}

func TestTextFixtureWrite(t *testing.T) {
	dir := CreateTempDir(t)
	info, marks := CollegeFixture.Write(t, dir)
	assert.Equal(t, filepath.Join(dir, "college_info.txt"), info)
	assert.Equal(t, filepath.Join(dir, "college_marks.txt"), marks)
	assert.Equal(t, 2, CountFiles(t, dir))
}

func TestGenerateMarksheet(t *testing.T) {
	cfg := DefaultMarksheetConfig()
	img := GenerateMarksheet(cfg)
	assert.Equal(t, 600, img.Bounds().Dx())
	assert.Equal(t, 840, img.Bounds().Dy())

	// Corner is backdrop, centre of the page margin is white paper.
	assert.Equal(t, color.NRGBA{70, 60, 50, 255}, img.NRGBAAt(2, 2))
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, img.NRGBAAt(300, 70))

	cfg.Landscape = true
	rotated := GenerateMarksheet(cfg)
	assert.Equal(t, 840, rotated.Bounds().Dx())
	assert.Equal(t, 600, rotated.Bounds().Dy())
}

func TestWriteMarksheetRoundTrip(t *testing.T) {
	dir := CreateTempDir(t)
	path := WriteMarksheet(t, dir, "page.png", DefaultMarksheetConfig())
	img := LoadImage(t, path)
	assert.Equal(t, 600, img.Bounds().Dx())
}

func TestSplitLines(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitLines("a\n\nb\n"))
	assert.Nil(t, splitLines(""))
}
