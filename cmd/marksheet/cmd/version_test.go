package cmd

import (
	"encoding/json"
	"testing"

	"github.com/MeKo-Tech/marksheet/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	out, _, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "marksheet version "+version.Version)
	assert.Contains(t, out, "Commit: ")
}

func TestVersionCommandJSON(t *testing.T) {
	out, _, err := executeCommand(t, "version", "--json")
	require.NoError(t, err)

	var info version.BuildInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, version.Version, info.Version)
	assert.NotEmpty(t, info.GoVersion)
}
