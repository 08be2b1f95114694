package cmd

import (
	"testing"

	"github.com/MeKo-Tech/marksheet/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerConfigFromFlags(t *testing.T) {
	ResetFlags()
	t.Cleanup(ResetFlags)

	base := config.DefaultConfig()
	sc, shutdown := serverConfigFromFlags(serveCmd, base.ToServerConfig(), base.Server.ShutdownTimeout)
	assert.Equal(t, "localhost", sc.Host)
	assert.Equal(t, 8080, sc.Port)
	assert.Equal(t, 10, shutdown)
	assert.False(t, sc.RateLimit.Enabled)

	f := serveCmd.Flags()
	require.NoError(t, f.Set("host", "0.0.0.0"))
	require.NoError(t, f.Set("port", "9000"))
	require.NoError(t, f.Set("max-upload-size", "5"))
	require.NoError(t, f.Set("shutdown-timeout", "3"))
	require.NoError(t, f.Set("keep-uploads", "true"))
	require.NoError(t, f.Set("rate-limit-enabled", "true"))
	require.NoError(t, f.Set("requests-per-minute", "7"))

	sc, shutdown = serverConfigFromFlags(serveCmd, base.ToServerConfig(), base.Server.ShutdownTimeout)
	assert.Equal(t, "0.0.0.0", sc.Host)
	assert.Equal(t, 9000, sc.Port)
	assert.Equal(t, int64(5), sc.MaxUploadMB)
	assert.Equal(t, 3, shutdown)
	assert.True(t, sc.KeepUploads)
	assert.True(t, sc.RateLimit.Enabled)
	assert.Equal(t, 7, sc.RateLimit.RequestsPerMinute)
	assert.Equal(t, base.Server.RateLimit.RequestsPerHour, sc.RateLimit.RequestsPerHour)
}

func TestServeCommandInvalidPort(t *testing.T) {
	_, _, err := executeCommand(t, "serve", "--port", "70000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid port number")
}
