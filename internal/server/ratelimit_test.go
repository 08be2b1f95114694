package server

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock returns a settable time source.
func fakeClock(start time.Time) (func() time.Time, func(time.Duration)) {
	now := start
	return func() time.Time { return now }, func(d time.Duration) { now = now.Add(d) }
}

func TestNewRateLimiter(t *testing.T) {
	rl := NewRateLimiter(10, 100, 1000, 1024*1024)

	assert.NotNil(t, rl)
	assert.Equal(t, 10, rl.requestsPerMinute)
	assert.Equal(t, 100, rl.requestsPerHour)
	assert.Equal(t, 1000, rl.maxRequestsPerDay)
	assert.Equal(t, int64(1024*1024), rl.maxDataPerDay)
	assert.NotNil(t, rl.clients)
}

func TestRateLimiter_NoLimits(t *testing.T) {
	rl := NewRateLimiter(0, 0, 0, 0)

	for range 50 {
		require.NoError(t, rl.CheckRateLimit("client", 100))
	}
	usage := rl.GetUsage("client")
	assert.Equal(t, 50, usage.RequestsToday)
	assert.Equal(t, int64(5000), usage.DataToday)
}

func TestRateLimiter_PerMinute(t *testing.T) {
	rl := NewRateLimiter(2, 0, 0, 0)
	now, advance := fakeClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	rl.now = now

	require.NoError(t, rl.CheckRateLimit("client", 0))
	advance(20 * time.Second)
	require.NoError(t, rl.CheckRateLimit("client", 0))

	err := rl.CheckRateLimit("client", 0)
	var rle *RateLimitError
	require.True(t, errors.As(err, &rle))
	assert.Equal(t, "minute", rle.Type)
	assert.Equal(t, 2, rle.Limit)
	assert.Equal(t, 40*time.Second, rle.RetryAfter)

	// A rejected request is not counted.
	assert.Equal(t, 2, rl.GetUsage("client").RequestsLastMinute)

	// Other clients have their own windows.
	require.NoError(t, rl.CheckRateLimit("other", 0))

	// Steady traffic does not keep the window open.
	advance(40 * time.Second)
	require.NoError(t, rl.CheckRateLimit("client", 0))
	assert.Equal(t, 1, rl.GetUsage("client").RequestsLastMinute)
}

func TestRateLimiter_PerHour(t *testing.T) {
	rl := NewRateLimiter(0, 3, 0, 0)
	now, advance := fakeClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	rl.now = now

	for range 3 {
		require.NoError(t, rl.CheckRateLimit("client", 0))
		advance(10 * time.Minute)
	}
	err := rl.CheckRateLimit("client", 0)
	var rle *RateLimitError
	require.True(t, errors.As(err, &rle))
	assert.Equal(t, "hour", rle.Type)
	assert.Equal(t, 30*time.Minute, rle.RetryAfter)

	advance(30 * time.Minute)
	assert.NoError(t, rl.CheckRateLimit("client", 0))
}

func TestRateLimiter_DailyQuotas(t *testing.T) {
	rl := NewRateLimiter(0, 0, 2, 1000)
	now, advance := fakeClock(time.Date(2026, 3, 1, 22, 0, 0, 0, time.UTC))
	rl.now = now

	require.NoError(t, rl.CheckRateLimit("client", 600))

	err := rl.CheckRateLimit("client", 600)
	var qe *QuotaExceededError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, "data", qe.Type)
	assert.Equal(t, int64(600), qe.Used)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), qe.Resets)

	require.NoError(t, rl.CheckRateLimit("client", 100))
	err = rl.CheckRateLimit("client", 0)
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, "requests", qe.Type)
	assert.Equal(t, int64(2), qe.Limit)

	advance(3 * time.Hour)
	require.NoError(t, rl.CheckRateLimit("client", 900))
	assert.Equal(t, int64(900), rl.GetUsage("client").DataToday)
}

func TestRateLimiter_GetUsageUnknownClient(t *testing.T) {
	rl := NewRateLimiter(1, 1, 1, 1)
	assert.Equal(t, Usage{}, rl.GetUsage("nobody"))
}

func TestRateLimitErrors(t *testing.T) {
	rle := &RateLimitError{Type: "minute", Limit: 5, RetryAfter: 30 * time.Second}
	assert.Equal(t, "rate limit exceeded for minute (limit: 5, retry after: 30s)", rle.Error())

	qe := &QuotaExceededError{Type: "data", Limit: 10, Used: 8, Resets: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)}
	assert.Equal(t, "quota exceeded for data (used: 8, limit: 10, resets: 2026-03-02T00:00:00Z)", qe.Error())
}
