// Package support holds the godog step definitions of the CLI suite.
package support

import (
	"fmt"
	"net/http/httptest"
	"os"
	"strings"
	"time"
)

// TestContext holds the state of one scenario.
type TestContext struct {
	// Command execution state
	LastCommand  string
	LastOutput   string
	LastStderr   string
	LastError    error
	LastExitCode int
	LastDuration time.Duration

	// Test environment
	TempDir string
	// Placeholders maps {name} tokens in commands to generated paths.
	Placeholders map[string]string

	// Server state
	HTTPServer *httptest.Server
	closeHTTP  func() error

	// HTTP response state
	LastHTTPStatusCode int
	LastHTTPResponse   string
	LastHTTPHeaders    map[string]string
}

// NewTestContext creates a scenario context with its own temp dir.
func NewTestContext() (*TestContext, error) {
	tempDir, err := os.MkdirTemp("", "marksheet-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	return &TestContext{
		TempDir:         tempDir,
		Placeholders:    map[string]string{"tmp": tempDir},
		LastHTTPHeaders: map[string]string{},
	}, nil
}

// Cleanup stops the server and removes the temp dir.
func (testCtx *TestContext) Cleanup() error {
	var errs []error
	if err := testCtx.StopServer(); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop server: %w", err))
	}
	if err := os.RemoveAll(testCtx.TempDir); err != nil && !os.IsNotExist(err) {
		errs = append(errs, fmt.Errorf("failed to remove temp directory %s: %w", testCtx.TempDir, err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("cleanup errors: %v", errs)
	}
	return nil
}

// StopServer stops the test server if one is running.
func (testCtx *TestContext) StopServer() error {
	if testCtx.HTTPServer == nil {
		return nil
	}
	testCtx.HTTPServer.Close()
	testCtx.HTTPServer = nil
	if testCtx.closeHTTP != nil {
		return testCtx.closeHTTP()
	}
	return nil
}

// substitute replaces {name} placeholders in s.
func (testCtx *TestContext) substitute(s string) string {
	for name, value := range testCtx.Placeholders {
		s = strings.ReplaceAll(s, "{"+name+"}", value)
	}
	return s
}
