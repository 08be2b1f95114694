// Package server exposes the marksheet pipeline over HTTP and websockets.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/MeKo-Tech/marksheet/internal/extract"
	"github.com/MeKo-Tech/marksheet/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Processor is the part of the pipeline the server drives. *pipeline.Pipeline
// implements it.
type Processor interface {
	ProcessObserved(ctx context.Context, path string, obs pipeline.StageObserver) (*pipeline.Result, error)
	ProcessFixed(ctx context.Context, path, expectedSem string) (*pipeline.FixedResult, error)
	Status() map[string]bool
	Close() error
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	proc        Processor
	corsOrigin  string
	maxUploadMB int64
	timeoutSec  int
	uploadDir   string
	keepUploads bool
	rateLimiter *RateLimiter
}

// Config holds server configuration.
type Config struct {
	Host        string
	Port        int
	CORSOrigin  string
	MaxUploadMB int64
	TimeoutSec  int
	UploadDir   string // Defaults to the system temp dir
	KeepUploads bool
	RateLimit   RateLimitConfig
}

// RateLimitConfig holds per-client limits. Zero disables a limit.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	RequestsPerHour   int
	MaxRequestsPerDay int
	MaxDataPerDay     int64
}

// HealthResponse reports liveness and which capabilities loaded.
type HealthResponse struct {
	Status       string          `json:"status"`
	Version      string          `json:"version,omitempty"`
	Time         string          `json:"time"`
	Capabilities map[string]bool `json:"capabilities,omitempty"`
}

// ProcessResponse is returned by /process and as the websocket result.
type ProcessResponse struct {
	Board          string                 `json:"board"`
	Data           *extract.StudentRecord `json:"data"`
	ServerFilename string                 `json:"server_filename,omitempty"`
	RunID          string                 `json:"run_id,omitempty"`
	OverallStatus  string                 `json:"overall_status,omitempty"`
}

// ErrorResponse carries a request failure.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewServer creates a server around proc.
func NewServer(config Config, proc Processor) (*Server, error) {
	if proc == nil {
		return nil, fmt.Errorf("processor is required")
	}
	dir := config.UploadDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	maxUpload := config.MaxUploadMB
	if maxUpload <= 0 {
		maxUpload = 20
	}

	s := &Server{
		proc:        proc,
		corsOrigin:  config.CORSOrigin,
		maxUploadMB: maxUpload,
		timeoutSec:  config.TimeoutSec,
		uploadDir:   dir,
		keepUploads: config.KeepUploads,
	}
	if config.RateLimit.Enabled {
		rl := config.RateLimit
		s.rateLimiter = NewRateLimiter(rl.RequestsPerMinute, rl.RequestsPerHour, rl.MaxRequestsPerDay, rl.MaxDataPerDay)
	}
	return s, nil
}

// Close releases server resources.
func (s *Server) Close() error {
	if s.proc != nil {
		return s.proc.Close()
	}
	return nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/process", s.corsMiddleware(s.rateLimitMiddleware(s.processHandler)))
	// The websocket route must see the raw ResponseWriter to hijack it.
	mux.HandleFunc("/ws/process", s.rateLimitMiddleware(s.processWebSocketHandler))
	mux.Handle("/metrics", promhttp.Handler())
}
