package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MeKo-Tech/marksheet/internal/server"
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server for marksheet processing",
	Long: `Start an HTTP server that exposes the pipeline.

The server provides the following endpoints:
  POST /process     - Process an uploaded image or PDF (?mode=school|college&expected_sem=)
  GET  /ws/process  - Websocket streaming stage progress and the result
  GET  /health      - Health check with capability status
  GET  /metrics     - Prometheus metrics

Examples:
  marksheet serve
  marksheet serve --port 8080
  marksheet serve --host 0.0.0.0 --port 3000 --rate-limit-enabled`,
	SilenceUsage: true,
	RunE:         runServeCommand,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("host", "H", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 8080, "server port")
	serveCmd.Flags().String("cors-origin", "*", "CORS allowed origins")
	serveCmd.Flags().Int("max-upload-size", 20, "maximum upload size in MB")
	serveCmd.Flags().Int("timeout", 360, "request timeout in seconds")
	serveCmd.Flags().Int("shutdown-timeout", 10, "shutdown timeout in seconds")
	serveCmd.Flags().String("upload-dir", "", "directory for stored uploads (default is the system temp dir)")
	serveCmd.Flags().Bool("keep-uploads", false, "keep uploads after processing and report their names")
	// Rate limiting flags
	serveCmd.Flags().Bool("rate-limit-enabled", false, "enable rate limiting")
	serveCmd.Flags().Int("requests-per-minute", 30, "maximum requests per minute per client")
	serveCmd.Flags().Int("requests-per-hour", 500, "maximum requests per hour per client")
	serveCmd.Flags().Int("max-requests-per-day", 2000, "maximum requests per day per client")
	serveCmd.Flags().Int64("max-data-per-day", 500*1024*1024, "maximum data processed per day per client (bytes)")
}

// serverConfigFromFlags applies CLI flag overrides to the configured server
// settings.
func serverConfigFromFlags(cmd *cobra.Command, sc server.Config, shutdownTimeout int) (server.Config, int) {
	f := cmd.Flags()
	if f.Changed("host") {
		sc.Host, _ = f.GetString("host")
	}
	if f.Changed("port") {
		sc.Port, _ = f.GetInt("port")
	}
	if f.Changed("cors-origin") {
		sc.CORSOrigin, _ = f.GetString("cors-origin")
	}
	if f.Changed("max-upload-size") {
		mb, _ := f.GetInt("max-upload-size")
		sc.MaxUploadMB = int64(mb)
	}
	if f.Changed("timeout") {
		sc.TimeoutSec, _ = f.GetInt("timeout")
	}
	if f.Changed("shutdown-timeout") {
		shutdownTimeout, _ = f.GetInt("shutdown-timeout")
	}
	if f.Changed("upload-dir") {
		sc.UploadDir, _ = f.GetString("upload-dir")
	}
	if f.Changed("keep-uploads") {
		sc.KeepUploads, _ = f.GetBool("keep-uploads")
	}
	if f.Changed("rate-limit-enabled") {
		sc.RateLimit.Enabled, _ = f.GetBool("rate-limit-enabled")
	}
	if f.Changed("requests-per-minute") {
		sc.RateLimit.RequestsPerMinute, _ = f.GetInt("requests-per-minute")
	}
	if f.Changed("requests-per-hour") {
		sc.RateLimit.RequestsPerHour, _ = f.GetInt("requests-per-hour")
	}
	if f.Changed("max-requests-per-day") {
		sc.RateLimit.MaxRequestsPerDay, _ = f.GetInt("max-requests-per-day")
	}
	if f.Changed("max-data-per-day") {
		sc.RateLimit.MaxDataPerDay, _ = f.GetInt64("max-data-per-day")
	}
	return sc, shutdownTimeout
}

func runServeCommand(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	serverConfig, shutdownTimeout := serverConfigFromFlags(cmd, cfg.ToServerConfig(), cfg.Server.ShutdownTimeout)

	if serverConfig.Port < 1 || serverConfig.Port > 65535 {
		return fmt.Errorf("invalid port number: %d (must be between 1 and 65535)", serverConfig.Port)
	}

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	p, err := buildPipeline(cfg)
	if err != nil {
		return err
	}

	srv, err := server.NewServer(serverConfig, p)
	if err != nil {
		_ = p.Close()
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	mux := http.NewServeMux()
	srv.SetupRoutes(mux)

	// Websocket runs can take as long as the processing timeout, so the
	// write timeout leaves room for the response after it.
	timeout := time.Duration(serverConfig.TimeoutSec) * time.Second
	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", serverConfig.Host, serverConfig.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       timeout,
		WriteTimeout:      timeout + 30*time.Second,
	}

	go func() {
		slog.Info("Starting marksheet server", "host", serverConfig.Host, "port", serverConfig.Port,
			"capabilities", p.Status())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		slog.Info("Received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		slog.Info("Context cancelled, initiating shutdown")
	}

	slog.Info("Starting graceful shutdown", "timeout", fmt.Sprintf("%ds", shutdownTimeout))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(shutdownTimeout)*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server shutdown completed")
	}

	if err := srv.Close(); err != nil {
		slog.Error("Server cleanup error", "error", err)
	}

	slog.Info("Graceful shutdown completed")
	return nil
}
