package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/MeKo-Tech/marksheet/internal/batch"
	"github.com/MeKo-Tech/marksheet/internal/extract"
	"github.com/MeKo-Tech/marksheet/internal/pipeline"
	"github.com/MeKo-Tech/marksheet/internal/version"
)

// errUnsupportedType rejects uploads that are neither images nor PDFs.
var errUnsupportedType = errors.New("unsupported file type")

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:  "healthy",
		Version: version.Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	}
	if s.proc != nil {
		response.Capabilities = s.proc.Status()
	}

	writeJSON(w, http.StatusOK, response)
}

// processHandler runs one uploaded marksheet through the pipeline.
func (s *Server) processHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := s.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeErrorResponse(w, "File too large", http.StatusRequestEntityTooLarge)
		} else {
			s.writeErrorResponse(w, "Failed to parse form data", http.StatusBadRequest)
		}
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeErrorResponse(w, "No file provided", http.StatusBadRequest)
		return
	}
	defer func() { _ = file.Close() }()
	uploadSizeBytes.Observe(float64(header.Size))

	mode := r.URL.Query().Get("mode")
	if mode == "" {
		mode = pipeline.ModeSchool
	}
	if mode != pipeline.ModeSchool && mode != pipeline.ModeCollege {
		s.writeErrorResponse(w, "mode must be school or college", http.StatusBadRequest)
		return
	}

	path, err := s.saveUpload(file, header.Filename)
	if err != nil {
		if errors.Is(err, errUnsupportedType) {
			s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.writeErrorResponse(w, "Failed to store upload", http.StatusInternalServerError)
		return
	}
	defer s.discardUpload(path)

	slog.Info("Received process request", "file", header.Filename, "mode", mode, "stored_as", filepath.Base(path))

	res, status, err := s.process(r.Context(), path, mode, r.URL.Query().Get("expected_sem"), nil)
	if err != nil {
		s.writeErrorResponse(w, err.Error(), status)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// process runs the pipeline on a stored upload and maps failures onto HTTP
// status codes.
func (s *Server) process(ctx context.Context, path, mode, expectedSem string, obs pipeline.StageObserver) (*ProcessResponse, int, error) {
	if s.proc == nil {
		return nil, http.StatusServiceUnavailable, errors.New("marksheet pipeline not initialized")
	}
	if s.timeoutSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(s.timeoutSec)*time.Second)
		defer cancel()
	}

	start := time.Now()
	resp, err := s.run(ctx, path, mode, expectedSem, obs)
	processDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		processRequestsTotal.WithLabelValues(mode, "success").Inc()
		if s.keepUploads {
			resp.ServerFilename = filepath.Base(path)
		}
		return resp, http.StatusOK, nil
	case pipeline.IsUserInputMismatch(err):
		processRequestsTotal.WithLabelValues(mode, "mismatch").Inc()
		return nil, http.StatusBadRequest, err
	case pipeline.IsFatalInput(err):
		processRequestsTotal.WithLabelValues(mode, "invalid_input").Inc()
		return nil, http.StatusBadRequest, err
	default:
		processRequestsTotal.WithLabelValues(mode, "error").Inc()
		slog.Error("Processing failed", "file", filepath.Base(path), "error", err)
		return nil, http.StatusInternalServerError, err
	}
}

func (s *Server) run(ctx context.Context, path, mode, expectedSem string, obs pipeline.StageObserver) (*ProcessResponse, error) {
	if mode == pipeline.ModeCollege {
		res, err := s.proc.ProcessFixed(ctx, path, expectedSem)
		if err != nil {
			return nil, err
		}
		return &ProcessResponse{Board: res.Board, Data: res.Data, RunID: res.RunID}, nil
	}

	res, err := s.proc.ProcessObserved(ctx, path, obs)
	if err != nil {
		return nil, err
	}
	board := res.LogoDetection.BoardName
	data := res.Extraction.Data
	if data == nil {
		data = extract.FallbackRecord(board)
	}
	return &ProcessResponse{Board: board, Data: data, RunID: res.RunID, OverallStatus: res.OverallStatus}, nil
}

// saveUpload stores r under a unique name in the upload dir and returns the
// path. The extension of name decides how the pipeline loads the file.
func (s *Server) saveUpload(r io.Reader, name string) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if !batch.IsProcessable("upload" + ext) {
		return "", fmt.Errorf("%w: %q", errUnsupportedType, ext)
	}
	stored := fmt.Sprintf("%s_%s%s", cleanName(name), pipeline.NewRunID(time.Now()), ext)
	path := filepath.Join(s.uploadDir, stored)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600) //nolint:gosec // G304: name is sanitized
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", err
	}
	return path, nil
}

func (s *Server) discardUpload(path string) {
	if s.keepUploads {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to remove upload", "path", path, "error", err)
	}
}

// cleanName keeps letters, digits, dots, dashes and underscores of the
// file stem, truncated to 30 characters.
func cleanName(name string) string {
	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	var b strings.Builder
	for _, r := range stem {
		if b.Len() >= 30 {
			break
		}
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)), r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "upload"
	}
	return b.String()
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
