package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/marksheet/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	_, err := NewServer(Config{}, nil)
	require.Error(t, err)

	s := newTestServer(t, &mockProcessor{}, func(c *Config) {
		c.RateLimit = RateLimitConfig{Enabled: true, RequestsPerMinute: 5}
	})
	assert.Equal(t, int64(20), s.maxUploadMB)
	assert.NotNil(t, s.rateLimiter)

	s = newTestServer(t, &mockProcessor{}, nil)
	assert.Nil(t, s.rateLimiter)
}

func TestServer_Close(t *testing.T) {
	proc := &mockProcessor{}
	s := newTestServer(t, proc, nil)
	require.NoError(t, s.Close())
	assert.True(t, proc.closed)
}

func TestHealthHandler(t *testing.T) {
	s := newTestServer(t, &mockProcessor{}, nil)
	mux := newMux(s)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.NotEmpty(t, resp.Time)
	assert.True(t, resp.Capabilities["board"])
	assert.False(t, resp.Capabilities["photo"])

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestProcessHandler_School(t *testing.T) {
	proc := &mockProcessor{result: schoolResult()}
	s := newTestServer(t, proc, nil)

	rec := httptest.NewRecorder()
	newMux(s).ServeHTTP(rec, uploadRequest(t, "/process", "my marksheet.jpg", []byte("jpeg")))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp ProcessResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "CBSE", resp.Board)
	require.NotNil(t, resp.Data)
	assert.Equal(t, "RAHUL SHARMA", *resp.Data.StudentName)
	assert.Equal(t, "run-1", resp.RunID)
	assert.Equal(t, pipeline.StatusValid, resp.OverallStatus)
	assert.Empty(t, resp.ServerFilename)

	require.Len(t, proc.paths, 1)
	assert.True(t, proc.exists[0], "upload is on disk while processing")
	stored := filepath.Base(proc.paths[0])
	assert.Regexp(t, `^my_marksheet_.+\.jpg$`, stored)
	assert.Empty(t, dirEntries(t, s.uploadDir), "upload is removed afterwards")
}

func TestProcessHandler_KeepUploads(t *testing.T) {
	proc := &mockProcessor{result: schoolResult()}
	s := newTestServer(t, proc, func(c *Config) { c.KeepUploads = true })

	rec := httptest.NewRecorder()
	newMux(s).ServeHTTP(rec, uploadRequest(t, "/process", "scan.PNG", []byte("png")))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ProcessResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, []string{resp.ServerFilename}, dirEntries(t, s.uploadDir))
}

func TestProcessHandler_FallbackData(t *testing.T) {
	res := schoolResult()
	res.Extraction.Data = nil
	s := newTestServer(t, &mockProcessor{result: res}, nil)

	rec := httptest.NewRecorder()
	newMux(s).ServeHTTP(rec, uploadRequest(t, "/process", "a.jpg", []byte("x")))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ProcessResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotNil(t, resp.Data)
	assert.Equal(t, "OCR not available", *resp.Data.StudentName)
	assert.Equal(t, "OCR extraction failed", resp.Data.Note)
	assert.Empty(t, resp.Data.Subjects)
}

func TestProcessHandler_College(t *testing.T) {
	proc := &mockProcessor{fixed: collegeResult()}
	s := newTestServer(t, proc, nil)
	mux := newMux(s)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, uploadRequest(t, "/process?mode=college&expected_sem=IV", "sheet.pdf", []byte("%PDF")))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ProcessResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, pipeline.FixedBoard, resp.Board)
	assert.Equal(t, "ANITA SINGH", *resp.Data.StudentName)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, uploadRequest(t, "/process?mode=college&expected_sem=III", "sheet.pdf", []byte("%PDF")))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var errResp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&errResp))
	assert.Equal(t, "Uploaded marksheet belongs to Semester IV. Please upload Semester III marksheet.", errResp.Error)
	assert.Empty(t, dirEntries(t, s.uploadDir))
}

func TestProcessHandler_CollegeWithoutData(t *testing.T) {
	fixed := collegeResult()
	fixed.Data = nil
	s := newTestServer(t, &mockProcessor{fixed: fixed}, nil)

	rec := httptest.NewRecorder()
	newMux(s).ServeHTTP(rec, uploadRequest(t, "/process?mode=college", "sheet.jpg", []byte("x")))
	require.Equal(t, http.StatusOK, rec.Code)

	var raw map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&raw))
	assert.Contains(t, raw, "data")
	assert.Nil(t, raw["data"])
}

func TestProcessHandler_Errors(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		target   string
		filename string
		procErr  error
		want     int
	}{
		{name: "wrong method", method: http.MethodGet, target: "/process", want: http.StatusMethodNotAllowed},
		{name: "missing file", target: "/process", want: http.StatusBadRequest},
		{name: "bad mode", target: "/process?mode=university", filename: "a.jpg", want: http.StatusBadRequest},
		{name: "unsupported type", target: "/process", filename: "notes.txt", want: http.StatusBadRequest},
		{name: "fatal input", target: "/process", filename: "a.jpg", procErr: fatal("a.jpg"), want: http.StatusBadRequest},
		{name: "processing failure", target: "/process", filename: "a.jpg", procErr: errBoom, want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, &mockProcessor{result: schoolResult(), err: tt.procErr}, nil)

			req := uploadRequest(t, tt.target, tt.filename, []byte("data"))
			if tt.method != "" {
				req.Method = tt.method
			}
			rec := httptest.NewRecorder()
			newMux(s).ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.Empty(t, dirEntries(t, s.uploadDir))
		})
	}
}

func TestProcessHandler_TooLarge(t *testing.T) {
	s := newTestServer(t, &mockProcessor{result: schoolResult()}, func(c *Config) { c.MaxUploadMB = 1 })

	rec := httptest.NewRecorder()
	newMux(s).ServeHTTP(rec, uploadRequest(t, "/process", "big.jpg", make([]byte, 2*1024*1024)))
	assert.Contains(t, []int{http.StatusRequestEntityTooLarge, http.StatusBadRequest}, rec.Code)
	assert.Empty(t, dirEntries(t, s.uploadDir))
}

func TestCleanName(t *testing.T) {
	tests := map[string]string{
		"my marksheet.jpg":     "my_marksheet",
		"../../etc/passwd.png": "passwd",
		"résumé.pdf":           "rsum",
		"???.jpg":              "upload",
		"a_very_long_file_name_that_keeps_going.jpg": "a_very_long_file_name_that_kee",
	}
	for in, want := range tests {
		assert.Equal(t, want, cleanName(in), in)
	}
}
