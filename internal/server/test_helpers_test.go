package server

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/MeKo-Tech/marksheet/internal/extract"
	"github.com/MeKo-Tech/marksheet/internal/pipeline"
	"github.com/stretchr/testify/require"
)

// mockProcessor records the files it is asked to process.
type mockProcessor struct {
	mu     sync.Mutex
	paths  []string
	exists []bool

	result *pipeline.Result
	fixed  *pipeline.FixedResult
	err    error
	closed bool
}

func (m *mockProcessor) record(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paths = append(m.paths, path)
	_, err := os.Stat(path)
	m.exists = append(m.exists, err == nil)
}

func (m *mockProcessor) ProcessObserved(_ context.Context, path string, obs pipeline.StageObserver) (*pipeline.Result, error) {
	m.record(path)
	if m.err != nil {
		return nil, m.err
	}
	if obs != nil {
		obs(pipeline.StageEvent{Stage: pipeline.StagePreprocess, Status: pipeline.StageSuccess})
		obs(pipeline.StageEvent{Stage: pipeline.StageLogo, Status: pipeline.StageSuccess})
	}
	return m.result, nil
}

func (m *mockProcessor) ProcessFixed(_ context.Context, path, expectedSem string) (*pipeline.FixedResult, error) {
	m.record(path)
	if m.err != nil {
		return nil, m.err
	}
	if expectedSem == "III" {
		return nil, &pipeline.UserInputMismatch{Expected: "III", Extracted: "IV"}
	}
	return m.fixed, nil
}

func (m *mockProcessor) Status() map[string]bool {
	return map[string]bool{"board": true, "photo": false}
}

func (m *mockProcessor) Close() error {
	m.closed = true
	return nil
}

func schoolResult() *pipeline.Result {
	name := "RAHUL SHARMA"
	res := &pipeline.Result{RunID: "run-1", OverallStatus: pipeline.StatusValid}
	res.LogoDetection.BoardName = "CBSE"
	res.Extraction.Data = &extract.StudentRecord{Board: "CBSE", StudentName: &name, Subjects: []extract.SubjectRecord{}}
	return res
}

func collegeResult() *pipeline.FixedResult {
	name := "ANITA SINGH"
	return &pipeline.FixedResult{
		Board: pipeline.FixedBoard,
		RunID: "run-2",
		Data:  &extract.StudentRecord{Board: "COLLEGE", StudentName: &name, Subjects: []extract.SubjectRecord{}},
	}
}

func newTestServer(t *testing.T, proc Processor, mutate func(*Config)) *Server {
	t.Helper()
	cfg := Config{UploadDir: t.TempDir(), TimeoutSec: 30}
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := NewServer(cfg, proc)
	require.NoError(t, err)
	return s
}

func newMux(s *Server) *http.ServeMux {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return mux
}

// uploadRequest builds a multipart POST to target with content as "file".
func uploadRequest(t *testing.T, target, filename string, content []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

var errBoom = errors.New("boom")

func fatal(path string) error {
	return &pipeline.FatalInputError{Path: filepath.Base(path), Err: errors.New("unreadable image")}
}
