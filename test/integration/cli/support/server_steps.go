package support

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MeKo-Tech/marksheet/internal/config"
	"github.com/MeKo-Tech/marksheet/internal/detect"
	"github.com/MeKo-Tech/marksheet/internal/pipeline"
	"github.com/MeKo-Tech/marksheet/internal/recognizer"
	"github.com/MeKo-Tech/marksheet/internal/server"
	"github.com/cucumber/godog"
)

var httpClient = &http.Client{Timeout: 30 * time.Second}

// theServerIsRunning starts the HTTP server on an httptest listener. The
// pipeline has no models and no recognizer so responses are deterministic.
func (testCtx *TestContext) theServerIsRunning() error {
	return testCtx.startServer(func(*server.Config) {})
}

func (testCtx *TestContext) theServerIsRunningWithLimit(rpm int) error {
	return testCtx.startServer(func(c *server.Config) {
		c.RateLimit = server.RateLimitConfig{Enabled: true, RequestsPerMinute: rpm}
	})
}

func (testCtx *TestContext) startServer(mutate func(*server.Config)) error {
	if err := testCtx.StopServer(); err != nil {
		return err
	}
	cfg := config.DefaultConfig()
	cfg.Output.Dir = filepath.Join(testCtx.TempDir, "output")
	p, err := pipeline.NewBuilder().
		WithConfig(cfg.ToPipelineConfig()).
		WithCapabilities(&detect.Capabilities{}).
		WithRecognizerInstance(recognizer.Unavailable{}).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}

	sc := cfg.ToServerConfig()
	sc.UploadDir = filepath.Join(testCtx.TempDir, "uploads")
	mutate(&sc)
	srv, err := server.NewServer(sc, p)
	if err != nil {
		_ = p.Close()
		return err
	}
	mux := http.NewServeMux()
	srv.SetupRoutes(mux)
	testCtx.HTTPServer = httptest.NewServer(mux)
	testCtx.closeHTTP = srv.Close
	return nil
}

func (testCtx *TestContext) record(resp *http.Response) error {
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPResponse = string(body)
	testCtx.LastHTTPHeaders = map[string]string{}
	for k := range resp.Header {
		testCtx.LastHTTPHeaders[k] = resp.Header.Get(k)
	}
	return nil
}

func (testCtx *TestContext) iSendAGETRequestTo(path string) error {
	if testCtx.HTTPServer == nil {
		return fmt.Errorf("server is not running")
	}
	resp, err := httpClient.Get(testCtx.HTTPServer.URL + path)
	if err != nil {
		return err
	}
	return testCtx.record(resp)
}

// iUploadTo posts a temp dir file as the multipart "file" field.
func (testCtx *TestContext) iUploadTo(name, path string) error {
	if testCtx.HTTPServer == nil {
		return fmt.Errorf("server is not running")
	}
	data, err := os.ReadFile(filepath.Join(testCtx.TempDir, name))
	if err != nil {
		return err
	}
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		return err
	}
	if _, err := fw.Write(data); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, testCtx.HTTPServer.URL+path, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	return testCtx.record(resp)
}

func (testCtx *TestContext) theResponseStatusShouldBe(code int) error {
	if testCtx.LastHTTPStatusCode != code {
		return fmt.Errorf("expected status %d, got %d\nBody: %s", code, testCtx.LastHTTPStatusCode, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseHeaderShouldBe(name, expected string) error {
	if got := testCtx.LastHTTPHeaders[http.CanonicalHeaderKey(name)]; got != expected {
		return fmt.Errorf("header %s is %q, expected %q", name, got, expected)
	}
	return nil
}

func (testCtx *TestContext) theResponseJSONFieldShouldBe(field, expected string) error {
	return testCtx.checkJSONField(true, field, expected)
}

func (testCtx *TestContext) theResponseJSONFieldShouldContain(field, expected string) error {
	v, err := testCtx.lastJSON(true)
	if err != nil {
		return err
	}
	got, err := lookup(v, field)
	if err != nil {
		return err
	}
	if !strings.Contains(render(got), expected) {
		return fmt.Errorf("field '%s' is %q, expected it to contain %q", field, render(got), expected)
	}
	return nil
}

func (testCtx *TestContext) theResponseJSONFieldShouldHaveItems(field string, n int) error {
	return testCtx.checkJSONItems(true, field, n)
}

// RegisterServerSteps registers the HTTP server steps.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the marksheet server is running$`, testCtx.theServerIsRunning)
	sc.Step(`^the marksheet server is running with a limit of (\d+) requests? per minute$`,
		testCtx.theServerIsRunningWithLimit)
	sc.Step(`^I send a GET request to "([^"]*)"$`, testCtx.iSendAGETRequestTo)
	sc.Step(`^I upload "([^"]*)" to "([^"]*)"$`, testCtx.iUploadTo)
	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response header "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseHeaderShouldBe)
	sc.Step(`^the response JSON field "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseJSONFieldShouldBe)
	sc.Step(`^the response JSON field "([^"]*)" should contain "([^"]*)"$`, testCtx.theResponseJSONFieldShouldContain)
	sc.Step(`^the response JSON field "([^"]*)" should have (\d+) items?$`,
		testCtx.theResponseJSONFieldShouldHaveItems)
}
