package recognizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MeKo-Tech/marksheet/internal/utils"
	"github.com/avast/retry-go/v4"
)

// DefaultWhispererURL is the hosted text extraction endpoint.
const DefaultWhispererURL = "https://llmwhisperer-api.us-central.unstract.com/api/v2"

// WhispererConfig configures the asynchronous remote recognizer.
type WhispererConfig struct {
	BaseURL         string
	APIKey          string
	PollInterval    time.Duration
	MaxPollInterval time.Duration
	Timeout         time.Duration
	HTTPClient      *http.Client
}

// DefaultWhispererConfig returns the polling defaults.
func DefaultWhispererConfig() WhispererConfig {
	return WhispererConfig{
		BaseURL:         DefaultWhispererURL,
		PollInterval:    5 * time.Second,
		MaxPollInterval: 30 * time.Second,
		Timeout:         5 * time.Minute,
	}
}

// Whisperer submits an image, polls until processing completes and
// retrieves the layout-preserving text.
type Whisperer struct {
	cfg    WhispererConfig
	client *http.Client
}

var errStillProcessing = errors.New("whisper still processing")

// NewWhisperer creates the client. A missing API key yields Unavailable.
func NewWhisperer(cfg WhispererConfig) Recognizer {
	if strings.TrimSpace(cfg.APIKey) == "" {
		slog.Warn("No API key configured for remote recognizer")
		return Unavailable{}
	}
	def := DefaultWhispererConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.MaxPollInterval < cfg.PollInterval {
		cfg.MaxPollInterval = cfg.PollInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Whisperer{cfg: cfg, client: client}
}

// Recognize implements Recognizer.
func (w *Whisperer) Recognize(ctx context.Context, img image.Image) string {
	text, err := w.recognize(ctx, img)
	if err != nil {
		slog.Warn("Remote recognition failed", "error", err)
		return Failed(err)
	}
	return text
}

func (w *Whisperer) recognize(ctx context.Context, img image.Image) (string, error) {
	if img == nil {
		return "", errors.New("input image is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, w.cfg.Timeout)
	defer cancel()

	body, err := utils.EncodePNG(img)
	if err != nil {
		return "", err
	}

	start := time.Now()
	hash, err := w.submit(ctx, body)
	if err != nil {
		return "", fmt.Errorf("submit: %w", err)
	}

	polls := 0
	err = retry.Do(
		func() error {
			polls++
			return w.status(ctx, hash)
		},
		retry.Context(ctx),
		retry.Attempts(0),
		retry.Delay(w.cfg.PollInterval),
		retry.MaxDelay(w.cfg.MaxPollInterval),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool { return errors.Is(err, errStillProcessing) }),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("timed out after %s waiting for %s: %w", time.Since(start).Round(time.Second), hash, ctxErr)
		}
		return "", fmt.Errorf("status: %w", err)
	}

	text, err := w.retrieve(ctx, hash)
	if err != nil {
		return "", fmt.Errorf("retrieve: %w", err)
	}
	slog.Debug("Remote recognition complete", "whisper_hash", hash, "polls", polls,
		"chars", len(text), "duration_ms", time.Since(start).Milliseconds())
	return CleanText(text), nil
}

func (w *Whisperer) submit(ctx context.Context, body []byte) (string, error) {
	q := url.Values{}
	q.Set("mode", "form")
	q.Set("output_mode", "layout_preserving")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.BaseURL+"/whisper?"+q.Encode(), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	var out struct {
		WhisperHash string `json:"whisper_hash"`
		Message     string `json:"message"`
	}
	if err := w.do(req, &out); err != nil {
		return "", err
	}
	if out.WhisperHash == "" {
		return "", fmt.Errorf("no whisper hash in response: %s", out.Message)
	}
	return out.WhisperHash, nil
}

func (w *Whisperer) status(ctx context.Context, hash string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		w.cfg.BaseURL+"/whisper-status?whisper_hash="+url.QueryEscape(hash), nil)
	if err != nil {
		return retry.Unrecoverable(err)
	}
	var out struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := w.do(req, &out); err != nil {
		return retry.Unrecoverable(err)
	}
	switch out.Status {
	case "processed":
		return nil
	case "error", "failed":
		return retry.Unrecoverable(fmt.Errorf("processing %s: %s", out.Status, out.Message))
	default:
		return errStillProcessing
	}
}

func (w *Whisperer) retrieve(ctx context.Context, hash string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		w.cfg.BaseURL+"/whisper-retrieve?whisper_hash="+url.QueryEscape(hash), nil)
	if err != nil {
		return "", err
	}
	var out struct {
		ResultText string `json:"result_text"`
		Extraction *struct {
			ResultText string `json:"result_text"`
		} `json:"extraction"`
	}
	if err := w.do(req, &out); err != nil {
		return "", err
	}
	if out.Extraction != nil && out.Extraction.ResultText != "" {
		return out.Extraction.ResultText, nil
	}
	return out.ResultText, nil
}

func (w *Whisperer) do(req *http.Request, out any) error {
	req.Header.Set("unstract-key", w.cfg.APIKey)
	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("invalid response: %w", err)
	}
	return nil
}
