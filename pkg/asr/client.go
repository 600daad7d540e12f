package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/codemusic/go-roverseer/pkg/usage"
)

const transcribeEndpoint = "/audio/transcriptions"

// DefaultModel is the Whisper model requested from the server.
const DefaultModel = "whisper-1"

// Client talks to an OpenAI-compatible Whisper server.
type Client struct {
	baseURL string
	model   string
	http    *http.Client
	logger  *slog.Logger
	usage   *usage.Logger
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets the recognizer base URL, including any /v1 prefix.
func WithBaseURL(url string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(url, "/") }
}

// WithModel sets the recognition model.
func WithModel(model string) ClientOption {
	return func(c *Client) { c.model = model }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = l.With("component", "asr") }
}

// WithUsageLogger wires persistent recognition logging.
func WithUsageLogger(u *usage.Logger) ClientOption {
	return func(c *Client) { c.usage = u }
}

// NewClient creates a recognizer client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: "http://localhost:10300/v1",
		model:   DefaultModel,
		http:    &http.Client{Timeout: 60 * time.Second},
		logger:  slog.Default().With("component", "asr"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Transcribe sends WAV audio to the recognizer and returns its text.
func (c *Client) Transcribe(ctx context.Context, audio []byte) (*Transcript, error) {
	if len(audio) == 0 {
		return nil, ErrEmptyAudio
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, fmt.Errorf("failed to write audio data: %w", err)
	}
	if err := writer.WriteField("model", c.model); err != nil {
		return nil, fmt.Errorf("failed to write model field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+transcribeEndpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &RecognitionError{Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RecognitionError{StatusCode: resp.StatusCode, Message: err.Error()}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &RecognitionError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &RecognitionError{StatusCode: resp.StatusCode, Message: "malformed response: " + err.Error()}
	}

	text := strings.TrimSpace(parsed.Text)
	if text == "" {
		return nil, &RecognitionError{StatusCode: resp.StatusCode, Message: "empty transcript"}
	}
	elapsed := time.Since(start)

	c.logger.Debug("transcription complete",
		"bytes", len(audio), "chars", len(text), "elapsed_ms", elapsed.Milliseconds())

	if c.usage != nil {
		c.usage.LogASR(usage.ASRRecord{
			AudioBytes: len(audio),
			Transcript: text,
			LatencyMs:  elapsed.Milliseconds(),
		})
	}

	return &Transcript{Text: text, LatencyMs: elapsed.Milliseconds()}, nil
}

// Health probes the server with a models listing.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return &RecognitionError{Message: err.Error()}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return &RecognitionError{StatusCode: resp.StatusCode, Message: "server error"}
	}
	return nil
}

// Close releases resources. The HTTP client holds none worth closing.
func (c *Client) Close() error { return nil }

// Verify Client implements Transcriber at compile time.
var _ Transcriber = (*Client)(nil)
