package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"
)

const providerClient = "client"

// Client is the standard HTTP-based inference provider.
// Works with any OpenAI-compatible API (Ollama, OpenAI, vLLM, Together).
type Client struct {
	baseURL string
	apiKey  string
	config  *Config
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a new inference client.
func NewClient(opts ...Option) (*Client, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")

	return &Client{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		config:  cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  cfg.Logger.With("component", "inference.client"),
	}, nil
}

// Chat generates a chat completion.
func (c *Client) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	start := time.Now()

	model := req.Model
	if model == "" {
		model = c.config.Model
	}
	if model == "" {
		return nil, WrapError(providerClient, ErrNoModel)
	}

	messages := req.Messages
	if req.System != "" && !hasSystemMessage(messages) {
		messages = append([]Message{{Role: RoleSystem, Content: req.System}}, messages...)
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.config.MaxTokens
	}

	payload := map[string]interface{}{
		"model":      model,
		"messages":   messages,
		"max_tokens": maxTokens,
		"stream":     false,
	}
	if req.Temperature > 0 {
		payload["temperature"] = req.Temperature
	} else if c.config.Temperature > 0 {
		payload["temperature"] = c.config.Temperature
	}

	resp, err := c.post(ctx, "/chat/completions", payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp, model)
	}

	var result chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, WrapError(providerClient, fmt.Errorf("decode response: %w", err))
	}

	if len(result.Choices) == 0 {
		return nil, WrapError(providerClient, fmt.Errorf("no choices returned for model %s", model))
	}

	choice := result.Choices[0]

	return &ChatResponse{
		Message:      Message{Role: RoleAssistant, Content: choice.Message.Content},
		FinishReason: choice.FinishReason,
		Usage: Usage{
			PromptTokens:     result.Usage.PromptTokens,
			CompletionTokens: result.Usage.CompletionTokens,
			TotalTokens:      result.Usage.TotalTokens,
		},
		Model:     result.Model,
		LatencyMs: time.Since(start).Milliseconds(),
	}, nil
}

// Health checks connectivity by listing models.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return WrapError(providerClient, err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return WrapError(providerClient, fmt.Errorf("health check status %d", resp.StatusCode))
	}
	return nil
}

// Close releases resources. The shared HTTP client has none to release.
func (c *Client) Close() error {
	return nil
}

// post sends a JSON payload to path.
func (c *Client) post(ctx context.Context, path string, payload interface{}) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, WrapError(providerClient, fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, WrapError(providerClient, err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	return resp, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// parseError converts a non-200 response into a classified error.
func (c *Client) parseError(resp *http.Response, model string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var apiErr struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    string `json:"code"`
		} `json:"error"`
	}
	_ = json.Unmarshal(body, &apiErr)

	message := apiErr.Error.Message
	if message == "" {
		message = strings.TrimSpace(string(body))
	}

	// Ollama reports an unknown model as a 404 with "model ... not found".
	if resp.StatusCode == http.StatusNotFound ||
		strings.Contains(strings.ToLower(message), "model") && strings.Contains(strings.ToLower(message), "not found") {
		return WrapError(providerClient, fmt.Errorf("%w: %s", ErrModelNotFound, model))
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    message,
		Code:       apiErr.Error.Code,
		Provider:   providerClient,
	}
}

// classifyTransportError maps transport failures onto the sentinel set.
// Caller cancellation passes through unclassified.
func classifyTransportError(err error) error {
	if errors.Is(err, context.Canceled) {
		return WrapError(providerClient, err)
	}
	var netErr net.Error
	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.As(err, &netErr) ||
		errors.Is(err, context.DeadlineExceeded) {
		return WrapError(providerClient, fmt.Errorf("%w: %v", ErrConnectionFailed, err))
	}
	return WrapError(providerClient, err)
}

func hasSystemMessage(messages []Message) bool {
	for _, m := range messages {
		if m.Role == RoleSystem {
			return true
		}
	}
	return false
}

// chatCompletionResponse is the OpenAI-compatible wire format.
type chatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Verify Client implements Provider at compile time.
var _ Provider = (*Client)(nil)
