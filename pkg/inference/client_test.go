package inference_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/codemusic/go-roverseer/pkg/inference"
)

func chatServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T, opts ...inference.Option) *inference.Client {
	t.Helper()
	client, err := inference.NewClient(opts...)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestClientChat(t *testing.T) {
	var gotBody map[string]any
	srv := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"model": "tinydolphin:1.1b",
			"choices": []map[string]any{
				{
					"message":       map[string]string{"role": "assistant", "content": "hello there"},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]int{"prompt_tokens": 8, "completion_tokens": 3, "total_tokens": 11},
		})
	})

	client := newClient(t, inference.WithBaseURL(srv.URL))
	resp, err := client.Chat(context.Background(), &inference.ChatRequest{
		Messages: []inference.Message{inference.NewUserMessage("hi")},
		System:   "You are a rover.",
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Message.Content != "hello there" {
		t.Errorf("content = %q, want %q", resp.Message.Content, "hello there")
	}
	if resp.Usage.TotalTokens != 11 {
		t.Errorf("total tokens = %d, want 11", resp.Usage.TotalTokens)
	}
	if resp.LatencyMs < 0 {
		t.Errorf("latency = %d, want >= 0", resp.LatencyMs)
	}

	msgs, ok := gotBody["messages"].([]any)
	if !ok || len(msgs) != 2 {
		t.Fatalf("messages = %v, want system + user", gotBody["messages"])
	}
	first := msgs[0].(map[string]any)
	if first["role"] != "system" {
		t.Errorf("first message role = %v, want system", first["role"])
	}
}

func TestClientSystemNotDuplicated(t *testing.T) {
	var gotBody map[string]any
	srv := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "ok"}, "finish_reason": "stop"},
			},
		})
	})

	client := newClient(t, inference.WithBaseURL(srv.URL))
	_, err := client.Chat(context.Background(), &inference.ChatRequest{
		Messages: []inference.Message{
			{Role: inference.RoleSystem, Content: "already here"},
			inference.NewUserMessage("hi"),
		},
		System: "ignored",
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	msgs := gotBody["messages"].([]any)
	if len(msgs) != 2 {
		t.Errorf("messages = %d, want 2 (no injected system)", len(msgs))
	}
}

func TestClientModelNotFound(t *testing.T) {
	srv := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"message": "model \"nope\" not found, try pulling it first"},
		})
	})

	client := newClient(t, inference.WithBaseURL(srv.URL))
	_, err := client.Chat(context.Background(), &inference.ChatRequest{
		Messages: []inference.Message{inference.NewUserMessage("hi")},
		Model:    "nope",
	})
	if !errors.Is(err, inference.ErrModelNotFound) {
		t.Errorf("error = %v, want ErrModelNotFound", err)
	}
}

func TestClientConnectionRefused(t *testing.T) {
	// Port 1 is essentially never listening.
	client := newClient(t,
		inference.WithBaseURL("http://127.0.0.1:1/v1"),
		inference.WithTimeout(2*time.Second),
	)
	_, err := client.Chat(context.Background(), &inference.ChatRequest{
		Messages: []inference.Message{inference.NewUserMessage("hi")},
	})
	if !errors.Is(err, inference.ErrConnectionFailed) {
		t.Errorf("error = %v, want ErrConnectionFailed", err)
	}
}

func TestClientServerError(t *testing.T) {
	srv := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]any{"error": map[string]string{"message": "boom"}})
	})

	client := newClient(t, inference.WithBaseURL(srv.URL))
	_, err := client.Chat(context.Background(), &inference.ChatRequest{
		Messages: []inference.Message{inference.NewUserMessage("hi")},
	})
	var apiErr *inference.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if !apiErr.IsServerError() {
		t.Errorf("IsServerError() = false for status %d", apiErr.StatusCode)
	}
}

func TestClientHealth(t *testing.T) {
	srv := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"data":[]}`))
	})

	client := newClient(t, inference.WithBaseURL(srv.URL))
	if err := client.Health(context.Background()); err != nil {
		t.Errorf("Health: %v", err)
	}
}

func TestMockRecordsCalls(t *testing.T) {
	mock := inference.NewMock()
	resp, err := mock.Chat(context.Background(), &inference.ChatRequest{
		Messages: []inference.Message{inference.NewUserMessage("hi")},
		Model:    "tinydolphin:1.1b",
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Message.Content != "Mock response" {
		t.Errorf("content = %q", resp.Message.Content)
	}
	if mock.CallCount("Chat") != 1 {
		t.Errorf("CallCount(Chat) = %d, want 1", mock.CallCount("Chat"))
	}
	calls := mock.Calls()
	if len(calls) != 1 || calls[0].Model != "tinydolphin:1.1b" {
		t.Errorf("calls = %v", calls)
	}
	mock.Reset()
	if mock.CallCount("Chat") != 0 {
		t.Errorf("Reset did not clear calls")
	}
}

func TestMockWithError(t *testing.T) {
	sentinel := errors.New("down")
	mock := inference.WithError(sentinel)
	if _, err := mock.Chat(context.Background(), &inference.ChatRequest{}); !errors.Is(err, sentinel) {
		t.Errorf("Chat error = %v, want sentinel", err)
	}
	if err := mock.Health(context.Background()); !errors.Is(err, sentinel) {
		t.Errorf("Health error = %v, want sentinel", err)
	}
}
