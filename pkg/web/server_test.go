package web_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"testing"

	"github.com/codemusic/go-roverseer/pkg/asr"
	"github.com/codemusic/go-roverseer/pkg/feedback"
	"github.com/codemusic/go-roverseer/pkg/inference"
	"github.com/codemusic/go-roverseer/pkg/rover"
	"github.com/codemusic/go-roverseer/pkg/tts"
	"github.com/codemusic/go-roverseer/pkg/web"
)

func newTestServer(t *testing.T) (*web.Server, *rover.Controller) {
	t.Helper()
	ctrl, err := rover.New(rover.Options{
		Driver:             feedback.NewMockDriver(),
		Provider:           inference.NewMock(),
		Synth:              tts.NewMock(),
		Recognizer:         asr.NewMock(),
		Model:              "tinydolphin:1.1b",
		Voice:              "en_GB-jarvis",
		MaxConcurrentTurns: 2,
	})
	if err != nil {
		t.Fatalf("rover.New: %v", err)
	}
	ctrl.Player().CommandFunc = func(wavPath string) *exec.Cmd {
		return exec.Command("true")
	}
	ctrl.Start()
	t.Cleanup(ctrl.Shutdown)
	return web.NewServer(":0", ctrl), ctrl
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestStatusEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/status", nil))
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	status := decode[web.StatusResponse](t, resp)
	if status.State != "idle" || status.Busy {
		t.Errorf("status = %+v, want idle", status)
	}
	if status.Model != "tinydolphin:1.1b" {
		t.Errorf("model = %q", status.Model)
	}
	if status.MaxTurns != 2 {
		t.Errorf("max turns = %d", status.MaxTurns)
	}
}

func TestTurnEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	body, _ := json.Marshal(web.TurnBody{Text: "hello"})
	req := httptest.NewRequest(http.MethodPost, "/turn", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.App().Test(req, -1)
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	turn := decode[web.TurnResponse](t, resp)
	if turn.Reply != "Mock response" {
		t.Errorf("reply = %q", turn.Reply)
	}
	if turn.ID == "" {
		t.Errorf("turn id missing")
	}
}

func TestTurnEndpointRequiresText(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/turn", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.App().Test(req)
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestVoiceTurnEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("audio", "capture.wav")
	if err != nil {
		t.Fatal(err)
	}
	io.WriteString(part, "RIFFfake")
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/turn/voice", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := srv.App().Test(req, -1)
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	turn := decode[web.TurnResponse](t, resp)
	if turn.Transcript != "Hello rover" {
		t.Errorf("transcript = %q", turn.Transcript)
	}
}

func TestInterruptAndReset(t *testing.T) {
	srv, ctrl := newTestServer(t)

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodPost, "/interrupt", nil))
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("interrupt status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err = srv.App().Test(httptest.NewRequest(http.MethodPost, "/reset", nil))
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	out := decode[map[string]string](t, resp)
	if out["state"] != "idle" {
		t.Errorf("reset state = %q", out["state"])
	}
	if ctrl.IsBusy() {
		t.Errorf("controller busy after reset")
	}
}

func TestHubBroadcast(t *testing.T) {
	hub := web.NewHub("test")
	go hub.Run()

	// No clients connected: broadcast must not block or error.
	if err := hub.BroadcastJSON(map[string]string{"to": "thinking"}); err != nil {
		t.Errorf("BroadcastJSON: %v", err)
	}
	if hub.ClientCount() != 0 {
		t.Errorf("client count = %d", hub.ClientCount())
	}
}
