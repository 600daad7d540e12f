package asr_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/codemusic/go-roverseer/pkg/asr"
)

func TestTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if got := r.FormValue("model"); got != "whisper-1" {
			t.Errorf("model = %q", got)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		data, _ := io.ReadAll(file)
		if string(data) != "RIFFfake" {
			t.Errorf("audio = %q", data)
		}
		w.Write([]byte(`{"text":"  turn on the lights  "}`))
	}))
	defer srv.Close()

	client := asr.NewClient(asr.WithBaseURL(srv.URL))
	tr, err := client.Transcribe(context.Background(), []byte("RIFFfake"))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if tr.Text != "turn on the lights" {
		t.Errorf("text = %q", tr.Text)
	}
}

func TestTranscribeEmptyAudio(t *testing.T) {
	client := asr.NewClient()
	if _, err := client.Transcribe(context.Background(), nil); !errors.Is(err, asr.ErrEmptyAudio) {
		t.Errorf("error = %v, want ErrEmptyAudio", err)
	}
}

func TestTranscribeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "whisper worker crashed", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := asr.NewClient(asr.WithBaseURL(srv.URL))
	_, err := client.Transcribe(context.Background(), []byte("x"))
	if !errors.Is(err, asr.ErrRecognitionFailed) {
		t.Fatalf("error = %v, want ErrRecognitionFailed", err)
	}
	var recErr *asr.RecognitionError
	if !errors.As(err, &recErr) || recErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("error = %v, want status 500", err)
	}
	if !strings.Contains(err.Error(), "whisper worker crashed") {
		t.Errorf("message not surfaced: %q", err.Error())
	}
}

func TestTranscribeEmptyTranscript(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"text":"   "}`))
	}))
	defer srv.Close()

	client := asr.NewClient(asr.WithBaseURL(srv.URL))
	if _, err := client.Transcribe(context.Background(), []byte("x")); !errors.Is(err, asr.ErrRecognitionFailed) {
		t.Errorf("error = %v, want ErrRecognitionFailed", err)
	}
}

func TestTranscribeUnreachable(t *testing.T) {
	client := asr.NewClient(asr.WithBaseURL("http://127.0.0.1:1/v1"))
	if _, err := client.Transcribe(context.Background(), []byte("x")); !errors.Is(err, asr.ErrRecognitionFailed) {
		t.Errorf("error = %v, want ErrRecognitionFailed", err)
	}
}

func TestMock(t *testing.T) {
	m := asr.NewMock()
	tr, err := m.Transcribe(context.Background(), []byte("x"))
	if err != nil || tr.Text != "Hello rover" {
		t.Errorf("got %v, %v", tr, err)
	}
	if m.CallCount() != 1 {
		t.Errorf("calls = %d", m.CallCount())
	}
}
