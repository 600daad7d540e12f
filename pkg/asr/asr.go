// Package asr converts captured speech to text.
//
// The Client speaks the OpenAI-compatible /audio/transcriptions endpoint
// exposed by local Whisper servers, so the rover can transcribe against
// whatever is listening on the configured URL.
package asr

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrRecognitionFailed is returned when the recognizer produced no
	// usable transcript.
	ErrRecognitionFailed = errors.New("asr: recognition failed")

	// ErrEmptyAudio is returned when there is nothing to transcribe.
	ErrEmptyAudio = errors.New("asr: empty audio")
)

// Transcriber converts audio to text.
type Transcriber interface {
	// Transcribe converts WAV audio bytes to text.
	Transcribe(ctx context.Context, audio []byte) (*Transcript, error)

	// Health checks recognizer connectivity.
	Health(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// Transcript is the result of one recognition.
type Transcript struct {
	// Text is the recognized speech.
	Text string

	// LatencyMs is the recognition wall time in milliseconds.
	LatencyMs int64
}

// RecognitionError wraps a recognizer failure with context.
type RecognitionError struct {
	StatusCode int
	Message    string
}

func (e *RecognitionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("asr: recognition failed (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("asr: recognition failed: %s", e.Message)
}

func (e *RecognitionError) Unwrap() error {
	return ErrRecognitionFailed
}
