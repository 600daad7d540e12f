// Package tts provides a unified interface for text-to-speech providers.
//
// The primary backend is a local Piper install reading voice models from
// a directory on disk; Amazon Polly is available as a cloud backend. All
// providers implement the Provider interface, and Chain composes them so
// a cloud outage degrades to the local voice instead of silence.
//
// Synthesis writes a playable WAV file to the temp directory and returns
// its path; callers own the file and remove it via AudioResult.Cleanup.
package tts

import (
	"context"
)

// Provider defines the TTS provider interface.
type Provider interface {
	// Synthesize renders text with the requested voice and returns the
	// WAV file written to disk. Providers resolve the voice through
	// their own fallback rules; AudioResult.Voice reports what was
	// actually used.
	Synthesize(ctx context.Context, voice, text string) (*AudioResult, error)

	// Voices lists the voice identifiers this provider can render.
	Voices(ctx context.Context) ([]string, error)

	// Health checks that the provider can synthesize right now.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// AudioResult represents a completed synthesis.
type AudioResult struct {
	// Path is the WAV file on disk.
	Path string

	// Voice is the voice that actually rendered the audio, after any
	// fallback resolution.
	Voice string

	// CharCount is the number of characters synthesized.
	CharCount int

	// LatencyMs is the synthesis wall time in milliseconds.
	LatencyMs int64

	// Cleanup removes the WAV file. Safe to call more than once.
	Cleanup func()
}

// Discard removes the audio file if a cleanup is attached.
func (r *AudioResult) Discard() {
	if r != nil && r.Cleanup != nil {
		r.Cleanup()
	}
}
