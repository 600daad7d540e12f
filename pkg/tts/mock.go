package tts

import (
	"context"
	"sync"
)

// Mock implements Provider for testing.
type Mock struct {
	// SynthesizeFunc is called when Synthesize is invoked.
	SynthesizeFunc func(ctx context.Context, voice, text string) (*AudioResult, error)

	// VoicesFunc is called when Voices is invoked.
	VoicesFunc func(ctx context.Context) ([]string, error)

	// HealthFunc is called when Health is invoked.
	HealthFunc func(ctx context.Context) error

	// CloseFunc is called when Close is invoked.
	CloseFunc func() error

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a Synthesize invocation.
type MockCall struct {
	Voice string
	Text  string
}

// NewMock creates a mock whose Synthesize reports success without
// touching disk.
func NewMock() *Mock {
	return &Mock{
		SynthesizeFunc: func(ctx context.Context, voice, text string) (*AudioResult, error) {
			return &AudioResult{
				Path:      "/tmp/mock.wav",
				Voice:     voice,
				CharCount: len(text),
				Cleanup:   func() {},
			}, nil
		},
		VoicesFunc: func(ctx context.Context) ([]string, error) {
			return []string{"en_GB-jarvis"}, nil
		},
	}
}

// WithError creates a mock whose calls all fail with err.
func WithError(err error) *Mock {
	return &Mock{
		SynthesizeFunc: func(ctx context.Context, voice, text string) (*AudioResult, error) {
			return nil, err
		},
		VoicesFunc: func(ctx context.Context) ([]string, error) {
			return nil, err
		},
		HealthFunc: func(ctx context.Context) error {
			return err
		},
	}
}

// Synthesize calls SynthesizeFunc and records the call.
func (m *Mock) Synthesize(ctx context.Context, voice, text string) (*AudioResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Voice: voice, Text: text})
	m.mu.Unlock()
	if m.SynthesizeFunc != nil {
		return m.SynthesizeFunc(ctx, voice, text)
	}
	return nil, ErrProviderUnavailable
}

// Voices calls VoicesFunc.
func (m *Mock) Voices(ctx context.Context) ([]string, error) {
	if m.VoicesFunc != nil {
		return m.VoicesFunc(ctx)
	}
	return nil, nil
}

// Health calls HealthFunc.
func (m *Mock) Health(ctx context.Context) error {
	if m.HealthFunc != nil {
		return m.HealthFunc(ctx)
	}
	return nil
}

// Close calls CloseFunc.
func (m *Mock) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// Calls returns a copy of recorded Synthesize calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// Verify Mock implements Provider at compile time.
var _ Provider = (*Mock)(nil)
