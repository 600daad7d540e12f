package tts

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/codemusic/go-roverseer/pkg/usage"
)

const providerPiper = "piper"

// Piper renders speech with a local Piper install. Voice models live in
// a directory as <id>-<quality>.onnx with a matching .onnx.json config;
// the voice identifier is the filename up to the quality suffix, for
// example en_GB-jarvis-medium.onnx holds voice en_GB-jarvis.
type Piper struct {
	voicesDir string
	binary    string
	timeout   time.Duration
	logger    *slog.Logger
	usage     *usage.Logger
}

// NewPiper creates a Piper provider.
func NewPiper(opts ...Option) (*Piper, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if cfg.VoicesDir == "" {
		return nil, fmt.Errorf("tts [%s]: voices directory required", providerPiper)
	}

	return &Piper{
		voicesDir: cfg.VoicesDir,
		binary:    cfg.Binary,
		timeout:   cfg.Timeout,
		logger:    cfg.Logger.With("component", "tts.piper"),
		usage:     cfg.Usage,
	}, nil
}

// Voices lists the voice identifiers available in the voices directory.
func (p *Piper) Voices(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(p.voicesDir)
	if err != nil {
		return nil, WrapError(providerPiper, fmt.Errorf("failed to read voices directory: %w", err))
	}

	seen := make(map[string]bool)
	var voices []string
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, ".onnx") || strings.HasSuffix(name, ".onnx.json") {
			continue
		}
		base := strings.TrimSuffix(name, ".onnx")
		if i := strings.LastIndex(base, "-"); i > 0 {
			base = base[:i]
		}
		if !seen[base] {
			seen[base] = true
			voices = append(voices, base)
		}
	}
	sort.Strings(voices)
	return voices, nil
}

// ResolveVoice maps a requested voice onto an installed one:
// an exact match wins; otherwise the quality suffix is stripped and
// retried; otherwise the first installed voice is used. Only an empty
// voices directory yields ErrVoiceNotFound.
func (p *Piper) ResolveVoice(ctx context.Context, requested string) (string, error) {
	voices, err := p.Voices(ctx)
	if err != nil {
		return "", err
	}
	if len(voices) == 0 {
		return "", WrapError(providerPiper, fmt.Errorf("%w: no voices installed in %s", ErrVoiceNotFound, p.voicesDir))
	}

	for _, v := range voices {
		if v == requested {
			return v, nil
		}
	}

	if i := strings.LastIndex(requested, "-"); i > 0 {
		stripped := requested[:i]
		for _, v := range voices {
			if v == stripped {
				p.logger.Info("voice resolved by stripping quality suffix",
					"requested", requested, "resolved", stripped)
				return v, nil
			}
		}
	}

	p.logger.Warn("requested voice not installed, falling back to first available",
		"requested", requested, "fallback", voices[0])
	return voices[0], nil
}

// voiceFiles locates the model and config files for a resolved voice.
func (p *Piper) voiceFiles(voice string) (model, config string, err error) {
	entries, err := os.ReadDir(p.voicesDir)
	if err != nil {
		return "", "", WrapError(providerPiper, err)
	}
	prefix := voice + "-"
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		switch {
		case strings.HasSuffix(name, ".onnx.json"):
			config = filepath.Join(p.voicesDir, name)
		case strings.HasSuffix(name, ".onnx"):
			model = filepath.Join(p.voicesDir, name)
		}
		if model != "" && config != "" {
			break
		}
	}
	if model == "" || config == "" {
		return "", "", WrapError(providerPiper, fmt.Errorf("%w: missing model or config for voice %s", ErrVoiceNotFound, voice))
	}
	return model, config, nil
}

// Synthesize renders text to a temp WAV file using the resolved voice.
func (p *Piper) Synthesize(ctx context.Context, voice, text string) (*AudioResult, error) {
	clean := SanitizeForSpeech(text)
	if clean == "" {
		return nil, WrapError(providerPiper, ErrEmptyText)
	}

	resolved, err := p.ResolveVoice(ctx, voice)
	if err != nil {
		return nil, err
	}
	model, config, err := p.voiceFiles(resolved)
	if err != nil {
		return nil, err
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	out := filepath.Join(os.TempDir(), uuid.New().String()+".wav")
	cmd := exec.CommandContext(ctx, p.binary,
		"--model", model,
		"--config", config,
		"--output_file", out,
	)
	cmd.Stdin = strings.NewReader(clean)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		os.Remove(out)
		if ctx.Err() != nil {
			return nil, WrapError(providerPiper, ctx.Err())
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, WrapError(providerPiper, fmt.Errorf("%w: %s", ErrSynthesisFailed, msg))
	}
	elapsed := time.Since(start)

	p.logger.Debug("synthesis complete",
		"voice", resolved, "chars", len(clean), "elapsed_ms", elapsed.Milliseconds())

	if p.usage != nil {
		// Log the original text so reasoning blocks stay visible in logs.
		p.usage.LogTTS(usage.TTSRecord{
			Voice:     resolved,
			Text:      text,
			Output:    out,
			LatencyMs: elapsed.Milliseconds(),
		})
	}

	return &AudioResult{
		Path:      out,
		Voice:     resolved,
		CharCount: len(clean),
		LatencyMs: elapsed.Milliseconds(),
		Cleanup:   func() { os.Remove(out) },
	}, nil
}

// Health verifies the voices directory holds at least one voice.
func (p *Piper) Health(ctx context.Context) error {
	voices, err := p.Voices(ctx)
	if err != nil {
		return err
	}
	if len(voices) == 0 {
		return WrapError(providerPiper, ErrVoiceNotFound)
	}
	return nil
}

// Close releases resources. Piper holds none.
func (p *Piper) Close() error { return nil }

// Verify Piper implements Provider at compile time.
var _ Provider = (*Piper)(nil)
