package tts

import (
	"log/slog"
	"time"

	"github.com/codemusic/go-roverseer/pkg/usage"
)

// Config holds provider configuration. Not all fields apply to every
// provider; each constructor reads the ones it needs.
type Config struct {
	// VoicesDir is the directory of Piper voice models.
	VoicesDir string

	// Binary is the piper executable path.
	Binary string

	// Region is the AWS region for Polly.
	Region string

	// PollyVoice is the Polly voice used when the requested voice is a
	// local-style identifier Polly cannot render.
	PollyVoice string

	// Engine selects the Polly engine, "neural" or "standard".
	Engine string

	// Timeout bounds a single synthesis call.
	Timeout time.Duration

	// Logger for structured logging.
	Logger *slog.Logger

	// Usage, when set, receives a record for every synthesis.
	Usage *usage.Logger
}

// DefaultConfig returns the default provider configuration.
func DefaultConfig() Config {
	return Config{
		VoicesDir:  "/home/codemusic/voices",
		Binary:     "piper",
		Region:     "us-east-1",
		PollyVoice: "Brian",
		Engine:     "neural",
		Timeout:    30 * time.Second,
		Logger:     slog.Default(),
	}
}

// Option configures a provider.
type Option func(*Config)

// Apply applies options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// WithVoicesDir sets the Piper voice model directory.
func WithVoicesDir(dir string) Option {
	return func(c *Config) { c.VoicesDir = dir }
}

// WithBinary sets the piper executable path.
func WithBinary(path string) Option {
	return func(c *Config) { c.Binary = path }
}

// WithRegion sets the AWS region for Polly.
func WithRegion(region string) Option {
	return func(c *Config) { c.Region = region }
}

// WithPollyVoice sets the fallback Polly voice.
func WithPollyVoice(voice string) Option {
	return func(c *Config) { c.PollyVoice = voice }
}

// WithEngine selects the Polly engine.
func WithEngine(engine string) Option {
	return func(c *Config) { c.Engine = engine }
}

// WithTimeout bounds a single synthesis call.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithUsageLogger wires persistent synthesis logging.
func WithUsageLogger(u *usage.Logger) Option {
	return func(c *Config) { c.Usage = u }
}
