// Package config provides configuration for go-roverseer commands.
// Values come from an optional YAML file overridden by environment
// variables, so a bare `go run ./cmd/roverseer` works on a stock Pi.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults for a stock RoverSeer install.
const (
	DefaultOllamaURL  = "http://localhost:11434/v1"
	DefaultWhisperURL = "http://localhost:10300/v1"
	DefaultModel      = "tinydolphin:1.1b"
	DefaultVoice      = "en_GB-jarvis"
	DefaultWebPort    = "5000"
	DefaultPiperBin   = "piper"
)

// Config holds the full device configuration.
type Config struct {
	// Model serving
	OllamaURL    string `yaml:"ollama_url" json:"ollama_url"`
	WhisperURL   string `yaml:"whisper_url" json:"whisper_url"`
	Model        string `yaml:"model" json:"model"`
	LogicalModel string `yaml:"logical_model" json:"logical_model"`
	// CreativeModel is the second bicameral mind. It may equal LogicalModel;
	// the two minds still reason independently through separate calls.
	CreativeModel string `yaml:"creative_model" json:"creative_model"`

	// Voice
	VoicesDir   string `yaml:"voices_dir" json:"voices_dir"`
	Voice       string `yaml:"voice" json:"voice"`
	PiperBin    string `yaml:"piper_bin" json:"piper_bin"`
	AudioDevice string `yaml:"audio_device" json:"audio_device"`

	// Polly fallback synthesis (optional)
	PollyEnabled bool   `yaml:"polly_enabled" json:"polly_enabled"`
	PollyRegion  string `yaml:"polly_region" json:"polly_region"`
	PollyVoice   string `yaml:"polly_voice" json:"polly_voice"`

	// Concurrency
	MaxConcurrentTurns int `yaml:"max_concurrent_turns" json:"max_concurrent_turns"`

	// Timeouts for the model-serving boundary. The pipeline itself never
	// times out a turn; these bound the external calls.
	ChatTimeout time.Duration `yaml:"chat_timeout" json:"chat_timeout"`

	// Observability
	LogLevel    string `yaml:"log_level" json:"log_level"`
	UsageLogDir string `yaml:"usage_log_dir" json:"usage_log_dir"`

	// Web
	WebPort string `yaml:"web_port" json:"web_port"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		OllamaURL:          DefaultOllamaURL,
		WhisperURL:         DefaultWhisperURL,
		Model:              DefaultModel,
		LogicalModel:       DefaultModel,
		CreativeModel:      DefaultModel,
		VoicesDir:          filepath.Join(home, "piper", "voices"),
		Voice:              DefaultVoice,
		PiperBin:           DefaultPiperBin,
		AudioDevice:        "default",
		PollyRegion:        "us-east-1",
		PollyVoice:         "Joanna",
		MaxConcurrentTurns: 1,
		ChatTimeout:        120 * time.Second,
		LogLevel:           "info",
		UsageLogDir:        filepath.Join(home, "roverseer_logs"),
		WebPort:            DefaultWebPort,
	}
}

// Load reads the config file at path (if non-empty and present) and then
// applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overrides config values from ROVERSEER_* environment variables.
func (c *Config) applyEnv() {
	envStr(&c.OllamaURL, "ROVERSEER_OLLAMA_URL")
	envStr(&c.WhisperURL, "ROVERSEER_WHISPER_URL")
	envStr(&c.Model, "ROVERSEER_MODEL")
	envStr(&c.LogicalModel, "ROVERSEER_LOGICAL_MODEL")
	envStr(&c.CreativeModel, "ROVERSEER_CREATIVE_MODEL")
	envStr(&c.VoicesDir, "ROVERSEER_VOICES_DIR")
	envStr(&c.Voice, "PIPER_VOICE")
	envStr(&c.PiperBin, "ROVERSEER_PIPER_BIN")
	envStr(&c.AudioDevice, "ROVERSEER_AUDIO_DEVICE")
	envStr(&c.PollyRegion, "ROVERSEER_POLLY_REGION")
	envStr(&c.PollyVoice, "ROVERSEER_POLLY_VOICE")
	envStr(&c.LogLevel, "ROVERSEER_LOG_LEVEL")
	envStr(&c.UsageLogDir, "ROVERSEER_USAGE_LOG_DIR")
	envStr(&c.WebPort, "ROVERSEER_WEB_PORT")

	if v := os.Getenv("ROVERSEER_POLLY_ENABLED"); v == "1" || v == "true" {
		c.PollyEnabled = true
	}
	if v := os.Getenv("ROVERSEER_MAX_TURNS"); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil && n >= 1 {
			c.MaxConcurrentTurns = n
		}
	}
}

// Validate checks invariants that would otherwise surface as confusing
// runtime failures.
func (c *Config) Validate() error {
	if c.MaxConcurrentTurns < 1 {
		return fmt.Errorf("config: max_concurrent_turns must be >= 1, got %d", c.MaxConcurrentTurns)
	}
	if c.LogicalModel == "" || c.CreativeModel == "" {
		return fmt.Errorf("config: bicameral models must not be empty")
	}
	return nil
}

func envStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
