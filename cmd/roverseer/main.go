// RoverSeer - voice interaction pipeline controller for the rover.
// Wires the state machine, LED/sound feedback, local and cloud TTS,
// speech recognition, and the bicameral mind behind one HTTP surface.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/codemusic/go-roverseer/internal/config"
	"github.com/codemusic/go-roverseer/internal/log"
	"github.com/codemusic/go-roverseer/pkg/asr"
	"github.com/codemusic/go-roverseer/pkg/bicameral"
	"github.com/codemusic/go-roverseer/pkg/feedback"
	"github.com/codemusic/go-roverseer/pkg/inference"
	"github.com/codemusic/go-roverseer/pkg/rover"
	"github.com/codemusic/go-roverseer/pkg/tts"
	"github.com/codemusic/go-roverseer/pkg/usage"
	"github.com/codemusic/go-roverseer/pkg/web"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log.Init(cfg.LogLevel)
	logger := log.L()

	usageLog, err := usage.NewLogger(cfg.UsageLogDir)
	if err != nil {
		logger.Error("usage logger unavailable, continuing without", "error", err)
		usageLog = nil
	}

	provider, err := inference.NewClient(
		inference.WithBaseURL(cfg.OllamaURL),
		inference.WithModel(cfg.Model),
		inference.WithTimeout(cfg.ChatTimeout),
	)
	if err != nil {
		logger.Error("inference client init failed", "error", err)
		os.Exit(1)
	}

	recognizer := asr.NewClient(
		asr.WithBaseURL(cfg.WhisperURL),
		asr.WithUsageLogger(usageLog),
	)

	synth, err := buildSynth(cfg, usageLog)
	if err != nil {
		logger.Error("tts unavailable", "error", err)
		os.Exit(1)
	}

	driver := buildDriver()

	engine := bicameral.New(provider,
		bicameral.WithModels(cfg.LogicalModel, cfg.CreativeModel),
		bicameral.WithUsageLogger(usageLog),
	)

	ctrl, err := rover.New(rover.Options{
		Driver:             driver,
		Provider:           provider,
		Engine:             engine,
		Synth:              synth,
		Recognizer:         recognizer,
		Usage:              usageLog,
		Logger:             logger,
		Model:              cfg.Model,
		Voice:              cfg.Voice,
		AudioDevice:        cfg.AudioDevice,
		MaxConcurrentTurns: cfg.MaxConcurrentTurns,
	})
	if err != nil {
		logger.Error("controller init failed", "error", err)
		os.Exit(1)
	}

	ctrl.Start()
	defer ctrl.Shutdown()

	server := web.NewServer(":"+cfg.WebPort, ctrl)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		logger.Error("web server stopped", "error", err)
	}

	if err := server.Shutdown(); err != nil {
		logger.Warn("web shutdown failed", "error", err)
	}
}

// buildSynth assembles the TTS stack: Polly in front of the local Piper
// floor when enabled, plain Piper otherwise.
func buildSynth(cfg config.Config, usageLog *usage.Logger) (tts.Provider, error) {
	piper, err := tts.NewPiper(
		tts.WithVoicesDir(cfg.VoicesDir),
		tts.WithBinary(cfg.PiperBin),
		tts.WithUsageLogger(usageLog),
	)
	if err != nil {
		return nil, err
	}
	if !cfg.PollyEnabled {
		return piper, nil
	}

	polly, err := tts.NewPolly(
		tts.WithRegion(cfg.PollyRegion),
		tts.WithPollyVoice(cfg.PollyVoice),
		tts.WithUsageLogger(usageLog),
	)
	if err != nil {
		return nil, err
	}
	return tts.NewChain(polly, piper)
}

// buildDriver picks the feedback driver. Device builds swap in the LED
// HAT implementation of feedback.Driver; everything else logs frames
// and tones to the console.
func buildDriver() feedback.Driver {
	return feedback.NewConsoleDriver()
}
