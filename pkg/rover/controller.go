// Package rover ties the pipeline, feedback, audio, and mind subsystems
// into one controller the rest of the system talks to.
//
// The Controller owns the state machine and registers itself as an
// observer: every transition first retargets the LED animation, then
// enqueues the matching sound cue, so the eyes always lead the ears.
package rover

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/codemusic/go-roverseer/pkg/asr"
	"github.com/codemusic/go-roverseer/pkg/audio"
	"github.com/codemusic/go-roverseer/pkg/bicameral"
	"github.com/codemusic/go-roverseer/pkg/feedback"
	"github.com/codemusic/go-roverseer/pkg/inference"
	"github.com/codemusic/go-roverseer/pkg/pipeline"
	"github.com/codemusic/go-roverseer/pkg/tts"
	"github.com/codemusic/go-roverseer/pkg/usage"
)

// Options configures a Controller. Driver, Provider, and Synth are
// required; Recognizer and Engine are optional and disable voice input
// and bicameral turns respectively when nil.
type Options struct {
	Driver     feedback.Driver
	Provider   inference.Provider
	Engine     *bicameral.Engine
	Synth      tts.Provider
	Recognizer asr.Transcriber
	Usage      *usage.Logger
	Logger     *slog.Logger

	// Model is the default single-mind model.
	Model string

	// Voice is the default synthesis voice.
	Voice string

	// AudioDevice is the ALSA playback device.
	AudioDevice string

	// MaxConcurrentTurns bounds simultaneous turns; minimum 1.
	MaxConcurrentTurns int
}

// Controller is the facade over the whole interaction pipeline.
type Controller struct {
	machine   *pipeline.StateMachine
	gate      *pipeline.Gate
	animation *feedback.AnimationController
	cues      *feedback.SoundCueQueue
	player    *audio.Player

	provider   inference.Provider
	engine     *bicameral.Engine
	synth      tts.Provider
	recognizer asr.Transcriber
	usage      *usage.Logger
	logger     *slog.Logger

	model string
	voice string

	mu          sync.Mutex
	activeModel string
	activeVoice string
}

// New creates a Controller and registers it on its own state machine.
func New(opts Options) (*Controller, error) {
	if opts.Driver == nil {
		return nil, fmt.Errorf("rover: feedback driver required")
	}
	if opts.Provider == nil {
		return nil, fmt.Errorf("rover: inference provider required")
	}
	if opts.Synth == nil {
		return nil, fmt.Errorf("rover: tts provider required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Controller{
		machine:    pipeline.NewStateMachine(),
		gate:       pipeline.NewGate(opts.MaxConcurrentTurns),
		animation:  feedback.NewAnimationController(opts.Driver),
		cues:       feedback.NewSoundCueQueue(opts.Driver),
		player:     audio.NewPlayer(opts.AudioDevice),
		provider:   opts.Provider,
		engine:     opts.Engine,
		synth:      opts.Synth,
		recognizer: opts.Recognizer,
		usage:      opts.Usage,
		logger:     logger.With("component", "rover"),
		model:      opts.Model,
		voice:      opts.Voice,
	}
	c.machine.AddObserver(c)
	if c.engine != nil {
		c.engine.SetCueQueue(c.cues)
	}
	return c, nil
}

// Start spins up the sound worker and announces boot.
func (c *Controller) Start() {
	c.cues.Start()
	c.cues.Enqueue(feedback.StartupCue())
	c.logger.Info("controller started",
		"model", c.model, "voice", c.voice, "max_turns", c.gate.Max())
}

// OnTransition retargets the animation, then plays the cue for the
// edge. Animation always comes first.
func (c *Controller) OnTransition(old, new pipeline.State) {
	c.animation.Set(new)

	switch {
	case new == pipeline.StateListening:
		c.cues.Enqueue(feedback.ConfirmationCue())
	case new == pipeline.StateError:
		c.cues.Enqueue(feedback.ErrorCue())
	case new == pipeline.StateIdle && old == pipeline.StateListening:
		c.cues.Enqueue(feedback.RecordingCompleteCue())
	}

	c.logger.Info("pipeline state changed", "from", old.String(), "to", new.String())
}

// Interrupt cuts any active playback. The speaking turn observes the
// interruption and completes normally to Idle.
func (c *Controller) Interrupt() {
	c.player.Interrupt()
}

// Reset forces the system back to Idle: playback interrupted,
// animations stopped, state machine reset, active model/voice cleared.
func (c *Controller) Reset() {
	c.player.Interrupt()
	c.animation.StopAll()
	c.machine.Reset()
	c.setActive("", "")
	c.logger.Info("controller reset")
}

// Shutdown stops every subsystem. Faults are logged, not returned; a
// failing synth must not keep the process alive.
func (c *Controller) Shutdown() {
	c.Reset()
	c.cues.Stop()
	c.animation.StopAll()
	if err := c.synth.Close(); err != nil {
		c.logger.Warn("tts close failed", "error", err)
	}
	if err := c.provider.Close(); err != nil {
		c.logger.Warn("inference close failed", "error", err)
	}
	if c.recognizer != nil {
		if err := c.recognizer.Close(); err != nil {
			c.logger.Warn("asr close failed", "error", err)
		}
	}
	c.logger.Info("controller shutdown complete")
}

// State returns the current pipeline state.
func (c *Controller) State() pipeline.State {
	return c.machine.Current()
}

// IsBusy reports whether a turn is in flight.
func (c *Controller) IsBusy() bool {
	return c.machine.IsBusy()
}

// Speaking reports whether audio is playing right now.
func (c *Controller) Speaking() bool {
	return c.player.Speaking()
}

// ActiveModel returns the model serving the current turn, or the
// default when idle.
func (c *Controller) ActiveModel() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.activeModel != "" {
		return c.activeModel
	}
	return c.model
}

// ActiveVoice returns the voice for the current turn, or the default.
func (c *Controller) ActiveVoice() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.activeVoice != "" {
		return c.activeVoice
	}
	return c.voice
}

// Gate exposes the admission gate for status reporting.
func (c *Controller) Gate() *pipeline.Gate {
	return c.gate
}

// Machine exposes the state machine so outer layers can observe
// transitions.
func (c *Controller) Machine() *pipeline.StateMachine {
	return c.machine
}

// Player exposes the audio player, mainly so the playback command can
// be substituted on hosts without ALSA.
func (c *Controller) Player() *audio.Player {
	return c.player
}

func (c *Controller) setActive(model, voice string) {
	c.mu.Lock()
	c.activeModel = model
	c.activeVoice = voice
	c.mu.Unlock()
}

// waitForIdle polls until the machine leaves busy states or the budget
// runs out.
func (c *Controller) waitForIdle(budget time.Duration) bool {
	deadline := time.Now().Add(budget)
	for time.Now().Before(deadline) {
		if !c.machine.IsBusy() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return !c.machine.IsBusy()
}

// Health probes the downstream services a turn depends on.
func (c *Controller) Health(ctx context.Context) map[string]string {
	report := make(map[string]string)
	report["inference"] = healthString(c.provider.Health(ctx))
	report["tts"] = healthString(c.synth.Health(ctx))
	if c.recognizer != nil {
		report["asr"] = healthString(c.recognizer.Health(ctx))
	}
	return report
}

func healthString(err error) string {
	if err != nil {
		return err.Error()
	}
	return "ok"
}
