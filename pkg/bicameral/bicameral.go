// Package bicameral runs a prompt through two differently-primed minds
// and converges their perspectives into a single reply.
//
// One model is primed as the Logical Mind, the other as the Creative
// Mind. For each exchange one of the pair is chosen at random to also
// act as the Convergence Mind: it answers as its own role first, then
// receives both perspectives and synthesizes the final response. The
// convergence model is always the second mind, so its weights are still
// resident when the synthesis call arrives.
package bicameral

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/codemusic/go-roverseer/pkg/feedback"
	"github.com/codemusic/go-roverseer/pkg/inference"
	"github.com/codemusic/go-roverseer/pkg/usage"
)

const conciseComment = "BE CONCISE. Your responses should be distilled and clear. Do not be verbose."

// Role priming for each mind.
const (
	LogicalMessage  = "You are the Logical Mind. Think in structure, reason, and clarity. Offer a concise, analytical perspective. " + conciseComment
	CreativeMessage = "You are the Creative Mind. Think in metaphors, colors, and emotions. Offer a fresh, imaginative perspective. " + conciseComment

	ConvergenceMessage = `You are a balanced mind that merges diverse perspectives into a single, coherent insight.

Draw equally from both provided input perspectives, perspective can clarify bias.
Your goal is to integrate — forming a new whole that speaks with clarity, depth, and nuance.
` + conciseComment + `

Respond as a single voice.
Do not mention or describe the original perspectives.
Simply provide the final, synthesized insight which follows the original prompt:`
)

// DefaultPause is the settle time between mind calls.
const DefaultPause = 500 * time.Millisecond

// CueQueue receives the audible cue announcing a bicameral exchange.
// Satisfied by *feedback.SoundCueQueue.
type CueQueue interface {
	Enqueue(cue feedback.Cue)
}

var _ CueQueue = (*feedback.SoundCueQueue)(nil)

// Result holds every intermediate of a convergence flow. The full
// result is always logged; callers speak only Final.
type Result struct {
	FirstModel    string
	FirstResponse string
	FirstLatency  time.Duration

	SecondModel    string
	SecondResponse string
	SecondLatency  time.Duration

	// ConvergenceModel is always SecondModel.
	ConvergenceModel   string
	Final              string
	ConvergenceLatency time.Duration
}

// Total returns the summed latency of all three calls.
func (r *Result) Total() time.Duration {
	return r.FirstLatency + r.SecondLatency + r.ConvergenceLatency
}

// Engine drives the two-mind flow against a single inference provider.
type Engine struct {
	provider inference.Provider
	logical  string
	creative string
	pause    time.Duration
	logger   *slog.Logger

	cues  CueQueue
	usage *usage.Logger

	// pickCreative decides whether the creative model converges.
	pickCreative func() bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithModels sets the logical and creative mind models.
func WithModels(logical, creative string) Option {
	return func(e *Engine) {
		e.logical = logical
		e.creative = creative
	}
}

// WithPause sets the settle time between mind calls. Zero disables it.
func WithPause(d time.Duration) Option {
	return func(e *Engine) { e.pause = d }
}

// WithCueQueue wires the audible cue for the start of an exchange.
func WithCueQueue(q CueQueue) Option {
	return func(e *Engine) { e.cues = q }
}

// SetCueQueue wires the audible cue after construction. The rover
// controller owns the sound worker and installs it here, since the
// engine is built before the controller exists.
func (e *Engine) SetCueQueue(q CueQueue) {
	e.cues = q
}

// WithUsageLogger wires persistent usage logging.
func WithUsageLogger(u *usage.Logger) Option {
	return func(e *Engine) { e.usage = u }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an Engine using provider for all three calls.
func New(provider inference.Provider, opts ...Option) *Engine {
	e := &Engine{
		provider:     provider,
		logical:      "tinydolphin:1.1b",
		creative:     "tinydolphin:1.1b",
		pause:        DefaultPause,
		logger:       slog.Default().With("component", "bicameral"),
		pickCreative: func() bool { return rand.Intn(2) == 0 },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Models returns the logical and creative model names.
func (e *Engine) Models() (logical, creative string) {
	return e.logical, e.creative
}

// Converge runs prompt through both minds and synthesizes the final
// reply. system, when non-empty, steers only the convergence call.
//
// On failure the returned error is a *Error carrying the stage that
// failed and whatever partial Result was produced before it.
func (e *Engine) Converge(ctx context.Context, prompt, system string) (*Result, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrEmptyPrompt
	}

	if e.cues != nil {
		e.cues.Enqueue(feedback.BicameralCue())
	}

	res := &Result{}
	if e.pickCreative() {
		res.ConvergenceModel = e.creative
		res.FirstModel = e.logical
	} else {
		res.ConvergenceModel = e.logical
		res.FirstModel = e.creative
	}
	res.SecondModel = res.ConvergenceModel

	e.logger.Info("bicameral exchange starting",
		"first_model", res.FirstModel,
		"convergence_model", res.ConvergenceModel)

	var err error
	res.FirstResponse, res.FirstLatency, err = e.ask(ctx, res.FirstModel, prompt, e.roleMessage(res.FirstModel))
	if err != nil {
		return nil, classify(StageFirstMind, res.FirstModel, res, err)
	}

	if err := e.settle(ctx); err != nil {
		return nil, classify(StageSecondMind, res.SecondModel, res, err)
	}

	res.SecondResponse, res.SecondLatency, err = e.ask(ctx, res.SecondModel, prompt, e.roleMessage(res.SecondModel))
	if err != nil {
		return nil, classify(StageSecondMind, res.SecondModel, res, err)
	}

	if err := e.settle(ctx); err != nil {
		return nil, classify(StageConvergence, res.ConvergenceModel, res, err)
	}

	convergencePrompt := fmt.Sprintf("[Prompt:\n%s\n\nFirst Mind Perspective:\n%s\n\nSecond Mind Perspective:\n%s]",
		prompt, res.FirstResponse, res.SecondResponse)
	if system != "" {
		convergencePrompt = system + ". " + convergencePrompt
	}

	res.Final, res.ConvergenceLatency, err = e.ask(ctx, res.ConvergenceModel, convergencePrompt, ConvergenceMessage)
	if err != nil {
		return nil, classify(StageConvergence, res.ConvergenceModel, res, err)
	}

	e.logger.Info("bicameral exchange complete",
		"first_model", res.FirstModel,
		"convergence_model", res.ConvergenceModel,
		"first_response", res.FirstResponse,
		"second_response", res.SecondResponse,
		"final", res.Final,
		"total_ms", res.Total().Milliseconds())

	if e.usage != nil {
		e.usage.LogBicameral(usage.BicameralRecord{
			FirstModel:       res.FirstModel,
			SecondModel:      res.SecondModel,
			ConvergenceModel: res.ConvergenceModel,
			Prompt:           prompt,
			FirstResponse:    res.FirstResponse,
			FirstMs:          res.FirstLatency.Milliseconds(),
			SecondResponse:   res.SecondResponse,
			SecondMs:         res.SecondLatency.Milliseconds(),
			Final:            res.Final,
			ConvergenceMs:    res.ConvergenceLatency.Milliseconds(),
		})
	}

	return res, nil
}

// ask runs one chat completion and times it.
func (e *Engine) ask(ctx context.Context, model, prompt, system string) (string, time.Duration, error) {
	start := time.Now()
	resp, err := e.provider.Chat(ctx, &inference.ChatRequest{
		Messages: []inference.Message{inference.NewUserMessage(prompt)},
		System:   system,
		Model:    model,
	})
	elapsed := time.Since(start)
	if err != nil {
		return "", elapsed, err
	}
	return resp.Message.Content, elapsed, nil
}

func (e *Engine) roleMessage(model string) string {
	if model == e.logical {
		return LogicalMessage
	}
	return CreativeMessage
}

// settle pauses briefly between mind calls so the active model holds
// its state, honoring ctx cancellation.
func (e *Engine) settle(ctx context.Context) error {
	if e.pause <= 0 {
		return nil
	}
	t := time.NewTimer(e.pause)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
