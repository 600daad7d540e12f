package rover

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/codemusic/go-roverseer/pkg/audio"
	"github.com/codemusic/go-roverseer/pkg/feedback"
	"github.com/codemusic/go-roverseer/pkg/inference"
	"github.com/codemusic/go-roverseer/pkg/pipeline"
	"github.com/codemusic/go-roverseer/pkg/usage"
)

// preemptBudget bounds how long a new turn waits for the previous one
// to land on Idle after being interrupted.
const preemptBudget = 2 * time.Second

// ErrNoRecognizer is returned for voice turns when no recognizer is
// wired.
var ErrNoRecognizer = errors.New("rover: no speech recognizer configured")

// TurnRequest describes one interaction.
type TurnRequest struct {
	// Audio is captured WAV input for voice turns.
	Audio []byte

	// Text is typed input for text turns.
	Text string

	// System steers the reply. For bicameral turns it reaches only the
	// convergence call.
	System string

	// Model overrides the default single-mind model.
	Model string

	// Voice overrides the default synthesis voice.
	Voice string

	// Bicameral routes the turn through the two-mind engine.
	Bicameral bool

	// Quiet skips synthesis and playback, returning text only.
	Quiet bool
}

// TurnResult is the record of a completed turn. Stage timestamps are
// zero for stages a turn never reached.
type TurnResult struct {
	ID         string
	Transcript string
	Reply      string
	Model      string
	Voice      string

	StartedAt     time.Time
	TranscribedAt time.Time
	RepliedAt     time.Time
	SynthesizedAt time.Time
	FinishedAt    time.Time
	PlaybackCut   bool // playback was interrupted before finishing
}

// RunVoiceTurn drives a full captured-audio interaction:
// Listening (transcribe), Thinking (reply), Generating (synthesize),
// Speaking (playback), Idle.
func (c *Controller) RunVoiceTurn(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	if c.recognizer == nil {
		return nil, ErrNoRecognizer
	}
	if len(req.Audio) == 0 {
		return nil, fmt.Errorf("rover: voice turn without audio")
	}

	if !c.gate.TryAcquire() {
		return nil, pipeline.ErrCapacityExceeded
	}
	defer c.gate.Release()

	turn := c.newTurn()
	c.claimPipeline()

	if err := c.machine.StartListening(); err != nil {
		return turn, c.fail(turn, "listening", err)
	}
	transcript, err := c.recognizer.Transcribe(ctx, req.Audio)
	if err != nil {
		return turn, c.fail(turn, "recognition", err)
	}
	turn.Transcript = transcript.Text
	turn.TranscribedAt = time.Now()

	req.Text = transcript.Text
	return c.finishTurn(ctx, turn, req)
}

// RunTextTurn drives a typed interaction, skipping the listening stage.
func (c *Controller) RunTextTurn(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	if req.Text == "" {
		return nil, fmt.Errorf("rover: text turn without text")
	}

	if !c.gate.TryAcquire() {
		return nil, pipeline.ErrCapacityExceeded
	}
	defer c.gate.Release()

	turn := c.newTurn()
	c.claimPipeline()
	return c.finishTurn(ctx, turn, req)
}

// finishTurn runs the Thinking→Generating→Speaking→Idle tail shared by both
// turn kinds.
func (c *Controller) finishTurn(ctx context.Context, turn *TurnResult, req TurnRequest) (*TurnResult, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	voice := req.Voice
	if voice == "" {
		voice = c.voice
	}
	defer c.setActive("", "")

	if err := c.machine.StartThinking(); err != nil {
		return turn, c.fail(turn, "thinking", err)
	}
	c.setActive(model, voice)
	c.cues.Enqueue(feedback.ModelCue(model))

	reply, usedModel, err := c.think(ctx, model, req)
	if err != nil {
		return turn, c.fail(turn, "thinking", err)
	}
	turn.Reply = reply
	turn.Model = usedModel
	turn.RepliedAt = time.Now()

	if req.Quiet {
		if err := c.quietFinish(turn); err != nil {
			return turn, err
		}
		c.logTurn(turn, req)
		return turn, nil
	}

	if err := c.machine.StartGenerating(); err != nil {
		return turn, c.fail(turn, "generating", err)
	}
	audioRes, err := c.synth.Synthesize(ctx, voice, reply)
	if err != nil {
		return turn, c.fail(turn, "synthesis", err)
	}
	defer audioRes.Discard()
	turn.Voice = audioRes.Voice
	turn.SynthesizedAt = time.Now()

	if err := c.machine.StartSpeaking(); err != nil {
		return turn, c.fail(turn, "speaking", err)
	}
	if err := c.player.Play(ctx, audioRes.Path); err != nil {
		if errors.Is(err, audio.ErrInterrupted) {
			// Interruption is a normal end of a turn.
			turn.PlaybackCut = true
		} else {
			return turn, c.fail(turn, "playback", err)
		}
	}

	if err := c.machine.Complete(); err != nil {
		// A reset during playback already landed the machine on Idle.
		if c.machine.Current() != pipeline.StateIdle {
			return turn, c.fail(turn, "completing", err)
		}
	}
	turn.FinishedAt = time.Now()

	c.logTurn(turn, req)
	return turn, nil
}

// think produces the reply text, through the bicameral engine or a
// single model.
func (c *Controller) think(ctx context.Context, model string, req TurnRequest) (reply, usedModel string, err error) {
	if req.Bicameral {
		if c.engine == nil {
			return "", "", fmt.Errorf("rover: bicameral turn without engine")
		}
		res, err := c.engine.Converge(ctx, req.Text, req.System)
		if err != nil {
			return "", "", err
		}
		return res.Final, res.ConvergenceModel, nil
	}

	resp, err := c.provider.Chat(ctx, &inference.ChatRequest{
		Messages: []inference.Message{inference.NewUserMessage(req.Text)},
		System:   req.System,
		Model:    model,
	})
	if err != nil {
		return "", "", err
	}
	return resp.Message.Content, model, nil
}

// quietFinish walks the remaining states without audio so the machine
// still lands on Idle through legal edges.
func (c *Controller) quietFinish(turn *TurnResult) error {
	if err := c.machine.StartGenerating(); err != nil {
		return c.fail(turn, "generating", err)
	}
	if err := c.machine.StartSpeaking(); err != nil {
		return c.fail(turn, "speaking", err)
	}
	if err := c.machine.Complete(); err != nil {
		if c.machine.Current() != pipeline.StateIdle {
			return c.fail(turn, "completing", err)
		}
	}
	turn.FinishedAt = time.Now()
	return nil
}

// claimPipeline makes the machine ready for a new turn: a lingering
// Error state is reset, and a busy turn is preempted and given a bounded
// window to land on Idle.
func (c *Controller) claimPipeline() {
	if c.machine.Current() == pipeline.StateError {
		c.machine.Reset()
	}
	if c.machine.IsBusy() {
		c.Interrupt()
		if !c.waitForIdle(preemptBudget) {
			c.Reset()
		}
	}
}

// fail forces the Error state, records the failure, and wraps err with
// the stage that broke.
func (c *Controller) fail(turn *TurnResult, stage string, err error) error {
	c.machine.Fail()
	turn.FinishedAt = time.Now()
	c.logger.Error("turn failed", "turn_id", turn.ID, "stage", stage, "error", err)
	if c.usage != nil {
		c.usage.LogError(usage.ErrorRecord{
			TurnID: turn.ID,
			Stage:  stage,
			Error:  err.Error(),
		})
	}
	return fmt.Errorf("%s: %w", stage, err)
}

func (c *Controller) newTurn() *TurnResult {
	return &TurnResult{
		ID:        uuid.New().String(),
		StartedAt: time.Now(),
	}
}

func (c *Controller) logTurn(turn *TurnResult, req TurnRequest) {
	if c.usage == nil || req.Bicameral {
		// Bicameral turns are logged by the engine with full detail.
		return
	}
	c.usage.LogTurn(usage.TurnRecord{
		TurnID:    turn.ID,
		Model:     turn.Model,
		System:    req.System,
		Prompt:    req.Text,
		Response:  turn.Reply,
		LatencyMs: turn.RepliedAt.Sub(turn.StartedAt).Milliseconds(),
	})
}
