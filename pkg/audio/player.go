package audio

import (
	"context"
	"log/slog"
	"os/exec"
	"sync"
)

// Player spawns playback processes for WAV files and tracks the active
// handle so an incoming turn or an explicit stop can interrupt speech.
type Player struct {
	device string
	logger *slog.Logger

	// CommandFunc builds the playback command for a WAV path. Tests
	// substitute a harmless command here.
	CommandFunc func(wavPath string) *exec.Cmd

	mu     sync.Mutex
	handle *ProcessHandle
}

// NewPlayer creates a player for the given ALSA output device
// (e.g. "default", "plughw:1,0").
func NewPlayer(device string) *Player {
	p := &Player{
		device: device,
		logger: slog.Default().With("component", "audio.player"),
	}
	p.CommandFunc = func(wavPath string) *exec.Cmd {
		return exec.Command("aplay", "-D", p.device, wavPath)
	}
	return p
}

// Play spawns a playback process for wavPath and blocks until it exits.
// Returns nil on normal completion, ErrInterrupted if Interrupt preempted
// it, or a wrapped ErrPlaybackFailed. Cancelling ctx interrupts playback.
func (p *Player) Play(ctx context.Context, wavPath string) error {
	p.mu.Lock()
	if p.handle != nil && p.handle.Active() {
		// A new speech request preempts whatever is still playing.
		if err := p.handle.Interrupt(); err != nil {
			p.logger.Warn("interrupting previous playback failed", "error", err)
		}
	}

	cmd := p.CommandFunc(wavPath)
	handle, err := startProcess(cmd, p.device)
	if err != nil {
		p.handle = nil
		p.mu.Unlock()
		return err
	}
	p.handle = handle
	p.mu.Unlock()

	// Watch for context cancellation while the process runs.
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			if err := handle.Interrupt(); err != nil {
				p.logger.Warn("interrupt on cancel failed", "error", err)
			}
		case <-watchDone:
		}
	}()

	err = handle.Wait()

	p.mu.Lock()
	if p.handle == handle {
		p.handle = nil
	}
	p.mu.Unlock()

	return err
}

// Interrupt terminates the active playback, if any. The blocked Play call
// returns ErrInterrupted.
func (p *Player) Interrupt() {
	p.mu.Lock()
	handle := p.handle
	p.mu.Unlock()
	if handle == nil {
		return
	}
	if err := handle.Interrupt(); err != nil {
		p.logger.Warn("interrupt failed", "error", err)
	}
}

// Speaking reports whether a playback process is active.
func (p *Player) Speaking() bool {
	p.mu.Lock()
	handle := p.handle
	p.mu.Unlock()
	return handle != nil && handle.Active()
}

// Handle returns the active process handle, or nil.
func (p *Player) Handle() *ProcessHandle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handle
}
