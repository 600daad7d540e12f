package audio

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"
)

// ProcessHandle wraps one spawned playback process. It is created by a
// Player, owned by the controller for the duration of playback, and
// discarded when playback completes, is interrupted, or errors.
type ProcessHandle struct {
	device  string
	started time.Time

	mu          sync.Mutex
	cmd         *exec.Cmd
	active      bool
	interrupted bool

	wait *waitOnce
}

// startProcess spawns cmd and returns a live handle for it.
func startProcess(cmd *exec.Cmd, device string) (*ProcessHandle, error) {
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("audio: start playback: %w", err)
	}

	h := &ProcessHandle{
		device:  device,
		started: time.Now(),
		cmd:     cmd,
		active:  true,
		wait:    newWaitOnce(),
	}

	// A single reaper goroutine owns cmd.Wait; Wait and Interrupt observe
	// its result through the latch.
	go func() {
		err := cmd.Wait()
		h.mu.Lock()
		h.active = false
		interrupted := h.interrupted
		h.mu.Unlock()
		if interrupted {
			h.wait.set(ErrInterrupted)
			return
		}
		if err != nil {
			h.wait.set(fmt.Errorf("%w: %v", ErrPlaybackFailed, err))
			return
		}
		h.wait.set(nil)
	}()

	return h, nil
}

// Wait blocks until the process exits. Returns nil on a normal exit,
// ErrInterrupted after Interrupt, or a wrapped ErrPlaybackFailed.
func (h *ProcessHandle) Wait() error {
	<-h.wait.done
	return h.wait.err
}

// Interrupt terminates the process if it is still active and marks the
// handle inactive. Safe to call more than once.
func (h *ProcessHandle) Interrupt() error {
	h.mu.Lock()
	if !h.active {
		h.mu.Unlock()
		return nil
	}
	h.interrupted = true
	proc := h.cmd.Process
	h.mu.Unlock()

	if proc != nil {
		if err := proc.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return fmt.Errorf("audio: interrupt playback: %w", err)
		}
	}
	return nil
}

// Active reports whether the process is still running.
func (h *ProcessHandle) Active() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active
}

// Pid returns the OS process id, or 0 if unavailable.
func (h *ProcessHandle) Pid() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

// Device returns the output device the process plays to.
func (h *ProcessHandle) Device() string { return h.device }

// StartedAt returns when playback began.
func (h *ProcessHandle) StartedAt() time.Time { return h.started }
