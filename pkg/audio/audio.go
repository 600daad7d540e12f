// Package audio plays synthesized speech through the device's audio output.
//
// Playback runs in an external aplay process so it can be interrupted with
// a termination signal at any moment; that signal is the only cancellation
// mechanism for speech. One ProcessHandle wraps one playback process.
package audio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Sentinel errors for playback outcomes.
var (
	// ErrPlaybackFailed is returned when the playback process exits abnormally.
	ErrPlaybackFailed = errors.New("audio: playback failed")

	// ErrInterrupted is returned from Wait when the process was interrupted.
	ErrInterrupted = errors.New("audio: playback interrupted")

	// ErrNoAudio is returned when there is nothing to play.
	ErrNoAudio = errors.New("audio: empty audio data")
)

// WriteTemp writes synthesized audio to a uniquely named temp file and
// returns its path plus a cleanup func that is safe to call on every exit
// path.
func WriteTemp(data []byte) (string, func(), error) {
	if len(data) == 0 {
		return "", nil, ErrNoAudio
	}
	path := filepath.Join(os.TempDir(), uuid.New().String()+".wav")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", nil, fmt.Errorf("audio: write temp file: %w", err)
	}
	cleanup := func() { os.Remove(path) }
	return path, cleanup, nil
}

// waitOnce latches the first Wait result of a process.
type waitOnce struct {
	once sync.Once
	err  error
	done chan struct{}
}

func newWaitOnce() *waitOnce {
	return &waitOnce{done: make(chan struct{})}
}

func (w *waitOnce) set(err error) {
	w.once.Do(func() {
		w.err = err
		close(w.done)
	})
}
