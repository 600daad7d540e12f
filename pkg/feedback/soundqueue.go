package feedback

import (
	"log/slog"
	"sync"
	"time"
)

// Queue sizing and shutdown bounds for the cue worker.
const (
	cueQueueDepth   = 16
	stopDrainBudget = 2 * time.Second
)

// SoundCueQueue serializes transient sound effects through a single worker
// so playback never overlaps on the device's one audio output. Callers only
// enqueue; they never wait for playback.
type SoundCueQueue struct {
	driver Driver
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	cueCh   chan Cue
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewSoundCueQueue creates a queue over the given driver.
func NewSoundCueQueue(driver Driver) *SoundCueQueue {
	return &SoundCueQueue{
		driver: driver,
		logger: slog.Default().With("component", "feedback.soundqueue"),
	}
}

// Start launches the worker. Idempotent.
func (q *SoundCueQueue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return
	}
	q.cueCh = make(chan Cue, cueQueueDepth)
	q.stopCh = make(chan struct{})
	q.doneCh = make(chan struct{})
	q.running = true
	go q.work(q.cueCh, q.stopCh, q.doneCh)
	q.logger.Debug("sound cue worker started")
}

// Stop signals the worker, which drains queued cues before exiting. Stop
// waits a short bounded interval for the in-flight cue rather than cutting
// it off, then gives up and returns. Idempotent.
func (q *SoundCueQueue) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	close(q.stopCh)
	doneCh := q.doneCh
	q.mu.Unlock()

	select {
	case <-doneCh:
	case <-time.After(stopDrainBudget):
		q.logger.Warn("sound cue worker did not drain in time")
	}
}

// Running reports whether the worker is live.
func (q *SoundCueQueue) Running() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// Enqueue queues a cue for playback and returns immediately. A cue offered
// while the worker is down, or while the queue is full, is dropped with a
// log: a stale cue for a state the device already left is worse than a
// missing one.
func (q *SoundCueQueue) Enqueue(c Cue) {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		q.logger.Debug("cue dropped, worker not running", "cue", c.Name)
		return
	}
	cueCh := q.cueCh
	q.mu.Unlock()

	select {
	case cueCh <- c:
	default:
		q.logger.Warn("cue dropped, queue full", "cue", c.Name)
	}
}

// work consumes cues one at a time. On stop it drains whatever is already
// queued, then exits.
func (q *SoundCueQueue) work(cueCh chan Cue, stopCh, doneCh chan struct{}) {
	defer close(doneCh)
	for {
		select {
		case c := <-cueCh:
			q.play(c)
		case <-stopCh:
			for {
				select {
				case c := <-cueCh:
					q.play(c)
				default:
					return
				}
			}
		}
	}
}

// play sounds one cue note by note. PlayTone blocks per note, which is what
// serializes playback.
func (q *SoundCueQueue) play(c Cue) {
	for _, n := range c.Notes {
		if err := q.driver.PlayTone(n); err != nil {
			q.logger.Warn("tone failed", "cue", c.Name, "note", n.Name, "error", err)
			return
		}
	}
}
