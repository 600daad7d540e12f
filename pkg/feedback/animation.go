package feedback

import (
	"log/slog"
	"sync"
	"time"

	"github.com/codemusic/go-roverseer/pkg/pipeline"
)

// DefaultFrameInterval is the animation tick rate.
const DefaultFrameInterval = 100 * time.Millisecond

// AnimationController maps a pipeline state to a continuous LED pattern.
// At most one animation loop runs at a time: starting a pattern for a new
// state first signals and joins the previous loop.
type AnimationController struct {
	driver   Driver
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	state   pipeline.State
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// NewAnimationController creates a controller over the given driver.
func NewAnimationController(driver Driver) *AnimationController {
	return &AnimationController{
		driver:   driver,
		interval: DefaultFrameInterval,
		logger:   slog.Default().With("component", "feedback.animation"),
	}
}

// SetFrameInterval overrides the tick rate. Useful in tests.
func (a *AnimationController) SetFrameInterval(d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if d > 0 {
		a.interval = d
	}
}

// Set switches the hardware feedback to the pattern for state and puts
// the state name on the display.
// Blocks until the previous animation loop has exited, guaranteeing the
// two never compete for the strip.
func (a *AnimationController) Set(state pipeline.State) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.running && a.state == state {
		return
	}
	a.stopLocked()
	a.state = state

	if err := a.driver.ShowText(state.String()); err != nil {
		a.logger.Warn("show text failed", "state", state.String(), "error", err)
	}

	pattern := PatternFor(state)
	if pattern == nil {
		if err := a.driver.Clear(); err != nil {
			a.logger.Warn("clear failed", "error", err)
		}
		return
	}

	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	a.running = true
	go a.run(state, pattern, a.interval, a.stopCh, a.doneCh)
}

// State returns the state the controller is currently animating.
func (a *AnimationController) State() pipeline.State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Running reports whether an animation loop is live.
func (a *AnimationController) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

// StopAll stops any running animation and blanks the strip.
func (a *AnimationController) StopAll() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopLocked()
	a.state = pipeline.StateIdle
	if err := a.driver.Clear(); err != nil {
		a.logger.Warn("clear failed", "error", err)
	}
}

// stopLocked signals the current loop and joins it. Caller holds mu.
func (a *AnimationController) stopLocked() {
	if !a.running {
		return
	}
	close(a.stopCh)
	<-a.doneCh
	a.running = false
}

// run is the animation loop: one frame per tick until stopped.
func (a *AnimationController) run(state pipeline.State, pattern Pattern, interval time.Duration, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	tick := 0
	// Paint the first frame immediately so feedback is not a tick late.
	if err := a.driver.SetLEDs(pattern(tick)); err != nil {
		a.logger.Warn("set leds failed", "state", state.String(), "error", err)
	}

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			tick++
			if err := a.driver.SetLEDs(pattern(tick)); err != nil {
				a.logger.Warn("set leds failed", "state", state.String(), "error", err)
			}
		}
	}
}
