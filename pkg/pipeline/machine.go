package pipeline

import (
	"log/slog"
	"sync"
	"time"
)

// StateMachine is the turn-level state machine with an ordered observer list.
//
// TransitionTo is the only mutator. Callers must serialize turn-driving
// calls per machine (the admission gate upstream guarantees this for the
// normal flow); reads are safe from any goroutine.
type StateMachine struct {
	mu        sync.Mutex
	current   State
	observers []Observer
	logger    *slog.Logger
}

// NewStateMachine creates a machine starting in StateIdle.
func NewStateMachine() *StateMachine {
	return &StateMachine{
		current: StateIdle,
		logger:  slog.Default().With("component", "pipeline.machine"),
	}
}

// SetLogger replaces the machine's logger.
func (m *StateMachine) SetLogger(logger *slog.Logger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logger = logger.With("component", "pipeline.machine")
}

// Current returns the live state.
func (m *StateMachine) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// IsBusy reports whether the machine is in any state other than Idle.
func (m *StateMachine) IsBusy() bool {
	return m.Current() != StateIdle
}

// AddObserver appends an observer. Notification order equals registration
// order. Safe to call from inside a notification callback.
func (m *StateMachine) AddObserver(o Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, o)
}

// RemoveObserver removes the first registration of o. Removing an observer
// during a notification pass does not affect that pass: notification
// iterates a snapshot taken at transition time.
func (m *StateMachine) RemoveObserver(o Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.observers {
		if existing == o {
			m.observers = append(m.observers[:i:i], m.observers[i+1:]...)
			return
		}
	}
}

// TransitionTo moves to target if the edge exists in the transition table,
// then notifies every observer with (old, target) in registration order.
// Use Fail and Reset for the universal error and reset edges.
func (m *StateMachine) TransitionTo(target State) error {
	m.mu.Lock()
	old := m.current
	if !canTransition(old, target) {
		m.mu.Unlock()
		return &TransitionError{From: old, To: target}
	}
	m.apply(old, target)
	return nil
}

// Fail forces the machine into StateError from any state.
func (m *StateMachine) Fail() {
	m.mu.Lock()
	old := m.current
	m.apply(old, StateError)
}

// Reset forces the machine back to StateIdle from any state. This is the
// explicit recovery edge; it also serves controller resets mid-turn.
func (m *StateMachine) Reset() {
	m.mu.Lock()
	old := m.current
	m.apply(old, StateIdle)
}

// apply mutates state and notifies observers. Called with mu held; releases
// it before notifying so callbacks may add or remove observers.
func (m *StateMachine) apply(old, target State) {
	m.current = target
	snapshot := make([]Observer, len(m.observers))
	copy(snapshot, m.observers)
	logger := m.logger
	m.mu.Unlock()

	tr := Transition{From: old, To: target, At: time.Now()}
	logger.Info("state transition", "from", tr.From.String(), "to", tr.To.String())

	// The mutation already happened; a failing observer must not block the
	// rest of the list.
	for _, o := range snapshot {
		m.notify(o, old, target, logger)
	}
}

// notify invokes one observer, containing panics.
func (m *StateMachine) notify(o Observer, old, target State, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("observer panic during transition",
				"from", old.String(),
				"to", target.String(),
				"panic", r,
			)
		}
	}()
	o.OnTransition(old, target)
}

// Convenience transitions matching the turn flow.

// StartListening moves Idle -> Listening.
func (m *StateMachine) StartListening() error { return m.TransitionTo(StateListening) }

// StopListening moves Listening -> Idle without running a turn.
func (m *StateMachine) StopListening() error { return m.TransitionTo(StateIdle) }

// StartThinking moves Idle or Listening -> Thinking.
func (m *StateMachine) StartThinking() error { return m.TransitionTo(StateThinking) }

// StartGenerating moves Thinking -> Generating.
func (m *StateMachine) StartGenerating() error { return m.TransitionTo(StateGenerating) }

// StartSpeaking moves Generating -> Speaking.
func (m *StateMachine) StartSpeaking() error { return m.TransitionTo(StateSpeaking) }

// Complete moves Speaking -> Idle at the end of a turn.
func (m *StateMachine) Complete() error { return m.TransitionTo(StateIdle) }
