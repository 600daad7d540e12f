// Package pipeline implements the turn-level state machine for the rover.
//
// One conversational turn moves through Idle -> Listening -> Thinking ->
// Generating -> Speaking and back to Idle. The StateMachine owns the single
// source of truth for "what is the device doing" and notifies registered
// observers synchronously on every transition, in registration order.
//
// Example usage:
//
//	sm := pipeline.NewStateMachine()
//	sm.AddObserver(controller)
//	_ = sm.StartListening()
//	// ...
//	_ = sm.Complete()
package pipeline

import "time"

// State represents one stage of the processing pipeline.
type State int

const (
	// StateIdle means the system is at rest.
	StateIdle State = iota

	// StateListening means the device is recording or receiving input.
	StateListening

	// StateThinking means a model is reasoning over the prompt.
	StateThinking

	// StateGenerating means speech synthesis is in progress.
	StateGenerating

	// StateSpeaking means audio playback is in progress.
	StateSpeaking

	// StateError means the last turn failed; reset to recover.
	StateError
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateThinking:
		return "thinking"
	case StateGenerating:
		return "generating"
	case StateSpeaking:
		return "speaking"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Transition records one state change. It is ephemeral: built for observer
// notification and never persisted.
type Transition struct {
	From State
	To   State
	At   time.Time
}

// Observer receives state transitions. Implementations must not assume they
// are the only observer and must not block; notification is synchronous.
type Observer interface {
	OnTransition(old, new State)
}

// transitions is the set of legal edges, excluding the universal
// error and reset edges which Fail and Reset provide.
var transitions = map[State][]State{
	StateIdle:       {StateListening, StateThinking},
	StateListening:  {StateIdle, StateThinking},
	StateThinking:   {StateGenerating},
	StateGenerating: {StateSpeaking},
	StateSpeaking:   {StateIdle},
}

// canTransition reports whether from -> to is in the transition table.
func canTransition(from, to State) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}
