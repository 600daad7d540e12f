package pipeline

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	// ErrCapacityExceeded is returned when the admission gate is full.
	// Callers should retry later or queue outside the device.
	ErrCapacityExceeded = errors.New("pipeline: concurrent turn limit reached")
)

// TransitionError is returned when a requested transition is absent from
// the transition table.
type TransitionError struct {
	From State
	To   State
}

// Error implements the error interface.
func (e *TransitionError) Error() string {
	return fmt.Sprintf("pipeline: invalid transition %s -> %s", e.From, e.To)
}

// IsInvalidTransition reports whether err is a TransitionError.
func IsInvalidTransition(err error) bool {
	var te *TransitionError
	return errors.As(err, &te)
}
