package bicameral

import (
	"errors"
	"fmt"

	"github.com/codemusic/go-roverseer/pkg/inference"
)

// ErrEmptyPrompt is returned when Converge is given a blank prompt.
var ErrEmptyPrompt = errors.New("no prompt provided")

// Stage names the phase of the flow that failed.
type Stage string

const (
	StageFirstMind   Stage = "first_mind"
	StageSecondMind  Stage = "second_mind"
	StageConvergence Stage = "convergence"
)

// Error is a classified bicameral failure. Partial holds whatever the
// flow produced before the failing stage, so callers can log it.
type Error struct {
	Stage   Stage
	Model   string
	Partial *Result
	Err     error
}

func (e *Error) Error() string {
	switch {
	case errors.Is(e.Err, inference.ErrConnectionFailed):
		return fmt.Sprintf("bicameral %s: failed to connect to the completion service", e.Stage)
	case errors.Is(e.Err, inference.ErrModelNotFound):
		return fmt.Sprintf("bicameral %s: model not found: %s", e.Stage, e.Model)
	default:
		return fmt.Sprintf("bicameral %s failed: %v", e.Stage, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// classify wraps err with stage context and the partial result.
func classify(stage Stage, model string, partial *Result, err error) error {
	return &Error{Stage: stage, Model: model, Partial: partial, Err: err}
}
