package feedback

import (
	"hash/fnv"
	"strings"
	"time"
)

// Cue is a short non-speech sound effect signaling a transition.
type Cue struct {
	Name  string
	Notes []Note
}

func note(name string, ms int) Note {
	return Note{Name: name, Duration: time.Duration(ms) * time.Millisecond}
}

// StartupCue is the ascending boot melody, pentatonic so it stays pleasant
// through a tiny piezo.
func StartupCue() Cue {
	return Cue{
		Name: "startup",
		Notes: []Note{
			note("C4", 200), note("D4", 180), note("E4", 160), note("G4", 140),
			note("A4", 120), note("C5", 150), note("D5", 120), note("G5", 350),
		},
	}
}

// ConfirmationCue acknowledges that the rover started listening.
func ConfirmationCue() Cue {
	return Cue{
		Name:  "confirmation",
		Notes: []Note{note("C5", 80), note("E5", 80), note("G5", 120)},
	}
}

// RecordingCompleteCue marks the end of a listening session.
func RecordingCompleteCue() Cue {
	return Cue{
		Name:  "recording_complete",
		Notes: []Note{note("G5", 80), note("E5", 80), note("C5", 140)},
	}
}

// ErrorCue is the descending fault tune.
func ErrorCue() Cue {
	return Cue{
		Name:  "error",
		Notes: []Note{note("E4", 150), note("C4", 150), note("A3", 300)},
	}
}

// BicameralCue plays when the two minds connect: two alternating voices
// resolving on a shared note.
func BicameralCue() Cue {
	return Cue{
		Name: "bicameral",
		Notes: []Note{
			note("C4", 120), note("G4", 120), note("D4", 120), note("A4", 120),
			note("E4", 120), note("B4", 120), note("G4", 250),
		},
	}
}

// modelPalette is the note pool for per-model tunes.
var modelPalette = []string{
	"C4", "D4", "E4", "F4", "G4", "A4", "B4",
	"C5", "D5", "E5", "F5", "G5",
}

// ModelCue derives a short, stable melody from a model name, so the ear
// learns which model is thinking. Only the base name (before any tag colon)
// participates, keeping "llama3:8b" and "llama3:70b" on the same tune.
func ModelCue(model string) Cue {
	base := model
	if i := strings.IndexByte(model, ':'); i >= 0 {
		base = model[:i]
	}

	h := fnv.New32a()
	h.Write([]byte(base))
	seed := h.Sum32()

	count := 3 + int(seed%3) // 3-5 notes
	notes := make([]Note, 0, count)
	for i := 0; i < count; i++ {
		idx := int(seed>>uint(i*4)) % len(modelPalette)
		dur := 90 + int((seed>>uint(i*3))%4)*30
		notes = append(notes, note(modelPalette[idx], dur))
	}
	return Cue{Name: "model:" + base, Notes: notes}
}
