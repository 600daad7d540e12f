package feedback

import (
	"testing"
	"time"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestSoundCueQueue(t *testing.T) {
	t.Run("plays cues in order", func(t *testing.T) {
		driver := NewMockDriver()
		q := NewSoundCueQueue(driver)
		q.Start()
		defer q.Stop()

		q.Enqueue(ConfirmationCue())
		q.Enqueue(RecordingCompleteCue())

		want := len(ConfirmationCue().Notes) + len(RecordingCompleteCue().Notes)
		waitFor(t, time.Second, func() bool { return len(driver.Tones()) == want })

		tones := driver.Tones()
		if tones[0].Name != ConfirmationCue().Notes[0].Name {
			t.Errorf("first tone should come from the first cue, got %s", tones[0].Name)
		}
	})

	t.Run("enqueue while stopped drops silently", func(t *testing.T) {
		driver := NewMockDriver()
		q := NewSoundCueQueue(driver)

		q.Enqueue(ErrorCue())
		time.Sleep(10 * time.Millisecond)
		if len(driver.Tones()) != 0 {
			t.Error("no tones expected while worker is down")
		}
	})

	t.Run("stop drains queued cues", func(t *testing.T) {
		driver := NewMockDriver()
		q := NewSoundCueQueue(driver)
		q.Start()

		q.Enqueue(ConfirmationCue())
		q.Enqueue(ErrorCue())
		q.Stop()

		want := len(ConfirmationCue().Notes) + len(ErrorCue().Notes)
		if got := len(driver.Tones()); got != want {
			t.Errorf("expected %d tones after drain, got %d", want, got)
		}
	})

	t.Run("start and stop are idempotent", func(t *testing.T) {
		q := NewSoundCueQueue(NewMockDriver())
		q.Start()
		q.Start()
		q.Stop()
		q.Stop()
		if q.Running() {
			t.Error("expected stopped")
		}
		q.Start()
		if !q.Running() {
			t.Error("expected running after restart")
		}
		q.Stop()
	})
}

func TestModelCue(t *testing.T) {
	t.Run("deterministic per model", func(t *testing.T) {
		a := ModelCue("llama3:8b")
		b := ModelCue("llama3:70b")
		if a.Name != b.Name {
			t.Errorf("tag variants should share a tune name: %s vs %s", a.Name, b.Name)
		}
		if len(a.Notes) != len(b.Notes) {
			t.Error("tag variants should share a tune")
		}
	})

	t.Run("between three and five notes", func(t *testing.T) {
		for _, m := range []string{"tinydolphin:1.1b", "mistral", "gemma:2b", "qwen2"} {
			c := ModelCue(m)
			if len(c.Notes) < 3 || len(c.Notes) > 5 {
				t.Errorf("model %s: expected 3-5 notes, got %d", m, len(c.Notes))
			}
		}
	})

	t.Run("different models differ", func(t *testing.T) {
		a := ModelCue("mistral")
		b := ModelCue("gemma")
		if a.Name == b.Name {
			t.Error("distinct models should get distinct tune names")
		}
	})
}
