package feedback

import "github.com/codemusic/go-roverseer/pkg/pipeline"

// Pattern produces the LED frame for a given animation tick.
type Pattern func(tick int) Frame

// Strip colors for the pipeline stages, matching the rover's LED scheme:
// green for input, blue for reasoning, purple for synthesis, amber for
// playback, red for faults.
var (
	colorListen   = Color{G: 180}
	colorThink    = Color{B: 200}
	colorGenerate = Color{R: 120, B: 200}
	colorSpeak    = Color{R: 200, G: 120}
	colorFault    = Color{R: 220}
)

// PatternFor returns the continuous pattern for a pipeline state.
// Idle has no pattern; the strip is cleared instead.
func PatternFor(s pipeline.State) Pattern {
	switch s {
	case pipeline.StateListening:
		return pulse(colorListen)
	case pipeline.StateThinking:
		return spinner(colorThink)
	case pipeline.StateGenerating:
		return sweep(colorGenerate)
	case pipeline.StateSpeaking:
		return meter(colorSpeak)
	case pipeline.StateError:
		return flash(colorFault)
	default:
		return nil
	}
}

// pulse fades the whole strip in and out.
func pulse(c Color) Pattern {
	return func(tick int) Frame {
		// Triangle wave over a 20-tick period.
		phase := tick % 20
		if phase >= 10 {
			phase = 20 - phase
		}
		scaled := scale(c, phase, 10)
		var f Frame
		for i := range f {
			f[i] = scaled
		}
		return f
	}
}

// spinner walks a single lit LED around the strip.
func spinner(c Color) Pattern {
	return func(tick int) Frame {
		var f Frame
		f[tick%len(f)] = c
		return f
	}
}

// sweep fills the strip left to right, then restarts.
func sweep(c Color) Pattern {
	return func(tick int) Frame {
		var f Frame
		n := tick % (len(f) + 1)
		for i := 0; i < n; i++ {
			f[i] = c
		}
		return f
	}
}

// meter lights a centered bar of varying width, like a VU meter.
func meter(c Color) Pattern {
	return func(tick int) Frame {
		var f Frame
		width := tick % len(f)
		if width > len(f)/2 {
			width = len(f) - width
		}
		mid := len(f) / 2
		for i := mid - width; i <= mid+width; i++ {
			f[i] = c
		}
		return f
	}
}

// flash alternates the whole strip on and off.
func flash(c Color) Pattern {
	return func(tick int) Frame {
		var f Frame
		if tick%2 == 0 {
			for i := range f {
				f[i] = c
			}
		}
		return f
	}
}

// scale dims c by num/den.
func scale(c Color, num, den int) Color {
	return Color{
		R: uint8(int(c.R) * num / den),
		G: uint8(int(c.G) * num / den),
		B: uint8(int(c.B) * num / den),
	}
}
