// Package feedback drives the rover's hardware feedback: the LED strip,
// the small display, and the piezo buzzer. The pipeline never touches
// hardware registers; everything goes through the Driver interface so the
// same animations and cues run against real hardware, a console, or a mock.
package feedback

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Color is one RGB LED value.
type Color struct {
	R, G, B uint8
}

// Frame is one full LED strip state. The rover has a 7-LED strip.
type Frame [7]Color

// Note is a single buzzer tone. Name uses scientific pitch notation
// ("C4", "G5"); implementations map it to a frequency.
type Note struct {
	Name     string
	Duration time.Duration
}

// Driver is the hardware feedback boundary.
// PlayTone blocks for the note's duration; SetLEDs and ShowText return
// immediately. Implementations must be safe for concurrent use.
type Driver interface {
	// SetLEDs applies a full strip frame.
	SetLEDs(f Frame) error

	// ShowText writes to the device display.
	ShowText(s string) error

	// PlayTone sounds one note on the buzzer, blocking for its duration.
	PlayTone(n Note) error

	// Clear blanks the strip and display and silences the buzzer.
	Clear() error
}

// MockDriver records every call for tests. Tones do not block.
type MockDriver struct {
	mu     sync.Mutex
	frames []Frame
	texts  []string
	tones  []Note
	clears int

	// ToneDelay, when set, makes PlayTone block to simulate hardware timing.
	ToneDelay time.Duration

	// Err, when set, is returned from every call.
	Err error
}

// NewMockDriver creates a mock driver.
func NewMockDriver() *MockDriver {
	return &MockDriver{}
}

// SetLEDs records the frame.
func (d *MockDriver) SetLEDs(f Frame) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.frames = append(d.frames, f)
	return d.Err
}

// ShowText records the text.
func (d *MockDriver) ShowText(s string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.texts = append(d.texts, s)
	return d.Err
}

// PlayTone records the note.
func (d *MockDriver) PlayTone(n Note) error {
	d.mu.Lock()
	d.tones = append(d.tones, n)
	err := d.Err
	delay := d.ToneDelay
	d.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	return err
}

// Clear records the call.
func (d *MockDriver) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clears++
	return d.Err
}

// Frames returns a copy of recorded frames.
func (d *MockDriver) Frames() []Frame {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Frame, len(d.frames))
	copy(out, d.frames)
	return out
}

// Tones returns a copy of recorded notes.
func (d *MockDriver) Tones() []Note {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Note, len(d.tones))
	copy(out, d.tones)
	return out
}

// Texts returns a copy of recorded display writes.
func (d *MockDriver) Texts() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.texts))
	copy(out, d.texts)
	return out
}

// Clears returns how many times Clear was called.
func (d *MockDriver) Clears() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.clears
}

// Reset forgets all recorded calls.
func (d *MockDriver) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.frames = nil
	d.texts = nil
	d.tones = nil
	d.clears = 0
}

// ConsoleDriver renders feedback to stdout for development without
// hardware. Tones block for their duration to keep cue timing realistic.
type ConsoleDriver struct {
	mu sync.Mutex
}

// NewConsoleDriver creates a console driver.
func NewConsoleDriver() *ConsoleDriver {
	return &ConsoleDriver{}
}

// SetLEDs prints a compact strip rendering.
func (d *ConsoleDriver) SetLEDs(f Frame) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var b strings.Builder
	for _, c := range f {
		if c == (Color{}) {
			b.WriteString(".")
		} else {
			b.WriteString("*")
		}
	}
	fmt.Printf("\r[leds %s]", b.String())
	return nil
}

// ShowText prints the display line.
func (d *ConsoleDriver) ShowText(s string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Printf("\n[display] %s\n", s)
	return nil
}

// PlayTone prints the note and sleeps its duration.
func (d *ConsoleDriver) PlayTone(n Note) error {
	d.mu.Lock()
	fmt.Printf("\n[tone] %s %s\n", n.Name, n.Duration)
	d.mu.Unlock()
	time.Sleep(n.Duration)
	return nil
}

// Clear prints nothing and resets the line.
func (d *ConsoleDriver) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Print("\r")
	return nil
}

// Verify implementations at compile time.
var (
	_ Driver = (*MockDriver)(nil)
	_ Driver = (*ConsoleDriver)(nil)
)
