package pipeline

import "sync"

// Gate is the admission gate bounding the number of concurrent turns.
// Over-capacity requests fail fast; nothing queues on the device, which has
// a single audio output and one set of hardware indicators.
type Gate struct {
	mu     sync.Mutex
	active int
	max    int
}

// NewGate creates a gate admitting at most max concurrent turns.
// A max below 1 is treated as 1.
func NewGate(max int) *Gate {
	if max < 1 {
		max = 1
	}
	return &Gate{max: max}
}

// TryAcquire admits a turn if capacity remains. Never blocks.
func (g *Gate) TryAcquire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active >= g.max {
		return false
	}
	g.active++
	return true
}

// Release returns one admission. Floored at zero; callers must pair one
// Release with each successful TryAcquire.
func (g *Gate) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active > 0 {
		g.active--
	}
}

// Configure updates the ceiling. In-flight turns are not evicted: if the
// new ceiling is below the active count, admissions resume only once
// enough releases have happened.
func (g *Gate) Configure(max int) {
	if max < 1 {
		max = 1
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.max = max
}

// Active returns the number of admitted turns.
func (g *Gate) Active() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}

// Max returns the configured ceiling.
func (g *Gate) Max() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.max
}
