package timectrl

import (
	"fmt"
	"math"
	"sync"
)

// stepTolerance keeps duration/step from losing the final tick to float error.
const stepTolerance = 1e-9

// Clock exposes the current simulation time in seconds. Observers depend on
// it rather than on the concrete controller.
type Clock interface {
	Now() float64
}

// Tick identifies one simulation step. Time is Index*Step, computed rather
// than accumulated, so long runs do not drift.
type Tick struct {
	Index int
	Time  float64
}

// TickController walks simulation time from 0 to a duration, inclusive, in
// fixed steps and notifies registered listeners synchronously on each tick.
type TickController struct {
	mu sync.RWMutex

	step  float64
	total int
	next  int
	now   float64

	listeners []func(Tick)
}

// NewTickController constructs a controller covering [0, duration].
func NewTickController(step, duration float64) (*TickController, error) {
	if !(step > 0) || math.IsInf(step, 0) {
		return nil, fmt.Errorf("tick step must be positive and finite, got %v", step)
	}
	if !(duration >= 0) || math.IsInf(duration, 0) {
		return nil, fmt.Errorf("duration must be non-negative and finite, got %v", duration)
	}
	return &TickController{
		step:  step,
		total: int(math.Floor(duration/step+stepTolerance)) + 1,
	}, nil
}

// Step returns the tick length in seconds.
func (tc *TickController) Step() float64 { return tc.step }

// Total returns the number of ticks in the run, including t = 0.
func (tc *TickController) Total() int { return tc.total }

// Now returns the time of the most recently issued tick. Implements Clock.
func (tc *TickController) Now() float64 {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.now
}

// Done reports whether every tick has been issued.
func (tc *TickController) Done() bool {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.next >= tc.total
}

// AddListener registers a callback invoked on every tick.
func (tc *TickController) AddListener(fn func(Tick)) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.listeners = append(tc.listeners, fn)
}

// Advance issues the next tick, notifying listeners before returning it. It
// returns false once the run is exhausted.
func (tc *TickController) Advance() (Tick, bool) {
	tc.mu.Lock()
	if tc.next >= tc.total {
		tc.mu.Unlock()
		return Tick{}, false
	}
	tick := Tick{Index: tc.next, Time: float64(tc.next) * tc.step}
	tc.next++
	tc.now = tick.Time
	listeners := append([]func(Tick){}, tc.listeners...)
	tc.mu.Unlock()

	for _, fn := range listeners {
		fn(tick)
	}
	return tick, true
}
