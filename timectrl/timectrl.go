package timectrl

import (
	"context"
	"sync"
	"time"
)

// TickScale converts the animation-speed multiplier into radians of orbital
// phase advanced per tick.
const TickScale = 0.01

// DefaultInterval is one display frame at 60 Hz.
const DefaultInterval = time.Second / 60

// Mode describes how the TimeController paces ticks.
type Mode int

const (
	// RealTime ticks once per Interval of wall-clock time.
	RealTime Mode = iota
	// Accelerated ticks as quickly as the loop can run.
	Accelerated
)

func (m Mode) String() string {
	switch m {
	case RealTime:
		return "realtime"
	case Accelerated:
		return "accelerated"
	default:
		return "unknown"
	}
}

// PhaseClock is the simulation clock: a monotonically increasing orbital
// phase advanced by AnimationSpeed*TickScale radians per tick. It is
// decoupled from wall-clock time and safe for concurrent use.
type PhaseClock struct {
	mu             sync.RWMutex
	phase          float64
	ticks          uint64
	animationSpeed float64
}

// NewPhaseClock returns a clock at phase zero.
func NewPhaseClock(animationSpeed float64) *PhaseClock {
	return &PhaseClock{animationSpeed: max(animationSpeed, 0)}
}

// Phase returns the current orbital phase in radians.
func (c *PhaseClock) Phase() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.phase
}

// Ticks returns how many times the clock advanced since the last reset.
func (c *PhaseClock) Ticks() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ticks
}

// AnimationSpeed returns the current multiplier.
func (c *PhaseClock) AnimationSpeed() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.animationSpeed
}

// SetAnimationSpeed changes the multiplier applied from the next tick on.
// Negative speeds are treated as zero so the phase never decreases.
func (c *PhaseClock) SetAnimationSpeed(speed float64) {
	c.mu.Lock()
	c.animationSpeed = max(speed, 0)
	c.mu.Unlock()
}

// TickDelta returns the phase increment of one tick.
func (c *PhaseClock) TickDelta() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.animationSpeed * TickScale
}

// Advance moves the clock forward by one tick and returns the tick count
// and the new phase.
func (c *PhaseClock) Advance() (uint64, float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.phase += c.animationSpeed * TickScale
	c.ticks++
	return c.ticks, c.phase
}

// Reset returns the clock to phase zero, as at the start of a new run.
func (c *PhaseClock) Reset() {
	c.mu.Lock()
	c.phase = 0
	c.ticks = 0
	c.mu.Unlock()
}

// Tick is delivered to listeners after every clock advance.
type Tick struct {
	Seq   uint64
	Phase float64
	At    time.Time
}

// TimeController drives a PhaseClock and notifies registered listeners.
// Listeners run on the controller's goroutine, one tick at a time.
type TimeController struct {
	Clock    *PhaseClock
	Interval time.Duration
	Mode     Mode

	mu        sync.RWMutex
	listeners []func(Tick)
}

// NewTimeController constructs a controller.
func NewTimeController(clock *PhaseClock, interval time.Duration, mode Mode) *TimeController {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &TimeController{
		Clock:    clock,
		Interval: interval,
		Mode:     mode,
	}
}

// AddListener registers a callback invoked on every tick.
func (tc *TimeController) AddListener(fn func(Tick)) {
	tc.mu.Lock()
	tc.listeners = append(tc.listeners, fn)
	tc.mu.Unlock()
}

// Step advances the clock once and notifies listeners synchronously.
func (tc *TimeController) Step() Tick {
	seq, phase := tc.Clock.Advance()
	tick := Tick{Seq: seq, Phase: phase, At: time.Now()}

	tc.mu.RLock()
	listeners := append([]func(Tick){}, tc.listeners...)
	tc.mu.RUnlock()

	for _, fn := range listeners {
		fn(tick)
	}
	return tick
}

// Start runs the controller in a separate goroutine until ctx is cancelled
// or maxTicks ticks have been delivered (0 means no limit). It returns a
// channel that is closed when the controller finishes.
func (tc *TimeController) Start(ctx context.Context, maxTicks uint64) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		var ticker *time.Ticker
		if tc.Mode == RealTime {
			ticker = time.NewTicker(tc.Interval)
			defer ticker.Stop()
		}

		var delivered uint64
		for {
			if maxTicks > 0 && delivered >= maxTicks {
				return
			}

			if ticker != nil {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
				}
			} else if ctx.Err() != nil {
				return
			}

			tc.Step()
			delivered++
		}
	}()
	return done
}
