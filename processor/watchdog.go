package processor

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"jvmScope/clock"
)

var (
	// ErrWatchdogRunning is returned by Start on a watchdog that is
	// already armed.
	ErrWatchdogRunning = errors.New("watchdog already started")
	// ErrWatchdogNotStarted is returned by Reset and Stop before Start.
	ErrWatchdogNotStarted = errors.New("watchdog not started")
	// ErrInvalidInterval is returned by NewWatchdog for an interval that
	// is not positive.
	ErrInvalidInterval = errors.New("watchdog interval must be positive")
)

// Watchdog invokes a callback after interval passes without a Reset.
// After firing it re-arms itself, so an idle watchdog fires once per
// interval until stopped.
type Watchdog struct {
	clock    clock.Clock
	interval time.Duration
	callback func()

	mu      sync.Mutex
	started bool
	timer   *clock.Timer
	// generation is bumped on every re-arm so that a timer which fired
	// concurrently with Reset or Stop does not run the callback.
	generation uint64
}

// NewWatchdog creates a stopped watchdog.
func NewWatchdog(clk clock.Clock, interval time.Duration, callback func()) (*Watchdog, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("%w, got %v", ErrInvalidInterval, interval)
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &Watchdog{
		clock:    clk,
		interval: interval,
		callback: callback,
	}, nil
}

// Start arms the watchdog.
func (w *Watchdog) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return ErrWatchdogRunning
	}
	w.started = true
	w.armLocked()
	return nil
}

// Reset postpones the next firing to one interval from now.
func (w *Watchdog) Reset() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return ErrWatchdogNotStarted
	}
	w.timer.Stop()
	w.armLocked()
	return nil
}

// Stop cancels any pending firing. A callback that is already running
// is not interrupted.
func (w *Watchdog) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return ErrWatchdogNotStarted
	}
	w.started = false
	w.generation++
	w.timer.Stop()
	w.timer = nil
	return nil
}

// Running reports whether the watchdog is armed.
func (w *Watchdog) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.started
}

func (w *Watchdog) armLocked() {
	w.generation++
	generation := w.generation
	w.timer = w.clock.AfterFunc(w.interval, func() { w.fire(generation) })
}

func (w *Watchdog) fire(generation uint64) {
	w.mu.Lock()
	if !w.started || generation != w.generation {
		w.mu.Unlock()
		return
	}
	w.armLocked()
	w.mu.Unlock()

	w.callback()
}
