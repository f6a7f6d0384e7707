// Package flush provides the built-in flush strategies effects schedule
// through: transformations from "run this thunk" into a scheduled version,
// per spec.md §4.3/§4.4. It has no dependency on reactor/internal's
// concrete types — Strategy's method set is identical to
// internal.Scheduler's, so any Strategy value is directly usable wherever
// an internal.Scheduler is expected, without either package importing the
// other.
package flush

import (
	"sync"
	"time"
)

// Strategy transforms a scheduled run into a deferred or coalesced one.
// Schedule is called once per invalidation; a well-behaved strategy
// coalesces repeat calls arriving before the previous one has fired.
// Cancel discards any pending run (called on effect disposal).
type Strategy interface {
	Schedule(run func())
	Cancel()
}

// Sync runs the thunk inline, synchronously, on the goroutine that
// triggered the invalidation — the default for NewEffect when no Flush
// option is given.
func Sync() Strategy { return syncStrategy{} }

type syncStrategy struct{}

func (syncStrategy) Schedule(run func()) { run() }
func (syncStrategy) Cancel()             {}

// pump is the shared shape behind Microtask/AnimationFrame/Idle/Debounce:
// each Schedule stores run as the single pending run and (re)starts a
// time.AfterFunc timer, so repeat Schedule calls made before the timer
// fires collapse into one run (spec.md §4.3 "idempotent scheduling"),
// executed on the timer's own goroutine. There is no host
// event loop in a server-side Go binary to hook a real microtask/rAF/idle
// callback into, so all three degrade to "run on a dedicated goroutine as
// soon as it's free", differing only in an artificial delay meant to
// approximate their relative urgency.
type pump struct {
	mu      sync.Mutex
	pending func()
	delay   time.Duration
	timer   *time.Timer
	done    chan struct{}
	once    sync.Once
}

func newPump(delay time.Duration) *pump {
	return &pump{delay: delay, done: make(chan struct{})}
}

func (p *pump) Schedule(run func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pending = run
	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = time.AfterFunc(p.delay, p.fire)
}

func (p *pump) fire() {
	p.mu.Lock()
	run := p.pending
	p.pending = nil
	p.timer = nil
	p.mu.Unlock()

	if run != nil {
		run()
	}
}

func (p *pump) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.pending = nil
}

// Microtask approximates JS's microtask queue: runs as soon as possible,
// just not synchronously inline.
func Microtask() Strategy { return newPump(0) }

// AnimationFrame approximates requestAnimationFrame's ~60Hz cadence.
func AnimationFrame() Strategy { return newPump(16 * time.Millisecond) }

// Idle approximates requestIdleCallback: lower priority than
// AnimationFrame, given a longer artificial delay.
func Idle() Strategy { return newPump(50 * time.Millisecond) }

// Debounce defers the run until d has elapsed with no further Schedule
// calls — each call resets the window, exactly like the pack's own
// batch-window timer pattern (accumulate, reset on each arrival, fire once
// quiescent).
func Debounce(d time.Duration) Strategy { return newPump(d) }

// Throttle runs at most once per d: the first Schedule call in a window
// fires immediately (leading edge); calls arriving before the cooldown
// elapses are coalesced into one trailing run at the window's end.
func Throttle(d time.Duration) Strategy {
	return &throttleStrategy{interval: d}
}

type throttleStrategy struct {
	mu       sync.Mutex
	interval time.Duration
	timer    *time.Timer
	lastRun  time.Time
	trailing func()
}

func (t *throttleStrategy) Schedule(run func()) {
	t.mu.Lock()
	since := time.Since(t.lastRun)
	leading := t.lastRun.IsZero() || since >= t.interval
	if leading {
		t.lastRun = time.Now()
	} else {
		t.trailing = run
		if t.timer == nil {
			t.timer = time.AfterFunc(t.interval-since, t.fireTrailing)
		}
	}
	t.mu.Unlock()

	if leading {
		run()
	}
}

func (t *throttleStrategy) fireTrailing() {
	t.mu.Lock()
	run := t.trailing
	t.trailing = nil
	t.timer = nil
	t.lastRun = time.Now()
	t.mu.Unlock()

	if run != nil {
		run()
	}
}

func (t *throttleStrategy) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.trailing = nil
}

// Custom wraps an arbitrary scheduling function as a Strategy with a no-op
// Cancel — for callers who need a one-off scheduling policy without
// writing a full Strategy implementation.
func Custom(schedule func(run func())) Strategy {
	return customStrategy{schedule: schedule}
}

type customStrategy struct {
	schedule func(run func())
}

func (c customStrategy) Schedule(run func()) { c.schedule(run) }
func (c customStrategy) Cancel()             {}
