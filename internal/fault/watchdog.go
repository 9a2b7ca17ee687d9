package fault

import (
	"fmt"
	"os"
	"sync"
	"time"

	"tools.zach/dev/faultwatch/internal/stackdump"
)

// ///////////////////////////////////////////////
// Watchdog
// ///////////////////////////////////////////////

// ScheduleOptions configures one [Watchdog.Schedule] call.
type ScheduleOptions struct {
	// Repeat re-arms the watchdog with the same delay after each
	// successful dump.
	Repeat bool
	// AllGoroutines dumps every goroutine rather than only the timer's
	// own. Requires resolving the calling context through the goroutine
	// directory; an unresolvable context counts as a failed dump.
	AllGoroutines bool
	// Output is the dump destination, captured once at schedule time.
	// Nil means stderr.
	Output *os.File
}

// Watchdog emits diagnostic dumps on a delay or repeating interval,
// independent of any fault, for diagnosing hangs. It is a two-state
// machine: IDLE until Schedule arms it, ARMED until the countdown fires or
// Cancel disarms it. At most one countdown is armed at a time; Schedule
// replaces any previous one wholesale.
type Watchdog struct {
	mu sync.Mutex

	armed bool
	// gen invalidates in-flight timer callbacks across re-schedules and
	// cancels: a callback whose generation is stale returns untouched.
	gen uint64

	timer    *time.Timer
	out      stackdump.FD
	delay    int
	repeat   bool
	all      bool
	reporter *stackdump.Reporter

	// tick is the unit a delay is multiplied by. One second in
	// production; tests shrink it to keep runs fast.
	tick time.Duration
}

// NewWatchdog returns an idle watchdog.
func NewWatchdog() *Watchdog {
	return &Watchdog{
		reporter: stackdump.NewReporter(0),
		tick:     time.Second,
	}
}

// Schedule arms the watchdog to dump after delaySeconds, replacing any
// previously armed countdown. A non-positive delay returns
// [ErrNonPositiveDelay] without touching the current state; a failed
// descriptor capture likewise leaves any prior countdown armed.
func (w *Watchdog) Schedule(delaySeconds int, opts ScheduleOptions) error {
	if delaySeconds <= 0 {
		return fmt.Errorf("%w: got %d", ErrNonPositiveDelay, delaySeconds)
	}

	target := opts.Output
	if target == nil {
		target = os.Stderr
	}
	out, err := stackdump.Capture(target)
	if err != nil {
		return fmt.Errorf("schedule watchdog: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.disarmLocked()

	w.out = out
	w.delay = delaySeconds
	w.repeat = opts.Repeat
	w.all = opts.AllGoroutines
	w.armed = true

	gen := w.gen
	w.timer = time.AfterFunc(time.Duration(delaySeconds)*w.tick, func() { w.fire(gen) })
	return nil
}

// Cancel disarms any pending countdown. Always succeeds; calling it while
// idle is a no-op. Synchronous: when Cancel returns, no future dump from
// the previous schedule can occur.
func (w *Watchdog) Cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.disarmLocked()
}

// Armed reports whether a countdown is pending.
func (w *Watchdog) Armed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.armed
}

// disarmLocked stops the countdown, releases the captured descriptor, and
// bumps the generation so an already-fired callback waiting on the mutex
// becomes a no-op.
func (w *Watchdog) disarmLocked() {
	w.gen++
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.armed = false
	w.out.Close()
}

// ///////////////////////////////////////////////
// Fire Path
// ///////////////////////////////////////////////

// fire runs in the timer goroutine. It holds the mutex for the whole dump,
// so Cancel and Schedule serialize against an in-progress dump instead of
// racing the descriptor.
func (w *Watchdog) fire(gen uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.armed || gen != w.gen {
		return
	}

	ok := w.dumpLocked()
	if ok && w.repeat {
		w.timer = time.AfterFunc(time.Duration(w.delay)*w.tick, func() { w.fire(gen) })
		return
	}
	w.disarmLocked()
}

// dumpLocked writes one watchdog dump and reports success. Runs in normal
// goroutine context (not a signal handler), so formatting the header may
// allocate.
func (w *Watchdog) dumpLocked() bool {
	header := fmt.Appendf(nil, "Watchdog timeout (%ds):\n\n", w.delay)
	if err := w.out.Write(header); err != nil {
		return false
	}

	if w.all {
		if _, ok := stackdump.Current(); !ok {
			// Cannot resolve the calling context; treat as a failed dump.
			return false
		}
		return w.reporter.DumpAll(w.out) == nil
	}
	return w.reporter.DumpCurrent(w.out) == nil
}
