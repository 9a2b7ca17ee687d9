// Package fault instruments the current process against fatal runtime
// faults (segmentation violation, illegal instruction, arithmetic
// exception, bus error) and provides a watchdog timer for diagnosing
// hangs.
//
// When a monitored signal is delivered, the handler restores that signal's
// prior disposition, writes a one-line header naming the fault, dumps a
// backtrace through internal/stackdump, and re-raises the signal so the
// process still terminates with the platform-default fault behavior. The
// restore happens before any output: if the dump itself re-triggers the
// same fault, the re-delivery hits the restored disposition rather than
// this handler, bounding recursion to one extra delivery.
//
// The crash path is restricted to operations that are safe while the
// interrupted code may hold arbitrary resources: no allocation after
// enable, no locks, only raw descriptor writes.
package fault

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"tools.zach/dev/faultwatch/internal/stackdump"
)

// ///////////////////////////////////////////////
// Options
// ///////////////////////////////////////////////

// Options configures a [Handler]. The zero value is valid: output goes to
// stderr, crash dumps cover the current goroutine only, and the reserve
// buffer gets [DefaultReserveBytes].
type Options struct {
	// Output is the dump destination. Its descriptor is duplicated once at
	// Enable; later redirection of the file does not move the dump target.
	// Nil means stderr.
	Output *os.File
	// AllGoroutines widens crash dumps from the handling goroutine to
	// every goroutine in the process.
	AllGoroutines bool
	// ReserveBytes sizes the preallocated dump buffer. Zero means
	// [DefaultReserveBytes]; a negative value disables the reserve, so
	// crash dumps allocate transiently.
	ReserveBytes int
}

// ///////////////////////////////////////////////
// Handler
// ///////////////////////////////////////////////

// Handler owns the fatal-signal registry and its lifecycle. It is the one
// process-wide context object for fault handling: created inert by [New],
// populated by [Handler.Enable], torn down exactly once by
// [Handler.Close]. All methods are safe for concurrent use; the crash
// dispatch itself runs lock-free against a registry that Enable/Disable
// only touch while no fault is in flight for the affected entries.
type Handler struct {
	mu       sync.Mutex
	opts     Options
	enabled  bool
	entries  []*entry
	out      stackdump.FD
	ch       chan os.Signal
	done     chan struct{}
	reporter *stackdump.Reporter

	// raise re-delivers a signal to the process after the dump. Tests
	// override it to observe the crash path without dying.
	raise func(sig syscall.Signal) error

	closeOnce sync.Once
}

// New returns an inert Handler. Nothing is installed until Enable.
func New(opts Options) *Handler {
	if opts.ReserveBytes == 0 {
		opts.ReserveBytes = DefaultReserveBytes
	}
	return &Handler{
		opts:  opts,
		raise: stackdump.Raise,
	}
}

// Enable captures the output descriptor, reserves the dump buffer, and
// installs the crash handler for every signal in the platform's fatal set.
// Idempotent: a second call while enabled is a successful no-op. On
// descriptor-capture failure the handler stays fully disabled and the
// error is returned; reserve-buffer failure is non-fatal and silently
// degrades the dump path.
func (h *Handler) Enable() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.enabled {
		return nil
	}

	target := h.opts.Output
	if target == nil {
		target = os.Stderr
	}
	out, err := stackdump.Capture(target)
	if err != nil {
		return fmt.Errorf("enable fault handler: %w", err)
	}
	h.out = out

	// The global flag flips before per-signal installation, matching the
	// registry's documented lifecycle: entries observe an enabled handler.
	h.enabled = true

	// Best-effort reserve. A nil buffer leaves the reporter in degraded
	// mode; crash dumps still work, they just allocate.
	h.reporter = stackdump.NewReporterBuf(allocReserve(h.opts.ReserveBytes))

	h.entries = newRegistry()
	h.ch = make(chan os.Signal, len(h.entries))
	h.done = make(chan struct{})

	for _, e := range h.entries {
		e.wasIgnored = signal.Ignored(e.sig)
		signal.Notify(h.ch, e.sig)
		e.state.Store(stateArmed)
	}

	go h.dispatch(h.ch, h.done)
	return nil
}

// Disable uninstalls the crash handler and restores prior dispositions.
// Only this handler's subscription is removed: any channel a caller had
// registered for the same signals before Enable keeps receiving, so
// disposition chains survive an enable/disable cycle. Idempotent.
func (h *Handler) Disable() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.disableLocked()
}

func (h *Handler) disableLocked() {
	if !h.enabled {
		return
	}

	signal.Stop(h.ch)
	close(h.done)

	for _, e := range h.entries {
		e.state.Store(stateIdle)
		if e.wasIgnored {
			// The pre-enable disposition was "ignore"; Stop alone would
			// leave the signal at its default.
			signal.Ignore(e.sig)
		}
	}

	h.enabled = false
	h.out.Close()
}

// Enabled reports whether the crash handler is currently installed.
func (h *Handler) Enabled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.enabled
}

// Close tears the handler down: disable, release the reserve buffer, close
// the captured descriptor. Safe to call more than once; everything is
// freed at most once. Defer it in main alongside the other shutdown
// closers.
func (h *Handler) Close() {
	h.closeOnce.Do(func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.disableLocked()
		if h.reporter != nil {
			h.reporter.Release()
		}
	})
}

// ///////////////////////////////////////////////
// Crash Path
// ///////////////////////////////////////////////

// dispatch receives monitored signals for one enable cycle. The channel
// and done handle are parameters rather than field reads so a Disable
// followed by a fresh Enable cannot wire an old goroutine to new state.
func (h *Handler) dispatch(ch chan os.Signal, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case sig := <-ch:
			h.handleFault(sig)
		}
	}
}

// handleFault is the crash handler. Ordering is the contract here:
// disposition restore strictly precedes any diagnostic output (§ package
// doc), and nothing after the CAS allocates or locks.
func (h *Handler) handleFault(sig os.Signal) {
	e := lookup(h.entries, sig)

	if !e.state.CompareAndSwap(stateArmed, stateFired) {
		// Already fired this cycle, or disarmed by a concurrent Disable.
		return
	}

	// Restore the prior disposition first. A re-fault during the dump
	// below is then processed by the restored disposition, not by us.
	signal.Reset(e.sig)
	if e.wasIgnored {
		signal.Ignore(e.sig)
	}

	out := h.out // captured once at Enable, never re-resolved
	_ = out.Write(e.header)
	if h.opts.AllGoroutines {
		_ = h.reporter.DumpAll(out)
	} else {
		_ = h.reporter.DumpCurrent(out)
	}

	// Let the fault proceed. With the disposition restored this
	// terminates the process the way the fault originally would have,
	// unless the signal was being ignored before we were installed.
	if !e.wasIgnored {
		_ = h.raise(e.sig)
	}
}
