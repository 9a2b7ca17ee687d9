package faultwatch

import (
	"os"
	"sync"

	"tools.zach/dev/faultwatch/internal/fault"
	"tools.zach/dev/faultwatch/internal/stackdump"
)

// ///////////////////////////////////////////////
// Options
// ///////////////////////////////////////////////

// Options configures the process-wide crash handler; see [fault.Options].
type Options = fault.Options

// ScheduleOptions configures a scheduled dump; see [fault.ScheduleOptions].
type ScheduleOptions = fault.ScheduleOptions

// ///////////////////////////////////////////////
// Process-Wide State
// ///////////////////////////////////////////////

var (
	mu      sync.Mutex
	handler *fault.Handler

	watchdog = fault.NewWatchdog()
)

// ///////////////////////////////////////////////
// Crash Handler
// ///////////////////////////////////////////////

// Enable installs the crash handler for the process. On a fatal signal it
// writes a backtrace to the configured output and re-raises the signal so
// the process still dies with its original disposition. Idempotent: while
// enabled, further calls return success without touching the installation,
// and the output descriptor captured by the first call stays in effect.
// Call [Disable] first to reconfigure.
func Enable(opts Options) error {
	mu.Lock()
	defer mu.Unlock()

	if handler != nil {
		return nil
	}

	h := fault.New(opts)
	if err := h.Enable(); err != nil {
		return err
	}
	handler = h
	return nil
}

// Disable uninstalls the crash handler, restoring the signal dispositions
// that were in place before [Enable]. A no-op when not enabled.
func Disable() {
	mu.Lock()
	defer mu.Unlock()

	if handler != nil {
		handler.Close()
		handler = nil
	}
}

// Enabled reports whether the crash handler is installed.
func Enabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return handler != nil && handler.Enabled()
}

// ///////////////////////////////////////////////
// On-Demand Dumps
// ///////////////////////////////////////////////

// DumpBacktrace writes a backtrace to f immediately. all widens it to
// every goroutine. Nil f means stderr.
func DumpBacktrace(f *os.File, all bool) error {
	if f == nil {
		f = os.Stderr
	}
	return stackdump.DumpTo(f, all)
}

// ///////////////////////////////////////////////
// Scheduled Dumps
// ///////////////////////////////////////////////

// ScheduleDump arms the process watchdog to write a backtrace after
// delaySeconds, replacing any previously armed countdown. With
// [ScheduleOptions].Repeat the watchdog re-arms after each dump until
// [CancelDump].
func ScheduleDump(delaySeconds int, opts ScheduleOptions) error {
	return watchdog.Schedule(delaySeconds, opts)
}

// CancelDump disarms any pending scheduled dump. Always safe to call.
func CancelDump() {
	watchdog.Cancel()
}

// DumpScheduled reports whether a scheduled dump is pending.
func DumpScheduled() bool {
	return watchdog.Armed()
}

// ///////////////////////////////////////////////
// Self-Test
// ///////////////////////////////////////////////

// SignalNames lists the short fault names accepted by [Raise].
func SignalNames() []string {
	return fault.SignalNames()
}

// Raise delivers the named fatal signal ("segv", "fpe", ...) to the
// current process, exercising the crash path end to end. With the handler
// enabled this dumps a backtrace and kills the process.
func Raise(name string) error {
	sig, err := fault.SignalByName(name)
	if err != nil {
		return err
	}
	return stackdump.Raise(sig)
}
