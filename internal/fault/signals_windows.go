// Fatal-signal table for Windows.
//
// Windows has no SIGBUS, so the monitored set is one entry shorter than on
// Unix. Delivery of these signals is limited on Windows (the Go runtime
// synthesizes them for console events only), but the registry and watchdog
// machinery work identically.

//go:build windows

package fault

import "syscall"

// ///////////////////////////////////////////////
// Fatal Signal Set
// ///////////////////////////////////////////////

// fatalSignals lists the monitored fault signals in registry order.
// SIGSEGV must stay last: the last entry doubles as the fallback when a
// delivered signal has no exact registry match, so a header name is always
// produced.
var fatalSignals = []signalDef{
	{syscall.SIGILL, "Illegal instruction", "ill"},
	{syscall.SIGFPE, "Floating point exception", "fpe"},
	{syscall.SIGSEGV, "Segmentation fault", "segv"},
}
