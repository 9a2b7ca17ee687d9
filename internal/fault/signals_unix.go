// Fatal-signal table for Unix-like systems (Linux, macOS, *BSD).
//
// This file is compiled on all non-Windows platforms. The full monitored
// set is available: bus error, illegal instruction, arithmetic exception,
// and segmentation violation.

//go:build !windows

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
	{syscall.SIGBUS, "Bus error", "bus"},
	{syscall.SIGILL, "Illegal instruction", "ill"},
	{syscall.SIGFPE, "Floating point exception", "fpe"},
	{syscall.SIGSEGV, "Segmentation fault", "segv"},
}
