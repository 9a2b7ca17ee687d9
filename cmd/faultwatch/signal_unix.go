// Unix/Darwin shutdown signals for the faultwatch daemon.
//
// This file is compiled on all non-Windows platforms (Linux, macOS, *BSD).
// It listens for SIGINT (Ctrl+C) and SIGTERM, the conventional stop signal
// from process managers (systemd, launchd) and container runtimes. The
// fatal-signal set (SIGSEGV and friends) is owned by internal/fault, not
// this channel.

//go:build !windows

package main

import (
	"os"
	"os/signal"
	"syscall"
)

// ///////////////////////////////////////////////
// Signal Handling
// ///////////////////////////////////////////////

// signalChannel returns a buffered channel that receives SIGINT and SIGTERM.
// The buffer size of 1 ensures the signal is not lost if the receiver is
// briefly busy when the signal arrives.
func signalChannel() <-chan os.Signal {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	return ch
}
