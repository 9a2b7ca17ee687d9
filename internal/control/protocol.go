// Package control implements the daemon's local command endpoint: a
// length-prefixed frame protocol carrying JSON requests and responses over
// a Unix socket (or a named pipe on Windows).
//
// The [Server] side runs inside the daemon and dispatches commands against
// a [Service]; the [Client] side backs the CLI subcommands.
package control

import "errors"

// ///////////////////////////////////////////////
// Commands
// ///////////////////////////////////////////////

// Command names accepted in a [Request].
const (
	// CmdStatus reports daemon state: handler, watchdog, recent log lines.
	CmdStatus = "status"
	// CmdDump captures a stack dump and returns it in the response.
	CmdDump = "dump"
	// CmdWatchdog arms the watchdog timer.
	CmdWatchdog = "watchdog"
	// CmdCancel disarms the watchdog timer.
	CmdCancel = "cancel"
	// CmdRaise delivers a fatal signal to the daemon to exercise the
	// crash path end to end.
	CmdRaise = "raise"
)

// ErrUnknownCommand is returned by the server for an unrecognized command.
var ErrUnknownCommand = errors.New("unknown command")

// ///////////////////////////////////////////////
// Wire Types
// ///////////////////////////////////////////////

// Request is the JSON payload of an [OpCommand] frame.
type Request struct {
	// Command selects the operation; one of the Cmd* constants.
	Command string `json:"command"`

	// DelaySeconds is the watchdog countdown for [CmdWatchdog].
	DelaySeconds int `json:"delay_seconds,omitempty"`
	// Repeat re-arms the watchdog after each dump.
	Repeat bool `json:"repeat,omitempty"`
	// All widens a dump or watchdog to every goroutine.
	All bool `json:"all,omitempty"`

	// Signal is the short fault name ("segv", "fpe", ...) for [CmdRaise].
	Signal string `json:"signal,omitempty"`

	// Lines limits the log tail returned by [CmdStatus]. Zero means a
	// server-chosen default.
	Lines int `json:"lines,omitempty"`
}

// Response is the JSON payload of an [OpResult] frame.
type Response struct {
	// OK reports whether the command succeeded.
	OK bool `json:"ok"`
	// Message carries the error text when OK is false, or a short
	// confirmation when there is no richer payload.
	Message string `json:"message,omitempty"`

	// Dump is the captured backtrace for [CmdDump].
	Dump string `json:"dump,omitempty"`
	// Status is the daemon state for [CmdStatus].
	Status *StatusInfo `json:"status,omitempty"`
}

// StatusInfo describes the daemon's current state.
type StatusInfo struct {
	PID           int      `json:"pid"`
	Version       string   `json:"version"`
	Enabled       bool     `json:"enabled"`
	WatchdogArmed bool     `json:"watchdog_armed"`
	UptimeSeconds int64    `json:"uptime_seconds"`
	LogTail       []string `json:"log_tail,omitempty"`
}
