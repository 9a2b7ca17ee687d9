// Package faultwatch dumps Go backtraces when things go wrong: on fatal
// signals (SIGSEGV, SIGFPE, SIGBUS, SIGILL), on a watchdog timeout, or on
// demand.
//
// The package-level functions wrap a process-wide crash handler and
// watchdog; see [Enable], [ScheduleDump], and [DumpBacktrace]. The
// faultwatch daemon in cmd/faultwatch builds on the same internals and
// adds a control endpoint.
//
// This file embeds config.default.toml via [DefaultConfigTOML]; the daemon
// copies it to the data directory on first run.
package faultwatch

import _ "embed"

// DefaultConfigTOML holds the raw bytes of config.default.toml, embedded at
// build time.
//
//go:embed config.default.toml
var DefaultConfigTOML []byte
