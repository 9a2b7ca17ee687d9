// Package paths centralizes file and directory names used across the project.
// All data directory file names are defined here as the single source of truth.
package paths

// Generate config.default.toml from the config docs.
//go:generate go run ../../cmd/genconfig

import "path/filepath"

// ///////////////////////////////////////////////
// Constants
// ///////////////////////////////////////////////

// Data directory file names.
const (
	PIDFile    = "daemon.pid"
	ConfigFile = "config.toml"
	LogFile    = "daemon.log"
	SocketFile = "control.sock"
	CrashFile  = "crash.log"
)

// Daemon identity constants.
const (
	BinaryName = "faultwatch"
	DataDirRel = ".faultwatch" // relative to $HOME
)

// PipeName is the Windows named-pipe path for the control endpoint.
// On Unix the control endpoint is a socket file inside the data directory
// instead; see [DataDir.Socket].
const PipeName = `\\.\pipe\faultwatch-control`

// Remote-fetched file paths (relative to repo root).
const (
	ReleaseManifest = ".release-manifest.json"
)

// ///////////////////////////////////////////////
// DataDir
// ///////////////////////////////////////////////

// DataDir provides path construction methods rooted at a data directory.
type DataDir struct {
	Root string
}

// PID returns the full path to the PID file.
func (d DataDir) PID() string { return filepath.Join(d.Root, PIDFile) }

// Config returns the full path to the config file.
func (d DataDir) Config() string { return filepath.Join(d.Root, ConfigFile) }

// Log returns the full path to the log file.
func (d DataDir) Log() string { return filepath.Join(d.Root, LogFile) }

// Socket returns the full path to the Unix control socket.
func (d DataDir) Socket() string { return filepath.Join(d.Root, SocketFile) }

// Crash returns the full path to the default crash dump file.
func (d DataDir) Crash() string { return filepath.Join(d.Root, CrashFile) }
