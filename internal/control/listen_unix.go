// listen_unix.go provides the Unix control endpoint: a socket file inside
// the data directory, restricted to the owning user.

//go:build !windows

package control

import (
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"

	"tools.zach/dev/faultwatch/internal/paths"
)

// ///////////////////////////////////////////////
// Endpoint
// ///////////////////////////////////////////////

// Listen binds the control socket inside dir. A stale socket file left by
// a crashed daemon is removed first; the PID lock guarantees no live
// daemon owns it.
func Listen(dir paths.DataDir) (net.Listener, error) {
	path := dir.Socket()

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("removing stale control socket: %w", err)
	}

	l, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("binding control socket: %w", err)
	}

	// Owner-only: the control endpoint can crash the daemon on request.
	if err := os.Chmod(path, 0o600); err != nil {
		l.Close()
		return nil, fmt.Errorf("restricting control socket: %w", err)
	}
	return l, nil
}

// dialControl connects to the daemon's control socket.
func dialControl(dir paths.DataDir) (net.Conn, error) {
	conn, err := net.Dial("unix", dir.Socket())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ECONNREFUSED) {
			return nil, ErrNotAvailable
		}
		return nil, err
	}
	return conn, nil
}
