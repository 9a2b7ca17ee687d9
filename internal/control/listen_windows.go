// listen_windows.go provides the Windows control endpoint via a named
// pipe using the go-winio library.

//go:build windows

package control

import (
	"fmt"
	"net"

	"github.com/Microsoft/go-winio"

	"tools.zach/dev/faultwatch/internal/paths"
)

// ///////////////////////////////////////////////
// Endpoint
// ///////////////////////////////////////////////

// Listen binds the control named pipe. The pipe name is global, so a
// second daemon instance fails here; the PID lock normally rejects it
// earlier. dir is unused on Windows.
func Listen(dir paths.DataDir) (net.Listener, error) {
	_ = dir
	l, err := winio.ListenPipe(paths.PipeName, nil)
	if err != nil {
		return nil, fmt.Errorf("binding control pipe: %w", err)
	}
	return l, nil
}

// dialControl connects to the daemon's control pipe.
func dialControl(dir paths.DataDir) (net.Conn, error) {
	_ = dir
	conn, err := winio.DialPipe(paths.PipeName, nil)
	if err != nil {
		return nil, ErrNotAvailable
	}
	return conn, nil
}
