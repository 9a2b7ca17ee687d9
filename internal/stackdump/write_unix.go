// Raw descriptor operations for Unix-like systems (Linux, macOS, *BSD).
//
// These wrap the x/sys/unix syscalls directly rather than going through
// os.File so the crash path performs no allocation and takes no runtime
// locks beyond what write(2) itself implies.

//go:build !windows

package stackdump

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// ///////////////////////////////////////////////
// Raw Descriptor Operations
// ///////////////////////////////////////////////

// writeRaw writes p fully to fd, retrying on EINTR/EAGAIN and short writes.
func writeRaw(fd uintptr, p []byte) error {
	for len(p) > 0 {
		n, err := unix.Write(int(fd), p)
		if err != nil {
			if err == unix.EINTR || err == unix.EAGAIN {
				continue
			}
			return err
		}
		p = p[n:]
	}
	return nil
}

// dupRaw duplicates fd and marks the duplicate close-on-exec so it does not
// leak into child processes.
func dupRaw(fd uintptr) (uintptr, error) {
	dup, err := unix.Dup(int(fd))
	if err != nil {
		return 0, err
	}
	unix.CloseOnExec(dup)
	return uintptr(dup), nil
}

// closeRaw closes a raw descriptor, ignoring errors.
func closeRaw(fd uintptr) {
	_ = unix.Close(int(fd))
}

// Raise delivers sig to the current process. The fault handler uses this to
// re-raise a fatal signal after restoring its prior disposition, so the
// process terminates with the platform-default behavior for that fault.
func Raise(sig syscall.Signal) error {
	return unix.Kill(unix.Getpid(), sig)
}
