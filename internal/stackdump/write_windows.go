// Raw descriptor operations for Windows.
//
// Descriptors are Win32 handles here. Duplication goes through
// DuplicateHandle and writes through WriteFile via the syscall package.
// POSIX-style signal re-raising does not exist on Windows; [Raise] instead
// terminates the process with the conventional 128+signum exit code.

//go:build windows

package stackdump

import (
	"syscall"

	"golang.org/x/sys/windows"
)

// ///////////////////////////////////////////////
// Raw Descriptor Operations
// ///////////////////////////////////////////////

// writeRaw writes p fully to the handle, retrying on short writes.
func writeRaw(fd uintptr, p []byte) error {
	h := syscall.Handle(fd)
	for len(p) > 0 {
		n, err := syscall.Write(h, p)
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}

// dupRaw duplicates the handle within the current process.
func dupRaw(fd uintptr) (uintptr, error) {
	proc := windows.CurrentProcess()
	var dup windows.Handle
	err := windows.DuplicateHandle(
		proc, windows.Handle(fd),
		proc, &dup,
		0, false, windows.DUPLICATE_SAME_ACCESS,
	)
	if err != nil {
		return 0, err
	}
	return uintptr(dup), nil
}

// closeRaw closes a raw handle, ignoring errors.
func closeRaw(fd uintptr) {
	_ = windows.CloseHandle(windows.Handle(fd))
}

// Raise terminates the process with the conventional fatal-signal exit code.
// Windows has no way to re-deliver a POSIX-style fault to the default
// disposition, so direct termination is the closest equivalent.
func Raise(sig syscall.Signal) error {
	return windows.TerminateProcess(windows.CurrentProcess(), uint32(128+int(sig)))
}
