// Package stackdump renders goroutine backtraces to raw file descriptors.
//
// The crash path in internal/fault calls into this package from a context
// where the normal logging stack is off-limits: no allocation, no locking,
// no buffered I/O. Everything on that path works on a preallocated buffer
// and writes with raw write(2) (WriteFile on Windows). The on-demand and
// watchdog paths have no such restriction and may use the allocating
// helpers ([Render], [All]).
package stackdump

import (
	"fmt"
	"os"
)

// ///////////////////////////////////////////////
// FD
// ///////////////////////////////////////////////

// FD is a captured raw file descriptor. It is duplicated from its source at
// capture time, so the dump target stays stable even if the source stream is
// later redirected or closed.
type FD struct {
	raw   uintptr
	valid bool
}

// Capture duplicates f's descriptor and returns it as an FD. The duplicate
// must be released with [FD.Close] when no longer needed.
func Capture(f *os.File) (FD, error) {
	if f == nil {
		return FD{}, fmt.Errorf("capture descriptor: nil file")
	}
	raw, err := dupRaw(f.Fd())
	if err != nil {
		return FD{}, fmt.Errorf("capture descriptor of %s: %w", f.Name(), err)
	}
	return FD{raw: raw, valid: true}, nil
}

// Wrap returns an FD referring to f's descriptor without duplicating it.
// The caller keeps ownership of f; used for one-shot on-demand dumps.
func Wrap(f *os.File) FD {
	return FD{raw: f.Fd(), valid: true}
}

// Valid reports whether fd refers to a captured descriptor.
func (fd FD) Valid() bool { return fd.valid }

// Write writes p fully to the descriptor using raw writes, retrying on
// short writes and EINTR. Safe to call from the crash path.
func (fd FD) Write(p []byte) error {
	if !fd.valid {
		return fmt.Errorf("write: descriptor not captured")
	}
	return writeRaw(fd.raw, p)
}

// Close releases a descriptor obtained from [Capture]. Closing a zero or
// already-closed FD is a no-op.
func (fd *FD) Close() {
	if !fd.valid {
		return
	}
	closeRaw(fd.raw)
	fd.valid = false
}
