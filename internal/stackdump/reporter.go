package stackdump

import (
	"fmt"
	"os"
	"runtime"
)

// ///////////////////////////////////////////////
// Reporter
// ///////////////////////////////////////////////

// DefaultBufferSize is the reporter buffer size used when the caller does
// not configure one. 64 KiB holds several hundred frames; dumps that do not
// fit are truncated with a marker rather than grown.
const DefaultBufferSize = 64 << 10

// truncatedMarker is appended when a dump fills the entire buffer.
var truncatedMarker = []byte("\n...<dump truncated, buffer full>\n")

// Reporter renders goroutine backtraces into a fixed buffer and writes them
// through raw descriptor writes. Once constructed it performs no allocation,
// which is what makes it callable from the fault handler's crash path.
//
// A Reporter instance is single-flight: the buffer is reused across calls,
// so each consumer (crash handler, watchdog) owns its own Reporter rather
// than sharing one.
type Reporter struct {
	buf []byte
}

// NewReporter returns a Reporter with a freshly allocated buffer of size
// bytes. Sizes <= 0 fall back to [DefaultBufferSize].
func NewReporter(size int) *Reporter {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Reporter{buf: make([]byte, size)}
}

// NewReporterBuf returns a Reporter over a caller-provided buffer. buf may
// be nil, in which case the reporter runs degraded: each dump allocates a
// transient buffer instead of reusing a reserved one. The fault handler
// uses this form so a failed reserve allocation degrades rather than
// disables crash reporting.
func NewReporterBuf(buf []byte) *Reporter {
	return &Reporter{buf: buf}
}

// Reserved reports whether the reporter holds a preallocated buffer.
func (r *Reporter) Reserved() bool { return r.buf != nil }

// Release drops the reporter's buffer. Dumps after Release run degraded.
func (r *Reporter) Release() { r.buf = nil }

// DumpCurrent writes the calling goroutine's backtrace to fd.
func (r *Reporter) DumpCurrent(fd FD) error {
	return r.dump(fd, false)
}

// DumpAll writes every goroutine's backtrace to fd.
func (r *Reporter) DumpAll(fd FD) error {
	return r.dump(fd, true)
}

func (r *Reporter) dump(fd FD, all bool) error {
	buf := r.buf
	if buf == nil {
		// Degraded mode: no reserve was available at enable time.
		buf = make([]byte, DefaultBufferSize)
	}
	n := runtime.Stack(buf, all)
	if err := fd.Write(buf[:n]); err != nil {
		return err
	}
	if n == len(buf) {
		return fd.Write(truncatedMarker)
	}
	return nil
}

// ///////////////////////////////////////////////
// On-Demand Entry Points
// ///////////////////////////////////////////////

// DumpTo writes a backtrace of the calling goroutine (or of all goroutines)
// directly to f. This is the pass-through used by the public DumpNow API and
// the control server; it allocates freely and must not be called from the
// crash path.
func DumpTo(f *os.File, all bool) error {
	if f == nil {
		return fmt.Errorf("dump: nil destination")
	}
	r := NewReporter(0)
	return r.dump(Wrap(f), all)
}

// Render returns a backtrace of all goroutines (or just the caller) as a
// byte slice, with goroutine blocks whose frames match any of the hide
// patterns removed. Used by the control server to ship dumps back to the
// client. Allocates; not for the crash path.
func Render(all bool, hide []string) []byte {
	buf := make([]byte, DefaultBufferSize)
	for {
		n := runtime.Stack(buf, all)
		if n < len(buf) {
			buf = buf[:n]
			break
		}
		buf = make([]byte, len(buf)*2)
	}
	if len(hide) == 0 {
		return buf
	}
	return Filter(buf, hide)
}
