package stackdump

import (
	"bytes"
	"runtime"
	"strconv"
)

// ///////////////////////////////////////////////
// Goroutine Directory
// ///////////////////////////////////////////////

// Goroutine is a handle identifying one execution context within the
// process, as reported by the runtime's stack dumps.
type Goroutine struct {
	// ID is the runtime-assigned goroutine number.
	ID uint64
	// State is the scheduler state at snapshot time, e.g. "running",
	// "select", "IO wait".
	State string
}

// headerPrefix starts every goroutine block in a runtime.Stack dump:
//
//	goroutine 42 [running]:
var headerPrefix = []byte("goroutine ")

// Current returns a handle for the calling goroutine. The second return is
// false if the runtime header could not be parsed, which callers must treat
// as a failed lookup (the watchdog's all-contexts path cancels itself on
// it). No runtime-global lock is taken: the snapshot covers only the
// calling goroutine's own stack.
func Current() (Goroutine, bool) {
	var buf [128]byte
	n := runtime.Stack(buf[:], false)
	g, ok := parseHeader(buf[:n])
	return g, ok
}

// All returns handles for every goroutine in the process at snapshot time.
// The snapshot is taken by the runtime atomically; a goroutine that exits
// between enumeration and a later dump is simply absent from that dump.
func All() []Goroutine {
	dump := Render(true, nil)
	var out []Goroutine
	for _, block := range bytes.Split(dump, []byte("\n\n")) {
		if g, ok := parseHeader(block); ok {
			out = append(out, g)
		}
	}
	return out
}

// parseHeader extracts the goroutine ID and state from the first line of a
// dump block.
func parseHeader(block []byte) (Goroutine, bool) {
	if !bytes.HasPrefix(block, headerPrefix) {
		return Goroutine{}, false
	}
	rest := block[len(headerPrefix):]
	if i := bytes.IndexByte(rest, '\n'); i >= 0 {
		rest = rest[:i]
	}
	// rest is now "42 [running]:"
	sp := bytes.IndexByte(rest, ' ')
	if sp <= 0 {
		return Goroutine{}, false
	}
	id, err := strconv.ParseUint(string(rest[:sp]), 10, 64)
	if err != nil {
		return Goroutine{}, false
	}
	state := rest[sp+1:]
	state = bytes.TrimPrefix(state, []byte("["))
	state = bytes.TrimSuffix(state, []byte(":"))
	state = bytes.TrimSuffix(state, []byte("]"))
	return Goroutine{ID: id, State: string(state)}, true
}
