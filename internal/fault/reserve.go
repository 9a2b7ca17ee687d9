package fault

// ///////////////////////////////////////////////
// Reserve Buffer
// ///////////////////////////////////////////////

// DefaultReserveBytes is the dump buffer reserved at enable time. The
// original sigaltstack trick let a C handler run with the normal stack
// exhausted; in Go the runtime already runs signal code on its own stacks,
// so the property worth preserving is that the crash dump allocates
// nothing. The reserve is that preallocation.
const DefaultReserveBytes = 64 << 10

// allocReserve allocates the reserve buffer. Best-effort: a nil return
// degrades the crash path to transient allocation instead of failing
// enable. Overridden in tests to simulate allocation failure.
var allocReserve = func(size int) []byte {
	if size <= 0 {
		return nil
	}
	return make([]byte, size)
}
