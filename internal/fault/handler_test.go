// Tests for the [Handler] lifecycle and crash path. Faults are simulated
// by invoking the crash handler directly with the re-raise hook stubbed
// out, so the test process never takes a real fatal signal through the
// default disposition. Real-delivery coverage lives in
// handler_unix_test.go.

package fault

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"testing"
)

// newTestHandler returns an enabled Handler writing to a temp file, with
// the raise hook replaced by a recorder. The handler is disabled and
// closed at test cleanup.
func newTestHandler(t *testing.T, opts Options) (*Handler, func() string, *[]syscall.Signal) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "crash.out")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create output file: %v", err)
	}
	t.Cleanup(func() { f.Close() })

	opts.Output = f
	h := New(opts)

	var mu sync.Mutex
	raised := []syscall.Signal{}
	h.raise = func(sig syscall.Signal) error {
		mu.Lock()
		defer mu.Unlock()
		raised = append(raised, sig)
		return nil
	}

	if err := h.Enable(); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	t.Cleanup(h.Close)

	read := func() string {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read output: %v", err)
		}
		return string(data)
	}
	return h, read, &raised
}

// ///////////////////////////////////////////////
// Lifecycle
// ///////////////////////////////////////////////

func TestEnableDisableIdempotent(t *testing.T) {
	h, _, _ := newTestHandler(t, Options{})

	if !h.Enabled() {
		t.Fatal("handler should be enabled")
	}
	// Second enable is a successful no-op.
	if err := h.Enable(); err != nil {
		t.Fatalf("second Enable: %v", err)
	}
	if !h.Enabled() {
		t.Fatal("still enabled after repeated Enable")
	}

	h.Disable()
	if h.Enabled() {
		t.Fatal("handler should be disabled")
	}
	// Second disable is a no-op.
	h.Disable()
	if h.Enabled() {
		t.Fatal("still disabled after repeated Disable")
	}
}

func TestEnableAfterDisable(t *testing.T) {
	h, _, _ := newTestHandler(t, Options{})

	h.Disable()
	if err := h.Enable(); err != nil {
		t.Fatalf("re-Enable: %v", err)
	}
	if !h.Enabled() {
		t.Fatal("handler should be enabled again")
	}
	h.Disable()
}

func TestCloseIsIdempotent(t *testing.T) {
	h, _, _ := newTestHandler(t, Options{})
	h.Close()
	h.Close()
	if h.Enabled() {
		t.Fatal("closed handler should be disabled")
	}
}

func TestNewIsInert(t *testing.T) {
	h := New(Options{})
	if h.Enabled() {
		t.Fatal("fresh handler must be inert")
	}
}

// ///////////////////////////////////////////////
// Crash Path
// ///////////////////////////////////////////////

func TestCrashWritesHeaderBeforeDump(t *testing.T) {
	h, read, raised := newTestHandler(t, Options{})

	h.handleFault(syscall.SIGSEGV)

	out := read()
	if !strings.HasPrefix(out, "Fatal fault: Segmentation fault\n\n") {
		t.Fatalf("output should start with the fault header, got %q", out[:min(60, len(out))])
	}
	if !strings.Contains(out, "goroutine ") {
		t.Errorf("output missing backtrace:\n%s", out)
	}
	if len(*raised) != 1 || (*raised)[0] != syscall.SIGSEGV {
		t.Errorf("raised = %v, want [SIGSEGV]", *raised)
	}
}

func TestCrashNamesEachSignal(t *testing.T) {
	for _, def := range fatalSignals {
		t.Run(def.short, func(t *testing.T) {
			h, read, _ := newTestHandler(t, Options{})
			h.handleFault(def.sig)
			if !strings.Contains(read(), "Fatal fault: "+def.name) {
				t.Errorf("output missing %q header:\n%s", def.name, read())
			}
		})
	}
}

func TestCrashFallbackToLastEntry(t *testing.T) {
	h, read, _ := newTestHandler(t, Options{})

	// A signal outside the table must still produce a name: the last
	// (segmentation violation) entry serves as the fallback.
	h.handleFault(syscall.SIGTERM)

	if !strings.Contains(read(), "Fatal fault: Segmentation fault") {
		t.Errorf("fallback header missing:\n%s", read())
	}
}

func TestCrashFiresOnlyOnce(t *testing.T) {
	h, read, raised := newTestHandler(t, Options{})

	h.handleFault(syscall.SIGSEGV)
	first := read()

	// A second delivery of the same signal hits a FIRED entry and must be
	// ignored entirely: no output, no re-raise.
	h.handleFault(syscall.SIGSEGV)

	if got := read(); got != first {
		t.Errorf("second delivery changed output:\n%s", got)
	}
	if len(*raised) != 1 {
		t.Errorf("raise called %d times, want 1", len(*raised))
	}
}

func TestCrashAllGoroutines(t *testing.T) {
	h, read, _ := newTestHandler(t, Options{AllGoroutines: true})

	h.handleFault(syscall.SIGILL)

	if strings.Count(read(), "goroutine ") < 2 {
		t.Errorf("all-goroutine crash dump should cover multiple goroutines:\n%s", read())
	}
}

// ///////////////////////////////////////////////
// Reserve Degradation
// ///////////////////////////////////////////////

func TestNegativeReserveDisablesBuffer(t *testing.T) {
	h, read, _ := newTestHandler(t, Options{ReserveBytes: -1})

	if h.reporter.Reserved() {
		t.Fatal("negative ReserveBytes must not allocate a reserve")
	}

	h.handleFault(syscall.SIGBUS)
	if !strings.Contains(read(), "Fatal fault:") {
		t.Errorf("crash path without a reserve produced no dump:\n%s", read())
	}
}

func TestEnableSurvivesReserveFailure(t *testing.T) {
	orig := allocReserve
	allocReserve = func(int) []byte { return nil }
	defer func() { allocReserve = orig }()

	h, read, _ := newTestHandler(t, Options{})

	if !h.Enabled() {
		t.Fatal("enable must succeed without a reserve buffer")
	}
	if h.reporter.Reserved() {
		t.Fatal("reporter should be in degraded mode")
	}

	// Fault handling still works, just degraded.
	h.handleFault(syscall.SIGFPE)
	if !strings.Contains(read(), "Fatal fault: Floating point exception") {
		t.Errorf("degraded crash path produced no dump:\n%s", read())
	}
}
