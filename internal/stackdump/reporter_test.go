// Tests for [Reporter] and the on-demand entry points: dump content,
// truncation behavior, degraded (no-reserve) mode, and [Render] filtering.

package stackdump

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// dumpFile returns an open temp file and a reader for its final contents.
func dumpFile(t *testing.T) (*os.File, func() string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dump.out")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create dump file: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f, func() string {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read dump file: %v", err)
		}
		return string(data)
	}
}

func TestReporterDumpCurrent(t *testing.T) {
	f, read := dumpFile(t)
	r := NewReporter(0)

	if err := r.DumpCurrent(Wrap(f)); err != nil {
		t.Fatalf("DumpCurrent: %v", err)
	}
	out := read()
	if !strings.HasPrefix(out, "goroutine ") {
		t.Errorf("dump should start with goroutine header, got %q", out[:min(40, len(out))])
	}
	if !strings.Contains(out, "TestReporterDumpCurrent") {
		t.Errorf("dump should contain the calling test frame, got:\n%s", out)
	}
}

func TestReporterDumpAll(t *testing.T) {
	f, read := dumpFile(t)
	r := NewReporter(0)

	if err := r.DumpAll(Wrap(f)); err != nil {
		t.Fatalf("DumpAll: %v", err)
	}
	// An all-goroutine dump in a test binary always has more than one block.
	if strings.Count(read(), "goroutine ") < 2 {
		t.Errorf("expected multiple goroutines in all-dump:\n%s", read())
	}
}

func TestReporterTruncation(t *testing.T) {
	f, read := dumpFile(t)
	r := NewReporter(16) // far too small for any real backtrace

	if err := r.DumpCurrent(Wrap(f)); err != nil {
		t.Fatalf("DumpCurrent: %v", err)
	}
	if !strings.Contains(read(), "truncated") {
		t.Errorf("expected truncation marker, got %q", read())
	}
}

func TestReporterDegraded(t *testing.T) {
	f, read := dumpFile(t)
	r := NewReporterBuf(nil)

	if r.Reserved() {
		t.Error("nil-buffer reporter should not report a reserve")
	}
	if err := r.DumpCurrent(Wrap(f)); err != nil {
		t.Fatalf("degraded DumpCurrent: %v", err)
	}
	if !strings.Contains(read(), "TestReporterDegraded") {
		t.Errorf("degraded dump missing caller frame:\n%s", read())
	}
}

func TestReporterRelease(t *testing.T) {
	r := NewReporter(0)
	if !r.Reserved() {
		t.Fatal("fresh reporter should hold a reserve")
	}
	r.Release()
	if r.Reserved() {
		t.Error("Release should drop the reserve")
	}
	// Release twice is a no-op.
	r.Release()
}

func TestDumpTo(t *testing.T) {
	f, read := dumpFile(t)
	if err := DumpTo(f, false); err != nil {
		t.Fatalf("DumpTo: %v", err)
	}
	if !strings.Contains(read(), "TestDumpTo") {
		t.Errorf("dump missing caller frame:\n%s", read())
	}

	if err := DumpTo(nil, false); err == nil {
		t.Error("DumpTo(nil) should fail")
	}
}

func TestRender(t *testing.T) {
	out := string(Render(true, nil))
	if !strings.Contains(out, "TestRender") {
		t.Errorf("render missing caller frame:\n%s", out)
	}

	// Hiding the testing framework's frames removes the caller's own block.
	filtered := string(Render(true, []string{"tools.zach/dev/faultwatch/internal/stackdump.TestRender"}))
	if strings.Contains(filtered, "TestRender(") {
		t.Errorf("filtered render still contains hidden frame:\n%s", filtered)
	}
}
