// Tests for the package-level API and the embedded default config.
package faultwatch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BurntSushi/toml"
	"tools.zach/dev/faultwatch/internal/config"
)

func TestEnableDisable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crash.out")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create output: %v", err)
	}
	defer f.Close()

	if Enabled() {
		t.Fatal("handler should start disabled")
	}
	if err := Enable(Options{Output: f}); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	defer Disable()
	if !Enabled() {
		t.Fatal("handler should be enabled")
	}

	// A second Enable while enabled is a success no-op; the first
	// installation stays in effect.
	if err := Enable(Options{Output: f, AllGoroutines: true}); err != nil {
		t.Fatalf("repeated Enable: %v", err)
	}
	if !Enabled() {
		t.Fatal("handler should still be enabled")
	}

	// One Disable undoes it: no second installation was stacked.
	Disable()
	if Enabled() {
		t.Fatal("handler should be disabled")
	}

	// Enable after Disable installs fresh.
	if err := Enable(Options{Output: f}); err != nil {
		t.Fatalf("Enable after Disable: %v", err)
	}
	if !Enabled() {
		t.Fatal("handler should be enabled again")
	}
	Disable()
}

func TestDumpBacktrace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.out")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create output: %v", err)
	}
	defer f.Close()

	if err := DumpBacktrace(f, false); err != nil {
		t.Fatalf("DumpBacktrace: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read dump: %v", err)
	}
	if !strings.Contains(string(data), "goroutine ") {
		t.Errorf("dump missing backtrace:\n%s", data)
	}
}

func TestScheduleDumpRejectsBadDelay(t *testing.T) {
	if err := ScheduleDump(0, ScheduleOptions{}); err == nil {
		t.Fatal("expected error for zero delay")
	}
	if DumpScheduled() {
		t.Fatal("watchdog should stay idle after a rejected schedule")
	}
}

func TestScheduleAndCancelDump(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.out")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create output: %v", err)
	}
	defer f.Close()

	if err := ScheduleDump(3600, ScheduleOptions{Output: f}); err != nil {
		t.Fatalf("ScheduleDump: %v", err)
	}
	if !DumpScheduled() {
		t.Fatal("dump should be scheduled")
	}
	CancelDump()
	if DumpScheduled() {
		t.Fatal("dump should be cancelled")
	}
}

func TestRaiseRejectsUnknownName(t *testing.T) {
	if err := Raise("term"); err == nil {
		t.Fatal("expected error for non-fault signal name")
	}
}

func TestSignalNamesNotEmpty(t *testing.T) {
	names := SignalNames()
	if len(names) == 0 {
		t.Fatal("no signal names")
	}
	found := false
	for _, n := range names {
		if n == "segv" {
			found = true
		}
	}
	if !found {
		t.Errorf("segv missing from %v", names)
	}
}

// The embedded default config must stay parseable and in sync with the
// code defaults it documents.
func TestDefaultConfigTOMLMatchesDefaults(t *testing.T) {
	cfg := config.DefaultConfig()
	if err := toml.Unmarshal(DefaultConfigTOML, cfg); err != nil {
		t.Fatalf("embedded config does not parse: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("embedded config invalid: %v", err)
	}

	want := config.DefaultConfig()
	if cfg.Fault != want.Fault {
		t.Errorf("fault section drifted: %+v != %+v", cfg.Fault, want.Fault)
	}
	if cfg.Watchdog != want.Watchdog {
		t.Errorf("watchdog section drifted: %+v != %+v", cfg.Watchdog, want.Watchdog)
	}
	if cfg.Log != want.Log {
		t.Errorf("log section drifted: %+v != %+v", cfg.Log, want.Log)
	}
}
