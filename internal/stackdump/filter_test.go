// Tests for dump filtering: frame extraction and glob-based block removal.

package stackdump

import (
	"strings"
	"testing"
)

// sampleDump is a synthetic two-goroutine dump in runtime.Stack format.
const sampleDump = `goroutine 1 [running]:
main.worker(0xc000010000)
	/src/main.go:25 +0x45
main.main()
	/src/main.go:12 +0x20

goroutine 18 [select]:
github.com/fsnotify/fsnotify.(*Watcher).readEvents(0xc00007e000)
	/go/pkg/mod/fsnotify/backend_inotify.go:551 +0x12c
created by github.com/fsnotify/fsnotify.NewWatcher in goroutine 1
	/go/pkg/mod/fsnotify/backend_inotify.go:131 +0x1c5`

func TestFrameFunc(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		want   string
		wantOK bool
	}{
		{"plain frame", "main.worker(0xc000010000)", "main.worker", true},
		{"method frame", "github.com/x/y.(*T).Run(0x1, 0x2)", "github.com/x/y.(*T).Run", true},
		{"created by trailer", "created by main.spawn in goroutine 1", "main.spawn", true},
		{"file line is skipped", "\t/src/main.go:25 +0x45", "", false},
		{"header is skipped", "goroutine 1 [running]:", "", false},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := frameFunc([]byte(tt.line))
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("frameFunc(%q) = (%q, %v), want (%q, %v)", tt.line, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name     string
		hide     []string
		wantMain bool
		wantFSN  bool
	}{
		{"no patterns keeps all", nil, true, true},
		{"hide fsnotify by glob", []string{"github.com/fsnotify/**"}, true, false},
		{"hide main package", []string{"main.*"}, false, true},
		{"hide everything", []string{"**"}, false, false},
		{"non-matching pattern", []string{"net/http.*"}, true, true},
		{"invalid pattern never matches", []string{"[bad"}, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := string(Filter([]byte(sampleDump), tt.hide))
			if got := strings.Contains(out, "main.worker"); got != tt.wantMain {
				t.Errorf("main block present = %v, want %v:\n%s", got, tt.wantMain, out)
			}
			if got := strings.Contains(out, "fsnotify"); got != tt.wantFSN {
				t.Errorf("fsnotify block present = %v, want %v:\n%s", got, tt.wantFSN, out)
			}
		})
	}
}

func TestValidatePattern(t *testing.T) {
	if !ValidatePattern("runtime.*") {
		t.Error("runtime.* should be valid")
	}
	if ValidatePattern("[bad") {
		t.Error("unclosed class should be invalid")
	}
}
