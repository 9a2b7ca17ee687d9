package stackdump

import (
	"bytes"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ///////////////////////////////////////////////
// Dump Filtering
// ///////////////////////////////////////////////

// Filter removes goroutine blocks from dump whose frame functions match any
// of the hide glob patterns. Patterns match fully qualified function names,
// e.g. "runtime.*" hides runtime-internal goroutines and
// "**/fsnotify.(*Watcher).readEvents" hides the watcher's reader. Invalid
// patterns never match; [ValidatePattern] is available for config
// validation.
//
// The first block of an all-goroutine dump belongs to the caller and is
// subject to the same patterns as every other block.
func Filter(dump []byte, hide []string) []byte {
	if len(hide) == 0 {
		return dump
	}
	blocks := bytes.Split(dump, []byte("\n\n"))
	var out [][]byte
	for _, block := range blocks {
		if len(bytes.TrimSpace(block)) == 0 {
			continue
		}
		if blockMatches(block, hide) {
			continue
		}
		out = append(out, block)
	}
	return bytes.Join(out, []byte("\n\n"))
}

// ValidatePattern reports whether a hide pattern is well-formed.
func ValidatePattern(pattern string) bool {
	return doublestar.ValidatePattern(pattern)
}

// blockMatches reports whether any frame function in the block matches any
// hide pattern.
func blockMatches(block []byte, hide []string) bool {
	for _, line := range bytes.Split(block, []byte("\n")) {
		fn, ok := frameFunc(line)
		if !ok {
			continue
		}
		for _, pattern := range hide {
			if matched, err := doublestar.Match(pattern, fn); err == nil && matched {
				return true
			}
		}
	}
	return false
}

// frameFunc extracts the function name from a dump frame line. Function
// lines are unindented and end with an argument list, e.g.
// "main.worker(0xc000010000)"; file/line entries are tab-indented and the
// "goroutine N [state]:" header has no parentheses.
func frameFunc(line []byte) (string, bool) {
	if len(line) == 0 || line[0] == '\t' || bytes.HasPrefix(line, headerPrefix) {
		return "", false
	}
	s := string(line)
	// "created by pkg.fn in goroutine N" trailer lines also name a function.
	s = strings.TrimPrefix(s, "created by ")
	if i := strings.LastIndex(s, "("); i > 0 {
		s = s[:i]
	}
	if i := strings.Index(s, " in goroutine "); i > 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	return s, true
}
