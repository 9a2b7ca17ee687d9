package config

// ///////////////////////////////////////////////
// Documentation Types
// ///////////////////////////////////////////////

// FieldDoc holds documentation and alternative examples for a single config field.
// The genconfig tool uses [FieldDoc] values to annotate the generated config.default.toml.
type FieldDoc struct {
	// Comment is shown as a header comment above the field in the example config.
	Comment string

	// Alternatives are shown as commented-out lines below the active value.
	Alternatives []string
}

// ///////////////////////////////////////////////
// Field Documentation Map
// ///////////////////////////////////////////////

// ConfigDocs maps TOML field paths (dot-separated, e.g. "watchdog.delay_seconds")
// to their [FieldDoc] entries. The genconfig tool uses this map to annotate the
// generated config.default.toml with inline comments and alternative examples.
var ConfigDocs = map[string]FieldDoc{
	// ── Root ──────────────────────────────────────────────────────
	"version": {
		Comment: "Config schema version — do not edit.",
	},

	// ── Fault ─────────────────────────────────────────────────────
	"fault": {
		Comment: "Fatal-signal crash handler",
	},
	"fault.enabled": {
		Comment: "Install the crash handler at startup. When a fatal signal arrives\n(SIGSEGV, SIGFPE, SIGBUS, SIGILL) the daemon writes a backtrace to the\ncrash file and re-raises the signal so the process still dies with it.",
	},
	"fault.all_goroutines": {
		Comment: "Dump every goroutine on a crash instead of only the faulting context.",
		Alternatives: []string{
			`all_goroutines = true`,
		},
	},

	// ── Watchdog ──────────────────────────────────────────────────
	"watchdog": {
		Comment: "Watchdog timer for diagnosing hangs",
	},
	"watchdog.enabled": {
		Comment: "Arm the watchdog when the daemon starts. It can also be armed and\ncancelled at runtime through the control endpoint (faultwatch watchdog).",
	},
	"watchdog.delay_seconds": {
		Comment: "Seconds before the watchdog writes a dump.",
	},
	"watchdog.repeat": {
		Comment: "Re-arm with the same delay after each dump instead of firing once.",
		Alternatives: []string{
			`repeat = true`,
		},
	},
	"watchdog.all_goroutines": {
		Comment: "Dump every goroutine on each watchdog fire.",
	},

	// ── Dump ──────────────────────────────────────────────────────
	"dump": {
		Comment: "Dump output and filtering",
	},
	"dump.reserve_kb": {
		Comment: "Size of the preallocated crash dump buffer in kilobytes. The crash\npath must not allocate, so the buffer is reserved up front when the\nhandler is enabled. 0 disables the reserve (crash dumps then allocate,\nwhich can fail under memory corruption).",
	},
	"dump.hide": {
		Comment: "Glob patterns for function names whose goroutines are dropped from\non-demand dumps (faultwatch dump). Crash dumps are never filtered.",
		Alternatives: []string{
			`hide = [`,
			`  "runtime.gopark",`,
			`  "internal/poll.*",`,
			`]`,
		},
	},
	"dump.file": {
		Comment: "Crash dump destination. Empty means crash.log inside the data directory.",
		Alternatives: []string{
			`file = "/var/log/faultwatch-crash.log"`,
		},
	},

	// ── Control ───────────────────────────────────────────────────
	"control": {
		Comment: "Local control endpoint",
	},
	"control.enabled": {
		Comment: "Bind the control socket (named pipe on Windows) so CLI subcommands\ncan reach the daemon. Disabling leaves the daemon reachable only by\nsignals.",
	},

	// ── Log ──────────────────────────────────────────────────────
	"log": {
		Comment: "Logging configuration",
	},
	"log.level": {
		Comment: "Minimum log level. Options: \"trace\", \"debug\", \"info\", \"warn\", \"error\"",
		Alternatives: []string{
			`level = "debug"`,
			`level = "warn"`,
		},
	},
	"log.max_size_mb": {
		Comment: "Maximum log file size in megabytes before rotation.",
	},
}
