// Package main implements the faultwatch daemon and its CLI. Run with no
// arguments it becomes the daemon: it installs the fatal-signal crash
// handler, optionally arms the watchdog, and serves the control endpoint.
// Run with a subcommand (status, dump, watchdog, cancel, raise) it acts as
// a client talking to the running daemon.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	rootpkg "tools.zach/dev/faultwatch"
	"tools.zach/dev/faultwatch/internal/config"
	"tools.zach/dev/faultwatch/internal/control"
	"tools.zach/dev/faultwatch/internal/logger"
	"tools.zach/dev/faultwatch/internal/paths"
	"tools.zach/dev/faultwatch/internal/update"
)

// ///////////////////////////////////////////////
// Version
// ///////////////////////////////////////////////

// version is set at build time via ldflags:
//   - goreleaser: -X main.version={{.Version}}  -> "0.1.0"
//   - make build: -X main.version=$(VERSION)    -> "0.0.0-dev+05ffee5"
//
// When ldflags are not set (bare go build), resolveVersion reads the VCS info
// that Go embeds automatically, so dev builds get a useful version string
// without needing git at runtime.
var version = "dev"

// resolveVersion returns the build version string. If [version] was set via
// ldflags at build time it is returned as-is; otherwise VCS revision and dirty
// state embedded by the Go toolchain are used to construct a "dev+<hash>" tag.
func resolveVersion() string {
	if version != "dev" {
		return version
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return version
	}
	var revision string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if revision == "" {
		return version
	}
	hash := revision[:min(7, len(revision))]
	if dirty {
		return "dev+" + hash + ".dirty"
	}
	return "dev+" + hash
}

// ///////////////////////////////////////////////
// PID Management
// ///////////////////////////////////////////////

// pidToken generates a random 16-character hex token used to prove ownership
// of the PID file, so [removePID] only deletes the file if this instance wrote it.
func pidToken() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// writePID creates or opens the PID file at [DataPaths.PID], acquires an
// advisory file lock, and writes "PID:TOKEN" content. The returned file handle
// must be kept open for the lifetime of the daemon to hold the lock; pass it to
// [removePID] on shutdown.
func writePID(paths DataPaths, token string) (*os.File, error) {
	f, err := os.OpenFile(paths.PID(), os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open PID file: %w", err)
	}
	if err := lockFile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("lock PID file: %w", err)
	}
	if err := f.Truncate(0); err != nil {
		_ = unlockFile(f)
		f.Close()
		return nil, fmt.Errorf("truncate PID file: %w", err)
	}
	content := fmt.Sprintf("%d:%s", os.Getpid(), token)
	if _, err := f.WriteString(content); err != nil {
		_ = unlockFile(f)
		f.Close()
		return nil, fmt.Errorf("write PID file: %w", err)
	}
	return f, nil
}

// removePID releases the advisory lock, closes the file handle, and removes the
// PID file only if the stored token matches, preventing accidental removal of a
// file owned by a different daemon instance.
func removePID(paths DataPaths, token string, f *os.File) {
	if f != nil {
		_ = unlockFile(f)
		f.Close()
	}
	data, err := os.ReadFile(paths.PID())
	if err != nil {
		return
	}
	parts := strings.SplitN(string(data), ":", 2)
	if len(parts) == 2 && parts[1] == token {
		os.Remove(paths.PID())
	}
}

// checkStalePID checks whether another daemon instance is running. It attempts
// to acquire the advisory lock on the PID file; if the lock fails, another
// instance holds it. If the lock succeeds, any previous instance is dead and
// the stale file is cleaned up.
func checkStalePID(paths DataPaths) (alive bool, pid int) {
	f, err := os.OpenFile(paths.PID(), os.O_RDWR, 0o600)
	if err != nil {
		return false, 0
	}

	if lockErr := lockFile(f); lockErr != nil {
		data, _ := os.ReadFile(paths.PID())
		f.Close()
		parts := strings.SplitN(string(data), ":", 2)
		if len(parts) >= 1 {
			if p, convErr := strconv.Atoi(parts[0]); convErr == nil {
				return true, p
			}
		}
		return true, 0
	}

	// Lock acquired -- previous instance is dead. Clean up stale file.
	_ = unlockFile(f)
	f.Close()
	os.Remove(paths.PID())
	return false, 0
}

// ///////////////////////////////////////////////
// Default Data Directory
// ///////////////////////////////////////////////

// defaultDataDir returns the platform default directory for faultwatch data,
// typically ~/.faultwatch. Falls back to ./.faultwatch if the home directory
// cannot be determined.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", paths.DataDirRel)
	}
	return filepath.Join(home, paths.DataDirRel)
}

// ///////////////////////////////////////////////
// Main
// ///////////////////////////////////////////////

func main() {
	dataDir := flag.String("data-dir", defaultDataDir(), "Data directory for config, dumps, and logs")
	flag.Parse()

	dp := DataPaths{Root: *dataDir}

	// A positional argument selects client mode (status, dump, ...).
	if flag.NArg() > 0 {
		os.Exit(runClient(dp, flag.Arg(0), flag.Args()[1:]))
	}

	runDaemon(dp)
}

// runDaemon starts the daemon: single-instance lock, config, logging,
// crash handler, watchdog, control endpoint, config reload, and the
// shutdown loop.
func runDaemon(dp DataPaths) {
	if err := os.MkdirAll(dp.Root, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: create data dir: %v\n", err)
		os.Exit(1)
	}

	if alive, pid := checkStalePID(dp); alive {
		fmt.Fprintf(os.Stderr, "daemon already running (pid %d)\n", pid)
		os.Exit(1)
	}

	if _, err := os.Stat(dp.Config()); os.IsNotExist(err) {
		if writeErr := os.WriteFile(dp.Config(), rootpkg.DefaultConfigTOML, 0o644); writeErr != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to write default config: %v\n", writeErr)
		}
	}

	cfg, err := config.Load(dp.Root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: load config: %v\n", err)
		os.Exit(1)
	}

	logLevel := logger.ParseLevel(cfg.Log.Level)
	log, logCloser, err := logger.NewLogger(dp.Log(), logLevel, cfg.Log.MaxSizeMB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: init logger: %v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()
	slog.SetDefault(log)

	ver := resolveVersion()
	slog.Info("faultwatch starting", "version", ver, "data_dir", dp.Root)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("update check panic", "error", r)
			}
		}()
		update.Check(ver)
	}()

	token := pidToken()
	pidFile, err := writePID(dp, token)
	if err != nil {
		slog.Error("failed to write PID file", "error", err)
		os.Exit(1)
	}
	defer removePID(dp, token, pidFile)

	svc := newService(dp, cfg, ver)
	if err := svc.applyConfig(cfg); err != nil {
		slog.Error("failed to apply config", "error", err)
		os.Exit(1)
	}
	defer svc.close()

	var srv *control.Server
	if cfg.Control.Enabled {
		listener, listenErr := control.Listen(dp)
		if listenErr != nil {
			slog.Error("failed to bind control endpoint", "error", listenErr)
			os.Exit(1)
		}
		srv = control.NewServer(svc, log)
		go func() {
			if serveErr := srv.Serve(listener); serveErr != nil {
				slog.Error("control server stopped", "error", serveErr)
			}
		}()
		defer srv.Close()
		slog.Info("control endpoint ready")
	}

	watcher, err := config.NewWatcher(dp.Config())
	if err != nil {
		slog.Error("failed to watch config", "error", err)
		os.Exit(1)
	}
	defer watcher.Close()

	if watcher.Polling() {
		slog.Info("using polling mode for config watching")
	}

	run(svc, watcher, dp)
}

// ///////////////////////////////////////////////
// Event Loop
// ///////////////////////////////////////////////

// run waits for shutdown signals and config file changes. Config changes
// are debounced by the watcher and re-applied to the handler and watchdog
// in place; log level and control endpoint changes need a restart.
func run(svc *service, watcher *config.Watcher, dp DataPaths) {
	sigCh := signalChannel()

	for {
		select {
		case <-sigCh:
			slog.Info("received shutdown signal")
			return

		case <-watcher.Events():
			cfg, err := config.Load(dp.Root)
			if err != nil {
				slog.Warn("config reload failed, keeping previous config", "error", err)
				continue
			}
			if err := svc.applyConfig(cfg); err != nil {
				slog.Warn("config reload could not be applied", "error", err)
				continue
			}
			slog.Info("config reloaded")
		}
	}
}

// ///////////////////////////////////////////////
// Self-Test Raise
// ///////////////////////////////////////////////

// raiseDelay is how long the daemon waits after answering a raise command
// before delivering the signal, so the response reaches the client first.
const raiseDelay = 100 * time.Millisecond
