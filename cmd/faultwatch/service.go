package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"tools.zach/dev/faultwatch/internal/config"
	"tools.zach/dev/faultwatch/internal/control"
	"tools.zach/dev/faultwatch/internal/fault"
	"tools.zach/dev/faultwatch/internal/logger"
	"tools.zach/dev/faultwatch/internal/stackdump"
)

// defaultStatusLines is the log tail length for a status request that does
// not specify one.
const defaultStatusLines = 10

// ///////////////////////////////////////////////
// Service
// ///////////////////////////////////////////////

// service implements [control.Service] over the daemon's crash handler and
// watchdog. applyConfig reconciles it against a loaded config; the control
// server calls the rest.
type service struct {
	dp      DataPaths
	version string
	started time.Time

	mu       sync.Mutex
	cfg      *config.Config
	handler  *fault.Handler
	watchdog *fault.Watchdog
	// crashOut is the opened crash dump destination, shared by the handler
	// and the watchdog. Reopened when the configured path changes.
	crashOut  *os.File
	crashPath string
}

func newService(dp DataPaths, cfg *config.Config, version string) *service {
	return &service{
		dp:       dp,
		version:  version,
		started:  time.Now(),
		cfg:      cfg,
		watchdog: fault.NewWatchdog(),
	}
}

// applyConfig reconciles the handler and watchdog with cfg. Safe to call
// repeatedly; used both at startup and on config reload.
func (s *service) applyConfig(cfg *config.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureCrashOutLocked(cfg.CrashFile(s.dp)); err != nil {
		return err
	}

	// Crash handler: reinstall when the fault section changed, so option
	// changes (scope, reserve size) take effect.
	if cfg.Fault.Enabled {
		reinstall := s.handler == nil || s.cfg.Fault != cfg.Fault ||
			s.cfg.Dump.ReserveKB != cfg.Dump.ReserveKB || s.cfg.Dump.File != cfg.Dump.File
		if reinstall {
			if s.handler != nil {
				s.handler.Close()
				s.handler = nil
			}
			h := fault.New(fault.Options{
				Output:        s.crashOut,
				AllGoroutines: cfg.Fault.AllGoroutines,
				ReserveBytes:  cfg.ReserveBytes(),
			})
			if err := h.Enable(); err != nil {
				return fmt.Errorf("enable crash handler: %w", err)
			}
			s.handler = h
			slog.Info("crash handler installed",
				"signals", strings.Join(fault.SignalNames(), ","),
				"all_goroutines", cfg.Fault.AllGoroutines,
			)
		}
	} else if s.handler != nil {
		s.handler.Close()
		s.handler = nil
		slog.Info("crash handler removed")
	}

	// Watchdog: only the config-driven arming is reconciled here. Runtime
	// schedules through the control endpoint stay untouched unless the
	// config explicitly arms or disarms.
	if cfg.Watchdog.Enabled {
		changed := s.cfg.Watchdog != cfg.Watchdog || !s.watchdog.Armed()
		if changed {
			err := s.watchdog.Schedule(cfg.Watchdog.DelaySeconds, fault.ScheduleOptions{
				Repeat:        cfg.Watchdog.Repeat,
				AllGoroutines: cfg.Watchdog.AllGoroutines,
				Output:        s.crashOut,
			})
			if err != nil {
				return fmt.Errorf("arm watchdog: %w", err)
			}
			slog.Info("watchdog armed",
				"delay_seconds", cfg.Watchdog.DelaySeconds,
				"repeat", cfg.Watchdog.Repeat,
			)
		}
	} else if s.cfg.Watchdog.Enabled && !cfg.Watchdog.Enabled {
		s.watchdog.Cancel()
		slog.Info("watchdog disarmed")
	}

	s.cfg = cfg
	return nil
}

// ensureCrashOutLocked opens (or reopens) the crash dump file in append
// mode. The caller must hold s.mu.
func (s *service) ensureCrashOutLocked(path string) error {
	if s.crashOut != nil && s.crashPath == path {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open crash file: %w", err)
	}
	if s.crashOut != nil {
		s.crashOut.Close()
	}
	s.crashOut = f
	s.crashPath = path
	return nil
}

// close tears down the handler, watchdog, and crash output.
func (s *service) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handler != nil {
		s.handler.Close()
		s.handler = nil
	}
	s.watchdog.Cancel()
	if s.crashOut != nil {
		s.crashOut.Close()
		s.crashOut = nil
	}
}

// ///////////////////////////////////////////////
// control.Service
// ///////////////////////////////////////////////

func (s *service) Status(lines int) control.StatusInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	if lines <= 0 {
		lines = defaultStatusLines
	}
	info := control.StatusInfo{
		PID:           os.Getpid(),
		Version:       s.version,
		Enabled:       s.handler != nil && s.handler.Enabled(),
		WatchdogArmed: s.watchdog.Armed(),
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	}
	if tail, err := logger.ReadTail(s.dp.Log(), lines); err == nil && tail != "" {
		info.LogTail = strings.Split(strings.TrimRight(tail, "\n"), "\n")
	}
	return info
}

func (s *service) Dump(all bool) (string, error) {
	s.mu.Lock()
	hide := s.cfg.Dump.Hide
	s.mu.Unlock()

	return string(stackdump.Render(all, hide)), nil
}

func (s *service) ScheduleWatchdog(delaySeconds int, repeat, all bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.watchdog.Schedule(delaySeconds, fault.ScheduleOptions{
		Repeat:        repeat,
		AllGoroutines: all,
		Output:        s.crashOut,
	})
}

func (s *service) CancelWatchdog() {
	s.watchdog.Cancel()
}

// Raise validates the fault name, then delivers the signal after
// [raiseDelay] so the control response reaches the client first. With the
// handler enabled this dumps a backtrace and kills the daemon.
func (s *service) Raise(name string) error {
	sig, err := fault.SignalByName(name)
	if err != nil {
		return fmt.Errorf("raise %q: %w", name, err)
	}
	slog.Warn("self-test fault requested", "signal", name)
	time.AfterFunc(raiseDelay, func() {
		if raiseErr := stackdump.Raise(sig); raiseErr != nil {
			slog.Error("self-test raise failed", "error", raiseErr)
		}
	})
	return nil
}
