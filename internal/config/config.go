// Package config provides configuration loading and defaults for the
// faultwatch daemon.
//
// Configuration is loaded from a TOML file in the user's data directory.
// The package covers fault handler settings, watchdog defaults, dump
// output and filtering, and daemon behavior with sensible defaults.
package config

//go:generate go run ../../cmd/genconfig

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"tools.zach/dev/faultwatch/internal/atomicfile"
	"tools.zach/dev/faultwatch/internal/migrate"
	"tools.zach/dev/faultwatch/internal/paths"
	"tools.zach/dev/faultwatch/internal/stackdump"
)

// ///////////////////////////////////////////////
// Configuration Types
// ///////////////////////////////////////////////

// Config represents the top-level application configuration.
type Config struct {
	// Version is the config schema version used for migrations.
	Version int `toml:"version"`
	// Fault holds fatal-signal handler settings.
	Fault FaultConfig `toml:"fault"`
	// Watchdog holds watchdog timer settings.
	Watchdog WatchdogConfig `toml:"watchdog"`
	// Dump holds dump output and filtering settings.
	Dump DumpConfig `toml:"dump"`
	// Control holds control endpoint settings.
	Control ControlConfig `toml:"control"`
	// Log holds logging settings.
	Log LogConfig `toml:"log"`
}

// FaultConfig holds fatal-signal handler settings.
type FaultConfig struct {
	// Enabled installs the crash handler at daemon startup.
	Enabled bool `toml:"enabled"`
	// AllGoroutines widens crash dumps to every goroutine.
	AllGoroutines bool `toml:"all_goroutines"`
}

// WatchdogConfig holds watchdog timer settings applied at startup.
// The control endpoint can re-arm or cancel at runtime regardless.
type WatchdogConfig struct {
	// Enabled arms the watchdog when the daemon starts.
	Enabled bool `toml:"enabled"`
	// DelaySeconds is the countdown before a watchdog dump.
	DelaySeconds int `toml:"delay_seconds"`
	// Repeat re-arms the watchdog after each dump.
	Repeat bool `toml:"repeat"`
	// AllGoroutines widens watchdog dumps to every goroutine.
	AllGoroutines bool `toml:"all_goroutines"`
}

// DumpConfig holds dump output and filtering settings.
type DumpConfig struct {
	// ReserveKB is the size of the preallocated crash dump buffer in
	// kilobytes. Zero disables the reserve; crash dumps then allocate.
	ReserveKB int `toml:"reserve_kb"`
	// Hide lists glob patterns for function names whose goroutines are
	// dropped from on-demand dumps. Crash dumps are never filtered.
	Hide []string `toml:"hide"`
	// File is the crash dump destination. Empty means crash.log inside
	// the data directory.
	File string `toml:"file,omitempty"`
}

// ControlConfig holds control endpoint settings.
type ControlConfig struct {
	// Enabled binds the control socket (or named pipe on Windows).
	Enabled bool `toml:"enabled"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	Level string `toml:"level"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation.
	MaxSizeMB int `toml:"max_size_mb"`
}

// ///////////////////////////////////////////////
// Default Configuration
// ///////////////////////////////////////////////

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: migrate.Config.CurrentVersion,
		Fault: FaultConfig{
			Enabled:       true,
			AllGoroutines: false,
		},
		Watchdog: WatchdogConfig{
			Enabled:      false,
			DelaySeconds: 60,
			Repeat:       false,
		},
		Dump: DumpConfig{
			ReserveKB: 64,
			Hide:      []string{},
		},
		Control: ControlConfig{
			Enabled: true,
		},
		Log: LogConfig{
			Level:     "info",
			MaxSizeMB: 10,
		},
	}
}

// ///////////////////////////////////////////////
// Example Configuration
// ///////////////////////////////////////////////

// ExampleConfig returns a Config suitable for generating config.default.toml.
// For this project all defaults are good examples.
func ExampleConfig() *Config {
	return DefaultConfig()
}

// ///////////////////////////////////////////////
// PeekVersion
// ///////////////////////////////////////////////

// PeekVersion reads just the version field from raw TOML bytes.
// Returns 1 if the version field is missing or zero.
func PeekVersion(data []byte) int {
	var v struct {
		Version int `toml:"version"`
	}
	if err := toml.Unmarshal(data, &v); err != nil {
		return 1
	}
	if v.Version == 0 {
		return 1
	}
	return v.Version
}

// ///////////////////////////////////////////////
// Loading and Saving
// ///////////////////////////////////////////////

// Load reads and parses the configuration file from dataDir/config.toml.
// If the file doesn't exist, returns DefaultConfig.
func Load(dataDir string) (*Config, error) {
	path := filepath.Join(dataDir, paths.ConfigFile)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	version := PeekVersion(data)

	// Apply migrations if needed
	shouldMigrate := version != migrate.Config.CurrentVersion
	if shouldMigrate {
		// Write backup before migration
		if backupErr := os.WriteFile(path+".bak", data, 0o644); backupErr != nil {
			slog.Warn("failed to write config backup", "error", backupErr)
		}
		var migrateErr error
		data, _, migrateErr = migrate.Config.Run(data, version)
		if migrateErr != nil {
			return nil, fmt.Errorf("migrate config: %w", migrateErr)
		}
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Version = migrate.Config.CurrentVersion

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	// Re-save after migration
	if shouldMigrate {
		if err := cfg.Save(path); err != nil {
			slog.Warn("failed to save migrated config", "error", err)
		}
	}

	return cfg, nil
}

// Save writes the config to disk as TOML using atomic file write.
func (c *Config) Save(path string) error {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return atomicfile.Write(path, buf.Bytes(), 0o644)
}

// ///////////////////////////////////////////////
// Validation
// ///////////////////////////////////////////////

// validLogLevels is the set of accepted log level strings.
var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true,
}

// Validate checks that all configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log.level %q: must be trace, debug, info, warn, or error", c.Log.Level)
	}

	if c.Log.MaxSizeMB <= 0 {
		return fmt.Errorf("log.max_size_mb must be > 0, got %d", c.Log.MaxSizeMB)
	}

	if c.Watchdog.DelaySeconds <= 0 {
		return fmt.Errorf("watchdog.delay_seconds must be > 0, got %d", c.Watchdog.DelaySeconds)
	}

	if c.Dump.ReserveKB < 0 {
		return fmt.Errorf("dump.reserve_kb must be >= 0, got %d", c.Dump.ReserveKB)
	}

	for _, pattern := range c.Dump.Hide {
		if !stackdump.ValidatePattern(pattern) {
			return fmt.Errorf("invalid dump.hide pattern %q", pattern)
		}
	}

	return nil
}

// ///////////////////////////////////////////////
// Resolution Helpers
// ///////////////////////////////////////////////

// CrashFile resolves the crash dump destination for the given data
// directory, honoring the dump.file override.
func (c *Config) CrashFile(dir paths.DataDir) string {
	if c.Dump.File != "" {
		return c.Dump.File
	}
	return dir.Crash()
}

// ReserveBytes converts the configured reserve size to bytes. A zero
// reserve_kb means no reserve at all, reported as -1 because a zero
// handler option selects the default size instead.
func (c *Config) ReserveBytes() int {
	if c.Dump.ReserveKB == 0 {
		return -1
	}
	return c.Dump.ReserveKB * 1024
}
