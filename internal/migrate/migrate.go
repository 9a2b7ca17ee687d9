// Package migrate applies sequential schema migrations to on-disk data,
// upgrading from one version to the next.
package migrate

import (
	"fmt"
	"sort"

	"log/slog"
)

// ///////////////////////////////////////////////
// Types
// ///////////////////////////////////////////////

// Migration upgrades on-disk data from the prior schema version to
// [Migration.Version].
type Migration struct {
	// Version is the schema version this migration produces.
	Version int
	// Description is a short human-readable label for log output.
	Description string
	// Upgrade transforms data from the prior version to [Migration.Version].
	Upgrade func(data []byte) ([]byte, error)
}

// Registry holds the current version and migration list for one schema
// target. Each target gets its own instance so version numbers are fully
// independent.
type Registry struct {
	// CurrentVersion is the latest schema version that this registry targets.
	CurrentVersion int
	// Migrations is the ordered list of versioned upgrades. Exported so
	// tests can override the migration list for a given registry instance.
	Migrations []Migration
}

// Config is the migration registry for config.toml files.
var Config = &Registry{CurrentVersion: 1}

// ///////////////////////////////////////////////
// Registry API
// ///////////////////////////////////////////////

// Register appends a migration to the registry. It panics if a migration
// with the same version is already registered, preventing silent conflicts.
func (r *Registry) Register(m Migration) {
	for _, existing := range r.Migrations {
		if existing.Version == m.Version {
			panic(fmt.Sprintf("migrate: duplicate migration version %d (description: %q)", m.Version, m.Description))
		}
	}
	r.Migrations = append(r.Migrations, m)
}

// NeedsMigration reports whether a file at fileVersion would have any
// migrations applied.
func (r *Registry) NeedsMigration(fileVersion int) bool {
	if fileVersion != r.CurrentVersion {
		return true
	}
	for _, m := range r.Migrations {
		if fileVersion < m.Version {
			return true
		}
	}
	return false
}

// Run applies registered migrations sequentially where fromVersion < m.Version.
// Returns the transformed data, the final version reached, and any error.
func (r *Registry) Run(data []byte, fromVersion int) ([]byte, int, error) {
	sorted := make([]Migration, len(r.Migrations))
	copy(sorted, r.Migrations)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Version < sorted[j].Version
	})

	version := fromVersion
	for _, m := range sorted {
		if version >= m.Version {
			continue
		}
		slog.Info("applying migration", "version", m.Version, "description", m.Description)
		var err error
		data, err = m.Upgrade(data)
		if err != nil {
			return nil, version, fmt.Errorf("migration to v%d failed: %w", m.Version, err)
		}
		version = m.Version
	}
	return data, version, nil
}
