package database

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"
)

// upSuffix marks the files Migrate applies. Files without it are ignored.
const upSuffix = ".up.sql"

// MigrationsFS holds the migration files. The migrations package sets it
// to its embedded files at init; nil means there is nothing to apply.
var MigrationsFS fs.FS

// MigrationsDir is the directory within MigrationsFS holding the files.
var MigrationsDir = "migrations"

// Migration is one schema step loaded from MigrationsFS.
type Migration struct {
	// Version is the YYYYMMDD_HHMMSS filename prefix; it orders migrations.
	Version string

	// Name is the description part of the filename.
	Name string

	// SQL is applied in a single transaction.
	SQL string
}

// Migrate applies every pending migration, oldest first.
//
// Each migration commits on its own, so a failure keeps the earlier ones
// and a later Migrate resumes at the one that failed.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: If any migration fails (that migration is rolled back)
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	pending, err := db.Pending(ctx)
	if err != nil {
		return err
	}
	for _, m := range pending {
		if err := db.apply(ctx, m); err != nil {
			return fmt.Errorf("applying migration %s (%s): %w", m.Version, m.Name, err)
		}
	}
	return nil
}

// Pending lists embedded migrations not yet recorded in schema_migrations.
// It fails when migrations exist but the table has never been created.
func (db *DB) Pending(ctx context.Context) ([]Migration, error) {
	all, err := loadMigrations()
	if err != nil {
		return nil, fmt.Errorf("loading migrations: %w", err)
	}
	if len(all) == 0 {
		return nil, nil
	}

	applied, err := db.appliedVersions(ctx)
	if err != nil {
		return nil, err
	}

	var pending []Migration
	for _, m := range all {
		if !applied[m.Version] {
			pending = append(pending, m)
		}
	}
	return pending, nil
}

func (db *DB) appliedVersions(ctx context.Context) (map[string]bool, error) {
	rows, err := db.DB.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("querying migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("scanning migration row: %w", err)
		}
		applied[version] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating migrations: %w", err)
	}
	return applied, nil
}

func (db *DB) apply(ctx context.Context, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return fmt.Errorf("executing SQL: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
		m.Version,
		time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("recording migration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing migration: %w", err)
	}
	return nil
}

// loadMigrations reads the *.up.sql files of MigrationsDir sorted by version.
// A missing directory means no migrations.
func loadMigrations() ([]Migration, error) {
	if MigrationsFS == nil {
		return nil, nil
	}
	entries, err := fs.ReadDir(MigrationsFS, MigrationsDir)
	if err != nil {
		return nil, nil //nolint:nilerr // No migrations directory
	}

	var migrations []Migration
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version, name, ok := parseMigrationName(entry.Name())
		if !ok {
			continue
		}
		data, err := fs.ReadFile(MigrationsFS, path.Join(MigrationsDir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", entry.Name(), err)
		}
		migrations = append(migrations, Migration{Version: version, Name: name, SQL: string(data)})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// parseMigrationName splits "YYYYMMDD_HHMMSS_description.up.sql" into its
// version and description.
func parseMigrationName(filename string) (version, name string, ok bool) {
	base, found := strings.CutSuffix(filename, upSuffix)
	if !found {
		return "", "", false
	}
	parts := strings.SplitN(base, "_", 3)
	if len(parts) < 3 || parts[2] == "" {
		return "", "", false
	}
	return parts[0] + "_" + parts[1], parts[2], true
}
