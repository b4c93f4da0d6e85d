// Package database provides SQLite connectivity for the press journal.
//
// This package manages:
//   - Database connection with WAL mode
//   - Schema migrations loaded from an fs.FS (embedded by ./migrations)
//   - Connection lifecycle and health checks
//
// All queries use parameterised statements and the database file is
// created with 0600 permissions.
//
// Usage:
//
//	db, err := database.Open(database.FromConfig(cfg.Database))
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql. Schema
// changes only move forward; HealthCheck reports a schema with pending
// migrations as unhealthy.
package database
