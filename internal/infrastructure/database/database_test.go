package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-deck/internal/infrastructure/config"
)

// openTestDB creates a temporary on-disk database for testing.
func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(Config{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup
	return db
}

// =============================================================================
// Open Tests
// =============================================================================

func TestOpen(t *testing.T) {
	t.Run("creates nested directory and file", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "data", "nested", "graydeck.db")

		db, err := Open(Config{Path: dbPath, WALMode: true, BusyTimeout: 5})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer db.Close() //nolint:errcheck // Test cleanup

		if _, err := os.Stat(dbPath); err != nil {
			t.Errorf("database file not created: %v", err)
		}
		if db.Path() != dbPath {
			t.Errorf("Path() = %q, want %q", db.Path(), dbPath)
		}
	})

	t.Run("in memory", func(t *testing.T) {
		db, err := Open(Config{Path: ":memory:", WALMode: true})
		if err != nil {
			t.Fatalf("Open(:memory:) error = %v", err)
		}
		defer db.Close() //nolint:errcheck // Test cleanup

		ctx := context.Background()
		if _, err := db.ExecContext(ctx, "CREATE TABLE t (id INTEGER PRIMARY KEY)"); err != nil {
			t.Fatalf("CREATE TABLE error = %v", err)
		}
		if _, err := db.ExecContext(ctx, "INSERT INTO t DEFAULT VALUES"); err != nil {
			t.Fatalf("INSERT error = %v", err)
		}
	})
}

func TestFromConfig(t *testing.T) {
	got := FromConfig(config.DatabaseConfig{Enabled: true, Path: "./data/x.db", WALMode: true, BusyTimeout: 7})
	want := Config{Path: "./data/x.db", WALMode: true, BusyTimeout: 7}
	if got != want {
		t.Errorf("FromConfig() = %+v, want %+v", got, want)
	}
}

func TestHealthCheck(t *testing.T) {
	db := openTestDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestClose(t *testing.T) {
	db := openTestDB(t)
	if err := db.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	var nilDB *DB
	if err := nilDB.Close(); err != nil {
		t.Errorf("Close() on nil DB error = %v", err)
	}
}

// =============================================================================
// Transaction Tests
// =============================================================================

func TestBeginTx(t *testing.T) {
	tests := []struct {
		name      string
		commit    bool
		wantCount int
	}{
		{"commit keeps row", true, 1},
		{"rollback discards row", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := openTestDB(t)
			ctx := context.Background()

			if _, err := db.ExecContext(ctx, "CREATE TABLE tx_test (id INTEGER PRIMARY KEY, value TEXT)"); err != nil {
				t.Fatalf("CREATE TABLE error = %v", err)
			}

			tx, err := db.BeginTx(ctx, nil)
			if err != nil {
				t.Fatalf("BeginTx() error = %v", err)
			}
			if _, err := tx.ExecContext(ctx, "INSERT INTO tx_test (value) VALUES (?)", "v"); err != nil {
				t.Fatalf("INSERT error = %v", err)
			}
			if tt.commit {
				err = tx.Commit()
			} else {
				err = tx.Rollback()
			}
			if err != nil {
				t.Fatalf("finishing transaction: %v", err)
			}

			var count int
			if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tx_test").Scan(&count); err != nil {
				t.Fatalf("SELECT error = %v", err)
			}
			if count != tt.wantCount {
				t.Errorf("rows = %d, want %d", count, tt.wantCount)
			}
		})
	}
}

func TestSingleConnection(t *testing.T) {
	db := openTestDB(t)
	if got := db.Stats().MaxOpenConnections; got != 1 {
		t.Errorf("MaxOpenConnections = %d, want 1", got)
	}
}
