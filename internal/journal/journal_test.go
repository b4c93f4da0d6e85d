package journal

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-deck/internal/infrastructure/database"
	_ "github.com/nerrad567/gray-logic-deck/migrations" // Embedded schema
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	db, err := database.Open(database.Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewSQLiteRepository(db.DB)
}

// =============================================================================
// Record / Get Tests
// =============================================================================

func TestRecordGeneratesIDAndTime(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	e := &Entry{
		Context:     "ctx-1",
		Device:      "dev-1",
		ButtonIndex: 3,
		Path:        "actions/mirabox/button-3",
		Publisher:   "http",
		Target:      "https://example.test/hook",
		Success:     true,
		Duration:    42 * time.Millisecond,
	}
	if err := repo.Record(ctx, e); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if !strings.HasPrefix(e.ID, "prs-") {
		t.Errorf("ID = %q, want prs- prefix", e.ID)
	}
	if e.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}

	got, err := repo.Get(ctx, e.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Context != "ctx-1" || got.ButtonIndex != 3 || got.Publisher != "http" || !got.Success {
		t.Errorf("Get() = %+v", got)
	}
	if got.Duration != 42*time.Millisecond {
		t.Errorf("Duration = %v, want 42ms", got.Duration)
	}
	if !got.CreatedAt.Equal(e.CreatedAt.Truncate(time.Microsecond)) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, e.CreatedAt)
	}
}

func TestGetNotFound(t *testing.T) {
	repo := newTestRepo(t)
	if _, err := repo.Get(context.Background(), "prs-missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestRecordDuplicateID(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	e := &Entry{ID: "prs-fixed", Context: "c", ButtonIndex: 1, Path: "p", Publisher: "http"}
	if err := repo.Record(ctx, e); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	dup := *e
	if err := repo.Record(ctx, &dup); err == nil {
		t.Error("Record() with duplicate ID succeeded")
	}
}

// =============================================================================
// List / Prune Tests
// =============================================================================

func seed(t *testing.T, repo *SQLiteRepository, base time.Time) {
	t.Helper()
	entries := []Entry{
		{Context: "a", ButtonIndex: 1, Path: "actions/mirabox/button-1", Publisher: "http", Success: true, CreatedAt: base},
		{Context: "a", ButtonIndex: 1, Path: "actions/mirabox/button-1", Publisher: "mqtt", Success: false, Error: "not connected", CreatedAt: base.Add(time.Second)},
		{Context: "b", ButtonIndex: 2, Path: "actions/mirabox/button-2", Publisher: "http", Success: false, Error: "HTTP 500", CreatedAt: base.Add(2 * time.Second)},
		{Context: "b", ButtonIndex: 2, Path: "actions/mirabox/button-2", Publisher: "http", Success: true, CreatedAt: base.Add(3 * time.Second)},
	}
	for i := range entries {
		if err := repo.Record(context.Background(), &entries[i]); err != nil {
			t.Fatalf("Record(%d) error = %v", i, err)
		}
	}
}

func TestList(t *testing.T) {
	repo := newTestRepo(t)
	base := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	seed(t, repo, base)

	tests := []struct {
		name      string
		filter    Filter
		wantTotal int
		wantFirst string // error or publisher of the first entry
	}{
		{"all newest first", Filter{}, 4, "http"},
		{"by context", Filter{Context: "a"}, 2, "mqtt"},
		{"by publisher", Filter{Publisher: "mqtt"}, 1, "mqtt"},
		{"failed only", Filter{Failed: true}, 2, "http"},
		{"since", Filter{Since: base.Add(2 * time.Second)}, 2, "http"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := repo.List(context.Background(), tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if res.Total != tt.wantTotal || len(res.Entries) != tt.wantTotal {
				t.Fatalf("Total = %d, entries = %d, want %d", res.Total, len(res.Entries), tt.wantTotal)
			}
			if res.Entries[0].Publisher != tt.wantFirst {
				t.Errorf("first publisher = %q, want %q", res.Entries[0].Publisher, tt.wantFirst)
			}
			for i := 1; i < len(res.Entries); i++ {
				if res.Entries[i].CreatedAt.After(res.Entries[i-1].CreatedAt) {
					t.Errorf("entries not ordered newest first at %d", i)
				}
			}
		})
	}
}

func TestListPagination(t *testing.T) {
	repo := newTestRepo(t)
	base := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	seed(t, repo, base)

	res, err := repo.List(context.Background(), Filter{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if res.Total != 4 || len(res.Entries) != 2 || res.Limit != 2 || res.Offset != 2 {
		t.Fatalf("page = total %d len %d limit %d offset %d", res.Total, len(res.Entries), res.Limit, res.Offset)
	}
	if !res.Entries[0].CreatedAt.Equal(base.Add(time.Second)) {
		t.Errorf("first entry of second page created at %v", res.Entries[0].CreatedAt)
	}

	res, err = repo.List(context.Background(), Filter{Limit: 10000, Offset: -5})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if res.Limit != maxLimit || res.Offset != 0 {
		t.Errorf("clamped limit/offset = %d/%d, want %d/0", res.Limit, res.Offset, maxLimit)
	}
}

func TestListEmpty(t *testing.T) {
	repo := newTestRepo(t)
	res, err := repo.List(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if res.Entries == nil || len(res.Entries) != 0 || res.Total != 0 {
		t.Errorf("List() on empty journal = %+v, want empty non-nil page", res)
	}
}

func TestPrune(t *testing.T) {
	repo := newTestRepo(t)
	base := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	seed(t, repo, base)

	n, err := repo.Prune(context.Background(), base.Add(2*time.Second))
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Prune() removed %d, want 2", n)
	}

	res, err := repo.List(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if res.Total != 2 {
		t.Errorf("remaining = %d, want 2", res.Total)
	}
}
