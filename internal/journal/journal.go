package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// timeLayout sorts lexically in time order; all timestamps are stored in UTC.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// List page size bounds.
const (
	defaultLimit = 50
	maxLimit     = 500
)

// Entry is one press delivery attempt.
type Entry struct {
	ID          string        `json:"id"`
	Context     string        `json:"context"`
	Device      string        `json:"device,omitempty"`
	ButtonIndex int           `json:"button_index"`
	Path        string        `json:"path"`
	Publisher   string        `json:"publisher"`
	Target      string        `json:"target,omitempty"`
	Success     bool          `json:"success"`
	Error       string        `json:"error,omitempty"`
	Duration    time.Duration `json:"duration"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Filter controls which entries List returns.
type Filter struct {
	Context   string    // optional: only this instance
	Publisher string    // optional: only this publisher
	Failed    bool      // only unsuccessful deliveries
	Since     time.Time // optional: created at or after
	Limit     int       // default 50, max 500
	Offset    int
}

// ListResult is a page of entries, most recent first.
type ListResult struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

// Repository defines the journal operations.
type Repository interface {
	Record(ctx context.Context, e *Entry) error
	Get(ctx context.Context, id string) (*Entry, error)
	List(ctx context.Context, filter Filter) (*ListResult, error)
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// SQLiteRepository stores entries in the press_journal table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a journal over an open, migrated database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Record inserts e. ID and CreatedAt are generated when empty.
func (r *SQLiteRepository) Record(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = "prs-" + uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	e.CreatedAt = e.CreatedAt.UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO press_journal
		   (id, context, device, button_index, path, publisher, target, success, error, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Context, e.Device, e.ButtonIndex, e.Path, e.Publisher, e.Target,
		boolToInt(e.Success), e.Error, e.Duration.Milliseconds(),
		e.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting press journal entry: %w", err)
	}
	return nil
}

// Get returns the entry with id, or ErrNotFound.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (*Entry, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting press journal entry: %w", err)
	}
	return e, nil
}

// List returns entries matching filter, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultLimit
	}
	if filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var conditions []string
	var args []any
	if filter.Context != "" {
		conditions = append(conditions, "context = ?")
		args = append(args, filter.Context)
	}
	if filter.Publisher != "" {
		conditions = append(conditions, "publisher = ?")
		args = append(args, filter.Publisher)
	}
	if filter.Failed {
		conditions = append(conditions, "success = 0")
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, filter.Since.UTC().Format(timeLayout))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	//nolint:gosec // WHERE built from parameterised conditions, not user input
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM press_journal"+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting press journal entries: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		selectColumns+where+" ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?",
		append(args, filter.Limit, filter.Offset)...,
	)
	if err != nil {
		return nil, fmt.Errorf("querying press journal: %w", err)
	}
	defer rows.Close()

	result := &ListResult{
		Entries: []Entry{},
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning press journal row: %w", err)
		}
		result.Entries = append(result.Entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating press journal: %w", err)
	}
	return result, nil
}

// Prune deletes entries created before the cutoff and reports how many.
func (r *SQLiteRepository) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM press_journal WHERE created_at < ?",
		before.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("pruning press journal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("pruning press journal: %w", err)
	}
	return n, nil
}

const selectColumns = `SELECT id, context, device, button_index, path, publisher, target,
	success, error, duration_ms, created_at FROM press_journal`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*Entry, error) {
	var (
		e          Entry
		success    int
		durationMS int64
		createdAt  string
	)
	if err := s.Scan(&e.ID, &e.Context, &e.Device, &e.ButtonIndex, &e.Path, &e.Publisher,
		&e.Target, &success, &e.Error, &durationMS, &createdAt); err != nil {
		return nil, err
	}
	e.Success = success != 0
	e.Duration = time.Duration(durationMS) * time.Millisecond
	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at %q: %w", createdAt, err)
	}
	e.CreatedAt = t
	return &e, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
