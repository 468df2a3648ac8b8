// Package history appends persisted offer changes to a SQLite database.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/geniass/offers-updater/pkg/offers"
)

const schema = `CREATE TABLE IF NOT EXISTS price_changes (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL,
	url         TEXT NOT NULL,
	field       TEXT NOT NULL,
	old_value   TEXT,
	new_value   TEXT NOT NULL,
	recorded_at TEXT NOT NULL
)`

// Entry is one recorded field change.
type Entry struct {
	RunID      string
	URL        string
	Field      string
	Old        string
	New        string
	RecordedAt time.Time
}

type Recorder struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the history database at path.
func Open(path string) (*Recorder, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating history schema in %s: %w", path, err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_price_changes_url ON price_changes(url)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating history index in %s: %w", path, err)
	}
	return &Recorder{db: db, now: time.Now}, nil
}

func (r *Recorder) Close() error {
	return r.db.Close()
}

// Record stores changes in a single transaction.
func (r *Recorder) Record(ctx context.Context, runID string, changes []offers.FieldChange) (err error) {
	if len(changes) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("recording history: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO price_changes (run_id, url, field, old_value, new_value, recorded_at) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("recording history: %w", err)
	}
	defer stmt.Close()

	recordedAt := r.now().UTC().Format(time.RFC3339)
	for _, c := range changes {
		var old sql.NullString
		if c.Old != "" {
			old = sql.NullString{String: c.Old, Valid: true}
		}
		if _, err = stmt.ExecContext(ctx, runID, c.URL, c.Field, old, c.New, recordedAt); err != nil {
			return fmt.Errorf("recording change for %s: %w", c.URL, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("recording history: %w", err)
	}
	return nil
}

// Recent returns the latest limit changes, newest first.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT run_id, url, field, old_value, new_value, recorded_at FROM price_changes ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var old sql.NullString
		var recordedAt string
		if err := rows.Scan(&e.RunID, &e.URL, &e.Field, &old, &e.New, &recordedAt); err != nil {
			return nil, fmt.Errorf("reading history: %w", err)
		}
		e.Old = old.String
		if e.RecordedAt, err = time.Parse(time.RFC3339, recordedAt); err != nil {
			return nil, fmt.Errorf("reading history: recorded_at %q: %w", recordedAt, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	return entries, nil
}
