package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNoEntries is returned by Latest when the journal is empty.
var ErrNoEntries = errors.New("journal is empty")

// JournalEntry is one successfully persisted seed snapshot.
type JournalEntry struct {
	ID      int64
	SavedAt time.Time
	Body    []byte
}

// Journal records every seed snapshot that reached disk.
type Journal struct {
	db *sql.DB
}

// NewJournal wraps an open database.
func NewJournal(db *DB) *Journal {
	return &Journal{db: db.DB}
}

// Append stores a snapshot taken at the given time.
func (j *Journal) Append(ctx context.Context, at time.Time, body []byte) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO seed_journal (saved_at, size_bytes, body) VALUES (?, ?, ?)`,
		at.UnixMilli(), len(body), string(body),
	)
	if err != nil {
		return fmt.Errorf("append journal entry: %w", err)
	}
	return nil
}

// Latest returns the most recent snapshot.
func (j *Journal) Latest(ctx context.Context) (JournalEntry, error) {
	var (
		entry   JournalEntry
		savedAt int64
		body    string
	)
	err := j.db.QueryRowContext(ctx,
		`SELECT id, saved_at, body FROM seed_journal ORDER BY id DESC LIMIT 1`,
	).Scan(&entry.ID, &savedAt, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return JournalEntry{}, ErrNoEntries
	}
	if err != nil {
		return JournalEntry{}, fmt.Errorf("read latest journal entry: %w", err)
	}
	entry.SavedAt = time.UnixMilli(savedAt)
	entry.Body = []byte(body)
	return entry, nil
}

// Count returns the number of retained snapshots.
func (j *Journal) Count(ctx context.Context) (int, error) {
	var n int
	if err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM seed_journal`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count journal entries: %w", err)
	}
	return n, nil
}

// Prune deletes all but the newest keep snapshots and returns how many rows
// were removed.
func (j *Journal) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 1 {
		keep = 1
	}
	res, err := j.db.ExecContext(ctx, `
		DELETE FROM seed_journal
		WHERE id NOT IN (SELECT id FROM seed_journal ORDER BY id DESC LIMIT ?)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune journal: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
