// Package seenstore persists the set of profile fingerprints already
// processed, so the coordinator never re-sends to the same candidate
// across runs.
package seenstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS seen (
	fingerprint TEXT PRIMARY KEY,
	first_seen_ts TIMESTAMP NOT NULL
);`

// Store is a durable, concurrent-reader/single-writer set of fingerprints.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the sqlite-backed seen store at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("seenstore: open: %w", err)
	}
	db.SetMaxOpenConns(1) // single-writer sqlite file
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("seenstore: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// IsSeen reports whether fp has already been marked seen.
func (s *Store) IsSeen(ctx context.Context, fp string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM seen WHERE fingerprint = ?`, fp).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("seenstore: is_seen: %w", err)
	}
	return count > 0, nil
}

// MarkSeen inserts fp with the current timestamp. Idempotent: marking an
// already-seen fingerprint is a no-op, never an error.
func (s *Store) MarkSeen(ctx context.Context, fp string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO seen (fingerprint, first_seen_ts) VALUES (?, ?)
		 ON CONFLICT(fingerprint) DO NOTHING`,
		fp, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("seenstore: mark_seen: %w", err)
	}
	return nil
}
