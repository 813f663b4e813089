// Package quotastore implements atomic day/week send counters keyed by the
// local calendar, so the coordinator never exceeds the configured daily or
// weekly quota even under concurrent callers.
package quotastore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/haasonsaas/outreach-autopilot/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS quota (
	scope TEXT NOT NULL,
	key TEXT NOT NULL,
	used INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (scope, key)
);`

// Store is a durable, atomically-consumed pair of day/week counters.
type Store struct {
	db        *sql.DB
	dayLimit  int
	weekLimit int
	now       func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used to derive day/week keys. Tests
// use this to pin a specific local date.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open opens (creating if necessary) the sqlite-backed quota store at path
// with the given daily and weekly limits.
func Open(path string, dayLimit, weekLimit int, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("quotastore: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("quotastore: migrate: %w", err)
	}
	s := &Store{db: db, dayLimit: dayLimit, weekLimit: weekLimit, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// DayKey returns the YYYY-MM-DD local-date key for t.
func DayKey(t time.Time) string { return t.Local().Format("2006-01-02") }

// WeekKey returns the YYYY-Www local ISO-week key for t.
func WeekKey(t time.Time) string {
	year, week := t.Local().ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// ConsumeResult is the outcome of a TryConsume call.
type ConsumeResult struct {
	Allowed  bool
	Counters domain.QuotaCounters
}

// TryConsume atomically reads both counters (rolling day/week keys if the
// local date has changed since they were last written), checks both limits,
// and — only if both have headroom — increments both and commits. Races
// between concurrent callers are serialized by the single sqlite
// transaction, so no caller can ever over-consume the quota.
//
// A successful consume is a reservation: callers that fail to complete a
// verified send must call Refund so the counters reflect only verified
// successful sends.
func (s *Store) TryConsume(ctx context.Context) (ConsumeResult, error) {
	now := s.now()
	dayKey := DayKey(now)
	weekKey := WeekKey(now)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ConsumeResult{}, fmt.Errorf("quotastore: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	dayUsed, err := getOrCreate(ctx, tx, "day", dayKey)
	if err != nil {
		return ConsumeResult{}, err
	}
	weekUsed, err := getOrCreate(ctx, tx, "week", weekKey)
	if err != nil {
		return ConsumeResult{}, err
	}

	counters := domain.QuotaCounters{
		DayUsed:   dayUsed,
		DayLimit:  s.dayLimit,
		WeekUsed:  weekUsed,
		WeekLimit: s.weekLimit,
		DayKey:    dayKey,
		WeekKey:   weekKey,
		AsOf:      now,
	}

	if dayUsed >= s.dayLimit || weekUsed >= s.weekLimit {
		return ConsumeResult{Allowed: false, Counters: counters}, tx.Commit()
	}

	if _, err := tx.ExecContext(ctx, `UPDATE quota SET used = used + 1 WHERE scope = 'day' AND key = ?`, dayKey); err != nil {
		return ConsumeResult{}, fmt.Errorf("quotastore: increment day: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE quota SET used = used + 1 WHERE scope = 'week' AND key = ?`, weekKey); err != nil {
		return ConsumeResult{}, fmt.Errorf("quotastore: increment week: %w", err)
	}

	counters.DayUsed++
	counters.WeekUsed++

	if err := tx.Commit(); err != nil {
		return ConsumeResult{}, fmt.Errorf("quotastore: commit: %w", err)
	}
	return ConsumeResult{Allowed: true, Counters: counters}, nil
}

// Refund releases a reservation taken by TryConsume whose send did not
// complete as a verified success, decrementing both counters for the
// current day/week keys. Floors at zero: refunding into a rolled-over key
// never produces a negative counter.
func (s *Store) Refund(ctx context.Context) error {
	now := s.now()
	dayKey := DayKey(now)
	weekKey := WeekKey(now)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("quotastore: begin refund: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `UPDATE quota SET used = MAX(used - 1, 0) WHERE scope = 'day' AND key = ?`, dayKey); err != nil {
		return fmt.Errorf("quotastore: refund day: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE quota SET used = MAX(used - 1, 0) WHERE scope = 'week' AND key = ?`, weekKey); err != nil {
		return fmt.Errorf("quotastore: refund week: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("quotastore: commit refund: %w", err)
	}
	return nil
}

// Snapshot returns the current counters without consuming quota.
func (s *Store) Snapshot(ctx context.Context) (domain.QuotaCounters, error) {
	now := s.now()
	dayKey := DayKey(now)
	weekKey := WeekKey(now)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.QuotaCounters{}, err
	}
	defer tx.Rollback() //nolint:errcheck

	dayUsed, err := getOrCreate(ctx, tx, "day", dayKey)
	if err != nil {
		return domain.QuotaCounters{}, err
	}
	weekUsed, err := getOrCreate(ctx, tx, "week", weekKey)
	if err != nil {
		return domain.QuotaCounters{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.QuotaCounters{}, err
	}

	return domain.QuotaCounters{
		DayUsed:   dayUsed,
		DayLimit:  s.dayLimit,
		WeekUsed:  weekUsed,
		WeekLimit: s.weekLimit,
		DayKey:    dayKey,
		WeekKey:   weekKey,
		AsOf:      now,
	}, nil
}

func getOrCreate(ctx context.Context, tx *sql.Tx, scope, key string) (int, error) {
	var used int
	err := tx.QueryRowContext(ctx, `SELECT used FROM quota WHERE scope = ? AND key = ?`, scope, key).Scan(&used)
	if err == sql.ErrNoRows {
		if _, err := tx.ExecContext(ctx, `INSERT INTO quota (scope, key, used) VALUES (?, ?, 0)`, scope, key); err != nil {
			return 0, fmt.Errorf("quotastore: create %s/%s: %w", scope, key, err)
		}
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("quotastore: read %s/%s: %w", scope, key, err)
	}
	return used, nil
}
