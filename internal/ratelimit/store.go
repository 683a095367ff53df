package ratelimit

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store is the shared counter store behind the admission controller.
// Incr must be a single atomic increment-and-return for the given
// (key, window) pair; callers compare the returned value against the
// threshold, never read-then-write.
type Store interface {
	Incr(ctx context.Context, key string, windowStart time.Time) (int64, error)
}

// PostgresStore implements Store on the rate_limits table
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore creates a counter store backed by PostgreSQL
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{
		db: db,
	}
}

// Incr bumps the counter for the key's current window and returns the new
// value. The upsert executes as one statement, so two requests hitting the
// same key simultaneously can never observe the same count.
func (s *PostgresStore) Incr(ctx context.Context, key string, windowStart time.Time) (int64, error) {
	query := `
		INSERT INTO rate_limits (key, window_start, count)
		VALUES ($1, $2, 1)
		ON CONFLICT (key, window_start)
		DO UPDATE SET count = rate_limits.count + 1
		RETURNING count
	`

	var count int64
	err := s.db.GetContext(ctx, &count, query, key, windowStart.UTC())
	if err != nil {
		return 0, err
	}

	return count, nil
}

// DeleteWindowsBefore removes counters for windows that ended before the
// cutoff. Expired rows are dead weight only; call this from an external
// scheduler if table growth matters.
func (s *PostgresStore) DeleteWindowsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM rate_limits WHERE window_start < $1`, cutoff.UTC())
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}
