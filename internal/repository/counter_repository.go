package repository

import (
	"context"
	"database/sql"
	"errors"
)

// Counter names are defined next to the Store contract in the lifecycle
// package; the repositories only persist them.  The counters are
// single-writer aggregate cells: every mutation is an atomic in-place
// UPDATE so concurrent distributions of unrelated vaults never lose
// increments.

// CounterRepo provides atomic add/subtract/read over the
// `protocol_counters` table.
type CounterRepo struct {
	db DBTX
}

// NewCounterRepo returns a CounterRepo bound to the given handle.
func NewCounterRepo(db DBTX) *CounterRepo { return &CounterRepo{db: db} }

// Add increments the named counter, creating it at zero first if needed.
func (r *CounterRepo) Add(ctx context.Context, name string, amount uint64) error {
	if amount == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO protocol_counters (name, value) VALUES (?, ?)
		 ON DUPLICATE KEY UPDATE value = value + VALUES(value)`, name, amount)
	return err
}

// Sub decrements the named counter, flooring at zero.  The floor guards
// the withdraw paths: the admin can never pull more than was tracked.
func (r *CounterRepo) Sub(ctx context.Context, name string, amount uint64) error {
	if amount == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE protocol_counters
		 SET value = IF(value > ?, value - ?, 0)
		 WHERE name = ?`, amount, amount, name)
	return err
}

// Get reads the named counter; an absent row reads as zero.
func (r *CounterRepo) Get(ctx context.Context, name string) (uint64, error) {
	var v uint64
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM protocol_counters WHERE name = ? LIMIT 1`, name).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return v, nil
}
