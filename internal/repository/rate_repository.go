package repository

import (
	"context"
	"database/sql"
	"errors"
)

// DefaultRateCentsPerCoin is used until the oracle pushes a first rate.
const DefaultRateCentsPerCoin uint64 = 5

// RateRepo stores the oracle-pushed exchange rate (USD cents per native
// coin) in the `protocol_settings` table.  The rate is trusted as-is;
// staleness protection is the tier minimum prices, not this layer.
type RateRepo struct {
	db DBTX
}

// NewRateRepo returns a RateRepo bound to the given handle.
func NewRateRepo(db DBTX) *RateRepo { return &RateRepo{db: db} }

// Get returns the current rate, falling back to the default when the
// oracle has not pushed yet.
func (r *RateRepo) Get(ctx context.Context) (uint64, error) {
	var v uint64
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM protocol_settings WHERE name = 'rate' LIMIT 1`).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultRateCentsPerCoin, nil
	}
	if err != nil {
		return 0, err
	}
	return v, nil
}

// Set stores a new rate.
func (r *RateRepo) Set(ctx context.Context, rate uint64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO protocol_settings (name, value) VALUES ('rate', ?)
		 ON DUPLICATE KEY UPDATE value = VALUES(value)`, rate)
	return err
}
