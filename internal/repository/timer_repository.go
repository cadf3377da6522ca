package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/legacy-vault/internal/model"
)

// TimerRepo stores the scheduled-callback handle of the pending timer
// chain hop per owner.  At most one row exists per owner while the vault
// is active; the row is gone once the chain is cancelled or exhausted by
// the final distribution.
type TimerRepo struct {
	db DBTX
}

// NewTimerRepo returns a TimerRepo bound to the given handle.
func NewTimerRepo(db DBTX) *TimerRepo { return &TimerRepo{db: db} }

// Get returns the pending entry for owner, or nil when no hop is armed.
func (r *TimerRepo) Get(ctx context.Context, owner string) (*model.TimerEntry, error) {
	var e model.TimerEntry
	err := r.db.QueryRowContext(ctx,
		`SELECT owner, handle, target_ms FROM vault_timers WHERE owner = ? LIMIT 1`,
		owner).Scan(&e.Owner, &e.Handle, &e.TargetMs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Save upserts the pending entry, replacing any previous hop's handle.
func (r *TimerRepo) Save(ctx context.Context, e *model.TimerEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO vault_timers (owner, handle, target_ms) VALUES (?,?,?)
		 ON DUPLICATE KEY UPDATE handle = VALUES(handle), target_ms = VALUES(target_ms)`,
		e.Owner, e.Handle, e.TargetMs)
	return err
}

// Delete clears the entry; deleting an absent entry is a no-op.
func (r *TimerRepo) Delete(ctx context.Context, owner string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM vault_timers WHERE owner = ?`, owner)
	return err
}
