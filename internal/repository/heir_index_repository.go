package repository

import "context"

// HeirIndexRepo maintains the reverse index heir address -> owners whose
// active vault names that heir.  The index is a real multi-valued table
// keyed on the (heir, owner) pair: adds are idempotent, removes compact
// automatically, and an heir with no remaining owners simply has no rows.
// It is kept in lock-step with heir list changes by the lifecycle layer
// and pruned on distribution and deactivation.
type HeirIndexRepo struct {
	db DBTX
}

// NewHeirIndexRepo returns a HeirIndexRepo bound to the given handle.
func NewHeirIndexRepo(db DBTX) *HeirIndexRepo { return &HeirIndexRepo{db: db} }

// Add records that owner's vault names heir.  Adding an existing pair is
// a no-op.
func (r *HeirIndexRepo) Add(ctx context.Context, heir, owner string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT IGNORE INTO heir_index (heir, owner) VALUES (?, ?)`, heir, owner)
	return err
}

// Remove drops the pair; removing an absent pair is a no-op.
func (r *HeirIndexRepo) Remove(ctx context.Context, heir, owner string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM heir_index WHERE heir = ? AND owner = ?`, heir, owner)
	return err
}

// OwnersForHeir lists the owners of active vaults naming heir, in
// insertion order.
func (r *HeirIndexRepo) OwnersForHeir(ctx context.Context, heir string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT owner FROM heir_index WHERE heir = ? ORDER BY id`, heir)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var owners []string
	for rows.Next() {
		var o string
		if err := rows.Scan(&o); err != nil {
			return nil, err
		}
		owners = append(owners, o)
	}
	return owners, rows.Err()
}
