package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/legacy-vault/internal/model"
)

// DistributionRepo persists the append-once distribution records and the
// heir-side index of received inheritances.  A record exists iff the
// vault's balance was paid out to heirs; voluntary deactivation never
// writes one.
type DistributionRepo struct {
	db DBTX
}

// NewDistributionRepo returns a DistributionRepo bound to the handle.
func NewDistributionRepo(db DBTX) *DistributionRepo { return &DistributionRepo{db: db} }

// Write stores the distribution record for an owner.  Within one vault
// lifetime the write happens exactly once (the active flag guards the
// path); a recreated vault that later distributes replaces the previous
// lifetime's record, which is why this is an upsert and not a plain
// insert.
func (r *DistributionRepo) Write(ctx context.Context, rec *model.DistributionRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO distribution_records
		   (owner, total, per_heir_share, heir_count, fee_collected, distributed_at)
		 VALUES (?,?,?,?,?,?)
		 ON DUPLICATE KEY UPDATE
		   total = VALUES(total), per_heir_share = VALUES(per_heir_share),
		   heir_count = VALUES(heir_count), fee_collected = VALUES(fee_collected),
		   distributed_at = VALUES(distributed_at)`,
		rec.Owner, rec.Total, rec.PerHeirShare, rec.HeirCount, rec.FeeCollected, rec.DistributedAt)
	return err
}

// Get loads the distribution record for an owner, or ErrNotFound.
func (r *DistributionRepo) Get(ctx context.Context, owner string) (*model.DistributionRecord, error) {
	var rec model.DistributionRecord
	err := r.db.QueryRowContext(ctx,
		`SELECT owner, total, per_heir_share, heir_count, fee_collected, distributed_at
		 FROM distribution_records WHERE owner = ? LIMIT 1`, owner).
		Scan(&rec.Owner, &rec.Total, &rec.PerHeirShare, &rec.HeirCount,
			&rec.FeeCollected, &rec.DistributedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// AddHeir records that heir received a share of owner's distribution.
// Idempotent on the (heir, owner) pair.
func (r *DistributionRepo) AddHeir(ctx context.Context, heir, owner string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT IGNORE INTO distributed_heirs (heir, owner) VALUES (?, ?)`, heir, owner)
	return err
}

// OwnersForHeir lists the owners whose vaults were distributed to heir.
func (r *DistributionRepo) OwnersForHeir(ctx context.Context, heir string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT owner FROM distributed_heirs WHERE heir = ? ORDER BY id`, heir)
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
