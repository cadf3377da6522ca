package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/iliyamo/legacy-vault/internal/model"
)

// VaultRepo provides data access to the `vaults` table.  One row exists
// per owner address; the row is kept (active=0) after distribution or
// deactivation so heirs and auditors can inspect history.  All
// timestamps are stored as unsigned BIGINT Unix milliseconds to keep the
// arithmetic identical to the lifecycle layer.
type VaultRepo struct {
	db DBTX
}

// NewVaultRepo returns a VaultRepo bound to the given database handle or
// transaction.
func NewVaultRepo(db DBTX) *VaultRepo { return &VaultRepo{db: db} }

// Exists reports whether a vault row exists for the owner, active or not.
func (r *VaultRepo) Exists(ctx context.Context, owner string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM vaults WHERE owner = ? LIMIT 1`, owner).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Get loads the vault record for the owner.  The heir list is stored as
// a JSON array so the original creation order survives round-trips.
func (r *VaultRepo) Get(ctx context.Context, owner string) (*model.Vault, error) {
	const q = `SELECT owner, tier, unlock_date, heartbeat_interval, last_check_in,
	                  active, balance, heirs, payload, archive_ref, encryption_ref,
	                  subscription_expiry, last_fee_collection, created_at, updated_at
	           FROM vaults WHERE owner = ? LIMIT 1`
	var (
		v        model.Vault
		tierRaw  uint8
		heirsRaw []byte
	)
	err := r.db.QueryRowContext(ctx, q, owner).Scan(
		&v.Owner, &tierRaw, &v.UnlockDate, &v.HeartbeatInterval, &v.LastCheckIn,
		&v.Active, &v.Balance, &heirsRaw, &v.Payload, &v.ArchiveRef, &v.EncryptionRef,
		&v.SubscriptionExpiry, &v.LastFeeCollection, &v.CreatedAt, &v.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVaultNotFound
	}
	if err != nil {
		return nil, err
	}
	v.Tier = model.Tier(tierRaw)
	if len(heirsRaw) > 0 {
		if err := json.Unmarshal(heirsRaw, &v.Heirs); err != nil {
			return nil, err
		}
	}
	return &v, nil
}

// Save upserts the vault record.  Recreation over an inactive record
// reuses the same row; created_at is preserved on update.
func (r *VaultRepo) Save(ctx context.Context, v *model.Vault) error {
	heirsRaw, err := json.Marshal(v.Heirs)
	if err != nil {
		return err
	}
	const q = `INSERT INTO vaults
	             (owner, tier, unlock_date, heartbeat_interval, last_check_in, active,
	              balance, heirs, payload, archive_ref, encryption_ref,
	              subscription_expiry, last_fee_collection)
	           VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)
	           ON DUPLICATE KEY UPDATE
	             tier = VALUES(tier),
	             unlock_date = VALUES(unlock_date),
	             heartbeat_interval = VALUES(heartbeat_interval),
	             last_check_in = VALUES(last_check_in),
	             active = VALUES(active),
	             balance = VALUES(balance),
	             heirs = VALUES(heirs),
	             payload = VALUES(payload),
	             archive_ref = VALUES(archive_ref),
	             encryption_ref = VALUES(encryption_ref),
	             subscription_expiry = VALUES(subscription_expiry),
	             last_fee_collection = VALUES(last_fee_collection)`
	_, err = r.db.ExecContext(ctx, q,
		v.Owner, uint8(v.Tier), v.UnlockDate, v.HeartbeatInterval, v.LastCheckIn,
		v.Active, v.Balance, heirsRaw, v.Payload, v.ArchiveRef, v.EncryptionRef,
		v.SubscriptionExpiry, v.LastFeeCollection)
	return err
}
