package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/legacy-vault/internal/lifecycle"
	"github.com/iliyamo/legacy-vault/internal/model"
)

// Store is the MySQL implementation of lifecycle.Store.  It bundles the
// individual repositories behind one facade and lets the lifecycle layer
// scope multi-table mutations (distribution, deactivation, fee flows) to
// a single transaction via Atomically.
type Store struct {
	db            *sql.DB // nil on a transaction-bound view
	vaults        *VaultRepo
	heirs         *HeirIndexRepo
	distributions *DistributionRepo
	counters      *CounterRepo
	timers        *TimerRepo
	rates         *RateRepo
	accounts      *AccountRepo
}

// NewStore returns a Store running in autocommit mode on db.
func NewStore(db *sql.DB) *Store {
	s := bind(db)
	s.db = db
	return s
}

func bind(q DBTX) *Store {
	return &Store{
		vaults:        NewVaultRepo(q),
		heirs:         NewHeirIndexRepo(q),
		distributions: NewDistributionRepo(q),
		counters:      NewCounterRepo(q),
		timers:        NewTimerRepo(q),
		rates:         NewRateRepo(q),
		accounts:      NewAccountRepo(q),
	}
}

// Atomically runs fn against a transaction-bound view of the store and
// commits iff fn returns nil.  Nested calls on a transaction-bound view
// simply reuse the ambient transaction.
func (s *Store) Atomically(ctx context.Context, fn func(lifecycle.Store) error) error {
	if s.db == nil {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(bind(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}

func (s *Store) VaultExists(ctx context.Context, owner string) (bool, error) {
	return s.vaults.Exists(ctx, owner)
}

func (s *Store) Vault(ctx context.Context, owner string) (*model.Vault, error) {
	return s.vaults.Get(ctx, owner)
}

func (s *Store) SaveVault(ctx context.Context, v *model.Vault) error {
	return s.vaults.Save(ctx, v)
}

func (s *Store) AddHeir(ctx context.Context, heir, owner string) error {
	return s.heirs.Add(ctx, heir, owner)
}

func (s *Store) RemoveHeir(ctx context.Context, heir, owner string) error {
	return s.heirs.Remove(ctx, heir, owner)
}

func (s *Store) OwnersForHeir(ctx context.Context, heir string) ([]string, error) {
	return s.heirs.OwnersForHeir(ctx, heir)
}

func (s *Store) WriteDistribution(ctx context.Context, rec *model.DistributionRecord) error {
	return s.distributions.Write(ctx, rec)
}

func (s *Store) Distribution(ctx context.Context, owner string) (*model.DistributionRecord, error) {
	return s.distributions.Get(ctx, owner)
}

func (s *Store) AddDistributedHeir(ctx context.Context, heir, owner string) error {
	return s.distributions.AddHeir(ctx, heir, owner)
}

func (s *Store) DistributionsForHeir(ctx context.Context, heir string) ([]string, error) {
	return s.distributions.OwnersForHeir(ctx, heir)
}

func (s *Store) AddCounter(ctx context.Context, name string, amount uint64) error {
	return s.counters.Add(ctx, name, amount)
}

func (s *Store) SubCounter(ctx context.Context, name string, amount uint64) error {
	return s.counters.Sub(ctx, name, amount)
}

func (s *Store) Counter(ctx context.Context, name string) (uint64, error) {
	return s.counters.Get(ctx, name)
}

func (s *Store) TimerHandle(ctx context.Context, owner string) (*model.TimerEntry, error) {
	return s.timers.Get(ctx, owner)
}

func (s *Store) SaveTimerHandle(ctx context.Context, e *model.TimerEntry) error {
	return s.timers.Save(ctx, e)
}

func (s *Store) DeleteTimerHandle(ctx context.Context, owner string) error {
	return s.timers.Delete(ctx, owner)
}

func (s *Store) Rate(ctx context.Context) (uint64, error) {
	return s.rates.Get(ctx)
}

func (s *Store) SetRate(ctx context.Context, rate uint64) error {
	return s.rates.Set(ctx, rate)
}

func (s *Store) Credit(ctx context.Context, address string, amount uint64) error {
	return s.accounts.Credit(ctx, address, amount)
}

func (s *Store) Debit(ctx context.Context, address string, amount uint64) error {
	return s.accounts.Debit(ctx, address, amount)
}

func (s *Store) AccountBalance(ctx context.Context, address string) (uint64, error) {
	return s.accounts.Balance(ctx, address)
}

var _ lifecycle.Store = (*Store)(nil)
