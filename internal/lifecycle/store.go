package lifecycle

import (
	"context"

	"github.com/iliyamo/legacy-vault/internal/model"
)

// Names of the protocol aggregate counters.
const (
	// CounterRevenue is the withdrawable pool of subscription payments
	// and oracle fees owed to the protocol.
	CounterRevenue = "revenue"
	// CounterAUMFees is the lifetime total of collected AUM fees; the
	// fees themselves are credited to the admin account as they accrue.
	CounterAUMFees = "aum_fees"
	// CounterGasExcess is the withdrawable pool of scheduling funds
	// supplied beyond the computed minimum.  Never owner-reachable.
	CounterGasExcess = "gas_excess"
)

// Store is the persistence contract the lifecycle controller runs on.
// The production implementation is repository.Store over MySQL; tests
// substitute an in-memory fake.  Methods mirror the repositories one to
// one; Atomically scopes a group of mutations to a single transaction so
// "validate, then transfer, then persist" cannot half-apply.
type Store interface {
	// Atomically runs fn against a transaction-bound view of the store.
	// Any error rolls the whole group back.
	Atomically(ctx context.Context, fn func(Store) error) error

	VaultExists(ctx context.Context, owner string) (bool, error)
	Vault(ctx context.Context, owner string) (*model.Vault, error)
	SaveVault(ctx context.Context, v *model.Vault) error

	// Heir reverse index; add is idempotent, remove compacts.
	AddHeir(ctx context.Context, heir, owner string) error
	RemoveHeir(ctx context.Context, heir, owner string) error
	OwnersForHeir(ctx context.Context, heir string) ([]string, error)

	// Distribution records are append-once per owner lifetime.
	WriteDistribution(ctx context.Context, rec *model.DistributionRecord) error
	Distribution(ctx context.Context, owner string) (*model.DistributionRecord, error)
	AddDistributedHeir(ctx context.Context, heir, owner string) error
	DistributionsForHeir(ctx context.Context, heir string) ([]string, error)

	// Protocol aggregate counters with atomic add/subtract.
	AddCounter(ctx context.Context, name string, amount uint64) error
	SubCounter(ctx context.Context, name string, amount uint64) error
	Counter(ctx context.Context, name string) (uint64, error)

	// Pending timer chain entry per owner (nil when disarmed).
	TimerHandle(ctx context.Context, owner string) (*model.TimerEntry, error)
	SaveTimerHandle(ctx context.Context, e *model.TimerEntry) error
	DeleteTimerHandle(ctx context.Context, owner string) error

	// Oracle exchange rate, USD cents per native coin.
	Rate(ctx context.Context) (uint64, error)
	SetRate(ctx context.Context, rate uint64) error

	// Custodial ledger.  Debit is all-or-nothing.
	Credit(ctx context.Context, address string, amount uint64) error
	Debit(ctx context.Context, address string, amount uint64) error
	AccountBalance(ctx context.Context, address string) (uint64, error)
}
