package lifecycle

import (
	"context"
	"errors"

	"github.com/iliyamo/legacy-vault/internal/fee"
	"github.com/iliyamo/legacy-vault/internal/model"
	"github.com/iliyamo/legacy-vault/internal/tier"
)

// VaultOf loads the vault record for an owner.
func (c *Controller) VaultOf(ctx context.Context, owner string) (*model.Vault, error) {
	return c.store.Vault(ctx, owner)
}

// Status returns the lifecycle projection for an owner, NOT_FOUND when
// no vault exists.
func (c *Controller) Status(ctx context.Context, owner string) (model.VaultStatus, error) {
	v, err := c.store.Vault(ctx, owner)
	if errors.Is(err, ErrVaultNotFound) {
		return model.StatusNotFound, nil
	}
	if err != nil {
		return "", err
	}
	return v.Status(c.now()), nil
}

// AccruedFee returns the AUM fee that would be collected right now.
func (c *Controller) AccruedFee(ctx context.Context, owner string) (uint64, error) {
	v, err := c.store.Vault(ctx, owner)
	if err != nil {
		return 0, err
	}
	tp, err := tier.Lookup(v.Tier)
	if err != nil {
		return 0, err
	}
	return fee.AccruedFee(v.Balance, tp.AUMFeeBps, v.LastFeeCollection, c.now()), nil
}

// TimeToUnlock returns the milliseconds remaining until the unlock
// date, zero once it has passed.
func (c *Controller) TimeToUnlock(ctx context.Context, owner string) (uint64, error) {
	v, err := c.store.Vault(ctx, owner)
	if err != nil {
		return 0, err
	}
	now := c.now()
	if now >= v.UnlockDate {
		return 0, nil
	}
	return v.UnlockDate - now, nil
}

// SubscriptionPrice converts the tier's USD price to native units at
// the current oracle rate.
func (c *Controller) SubscriptionPrice(ctx context.Context, t model.Tier) (uint64, error) {
	tp, err := tier.Lookup(t)
	if err != nil {
		return 0, ErrInvalidTier
	}
	rate, err := c.store.Rate(ctx)
	if err != nil {
		return 0, err
	}
	return fee.USDToNative(tp.SubscriptionPriceUSDCents, rate), nil
}

// Rate returns the current oracle exchange rate, USD cents per coin.
func (c *Controller) Rate(ctx context.Context) (uint64, error) {
	return c.store.Rate(ctx)
}

// VaultsForHeir lists the active vault owners that name heir.
func (c *Controller) VaultsForHeir(ctx context.Context, heir string) ([]string, error) {
	return c.store.OwnersForHeir(ctx, heir)
}

// DistributionsForHeir lists the owners whose vaults were distributed
// to heir.
func (c *Controller) DistributionsForHeir(ctx context.Context, heir string) ([]string, error) {
	return c.store.DistributionsForHeir(ctx, heir)
}

// Distribution returns the distribution record for an owner.
func (c *Controller) Distribution(ctx context.Context, owner string) (*model.DistributionRecord, error) {
	return c.store.Distribution(ctx, owner)
}

// FundAccount credits amount to an address's custodial ledger account.
// This is the ledger on-ramp: an operator records a confirmed inbound
// transfer here, after which the address can spend it on vault
// operations.  Role enforcement (admin) lives at the transport layer.
func (c *Controller) FundAccount(ctx context.Context, address string, amount uint64) (uint64, error) {
	if amount == 0 {
		return 0, ErrNoCoinsSent
	}
	if err := c.store.Credit(ctx, address, amount); err != nil {
		return 0, err
	}
	balance, err := c.store.AccountBalance(ctx, address)
	if err != nil {
		return 0, err
	}
	c.publish(ctx, EventAccountFunded, "", map[string]any{
		"address": address, "amount": amount,
	})
	return balance, nil
}

// AccountBalance reads an address's custodial ledger balance.
func (c *Controller) AccountBalance(ctx context.Context, address string) (uint64, error) {
	return c.store.AccountBalance(ctx, address)
}

// Totals reads the protocol aggregate counters: withdrawable revenue,
// lifetime AUM fees collected, and the withdrawable gas-excess pool.
func (c *Controller) Totals(ctx context.Context) (revenue, aumFees, gasExcess uint64, err error) {
	if revenue, err = c.store.Counter(ctx, CounterRevenue); err != nil {
		return
	}
	if aumFees, err = c.store.Counter(ctx, CounterAUMFees); err != nil {
		return
	}
	gasExcess, err = c.store.Counter(ctx, CounterGasExcess)
	return
}

// SetRate stores an oracle-pushed exchange rate.  Role enforcement
// (oracle or admin) lives at the transport layer; the bounds check
// lives here so a compromised feed cannot push an absurd value.
func (c *Controller) SetRate(ctx context.Context, rate uint64) error {
	if rate == 0 || rate >= 1_000_000 {
		return ErrRateOutOfRange
	}
	if err := c.store.SetRate(ctx, rate); err != nil {
		return err
	}
	c.publish(ctx, EventRateUpdated, "", map[string]any{"rate": rate})
	return nil
}

// WithdrawRevenue moves amount from the protocol revenue pool to the
// admin's ledger account.  Bounded by the pool: user funds are never
// reachable through this path.
func (c *Controller) WithdrawRevenue(ctx context.Context, amount uint64) error {
	return c.withdrawPool(ctx, CounterRevenue, amount)
}

// WithdrawGasExcess moves amount from the gas-excess pool to the
// admin's ledger account.
func (c *Controller) WithdrawGasExcess(ctx context.Context, amount uint64) error {
	return c.withdrawPool(ctx, CounterGasExcess, amount)
}

func (c *Controller) withdrawPool(ctx context.Context, counter string, amount uint64) error {
	err := c.store.Atomically(ctx, func(s Store) error {
		available, err := s.Counter(ctx, counter)
		if err != nil {
			return err
		}
		if amount > available {
			return ErrWithdrawExceedsPool
		}
		if err := s.SubCounter(ctx, counter, amount); err != nil {
			return err
		}
		return s.Credit(ctx, c.admin, amount)
	})
	if err != nil {
		return err
	}
	c.publish(ctx, EventAdminWithdraw, "", map[string]any{
		"pool": counter, "amount": amount,
	})
	return nil
}
