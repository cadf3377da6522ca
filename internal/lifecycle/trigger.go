package lifecycle

import (
	"context"
	"errors"

	"github.com/iliyamo/legacy-vault/internal/fee"
	"github.com/iliyamo/legacy-vault/internal/model"
	"github.com/iliyamo/legacy-vault/internal/tier"
)

// distOutcome carries what a committed distribution did, for event
// publication after the transaction.
type distOutcome struct {
	aumFee     uint64
	carriedGas uint64
	total      uint64
	payouts    []model.Payout
}

// Trigger is the single re-entry point from the scheduler: the timer
// chain callback lands here, and any caller may invoke it directly as a
// manual nudge (handle empty, no carried gas).
//
// Soft failures never propagate: the vault may have been deactivated,
// recreated or distributed between arming and firing, and an error
// thrown here would strand the chain.  Everything non-actionable is
// published as a TRIGGER_SKIPPED event and the call returns nil.
func (c *Controller) Trigger(ctx context.Context, owner, handle string, carriedGas uint64) error {
	unlock := c.lock(owner)
	defer unlock()

	// A delivery whose handle is no longer the armed one was cancelled
	// or superseded after it was queued.  Drop it.
	if handle != "" {
		live, err := c.timer.Live(ctx, owner, handle)
		if err != nil {
			return err
		}
		if !live {
			c.publish(ctx, EventTriggerSkipped, owner, map[string]any{"reason": "stale_handle"})
			return nil
		}
	}

	v, err := c.store.Vault(ctx, owner)
	if errors.Is(err, ErrVaultNotFound) {
		c.publish(ctx, EventTriggerSkipped, owner, map[string]any{"reason": "no_vault"})
		return nil
	}
	if err != nil {
		return err
	}
	if !v.Active {
		c.publish(ctx, EventTriggerSkipped, owner, map[string]any{"reason": "inactive"})
		return c.store.DeleteTimerHandle(ctx, owner)
	}

	now := c.now()
	if now < v.UnlockDate {
		// Not yet time.  Re-arm the next bounded hop, carrying the gas
		// that arrived with this firing.
		wake, err := c.timer.Arm(ctx, owner, v.UnlockDate, carriedGas)
		if err != nil {
			return err
		}
		c.publish(ctx, EventTimerRescheduled, owner, map[string]any{
			"nextWake": wake, "unlockDate": v.UnlockDate,
		})
		return nil
	}

	if !v.SubscriptionActive(now) {
		// Unlocked but unpaid: distribution waits until an heir or the
		// owner settles the subscription.  The chain ends here; the
		// carried gas joins the excess pool.
		err := c.store.Atomically(ctx, func(s Store) error {
			if err := s.AddCounter(ctx, CounterGasExcess, carriedGas); err != nil {
				return err
			}
			return s.DeleteTimerHandle(ctx, owner)
		})
		if err != nil {
			return err
		}
		c.publish(ctx, EventUnlockedPendingSub, owner, nil)
		return nil
	}

	var out distOutcome
	err = c.store.Atomically(ctx, func(s Store) error {
		v, err := s.Vault(ctx, owner)
		if err != nil {
			return err
		}
		if !v.Active {
			return ErrVaultInactive
		}
		out, err = c.distribute(ctx, s, v, carriedGas, now)
		return err
	})
	if err != nil {
		return err
	}
	c.publishDistribution(ctx, owner, out)
	return nil
}

// Claim lets an heir collect once the vault is unlocked.  When the
// subscription lapsed before unlock, the heir settles it here (payment
// zero means "price the tier from the oracle rate").  Payment and
// payout commit in the same transaction.
func (c *Controller) Claim(ctx context.Context, caller, owner string, payment uint64) error {
	unlock := c.lock(owner)
	defer unlock()

	var (
		out        distOutcome
		paidByHeir uint64
	)
	err := c.store.Atomically(ctx, func(s Store) error {
		v, err := s.Vault(ctx, owner)
		if err != nil {
			return err
		}
		if !v.Active {
			return ErrVaultInactive
		}
		if !v.IsHeir(caller) {
			return ErrNotHeir
		}
		now := c.now()
		if !v.Unlocked(now) {
			return ErrVaultLocked
		}
		if !v.SubscriptionActive(now) {
			tp, err := tier.Lookup(v.Tier)
			if err != nil {
				return err
			}
			if payment == 0 {
				rate, err := s.Rate(ctx)
				if err != nil {
					return err
				}
				payment = fee.USDToNative(tp.SubscriptionPriceUSDCents, rate)
			}
			if payment < tp.MinSubscriptionNative {
				return ErrPaymentBelowMinimum
			}
			if err := s.Debit(ctx, caller, payment); err != nil {
				return err
			}
			if err := s.AddCounter(ctx, CounterRevenue, payment); err != nil {
				return err
			}
			paidByHeir = payment
		}
		out, err = c.distribute(ctx, s, v, 0, now)
		return err
	})
	if err != nil {
		return err
	}

	if paidByHeir > 0 {
		c.publish(ctx, EventSubscriptionPaid, owner, map[string]any{
			"paidBy": caller, "amount": paidByHeir,
		})
	}
	c.publishDistribution(ctx, owner, out)
	return nil
}

// distribute executes the terminal payout on the transaction-bound
// store: collect the final AUM fee, split the remaining balance evenly
// with the integer remainder going to the first heir, write the
// distribution record, zero the balance, flip active off and prune the
// indices.  The caller holds the owner lock and has verified the vault
// is active, so the payout happens at most once per lifetime.
func (c *Controller) distribute(ctx context.Context, s Store, v *model.Vault, carriedGas, now uint64) (distOutcome, error) {
	out := distOutcome{carriedGas: carriedGas}

	aumFee, err := c.collectAUMFee(ctx, s, v, now)
	if err != nil {
		return out, err
	}
	out.aumFee = aumFee

	// Gas arriving with the final hop is scheduler change, not
	// inheritance; it joins the excess pool.
	if carriedGas > 0 {
		if err := s.AddCounter(ctx, CounterGasExcess, carriedGas); err != nil {
			return out, err
		}
	}

	out.total = v.Balance
	n := uint64(len(v.Heirs))
	if out.total > 0 && n > 0 {
		share := out.total / n
		remainder := out.total % n
		for i, h := range v.Heirs {
			amount := share
			if i == 0 {
				amount += remainder
			}
			if amount == 0 {
				continue
			}
			if err := s.Credit(ctx, h, amount); err != nil {
				return out, err
			}
			out.payouts = append(out.payouts, model.Payout{Address: h, Amount: amount})
		}
		rec := &model.DistributionRecord{
			Owner:         v.Owner,
			Total:         out.total,
			PerHeirShare:  share,
			HeirCount:     len(v.Heirs),
			FeeCollected:  aumFee,
			DistributedAt: now,
		}
		if err := s.WriteDistribution(ctx, rec); err != nil {
			return out, err
		}
	}

	for _, h := range v.Heirs {
		if err := s.AddDistributedHeir(ctx, h, v.Owner); err != nil {
			return out, err
		}
		if err := s.RemoveHeir(ctx, h, v.Owner); err != nil {
			return out, err
		}
	}

	v.Active = false
	v.Balance = 0
	if err := s.SaveVault(ctx, v); err != nil {
		return out, err
	}
	return out, s.DeleteTimerHandle(ctx, v.Owner)
}

func (c *Controller) publishDistribution(ctx context.Context, owner string, out distOutcome) {
	if out.aumFee > 0 {
		c.publish(ctx, EventAUMFeeCollected, owner, map[string]any{"amount": out.aumFee})
	}
	if out.carriedGas > 0 {
		c.publish(ctx, EventGasExcessAdded, owner, map[string]any{"amount": out.carriedGas})
	}
	for _, p := range out.payouts {
		c.publish(ctx, EventInheritanceSent, owner, map[string]any{
			"heir": p.Address, "amount": p.Amount,
		})
	}
	c.publish(ctx, EventDistributionDone, owner, map[string]any{
		"total": out.total, "fee": out.aumFee,
	})
}
