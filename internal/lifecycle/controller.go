// Package lifecycle implements the vault state machine: creation,
// heartbeat pings, deposits, subscription renewal, owner updates,
// voluntary deactivation and the unlock/distribution path driven by the
// timer chain.  Every operation validates first, moves funds second and
// persists last, inside one transaction, so a failure at any step leaves
// no partial mutation.
package lifecycle

import (
	"context"
	"math"
	"sync"

	"github.com/iliyamo/legacy-vault/internal/fee"
	"github.com/iliyamo/legacy-vault/internal/model"
	"github.com/iliyamo/legacy-vault/internal/tier"
)

// Timer is the chain manager contract the controller re-arms after
// every operation that changes unlockDate or active.
type Timer interface {
	Arm(ctx context.Context, owner string, targetMs, gas uint64) (uint64, error)
	Disarm(ctx context.Context, owner string) error
	Live(ctx context.Context, owner, handle string) (bool, error)
}

// Controller orchestrates all vault operations.  A keyed mutex
// serializes operations per owner, so each vault sees a strict
// single-writer order; unrelated owners proceed in parallel.
type Controller struct {
	store  Store
	timer  Timer
	events Publisher
	admin  string // address credited on fee and pool withdrawals
	now    func() uint64

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewController wires a Controller.  now returns Unix milliseconds;
// production passes a clock, tests a fixed function.
func NewController(store Store, timer Timer, events Publisher, admin string, now func() uint64) *Controller {
	return &Controller{
		store:  store,
		timer:  timer,
		events: events,
		admin:  admin,
		now:    now,
		locks:  make(map[string]*sync.Mutex),
	}
}

func (c *Controller) lock(owner string) func() {
	c.mu.Lock()
	m, ok := c.locks[owner]
	if !ok {
		m = &sync.Mutex{}
		c.locks[owner] = m
	}
	c.mu.Unlock()
	m.Lock()
	return m.Unlock
}

func (c *Controller) publish(ctx context.Context, typ, owner string, data map[string]any) {
	if c.events == nil {
		return
	}
	c.events.Publish(ctx, Event{Type: typ, Owner: owner, At: c.now(), Data: data})
}

// CreateParams carries everything a vault creation needs.  Transferred
// is the total amount the caller sends with the request; it must cover
// the subscription payment, the oracle fee and the gas deposit, and the
// remainder becomes the vault balance.
//
// SubscriptionPayment zero means "price the tier from the oracle rate".
// GasHint zero means "use the computed minimum deposit"; a hint below
// the minimum is raised to it, never accepted.
type CreateParams struct {
	Owner               string
	Tier                model.Tier
	Heirs               []string
	IntervalMs          uint64
	Payload             string
	ArchiveRef          string
	EncryptionRef       string
	Transferred         uint64
	SubscriptionPayment uint64
	GasHint             uint64
}

// Create opens a vault for the owner.  Recreating over a previously
// inactive record is allowed; an active vault rejects.
func (c *Controller) Create(ctx context.Context, p CreateParams) (*model.Vault, error) {
	unlock := c.lock(p.Owner)
	defer unlock()

	tp, err := tier.Lookup(p.Tier)
	if err != nil {
		return nil, ErrInvalidTier
	}
	if err := validateHeirs(p.Owner, p.Heirs, tp.MaxHeirs); err != nil {
		return nil, err
	}
	if p.IntervalMs < fee.MinHeartbeatIntervalMs {
		return nil, ErrIntervalTooShort
	}
	if len(p.Payload) > tp.MaxPayloadBytes {
		return nil, ErrPayloadTooLarge
	}
	if p.ArchiveRef != "" && p.Tier < model.TierPro {
		return nil, ErrArchiveRefTier
	}

	var (
		v          *model.Vault
		gasDeposit uint64
		subPayment uint64
	)
	err = c.store.Atomically(ctx, func(s Store) error {
		exists, err := s.VaultExists(ctx, p.Owner)
		if err != nil {
			return err
		}
		if exists {
			old, err := s.Vault(ctx, p.Owner)
			if err != nil {
				return err
			}
			if old.Active {
				return ErrVaultActive
			}
			if err := s.DeleteTimerHandle(ctx, p.Owner); err != nil {
				return err
			}
		}

		subPayment = p.SubscriptionPayment
		if subPayment == 0 {
			rate, err := s.Rate(ctx)
			if err != nil {
				return err
			}
			subPayment = fee.USDToNative(tp.SubscriptionPriceUSDCents, rate)
		}
		if p.Tier != model.TierFree && subPayment < tp.MinSubscriptionNative {
			return ErrPaymentBelowMinimum
		}

		minGas := fee.MinGasDeposit(p.IntervalMs)
		gasDeposit = minGas
		if p.GasHint > minGas {
			gasDeposit = p.GasHint
		}
		// Summed stepwise so an absurd gas hint or payment cannot wrap
		// the required total below the transfer.
		if gasDeposit > math.MaxUint64-fee.OracleFee {
			return ErrInsufficientPayment
		}
		needed := gasDeposit + fee.OracleFee
		if subPayment > math.MaxUint64-needed {
			return ErrInsufficientPayment
		}
		needed += subPayment
		if p.Transferred < needed {
			return ErrInsufficientPayment
		}
		balance := p.Transferred - needed
		if balance > tp.MaxBalance {
			return ErrBalanceExceedsTier
		}

		if err := s.Debit(ctx, p.Owner, p.Transferred); err != nil {
			return err
		}
		if err := s.AddCounter(ctx, CounterRevenue, subPayment+fee.OracleFee); err != nil {
			return err
		}

		now := c.now()
		expiry := model.NoExpiry
		if p.Tier != model.TierFree {
			expiry = now + fee.SubscriptionPeriodMs
		}
		v = &model.Vault{
			Owner:              p.Owner,
			Tier:               p.Tier,
			UnlockDate:         now + p.IntervalMs,
			HeartbeatInterval:  p.IntervalMs,
			LastCheckIn:        now,
			Active:             true,
			Balance:            balance,
			Heirs:              append([]string(nil), p.Heirs...),
			Payload:            p.Payload,
			ArchiveRef:         p.ArchiveRef,
			EncryptionRef:      p.EncryptionRef,
			SubscriptionExpiry: expiry,
			LastFeeCollection:  now,
		}
		if err := s.SaveVault(ctx, v); err != nil {
			return err
		}
		for _, h := range p.Heirs {
			if err := s.AddHeir(ctx, h, p.Owner); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if _, err := c.timer.Arm(ctx, p.Owner, v.UnlockDate, gasDeposit); err != nil {
		return nil, err
	}
	if subPayment > 0 {
		c.publish(ctx, EventSubscriptionPaid, p.Owner, map[string]any{
			"tier": p.Tier.String(), "amount": subPayment,
		})
	}
	c.publish(ctx, EventVaultCreated, p.Owner, map[string]any{
		"tier":               p.Tier.String(),
		"unlockDate":         v.UnlockDate,
		"subscriptionExpiry": v.SubscriptionExpiry,
		"gasDeposit":         gasDeposit,
	})
	return v, nil
}

// Ping is the heartbeat: it pushes unlockDate out by the heartbeat
// interval and re-arms the timer chain with fresh gas.  The caller pays
// the gas, the oracle fee and the accrued AUM fee on top of the
// transfer; the vault balance itself is never debited here.  A frozen
// vault (lapsed subscription) cannot be revived by pinging.
func (c *Controller) Ping(ctx context.Context, owner string, transferred uint64) (*model.Vault, error) {
	unlock := c.lock(owner)
	defer unlock()

	var (
		v          *model.Vault
		aumFee     uint64
		gasFunding uint64
		gasExcess  uint64
	)
	err := c.store.Atomically(ctx, func(s Store) error {
		var err error
		v, err = s.Vault(ctx, owner)
		if err != nil {
			return err
		}
		if !v.Active {
			return ErrVaultInactive
		}
		now := c.now()
		if v.Unlocked(now) {
			return ErrVaultUnlocked
		}
		if !v.SubscriptionActive(now) {
			return ErrSubscriptionExpired
		}

		tp, err := tier.Lookup(v.Tier)
		if err != nil {
			return err
		}
		aumFee = fee.AccruedFee(v.Balance, tp.AUMFeeBps, v.LastFeeCollection, now)
		minGas := fee.MinGasDeposit(v.HeartbeatInterval)
		if transferred < minGas+fee.OracleFee+aumFee {
			return ErrInsufficientPayment
		}
		if err := s.Debit(ctx, owner, transferred); err != nil {
			return err
		}

		gasFunding = transferred - fee.OracleFee - aumFee
		if gasFunding > minGas {
			gasExcess = gasFunding - minGas
			if err := s.AddCounter(ctx, CounterGasExcess, gasExcess); err != nil {
				return err
			}
		}
		if err := s.AddCounter(ctx, CounterRevenue, fee.OracleFee); err != nil {
			return err
		}
		if aumFee > 0 {
			if err := s.Credit(ctx, c.admin, aumFee); err != nil {
				return err
			}
			if err := s.AddCounter(ctx, CounterAUMFees, aumFee); err != nil {
				return err
			}
		}

		v.UnlockDate = now + v.HeartbeatInterval
		v.LastCheckIn = now
		v.LastFeeCollection = now
		return s.SaveVault(ctx, v)
	})
	if err != nil {
		return nil, err
	}

	if _, err := c.timer.Arm(ctx, owner, v.UnlockDate, gasFunding); err != nil {
		return nil, err
	}
	if aumFee > 0 {
		c.publish(ctx, EventAUMFeeCollected, owner, map[string]any{"amount": aumFee})
	}
	if gasExcess > 0 {
		c.publish(ctx, EventGasExcessAdded, owner, map[string]any{"amount": gasExcess})
	}
	c.publish(ctx, EventPing, owner, map[string]any{"newUnlockDate": v.UnlockDate})
	return v, nil
}

// Deposit adds funds to the vault balance.  Allowed while the
// subscription is expired: the owner is never blocked from protecting
// more capital, only from pinging.
func (c *Controller) Deposit(ctx context.Context, owner string, amount uint64) (*model.Vault, error) {
	if amount == 0 {
		return nil, ErrNoCoinsSent
	}
	unlock := c.lock(owner)
	defer unlock()

	var v *model.Vault
	err := c.store.Atomically(ctx, func(s Store) error {
		var err error
		v, err = s.Vault(ctx, owner)
		if err != nil {
			return err
		}
		if !v.Active {
			return ErrVaultInactive
		}
		if v.Unlocked(c.now()) {
			return ErrVaultUnlocked
		}
		tp, err := tier.Lookup(v.Tier)
		if err != nil {
			return err
		}
		if amount > math.MaxUint64-v.Balance || v.Balance+amount > tp.MaxBalance {
			return ErrBalanceExceedsTier
		}
		if err := s.Debit(ctx, owner, amount); err != nil {
			return err
		}
		v.Balance += amount
		return s.SaveVault(ctx, v)
	})
	if err != nil {
		return nil, err
	}
	c.publish(ctx, EventDeposit, owner, map[string]any{"amount": amount})
	return v, nil
}

// RenewSubscription extends the subscription by one period: from the
// current expiry while still active, from now when already lapsed.  One
// extension per call, and the unlock timer is untouched.  The owner may
// renew at any time; an heir may renew on the owner's behalf once the
// vault is unlocked (paying the subscription that blocks distribution).
func (c *Controller) RenewSubscription(ctx context.Context, caller, owner string, payment uint64) (*model.Vault, error) {
	unlock := c.lock(owner)
	defer unlock()

	var v *model.Vault
	err := c.store.Atomically(ctx, func(s Store) error {
		var err error
		v, err = s.Vault(ctx, owner)
		if err != nil {
			return err
		}
		if !v.Active {
			return ErrVaultInactive
		}
		now := c.now()
		if caller != owner {
			if !v.IsHeir(caller) {
				return ErrNotHeir
			}
			if !v.Unlocked(now) {
				return ErrVaultLocked
			}
		}
		if v.Tier == model.TierFree {
			return ErrFreeTierNoSub
		}
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

		if now < v.SubscriptionExpiry {
			v.SubscriptionExpiry += fee.SubscriptionPeriodMs
		} else {
			v.SubscriptionExpiry = now + fee.SubscriptionPeriodMs
		}
		return s.SaveVault(ctx, v)
	})
	if err != nil {
		return nil, err
	}
	c.publish(ctx, EventSubscriptionRenewed, owner, map[string]any{
		"newExpiry": v.SubscriptionExpiry, "paidBy": caller,
	})
	return v, nil
}

// UpdateHeirs replaces the heir list, keeping the reverse index in
// lock-step.
func (c *Controller) UpdateHeirs(ctx context.Context, owner string, heirs []string) (*model.Vault, error) {
	unlock := c.lock(owner)
	defer unlock()

	var v *model.Vault
	err := c.store.Atomically(ctx, func(s Store) error {
		var err error
		v, err = s.Vault(ctx, owner)
		if err != nil {
			return err
		}
		if !v.Active {
			return ErrVaultInactive
		}
		tp, err := tier.Lookup(v.Tier)
		if err != nil {
			return err
		}
		if err := validateHeirs(owner, heirs, tp.MaxHeirs); err != nil {
			return err
		}
		for _, h := range v.Heirs {
			if err := s.RemoveHeir(ctx, h, owner); err != nil {
				return err
			}
		}
		for _, h := range heirs {
			if err := s.AddHeir(ctx, h, owner); err != nil {
				return err
			}
		}
		v.Heirs = append([]string(nil), heirs...)
		return s.SaveVault(ctx, v)
	})
	if err != nil {
		return nil, err
	}
	c.publish(ctx, EventHeirsUpdated, owner, map[string]any{"count": len(heirs)})
	return v, nil
}

// UpdatePayload replaces the payload, archive reference and encryption
// reference, re-checking tier bounds.
func (c *Controller) UpdatePayload(ctx context.Context, owner, payload, archiveRef, encryptionRef string) (*model.Vault, error) {
	unlock := c.lock(owner)
	defer unlock()

	var v *model.Vault
	err := c.store.Atomically(ctx, func(s Store) error {
		var err error
		v, err = s.Vault(ctx, owner)
		if err != nil {
			return err
		}
		if !v.Active {
			return ErrVaultInactive
		}
		tp, err := tier.Lookup(v.Tier)
		if err != nil {
			return err
		}
		if len(payload) > tp.MaxPayloadBytes {
			return ErrPayloadTooLarge
		}
		if archiveRef != "" && v.Tier < model.TierPro {
			return ErrArchiveRefTier
		}
		v.Payload = payload
		v.ArchiveRef = archiveRef
		v.EncryptionRef = encryptionRef
		return s.SaveVault(ctx, v)
	})
	if err != nil {
		return nil, err
	}
	c.publish(ctx, EventPayloadUpdated, owner, nil)
	return v, nil
}

// UpdateInterval changes the heartbeat interval.  The running unlock
// timer is not reset; the new interval takes effect on the next ping.
func (c *Controller) UpdateInterval(ctx context.Context, owner string, intervalMs uint64) (*model.Vault, error) {
	if intervalMs < fee.MinHeartbeatIntervalMs {
		return nil, ErrIntervalTooShort
	}
	unlock := c.lock(owner)
	defer unlock()

	var v *model.Vault
	err := c.store.Atomically(ctx, func(s Store) error {
		var err error
		v, err = s.Vault(ctx, owner)
		if err != nil {
			return err
		}
		if !v.Active {
			return ErrVaultInactive
		}
		v.HeartbeatInterval = intervalMs
		return s.SaveVault(ctx, v)
	})
	if err != nil {
		return nil, err
	}
	c.publish(ctx, EventIntervalUpdated, owner, map[string]any{"intervalMs": intervalMs})
	return v, nil
}

// Deactivate voluntarily closes the vault: the final AUM fee is
// collected from the balance, the remainder is refunded to the owner,
// the heir index is pruned and the record becomes archival.  No
// distribution record is written, which is what distinguishes "owner
// reclaimed" from "heirs inherited".
func (c *Controller) Deactivate(ctx context.Context, owner string) (*model.Vault, error) {
	unlock := c.lock(owner)
	defer unlock()

	var (
		v        *model.Vault
		aumFee   uint64
		refunded uint64
	)
	err := c.store.Atomically(ctx, func(s Store) error {
		var err error
		v, err = s.Vault(ctx, owner)
		if err != nil {
			return err
		}
		if !v.Active {
			return ErrVaultInactive
		}
		now := c.now()
		aumFee, err = c.collectAUMFee(ctx, s, v, now)
		if err != nil {
			return err
		}
		refunded = v.Balance
		if refunded > 0 {
			if err := s.Credit(ctx, owner, refunded); err != nil {
				return err
			}
		}
		for _, h := range v.Heirs {
			if err := s.RemoveHeir(ctx, h, owner); err != nil {
				return err
			}
		}
		v.Active = false
		v.Balance = 0
		if err := s.SaveVault(ctx, v); err != nil {
			return err
		}
		return s.DeleteTimerHandle(ctx, owner)
	})
	if err != nil {
		return nil, err
	}

	if err := c.timer.Disarm(ctx, owner); err != nil {
		return nil, err
	}
	if aumFee > 0 {
		c.publish(ctx, EventAUMFeeCollected, owner, map[string]any{"amount": aumFee})
	}
	c.publish(ctx, EventVaultDeactivated, owner, map[string]any{"refunded": refunded})
	return v, nil
}

// collectAUMFee charges the fee accrued on the balance since the last
// checkpoint, crediting the admin and the running total.  The vault is
// mutated in place; the caller persists it.
func (c *Controller) collectAUMFee(ctx context.Context, s Store, v *model.Vault, now uint64) (uint64, error) {
	tp, err := tier.Lookup(v.Tier)
	if err != nil {
		return 0, err
	}
	f := fee.AccruedFee(v.Balance, tp.AUMFeeBps, v.LastFeeCollection, now)
	if f == 0 {
		v.LastFeeCollection = now
		return 0, nil
	}
	if f >= v.Balance {
		f = v.Balance
	}
	v.Balance -= f
	v.LastFeeCollection = now
	if err := s.Credit(ctx, c.admin, f); err != nil {
		return 0, err
	}
	if err := s.AddCounter(ctx, CounterAUMFees, f); err != nil {
		return 0, err
	}
	return f, nil
}

func validateHeirs(owner string, heirs []string, max int) error {
	if len(heirs) == 0 {
		return ErrNoHeirs
	}
	if len(heirs) > max {
		return ErrTooManyHeirs
	}
	seen := make(map[string]struct{}, len(heirs))
	for _, h := range heirs {
		if h == owner {
			return ErrSelfHeir
		}
		if _, dup := seen[h]; dup {
			return ErrDuplicateHeir
		}
		seen[h] = struct{}{}
	}
	return nil
}
