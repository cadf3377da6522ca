package lifecycle_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/legacy-vault/internal/fee"
	"github.com/iliyamo/legacy-vault/internal/lifecycle"
	"github.com/iliyamo/legacy-vault/internal/model"
	"github.com/iliyamo/legacy-vault/internal/tier"
	"github.com/iliyamo/legacy-vault/internal/timerchain"
)

const (
	coin = tier.Decimals
	day  = uint64(24 * 60 * 60 * 1000)

	owner = "AU1owner"
	heir1 = "AU1heir1"
	heir2 = "AU1heir2"
	admin = "AU1admin"
)

// memStore is an in-memory lifecycle.Store (and timerchain.HandleStore).
// Atomically runs the function directly; operations validate before they
// mutate, so rollback never matters in these tests.
type memStore struct {
	vaults   map[string]*model.Vault
	heirIdx  map[string][]string
	dist     map[string]*model.DistributionRecord
	distHeir map[string][]string
	counters map[string]uint64
	timers   map[string]*model.TimerEntry
	rate     uint64
	accounts map[string]uint64
}

func newMemStore() *memStore {
	return &memStore{
		vaults:   map[string]*model.Vault{},
		heirIdx:  map[string][]string{},
		dist:     map[string]*model.DistributionRecord{},
		distHeir: map[string][]string{},
		counters: map[string]uint64{},
		timers:   map[string]*model.TimerEntry{},
		rate:     5,
		accounts: map[string]uint64{},
	}
}

func (m *memStore) Atomically(ctx context.Context, fn func(lifecycle.Store) error) error {
	return fn(m)
}

func (m *memStore) VaultExists(_ context.Context, owner string) (bool, error) {
	_, ok := m.vaults[owner]
	return ok, nil
}

func (m *memStore) Vault(_ context.Context, owner string) (*model.Vault, error) {
	v, ok := m.vaults[owner]
	if !ok {
		return nil, lifecycle.ErrVaultNotFound
	}
	cp := *v
	cp.Heirs = append([]string(nil), v.Heirs...)
	return &cp, nil
}

func (m *memStore) SaveVault(_ context.Context, v *model.Vault) error {
	cp := *v
	cp.Heirs = append([]string(nil), v.Heirs...)
	m.vaults[v.Owner] = &cp
	return nil
}

func (m *memStore) AddHeir(_ context.Context, heir, owner string) error {
	for _, o := range m.heirIdx[heir] {
		if o == owner {
			return nil
		}
	}
	m.heirIdx[heir] = append(m.heirIdx[heir], owner)
	return nil
}

func (m *memStore) RemoveHeir(_ context.Context, heir, owner string) error {
	kept := m.heirIdx[heir][:0]
	for _, o := range m.heirIdx[heir] {
		if o != owner {
			kept = append(kept, o)
		}
	}
	if len(kept) == 0 {
		delete(m.heirIdx, heir)
	} else {
		m.heirIdx[heir] = kept
	}
	return nil
}

func (m *memStore) OwnersForHeir(_ context.Context, heir string) ([]string, error) {
	return append([]string(nil), m.heirIdx[heir]...), nil
}

func (m *memStore) WriteDistribution(_ context.Context, rec *model.DistributionRecord) error {
	cp := *rec
	m.dist[rec.Owner] = &cp
	return nil
}

func (m *memStore) Distribution(_ context.Context, owner string) (*model.DistributionRecord, error) {
	rec, ok := m.dist[owner]
	if !ok {
		return nil, lifecycle.ErrVaultNotFound
	}
	return rec, nil
}

func (m *memStore) AddDistributedHeir(_ context.Context, heir, owner string) error {
	for _, o := range m.distHeir[heir] {
		if o == owner {
			return nil
		}
	}
	m.distHeir[heir] = append(m.distHeir[heir], owner)
	return nil
}

func (m *memStore) DistributionsForHeir(_ context.Context, heir string) ([]string, error) {
	return append([]string(nil), m.distHeir[heir]...), nil
}

func (m *memStore) AddCounter(_ context.Context, name string, amount uint64) error {
	m.counters[name] += amount
	return nil
}

func (m *memStore) SubCounter(_ context.Context, name string, amount uint64) error {
	if m.counters[name] < amount {
		m.counters[name] = 0
	} else {
		m.counters[name] -= amount
	}
	return nil
}

func (m *memStore) Counter(_ context.Context, name string) (uint64, error) {
	return m.counters[name], nil
}

func (m *memStore) TimerHandle(_ context.Context, owner string) (*model.TimerEntry, error) {
	return m.timers[owner], nil
}

func (m *memStore) SaveTimerHandle(_ context.Context, e *model.TimerEntry) error {
	m.timers[e.Owner] = e
	return nil
}

func (m *memStore) DeleteTimerHandle(_ context.Context, owner string) error {
	delete(m.timers, owner)
	return nil
}

func (m *memStore) Rate(_ context.Context) (uint64, error) { return m.rate, nil }

func (m *memStore) SetRate(_ context.Context, rate uint64) error {
	m.rate = rate
	return nil
}

func (m *memStore) Credit(_ context.Context, address string, amount uint64) error {
	m.accounts[address] += amount
	return nil
}

func (m *memStore) Debit(_ context.Context, address string, amount uint64) error {
	if m.accounts[address] < amount {
		return lifecycle.ErrInsufficientFunds
	}
	m.accounts[address] -= amount
	return nil
}

func (m *memStore) AccountBalance(_ context.Context, address string) (uint64, error) {
	return m.accounts[address], nil
}

type memSched struct {
	seq       int
	delays    map[string]uint64
	gas       map[string]uint64
	cancelled map[string]bool
}

func newMemSched() *memSched {
	return &memSched{delays: map[string]uint64{}, gas: map[string]uint64{}, cancelled: map[string]bool{}}
}

func (s *memSched) Register(_ context.Context, _ string, delayMs, gas uint64) (string, error) {
	s.seq++
	h := fmt.Sprintf("cb-%d", s.seq)
	s.delays[h] = delayMs
	s.gas[h] = gas
	return h, nil
}

func (s *memSched) Cancel(_ context.Context, handle string) error {
	s.cancelled[handle] = true
	return nil
}

func (s *memSched) Exists(_ context.Context, handle string) (bool, error) {
	return !s.cancelled[handle], nil
}

type memPublisher struct {
	mu     sync.Mutex
	events []lifecycle.Event
}

func (p *memPublisher) Publish(_ context.Context, e lifecycle.Event) {
	p.mu.Lock()
	p.events = append(p.events, e)
	p.mu.Unlock()
}

func (p *memPublisher) has(typ string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.events {
		if e.Type == typ {
			return true
		}
	}
	return false
}

type fakeClock struct{ ms uint64 }

func (c *fakeClock) Now() uint64       { return c.ms }
func (c *fakeClock) advance(d uint64)  { c.ms += d }
func (c *fakeClock) set(target uint64) { c.ms = target }

type env struct {
	clk   *fakeClock
	store *memStore
	sched *memSched
	pub   *memPublisher
	ctl   *lifecycle.Controller
}

func newEnv() *env {
	clk := &fakeClock{ms: 1_700_000_000_000}
	store := newMemStore()
	sched := newMemSched()
	pub := &memPublisher{}
	mgr := timerchain.NewManager(sched, store, clk.Now)
	ctl := lifecycle.NewController(store, mgr, pub, admin, clk.Now)
	return &env{clk: clk, store: store, sched: sched, pub: pub, ctl: ctl}
}

// fire simulates the scheduler delivering the armed hop: advance the
// clock to the hop's wake time and invoke the trigger with its handle
// and carried gas.
func (e *env) fire(t *testing.T) {
	t.Helper()
	entry := e.store.timers[owner]
	require.NotNil(t, entry, "no armed hop to fire")
	e.clk.advance(e.sched.delays[entry.Handle])
	require.NoError(t, e.ctl.Trigger(context.Background(), owner, entry.Handle, e.sched.gas[entry.Handle]))
}

// createLight opens a LIGHT vault for the standard test owner with two
// heirs, funding the owner's account exactly for the request.
func (e *env) createLight(t *testing.T, intervalMs, balance uint64) *model.Vault {
	t.Helper()
	sub := 1000 * coin
	transferred := sub + fee.OracleFee + fee.MinGasDeposit(intervalMs) + balance
	e.store.accounts[owner] += transferred
	v, err := e.ctl.Create(context.Background(), lifecycle.CreateParams{
		Owner:               owner,
		Tier:                model.TierLight,
		Heirs:               []string{heir1, heir2},
		IntervalMs:          intervalMs,
		Payload:             "cipher",
		Transferred:         transferred,
		SubscriptionPayment: sub,
	})
	require.NoError(t, err)
	return v
}

func TestCreateValidation(t *testing.T) {
	ctx := context.Background()
	base := lifecycle.CreateParams{
		Owner:               owner,
		Tier:                model.TierLight,
		Heirs:               []string{heir1},
		IntervalMs:          10 * day,
		Transferred:         100_000 * coin,
		SubscriptionPayment: 1000 * coin,
	}
	cases := []struct {
		name    string
		mutate  func(*lifecycle.CreateParams)
		wantErr error
	}{
		{"invalid tier", func(p *lifecycle.CreateParams) { p.Tier = model.Tier(9) }, lifecycle.ErrInvalidTier},
		{"no heirs", func(p *lifecycle.CreateParams) { p.Heirs = nil }, lifecycle.ErrNoHeirs},
		{"too many heirs", func(p *lifecycle.CreateParams) {
			p.Heirs = []string{"a", "b", "c", "d"}
		}, lifecycle.ErrTooManyHeirs},
		{"self heir", func(p *lifecycle.CreateParams) { p.Heirs = []string{owner} }, lifecycle.ErrSelfHeir},
		{"duplicate heir", func(p *lifecycle.CreateParams) {
			p.Heirs = []string{heir1, heir1}
		}, lifecycle.ErrDuplicateHeir},
		{"interval too short", func(p *lifecycle.CreateParams) { p.IntervalMs = 1000 }, lifecycle.ErrIntervalTooShort},
		{"payload too large", func(p *lifecycle.CreateParams) {
			p.Tier = model.TierFree
			p.SubscriptionPayment = 0
			p.Payload = "0123456789012345678901234567890"
		}, lifecycle.ErrPayloadTooLarge},
		{"archive ref below PRO", func(p *lifecycle.CreateParams) { p.ArchiveRef = "ar://tx" }, lifecycle.ErrArchiveRefTier},
		{"payment below minimum", func(p *lifecycle.CreateParams) {
			p.SubscriptionPayment = 500 * coin
		}, lifecycle.ErrPaymentBelowMinimum},
		{"insufficient transfer", func(p *lifecycle.CreateParams) { p.Transferred = 1 }, lifecycle.ErrInsufficientPayment},
		{"balance exceeds tier", func(p *lifecycle.CreateParams) {
			p.Transferred = 300_000 * coin
		}, lifecycle.ErrBalanceExceedsTier},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newEnv()
			e.store.accounts[owner] = 1_000_000 * coin
			p := base
			tc.mutate(&p)
			_, err := e.ctl.Create(ctx, p)
			assert.ErrorIs(t, err, tc.wantErr)
			has, _ := e.store.VaultExists(ctx, owner)
			assert.False(t, has, "rejected create must not persist a vault")
		})
	}
}

func TestCreateDebitsCallerAndArmsTimer(t *testing.T) {
	e := newEnv()
	interval := 10 * day
	v := e.createLight(t, interval, 101)

	assert.Equal(t, e.clk.Now()+interval, v.UnlockDate)
	assert.Equal(t, uint64(101), v.Balance)
	assert.Equal(t, e.clk.Now()+fee.SubscriptionPeriodMs, v.SubscriptionExpiry)
	assert.Equal(t, uint64(0), e.store.accounts[owner], "full transfer debited")
	assert.Equal(t, 1000*coin+fee.OracleFee, e.store.counters[lifecycle.CounterRevenue])

	entry := e.store.timers[owner]
	require.NotNil(t, entry)
	assert.Equal(t, v.UnlockDate, entry.TargetMs)
	assert.Equal(t, fee.MaxCallbackSpanMs, e.sched.delays[entry.Handle], "first hop capped at max span")

	owners, _ := e.store.OwnersForHeir(context.Background(), heir1)
	assert.Equal(t, []string{owner}, owners)
	assert.True(t, e.pub.has(lifecycle.EventVaultCreated))
}

func TestCreateOverActiveVaultRejected(t *testing.T) {
	e := newEnv()
	e.createLight(t, 10*day, 0)
	e.store.accounts[owner] = 100_000 * coin
	_, err := e.ctl.Create(context.Background(), lifecycle.CreateParams{
		Owner:               owner,
		Tier:                model.TierLight,
		Heirs:               []string{heir1},
		IntervalMs:          10 * day,
		Transferred:         2000 * coin,
		SubscriptionPayment: 1000 * coin,
	})
	assert.ErrorIs(t, err, lifecycle.ErrVaultActive)
}

func TestRecreateOverInactiveVault(t *testing.T) {
	e := newEnv()
	e.createLight(t, 10*day, 50*coin)
	_, err := e.ctl.Deactivate(context.Background(), owner)
	require.NoError(t, err)

	v := e.createLight(t, 20*day, 5*coin)
	assert.True(t, v.Active)
	assert.Equal(t, 5*coin, v.Balance)
	assert.Equal(t, 20*day, v.HeartbeatInterval)
}

func TestPingExtendsUnlockExactly(t *testing.T) {
	e := newEnv()
	interval := 10 * day
	e.createLight(t, interval, 500*coin)
	e.clk.advance(1 * day)

	payment := fee.MinGasDeposit(interval) + fee.OracleFee +
		fee.AccruedFee(500*coin, 200, e.clk.Now()-1*day, e.clk.Now())
	e.store.accounts[owner] = payment

	v, err := e.ctl.Ping(context.Background(), owner, payment)
	require.NoError(t, err)
	assert.Equal(t, e.clk.Now()+interval, v.UnlockDate, "extended by exactly one interval")
	assert.Equal(t, 500*coin, v.Balance, "ping never touches the vault balance")
	assert.Equal(t, e.clk.Now(), v.LastCheckIn)
	assert.Equal(t, e.clk.Now(), v.LastFeeCollection)
}

func TestPingFrozenVaultRejected(t *testing.T) {
	e := newEnv()
	e.createLight(t, 400*day, 100*coin)
	before, _ := e.store.Vault(context.Background(), owner)

	// Day 366: subscription lapsed, unlock date still ahead.
	e.clk.advance(366 * day)
	e.store.accounts[owner] = 1000 * coin
	_, err := e.ctl.Ping(context.Background(), owner, 1000*coin)
	assert.ErrorIs(t, err, lifecycle.ErrSubscriptionExpired)

	after, _ := e.store.Vault(context.Background(), owner)
	assert.Equal(t, before.UnlockDate, after.UnlockDate)
	assert.Equal(t, before.Balance, after.Balance)
}

func TestPingAfterUnlockRejected(t *testing.T) {
	e := newEnv()
	e.createLight(t, 10*day, 0)
	e.clk.advance(11 * day)
	e.store.accounts[owner] = 1000 * coin
	_, err := e.ctl.Ping(context.Background(), owner, 1000*coin)
	assert.ErrorIs(t, err, lifecycle.ErrVaultUnlocked)
}

func TestPingCollectsFeeAndTracksGasExcess(t *testing.T) {
	e := newEnv()
	interval := 400 * day
	e.createLight(t, interval, 1000*coin)

	half := fee.MsPerYear / 2
	e.clk.advance(half)

	// 2% annual on 1000 coins over half a year accrues 10 coins.
	aum := fee.AccruedFee(1000*coin, 200, e.clk.Now()-half, e.clk.Now())
	require.Equal(t, 10*coin, aum)

	minGas := fee.MinGasDeposit(interval)
	transferred := minGas + fee.OracleFee + aum + 3*coin
	e.store.accounts[owner] = transferred

	v, err := e.ctl.Ping(context.Background(), owner, transferred)
	require.NoError(t, err)
	assert.Equal(t, 1000*coin, v.Balance)
	assert.Equal(t, 10*coin, e.store.counters[lifecycle.CounterAUMFees])
	assert.Equal(t, 10*coin, e.store.accounts[admin], "fee credited to admin")
	assert.Equal(t, 3*coin, e.store.counters[lifecycle.CounterGasExcess])
	assert.True(t, e.pub.has(lifecycle.EventAUMFeeCollected))
	assert.True(t, e.pub.has(lifecycle.EventGasExcessAdded))
}

func TestDepositRules(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	e.createLight(t, 400*day, 100*coin)

	_, err := e.ctl.Deposit(ctx, owner, 0)
	assert.ErrorIs(t, err, lifecycle.ErrNoCoinsSent)

	e.store.accounts[owner] = 300_000 * coin
	v, err := e.ctl.Deposit(ctx, owner, 50*coin)
	require.NoError(t, err)
	assert.Equal(t, 150*coin, v.Balance)

	_, err = e.ctl.Deposit(ctx, owner, 250_000*coin)
	assert.ErrorIs(t, err, lifecycle.ErrBalanceExceedsTier)

	// Lapsed subscription freezes pings, not deposits.
	e.clk.advance(366 * day)
	v, err = e.ctl.Deposit(ctx, owner, 10*coin)
	require.NoError(t, err)
	assert.Equal(t, 160*coin, v.Balance)
}

func TestRenewSubscription(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	e.createLight(t, 400*day, 0)
	created, _ := e.store.Vault(ctx, owner)

	// Still active: extends from the current expiry.
	e.store.accounts[owner] = 2000 * coin
	v, err := e.ctl.RenewSubscription(ctx, owner, owner, 1000*coin)
	require.NoError(t, err)
	assert.Equal(t, created.SubscriptionExpiry+fee.SubscriptionPeriodMs, v.SubscriptionExpiry)

	_, err = e.ctl.RenewSubscription(ctx, owner, owner, 500*coin)
	assert.ErrorIs(t, err, lifecycle.ErrPaymentBelowMinimum)

	// Heir cannot renew while the vault is still locked.
	e.store.accounts[heir1] = 2000 * coin
	_, err = e.ctl.RenewSubscription(ctx, heir1, owner, 1000*coin)
	assert.ErrorIs(t, err, lifecycle.ErrVaultLocked)
	_, err = e.ctl.RenewSubscription(ctx, "AU1stranger", owner, 1000*coin)
	assert.ErrorIs(t, err, lifecycle.ErrNotHeir)
}

func TestRenewExpiredSubscriptionStartsFromNow(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	e.createLight(t, 3*365*day, 0)

	e.clk.advance(2 * 365 * day) // a year past expiry
	e.store.accounts[owner] = 1000 * coin
	v, err := e.ctl.RenewSubscription(ctx, owner, owner, 1000*coin)
	require.NoError(t, err)
	assert.Equal(t, e.clk.Now()+fee.SubscriptionPeriodMs, v.SubscriptionExpiry)
}

func TestRenewFreeTierRejected(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	transferred := fee.OracleFee + fee.MinGasDeposit(10*day)
	e.store.accounts[owner] = transferred
	_, err := e.ctl.Create(ctx, lifecycle.CreateParams{
		Owner:       owner,
		Tier:        model.TierFree,
		Heirs:       []string{heir1},
		IntervalMs:  10 * day,
		Transferred: transferred,
	})
	require.NoError(t, err)

	_, err = e.ctl.RenewSubscription(ctx, owner, owner, 1000*coin)
	assert.ErrorIs(t, err, lifecycle.ErrFreeTierNoSub)
}

func TestTriggerChainDistributesAtUnlock(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	start := e.clk.Now()
	v := e.createLight(t, 10*day, 101) // 101 base units across 2 heirs

	// Hop 1: 6 days out, finds the vault locked, re-arms.
	e.fire(t)
	assert.True(t, e.pub.has(lifecycle.EventTimerRescheduled))
	cur, _ := e.store.Vault(ctx, owner)
	assert.True(t, cur.Active)

	// Hop 2: remaining 4 days, lands exactly on the unlock date.
	e.fire(t)
	assert.Equal(t, start+10*day, e.clk.Now(), "final hop wakes exactly at unlockDate")
	assert.Equal(t, v.UnlockDate, e.clk.Now())

	cur, _ = e.store.Vault(ctx, owner)
	assert.False(t, cur.Active)
	assert.Equal(t, uint64(0), cur.Balance)
	assert.Equal(t, uint64(51), e.store.accounts[heir1], "first heir takes the remainder")
	assert.Equal(t, uint64(50), e.store.accounts[heir2])

	rec := e.store.dist[owner]
	require.NotNil(t, rec)
	assert.Equal(t, uint64(101), rec.Total)
	assert.Equal(t, uint64(50), rec.PerHeirShare)
	assert.Equal(t, 2, rec.HeirCount)
	assert.Equal(t, uint64(0), rec.FeeCollected)

	// No currency created or destroyed.
	assert.Equal(t, rec.Total-rec.FeeCollected, e.store.accounts[heir1]+e.store.accounts[heir2])

	owners, _ := e.store.OwnersForHeir(ctx, heir1)
	assert.Empty(t, owners, "heir index pruned")
	got, _ := e.store.DistributionsForHeir(ctx, heir1)
	assert.Equal(t, []string{owner}, got)
	assert.Nil(t, e.store.timers[owner], "chain disarmed")
	assert.True(t, e.pub.has(lifecycle.EventDistributionDone))
}

func TestTriggerIdempotentAfterDistribution(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	e.createLight(t, 10*day, 100)
	e.fire(t)
	e.fire(t)

	h1 := e.store.accounts[heir1]
	require.NoError(t, e.ctl.Trigger(ctx, owner, "", 0))
	assert.Equal(t, h1, e.store.accounts[heir1], "second trigger pays nothing")
	assert.True(t, e.pub.has(lifecycle.EventTriggerSkipped))
}

func TestTriggerStaleHandleDropped(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	e.createLight(t, 10*day, 100)
	e.clk.advance(11 * day)

	require.NoError(t, e.ctl.Trigger(ctx, owner, "cb-bogus", 5*coin))
	cur, _ := e.store.Vault(ctx, owner)
	assert.True(t, cur.Active, "stale delivery must not act on the vault")
	assert.True(t, e.pub.has(lifecycle.EventTriggerSkipped))
}

func TestTriggerUnlockedWithLapsedSubscriptionWaits(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	e.createLight(t, 400*day, 100*coin)
	e.clk.advance(401 * day)

	require.NoError(t, e.ctl.Trigger(ctx, owner, "", 2*coin))
	cur, _ := e.store.Vault(ctx, owner)
	assert.True(t, cur.Active, "no distribution while the subscription is unpaid")
	assert.Equal(t, uint64(0), e.store.accounts[heir1])
	assert.Equal(t, 2*coin, e.store.counters[lifecycle.CounterGasExcess])
	assert.True(t, e.pub.has(lifecycle.EventUnlockedPendingSub))
	assert.Equal(t, model.StatusUnlockedPendingSubscription, cur.Status(e.clk.Now()))
}

func TestClaimPaysLapsedSubscriptionThenDistributes(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	e.createLight(t, 400*day, 100*coin)
	e.clk.advance(401 * day)

	revenueBefore := e.store.counters[lifecycle.CounterRevenue]
	e.store.accounts[heir1] = 1000 * coin
	require.NoError(t, e.ctl.Claim(ctx, heir1, owner, 1000*coin))

	cur, _ := e.store.Vault(ctx, owner)
	assert.False(t, cur.Active)
	assert.Equal(t, revenueBefore+1000*coin, e.store.counters[lifecycle.CounterRevenue])
	assert.Positive(t, e.store.accounts[heir1])
	assert.Positive(t, e.store.accounts[heir2])
}

func TestClaimChecks(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	e.createLight(t, 10*day, 100*coin)

	err := e.ctl.Claim(ctx, "AU1stranger", owner, 0)
	assert.ErrorIs(t, err, lifecycle.ErrNotHeir)

	err = e.ctl.Claim(ctx, heir1, owner, 0)
	assert.ErrorIs(t, err, lifecycle.ErrVaultLocked)
}

func TestDeactivateRefundsBalanceMinusFee(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	e.createLight(t, 400*day, 500*coin)

	e.clk.advance(fee.MsPerYear) // one full year: 2% of 500 is 10
	_, err := e.ctl.Deactivate(ctx, owner)
	require.NoError(t, err)

	assert.Equal(t, 490*coin, e.store.accounts[owner], "owner refunded balance minus fee")
	assert.Equal(t, 10*coin, e.store.counters[lifecycle.CounterAUMFees])
	assert.Equal(t, 10*coin, e.store.accounts[admin])

	cur, _ := e.store.Vault(ctx, owner)
	assert.False(t, cur.Active)
	assert.Equal(t, uint64(0), cur.Balance)
	assert.Nil(t, e.store.dist[owner], "voluntary deactivation writes no distribution record")
	owners, _ := e.store.OwnersForHeir(ctx, heir1)
	assert.Empty(t, owners)
	assert.Nil(t, e.store.timers[owner])
}

func TestUpdateHeirsReindexes(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	e.createLight(t, 10*day, 0)

	heir3 := "AU1heir3"
	v, err := e.ctl.UpdateHeirs(ctx, owner, []string{heir3})
	require.NoError(t, err)
	assert.Equal(t, []string{heir3}, v.Heirs)

	old, _ := e.store.OwnersForHeir(ctx, heir1)
	assert.Empty(t, old)
	now, _ := e.store.OwnersForHeir(ctx, heir3)
	assert.Equal(t, []string{owner}, now)

	_, err = e.ctl.UpdateHeirs(ctx, owner, []string{heir3, heir3})
	assert.ErrorIs(t, err, lifecycle.ErrDuplicateHeir)
}

func TestUpdatePayloadAndInterval(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	e.createLight(t, 10*day, 0)
	created, _ := e.store.Vault(ctx, owner)

	_, err := e.ctl.UpdatePayload(ctx, owner, "new cipher", "ar://tx", "")
	assert.ErrorIs(t, err, lifecycle.ErrArchiveRefTier)

	v, err := e.ctl.UpdatePayload(ctx, owner, "new cipher", "", "key-ref")
	require.NoError(t, err)
	assert.Equal(t, "new cipher", v.Payload)
	assert.Equal(t, "key-ref", v.EncryptionRef)

	_, err = e.ctl.UpdateInterval(ctx, owner, 1000)
	assert.ErrorIs(t, err, lifecycle.ErrIntervalTooShort)

	v, err = e.ctl.UpdateInterval(ctx, owner, 30*day)
	require.NoError(t, err)
	assert.Equal(t, 30*day, v.HeartbeatInterval)
	assert.Equal(t, created.UnlockDate, v.UnlockDate, "running timer is not reset")
}

func TestSetRateBounds(t *testing.T) {
	ctx := context.Background()
	e := newEnv()

	assert.ErrorIs(t, e.ctl.SetRate(ctx, 0), lifecycle.ErrRateOutOfRange)
	assert.ErrorIs(t, e.ctl.SetRate(ctx, 1_000_000), lifecycle.ErrRateOutOfRange)
	require.NoError(t, e.ctl.SetRate(ctx, 42))
	rate, err := e.ctl.Rate(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), rate)
}

func TestSubscriptionPriceFromRate(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	// $9.99 at 5 cents per coin is 199.8 coins.
	price, err := e.ctl.SubscriptionPrice(ctx, model.TierLight)
	require.NoError(t, err)
	assert.Equal(t, uint64(199_800_000_000), price)
}

func TestAdminWithdrawals(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	e.createLight(t, 10*day, 0) // revenue pool now holds sub + oracle fee

	err := e.ctl.WithdrawRevenue(ctx, 10_000_000*coin)
	assert.ErrorIs(t, err, lifecycle.ErrWithdrawExceedsPool)

	require.NoError(t, e.ctl.WithdrawRevenue(ctx, 100*coin))
	assert.Equal(t, 100*coin, e.store.accounts[admin])
	assert.Equal(t, 900*coin+fee.OracleFee, e.store.counters[lifecycle.CounterRevenue])

	err = e.ctl.WithdrawGasExcess(ctx, 1)
	assert.ErrorIs(t, err, lifecycle.ErrWithdrawExceedsPool)
}

func TestCreateRejectsWrappingPaymentSum(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	e.store.accounts[owner] = 1000 * coin

	// A gas hint near the uint64 ceiling would wrap the required total
	// below the transfer if the terms were summed naively.
	_, err := e.ctl.Create(ctx, lifecycle.CreateParams{
		Owner:               owner,
		Tier:                model.TierLight,
		Heirs:               []string{heir1},
		IntervalMs:          10 * day,
		Transferred:         1000 * coin,
		SubscriptionPayment: 1000 * coin,
		GasHint:             ^uint64(0) - 1,
	})
	assert.ErrorIs(t, err, lifecycle.ErrInsufficientPayment)

	// A subscription payment that wraps against oracle fee plus gas is
	// rejected the same way.
	_, err = e.ctl.Create(ctx, lifecycle.CreateParams{
		Owner:               owner,
		Tier:                model.TierLight,
		Heirs:               []string{heir1},
		IntervalMs:          10 * day,
		Transferred:         1000 * coin,
		SubscriptionPayment: ^uint64(0) - fee.OracleFee,
	})
	assert.ErrorIs(t, err, lifecycle.ErrInsufficientPayment)

	assert.Equal(t, 1000*coin, e.store.accounts[owner], "rejected create debits nothing")
	assert.Zero(t, e.store.counters[lifecycle.CounterRevenue])
	has, _ := e.store.VaultExists(ctx, owner)
	assert.False(t, has)
}

func TestDepositRejectsWrappingAmount(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	e.createLight(t, 10*day, 100*coin)
	e.store.accounts[owner] = 100 * coin

	_, err := e.ctl.Deposit(ctx, owner, ^uint64(0)-50*coin)
	assert.ErrorIs(t, err, lifecycle.ErrBalanceExceedsTier)

	v, _ := e.store.Vault(ctx, owner)
	assert.Equal(t, 100*coin, v.Balance, "rejected deposit leaves the balance untouched")
	assert.Equal(t, 100*coin, e.store.accounts[owner])
}

func TestFundAccountCreditsLedger(t *testing.T) {
	ctx := context.Background()
	e := newEnv()

	_, err := e.ctl.FundAccount(ctx, owner, 0)
	assert.ErrorIs(t, err, lifecycle.ErrNoCoinsSent)

	balance, err := e.ctl.FundAccount(ctx, owner, 250*coin)
	require.NoError(t, err)
	assert.Equal(t, 250*coin, balance)

	balance, err = e.ctl.FundAccount(ctx, owner, 50*coin)
	require.NoError(t, err)
	assert.Equal(t, 300*coin, balance, "funding accumulates")
	assert.Equal(t, 300*coin, e.store.accounts[owner])
	assert.True(t, e.pub.has(lifecycle.EventAccountFunded))
}

func TestStatusProjection(t *testing.T) {
	ctx := context.Background()
	e := newEnv()

	st, err := e.ctl.Status(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, model.StatusNotFound, st)

	e.createLight(t, 400*day, 0)
	st, _ = e.ctl.Status(ctx, owner)
	assert.Equal(t, model.StatusActive, st)

	e.clk.advance(366 * day)
	st, _ = e.ctl.Status(ctx, owner)
	assert.Equal(t, model.StatusFrozen, st)

	e.clk.advance(35 * day)
	st, _ = e.ctl.Status(ctx, owner)
	assert.Equal(t, model.StatusUnlockedPendingSubscription, st)
}

func TestTimeToUnlockAndAccruedFee(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	e.createLight(t, 10*day, 1000*coin)

	left, err := e.ctl.TimeToUnlock(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 10*day, left)

	e.clk.advance(fee.MsPerYear / 2)
	f, err := e.ctl.AccruedFee(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 10*coin, f)

	e.clk.set(e.clk.Now() + 400*day)
	left, _ = e.ctl.TimeToUnlock(ctx, owner)
	assert.Equal(t, uint64(0), left)
}
