package model

import "time"

// Tier identifies the service level of a vault.  The tier is chosen at
// creation time and controls pricing, fee rates and structural limits
// (heir count, balance cap, payload size).  See the tier package for the
// parameter table.
type Tier uint8

const (
	TierFree Tier = iota // no subscription, no AUM fee, tight limits
	TierLight
	TierPro
	TierLegate
)

// Valid reports whether the tier value is one of the defined tiers.
func (t Tier) Valid() bool { return t <= TierLegate }

// String returns the canonical upper-case tier name used in API
// responses and events.
func (t Tier) String() string {
	switch t {
	case TierFree:
		return "FREE"
	case TierLight:
		return "LIGHT"
	case TierPro:
		return "PRO"
	case TierLegate:
		return "LEGATE"
	}
	return "UNKNOWN"
}

// ParseTier maps a tier name (case-sensitive, as produced by String) back
// to its Tier value.  The second return is false for unknown names.
func ParseTier(s string) (Tier, bool) {
	switch s {
	case "FREE":
		return TierFree, true
	case "LIGHT":
		return TierLight, true
	case "PRO":
		return TierPro, true
	case "LEGATE":
		return TierLegate, true
	}
	return 0, false
}

// NoExpiry marks a subscription that never runs out (FREE tier).
const NoExpiry uint64 = ^uint64(0)

// Vault is the per-owner dead-man's-switch record.  One vault exists per
// owner address; an owner may recreate a vault only after the previous
// one became inactive.  All timestamps are Unix milliseconds (UTC) to
// keep arithmetic in unsigned 64-bit integers.
//
// Fields:
//  Owner              – address that created and controls the vault.
//  Tier               – service tier, immutable after creation.
//  UnlockDate         – absolute time at which the vault becomes claimable.
//  HeartbeatInterval  – duration added to "now" on every successful ping.
//  LastCheckIn        – time of the last successful ping (diagnostic).
//  Active             – false once distributed or deactivated; terminal.
//  Balance            – native currency held for the heirs.
//  Heirs              – ordered, duplicate-free list of heir addresses.
//  Payload            – opaque owner-supplied blob, size-bounded by tier.
//  ArchiveRef         – pointer into external archival storage (PRO+).
//  EncryptionRef      – opaque key reference for the payload.
//  SubscriptionExpiry – end of the paid period; NoExpiry for FREE.
//  LastFeeCollection  – checkpoint for pro-rata AUM fee accrual.
type Vault struct {
	Owner              string
	Tier               Tier
	UnlockDate         uint64
	HeartbeatInterval  uint64
	LastCheckIn        uint64
	Active             bool
	Balance            uint64
	Heirs              []string
	Payload            string
	ArchiveRef         string
	EncryptionRef      string
	SubscriptionExpiry uint64
	LastFeeCollection  uint64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// SubscriptionActive reports whether the subscription covers the given
// moment.  FREE-tier vaults never expire.
func (v *Vault) SubscriptionActive(nowMs uint64) bool {
	if v.Tier == TierFree {
		return true
	}
	return nowMs < v.SubscriptionExpiry
}

// Unlocked reports whether the unlock deadline has been reached.
func (v *Vault) Unlocked(nowMs uint64) bool { return nowMs >= v.UnlockDate }

// IsHeir reports whether addr is one of the vault's heirs.
func (v *Vault) IsHeir(addr string) bool {
	for _, h := range v.Heirs {
		if h == addr {
			return true
		}
	}
	return false
}

// VaultStatus is the externally visible projection of the lifecycle
// state machine.  It combines Active, UnlockDate and SubscriptionExpiry
// into a single label for clients.
type VaultStatus string

const (
	StatusNotFound VaultStatus = "NOT_FOUND"
	// StatusActive: locked, subscription paid, timer chain armed.
	StatusActive VaultStatus = "ACTIVE"
	// StatusFrozen: locked but the subscription lapsed; pings are
	// rejected until the owner renews.  The unlock timer keeps running.
	StatusFrozen VaultStatus = "FROZEN"
	// StatusUnlockedReady: deadline passed, subscription paid; the next
	// trigger or claim distributes.
	StatusUnlockedReady VaultStatus = "UNLOCKED_READY"
	// StatusUnlockedPendingSubscription: deadline passed with a lapsed
	// subscription; an heir (or the owner) must pay before funds move.
	StatusUnlockedPendingSubscription VaultStatus = "UNLOCKED_PENDING_SUBSCRIPTION"
	// StatusDistributed: terminal; the record is kept for history.
	StatusDistributed VaultStatus = "DISTRIBUTED"
)

// Status computes the lifecycle projection at the given moment.
func (v *Vault) Status(nowMs uint64) VaultStatus {
	if !v.Active {
		return StatusDistributed
	}
	sub := v.SubscriptionActive(nowMs)
	if v.Unlocked(nowMs) {
		if sub {
			return StatusUnlockedReady
		}
		return StatusUnlockedPendingSubscription
	}
	if sub {
		return StatusActive
	}
	return StatusFrozen
}
