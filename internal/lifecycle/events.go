package lifecycle

import "context"

// Event is a domain event emitted after a committed state change.  The
// queue layer serializes it onto the notification exchange; consumers
// (notification log, frontend relays) read the Type and Data fields.
type Event struct {
	Type  string         `json:"type"`
	Owner string         `json:"owner"`
	At    uint64         `json:"at"`
	Data  map[string]any `json:"data,omitempty"`
}

// Event types, one per observable state change.
const (
	EventVaultCreated        = "VAULT_CREATED"
	EventSubscriptionPaid    = "SUBSCRIPTION_PAID"
	EventPing                = "PING"
	EventDeposit             = "DEPOSIT"
	EventSubscriptionRenewed = "SUBSCRIPTION_RENEWED"
	EventPayloadUpdated      = "PAYLOAD_UPDATED"
	EventHeirsUpdated        = "HEIRS_UPDATED"
	EventIntervalUpdated     = "INTERVAL_UPDATED"
	EventTimerRescheduled    = "TIMER_RESCHEDULED"
	EventTriggerSkipped      = "TRIGGER_SKIPPED"
	EventUnlockedPendingSub  = "VAULT_UNLOCKED_PENDING_SUBSCRIPTION"
	EventAUMFeeCollected     = "AUM_FEE_COLLECTED"
	EventGasExcessAdded      = "GAS_EXCESS_ADDED"
	EventInheritanceSent     = "INHERITANCE_SENT"
	EventDistributionDone    = "DISTRIBUTION_COMPLETE"
	EventVaultDeactivated    = "VAULT_DEACTIVATED"
	EventRateUpdated         = "RATE_UPDATED"
	EventAdminWithdraw       = "ADMIN_WITHDRAW"
	EventAccountFunded       = "ACCOUNT_FUNDED"
)

// Publisher delivers domain events to the notification pipeline.
// Publishing is best-effort: implementations log failures instead of
// propagating them, so a broker hiccup never rolls back a vault change.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}
