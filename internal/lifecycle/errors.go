package lifecycle

import "errors"

// Validation errors: the input is malformed or out of range for the
// tier.  The operation is rejected with no state change.
var (
	ErrInvalidTier        = errors.New("invalid tier")
	ErrNoHeirs            = errors.New("need at least 1 heir")
	ErrTooManyHeirs       = errors.New("too many heirs for this tier")
	ErrSelfHeir           = errors.New("cannot be own heir")
	ErrDuplicateHeir      = errors.New("duplicate heir address")
	ErrPayloadTooLarge    = errors.New("payload too large for this tier")
	ErrArchiveRefTier     = errors.New("archive reference requires PRO tier or above")
	ErrIntervalTooShort   = errors.New("interval too short")
	ErrBalanceExceedsTier = errors.New("balance exceeds tier limit")
	ErrRateOutOfRange     = errors.New("rate out of range")
)

// Economic errors: the declared payment does not cover what the
// operation costs.  Rejected before any funds move.
var (
	ErrPaymentBelowMinimum = errors.New("payment below minimum")
	ErrInsufficientPayment = errors.New("insufficient funds for subscription and gas")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrNoCoinsSent         = errors.New("no coins sent")
	ErrWithdrawExceedsPool = errors.New("withdrawal exceeds accumulated pool")
)

// Timing and state errors: the vault exists but is in the wrong
// lifecycle state for the operation.
var (
	ErrVaultNotFound       = errors.New("vault not found")
	ErrVaultActive         = errors.New("vault already active")
	ErrVaultInactive       = errors.New("vault inactive")
	ErrVaultUnlocked       = errors.New("vault expired, cannot ping")
	ErrVaultLocked         = errors.New("vault not yet unlocked")
	ErrSubscriptionExpired = errors.New("subscription expired")
	ErrFreeTierNoSub       = errors.New("FREE tier has no subscription")
)

// Authorization errors.
var (
	ErrNotHeir = errors.New("not an heir")
)
