package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/legacy-vault/internal/lifecycle"
	"github.com/iliyamo/legacy-vault/internal/model"
)

// statusOf maps lifecycle errors onto HTTP statuses.  Validation problems
// are 400, payment shortfalls 402, authorization 403, missing vaults 404
// and state-machine conflicts 409.  Anything unmapped is a server error.
func statusOf(err error) int {
	switch {
	case errors.Is(err, lifecycle.ErrVaultNotFound):
		return http.StatusNotFound
	case errors.Is(err, lifecycle.ErrNotHeir):
		return http.StatusForbidden
	case errors.Is(err, lifecycle.ErrPaymentBelowMinimum),
		errors.Is(err, lifecycle.ErrInsufficientPayment),
		errors.Is(err, lifecycle.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, lifecycle.ErrVaultActive),
		errors.Is(err, lifecycle.ErrVaultInactive),
		errors.Is(err, lifecycle.ErrVaultUnlocked),
		errors.Is(err, lifecycle.ErrVaultLocked),
		errors.Is(err, lifecycle.ErrSubscriptionExpired):
		return http.StatusConflict
	case errors.Is(err, lifecycle.ErrInvalidTier),
		errors.Is(err, lifecycle.ErrNoHeirs),
		errors.Is(err, lifecycle.ErrTooManyHeirs),
		errors.Is(err, lifecycle.ErrSelfHeir),
		errors.Is(err, lifecycle.ErrDuplicateHeir),
		errors.Is(err, lifecycle.ErrPayloadTooLarge),
		errors.Is(err, lifecycle.ErrArchiveRefTier),
		errors.Is(err, lifecycle.ErrIntervalTooShort),
		errors.Is(err, lifecycle.ErrBalanceExceedsTier),
		errors.Is(err, lifecycle.ErrRateOutOfRange),
		errors.Is(err, lifecycle.ErrNoCoinsSent),
		errors.Is(err, lifecycle.ErrFreeTierNoSub),
		errors.Is(err, lifecycle.ErrWithdrawExceedsPool):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// fail writes the error in the standard {"error": ...} JSON shape.
// Internal errors are masked so database details never leak to clients.
func fail(c echo.Context, err error) error {
	code := statusOf(err)
	if code == http.StatusInternalServerError {
		return c.JSON(code, echo.Map{"error": "internal error"})
	}
	return c.JSON(code, echo.Map{"error": err.Error()})
}

// vaultView is the JSON projection of a vault returned by every endpoint
// that touches one.  Timestamps are Unix milliseconds.  FREE-tier vaults
// omit subscription_expiry_ms since they never lapse.
type vaultView struct {
	Owner              string   `json:"owner"`
	Tier               string   `json:"tier"`
	Status             string   `json:"status"`
	UnlockDateMs       uint64   `json:"unlock_date_ms"`
	HeartbeatMs        uint64   `json:"heartbeat_interval_ms"`
	LastCheckInMs      uint64   `json:"last_check_in_ms"`
	Active             bool     `json:"active"`
	Balance            uint64   `json:"balance"`
	Heirs              []string `json:"heirs"`
	Payload            string   `json:"payload,omitempty"`
	ArchiveRef         string   `json:"archive_ref,omitempty"`
	EncryptionRef      string   `json:"encryption_ref,omitempty"`
	SubscriptionExpiry *uint64  `json:"subscription_expiry_ms,omitempty"`
	LastFeeCollection  uint64   `json:"last_fee_collection_ms"`
}

func newVaultView(v *model.Vault) vaultView {
	now := uint64(time.Now().UnixMilli())
	out := vaultView{
		Owner:             v.Owner,
		Tier:              v.Tier.String(),
		Status:            string(v.Status(now)),
		UnlockDateMs:      v.UnlockDate,
		HeartbeatMs:       v.HeartbeatInterval,
		LastCheckInMs:     v.LastCheckIn,
		Active:            v.Active,
		Balance:           v.Balance,
		Heirs:             v.Heirs,
		Payload:           v.Payload,
		ArchiveRef:        v.ArchiveRef,
		EncryptionRef:     v.EncryptionRef,
		LastFeeCollection: v.LastFeeCollection,
	}
	if v.SubscriptionExpiry != model.NoExpiry {
		exp := v.SubscriptionExpiry
		out.SubscriptionExpiry = &exp
	}
	return out
}
