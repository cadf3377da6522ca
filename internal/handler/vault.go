package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/legacy-vault/internal/fee"
	"github.com/iliyamo/legacy-vault/internal/lifecycle"
	"github.com/iliyamo/legacy-vault/internal/middleware"
	"github.com/iliyamo/legacy-vault/internal/model"
)

// VaultHandler exposes the vault lifecycle over HTTP.  Every operation
// acts for the wallet address in the caller's access token; there is no
// way to name a different owner on the write paths.
type VaultHandler struct {
	Ctl *lifecycle.Controller
}

func NewVaultHandler(ctl *lifecycle.Controller) *VaultHandler {
	return &VaultHandler{Ctl: ctl}
}

// ----- DTOs -----

type createVaultReq struct {
	Tier                string   `json:"tier"`
	Heirs               []string `json:"heirs"`
	HeartbeatIntervalMs uint64   `json:"heartbeat_interval_ms"`
	Payload             string   `json:"payload"`
	ArchiveRef          string   `json:"archive_ref"`
	EncryptionRef       string   `json:"encryption_ref"`
	Transferred         uint64   `json:"transferred"`
	SubscriptionPayment uint64   `json:"subscription_payment"` // 0 = price from oracle rate
	GasHint             uint64   `json:"gas_hint"`             // 0 = computed minimum
}

type amountReq struct {
	Amount uint64 `json:"amount"`
}
type paymentReq struct {
	Payment uint64 `json:"payment"` // 0 = price from oracle rate
}
type heirsReq struct {
	Heirs []string `json:"heirs"`
}
type payloadReq struct {
	Payload       string `json:"payload"`
	ArchiveRef    string `json:"archive_ref"`
	EncryptionRef string `json:"encryption_ref"`
}
type intervalReq struct {
	HeartbeatIntervalMs uint64 `json:"heartbeat_interval_ms"`
}

// Create: POST /v1/vaults.
func (h *VaultHandler) Create(c echo.Context) error {
	var req createVaultReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	t, ok := model.ParseTier(req.Tier)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown tier"})
	}
	v, err := h.Ctl.Create(c.Request().Context(), lifecycle.CreateParams{
		Owner:               middleware.CallerAddress(c),
		Tier:                t,
		Heirs:               req.Heirs,
		IntervalMs:          req.HeartbeatIntervalMs,
		Payload:             req.Payload,
		ArchiveRef:          req.ArchiveRef,
		EncryptionRef:       req.EncryptionRef,
		Transferred:         req.Transferred,
		SubscriptionPayment: req.SubscriptionPayment,
		GasHint:             req.GasHint,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, newVaultView(v))
}

// Ping: POST /v1/vaults/ping.  The transferred amount must cover the
// oracle fee, the accrued AUM fee and the next hop's gas.
func (h *VaultHandler) Ping(c echo.Context) error {
	var req amountReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	v, err := h.Ctl.Ping(c.Request().Context(), middleware.CallerAddress(c), req.Amount)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, newVaultView(v))
}

// Deposit: POST /v1/vaults/deposit.
func (h *VaultHandler) Deposit(c echo.Context) error {
	var req amountReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	v, err := h.Ctl.Deposit(c.Request().Context(), middleware.CallerAddress(c), req.Amount)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, newVaultView(v))
}

// Renew: POST /v1/vaults/:owner/renew.  Owners renew their own vault at
// any time; heirs may renew someone else's only after it has unlocked.
func (h *VaultHandler) Renew(c echo.Context) error {
	var req paymentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	caller := middleware.CallerAddress(c)
	owner := c.Param("owner")
	v, err := h.Ctl.RenewSubscription(c.Request().Context(), caller, owner, req.Payment)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, newVaultView(v))
}

// UpdateHeirs: PUT /v1/vaults/heirs.
func (h *VaultHandler) UpdateHeirs(c echo.Context) error {
	var req heirsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	v, err := h.Ctl.UpdateHeirs(c.Request().Context(), middleware.CallerAddress(c), req.Heirs)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, newVaultView(v))
}

// UpdatePayload: PUT /v1/vaults/payload.
func (h *VaultHandler) UpdatePayload(c echo.Context) error {
	var req payloadReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	v, err := h.Ctl.UpdatePayload(c.Request().Context(), middleware.CallerAddress(c),
		req.Payload, req.ArchiveRef, req.EncryptionRef)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, newVaultView(v))
}

// UpdateInterval: PUT /v1/vaults/interval.  Takes effect from the next
// ping; the current unlock date is left alone.
func (h *VaultHandler) UpdateInterval(c echo.Context) error {
	var req intervalReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	v, err := h.Ctl.UpdateInterval(c.Request().Context(), middleware.CallerAddress(c), req.HeartbeatIntervalMs)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, newVaultView(v))
}

// Deactivate: DELETE /v1/vaults.  Returns the balance minus the final
// AUM fee to the owner's ledger account.
func (h *VaultHandler) Deactivate(c echo.Context) error {
	v, err := h.Ctl.Deactivate(c.Request().Context(), middleware.CallerAddress(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, newVaultView(v))
}

// Claim: POST /v1/vaults/:owner/claim.  Heir-initiated distribution of
// an unlocked vault; settles a lapsed subscription from the payment
// first when needed.
func (h *VaultHandler) Claim(c echo.Context) error {
	var req paymentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	caller := middleware.CallerAddress(c)
	owner := c.Param("owner")
	if err := h.Ctl.Claim(c.Request().Context(), caller, owner, req.Payment); err != nil {
		return fail(c, err)
	}
	rec, err := h.Ctl.Distribution(c.Request().Context(), owner)
	if err != nil {
		// Distribution may legitimately leave no record (empty vault).
		return c.JSON(http.StatusOK, echo.Map{"distributed": true})
	}
	return c.JSON(http.StatusOK, rec)
}

// Mine: GET /v1/vaults/me.
func (h *VaultHandler) Mine(c echo.Context) error {
	v, err := h.Ctl.VaultOf(c.Request().Context(), middleware.CallerAddress(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, newVaultView(v))
}

// Status: GET /v1/vaults/:owner/status.  Visible to any authenticated
// caller; heirs poll this to learn when a vault becomes claimable.
func (h *VaultHandler) Status(c echo.Context) error {
	st, err := h.Ctl.Status(c.Request().Context(), c.Param("owner"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"owner": c.Param("owner"), "status": st})
}

// AccruedFee: GET /v1/vaults/me/accrued-fee.
func (h *VaultHandler) AccruedFee(c echo.Context) error {
	amount, err := h.Ctl.AccruedFee(c.Request().Context(), middleware.CallerAddress(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"accrued_fee": amount})
}

// TimeToUnlock: GET /v1/vaults/:owner/time-to-unlock.
func (h *VaultHandler) TimeToUnlock(c echo.Context) error {
	ms, err := h.Ctl.TimeToUnlock(c.Request().Context(), c.Param("owner"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"time_to_unlock_ms": ms})
}

// GasEstimate: GET /v1/vaults/gas-estimate?interval_ms=N.  Reports the
// minimum gas deposit and the number of chain hops a heartbeat interval
// implies, so clients can size the transferred amount on create/ping.
func (h *VaultHandler) GasEstimate(c echo.Context) error {
	interval, err := strconv.ParseUint(c.QueryParam("interval_ms"), 10, 64)
	if err != nil || interval == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "interval_ms required"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"min_gas_deposit": fee.MinGasDeposit(interval),
		"callbacks":       fee.NumCallbacks(interval),
		"gas_buffer":      fee.GasBuffer,
	})
}

// AccountBalance: GET /v1/account/balance.  The caller's custodial
// ledger balance, from which vault payments are debited.
func (h *VaultHandler) AccountBalance(c echo.Context) error {
	bal, err := h.Ctl.AccountBalance(c.Request().Context(), middleware.CallerAddress(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"balance": bal})
}
