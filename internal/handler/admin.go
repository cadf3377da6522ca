package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/legacy-vault/internal/lifecycle"
)

// AdminHandler exposes the operator surface: the oracle exchange rate,
// ledger account funding and withdrawals from the revenue and
// gas-excess pools.  Routes using it sit behind RequireRole; rate
// updates additionally accept ORACLE.
type AdminHandler struct {
	Ctl *lifecycle.Controller
}

func NewAdminHandler(ctl *lifecycle.Controller) *AdminHandler {
	return &AdminHandler{Ctl: ctl}
}

type rateReq struct {
	RateCentsPerCoin uint64 `json:"rate_cents_per_coin"`
}
type withdrawReq struct {
	Amount uint64 `json:"amount"`
}
type fundReq struct {
	Address string `json:"address"`
	Amount  uint64 `json:"amount"`
}

// SetRate: PUT /v1/admin/rate.
func (h *AdminHandler) SetRate(c echo.Context) error {
	var req rateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := h.Ctl.SetRate(c.Request().Context(), req.RateCentsPerCoin); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"rate_cents_per_coin": req.RateCentsPerCoin})
}

// WithdrawRevenue: POST /v1/admin/withdrawals/revenue.  Moves funds
// from the revenue pool to the admin ledger account.
func (h *AdminHandler) WithdrawRevenue(c echo.Context) error {
	var req withdrawReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := h.Ctl.WithdrawRevenue(c.Request().Context(), req.Amount); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"withdrawn": req.Amount})
}

// WithdrawGasExcess: POST /v1/admin/withdrawals/gas-excess.  Gas that
// outlived its timer chain is operator revenue, never refunded.
func (h *AdminHandler) WithdrawGasExcess(c echo.Context) error {
	var req withdrawReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := h.Ctl.WithdrawGasExcess(c.Request().Context(), req.Amount); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"withdrawn": req.Amount})
}

// FundAccount: POST /v1/admin/accounts/credit.  Records a confirmed
// inbound transfer against an address's ledger account.  This is the
// only way coins enter the custodial ledger, so it stays behind the
// ADMIN role.
func (h *AdminHandler) FundAccount(c echo.Context) error {
	var req fundReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Address == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "address is required"})
	}
	balance, err := h.Ctl.FundAccount(c.Request().Context(), req.Address, req.Amount)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"address": req.Address,
		"balance": balance,
	})
}

// Totals: GET /v1/admin/totals.  Pool balances and the lifetime AUM fee
// counter.
func (h *AdminHandler) Totals(c echo.Context) error {
	revenue, aumFees, gasExcess, err := h.Ctl.Totals(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"revenue":    revenue,
		"aum_fees":   aumFees,
		"gas_excess": gasExcess,
	})
}
