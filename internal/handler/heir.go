package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/legacy-vault/internal/lifecycle"
	"github.com/iliyamo/legacy-vault/internal/middleware"
)

// HeirHandler serves the heir-side discovery endpoints: which vaults
// name the caller as heir, and which distributions have already paid
// out to them.
type HeirHandler struct {
	Ctl *lifecycle.Controller
}

func NewHeirHandler(ctl *lifecycle.Controller) *HeirHandler {
	return &HeirHandler{Ctl: ctl}
}

// Vaults: GET /v1/heir/vaults.  Owners of every live vault that lists
// the caller as an heir, each with its current status so the client can
// tell claimable vaults apart from waiting ones.
func (h *HeirHandler) Vaults(c echo.Context) error {
	ctx := c.Request().Context()
	owners, err := h.Ctl.VaultsForHeir(ctx, middleware.CallerAddress(c))
	if err != nil {
		return fail(c, err)
	}
	type entry struct {
		Owner  string `json:"owner"`
		Status string `json:"status"`
	}
	out := make([]entry, 0, len(owners))
	for _, owner := range owners {
		st, err := h.Ctl.Status(ctx, owner)
		if err != nil {
			return fail(c, err)
		}
		out = append(out, entry{Owner: owner, Status: string(st)})
	}
	return c.JSON(http.StatusOK, echo.Map{"vaults": out})
}

// Distributions: GET /v1/heir/distributions.  Owners whose vaults have
// already distributed to the caller.
func (h *HeirHandler) Distributions(c echo.Context) error {
	owners, err := h.Ctl.DistributionsForHeir(c.Request().Context(), middleware.CallerAddress(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"owners": owners})
}

// Distribution: GET /v1/distributions/:owner.  The settlement record of
// a distributed vault.
func (h *HeirHandler) Distribution(c echo.Context) error {
	rec, err := h.Ctl.Distribution(c.Request().Context(), c.Param("owner"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, rec)
}
