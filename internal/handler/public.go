package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/legacy-vault/internal/lifecycle"
	"github.com/iliyamo/legacy-vault/internal/model"
	"github.com/iliyamo/legacy-vault/internal/tier"
)

// PublicHandler serves unauthenticated, cacheable reads: the tier
// parameter table, the current oracle rate and per-tier pricing.
type PublicHandler struct {
	Ctl *lifecycle.Controller
}

func NewPublicHandler(ctl *lifecycle.Controller) *PublicHandler {
	return &PublicHandler{Ctl: ctl}
}

type tierView struct {
	Name                      string `json:"name"`
	SubscriptionPriceUSDCents uint64 `json:"subscription_price_usd_cents"`
	MinSubscriptionNative     uint64 `json:"min_subscription_native"`
	AUMFeeBps                 uint64 `json:"aum_fee_bps"`
	MaxBalance                uint64 `json:"max_balance"`
	MaxHeirs                  int    `json:"max_heirs"`
	MaxPayloadBytes           int    `json:"max_payload_bytes"`
}

// Tiers: GET /v1/tiers.
func (h *PublicHandler) Tiers(c echo.Context) error {
	all := []model.Tier{model.TierFree, model.TierLight, model.TierPro, model.TierLegate}
	out := make([]tierView, 0, len(all))
	for _, t := range all {
		p, err := tier.Lookup(t)
		if err != nil {
			return fail(c, err)
		}
		out = append(out, tierView{
			Name:                      t.String(),
			SubscriptionPriceUSDCents: p.SubscriptionPriceUSDCents,
			MinSubscriptionNative:     p.MinSubscriptionNative,
			AUMFeeBps:                 p.AUMFeeBps,
			MaxBalance:                p.MaxBalance,
			MaxHeirs:                  p.MaxHeirs,
			MaxPayloadBytes:           p.MaxPayloadBytes,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"tiers": out})
}

// Rate: GET /v1/rate.  Current oracle exchange rate in cents per coin.
func (h *PublicHandler) Rate(c echo.Context) error {
	rate, err := h.Ctl.Rate(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"rate_cents_per_coin": rate})
}

// Price: GET /v1/tiers/:tier/price.  The annual subscription priced in
// native base units at the current oracle rate.
func (h *PublicHandler) Price(c echo.Context) error {
	t, ok := model.ParseTier(c.Param("tier"))
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown tier"})
	}
	price, err := h.Ctl.SubscriptionPrice(c.Request().Context(), t)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"tier": t.String(), "price_native": price})
}
