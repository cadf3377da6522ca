// Package tier holds the static per-tier parameter table.  It is a pure
// lookup with no state; every other component that needs pricing, fee
// rates or structural limits goes through Lookup so the numbers live in
// exactly one place.
package tier

import (
	"errors"

	"github.com/iliyamo/legacy-vault/internal/model"
)

// Decimals is the number of base units in one native coin.
const Decimals uint64 = 1_000_000_000

// ErrInvalidTier is returned when a tier value outside the defined enum
// reaches the lookup.  Callers should reject the request at the boundary.
var ErrInvalidTier = errors.New("invalid tier")

// Params bundles every tier-dependent number.
//
// Fields:
//  SubscriptionPriceUSDCents – annual subscription price in USD cents.
//  MinSubscriptionNative     – floor for the native-coin payment, a guard
//                              against stale or manipulated oracle rates.
//  AUMFeeBps                 – annual assets-under-management fee in
//                              basis points (100 bps = 1%).
//  MaxBalance                – cap on the vault balance in base units.
//  MaxHeirs                  – cap on the heir list length.
//  MaxPayloadBytes           – cap on the owner-supplied payload size.
type Params struct {
	SubscriptionPriceUSDCents uint64
	MinSubscriptionNative     uint64
	AUMFeeBps                 uint64
	MaxBalance                uint64
	MaxHeirs                  int
	MaxPayloadBytes           int
}

var table = map[model.Tier]Params{
	model.TierFree: {
		SubscriptionPriceUSDCents: 0,
		MinSubscriptionNative:     0,
		AUMFeeBps:                 0,
		MaxBalance:                10_000 * Decimals,
		MaxHeirs:                  1,
		MaxPayloadBytes:           25,
	},
	model.TierLight: {
		SubscriptionPriceUSDCents: 999, // $9.99
		MinSubscriptionNative:     1_000 * Decimals,
		AUMFeeBps:                 200, // 2% annual
		MaxBalance:                200_000 * Decimals,
		MaxHeirs:                  3,
		MaxPayloadBytes:           1024,
	},
	model.TierPro: {
		SubscriptionPriceUSDCents: 2999, // $29.99
		MinSubscriptionNative:     3_000 * Decimals,
		AUMFeeBps:                 100, // 1% annual
		MaxBalance:                2_000_000 * Decimals,
		MaxHeirs:                  10,
		MaxPayloadBytes:           2048,
	},
	model.TierLegate: {
		SubscriptionPriceUSDCents: 8999, // $89.99
		MinSubscriptionNative:     9_000 * Decimals,
		AUMFeeBps:                 50, // 0.5% annual
		MaxBalance:                ^uint64(0),
		MaxHeirs:                  255,
		MaxPayloadBytes:           5120,
	},
}

// Lookup returns the parameter set for the given tier, or ErrInvalidTier
// when the value is outside the enum.
func Lookup(t model.Tier) (Params, error) {
	p, ok := table[t]
	if !ok {
		return Params{}, ErrInvalidTier
	}
	return p, nil
}
