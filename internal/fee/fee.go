// Package fee implements the protocol fee arithmetic: pro-rata AUM fee
// accrual, gas-deposit sizing for the timer chain, and USD to native
// conversion from the oracle rate.  Results are unsigned 64-bit; the
// accrual intermediates run through 128-bit multiply/divide so no
// balance the tier table permits can wrap them.
package fee

import (
	"math"
	"math/bits"

	"github.com/iliyamo/legacy-vault/internal/tier"
)

const (
	// BpsDenominator converts basis points to a fraction.
	BpsDenominator uint64 = 10_000
	// MsPerYear is the accrual denominator for annual fee rates.
	MsPerYear uint64 = 365 * 24 * 60 * 60 * 1000
	// SubscriptionPeriodMs is the length of one paid subscription period.
	SubscriptionPeriodMs uint64 = MsPerYear
	// MinHeartbeatIntervalMs is the shortest allowed check-in interval.
	MinHeartbeatIntervalMs uint64 = 300_000
	// MaxCallbackSpanMs is the hard ceiling the host scheduler puts on a
	// single callback's lead time.  Intervals longer than this are
	// reached by chaining callbacks.
	MaxCallbackSpanMs uint64 = 6 * 24 * 60 * 60 * 1000
	// MinGasPerCall is the floor each chain hop must carry to execute.
	MinGasPerCall uint64 = 1 * tier.Decimals
	// GasBuffer pads the computed deposit against network fee drift.
	GasBuffer uint64 = 2 * tier.Decimals
	// OracleFee is the flat per-operation fee paid for the rate feed.
	OracleFee uint64 = 10_000_000 // 0.01 coin
)

// AccruedFee computes the AUM fee owed on balance since the last
// collection checkpoint: balance * feeBps * elapsed / (10000 * msPerYear),
// simple interest, rounded down.  The elapsed span is split into whole
// years plus a remainder and each term goes through a 128-bit
// multiply/divide, so the fee is exact and non-decreasing in elapsed
// time for any uint64 balance, including the tier caps.  Truncation to
// zero for tiny balances or short spans is accepted drift.
func AccruedFee(balance, feeBps, lastCollectionMs, nowMs uint64) uint64 {
	if feeBps == 0 || balance == 0 || nowMs <= lastCollectionMs {
		return 0
	}
	elapsed := nowMs - lastCollectionMs
	years := elapsed / MsPerYear
	rem := elapsed % MsPerYear
	perYear := mulDiv(balance, feeBps, BpsDenominator)
	remFee := mulDiv(mulDiv(balance, rem, MsPerYear), feeBps, BpsDenominator)
	return satAdd(satMul(years, perYear), remFee)
}

// mulDiv returns a*b/den through a 128-bit intermediate.  A quotient
// that would not fit in 64 bits saturates instead of panicking; with
// den >= feeBps the accrual terms never reach that branch.
func mulDiv(a, b, den uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	if hi >= den {
		return math.MaxUint64
	}
	q, _ := bits.Div64(hi, lo, den)
	return q
}

func satMul(a, b uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return math.MaxUint64
	}
	return lo
}

func satAdd(a, b uint64) uint64 {
	s := a + b
	if s < a {
		return math.MaxUint64
	}
	return s
}

// NumCallbacks returns how many bounded-span callbacks are needed to
// reach the end of intervalMs: ceil(intervalMs / MaxCallbackSpanMs).
func NumCallbacks(intervalMs uint64) uint64 {
	return (intervalMs + MaxCallbackSpanMs - 1) / MaxCallbackSpanMs
}

// MinGasDeposit is the safety floor for the gas deposit that funds a
// whole timer chain up front.  Callers may supply more, never less.
func MinGasDeposit(intervalMs uint64) uint64 {
	return NumCallbacks(intervalMs)*MinGasPerCall + GasBuffer
}

// USDToNative converts a USD-cent amount to native base units at the
// oracle rate, expressed as USD cents per whole coin.  A zero rate
// yields zero; tier minimums protect against a broken or stale feed.
func USDToNative(usdCents, rateCentsPerCoin uint64) uint64 {
	if rateCentsPerCoin == 0 {
		return 0
	}
	return usdCents * tier.Decimals / rateCentsPerCoin
}
