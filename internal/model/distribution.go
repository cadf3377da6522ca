package model

// DistributionRecord is written exactly once per vault lifetime, at the
// moment the balance is paid out to the heirs.  Voluntary deactivation
// (owner reclaims the funds) writes no record; the presence of a record
// therefore distinguishes "heirs inherited" from "owner reclaimed".
//
// Fields:
//  Owner         – vault owner whose balance was distributed.
//  Total         – amount split across heirs (balance after the final fee).
//  PerHeirShare  – Total / HeirCount, rounded down.
//  HeirCount     – number of heirs paid.
//  FeeCollected  – final AUM fee taken out of the balance.
//  DistributedAt – Unix milliseconds of the distribution.
type DistributionRecord struct {
	Owner         string `json:"owner"`
	Total         uint64 `json:"total"`
	PerHeirShare  uint64 `json:"per_heir_share"`
	HeirCount     int    `json:"heir_count"`
	FeeCollected  uint64 `json:"fee_collected"`
	DistributedAt uint64 `json:"distributed_at_ms"`
}

// Payout is one heir's share of a distribution.  The slice order follows
// the vault's heir list; the integer remainder of the split goes to the
// first entry so the tie-break is deterministic.
type Payout struct {
	Address string
	Amount  uint64
}

// TimerEntry links an owner to the scheduled-callback handle of the
// pending timer chain hop.  A row exists iff a wake-up is pending.
//
// Fields:
//  Owner    – vault owner the callback belongs to.
//  Handle   – opaque handle returned by the scheduling primitive.
//  TargetMs – wake time the callback was registered for.
type TimerEntry struct {
	Owner    string
	Handle   string
	TargetMs uint64
}
