/*
livebalance.go - Snapshot Reconciler

PURPOSE:
  Anchors a running "live bank balance" estimate to externally supplied
  balance snapshots. Whenever a snapshot exists for a month it becomes
  the new anchor and the since-snapshot accumulator resets; otherwise
  past/current months accumulate their net transaction flow. The state
  is carried across the full chronological walk, never recomputed
  independently per month.

NO-SNAPSHOT CASE:
  With no snapshot ever observed the series is still produced, anchored
  at 0, and SnapshotOnRecord stays false so consumers can flag it
  instead of trusting a fabricated number.
*/
package envelope

import "github.com/shopspring/decimal"

// LiveBalanceTracker is the snapshot-anchored accumulator carried through
// the month walk. The zero value is ready to use (anchor 0, nothing seen).
type LiveBalanceTracker struct {
	LastKnown         decimal.Decimal
	LastSnapshotMonth Month
	SinceSnapshot     decimal.Decimal
	SnapshotOnRecord  bool
}

// Observe re-anchors the tracker at a snapshot: the balance becomes the new
// anchor and the since-snapshot accumulator resets to zero.
func (t *LiveBalanceTracker) Observe(snap BalanceSnapshot) {
	t.LastKnown = round2(snap.Balance)
	t.LastSnapshotMonth = snap.Month
	t.SinceSnapshot = decimal.Zero
	t.SnapshotOnRecord = true
}

// Advance adds a month's net transaction flow (income - expense) to the
// since-snapshot accumulator. Future months carry no real flow and must not
// be advanced.
func (t *LiveBalanceTracker) Advance(netFlow decimal.Decimal) {
	t.SinceSnapshot = round2(t.SinceSnapshot.Add(round2(netFlow)))
}

// LiveBalance estimates the bank balance given a month's net flow:
// the last anchor plus that month's flow.
func (t *LiveBalanceTracker) LiveBalance(monthNetFlow decimal.Decimal) decimal.Decimal {
	return round2(t.LastKnown.Add(monthNetFlow))
}

// CurrentBalance is the anchor plus everything accumulated since it:
// the best estimate of the balance entering a planning month.
func (t *LiveBalanceTracker) CurrentBalance() decimal.Decimal {
	return round2(t.LastKnown.Add(t.SinceSnapshot))
}

// LiveBalanceState is the tracker's value for one month, recorded on the
// month's summary for projection use downstream.
type LiveBalanceState struct {
	Bank              decimal.Decimal // live estimate for the month
	LastKnown         decimal.Decimal
	LastSnapshotMonth Month
	SinceSnapshot     decimal.Decimal
	SnapshotOnRecord  bool
}
