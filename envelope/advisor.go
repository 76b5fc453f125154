/*
advisor.go - Rebalancing Advisor

PURPOSE:
  Proposes transfers that move surplus from overfunded envelopes into
  underfunded ones. Greedy bipartite matching: largest need drawn from
  largest surplus first, a deliberate simplicity choice over an exact
  min-cost transportation solve.

ADVISORY ONLY:
  Proposals never mutate ledger state. Applying one is the job of an
  external collaborator that appends a Transfer row and re-runs
  reconciliation.
*/
package envelope

import (
	"sort"

	"github.com/shopspring/decimal"
)

// ProposedTransfer is one advisor suggestion for a month.
type ProposedTransfer struct {
	Month  Month
	From   Category
	To     Category
	Amount decimal.Decimal
	Note   string
}

// AsTransfer converts a proposal into an appendable Transfer row.
func (p ProposedTransfer) AsTransfer() Transfer {
	return Transfer{Month: p.Month, From: p.From, To: p.To, Amount: p.Amount, Note: p.Note}
}

const adviseNote = "smart rebalance"

// Advise proposes transfers curing a month's deficits from its surpluses.
// Health-excluded and recurring envelopes sit out on both sides. Underfunded
// envelopes are served largest need first; surplus envelopes are drained
// largest first and may fund several envelopes until depleted. Returns nil
// when either side is empty.
func Advise(ms *MonthState, mapping CategoryMapping, cfg Config) []ProposedTransfer {
	type need struct {
		cat    Category
		amount decimal.Decimal
	}

	skip := func(cat Category) bool {
		if cfg.RecurringCategories.Contains(cat) || cfg.HealthExclusions.Contains(cat) {
			return true
		}
		return cfg.HealthExclusions.Contains(mapping.Primary(cat, "General"))
	}

	var underfunded, surplus []need
	for cat, es := range ms.Envelopes {
		if skip(cat) {
			continue
		}
		switch {
		case isNegative(es.Available):
			underfunded = append(underfunded, need{cat: cat, amount: es.Available.Abs()})
		case isPositive(es.Available):
			surplus = append(surplus, need{cat: cat, amount: es.Available})
		}
	}
	if len(underfunded) == 0 || len(surplus) == 0 {
		return nil
	}

	byAmountDesc := func(s []need) {
		sort.Slice(s, func(i, j int) bool {
			if !s[i].amount.Equal(s[j].amount) {
				return s[i].amount.GreaterThan(s[j].amount)
			}
			return s[i].cat < s[j].cat
		})
	}
	byAmountDesc(underfunded)
	byAmountDesc(surplus)

	var moves []ProposedTransfer
	for _, u := range underfunded {
		remaining := u.amount
		for i := range surplus {
			if !isPositive(surplus[i].amount) || !isPositive(remaining) {
				continue
			}
			move := round2(decimal.Min(surplus[i].amount, remaining))
			moves = append(moves, ProposedTransfer{
				Month:  ms.Month,
				From:   surplus[i].cat,
				To:     u.cat,
				Amount: move,
				Note:   adviseNote,
			})
			surplus[i].amount = surplus[i].amount.Sub(move)
			remaining = remaining.Sub(move)
			if !isPositive(remaining) {
				break
			}
		}
	}
	return moves
}
