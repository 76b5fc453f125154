/*
summary.go - Health & Coverage Aggregator

PURPOSE:
  Derives per-month summary metrics from the envelope states: surplus,
  shortfall, uncategorized spend, and income received vs. expected.

SURPLUS SUBTLETY:
  For future (planning) months an envelope's surplus only counts the
  portion coming from rollover, not from newly planned allocation -
  otherwise unallocated income would be double-counted as both
  unassigned and envelope surplus. Past months never subtract it.

EXCLUSION SETS:
  A category is excluded from health totals when either its detailed
  name or its mapped primary group is in the health-exclusion set.
  Uncategorized spend skips the untracked-exclusion set (internal
  transfers, credit-card payment postings): present in the raw feed,
  not budget-worthy.
*/
package envelope

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONTH SUMMARY
// =============================================================================

// CategoryAmount is an amount attributed to one category.
type CategoryAmount struct {
	Category Category
	Amount   decimal.Decimal
}

// MonthSummary aggregates over all envelope states for a month.
type MonthSummary struct {
	// Health totals, excluded categories removed.
	Surplus   decimal.Decimal // "health-positive" sum
	Shortfall decimal.Decimal // absolute sum of negative balances
	NetHealth decimal.Decimal // Surplus - Shortfall

	NewFunding     decimal.Decimal // explicit allocations this month
	TotalEnveloped decimal.Decimal // sum of ALL available balances, no exclusions
	RolloverIn     decimal.Decimal // total rolling into this month

	// Uncategorized spend: untracked, non-excluded expense.
	UncategorizedSpend decimal.Decimal
	UncategorizedBy    []CategoryAmount // descending by amount

	// Income.
	PostedIncome   decimal.Decimal
	OtherIncome    decimal.Decimal
	ExpectedIncome decimal.Decimal

	// Snapshot-anchored bank estimate for this month.
	Live LiveBalanceState

	// SnapshotBalance is the raw snapshot asserted in this month, when one
	// exists.
	SnapshotBalance *decimal.Decimal
}

// UnassignedCash is the bank estimate minus everything sitting in
// envelopes: cash outside the system (negative means over-allocated).
func (s MonthSummary) UnassignedCash() decimal.Decimal {
	return round2(s.Live.Bank.Sub(s.TotalEnveloped))
}

// ProjectedUnassigned is the planning-month estimate of free cash after all
// obligations: current balance plus expected income, minus rollovers and new
// allocations.
func (s MonthSummary) ProjectedUnassigned() decimal.Decimal {
	current := s.Live.LastKnown.Add(s.Live.SinceSnapshot)
	spokenFor := s.RolloverIn.Add(s.NewFunding)
	return round2(current.Add(s.ExpectedIncome).Sub(spokenFor))
}

// =============================================================================
// COVERAGE - Spend pace for variable envelopes
// =============================================================================

// Pace classifies spend rate against elapsed fraction of the month.
type Pace string

const (
	PaceOnTrack Pace = "on_track"
	PaceAhead   Pace = "ahead" // spending faster than the month is passing
	PaceOver    Pace = "over"  // more than 15 points past elapsed
)

// Coverage is the current-month spend-pace reading for a variable envelope.
type Coverage struct {
	SpentRatio   float64 // spent / total budgeted
	MonthElapsed float64 // elapsed fraction of the month
	Pace         Pace
	ProjectedEOM decimal.Decimal // budgeted minus projected end-of-month spend
}

// paceOverMargin is how far past the elapsed fraction spend may run before
// the envelope is flagged as over.
const paceOverMargin = 0.15

// coverageFor computes coverage for an envelope, or nil when it does not
// apply: non-variable categories, non-current months, or a budget that is
// not positive (the divide-by-zero sentinel is "no reading").
func coverageFor(es *EnvelopeState, m Month, future bool, cfg Config, now time.Time) *Coverage {
	if future || !es.Variable || m != MonthOf(now) {
		return nil
	}
	if !es.TotalBudgeted.IsPositive() {
		return nil
	}
	budgeted, _ := es.TotalBudgeted.Float64()
	spentF, _ := es.Spent.Float64()
	ratio := spentF / budgeted
	elapsed := m.ElapsedFraction(now)

	pace := PaceOnTrack
	switch {
	case ratio > elapsed+paceOverMargin:
		pace = PaceOver
	case ratio > elapsed:
		pace = PaceAhead
	}

	projected := es.Spent
	if elapsed > 0 {
		projected = decimal.NewFromFloat(spentF / elapsed)
	}
	return &Coverage{
		SpentRatio:   ratio,
		MonthElapsed: elapsed,
		Pace:         pace,
		ProjectedEOM: round2(es.TotalBudgeted.Sub(projected)),
	}
}

// =============================================================================
// AGGREGATION
// =============================================================================

type summaryInputs struct {
	month      Month
	future     bool
	envelopes  map[Category]*EnvelopeState
	feed       []Transaction // full feed (income, bank flow)
	envelope   []Transaction // start-filtered (uncategorized spend)
	tracked    CategorySet
	mapping    CategoryMapping
	cfg        Config
	live       LiveBalanceState
	snapshot   *decimal.Decimal
	rolloverIn decimal.Decimal
	newFunding decimal.Decimal
}

func summarize(in summaryInputs) MonthSummary {
	s := MonthSummary{
		NewFunding:      in.newFunding,
		RolloverIn:      in.rolloverIn,
		ExpectedIncome:  in.cfg.ExpectedMonthlyIncome,
		Live:            in.live,
		SnapshotBalance: in.snapshot,
	}

	excluded := func(detailed Category) bool {
		if in.cfg.HealthExclusions.Contains(detailed) {
			return true
		}
		primary := in.mapping.Primary(detailed, "General")
		return in.cfg.HealthExclusions.Contains(primary)
	}

	surplus, shortfall, enveloped := decimal.Zero, decimal.Zero, decimal.Zero
	for cat, es := range in.envelopes {
		enveloped = enveloped.Add(es.Available)
		if excluded(cat) {
			continue
		}
		switch {
		case isNegative(es.Available):
			shortfall = shortfall.Add(es.Available.Abs())
		case in.future:
			// Planning months: only rollover-sourced surplus counts.
			carried := round2(es.Available.Sub(es.NewAllocation))
			if isPositive(carried) {
				surplus = surplus.Add(carried)
			}
		case isPositive(es.Available):
			surplus = surplus.Add(es.Available)
		}
	}
	s.Surplus = round2(surplus)
	s.Shortfall = round2(shortfall)
	s.NetHealth = round2(surplus.Sub(shortfall))
	s.TotalEnveloped = round2(enveloped)

	s.UncategorizedSpend, s.UncategorizedBy = uncategorizedSpend(in.envelope, in.tracked, in.cfg.UntrackedExclusions)
	s.PostedIncome, s.OtherIncome = splitIncome(in.feed, in.cfg)

	return s
}

// uncategorizedSpend totals expenses whose detailed category is untracked
// and neither its detailed nor primary category is in the untracked
// exclusion set.
func uncategorizedSpend(txns []Transaction, tracked CategorySet, untrackedExcl CategorySet) (decimal.Decimal, []CategoryAmount) {
	total := decimal.Zero
	byCat := make(map[Category]decimal.Decimal)
	for _, tx := range txns {
		exp := tx.Expense()
		if !exp.IsPositive() {
			continue
		}
		if tracked.Contains(tx.Detailed) {
			continue
		}
		if untrackedExcl.Contains(tx.Detailed) || untrackedExcl.Contains(tx.Primary) {
			continue
		}
		total = total.Add(exp)
		byCat[tx.Detailed] = byCat[tx.Detailed].Add(exp)
	}

	breakdown := make([]CategoryAmount, 0, len(byCat))
	for c, amt := range byCat {
		breakdown = append(breakdown, CategoryAmount{Category: c, Amount: round2(amt)})
	}
	sort.Slice(breakdown, func(i, j int) bool {
		if !breakdown[i].Amount.Equal(breakdown[j].Amount) {
			return breakdown[i].Amount.GreaterThan(breakdown[j].Amount)
		}
		return breakdown[i].Category < breakdown[j].Category
	})
	return round2(total), breakdown
}

// splitIncome partitions positive transactions into posted income (matching
// the configured income categories) and other income (positive, not income,
// not in the untracked exclusion set). With no income categories configured,
// all positive amounts count as posted income.
func splitIncome(txns []Transaction, cfg Config) (posted, other decimal.Decimal) {
	if len(cfg.IncomeCategories) == 0 {
		for _, tx := range txns {
			if tx.Amount.IsPositive() {
				posted = posted.Add(tx.Amount)
			}
		}
		return round2(posted), decimal.Zero
	}

	for _, tx := range txns {
		if !tx.Amount.IsPositive() {
			continue
		}
		isIncome := cfg.IncomeCategories.Contains(tx.Detailed) || cfg.IncomeCategories.Contains(tx.Primary)
		if isIncome {
			posted = posted.Add(tx.Amount)
			continue
		}
		inExcluded := cfg.UntrackedExclusions.Contains(tx.Detailed) || cfg.UntrackedExclusions.Contains(tx.Primary)
		if !inExcluded {
			other = other.Add(tx.Amount)
		}
	}
	return round2(posted), round2(other)
}
