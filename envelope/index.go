package envelope

import "sort"

// =============================================================================
// MONTH INDEX - The ordered set of months the walk evaluates
// =============================================================================

// BuildMonthIndex returns the distinct, ascending months the reconciliation
// walk must visit: every month referenced by a transaction at/after the
// ledger start, a budget row, or a transfer row, plus the current calendar
// month. A future month with only a budget row still appears, so rollover
// and projections stay well-defined.
func BuildMonthIndex(txns []Transaction, budgets []BudgetAllocation, transfers []Transfer, start Month, current Month) []Month {
	seen := map[Month]struct{}{current: {}}

	for _, tx := range txns {
		if tx.Month.Before(start) {
			continue
		}
		seen[tx.Month] = struct{}{}
	}
	for _, b := range budgets {
		seen[b.Month] = struct{}{}
	}
	for _, t := range transfers {
		seen[t.Month] = struct{}{}
	}

	months := make([]Month, 0, len(seen))
	for m := range seen {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })
	return months
}

// TrackedCategories derives the tracked envelope set from budget rows:
// category existence is determined by explicit budget allocations, never by
// the presence of a transfer or transaction.
func TrackedCategories(budgets []BudgetAllocation) []Category {
	seen := map[Category]struct{}{}
	for _, b := range budgets {
		seen[b.Category] = struct{}{}
	}
	cats := make([]Category, 0, len(seen))
	for c := range seen {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })
	return cats
}
