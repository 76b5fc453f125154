/*
Package envelope provides the core budget reconciliation engine.

PURPOSE:
  This package contains the types and algorithms for envelope budgeting:
  spending categories with their own running balances, carried forward
  month to month, reconciled against real bank-balance snapshots, and
  projected into not-yet-realized planning months.

KEY CONCEPTS IN THIS FILE (types.go):
  - Transaction: A posted financial event (immutable once normalized)
  - BudgetAllocation: Funds explicitly assigned to an envelope for a month
  - Transfer: A manual move of funds between envelopes within a month
  - BalanceSnapshot: An externally asserted ground-truth bank balance
  - EnvelopeState: The computed state of one envelope for one month

DESIGN PRINCIPLES:
  1. Immutability: Normalized transactions are never mutated by the engine
  2. Precision: Uses decimal.Decimal to avoid floating-point drift
  3. Determinism: Reconciling the same inputs twice is bit-identical
  4. Explicit state: The month walk uses a fold accumulator, never globals

ROUNDING POLICY:
  Every monetary value is rounded to 2 decimal places (half away from
  zero) at each accumulation boundary. The policy is fixed so repeated
  runs are stable across many months of rollover.

SEE ALSO:
  - engine.go: The month-by-month reconciliation fold
  - summary.go: Per-month health and coverage aggregation
  - advisor.go: Greedy rebalancing proposals
*/
package envelope

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Decimal helpers shared across the package
// =============================================================================

// Tolerance below which a balance is treated as zero. All "underfunded" and
// "surplus" classifications use this cent-level threshold.
var Tolerance = decimal.New(1, -2) // 0.01

// round2 applies the package rounding policy: 2 decimals, half away from zero.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func isPositive(d decimal.Decimal) bool { return d.GreaterThan(Tolerance) }
func isNegative(d decimal.Decimal) bool { return d.LessThan(Tolerance.Neg()) }

// =============================================================================
// CATEGORIES
// =============================================================================

// Category is a spending category label. Detailed categories name envelopes;
// primary categories group them for display.
type Category string

// CategoryMapping resolves a detailed category to its primary (group)
// category, derived from the most recent transaction observed for that
// detailed category. Used only for grouping and exclusion checks.
type CategoryMapping map[Category]Category

// Primary returns the group category for a detailed category, or fallback
// when the mapping has never seen it.
func (cm CategoryMapping) Primary(detailed Category, fallback Category) Category {
	if p, ok := cm[detailed]; ok && p != "" {
		return p
	}
	return fallback
}

// CategorySet is an enumerated configuration set. No pattern matching:
// membership is an exact lookup.
type CategorySet map[Category]struct{}

func NewCategorySet(cats ...Category) CategorySet {
	s := make(CategorySet, len(cats))
	for _, c := range cats {
		s[c] = struct{}{}
	}
	return s
}

func (s CategorySet) Contains(c Category) bool {
	_, ok := s[c]
	return ok
}

// =============================================================================
// TRANSACTION - One posted financial event
// =============================================================================

// RawTransaction is a transaction record as supplied by an external
// collaborator, before normalization. Fields are permissive on purpose:
// malformed rows are excluded and counted, never fatal.
type RawTransaction struct {
	PostedDate     string // e.g. "2025-11-03"; empty falls back to AuthorizedDate
	AuthorizedDate string
	Amount         string // currency formatted, e.g. "-$1,234.56"
	Status         string // only "posted" rows participate
	Description    string
	Detailed       Category
	Primary        Category
}

// Transaction is a normalized posted transaction. Negative amount = expense.
type Transaction struct {
	Date        time.Time
	Month       Month
	Amount      decimal.Decimal
	Description string
	Detailed    Category
	Primary     Category
}

// Expense returns max(0, -amount).
func (t Transaction) Expense() decimal.Decimal {
	if t.Amount.IsNegative() {
		return t.Amount.Neg()
	}
	return decimal.Zero
}

// Refund returns max(0, amount).
func (t Transaction) Refund() decimal.Decimal {
	if t.Amount.IsPositive() {
		return t.Amount
	}
	return decimal.Zero
}

// =============================================================================
// SIDE INPUTS - Budgets, transfers, snapshots
// =============================================================================

// BudgetAllocation is the amount a user explicitly assigned to an envelope
// for a month. Unique per (month, category).
type BudgetAllocation struct {
	Month     Month
	Category  Category
	Allocated decimal.Decimal
}

// Transfer moves funds between envelopes within a month. Amount is
// non-negative; direction is encoded by From/To.
type Transfer struct {
	Month  Month
	From   Category
	To     Category
	Amount decimal.Decimal
	Note   string
}

// BalanceSnapshot is an externally asserted bank balance as of a point in
// that month. Sparse: most months have none.
type BalanceSnapshot struct {
	Month   Month
	Balance decimal.Decimal
}

// =============================================================================
// ENVELOPE STATE - The central invariant-bearing entity
// =============================================================================

// EnvelopeState is the computed state of one (category, month) pair.
//
// The recurrence, evaluated strictly in month order:
//
//	assigned       = allocation + transfers_in - transfers_out
//	total_budgeted = rollover_in + assigned
//	available      = total_budgeted - spent + refunds
//
// available feeds the next month's rollover_in.
type EnvelopeState struct {
	Category Category
	Month    Month

	RolloverIn    decimal.Decimal
	Allocation    decimal.Decimal // effective allocation used in the recurrence
	NewAllocation decimal.Decimal // explicit allocation row this month (zero if absent)
	TransfersIn   decimal.Decimal
	TransfersOut  decimal.Decimal
	Assigned      decimal.Decimal
	TotalBudgeted decimal.Decimal
	Spent         decimal.Decimal
	Refunds       decimal.Decimal
	Available     decimal.Decimal

	// PrevAvailable is last month's closing balance, nil for the first month
	// an envelope appears. Exposed for month-over-month display.
	PrevAvailable *decimal.Decimal

	Recurring bool
	Variable  bool

	// Coverage is the spend-pace reading for variable envelopes in the
	// current month; nil otherwise (and whenever budgeted is not positive,
	// so no ratio ever divides by zero).
	Coverage *Coverage

	// Entries is the per-envelope activity this month: transfers in/out and
	// matching transactions, for drill-down display.
	Entries []LedgerEntry
}

// LedgerEntry is one line of envelope activity within a month.
type LedgerEntry struct {
	Date        string
	Description string
	Amount      decimal.Decimal
	Note        string
}

// HistoryPoint is one month of an envelope's closing balance, for trend
// series across the full walk.
type HistoryPoint struct {
	Month     Month
	Available decimal.Decimal
}
