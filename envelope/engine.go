/*
engine.go - Envelope Reconciliation Engine

PURPOSE:
  The month-by-month fold that reconstructs every envelope's balance:
  rollover in, allocation, transfer adjustments, spend, refunds, and the
  resulting available balance, carried strictly in chronological order.

THE RECURRENCE:
  available[c, m] is a pure function of available[c, m-1] and month-m
  inputs. Months are never skipped: a quiet month still produces an
  EnvelopeState so rollover propagates through it unchanged.

ALLOCATION POLICY (the one subtle rule):
  Past/current months with no explicit budget row fall back to the last
  known explicit allocation for that category, so a mid-month view does
  not show the envelope collapsing to zero before the month's budget
  entry has been recorded. Future months never default from history:
  an unplanned future month should show the gap.

STATE:
  The cross-month mutable state (running allocations, rollovers, the
  live-balance tracker) lives in an explicit fold accumulator owned by
  one Reconcile call. The computation is deterministic and
  single-threaded: each month depends on the previous month's output.

SEE ALSO:
  - livebalance.go: Snapshot-anchored bank balance tracking
  - summary.go: Per-month health aggregation
  - advisor.go: Rebalancing proposals over a month's envelope states
*/
package envelope

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// INPUTS / OUTPUTS
// =============================================================================

// Config is the enumerated-set ledger configuration. All sets are exact
// lookups; no wildcard matching.
type Config struct {
	StartDate             time.Time
	ExpectedMonthlyIncome decimal.Decimal
	IncomeCategories      CategorySet
	HealthExclusions      CategorySet
	UntrackedExclusions   CategorySet
	RecurringCategories   CategorySet
	VariableCategories    CategorySet
}

// Inputs bundles everything one reconciliation run consumes. Supply either
// Raw (normalized internally) or Transactions (already typed); Raw wins
// when both are present.
type Inputs struct {
	Raw          []RawTransaction
	Transactions []Transaction
	Budgets      []BudgetAllocation
	Transfers    []Transfer
	Snapshots    []BalanceSnapshot
	Config       Config

	// Now anchors the past/future month classification. Zero means
	// time.Now().
	Now time.Time
}

// MonthState is the full computed state for one month.
type MonthState struct {
	Month     Month
	Future    bool
	Envelopes map[Category]*EnvelopeState
	Summary   MonthSummary
}

// IncomePoint is one month of an income series.
type IncomePoint struct {
	Month  Month
	Amount decimal.Decimal
}

// Result is an immutable snapshot of a full reconciliation run.
type Result struct {
	Months  []Month
	Current Month
	ByMonth map[Month]*MonthState

	Tracked []Category
	Mapping CategoryMapping

	History            map[Category][]HistoryPoint
	IncomeHistory      []IncomePoint
	OtherIncomeHistory []IncomePoint

	Report NormalizeReport
	Config Config
}

// State returns the computed state for a month in the index.
func (r *Result) State(m Month) (*MonthState, error) {
	st, ok := r.ByMonth[m]
	if !ok {
		return nil, ErrUnknownMonth
	}
	return st, nil
}

// =============================================================================
// FOLD ACCUMULATOR
// =============================================================================

// walkState is the cross-month accumulator. It is created per Reconcile
// call and threaded through the months in order.
type walkState struct {
	lastAllocation map[Category]decimal.Decimal // last explicit budget row seen
	rollovers      map[Category]decimal.Decimal // prior month's available
	live           LiveBalanceTracker
}

func newWalkState() *walkState {
	return &walkState{
		lastAllocation: make(map[Category]decimal.Decimal),
		rollovers:      make(map[Category]decimal.Decimal),
	}
}

// =============================================================================
// RECONCILE
// =============================================================================

// Reconcile runs the full chronological walk and returns the computed
// per-month envelope states, summaries, and history series.
func Reconcile(in Inputs) (*Result, error) {
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	current := MonthOf(now)
	start := MonthOf(in.Config.StartDate)
	if in.Config.StartDate.IsZero() {
		start = Month{} // zero month precedes everything
	}

	for _, tr := range in.Transfers {
		if tr.Amount.IsNegative() {
			return nil, &TransferError{Month: tr.Month, From: tr.From, To: tr.To, Err: ErrNegativeTransfer}
		}
	}

	allTxns := in.Transactions
	mapping := make(CategoryMapping)
	var report NormalizeReport
	if len(in.Raw) > 0 {
		allTxns, mapping, report = Normalize(in.Raw)
	} else {
		for _, tx := range allTxns {
			if tx.Detailed != "" && tx.Primary != "" {
				mapping[tx.Detailed] = tx.Primary
			}
		}
		report = NormalizeReport{Total: len(allTxns), Kept: len(allTxns), ByReason: map[SkipReason]int{}}
	}

	months := BuildMonthIndex(allTxns, in.Budgets, in.Transfers, start, current)
	if len(months) == 0 {
		return nil, ErrNoMonths
	}
	tracked := TrackedCategories(in.Budgets)

	// Pre-group side inputs by month. Budget rows are unique per
	// (month, category); the last snapshot row per month wins.
	budgetsByMonth := make(map[Month]map[Category]decimal.Decimal)
	for _, b := range in.Budgets {
		if budgetsByMonth[b.Month] == nil {
			budgetsByMonth[b.Month] = make(map[Category]decimal.Decimal)
		}
		budgetsByMonth[b.Month][b.Category] = round2(b.Allocated)
	}
	transfersByMonth := make(map[Month][]Transfer)
	for _, t := range in.Transfers {
		transfersByMonth[t.Month] = append(transfersByMonth[t.Month], t)
	}
	snapshotByMonth := make(map[Month]BalanceSnapshot)
	for _, s := range in.Snapshots {
		snapshotByMonth[s.Month] = s
	}

	// Transactions split two ways: the full feed drives bank-balance flow,
	// the start-filtered feed drives envelope and summary aggregation.
	feedByMonth := make(map[Month][]Transaction)
	envByMonth := make(map[Month][]Transaction)
	for _, tx := range allTxns {
		feedByMonth[tx.Month] = append(feedByMonth[tx.Month], tx)
		if !tx.Month.Before(start) {
			envByMonth[tx.Month] = append(envByMonth[tx.Month], tx)
		}
	}

	res := &Result{
		Months:  months,
		Current: current,
		ByMonth: make(map[Month]*MonthState, len(months)),
		Tracked: tracked,
		Mapping: mapping,
		History: make(map[Category][]HistoryPoint, len(tracked)),
		Report:  report,
		Config:  in.Config,
	}

	st := newWalkState()
	for _, m := range months {
		ms := reconcileMonth(m, m.After(current), st, monthInputs{
			budgets:   budgetsByMonth[m],
			transfers: transfersByMonth[m],
			snapshot:  snapshotByMonth[m],
			hasSnap:   hasSnapshot(snapshotByMonth, m),
			feed:      feedByMonth[m],
			envelope:  envByMonth[m],
			tracked:   tracked,
			mapping:   mapping,
			cfg:       in.Config,
			now:       now,
		})
		res.ByMonth[m] = ms

		for _, c := range tracked {
			res.History[c] = append(res.History[c], HistoryPoint{Month: m, Available: ms.Envelopes[c].Available})
		}
		res.IncomeHistory = append(res.IncomeHistory, IncomePoint{Month: m, Amount: ms.Summary.PostedIncome})
		res.OtherIncomeHistory = append(res.OtherIncomeHistory, IncomePoint{Month: m, Amount: ms.Summary.OtherIncome})
	}

	return res, nil
}

func hasSnapshot(snaps map[Month]BalanceSnapshot, m Month) bool {
	_, ok := snaps[m]
	return ok
}

// monthInputs is everything one month's computation needs besides the fold
// accumulator.
type monthInputs struct {
	budgets   map[Category]decimal.Decimal
	transfers []Transfer
	snapshot  BalanceSnapshot
	hasSnap   bool
	feed      []Transaction // full feed, bank flow
	envelope  []Transaction // start-filtered, envelope aggregation
	tracked   []Category
	mapping   CategoryMapping
	cfg       Config
	now       time.Time
}

func reconcileMonth(m Month, future bool, st *walkState, in monthInputs) *MonthState {
	// Snapshot first: a new anchor applies to the month it appears in.
	if in.hasSnap {
		st.live.Observe(in.snapshot)
	}

	// Net flow over the full feed.
	var income, expense decimal.Decimal
	for _, tx := range in.feed {
		if tx.Amount.IsPositive() {
			income = income.Add(tx.Amount)
		} else {
			expense = expense.Add(tx.Amount.Neg())
		}
	}
	netFlow := round2(income.Sub(expense))
	bank := st.live.LiveBalance(netFlow)
	if !future {
		st.live.Advance(netFlow)
	}
	liveState := LiveBalanceState{
		Bank:              bank,
		LastKnown:         st.live.LastKnown,
		LastSnapshotMonth: st.live.LastSnapshotMonth,
		SinceSnapshot:     st.live.SinceSnapshot,
		SnapshotOnRecord:  st.live.SnapshotOnRecord,
	}

	// Transfer adjustments, tracked categories only. Rows touching an
	// untracked category on one side still apply to the tracked side.
	trackedSet := NewCategorySet(in.tracked...)
	tin := make(map[Category]decimal.Decimal)
	tout := make(map[Category]decimal.Decimal)
	for _, tr := range in.transfers {
		amt := round2(tr.Amount)
		if trackedSet.Contains(tr.From) {
			tout[tr.From] = tout[tr.From].Add(amt)
		}
		if trackedSet.Contains(tr.To) {
			tin[tr.To] = tin[tr.To].Add(amt)
		}
	}

	// Spend/refund per tracked category from the start-filtered feed.
	spent := make(map[Category]decimal.Decimal)
	refunds := make(map[Category]decimal.Decimal)
	for _, tx := range in.envelope {
		if !trackedSet.Contains(tx.Detailed) {
			continue
		}
		spent[tx.Detailed] = spent[tx.Detailed].Add(tx.Expense())
		refunds[tx.Detailed] = refunds[tx.Detailed].Add(tx.Refund())
	}

	rolloverIn := decimal.Zero
	for _, c := range in.tracked {
		rolloverIn = rolloverIn.Add(st.rollovers[c])
	}
	rolloverIn = round2(rolloverIn)

	ms := &MonthState{
		Month:     m,
		Future:    future,
		Envelopes: make(map[Category]*EnvelopeState, len(in.tracked)),
	}

	newFunding := decimal.Zero
	for _, cat := range in.tracked {
		explicit := decimal.Zero
		if v, ok := in.budgets[cat]; ok {
			explicit = v
			st.lastAllocation[cat] = v
		}
		newFunding = newFunding.Add(explicit)

		alloc := explicit
		if !future {
			alloc = st.lastAllocation[cat]
		}

		roll := st.rollovers[cat]
		prev := roll
		assigned := round2(alloc.Add(tin[cat]).Sub(tout[cat]))
		budgeted := round2(roll.Add(assigned))
		catSpent := round2(spent[cat])
		catRefunds := round2(refunds[cat])
		available := round2(budgeted.Sub(catSpent).Add(catRefunds))

		es := &EnvelopeState{
			Category:      cat,
			Month:         m,
			RolloverIn:    roll,
			Allocation:    alloc,
			NewAllocation: explicit,
			TransfersIn:   round2(tin[cat]),
			TransfersOut:  round2(tout[cat]),
			Assigned:      assigned,
			TotalBudgeted: budgeted,
			Spent:         catSpent,
			Refunds:       catRefunds,
			Available:     available,
			Recurring:     in.cfg.RecurringCategories.Contains(cat),
			Variable:      in.cfg.VariableCategories.Contains(cat),
			Entries:       envelopeEntries(cat, m, in.transfers, in.envelope),
		}
		if _, seen := st.rollovers[cat]; seen {
			p := prev
			es.PrevAvailable = &p
		}
		es.Coverage = coverageFor(es, m, future, in.cfg, in.now)

		st.rollovers[cat] = available
		ms.Envelopes[cat] = es
	}

	var snapBalance *decimal.Decimal
	if in.hasSnap {
		b := round2(in.snapshot.Balance)
		snapBalance = &b
	}
	ms.Summary = summarize(summaryInputs{
		month:      m,
		future:     future,
		envelopes:  ms.Envelopes,
		feed:       in.feed,
		envelope:   in.envelope,
		tracked:    trackedSet,
		mapping:    in.mapping,
		cfg:        in.cfg,
		live:       liveState,
		snapshot:   snapBalance,
		rolloverIn: rolloverIn,
		newFunding: round2(newFunding),
	})

	return ms
}

// envelopeEntries builds the drill-down activity lines for one envelope:
// transfer lines first (dated by month), then that month's transactions.
func envelopeEntries(cat Category, m Month, transfers []Transfer, txns []Transaction) []LedgerEntry {
	var entries []LedgerEntry
	for _, tr := range transfers {
		switch cat {
		case tr.From:
			entries = append(entries, LedgerEntry{
				Date:        m.String(),
				Description: "To " + string(tr.To),
				Amount:      round2(tr.Amount).Neg(),
				Note:        tr.Note,
			})
		case tr.To:
			entries = append(entries, LedgerEntry{
				Date:        m.String(),
				Description: "From " + string(tr.From),
				Amount:      round2(tr.Amount),
				Note:        tr.Note,
			})
		}
	}
	for _, tx := range txns {
		if tx.Detailed != cat {
			continue
		}
		entries = append(entries, LedgerEntry{
			Date:        tx.Date.Format("2006-01-02"),
			Description: tx.Description,
			Amount:      tx.Amount,
		})
	}
	return entries
}
