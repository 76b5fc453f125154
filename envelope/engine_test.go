package envelope_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triage/envelope-engine/envelope"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func month(s string) envelope.Month {
	m, err := envelope.ParseMonth(s)
	if err != nil {
		panic(err)
	}
	return m
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func txn(date, amount string, detailed, primary envelope.Category) envelope.Transaction {
	d := day(date)
	return envelope.Transaction{
		Date:     d,
		Month:    envelope.MonthOf(d),
		Amount:   money(amount),
		Detailed: detailed,
		Primary:  primary,
	}
}

func alloc(m, amount string, cat envelope.Category) envelope.BudgetAllocation {
	return envelope.BudgetAllocation{Month: month(m), Category: cat, Allocated: money(amount)}
}

func transfer(m string, from, to envelope.Category, amount string) envelope.Transfer {
	return envelope.Transfer{Month: month(m), From: from, To: to, Amount: money(amount)}
}

func testConfig() envelope.Config {
	return envelope.Config{
		StartDate:             day("2025-01-01"),
		ExpectedMonthlyIncome: money("5000"),
		IncomeCategories:      envelope.NewCategorySet("Wages"),
		HealthExclusions:      envelope.NewCategorySet("Travel"),
		UntrackedExclusions:   envelope.NewCategorySet("Transfers", "Credit card payments"),
		RecurringCategories:   envelope.NewCategorySet("Rent"),
		VariableCategories:    envelope.NewCategorySet("Groceries"),
	}
}

func requireMoney(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	require.True(t, money(want).Equal(got), "want %s, got %s %v", want, got, msgAndArgs)
}

func mustState(t *testing.T, res *envelope.Result, m string) *envelope.MonthState {
	t.Helper()
	ms, err := res.State(month(m))
	require.NoError(t, err)
	return ms
}

// =============================================================================
// END-TO-END RECURRENCE
// =============================================================================

func TestReconcile_GroceriesRollover_TwoMonths(t *testing.T) {
	// GIVEN: Groceries allocated 300 in November, 250 spent; December has
	//        no budget row and 310 spent
	// WHEN:  Reconciling with December as the current month
	// THEN:  November closes at 50; December defaults the allocation to 300,
	//        rolls 50 in, and closes at 40

	res, err := envelope.Reconcile(envelope.Inputs{
		Transactions: []envelope.Transaction{
			txn("2025-11-08", "-250.00", "Groceries", "Food"),
			txn("2025-12-09", "-310.00", "Groceries", "Food"),
		},
		Budgets: []envelope.BudgetAllocation{alloc("2025-11", "300", "Groceries")},
		Config:  testConfig(),
		Now:     day("2025-12-20"),
	})
	require.NoError(t, err)

	nov := mustState(t, res, "2025-11").Envelopes["Groceries"]
	requireMoney(t, "300", nov.Allocation)
	requireMoney(t, "250", nov.Spent)
	requireMoney(t, "50", nov.Available)

	dec := mustState(t, res, "2025-12").Envelopes["Groceries"]
	requireMoney(t, "300", dec.Allocation, "past month falls back to last explicit allocation")
	requireMoney(t, "50", dec.RolloverIn)
	requireMoney(t, "350", dec.TotalBudgeted)
	requireMoney(t, "40", dec.Available)
	require.NotNil(t, dec.PrevAvailable)
	requireMoney(t, "50", *dec.PrevAvailable)
}

func TestReconcile_QuietMonth_RolloverPropagatesUnchanged(t *testing.T) {
	// GIVEN: Envelope A funded only by a transfer in January; February is in
	//        the index (another category has a row) but quiet for A
	// WHEN:  Reconciling through March
	// THEN:  A's balance is identical through the quiet month

	cfg := testConfig()
	res, err := envelope.Reconcile(envelope.Inputs{
		Budgets: []envelope.BudgetAllocation{
			alloc("2025-03", "0", "A"),
			alloc("2025-01", "10", "Other"),
			alloc("2025-02", "10", "Other"),
		},
		Transfers: []envelope.Transfer{transfer("2025-01", "Other", "A", "100")},
		Config:    cfg,
		Now:       day("2025-03-15"),
	})
	require.NoError(t, err)

	requireMoney(t, "100", mustState(t, res, "2025-01").Envelopes["A"].Available)
	requireMoney(t, "100", mustState(t, res, "2025-02").Envelopes["A"].Available)
	requireMoney(t, "100", mustState(t, res, "2025-03").Envelopes["A"].Available)
}

func TestReconcile_TransferConservation(t *testing.T) {
	// GIVEN: Identical ledgers, one with a transfer A -> B of 75
	// WHEN:  Comparing against the no-transfer baseline
	// THEN:  A decreases by exactly 75 and B increases by exactly 75

	base := envelope.Inputs{
		Budgets: []envelope.BudgetAllocation{
			alloc("2025-06", "200", "A"),
			alloc("2025-06", "100", "B"),
		},
		Config: testConfig(),
		Now:    day("2025-06-20"),
	}
	baseline, err := envelope.Reconcile(base)
	require.NoError(t, err)

	withTransfer := base
	withTransfer.Transfers = []envelope.Transfer{transfer("2025-06", "A", "B", "75")}
	moved, err := envelope.Reconcile(withTransfer)
	require.NoError(t, err)

	ja, jb := mustState(t, baseline, "2025-06"), mustState(t, moved, "2025-06")
	requireMoney(t, "75", ja.Envelopes["A"].Available.Sub(jb.Envelopes["A"].Available))
	requireMoney(t, "75", jb.Envelopes["B"].Available.Sub(ja.Envelopes["B"].Available))
}

// =============================================================================
// ALLOCATION POLICY - FUTURE VS PAST
// =============================================================================

func TestReconcile_AllocationPolicy_PastDefaultsFutureDoesNot(t *testing.T) {
	// GIVEN: C allocated 300 in 2025-11, no rows afterward; current month is
	//        2026-01; the index reaches 2026-02 via another category
	// WHEN:  Reconciling
	// THEN:  Past and current months default C's allocation to 300;
	//        the future month shows 0

	res, err := envelope.Reconcile(envelope.Inputs{
		Budgets: []envelope.BudgetAllocation{
			alloc("2025-11", "300", "C"),
			alloc("2025-12", "10", "Other"),
			alloc("2026-02", "10", "Other"),
		},
		Config: testConfig(),
		Now:    day("2026-01-15"),
	})
	require.NoError(t, err)

	requireMoney(t, "300", mustState(t, res, "2025-12").Envelopes["C"].Allocation)
	requireMoney(t, "300", mustState(t, res, "2026-01").Envelopes["C"].Allocation)

	feb := mustState(t, res, "2026-02")
	require.True(t, feb.Future)
	requireMoney(t, "0", feb.Envelopes["C"].Allocation, "unplanned future month shows the gap")
	requireMoney(t, "0", feb.Envelopes["C"].NewAllocation)
}

func TestReconcile_FutureMonthWithOnlyBudgetRow_StillProducesState(t *testing.T) {
	// A future month referenced only by a budget row must appear in the
	// index with a full envelope state, so projections are well-defined.

	res, err := envelope.Reconcile(envelope.Inputs{
		Budgets: []envelope.BudgetAllocation{alloc("2026-05", "400", "Groceries")},
		Config:  testConfig(),
		Now:     day("2026-01-15"),
	})
	require.NoError(t, err)

	require.Equal(t, []envelope.Month{month("2026-01"), month("2026-05")}, res.Months)
	may := mustState(t, res, "2026-05").Envelopes["Groceries"]
	requireMoney(t, "400", may.Allocation, "explicit future rows are honored")
	requireMoney(t, "400", may.NewAllocation)
}

// =============================================================================
// EDGE CASES
// =============================================================================

func TestReconcile_UntrackedTransferSide_IgnoredSilently(t *testing.T) {
	// A transfer whose counterparty has no budget row anywhere only adjusts
	// the tracked side; the row never creates a phantom envelope.

	res, err := envelope.Reconcile(envelope.Inputs{
		Budgets:   []envelope.BudgetAllocation{alloc("2025-06", "100", "A")},
		Transfers: []envelope.Transfer{transfer("2025-06", "Nowhere", "A", "40")},
		Config:    testConfig(),
		Now:       day("2025-06-20"),
	})
	require.NoError(t, err)

	jun := mustState(t, res, "2025-06")
	requireMoney(t, "140", jun.Envelopes["A"].Available)
	_, phantom := jun.Envelopes["Nowhere"]
	assert.False(t, phantom)
}

func TestReconcile_NegativeTransferAmount_Rejected(t *testing.T) {
	_, err := envelope.Reconcile(envelope.Inputs{
		Budgets:   []envelope.BudgetAllocation{alloc("2025-06", "100", "A")},
		Transfers: []envelope.Transfer{transfer("2025-06", "A", "B", "-5")},
		Config:    testConfig(),
		Now:       day("2025-06-20"),
	})
	require.ErrorIs(t, err, envelope.ErrNegativeTransfer)

	var terr *envelope.TransferError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, envelope.Category("A"), terr.From)
}

func TestReconcile_RefundsIncreaseAvailable(t *testing.T) {
	res, err := envelope.Reconcile(envelope.Inputs{
		Transactions: []envelope.Transaction{
			txn("2025-06-05", "-80.00", "Groceries", "Food"),
			txn("2025-06-12", "15.50", "Groceries", "Food"),
		},
		Budgets: []envelope.BudgetAllocation{alloc("2025-06", "100", "Groceries")},
		Config:  testConfig(),
		Now:     day("2025-06-20"),
	})
	require.NoError(t, err)

	es := mustState(t, res, "2025-06").Envelopes["Groceries"]
	requireMoney(t, "80", es.Spent)
	requireMoney(t, "15.5", es.Refunds)
	requireMoney(t, "35.5", es.Available)
}

func TestReconcile_TransactionsBeforeStart_ExcludedFromEnvelopes(t *testing.T) {
	// GIVEN: A spend dated before the ledger start
	// THEN:  It neither creates a month nor hits the envelope, but the
	//        full feed still drives income/expense flow for that month
	//        if the month is otherwise in the index

	cfg := testConfig()
	cfg.StartDate = day("2025-11-01")
	res, err := envelope.Reconcile(envelope.Inputs{
		Transactions: []envelope.Transaction{
			txn("2025-03-10", "-999.00", "Groceries", "Food"),
			txn("2025-11-08", "-50.00", "Groceries", "Food"),
		},
		Budgets: []envelope.BudgetAllocation{alloc("2025-11", "300", "Groceries")},
		Config:  cfg,
		Now:     day("2025-11-20"),
	})
	require.NoError(t, err)

	require.Equal(t, []envelope.Month{month("2025-11")}, res.Months)
	requireMoney(t, "250", mustState(t, res, "2025-11").Envelopes["Groceries"].Available)
}

// =============================================================================
// DETERMINISM
// =============================================================================

func TestReconcile_Idempotent(t *testing.T) {
	// Running the engine twice on identical inputs yields identical
	// envelope state maps.

	in := envelope.Inputs{
		Transactions: []envelope.Transaction{
			txn("2025-10-03", "-120.00", "Groceries", "Food"),
			txn("2025-11-08", "-250.00", "Groceries", "Food"),
			txn("2025-11-14", "2600.00", "Wages", "Wages"),
		},
		Budgets: []envelope.BudgetAllocation{
			alloc("2025-10", "300", "Groceries"),
			alloc("2025-11", "300", "Groceries"),
			alloc("2025-11", "1200", "Rent"),
		},
		Transfers: []envelope.Transfer{transfer("2025-11", "Rent", "Groceries", "25")},
		Snapshots: []envelope.BalanceSnapshot{{Month: month("2025-10"), Balance: money("4000")}},
		Config:    testConfig(),
		Now:       day("2025-11-20"),
	}

	first, err := envelope.Reconcile(in)
	require.NoError(t, err)
	second, err := envelope.Reconcile(in)
	require.NoError(t, err)

	require.Equal(t, first.Months, second.Months)
	for _, m := range first.Months {
		require.Equal(t, first.ByMonth[m].Envelopes, second.ByMonth[m].Envelopes, "month %s", m)
		require.Equal(t, first.ByMonth[m].Summary, second.ByMonth[m].Summary, "month %s", m)
	}
}
