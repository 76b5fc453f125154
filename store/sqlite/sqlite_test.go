package sqlite_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triage/envelope-engine/envelope"
	"github.com/triage/envelope-engine/store/sqlite"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func mustMonth(t *testing.T, s string) envelope.Month {
	t.Helper()
	m, err := envelope.ParseMonth(s)
	require.NoError(t, err)
	return m
}

func TestStore_RoundTrip(t *testing.T) {
	// GIVEN: a seeded dataset
	// THEN:  the Source methods return the same records, typed

	ctx := context.Background()
	s := newStore(t)

	bundle := sqlite.SeedBundle{
		Transactions: []envelope.RawTransaction{
			{
				PostedDate: "2025-11-03",
				Amount:     "-$54.12",
				Status:     "posted",
				Detailed:   "Groceries",
				Primary:    "Food",
			},
			{
				AuthorizedDate: "2025-11-04",
				Amount:         "2600.00",
				Status:         "posted",
				Detailed:       "Wages",
				Primary:        "Wages",
			},
		},
		Budgets: []envelope.BudgetAllocation{
			{Month: mustMonth(t, "2025-11"), Category: "Groceries", Allocated: decimal.RequireFromString("300")},
		},
		Transfers: []envelope.Transfer{
			{Month: mustMonth(t, "2025-11"), From: "Groceries", To: "Dining", Amount: decimal.RequireFromString("25"), Note: "seed"},
		},
		Snapshots: []envelope.BalanceSnapshot{
			{Month: mustMonth(t, "2025-11"), Balance: decimal.RequireFromString("4321.09")},
		},
	}
	require.NoError(t, s.Replace(ctx, bundle))

	raw, err := s.LoadTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, raw, 2)
	assert.Equal(t, "-$54.12", raw[0].Amount)
	assert.Equal(t, envelope.Category("Groceries"), raw[0].Detailed)
	assert.Equal(t, "2025-11-04", raw[1].AuthorizedDate)

	budgets, err := s.LoadBudgets(ctx)
	require.NoError(t, err)
	require.Len(t, budgets, 1)
	assert.True(t, decimal.RequireFromString("300").Equal(budgets[0].Allocated))

	transfers, err := s.LoadTransfers(ctx)
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	assert.Equal(t, "seed", transfers[0].Note)

	snaps, err := s.LoadSnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.True(t, decimal.RequireFromString("4321.09").Equal(snaps[0].Balance))
}

func TestStore_AppendTransfer_JournalOrder(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	first := envelope.Transfer{
		Month: mustMonth(t, "2025-11"), From: "Travel", To: "Groceries",
		Amount: decimal.RequireFromString("40"), Note: "smart rebalance",
	}
	second := envelope.Transfer{
		Month: mustMonth(t, "2025-11"), From: "Groceries", To: "Dining",
		Amount: decimal.RequireFromString("10"),
	}
	require.NoError(t, s.AppendTransfer(ctx, first))
	require.NoError(t, s.AppendTransfer(ctx, second))

	transfers, err := s.LoadTransfers(ctx)
	require.NoError(t, err)
	require.Len(t, transfers, 2)
	assert.Equal(t, first, transfers[0])
	assert.Equal(t, envelope.Category("Dining"), transfers[1].To)
}

func TestStore_AppendTransfer_RejectsNegativeAmount(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	err := s.AppendTransfer(ctx, envelope.Transfer{
		Month: mustMonth(t, "2025-11"), From: "A", To: "B",
		Amount: decimal.RequireFromString("-5"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, envelope.ErrNegativeTransfer)

	transfers, err := s.LoadTransfers(ctx)
	require.NoError(t, err)
	assert.Empty(t, transfers, "rejected row never reaches the journal")
}

func TestStore_Replace_SwapsDatasetAtomically(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.Replace(ctx, sqlite.SeedBundle{
		Budgets: []envelope.BudgetAllocation{
			{Month: mustMonth(t, "2025-10"), Category: "Old", Allocated: decimal.RequireFromString("1")},
		},
	}))
	require.NoError(t, s.Replace(ctx, sqlite.SeedBundle{
		Budgets: []envelope.BudgetAllocation{
			{Month: mustMonth(t, "2025-11"), Category: "New", Allocated: decimal.RequireFromString("2")},
		},
	}))

	budgets, err := s.LoadBudgets(ctx)
	require.NoError(t, err)
	require.Len(t, budgets, 1)
	assert.Equal(t, envelope.Category("New"), budgets[0].Category)
}

func TestStore_FeedsReconciliation(t *testing.T) {
	// The store plugs straight into the engine via LoadInputs.

	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.Replace(ctx, sqlite.SeedBundle{
		Transactions: []envelope.RawTransaction{
			{PostedDate: "2025-11-10", Amount: "-250.00", Status: "posted", Detailed: "Groceries", Primary: "Food"},
		},
		Budgets: []envelope.BudgetAllocation{
			{Month: mustMonth(t, "2025-11"), Category: "Groceries", Allocated: decimal.RequireFromString("300")},
		},
	}))

	cfg := envelope.Config{StartDate: mustMonth(t, "2025-11").Start()}
	inputs, err := envelope.LoadInputs(ctx, s, cfg)
	require.NoError(t, err)
	inputs.Now = mustMonth(t, "2025-11").Start().AddDate(0, 0, 14)

	res, err := envelope.Reconcile(inputs)
	require.NoError(t, err)

	ms, err := res.State(mustMonth(t, "2025-11"))
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("50").Equal(ms.Envelopes["Groceries"].Available))
}
