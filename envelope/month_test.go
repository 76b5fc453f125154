package envelope_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triage/envelope-engine/envelope"
)

func TestMonth_ParseAndString(t *testing.T) {
	m, err := envelope.ParseMonth("2025-06")
	require.NoError(t, err)
	assert.Equal(t, envelope.NewMonth(2025, time.June), m)
	assert.Equal(t, "2025-06", m.String())

	_, err = envelope.ParseMonth("June 2025")
	assert.Error(t, err)
	_, err = envelope.ParseMonth("2025-13")
	assert.Error(t, err)
}

func TestMonth_Ordering(t *testing.T) {
	jun := month("2025-06")
	jul := month("2025-07")
	dec := month("2025-12")

	assert.True(t, jun.Before(jul))
	assert.True(t, jul.After(jun))
	assert.False(t, jun.Before(jun))
	assert.Equal(t, jul, jun.Next())
	assert.Equal(t, month("2026-01"), dec.Next(), "year boundary")
}

func TestMonth_Days(t *testing.T) {
	assert.Equal(t, 30, month("2025-06").Days())
	assert.Equal(t, 31, month("2025-07").Days())
	assert.Equal(t, 28, month("2025-02").Days())
	assert.Equal(t, 29, month("2024-02").Days(), "leap year")
}

func TestMonth_ElapsedFraction(t *testing.T) {
	now := day("2025-06-15")

	assert.Equal(t, 1.0, month("2025-05").ElapsedFraction(now), "past month is fully elapsed")
	assert.Equal(t, 0.0, month("2025-07").ElapsedFraction(now), "future month has not started")
	assert.InDelta(t, 0.5, month("2025-06").ElapsedFraction(now), 1e-9)
}

func TestBuildMonthIndex(t *testing.T) {
	// GIVEN: transactions straddling the ledger start, a future budget row,
	//        and a transfer-only month
	// THEN:  pre-start transaction months are dropped, everything else plus
	//        the current month appears once, ascending; gaps are NOT filled

	start := month("2025-01")
	current := month("2025-06")

	months := envelope.BuildMonthIndex(
		[]envelope.Transaction{
			txn("2024-11-20", "-10.00", "A", "Misc"), // before start
			txn("2025-02-10", "-10.00", "A", "Misc"),
			txn("2025-02-11", "-10.00", "A", "Misc"),
		},
		[]envelope.BudgetAllocation{alloc("2025-08", "100", "A")},
		[]envelope.Transfer{transfer("2025-04", "A", "B", "5")},
		start, current,
	)

	assert.Equal(t, []envelope.Month{
		month("2025-02"),
		month("2025-04"),
		month("2025-06"),
		month("2025-08"),
	}, months)
}

func TestTrackedCategories_FromBudgetRowsOnly(t *testing.T) {
	cats := envelope.TrackedCategories([]envelope.BudgetAllocation{
		alloc("2025-06", "100", "Groceries"),
		alloc("2025-07", "100", "Groceries"),
		alloc("2025-06", "50", "Dining"),
	})
	assert.Equal(t, []envelope.Category{"Dining", "Groceries"}, cats)
}
