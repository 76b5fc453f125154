package config_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triage/envelope-engine/config"
)

func TestParse_FullDocument(t *testing.T) {
	cfg, err := config.Parse([]byte(`{
		"ledger_start_date": "2025-01-01",
		"expected_monthly_income": "$4,000.00",
		"income_categories": ["Paycheck"],
		"health_exclusions": ["Travel"],
		"untracked_exclusions": ["Transfers"],
		"recurring_categories": ["Rent"],
		"variable_categories": ["Groceries"]
	}`))
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC), cfg.StartDate)
	assert.True(t, decimal.RequireFromString("4000").Equal(cfg.ExpectedMonthlyIncome))
	assert.True(t, cfg.IncomeCategories.Contains("Paycheck"))
	assert.False(t, cfg.IncomeCategories.Contains("Wages"), "sets replace, not merge")
	assert.True(t, cfg.HealthExclusions.Contains("Travel"))
	assert.False(t, cfg.HealthExclusions.Contains("Other"))
	assert.True(t, cfg.RecurringCategories.Contains("Rent"))
	assert.True(t, cfg.VariableCategories.Contains("Groceries"))
}

func TestParse_OmittedFieldsKeepDefaults(t *testing.T) {
	cfg, err := config.Parse([]byte(`{"ledger_start_date": "2024-06-01"}`))
	require.NoError(t, err)

	def := config.Default()
	assert.Equal(t, time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC), cfg.StartDate)
	assert.True(t, def.ExpectedMonthlyIncome.Equal(cfg.ExpectedMonthlyIncome))
	assert.True(t, cfg.IncomeCategories.Contains("Wages"))
	assert.True(t, cfg.UntrackedExclusions.Contains("Credit card payments"))
}

func TestParse_Invalid(t *testing.T) {
	_, err := config.Parse([]byte(`{not json`))
	assert.Error(t, err)

	_, err = config.Parse([]byte(`{"ledger_start_date": "Nov 1"}`))
	assert.ErrorContains(t, err, "ledger_start_date")

	_, err = config.Parse([]byte(`{"expected_monthly_income": "lots"}`))
	assert.ErrorContains(t, err, "expected_monthly_income")

	_, err = config.Parse([]byte(`{"expected_monthly_income": "-100"}`))
	assert.ErrorContains(t, err, "negative")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(t.TempDir() + "/nope.json")
	assert.Error(t, err)
}
