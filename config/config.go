/*
Package config loads ledger configuration from JSON.

PURPOSE:
  Converts a JSON configuration document into an envelope.Config. This
  enables ledger tuning without code changes - the owner edits category
  sets and the expected income in a file, and the engine picks them up
  on the next reconciliation.

JSON SCHEMA:
  {
    "ledger_start_date": "2025-11-01",
    "expected_monthly_income": "5245.00",
    "income_categories": ["Wages"],
    "health_exclusions": ["Travel", "Other"],
    "untracked_exclusions": ["Credit card payments", "Transfers"],
    "recurring_categories": ["Rent", "Home insurance"],
    "variable_categories": ["Groceries", "Restaurants & bars"]
  }

KEY FEATURES:
  - Validates the start date and income amount
  - Omitted fields fall back to household defaults
  - Category matching is exact, enumerated sets only, no wildcards

SEE ALSO:
  - envelope/engine.go: Config consumer
  - cmd/server/main.go: Resolves the config path from flags and .env
*/
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/triage/envelope-engine/envelope"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// LedgerJSON is the JSON representation of the ledger configuration.
type LedgerJSON struct {
	StartDate             string   `json:"ledger_start_date"`
	ExpectedMonthlyIncome string   `json:"expected_monthly_income"`
	IncomeCategories      []string `json:"income_categories,omitempty"`
	HealthExclusions      []string `json:"health_exclusions,omitempty"`
	UntrackedExclusions   []string `json:"untracked_exclusions,omitempty"`
	RecurringCategories   []string `json:"recurring_categories,omitempty"`
	VariableCategories    []string `json:"variable_categories,omitempty"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in household configuration, used when no config
// file is supplied and as the fallback for omitted fields.
func Default() envelope.Config {
	return envelope.Config{
		StartDate:             time.Date(2025, time.November, 1, 0, 0, 0, 0, time.UTC),
		ExpectedMonthlyIncome: decimal.RequireFromString("5245.00"),
		IncomeCategories:      envelope.NewCategorySet("Wages"),
		HealthExclusions:      envelope.NewCategorySet("Travel", "Other", "General", "Car services"),
		UntrackedExclusions:   envelope.NewCategorySet("Credit card payments", "Transfers"),
		RecurringCategories: envelope.NewCategorySet(
			"Rent", "Music & audio", "Home insurance", "Auto insurance",
			"Medical", "Student loan payments", "Investment transfers",
			"Other entertainment", "Fitness", "Games", "Phone & internet",
			"Other travel", "Emergency fund", "Car services",
		),
		VariableCategories: envelope.NewCategorySet(
			"Restaurants & bars", "Groceries", "Clothing & accessories",
			"Events & recreation", "Gas & EV charging", "Coffee shops",
			"Other food & drink", "Personal care", "Retail", "Pet supplies",
		),
	}
}

// =============================================================================
// LOADING
// =============================================================================

// Parse converts a JSON document into an envelope.Config. Omitted fields keep
// their defaults; present fields replace them wholesale (sets do not merge).
func Parse(data []byte) (envelope.Config, error) {
	var lj LedgerJSON
	if err := json.Unmarshal(data, &lj); err != nil {
		return envelope.Config{}, fmt.Errorf("failed to parse ledger config: %w", err)
	}
	return fromJSON(lj)
}

// Load reads and parses a JSON configuration file.
func Load(path string) (envelope.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return envelope.Config{}, fmt.Errorf("failed to read ledger config %s: %w", path, err)
	}
	return Parse(data)
}

func fromJSON(lj LedgerJSON) (envelope.Config, error) {
	cfg := Default()

	if lj.StartDate != "" {
		start, err := time.Parse("2006-01-02", lj.StartDate)
		if err != nil {
			return envelope.Config{}, fmt.Errorf("invalid ledger_start_date %q: %w", lj.StartDate, err)
		}
		cfg.StartDate = start
	}

	if lj.ExpectedMonthlyIncome != "" {
		income, err := envelope.ParseMoney(lj.ExpectedMonthlyIncome)
		if err != nil {
			return envelope.Config{}, fmt.Errorf("invalid expected_monthly_income %q: %w", lj.ExpectedMonthlyIncome, err)
		}
		if income.IsNegative() {
			return envelope.Config{}, fmt.Errorf("expected_monthly_income must not be negative, got %s", income)
		}
		cfg.ExpectedMonthlyIncome = income
	}

	if lj.IncomeCategories != nil {
		cfg.IncomeCategories = toSet(lj.IncomeCategories)
	}
	if lj.HealthExclusions != nil {
		cfg.HealthExclusions = toSet(lj.HealthExclusions)
	}
	if lj.UntrackedExclusions != nil {
		cfg.UntrackedExclusions = toSet(lj.UntrackedExclusions)
	}
	if lj.RecurringCategories != nil {
		cfg.RecurringCategories = toSet(lj.RecurringCategories)
	}
	if lj.VariableCategories != nil {
		cfg.VariableCategories = toSet(lj.VariableCategories)
	}

	return cfg, nil
}

func toSet(names []string) envelope.CategorySet {
	cats := make([]envelope.Category, len(names))
	for i, n := range names {
		cats[i] = envelope.Category(n)
	}
	return envelope.NewCategorySet(cats...)
}
