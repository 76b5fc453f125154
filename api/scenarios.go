/*
scenarios.go - Loadable demo datasets

PURPOSE:
  Provides canned datasets that exercise distinct reconciliation
  behaviors without importing a real bank feed. Loading a scenario
  replaces the store's contents wholesale and re-runs the engine.

SCENARIOS:
  fresh-start:     Two months of clean envelopes, everything on track
  overspent-month: Groceries and dining blown through, advisor has work
  planning-ahead:  Future months budgeted, projection numbers visible

DATE HANDLING:
  Scenario data is generated relative to the server's current month so
  "current month" behavior (coverage pace, live balance) is always
  demonstrable, regardless of when the demo runs.

SEE ALSO:
  - handlers.go: Scenario endpoints delegate here
  - store/sqlite: Replace() swaps the dataset atomically
*/
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/triage/envelope-engine/envelope"
	"github.com/triage/envelope-engine/store/sqlite"
)

// scenario is one loadable demo dataset.
type scenario struct {
	ID          string
	Name        string
	Description string
	Build       func(current envelope.Month) sqlite.SeedBundle
}

var scenarios = []scenario{
	{
		ID:          "fresh-start",
		Name:        "Fresh Start",
		Description: "Two months of clean envelopes with rollover and a balance snapshot",
		Build:       buildFreshStart,
	},
	{
		ID:          "overspent-month",
		Name:        "Overspent Month",
		Description: "Variable envelopes blown through; the rebalancing advisor has cures",
		Build:       buildOverspentMonth,
	},
	{
		ID:          "planning-ahead",
		Name:        "Planning Ahead",
		Description: "Future months budgeted, projected free cash visible",
		Build:       buildPlanningAhead,
	},
}

// =============================================================================
// SCENARIO ENDPOINTS
// =============================================================================

// ListScenarios returns all available demo scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	dtos := make([]ScenarioDTO, 0, len(scenarios))
	for _, sc := range scenarios {
		dtos = append(dtos, ScenarioDTO{ID: sc.ID, Name: sc.Name, Description: sc.Description})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCurrentScenario reports which scenario is loaded, if any.
// GET /api/scenarios/current
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	current := h.currentScenario
	h.mu.RUnlock()
	writeJSON(w, http.StatusOK, map[string]string{"scenario": current})
}

// LoadScenario replaces the dataset with a scenario and re-reconciles.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var found *scenario
	for i := range scenarios {
		if scenarios[i].ID == req.Scenario {
			found = &scenarios[i]
			break
		}
	}
	if found == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Unknown scenario %q", req.Scenario), nil)
		return
	}

	current := envelope.MonthOf(time.Now().UTC())
	if err := h.Store.Replace(r.Context(), found.Build(current)); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}
	if err := h.Reconcile(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Reconciliation failed after load", err)
		return
	}

	h.mu.Lock()
	h.currentScenario = found.ID
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"scenario": found.ID, "status": "loaded"})
}

// =============================================================================
// SCENARIO DATA
// =============================================================================

// prior returns the month n steps before m.
func prior(m envelope.Month, n int) envelope.Month {
	t := m.Start().AddDate(0, -n, 0)
	return envelope.MonthOf(t)
}

func rawTxn(m envelope.Month, dayOfMonth int, amount string, detailed, primary envelope.Category, desc string) envelope.RawTransaction {
	date := m.Start().AddDate(0, 0, dayOfMonth-1)
	return envelope.RawTransaction{
		PostedDate:  date.Format("2006-01-02"),
		Amount:      amount,
		Status:      "posted",
		Description: desc,
		Detailed:    detailed,
		Primary:     primary,
	}
}

func seedBudget(m envelope.Month, cat envelope.Category, amount string) envelope.BudgetAllocation {
	return envelope.BudgetAllocation{Month: m, Category: cat, Allocated: decimal.RequireFromString(amount)}
}

func buildFreshStart(current envelope.Month) sqlite.SeedBundle {
	last := prior(current, 1)
	return sqlite.SeedBundle{
		Transactions: []envelope.RawTransaction{
			rawTxn(last, 1, "2600.00", "Wages", "Wages", "Paycheck"),
			rawTxn(last, 15, "2600.00", "Wages", "Wages", "Paycheck"),
			rawTxn(last, 8, "-212.40", "Groceries", "Food", "Market"),
			rawTxn(last, 3, "-1450.00", "Rent", "Housing", "Rent"),
			rawTxn(current, 1, "2600.00", "Wages", "Wages", "Paycheck"),
			rawTxn(current, 3, "-1450.00", "Rent", "Housing", "Rent"),
			rawTxn(current, 6, "-84.15", "Groceries", "Food", "Market"),
		},
		Budgets: []envelope.BudgetAllocation{
			seedBudget(last, "Groceries", "300"),
			seedBudget(last, "Rent", "1450"),
			seedBudget(last, "Restaurants & bars", "150"),
			seedBudget(current, "Groceries", "300"),
			seedBudget(current, "Rent", "1450"),
			seedBudget(current, "Restaurants & bars", "150"),
		},
		Snapshots: []envelope.BalanceSnapshot{
			{Month: last, Balance: decimal.RequireFromString("4200.00")},
		},
	}
}

func buildOverspentMonth(current envelope.Month) sqlite.SeedBundle {
	last := prior(current, 1)
	return sqlite.SeedBundle{
		Transactions: []envelope.RawTransaction{
			rawTxn(last, 1, "2600.00", "Wages", "Wages", "Paycheck"),
			rawTxn(last, 15, "2600.00", "Wages", "Wages", "Paycheck"),
			rawTxn(last, 9, "-405.77", "Groceries", "Food", "Market"),
			rawTxn(last, 12, "-238.50", "Restaurants & bars", "Food", "Dinners out"),
			rawTxn(last, 3, "-1450.00", "Rent", "Housing", "Rent"),
			rawTxn(last, 20, "-62.00", "Gadgets", "Retail", "Impulse buy"),
			rawTxn(last, 5, "-20.00", "Clothing & accessories", "Shopping", "Jeans"),
			rawTxn(current, 1, "2600.00", "Wages", "Wages", "Paycheck"),
			rawTxn(current, 2, "-95.30", "Groceries", "Food", "Market"),
		},
		Budgets: []envelope.BudgetAllocation{
			seedBudget(last, "Groceries", "300"),
			seedBudget(last, "Restaurants & bars", "150"),
			seedBudget(last, "Rent", "1450"),
			seedBudget(last, "Clothing & accessories", "500"),
			seedBudget(current, "Groceries", "300"),
			seedBudget(current, "Restaurants & bars", "150"),
			seedBudget(current, "Rent", "1450"),
		},
		Snapshots: []envelope.BalanceSnapshot{
			{Month: last, Balance: decimal.RequireFromString("3100.00")},
		},
	}
}

func buildPlanningAhead(current envelope.Month) sqlite.SeedBundle {
	next := current.Next()
	after := next.Next()
	return sqlite.SeedBundle{
		Transactions: []envelope.RawTransaction{
			rawTxn(current, 1, "2600.00", "Wages", "Wages", "Paycheck"),
			rawTxn(current, 3, "-1450.00", "Rent", "Housing", "Rent"),
			rawTxn(current, 5, "-120.90", "Groceries", "Food", "Market"),
		},
		Budgets: []envelope.BudgetAllocation{
			seedBudget(current, "Groceries", "300"),
			seedBudget(current, "Rent", "1450"),
			seedBudget(next, "Groceries", "320"),
			seedBudget(next, "Rent", "1450"),
			seedBudget(next, "Other travel", "400"),
			seedBudget(after, "Rent", "1450"),
		},
		Snapshots: []envelope.BalanceSnapshot{
			{Month: current, Balance: decimal.RequireFromString("5100.00")},
		},
	}
}
