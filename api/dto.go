/*
dto.go - Wire types for API requests and responses

PURPOSE:
  The JSON shapes clients see, kept separate from the reconciliation
  model so the engine's types can change without breaking the API
  contract. *DTO types go out, *Request types come in; validation
  happens in handlers, the DTOs just carry data.

MONEY ENCODING:
  Every monetary value crosses the wire as a fixed two-decimal string
  ("-1234.56"). Clients never receive binary floats for money.

SEE ALSO:
  - handlers.go: Uses these types
  - envelope/types.go: The domain model these project
*/
package api

import (
	"sort"

	"github.com/triage/envelope-engine/envelope"
)

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// MonthDTO is the month-list row: identity plus summary headline numbers.
type MonthDTO struct {
	Month     string          `json:"month"`
	Future    bool            `json:"future"`
	Current   bool            `json:"current"`
	Envelopes int             `json:"envelopes"`
	Summary   MonthSummaryDTO `json:"summary"`
}

// MonthSummaryDTO mirrors envelope.MonthSummary.
type MonthSummaryDTO struct {
	Surplus            string              `json:"surplus"`
	Shortfall          string              `json:"shortfall"`
	NetHealth          string              `json:"net_health"`
	NewFunding         string              `json:"new_funding"`
	TotalEnveloped     string              `json:"total_enveloped"`
	RolloverIn         string              `json:"rollover_in"`
	UncategorizedSpend string              `json:"uncategorized_spend"`
	UncategorizedBy    []CategoryAmountDTO `json:"uncategorized_by,omitempty"`
	PostedIncome       string              `json:"posted_income"`
	OtherIncome        string              `json:"other_income"`
	ExpectedIncome     string              `json:"expected_income"`
	Bank               string              `json:"bank"`
	SnapshotOnRecord   bool                `json:"snapshot_on_record"`
	SnapshotBalance    *string             `json:"snapshot_balance,omitempty"`
	UnassignedCash     *string             `json:"unassigned_cash,omitempty"`
	ProjectedFree      *string             `json:"projected_free,omitempty"`
}

// CategoryAmountDTO is one category's share of a summary total.
type CategoryAmountDTO struct {
	Category string `json:"category"`
	Amount   string `json:"amount"`
}

// EnvelopeDTO mirrors envelope.EnvelopeState for one (category, month).
type EnvelopeDTO struct {
	Category      string           `json:"category"`
	RolloverIn    string           `json:"rollover_in"`
	Allocation    string           `json:"allocation"`
	NewAllocation string           `json:"new_allocation"`
	TransfersIn   string           `json:"transfers_in"`
	TransfersOut  string           `json:"transfers_out"`
	Assigned      string           `json:"assigned"`
	TotalBudgeted string           `json:"total_budgeted"`
	Spent         string           `json:"spent"`
	Refunds       string           `json:"refunds"`
	Available     string           `json:"available"`
	PrevAvailable *string          `json:"prev_available,omitempty"`
	Recurring     bool             `json:"recurring"`
	Variable      bool             `json:"variable"`
	Coverage      *CoverageDTO     `json:"coverage,omitempty"`
	Entries       []LedgerEntryDTO `json:"entries,omitempty"`
}

// CoverageDTO is the spend-pace reading for a variable envelope.
type CoverageDTO struct {
	SpentRatio   float64 `json:"spent_ratio"`
	MonthElapsed float64 `json:"month_elapsed"`
	Pace         string  `json:"pace"`
	ProjectedEOM string  `json:"projected_eom"`
}

// LedgerEntryDTO is one line of an envelope's month ledger.
type LedgerEntryDTO struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Note        string `json:"note,omitempty"`
}

// MonthDetailDTO is the full state of one month.
type MonthDetailDTO struct {
	Month     string          `json:"month"`
	Future    bool            `json:"future"`
	Current   bool            `json:"current"`
	Summary   MonthSummaryDTO `json:"summary"`
	Envelopes []EnvelopeDTO   `json:"envelopes"`
}

// ProposedTransferDTO is one advisor suggestion.
type ProposedTransferDTO struct {
	Month  string `json:"month"`
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
	Note   string `json:"note"`
}

// TransferDTO is one journal row.
type TransferDTO struct {
	Month  string `json:"month"`
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
	Note   string `json:"note,omitempty"`
}

// HistoryDTO carries the trend series for sparklines.
type HistoryDTO struct {
	Categories  map[string][]HistoryPointDTO `json:"categories"`
	Income      []IncomePointDTO             `json:"income"`
	OtherIncome []IncomePointDTO             `json:"other_income"`
}

// HistoryPointDTO is one month of an envelope's closing balance.
type HistoryPointDTO struct {
	Month     string `json:"month"`
	Available string `json:"available"`
}

// IncomePointDTO is one month of received income.
type IncomePointDTO struct {
	Month  string `json:"month"`
	Amount string `json:"amount"`
}

// ReportDTO summarizes what the normalizer excluded from the feed.
type ReportDTO struct {
	Total    int            `json:"total"`
	Kept     int            `json:"kept"`
	Skipped  int            `json:"skipped"`
	ByReason map[string]int `json:"by_reason"`
}

// ScenarioDTO describes one loadable demo dataset.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// =============================================================================
// REQUEST TYPES
// =============================================================================

// CreateTransferRequest appends one transfer to the journal.
type CreateTransferRequest struct {
	Month  string `json:"month"`
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
	Note   string `json:"note,omitempty"`
}

// PreviewRequest evaluates a month with extra, unsaved transfers applied.
type PreviewRequest struct {
	Transfers []CreateTransferRequest `json:"transfers"`
}

// LoadScenarioRequest selects a demo scenario.
type LoadScenarioRequest struct {
	Scenario string `json:"scenario"`
}

// =============================================================================
// DOMAIN -> DTO PROJECTION
// =============================================================================

func toSummaryDTO(ms *envelope.MonthState) MonthSummaryDTO {
	s := ms.Summary
	dto := MonthSummaryDTO{
		Surplus:            s.Surplus.StringFixed(2),
		Shortfall:          s.Shortfall.StringFixed(2),
		NetHealth:          s.NetHealth.StringFixed(2),
		NewFunding:         s.NewFunding.StringFixed(2),
		TotalEnveloped:     s.TotalEnveloped.StringFixed(2),
		RolloverIn:         s.RolloverIn.StringFixed(2),
		UncategorizedSpend: s.UncategorizedSpend.StringFixed(2),
		PostedIncome:       s.PostedIncome.StringFixed(2),
		OtherIncome:        s.OtherIncome.StringFixed(2),
		ExpectedIncome:     s.ExpectedIncome.StringFixed(2),
		Bank:               s.Live.Bank.StringFixed(2),
		SnapshotOnRecord:   s.Live.SnapshotOnRecord,
	}
	for _, ca := range s.UncategorizedBy {
		dto.UncategorizedBy = append(dto.UncategorizedBy, CategoryAmountDTO{
			Category: string(ca.Category),
			Amount:   ca.Amount.StringFixed(2),
		})
	}
	if s.SnapshotBalance != nil {
		v := s.SnapshotBalance.StringFixed(2)
		dto.SnapshotBalance = &v
	}
	if ms.Future {
		v := s.ProjectedUnassigned().StringFixed(2)
		dto.ProjectedFree = &v
	} else if s.Live.SnapshotOnRecord {
		v := s.UnassignedCash().StringFixed(2)
		dto.UnassignedCash = &v
	}
	return dto
}

func toEnvelopeDTO(es *envelope.EnvelopeState) EnvelopeDTO {
	dto := EnvelopeDTO{
		Category:      string(es.Category),
		RolloverIn:    es.RolloverIn.StringFixed(2),
		Allocation:    es.Allocation.StringFixed(2),
		NewAllocation: es.NewAllocation.StringFixed(2),
		TransfersIn:   es.TransfersIn.StringFixed(2),
		TransfersOut:  es.TransfersOut.StringFixed(2),
		Assigned:      es.Assigned.StringFixed(2),
		TotalBudgeted: es.TotalBudgeted.StringFixed(2),
		Spent:         es.Spent.StringFixed(2),
		Refunds:       es.Refunds.StringFixed(2),
		Available:     es.Available.StringFixed(2),
		Recurring:     es.Recurring,
		Variable:      es.Variable,
	}
	if es.PrevAvailable != nil {
		v := es.PrevAvailable.StringFixed(2)
		dto.PrevAvailable = &v
	}
	if es.Coverage != nil {
		dto.Coverage = &CoverageDTO{
			SpentRatio:   es.Coverage.SpentRatio,
			MonthElapsed: es.Coverage.MonthElapsed,
			Pace:         string(es.Coverage.Pace),
			ProjectedEOM: es.Coverage.ProjectedEOM.StringFixed(2),
		}
	}
	for _, e := range es.Entries {
		dto.Entries = append(dto.Entries, LedgerEntryDTO{
			Date:        e.Date,
			Description: e.Description,
			Amount:      e.Amount.StringFixed(2),
			Note:        e.Note,
		})
	}
	return dto
}

func toMonthDetailDTO(ms *envelope.MonthState, current bool) MonthDetailDTO {
	dto := MonthDetailDTO{
		Month:   ms.Month.String(),
		Future:  ms.Future,
		Current: current,
		Summary: toSummaryDTO(ms),
	}
	cats := make([]envelope.Category, 0, len(ms.Envelopes))
	for c := range ms.Envelopes {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })
	for _, c := range cats {
		dto.Envelopes = append(dto.Envelopes, toEnvelopeDTO(ms.Envelopes[c]))
	}
	return dto
}
