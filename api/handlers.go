/*
handlers.go - HTTP handler implementations

PURPOSE:
  Implements every API endpoint over a cached reconciliation result.
  Reads serve from the cache; the write paths (append transfer, load
  scenario) mutate the store and re-run the engine before responding,
  so clients always observe post-write state.

CACHING MODEL:
  One reconciliation result guarded by a RWMutex. The engine is a pure
  fold over the store's inputs, so "cache invalidation" is simply
  re-running it. Handlers never mutate a cached Result.

ENDPOINT GROUPS:
  Months:    list, detail, rebalance proposals, what-if preview
  Transfers: journal list, append, CSV export
  History:   per-envelope and income trend series
  Report:    normalizer exclusion audit
  Scenarios: demo dataset loading (scenarios.go)

SEE ALSO:
  - dto.go: Response shapes
  - server.go: Routing
  - envelope/engine.go: The fold behind every read
*/
package api

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/triage/envelope-engine/envelope"
	"github.com/triage/envelope-engine/store/sqlite"
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  *sqlite.Store
	Config envelope.Config

	mu     sync.RWMutex
	result *envelope.Result

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler with the given store and configuration.
func NewHandler(store *sqlite.Store, cfg envelope.Config) *Handler {
	return &Handler{Store: store, Config: cfg}
}

// Reconcile reloads inputs from the store and re-runs the engine, replacing
// the cached result. Called at startup and after every write.
func (h *Handler) Reconcile(ctx context.Context) error {
	inputs, err := envelope.LoadInputs(ctx, h.Store, h.Config)
	if err != nil {
		return fmt.Errorf("failed to load inputs: %w", err)
	}
	inputs.Now = time.Now().UTC()

	result, err := envelope.Reconcile(inputs)
	if err != nil {
		return fmt.Errorf("failed to reconcile: %w", err)
	}

	h.mu.Lock()
	h.result = result
	h.mu.Unlock()
	return nil
}

// snapshot returns the cached result, or an error when no reconciliation
// has succeeded yet.
func (h *Handler) snapshot() (*envelope.Result, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.result == nil {
		return nil, fmt.Errorf("no reconciliation result available")
	}
	return h.result, nil
}

// =============================================================================
// MONTH HANDLERS
// =============================================================================

// ListMonths returns the reconciled month index with summary headlines.
// GET /api/months
func (h *Handler) ListMonths(w http.ResponseWriter, r *http.Request) {
	res, err := h.snapshot()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Reconciliation unavailable", err)
		return
	}

	dtos := make([]MonthDTO, 0, len(res.Months))
	for _, m := range res.Months {
		ms := res.ByMonth[m]
		dtos = append(dtos, MonthDTO{
			Month:     m.String(),
			Future:    ms.Future,
			Current:   m == res.Current,
			Envelopes: len(ms.Envelopes),
			Summary:   toSummaryDTO(ms),
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetMonth returns the full envelope state for one month.
// GET /api/months/{month}
func (h *Handler) GetMonth(w http.ResponseWriter, r *http.Request) {
	res, err := h.snapshot()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Reconciliation unavailable", err)
		return
	}

	m, err := envelope.ParseMonth(chi.URLParam(r, "month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month (use YYYY-MM)", err)
		return
	}

	ms, err := res.State(m)
	if err != nil {
		writeError(w, http.StatusNotFound, "Month not in reconciled index", err)
		return
	}
	writeJSON(w, http.StatusOK, toMonthDetailDTO(ms, m == res.Current))
}

// GetRebalance returns the advisor's proposed transfers for a month.
// GET /api/months/{month}/rebalance
func (h *Handler) GetRebalance(w http.ResponseWriter, r *http.Request) {
	res, err := h.snapshot()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Reconciliation unavailable", err)
		return
	}

	m, err := envelope.ParseMonth(chi.URLParam(r, "month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month (use YYYY-MM)", err)
		return
	}
	ms, err := res.State(m)
	if err != nil {
		writeError(w, http.StatusNotFound, "Month not in reconciled index", err)
		return
	}

	proposals := envelope.Advise(ms, res.Mapping, h.Config)
	dtos := make([]ProposedTransferDTO, 0, len(proposals))
	for _, p := range proposals {
		dtos = append(dtos, ProposedTransferDTO{
			Month:  p.Month.String(),
			From:   string(p.From),
			To:     string(p.To),
			Amount: p.Amount.StringFixed(2),
			Note:   p.Note,
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// PreviewMonth evaluates a month with extra, unsaved transfers applied. The
// journal is untouched; the engine simply re-runs with the rows appended.
// POST /api/months/{month}/preview
func (h *Handler) PreviewMonth(w http.ResponseWriter, r *http.Request) {
	m, err := envelope.ParseMonth(chi.URLParam(r, "month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month (use YYYY-MM)", err)
		return
	}

	var req PreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	extra := make([]envelope.Transfer, 0, len(req.Transfers))
	for _, tr := range req.Transfers {
		t, err := parseTransferRequest(tr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid transfer", err)
			return
		}
		extra = append(extra, t)
	}

	inputs, err := envelope.LoadInputs(r.Context(), h.Store, h.Config)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load inputs", err)
		return
	}
	inputs.Transfers = append(inputs.Transfers, extra...)
	inputs.Now = time.Now().UTC()

	res, err := envelope.Reconcile(inputs)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Preview reconciliation failed", err)
		return
	}
	ms, err := res.State(m)
	if err != nil {
		writeError(w, http.StatusNotFound, "Month not in reconciled index", err)
		return
	}
	writeJSON(w, http.StatusOK, toMonthDetailDTO(ms, m == res.Current))
}

// =============================================================================
// TRANSFER HANDLERS
// =============================================================================

// ListTransfers returns the journal in append order.
// GET /api/transfers
func (h *Handler) ListTransfers(w http.ResponseWriter, r *http.Request) {
	transfers, err := h.Store.LoadTransfers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load transfers", err)
		return
	}

	dtos := make([]TransferDTO, 0, len(transfers))
	for _, t := range transfers {
		dtos = append(dtos, toTransferDTO(t))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateTransfer appends one transfer to the journal and re-reconciles.
// POST /api/transfers
func (h *Handler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req CreateTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	t, err := parseTransferRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid transfer", err)
		return
	}

	if err := h.Store.AppendTransfer(r.Context(), t); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Failed to append transfer", err)
		return
	}
	if err := h.Reconcile(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Reconciliation failed after append", err)
		return
	}

	writeJSON(w, http.StatusCreated, toTransferDTO(t))
}

// ExportTransfers streams the journal as CSV, one row per transfer. An
// optional ?month=YYYY-MM query restricts the export to one month's queue.
// GET /api/transfers/export
func (h *Handler) ExportTransfers(w http.ResponseWriter, r *http.Request) {
	transfers, err := h.Store.LoadTransfers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load transfers", err)
		return
	}

	if monthParam := r.URL.Query().Get("month"); monthParam != "" {
		m, err := envelope.ParseMonth(monthParam)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid month (use YYYY-MM)", err)
			return
		}
		filtered := transfers[:0]
		for _, t := range transfers {
			if t.Month == m {
				filtered = append(filtered, t)
			}
		}
		transfers = filtered
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="transfers.csv"`)

	cw := csv.NewWriter(w)
	cw.Write([]string{"month", "from", "to", "amount", "note"})
	for _, t := range transfers {
		cw.Write([]string{
			t.Month.String(),
			string(t.From),
			string(t.To),
			t.Amount.StringFixed(2),
			t.Note,
		})
	}
	cw.Flush()
}

// =============================================================================
// HISTORY / REPORT HANDLERS
// =============================================================================

// GetHistory returns per-envelope and income trend series.
// GET /api/history
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	res, err := h.snapshot()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Reconciliation unavailable", err)
		return
	}

	dto := HistoryDTO{
		Categories:  make(map[string][]HistoryPointDTO, len(res.History)),
		Income:      toIncomeDTOs(res.IncomeHistory),
		OtherIncome: toIncomeDTOs(res.OtherIncomeHistory),
	}
	for cat, series := range res.History {
		points := make([]HistoryPointDTO, 0, len(series))
		for _, p := range series {
			points = append(points, HistoryPointDTO{
				Month:     p.Month.String(),
				Available: p.Available.StringFixed(2),
			})
		}
		dto.Categories[string(cat)] = points
	}
	writeJSON(w, http.StatusOK, dto)
}

// GetReport returns the normalizer's exclusion audit.
// GET /api/report
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	res, err := h.snapshot()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Reconciliation unavailable", err)
		return
	}

	dto := ReportDTO{
		Total:    res.Report.Total,
		Kept:     res.Report.Kept,
		Skipped:  res.Report.SkippedCount(),
		ByReason: make(map[string]int, len(res.Report.ByReason)),
	}
	for reason, n := range res.Report.ByReason {
		dto.ByReason[string(reason)] = n
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// HELPERS
// =============================================================================

func parseTransferRequest(req CreateTransferRequest) (envelope.Transfer, error) {
	m, err := envelope.ParseMonth(req.Month)
	if err != nil {
		return envelope.Transfer{}, err
	}
	if req.From == "" || req.To == "" {
		return envelope.Transfer{}, fmt.Errorf("from and to categories are required")
	}
	amount, err := envelope.ParseMoney(req.Amount)
	if err != nil {
		return envelope.Transfer{}, fmt.Errorf("invalid amount %q: %w", req.Amount, err)
	}
	return envelope.Transfer{
		Month:  m,
		From:   envelope.Category(req.From),
		To:     envelope.Category(req.To),
		Amount: amount,
		Note:   req.Note,
	}, nil
}

func toTransferDTO(t envelope.Transfer) TransferDTO {
	return TransferDTO{
		Month:  t.Month.String(),
		From:   string(t.From),
		To:     string(t.To),
		Amount: t.Amount.StringFixed(2),
		Note:   t.Note,
	}
}

func toIncomeDTOs(points []envelope.IncomePoint) []IncomePointDTO {
	dtos := make([]IncomePointDTO, 0, len(points))
	for _, p := range points {
		dtos = append(dtos, IncomePointDTO{Month: p.Month.String(), Amount: p.Amount.StringFixed(2)})
	}
	return dtos
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
