/*
handlers.go - HTTP handlers for the ledger core

PURPOSE:
  Exposes the embedded ledger via REST. Handles HTTP request/response,
  JSON serialization, and delegates every mutation to the store's single
  funnel - handlers never touch balances or the entry set directly.

ENDPOINTS:
  Entries:
    POST   /api/entries           Add entry
    PUT    /api/entries/{id}      Update (full replace)
    DELETE /api/entries/{id}      Delete
    POST   /api/entries/bulk      Bulk import (idempotent)

  Transfers:
    POST   /api/transfers         Account-to-account transfer

  Series:
    DELETE /api/series/{id}       Cancel a recurring series

  Queries:
    GET    /api/summary           Income/expense/net for a window
    GET    /api/categories/totals Per-category totals for a window
    GET    /api/days/{date}       One day's total

  Accounts & categories:
    GET/POST /api/accounts
    GET/POST /api/categories

  Admin:
    GET    /api/admin/integrity   Aggregate-vs-entries consistency check
    POST   /api/admin/rebuild     Rebuild the aggregate index

ERROR HANDLING:
  - 400: validation errors
  - 404: entry/account not found
  - 409: duplicate entry
  - 500: internal / persistence failures

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/ledger-engine/factory"
	"github.com/warp/ledger-engine/ledger"
	"github.com/warp/ledger-engine/repo/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   *ledger.Store
	Factory *factory.Factory
	DB      *sqlite.DB
	Log     *zap.Logger
}

func NewHandler(store *ledger.Store, f *factory.Factory, db *sqlite.DB, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Store: store, Factory: f, DB: db, Log: log}
}

// =============================================================================
// ENTRY MUTATIONS
// =============================================================================

func (h *Handler) AddEntry(w http.ResponseWriter, r *http.Request) {
	var in factory.EntryInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	e, err := h.Factory.Build(in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	e, err = h.Store.Add(r.Context(), e)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntryDTO(e))
}

func (h *Handler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var in factory.EntryInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	e, err := h.Factory.Build(in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	e.ID = ledger.EntryID(id)
	if err := h.Store.Update(r.Context(), e); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(e))
}

func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	win, _, err := parseWindowQuery(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	entries := h.Store.EntriesInWindow(win)
	out := make([]EntryDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryDTO(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	id := ledger.EntryID(chi.URLParam(r, "id"))
	if err := h.Store.Delete(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) BulkAddEntries(w http.ResponseWriter, r *http.Request) {
	var ins []factory.EntryInput
	if err := json.NewDecoder(r.Body).Decode(&ins); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	batch, err := h.Factory.BuildBatch(ins)
	if err != nil {
		h.writeError(w, err)
		return
	}
	addedEntries, skipped, err := h.Store.BulkAdd(r.Context(), batch)
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := BulkAddResponse{Skipped: skipped}
	for _, e := range addedEntries {
		resp.Added = append(resp.Added, toEntryDTO(e))
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	date, err := ledger.ParseDate(req.Date)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	e, err := h.Store.Transfer(r.Context(), ledger.TransferInput{
		SourceID:    ledger.AccountID(req.SourceAccountID),
		TargetID:    ledger.AccountID(req.TargetAccountID),
		Amount:      decimal.NewFromFloat(req.Amount),
		Currency:    req.Currency,
		Date:        date,
		Description: req.Description,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntryDTO(e))
}

func (h *Handler) DeleteSeries(w http.ResponseWriter, r *http.Request) {
	seriesID := chi.URLParam(r, "id")
	n, err := h.Store.DeleteSeries(r.Context(), seriesID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteSeriesResponse{Deleted: n})
}

// =============================================================================
// QUERIES
// =============================================================================

func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	win, currency, err := parseWindowQuery(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	s, err := h.Store.Summary(win, currency)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SummaryDTO{
		TotalIncome:  s.TotalIncome.String(),
		TotalExpense: s.TotalExpense.String(),
		NetFlow:      s.NetFlow.String(),
	})
}

func (h *Handler) GetCategoryTotals(w http.ResponseWriter, r *http.Request) {
	win, currency, err := parseWindowQuery(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	totals, err := h.Store.CategoryTotals(win, currency, r.URL.Query().Get("category"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	out := make([]CategoryTotalDTO, 0, len(totals))
	for k, v := range totals {
		out = append(out, CategoryTotalDTO{Category: k.Category, Subcategory: k.Subcategory, Total: v.String()})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Subcategory < out[j].Subcategory
	})
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetDailyTotal(w http.ResponseWriter, r *http.Request) {
	date, err := ledger.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	currency := r.URL.Query().Get("currency")

	total, err := h.Store.DailyTotal(date, currency)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DailyTotalDTO{Date: date.String(), Total: total.String()})
}

// =============================================================================
// ACCOUNTS AND CATEGORIES
// =============================================================================

func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts := h.Store.Accounts()
	out := make([]AccountDTO, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountDTO(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" || req.Currency == "" {
		writeJSONError(w, http.StatusBadRequest, "name and currency are required")
		return
	}

	a := ledger.Account{
		ID:             ledger.AccountID(uuid.NewString()),
		Name:           req.Name,
		Currency:       req.Currency,
		OpeningBalance: decimal.NewFromFloat(req.OpeningBalance),
	}
	if h.DB != nil {
		if err := h.DB.SaveAccount(r.Context(), a); err != nil {
			h.writeError(w, err)
			return
		}
	}
	h.Store.RegisterAccount(a)

	registered, _ := h.Store.Account(a.ID)
	writeJSON(w, http.StatusCreated, toAccountDTO(registered))
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeJSONError(w, http.StatusBadRequest, "name is required")
		return
	}
	if h.DB != nil {
		if err := h.DB.SaveCategory(r.Context(), req.Name); err != nil {
			h.writeError(w, err)
			return
		}
	}
	h.Store.RegisterCategory(req.Name)
	w.WriteHeader(http.StatusCreated)
}

// =============================================================================
// ADMIN
// =============================================================================

func (h *Handler) CheckIntegrity(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.CheckIntegrity(); err != nil {
		h.Log.Warn("integrity check failed", zap.Error(err))
		writeJSONError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "consistent"})
}

func (h *Handler) RebuildIndex(w http.ResponseWriter, r *http.Request) {
	h.Store.RebuildIndex()
	writeJSON(w, http.StatusOK, map[string]string{"status": "rebuilt"})
}

// =============================================================================
// HELPERS
// =============================================================================

func parseWindowQuery(r *http.Request) (ledger.Window, string, error) {
	q := r.URL.Query()
	currency := q.Get("currency")

	if q.Get("all") == "true" {
		return ledger.AllTime(), currency, nil
	}
	from, err := ledger.ParseDate(q.Get("from"))
	if err != nil {
		return ledger.Window{}, "", err
	}
	to, err := ledger.ParseDate(q.Get("to"))
	if err != nil {
		return ledger.Window{}, "", err
	}
	return ledger.Range(from, to), currency, nil
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrDuplicateEntry):
		writeJSONError(w, http.StatusConflict, err.Error())
	case ledger.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, err.Error())
	case ledger.IsClientError(err):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	default:
		h.Log.Error("internal error", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
