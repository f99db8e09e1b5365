package journal

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ontyx/ontyx/internal/http/tenant"
	"github.com/ontyx/ontyx/internal/journal"
)

type Handler struct {
	svc *journal.Service
}

func NewHandler(svc *journal.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Post("/validate", h.validate)
	r.Get("/{id}", h.get)
}

func writeError(w http.ResponseWriter, err error) {
	var validationErr *journal.ValidationError

	var unbalancedErr *journal.UnbalancedEntryError

	switch {
	case errors.As(err, &validationErr):
		http.Error(w, validationErr.Error(), http.StatusBadRequest)
	case errors.As(err, &unbalancedErr):
		http.Error(w, unbalancedErr.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, journal.ErrNotFound):
		http.Error(w, "journal entry not found", http.StatusNotFound)
	default:
		slog.Error("journal request failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type lineRequest struct {
	AccountID    uuid.UUID       `json:"account_id"`
	Description  string          `json:"description"`
	DebitAmount  decimal.Decimal `json:"debit_amount"`
	CreditAmount decimal.Decimal `json:"credit_amount"`
}

func toLines(reqs []lineRequest) []journal.Line {
	lines := make([]journal.Line, len(reqs))
	for i, l := range reqs {
		lines[i] = journal.Line{
			AccountID:   l.AccountID,
			Description: l.Description,
			Debit:       l.DebitAmount,
			Credit:      l.CreditAmount,
		}
	}

	return lines
}

type createEntryRequest struct {
	EntryDate   time.Time     `json:"entry_date"`
	Description string        `json:"description"`
	Reference   string        `json:"reference"`
	Lines       []lineRequest `json:"lines"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	org, ok := tenant.OrgID(r.Context())
	if !ok {
		http.Error(w, "missing organization", http.StatusUnauthorized)
		return
	}

	var req createEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	e, err := h.svc.Create(r.Context(), org, journal.CreateParams{
		EntryDate:   req.EntryDate,
		Description: req.Description,
		Reference:   req.Reference,
		Lines:       toLines(req.Lines),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toResponse(e))
}

type validateRequest struct {
	Lines []lineRequest `json:"lines"`
}

// validateResponse powers the balance-check indicator in the entry form.
type validateResponse struct {
	Balanced    bool            `json:"balanced"`
	TotalDebit  decimal.Decimal `json:"total_debit"`
	TotalCredit decimal.Decimal `json:"total_credit"`
	Difference  decimal.Decimal `json:"difference"`
	Error       string          `json:"error,omitempty"`
}

func (h *Handler) validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	_, err := journal.Validate(toLines(req.Lines))
	if err == nil {
		writeJSON(w, http.StatusOK, validateResponse{Balanced: true})
		return
	}

	var unbalancedErr *journal.UnbalancedEntryError
	if errors.As(err, &unbalancedErr) {
		writeJSON(w, http.StatusOK, validateResponse{
			Balanced:    false,
			TotalDebit:  unbalancedErr.TotalDebit,
			TotalCredit: unbalancedErr.TotalCredit,
			Difference:  unbalancedErr.Difference,
			Error:       unbalancedErr.Error(),
		})

		return
	}

	writeError(w, err)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	org, ok := tenant.OrgID(r.Context())
	if !ok {
		http.Error(w, "missing organization", http.StatusUnauthorized)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	e, err := h.svc.Get(r.Context(), org, id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toResponse(e))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	org, ok := tenant.OrgID(r.Context())
	if !ok {
		http.Error(w, "missing organization", http.StatusUnauthorized)
		return
	}

	entries, err := h.svc.List(r.Context(), org)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]entryResponse, len(entries))
	for i, e := range entries {
		resp[i] = toResponse(e)
	}

	writeJSON(w, http.StatusOK, resp)
}

type lineResponse struct {
	AccountID    uuid.UUID       `json:"account_id"`
	Description  string          `json:"description,omitempty"`
	DebitAmount  decimal.Decimal `json:"debit_amount"`
	CreditAmount decimal.Decimal `json:"credit_amount"`
}

type entryResponse struct {
	ID          uuid.UUID      `json:"id"`
	EntryDate   time.Time      `json:"entry_date"`
	Description string         `json:"description"`
	Reference   string         `json:"reference,omitempty"`
	Lines       []lineResponse `json:"lines"`
	CreatedAt   time.Time      `json:"created_at"`
}

func toResponse(e *journal.Entry) entryResponse {
	lines := make([]lineResponse, len(e.Lines))
	for i, l := range e.Lines {
		lines[i] = lineResponse{
			AccountID:    l.AccountID,
			Description:  l.Description,
			DebitAmount:  l.Debit,
			CreditAmount: l.Credit,
		}
	}

	return entryResponse{
		ID:          e.ID,
		EntryDate:   e.EntryDate,
		Description: e.Description,
		Reference:   e.Reference,
		Lines:       lines,
		CreatedAt:   e.CreatedAt,
	}
}
