package quote

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ontyx/ontyx/internal/http/tenant"
	"github.com/ontyx/ontyx/internal/money"
	"github.com/ontyx/ontyx/internal/quote"
)

type Handler struct {
	svc *quote.Service
}

func NewHandler(svc *quote.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/stats", h.stats)
	r.Post("/expire", h.expire)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Post("/{id}/send", h.send)
	r.Post("/{id}/view", h.markViewed)
	r.Post("/{id}/accept", h.accept)
	r.Post("/{id}/reject", h.reject)
	r.Post("/{id}/convert", h.convert)
}

func writeError(w http.ResponseWriter, err error) {
	var validationErr *quote.ValidationError

	var stateErr *quote.InvalidStateError

	var conflictErr *quote.ConflictError

	switch {
	case errors.As(err, &validationErr):
		http.Error(w, validationErr.Error(), http.StatusBadRequest)
	case errors.As(err, &stateErr):
		http.Error(w, stateErr.Error(), http.StatusConflict)
	case errors.As(err, &conflictErr):
		http.Error(w, conflictErr.Error(), http.StatusConflict)
	case errors.Is(err, quote.ErrNotFound):
		http.Error(w, "quote not found", http.StatusNotFound)
	default:
		slog.Error("quote request failed", "error", err)
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

func orgID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := tenant.OrgID(r.Context())
	if !ok {
		http.Error(w, "missing organization", http.StatusUnauthorized)
	}

	return id, ok
}

func quoteID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return uuid.Nil, false
	}

	return id, true
}

type createQuoteRequest struct {
	CustomerName  string           `json:"customer_name"`
	CustomerEmail string           `json:"customer_email"`
	IssueDate     time.Time        `json:"issue_date"`
	ValidDays     int              `json:"valid_days"`
	Title         string           `json:"title"`
	Notes         string           `json:"notes"`
	Terms         string           `json:"terms"`
	Currency      string           `json:"currency"`
	Items         []money.LineItem `json:"items"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	org, ok := orgID(w, r)
	if !ok {
		return
	}

	var req createQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	q, err := h.svc.Create(r.Context(), org, quote.CreateParams{
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		IssueDate:     req.IssueDate,
		ValidDays:     req.ValidDays,
		Title:         req.Title,
		Notes:         req.Notes,
		Terms:         req.Terms,
		Currency:      req.Currency,
		Items:         req.Items,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toResponse(q))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	org, ok := orgID(w, r)
	if !ok {
		return
	}

	filter := quote.ListFilter{}

	if s := r.URL.Query().Get("status"); s != "" {
		st := quote.Status(s)
		filter.Status = &st
	}

	quotes, err := h.svc.List(r.Context(), org, filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toResponseList(quotes))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	org, ok := orgID(w, r)
	if !ok {
		return
	}

	id, ok := quoteID(w, r)
	if !ok {
		return
	}

	q, err := h.svc.Get(r.Context(), org, id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toResponse(q))
}

type updateQuoteRequest struct {
	CustomerName  *string          `json:"customer_name,omitempty"`
	CustomerEmail *string          `json:"customer_email,omitempty"`
	Title         *string          `json:"title,omitempty"`
	Notes         *string          `json:"notes,omitempty"`
	Terms         *string          `json:"terms,omitempty"`
	ValidDays     *int             `json:"valid_days,omitempty"`
	Items         []money.LineItem `json:"items,omitempty"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	org, ok := orgID(w, r)
	if !ok {
		return
	}

	id, ok := quoteID(w, r)
	if !ok {
		return
	}

	var req updateQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	q, err := h.svc.Update(r.Context(), org, id, quote.UpdateParams{
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		Title:         req.Title,
		Notes:         req.Notes,
		Terms:         req.Terms,
		ValidDays:     req.ValidDays,
		Items:         req.Items,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toResponse(q))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	org, ok := orgID(w, r)
	if !ok {
		return
	}

	id, ok := quoteID(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), org, id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) send(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Send)
}

func (h *Handler) markViewed(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.MarkViewed)
}

func (h *Handler) accept(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Accept)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, orgID, id uuid.UUID) (*quote.Quote, error)) {
	org, ok := orgID(w, r)
	if !ok {
		return
	}

	id, ok := quoteID(w, r)
	if !ok {
		return
	}

	q, err := op(r.Context(), org, id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toResponse(q))
}

type rejectQuoteRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	org, ok := orgID(w, r)
	if !ok {
		return
	}

	id, ok := quoteID(w, r)
	if !ok {
		return
	}

	var req rejectQuoteRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	q, err := h.svc.Reject(r.Context(), org, id, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toResponse(q))
}

func (h *Handler) convert(w http.ResponseWriter, r *http.Request) {
	org, ok := orgID(w, r)
	if !ok {
		return
	}

	id, ok := quoteID(w, r)
	if !ok {
		return
	}

	inv, err := h.svc.Convert(r.Context(), org, id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toInvoiceResponse(inv))
}

type expireResponse struct {
	Expired int64 `json:"expired"`
}

func (h *Handler) expire(w http.ResponseWriter, r *http.Request) {
	org, ok := orgID(w, r)
	if !ok {
		return
	}

	n, err := h.svc.ExpireOld(r.Context(), org)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, expireResponse{Expired: n})
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	org, ok := orgID(w, r)
	if !ok {
		return
	}

	stats, err := h.svc.Stats(r.Context(), org)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toStatsResponse(stats))
}
