package quote

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ontyx/ontyx/internal/money"
	"github.com/ontyx/ontyx/internal/quote"
)

type quoteResponse struct {
	ID                 uuid.UUID        `json:"id"`
	Number             string           `json:"number"`
	Status             quote.Status     `json:"status"`
	CustomerName       string           `json:"customer_name"`
	CustomerEmail      string           `json:"customer_email,omitempty"`
	IssueDate          time.Time        `json:"issue_date"`
	ExpiryDate         time.Time        `json:"expiry_date"`
	Title              string           `json:"title,omitempty"`
	Notes              string           `json:"notes,omitempty"`
	Terms              string           `json:"terms,omitempty"`
	Currency           string           `json:"currency"`
	Items              []money.LineItem `json:"items"`
	Subtotal           decimal.Decimal  `json:"subtotal"`
	DiscountTotal      decimal.Decimal  `json:"discount_total"`
	TaxTotal           decimal.Decimal  `json:"tax_total"`
	Total              decimal.Decimal  `json:"total"`
	RejectionReason    string           `json:"rejection_reason,omitempty"`
	SentAt             *time.Time       `json:"sent_at,omitempty"`
	ViewedAt           *time.Time       `json:"viewed_at,omitempty"`
	AcceptedAt         *time.Time       `json:"accepted_at,omitempty"`
	RejectedAt         *time.Time       `json:"rejected_at,omitempty"`
	ConvertedAt        *time.Time       `json:"converted_at,omitempty"`
	ConvertedInvoiceID *uuid.UUID       `json:"converted_invoice_id,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          *time.Time       `json:"updated_at,omitempty"`
}

func toResponse(q *quote.Quote) quoteResponse {
	return quoteResponse{
		ID:                 q.ID,
		Number:             q.Number,
		Status:             q.Status,
		CustomerName:       q.CustomerName,
		CustomerEmail:      q.CustomerEmail,
		IssueDate:          q.IssueDate,
		ExpiryDate:         q.ExpiryDate,
		Title:              q.Title,
		Notes:              q.Notes,
		Terms:              q.Terms,
		Currency:           q.Currency,
		Items:              q.Items,
		Subtotal:           q.Totals.Subtotal,
		DiscountTotal:      q.Totals.DiscountTotal,
		TaxTotal:           q.Totals.TaxTotal,
		Total:              q.Totals.Total,
		RejectionReason:    q.RejectionReason,
		SentAt:             q.SentAt,
		ViewedAt:           q.ViewedAt,
		AcceptedAt:         q.AcceptedAt,
		RejectedAt:         q.RejectedAt,
		ConvertedAt:        q.ConvertedAt,
		ConvertedInvoiceID: q.ConvertedInvoiceID,
		CreatedAt:          q.CreatedAt,
		UpdatedAt:          q.UpdatedAt,
	}
}

func toResponseList(quotes []*quote.Quote) []quoteResponse {
	resp := make([]quoteResponse, len(quotes))
	for i, q := range quotes {
		resp[i] = toResponse(q)
	}

	return resp
}

type invoiceResponse struct {
	ID            uuid.UUID        `json:"id"`
	Number        string           `json:"number"`
	QuoteID       uuid.UUID        `json:"quote_id"`
	CustomerName  string           `json:"customer_name"`
	CustomerEmail string           `json:"customer_email,omitempty"`
	IssueDate     time.Time        `json:"issue_date"`
	DueDate       time.Time        `json:"due_date"`
	Notes         string           `json:"notes,omitempty"`
	Currency      string           `json:"currency"`
	Items         []money.LineItem `json:"items"`
	Subtotal      decimal.Decimal  `json:"subtotal"`
	DiscountTotal decimal.Decimal  `json:"discount_total"`
	TaxTotal      decimal.Decimal  `json:"tax_total"`
	Total         decimal.Decimal  `json:"total"`
	AmountDue     decimal.Decimal  `json:"amount_due"`
	CreatedAt     time.Time        `json:"created_at"`
}

func toInvoiceResponse(inv *quote.Invoice) invoiceResponse {
	return invoiceResponse{
		ID:            inv.ID,
		Number:        inv.Number,
		QuoteID:       inv.QuoteID,
		CustomerName:  inv.CustomerName,
		CustomerEmail: inv.CustomerEmail,
		IssueDate:     inv.IssueDate,
		DueDate:       inv.DueDate,
		Notes:         inv.Notes,
		Currency:      inv.Currency,
		Items:         inv.Items,
		Subtotal:      inv.Totals.Subtotal,
		DiscountTotal: inv.Totals.DiscountTotal,
		TaxTotal:      inv.Totals.TaxTotal,
		Total:         inv.Totals.Total,
		AmountDue:     inv.AmountDue,
		CreatedAt:     inv.CreatedAt,
	}
}

type statsResponse struct {
	Total          int                  `json:"total"`
	ByStatus       map[quote.Status]int `json:"by_status"`
	TotalValue     decimal.Decimal      `json:"total_value"`
	AcceptedValue  decimal.Decimal      `json:"accepted_value"`
	ConversionRate float64              `json:"conversion_rate"`
}

func toStatsResponse(s quote.Stats) statsResponse {
	return statsResponse{
		Total:          s.Total,
		ByStatus:       s.ByStatus,
		TotalValue:     s.TotalValue,
		AcceptedValue:  s.AcceptedValue,
		ConversionRate: s.ConversionRate,
	}
}
