package quote

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ontyx/ontyx/internal/money"
)

// Status represents the lifecycle state of a quote.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSent      Status = "sent"
	StatusViewed    Status = "viewed"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusExpired   Status = "expired"
	StatusConverted Status = "converted"
)

// AllStatuses lists every lifecycle state, in transition order.
var AllStatuses = []Status{
	StatusDraft, StatusSent, StatusViewed, StatusAccepted,
	StatusRejected, StatusExpired, StatusConverted,
}

// transitions is the single source of truth for the quote lifecycle.
// Rejected, expired and converted are terminal.
var transitions = map[Status][]Status{
	StatusDraft:    {StatusSent, StatusExpired},
	StatusSent:     {StatusViewed, StatusAccepted, StatusRejected, StatusExpired},
	StatusViewed:   {StatusAccepted, StatusRejected, StatusExpired},
	StatusAccepted: {StatusConverted},
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}

	return false
}

// Terminal reports whether no further transition is defined for s.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// ExpirableStatuses are the states a quote can age out of.
var ExpirableStatuses = []Status{StatusDraft, StatusSent, StatusViewed}

// deletableStatuses are the only states in which a quote may be destroyed.
var deletableStatuses = []Status{StatusDraft, StatusRejected}

// Quote is the aggregate root for a customer quote. Content is mutable
// only while in draft; after sending, only status and timestamps change.
type Quote struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Number         string
	Status         Status

	CustomerName  string
	CustomerEmail string

	IssueDate  time.Time
	ExpiryDate time.Time

	Title    string
	Notes    string
	Terms    string
	Currency string

	Items  []money.LineItem
	Totals money.Totals

	RejectionReason string

	SentAt      *time.Time
	ViewedAt    *time.Time
	AcceptedAt  *time.Time
	RejectedAt  *time.Time
	ConvertedAt *time.Time

	ConvertedInvoiceID *uuid.UUID

	CreatedAt time.Time
	UpdatedAt *time.Time
}

// Invoice is the snapshot produced when an accepted quote is converted.
// Line items and totals are copied verbatim from the quote.
type Invoice struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Number         string
	QuoteID        uuid.UUID

	CustomerName  string
	CustomerEmail string

	IssueDate time.Time
	DueDate   time.Time

	Notes    string
	Currency string

	Items  []money.LineItem
	Totals money.Totals

	AmountDue decimal.Decimal

	CreatedAt time.Time
}
