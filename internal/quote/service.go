package quote

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/ontyx/ontyx/internal/docnumber"
	"github.com/ontyx/ontyx/internal/money"
)

const (
	quoteNumberPrefix   = "QT"
	invoiceNumberPrefix = "INV"

	// DefaultValidDays is how long a quote stays open when the caller
	// does not specify a validity window.
	DefaultValidDays = 30

	invoiceDueDays = 30

	// numberAttempts bounds regeneration when a random document number
	// suffix collides with an existing one.
	numberAttempts = 3
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=quote
type Repository interface {
	CreateQuote(ctx context.Context, q *Quote) error
	GetQuote(ctx context.Context, orgID, id uuid.UUID) (*Quote, error)
	ListQuotes(ctx context.Context, orgID uuid.UUID, filter ListFilter) ([]*Quote, error)
	UpdateDraft(ctx context.Context, q *Quote) error

	// Transition conditionally moves a quote to a new status. The write
	// only succeeds while the persisted status is still one of From;
	// otherwise it fails with *ConflictError.
	Transition(ctx context.Context, t Transition) error

	// ConvertQuote atomically creates the invoice and marks the quote
	// converted. Either both writes succeed or neither does.
	ConvertQuote(ctx context.Context, q *Quote, inv *Invoice) error
	GetInvoice(ctx context.Context, orgID, id uuid.UUID) (*Invoice, error)

	// ExpireQuotes ages out open quotes whose expiry date is strictly
	// before the given day. Callers pass midnight of the current day.
	ExpireQuotes(ctx context.Context, orgID uuid.UUID, before time.Time) (int64, error)
	DeleteQuote(ctx context.Context, orgID, id uuid.UUID, from []Status) error
}

// Transition is a conditional status update evaluated against the
// persisted row, not the in-memory copy.
type Transition struct {
	OrganizationID uuid.UUID
	QuoteID        uuid.UUID
	From           []Status
	To             Status
	At             time.Time
	Reason         string
}

type ListFilter struct {
	Status *Status
}

type Service struct {
	repo Repository
	now  func() time.Time
	rng  *rand.Rand
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

type CreateParams struct {
	CustomerName  string
	CustomerEmail string
	IssueDate     time.Time // zero value means today
	ValidDays     int       // zero means DefaultValidDays
	Title         string
	Notes         string
	Terms         string
	Currency      string
	Items         []money.LineItem
}

func (s *Service) Create(ctx context.Context, orgID uuid.UUID, params CreateParams) (*Quote, error) {
	if len(params.Items) == 0 {
		return nil, &ValidationError{Msg: "quote requires at least one line item"}
	}

	totals, err := money.Aggregate(params.Items)
	if err != nil {
		return nil, &ValidationError{Msg: "invalid line items", Err: err}
	}

	issueDate := params.IssueDate
	if issueDate.IsZero() {
		issueDate = s.now()
	}

	validDays := params.ValidDays
	if validDays <= 0 {
		validDays = DefaultValidDays
	}

	currency := params.Currency
	if currency == "" {
		currency = "CAD"
	}

	q := &Quote{
		OrganizationID: orgID,
		Status:         StatusDraft,
		CustomerName:   params.CustomerName,
		CustomerEmail:  params.CustomerEmail,
		IssueDate:      issueDate,
		ExpiryDate:     issueDate.AddDate(0, 0, validDays),
		Title:          params.Title,
		Notes:          params.Notes,
		Terms:          params.Terms,
		Currency:       currency,
		Items:          params.Items,
		Totals:         totals,
	}

	for attempt := 1; ; attempt++ {
		q.Number = docnumber.Generate(quoteNumberPrefix, issueDate, s.rng)

		err := s.repo.CreateQuote(ctx, q)
		if err == nil {
			return q, nil
		}

		if errors.Is(err, ErrDuplicateNumber) && attempt < numberAttempts {
			continue
		}

		return nil, fmt.Errorf("creating quote: %w", err)
	}
}

func (s *Service) Get(ctx context.Context, orgID, id uuid.UUID) (*Quote, error) {
	return s.repo.GetQuote(ctx, orgID, id)
}

func (s *Service) List(ctx context.Context, orgID uuid.UUID, filter ListFilter) ([]*Quote, error) {
	return s.repo.ListQuotes(ctx, orgID, filter)
}

type UpdateParams struct {
	CustomerName  *string
	CustomerEmail *string
	Title         *string
	Notes         *string
	Terms         *string
	ValidDays     *int
	Items         []money.LineItem // nil means unchanged
}

// Update mutates quote content. Permitted only while the quote is in
// draft; totals are re-derived whenever the items change.
func (s *Service) Update(ctx context.Context, orgID, id uuid.UUID, params UpdateParams) (*Quote, error) {
	q, err := s.repo.GetQuote(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	if q.Status != StatusDraft {
		return nil, &InvalidStateError{Op: "update", Status: q.Status}
	}

	if params.CustomerName != nil {
		q.CustomerName = *params.CustomerName
	}

	if params.CustomerEmail != nil {
		q.CustomerEmail = *params.CustomerEmail
	}

	if params.Title != nil {
		q.Title = *params.Title
	}

	if params.Notes != nil {
		q.Notes = *params.Notes
	}

	if params.Terms != nil {
		q.Terms = *params.Terms
	}

	if params.ValidDays != nil {
		if *params.ValidDays <= 0 {
			return nil, &ValidationError{Msg: "valid days must be greater than zero"}
		}

		q.ExpiryDate = q.IssueDate.AddDate(0, 0, *params.ValidDays)
	}

	if params.Items != nil {
		if len(params.Items) == 0 {
			return nil, &ValidationError{Msg: "quote requires at least one line item"}
		}

		totals, err := money.Aggregate(params.Items)
		if err != nil {
			return nil, &ValidationError{Msg: "invalid line items", Err: err}
		}

		q.Items = params.Items
		q.Totals = totals
	}

	if err := s.repo.UpdateDraft(ctx, q); err != nil {
		return nil, fmt.Errorf("updating quote: %w", err)
	}

	return q, nil
}

func (s *Service) Send(ctx context.Context, orgID, id uuid.UUID) (*Quote, error) {
	return s.transition(ctx, orgID, id, "send", StatusSent, "")
}

// MarkViewed records that the customer opened the quote. It is a
// side-channel marker and does not block accepting or rejecting.
func (s *Service) MarkViewed(ctx context.Context, orgID, id uuid.UUID) (*Quote, error) {
	return s.transition(ctx, orgID, id, "mark viewed", StatusViewed, "")
}

func (s *Service) Accept(ctx context.Context, orgID, id uuid.UUID) (*Quote, error) {
	return s.transition(ctx, orgID, id, "accept", StatusAccepted, "")
}

func (s *Service) Reject(ctx context.Context, orgID, id uuid.UUID, reason string) (*Quote, error) {
	return s.transition(ctx, orgID, id, "reject", StatusRejected, reason)
}

func (s *Service) transition(ctx context.Context, orgID, id uuid.UUID, op string, to Status, reason string) (*Quote, error) {
	q, err := s.repo.GetQuote(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	if !q.Status.CanTransitionTo(to) {
		return nil, &InvalidStateError{Op: op, Status: q.Status}
	}

	at := s.now()

	err = s.repo.Transition(ctx, Transition{
		OrganizationID: orgID,
		QuoteID:        id,
		From:           sourcesOf(to),
		To:             to,
		At:             at,
		Reason:         reason,
	})
	if err != nil {
		return nil, fmt.Errorf("%s quote: %w", op, err)
	}

	q.Status = to

	switch to {
	case StatusSent:
		q.SentAt = &at
	case StatusViewed:
		q.ViewedAt = &at
	case StatusAccepted:
		q.AcceptedAt = &at
	case StatusRejected:
		q.RejectedAt = &at
		q.RejectionReason = reason
	}

	return q, nil
}

// sourcesOf returns every status from which `to` is reachable, so the
// store's conditional write enforces the same table the service checked.
func sourcesOf(to Status) []Status {
	var from []Status

	for _, s := range AllStatuses {
		if s.CanTransitionTo(to) {
			from = append(from, s)
		}
	}

	return from
}

// Convert snapshots an accepted quote into a new invoice. It is
// idempotent: converting an already converted quote returns the existing
// invoice without creating a second one.
func (s *Service) Convert(ctx context.Context, orgID, id uuid.UUID) (*Invoice, error) {
	q, err := s.repo.GetQuote(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	if q.ConvertedInvoiceID != nil {
		return s.repo.GetInvoice(ctx, orgID, *q.ConvertedInvoiceID)
	}

	if q.Status != StatusAccepted {
		return nil, &InvalidStateError{Op: "convert", Status: q.Status}
	}

	issueDate := s.now()

	inv := &Invoice{
		ID:             uuid.New(),
		OrganizationID: orgID,
		QuoteID:        q.ID,
		CustomerName:   q.CustomerName,
		CustomerEmail:  q.CustomerEmail,
		IssueDate:      issueDate,
		DueDate:        issueDate.AddDate(0, 0, invoiceDueDays),
		Notes:          fmt.Sprintf("Converted from Quote %s", q.Number),
		Currency:       q.Currency,
		Items:          q.Items,
		Totals:         q.Totals,
		AmountDue:      q.Totals.Total,
	}

	for attempt := 1; ; attempt++ {
		inv.Number = docnumber.Generate(invoiceNumberPrefix, issueDate, s.rng)

		err := s.repo.ConvertQuote(ctx, q, inv)
		if err == nil {
			return inv, nil
		}

		if errors.Is(err, ErrDuplicateNumber) && attempt < numberAttempts {
			continue
		}

		return nil, fmt.Errorf("converting quote: %w", err)
	}
}

// ExpireOld marks every quote still open past its expiry date as expired.
// A quote stays open through its expiry day; only quotes whose expiry date
// is strictly before today age out. Running it twice is a no-op the second
// time.
func (s *Service) ExpireOld(ctx context.Context, orgID uuid.UUID) (int64, error) {
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	return s.repo.ExpireQuotes(ctx, orgID, today)
}

func (s *Service) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	q, err := s.repo.GetQuote(ctx, orgID, id)
	if err != nil {
		return err
	}

	if !slices.Contains(deletableStatuses, q.Status) {
		return &InvalidStateError{Op: "delete", Status: q.Status}
	}

	return s.repo.DeleteQuote(ctx, orgID, id, deletableStatuses)
}

// Stats recomputes the dashboard snapshot from the organization's current
// quotes.
func (s *Service) Stats(ctx context.Context, orgID uuid.UUID) (Stats, error) {
	quotes, err := s.repo.ListQuotes(ctx, orgID, ListFilter{})
	if err != nil {
		return Stats{}, err
	}

	return ComputeStats(quotes), nil
}
