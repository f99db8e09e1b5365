package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ontyx/ontyx/internal/quote"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

const selectQuoteColumns = `
	id, organization_id, number, status, customer_name, customer_email,
	issue_date, expiry_date, title, notes, terms, currency,
	items, subtotal, discount_total, tax_total, total,
	rejection_reason, sent_at, viewed_at, accepted_at, rejected_at, converted_at,
	converted_invoice_id, created_at, updated_at
`

// scanQuote reads a quote row in selectQuoteColumns order.
func scanQuote(s scanner) (*quote.Quote, error) {
	var q quote.Quote

	var statusStr string

	var itemsJSON []byte

	if err := s.Scan(
		&q.ID, &q.OrganizationID, &q.Number, &statusStr, &q.CustomerName, &q.CustomerEmail,
		&q.IssueDate, &q.ExpiryDate, &q.Title, &q.Notes, &q.Terms, &q.Currency,
		&itemsJSON, &q.Totals.Subtotal, &q.Totals.DiscountTotal, &q.Totals.TaxTotal, &q.Totals.Total,
		&q.RejectionReason, &q.SentAt, &q.ViewedAt, &q.AcceptedAt, &q.RejectedAt, &q.ConvertedAt,
		&q.ConvertedInvoiceID, &q.CreatedAt, &q.UpdatedAt,
	); err != nil {
		return nil, err
	}

	q.Status = quote.Status(statusStr)

	if err := json.Unmarshal(itemsJSON, &q.Items); err != nil {
		return nil, fmt.Errorf("decoding items: %w", err)
	}

	return &q, nil
}

func (s *Store) CreateQuote(ctx context.Context, q *quote.Quote) error {
	itemsJSON, err := json.Marshal(q.Items)
	if err != nil {
		return fmt.Errorf("encoding items: %w", err)
	}

	query := `
		INSERT INTO quotes (
			organization_id, number, status, customer_name, customer_email,
			issue_date, expiry_date, title, notes, terms, currency,
			items, subtotal, discount_total, tax_total, total,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NOW(), NOW())
		RETURNING id, created_at
	`

	err = s.db.QueryRowContext(ctx, query,
		q.OrganizationID, q.Number, q.Status, q.CustomerName, q.CustomerEmail,
		q.IssueDate, q.ExpiryDate, q.Title, q.Notes, q.Terms, q.Currency,
		itemsJSON, q.Totals.Subtotal, q.Totals.DiscountTotal, q.Totals.TaxTotal, q.Totals.Total,
	).Scan(&q.ID, &q.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return quote.ErrDuplicateNumber
		}

		return fmt.Errorf("creating quote: %w", err)
	}

	return nil
}

func (s *Store) GetQuote(ctx context.Context, orgID, id uuid.UUID) (*quote.Quote, error) {
	query := `SELECT ` + selectQuoteColumns + `
		FROM quotes
		WHERE id = $1 AND organization_id = $2`

	q, err := scanQuote(s.db.QueryRowContext(ctx, query, id, orgID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, quote.ErrNotFound
		}

		return nil, fmt.Errorf("getting quote: %w", err)
	}

	return q, nil
}

func (s *Store) ListQuotes(ctx context.Context, orgID uuid.UUID, filter quote.ListFilter) ([]*quote.Quote, error) {
	query := `SELECT ` + selectQuoteColumns + `
		FROM quotes
		WHERE organization_id = $1`

	args := []any{orgID}

	if filter.Status != nil {
		query += " AND status = $2"

		args = append(args, *filter.Status)
	}

	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing quotes: %w", err)
	}
	defer rows.Close()

	var quotes []*quote.Quote

	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning quote: %w", err)
		}

		quotes = append(quotes, q)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating quote rows: %w", err)
	}

	return quotes, nil
}

// UpdateDraft writes quote content conditionally on the row still being a
// draft, so a concurrent send cannot race a content edit.
func (s *Store) UpdateDraft(ctx context.Context, q *quote.Quote) error {
	itemsJSON, err := json.Marshal(q.Items)
	if err != nil {
		return fmt.Errorf("encoding items: %w", err)
	}

	query := `
		UPDATE quotes
		SET customer_name = $1, customer_email = $2, expiry_date = $3,
			title = $4, notes = $5, terms = $6,
			items = $7, subtotal = $8, discount_total = $9, tax_total = $10, total = $11,
			updated_at = NOW()
		WHERE id = $12 AND organization_id = $13 AND status = $14
	`

	res, err := s.db.ExecContext(ctx, query,
		q.CustomerName, q.CustomerEmail, q.ExpiryDate,
		q.Title, q.Notes, q.Terms,
		itemsJSON, q.Totals.Subtotal, q.Totals.DiscountTotal, q.Totals.TaxTotal, q.Totals.Total,
		q.ID, q.OrganizationID, quote.StatusDraft,
	)
	if err != nil {
		return fmt.Errorf("updating quote: %w", err)
	}

	return s.checkAffected(ctx, res, q.OrganizationID, q.ID, "update")
}

// stampColumn maps a target status to its timestamp column.
func stampColumn(to quote.Status) string {
	switch to {
	case quote.StatusSent:
		return "sent_at"
	case quote.StatusViewed:
		return "viewed_at"
	case quote.StatusAccepted:
		return "accepted_at"
	case quote.StatusRejected:
		return "rejected_at"
	default:
		return ""
	}
}

// Transition re-verifies the lifecycle check against the persisted status
// at the point of write. A quote that moved out of the allowed source
// states since it was read fails with *quote.ConflictError.
func (s *Store) Transition(ctx context.Context, t quote.Transition) error {
	query := "UPDATE quotes SET status = $1, updated_at = NOW()"
	args := []any{t.To}

	argIdx := 2

	if col := stampColumn(t.To); col != "" {
		query += fmt.Sprintf(", %s = $%d", col, argIdx)

		args = append(args, t.At)
		argIdx++
	}

	if t.To == quote.StatusRejected {
		query += fmt.Sprintf(", rejection_reason = $%d", argIdx)

		args = append(args, t.Reason)
		argIdx++
	}

	query += fmt.Sprintf(" WHERE id = $%d AND organization_id = $%d AND status IN (", argIdx, argIdx+1)
	args = append(args, t.QuoteID, t.OrganizationID)
	argIdx += 2

	for i, from := range t.From {
		if i > 0 {
			query += ", "
		}

		query += fmt.Sprintf("$%d", argIdx)

		args = append(args, from)
		argIdx++
	}

	query += ")"

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("transitioning quote: %w", err)
	}

	return s.checkAffected(ctx, res, t.OrganizationID, t.QuoteID, fmt.Sprintf("transition to %s", t.To))
}

// checkAffected distinguishes a missing quote from a failed optimistic
// precondition after a conditional write touched zero rows.
func (s *Store) checkAffected(ctx context.Context, res sql.Result, orgID, id uuid.UUID, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}

	if affected > 0 {
		return nil
	}

	var exists bool
	err = s.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM quotes WHERE id = $1 AND organization_id = $2)",
		id, orgID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking quote existence: %w", err)
	}

	if !exists {
		return quote.ErrNotFound
	}

	return &quote.ConflictError{Op: op}
}

// ConvertQuote inserts the invoice and flips the quote to converted in
// one database transaction, so a failed status update rolls the invoice
// back too.
func (s *Store) ConvertQuote(ctx context.Context, q *quote.Quote, inv *quote.Invoice) error {
	itemsJSON, err := json.Marshal(inv.Items)
	if err != nil {
		return fmt.Errorf("encoding items: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	invoiceQuery := `
		INSERT INTO invoices (
			id, organization_id, number, quote_id, customer_name, customer_email,
			issue_date, due_date, notes, currency,
			items, subtotal, discount_total, tax_total, total, amount_due,
			created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NOW())
		RETURNING created_at
	`

	err = tx.QueryRowContext(ctx, invoiceQuery,
		inv.ID, inv.OrganizationID, inv.Number, inv.QuoteID, inv.CustomerName, inv.CustomerEmail,
		inv.IssueDate, inv.DueDate, inv.Notes, inv.Currency,
		itemsJSON, inv.Totals.Subtotal, inv.Totals.DiscountTotal, inv.Totals.TaxTotal, inv.Totals.Total, inv.AmountDue,
	).Scan(&inv.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return quote.ErrDuplicateNumber
		}

		return fmt.Errorf("creating invoice: %w", err)
	}

	quoteQuery := `
		UPDATE quotes
		SET status = $1, converted_invoice_id = $2, converted_at = NOW(), updated_at = NOW()
		WHERE id = $3 AND organization_id = $4 AND status = $5
	`

	res, err := tx.ExecContext(ctx, quoteQuery,
		quote.StatusConverted, inv.ID, q.ID, q.OrganizationID, quote.StatusAccepted,
	)
	if err != nil {
		return fmt.Errorf("marking quote converted: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}

	if affected == 0 {
		return &quote.ConflictError{Op: "convert"}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing conversion: %w", err)
	}

	return nil
}

const selectInvoiceColumns = `
	id, organization_id, number, quote_id, customer_name, customer_email,
	issue_date, due_date, notes, currency,
	items, subtotal, discount_total, tax_total, total, amount_due, created_at
`

func (s *Store) GetInvoice(ctx context.Context, orgID, id uuid.UUID) (*quote.Invoice, error) {
	query := `SELECT ` + selectInvoiceColumns + `
		FROM invoices
		WHERE id = $1 AND organization_id = $2`

	var inv quote.Invoice

	var itemsJSON []byte

	err := s.db.QueryRowContext(ctx, query, id, orgID).Scan(
		&inv.ID, &inv.OrganizationID, &inv.Number, &inv.QuoteID, &inv.CustomerName, &inv.CustomerEmail,
		&inv.IssueDate, &inv.DueDate, &inv.Notes, &inv.Currency,
		&itemsJSON, &inv.Totals.Subtotal, &inv.Totals.DiscountTotal, &inv.Totals.TaxTotal, &inv.Totals.Total,
		&inv.AmountDue, &inv.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, quote.ErrNotFound
		}

		return nil, fmt.Errorf("getting invoice: %w", err)
	}

	if err := json.Unmarshal(itemsJSON, &inv.Items); err != nil {
		return nil, fmt.Errorf("decoding items: %w", err)
	}

	return &inv, nil
}

// ExpireQuotes ages out every open quote whose expiry date falls before
// the given day. The before argument must be a midnight timestamp so the
// date comparison keeps a quote open through its expiry day. The WHERE
// clause makes a second run a no-op.
func (s *Store) ExpireQuotes(ctx context.Context, orgID uuid.UUID, before time.Time) (int64, error) {
	query := "UPDATE quotes SET status = $1, updated_at = NOW() WHERE organization_id = $2 AND expiry_date < $3 AND status IN ("
	args := []any{quote.StatusExpired, orgID, before}

	argIdx := 4

	for i, st := range quote.ExpirableStatuses {
		if i > 0 {
			query += ", "
		}

		query += fmt.Sprintf("$%d", argIdx)

		args = append(args, st)
		argIdx++
	}

	query += ")"

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("expiring quotes: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking affected rows: %w", err)
	}

	return affected, nil
}

func (s *Store) DeleteQuote(ctx context.Context, orgID, id uuid.UUID, from []quote.Status) error {
	query := "DELETE FROM quotes WHERE id = $1 AND organization_id = $2 AND status IN ("
	args := []any{id, orgID}

	argIdx := 3

	for i, st := range from {
		if i > 0 {
			query += ", "
		}

		query += fmt.Sprintf("$%d", argIdx)

		args = append(args, st)
		argIdx++
	}

	query += ")"

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("deleting quote: %w", err)
	}

	return s.checkAffected(ctx, res, orgID, id, "delete")
}
