package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ontyx/ontyx/internal/journal"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateEntry persists the entry header and its lines in one database
// transaction. The ledger is append-only; there is no update path.
func (s *Store) CreateEntry(ctx context.Context, e *journal.Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	entryQuery := `
		INSERT INTO journal_entries (organization_id, entry_date, description, reference, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, created_at
	`

	err = tx.QueryRowContext(ctx, entryQuery,
		e.OrganizationID, e.EntryDate, e.Description, e.Reference,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating journal entry: %w", err)
	}

	lineQuery := `
		INSERT INTO journal_lines (entry_id, position, account_id, description, debit_amount, credit_amount)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	for i, l := range e.Lines {
		if _, err := tx.ExecContext(ctx, lineQuery, e.ID, i, l.AccountID, l.Description, l.Debit, l.Credit); err != nil {
			return fmt.Errorf("creating journal line: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing journal entry: %w", err)
	}

	return nil
}

func (s *Store) GetEntry(ctx context.Context, orgID, id uuid.UUID) (*journal.Entry, error) {
	query := `
		SELECT id, organization_id, entry_date, description, reference, created_at
		FROM journal_entries
		WHERE id = $1 AND organization_id = $2
	`

	var e journal.Entry

	err := s.db.QueryRowContext(ctx, query, id, orgID).Scan(
		&e.ID, &e.OrganizationID, &e.EntryDate, &e.Description, &e.Reference, &e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, journal.ErrNotFound
		}

		return nil, fmt.Errorf("getting journal entry: %w", err)
	}

	lines, err := s.entryLines(ctx, id)
	if err != nil {
		return nil, err
	}

	e.Lines = lines

	return &e, nil
}

func (s *Store) entryLines(ctx context.Context, entryID uuid.UUID) ([]journal.Line, error) {
	query := `
		SELECT account_id, description, debit_amount, credit_amount
		FROM journal_lines
		WHERE entry_id = $1
		ORDER BY position ASC
	`

	rows, err := s.db.QueryContext(ctx, query, entryID)
	if err != nil {
		return nil, fmt.Errorf("listing journal lines: %w", err)
	}
	defer rows.Close()

	var lines []journal.Line

	for rows.Next() {
		var l journal.Line

		if err := rows.Scan(&l.AccountID, &l.Description, &l.Debit, &l.Credit); err != nil {
			return nil, fmt.Errorf("scanning journal line: %w", err)
		}

		lines = append(lines, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating journal lines: %w", err)
	}

	return lines, nil
}

func (s *Store) ListEntries(ctx context.Context, orgID uuid.UUID) ([]*journal.Entry, error) {
	query := `
		SELECT e.id, e.organization_id, e.entry_date, e.description, e.reference, e.created_at,
			l.account_id, l.description, l.debit_amount, l.credit_amount
		FROM journal_entries e
		JOIN journal_lines l ON l.entry_id = e.id
		WHERE e.organization_id = $1
		ORDER BY e.entry_date DESC, e.id, l.position ASC
	`

	rows, err := s.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("listing journal entries: %w", err)
	}
	defer rows.Close()

	var entries []*journal.Entry

	byID := make(map[uuid.UUID]*journal.Entry)

	for rows.Next() {
		var e journal.Entry

		var l journal.Line

		if err := rows.Scan(
			&e.ID, &e.OrganizationID, &e.EntryDate, &e.Description, &e.Reference, &e.CreatedAt,
			&l.AccountID, &l.Description, &l.Debit, &l.Credit,
		); err != nil {
			return nil, fmt.Errorf("scanning journal entry: %w", err)
		}

		entry, seen := byID[e.ID]
		if !seen {
			entry = &e
			byID[e.ID] = entry
			entries = append(entries, entry)
		}

		entry.Lines = append(entry.Lines, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating journal entries: %w", err)
	}

	return entries, nil
}
