package journal

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when the referenced entry does not exist
// within the organization.
var ErrNotFound = errors.New("journal entry not found")

// Line is one side of a double-entry posting. Exactly one of Debit and
// Credit is nonzero on a valid line.
type Line struct {
	AccountID   uuid.UUID
	Description string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
}

// Entry is an append-only journal entry. Entries are never mutated after
// creation; corrections are posted as new entries.
type Entry struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	EntryDate      time.Time
	Description    string
	Reference      string
	Lines          []Line
	CreatedAt      time.Time
}

// ValidationError reports malformed entry input.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// UnbalancedEntryError reports that total debits and credits differ by
// the balance tolerance or more. The difference is exposed so the UI can
// render a balance-check indicator.
type UnbalancedEntryError struct {
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
	Difference  decimal.Decimal
}

func (e *UnbalancedEntryError) Error() string {
	return fmt.Sprintf("debits must equal credits, off by %s", e.Difference.StringFixed(2))
}
