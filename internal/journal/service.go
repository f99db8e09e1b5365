package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=journal
type Repository interface {
	CreateEntry(ctx context.Context, e *Entry) error
	GetEntry(ctx context.Context, orgID, id uuid.UUID) (*Entry, error)
	ListEntries(ctx context.Context, orgID uuid.UUID) ([]*Entry, error)
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

type CreateParams struct {
	EntryDate   time.Time // zero value means today
	Description string
	Reference   string
	Lines       []Line
}

// Create validates the double-entry invariant and persists the entry with
// its normalized lines. An unbalanced entry is rejected back to the
// caller; nothing is written.
func (s *Service) Create(ctx context.Context, orgID uuid.UUID, params CreateParams) (*Entry, error) {
	lines, err := Validate(params.Lines)
	if err != nil {
		return nil, err
	}

	entryDate := params.EntryDate
	if entryDate.IsZero() {
		entryDate = s.now()
	}

	e := &Entry{
		OrganizationID: orgID,
		EntryDate:      entryDate,
		Description:    params.Description,
		Reference:      params.Reference,
		Lines:          lines,
	}

	if err := s.repo.CreateEntry(ctx, e); err != nil {
		return nil, fmt.Errorf("creating journal entry: %w", err)
	}

	return e, nil
}

func (s *Service) Get(ctx context.Context, orgID, id uuid.UUID) (*Entry, error) {
	return s.repo.GetEntry(ctx, orgID, id)
}

func (s *Service) List(ctx context.Context, orgID uuid.UUID) ([]*Entry, error) {
	return s.repo.ListEntries(ctx, orgID)
}
