package quote_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ontyx/ontyx/internal/money"
	"github.com/ontyx/ontyx/internal/quote"
)

var (
	testOrgID = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	testDate  = time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)
)

func validItems() []money.LineItem {
	return []money.LineItem{
		{
			Description:     "Consulting",
			Quantity:        decimal.NewFromInt(2),
			UnitPrice:       decimal.NewFromInt(100),
			DiscountPercent: decimal.NewFromInt(10),
			TaxRatePercent:  decimal.NewFromInt(13),
		},
	}
}

func quoteInStatus(status quote.Status) *quote.Quote {
	totals, err := money.Aggregate(validItems())
	if err != nil {
		panic(err)
	}

	return &quote.Quote{
		ID:             uuid.New(),
		OrganizationID: testOrgID,
		Number:         "QT-2603-0042",
		Status:         status,
		CustomerName:   "Acme Corp",
		IssueDate:      testDate,
		ExpiryDate:     testDate.AddDate(0, 0, 30),
		Currency:       "CAD",
		Items:          validItems(),
		Totals:         totals,
		CreatedAt:      testDate,
	}
}

func TestService_Create(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := quote.NewMockRepository(ctrl)
	svc := quote.NewService(repo)

	repo.EXPECT().
		CreateQuote(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, q *quote.Quote) error {
			q.ID = uuid.New()
			q.CreatedAt = time.Now()
			return nil
		})

	q, err := svc.Create(context.Background(), testOrgID, quote.CreateParams{
		CustomerName: "Acme Corp",
		IssueDate:    testDate,
		Items:        validItems(),
	})
	require.NoError(t, err)

	assert.Equal(t, quote.StatusDraft, q.Status)
	assert.Equal(t, testOrgID, q.OrganizationID)
	assert.Regexp(t, regexp.MustCompile(`^QT-2603-\d{4}$`), q.Number)
	assert.Equal(t, testDate.AddDate(0, 0, 30), q.ExpiryDate)
	assert.Equal(t, "CAD", q.Currency)
	assert.True(t, q.Totals.Total.Equal(decimal.RequireFromString("203.40")),
		"total %s", q.Totals.Total)
}

func TestService_Create_Validation(t *testing.T) {
	tests := []struct {
		name   string
		params quote.CreateParams
	}{
		{
			name:   "NoItems",
			params: quote.CreateParams{CustomerName: "Acme Corp"},
		},
		{
			name: "NegativeQuantity",
			params: quote.CreateParams{
				CustomerName: "Acme Corp",
				Items: []money.LineItem{{
					Quantity:  decimal.NewFromInt(-1),
					UnitPrice: decimal.NewFromInt(10),
				}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := quote.NewMockRepository(ctrl)
			svc := quote.NewService(repo)

			_, err := svc.Create(context.Background(), testOrgID, tt.params)

			var validationErr *quote.ValidationError
			assert.ErrorAs(t, err, &validationErr)
		})
	}
}

func TestService_Create_RetriesOnNumberCollision(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := quote.NewMockRepository(ctrl)
	svc := quote.NewService(repo)

	gomock.InOrder(
		repo.EXPECT().CreateQuote(gomock.Any(), gomock.Any()).Return(quote.ErrDuplicateNumber),
		repo.EXPECT().CreateQuote(gomock.Any(), gomock.Any()).Return(quote.ErrDuplicateNumber),
		repo.EXPECT().CreateQuote(gomock.Any(), gomock.Any()).Return(nil),
	)

	q, err := svc.Create(context.Background(), testOrgID, quote.CreateParams{
		CustomerName: "Acme Corp",
		IssueDate:    testDate,
		Items:        validItems(),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, q.Number)
}

func TestService_Create_GivesUpAfterRepeatedCollisions(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := quote.NewMockRepository(ctrl)
	svc := quote.NewService(repo)

	repo.EXPECT().
		CreateQuote(gomock.Any(), gomock.Any()).
		Return(quote.ErrDuplicateNumber).
		Times(3)

	_, err := svc.Create(context.Background(), testOrgID, quote.CreateParams{
		CustomerName: "Acme Corp",
		IssueDate:    testDate,
		Items:        validItems(),
	})
	assert.ErrorIs(t, err, quote.ErrDuplicateNumber)
}

func TestService_Update(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := quote.NewMockRepository(ctrl)
	svc := quote.NewService(repo)

	existing := quoteInStatus(quote.StatusDraft)

	newItems := []money.LineItem{{
		Description: "Support retainer",
		Quantity:    decimal.NewFromInt(4),
		UnitPrice:   decimal.NewFromInt(50),
	}}

	repo.EXPECT().GetQuote(gomock.Any(), testOrgID, existing.ID).Return(existing, nil)
	repo.EXPECT().UpdateDraft(gomock.Any(), existing).Return(nil)

	name := "Acme Holdings"

	q, err := svc.Update(context.Background(), testOrgID, existing.ID, quote.UpdateParams{
		CustomerName: &name,
		Items:        newItems,
	})
	require.NoError(t, err)

	assert.Equal(t, "Acme Holdings", q.CustomerName)
	assert.True(t, q.Totals.Total.Equal(decimal.NewFromInt(200)), "total %s", q.Totals.Total)
}

// A zero or negative validity window would backdate the expiry and hand
// the draft straight to the next expiry run.
func TestService_Update_NonPositiveValidDays(t *testing.T) {
	for _, days := range []int{0, -5} {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := quote.NewMockRepository(ctrl)
		svc := quote.NewService(repo)

		existing := quoteInStatus(quote.StatusDraft)

		repo.EXPECT().GetQuote(gomock.Any(), testOrgID, existing.ID).Return(existing, nil)

		_, err := svc.Update(context.Background(), testOrgID, existing.ID, quote.UpdateParams{
			ValidDays: &days,
		})

		var validationErr *quote.ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, testDate.AddDate(0, 0, 30), existing.ExpiryDate)
	}
}

func TestService_Update_NotDraft(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := quote.NewMockRepository(ctrl)
	svc := quote.NewService(repo)

	existing := quoteInStatus(quote.StatusSent)

	repo.EXPECT().GetQuote(gomock.Any(), testOrgID, existing.ID).Return(existing, nil)

	name := "Acme Holdings"

	_, err := svc.Update(context.Background(), testOrgID, existing.ID, quote.UpdateParams{
		CustomerName: &name,
	})

	var stateErr *quote.InvalidStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, quote.StatusSent, stateErr.Status)
}

func TestService_Send(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := quote.NewMockRepository(ctrl)
	svc := quote.NewService(repo)

	existing := quoteInStatus(quote.StatusDraft)

	repo.EXPECT().GetQuote(gomock.Any(), testOrgID, existing.ID).Return(existing, nil)
	repo.EXPECT().
		Transition(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, tr quote.Transition) error {
			assert.Equal(t, quote.StatusSent, tr.To)
			assert.Equal(t, []quote.Status{quote.StatusDraft}, tr.From)
			return nil
		})

	q, err := svc.Send(context.Background(), testOrgID, existing.ID)
	require.NoError(t, err)

	assert.Equal(t, quote.StatusSent, q.Status)
	assert.NotNil(t, q.SentAt)
}

// A send attempted from a terminal state fails without a write.
func TestService_Send_FromRejected(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := quote.NewMockRepository(ctrl)
	svc := quote.NewService(repo)

	existing := quoteInStatus(quote.StatusRejected)

	repo.EXPECT().GetQuote(gomock.Any(), testOrgID, existing.ID).Return(existing, nil)

	_, err := svc.Send(context.Background(), testOrgID, existing.ID)

	var stateErr *quote.InvalidStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, quote.StatusRejected, existing.Status)
	assert.Nil(t, existing.SentAt)
}

func TestService_AcceptAfterViewed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := quote.NewMockRepository(ctrl)
	svc := quote.NewService(repo)

	existing := quoteInStatus(quote.StatusViewed)

	repo.EXPECT().GetQuote(gomock.Any(), testOrgID, existing.ID).Return(existing, nil)
	repo.EXPECT().
		Transition(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, tr quote.Transition) error {
			assert.Equal(t, quote.StatusAccepted, tr.To)
			assert.ElementsMatch(t, []quote.Status{quote.StatusSent, quote.StatusViewed}, tr.From)
			return nil
		})

	q, err := svc.Accept(context.Background(), testOrgID, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, quote.StatusAccepted, q.Status)
	assert.NotNil(t, q.AcceptedAt)
}

func TestService_Reject(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := quote.NewMockRepository(ctrl)
	svc := quote.NewService(repo)

	existing := quoteInStatus(quote.StatusSent)

	repo.EXPECT().GetQuote(gomock.Any(), testOrgID, existing.ID).Return(existing, nil)
	repo.EXPECT().
		Transition(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, tr quote.Transition) error {
			assert.Equal(t, quote.StatusRejected, tr.To)
			assert.Equal(t, "too expensive", tr.Reason)
			return nil
		})

	q, err := svc.Reject(context.Background(), testOrgID, existing.ID, "too expensive")
	require.NoError(t, err)
	assert.Equal(t, quote.StatusRejected, q.Status)
	assert.Equal(t, "too expensive", q.RejectionReason)
	assert.NotNil(t, q.RejectedAt)
}

func TestService_Convert(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := quote.NewMockRepository(ctrl)
	svc := quote.NewService(repo)

	existing := quoteInStatus(quote.StatusAccepted)

	repo.EXPECT().GetQuote(gomock.Any(), testOrgID, existing.ID).Return(existing, nil)
	repo.EXPECT().
		ConvertQuote(gomock.Any(), existing, gomock.Any()).
		Return(nil)

	inv, err := svc.Convert(context.Background(), testOrgID, existing.ID)
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^INV-\d{4}-\d{4}$`), inv.Number)
	assert.Equal(t, existing.ID, inv.QuoteID)
	assert.Equal(t, existing.Items, inv.Items)
	assert.Equal(t, existing.Totals, inv.Totals)
	assert.True(t, inv.AmountDue.Equal(existing.Totals.Total))
	assert.Equal(t, inv.IssueDate.AddDate(0, 0, 30), inv.DueDate)
	assert.Contains(t, inv.Notes, existing.Number)
}

// Converting an already converted quote returns the existing invoice and
// never creates a second one.
func TestService_Convert_Idempotent(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := quote.NewMockRepository(ctrl)
	svc := quote.NewService(repo)

	invoiceID := uuid.New()
	existing := quoteInStatus(quote.StatusConverted)
	existing.ConvertedInvoiceID = &invoiceID

	repo.EXPECT().GetQuote(gomock.Any(), testOrgID, existing.ID).Return(existing, nil)
	repo.EXPECT().
		GetInvoice(gomock.Any(), testOrgID, invoiceID).
		Return(&quote.Invoice{ID: invoiceID, QuoteID: existing.ID}, nil)

	inv, err := svc.Convert(context.Background(), testOrgID, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, invoiceID, inv.ID)
}

func TestService_Convert_NotAccepted(t *testing.T) {
	for _, status := range []quote.Status{
		quote.StatusDraft, quote.StatusSent, quote.StatusViewed,
		quote.StatusRejected, quote.StatusExpired,
	} {
		t.Run(string(status), func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := quote.NewMockRepository(ctrl)
			svc := quote.NewService(repo)

			existing := quoteInStatus(status)

			repo.EXPECT().GetQuote(gomock.Any(), testOrgID, existing.ID).Return(existing, nil)

			_, err := svc.Convert(context.Background(), testOrgID, existing.ID)

			var stateErr *quote.InvalidStateError
			assert.ErrorAs(t, err, &stateErr)
		})
	}
}

func TestService_Convert_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := quote.NewMockRepository(ctrl)
	svc := quote.NewService(repo)

	id := uuid.New()

	repo.EXPECT().GetQuote(gomock.Any(), testOrgID, id).Return(nil, quote.ErrNotFound)

	_, err := svc.Convert(context.Background(), testOrgID, id)
	assert.ErrorIs(t, err, quote.ErrNotFound)
}

// A conflict from the store's conditional write surfaces to the caller,
// who may re-fetch and retry once.
func TestService_Convert_Conflict(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := quote.NewMockRepository(ctrl)
	svc := quote.NewService(repo)

	existing := quoteInStatus(quote.StatusAccepted)

	repo.EXPECT().GetQuote(gomock.Any(), testOrgID, existing.ID).Return(existing, nil)
	repo.EXPECT().
		ConvertQuote(gomock.Any(), existing, gomock.Any()).
		Return(&quote.ConflictError{Op: "convert"})

	_, err := svc.Convert(context.Background(), testOrgID, existing.ID)

	var conflictErr *quote.ConflictError
	assert.ErrorAs(t, err, &conflictErr)
}

func TestService_Delete(t *testing.T) {
	for _, status := range []quote.Status{quote.StatusDraft, quote.StatusRejected} {
		t.Run(string(status), func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := quote.NewMockRepository(ctrl)
			svc := quote.NewService(repo)

			existing := quoteInStatus(status)

			repo.EXPECT().GetQuote(gomock.Any(), testOrgID, existing.ID).Return(existing, nil)
			repo.EXPECT().DeleteQuote(gomock.Any(), testOrgID, existing.ID, gomock.Any()).Return(nil)

			err := svc.Delete(context.Background(), testOrgID, existing.ID)
			assert.NoError(t, err)
		})
	}
}

func TestService_Delete_NotPermitted(t *testing.T) {
	for _, status := range []quote.Status{
		quote.StatusSent, quote.StatusViewed, quote.StatusAccepted,
		quote.StatusExpired, quote.StatusConverted,
	} {
		t.Run(string(status), func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := quote.NewMockRepository(ctrl)
			svc := quote.NewService(repo)

			existing := quoteInStatus(status)

			repo.EXPECT().GetQuote(gomock.Any(), testOrgID, existing.ID).Return(existing, nil)

			err := svc.Delete(context.Background(), testOrgID, existing.ID)

			var stateErr *quote.InvalidStateError
			assert.ErrorAs(t, err, &stateErr)
		})
	}
}

// The expiry cutoff is the start of the current day, so a quote expiring
// today stays open through its expiry day.
func TestService_ExpireOld_CutoffIsStartOfDay(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := quote.NewMockRepository(ctrl)
	svc := quote.NewService(repo)

	repo.EXPECT().
		ExpireQuotes(gomock.Any(), testOrgID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, before time.Time) (int64, error) {
			midnight := time.Date(before.Year(), before.Month(), before.Day(), 0, 0, 0, 0, before.Location())
			assert.True(t, before.Equal(midnight), "cutoff %s is not a midnight timestamp", before)
			return 0, nil
		})

	_, err := svc.ExpireOld(context.Background(), testOrgID)
	require.NoError(t, err)
}

// A second expiry run finds nothing left to expire.
func TestService_ExpireOld_Idempotent(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := quote.NewMockRepository(ctrl)
	svc := quote.NewService(repo)

	gomock.InOrder(
		repo.EXPECT().ExpireQuotes(gomock.Any(), testOrgID, gomock.Any()).Return(int64(3), nil),
		repo.EXPECT().ExpireQuotes(gomock.Any(), testOrgID, gomock.Any()).Return(int64(0), nil),
	)

	n, err := svc.ExpireOld(context.Background(), testOrgID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = svc.ExpireOld(context.Background(), testOrgID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestService_Stats(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := quote.NewMockRepository(ctrl)
	svc := quote.NewService(repo)

	repo.EXPECT().
		ListQuotes(gomock.Any(), testOrgID, quote.ListFilter{}).
		Return([]*quote.Quote{
			quoteInStatus(quote.StatusAccepted),
			quoteInStatus(quote.StatusRejected),
		}, nil)

	stats, err := svc.Stats(context.Background(), testOrgID)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.ByStatus[quote.StatusAccepted])
	assert.InDelta(t, 50.0, stats.ConversionRate, 0.0001)
}

func TestService_Get_RepoError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := quote.NewMockRepository(ctrl)
	svc := quote.NewService(repo)

	id := uuid.New()

	repo.EXPECT().GetQuote(gomock.Any(), testOrgID, id).Return(nil, errors.New("db error"))

	_, err := svc.Get(context.Background(), testOrgID, id)
	assert.Error(t, err)
}
