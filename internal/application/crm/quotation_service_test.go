package crm

import (
	"context"
	"testing"
	"time"

	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/domain/identity"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type quotationFixture struct {
	*collaboratorFixture
	quotations *fakeQuotationRepo
	invoices   *fakeInvoiceRepo
	service    *QuotationService
	author     identity.Actor
	now        time.Time
}

func newQuotationFixture(t *testing.T) *quotationFixture {
	f := &quotationFixture{
		collaboratorFixture: newCollaborators(),
		quotations:          newFakeQuotationRepo(),
		invoices:            newFakeInvoiceRepo(),
		now:                 time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC),
	}
	author := f.users.add(t, "author")
	f.author = identity.NewActor(author.ID, identity.SelfOnly(author.ID))
	settings := NewSettingsService(&fakeSettingsRepo{}, zap.NewNop())
	f.service = NewQuotationService(f.quotations, f.invoices, newFakeDealRepo(), settings, nil, f.deps)
	f.service.now = func() time.Time { return f.now }
	return f
}

func (f *quotationFixture) sentQuotation(t *testing.T, validUntil *time.Time) *QuotationDTO {
	t.Helper()
	ctx := context.Background()
	q, err := f.service.Create(ctx, f.author, QuotationInput{
		DocumentInput: DocumentInput{
			CustomerName: "Acme Corp",
			Currency:     "EUR",
			IssueDate:    f.now.AddDate(0, 0, -3),
			Items: []LineItemInput{
				{Description: "Consulting", Quantity: decimal.NewFromInt(10), UnitPrice: decimal.NewFromInt(120), TaxRate: decimal.NewFromInt(20)},
				{Description: "Travel", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.RequireFromString("99.99")},
			},
		},
		ValidUntil: validUntil,
	})
	require.NoError(t, err)
	q, err = f.service.MarkSent(ctx, f.author, q.ID)
	require.NoError(t, err)
	return q
}

func TestQuotationService_Create(t *testing.T) {
	f := newQuotationFixture(t)
	q := f.sentQuotation(t, nil)

	assert.Equal(t, "QUO-00001", q.Number)
	assert.Equal(t, "sent", q.Status)
	assert.True(t, q.Subtotal.Equal(decimal.RequireFromString("1299.99")), q.Subtotal.String())
	assert.True(t, q.TaxTotal.Equal(decimal.NewFromInt(240)), q.TaxTotal.String())
	assert.True(t, q.Total.Equal(decimal.RequireFromString("1539.99")), q.Total.String())

	_, err := f.service.Update(context.Background(), f.author, q.ID, QuotationInput{})
	assertDomainCode(t, err, "INVALID_STATE")
}

func TestQuotationService_Accept(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a draft invoice with the same items", func(t *testing.T) {
		f := newQuotationFixture(t)
		validUntil := f.now.AddDate(0, 0, 7)
		q := f.sentQuotation(t, &validUntil)

		result, err := f.service.Accept(ctx, f.author, q.ID)
		require.NoError(t, err)
		assert.Equal(t, "accepted", result.Quotation.Status)
		require.NotNil(t, result.Quotation.InvoiceID)
		assert.Equal(t, result.Invoice.ID, *result.Quotation.InvoiceID)

		assert.Equal(t, "INV-00001", result.Invoice.Number)
		assert.Equal(t, "draft", result.Invoice.Status)
		assert.Equal(t, "Acme Corp", result.Invoice.CustomerName)
		assert.Len(t, result.Invoice.Items, 2)
		assert.True(t, result.Invoice.Total.Equal(q.Total))
		require.NotNil(t, result.Invoice.QuotationID)
		assert.Equal(t, q.ID, *result.Invoice.QuotationID)

		assert.Len(t, f.invoices.records, 1)
		assert.Equal(t, []string{EventQuotationAccepted}, f.publisher.types())
		assert.Empty(t, f.notifier.Calls, "accepting your own quotation sends no notification")
	})

	t.Run("notifies the author when someone else accepts", func(t *testing.T) {
		f := newQuotationFixture(t)
		q := f.sentQuotation(t, nil)
		admin := f.users.add(t, "admin")
		f.notifier.On("Notify", mock.Anything, f.author.UserID, crm.NotificationQuotationAccepted, "Quotation accepted", mock.Anything).Return(nil)

		_, err := f.service.Accept(ctx, identity.NewActor(admin.ID, identity.Unrestricted()), q.ID)
		require.NoError(t, err)
		f.notifier.AssertExpectations(t)
	})

	t.Run("expired offer is marked expired", func(t *testing.T) {
		f := newQuotationFixture(t)
		validUntil := f.now.AddDate(0, 0, -1)
		q := f.sentQuotation(t, &validUntil)

		_, err := f.service.Accept(ctx, f.author, q.ID)
		assertDomainCode(t, err, "QUOTATION_EXPIRED")
		assert.Empty(t, f.invoices.records)

		stored, err := f.service.GetByID(ctx, f.author, q.ID)
		require.NoError(t, err)
		assert.Equal(t, "expired", stored.Status)
	})

	t.Run("draft cannot be accepted", func(t *testing.T) {
		f := newQuotationFixture(t)
		q, err := f.service.Create(ctx, f.author, QuotationInput{
			DocumentInput: DocumentInput{CustomerName: "Acme", Items: []LineItemInput{
				{Description: "Setup", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(50)},
			}},
		})
		require.NoError(t, err)

		_, err = f.service.Accept(ctx, f.author, q.ID)
		assertDomainCode(t, err, "INVALID_STATE")
	})
}
