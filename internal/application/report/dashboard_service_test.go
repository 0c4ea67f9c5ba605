package report

import (
	"context"
	"testing"
	"time"

	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// The fakes ignore the window and apply only the scope; the service's
// own logic is what is under test.

type fakeLeads struct {
	crm.LeadRepository
	leads []*crm.Lead
}

func (f *fakeLeads) CountByStatus(_ context.Context, scope identity.AccessScope, _, _ time.Time) (map[crm.LeadStatus]int64, error) {
	counts := make(map[crm.LeadStatus]int64)
	for _, l := range f.leads {
		if scope.ContainsAny(l.AssignedTo, l.CreatedBy) {
			counts[l.Status]++
		}
	}
	return counts, nil
}

type fakeDeals struct {
	crm.DealRepository
	deals []*crm.Deal
}

func (f *fakeDeals) FindForReport(_ context.Context, scope identity.AccessScope, _, _ time.Time) ([]*crm.Deal, error) {
	var out []*crm.Deal
	for _, d := range f.deals {
		if scope.ContainsAny(d.AssignedTo, d.CreatedBy) {
			out = append(out, d)
		}
	}
	return out, nil
}

type fakeInvoices struct {
	crm.InvoiceRepository
	invoices []*crm.Invoice
}

func (f *fakeInvoices) FindPaidForReport(_ context.Context, scope identity.AccessScope, _, _ time.Time) ([]*crm.Invoice, error) {
	var out []*crm.Invoice
	for _, i := range f.invoices {
		if scope.ContainsAny(i.CreatedBy) {
			out = append(out, i)
		}
	}
	return out, nil
}

type fakeExpenses struct {
	crm.ExpenseRepository
	expenses []*crm.Expense
}

func (f *fakeExpenses) FindApprovedForReport(_ context.Context, scope identity.AccessScope, _, _ time.Time) ([]*crm.Expense, error) {
	var out []*crm.Expense
	for _, e := range f.expenses {
		if scope.ContainsAny(e.SubmittedBy) {
			out = append(out, e)
		}
	}
	return out, nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newDeal(t *testing.T, owner uuid.UUID, value, currency string, stage crm.DealStage) *crm.Deal {
	deal, err := crm.NewDeal(owner, "Deal", dec(value), currency)
	require.NoError(t, err)
	deal.Stage = stage
	return deal
}

func paidInvoice(t *testing.T, owner uuid.UUID, amount, currency string, paidAt time.Time) *crm.Invoice {
	invoice, err := crm.NewInvoice(owner, uuid.NewString()[:8], "Acme", currency, paidAt, []crm.LineItem{
		{Description: "Service", Quantity: decimal.NewFromInt(1), UnitPrice: dec(amount)},
	})
	require.NoError(t, err)
	invoice.Status = crm.InvoiceStatusPaid
	invoice.PaidAt = &paidAt
	return invoice
}

func approvedExpense(t *testing.T, owner uuid.UUID, category, amount, currency string) *crm.Expense {
	expense, err := crm.NewExpense(owner, "Expense", category, dec(amount), currency, time.Now())
	require.NoError(t, err)
	expense.Status = crm.ExpenseStatusApproved
	return expense
}

func TestDashboardService_Dashboard(t *testing.T) {
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	newLead := func(owner uuid.UUID, status crm.LeadStatus) *crm.Lead {
		lead, err := crm.NewLead(owner, "Lead")
		require.NoError(t, err)
		lead.Status = status
		return lead
	}

	service := NewDashboardService(
		&fakeLeads{leads: []*crm.Lead{
			newLead(alice, crm.LeadStatusNew),
			newLead(alice, crm.LeadStatusNew),
			newLead(alice, crm.LeadStatusQualified),
			newLead(bob, crm.LeadStatusLost),
		}},
		&fakeDeals{deals: []*crm.Deal{
			newDeal(t, alice, "1000", "USD", crm.DealStageProposal),
			newDeal(t, alice, "500", "EUR", crm.DealStageProposal),
			newDeal(t, alice, "300", "USD", crm.DealStageProspecting),
			newDeal(t, alice, "9999", "JPY", crm.DealStageNegotiation),
			newDeal(t, alice, "2000", "USD", crm.DealStageWon),
			newDeal(t, alice, "100", "USD", crm.DealStageLost),
			newDeal(t, alice, "100", "USD", crm.DealStageLost),
			newDeal(t, bob, "7000", "USD", crm.DealStageWon),
		}},
		&fakeInvoices{invoices: []*crm.Invoice{
			paidInvoice(t, alice, "100", "USD", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)),
			paidInvoice(t, alice, "200", "EUR", time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)),
		}},
		&fakeExpenses{expenses: []*crm.Expense{
			approvedExpense(t, alice, "travel", "40", "USD"),
			approvedExpense(t, alice, "travel", "10", "EUR"),
			approvedExpense(t, alice, "meals", "25", "USD"),
		}},
		NewConverter("usd", map[string]decimal.Decimal{"eur": dec("1.10")}),
		zap.NewNop(),
	)

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	dashboard, err := service.Dashboard(ctx, identity.SelfOnly(alice), from, to)
	require.NoError(t, err)

	assert.Equal(t, "USD", dashboard.BaseCurrency)
	assert.Equal(t, map[string]int64{"new": 2, "contacted": 0, "qualified": 1, "lost": 0, "converted": 0}, dashboard.LeadsByStatus)

	require.Len(t, dashboard.Pipeline, 4)
	assert.Equal(t, "prospecting", dashboard.Pipeline[0].Stage)
	assert.True(t, dashboard.Pipeline[0].Value.Equal(dec("300")))
	assert.Equal(t, "proposal", dashboard.Pipeline[2].Stage)
	assert.Equal(t, 2, dashboard.Pipeline[2].Count)
	assert.True(t, dashboard.Pipeline[2].Value.Equal(dec("1550")), dashboard.Pipeline[2].Value.String())
	assert.True(t, dashboard.PipelineTotal.Equal(dec("1850")), dashboard.PipelineTotal.String())

	assert.True(t, dashboard.WonTotal.Equal(dec("2000")), "bob's deal is outside the scope")
	assert.Equal(t, 1, dashboard.WonCount)
	assert.Equal(t, 2, dashboard.LostCount)
	assert.True(t, dashboard.WinRate.Equal(dec("0.3333")), dashboard.WinRate.String())

	require.Len(t, dashboard.RevenueTrend, 3)
	assert.Equal(t, "2024-01", dashboard.RevenueTrend[0].Month)
	assert.True(t, dashboard.RevenueTrend[0].Revenue.Equal(dec("100")))
	assert.Equal(t, "2024-02", dashboard.RevenueTrend[1].Month)
	assert.True(t, dashboard.RevenueTrend[1].Revenue.IsZero())
	assert.True(t, dashboard.RevenueTrend[2].Revenue.Equal(dec("220")))

	require.Len(t, dashboard.ExpensesByCategory, 2)
	assert.Equal(t, "travel", dashboard.ExpensesByCategory[0].Category)
	assert.True(t, dashboard.ExpensesByCategory[0].Total.Equal(dec("51")))
	assert.Equal(t, "meals", dashboard.ExpensesByCategory[1].Category)

	assert.Equal(t, []string{"JPY"}, dashboard.UnconvertedCurrencies)
}

func TestDashboardService_DateRange(t *testing.T) {
	service := NewDashboardService(&fakeLeads{}, &fakeDeals{}, &fakeInvoices{}, &fakeExpenses{}, NewConverter("USD", nil), zap.NewNop())
	day := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

	tests := []struct {
		name     string
		from, to time.Time
		wantErr  bool
	}{
		{"inverted", day(2024, 2, 1), day(2024, 1, 1), true},
		{"single day", day(2024, 1, 1), day(2024, 1, 1), false},
		{"full window", day(2024, 1, 1), day(2025, 12, 31), false},
		{"one day past the window", day(2024, 1, 1), day(2026, 1, 1), true},
		{"centuries", day(1, 1, 1), day(9999, 12, 31), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Dashboard(context.Background(), identity.Unrestricted(), tt.from, tt.to)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var domainErr *shared.DomainError
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, "INVALID_DATE_RANGE", domainErr.Code)
		})
	}
}

func TestWinRate(t *testing.T) {
	assert.True(t, winRate(0, 0).IsZero())
	assert.True(t, winRate(3, 1).Equal(dec("0.75")))
	assert.True(t, winRate(2, 0).Equal(decimal.NewFromInt(1)))
}
