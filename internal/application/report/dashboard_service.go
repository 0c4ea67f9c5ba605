package report

import (
	"context"
	"sort"
	"time"

	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const monthLayout = "2006-01"

// MaxDashboardMonths bounds the reporting window
const MaxDashboardMonths = 24

var (
	leadStatuses = []crm.LeadStatus{
		crm.LeadStatusNew, crm.LeadStatusContacted, crm.LeadStatusQualified,
		crm.LeadStatusLost, crm.LeadStatusConverted,
	}
	openStages = []crm.DealStage{
		crm.DealStageProspecting, crm.DealStageQualification,
		crm.DealStageProposal, crm.DealStageNegotiation,
	}
)

// DashboardService aggregates CRM records into the analytics dashboard
type DashboardService struct {
	leadRepo    crm.LeadRepository
	dealRepo    crm.DealRepository
	invoiceRepo crm.InvoiceRepository
	expenseRepo crm.ExpenseRepository
	converter   *Converter
	logger      *zap.Logger
}

// NewDashboardService creates a new DashboardService
func NewDashboardService(
	leadRepo crm.LeadRepository,
	dealRepo crm.DealRepository,
	invoiceRepo crm.InvoiceRepository,
	expenseRepo crm.ExpenseRepository,
	converter *Converter,
	logger *zap.Logger,
) *DashboardService {
	return &DashboardService{
		leadRepo:    leadRepo,
		dealRepo:    dealRepo,
		invoiceRepo: invoiceRepo,
		expenseRepo: expenseRepo,
		converter:   converter,
		logger:      logger,
	}
}

// Dashboard summarizes the records inside scope for the days from..to, both inclusive
func (s *DashboardService) Dashboard(ctx context.Context, scope identity.AccessScope, from, to time.Time) (*DashboardDTO, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "DashboardService", "Dashboard",
		telemetry.AttrScopeSize.Int(scope.Len()))
	defer span.End()

	start := truncateDay(from)
	end := truncateDay(to).AddDate(0, 0, 1)
	if !start.Before(end) {
		return nil, shared.NewDomainError("INVALID_DATE_RANGE", "Start date must not be after end date")
	}
	if end.After(start.AddDate(0, MaxDashboardMonths, 0)) {
		return nil, shared.NewDomainError("INVALID_DATE_RANGE", "Date range cannot exceed 24 months")
	}

	counts, err := s.leadRepo.CountByStatus(ctx, scope, start, end)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, s.internal(err, "count leads")
	}
	deals, err := s.dealRepo.FindForReport(ctx, scope, start, end)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, s.internal(err, "load deals")
	}
	invoices, err := s.invoiceRepo.FindPaidForReport(ctx, scope, start, end)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, s.internal(err, "load invoices")
	}
	expenses, err := s.expenseRepo.FindApprovedForReport(ctx, scope, start, end)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, s.internal(err, "load expenses")
	}

	agg := newAggregation(s.converter)
	dashboard := &DashboardDTO{
		From:          start,
		To:            end.AddDate(0, 0, -1),
		BaseCurrency:  s.converter.Base(),
		LeadsByStatus: make(map[string]int64, len(leadStatuses)),
	}
	for _, status := range leadStatuses {
		dashboard.LeadsByStatus[string(status)] = counts[status]
	}

	s.summarizeDeals(dashboard, agg, deals)
	dashboard.RevenueTrend = revenueTrend(agg, invoices, start, end)
	dashboard.ExpensesByCategory = expensesByCategory(agg, expenses)
	dashboard.UnconvertedCurrencies = agg.unconverted()

	span.SetAttributes(telemetry.AttrItemsCount.Int(len(deals) + len(invoices) + len(expenses)))
	return dashboard, nil
}

func (s *DashboardService) summarizeDeals(dashboard *DashboardDTO, agg *aggregation, deals []*crm.Deal) {
	pipeline := make(map[crm.DealStage]*StageValue, len(openStages))
	for _, stage := range openStages {
		pipeline[stage] = &StageValue{Stage: string(stage), Value: decimal.Zero}
	}
	dashboard.PipelineTotal = decimal.Zero
	dashboard.WonTotal = decimal.Zero

	for _, deal := range deals {
		switch deal.Stage {
		case crm.DealStageWon:
			dashboard.WonCount++
			dashboard.WonTotal = dashboard.WonTotal.Add(agg.convert(deal.Value, deal.Currency))
		case crm.DealStageLost:
			dashboard.LostCount++
		default:
			entry, ok := pipeline[deal.Stage]
			if !ok {
				continue
			}
			value := agg.convert(deal.Value, deal.Currency)
			entry.Count++
			entry.Value = entry.Value.Add(value)
			dashboard.PipelineTotal = dashboard.PipelineTotal.Add(value)
		}
	}

	dashboard.Pipeline = make([]StageValue, len(openStages))
	for i, stage := range openStages {
		entry := pipeline[stage]
		entry.Value = crm.RoundMoney(entry.Value)
		dashboard.Pipeline[i] = *entry
	}
	dashboard.PipelineTotal = crm.RoundMoney(dashboard.PipelineTotal)
	dashboard.WonTotal = crm.RoundMoney(dashboard.WonTotal)
	dashboard.WinRate = winRate(dashboard.WonCount, dashboard.LostCount)
}

func (s *DashboardService) internal(err error, action string) error {
	s.logger.Error("Failed to "+action+" for dashboard", zap.Error(err))
	return shared.NewDomainError("INTERNAL_ERROR", "Failed to build dashboard")
}

// winRate is won / (won + lost), zero when nothing closed
func winRate(won, lost int) decimal.Decimal {
	closed := won + lost
	if closed == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(won)).Div(decimal.NewFromInt(int64(closed))).Round(4)
}

func revenueTrend(agg *aggregation, invoices []*crm.Invoice, start, end time.Time) []MonthlyRevenue {
	byMonth := make(map[string]decimal.Decimal)
	for _, invoice := range invoices {
		if invoice.PaidAt == nil {
			continue
		}
		month := invoice.PaidAt.UTC().Format(monthLayout)
		byMonth[month] = byMonth[month].Add(agg.convert(invoice.Total, invoice.Currency))
	}

	var trend []MonthlyRevenue
	last := end.Add(-time.Nanosecond)
	for month := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC); !month.After(last); month = month.AddDate(0, 1, 0) {
		key := month.Format(monthLayout)
		trend = append(trend, MonthlyRevenue{Month: key, Revenue: crm.RoundMoney(byMonth[key])})
	}
	return trend
}

func expensesByCategory(agg *aggregation, expenses []*crm.Expense) []CategoryExpenses {
	totals := make(map[string]decimal.Decimal)
	for _, expense := range expenses {
		totals[expense.Category] = totals[expense.Category].Add(agg.convert(expense.Amount, expense.Currency))
	}

	out := make([]CategoryExpenses, 0, len(totals))
	for category, total := range totals {
		out = append(out, CategoryExpenses{Category: category, Total: crm.RoundMoney(total)})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Total.Equal(out[j].Total) {
			return out[i].Total.GreaterThan(out[j].Total)
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// aggregation converts amounts and remembers the currencies it had to skip
type aggregation struct {
	converter *Converter
	skipped   map[string]struct{}
}

func newAggregation(converter *Converter) *aggregation {
	return &aggregation{converter: converter, skipped: make(map[string]struct{})}
}

func (a *aggregation) convert(amount decimal.Decimal, currency string) decimal.Decimal {
	converted, ok := a.converter.Convert(amount, currency)
	if !ok {
		a.skipped[currency] = struct{}{}
		return decimal.Zero
	}
	return converted
}

func (a *aggregation) unconverted() []string {
	out := make([]string, 0, len(a.skipped))
	for currency := range a.skipped {
		out = append(out, currency)
	}
	sort.Strings(out)
	return out
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
