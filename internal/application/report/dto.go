package report

import (
	"time"

	"github.com/shopspring/decimal"
)

// DashboardDTO is the analytics summary of the records visible to the caller
type DashboardDTO struct {
	From                  time.Time          `json:"from"`
	To                    time.Time          `json:"to"`
	BaseCurrency          string             `json:"base_currency"`
	LeadsByStatus         map[string]int64   `json:"leads_by_status"`
	Pipeline              []StageValue       `json:"pipeline"`
	PipelineTotal         decimal.Decimal    `json:"pipeline_total"`
	WonTotal              decimal.Decimal    `json:"won_total"`
	WonCount              int                `json:"won_count"`
	LostCount             int                `json:"lost_count"`
	WinRate               decimal.Decimal    `json:"win_rate"`
	RevenueTrend          []MonthlyRevenue   `json:"revenue_trend"`
	ExpensesByCategory    []CategoryExpenses `json:"expenses_by_category"`
	UnconvertedCurrencies []string           `json:"unconverted_currencies"`
}

// StageValue is the open pipeline value of one deal stage
type StageValue struct {
	Stage string          `json:"stage"`
	Count int             `json:"count"`
	Value decimal.Decimal `json:"value"`
}

// MonthlyRevenue is the paid invoice total of one month (YYYY-MM)
type MonthlyRevenue struct {
	Month   string          `json:"month"`
	Revenue decimal.Decimal `json:"revenue"`
}

// CategoryExpenses is the approved expense total of one category
type CategoryExpenses struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
}
