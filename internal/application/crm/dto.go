package crm

import (
	"time"

	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/infrastructure/csvimport"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LeadDTO represents lead data transfer object
type LeadDTO struct {
	ID             uuid.UUID       `json:"id"`
	Name           string          `json:"name"`
	Company        string          `json:"company,omitempty"`
	Email          string          `json:"email,omitempty"`
	Phone          string          `json:"phone,omitempty"`
	Source         string          `json:"source,omitempty"`
	Status         string          `json:"status"`
	EstimatedValue decimal.Decimal `json:"estimated_value"`
	Currency       string          `json:"currency"`
	AssignedTo     uuid.UUID       `json:"assigned_to"`
	CreatedBy      uuid.UUID       `json:"created_by"`
	ConvertedDeal  *uuid.UUID      `json:"converted_deal_id,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// LeadImportResultDTO summarizes a CSV lead import
type LeadImportResultDTO struct {
	TotalRows   int                  `json:"total_rows"`
	ValidRows   int                  `json:"valid_rows"`
	Imported    int                  `json:"imported"`
	DryRun      bool                 `json:"dry_run"`
	Errors      []csvimport.RowError `json:"errors,omitempty"`
	TotalErrors int                  `json:"total_errors"`
	IsTruncated bool                 `json:"is_truncated"`
}

// CreateLeadInput contains input for creating a lead
type CreateLeadInput struct {
	Name           string
	Company        string
	Email          string
	Phone          string
	Source         string
	EstimatedValue decimal.Decimal
	Currency       string
	AssignedTo     *uuid.UUID
}

// UpdateLeadInput contains input for updating a lead
type UpdateLeadInput struct {
	ID             uuid.UUID
	Name           string
	Company        string
	Email          string
	Phone          string
	Source         string
	EstimatedValue decimal.Decimal
	Currency       string
}

// ConvertLeadInput contains input for converting a lead into a deal
type ConvertLeadInput struct {
	LeadID uuid.UUID
	Title  string // Defaults to the lead's company and name
}

// DealDTO represents deal data transfer object
type DealDTO struct {
	ID                uuid.UUID       `json:"id"`
	Title             string          `json:"title"`
	LeadID            *uuid.UUID      `json:"lead_id,omitempty"`
	Stage             string          `json:"stage"`
	Value             decimal.Decimal `json:"value"`
	Currency          string          `json:"currency"`
	ExpectedCloseDate *time.Time      `json:"expected_close_date,omitempty"`
	ClosedAt          *time.Time      `json:"closed_at,omitempty"`
	AssignedTo        uuid.UUID       `json:"assigned_to"`
	CreatedBy         uuid.UUID       `json:"created_by"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// CreateDealInput contains input for creating a deal
type CreateDealInput struct {
	Title             string
	LeadID            *uuid.UUID
	Value             decimal.Decimal
	Currency          string
	ExpectedCloseDate *time.Time
	AssignedTo        *uuid.UUID
}

// UpdateDealInput contains input for updating a deal
type UpdateDealInput struct {
	ID                uuid.UUID
	Title             string
	Value             decimal.Decimal
	Currency          string
	ExpectedCloseDate *time.Time
	AssignedTo        *uuid.UUID
}

// TaskDTO represents task data transfer object
type TaskDTO struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	DueAt       *time.Time `json:"due_at,omitempty"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	LeadID      *uuid.UUID `json:"lead_id,omitempty"`
	DealID      *uuid.UUID `json:"deal_id,omitempty"`
	AssignedTo  uuid.UUID  `json:"assigned_to"`
	CreatedBy   uuid.UUID  `json:"created_by"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	RemindedAt  *time.Time `json:"reminded_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CreateTaskInput contains input for creating a task
type CreateTaskInput struct {
	Title       string
	Description string
	DueAt       *time.Time
	Priority    string
	LeadID      *uuid.UUID
	DealID      *uuid.UUID
	AssignedTo  *uuid.UUID
}

// UpdateTaskInput contains input for updating a task
type UpdateTaskInput struct {
	ID          uuid.UUID
	Title       string
	Description string
	DueAt       *time.Time
	Priority    string
	Status      *string
	AssignedTo  *uuid.UUID
}

// ExpenseDTO represents expense data transfer object
type ExpenseDTO struct {
	ID          uuid.UUID       `json:"id"`
	Title       string          `json:"title"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	IncurredOn  time.Time       `json:"incurred_on"`
	Status      string          `json:"status"`
	SubmittedBy uuid.UUID       `json:"submitted_by"`
	ReviewedBy  *uuid.UUID      `json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time      `json:"reviewed_at,omitempty"`
	ReviewNote  string          `json:"review_note,omitempty"`
	HasReceipt  bool            `json:"has_receipt"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ReceiptUploadDTO is a presigned upload target for an expense receipt
type ReceiptUploadDTO struct {
	StorageKey string    `json:"storage_key"`
	UploadURL  string    `json:"upload_url"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// ReceiptURLDTO is a presigned download link for an expense receipt
type ReceiptURLDTO struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ExpenseInput contains input for submitting or editing an expense
type ExpenseInput struct {
	Title      string
	Category   string
	Amount     decimal.Decimal
	Currency   string
	IncurredOn time.Time
}

// LineItemInput is one line of an invoice or quotation
type LineItemInput struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	TaxRate     decimal.Decimal
}

// LineItemDTO represents a document line with its computed amounts
type LineItemDTO struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	Net         decimal.Decimal `json:"net"`
	Tax         decimal.Decimal `json:"tax"`
}

// DocumentInput contains the fields shared by invoice and quotation input.
// An empty Number draws the next number for the configured prefix.
type DocumentInput struct {
	Number        string
	CustomerName  string
	CustomerEmail string
	DealID        *uuid.UUID
	Currency      string
	IssueDate     time.Time
	Notes         string
	Items         []LineItemInput
}

// InvoiceInput contains input for creating or editing an invoice
type InvoiceInput struct {
	DocumentInput
	DueDate *time.Time
}

// QuotationInput contains input for creating or editing a quotation
type QuotationInput struct {
	DocumentInput
	ValidUntil *time.Time
}

// DocumentDTO holds what invoice and quotation DTOs have in common
type DocumentDTO struct {
	ID            uuid.UUID       `json:"id"`
	Number        string          `json:"number"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail string          `json:"customer_email,omitempty"`
	DealID        *uuid.UUID      `json:"deal_id,omitempty"`
	Currency      string          `json:"currency"`
	IssueDate     time.Time       `json:"issue_date"`
	Notes         string          `json:"notes,omitempty"`
	Items         []LineItemDTO   `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	TaxTotal      decimal.Decimal `json:"tax_total"`
	Total         decimal.Decimal `json:"total"`
	CreatedBy     uuid.UUID       `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// InvoiceDTO represents invoice data transfer object
type InvoiceDTO struct {
	DocumentDTO
	DueDate     *time.Time `json:"due_date,omitempty"`
	Status      string     `json:"status"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	QuotationID *uuid.UUID `json:"quotation_id,omitempty"`
}

// QuotationDTO represents quotation data transfer object
type QuotationDTO struct {
	DocumentDTO
	ValidUntil *time.Time `json:"valid_until,omitempty"`
	Status     string     `json:"status"`
	InvoiceID  *uuid.UUID `json:"invoice_id,omitempty"`
}

// AcceptQuotationResult carries the accepted quotation and the invoice it became
type AcceptQuotationResult struct {
	Quotation QuotationDTO `json:"quotation"`
	Invoice   InvoiceDTO   `json:"invoice"`
}

// NoteDTO represents note data transfer object
type NoteDTO struct {
	ID        uuid.UUID `json:"id"`
	LeadID    uuid.UUID `json:"lead_id"`
	Body      string    `json:"body"`
	CreatedBy uuid.UUID `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SettingsDTO represents the business settings
type SettingsDTO struct {
	CompanyName     string    `json:"company_name"`
	Address         string    `json:"address,omitempty"`
	Email           string    `json:"email,omitempty"`
	Phone           string    `json:"phone,omitempty"`
	TaxID           string    `json:"tax_id,omitempty"`
	BaseCurrency    string    `json:"base_currency"`
	InvoicePrefix   string    `json:"invoice_prefix"`
	QuotationPrefix string    `json:"quotation_prefix"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// UpdateSettingsInput contains input for updating the business settings
type UpdateSettingsInput struct {
	CompanyName     string
	Address         string
	Email           string
	Phone           string
	TaxID           string
	BaseCurrency    string
	InvoicePrefix   string
	QuotationPrefix string
}

func toLeadDTO(l *crm.Lead) *LeadDTO {
	return &LeadDTO{
		ID:             l.ID,
		Name:           l.Name,
		Company:        l.Company,
		Email:          l.Email,
		Phone:          l.Phone,
		Source:         l.Source,
		Status:         string(l.Status),
		EstimatedValue: l.EstimatedValue,
		Currency:       l.Currency,
		AssignedTo:     l.AssignedTo,
		CreatedBy:      l.CreatedBy,
		ConvertedDeal:  l.ConvertedDeal,
		CreatedAt:      l.CreatedAt,
		UpdatedAt:      l.UpdatedAt,
	}
}

func toDealDTO(d *crm.Deal) *DealDTO {
	return &DealDTO{
		ID:                d.ID,
		Title:             d.Title,
		LeadID:            d.LeadID,
		Stage:             string(d.Stage),
		Value:             d.Value,
		Currency:          d.Currency,
		ExpectedCloseDate: d.ExpectedCloseDate,
		ClosedAt:          d.ClosedAt,
		AssignedTo:        d.AssignedTo,
		CreatedBy:         d.CreatedBy,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
}

func toTaskDTO(t *crm.Task) *TaskDTO {
	return &TaskDTO{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		DueAt:       t.DueAt,
		Priority:    string(t.Priority),
		Status:      string(t.Status),
		LeadID:      t.LeadID,
		DealID:      t.DealID,
		AssignedTo:  t.AssignedTo,
		CreatedBy:   t.CreatedBy,
		CompletedAt: t.CompletedAt,
		RemindedAt:  t.RemindedAt,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func toExpenseDTO(e *crm.Expense) *ExpenseDTO {
	return &ExpenseDTO{
		ID:          e.ID,
		Title:       e.Title,
		Category:    e.Category,
		Amount:      e.Amount,
		Currency:    e.Currency,
		IncurredOn:  e.IncurredOn,
		Status:      string(e.Status),
		SubmittedBy: e.SubmittedBy,
		ReviewedBy:  e.ReviewedBy,
		ReviewedAt:  e.ReviewedAt,
		ReviewNote:  e.ReviewNote,
		HasReceipt:  e.HasReceipt(),
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func toDocumentDTO(d *crm.Document) DocumentDTO {
	items := make([]LineItemDTO, len(d.Items))
	for i, item := range d.Items {
		items[i] = LineItemDTO{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			TaxRate:     item.TaxRate,
			Net:         crm.RoundMoney(item.Net()),
			Tax:         crm.RoundMoney(item.Tax()),
		}
	}
	return DocumentDTO{
		ID:            d.ID,
		Number:        d.Number,
		CustomerName:  d.CustomerName,
		CustomerEmail: d.CustomerEmail,
		DealID:        d.DealID,
		Currency:      d.Currency,
		IssueDate:     d.IssueDate,
		Notes:         d.Notes,
		Items:         items,
		Subtotal:      d.Subtotal,
		TaxTotal:      d.TaxTotal,
		Total:         d.Total,
		CreatedBy:     d.CreatedBy,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

// toInvoiceDTO reports the derived overdue status as of now
func toInvoiceDTO(i *crm.Invoice, now time.Time) *InvoiceDTO {
	return &InvoiceDTO{
		DocumentDTO: toDocumentDTO(&i.Document),
		DueDate:     i.DueDate,
		Status:      string(i.EffectiveStatus(now)),
		PaidAt:      i.PaidAt,
		QuotationID: i.QuotationID,
	}
}

func toQuotationDTO(q *crm.Quotation) *QuotationDTO {
	return &QuotationDTO{
		DocumentDTO: toDocumentDTO(&q.Document),
		ValidUntil:  q.ValidUntil,
		Status:      string(q.Status),
		InvoiceID:   q.InvoiceID,
	}
}

func toNoteDTO(n *crm.Note) *NoteDTO {
	return &NoteDTO{
		ID:        n.ID,
		LeadID:    n.LeadID,
		Body:      n.Body,
		CreatedBy: n.CreatedBy,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}

func toSettingsDTO(s *crm.BusinessSettings) *SettingsDTO {
	return &SettingsDTO{
		CompanyName:     s.CompanyName,
		Address:         s.Address,
		Email:           s.Email,
		Phone:           s.Phone,
		TaxID:           s.TaxID,
		BaseCurrency:    s.BaseCurrency,
		InvoicePrefix:   s.InvoicePrefix,
		QuotationPrefix: s.QuotationPrefix,
		UpdatedAt:       s.UpdatedAt,
	}
}

func toLineItems(inputs []LineItemInput) []crm.LineItem {
	items := make([]crm.LineItem, len(inputs))
	for i, in := range inputs {
		items[i] = crm.LineItem{
			Description: in.Description,
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
			TaxRate:     in.TaxRate,
		}
	}
	return items
}
