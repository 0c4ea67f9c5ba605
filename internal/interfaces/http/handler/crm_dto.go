package handler

import (
	"time"

	appcrm "github.com/crm/backend/internal/application/crm"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =====================
// Lead Request DTOs
// =====================

// LeadRequest is the body of lead create and update requests
type LeadRequest struct {
	Name           string          `json:"name" binding:"required,max=200"`
	Company        string          `json:"company" binding:"max=200"`
	Email          string          `json:"email" binding:"omitempty,email,max=200"`
	Phone          string          `json:"phone" binding:"max=50"`
	Source         string          `json:"source" binding:"max=100"`
	EstimatedValue decimal.Decimal `json:"estimated_value"`
	Currency       string          `json:"currency" binding:"omitempty,len=3"`
	AssignedTo     *uuid.UUID      `json:"assigned_to"`
}

func (r LeadRequest) createInput() appcrm.CreateLeadInput {
	return appcrm.CreateLeadInput{
		Name:           r.Name,
		Company:        r.Company,
		Email:          r.Email,
		Phone:          r.Phone,
		Source:         r.Source,
		EstimatedValue: r.EstimatedValue,
		Currency:       r.Currency,
		AssignedTo:     r.AssignedTo,
	}
}

func (r LeadRequest) updateInput(id uuid.UUID) appcrm.UpdateLeadInput {
	return appcrm.UpdateLeadInput{
		ID:             id,
		Name:           r.Name,
		Company:        r.Company,
		Email:          r.Email,
		Phone:          r.Phone,
		Source:         r.Source,
		EstimatedValue: r.EstimatedValue,
		Currency:       r.Currency,
	}
}

// LeadListQuery filters the lead list
type LeadListQuery struct {
	ListQuery
	Status     string `form:"status" binding:"omitempty,oneof=new contacted qualified lost converted"`
	AssignedTo string `form:"assigned_to" binding:"omitempty,uuid"`
	Source     string `form:"source" binding:"omitempty,max=100"`
}

// StatusRequest changes the status or stage of a record
type StatusRequest struct {
	Status string `json:"status" binding:"required,max=30"`
}

// StageRequest moves a deal to another stage
type StageRequest struct {
	Stage string `json:"stage" binding:"required,oneof=prospecting qualification proposal negotiation won lost"`
}

// AssignRequest reassigns a record
type AssignRequest struct {
	AssignedTo uuid.UUID `json:"assigned_to" binding:"required"`
}

// ConvertLeadRequest converts a qualified lead into a deal
type ConvertLeadRequest struct {
	Title string `json:"title" binding:"max=200"`
}

// =====================
// Deal Request DTOs
// =====================

// DealRequest is the body of deal create and update requests
type DealRequest struct {
	Title             string          `json:"title" binding:"required,max=200"`
	LeadID            *uuid.UUID      `json:"lead_id"`
	Value             decimal.Decimal `json:"value"`
	Currency          string          `json:"currency" binding:"omitempty,len=3"`
	ExpectedCloseDate *string         `json:"expected_close_date" binding:"omitempty,datetime=2006-01-02"`
	AssignedTo        *uuid.UUID      `json:"assigned_to"`
}

// DealListQuery filters the deal list
type DealListQuery struct {
	ListQuery
	Stage      string `form:"stage" binding:"omitempty,oneof=prospecting qualification proposal negotiation won lost"`
	AssignedTo string `form:"assigned_to" binding:"omitempty,uuid"`
	LeadID     string `form:"lead_id" binding:"omitempty,uuid"`
}

// =====================
// Task Request DTOs
// =====================

// TaskRequest is the body of task create and update requests
type TaskRequest struct {
	Title       string     `json:"title" binding:"required,max=200"`
	Description string     `json:"description" binding:"max=2000"`
	DueAt       *time.Time `json:"due_at"`
	Priority    string     `json:"priority" binding:"omitempty,oneof=low medium high"`
	Status      *string    `json:"status" binding:"omitempty,oneof=pending in_progress completed cancelled"`
	LeadID      *uuid.UUID `json:"lead_id"`
	DealID      *uuid.UUID `json:"deal_id"`
	AssignedTo  *uuid.UUID `json:"assigned_to"`
}

// TaskListQuery filters the task list
type TaskListQuery struct {
	ListQuery
	Status     string     `form:"status" binding:"omitempty,oneof=pending in_progress completed cancelled"`
	AssignedTo string     `form:"assigned_to" binding:"omitempty,uuid"`
	LeadID     string     `form:"lead_id" binding:"omitempty,uuid"`
	DealID     string     `form:"deal_id" binding:"omitempty,uuid"`
	DueBefore  *time.Time `form:"due_before" time_format:"2006-01-02T15:04:05Z07:00"`
}

// =====================
// Expense Request DTOs
// =====================

// ExpenseRequest is the body of expense submit and update requests
type ExpenseRequest struct {
	Title      string          `json:"title" binding:"required,max=200"`
	Category   string          `json:"category" binding:"max=50"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency" binding:"omitempty,len=3"`
	IncurredOn string          `json:"incurred_on" binding:"required,datetime=2006-01-02"`
}

// ReviewRequest approves or rejects an expense
type ReviewRequest struct {
	Note string `json:"note" binding:"max=1000"`
}

// ReceiptUploadRequest starts a receipt upload
type ReceiptUploadRequest struct {
	ContentType string `json:"content_type" binding:"required,max=100"`
}

// ReceiptConfirmRequest attaches an uploaded receipt
type ReceiptConfirmRequest struct {
	StorageKey string `json:"storage_key" binding:"required,max=500"`
}

// ExpenseListQuery filters the expense list
type ExpenseListQuery struct {
	ListQuery
	Status      string `form:"status" binding:"omitempty,oneof=pending approved rejected"`
	Category    string `form:"category" binding:"omitempty,max=50"`
	SubmittedBy string `form:"submitted_by" binding:"omitempty,uuid"`
}

// =====================
// Document Request DTOs
// =====================

// LineItemRequest is one line of an invoice or quotation
type LineItemRequest struct {
	Description string          `json:"description" binding:"required,max=500"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
}

// DocumentRequest holds the fields shared by invoices and quotations
type DocumentRequest struct {
	Number        string            `json:"number" binding:"max=50"`
	CustomerName  string            `json:"customer_name" binding:"required,max=200"`
	CustomerEmail string            `json:"customer_email" binding:"omitempty,email,max=200"`
	DealID        *uuid.UUID        `json:"deal_id"`
	Currency      string            `json:"currency" binding:"omitempty,len=3"`
	IssueDate     string            `json:"issue_date" binding:"omitempty,datetime=2006-01-02"`
	Notes         string            `json:"notes" binding:"max=2000"`
	Items         []LineItemRequest `json:"items" binding:"required,min=1,max=200,dive"`
}

func (r DocumentRequest) documentInput() (appcrm.DocumentInput, error) {
	input := appcrm.DocumentInput{
		Number:        r.Number,
		CustomerName:  r.CustomerName,
		CustomerEmail: r.CustomerEmail,
		DealID:        r.DealID,
		Currency:      r.Currency,
		Notes:         r.Notes,
		Items:         make([]appcrm.LineItemInput, len(r.Items)),
	}
	if r.IssueDate != "" {
		issued, err := parseDate(r.IssueDate)
		if err != nil {
			return input, err
		}
		input.IssueDate = issued
	}
	for i, item := range r.Items {
		input.Items[i] = appcrm.LineItemInput{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			TaxRate:     item.TaxRate,
		}
	}
	return input, nil
}

// InvoiceRequest is the body of invoice create and update requests
type InvoiceRequest struct {
	DocumentRequest
	DueDate *string `json:"due_date" binding:"omitempty,datetime=2006-01-02"`
}

// QuotationRequest is the body of quotation create and update requests
type QuotationRequest struct {
	DocumentRequest
	ValidUntil *string `json:"valid_until" binding:"omitempty,datetime=2006-01-02"`
}

// DocumentListQuery filters invoice and quotation lists
type DocumentListQuery struct {
	ListQuery
	Status string `form:"status" binding:"omitempty,oneof=draft sent paid cancelled accepted rejected expired"`
	DealID string `form:"deal_id" binding:"omitempty,uuid"`
}

// =====================
// Note Request DTOs
// =====================

// NoteRequest is the body of note create and update requests
type NoteRequest struct {
	Body string `json:"body" binding:"required,max=10000"`
}

// =====================
// Settings Request DTOs
// =====================

// SettingsRequest replaces the business settings
type SettingsRequest struct {
	CompanyName     string `json:"company_name" binding:"required,max=200"`
	Address         string `json:"address" binding:"max=500"`
	Email           string `json:"email" binding:"omitempty,email,max=200"`
	Phone           string `json:"phone" binding:"max=50"`
	TaxID           string `json:"tax_id" binding:"max=50"`
	BaseCurrency    string `json:"base_currency" binding:"omitempty,len=3"`
	InvoicePrefix   string `json:"invoice_prefix" binding:"max=10"`
	QuotationPrefix string `json:"quotation_prefix" binding:"max=10"`
}
