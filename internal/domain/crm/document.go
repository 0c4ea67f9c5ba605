package crm

import (
	"strings"
	"time"

	"github.com/crm/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// LineItem is one billed line of an invoice or quotation
type LineItem struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	TaxRate     decimal.Decimal // Percent, e.g. 7.5
}

// Net returns quantity * unit price
func (li LineItem) Net() decimal.Decimal {
	return li.Quantity.Mul(li.UnitPrice)
}

// Tax returns the tax amount of the line
func (li LineItem) Tax() decimal.Decimal {
	return li.Net().Mul(li.TaxRate).Div(hundred)
}

func (li LineItem) validate() error {
	if strings.TrimSpace(li.Description) == "" {
		return shared.NewDomainError("INVALID_LINE_ITEM", "Line item description cannot be empty")
	}
	if !li.Quantity.IsPositive() {
		return shared.NewDomainError("INVALID_LINE_ITEM", "Line item quantity must be positive")
	}
	if li.UnitPrice.IsNegative() {
		return shared.NewDomainError("INVALID_LINE_ITEM", "Line item unit price cannot be negative")
	}
	if li.TaxRate.IsNegative() || li.TaxRate.GreaterThan(hundred) {
		return shared.NewDomainError("INVALID_LINE_ITEM", "Line item tax rate must be between 0 and 100")
	}
	return nil
}

// Document holds what invoices and quotations have in common
type Document struct {
	shared.OwnedAggregateRoot
	Number        string
	CustomerName  string
	CustomerEmail string
	DealID        *uuid.UUID
	Currency      string
	IssueDate     time.Time
	Notes         string
	Items         []LineItem
	Subtotal      decimal.Decimal
	TaxTotal      decimal.Decimal
	Total         decimal.Decimal
}

func newDocument(createdBy uuid.UUID, number, customerName, currency string, issueDate time.Time) (Document, error) {
	if err := validateRequired("INVALID_DOCUMENT_NUMBER", "Document number", number, 50); err != nil {
		return Document{}, err
	}
	if err := validateRequired("INVALID_CUSTOMER", "Customer name", customerName, 200); err != nil {
		return Document{}, err
	}
	code, err := NormalizeCurrency(currency)
	if err != nil {
		return Document{}, err
	}
	if issueDate.IsZero() {
		issueDate = time.Now().UTC()
	}
	return Document{
		OwnedAggregateRoot: shared.NewOwnedAggregateRoot(createdBy),
		Number:             strings.TrimSpace(number),
		CustomerName:       strings.TrimSpace(customerName),
		Currency:           code,
		IssueDate:          issueDate.UTC(),
		Items:              make([]LineItem, 0),
		Subtotal:           decimal.Zero,
		TaxTotal:           decimal.Zero,
		Total:              decimal.Zero,
	}, nil
}

// SetItems replaces the line items and recomputes the totals
func (d *Document) SetItems(items []LineItem) error {
	if len(items) == 0 {
		return shared.NewDomainError("INVALID_LINE_ITEM", "At least one line item is required")
	}
	for _, item := range items {
		if err := item.validate(); err != nil {
			return err
		}
	}
	d.Items = items
	d.recalculate()
	return nil
}

// SetCustomer updates the billed customer
func (d *Document) SetCustomer(name, email string) error {
	if err := validateRequired("INVALID_CUSTOMER", "Customer name", name, 200); err != nil {
		return err
	}
	d.CustomerName = strings.TrimSpace(name)
	d.CustomerEmail = strings.ToLower(strings.TrimSpace(email))
	return nil
}

func (d *Document) recalculate() {
	subtotal := decimal.Zero
	tax := decimal.Zero
	for _, item := range d.Items {
		subtotal = subtotal.Add(item.Net())
		tax = tax.Add(item.Tax())
	}
	d.Subtotal = RoundMoney(subtotal)
	d.TaxTotal = RoundMoney(tax)
	d.Total = d.Subtotal.Add(d.TaxTotal)
}

// InvoiceStatus represents the billing state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
	InvoiceStatusOverdue   InvoiceStatus = "overdue" // Derived, never stored
)

// IsValid checks if the status is a storable InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPaid, InvoiceStatusCancelled:
		return true
	}
	return false
}

// Invoice bills a customer
type Invoice struct {
	Document
	DueDate     *time.Time
	Status      InvoiceStatus
	PaidAt      *time.Time
	QuotationID *uuid.UUID
}

// NewInvoice creates a new draft invoice
func NewInvoice(createdBy uuid.UUID, number, customerName, currency string, issueDate time.Time, items []LineItem) (*Invoice, error) {
	doc, err := newDocument(createdBy, number, customerName, currency, issueDate)
	if err != nil {
		return nil, err
	}
	if err := doc.SetItems(items); err != nil {
		return nil, err
	}
	return &Invoice{Document: doc, Status: InvoiceStatusDraft}, nil
}

// SetDueDate sets the payment due date, which cannot precede the issue date
func (i *Invoice) SetDueDate(due *time.Time) error {
	if due != nil && due.Before(i.IssueDate.Truncate(24*time.Hour)) {
		return shared.NewDomainError("INVALID_DUE_DATE", "Due date cannot be before the issue date")
	}
	i.DueDate = due
	return nil
}

// EnsureEditable rejects edits once the invoice left draft
func (i *Invoice) EnsureEditable() error {
	if i.Status != InvoiceStatusDraft {
		return shared.NewDomainError("INVALID_STATE", "Only draft invoices can be edited")
	}
	return nil
}

// MarkSent issues the invoice to the customer
func (i *Invoice) MarkSent() error {
	if i.Status != InvoiceStatusDraft {
		return shared.NewDomainError("INVALID_STATE", "Only draft invoices can be sent")
	}
	i.Status = InvoiceStatusSent
	i.IncrementVersion()
	return nil
}

// MarkPaid records the payment of a sent invoice
func (i *Invoice) MarkPaid(at time.Time) error {
	if i.Status != InvoiceStatusSent {
		return shared.NewDomainError("INVALID_STATE", "Only sent invoices can be marked paid")
	}
	at = at.UTC()
	i.Status = InvoiceStatusPaid
	i.PaidAt = &at
	i.IncrementVersion()
	return nil
}

// Cancel voids an unpaid invoice
func (i *Invoice) Cancel() error {
	if i.Status == InvoiceStatusPaid || i.Status == InvoiceStatusCancelled {
		return shared.NewDomainError("INVALID_STATE", "Invoice is already "+string(i.Status))
	}
	i.Status = InvoiceStatusCancelled
	i.IncrementVersion()
	return nil
}

// EffectiveStatus returns overdue for sent invoices past their due date
func (i *Invoice) EffectiveStatus(now time.Time) InvoiceStatus {
	if i.Status == InvoiceStatusSent && i.DueDate != nil && now.After(*i.DueDate) {
		return InvoiceStatusOverdue
	}
	return i.Status
}

// QuotationStatus represents the negotiation state of a quotation
type QuotationStatus string

const (
	QuotationStatusDraft    QuotationStatus = "draft"
	QuotationStatusSent     QuotationStatus = "sent"
	QuotationStatusAccepted QuotationStatus = "accepted"
	QuotationStatusRejected QuotationStatus = "rejected"
	QuotationStatusExpired  QuotationStatus = "expired"
)

// IsValid checks if the status is a valid QuotationStatus
func (s QuotationStatus) IsValid() bool {
	switch s {
	case QuotationStatusDraft, QuotationStatusSent, QuotationStatusAccepted,
		QuotationStatusRejected, QuotationStatusExpired:
		return true
	}
	return false
}

// Quotation offers prices to a customer before invoicing
type Quotation struct {
	Document
	ValidUntil *time.Time
	Status     QuotationStatus
	InvoiceID  *uuid.UUID
}

// NewQuotation creates a new draft quotation
func NewQuotation(createdBy uuid.UUID, number, customerName, currency string, issueDate time.Time, items []LineItem) (*Quotation, error) {
	doc, err := newDocument(createdBy, number, customerName, currency, issueDate)
	if err != nil {
		return nil, err
	}
	if err := doc.SetItems(items); err != nil {
		return nil, err
	}
	return &Quotation{Document: doc, Status: QuotationStatusDraft}, nil
}

// SetValidUntil sets the expiry date of the offer
func (q *Quotation) SetValidUntil(until *time.Time) error {
	if until != nil && until.Before(q.IssueDate.Truncate(24*time.Hour)) {
		return shared.NewDomainError("INVALID_VALID_UNTIL", "Valid-until date cannot be before the issue date")
	}
	q.ValidUntil = until
	return nil
}

// EnsureEditable rejects edits once the quotation left draft
func (q *Quotation) EnsureEditable() error {
	if q.Status != QuotationStatusDraft {
		return shared.NewDomainError("INVALID_STATE", "Only draft quotations can be edited")
	}
	return nil
}

// IsExpiredAt reports whether the offer lapsed before now
func (q *Quotation) IsExpiredAt(now time.Time) bool {
	return q.ValidUntil != nil && now.After(*q.ValidUntil)
}

// MarkSent sends the quotation to the customer
func (q *Quotation) MarkSent() error {
	if q.Status != QuotationStatusDraft {
		return shared.NewDomainError("INVALID_STATE", "Only draft quotations can be sent")
	}
	q.Status = QuotationStatusSent
	q.IncrementVersion()
	return nil
}

// Accept records the customer's acceptance and builds the draft invoice it converts into
func (q *Quotation) Accept(now time.Time, invoiceNumber string, acceptedBy uuid.UUID) (*Invoice, error) {
	if q.Status != QuotationStatusSent {
		return nil, shared.NewDomainError("INVALID_STATE", "Only sent quotations can be accepted")
	}
	if q.IsExpiredAt(now) {
		q.Status = QuotationStatusExpired
		q.IncrementVersion()
		return nil, shared.NewDomainError("QUOTATION_EXPIRED", "Quotation has expired")
	}

	items := make([]LineItem, len(q.Items))
	copy(items, q.Items)
	invoice, err := NewInvoice(acceptedBy, invoiceNumber, q.CustomerName, q.Currency, now, items)
	if err != nil {
		return nil, err
	}
	invoice.CustomerEmail = q.CustomerEmail
	invoice.DealID = q.DealID
	invoice.Notes = q.Notes
	quotationID := q.ID
	invoice.QuotationID = &quotationID

	invoiceID := invoice.ID
	q.Status = QuotationStatusAccepted
	q.InvoiceID = &invoiceID
	q.IncrementVersion()
	return invoice, nil
}

// Reject records the customer's refusal
func (q *Quotation) Reject() error {
	if q.Status != QuotationStatusSent {
		return shared.NewDomainError("INVALID_STATE", "Only sent quotations can be rejected")
	}
	q.Status = QuotationStatusRejected
	q.IncrementVersion()
	return nil
}
