package models

import (
	"time"

	"github.com/crm/backend/internal/domain/crm"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentColumns are the columns invoices and quotations share
type DocumentColumns struct {
	Number        string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	CustomerName  string          `gorm:"type:varchar(200);not null"`
	CustomerEmail string          `gorm:"type:varchar(200)"`
	DealID        *uuid.UUID      `gorm:"type:uuid;index"`
	Currency      string          `gorm:"type:varchar(3);not null"`
	IssueDate     time.Time       `gorm:"not null;index"`
	Notes         string          `gorm:"type:text"`
	Subtotal      decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0"`
	TaxTotal      decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0"`
	Total         decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0"`
}

func documentColumnsFromDomain(d *crm.Document) DocumentColumns {
	return DocumentColumns{
		Number:        d.Number,
		CustomerName:  d.CustomerName,
		CustomerEmail: d.CustomerEmail,
		DealID:        d.DealID,
		Currency:      d.Currency,
		IssueDate:     d.IssueDate,
		Notes:         d.Notes,
		Subtotal:      d.Subtotal,
		TaxTotal:      d.TaxTotal,
		Total:         d.Total,
	}
}

func (c DocumentColumns) toDomain(owned OwnedAggregateModel, items []crm.LineItem) crm.Document {
	return crm.Document{
		OwnedAggregateRoot: owned.ToOwnedAggregateRoot(),
		Number:             c.Number,
		CustomerName:       c.CustomerName,
		CustomerEmail:      c.CustomerEmail,
		DealID:             c.DealID,
		Currency:           c.Currency,
		IssueDate:          c.IssueDate,
		Notes:              c.Notes,
		Items:              items,
		Subtotal:           c.Subtotal,
		TaxTotal:           c.TaxTotal,
		Total:              c.Total,
	}
}

// LineItemColumns are the columns of one document line
type LineItemColumns struct {
	Position    int             `gorm:"primaryKey;autoIncrement:false"`
	Description string          `gorm:"type:varchar(500);not null"`
	Quantity    decimal.Decimal `gorm:"type:numeric(18,4);not null"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(18,4);not null"`
	TaxRate     decimal.Decimal `gorm:"type:numeric(5,2);not null;default:0"`
}

func (c LineItemColumns) toDomain() crm.LineItem {
	return crm.LineItem{
		Description: c.Description,
		Quantity:    c.Quantity,
		UnitPrice:   c.UnitPrice,
		TaxRate:     c.TaxRate,
	}
}

func lineItemColumns(position int, li crm.LineItem) LineItemColumns {
	return LineItemColumns{
		Position:    position,
		Description: li.Description,
		Quantity:    li.Quantity,
		UnitPrice:   li.UnitPrice,
		TaxRate:     li.TaxRate,
	}
}

// InvoiceModel is the persistence model for the Invoice domain entity.
type InvoiceModel struct {
	OwnedAggregateModel
	DocumentColumns
	DueDate     *time.Time         `gorm:"index"`
	Status      crm.InvoiceStatus  `gorm:"type:varchar(20);not null;default:'draft';index"`
	PaidAt      *time.Time         `gorm:"index"`
	QuotationID *uuid.UUID         `gorm:"type:uuid"`
	Items       []InvoiceItemModel `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice entity.
// Items must be preloaded.
func (m *InvoiceModel) ToDomain() *crm.Invoice {
	items := make([]crm.LineItem, len(m.Items))
	for i, item := range m.Items {
		items[i] = item.toDomain()
	}
	return &crm.Invoice{
		Document:    m.DocumentColumns.toDomain(m.OwnedAggregateModel, items),
		DueDate:     m.DueDate,
		Status:      m.Status,
		PaidAt:      m.PaidAt,
		QuotationID: m.QuotationID,
	}
}

// InvoiceModelFromDomain creates a new persistence model, items included.
func InvoiceModelFromDomain(inv *crm.Invoice) *InvoiceModel {
	m := &InvoiceModel{
		DocumentColumns: documentColumnsFromDomain(&inv.Document),
		DueDate:         inv.DueDate,
		Status:          inv.Status,
		PaidAt:          inv.PaidAt,
		QuotationID:     inv.QuotationID,
		Items:           make([]InvoiceItemModel, len(inv.Items)),
	}
	m.FromDomainOwnedAggregateRoot(inv.OwnedAggregateRoot)
	for i, item := range inv.Items {
		m.Items[i] = InvoiceItemModel{InvoiceID: inv.ID, LineItemColumns: lineItemColumns(i+1, item)}
	}
	return m
}

// InvoiceItemModel is one line of an invoice
type InvoiceItemModel struct {
	InvoiceID uuid.UUID `gorm:"type:uuid;primaryKey"`
	LineItemColumns
}

// TableName returns the table name for GORM
func (InvoiceItemModel) TableName() string {
	return "invoice_items"
}

// QuotationModel is the persistence model for the Quotation domain entity.
type QuotationModel struct {
	OwnedAggregateModel
	DocumentColumns
	ValidUntil *time.Time           `gorm:"index"`
	Status     crm.QuotationStatus  `gorm:"type:varchar(20);not null;default:'draft';index"`
	InvoiceID  *uuid.UUID           `gorm:"type:uuid"`
	Items      []QuotationItemModel `gorm:"foreignKey:QuotationID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (QuotationModel) TableName() string {
	return "quotations"
}

// ToDomain converts the persistence model to a domain Quotation entity.
// Items must be preloaded.
func (m *QuotationModel) ToDomain() *crm.Quotation {
	items := make([]crm.LineItem, len(m.Items))
	for i, item := range m.Items {
		items[i] = item.toDomain()
	}
	return &crm.Quotation{
		Document:   m.DocumentColumns.toDomain(m.OwnedAggregateModel, items),
		ValidUntil: m.ValidUntil,
		Status:     m.Status,
		InvoiceID:  m.InvoiceID,
	}
}

// QuotationModelFromDomain creates a new persistence model, items included.
func QuotationModelFromDomain(q *crm.Quotation) *QuotationModel {
	m := &QuotationModel{
		DocumentColumns: documentColumnsFromDomain(&q.Document),
		ValidUntil:      q.ValidUntil,
		Status:          q.Status,
		InvoiceID:       q.InvoiceID,
		Items:           make([]QuotationItemModel, len(q.Items)),
	}
	m.FromDomainOwnedAggregateRoot(q.OwnedAggregateRoot)
	for i, item := range q.Items {
		m.Items[i] = QuotationItemModel{QuotationID: q.ID, LineItemColumns: lineItemColumns(i+1, item)}
	}
	return m
}

// QuotationItemModel is one line of a quotation
type QuotationItemModel struct {
	QuotationID uuid.UUID `gorm:"type:uuid;primaryKey"`
	LineItemColumns
}

// TableName returns the table name for GORM
func (QuotationItemModel) TableName() string {
	return "quotation_items"
}
