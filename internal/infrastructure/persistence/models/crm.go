package models

import (
	"time"

	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LeadModel is the persistence model for the Lead domain entity.
type LeadModel struct {
	OwnedAggregateModel
	Name            string          `gorm:"type:varchar(200);not null"`
	Company         string          `gorm:"type:varchar(200)"`
	Email           string          `gorm:"type:varchar(200)"`
	Phone           string          `gorm:"type:varchar(50)"`
	Source          string          `gorm:"type:varchar(100);index"`
	Status          crm.LeadStatus  `gorm:"type:varchar(20);not null;default:'new';index"`
	EstimatedValue  decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0"`
	Currency        string          `gorm:"type:varchar(3);not null"`
	AssignedTo      uuid.UUID       `gorm:"type:uuid;not null;index"`
	ConvertedDealID *uuid.UUID      `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (LeadModel) TableName() string {
	return "leads"
}

// ToDomain converts the persistence model to a domain Lead entity.
func (m *LeadModel) ToDomain() *crm.Lead {
	return &crm.Lead{
		OwnedAggregateRoot: m.ToOwnedAggregateRoot(),
		Name:               m.Name,
		Company:            m.Company,
		Email:              m.Email,
		Phone:              m.Phone,
		Source:             m.Source,
		Status:             m.Status,
		EstimatedValue:     m.EstimatedValue,
		Currency:           m.Currency,
		AssignedTo:         m.AssignedTo,
		ConvertedDeal:      m.ConvertedDealID,
	}
}

// LeadModelFromDomain creates a new persistence model from a domain Lead entity.
func LeadModelFromDomain(l *crm.Lead) *LeadModel {
	m := &LeadModel{
		Name:            l.Name,
		Company:         l.Company,
		Email:           l.Email,
		Phone:           l.Phone,
		Source:          l.Source,
		Status:          l.Status,
		EstimatedValue:  l.EstimatedValue,
		Currency:        l.Currency,
		AssignedTo:      l.AssignedTo,
		ConvertedDealID: l.ConvertedDeal,
	}
	m.FromDomainOwnedAggregateRoot(l.OwnedAggregateRoot)
	return m
}

// DealModel is the persistence model for the Deal domain entity.
type DealModel struct {
	OwnedAggregateModel
	Title             string          `gorm:"type:varchar(200);not null"`
	LeadID            *uuid.UUID      `gorm:"type:uuid;index"`
	Stage             crm.DealStage   `gorm:"type:varchar(20);not null;default:'prospecting';index"`
	Value             decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0"`
	Currency          string          `gorm:"type:varchar(3);not null"`
	ExpectedCloseDate *time.Time
	ClosedAt          *time.Time
	AssignedTo        uuid.UUID `gorm:"type:uuid;not null;index"`
}

// TableName returns the table name for GORM
func (DealModel) TableName() string {
	return "deals"
}

// ToDomain converts the persistence model to a domain Deal entity.
func (m *DealModel) ToDomain() *crm.Deal {
	return &crm.Deal{
		OwnedAggregateRoot: m.ToOwnedAggregateRoot(),
		Title:              m.Title,
		LeadID:             m.LeadID,
		Stage:              m.Stage,
		Value:              m.Value,
		Currency:           m.Currency,
		ExpectedCloseDate:  m.ExpectedCloseDate,
		ClosedAt:           m.ClosedAt,
		AssignedTo:         m.AssignedTo,
	}
}

// DealModelFromDomain creates a new persistence model from a domain Deal entity.
func DealModelFromDomain(d *crm.Deal) *DealModel {
	m := &DealModel{
		Title:             d.Title,
		LeadID:            d.LeadID,
		Stage:             d.Stage,
		Value:             d.Value,
		Currency:          d.Currency,
		ExpectedCloseDate: d.ExpectedCloseDate,
		ClosedAt:          d.ClosedAt,
		AssignedTo:        d.AssignedTo,
	}
	m.FromDomainOwnedAggregateRoot(d.OwnedAggregateRoot)
	return m
}

// TaskModel is the persistence model for the Task domain entity.
type TaskModel struct {
	OwnedAggregateModel
	Title       string           `gorm:"type:varchar(200);not null"`
	Description string           `gorm:"type:text"`
	DueAt       *time.Time       `gorm:"index"`
	Priority    crm.TaskPriority `gorm:"type:varchar(10);not null;default:'medium'"`
	Status      crm.TaskStatus   `gorm:"type:varchar(20);not null;default:'pending';index"`
	LeadID      *uuid.UUID       `gorm:"type:uuid;index"`
	DealID      *uuid.UUID       `gorm:"type:uuid;index"`
	AssignedTo  uuid.UUID        `gorm:"type:uuid;not null;index"`
	CompletedAt *time.Time
	RemindedAt  *time.Time
}

// TableName returns the table name for GORM
func (TaskModel) TableName() string {
	return "tasks"
}

// ToDomain converts the persistence model to a domain Task entity.
func (m *TaskModel) ToDomain() *crm.Task {
	return &crm.Task{
		OwnedAggregateRoot: m.ToOwnedAggregateRoot(),
		Title:              m.Title,
		Description:        m.Description,
		DueAt:              m.DueAt,
		Priority:           m.Priority,
		Status:             m.Status,
		LeadID:             m.LeadID,
		DealID:             m.DealID,
		AssignedTo:         m.AssignedTo,
		CompletedAt:        m.CompletedAt,
		RemindedAt:         m.RemindedAt,
	}
}

// TaskModelFromDomain creates a new persistence model from a domain Task entity.
func TaskModelFromDomain(t *crm.Task) *TaskModel {
	m := &TaskModel{
		Title:       t.Title,
		Description: t.Description,
		DueAt:       t.DueAt,
		Priority:    t.Priority,
		Status:      t.Status,
		LeadID:      t.LeadID,
		DealID:      t.DealID,
		AssignedTo:  t.AssignedTo,
		CompletedAt: t.CompletedAt,
		RemindedAt:  t.RemindedAt,
	}
	m.FromDomainOwnedAggregateRoot(t.OwnedAggregateRoot)
	return m
}

// ExpenseModel is the persistence model for the Expense domain entity.
type ExpenseModel struct {
	AggregateModel
	Title       string            `gorm:"type:varchar(200);not null"`
	Category    string            `gorm:"type:varchar(50);not null;index"`
	Amount      decimal.Decimal   `gorm:"type:numeric(18,2);not null"`
	Currency    string            `gorm:"type:varchar(3);not null"`
	IncurredOn  time.Time         `gorm:"not null;index"`
	Status      crm.ExpenseStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	SubmittedBy uuid.UUID         `gorm:"type:uuid;not null;index"`
	ReviewedBy  *uuid.UUID        `gorm:"type:uuid"`
	ReviewedAt  *time.Time
	ReviewNote  string `gorm:"type:varchar(500)"`
	ReceiptKey  string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (ExpenseModel) TableName() string {
	return "expenses"
}

// ToDomain converts the persistence model to a domain Expense entity.
func (m *ExpenseModel) ToDomain() *crm.Expense {
	return &crm.Expense{
		BaseAggregateRoot: m.ToAggregateRoot(),
		Title:             m.Title,
		Category:          m.Category,
		Amount:            m.Amount,
		Currency:          m.Currency,
		IncurredOn:        m.IncurredOn,
		Status:            m.Status,
		SubmittedBy:       m.SubmittedBy,
		ReviewedBy:        m.ReviewedBy,
		ReviewedAt:        m.ReviewedAt,
		ReviewNote:        m.ReviewNote,
		ReceiptKey:        m.ReceiptKey,
	}
}

// ExpenseModelFromDomain creates a new persistence model from a domain Expense entity.
func ExpenseModelFromDomain(e *crm.Expense) *ExpenseModel {
	m := &ExpenseModel{
		Title:       e.Title,
		Category:    e.Category,
		Amount:      e.Amount,
		Currency:    e.Currency,
		IncurredOn:  e.IncurredOn,
		Status:      e.Status,
		SubmittedBy: e.SubmittedBy,
		ReviewedBy:  e.ReviewedBy,
		ReviewedAt:  e.ReviewedAt,
		ReviewNote:  e.ReviewNote,
		ReceiptKey:  e.ReceiptKey,
	}
	m.FromDomainAggregateRoot(e.BaseAggregateRoot)
	return m
}

// NoteModel is the persistence model for the Note domain entity.
type NoteModel struct {
	OwnedAggregateModel
	LeadID uuid.UUID `gorm:"type:uuid;not null;index"`
	Body   string    `gorm:"type:text;not null"`
}

// TableName returns the table name for GORM
func (NoteModel) TableName() string {
	return "notes"
}

// ToDomain converts the persistence model to a domain Note entity.
func (m *NoteModel) ToDomain() *crm.Note {
	return &crm.Note{
		OwnedAggregateRoot: m.ToOwnedAggregateRoot(),
		LeadID:             m.LeadID,
		Body:               m.Body,
	}
}

// NoteModelFromDomain creates a new persistence model from a domain Note entity.
func NoteModelFromDomain(n *crm.Note) *NoteModel {
	m := &NoteModel{LeadID: n.LeadID, Body: n.Body}
	m.FromDomainOwnedAggregateRoot(n.OwnedAggregateRoot)
	return m
}

// NotificationModel is the persistence model for in-app notifications.
type NotificationModel struct {
	BaseModel
	UserID uuid.UUID            `gorm:"type:uuid;not null;index"`
	Kind   crm.NotificationKind `gorm:"type:varchar(50);not null"`
	Title  string               `gorm:"type:varchar(200);not null"`
	Body   string               `gorm:"type:text"`
	ReadAt *time.Time           `gorm:"index"`
}

// TableName returns the table name for GORM
func (NotificationModel) TableName() string {
	return "notifications"
}

// ToDomain converts the persistence model to a domain Notification.
func (m *NotificationModel) ToDomain() *crm.Notification {
	return &crm.Notification{
		BaseEntity: m.BaseModel.ToDomain(),
		UserID:     m.UserID,
		Kind:       m.Kind,
		Title:      m.Title,
		Body:       m.Body,
		ReadAt:     m.ReadAt,
	}
}

// NotificationModelFromDomain creates a new persistence model from a domain Notification.
func NotificationModelFromDomain(n *crm.Notification) *NotificationModel {
	m := &NotificationModel{
		UserID: n.UserID,
		Kind:   n.Kind,
		Title:  n.Title,
		Body:   n.Body,
		ReadAt: n.ReadAt,
	}
	m.FromDomainBaseEntity(n.BaseEntity)
	return m
}

// BusinessSettingsModel is the single-row settings table.
type BusinessSettingsModel struct {
	BaseModel
	CompanyName     string `gorm:"type:varchar(200);not null"`
	Address         string `gorm:"type:varchar(500)"`
	Email           string `gorm:"type:varchar(200)"`
	Phone           string `gorm:"type:varchar(50)"`
	TaxID           string `gorm:"type:varchar(50)"`
	BaseCurrency    string `gorm:"type:varchar(3);not null"`
	InvoicePrefix   string `gorm:"type:varchar(20);not null"`
	QuotationPrefix string `gorm:"type:varchar(20);not null"`
}

// TableName returns the table name for GORM
func (BusinessSettingsModel) TableName() string {
	return "business_settings"
}

// ToDomain converts the persistence model to domain BusinessSettings.
func (m *BusinessSettingsModel) ToDomain() *crm.BusinessSettings {
	return &crm.BusinessSettings{
		BaseEntity:      shared.BaseEntity{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		CompanyName:     m.CompanyName,
		Address:         m.Address,
		Email:           m.Email,
		Phone:           m.Phone,
		TaxID:           m.TaxID,
		BaseCurrency:    m.BaseCurrency,
		InvoicePrefix:   m.InvoicePrefix,
		QuotationPrefix: m.QuotationPrefix,
	}
}

// BusinessSettingsModelFromDomain creates a new persistence model from domain BusinessSettings.
func BusinessSettingsModelFromDomain(s *crm.BusinessSettings) *BusinessSettingsModel {
	m := &BusinessSettingsModel{
		CompanyName:     s.CompanyName,
		Address:         s.Address,
		Email:           s.Email,
		Phone:           s.Phone,
		TaxID:           s.TaxID,
		BaseCurrency:    s.BaseCurrency,
		InvoicePrefix:   s.InvoicePrefix,
		QuotationPrefix: s.QuotationPrefix,
	}
	m.FromDomainBaseEntity(s.BaseEntity)
	return m
}
