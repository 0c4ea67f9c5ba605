package crm

import (
	"context"
	"time"

	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Every read below takes the caller's access scope; a record outside the
// scope is reported as shared.ErrNotFound.

// LeadFilter contains filter options for listing leads
type LeadFilter struct {
	shared.Filter
	Status     *LeadStatus
	AssignedTo *uuid.UUID
	Source     string
}

// LeadRepository persists leads
type LeadRepository interface {
	Create(ctx context.Context, lead *Lead) error
	// CreateBatch inserts every lead or none of them
	CreateBatch(ctx context.Context, leads []*Lead) error
	Update(ctx context.Context, lead *Lead) error
	Delete(ctx context.Context, scope identity.AccessScope, id uuid.UUID) error
	FindByID(ctx context.Context, scope identity.AccessScope, id uuid.UUID) (*Lead, error)
	FindAll(ctx context.Context, scope identity.AccessScope, filter LeadFilter) ([]*Lead, int64, error)
	CountByStatus(ctx context.Context, scope identity.AccessScope, from, to time.Time) (map[LeadStatus]int64, error)
}

// DealFilter contains filter options for listing deals
type DealFilter struct {
	shared.Filter
	Stage      *DealStage
	AssignedTo *uuid.UUID
	LeadID     *uuid.UUID
}

// DealRepository persists deals
type DealRepository interface {
	Create(ctx context.Context, deal *Deal) error
	Update(ctx context.Context, deal *Deal) error
	Delete(ctx context.Context, scope identity.AccessScope, id uuid.UUID) error
	FindByID(ctx context.Context, scope identity.AccessScope, id uuid.UUID) (*Deal, error)
	FindAll(ctx context.Context, scope identity.AccessScope, filter DealFilter) ([]*Deal, int64, error)
	// FindForReport returns every visible deal created in the window
	FindForReport(ctx context.Context, scope identity.AccessScope, from, to time.Time) ([]*Deal, error)
}

// TaskFilter contains filter options for listing tasks
type TaskFilter struct {
	shared.Filter
	Status     *TaskStatus
	AssignedTo *uuid.UUID
	LeadID     *uuid.UUID
	DealID     *uuid.UUID
	DueBefore  *time.Time
}

// TaskRepository persists tasks
type TaskRepository interface {
	Create(ctx context.Context, task *Task) error
	Update(ctx context.Context, task *Task) error
	Delete(ctx context.Context, scope identity.AccessScope, id uuid.UUID) error
	FindByID(ctx context.Context, scope identity.AccessScope, id uuid.UUID) (*Task, error)
	FindAll(ctx context.Context, scope identity.AccessScope, filter TaskFilter) ([]*Task, int64, error)
	// FindDueForReminder returns open, unreminded tasks due at or before the deadline, across all users
	FindDueForReminder(ctx context.Context, deadline time.Time, limit int) ([]*Task, error)
	// MarkReminded stamps reminded_at only if it is still unset
	MarkReminded(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
}

// ExpenseFilter contains filter options for listing expenses
type ExpenseFilter struct {
	shared.Filter
	Status      *ExpenseStatus
	Category    string
	SubmittedBy *uuid.UUID
}

// ExpenseRepository persists expenses
type ExpenseRepository interface {
	Create(ctx context.Context, expense *Expense) error
	Update(ctx context.Context, expense *Expense) error
	Delete(ctx context.Context, scope identity.AccessScope, id uuid.UUID) error
	FindByID(ctx context.Context, scope identity.AccessScope, id uuid.UUID) (*Expense, error)
	FindAll(ctx context.Context, scope identity.AccessScope, filter ExpenseFilter) ([]*Expense, int64, error)
	FindApprovedForReport(ctx context.Context, scope identity.AccessScope, from, to time.Time) ([]*Expense, error)
}

// DocumentFilter contains filter options for listing invoices and quotations
type DocumentFilter struct {
	shared.Filter
	Status *string
	DealID *uuid.UUID
}

// InvoiceRepository persists invoices with their line items
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *Invoice) error
	Update(ctx context.Context, invoice *Invoice) error
	Delete(ctx context.Context, scope identity.AccessScope, id uuid.UUID) error
	FindByID(ctx context.Context, scope identity.AccessScope, id uuid.UUID) (*Invoice, error)
	FindAll(ctx context.Context, scope identity.AccessScope, filter DocumentFilter) ([]*Invoice, int64, error)
	FindPaidForReport(ctx context.Context, scope identity.AccessScope, from, to time.Time) ([]*Invoice, error)
	// NextNumber returns the next free number for the prefix
	NextNumber(ctx context.Context, prefix string) (string, error)
}

// QuotationRepository persists quotations with their line items
type QuotationRepository interface {
	Create(ctx context.Context, quotation *Quotation) error
	Update(ctx context.Context, quotation *Quotation) error
	Delete(ctx context.Context, scope identity.AccessScope, id uuid.UUID) error
	FindByID(ctx context.Context, scope identity.AccessScope, id uuid.UUID) (*Quotation, error)
	FindAll(ctx context.Context, scope identity.AccessScope, filter DocumentFilter) ([]*Quotation, int64, error)
	NextNumber(ctx context.Context, prefix string) (string, error)
}

// NoteRepository persists lead notes
type NoteRepository interface {
	Create(ctx context.Context, note *Note) error
	Update(ctx context.Context, note *Note) error
	Delete(ctx context.Context, scope identity.AccessScope, id uuid.UUID) error
	FindByID(ctx context.Context, scope identity.AccessScope, id uuid.UUID) (*Note, error)
	FindByLead(ctx context.Context, scope identity.AccessScope, leadID uuid.UUID, filter shared.Filter) ([]*Note, int64, error)
}

// NotificationRepository persists in-app notifications. Notifications
// belong to exactly one user and are always read by their recipient.
type NotificationRepository interface {
	Create(ctx context.Context, n *Notification) error
	FindByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, filter shared.Filter) ([]*Notification, int64, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID, at time.Time) error
	MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error)
}

// SettingsRepository persists the singleton business settings
type SettingsRepository interface {
	// Get returns the stored settings or shared.ErrNotFound
	Get(ctx context.Context) (*BusinessSettings, error)
	Save(ctx context.Context, settings *BusinessSettings) error
}
