package crm

import (
	"time"

	"github.com/crm/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// NotificationKind tells clients how to render a notification
type NotificationKind string

const (
	NotificationTaskReminder      NotificationKind = "task.reminder"
	NotificationLeadAssigned      NotificationKind = "lead.assigned"
	NotificationQuotationAccepted NotificationKind = "quotation.accepted"
	NotificationExpenseReviewed   NotificationKind = "expense.reviewed"
)

// Notification is an in-app message for one user
type Notification struct {
	shared.BaseEntity
	UserID uuid.UUID
	Kind   NotificationKind
	Title  string
	Body   string
	ReadAt *time.Time
}

// NewNotification creates an unread notification
func NewNotification(userID uuid.UUID, kind NotificationKind, title, body string) *Notification {
	return &Notification{
		BaseEntity: shared.NewBaseEntity(),
		UserID:     userID,
		Kind:       kind,
		Title:      title,
		Body:       body,
	}
}

// MarkRead marks the notification as read; reading twice keeps the first time
func (n *Notification) MarkRead(at time.Time) {
	if n.ReadAt == nil {
		at = at.UTC()
		n.ReadAt = &at
	}
}

// IsRead reports whether the notification was read
func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}
