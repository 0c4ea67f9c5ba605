// Package notification delivers in-app notifications and task reminders.
package notification

import (
	"context"

	"github.com/crm/backend/internal/domain/crm"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Dispatcher stores in-app notifications. It satisfies the CRM services' Notifier port.
type Dispatcher struct {
	repo   crm.NotificationRepository
	logger *zap.Logger
}

// NewDispatcher creates a new Dispatcher
func NewDispatcher(repo crm.NotificationRepository, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{repo: repo, logger: logger}
}

// Notify creates an unread notification for the user
func (d *Dispatcher) Notify(ctx context.Context, userID uuid.UUID, kind crm.NotificationKind, title, body string) error {
	n := crm.NewNotification(userID, kind, title, body)
	if err := d.repo.Create(ctx, n); err != nil {
		return err
	}
	d.logger.Debug("Notification created",
		zap.String("user_id", userID.String()),
		zap.String("kind", string(kind)))
	return nil
}
