package crm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notifier delivers in-app notifications to a user
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, kind crm.NotificationKind, title, body string) error
}

// UserDirectory looks up users referenced by CRM records
type UserDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error)
}

// DocumentRenderer turns invoices and quotations into PDF bytes
type DocumentRenderer interface {
	Invoice(invoice *crm.Invoice, settings *crm.BusinessSettings) ([]byte, error)
	Quotation(quotation *crm.Quotation, settings *crm.BusinessSettings) ([]byte, error)
}

// ObjectStorage issues presigned URLs against an object store
type ObjectStorage interface {
	GenerateUploadURL(ctx context.Context, key, contentType string, expiresIn time.Duration) (string, time.Time, error)
	GenerateDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error)
	ObjectExists(ctx context.Context, key string) (bool, error)
	DeleteObject(ctx context.Context, key string) error
}

// Domain event types published by the CRM services
const (
	EventLeadAssigned      = "lead.assigned"
	EventLeadConverted     = "lead.converted"
	EventDealStageChanged  = "deal.stage_changed"
	EventExpenseReviewed   = "expense.reviewed"
	EventInvoicePaid       = "invoice.paid"
	EventQuotationAccepted = "quotation.accepted"
)

// Collaborators bundles the side-effect ports shared by every CRM service.
// Notifier and Publisher are optional.
type Collaborators struct {
	Users     UserDirectory
	Notifier  Notifier
	Publisher shared.EventPublisher
	Logger    *zap.Logger
}

// checkAssignee verifies that the assignee exists, is active and falls inside the actor's scope
func (c Collaborators) checkAssignee(ctx context.Context, actor identity.Actor, assignee uuid.UUID) error {
	if !actor.Scope.Contains(assignee) {
		return shared.NewDomainError("ASSIGNEE_NOT_VISIBLE", "Records can only be assigned to users in your scope")
	}
	user, err := c.Users.FindByID(ctx, assignee)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewDomainError("ASSIGNEE_NOT_FOUND", "Assignee not found")
		}
		c.Logger.Error("Failed to load assignee", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to validate assignee")
	}
	if !user.CanLogin() {
		return shared.NewDomainError("ASSIGNEE_INACTIVE", "Assignee is deactivated")
	}
	return nil
}

// notify sends an in-app notification; failures are logged only
func (c Collaborators) notify(ctx context.Context, userID uuid.UUID, kind crm.NotificationKind, title, body string) {
	if c.Notifier == nil {
		return
	}
	if err := c.Notifier.Notify(ctx, userID, kind, title, body); err != nil {
		c.Logger.Warn("Failed to create notification",
			zap.String("user_id", userID.String()),
			zap.String("kind", string(kind)),
			zap.Error(err))
	}
}

// publish emits domain events; failures are logged only
func (c Collaborators) publish(ctx context.Context, events ...shared.DomainEvent) {
	if c.Publisher == nil {
		return
	}
	if err := c.Publisher.Publish(ctx, events...); err != nil {
		c.Logger.Warn("Failed to publish domain events", zap.Int("count", len(events)), zap.Error(err))
	}
}

// lookupError maps a repository read failure to the entity's not-found error
func lookupError(logger *zap.Logger, err error, entity string) error {
	if errors.Is(err, shared.ErrNotFound) {
		return notFound(entity)
	}
	logger.Error("Failed to find "+entity, zap.Error(err))
	return shared.NewDomainError("INTERNAL_ERROR", "Failed to find "+entity)
}

func notFound(entity string) error {
	return shared.NewDomainError(strings.ToUpper(entity)+"_NOT_FOUND", strings.ToUpper(entity[:1])+entity[1:]+" not found")
}

// internalError logs a storage failure and hides it behind INTERNAL_ERROR
func internalError(logger *zap.Logger, err error, action string) error {
	logger.Error("Failed to "+action, zap.Error(err))
	return shared.NewDomainError("INTERNAL_ERROR", "Failed to "+action)
}
