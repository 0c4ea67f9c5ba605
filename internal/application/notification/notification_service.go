package notification

import (
	"context"
	"errors"
	"time"

	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NotificationService lets users read their own notifications
type NotificationService struct {
	repo   crm.NotificationRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(repo crm.NotificationRepository, logger *zap.Logger) *NotificationService {
	return &NotificationService{repo: repo, logger: logger, now: time.Now}
}

// List returns the user's notifications, newest first
func (s *NotificationService) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, filter shared.Filter) (*shared.Paginated[NotificationDTO], error) {
	filter = filter.Normalize()
	items, total, err := s.repo.FindByUser(ctx, userID, unreadOnly, filter)
	if err != nil {
		s.logger.Error("Failed to list notifications", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list notifications")
	}

	dtos := make([]NotificationDTO, len(items))
	for i, n := range items {
		dtos[i] = toNotificationDTO(n)
	}
	page := shared.NewPaginated(dtos, total, filter.Page, filter.PageSize)
	return &page, nil
}

// MarkRead marks one of the user's notifications as read
func (s *NotificationService) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.repo.MarkRead(ctx, userID, id, s.now()); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewDomainError("NOTIFICATION_NOT_FOUND", "Notification not found")
		}
		s.logger.Error("Failed to mark notification read", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to mark notification read")
	}
	return nil
}

// MarkAllRead marks every unread notification of the user as read
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) (*MarkAllReadResult, error) {
	updated, err := s.repo.MarkAllRead(ctx, userID, s.now())
	if err != nil {
		s.logger.Error("Failed to mark notifications read", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to mark notifications read")
	}
	return &MarkAllReadResult{Updated: updated}, nil
}
