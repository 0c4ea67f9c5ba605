package notification

import (
	"time"

	"github.com/crm/backend/internal/domain/crm"
	"github.com/google/uuid"
)

// NotificationDTO represents an in-app notification
type NotificationDTO struct {
	ID        uuid.UUID  `json:"id"`
	Kind      string     `json:"kind"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	Read      bool       `json:"read"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// MarkAllReadResult reports how many notifications were marked read
type MarkAllReadResult struct {
	Updated int64 `json:"updated"`
}

func toNotificationDTO(n *crm.Notification) NotificationDTO {
	return NotificationDTO{
		ID:        n.ID,
		Kind:      string(n.Kind),
		Title:     n.Title,
		Body:      n.Body,
		Read:      n.IsRead(),
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
}
