package handler

import (
	"github.com/crm/backend/internal/application/notification"
	"github.com/gin-gonic/gin"
)

// NotificationHandler serves the caller's own notifications
type NotificationHandler struct {
	BaseHandler
	notificationService *notification.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notificationService *notification.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// NotificationListQuery filters the notification list
type NotificationListQuery struct {
	ListQuery
	UnreadOnly bool `form:"unread_only"`
}

// List handles GET /notifications
func (h *NotificationHandler) List(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var query NotificationListQuery
	if !h.BindQuery(c, &query) {
		return
	}

	page, err := h.notificationService.List(c.Request.Context(), actor.UserID, query.UnreadOnly, query.Filter())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	SuccessPage(c, page)
}

// MarkRead handles POST /notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	if err := h.notificationService.MarkRead(c.Request.Context(), actor.UserID, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// MarkAllRead handles POST /notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	result, err := h.notificationService.MarkAllRead(c.Request.Context(), actor.UserID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
