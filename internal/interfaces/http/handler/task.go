package handler

import (
	appcrm "github.com/crm/backend/internal/application/crm"
	"github.com/crm/backend/internal/domain/crm"
	"github.com/gin-gonic/gin"
)

// TaskHandler handles task endpoints
type TaskHandler struct {
	BaseHandler
	taskService *appcrm.TaskService
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(taskService *appcrm.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// Create handles POST /tasks
func (h *TaskHandler) Create(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req TaskRequest
	if !h.BindJSON(c, &req) {
		return
	}

	task, err := h.taskService.Create(c.Request.Context(), actor, appcrm.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		DueAt:       req.DueAt,
		Priority:    req.Priority,
		LeadID:      req.LeadID,
		DealID:      req.DealID,
		AssignedTo:  req.AssignedTo,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, task)
}

// GetByID handles GET /tasks/:id
func (h *TaskHandler) GetByID(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParseID(c)
	if !ok {
		return
	}

	task, err := h.taskService.GetByID(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, task)
}

// List handles GET /tasks
func (h *TaskHandler) List(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var query TaskListQuery
	if !h.BindQuery(c, &query) {
		return
	}

	filter := crm.TaskFilter{Filter: query.Filter(), DueBefore: query.DueBefore}
	if query.Status != "" {
		status := crm.TaskStatus(query.Status)
		filter.Status = &status
	}
	filter.AssignedTo = optionalUUID(query.AssignedTo)
	filter.LeadID = optionalUUID(query.LeadID)
	filter.DealID = optionalUUID(query.DealID)

	page, err := h.taskService.List(c.Request.Context(), actor, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	SuccessPage(c, page)
}

// Update handles PUT /tasks/:id
func (h *TaskHandler) Update(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	var req TaskRequest
	if !h.BindJSON(c, &req) {
		return
	}

	task, err := h.taskService.Update(c.Request.Context(), actor, appcrm.UpdateTaskInput{
		ID:          id,
		Title:       req.Title,
		Description: req.Description,
		DueAt:       req.DueAt,
		Priority:    req.Priority,
		Status:      req.Status,
		AssignedTo:  req.AssignedTo,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, task)
}

// Complete handles POST /tasks/:id/complete
func (h *TaskHandler) Complete(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParseID(c)
	if !ok {
		return
	}

	task, err := h.taskService.Complete(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, task)
}

// Delete handles DELETE /tasks/:id
func (h *TaskHandler) Delete(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParseID(c)
	if !ok {
		return
	}

	if err := h.taskService.Delete(c.Request.Context(), actor, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
