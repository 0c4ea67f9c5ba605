package handler

import (
	appcrm "github.com/crm/backend/internal/application/crm"
	"github.com/gin-gonic/gin"
)

// NoteHandler handles notes attached to leads
type NoteHandler struct {
	BaseHandler
	noteService *appcrm.NoteService
}

// NewNoteHandler creates a new NoteHandler
func NewNoteHandler(noteService *appcrm.NoteService) *NoteHandler {
	return &NoteHandler{noteService: noteService}
}

// Create handles POST /leads/:id/notes
func (h *NoteHandler) Create(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	leadID, ok := h.ParseID(c)
	if !ok {
		return
	}
	var req NoteRequest
	if !h.BindJSON(c, &req) {
		return
	}

	note, err := h.noteService.Create(c.Request.Context(), actor, leadID, req.Body)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, note)
}

// ListByLead handles GET /leads/:id/notes
func (h *NoteHandler) ListByLead(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	leadID, ok := h.ParseID(c)
	if !ok {
		return
	}
	var query ListQuery
	if !h.BindQuery(c, &query) {
		return
	}

	page, err := h.noteService.ListByLead(c.Request.Context(), actor, leadID, query.Filter())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	SuccessPage(c, page)
}

// GetByID handles GET /notes/:id
func (h *NoteHandler) GetByID(c *gin.Context) {
	runAction(&h.BaseHandler, c, h.noteService.GetByID)
}

// Update handles PUT /notes/:id
func (h *NoteHandler) Update(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	var req NoteRequest
	if !h.BindJSON(c, &req) {
		return
	}

	note, err := h.noteService.Update(c.Request.Context(), actor, id, req.Body)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, note)
}

// Delete handles DELETE /notes/:id
func (h *NoteHandler) Delete(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	if err := h.noteService.Delete(c.Request.Context(), actor, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
