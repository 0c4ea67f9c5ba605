package handler

import (
	"net/http"

	appcrm "github.com/crm/backend/internal/application/crm"
	"github.com/crm/backend/internal/domain/crm"
	"github.com/gin-gonic/gin"
)

// LeadHandler handles lead endpoints
type LeadHandler struct {
	BaseHandler
	leadService *appcrm.LeadService
}

// NewLeadHandler creates a new LeadHandler
func NewLeadHandler(leadService *appcrm.LeadService) *LeadHandler {
	return &LeadHandler{leadService: leadService}
}

// Create handles POST /leads
func (h *LeadHandler) Create(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req LeadRequest
	if !h.BindJSON(c, &req) {
		return
	}

	lead, err := h.leadService.Create(c.Request.Context(), actor, req.createInput())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, lead)
}

// Import handles POST /leads/import (multipart field "file", optional dry_run=true)
func (h *LeadHandler) Import(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		h.BadRequest(c, "file is required")
		return
	}
	defer file.Close()

	switch header.Header.Get("Content-Type") {
	case "", "text/csv", "text/plain", "application/octet-stream", "application/vnd.ms-excel":
	default:
		h.Error(c, http.StatusUnsupportedMediaType, "DISALLOWED_CONTENT_TYPE", "file must be a CSV file")
		return
	}

	dryRun := c.Query("dry_run") == "true"
	result, err := h.leadService.ImportCSV(c.Request.Context(), actor, file, dryRun)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if result.Imported > 0 {
		h.Created(c, result)
		return
	}
	h.Success(c, result)
}

// GetByID handles GET /leads/:id
func (h *LeadHandler) GetByID(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParseID(c)
	if !ok {
		return
	}

	lead, err := h.leadService.GetByID(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, lead)
}

// List handles GET /leads
func (h *LeadHandler) List(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var query LeadListQuery
	if !h.BindQuery(c, &query) {
		return
	}

	filter := crm.LeadFilter{Filter: query.Filter(), Source: query.Source}
	if query.Status != "" {
		status := crm.LeadStatus(query.Status)
		filter.Status = &status
	}
	filter.AssignedTo = optionalUUID(query.AssignedTo)

	page, err := h.leadService.List(c.Request.Context(), actor, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	SuccessPage(c, page)
}

// Update handles PUT /leads/:id
func (h *LeadHandler) Update(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	var req LeadRequest
	if !h.BindJSON(c, &req) {
		return
	}

	lead, err := h.leadService.Update(c.Request.Context(), actor, req.updateInput(id))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, lead)
}

// Delete handles DELETE /leads/:id
func (h *LeadHandler) Delete(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParseID(c)
	if !ok {
		return
	}

	if err := h.leadService.Delete(c.Request.Context(), actor, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// ChangeStatus handles POST /leads/:id/status
func (h *LeadHandler) ChangeStatus(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	var req StatusRequest
	if !h.BindJSON(c, &req) {
		return
	}

	lead, err := h.leadService.ChangeStatus(c.Request.Context(), actor, id, req.Status)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, lead)
}

// Assign handles POST /leads/:id/assign
func (h *LeadHandler) Assign(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	var req AssignRequest
	if !h.BindJSON(c, &req) {
		return
	}

	lead, err := h.leadService.Assign(c.Request.Context(), actor, id, req.AssignedTo)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, lead)
}

// Convert handles POST /leads/:id/convert
func (h *LeadHandler) Convert(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	var req ConvertLeadRequest
	if c.Request.ContentLength > 0 && !h.BindJSON(c, &req) {
		return
	}

	deal, err := h.leadService.ConvertToDeal(c.Request.Context(), actor, appcrm.ConvertLeadInput{
		LeadID: id,
		Title:  req.Title,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, deal)
}
