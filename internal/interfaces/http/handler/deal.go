package handler

import (
	appcrm "github.com/crm/backend/internal/application/crm"
	"github.com/crm/backend/internal/domain/crm"
	"github.com/gin-gonic/gin"
)

// DealHandler handles deal endpoints
type DealHandler struct {
	BaseHandler
	dealService *appcrm.DealService
}

// NewDealHandler creates a new DealHandler
func NewDealHandler(dealService *appcrm.DealService) *DealHandler {
	return &DealHandler{dealService: dealService}
}

// Create handles POST /deals
func (h *DealHandler) Create(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req DealRequest
	if !h.BindJSON(c, &req) {
		return
	}
	closeDate, err := parseOptionalDate(req.ExpectedCloseDate)
	if err != nil {
		h.BadRequest(c, "Invalid expected_close_date")
		return
	}

	deal, err := h.dealService.Create(c.Request.Context(), actor, appcrm.CreateDealInput{
		Title:             req.Title,
		LeadID:            req.LeadID,
		Value:             req.Value,
		Currency:          req.Currency,
		ExpectedCloseDate: closeDate,
		AssignedTo:        req.AssignedTo,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, deal)
}

// GetByID handles GET /deals/:id
func (h *DealHandler) GetByID(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParseID(c)
	if !ok {
		return
	}

	deal, err := h.dealService.GetByID(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, deal)
}

// List handles GET /deals
func (h *DealHandler) List(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var query DealListQuery
	if !h.BindQuery(c, &query) {
		return
	}

	filter := crm.DealFilter{Filter: query.Filter()}
	if query.Stage != "" {
		stage := crm.DealStage(query.Stage)
		filter.Stage = &stage
	}
	filter.AssignedTo = optionalUUID(query.AssignedTo)
	filter.LeadID = optionalUUID(query.LeadID)

	page, err := h.dealService.List(c.Request.Context(), actor, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	SuccessPage(c, page)
}

// Update handles PUT /deals/:id
func (h *DealHandler) Update(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	var req DealRequest
	if !h.BindJSON(c, &req) {
		return
	}
	closeDate, err := parseOptionalDate(req.ExpectedCloseDate)
	if err != nil {
		h.BadRequest(c, "Invalid expected_close_date")
		return
	}

	deal, err := h.dealService.Update(c.Request.Context(), actor, appcrm.UpdateDealInput{
		ID:                id,
		Title:             req.Title,
		Value:             req.Value,
		Currency:          req.Currency,
		ExpectedCloseDate: closeDate,
		AssignedTo:        req.AssignedTo,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, deal)
}

// Delete handles DELETE /deals/:id
func (h *DealHandler) Delete(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParseID(c)
	if !ok {
		return
	}

	if err := h.dealService.Delete(c.Request.Context(), actor, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// MoveStage handles POST /deals/:id/stage
func (h *DealHandler) MoveStage(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	var req StageRequest
	if !h.BindJSON(c, &req) {
		return
	}

	deal, err := h.dealService.MoveStage(c.Request.Context(), actor, id, req.Stage)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, deal)
}
