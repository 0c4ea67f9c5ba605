package handler

import (
	"context"

	appcrm "github.com/crm/backend/internal/application/crm"
	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/domain/identity"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ExpenseHandler handles expense endpoints
type ExpenseHandler struct {
	BaseHandler
	expenseService *appcrm.ExpenseService
}

// NewExpenseHandler creates a new ExpenseHandler
func NewExpenseHandler(expenseService *appcrm.ExpenseService) *ExpenseHandler {
	return &ExpenseHandler{expenseService: expenseService}
}

func (h *ExpenseHandler) bindExpense(c *gin.Context) (appcrm.ExpenseInput, bool) {
	var req ExpenseRequest
	if !h.BindJSON(c, &req) {
		return appcrm.ExpenseInput{}, false
	}
	incurredOn, err := parseDate(req.IncurredOn)
	if err != nil {
		h.BadRequest(c, "Invalid incurred_on")
		return appcrm.ExpenseInput{}, false
	}
	return appcrm.ExpenseInput{
		Title:      req.Title,
		Category:   req.Category,
		Amount:     req.Amount,
		Currency:   req.Currency,
		IncurredOn: incurredOn,
	}, true
}

// Create handles POST /expenses
func (h *ExpenseHandler) Create(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	input, ok := h.bindExpense(c)
	if !ok {
		return
	}

	expense, err := h.expenseService.Create(c.Request.Context(), actor, input)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, expense)
}

// GetByID handles GET /expenses/:id
func (h *ExpenseHandler) GetByID(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParseID(c)
	if !ok {
		return
	}

	expense, err := h.expenseService.GetByID(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, expense)
}

// List handles GET /expenses
func (h *ExpenseHandler) List(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var query ExpenseListQuery
	if !h.BindQuery(c, &query) {
		return
	}

	filter := crm.ExpenseFilter{
		Filter:      query.Filter(),
		Category:    query.Category,
		SubmittedBy: optionalUUID(query.SubmittedBy),
	}
	if query.Status != "" {
		status := crm.ExpenseStatus(query.Status)
		filter.Status = &status
	}

	page, err := h.expenseService.List(c.Request.Context(), actor, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	SuccessPage(c, page)
}

// Update handles PUT /expenses/:id
func (h *ExpenseHandler) Update(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	input, ok := h.bindExpense(c)
	if !ok {
		return
	}

	expense, err := h.expenseService.Update(c.Request.Context(), actor, id, input)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, expense)
}

// Delete handles DELETE /expenses/:id
func (h *ExpenseHandler) Delete(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParseID(c)
	if !ok {
		return
	}

	if err := h.expenseService.Delete(c.Request.Context(), actor, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Approve handles POST /expenses/:id/approve
func (h *ExpenseHandler) Approve(c *gin.Context) {
	h.review(c, h.expenseService.Approve)
}

// Reject handles POST /expenses/:id/reject
func (h *ExpenseHandler) Reject(c *gin.Context) {
	h.review(c, h.expenseService.Reject)
}

func (h *ExpenseHandler) review(c *gin.Context, decide func(context.Context, identity.Actor, uuid.UUID, string) (*appcrm.ExpenseDTO, error)) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	var req ReviewRequest
	if c.Request.ContentLength > 0 && !h.BindJSON(c, &req) {
		return
	}

	expense, err := decide(c.Request.Context(), actor, id, req.Note)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, expense)
}

// InitiateReceiptUpload handles POST /expenses/:id/receipt/upload-url
func (h *ExpenseHandler) InitiateReceiptUpload(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	var req ReceiptUploadRequest
	if !h.BindJSON(c, &req) {
		return
	}

	upload, err := h.expenseService.InitiateReceiptUpload(c.Request.Context(), actor, id, req.ContentType)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, upload)
}

// ConfirmReceipt handles POST /expenses/:id/receipt/confirm
func (h *ExpenseHandler) ConfirmReceipt(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	var req ReceiptConfirmRequest
	if !h.BindJSON(c, &req) {
		return
	}

	expense, err := h.expenseService.ConfirmReceipt(c.Request.Context(), actor, id, req.StorageKey)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, expense)
}

// ReceiptURL handles GET /expenses/:id/receipt
func (h *ExpenseHandler) ReceiptURL(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParseID(c)
	if !ok {
		return
	}

	link, err := h.expenseService.ReceiptURL(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, link)
}
