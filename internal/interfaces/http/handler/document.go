package handler

import (
	"context"
	"fmt"
	"net/http"

	appcrm "github.com/crm/backend/internal/application/crm"
	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/domain/identity"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type pdfRenderer func(context.Context, identity.Actor, uuid.UUID) ([]byte, string, error)

// runAction executes a state transition on the document named by :id
func runAction[T any](h *BaseHandler, c *gin.Context, action func(context.Context, identity.Actor, uuid.UUID) (T, error)) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	result, err := action(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// sendPDF streams the rendered document as an attachment
func sendPDF(h *BaseHandler, c *gin.Context, render pdfRenderer) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	content, filename, err := render(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", content)
}

func documentFilter(query DocumentListQuery) crm.DocumentFilter {
	filter := crm.DocumentFilter{Filter: query.Filter(), DealID: optionalUUID(query.DealID)}
	if query.Status != "" {
		status := query.Status
		filter.Status = &status
	}
	return filter
}

// InvoiceHandler handles invoice endpoints
type InvoiceHandler struct {
	BaseHandler
	invoiceService *appcrm.InvoiceService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(invoiceService *appcrm.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService}
}

func (h *InvoiceHandler) bindInvoice(c *gin.Context) (appcrm.InvoiceInput, bool) {
	var req InvoiceRequest
	if !h.BindJSON(c, &req) {
		return appcrm.InvoiceInput{}, false
	}
	doc, err := req.documentInput()
	if err != nil {
		h.BadRequest(c, "Invalid issue_date")
		return appcrm.InvoiceInput{}, false
	}
	dueDate, err := parseOptionalDate(req.DueDate)
	if err != nil {
		h.BadRequest(c, "Invalid due_date")
		return appcrm.InvoiceInput{}, false
	}
	return appcrm.InvoiceInput{DocumentInput: doc, DueDate: dueDate}, true
}

// Create handles POST /invoices
func (h *InvoiceHandler) Create(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	input, ok := h.bindInvoice(c)
	if !ok {
		return
	}

	invoice, err := h.invoiceService.Create(c.Request.Context(), actor, input)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, invoice)
}

// GetByID handles GET /invoices/:id
func (h *InvoiceHandler) GetByID(c *gin.Context) {
	runAction(&h.BaseHandler, c, h.invoiceService.GetByID)
}

// List handles GET /invoices
func (h *InvoiceHandler) List(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var query DocumentListQuery
	if !h.BindQuery(c, &query) {
		return
	}

	page, err := h.invoiceService.List(c.Request.Context(), actor, documentFilter(query))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	SuccessPage(c, page)
}

// Update handles PUT /invoices/:id
func (h *InvoiceHandler) Update(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	input, ok := h.bindInvoice(c)
	if !ok {
		return
	}

	invoice, err := h.invoiceService.Update(c.Request.Context(), actor, id, input)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoice)
}

// Delete handles DELETE /invoices/:id
func (h *InvoiceHandler) Delete(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	if err := h.invoiceService.Delete(c.Request.Context(), actor, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// MarkSent handles POST /invoices/:id/send
func (h *InvoiceHandler) MarkSent(c *gin.Context) {
	runAction(&h.BaseHandler, c, h.invoiceService.MarkSent)
}

// MarkPaid handles POST /invoices/:id/pay
func (h *InvoiceHandler) MarkPaid(c *gin.Context) {
	runAction(&h.BaseHandler, c, h.invoiceService.MarkPaid)
}

// Cancel handles POST /invoices/:id/cancel
func (h *InvoiceHandler) Cancel(c *gin.Context) {
	runAction(&h.BaseHandler, c, h.invoiceService.Cancel)
}

// PDF handles GET /invoices/:id/pdf
func (h *InvoiceHandler) PDF(c *gin.Context) {
	sendPDF(&h.BaseHandler, c, h.invoiceService.RenderPDF)
}

// QuotationHandler handles quotation endpoints
type QuotationHandler struct {
	BaseHandler
	quotationService *appcrm.QuotationService
}

// NewQuotationHandler creates a new QuotationHandler
func NewQuotationHandler(quotationService *appcrm.QuotationService) *QuotationHandler {
	return &QuotationHandler{quotationService: quotationService}
}

func (h *QuotationHandler) bindQuotation(c *gin.Context) (appcrm.QuotationInput, bool) {
	var req QuotationRequest
	if !h.BindJSON(c, &req) {
		return appcrm.QuotationInput{}, false
	}
	doc, err := req.documentInput()
	if err != nil {
		h.BadRequest(c, "Invalid issue_date")
		return appcrm.QuotationInput{}, false
	}
	validUntil, err := parseOptionalDate(req.ValidUntil)
	if err != nil {
		h.BadRequest(c, "Invalid valid_until")
		return appcrm.QuotationInput{}, false
	}
	return appcrm.QuotationInput{DocumentInput: doc, ValidUntil: validUntil}, true
}

// Create handles POST /quotations
func (h *QuotationHandler) Create(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	input, ok := h.bindQuotation(c)
	if !ok {
		return
	}

	quotation, err := h.quotationService.Create(c.Request.Context(), actor, input)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, quotation)
}

// GetByID handles GET /quotations/:id
func (h *QuotationHandler) GetByID(c *gin.Context) {
	runAction(&h.BaseHandler, c, h.quotationService.GetByID)
}

// List handles GET /quotations
func (h *QuotationHandler) List(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var query DocumentListQuery
	if !h.BindQuery(c, &query) {
		return
	}

	page, err := h.quotationService.List(c.Request.Context(), actor, documentFilter(query))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	SuccessPage(c, page)
}

// Update handles PUT /quotations/:id
func (h *QuotationHandler) Update(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	input, ok := h.bindQuotation(c)
	if !ok {
		return
	}

	quotation, err := h.quotationService.Update(c.Request.Context(), actor, id, input)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, quotation)
}

// Delete handles DELETE /quotations/:id
func (h *QuotationHandler) Delete(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	if err := h.quotationService.Delete(c.Request.Context(), actor, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// MarkSent handles POST /quotations/:id/send
func (h *QuotationHandler) MarkSent(c *gin.Context) {
	runAction(&h.BaseHandler, c, h.quotationService.MarkSent)
}

// Accept handles POST /quotations/:id/accept and answers with the quotation
// and the invoice created from it
func (h *QuotationHandler) Accept(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	result, err := h.quotationService.Accept(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// Reject handles POST /quotations/:id/reject
func (h *QuotationHandler) Reject(c *gin.Context) {
	runAction(&h.BaseHandler, c, h.quotationService.Reject)
}

// PDF handles GET /quotations/:id/pdf
func (h *QuotationHandler) PDF(c *gin.Context) {
	sendPDF(&h.BaseHandler, c, h.quotationService.RenderPDF)
}
