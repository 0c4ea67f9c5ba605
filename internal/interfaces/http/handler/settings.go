package handler

import (
	appcrm "github.com/crm/backend/internal/application/crm"
	"github.com/gin-gonic/gin"
)

// SettingsHandler serves the business settings used on documents
type SettingsHandler struct {
	BaseHandler
	settingsService *appcrm.SettingsService
}

// NewSettingsHandler creates a new SettingsHandler
func NewSettingsHandler(settingsService *appcrm.SettingsService) *SettingsHandler {
	return &SettingsHandler{settingsService: settingsService}
}

// Get handles GET /settings
func (h *SettingsHandler) Get(c *gin.Context) {
	settings, err := h.settingsService.Get(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, settings)
}

// Update handles PUT /settings
func (h *SettingsHandler) Update(c *gin.Context) {
	var req SettingsRequest
	if !h.BindJSON(c, &req) {
		return
	}

	settings, err := h.settingsService.Update(c.Request.Context(), appcrm.UpdateSettingsInput{
		CompanyName:     req.CompanyName,
		Address:         req.Address,
		Email:           req.Email,
		Phone:           req.Phone,
		TaxID:           req.TaxID,
		BaseCurrency:    req.BaseCurrency,
		InvoicePrefix:   req.InvoicePrefix,
		QuotationPrefix: req.QuotationPrefix,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, settings)
}
