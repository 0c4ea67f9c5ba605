package handler

import (
	"github.com/crm/backend/internal/application/identity"
	domain "github.com/crm/backend/internal/domain/identity"
	"github.com/gin-gonic/gin"
)

// RoleHandler handles role administration
type RoleHandler struct {
	BaseHandler
	roleService *identity.RoleService
}

// NewRoleHandler creates a new RoleHandler
func NewRoleHandler(roleService *identity.RoleService) *RoleHandler {
	return &RoleHandler{roleService: roleService}
}

// Create handles POST /roles
func (h *RoleHandler) Create(c *gin.Context) {
	var req CreateRoleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	role, err := h.roleService.Create(c.Request.Context(), identity.CreateRoleInput{
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
		Tier:        req.Tier,
		Permissions: req.Permissions,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, role)
}

// GetByID handles GET /roles/:id
func (h *RoleHandler) GetByID(c *gin.Context) {
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	role, err := h.roleService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, role)
}

// List handles GET /roles
func (h *RoleHandler) List(c *gin.Context) {
	var query RoleListQuery
	if !h.BindQuery(c, &query) {
		return
	}

	filter := domain.RoleFilter{Keyword: query.Keyword, IsEnabled: query.IsEnabled}
	if query.Tier != "" {
		tier := domain.RoleTier(query.Tier)
		filter.Tier = &tier
	}

	roles, err := h.roleService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, roles)
}

// Update handles PUT /roles/:id
func (h *RoleHandler) Update(c *gin.Context) {
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	var req UpdateRoleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	role, err := h.roleService.Update(c.Request.Context(), identity.UpdateRoleInput{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		Tier:        req.Tier,
		Permissions: req.Permissions,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, role)
}

// Enable handles POST /roles/:id/enable
func (h *RoleHandler) Enable(c *gin.Context) {
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	role, err := h.roleService.Enable(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, role)
}

// Disable handles POST /roles/:id/disable
func (h *RoleHandler) Disable(c *gin.Context) {
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	role, err := h.roleService.Disable(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, role)
}

// Delete handles DELETE /roles/:id
func (h *RoleHandler) Delete(c *gin.Context) {
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	if err := h.roleService.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
