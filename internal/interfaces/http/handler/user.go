package handler

import (
	"context"

	"github.com/crm/backend/internal/application/identity"
	domain "github.com/crm/backend/internal/domain/identity"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// UserHandler handles user administration. Every lookup is limited to the
// users inside the caller's access scope.
type UserHandler struct {
	BaseHandler
	userService *identity.UserService
	authService *identity.AuthService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService *identity.UserService, authService *identity.AuthService) *UserHandler {
	return &UserHandler{userService: userService, authService: authService}
}

// Create handles POST /users
func (h *UserHandler) Create(c *gin.Context) {
	var req CreateUserRequest
	if !h.BindJSON(c, &req) {
		return
	}

	user, err := h.userService.Create(c.Request.Context(), req.input())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, user)
}

// GetByID handles GET /users/:id
func (h *UserHandler) GetByID(c *gin.Context) {
	h.scoped(c, h.userService.GetByID)
}

// List handles GET /users
func (h *UserHandler) List(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var query UserListQuery
	if !h.BindQuery(c, &query) {
		return
	}

	filter := domain.UserFilter{
		Filter:    query.Filter(),
		RoleID:    optionalUUID(query.RoleID),
		ManagerID: optionalUUID(query.ManagerID),
		TeamID:    optionalUUID(query.TeamID),
	}
	if query.Status != "" {
		status := domain.UserStatus(query.Status)
		filter.Status = &status
	}

	page, err := h.userService.List(c.Request.Context(), actor.Scope, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	SuccessPage(c, page)
}

// Update handles PUT /users/:id
func (h *UserHandler) Update(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}
	var req UpdateUserRequest
	if !h.BindJSON(c, &req) {
		return
	}

	user, err := h.userService.Update(c.Request.Context(), actor.Scope, identity.UpdateUserInput{
		ID:          id,
		Email:       req.Email,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// UpdateHierarchy handles PUT /users/:id/hierarchy
func (h *UserHandler) UpdateHierarchy(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}
	var req HierarchyRequest
	if !h.BindJSON(c, &req) {
		return
	}

	user, err := h.userService.UpdateHierarchy(c.Request.Context(), actor.Scope, identity.UpdateHierarchyInput{
		ID:           id,
		ManagerID:    req.ManagerID,
		ClearManager: req.ClearManager,
		TeamID:       req.TeamID,
		ClearTeam:    req.ClearTeam,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// AssignRoles handles PUT /users/:id/roles
func (h *UserHandler) AssignRoles(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}
	var req AssignRolesRequest
	if !h.BindJSON(c, &req) {
		return
	}

	user, err := h.userService.AssignRoles(c.Request.Context(), actor.Scope, id, req.RoleIDs)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// Activate handles POST /users/:id/activate
func (h *UserHandler) Activate(c *gin.Context) {
	h.scoped(c, h.userService.Activate)
}

// Deactivate handles POST /users/:id/deactivate. Sessions of the
// deactivated user are revoked.
func (h *UserHandler) Deactivate(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}

	user, err := h.userService.Deactivate(c.Request.Context(), actor.Scope, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if err := h.authService.ForceLogout(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// ForceLogout handles POST /users/:id/force-logout
func (h *UserHandler) ForceLogout(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}
	if _, err := h.userService.GetByID(c.Request.Context(), actor.Scope, id); err != nil {
		h.HandleError(c, err)
		return
	}
	if err := h.authService.ForceLogout(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// ResetPassword handles POST /users/:id/reset-password
func (h *UserHandler) ResetPassword(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}
	var req ResetPasswordRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.userService.ResetPassword(c.Request.Context(), actor.Scope, id, req.NewPassword); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Delete handles DELETE /users/:id (soft delete)
func (h *UserHandler) Delete(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}
	if err := h.userService.Delete(c.Request.Context(), actor.Scope, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// PermanentDelete handles DELETE /users/:id/permanent
func (h *UserHandler) PermanentDelete(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}
	if err := h.userService.PermanentDelete(c.Request.Context(), actor.Scope, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

func (h *UserHandler) actorAndID(c *gin.Context) (domain.Actor, uuid.UUID, bool) {
	actor, ok := h.Actor(c)
	if !ok {
		return domain.Actor{}, uuid.Nil, false
	}
	id, ok := h.ParseID(c)
	return actor, id, ok
}

func (h *UserHandler) scoped(c *gin.Context, action func(ctx context.Context, scope domain.AccessScope, id uuid.UUID) (*identity.UserDTO, error)) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}
	user, err := action(c.Request.Context(), actor.Scope, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}
