package handler

import (
	"github.com/crm/backend/internal/application/identity"
	"github.com/google/uuid"
)

// CreateUserRequest is the body of POST /users
type CreateUserRequest struct {
	Username    string      `json:"username" binding:"required,min=3,max=100"`
	Password    string      `json:"password" binding:"required,min=8,max=128"`
	Email       string      `json:"email" binding:"omitempty,email,max=200"`
	DisplayName string      `json:"display_name" binding:"max=200"`
	ManagerID   *uuid.UUID  `json:"manager_id"`
	TeamID      *uuid.UUID  `json:"team_id"`
	RoleIDs     []uuid.UUID `json:"role_ids"`
}

func (r CreateUserRequest) input() identity.CreateUserInput {
	return identity.CreateUserInput{
		Username:    r.Username,
		Password:    r.Password,
		Email:       r.Email,
		DisplayName: r.DisplayName,
		ManagerID:   r.ManagerID,
		TeamID:      r.TeamID,
		RoleIDs:     r.RoleIDs,
	}
}

// UpdateUserRequest is the body of PUT /users/:id; absent fields are kept
type UpdateUserRequest struct {
	Email       *string `json:"email" binding:"omitempty,email,max=200"`
	DisplayName *string `json:"display_name" binding:"omitempty,max=200"`
}

// HierarchyRequest is the body of PUT /users/:id/hierarchy
type HierarchyRequest struct {
	ManagerID    *uuid.UUID `json:"manager_id"`
	ClearManager bool       `json:"clear_manager"`
	TeamID       *uuid.UUID `json:"team_id"`
	ClearTeam    bool       `json:"clear_team"`
}

// AssignRolesRequest is the body of PUT /users/:id/roles
type AssignRolesRequest struct {
	RoleIDs []uuid.UUID `json:"role_ids" binding:"required"`
}

// ResetPasswordRequest is the body of POST /users/:id/reset-password
type ResetPasswordRequest struct {
	NewPassword string `json:"new_password" binding:"required,min=8,max=128"`
}

// UserListQuery filters the user list
type UserListQuery struct {
	ListQuery
	Status    string `form:"status" binding:"omitempty,oneof=active deactivated"`
	RoleID    string `form:"role_id" binding:"omitempty,uuid"`
	ManagerID string `form:"manager_id" binding:"omitempty,uuid"`
	TeamID    string `form:"team_id" binding:"omitempty,uuid"`
}

// CreateRoleRequest is the body of POST /roles.
// Without a tier the role is classified from its code.
type CreateRoleRequest struct {
	Code        string   `json:"code" binding:"required,min=2,max=50"`
	Name        string   `json:"name" binding:"required,min=1,max=100"`
	Description string   `json:"description" binding:"max=500"`
	Tier        string   `json:"tier" binding:"omitempty,oneof=global hierarchical self"`
	Permissions []string `json:"permissions"`
}

// UpdateRoleRequest is the body of PUT /roles/:id
type UpdateRoleRequest struct {
	Name        *string  `json:"name" binding:"omitempty,min=1,max=100"`
	Description *string  `json:"description" binding:"omitempty,max=500"`
	Tier        *string  `json:"tier" binding:"omitempty,oneof=global hierarchical self"`
	Permissions []string `json:"permissions"`
}

// RoleListQuery filters the role list
type RoleListQuery struct {
	Keyword   string `form:"keyword" binding:"max=100"`
	IsEnabled *bool  `form:"is_enabled"`
	Tier      string `form:"tier" binding:"omitempty,oneof=global hierarchical self"`
}
