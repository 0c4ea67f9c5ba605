package identity

import (
	"time"

	"github.com/crm/backend/internal/domain/identity"
	"github.com/google/uuid"
)

// LoginInput contains the input for user login
type LoginInput struct {
	Username string
	Password string
}

// LoginResult contains the result of a successful login
type LoginResult struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	TokenType             string    `json:"token_type"`
	User                  UserInfo  `json:"user"`
}

// UserInfo contains the caller's identity as returned by login and me
type UserInfo struct {
	ID          uuid.UUID   `json:"id"`
	Username    string      `json:"username"`
	DisplayName string      `json:"display_name"`
	Email       string      `json:"email"`
	Permissions []string    `json:"permissions"`
	RoleIDs     []uuid.UUID `json:"role_ids"`
}

// RefreshTokenInput contains the input for token refresh
type RefreshTokenInput struct {
	RefreshToken string
}

// RefreshTokenResult contains the result of a token refresh
type RefreshTokenResult struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	TokenType             string    `json:"token_type"`
}

// LogoutInput contains the input for user logout
type LogoutInput struct {
	UserID       uuid.UUID
	TokenJTI     string        // JWT ID of the access token being revoked
	RemainingTTL time.Duration // Lifetime left on that token
}

// CurrentUserResult contains the current user's information
type CurrentUserResult struct {
	User  UserInfo             `json:"user"`
	Scope identity.AccessScope `json:"scope"`
}

// ChangePasswordInput contains the input for password change
type ChangePasswordInput struct {
	UserID      uuid.UUID
	OldPassword string
	NewPassword string
}

// CreateUserInput contains input for creating a user
type CreateUserInput struct {
	Username    string
	Password    string
	Email       string
	DisplayName string
	ManagerID   *uuid.UUID
	TeamID      *uuid.UUID
	RoleIDs     []uuid.UUID
}

// UpdateUserInput contains input for updating a user's profile
type UpdateUserInput struct {
	ID          uuid.UUID
	Email       *string
	DisplayName *string
}

// UpdateHierarchyInput moves a user in the reporting tree.
// Nil pointers leave the field unchanged; ClearManager detaches the user.
type UpdateHierarchyInput struct {
	ID           uuid.UUID
	ManagerID    *uuid.UUID
	ClearManager bool
	TeamID       *uuid.UUID
	ClearTeam    bool
}

// UserDTO represents user data transfer object
type UserDTO struct {
	ID          uuid.UUID   `json:"id"`
	Username    string      `json:"username"`
	Email       string      `json:"email"`
	DisplayName string      `json:"display_name"`
	Status      string      `json:"status"`
	ManagerID   *uuid.UUID  `json:"manager_id,omitempty"`
	TeamID      *uuid.UUID  `json:"team_id,omitempty"`
	RoleIDs     []uuid.UUID `json:"role_ids"`
	LastLoginAt *time.Time  `json:"last_login_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// CreateRoleInput contains input for creating a role.
// An empty Tier classifies the role from its code.
type CreateRoleInput struct {
	Code        string
	Name        string
	Description string
	Tier        string
	Permissions []string
}

// UpdateRoleInput contains input for updating a role
type UpdateRoleInput struct {
	ID          uuid.UUID
	Name        *string
	Description *string
	Tier        *string
	Permissions []string // nil leaves permissions unchanged
}

// RoleDTO represents role data transfer object
type RoleDTO struct {
	ID           uuid.UUID `json:"id"`
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Tier         string    `json:"tier"`
	IsSystemRole bool      `json:"is_system_role"`
	IsEnabled    bool      `json:"is_enabled"`
	Permissions  []string  `json:"permissions"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toUserDTO(user *identity.User) *UserDTO {
	return &UserDTO{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		DisplayName: user.GetDisplayNameOrUsername(),
		Status:      string(user.Status),
		ManagerID:   user.ManagerID,
		TeamID:      user.TeamID,
		RoleIDs:     user.RoleIDs,
		LastLoginAt: user.LastLoginAt,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
}

func toRoleDTO(role *identity.Role) *RoleDTO {
	return &RoleDTO{
		ID:           role.ID,
		Code:         role.Code,
		Name:         role.Name,
		Description:  role.Description,
		Tier:         role.Tier.String(),
		IsSystemRole: role.IsSystemRole,
		IsEnabled:    role.IsEnabled,
		Permissions:  role.PermissionCodes(),
		CreatedAt:    role.CreatedAt,
		UpdatedAt:    role.UpdatedAt,
	}
}
