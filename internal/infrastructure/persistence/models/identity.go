package models

import (
	"time"

	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// UserModel is the persistence model for the User domain entity.
type UserModel struct {
	AggregateModel
	Username     string              `gorm:"type:varchar(100);not null;uniqueIndex"`
	Email        string              `gorm:"type:varchar(200);not null"`
	DisplayName  string              `gorm:"type:varchar(200)"`
	PasswordHash string              `gorm:"type:varchar(255);not null"`
	Status       identity.UserStatus `gorm:"type:varchar(20);not null;default:'active'"`
	ManagerID    *uuid.UUID          `gorm:"type:uuid;index"`
	TeamID       *uuid.UUID          `gorm:"type:uuid;index"`
	LastLoginAt  *time.Time
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts the persistence model to a domain User entity.
// Note: RoleIDs must be loaded separately by the repository.
func (m *UserModel) ToDomain() *identity.User {
	user := &identity.User{
		BaseAggregateRoot: m.ToAggregateRoot(),
		Username:          m.Username,
		Email:             m.Email,
		DisplayName:       m.DisplayName,
		PasswordHash:      m.PasswordHash,
		Status:            m.Status,
		ManagerID:         m.ManagerID,
		TeamID:            m.TeamID,
		RoleIDs:           make([]uuid.UUID, 0),
		LastLoginAt:       m.LastLoginAt,
	}
	if m.DeletedAt.Valid {
		deletedAt := m.DeletedAt.Time
		user.DeletedAt = &deletedAt
	}
	return user
}

// FromDomain populates the persistence model from a domain User entity.
func (m *UserModel) FromDomain(u *identity.User) {
	m.FromDomainAggregateRoot(u.BaseAggregateRoot)
	m.Username = u.Username
	m.Email = u.Email
	m.DisplayName = u.DisplayName
	m.PasswordHash = u.PasswordHash
	m.Status = u.Status
	m.ManagerID = u.ManagerID
	m.TeamID = u.TeamID
	m.LastLoginAt = u.LastLoginAt
}

// UserModelFromDomain creates a new persistence model from a domain User entity.
func UserModelFromDomain(u *identity.User) *UserModel {
	m := &UserModel{}
	m.FromDomain(u)
	return m
}

// UserRoleModel is the persistence model for the user/role assignment.
type UserRoleModel struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	RoleID    uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (UserRoleModel) TableName() string {
	return "user_roles"
}

// RoleModel is the persistence model for the Role domain entity.
// Roles are removed for good, so the model carries no tombstone.
type RoleModel struct {
	BaseModel
	Version      int               `gorm:"not null;default:1"`
	Code         string            `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name         string            `gorm:"type:varchar(100);not null"`
	Description  string            `gorm:"type:varchar(500)"`
	Tier         identity.RoleTier `gorm:"type:varchar(20);not null;default:'self'"`
	IsSystemRole bool              `gorm:"not null;default:false"`
	IsEnabled    bool              `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (RoleModel) TableName() string {
	return "roles"
}

// ToDomain converts the persistence model to a domain Role entity.
// Note: Permissions must be loaded separately by the repository.
func (m *RoleModel) ToDomain() *identity.Role {
	return &identity.Role{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: m.BaseModel.ToDomain(),
			Version:    m.Version,
		},
		Code:         m.Code,
		Name:         m.Name,
		Description:  m.Description,
		Tier:         m.Tier,
		IsSystemRole: m.IsSystemRole,
		IsEnabled:    m.IsEnabled,
		Permissions:  make([]identity.Permission, 0),
	}
}

// FromDomain populates the persistence model from a domain Role entity.
func (m *RoleModel) FromDomain(r *identity.Role) {
	m.FromDomainBaseEntity(r.BaseEntity)
	m.Version = r.Version
	m.Code = r.Code
	m.Name = r.Name
	m.Description = r.Description
	m.Tier = r.Tier
	m.IsSystemRole = r.IsSystemRole
	m.IsEnabled = r.IsEnabled
}

// RoleModelFromDomain creates a new persistence model from a domain Role entity.
func RoleModelFromDomain(r *identity.Role) *RoleModel {
	m := &RoleModel{}
	m.FromDomain(r)
	return m
}

// RolePermissionModel is the persistence model for role permissions.
type RolePermissionModel struct {
	RoleID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Code     string    `gorm:"type:varchar(100);primaryKey"`
	Resource string    `gorm:"type:varchar(50);not null"`
	Action   string    `gorm:"type:varchar(50);not null"`
}

// TableName returns the table name for GORM
func (RolePermissionModel) TableName() string {
	return "role_permissions"
}

// ToDomain converts the persistence model to a domain Permission.
func (m *RolePermissionModel) ToDomain() identity.Permission {
	return identity.Permission{
		Code:     m.Code,
		Resource: m.Resource,
		Action:   m.Action,
	}
}

// RolePermissionModelFromDomain creates a permission row for a role
func RolePermissionModelFromDomain(roleID uuid.UUID, p identity.Permission) RolePermissionModel {
	return RolePermissionModel{
		RoleID:   roleID,
		Code:     p.Code,
		Resource: p.Resource,
		Action:   p.Action,
	}
}
