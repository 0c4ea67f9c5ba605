package identity

import (
	"context"

	"github.com/google/uuid"
)

// RoleFilter defines the filter criteria for role queries
type RoleFilter struct {
	Keyword   string // Search in code and name
	IsEnabled *bool
	Tier      *RoleTier
}

// RoleRepository defines the interface for role persistence operations
type RoleRepository interface {
	// Create creates a new role with its permissions
	Create(ctx context.Context, role *Role) error

	// Update updates an existing role and replaces its permissions
	Update(ctx context.Context, role *Role) error

	// Delete deletes a role and its assignments
	Delete(ctx context.Context, id uuid.UUID) error

	// FindByID finds a role by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Role, error)

	// FindByCode finds a role by code
	FindByCode(ctx context.Context, code string) (*Role, error)

	// FindByIDs finds multiple roles by IDs
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*Role, error)

	// FindAll finds all roles matching the filter
	FindAll(ctx context.Context, filter RoleFilter) ([]*Role, error)

	// ExistsByCode checks if a role with the given code exists
	ExistsByCode(ctx context.Context, code string) (bool, error)
}
