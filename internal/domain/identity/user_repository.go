package identity

import (
	"context"

	"github.com/crm/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// UserRepository defines the interface for user persistence
type UserRepository interface {
	HierarchyReader

	// Create creates a new user together with its role assignments
	Create(ctx context.Context, user *User) error

	// Update updates an existing user and replaces its role assignments
	Update(ctx context.Context, user *User) error

	// SoftDelete tombstones a user
	SoftDelete(ctx context.Context, id uuid.UUID) error

	// HardDelete permanently removes a user and its role assignments
	HardDelete(ctx context.Context, id uuid.UUID) error

	// FindByID finds a non-deleted user by ID
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)

	// FindByUsername finds a non-deleted user by username
	FindByUsername(ctx context.Context, username string) (*User, error)

	// FindAll returns users visible within the scope
	FindAll(ctx context.Context, scope AccessScope, filter UserFilter) ([]*User, int64, error)

	// ExistsByUsername checks if a username already exists
	ExistsByUsername(ctx context.Context, username string) (bool, error)

	// ExistsByEmail checks if an email already exists
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// UserFilter contains filter options for querying users
type UserFilter struct {
	shared.Filter
	Status    *UserStatus
	RoleID    *uuid.UUID
	ManagerID *uuid.UUID
	TeamID    *uuid.UUID
}

// NewUserFilter creates a new UserFilter with default values
func NewUserFilter() UserFilter {
	return UserFilter{Filter: shared.DefaultFilter()}
}
