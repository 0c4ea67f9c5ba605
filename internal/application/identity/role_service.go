package identity

import (
	"context"
	"errors"

	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RoleService handles role management operations.
// Every change that can alter a tier decision drops cached scopes.
type RoleService struct {
	roleRepo    identity.RoleRepository
	invalidator identity.ScopeInvalidator
	logger      *zap.Logger
}

// NewRoleService creates a new role service
func NewRoleService(
	roleRepo identity.RoleRepository,
	invalidator identity.ScopeInvalidator,
	logger *zap.Logger,
) *RoleService {
	return &RoleService{
		roleRepo:    roleRepo,
		invalidator: invalidator,
		logger:      logger,
	}
}

// Create creates a new role. Without an explicit tier the role code is classified.
func (s *RoleService) Create(ctx context.Context, input CreateRoleInput) (*RoleDTO, error) {
	exists, err := s.roleRepo.ExistsByCode(ctx, input.Code)
	if err != nil {
		s.logger.Error("Failed to check role code existence", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to check role code availability")
	}
	if exists {
		return nil, shared.NewDomainError("ROLE_CODE_EXISTS", "Role code already exists")
	}

	tier := identity.ClassifyRoleCode(input.Code)
	if input.Tier != "" {
		if tier, err = identity.ParseRoleTier(input.Tier); err != nil {
			return nil, err
		}
	}

	role, err := identity.NewRoleWithTier(input.Code, input.Name, tier)
	if err != nil {
		return nil, err
	}
	if input.Description != "" {
		if err := role.Update(role.Name, input.Description); err != nil {
			return nil, err
		}
	}
	if err := role.SetPermissionCodes(input.Permissions); err != nil {
		return nil, err
	}

	if err := s.roleRepo.Create(ctx, role); err != nil {
		s.logger.Error("Failed to create role", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to create role")
	}

	s.logger.Info("Role created",
		zap.String("role_id", role.ID.String()),
		zap.String("code", role.Code),
		zap.String("tier", role.Tier.String()))

	return toRoleDTO(role), nil
}

// GetByID retrieves a role by ID
func (s *RoleService) GetByID(ctx context.Context, id uuid.UUID) (*RoleDTO, error) {
	role, err := s.findRole(ctx, id)
	if err != nil {
		return nil, err
	}
	return toRoleDTO(role), nil
}

// List returns all roles matching the filter
func (s *RoleService) List(ctx context.Context, filter identity.RoleFilter) ([]RoleDTO, error) {
	roles, err := s.roleRepo.FindAll(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list roles", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list roles")
	}

	items := make([]RoleDTO, len(roles))
	for i, role := range roles {
		items[i] = *toRoleDTO(role)
	}
	return items, nil
}

// Update updates a role's name, description, tier or permissions
func (s *RoleService) Update(ctx context.Context, input UpdateRoleInput) (*RoleDTO, error) {
	role, err := s.findRole(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	name, description := role.Name, role.Description
	if input.Name != nil {
		name = *input.Name
	}
	if input.Description != nil {
		description = *input.Description
	}
	if err := role.Update(name, description); err != nil {
		return nil, err
	}

	tierChanged := false
	if input.Tier != nil {
		tier, err := identity.ParseRoleTier(*input.Tier)
		if err != nil {
			return nil, err
		}
		if tier != role.Tier {
			if err := role.SetTier(tier); err != nil {
				return nil, err
			}
			tierChanged = true
		}
	}
	if input.Permissions != nil {
		if err := role.SetPermissionCodes(input.Permissions); err != nil {
			return nil, err
		}
	}

	if err := s.roleRepo.Update(ctx, role); err != nil {
		s.logger.Error("Failed to update role", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to update role")
	}
	if tierChanged {
		s.invalidator.InvalidateAll(ctx)
	}

	s.logger.Info("Role updated", zap.String("role_id", role.ID.String()))
	return toRoleDTO(role), nil
}

// Enable enables a role
func (s *RoleService) Enable(ctx context.Context, id uuid.UUID) (*RoleDTO, error) {
	return s.toggle(ctx, id, (*identity.Role).Enable)
}

// Disable disables a role. Disabled roles stop contributing to scopes.
func (s *RoleService) Disable(ctx context.Context, id uuid.UUID) (*RoleDTO, error) {
	return s.toggle(ctx, id, (*identity.Role).Disable)
}

func (s *RoleService) toggle(ctx context.Context, id uuid.UUID, apply func(*identity.Role) error) (*RoleDTO, error) {
	role, err := s.findRole(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(role); err != nil {
		return nil, err
	}

	if err := s.roleRepo.Update(ctx, role); err != nil {
		s.logger.Error("Failed to update role", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to update role")
	}
	s.invalidator.InvalidateAll(ctx)

	s.logger.Info("Role toggled",
		zap.String("role_id", role.ID.String()),
		zap.Bool("enabled", role.IsEnabled))
	return toRoleDTO(role), nil
}

// Delete deletes a non-system role together with its assignments
func (s *RoleService) Delete(ctx context.Context, id uuid.UUID) error {
	role, err := s.findRole(ctx, id)
	if err != nil {
		return err
	}
	if !role.CanDelete() {
		return shared.NewDomainError("CANNOT_DELETE_SYSTEM_ROLE", "System roles cannot be deleted")
	}

	if err := s.roleRepo.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete role", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to delete role")
	}
	s.invalidator.InvalidateAll(ctx)

	s.logger.Info("Role deleted", zap.String("role_id", id.String()))
	return nil
}

func (s *RoleService) findRole(ctx context.Context, id uuid.UUID) (*identity.Role, error) {
	role, err := s.roleRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("ROLE_NOT_FOUND", "Role not found")
		}
		s.logger.Error("Failed to find role", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to find role")
	}
	return role, nil
}
