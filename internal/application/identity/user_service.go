package identity

import (
	"context"
	"errors"

	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserService handles user management operations.
// Reads are limited to the caller's access scope: a manager sees their
// subtree, an agent sees only themselves.
type UserService struct {
	userRepo    identity.UserRepository
	roleRepo    identity.RoleRepository
	invalidator identity.ScopeInvalidator
	logger      *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(
	userRepo identity.UserRepository,
	roleRepo identity.RoleRepository,
	invalidator identity.ScopeInvalidator,
	logger *zap.Logger,
) *UserService {
	return &UserService{
		userRepo:    userRepo,
		roleRepo:    roleRepo,
		invalidator: invalidator,
		logger:      logger,
	}
}

// Create creates a new active user
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*UserDTO, error) {
	exists, err := s.userRepo.ExistsByUsername(ctx, input.Username)
	if err != nil {
		s.logger.Error("Failed to check username existence", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to check username availability")
	}
	if exists {
		return nil, shared.NewDomainError("USERNAME_EXISTS", "Username already exists")
	}

	exists, err = s.userRepo.ExistsByEmail(ctx, input.Email)
	if err != nil {
		s.logger.Error("Failed to check email existence", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to check email availability")
	}
	if exists {
		return nil, shared.NewDomainError("EMAIL_EXISTS", "Email already exists")
	}

	if err := s.validateRoles(ctx, input.RoleIDs); err != nil {
		return nil, err
	}

	user, err := identity.NewUser(input.Username, input.Email, input.Password)
	if err != nil {
		return nil, err
	}
	if input.DisplayName != "" {
		if err := user.SetDisplayName(input.DisplayName); err != nil {
			return nil, err
		}
	}
	if input.ManagerID != nil {
		// A new user has no reports, so only the manager's existence matters
		if _, err := s.findUser(ctx, *input.ManagerID); err != nil {
			return nil, managerError(err)
		}
		if err := user.SetManager(input.ManagerID); err != nil {
			return nil, err
		}
	}
	user.SetTeam(input.TeamID)
	if err := user.SetRoles(input.RoleIDs); err != nil {
		return nil, err
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		s.logger.Error("Failed to create user", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to create user")
	}
	if input.ManagerID != nil {
		s.invalidator.InvalidateAll(ctx)
	}

	s.logger.Info("User created",
		zap.String("user_id", user.ID.String()),
		zap.String("username", user.Username))

	return toUserDTO(user), nil
}

// GetByID retrieves a visible user by ID
func (s *UserService) GetByID(ctx context.Context, scope identity.AccessScope, id uuid.UUID) (*UserDTO, error) {
	user, err := s.findVisible(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	return toUserDTO(user), nil
}

// List returns the users visible within the scope
func (s *UserService) List(ctx context.Context, scope identity.AccessScope, filter identity.UserFilter) (*shared.Paginated[UserDTO], error) {
	filter.Filter = filter.Normalize()
	users, total, err := s.userRepo.FindAll(ctx, scope, filter)
	if err != nil {
		s.logger.Error("Failed to list users", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list users")
	}

	items := make([]UserDTO, len(users))
	for i, user := range users {
		items[i] = *toUserDTO(user)
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

// Update updates a user's profile fields
func (s *UserService) Update(ctx context.Context, scope identity.AccessScope, input UpdateUserInput) (*UserDTO, error) {
	user, err := s.findVisible(ctx, scope, input.ID)
	if err != nil {
		return nil, err
	}

	if input.Email != nil && *input.Email != user.Email {
		exists, err := s.userRepo.ExistsByEmail(ctx, *input.Email)
		if err != nil {
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to check email availability")
		}
		if exists {
			return nil, shared.NewDomainError("EMAIL_EXISTS", "Email already exists")
		}
		if err := user.SetEmail(*input.Email); err != nil {
			return nil, err
		}
	}
	if input.DisplayName != nil {
		if err := user.SetDisplayName(*input.DisplayName); err != nil {
			return nil, err
		}
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Error("Failed to update user", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to update user")
	}

	s.logger.Info("User updated", zap.String("user_id", input.ID.String()))
	return toUserDTO(user), nil
}

// UpdateHierarchy changes a user's manager or team. A manager that would
// close a loop in the reporting tree is rejected.
func (s *UserService) UpdateHierarchy(ctx context.Context, scope identity.AccessScope, input UpdateHierarchyInput) (*UserDTO, error) {
	user, err := s.findVisible(ctx, scope, input.ID)
	if err != nil {
		return nil, err
	}

	managerChanged := false
	switch {
	case input.ClearManager:
		managerChanged = user.ManagerID != nil
		if err := user.SetManager(nil); err != nil {
			return nil, err
		}
	case input.ManagerID != nil:
		if err := s.checkManager(ctx, user.ID, *input.ManagerID); err != nil {
			return nil, err
		}
		managerChanged = user.ManagerID == nil || *user.ManagerID != *input.ManagerID
		if err := user.SetManager(input.ManagerID); err != nil {
			return nil, err
		}
	}

	switch {
	case input.ClearTeam:
		user.SetTeam(nil)
	case input.TeamID != nil:
		user.SetTeam(input.TeamID)
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Error("Failed to update user hierarchy", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to update user")
	}
	if managerChanged {
		s.invalidator.InvalidateAll(ctx)
	}

	s.logger.Info("User hierarchy updated",
		zap.String("user_id", user.ID.String()),
		zap.Bool("manager_changed", managerChanged))

	return toUserDTO(user), nil
}

// AssignRoles replaces a user's roles
func (s *UserService) AssignRoles(ctx context.Context, scope identity.AccessScope, userID uuid.UUID, roleIDs []uuid.UUID) (*UserDTO, error) {
	user, err := s.findVisible(ctx, scope, userID)
	if err != nil {
		return nil, err
	}
	if err := s.validateRoles(ctx, roleIDs); err != nil {
		return nil, err
	}
	if err := user.SetRoles(roleIDs); err != nil {
		return nil, err
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Error("Failed to assign roles", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to assign roles")
	}
	s.invalidator.InvalidateAll(ctx)

	s.logger.Info("User roles assigned",
		zap.String("user_id", userID.String()),
		zap.Int("role_count", len(roleIDs)))

	return toUserDTO(user), nil
}

// Activate re-enables a deactivated user
func (s *UserService) Activate(ctx context.Context, scope identity.AccessScope, id uuid.UUID) (*UserDTO, error) {
	return s.changeStatus(ctx, scope, id, (*identity.User).Activate, "activated")
}

// Deactivate prevents a user from logging in. Their records stay visible.
func (s *UserService) Deactivate(ctx context.Context, scope identity.AccessScope, id uuid.UUID) (*UserDTO, error) {
	return s.changeStatus(ctx, scope, id, (*identity.User).Deactivate, "deactivated")
}

func (s *UserService) changeStatus(ctx context.Context, scope identity.AccessScope, id uuid.UUID, apply func(*identity.User) error, verb string) (*UserDTO, error) {
	user, err := s.findVisible(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if err := apply(user); err != nil {
		return nil, err
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Error("Failed to update user status", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to update user")
	}

	s.logger.Info("User "+verb, zap.String("user_id", id.String()))
	return toUserDTO(user), nil
}

// Delete soft-deletes a user. The user leaves the reporting hierarchy.
func (s *UserService) Delete(ctx context.Context, scope identity.AccessScope, id uuid.UUID) error {
	if _, err := s.findVisible(ctx, scope, id); err != nil {
		return err
	}

	if err := s.userRepo.SoftDelete(ctx, id); err != nil {
		s.logger.Error("Failed to delete user", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to delete user")
	}
	s.invalidator.InvalidateAll(ctx)

	s.logger.Info("User deleted", zap.String("user_id", id.String()))
	return nil
}

// PermanentDelete removes a user row for good
func (s *UserService) PermanentDelete(ctx context.Context, scope identity.AccessScope, id uuid.UUID) error {
	if _, err := s.findVisible(ctx, scope, id); err != nil {
		return err
	}

	if err := s.userRepo.HardDelete(ctx, id); err != nil {
		s.logger.Error("Failed to permanently delete user", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to delete user")
	}
	s.invalidator.InvalidateAll(ctx)

	s.logger.Warn("User permanently deleted", zap.String("user_id", id.String()))
	return nil
}

// ResetPassword sets a new password for a user (admin action)
func (s *UserService) ResetPassword(ctx context.Context, scope identity.AccessScope, id uuid.UUID, newPassword string) error {
	user, err := s.findVisible(ctx, scope, id)
	if err != nil {
		return err
	}
	if err := user.SetPassword(newPassword); err != nil {
		return err
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Error("Failed to reset password", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to reset password")
	}

	s.logger.Info("User password reset", zap.String("user_id", id.String()))
	return nil
}

// checkManager rejects a manager that is missing, the user itself, or one of
// the user's transitive reports.
func (s *UserService) checkManager(ctx context.Context, userID, managerID uuid.UUID) error {
	if managerID == userID {
		return shared.NewDomainError("INVALID_MANAGER", "User cannot be their own manager")
	}
	if _, err := s.findUser(ctx, managerID); err != nil {
		return managerError(err)
	}

	links, err := s.userRepo.ListReportingLinks(ctx)
	if err != nil {
		s.logger.Error("Failed to load reporting links", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to validate manager")
	}
	reports, _ := CollectReports(userID, links)
	for _, report := range reports {
		if report == managerID {
			return shared.NewDomainError("MANAGER_CYCLE", "Manager reports to this user")
		}
	}
	return nil
}

func (s *UserService) validateRoles(ctx context.Context, roleIDs []uuid.UUID) error {
	if len(roleIDs) == 0 {
		return nil
	}
	roles, err := s.roleRepo.FindByIDs(ctx, roleIDs)
	if err != nil {
		s.logger.Error("Failed to load roles", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to validate roles")
	}

	found := make(map[uuid.UUID]bool, len(roles))
	for _, role := range roles {
		found[role.ID] = true
	}
	for _, id := range roleIDs {
		if !found[id] {
			return shared.NewDomainError("ROLE_NOT_FOUND", "Role not found: "+id.String())
		}
	}
	return nil
}

func (s *UserService) findUser(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("USER_NOT_FOUND", "User not found")
		}
		s.logger.Error("Failed to find user", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to find user")
	}
	return user, nil
}

// findVisible loads a user and hides it when it is outside the scope
func (s *UserService) findVisible(ctx context.Context, scope identity.AccessScope, id uuid.UUID) (*identity.User, error) {
	if !scope.Contains(id) {
		return nil, shared.NewDomainError("USER_NOT_FOUND", "User not found")
	}
	return s.findUser(ctx, id)
}

func managerError(err error) error {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) && domainErr.Code == "USER_NOT_FOUND" {
		return shared.NewDomainError("MANAGER_NOT_FOUND", "Manager not found")
	}
	return err
}
