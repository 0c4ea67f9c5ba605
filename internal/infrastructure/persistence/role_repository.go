package persistence

import (
	"context"
	"strings"

	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormRoleRepository implements RoleRepository using GORM
type GormRoleRepository struct {
	db *gorm.DB
}

// NewGormRoleRepository creates a new GormRoleRepository
func NewGormRoleRepository(db *gorm.DB) *GormRoleRepository {
	return &GormRoleRepository{db: db}
}

// Create creates a new role with its permissions
func (r *GormRoleRepository) Create(ctx context.Context, role *identity.Role) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(models.RoleModelFromDomain(role)).Error; err != nil {
			return err
		}
		return savePermissions(tx, role)
	})
}

// Update updates an existing role and replaces its permissions
func (r *GormRoleRepository) Update(ctx context.Context, role *identity.Role) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := updateRow(tx, models.RoleModelFromDomain(role), role.ID); err != nil {
			return err
		}
		if err := tx.Where("role_id = ?", role.ID).Delete(&models.RolePermissionModel{}).Error; err != nil {
			return err
		}
		return savePermissions(tx, role)
	})
}

// Delete deletes a role, its permissions and its assignments
func (r *GormRoleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", id).Delete(&models.RolePermissionModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("role_id = ?", id).Delete(&models.UserRoleModel{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.RoleModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// FindByID finds a role by ID
func (r *GormRoleRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Role, error) {
	var model models.RoleModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	roles, err := r.withPermissions(ctx, []models.RoleModel{model})
	if err != nil {
		return nil, err
	}
	return roles[0], nil
}

// FindByCode finds a role by code
func (r *GormRoleRepository) FindByCode(ctx context.Context, code string) (*identity.Role, error) {
	var model models.RoleModel
	if err := r.db.WithContext(ctx).
		Where("code = ?", strings.ToUpper(strings.TrimSpace(code))).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	roles, err := r.withPermissions(ctx, []models.RoleModel{model})
	if err != nil {
		return nil, err
	}
	return roles[0], nil
}

// FindByIDs finds multiple roles by IDs
func (r *GormRoleRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*identity.Role, error) {
	if len(ids) == 0 {
		return []*identity.Role{}, nil
	}

	var roleModels []models.RoleModel
	if err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("code ASC").
		Find(&roleModels).Error; err != nil {
		return nil, err
	}
	return r.withPermissions(ctx, roleModels)
}

// FindAll finds all roles matching the filter, ordered by code
func (r *GormRoleRepository) FindAll(ctx context.Context, filter identity.RoleFilter) ([]*identity.Role, error) {
	var roleModels []models.RoleModel
	query := r.db.WithContext(ctx).Model(&models.RoleModel{})

	if filter.Keyword != "" {
		pattern := searchPattern(filter.Keyword)
		query = query.Where("LOWER(code) LIKE ? OR LOWER(name) LIKE ?", pattern, pattern)
	}
	if filter.IsEnabled != nil {
		query = query.Where("is_enabled = ?", *filter.IsEnabled)
	}
	if filter.Tier != nil {
		query = query.Where("tier = ?", *filter.Tier)
	}

	if err := query.Order("code ASC").Find(&roleModels).Error; err != nil {
		return nil, err
	}
	return r.withPermissions(ctx, roleModels)
}

// ExistsByCode checks if a role with the given code exists
func (r *GormRoleRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.RoleModel{}).
		Where("code = ?", strings.ToUpper(strings.TrimSpace(code))).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// withPermissions converts role rows and attaches their permissions in one query
func (r *GormRoleRepository) withPermissions(ctx context.Context, roleModels []models.RoleModel) ([]*identity.Role, error) {
	roles := make([]*identity.Role, len(roleModels))
	if len(roleModels) == 0 {
		return roles, nil
	}

	byID := make(map[uuid.UUID]*identity.Role, len(roleModels))
	ids := make([]uuid.UUID, len(roleModels))
	for i := range roleModels {
		roles[i] = roleModels[i].ToDomain()
		byID[roles[i].ID] = roles[i]
		ids[i] = roles[i].ID
	}

	var perms []models.RolePermissionModel
	if err := r.db.WithContext(ctx).
		Where("role_id IN ?", ids).
		Order("code ASC").
		Find(&perms).Error; err != nil {
		return nil, err
	}
	for i := range perms {
		if role, ok := byID[perms[i].RoleID]; ok {
			role.Permissions = append(role.Permissions, perms[i].ToDomain())
		}
	}
	return roles, nil
}

func savePermissions(tx *gorm.DB, role *identity.Role) error {
	if len(role.Permissions) == 0 {
		return nil
	}
	rows := make([]models.RolePermissionModel, len(role.Permissions))
	for i, perm := range role.Permissions {
		rows[i] = models.RolePermissionModelFromDomain(role.ID, perm)
	}
	return tx.Create(&rows).Error
}

// Ensure GormRoleRepository implements RoleRepository
var _ identity.RoleRepository = (*GormRoleRepository)(nil)
