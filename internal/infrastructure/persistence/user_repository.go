package persistence

import (
	"context"
	"strings"
	"time"

	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/infrastructure/persistence/datascope"
	"github.com/crm/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormUserRepository implements UserRepository using GORM.
// It is also the HierarchyReader the access scope resolver walks.
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GormUserRepository
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user together with its role assignments
func (r *GormUserRepository) Create(ctx context.Context, user *identity.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(models.UserModelFromDomain(user)).Error; err != nil {
			return err
		}
		return saveUserRoles(tx, user)
	})
}

// Update updates an existing user and replaces its role assignments
func (r *GormUserRepository) Update(ctx context.Context, user *identity.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := updateRow(tx, models.UserModelFromDomain(user), user.ID); err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.UserRoleModel{}).Error; err != nil {
			return err
		}
		return saveUserRoles(tx, user)
	})
}

// SoftDelete tombstones a user. Role assignments stay so the user can be restored.
func (r *GormUserRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.UserModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// HardDelete permanently removes a user, its role assignments and any
// reporting links pointing at it.
func (r *GormUserRepository) HardDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.UserRoleModel{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Model(&models.UserModel{}).
			Where("manager_id = ?", id).
			Update("manager_id", nil).Error; err != nil {
			return err
		}
		result := tx.Unscoped().Delete(&models.UserModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// FindByID finds a non-deleted user by ID
func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	var model models.UserModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return r.withRoles(ctx, &model)
}

// FindByUsername finds a non-deleted user by username
func (r *GormUserRepository) FindByUsername(ctx context.Context, username string) (*identity.User, error) {
	var model models.UserModel
	if err := r.db.WithContext(ctx).
		Where("LOWER(username) = ?", strings.ToLower(strings.TrimSpace(username))).
		First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return r.withRoles(ctx, &model)
}

// FindAll returns users visible within the scope with pagination
func (r *GormUserRepository) FindAll(ctx context.Context, scope identity.AccessScope, filter identity.UserFilter) ([]*identity.User, int64, error) {
	var userModels []models.UserModel
	var total int64

	query := r.db.WithContext(ctx).Model(&models.UserModel{})
	query = datascope.Apply(query, scope, datascope.Users)
	query = r.applyFilter(query, filter)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := paginate(query, "users", filter.Filter, UserSortFields).Find(&userModels).Error; err != nil {
		return nil, 0, err
	}

	ids := make([]uuid.UUID, len(userModels))
	for i := range userModels {
		ids[i] = userModels[i].ID
	}
	roleIDs, err := r.loadRoleIDs(ctx, ids)
	if err != nil {
		return nil, 0, err
	}

	users := make([]*identity.User, len(userModels))
	for i := range userModels {
		users[i] = userModels[i].ToDomain()
		if assigned, ok := roleIDs[users[i].ID]; ok {
			users[i].RoleIDs = assigned
		}
	}
	return users, total, nil
}

// ExistsByUsername checks if a username is taken, deleted users included
func (r *GormUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Unscoped().
		Model(&models.UserModel{}).
		Where("LOWER(username) = ?", strings.ToLower(strings.TrimSpace(username))).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ExistsByEmail checks if an email already exists among non-deleted users
func (r *GormUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if email == "" {
		return false, nil
	}
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.UserModel{}).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindEnabledRoles returns the enabled roles assigned to a non-deleted user.
// Permissions are not loaded.
func (r *GormUserRepository) FindEnabledRoles(ctx context.Context, userID uuid.UUID) ([]*identity.Role, error) {
	var exists int64
	if err := r.db.WithContext(ctx).
		Model(&models.UserModel{}).
		Where("id = ?", userID).
		Count(&exists).Error; err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, shared.ErrNotFound
	}

	var roleModels []models.RoleModel
	if err := r.db.WithContext(ctx).
		Model(&models.RoleModel{}).
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ? AND roles.is_enabled = ?", userID, true).
		Find(&roleModels).Error; err != nil {
		return nil, err
	}

	roles := make([]*identity.Role, len(roleModels))
	for i := range roleModels {
		roles[i] = roleModels[i].ToDomain()
	}
	return roles, nil
}

type reportingLinkRow struct {
	ID        uuid.UUID
	ManagerID uuid.UUID
}

// ListReportingLinks returns a link for every non-deleted user that has a manager
func (r *GormUserRepository) ListReportingLinks(ctx context.Context) ([]identity.ReportingLink, error) {
	var rows []reportingLinkRow
	if err := r.db.WithContext(ctx).
		Model(&models.UserModel{}).
		Select("id", "manager_id").
		Where("manager_id IS NOT NULL").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	links := make([]identity.ReportingLink, len(rows))
	for i, row := range rows {
		links[i] = identity.ReportingLink{UserID: row.ID, ManagerID: row.ManagerID}
	}
	return links, nil
}

func (r *GormUserRepository) withRoles(ctx context.Context, model *models.UserModel) (*identity.User, error) {
	user := model.ToDomain()
	roleIDs, err := r.loadRoleIDs(ctx, []uuid.UUID{user.ID})
	if err != nil {
		return nil, err
	}
	if assigned, ok := roleIDs[user.ID]; ok {
		user.RoleIDs = assigned
	}
	return user, nil
}

// loadRoleIDs loads role assignments for a batch of users
func (r *GormUserRepository) loadRoleIDs(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	result := make(map[uuid.UUID][]uuid.UUID, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}

	var rows []models.UserRoleModel
	if err := r.db.WithContext(ctx).
		Where("user_id IN ?", userIDs).
		Order("created_at").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.UserID] = append(result[row.UserID], row.RoleID)
	}
	return result, nil
}

// applyFilter applies filter options to the query
func (r *GormUserRepository) applyFilter(query *gorm.DB, filter identity.UserFilter) *gorm.DB {
	if filter.Search != "" {
		pattern := searchPattern(filter.Search)
		query = query.Where(
			"LOWER(users.username) LIKE ? OR LOWER(users.email) LIKE ? OR LOWER(users.display_name) LIKE ?",
			pattern, pattern, pattern,
		)
	}
	if filter.Status != nil {
		query = query.Where("users.status = ?", *filter.Status)
	}
	if filter.ManagerID != nil {
		query = query.Where("users.manager_id = ?", *filter.ManagerID)
	}
	if filter.TeamID != nil {
		query = query.Where("users.team_id = ?", *filter.TeamID)
	}
	if filter.RoleID != nil {
		query = query.Where("users.id IN (?)",
			r.db.Model(&models.UserRoleModel{}).Select("user_id").Where("role_id = ?", *filter.RoleID))
	}
	return query
}

func saveUserRoles(tx *gorm.DB, user *identity.User) error {
	if len(user.RoleIDs) == 0 {
		return nil
	}
	now := time.Now().UTC()
	rows := make([]models.UserRoleModel, len(user.RoleIDs))
	for i, roleID := range user.RoleIDs {
		rows[i] = models.UserRoleModel{
			UserID:    user.ID,
			RoleID:    roleID,
			CreatedAt: now.Add(time.Duration(i) * time.Microsecond),
		}
	}
	return tx.Create(&rows).Error
}

// updateRow writes every column of a non-deleted row except its identity,
// creation time and tombstone. Returns shared.ErrNotFound when no row matched.
func updateRow(tx *gorm.DB, model any, id uuid.UUID) error {
	result := tx.Model(model).
		Where("id = ?", id).
		Select("*").
		Omit("id", "created_at", "deleted_at", clause.Associations).
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormUserRepository implements UserRepository
var _ identity.UserRepository = (*GormUserRepository)(nil)
