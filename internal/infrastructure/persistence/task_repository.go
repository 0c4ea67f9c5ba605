package persistence

import (
	"context"
	"time"

	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/infrastructure/persistence/datascope"
	"github.com/crm/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormTaskRepository implements crm.TaskRepository using GORM
type GormTaskRepository struct {
	db *gorm.DB
}

// NewGormTaskRepository creates a new GormTaskRepository
func NewGormTaskRepository(db *gorm.DB) *GormTaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a new task
func (r *GormTaskRepository) Create(ctx context.Context, task *crm.Task) error {
	return r.db.WithContext(ctx).Create(models.TaskModelFromDomain(task)).Error
}

// Update updates an existing task
func (r *GormTaskRepository) Update(ctx context.Context, task *crm.Task) error {
	return updateRow(r.db.WithContext(ctx), models.TaskModelFromDomain(task), task.ID)
}

// Delete soft-deletes a visible task
func (r *GormTaskRepository) Delete(ctx context.Context, scope identity.AccessScope, id uuid.UUID) error {
	return scopedDelete(r.db.WithContext(ctx), scope, datascope.Tasks, &models.TaskModel{}, id)
}

// FindByID finds a visible task by ID
func (r *GormTaskRepository) FindByID(ctx context.Context, scope identity.AccessScope, id uuid.UUID) (*crm.Task, error) {
	var model models.TaskModel
	if err := scopedFirst(r.db.WithContext(ctx), scope, datascope.Tasks, &model, id); err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns visible tasks matching the filter
func (r *GormTaskRepository) FindAll(ctx context.Context, scope identity.AccessScope, filter crm.TaskFilter) ([]*crm.Task, int64, error) {
	query := datascope.Apply(r.db.WithContext(ctx).Model(&models.TaskModel{}), scope, datascope.Tasks)

	if filter.Search != "" {
		pattern := searchPattern(filter.Search)
		query = query.Where("LOWER(tasks.title) LIKE ? OR LOWER(tasks.description) LIKE ?", pattern, pattern)
	}
	if filter.Status != nil {
		query = query.Where("tasks.status = ?", *filter.Status)
	}
	if filter.AssignedTo != nil {
		query = query.Where("tasks.assigned_to = ?", *filter.AssignedTo)
	}
	if filter.LeadID != nil {
		query = query.Where("tasks.lead_id = ?", *filter.LeadID)
	}
	if filter.DealID != nil {
		query = query.Where("tasks.deal_id = ?", *filter.DealID)
	}
	if filter.DueBefore != nil {
		query = query.Where("tasks.due_at IS NOT NULL AND tasks.due_at <= ?", filter.DueBefore.UTC())
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.TaskModel
	if err := paginate(query, "tasks", filter.Filter, TaskSortFields).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return tasksToDomain(rows), total, nil
}

// FindDueForReminder returns open tasks due at or before the deadline that
// were never reminded, oldest due first. It is not scoped: the reminder job
// acts on behalf of every assignee.
func (r *GormTaskRepository) FindDueForReminder(ctx context.Context, deadline time.Time, limit int) ([]*crm.Task, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.TaskModel
	if err := r.db.WithContext(ctx).
		Where("status IN ?", []crm.TaskStatus{crm.TaskStatusPending, crm.TaskStatusInProgress}).
		Where("due_at IS NOT NULL AND due_at <= ?", deadline.UTC()).
		Where("reminded_at IS NULL").
		Order("due_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return tasksToDomain(rows), nil
}

// MarkReminded stamps reminded_at if no other worker did it first
func (r *GormTaskRepository) MarkReminded(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.TaskModel{}).
		Where("id = ? AND reminded_at IS NULL", id).
		UpdateColumn("reminded_at", at.UTC())
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func tasksToDomain(rows []models.TaskModel) []*crm.Task {
	tasks := make([]*crm.Task, len(rows))
	for i := range rows {
		tasks[i] = rows[i].ToDomain()
	}
	return tasks
}

// Ensure GormTaskRepository implements TaskRepository
var _ crm.TaskRepository = (*GormTaskRepository)(nil)
