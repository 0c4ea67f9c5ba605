package persistence

import (
	"context"
	"time"

	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/infrastructure/persistence/datascope"
	"github.com/crm/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormNoteRepository implements crm.NoteRepository using GORM
type GormNoteRepository struct {
	db *gorm.DB
}

// NewGormNoteRepository creates a new GormNoteRepository
func NewGormNoteRepository(db *gorm.DB) *GormNoteRepository {
	return &GormNoteRepository{db: db}
}

// Create creates a new note
func (r *GormNoteRepository) Create(ctx context.Context, note *crm.Note) error {
	return r.db.WithContext(ctx).Create(models.NoteModelFromDomain(note)).Error
}

// Update updates an existing note
func (r *GormNoteRepository) Update(ctx context.Context, note *crm.Note) error {
	return updateRow(r.db.WithContext(ctx), models.NoteModelFromDomain(note), note.ID)
}

// Delete soft-deletes a visible note
func (r *GormNoteRepository) Delete(ctx context.Context, scope identity.AccessScope, id uuid.UUID) error {
	return scopedDelete(r.db.WithContext(ctx), scope, datascope.Notes, &models.NoteModel{}, id)
}

// FindByID finds a visible note by ID
func (r *GormNoteRepository) FindByID(ctx context.Context, scope identity.AccessScope, id uuid.UUID) (*crm.Note, error) {
	var model models.NoteModel
	if err := scopedFirst(r.db.WithContext(ctx), scope, datascope.Notes, &model, id); err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByLead returns the visible notes of a lead
func (r *GormNoteRepository) FindByLead(ctx context.Context, scope identity.AccessScope, leadID uuid.UUID, filter shared.Filter) ([]*crm.Note, int64, error) {
	query := datascope.Apply(r.db.WithContext(ctx).Model(&models.NoteModel{}), scope, datascope.Notes).
		Where("notes.lead_id = ?", leadID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.NoteModel
	if err := paginate(query, "notes", filter, NoteSortFields).Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	notes := make([]*crm.Note, len(rows))
	for i := range rows {
		notes[i] = rows[i].ToDomain()
	}
	return notes, total, nil
}

// GormNotificationRepository implements crm.NotificationRepository using GORM
type GormNotificationRepository struct {
	db *gorm.DB
}

// NewGormNotificationRepository creates a new GormNotificationRepository
func NewGormNotificationRepository(db *gorm.DB) *GormNotificationRepository {
	return &GormNotificationRepository{db: db}
}

// Create stores a notification
func (r *GormNotificationRepository) Create(ctx context.Context, n *crm.Notification) error {
	return r.db.WithContext(ctx).Create(models.NotificationModelFromDomain(n)).Error
}

// FindByUser returns the notifications of one user, newest first by default
func (r *GormNotificationRepository) FindByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, filter shared.Filter) ([]*crm.Notification, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.NotificationModel{}).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("read_at IS NULL")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.NotificationModel
	if err := paginate(query, "notifications", filter, NoteSortFields).Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	items := make([]*crm.Notification, len(rows))
	for i := range rows {
		items[i] = rows[i].ToDomain()
	}
	return items, total, nil
}

// MarkRead marks one notification of the user as read. Already read
// notifications keep their first read time.
func (r *GormNotificationRepository) MarkRead(ctx context.Context, userID, id uuid.UUID, at time.Time) error {
	var model models.NotificationModel
	if err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&model).Error; err != nil {
		return translateError(err)
	}
	if model.ReadAt != nil {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.NotificationModel{}).
		Where("id = ? AND read_at IS NULL", id).
		UpdateColumn("read_at", at.UTC()).Error
}

// MarkAllRead marks every unread notification of the user as read
func (r *GormNotificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.NotificationModel{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		UpdateColumn("read_at", at.UTC())
	return result.RowsAffected, result.Error
}

// GormSettingsRepository implements crm.SettingsRepository using GORM
type GormSettingsRepository struct {
	db *gorm.DB
}

// NewGormSettingsRepository creates a new GormSettingsRepository
func NewGormSettingsRepository(db *gorm.DB) *GormSettingsRepository {
	return &GormSettingsRepository{db: db}
}

// Get returns the stored settings row
func (r *GormSettingsRepository) Get(ctx context.Context) (*crm.BusinessSettings, error) {
	var model models.BusinessSettingsModel
	if err := r.db.WithContext(ctx).Order("created_at ASC").First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// Save inserts or overwrites the settings row
func (r *GormSettingsRepository) Save(ctx context.Context, settings *crm.BusinessSettings) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(models.BusinessSettingsModelFromDomain(settings)).Error
}

// Ensure the repositories implement their interfaces
var (
	_ crm.NoteRepository         = (*GormNoteRepository)(nil)
	_ crm.NotificationRepository = (*GormNotificationRepository)(nil)
	_ crm.SettingsRepository     = (*GormSettingsRepository)(nil)
)
