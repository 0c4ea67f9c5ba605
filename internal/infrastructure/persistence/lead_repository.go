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
)

// GormLeadRepository implements crm.LeadRepository using GORM
type GormLeadRepository struct {
	db *gorm.DB
}

// NewGormLeadRepository creates a new GormLeadRepository
func NewGormLeadRepository(db *gorm.DB) *GormLeadRepository {
	return &GormLeadRepository{db: db}
}

// Create creates a new lead
func (r *GormLeadRepository) Create(ctx context.Context, lead *crm.Lead) error {
	return r.db.WithContext(ctx).Create(models.LeadModelFromDomain(lead)).Error
}

// CreateBatch inserts leads in one transaction
func (r *GormLeadRepository) CreateBatch(ctx context.Context, leads []*crm.Lead) error {
	if len(leads) == 0 {
		return nil
	}
	rows := make([]*models.LeadModel, len(leads))
	for i, lead := range leads {
		rows[i] = models.LeadModelFromDomain(lead)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(rows, 100).Error
	})
}

// Update updates an existing lead
func (r *GormLeadRepository) Update(ctx context.Context, lead *crm.Lead) error {
	return updateRow(r.db.WithContext(ctx), models.LeadModelFromDomain(lead), lead.ID)
}

// Delete soft-deletes a visible lead
func (r *GormLeadRepository) Delete(ctx context.Context, scope identity.AccessScope, id uuid.UUID) error {
	return scopedDelete(r.db.WithContext(ctx), scope, datascope.Leads, &models.LeadModel{}, id)
}

// FindByID finds a visible lead by ID
func (r *GormLeadRepository) FindByID(ctx context.Context, scope identity.AccessScope, id uuid.UUID) (*crm.Lead, error) {
	var model models.LeadModel
	if err := scopedFirst(r.db.WithContext(ctx), scope, datascope.Leads, &model, id); err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns visible leads matching the filter
func (r *GormLeadRepository) FindAll(ctx context.Context, scope identity.AccessScope, filter crm.LeadFilter) ([]*crm.Lead, int64, error) {
	query := datascope.Apply(r.db.WithContext(ctx).Model(&models.LeadModel{}), scope, datascope.Leads)

	if filter.Search != "" {
		pattern := searchPattern(filter.Search)
		query = query.Where("LOWER(leads.name) LIKE ? OR LOWER(leads.company) LIKE ? OR LOWER(leads.email) LIKE ?",
			pattern, pattern, pattern)
	}
	if filter.Status != nil {
		query = query.Where("leads.status = ?", *filter.Status)
	}
	if filter.AssignedTo != nil {
		query = query.Where("leads.assigned_to = ?", *filter.AssignedTo)
	}
	if filter.Source != "" {
		query = query.Where("leads.source = ?", filter.Source)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.LeadModel
	if err := paginate(query, "leads", filter.Filter, LeadSortFields).Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	leads := make([]*crm.Lead, len(rows))
	for i := range rows {
		leads[i] = rows[i].ToDomain()
	}
	return leads, total, nil
}

type statusCountRow struct {
	Status string
	Count  int64
}

// CountByStatus counts visible leads created within [from, to) per status
func (r *GormLeadRepository) CountByStatus(ctx context.Context, scope identity.AccessScope, from, to time.Time) (map[crm.LeadStatus]int64, error) {
	var rows []statusCountRow
	query := datascope.Apply(r.db.WithContext(ctx).Model(&models.LeadModel{}), scope, datascope.Leads)
	if err := query.
		Select("leads.status AS status, COUNT(*) AS count").
		Where("leads.created_at >= ? AND leads.created_at < ?", from.UTC(), to.UTC()).
		Group("leads.status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[crm.LeadStatus]int64, len(crm.AllLeadStatuses))
	for _, status := range crm.AllLeadStatuses {
		counts[status] = 0
	}
	for _, row := range rows {
		counts[crm.LeadStatus(row.Status)] = row.Count
	}
	return counts, nil
}

// scopedFirst loads a visible row by ID into dest
func scopedFirst(db *gorm.DB, scope identity.AccessScope, o datascope.Ownership, dest any, id uuid.UUID) error {
	err := datascope.Apply(db.Model(dest), scope, o).
		Where(o.Table+".id = ?", id).
		First(dest).Error
	return translateError(err)
}

// scopedDelete soft-deletes a visible row. Returns shared.ErrNotFound when
// the row does not exist or lies outside the scope.
func scopedDelete(db *gorm.DB, scope identity.AccessScope, o datascope.Ownership, model any, id uuid.UUID) error {
	result := datascope.Apply(db, scope, o).
		Where(o.Table+".id = ?", id).
		Delete(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormLeadRepository implements LeadRepository
var _ crm.LeadRepository = (*GormLeadRepository)(nil)
