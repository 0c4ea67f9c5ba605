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

// GormDealRepository implements crm.DealRepository using GORM
type GormDealRepository struct {
	db *gorm.DB
}

// NewGormDealRepository creates a new GormDealRepository
func NewGormDealRepository(db *gorm.DB) *GormDealRepository {
	return &GormDealRepository{db: db}
}

// Create creates a new deal
func (r *GormDealRepository) Create(ctx context.Context, deal *crm.Deal) error {
	return r.db.WithContext(ctx).Create(models.DealModelFromDomain(deal)).Error
}

// Update updates an existing deal
func (r *GormDealRepository) Update(ctx context.Context, deal *crm.Deal) error {
	return updateRow(r.db.WithContext(ctx), models.DealModelFromDomain(deal), deal.ID)
}

// Delete soft-deletes a visible deal
func (r *GormDealRepository) Delete(ctx context.Context, scope identity.AccessScope, id uuid.UUID) error {
	return scopedDelete(r.db.WithContext(ctx), scope, datascope.Deals, &models.DealModel{}, id)
}

// FindByID finds a visible deal by ID
func (r *GormDealRepository) FindByID(ctx context.Context, scope identity.AccessScope, id uuid.UUID) (*crm.Deal, error) {
	var model models.DealModel
	if err := scopedFirst(r.db.WithContext(ctx), scope, datascope.Deals, &model, id); err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns visible deals matching the filter
func (r *GormDealRepository) FindAll(ctx context.Context, scope identity.AccessScope, filter crm.DealFilter) ([]*crm.Deal, int64, error) {
	query := datascope.Apply(r.db.WithContext(ctx).Model(&models.DealModel{}), scope, datascope.Deals)

	if filter.Search != "" {
		query = query.Where("LOWER(deals.title) LIKE ?", searchPattern(filter.Search))
	}
	if filter.Stage != nil {
		query = query.Where("deals.stage = ?", *filter.Stage)
	}
	if filter.AssignedTo != nil {
		query = query.Where("deals.assigned_to = ?", *filter.AssignedTo)
	}
	if filter.LeadID != nil {
		query = query.Where("deals.lead_id = ?", *filter.LeadID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.DealModel
	if err := paginate(query, "deals", filter.Filter, DealSortFields).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return dealsToDomain(rows), total, nil
}

// FindForReport returns every visible deal created within [from, to)
func (r *GormDealRepository) FindForReport(ctx context.Context, scope identity.AccessScope, from, to time.Time) ([]*crm.Deal, error) {
	var rows []models.DealModel
	if err := datascope.Apply(r.db.WithContext(ctx).Model(&models.DealModel{}), scope, datascope.Deals).
		Where("deals.created_at >= ? AND deals.created_at < ?", from.UTC(), to.UTC()).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return dealsToDomain(rows), nil
}

func dealsToDomain(rows []models.DealModel) []*crm.Deal {
	deals := make([]*crm.Deal, len(rows))
	for i := range rows {
		deals[i] = rows[i].ToDomain()
	}
	return deals
}

// Ensure GormDealRepository implements DealRepository
var _ crm.DealRepository = (*GormDealRepository)(nil)
