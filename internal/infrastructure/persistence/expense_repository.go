package persistence

import (
	"context"
	"strings"
	"time"

	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/infrastructure/persistence/datascope"
	"github.com/crm/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormExpenseRepository implements crm.ExpenseRepository using GORM
type GormExpenseRepository struct {
	db *gorm.DB
}

// NewGormExpenseRepository creates a new GormExpenseRepository
func NewGormExpenseRepository(db *gorm.DB) *GormExpenseRepository {
	return &GormExpenseRepository{db: db}
}

// Create creates a new expense
func (r *GormExpenseRepository) Create(ctx context.Context, expense *crm.Expense) error {
	return r.db.WithContext(ctx).Create(models.ExpenseModelFromDomain(expense)).Error
}

// Update updates an existing expense
func (r *GormExpenseRepository) Update(ctx context.Context, expense *crm.Expense) error {
	return updateRow(r.db.WithContext(ctx), models.ExpenseModelFromDomain(expense), expense.ID)
}

// Delete soft-deletes a visible expense
func (r *GormExpenseRepository) Delete(ctx context.Context, scope identity.AccessScope, id uuid.UUID) error {
	return scopedDelete(r.db.WithContext(ctx), scope, datascope.Expenses, &models.ExpenseModel{}, id)
}

// FindByID finds a visible expense by ID
func (r *GormExpenseRepository) FindByID(ctx context.Context, scope identity.AccessScope, id uuid.UUID) (*crm.Expense, error) {
	var model models.ExpenseModel
	if err := scopedFirst(r.db.WithContext(ctx), scope, datascope.Expenses, &model, id); err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns visible expenses matching the filter
func (r *GormExpenseRepository) FindAll(ctx context.Context, scope identity.AccessScope, filter crm.ExpenseFilter) ([]*crm.Expense, int64, error) {
	query := datascope.Apply(r.db.WithContext(ctx).Model(&models.ExpenseModel{}), scope, datascope.Expenses)

	if filter.Search != "" {
		query = query.Where("LOWER(expenses.title) LIKE ?", searchPattern(filter.Search))
	}
	if filter.Status != nil {
		query = query.Where("expenses.status = ?", *filter.Status)
	}
	if filter.Category != "" {
		query = query.Where("expenses.category = ?", strings.ToLower(strings.TrimSpace(filter.Category)))
	}
	if filter.SubmittedBy != nil {
		query = query.Where("expenses.submitted_by = ?", *filter.SubmittedBy)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.ExpenseModel
	if err := paginate(query, "expenses", filter.Filter, ExpenseSortFields).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return expensesToDomain(rows), total, nil
}

// FindApprovedForReport returns visible approved expenses incurred within [from, to)
func (r *GormExpenseRepository) FindApprovedForReport(ctx context.Context, scope identity.AccessScope, from, to time.Time) ([]*crm.Expense, error) {
	var rows []models.ExpenseModel
	if err := datascope.Apply(r.db.WithContext(ctx).Model(&models.ExpenseModel{}), scope, datascope.Expenses).
		Where("expenses.status = ?", crm.ExpenseStatusApproved).
		Where("expenses.incurred_on >= ? AND expenses.incurred_on < ?", from.UTC(), to.UTC()).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return expensesToDomain(rows), nil
}

func expensesToDomain(rows []models.ExpenseModel) []*crm.Expense {
	expenses := make([]*crm.Expense, len(rows))
	for i := range rows {
		expenses[i] = rows[i].ToDomain()
	}
	return expenses
}

// Ensure GormExpenseRepository implements ExpenseRepository
var _ crm.ExpenseRepository = (*GormExpenseRepository)(nil)
