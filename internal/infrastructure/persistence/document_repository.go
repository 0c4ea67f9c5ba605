package persistence

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/infrastructure/persistence/datascope"
	"github.com/crm/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// documentNumberWidth is the zero-padded width of generated document numbers
const documentNumberWidth = 5

// numberScanLimit bounds the candidates read when allocating a number
const numberScanLimit = 50

func orderItems(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// GormInvoiceRepository implements crm.InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// Create creates a new invoice with its line items. A taken number
// yields shared.ErrAlreadyExists.
func (r *GormInvoiceRepository) Create(ctx context.Context, invoice *crm.Invoice) error {
	return translateError(r.db.WithContext(ctx).Create(models.InvoiceModelFromDomain(invoice)).Error)
}

// Update updates an invoice and replaces its line items
func (r *GormInvoiceRepository) Update(ctx context.Context, invoice *crm.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := updateRow(tx, model, invoice.ID); err != nil {
			return err
		}
		if err := tx.Where("invoice_id = ?", invoice.ID).Delete(&models.InvoiceItemModel{}).Error; err != nil {
			return err
		}
		if len(model.Items) == 0 {
			return nil
		}
		return tx.Create(&model.Items).Error
	})
}

// Delete soft-deletes a visible invoice
func (r *GormInvoiceRepository) Delete(ctx context.Context, scope identity.AccessScope, id uuid.UUID) error {
	return scopedDelete(r.db.WithContext(ctx), scope, datascope.Invoices, &models.InvoiceModel{}, id)
}

// FindByID finds a visible invoice by ID with its line items
func (r *GormInvoiceRepository) FindByID(ctx context.Context, scope identity.AccessScope, id uuid.UUID) (*crm.Invoice, error) {
	var model models.InvoiceModel
	if err := scopedFirst(r.db.WithContext(ctx).Preload("Items", orderItems), scope, datascope.Invoices, &model, id); err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns visible invoices matching the filter. The "overdue"
// status selects sent invoices past their due date.
func (r *GormInvoiceRepository) FindAll(ctx context.Context, scope identity.AccessScope, filter crm.DocumentFilter) ([]*crm.Invoice, int64, error) {
	query := datascope.Apply(r.db.WithContext(ctx).Model(&models.InvoiceModel{}), scope, datascope.Invoices)
	query = applyDocumentFilter(query, "invoices", filter)
	if filter.Status != nil {
		if crm.InvoiceStatus(*filter.Status) == crm.InvoiceStatusOverdue {
			query = query.Where("invoices.status = ? AND invoices.due_date IS NOT NULL AND invoices.due_date < ?",
				crm.InvoiceStatusSent, time.Now().UTC())
		} else {
			query = query.Where("invoices.status = ?", *filter.Status)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.InvoiceModel
	if err := paginate(query, "invoices", filter.Filter, DocumentSortFields).
		Preload("Items", orderItems).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return invoicesToDomain(rows), total, nil
}

// FindPaidForReport returns visible invoices paid within [from, to)
func (r *GormInvoiceRepository) FindPaidForReport(ctx context.Context, scope identity.AccessScope, from, to time.Time) ([]*crm.Invoice, error) {
	var rows []models.InvoiceModel
	if err := datascope.Apply(r.db.WithContext(ctx).Model(&models.InvoiceModel{}), scope, datascope.Invoices).
		Where("invoices.status = ?", crm.InvoiceStatusPaid).
		Where("invoices.paid_at >= ? AND invoices.paid_at < ?", from.UTC(), to.UTC()).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return invoicesToDomain(rows), nil
}

// NextNumber returns the next free invoice number for the prefix
func (r *GormInvoiceRepository) NextNumber(ctx context.Context, prefix string) (string, error) {
	return nextDocumentNumber(r.db.WithContext(ctx).Model(&models.InvoiceModel{}), prefix)
}

func invoicesToDomain(rows []models.InvoiceModel) []*crm.Invoice {
	invoices := make([]*crm.Invoice, len(rows))
	for i := range rows {
		invoices[i] = rows[i].ToDomain()
	}
	return invoices
}

// GormQuotationRepository implements crm.QuotationRepository using GORM
type GormQuotationRepository struct {
	db *gorm.DB
}

// NewGormQuotationRepository creates a new GormQuotationRepository
func NewGormQuotationRepository(db *gorm.DB) *GormQuotationRepository {
	return &GormQuotationRepository{db: db}
}

// Create creates a new quotation with its line items
func (r *GormQuotationRepository) Create(ctx context.Context, quotation *crm.Quotation) error {
	return translateError(r.db.WithContext(ctx).Create(models.QuotationModelFromDomain(quotation)).Error)
}

// Update updates a quotation and replaces its line items
func (r *GormQuotationRepository) Update(ctx context.Context, quotation *crm.Quotation) error {
	model := models.QuotationModelFromDomain(quotation)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := updateRow(tx, model, quotation.ID); err != nil {
			return err
		}
		if err := tx.Where("quotation_id = ?", quotation.ID).Delete(&models.QuotationItemModel{}).Error; err != nil {
			return err
		}
		if len(model.Items) == 0 {
			return nil
		}
		return tx.Create(&model.Items).Error
	})
}

// Delete soft-deletes a visible quotation
func (r *GormQuotationRepository) Delete(ctx context.Context, scope identity.AccessScope, id uuid.UUID) error {
	return scopedDelete(r.db.WithContext(ctx), scope, datascope.Quotations, &models.QuotationModel{}, id)
}

// FindByID finds a visible quotation by ID with its line items
func (r *GormQuotationRepository) FindByID(ctx context.Context, scope identity.AccessScope, id uuid.UUID) (*crm.Quotation, error) {
	var model models.QuotationModel
	if err := scopedFirst(r.db.WithContext(ctx).Preload("Items", orderItems), scope, datascope.Quotations, &model, id); err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns visible quotations matching the filter
func (r *GormQuotationRepository) FindAll(ctx context.Context, scope identity.AccessScope, filter crm.DocumentFilter) ([]*crm.Quotation, int64, error) {
	query := datascope.Apply(r.db.WithContext(ctx).Model(&models.QuotationModel{}), scope, datascope.Quotations)
	query = applyDocumentFilter(query, "quotations", filter)
	if filter.Status != nil {
		query = query.Where("quotations.status = ?", *filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.QuotationModel
	if err := paginate(query, "quotations", filter.Filter, DocumentSortFields).
		Preload("Items", orderItems).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	quotations := make([]*crm.Quotation, len(rows))
	for i := range rows {
		quotations[i] = rows[i].ToDomain()
	}
	return quotations, total, nil
}

// NextNumber returns the next free quotation number for the prefix
func (r *GormQuotationRepository) NextNumber(ctx context.Context, prefix string) (string, error) {
	return nextDocumentNumber(r.db.WithContext(ctx).Model(&models.QuotationModel{}), prefix)
}

func applyDocumentFilter(query *gorm.DB, table string, filter crm.DocumentFilter) *gorm.DB {
	if filter.Search != "" {
		pattern := searchPattern(filter.Search)
		query = query.Where(
			fmt.Sprintf("LOWER(%[1]s.number) LIKE ? OR LOWER(%[1]s.customer_name) LIKE ?", table),
			pattern, pattern)
	}
	if filter.DealID != nil {
		query = query.Where(table+".deal_id = ?", *filter.DealID)
	}
	return query
}

// nextDocumentNumber returns prefix + (highest numeric suffix + 1), deleted
// rows included. Suffixes are zero padded, so the longest and then greatest
// numbers carry the highest suffix.
func nextDocumentNumber(query *gorm.DB, prefix string) (string, error) {
	var numbers []string
	if err := query.Unscoped().
		Where(`number LIKE ? ESCAPE '\'`, escapeLike(prefix)+"%").
		Order("LENGTH(number) DESC, number DESC").
		Limit(numberScanLimit).
		Pluck("number", &numbers).Error; err != nil {
		return "", err
	}

	next := 1
	for _, number := range numbers {
		if n, err := strconv.Atoi(strings.TrimPrefix(number, prefix)); err == nil && n >= 0 {
			next = n + 1
			break
		}
	}
	return fmt.Sprintf("%s%0*d", prefix, documentNumberWidth, next), nil
}

// Ensure the document repositories implement their interfaces
var (
	_ crm.InvoiceRepository   = (*GormInvoiceRepository)(nil)
	_ crm.QuotationRepository = (*GormQuotationRepository)(nil)
)
