package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/debtflow/backend/internal/domain/ledger"
	"github.com/debtflow/backend/internal/domain/shared"
	"github.com/debtflow/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// openStatuses are the invoice statuses that can still receive payments.
var openStatuses = []ledger.InvoiceStatus{ledger.InvoiceStatusUnpaid, ledger.InvoiceStatusPartial}

// GormInvoiceRepository implements InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// conn returns the transaction bound to ctx when inside an InTransaction
// block, the base connection otherwise
func (r *GormInvoiceRepository) conn(ctx context.Context) *gorm.DB {
	if tx := txFromContext(ctx); tx != nil {
		return tx.WithContext(ctx)
	}
	return r.db.WithContext(ctx)
}

// FindByID finds an invoice by its ID. Returns nil without error when the
// invoice does not exist; callers translate that to a not-found error.
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Invoice, error) {
	var model models.InvoiceModel
	if err := r.conn(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByInvoiceNumber finds an invoice by its number
func (r *GormInvoiceRepository) FindByInvoiceNumber(ctx context.Context, invoiceNumber string) (*ledger.Invoice, error) {
	var model models.InvoiceModel
	if err := r.conn(ctx).
		Where("invoice_number = ?", invoiceNumber).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds invoices with filtering
func (r *GormInvoiceRepository) FindAll(ctx context.Context, filter ledger.InvoiceFilter) ([]ledger.Invoice, error) {
	var invoiceModels []models.InvoiceModel
	query := r.conn(ctx).Model(&models.InvoiceModel{})
	query = r.applyInvoiceFilter(query, filter)

	if err := query.Find(&invoiceModels).Error; err != nil {
		return nil, err
	}
	invoices := make([]ledger.Invoice, len(invoiceModels))
	for i, model := range invoiceModels {
		invoices[i] = *model.ToDomain()
	}
	return invoices, nil
}

// FindByCustomer finds invoices for a customer
func (r *GormInvoiceRepository) FindByCustomer(ctx context.Context, customerID uuid.UUID, filter ledger.InvoiceFilter) ([]ledger.Invoice, error) {
	var invoiceModels []models.InvoiceModel
	query := r.conn(ctx).Model(&models.InvoiceModel{}).
		Where("customer_id = ?", customerID)
	query = r.applyInvoiceFilter(query, filter)

	if err := query.Find(&invoiceModels).Error; err != nil {
		return nil, err
	}
	invoices := make([]ledger.Invoice, len(invoiceModels))
	for i, model := range invoiceModels {
		invoices[i] = *model.ToDomain()
	}
	return invoices, nil
}

// FindOpenByCustomer finds the customer's invoices that can still receive
// payments, ordered oldest due date first for FIFO allocation
func (r *GormInvoiceRepository) FindOpenByCustomer(ctx context.Context, customerID uuid.UUID) ([]ledger.Invoice, error) {
	var invoiceModels []models.InvoiceModel
	if err := r.conn(ctx).
		Where("customer_id = ? AND status IN ? AND outstanding > 0", customerID, openStatuses).
		Order("due_date ASC, created_at ASC").
		Find(&invoiceModels).Error; err != nil {
		return nil, err
	}
	invoices := make([]ledger.Invoice, len(invoiceModels))
	for i, model := range invoiceModels {
		invoices[i] = *model.ToDomain()
	}
	return invoices, nil
}

// FindByReceipt finds invoices holding allocations from the given receipt.
// Allocations are stored as a JSONB array, so this uses a containment match
// on the receipt_id key.
func (r *GormInvoiceRepository) FindByReceipt(ctx context.Context, receiptID uuid.UUID) ([]ledger.Invoice, error) {
	var invoiceModels []models.InvoiceModel
	pattern := fmt.Sprintf(`[{"receipt_id": %q}]`, receiptID.String())
	if err := r.conn(ctx).
		Where("allocations @> ?", pattern).
		Order("due_date ASC, created_at ASC").
		Find(&invoiceModels).Error; err != nil {
		return nil, err
	}
	invoices := make([]ledger.Invoice, len(invoiceModels))
	for i, model := range invoiceModels {
		invoices[i] = *model.ToDomain()
	}
	return invoices, nil
}

// FindOverdue finds invoices with an outstanding balance past due as of the given date
func (r *GormInvoiceRepository) FindOverdue(ctx context.Context, asOf time.Time, filter ledger.InvoiceFilter) ([]ledger.Invoice, error) {
	var invoiceModels []models.InvoiceModel
	query := r.conn(ctx).Model(&models.InvoiceModel{}).
		Where("due_date < ? AND status IN ?", asOf, openStatuses)
	query = r.applyInvoiceFilter(query, filter)

	if err := query.Find(&invoiceModels).Error; err != nil {
		return nil, err
	}
	invoices := make([]ledger.Invoice, len(invoiceModels))
	for i, model := range invoiceModels {
		invoices[i] = *model.ToDomain()
	}
	return invoices, nil
}

// Save creates or updates an invoice
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *ledger.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	return r.conn(ctx).Save(model).Error
}

// SaveWithLock saves with optimistic locking. The update selects every
// column: a struct-based Updates would skip zero-valued fields, so an
// invoice retracted back to UNPAID would keep its stale paid_at and a
// cleared remark would never reach the database.
func (r *GormInvoiceRepository) SaveWithLock(ctx context.Context, invoice *ledger.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	result := r.conn(ctx).
		Model(model).
		Where("id = ? AND version = ?", invoice.ID, invoice.Version-1).
		Select("*").
		Omit("id", "created_at").
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError("OPTIMISTIC_LOCK_ERROR", "The record has been modified by another transaction")
	}
	return nil
}

// Delete deletes an invoice
func (r *GormInvoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.conn(ctx).Delete(&models.InvoiceModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Count counts invoices with optional filters
func (r *GormInvoiceRepository) Count(ctx context.Context, filter ledger.InvoiceFilter) (int64, error) {
	var count int64
	query := r.conn(ctx).Model(&models.InvoiceModel{})
	query = r.applyInvoiceFilterWithoutPagination(query, filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// SumOutstandingByCustomer calculates total outstanding amount for a customer
func (r *GormInvoiceRepository) SumOutstandingByCustomer(ctx context.Context, customerID uuid.UUID) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	if err := r.conn(ctx).
		Model(&models.InvoiceModel{}).
		Select("COALESCE(SUM(outstanding), 0) as total").
		Where("customer_id = ? AND status IN ?", customerID, openStatuses).
		Scan(&result).Error; err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}

// SumOverdue calculates total overdue amount as of the given date
func (r *GormInvoiceRepository) SumOverdue(ctx context.Context, asOf time.Time) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	if err := r.conn(ctx).
		Model(&models.InvoiceModel{}).
		Select("COALESCE(SUM(outstanding), 0) as total").
		Where("due_date < ? AND status IN ?", asOf, openStatuses).
		Scan(&result).Error; err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}

// ExistsByInvoiceNumber checks if an invoice number is already taken
func (r *GormInvoiceRepository) ExistsByInvoiceNumber(ctx context.Context, invoiceNumber string) (bool, error) {
	var count int64
	if err := r.conn(ctx).
		Model(&models.InvoiceModel{}).
		Where("invoice_number = ?", invoiceNumber).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListCustomerIDs returns the distinct customer IDs present in the ledger,
// ordered for stable batch iteration, optionally resuming after a cursor
func (r *GormInvoiceRepository) ListCustomerIDs(ctx context.Context, afterCustomerID *uuid.UUID, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	query := r.conn(ctx).
		Model(&models.InvoiceModel{}).
		Distinct("customer_id").
		Order("customer_id ASC")
	if afterCustomerID != nil {
		query = query.Where("customer_id > ?", *afterCustomerID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Pluck("customer_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// applyInvoiceFilter applies filter options to the query
func (r *GormInvoiceRepository) applyInvoiceFilter(query *gorm.DB, filter ledger.InvoiceFilter) *gorm.DB {
	query = r.applyInvoiceFilterWithoutPagination(query, filter)

	// Apply pagination
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	// Apply ordering
	if filter.OrderBy != "" {
		field := ValidateSortField(filter.OrderBy, InvoiceSortFields, "created_at")
		query = query.Order(field + " " + ValidateSortOrder(filter.OrderDir))
	} else {
		query = query.Order("created_at DESC")
	}

	return query
}

// applyInvoiceFilterWithoutPagination applies filter options without pagination
func (r *GormInvoiceRepository) applyInvoiceFilterWithoutPagination(query *gorm.DB, filter ledger.InvoiceFilter) *gorm.DB {
	// Apply search
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("invoice_number ILIKE ? OR customer_name ILIKE ?",
			searchPattern, searchPattern)
	}

	// Apply specific filters
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.FromDate != nil {
		query = query.Where("invoice_date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("invoice_date <= ?", *filter.ToDate)
	}
	if filter.DueFrom != nil {
		query = query.Where("due_date >= ?", *filter.DueFrom)
	}
	if filter.DueTo != nil {
		query = query.Where("due_date <= ?", *filter.DueTo)
	}
	if filter.Overdue != nil && *filter.Overdue {
		query = query.Where("due_date < ? AND status IN ?", time.Now(), openStatuses)
	}
	if filter.MinAmount != nil {
		query = query.Where("outstanding >= ?", *filter.MinAmount)
	}
	if filter.MaxAmount != nil {
		query = query.Where("outstanding <= ?", *filter.MaxAmount)
	}

	return query
}

// Ensure GormInvoiceRepository implements InvoiceRepository
var _ ledger.InvoiceRepository = (*GormInvoiceRepository)(nil)
