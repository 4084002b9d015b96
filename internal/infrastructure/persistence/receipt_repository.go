package persistence

import (
	"context"
	"errors"

	"github.com/debtflow/backend/internal/domain/ledger"
	"github.com/debtflow/backend/internal/domain/shared"
	"github.com/debtflow/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormReceiptRepository implements ReceiptRepository using GORM
type GormReceiptRepository struct {
	db *gorm.DB
}

// NewGormReceiptRepository creates a new GormReceiptRepository
func NewGormReceiptRepository(db *gorm.DB) *GormReceiptRepository {
	return &GormReceiptRepository{db: db}
}

// conn returns the transaction bound to ctx when inside an InTransaction
// block, the base connection otherwise
func (r *GormReceiptRepository) conn(ctx context.Context) *gorm.DB {
	if tx := txFromContext(ctx); tx != nil {
		return tx.WithContext(ctx)
	}
	return r.db.WithContext(ctx)
}

// FindByID finds a receipt by its ID. Returns nil without error when the
// receipt does not exist; callers translate that to a not-found error.
func (r *GormReceiptRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Receipt, error) {
	var model models.ReceiptModel
	if err := r.conn(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByReceiptNumber finds a receipt by its number
func (r *GormReceiptRepository) FindByReceiptNumber(ctx context.Context, receiptNumber string) (*ledger.Receipt, error) {
	var model models.ReceiptModel
	if err := r.conn(ctx).
		Where("receipt_number = ?", receiptNumber).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds receipts with filtering
func (r *GormReceiptRepository) FindAll(ctx context.Context, filter ledger.ReceiptFilter) ([]ledger.Receipt, error) {
	var receiptModels []models.ReceiptModel
	query := r.conn(ctx).Model(&models.ReceiptModel{})
	query = r.applyReceiptFilter(query, filter)

	if err := query.Find(&receiptModels).Error; err != nil {
		return nil, err
	}
	receipts := make([]ledger.Receipt, len(receiptModels))
	for i, model := range receiptModels {
		receipts[i] = *model.ToDomain()
	}
	return receipts, nil
}

// FindByCustomer finds receipts for a customer
func (r *GormReceiptRepository) FindByCustomer(ctx context.Context, customerID uuid.UUID, filter ledger.ReceiptFilter) ([]ledger.Receipt, error) {
	var receiptModels []models.ReceiptModel
	query := r.conn(ctx).Model(&models.ReceiptModel{}).
		Where("customer_id = ?", customerID)
	query = r.applyReceiptFilter(query, filter)

	if err := query.Find(&receiptModels).Error; err != nil {
		return nil, err
	}
	receipts := make([]ledger.Receipt, len(receiptModels))
	for i, model := range receiptModels {
		receipts[i] = *model.ToDomain()
	}
	return receipts, nil
}

// FindUnallocated finds receipts carrying an unallocated balance
func (r *GormReceiptRepository) FindUnallocated(ctx context.Context, filter ledger.ReceiptFilter) ([]ledger.Receipt, error) {
	var receiptModels []models.ReceiptModel
	query := r.conn(ctx).Model(&models.ReceiptModel{}).
		Where("unallocated_amount > 0")
	query = r.applyReceiptFilter(query, filter)

	if err := query.Find(&receiptModels).Error; err != nil {
		return nil, err
	}
	receipts := make([]ledger.Receipt, len(receiptModels))
	for i, model := range receiptModels {
		receipts[i] = *model.ToDomain()
	}
	return receipts, nil
}

// Save creates or updates a receipt
func (r *GormReceiptRepository) Save(ctx context.Context, receipt *ledger.Receipt) error {
	model := models.ReceiptModelFromDomain(receipt)
	return r.conn(ctx).Save(model).Error
}

// SaveWithLock saves with optimistic locking. The update selects every
// column: a struct-based Updates would skip zero-valued fields, silently
// keeping a cleared invoice_id or remark at its old value.
func (r *GormReceiptRepository) SaveWithLock(ctx context.Context, receipt *ledger.Receipt) error {
	model := models.ReceiptModelFromDomain(receipt)
	result := r.conn(ctx).
		Model(model).
		Where("id = ? AND version = ?", receipt.ID, receipt.Version-1).
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

// Delete deletes a receipt
func (r *GormReceiptRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.conn(ctx).Delete(&models.ReceiptModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Count counts receipts with optional filters
func (r *GormReceiptRepository) Count(ctx context.Context, filter ledger.ReceiptFilter) (int64, error) {
	var count int64
	query := r.conn(ctx).Model(&models.ReceiptModel{})
	query = r.applyReceiptFilterWithoutPagination(query, filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// SumUnallocated calculates the total unallocated amount across receipts
func (r *GormReceiptRepository) SumUnallocated(ctx context.Context) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	if err := r.conn(ctx).
		Model(&models.ReceiptModel{}).
		Select("COALESCE(SUM(unallocated_amount), 0) as total").
		Scan(&result).Error; err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}

// ExistsByReceiptNumber checks if a receipt number is already taken
func (r *GormReceiptRepository) ExistsByReceiptNumber(ctx context.Context, receiptNumber string) (bool, error) {
	var count int64
	if err := r.conn(ctx).
		Model(&models.ReceiptModel{}).
		Where("receipt_number = ?", receiptNumber).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyReceiptFilter applies filter options to the query
func (r *GormReceiptRepository) applyReceiptFilter(query *gorm.DB, filter ledger.ReceiptFilter) *gorm.DB {
	query = r.applyReceiptFilterWithoutPagination(query, filter)

	// Apply pagination
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	// Apply ordering
	if filter.OrderBy != "" {
		field := ValidateSortField(filter.OrderBy, ReceiptSortFields, "payment_date")
		query = query.Order(field + " " + ValidateSortOrder(filter.OrderDir))
	} else {
		query = query.Order("payment_date DESC, created_at DESC")
	}

	return query
}

// applyReceiptFilterWithoutPagination applies filter options without pagination
func (r *GormReceiptRepository) applyReceiptFilterWithoutPagination(query *gorm.DB, filter ledger.ReceiptFilter) *gorm.DB {
	// Apply search
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("receipt_number ILIKE ? OR customer_name ILIKE ? OR payment_reference ILIKE ?",
			searchPattern, searchPattern, searchPattern)
	}

	// Apply specific filters
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.InvoiceID != nil {
		query = query.Where("invoice_id = ?", *filter.InvoiceID)
	}
	if filter.PaymentMethod != nil {
		query = query.Where("payment_method = ?", *filter.PaymentMethod)
	}
	if filter.FromDate != nil {
		query = query.Where("payment_date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("payment_date <= ?", *filter.ToDate)
	}
	if filter.Unallocated != nil && *filter.Unallocated {
		query = query.Where("unallocated_amount > 0")
	}
	if filter.MinAmount != nil {
		query = query.Where("amount >= ?", *filter.MinAmount)
	}
	if filter.MaxAmount != nil {
		query = query.Where("amount <= ?", *filter.MaxAmount)
	}

	return query
}

// Ensure GormReceiptRepository implements ReceiptRepository
var _ ledger.ReceiptRepository = (*GormReceiptRepository)(nil)
