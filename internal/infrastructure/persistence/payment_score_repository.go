package persistence

import (
	"context"
	"errors"

	"github.com/debtflow/backend/internal/domain/ledger"
	"github.com/debtflow/backend/internal/domain/shared"
	"github.com/debtflow/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPaymentScoreRepository implements PaymentScoreRepository using GORM
type GormPaymentScoreRepository struct {
	db *gorm.DB
}

// NewGormPaymentScoreRepository creates a new GormPaymentScoreRepository
func NewGormPaymentScoreRepository(db *gorm.DB) *GormPaymentScoreRepository {
	return &GormPaymentScoreRepository{db: db}
}

// FindByID finds a payment score record by its ID. Returns nil without error
// when the record does not exist; callers translate that to a not-found error.
func (r *GormPaymentScoreRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.PaymentScoreRecord, error) {
	var model models.PaymentScoreModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByCustomer finds the payment score record for a customer
func (r *GormPaymentScoreRepository) FindByCustomer(ctx context.Context, customerID uuid.UUID) (*ledger.PaymentScoreRecord, error) {
	var model models.PaymentScoreModel
	if err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds payment score records with filtering
func (r *GormPaymentScoreRepository) FindAll(ctx context.Context, filter ledger.PaymentScoreFilter) ([]ledger.PaymentScoreRecord, error) {
	var scoreModels []models.PaymentScoreModel
	query := r.db.WithContext(ctx).Model(&models.PaymentScoreModel{})
	query = r.applyScoreFilter(query, filter)

	if err := query.Find(&scoreModels).Error; err != nil {
		return nil, err
	}
	records := make([]ledger.PaymentScoreRecord, len(scoreModels))
	for i, model := range scoreModels {
		records[i] = *model.ToDomain()
	}
	return records, nil
}

// FindByClassification finds records in a segment
func (r *GormPaymentScoreRepository) FindByClassification(ctx context.Context, classification ledger.PaymentClassification, filter ledger.PaymentScoreFilter) ([]ledger.PaymentScoreRecord, error) {
	var scoreModels []models.PaymentScoreModel
	query := r.db.WithContext(ctx).Model(&models.PaymentScoreModel{}).
		Where("classification = ?", classification)
	query = r.applyScoreFilter(query, filter)

	if err := query.Find(&scoreModels).Error; err != nil {
		return nil, err
	}
	records := make([]ledger.PaymentScoreRecord, len(scoreModels))
	for i, model := range scoreModels {
		records[i] = *model.ToDomain()
	}
	return records, nil
}

// Upsert replaces the customer's record atomically, keyed by customer ID
func (r *GormPaymentScoreRepository) Upsert(ctx context.Context, record *ledger.PaymentScoreRecord) error {
	model := models.PaymentScoreModelFromDomain(record)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "customer_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"customer_name", "on_time_rate", "avg_delay_days", "payment_score",
				"classification", "payment_count", "on_time_count",
				"last_calculated_at", "updated_at", "version",
			}),
		}).
		Create(model).Error
}

// Delete deletes a payment score record
func (r *GormPaymentScoreRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.PaymentScoreModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteByCustomer removes the record for a customer. Deleting an absent
// record is not an error; stale-score cleanup runs unconditionally.
func (r *GormPaymentScoreRepository) DeleteByCustomer(ctx context.Context, customerID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&models.PaymentScoreModel{}, "customer_id = ?", customerID).Error
}

// Count counts payment score records
func (r *GormPaymentScoreRepository) Count(ctx context.Context, filter ledger.PaymentScoreFilter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.PaymentScoreModel{})
	query = r.applyScoreFilterWithoutPagination(query, filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByClassification counts records per segment
func (r *GormPaymentScoreRepository) CountByClassification(ctx context.Context) (map[ledger.PaymentClassification]int64, error) {
	var rows []struct {
		Classification ledger.PaymentClassification
		Total          int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.PaymentScoreModel{}).
		Select("classification, COUNT(*) as total").
		Group("classification").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[ledger.PaymentClassification]int64, len(rows))
	for _, row := range rows {
		counts[row.Classification] = row.Total
	}
	return counts, nil
}

// applyScoreFilter applies filter options to the query
func (r *GormPaymentScoreRepository) applyScoreFilter(query *gorm.DB, filter ledger.PaymentScoreFilter) *gorm.DB {
	query = r.applyScoreFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		field := ValidateSortField(filter.OrderBy, PaymentScoreSortFields, "payment_score")
		query = query.Order(field + " " + ValidateSortOrder(filter.OrderDir))
	} else {
		query = query.Order("payment_score DESC")
	}

	return query
}

// applyScoreFilterWithoutPagination applies filter options without pagination
func (r *GormPaymentScoreRepository) applyScoreFilterWithoutPagination(query *gorm.DB, filter ledger.PaymentScoreFilter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("customer_name ILIKE ?", searchPattern)
	}

	if filter.Classification != nil {
		query = query.Where("classification = ?", *filter.Classification)
	}
	if filter.MinScore != nil {
		query = query.Where("payment_score >= ?", *filter.MinScore)
	}
	if filter.MaxScore != nil {
		query = query.Where("payment_score <= ?", *filter.MaxScore)
	}

	return query
}

// Ensure GormPaymentScoreRepository implements PaymentScoreRepository
var _ ledger.PaymentScoreRepository = (*GormPaymentScoreRepository)(nil)
