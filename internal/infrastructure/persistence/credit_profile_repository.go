package persistence

import (
	"context"
	"errors"

	"github.com/debtflow/backend/internal/domain/ledger"
	"github.com/debtflow/backend/internal/domain/shared"
	"github.com/debtflow/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCreditProfileRepository implements CreditProfileRepository using GORM
type GormCreditProfileRepository struct {
	db *gorm.DB
}

// NewGormCreditProfileRepository creates a new GormCreditProfileRepository
func NewGormCreditProfileRepository(db *gorm.DB) *GormCreditProfileRepository {
	return &GormCreditProfileRepository{db: db}
}

// FindByID finds a credit profile by its ID. Returns nil without error when
// the profile does not exist; callers translate that to a not-found error.
func (r *GormCreditProfileRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.CustomerCreditProfile, error) {
	var model models.CreditProfileModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByCustomer finds the credit profile for a customer
func (r *GormCreditProfileRepository) FindByCustomer(ctx context.Context, customerID uuid.UUID) (*ledger.CustomerCreditProfile, error) {
	var model models.CreditProfileModel
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

// FindByCategory finds credit profiles in a category
func (r *GormCreditProfileRepository) FindByCategory(ctx context.Context, category ledger.CustomerCategory, filter shared.Filter) ([]ledger.CustomerCreditProfile, error) {
	var profileModels []models.CreditProfileModel
	query := r.db.WithContext(ctx).Model(&models.CreditProfileModel{}).
		Where("category = ?", category)
	query = r.applyProfileFilter(query, filter)

	if err := query.Find(&profileModels).Error; err != nil {
		return nil, err
	}
	profiles := make([]ledger.CustomerCreditProfile, len(profileModels))
	for i, model := range profileModels {
		profiles[i] = *model.ToDomain()
	}
	return profiles, nil
}

// FindAll finds credit profiles with filtering
func (r *GormCreditProfileRepository) FindAll(ctx context.Context, filter shared.Filter) ([]ledger.CustomerCreditProfile, error) {
	var profileModels []models.CreditProfileModel
	query := r.db.WithContext(ctx).Model(&models.CreditProfileModel{})
	query = r.applyProfileFilter(query, filter)

	if err := query.Find(&profileModels).Error; err != nil {
		return nil, err
	}
	profiles := make([]ledger.CustomerCreditProfile, len(profileModels))
	for i, model := range profileModels {
		profiles[i] = *model.ToDomain()
	}
	return profiles, nil
}

// Save creates or updates a credit profile
func (r *GormCreditProfileRepository) Save(ctx context.Context, profile *ledger.CustomerCreditProfile) error {
	model := models.CreditProfileModelFromDomain(profile)
	return r.db.WithContext(ctx).Save(model).Error
}

// Delete deletes a credit profile
func (r *GormCreditProfileRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.CreditProfileModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Count counts credit profiles
func (r *GormCreditProfileRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.CreditProfileModel{})
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("customer_name ILIKE ?", searchPattern)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyProfileFilter applies filter options to the query
func (r *GormCreditProfileRepository) applyProfileFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("customer_name ILIKE ?", searchPattern)
	}

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		field := ValidateSortField(filter.OrderBy, CreditProfileSortFields, "customer_name")
		query = query.Order(field + " " + ValidateSortOrder(filter.OrderDir))
	} else {
		query = query.Order("customer_name ASC")
	}

	return query
}

// Ensure GormCreditProfileRepository implements CreditProfileRepository
var _ ledger.CreditProfileRepository = (*GormCreditProfileRepository)(nil)
