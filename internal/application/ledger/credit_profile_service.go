package ledger

import (
	"context"
	"time"

	"github.com/debtflow/backend/internal/domain/ledger"
	"github.com/debtflow/backend/internal/domain/shared"
	"github.com/debtflow/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreditProfileService manages customer credit terms: limits, opening
// balances and the interest policy the analytics views read from.
type CreditProfileService struct {
	profileRepo ledger.CreditProfileRepository
	logger      *zap.Logger
}

// CreditProfileServiceOption is a functional option for configuring CreditProfileService
type CreditProfileServiceOption func(*CreditProfileService)

// WithCreditProfileLogger sets the logger
func WithCreditProfileLogger(logger *zap.Logger) CreditProfileServiceOption {
	return func(s *CreditProfileService) {
		s.logger = logger
	}
}

// NewCreditProfileService creates a new CreditProfileService
func NewCreditProfileService(profileRepo ledger.CreditProfileRepository, opts ...CreditProfileServiceOption) *CreditProfileService {
	s := &CreditProfileService{
		profileRepo: profileRepo,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreditProfileResponse represents a credit profile in API responses
type CreditProfileResponse struct {
	ID                     uuid.UUID       `json:"id"`
	CustomerID             uuid.UUID       `json:"customer_id"`
	CustomerName           string          `json:"customer_name"`
	Category               string          `json:"category"`
	CreditLimit            decimal.Decimal `json:"credit_limit"`
	CategoryOpeningBalance decimal.Decimal `json:"category_opening_balance"`
	CustomerOpeningBalance decimal.Decimal `json:"customer_opening_balance"`
	InterestRatePct        decimal.Decimal `json:"interest_rate_pct"`
	InterestAnchorDate     *time.Time      `json:"interest_anchor_date,omitempty"`
	CreatedAt              time.Time       `json:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at"`
	Version                int             `json:"version"`
}

func toCreditProfileResponse(p *ledger.CustomerCreditProfile) *CreditProfileResponse {
	return &CreditProfileResponse{
		ID:                     p.ID,
		CustomerID:             p.CustomerID,
		CustomerName:           p.CustomerName,
		Category:               p.Category.String(),
		CreditLimit:            p.CreditLimit,
		CategoryOpeningBalance: p.CategoryOpeningBalance,
		CustomerOpeningBalance: p.CustomerOpeningBalance,
		InterestRatePct:        p.InterestRatePct,
		InterestAnchorDate:     p.InterestAnchorDate,
		CreatedAt:              p.CreatedAt,
		UpdatedAt:              p.UpdatedAt,
		Version:                p.Version,
	}
}

// CreateCreditProfileRequest represents a request to create a credit profile
type CreateCreditProfileRequest struct {
	CustomerID             uuid.UUID       `json:"customer_id" binding:"required"`
	CustomerName           string          `json:"customer_name" binding:"required,max=200"`
	Category               string          `json:"category" binding:"required"`
	CreditLimit            decimal.Decimal `json:"credit_limit"`
	CategoryOpeningBalance decimal.Decimal `json:"category_opening_balance"`
	CustomerOpeningBalance decimal.Decimal `json:"customer_opening_balance"`
	InterestRatePct        decimal.Decimal `json:"interest_rate_pct"`
	InterestAnchorDate     *time.Time      `json:"interest_anchor_date"`
}

// CreateProfile creates the credit profile for a customer. One profile per
// customer; a second create is rejected.
func (s *CreditProfileService) CreateProfile(ctx context.Context, req CreateCreditProfileRequest) (*CreditProfileResponse, error) {
	existing, err := s.profileRepo.FindByCustomer(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Customer already has a credit profile")
	}

	profile, err := ledger.NewCustomerCreditProfile(
		req.CustomerID,
		req.CustomerName,
		ledger.CustomerCategory(req.Category),
		valueobject.NewMoneyFromDecimal(req.CreditLimit),
	)
	if err != nil {
		return nil, err
	}

	hasOpeningBalances := req.CategoryOpeningBalance.GreaterThan(decimal.Zero) ||
		req.CustomerOpeningBalance.GreaterThan(decimal.Zero)
	if hasOpeningBalances {
		if err := profile.SetOpeningBalances(
			valueobject.NewMoneyFromDecimal(req.CategoryOpeningBalance),
			valueobject.NewMoneyFromDecimal(req.CustomerOpeningBalance),
		); err != nil {
			return nil, err
		}
	}
	if req.InterestRatePct.GreaterThan(decimal.Zero) || req.InterestAnchorDate != nil {
		if err := profile.SetInterestPolicy(req.InterestRatePct, req.InterestAnchorDate); err != nil {
			return nil, err
		}
	}

	if err := s.profileRepo.Save(ctx, profile); err != nil {
		return nil, err
	}

	s.logger.Info("credit profile created",
		zap.String("customer_id", profile.CustomerID.String()),
		zap.String("category", profile.Category.String()))

	return toCreditProfileResponse(profile), nil
}

// GetProfile gets a credit profile by its ID
func (s *CreditProfileService) GetProfile(ctx context.Context, id uuid.UUID) (*CreditProfileResponse, error) {
	profile, err := s.profileRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Credit profile not found")
	}
	return toCreditProfileResponse(profile), nil
}

// GetProfileByCustomer gets the credit profile for a customer
func (s *CreditProfileService) GetProfileByCustomer(ctx context.Context, customerID uuid.UUID) (*CreditProfileResponse, error) {
	profile, err := s.profileRepo.FindByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Credit profile not found")
	}
	return toCreditProfileResponse(profile), nil
}

// CreditProfileListFilter defines filtering options for profile list queries
type CreditProfileListFilter struct {
	Category string `form:"category"`
	Search   string `form:"search"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// ListProfiles lists credit profiles with filtering
func (s *CreditProfileService) ListProfiles(ctx context.Context, filter CreditProfileListFilter) ([]CreditProfileResponse, int64, error) {
	sharedFilter := shared.Filter{
		Search:   filter.Search,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}

	var (
		profiles []ledger.CustomerCreditProfile
		err      error
	)
	if filter.Category != "" {
		category := ledger.CustomerCategory(filter.Category)
		if !category.IsValid() {
			return nil, 0, shared.NewDomainError("INVALID_CATEGORY", "Unknown customer category")
		}
		profiles, err = s.profileRepo.FindByCategory(ctx, category, sharedFilter)
	} else {
		profiles, err = s.profileRepo.FindAll(ctx, sharedFilter)
	}
	if err != nil {
		return nil, 0, err
	}

	total, err := s.profileRepo.Count(ctx, sharedFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]CreditProfileResponse, 0, len(profiles))
	for i := range profiles {
		responses = append(responses, *toCreditProfileResponse(&profiles[i]))
	}
	return responses, total, nil
}

// UpdateCreditProfileRequest represents a request to update a credit profile.
// Nil fields are left unchanged.
type UpdateCreditProfileRequest struct {
	Category               *string          `json:"category"`
	CreditLimit            *decimal.Decimal `json:"credit_limit"`
	CategoryOpeningBalance *decimal.Decimal `json:"category_opening_balance"`
	CustomerOpeningBalance *decimal.Decimal `json:"customer_opening_balance"`
	InterestRatePct        *decimal.Decimal `json:"interest_rate_pct"`
	InterestAnchorDate     *time.Time       `json:"interest_anchor_date"`
}

// UpdateProfile updates a credit profile's terms. Utilization and interest
// views are derived on read, so the new terms take effect immediately.
func (s *CreditProfileService) UpdateProfile(ctx context.Context, id uuid.UUID, req UpdateCreditProfileRequest) (*CreditProfileResponse, error) {
	profile, err := s.profileRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Credit profile not found")
	}

	if req.Category != nil {
		if err := profile.SetCategory(ledger.CustomerCategory(*req.Category)); err != nil {
			return nil, err
		}
	}
	if req.CreditLimit != nil {
		if err := profile.SetCreditLimit(valueobject.NewMoneyFromDecimal(*req.CreditLimit)); err != nil {
			return nil, err
		}
	}
	if req.CategoryOpeningBalance != nil || req.CustomerOpeningBalance != nil {
		categoryBalance := profile.CategoryOpeningBalance
		customerBalance := profile.CustomerOpeningBalance
		if req.CategoryOpeningBalance != nil {
			categoryBalance = *req.CategoryOpeningBalance
		}
		if req.CustomerOpeningBalance != nil {
			customerBalance = *req.CustomerOpeningBalance
		}
		if err := profile.SetOpeningBalances(
			valueobject.NewMoneyFromDecimal(categoryBalance),
			valueobject.NewMoneyFromDecimal(customerBalance),
		); err != nil {
			return nil, err
		}
	}
	if req.InterestRatePct != nil || req.InterestAnchorDate != nil {
		rate := profile.InterestRatePct
		if req.InterestRatePct != nil {
			rate = *req.InterestRatePct
		}
		anchor := profile.InterestAnchorDate
		if req.InterestAnchorDate != nil {
			anchor = req.InterestAnchorDate
		}
		if err := profile.SetInterestPolicy(rate, anchor); err != nil {
			return nil, err
		}
	}

	if err := s.profileRepo.Save(ctx, profile); err != nil {
		return nil, err
	}
	return toCreditProfileResponse(profile), nil
}

// DeleteProfile deletes a credit profile
func (s *CreditProfileService) DeleteProfile(ctx context.Context, id uuid.UUID) error {
	profile, err := s.profileRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if profile == nil {
		return shared.NewDomainError("NOT_FOUND", "Credit profile not found")
	}
	return s.profileRepo.Delete(ctx, id)
}
