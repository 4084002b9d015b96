package ledger

import (
	"context"
	"encoding/json"
	"time"

	"github.com/debtflow/backend/internal/domain/ledger"
	"github.com/debtflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AnalyticsCache caches dashboard aggregates. Dashboard reads tolerate a
// short staleness window; invoice and receipt reads never go through it.
type AnalyticsCache interface {
	// Get returns the cached bytes for a key, or nil on a miss
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores bytes under a key with a TTL
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes a key
	Delete(ctx context.Context, key string) error
}

const (
	cacheKeySegmentSummary = "ledger:dashboard:segments"
	cacheKeyAgingSummary   = "ledger:dashboard:aging"
	dashboardCacheTTL      = 5 * time.Minute
)

// AnalyticsService serves the derived read-side views: interest breakdowns,
// profitability, credit utilization, payment scores, and the aging and
// segment dashboards. Every computation takes an explicit as-of date; the
// HTTP layer defaults it to today.
type AnalyticsService struct {
	invoiceRepo ledger.InvoiceRepository
	profileRepo ledger.CreditProfileRepository
	scoreRepo   ledger.PaymentScoreRepository
	calculator  *ledger.InterestCalculator
	resolver    *ledger.ProfitabilityResolver
	cache       AnalyticsCache
	logger      *zap.Logger
}

// AnalyticsServiceOption is a functional option for configuring AnalyticsService
type AnalyticsServiceOption func(*AnalyticsService)

// WithAnalyticsLogger sets the logger
func WithAnalyticsLogger(logger *zap.Logger) AnalyticsServiceOption {
	return func(s *AnalyticsService) {
		s.logger = logger
	}
}

// WithAnalyticsCache sets the dashboard cache
func WithAnalyticsCache(cache AnalyticsCache) AnalyticsServiceOption {
	return func(s *AnalyticsService) {
		s.cache = cache
	}
}

// WithInterestCalculator injects a custom interest calculator (combine policy)
func WithInterestCalculator(calc *ledger.InterestCalculator) AnalyticsServiceOption {
	return func(s *AnalyticsService) {
		s.calculator = calc
		s.resolver = ledger.NewProfitabilityResolver(calc)
	}
}

// NewAnalyticsService creates a new AnalyticsService
func NewAnalyticsService(
	invoiceRepo ledger.InvoiceRepository,
	profileRepo ledger.CreditProfileRepository,
	scoreRepo ledger.PaymentScoreRepository,
	opts ...AnalyticsServiceOption,
) *AnalyticsService {
	calc := ledger.NewInterestCalculator()
	s := &AnalyticsService{
		invoiceRepo: invoiceRepo,
		profileRepo: profileRepo,
		scoreRepo:   scoreRepo,
		calculator:  calc,
		resolver:    ledger.NewProfitabilityResolver(calc),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetInvoiceInterest computes the interest breakdown for an invoice
func (s *AnalyticsService) GetInvoiceInterest(ctx context.Context, invoiceID uuid.UUID, asOf time.Time) (*ledger.InterestBreakdown, error) {
	inv, err := s.loadInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	return s.calculator.ComputeInterest(inv, asOf)
}

// GetInvoiceProfitability computes the profitability view for an invoice
func (s *AnalyticsService) GetInvoiceProfitability(ctx context.Context, invoiceID uuid.UUID, asOf time.Time) (*ledger.Profitability, error) {
	inv, err := s.loadInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	return s.resolver.ResolveAsOf(inv, asOf)
}

// GetCustomerInterest aggregates interest across a customer's ledger,
// including the opening-balance term when the customer has one
func (s *AnalyticsService) GetCustomerInterest(ctx context.Context, customerID uuid.UUID, asOf time.Time) (*ledger.CustomerInterestSummary, error) {
	invoices, err := s.loadCustomerInvoices(ctx, customerID)
	if err != nil {
		return nil, err
	}
	profile, err := s.profileRepo.FindByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return s.calculator.ComputeCustomerInterest(customerID, invoices, profile, asOf)
}

// GetCustomerUtilization computes the credit utilization view for a customer
func (s *AnalyticsService) GetCustomerUtilization(ctx context.Context, customerID uuid.UUID) (*ledger.Utilization, error) {
	profile, err := s.profileRepo.FindByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Credit profile not found")
	}
	invoices, err := s.loadCustomerInvoices(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return ledger.ComputeUtilization(profile, invoices)
}

// GetCustomerScore returns the customer's last computed payment score record
func (s *AnalyticsService) GetCustomerScore(ctx context.Context, customerID uuid.UUID) (*ledger.PaymentScoreRecord, error) {
	record, err := s.scoreRepo.FindByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Payment score not calculated yet")
	}
	return record, nil
}

// AgingBucket is one band of the receivables aging summary
type AgingBucket struct {
	Label        string          `json:"label"`
	Outstanding  decimal.Decimal `json:"outstanding"`
	InvoiceCount int             `json:"invoice_count"`
}

// AgingSummary is the receivables aging view: outstanding balances grouped by
// how long they are past due as of a given date
type AgingSummary struct {
	AsOf             time.Time       `json:"as_of"`
	Current          AgingBucket     `json:"current"`
	Days1To30        AgingBucket     `json:"days_1_to_30"`
	Days31To60       AgingBucket     `json:"days_31_to_60"`
	Days61To90       AgingBucket     `json:"days_61_to_90"`
	DaysOver90       AgingBucket     `json:"days_over_90"`
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
}

// GetAgingSummary buckets every open invoice by days past due
func (s *AnalyticsService) GetAgingSummary(ctx context.Context, asOf time.Time) (*AgingSummary, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKeyAgingSummary); err == nil && data != nil {
			var cached AgingSummary
			if json.Unmarshal(data, &cached) == nil && cached.AsOf.Equal(asOf) {
				return &cached, nil
			}
		}
	}

	unpaid := ledger.InvoiceStatusUnpaid
	open, err := s.invoiceRepo.FindAll(ctx, ledger.InvoiceFilter{Status: &unpaid})
	if err != nil {
		return nil, err
	}
	partial := ledger.InvoiceStatusPartial
	partials, err := s.invoiceRepo.FindAll(ctx, ledger.InvoiceFilter{Status: &partial})
	if err != nil {
		return nil, err
	}
	open = append(open, partials...)

	summary := &AgingSummary{
		AsOf:             asOf,
		Current:          AgingBucket{Label: "current"},
		Days1To30:        AgingBucket{Label: "1-30"},
		Days31To60:       AgingBucket{Label: "31-60"},
		Days61To90:       AgingBucket{Label: "61-90"},
		DaysOver90:       AgingBucket{Label: "90+"},
		TotalOutstanding: decimal.Zero,
	}

	for i := range open {
		inv := &open[i]
		if inv.Outstanding.LessThanOrEqual(decimal.Zero) {
			continue
		}
		bucket := &summary.Current
		switch days := inv.DaysOverdue(asOf); {
		case days == 0:
		case days <= 30:
			bucket = &summary.Days1To30
		case days <= 60:
			bucket = &summary.Days31To60
		case days <= 90:
			bucket = &summary.Days61To90
		default:
			bucket = &summary.DaysOver90
		}
		bucket.Outstanding = bucket.Outstanding.Add(inv.Outstanding)
		bucket.InvoiceCount++
		summary.TotalOutstanding = summary.TotalOutstanding.Add(inv.Outstanding)
	}

	s.cacheSet(ctx, cacheKeyAgingSummary, summary)
	return summary, nil
}

// SegmentSummary is the payment-behavior dashboard: customer counts per
// classification bucket
type SegmentSummary struct {
	Segments map[ledger.PaymentClassification]int64 `json:"segments"`
	Total    int64                                  `json:"total"`
}

// GetSegmentSummary returns customer counts per payment-behavior segment.
// Customers without payment history have no score record and are excluded.
func (s *AnalyticsService) GetSegmentSummary(ctx context.Context) (*SegmentSummary, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKeySegmentSummary); err == nil && data != nil {
			var cached SegmentSummary
			if json.Unmarshal(data, &cached) == nil {
				return &cached, nil
			}
		}
	}

	counts, err := s.scoreRepo.CountByClassification(ctx)
	if err != nil {
		return nil, err
	}

	summary := &SegmentSummary{Segments: make(map[ledger.PaymentClassification]int64)}
	for _, c := range ledger.AllPaymentClassifications() {
		summary.Segments[c] = counts[c]
		summary.Total += counts[c]
	}

	s.cacheSet(ctx, cacheKeySegmentSummary, summary)
	return summary, nil
}

// ListSegmentCustomers lists the score records in one segment
func (s *AnalyticsService) ListSegmentCustomers(ctx context.Context, classification ledger.PaymentClassification, page, pageSize int) ([]ledger.PaymentScoreRecord, error) {
	if !classification.IsValid() {
		return nil, shared.NewDomainError("INVALID_SEGMENT", "Unknown payment classification")
	}
	filter := ledger.PaymentScoreFilter{}
	filter.Page = page
	filter.PageSize = pageSize
	return s.scoreRepo.FindByClassification(ctx, classification, filter)
}

// InvalidateDashboards drops the cached dashboard aggregates. Called after
// batch recalculation so the next dashboard read is fresh.
func (s *AnalyticsService) InvalidateDashboards(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cacheKeySegmentSummary); err != nil {
		s.logger.Warn("failed to invalidate segment cache", zap.Error(err))
	}
	if err := s.cache.Delete(ctx, cacheKeyAgingSummary); err != nil {
		s.logger.Warn("failed to invalidate aging cache", zap.Error(err))
	}
}

func (s *AnalyticsService) cacheSet(ctx context.Context, key string, v any) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, dashboardCacheTTL); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *AnalyticsService) loadInvoice(ctx context.Context, id uuid.UUID) (*ledger.Invoice, error) {
	inv, err := s.invoiceRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Invoice not found")
	}
	return inv, nil
}

func (s *AnalyticsService) loadCustomerInvoices(ctx context.Context, customerID uuid.UUID) ([]*ledger.Invoice, error) {
	invoices, err := s.invoiceRepo.FindByCustomer(ctx, customerID, ledger.InvoiceFilter{})
	if err != nil {
		return nil, err
	}
	out := make([]*ledger.Invoice, 0, len(invoices))
	for i := range invoices {
		out = append(out, &invoices[i])
	}
	return out, nil
}
