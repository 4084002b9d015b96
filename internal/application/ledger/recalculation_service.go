package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/debtflow/backend/internal/domain/ledger"
	"github.com/debtflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultRecalcBatchSize = 200

// RecalculationService recomputes payment-behavior scores: per customer when
// their ledger changes, or across the whole customer base on demand. The
// batch run commits one customer at a time, checkpoints its position, skips
// customers whose data cannot be scored, and stops cleanly on cancellation.
type RecalculationService struct {
	invoiceRepo ledger.InvoiceRepository
	scoreRepo   ledger.PaymentScoreRepository
	classifier  *ledger.BehaviorClassifier
	locks       *CustomerLockRegistry
	batchSize   int
	logger      *zap.Logger
}

// RecalculationServiceOption is a functional option for the service
type RecalculationServiceOption func(*RecalculationService)

// WithRecalcLogger sets the logger
func WithRecalcLogger(logger *zap.Logger) RecalculationServiceOption {
	return func(s *RecalculationService) {
		s.logger = logger
	}
}

// WithRecalcBatchSize sets how many customer IDs are fetched per page
func WithRecalcBatchSize(size int) RecalculationServiceOption {
	return func(s *RecalculationService) {
		if size > 0 {
			s.batchSize = size
		}
	}
}

// WithRecalcLockRegistry shares the per-customer lock registry with the
// ledger service, so a recalculation never reads a ledger mid-edit
func WithRecalcLockRegistry(locks *CustomerLockRegistry) RecalculationServiceOption {
	return func(s *RecalculationService) {
		s.locks = locks
	}
}

// NewRecalculationService creates a new RecalculationService
func NewRecalculationService(
	invoiceRepo ledger.InvoiceRepository,
	scoreRepo ledger.PaymentScoreRepository,
	classifier *ledger.BehaviorClassifier,
	opts ...RecalculationServiceOption,
) *RecalculationService {
	s := &RecalculationService{
		invoiceRepo: invoiceRepo,
		scoreRepo:   scoreRepo,
		classifier:  classifier,
		locks:       NewCustomerLockRegistry(),
		batchSize:   defaultRecalcBatchSize,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecalculateCustomer recomputes one customer's payment score from their
// current ledger and replaces the stored record atomically
func (s *RecalculationService) RecalculateCustomer(ctx context.Context, customerID uuid.UUID, asOf time.Time) (*ledger.PaymentScoreRecord, error) {
	unlock := s.locks.Lock(customerID)
	defer unlock()
	return s.recalculateLocked(ctx, customerID, asOf)
}

func (s *RecalculationService) recalculateLocked(ctx context.Context, customerID uuid.UUID, asOf time.Time) (*ledger.PaymentScoreRecord, error) {
	invoices, err := s.invoiceRepo.FindByCustomer(ctx, customerID, ledger.InvoiceFilter{})
	if err != nil {
		return nil, err
	}

	refs := make([]*ledger.Invoice, 0, len(invoices))
	customerName := ""
	for i := range invoices {
		refs = append(refs, &invoices[i])
		customerName = invoices[i].CustomerName
	}
	history := ledger.PaymentHistoryFromInvoices(refs)

	record, err := s.classifier.Classify(customerID, customerName, history, asOf)
	if err != nil {
		if errors.Is(err, ledger.ErrNoPaymentHistory) {
			// No payments yet: drop any stale record so the customer is
			// excluded from segment dashboards
			if delErr := s.scoreRepo.DeleteByCustomer(ctx, customerID); delErr != nil {
				return nil, delErr
			}
			return nil, err
		}
		return nil, err
	}

	existing, err := s.scoreRepo.FindByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		existing.CustomerName = record.CustomerName
		existing.ApplyScore(record.OnTimeRate, record.AvgDelayDays, record.PaymentScore,
			record.Classification, record.PaymentCount, record.OnTimeCount, record.LastCalculatedAt)
		record = existing
	}

	if err := s.scoreRepo.Upsert(ctx, record); err != nil {
		return nil, err
	}

	s.logger.Debug("payment score recalculated",
		zap.String("customer_id", customerID.String()),
		zap.String("classification", record.Classification.String()),
		zap.String("score", record.PaymentScore.String()))

	return record, nil
}

// RecalculationSummary reports the outcome of a batch run. Processed counts
// customers whose record was replaced; Skipped lists customers left
// untouched (no history, or data that could not be scored). When the run is
// interrupted, Checkpoint holds the last processed customer so a retry can
// resume instead of starting over.
type RecalculationSummary struct {
	Processed  int         `json:"processed"`
	Skipped    []uuid.UUID `json:"skipped,omitempty"`
	Completed  bool        `json:"completed"`
	Checkpoint *uuid.UUID  `json:"checkpoint,omitempty"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
}

// ErrRecalculationInterrupted wraps a batch run stopped before completion
var ErrRecalculationInterrupted = shared.NewDomainError("RECALCULATION_INTERRUPTED", "Batch recalculation stopped before completion")

// RecalculateAll recomputes every customer's score exactly once. resumeAfter
// restarts a previously interrupted run from its checkpoint; nil starts from
// the beginning. One customer failing to score is logged and skipped, never
// fatal to the run. On cancellation the summary still reports how far the
// run got, alongside ErrRecalculationInterrupted.
func (s *RecalculationService) RecalculateAll(ctx context.Context, resumeAfter *uuid.UUID, asOf time.Time) (*RecalculationSummary, error) {
	summary := &RecalculationSummary{
		StartedAt: time.Now(),
	}
	cursor := resumeAfter

	for {
		ids, err := s.invoiceRepo.ListCustomerIDs(ctx, cursor, s.batchSize)
		if err != nil {
			summary.FinishedAt = time.Now()
			return summary, fmt.Errorf("listing customers: %w", err)
		}
		if len(ids) == 0 {
			break
		}

		for _, customerID := range ids {
			select {
			case <-ctx.Done():
				summary.FinishedAt = time.Now()
				s.logger.Warn("batch recalculation interrupted",
					zap.Int("processed", summary.Processed))
				return summary, ErrRecalculationInterrupted
			default:
			}

			unlock := s.locks.Lock(customerID)
			_, err := s.recalculateLocked(ctx, customerID, asOf)
			unlock()

			id := customerID
			switch {
			case err == nil:
				summary.Processed++
			case errors.Is(err, ledger.ErrNoPaymentHistory):
				summary.Skipped = append(summary.Skipped, customerID)
			default:
				summary.Skipped = append(summary.Skipped, customerID)
				s.logger.Error("customer skipped during batch recalculation",
					zap.String("customer_id", customerID.String()),
					zap.Error(err))
			}
			summary.Checkpoint = &id
		}

		cursor = summary.Checkpoint
	}

	summary.Completed = true
	summary.FinishedAt = time.Now()

	s.logger.Info("batch recalculation completed",
		zap.Int("processed", summary.Processed),
		zap.Int("skipped", len(summary.Skipped)))

	return summary, nil
}
