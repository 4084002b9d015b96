package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/debtflow/backend/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recalcFixture struct {
	invoiceRepo *memInvoiceRepo
	receiptRepo *memReceiptRepo
	scoreRepo   *memScoreRepo
	ledgerSvc   *LedgerService
	service     *RecalculationService
}

func newRecalcFixture(t *testing.T, opts ...RecalculationServiceOption) *recalcFixture {
	t.Helper()
	invoiceRepo := newMemInvoiceRepo()
	receiptRepo := newMemReceiptRepo()
	scoreRepo := newMemScoreRepo()
	classifier, err := ledger.NewBehaviorClassifier(ledger.DefaultScoreWeights())
	require.NoError(t, err)
	return &recalcFixture{
		invoiceRepo: invoiceRepo,
		receiptRepo: receiptRepo,
		scoreRepo:   scoreRepo,
		ledgerSvc:   NewLedgerService(invoiceRepo, receiptRepo),
		service:     NewRecalculationService(invoiceRepo, scoreRepo, classifier, opts...),
	}
}

// payInvoice creates an invoice due paymentTermDays after invoiceDate and a
// receipt settling it on payDate, giving the customer one payment event
func (f *recalcFixture) payInvoice(t *testing.T, customerID uuid.UUID, number string, invoiceDate, payDate time.Time) {
	t.Helper()
	ctx := context.Background()
	_, err := f.ledgerSvc.CreateInvoice(ctx, CreateInvoiceRequest{
		InvoiceNumber:   number,
		CustomerID:      customerID,
		CustomerName:    "Patel Distributors",
		InvoiceDate:     invoiceDate,
		PaymentTermDays: 30,
		Amount:          decimal.NewFromInt(1000),
	})
	require.NoError(t, err)
	_, err = f.ledgerSvc.CreateReceipt(ctx, CreateReceiptRequest{
		ReceiptNumber: "RCP-" + number,
		CustomerID:    customerID,
		CustomerName:  "Patel Distributors",
		Amount:        decimal.NewFromInt(1000),
		PaymentDate:   payDate,
		PaymentMethod: "BANK_TRANSFER",
	})
	require.NoError(t, err)
}

func TestRecalculationService_RecalculateCustomer(t *testing.T) {
	f := newRecalcFixture(t)
	customerID := uuid.New()
	ctx := context.Background()

	// One on-time payment, one 10 days late
	f.payInvoice(t, customerID, "INV-1", day(2026, 1, 1), day(2026, 1, 20))
	f.payInvoice(t, customerID, "INV-2", day(2026, 2, 1), day(2026, 3, 13))

	record, err := f.service.RecalculateCustomer(ctx, customerID, day(2026, 4, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, record.PaymentCount)
	assert.Equal(t, 1, record.OnTimeCount)
	assert.True(t, record.OnTimeRate.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, ledger.PaymentClassificationRegular, record.Classification)

	stored, err := f.scoreRepo.FindByCustomer(ctx, customerID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, stored.PaymentScore.Equal(record.PaymentScore))
}

func TestRecalculationService_RecalculateCustomer_PreservesRecordIdentity(t *testing.T) {
	f := newRecalcFixture(t)
	customerID := uuid.New()
	ctx := context.Background()

	f.payInvoice(t, customerID, "INV-1", day(2026, 1, 1), day(2026, 1, 20))
	first, err := f.service.RecalculateCustomer(ctx, customerID, day(2026, 2, 1))
	require.NoError(t, err)

	f.payInvoice(t, customerID, "INV-2", day(2026, 2, 1), day(2026, 4, 20))
	second, err := f.service.RecalculateCustomer(ctx, customerID, day(2026, 5, 1))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "recalculation should update the existing record in place")
	assert.Equal(t, 2, second.PaymentCount)
}

func TestRecalculationService_ScoreLookupFailure(t *testing.T) {
	f := newRecalcFixture(t)
	customerID := uuid.New()
	ctx := context.Background()

	f.payInvoice(t, customerID, "INV-1", day(2026, 1, 1), day(2026, 1, 20))
	f.scoreRepo.findFailFor[customerID] = errors.New("connection reset")

	// A failed lookup must surface, not silently mint a fresh record over
	// the one already stored
	_, err := f.service.RecalculateCustomer(ctx, customerID, day(2026, 2, 1))
	require.ErrorContains(t, err, "connection reset")

	delete(f.scoreRepo.findFailFor, customerID)
	stored, err := f.scoreRepo.FindByCustomer(ctx, customerID)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestRecalculationService_SharesLocksWithLedgerEdits(t *testing.T) {
	registry := NewCustomerLockRegistry()
	invoiceRepo := newMemInvoiceRepo()
	receiptRepo := newMemReceiptRepo()
	scoreRepo := newMemScoreRepo()
	classifier, err := ledger.NewBehaviorClassifier(ledger.DefaultScoreWeights())
	require.NoError(t, err)

	f := &recalcFixture{
		invoiceRepo: invoiceRepo,
		receiptRepo: receiptRepo,
		scoreRepo:   scoreRepo,
		ledgerSvc:   NewLedgerService(invoiceRepo, receiptRepo, WithLedgerLockRegistry(registry)),
		service:     NewRecalculationService(invoiceRepo, scoreRepo, classifier, WithRecalcLockRegistry(registry)),
	}
	require.Same(t, f.ledgerSvc.locks, f.service.locks)

	customerID := uuid.New()
	f.payInvoice(t, customerID, "INV-1", day(2026, 1, 1), day(2026, 1, 20))

	// Recalculation must wait while a ledger edit holds the customer's lock
	unlock := registry.Lock(customerID)
	done := make(chan error, 1)
	go func() {
		_, err := f.service.RecalculateCustomer(context.Background(), customerID, day(2026, 2, 1))
		done <- err
	}()

	select {
	case <-done:
		t.Fatal("recalculation ran while the customer's ledger lock was held")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("recalculation did not resume after the lock was released")
	}
}

func TestRecalculationService_NoHistory(t *testing.T) {
	f := newRecalcFixture(t)
	customerID := uuid.New()
	ctx := context.Background()

	t.Run("returns typed error for unscoreable customer", func(t *testing.T) {
		_, err := f.ledgerSvc.CreateInvoice(ctx, CreateInvoiceRequest{
			InvoiceNumber:   "INV-1",
			CustomerID:      customerID,
			CustomerName:    "Patel Distributors",
			InvoiceDate:     day(2026, 1, 1),
			PaymentTermDays: 30,
			Amount:          decimal.NewFromInt(1000),
		})
		require.NoError(t, err)

		_, err = f.service.RecalculateCustomer(ctx, customerID, day(2026, 2, 1))
		assert.ErrorIs(t, err, ledger.ErrNoPaymentHistory)
	})

	t.Run("drops stale score when history disappears", func(t *testing.T) {
		f := newRecalcFixture(t)
		customerID := uuid.New()
		f.payInvoice(t, customerID, "INV-1", day(2026, 1, 1), day(2026, 1, 20))

		_, err := f.service.RecalculateCustomer(ctx, customerID, day(2026, 2, 1))
		require.NoError(t, err)

		// Delete the receipt: the payment history is gone
		receipts, err := f.receiptRepo.FindByCustomer(ctx, customerID, ledger.ReceiptFilter{})
		require.NoError(t, err)
		require.Len(t, receipts, 1)
		require.NoError(t, f.ledgerSvc.DeleteReceipt(ctx, receipts[0].ID))

		_, err = f.service.RecalculateCustomer(ctx, customerID, day(2026, 3, 1))
		assert.ErrorIs(t, err, ledger.ErrNoPaymentHistory)

		stale, err := f.scoreRepo.FindByCustomer(ctx, customerID)
		require.NoError(t, err)
		assert.Nil(t, stale, "stale score record should have been deleted")
	})
}

func TestRecalculationService_RecalculateAll(t *testing.T) {
	ctx := context.Background()
	asOf := day(2026, 6, 1)

	t.Run("processes every customer once", func(t *testing.T) {
		f := newRecalcFixture(t, WithRecalcBatchSize(2))

		customers := make([]uuid.UUID, 5)
		for i := range customers {
			customers[i] = uuid.New()
			f.payInvoice(t, customers[i], "INV-"+string(rune('A'+i)), day(2026, 1, 1), day(2026, 1, 20))
		}

		summary, err := f.service.RecalculateAll(ctx, nil, asOf)
		require.NoError(t, err)
		assert.True(t, summary.Completed)
		assert.Equal(t, 5, summary.Processed)
		assert.Empty(t, summary.Skipped)

		for _, id := range customers {
			record, err := f.scoreRepo.FindByCustomer(ctx, id)
			require.NoError(t, err)
			require.NotNil(t, record)
			assert.Equal(t, ledger.PaymentClassificationStar, record.Classification)
		}
	})

	t.Run("skips customers without history", func(t *testing.T) {
		f := newRecalcFixture(t)

		scored := uuid.New()
		f.payInvoice(t, scored, "INV-A", day(2026, 1, 1), day(2026, 1, 20))

		unscored := uuid.New()
		_, err := f.ledgerSvc.CreateInvoice(ctx, CreateInvoiceRequest{
			InvoiceNumber:   "INV-B",
			CustomerID:      unscored,
			CustomerName:    "Patel Distributors",
			InvoiceDate:     day(2026, 1, 1),
			PaymentTermDays: 30,
			Amount:          decimal.NewFromInt(1000),
		})
		require.NoError(t, err)

		summary, err := f.service.RecalculateAll(ctx, nil, asOf)
		require.NoError(t, err)
		assert.True(t, summary.Completed)
		assert.Equal(t, 1, summary.Processed)
		assert.Equal(t, []uuid.UUID{unscored}, summary.Skipped)
	})

	t.Run("skips customers whose scoring fails without aborting", func(t *testing.T) {
		f := newRecalcFixture(t)

		healthy := uuid.New()
		broken := uuid.New()
		f.payInvoice(t, healthy, "INV-A", day(2026, 1, 1), day(2026, 1, 20))
		f.payInvoice(t, broken, "INV-B", day(2026, 1, 1), day(2026, 1, 20))
		f.scoreRepo.failFor[broken] = errors.New("connection reset")

		summary, err := f.service.RecalculateAll(ctx, nil, asOf)
		require.NoError(t, err)
		assert.True(t, summary.Completed)
		assert.Equal(t, 1, summary.Processed)
		assert.Equal(t, []uuid.UUID{broken}, summary.Skipped)
	})

	t.Run("cancellation stops the run and reports a checkpoint", func(t *testing.T) {
		f := newRecalcFixture(t, WithRecalcBatchSize(1))

		for i := 0; i < 3; i++ {
			f.payInvoice(t, uuid.New(), "INV-"+string(rune('A'+i)), day(2026, 1, 1), day(2026, 1, 20))
		}

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		summary, err := f.service.RecalculateAll(cancelled, nil, asOf)
		assert.ErrorIs(t, err, ErrRecalculationInterrupted)
		assert.False(t, summary.Completed)
		assert.Equal(t, 0, summary.Processed)
	})

	t.Run("resume after checkpoint does not reprocess earlier customers", func(t *testing.T) {
		f := newRecalcFixture(t, WithRecalcBatchSize(10))

		customers := make([]uuid.UUID, 4)
		for i := range customers {
			customers[i] = uuid.New()
			f.payInvoice(t, customers[i], "INV-"+string(rune('A'+i)), day(2026, 1, 1), day(2026, 1, 20))
		}

		full, err := f.service.RecalculateAll(ctx, nil, asOf)
		require.NoError(t, err)
		require.True(t, full.Completed)
		require.NotNil(t, full.Checkpoint)

		// Resuming after the final checkpoint finds nothing left to do
		resumed, err := f.service.RecalculateAll(ctx, full.Checkpoint, asOf)
		require.NoError(t, err)
		assert.True(t, resumed.Completed)
		assert.Equal(t, 0, resumed.Processed)
	})

	t.Run("empty ledger completes immediately", func(t *testing.T) {
		f := newRecalcFixture(t)
		summary, err := f.service.RecalculateAll(ctx, nil, asOf)
		require.NoError(t, err)
		assert.True(t, summary.Completed)
		assert.Equal(t, 0, summary.Processed)
	})
}
