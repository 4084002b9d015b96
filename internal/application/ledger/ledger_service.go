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

// LedgerService provides application-level operations over invoices and
// receipts. Every mutating operation runs under the owning customer's lock so
// retract-then-reapply cycles never interleave.
type LedgerService struct {
	invoiceRepo ledger.InvoiceRepository
	receiptRepo ledger.ReceiptRepository
	allocator   *ledger.PaymentAllocator
	locks       *CustomerLockRegistry
	tx          shared.TransactionManager
	logger      *zap.Logger
}

// LedgerServiceOption is a functional option for configuring LedgerService
type LedgerServiceOption func(*LedgerService)

// WithLedgerLogger sets the logger
func WithLedgerLogger(logger *zap.Logger) LedgerServiceOption {
	return func(s *LedgerService) {
		s.logger = logger
	}
}

// WithAllocator allows injecting a custom payment allocator
func WithAllocator(allocator *ledger.PaymentAllocator) LedgerServiceOption {
	return func(s *LedgerService) {
		s.allocator = allocator
	}
}

// WithLedgerLockRegistry shares a per-customer lock registry with other
// services mutating the same ledger
func WithLedgerLockRegistry(locks *CustomerLockRegistry) LedgerServiceOption {
	return func(s *LedgerService) {
		s.locks = locks
	}
}

// WithLedgerTransactions wraps each multi-aggregate write set in a storage
// transaction so a failure midway never leaves invoices and their receipt
// out of step
func WithLedgerTransactions(tx shared.TransactionManager) LedgerServiceOption {
	return func(s *LedgerService) {
		s.tx = tx
	}
}

// noTransactions runs the function directly. It is the default when no
// transaction manager is injected, e.g. over in-memory repositories.
type noTransactions struct{}

func (noTransactions) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(
	invoiceRepo ledger.InvoiceRepository,
	receiptRepo ledger.ReceiptRepository,
	opts ...LedgerServiceOption,
) *LedgerService {
	s := &LedgerService{
		invoiceRepo: invoiceRepo,
		receiptRepo: receiptRepo,
		allocator:   ledger.NewPaymentAllocator(),
		locks:       NewCustomerLockRegistry(),
		tx:          noTransactions{},
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ===================== Responses =====================

// AllocationRecordResponse represents an allocation in API responses
type AllocationRecordResponse struct {
	ID          uuid.UUID       `json:"id"`
	ReceiptID   uuid.UUID       `json:"receipt_id"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate time.Time       `json:"payment_date"`
	AllocatedAt time.Time       `json:"allocated_at"`
	Remark      string          `json:"remark,omitempty"`
}

// InvoiceResponse represents an invoice in API responses
type InvoiceResponse struct {
	ID              uuid.UUID                  `json:"id"`
	InvoiceNumber   string                     `json:"invoice_number"`
	CustomerID      uuid.UUID                  `json:"customer_id"`
	CustomerName    string                     `json:"customer_name"`
	InvoiceDate     time.Time                  `json:"invoice_date"`
	DueDate         time.Time                  `json:"due_date"`
	DueDateManual   bool                       `json:"due_date_manual"`
	PaymentTermDays int                        `json:"payment_term_days"`
	Amount          decimal.Decimal            `json:"amount"`
	CostBasis       decimal.Decimal            `json:"cost_basis"`
	InterestRatePct decimal.Decimal            `json:"interest_rate_pct"`
	PaidAmount      decimal.Decimal            `json:"paid_amount"`
	Outstanding     decimal.Decimal            `json:"outstanding"`
	Status          string                     `json:"status"`
	Allocations     []AllocationRecordResponse `json:"allocations,omitempty"`
	Remark          string                     `json:"remark,omitempty"`
	PaidAt          *time.Time                 `json:"paid_at,omitempty"`
	CreatedAt       time.Time                  `json:"created_at"`
	UpdatedAt       time.Time                  `json:"updated_at"`
	Version         int                        `json:"version"`
}

// ReceiptResponse represents a receipt in API responses
type ReceiptResponse struct {
	ID                uuid.UUID       `json:"id"`
	ReceiptNumber     string          `json:"receipt_number"`
	CustomerID        uuid.UUID       `json:"customer_id"`
	CustomerName      string          `json:"customer_name"`
	Amount            decimal.Decimal `json:"amount"`
	PaymentDate       time.Time       `json:"payment_date"`
	PaymentMethod     string          `json:"payment_method"`
	PaymentReference  string          `json:"payment_reference,omitempty"`
	InvoiceID         *uuid.UUID      `json:"invoice_id,omitempty"`
	AllocatedAmount   decimal.Decimal `json:"allocated_amount"`
	UnallocatedAmount decimal.Decimal `json:"unallocated_amount"`
	Remark            string          `json:"remark,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	Version           int             `json:"version"`
}

func toInvoiceResponse(inv *ledger.Invoice) *InvoiceResponse {
	allocations := make([]AllocationRecordResponse, 0, len(inv.Allocations))
	for _, a := range inv.Allocations {
		allocations = append(allocations, AllocationRecordResponse{
			ID:          a.ID,
			ReceiptID:   a.ReceiptID,
			Amount:      a.Amount,
			PaymentDate: a.PaymentDate,
			AllocatedAt: a.AllocatedAt,
			Remark:      a.Remark,
		})
	}
	return &InvoiceResponse{
		ID:              inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		CustomerID:      inv.CustomerID,
		CustomerName:    inv.CustomerName,
		InvoiceDate:     inv.InvoiceDate,
		DueDate:         inv.DueDate,
		DueDateManual:   inv.DueDateManual,
		PaymentTermDays: inv.PaymentTermDays,
		Amount:          inv.Amount,
		CostBasis:       inv.CostBasis,
		InterestRatePct: inv.InterestRatePct,
		PaidAmount:      inv.PaidAmount,
		Outstanding:     inv.Outstanding,
		Status:          inv.Status.String(),
		Allocations:     allocations,
		Remark:          inv.Remark,
		PaidAt:          inv.PaidAt,
		CreatedAt:       inv.CreatedAt,
		UpdatedAt:       inv.UpdatedAt,
		Version:         inv.Version,
	}
}

func toReceiptResponse(r *ledger.Receipt) *ReceiptResponse {
	return &ReceiptResponse{
		ID:                r.ID,
		ReceiptNumber:     r.ReceiptNumber,
		CustomerID:        r.CustomerID,
		CustomerName:      r.CustomerName,
		Amount:            r.Amount,
		PaymentDate:       r.PaymentDate,
		PaymentMethod:     r.PaymentMethod.String(),
		PaymentReference:  r.PaymentReference,
		InvoiceID:         r.InvoiceID,
		AllocatedAmount:   r.AllocatedAmount,
		UnallocatedAmount: r.UnallocatedAmount,
		Remark:            r.Remark,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
		Version:           r.Version,
	}
}

// ===================== Invoice Operations =====================

// CreateInvoiceRequest represents a request to create an invoice
type CreateInvoiceRequest struct {
	InvoiceNumber   string          `json:"invoice_number" binding:"required,max=50"`
	CustomerID      uuid.UUID       `json:"customer_id" binding:"required"`
	CustomerName    string          `json:"customer_name" binding:"required"`
	InvoiceDate     time.Time       `json:"invoice_date" binding:"required"`
	PaymentTermDays int             `json:"payment_term_days" binding:"min=0"`
	DueDate         *time.Time      `json:"due_date"`
	Amount          decimal.Decimal `json:"amount" binding:"required"`
	CostBasis       decimal.Decimal `json:"cost_basis"`
	InterestRatePct decimal.Decimal `json:"interest_rate_pct"`
	Remark          string          `json:"remark"`
}

// CreateInvoice creates a new invoice
func (s *LedgerService) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*InvoiceResponse, error) {
	exists, err := s.invoiceRepo.ExistsByInvoiceNumber(ctx, req.InvoiceNumber)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Invoice number already exists")
	}

	inv, err := ledger.NewInvoice(
		req.InvoiceNumber,
		req.CustomerID,
		req.CustomerName,
		req.InvoiceDate,
		req.PaymentTermDays,
		req.DueDate,
		valueobject.NewMoneyFromDecimal(req.Amount),
		valueobject.NewMoneyFromDecimal(req.CostBasis),
		req.InterestRatePct,
	)
	if err != nil {
		return nil, err
	}
	if req.Remark != "" {
		inv.SetRemark(req.Remark)
	}

	if err := s.invoiceRepo.Save(ctx, inv); err != nil {
		return nil, err
	}

	s.logger.Info("invoice created",
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.String("customer_id", inv.CustomerID.String()),
		zap.String("amount", inv.Amount.String()))

	return toInvoiceResponse(inv), nil
}

// GetInvoice gets an invoice by ID
func (s *LedgerService) GetInvoice(ctx context.Context, id uuid.UUID) (*InvoiceResponse, error) {
	inv, err := s.findInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	return toInvoiceResponse(inv), nil
}

// InvoiceListFilter defines filtering options for invoice list queries
type InvoiceListFilter struct {
	CustomerID *uuid.UUID `form:"customer_id"`
	Status     string     `form:"status"`
	Overdue    *bool      `form:"overdue"`
	FromDate   *time.Time `form:"from_date"`
	ToDate     *time.Time `form:"to_date"`
	Page       int        `form:"page"`
	PageSize   int        `form:"page_size"`
}

// ListInvoices lists invoices with filtering
func (s *LedgerService) ListInvoices(ctx context.Context, filter InvoiceListFilter) ([]InvoiceResponse, int64, error) {
	domainFilter := ledger.InvoiceFilter{
		CustomerID: filter.CustomerID,
		FromDate:   filter.FromDate,
		ToDate:     filter.ToDate,
		Overdue:    filter.Overdue,
	}
	domainFilter.Page = filter.Page
	domainFilter.PageSize = filter.PageSize
	if filter.Status != "" {
		status := ledger.InvoiceStatus(filter.Status)
		if !status.IsValid() {
			return nil, 0, shared.NewDomainError("INVALID_STATUS", "Unknown invoice status")
		}
		domainFilter.Status = &status
	}

	invoices, err := s.invoiceRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.invoiceRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]InvoiceResponse, 0, len(invoices))
	for i := range invoices {
		responses = append(responses, *toInvoiceResponse(&invoices[i]))
	}
	return responses, total, nil
}

// UpdateInvoiceRequest represents a request to update invoice terms
type UpdateInvoiceRequest struct {
	DueDate         *time.Time       `json:"due_date"`
	InterestRatePct *decimal.Decimal `json:"interest_rate_pct"`
	Remark          *string          `json:"remark"`
}

// UpdateInvoice updates an invoice's due date, interest rate or remark.
// Interest and profitability are derived, so no recomputation needs to be
// persisted here; readers pick up the new terms immediately.
func (s *LedgerService) UpdateInvoice(ctx context.Context, id uuid.UUID, req UpdateInvoiceRequest) (*InvoiceResponse, error) {
	inv, err := s.findInvoice(ctx, id)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(inv.CustomerID)
	defer unlock()

	if req.DueDate != nil {
		if err := inv.SetDueDate(*req.DueDate); err != nil {
			return nil, err
		}
	}
	if req.InterestRatePct != nil {
		if err := inv.SetInterestRate(*req.InterestRatePct); err != nil {
			return nil, err
		}
	}
	if req.Remark != nil {
		inv.SetRemark(*req.Remark)
	}

	if err := s.invoiceRepo.SaveWithLock(ctx, inv); err != nil {
		return nil, err
	}
	return toInvoiceResponse(inv), nil
}

// CancelInvoice cancels an invoice that has no allocations
func (s *LedgerService) CancelInvoice(ctx context.Context, id uuid.UUID, reason string) (*InvoiceResponse, error) {
	inv, err := s.findInvoice(ctx, id)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(inv.CustomerID)
	defer unlock()

	if err := inv.Cancel(reason); err != nil {
		return nil, err
	}
	if err := s.invoiceRepo.SaveWithLock(ctx, inv); err != nil {
		return nil, err
	}

	s.logger.Info("invoice cancelled",
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.String("reason", reason))

	return toInvoiceResponse(inv), nil
}

// DeleteInvoice deletes an invoice. Allocations it holds are retracted back
// to their receipts first, and each affected receipt is re-allocated across
// the customer's remaining open invoices, so no money silently disappears.
func (s *LedgerService) DeleteInvoice(ctx context.Context, id uuid.UUID) error {
	inv, err := s.findInvoice(ctx, id)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(inv.CustomerID)
	defer unlock()

	affectedReceiptIDs := make(map[uuid.UUID]struct{})
	for _, a := range inv.Allocations {
		affectedReceiptIDs[a.ReceiptID] = struct{}{}
	}

	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		for receiptID := range affectedReceiptIDs {
			receipt, err := s.receiptRepo.FindByID(ctx, receiptID)
			if err != nil {
				return err
			}
			if receipt == nil {
				continue
			}
			retracted := inv.RetractAllocations(receiptID)
			if retracted.IsZero() {
				continue
			}

			// Return the money to the receipt and spread it over what remains
			if err := s.reapplyExcluding(ctx, receipt, inv.ID); err != nil {
				return err
			}
		}
		return s.invoiceRepo.Delete(ctx, inv.ID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("invoice deleted",
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.Int("reallocated_receipts", len(affectedReceiptIDs)))

	return nil
}

// reapplyExcluding reruns a receipt's allocation over the customer's ledger
// minus one invoice (the one being deleted) and persists everything touched
func (s *LedgerService) reapplyExcluding(ctx context.Context, receipt *ledger.Receipt, excludedInvoiceID uuid.UUID) error {
	working, err := s.loadWorkingSet(ctx, receipt)
	if err != nil {
		return err
	}
	filtered := make([]*ledger.Invoice, 0, len(working))
	for _, inv := range working {
		if inv.ID != excludedInvoiceID {
			filtered = append(filtered, inv)
		}
	}

	// A directed receipt whose target is going away falls back to FIFO
	if receipt.IsDirected() && *receipt.InvoiceID == excludedInvoiceID {
		receipt.ResetAllocations()
		if err := receipt.UpdateDetails(receipt.GetAmountMoney(), receipt.PaymentDate, receipt.PaymentMethod, nil); err != nil {
			return err
		}
	}

	result, err := s.allocator.Reapply(ctx, receipt, filtered)
	if err != nil {
		return err
	}
	return s.persistAllocation(ctx, receipt, result.UpdatedInvoices, filtered)
}

// ===================== Receipt Operations =====================

// CreateReceiptRequest represents a request to record a payment
type CreateReceiptRequest struct {
	ReceiptNumber    string          `json:"receipt_number" binding:"required,max=50"`
	CustomerID       uuid.UUID       `json:"customer_id" binding:"required"`
	CustomerName     string          `json:"customer_name" binding:"required"`
	Amount           decimal.Decimal `json:"amount" binding:"required"`
	PaymentDate      time.Time       `json:"payment_date" binding:"required"`
	PaymentMethod    string          `json:"payment_method" binding:"required"`
	PaymentReference string          `json:"payment_reference"`
	InvoiceID        *uuid.UUID      `json:"invoice_id"`
	Remark           string          `json:"remark"`
}

// CreateReceiptResult is the receipt plus the allocation outcome
type CreateReceiptResult struct {
	Receipt           *ReceiptResponse  `json:"receipt"`
	UpdatedInvoices   []InvoiceResponse `json:"updated_invoices"`
	UnallocatedAmount decimal.Decimal   `json:"unallocated_amount"`
	FullyAllocated    bool              `json:"fully_allocated"`
}

// CreateReceipt records a payment and immediately allocates it across the
// customer's open invoices (or the explicitly referenced invoice)
func (s *LedgerService) CreateReceipt(ctx context.Context, req CreateReceiptRequest) (*CreateReceiptResult, error) {
	exists, err := s.receiptRepo.ExistsByReceiptNumber(ctx, req.ReceiptNumber)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Receipt number already exists")
	}

	receipt, err := ledger.NewReceipt(
		req.ReceiptNumber,
		req.CustomerID,
		req.CustomerName,
		valueobject.NewMoneyFromDecimal(req.Amount),
		req.PaymentDate,
		ledger.PaymentMethod(req.PaymentMethod),
		req.InvoiceID,
	)
	if err != nil {
		return nil, err
	}
	if req.PaymentReference != "" {
		if err := receipt.SetPaymentReference(req.PaymentReference); err != nil {
			return nil, err
		}
	}
	if req.Remark != "" {
		receipt.SetRemark(req.Remark)
	}

	unlock := s.locks.Lock(receipt.CustomerID)
	defer unlock()

	working, err := s.loadWorkingSet(ctx, receipt)
	if err != nil {
		return nil, err
	}

	result, err := s.allocator.Allocate(ctx, receipt, working)
	if err != nil {
		return nil, err
	}
	if err := s.persistAllocation(ctx, receipt, result.UpdatedInvoices, nil); err != nil {
		return nil, err
	}

	if result.UnallocatedAmount.GreaterThan(decimal.Zero) {
		s.logger.Warn("receipt not fully allocated",
			zap.String("receipt_number", receipt.ReceiptNumber),
			zap.String("unallocated", result.UnallocatedAmount.String()))
	}

	return &CreateReceiptResult{
		Receipt:           toReceiptResponse(receipt),
		UpdatedInvoices:   toInvoiceResponses(result.UpdatedInvoices),
		UnallocatedAmount: result.UnallocatedAmount,
		FullyAllocated:    result.FullyAllocated,
	}, nil
}

// GetReceipt gets a receipt by ID
func (s *LedgerService) GetReceipt(ctx context.Context, id uuid.UUID) (*ReceiptResponse, error) {
	receipt, err := s.findReceipt(ctx, id)
	if err != nil {
		return nil, err
	}
	return toReceiptResponse(receipt), nil
}

// ReceiptListFilter defines filtering options for receipt list queries
type ReceiptListFilter struct {
	CustomerID  *uuid.UUID `form:"customer_id"`
	Unallocated *bool      `form:"unallocated"`
	FromDate    *time.Time `form:"from_date"`
	ToDate      *time.Time `form:"to_date"`
	Page        int        `form:"page"`
	PageSize    int        `form:"page_size"`
}

// ListReceipts lists receipts with filtering
func (s *LedgerService) ListReceipts(ctx context.Context, filter ReceiptListFilter) ([]ReceiptResponse, int64, error) {
	domainFilter := ledger.ReceiptFilter{
		CustomerID:  filter.CustomerID,
		Unallocated: filter.Unallocated,
		FromDate:    filter.FromDate,
		ToDate:      filter.ToDate,
	}
	domainFilter.Page = filter.Page
	domainFilter.PageSize = filter.PageSize

	receipts, err := s.receiptRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.receiptRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]ReceiptResponse, 0, len(receipts))
	for i := range receipts {
		responses = append(responses, *toReceiptResponse(&receipts[i]))
	}
	return responses, total, nil
}

// UpdateReceiptRequest represents a request to edit a payment
type UpdateReceiptRequest struct {
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	PaymentDate   time.Time       `json:"payment_date" binding:"required"`
	PaymentMethod string          `json:"payment_method" binding:"required"`
	InvoiceID     *uuid.UUID      `json:"invoice_id"`
	Remark        *string         `json:"remark"`
}

// UpdateReceipt edits a payment. Prior allocations are retracted, the receipt
// is updated, and the full amount is re-allocated, so the ledger ends up
// exactly as if the receipt had been entered with the new values originally.
func (s *LedgerService) UpdateReceipt(ctx context.Context, id uuid.UUID, req UpdateReceiptRequest) (*CreateReceiptResult, error) {
	receipt, err := s.findReceipt(ctx, id)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(receipt.CustomerID)
	defer unlock()

	working, err := s.loadWorkingSet(ctx, receipt)
	if err != nil {
		return nil, err
	}

	if _, err := s.allocator.Retract(ctx, receipt, working); err != nil {
		return nil, err
	}
	if err := receipt.UpdateDetails(
		valueobject.NewMoneyFromDecimal(req.Amount),
		req.PaymentDate,
		ledger.PaymentMethod(req.PaymentMethod),
		req.InvoiceID,
	); err != nil {
		return nil, err
	}
	if req.Remark != nil {
		receipt.SetRemark(*req.Remark)
	}

	result, err := s.allocator.Allocate(ctx, receipt, working)
	if err != nil {
		return nil, err
	}
	if err := s.persistAllocation(ctx, receipt, result.UpdatedInvoices, working); err != nil {
		return nil, err
	}

	s.logger.Info("receipt updated and reallocated",
		zap.String("receipt_number", receipt.ReceiptNumber),
		zap.Int("invoices_touched", len(result.UpdatedInvoices)))

	return &CreateReceiptResult{
		Receipt:           toReceiptResponse(receipt),
		UpdatedInvoices:   toInvoiceResponses(result.UpdatedInvoices),
		UnallocatedAmount: result.UnallocatedAmount,
		FullyAllocated:    result.FullyAllocated,
	}, nil
}

// DeleteReceipt deletes a payment, retracting its allocations so the affected
// invoices' outstanding balances are restored
func (s *LedgerService) DeleteReceipt(ctx context.Context, id uuid.UUID) error {
	receipt, err := s.findReceipt(ctx, id)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(receipt.CustomerID)
	defer unlock()

	working, err := s.loadWorkingSet(ctx, receipt)
	if err != nil {
		return err
	}

	retract, err := s.allocator.Retract(ctx, receipt, working)
	if err != nil {
		return err
	}
	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		for _, inv := range retract.UpdatedInvoices {
			if err := s.invoiceRepo.SaveWithLock(ctx, inv); err != nil {
				return err
			}
		}
		return s.receiptRepo.Delete(ctx, receipt.ID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("receipt deleted",
		zap.String("receipt_number", receipt.ReceiptNumber),
		zap.String("retracted", retract.TotalRetracted.String()))

	return nil
}

// PreviewReceiptAllocation shows what allocating a receipt would do without
// committing anything
func (s *LedgerService) PreviewReceiptAllocation(ctx context.Context, id uuid.UUID) (*ledger.AllocationPlan, error) {
	receipt, err := s.findReceipt(ctx, id)
	if err != nil {
		return nil, err
	}
	working, err := s.loadWorkingSet(ctx, receipt)
	if err != nil {
		return nil, err
	}
	return s.allocator.Preview(ctx, receipt, working)
}

// ===================== helpers =====================

func (s *LedgerService) findInvoice(ctx context.Context, id uuid.UUID) (*ledger.Invoice, error) {
	inv, err := s.invoiceRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Invoice not found")
	}
	return inv, nil
}

func (s *LedgerService) findReceipt(ctx context.Context, id uuid.UUID) (*ledger.Receipt, error) {
	receipt, err := s.receiptRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if receipt == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Receipt not found")
	}
	return receipt, nil
}

// loadWorkingSet loads every invoice an allocation run for this receipt can
// touch: the customer's open invoices plus any invoice already holding
// allocations from the receipt (needed for retracts even when settled)
func (s *LedgerService) loadWorkingSet(ctx context.Context, receipt *ledger.Receipt) ([]*ledger.Invoice, error) {
	open, err := s.invoiceRepo.FindOpenByCustomer(ctx, receipt.CustomerID)
	if err != nil {
		return nil, err
	}
	holding, err := s.invoiceRepo.FindByReceipt(ctx, receipt.ID)
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]struct{})
	working := make([]*ledger.Invoice, 0, len(open)+len(holding))
	for i := range open {
		seen[open[i].ID] = struct{}{}
		working = append(working, &open[i])
	}
	for i := range holding {
		if _, ok := seen[holding[i].ID]; !ok {
			working = append(working, &holding[i])
		}
	}
	return working, nil
}

// persistAllocation saves the receipt and every invoice touched by an
// allocation run, all inside one transaction. extraInvoices covers invoices
// mutated by a preceding retract that the allocate step did not touch again.
func (s *LedgerService) persistAllocation(ctx context.Context, receipt *ledger.Receipt, updated []*ledger.Invoice, extraInvoices []*ledger.Invoice) error {
	return s.tx.InTransaction(ctx, func(ctx context.Context) error {
		saved := make(map[uuid.UUID]struct{})
		for _, inv := range updated {
			if err := s.invoiceRepo.SaveWithLock(ctx, inv); err != nil {
				return err
			}
			saved[inv.ID] = struct{}{}
		}
		for _, inv := range extraInvoices {
			if _, ok := saved[inv.ID]; ok {
				continue
			}
			if err := s.invoiceRepo.SaveWithLock(ctx, inv); err != nil {
				return err
			}
		}
		return s.receiptRepo.SaveWithLock(ctx, receipt)
	})
}

func toInvoiceResponses(invoices []*ledger.Invoice) []InvoiceResponse {
	out := make([]InvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, *toInvoiceResponse(inv))
	}
	return out
}
