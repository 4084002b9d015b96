package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/debtflow/backend/internal/domain/ledger"
	"github.com/debtflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// In-memory repository fakes. They copy aggregates on the way in and out so
// tests exercise the same load-mutate-save cycle the real repositories do.

type memInvoiceRepo struct {
	mu       sync.Mutex
	invoices map[uuid.UUID]ledger.Invoice
}

func newMemInvoiceRepo() *memInvoiceRepo {
	return &memInvoiceRepo{invoices: make(map[uuid.UUID]ledger.Invoice)}
}

func (r *memInvoiceRepo) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok {
		return nil, nil
	}
	copied := inv
	return &copied, nil
}

func (r *memInvoiceRepo) FindByInvoiceNumber(ctx context.Context, number string) (*ledger.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.invoices {
		if inv.InvoiceNumber == number {
			copied := inv
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memInvoiceRepo) FindAll(ctx context.Context, filter ledger.InvoiceFilter) ([]ledger.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ledger.Invoice, 0)
	for _, inv := range r.invoices {
		if filter.CustomerID != nil && inv.CustomerID != *filter.CustomerID {
			continue
		}
		if filter.Status != nil && inv.Status != *filter.Status {
			continue
		}
		out = append(out, inv)
	}
	sortInvoices(out)
	return out, nil
}

func (r *memInvoiceRepo) FindByCustomer(ctx context.Context, customerID uuid.UUID, filter ledger.InvoiceFilter) ([]ledger.Invoice, error) {
	filter.CustomerID = &customerID
	return r.FindAll(ctx, filter)
}

func (r *memInvoiceRepo) FindOpenByCustomer(ctx context.Context, customerID uuid.UUID) ([]ledger.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ledger.Invoice, 0)
	for _, inv := range r.invoices {
		if inv.CustomerID == customerID && inv.Status.CanApplyPayment() && inv.Outstanding.GreaterThan(decimal.Zero) {
			out = append(out, inv)
		}
	}
	sortInvoices(out)
	return out, nil
}

func (r *memInvoiceRepo) FindByReceipt(ctx context.Context, receiptID uuid.UUID) ([]ledger.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ledger.Invoice, 0)
	for _, inv := range r.invoices {
		if len(inv.AllocationsForReceipt(receiptID)) > 0 {
			out = append(out, inv)
		}
	}
	sortInvoices(out)
	return out, nil
}

func (r *memInvoiceRepo) FindOverdue(ctx context.Context, asOf time.Time, filter ledger.InvoiceFilter) ([]ledger.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ledger.Invoice, 0)
	for _, inv := range r.invoices {
		if inv.IsOverdue(asOf) && inv.Outstanding.GreaterThan(decimal.Zero) {
			out = append(out, inv)
		}
	}
	sortInvoices(out)
	return out, nil
}

func (r *memInvoiceRepo) Save(ctx context.Context, inv *ledger.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invoices[inv.ID] = *inv
	return nil
}

func (r *memInvoiceRepo) SaveWithLock(ctx context.Context, inv *ledger.Invoice) error {
	return r.Save(ctx, inv)
}

func (r *memInvoiceRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.invoices[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.invoices, id)
	return nil
}

func (r *memInvoiceRepo) Count(ctx context.Context, filter ledger.InvoiceFilter) (int64, error) {
	all, _ := r.FindAll(ctx, filter)
	return int64(len(all)), nil
}

func (r *memInvoiceRepo) SumOutstandingByCustomer(ctx context.Context, customerID uuid.UUID) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sum := decimal.Zero
	for _, inv := range r.invoices {
		if inv.CustomerID == customerID {
			sum = sum.Add(inv.Outstanding)
		}
	}
	return sum, nil
}

func (r *memInvoiceRepo) SumOverdue(ctx context.Context, asOf time.Time) (decimal.Decimal, error) {
	overdue, _ := r.FindOverdue(ctx, asOf, ledger.InvoiceFilter{})
	sum := decimal.Zero
	for _, inv := range overdue {
		sum = sum.Add(inv.Outstanding)
	}
	return sum, nil
}

func (r *memInvoiceRepo) ExistsByInvoiceNumber(ctx context.Context, number string) (bool, error) {
	inv, _ := r.FindByInvoiceNumber(ctx, number)
	return inv != nil, nil
}

func (r *memInvoiceRepo) ListCustomerIDs(ctx context.Context, afterCustomerID *uuid.UUID, limit int) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[uuid.UUID]struct{})
	ids := make([]uuid.UUID, 0)
	for _, inv := range r.invoices {
		if _, ok := seen[inv.CustomerID]; !ok {
			seen[inv.CustomerID] = struct{}{}
			ids = append(ids, inv.CustomerID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	start := 0
	if afterCustomerID != nil {
		for i, id := range ids {
			if id == *afterCustomerID {
				start = i + 1
				break
			}
		}
	}
	if start >= len(ids) {
		return nil, nil
	}
	end := start + limit
	if end > len(ids) {
		end = len(ids)
	}
	return ids[start:end], nil
}

func sortInvoices(invoices []ledger.Invoice) {
	sort.Slice(invoices, func(i, j int) bool {
		if !invoices[i].DueDate.Equal(invoices[j].DueDate) {
			return invoices[i].DueDate.Before(invoices[j].DueDate)
		}
		return invoices[i].CreatedAt.Before(invoices[j].CreatedAt)
	})
}

type memReceiptRepo struct {
	mu       sync.Mutex
	receipts map[uuid.UUID]ledger.Receipt
}

func newMemReceiptRepo() *memReceiptRepo {
	return &memReceiptRepo{receipts: make(map[uuid.UUID]ledger.Receipt)}
}

func (r *memReceiptRepo) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.receipts[id]
	if !ok {
		return nil, nil
	}
	copied := rec
	return &copied, nil
}

func (r *memReceiptRepo) FindByReceiptNumber(ctx context.Context, number string) (*ledger.Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.receipts {
		if rec.ReceiptNumber == number {
			copied := rec
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memReceiptRepo) FindAll(ctx context.Context, filter ledger.ReceiptFilter) ([]ledger.Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ledger.Receipt, 0)
	for _, rec := range r.receipts {
		if filter.CustomerID != nil && rec.CustomerID != *filter.CustomerID {
			continue
		}
		if filter.Unallocated != nil && *filter.Unallocated && !rec.UnallocatedAmount.GreaterThan(decimal.Zero) {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memReceiptRepo) FindByCustomer(ctx context.Context, customerID uuid.UUID, filter ledger.ReceiptFilter) ([]ledger.Receipt, error) {
	filter.CustomerID = &customerID
	return r.FindAll(ctx, filter)
}

func (r *memReceiptRepo) FindUnallocated(ctx context.Context, filter ledger.ReceiptFilter) ([]ledger.Receipt, error) {
	yes := true
	filter.Unallocated = &yes
	return r.FindAll(ctx, filter)
}

func (r *memReceiptRepo) Save(ctx context.Context, rec *ledger.Receipt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.receipts[rec.ID] = *rec
	return nil
}

func (r *memReceiptRepo) SaveWithLock(ctx context.Context, rec *ledger.Receipt) error {
	return r.Save(ctx, rec)
}

func (r *memReceiptRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.receipts[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.receipts, id)
	return nil
}

func (r *memReceiptRepo) Count(ctx context.Context, filter ledger.ReceiptFilter) (int64, error) {
	all, _ := r.FindAll(ctx, filter)
	return int64(len(all)), nil
}

func (r *memReceiptRepo) SumUnallocated(ctx context.Context) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sum := decimal.Zero
	for _, rec := range r.receipts {
		sum = sum.Add(rec.UnallocatedAmount)
	}
	return sum, nil
}

func (r *memReceiptRepo) ExistsByReceiptNumber(ctx context.Context, number string) (bool, error) {
	rec, _ := r.FindByReceiptNumber(ctx, number)
	return rec != nil, nil
}

type memProfileRepo struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]ledger.CustomerCreditProfile // keyed by customer ID
}

func newMemProfileRepo() *memProfileRepo {
	return &memProfileRepo{profiles: make(map[uuid.UUID]ledger.CustomerCreditProfile)}
}

func (r *memProfileRepo) FindByID(ctx context.Context, id uuid.UUID) (*ledger.CustomerCreditProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.profiles {
		if p.ID == id {
			copied := p
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memProfileRepo) FindByCustomer(ctx context.Context, customerID uuid.UUID) (*ledger.CustomerCreditProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[customerID]
	if !ok {
		return nil, nil
	}
	copied := p
	return &copied, nil
}

func (r *memProfileRepo) FindByCategory(ctx context.Context, category ledger.CustomerCategory, filter shared.Filter) ([]ledger.CustomerCreditProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ledger.CustomerCreditProfile, 0)
	for _, p := range r.profiles {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memProfileRepo) FindAll(ctx context.Context, filter shared.Filter) ([]ledger.CustomerCreditProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ledger.CustomerCreditProfile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p)
	}
	return out, nil
}

func (r *memProfileRepo) Save(ctx context.Context, p *ledger.CustomerCreditProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[p.CustomerID] = *p
	return nil
}

func (r *memProfileRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for customerID, p := range r.profiles {
		if p.ID == id {
			delete(r.profiles, customerID)
			return nil
		}
	}
	return shared.ErrNotFound
}

func (r *memProfileRepo) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.profiles)), nil
}

type memScoreRepo struct {
	mu          sync.Mutex
	records     map[uuid.UUID]ledger.PaymentScoreRecord // keyed by customer ID
	failFor     map[uuid.UUID]error                     // injected per-customer upsert failures
	findFailFor map[uuid.UUID]error                     // injected per-customer lookup failures
}

func newMemScoreRepo() *memScoreRepo {
	return &memScoreRepo{
		records:     make(map[uuid.UUID]ledger.PaymentScoreRecord),
		failFor:     make(map[uuid.UUID]error),
		findFailFor: make(map[uuid.UUID]error),
	}
}

func (r *memScoreRepo) FindByID(ctx context.Context, id uuid.UUID) (*ledger.PaymentScoreRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.ID == id {
			copied := rec
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memScoreRepo) FindByCustomer(ctx context.Context, customerID uuid.UUID) (*ledger.PaymentScoreRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.findFailFor[customerID]; ok {
		return nil, err
	}
	rec, ok := r.records[customerID]
	if !ok {
		return nil, nil
	}
	copied := rec
	return &copied, nil
}

func (r *memScoreRepo) FindAll(ctx context.Context, filter ledger.PaymentScoreFilter) ([]ledger.PaymentScoreRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ledger.PaymentScoreRecord, 0, len(r.records))
	for _, rec := range r.records {
		if filter.Classification != nil && rec.Classification != *filter.Classification {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *memScoreRepo) FindByClassification(ctx context.Context, classification ledger.PaymentClassification, filter ledger.PaymentScoreFilter) ([]ledger.PaymentScoreRecord, error) {
	filter.Classification = &classification
	return r.FindAll(ctx, filter)
}

func (r *memScoreRepo) Upsert(ctx context.Context, rec *ledger.PaymentScoreRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.failFor[rec.CustomerID]; ok {
		return err
	}
	r.records[rec.CustomerID] = *rec
	return nil
}

func (r *memScoreRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for customerID, rec := range r.records {
		if rec.ID == id {
			delete(r.records, customerID)
			return nil
		}
	}
	return shared.ErrNotFound
}

func (r *memScoreRepo) DeleteByCustomer(ctx context.Context, customerID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, customerID)
	return nil
}

func (r *memScoreRepo) Count(ctx context.Context, filter ledger.PaymentScoreFilter) (int64, error) {
	all, _ := r.FindAll(ctx, filter)
	return int64(len(all)), nil
}

func (r *memScoreRepo) CountByClassification(ctx context.Context) (map[ledger.PaymentClassification]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[ledger.PaymentClassification]int64)
	for _, rec := range r.records {
		out[rec.Classification]++
	}
	return out, nil
}

var (
	_ ledger.InvoiceRepository       = (*memInvoiceRepo)(nil)
	_ ledger.ReceiptRepository       = (*memReceiptRepo)(nil)
	_ ledger.CreditProfileRepository = (*memProfileRepo)(nil)
	_ ledger.PaymentScoreRepository  = (*memScoreRepo)(nil)
)
