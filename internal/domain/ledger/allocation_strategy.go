package ledger

import (
	"sort"
	"time"

	"github.com/debtflow/backend/internal/domain/shared"
	"github.com/debtflow/backend/internal/domain/shared/strategy"
	"github.com/debtflow/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AllocationStrategyType defines the type of allocation strategy
type AllocationStrategyType string

const (
	AllocationStrategyTypeFIFO     AllocationStrategyType = "FIFO"     // Oldest due date first
	AllocationStrategyTypeDirected AllocationStrategyType = "DIRECTED" // Explicit invoice target
)

// IsValid checks if the strategy type is valid
func (t AllocationStrategyType) IsValid() bool {
	switch t {
	case AllocationStrategyTypeFIFO, AllocationStrategyTypeDirected:
		return true
	}
	return false
}

// String returns the string representation
func (t AllocationStrategyType) String() string {
	return string(t)
}

// AllocationTarget represents an open invoice eligible for allocation
type AllocationTarget struct {
	ID                uuid.UUID       // Invoice ID
	Number            string          // Invoice number for display purposes
	OutstandingAmount decimal.Decimal // Amount still outstanding
	DueDate           time.Time       // Due date for FIFO ordering
	CreatedAt         time.Time       // Creation order tie-break
}

// AllocationLine represents a single planned allocation
type AllocationLine struct {
	TargetID     uuid.UUID       // Invoice ID
	TargetNumber string          // Invoice number
	Amount       decimal.Decimal // Amount to allocate
}

// AllocationPlan represents the complete output of an allocation strategy.
// The plan is purely computational; applying it to the aggregates is the
// allocator's job.
type AllocationPlan struct {
	Lines                []AllocationLine // Allocations to make, in order
	TotalAllocated       decimal.Decimal  // Total amount allocated
	RemainingAmount      decimal.Decimal  // Amount left unallocated
	FullyAllocated       bool             // True if the whole amount was placed
	TargetsFullyPaid     []uuid.UUID      // Invoices that will be fully paid
	TargetsPartiallyPaid []uuid.UUID      // Invoices that will be partially paid
}

func emptyPlan(amount decimal.Decimal) *AllocationPlan {
	return &AllocationPlan{
		Lines:                make([]AllocationLine, 0),
		TotalAllocated:       decimal.Zero,
		RemainingAmount:      amount,
		FullyAllocated:       false,
		TargetsFullyPaid:     make([]uuid.UUID, 0),
		TargetsPartiallyPaid: make([]uuid.UUID, 0),
	}
}

// AllocationStrategy is the interface for receipt allocation strategies
type AllocationStrategy interface {
	strategy.Strategy
	// StrategyType returns the allocation strategy type
	StrategyType() AllocationStrategyType
	// Plan calculates how to allocate the given amount across targets
	Plan(amount valueobject.Money, targets []AllocationTarget) (*AllocationPlan, error)
}

// sortTargetsFIFO orders targets by due date ascending, creation time as the
// tie-break. Ordering is total, so repeated runs over the same invoice set
// produce the same plan.
func sortTargetsFIFO(targets []AllocationTarget) []AllocationTarget {
	sorted := make([]AllocationTarget, len(targets))
	copy(sorted, targets)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].DueDate.Equal(sorted[j].DueDate) {
			return sorted[i].DueDate.Before(sorted[j].DueDate)
		}
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})
	return sorted
}

// FIFOAllocationStrategy allocates a receipt to the oldest outstanding
// invoices first, by due date then creation order
type FIFOAllocationStrategy struct {
	strategy.BaseStrategy
}

// NewFIFOAllocationStrategy creates a new FIFO allocation strategy
func NewFIFOAllocationStrategy() *FIFOAllocationStrategy {
	return &FIFOAllocationStrategy{
		BaseStrategy: strategy.NewBaseStrategy(
			"fifo_allocation",
			strategy.StrategyTypeAllocation,
			"FIFO allocation - fills oldest outstanding invoices first by due date, then creation order",
		),
	}
}

// StrategyType returns the allocation strategy type
func (s *FIFOAllocationStrategy) StrategyType() AllocationStrategyType {
	return AllocationStrategyTypeFIFO
}

// Plan allocates the amount to targets in FIFO order
func (s *FIFOAllocationStrategy) Plan(amount valueobject.Money, targets []AllocationTarget) (*AllocationPlan, error) {
	if amount.Amount().LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Allocation amount must be positive")
	}
	if len(targets) == 0 {
		return emptyPlan(amount.Amount()), nil
	}

	sorted := sortTargetsFIFO(targets)

	plan := emptyPlan(amount.Amount())
	remaining := amount.Amount()

	for _, target := range sorted {
		if remaining.IsZero() {
			break
		}
		if target.OutstandingAmount.LessThanOrEqual(decimal.Zero) {
			continue
		}

		allocAmount := decimal.Min(remaining, target.OutstandingAmount)

		plan.Lines = append(plan.Lines, AllocationLine{
			TargetID:     target.ID,
			TargetNumber: target.Number,
			Amount:       allocAmount,
		})

		plan.TotalAllocated = plan.TotalAllocated.Add(allocAmount)
		remaining = remaining.Sub(allocAmount)

		if allocAmount.GreaterThanOrEqual(target.OutstandingAmount) {
			plan.TargetsFullyPaid = append(plan.TargetsFullyPaid, target.ID)
		} else {
			plan.TargetsPartiallyPaid = append(plan.TargetsPartiallyPaid, target.ID)
		}
	}

	plan.RemainingAmount = remaining
	plan.FullyAllocated = remaining.IsZero()
	return plan, nil
}

// DirectedAllocationStrategy allocates a receipt to a single explicit invoice.
// Any amount beyond the target's outstanding balance is left unallocated, it
// never spills over to other invoices.
type DirectedAllocationStrategy struct {
	strategy.BaseStrategy
	targetID uuid.UUID
}

// NewDirectedAllocationStrategy creates a new directed allocation strategy
func NewDirectedAllocationStrategy(targetID uuid.UUID) *DirectedAllocationStrategy {
	return &DirectedAllocationStrategy{
		BaseStrategy: strategy.NewBaseStrategy(
			"directed_allocation",
			strategy.StrategyTypeAllocation,
			"Directed allocation - applies the receipt to one explicitly chosen invoice",
		),
		targetID: targetID,
	}
}

// StrategyType returns the allocation strategy type
func (s *DirectedAllocationStrategy) StrategyType() AllocationStrategyType {
	return AllocationStrategyTypeDirected
}

// TargetID returns the configured target invoice
func (s *DirectedAllocationStrategy) TargetID() uuid.UUID {
	return s.targetID
}

// Plan allocates the amount against the configured target only
func (s *DirectedAllocationStrategy) Plan(amount valueobject.Money, targets []AllocationTarget) (*AllocationPlan, error) {
	if amount.Amount().LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Allocation amount must be positive")
	}
	if s.targetID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TARGET", "Directed allocation requires a target invoice")
	}

	plan := emptyPlan(amount.Amount())

	for _, target := range targets {
		if target.ID != s.targetID {
			continue
		}
		if target.OutstandingAmount.LessThanOrEqual(decimal.Zero) {
			break
		}

		allocAmount := decimal.Min(amount.Amount(), target.OutstandingAmount)

		plan.Lines = append(plan.Lines, AllocationLine{
			TargetID:     target.ID,
			TargetNumber: target.Number,
			Amount:       allocAmount,
		})
		plan.TotalAllocated = allocAmount
		plan.RemainingAmount = amount.Amount().Sub(allocAmount)
		plan.FullyAllocated = plan.RemainingAmount.IsZero()

		if allocAmount.GreaterThanOrEqual(target.OutstandingAmount) {
			plan.TargetsFullyPaid = append(plan.TargetsFullyPaid, target.ID)
		} else {
			plan.TargetsPartiallyPaid = append(plan.TargetsPartiallyPaid, target.ID)
		}
		break
	}

	return plan, nil
}

// AllocationStrategyFactory creates allocation strategies
type AllocationStrategyFactory struct{}

// NewAllocationStrategyFactory creates a new factory
func NewAllocationStrategyFactory() *AllocationStrategyFactory {
	return &AllocationStrategyFactory{}
}

// CreateFIFOStrategy creates a FIFO allocation strategy
func (f *AllocationStrategyFactory) CreateFIFOStrategy() *FIFOAllocationStrategy {
	return NewFIFOAllocationStrategy()
}

// CreateDirectedStrategy creates a directed allocation strategy for the target
func (f *AllocationStrategyFactory) CreateDirectedStrategy(targetID uuid.UUID) *DirectedAllocationStrategy {
	return NewDirectedAllocationStrategy(targetID)
}

// StrategyForReceipt selects the strategy matching the receipt: directed when
// the receipt names an invoice, FIFO otherwise
func (f *AllocationStrategyFactory) StrategyForReceipt(r *Receipt) (AllocationStrategy, error) {
	if r == nil {
		return nil, shared.NewDomainError("INVALID_RECEIPT", "Receipt cannot be nil")
	}
	if r.IsDirected() {
		return f.CreateDirectedStrategy(*r.InvoiceID), nil
	}
	return f.CreateFIFOStrategy(), nil
}
