package ledger

import (
	"time"

	"github.com/debtflow/backend/internal/domain/shared"
	"github.com/debtflow/backend/internal/domain/shared/strategy"
	"github.com/debtflow/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentClassification segments customers by payment behavior for
// collections prioritization
type PaymentClassification string

const (
	PaymentClassificationStar     PaymentClassification = "STAR"     // On-time rate >= 80%
	PaymentClassificationRegular  PaymentClassification = "REGULAR"  // 50-79%
	PaymentClassificationRisky    PaymentClassification = "RISKY"    // 30-49%
	PaymentClassificationCritical PaymentClassification = "CRITICAL" // < 30%
)

// IsValid checks if the classification is valid
func (c PaymentClassification) IsValid() bool {
	switch c {
	case PaymentClassificationStar, PaymentClassificationRegular,
		PaymentClassificationRisky, PaymentClassificationCritical:
		return true
	}
	return false
}

// String returns the string representation
func (c PaymentClassification) String() string {
	return string(c)
}

// AllPaymentClassifications returns all classification buckets
func AllPaymentClassifications() []PaymentClassification {
	return []PaymentClassification{
		PaymentClassificationStar,
		PaymentClassificationRegular,
		PaymentClassificationRisky,
		PaymentClassificationCritical,
	}
}

// ClassifyOnTimeRate maps an on-time rate (0-100) to its classification
// bucket. A pure step function of the rate.
func ClassifyOnTimeRate(rate decimal.Decimal) PaymentClassification {
	switch {
	case rate.GreaterThanOrEqual(decimal.NewFromInt(80)):
		return PaymentClassificationStar
	case rate.GreaterThanOrEqual(decimal.NewFromInt(50)):
		return PaymentClassificationRegular
	case rate.GreaterThanOrEqual(decimal.NewFromInt(30)):
		return PaymentClassificationRisky
	default:
		return PaymentClassificationCritical
	}
}

// PaymentScoreRecord is the per-customer payment behavior record. It is
// mutated only by the classifier, on explicit recalculation.
type PaymentScoreRecord struct {
	shared.BaseAggregateRoot
	CustomerID       uuid.UUID             `json:"customer_id"`
	CustomerName     string                `json:"customer_name"`
	OnTimeRate       decimal.Decimal       `json:"on_time_rate"`
	AvgDelayDays     decimal.Decimal       `json:"avg_delay_days"`
	PaymentScore     decimal.Decimal       `json:"payment_score"`
	Classification   PaymentClassification `json:"classification"`
	PaymentCount     int                   `json:"payment_count"`
	OnTimeCount      int                   `json:"on_time_count"`
	LastCalculatedAt time.Time             `json:"last_calculated_at"`
}

// ApplyScore replaces the record's computed fields atomically
func (r *PaymentScoreRecord) ApplyScore(onTimeRate, avgDelay, score decimal.Decimal, classification PaymentClassification, paymentCount, onTimeCount int, calculatedAt time.Time) {
	r.OnTimeRate = onTimeRate
	r.AvgDelayDays = avgDelay
	r.PaymentScore = score
	r.Classification = classification
	r.PaymentCount = paymentCount
	r.OnTimeCount = onTimeCount
	r.LastCalculatedAt = calculatedAt
	r.UpdatedAt = time.Now()
	r.IncrementVersion()
}

// PaymentEvent is one settled payment observation used as classifier input:
// a tranche with its days overdue at payment time
type PaymentEvent struct {
	InvoiceID   uuid.UUID       `json:"invoice_id"`
	ReceiptID   uuid.UUID       `json:"receipt_id"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate time.Time       `json:"payment_date"`
	DueDate     time.Time       `json:"due_date"`
	DaysOverdue int             `json:"days_overdue"`
}

// PaymentHistoryFromInvoices flattens a customer's invoices into the payment
// events the classifier consumes, in allocation order
func PaymentHistoryFromInvoices(invoices []*Invoice) []PaymentEvent {
	events := make([]PaymentEvent, 0)
	for _, inv := range invoices {
		for _, alloc := range inv.Allocations {
			events = append(events, PaymentEvent{
				InvoiceID:   inv.ID,
				ReceiptID:   alloc.ReceiptID,
				Amount:      alloc.Amount,
				PaymentDate: alloc.PaymentDate,
				DueDate:     inv.DueDate,
				DaysOverdue: valueobject.DaysOverdue(alloc.PaymentDate, inv.DueDate),
			})
		}
	}
	return events
}

// ScoreWeights are the scoring policy coefficients. They are configuration,
// not domain law; the defaults match the dashboard's original tuning.
type ScoreWeights struct {
	OnTimeWeight decimal.Decimal // Weight of the on-time rate component
	DelayWeight  decimal.Decimal // Weight of the delay penalty component
	MaxDelayDays int             // Delay at or beyond which the penalty saturates
}

// DefaultScoreWeights returns the default scoring policy
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{
		OnTimeWeight: decimal.NewFromFloat(0.7),
		DelayWeight:  decimal.NewFromFloat(0.3),
		MaxDelayDays: 90,
	}
}

// Validate checks the weights are usable: non-negative, summing to 1, with a
// positive saturation point
func (w ScoreWeights) Validate() error {
	if w.OnTimeWeight.IsNegative() || w.DelayWeight.IsNegative() {
		return shared.NewDomainError("INVALID_WEIGHTS", "Score weights cannot be negative")
	}
	if !w.OnTimeWeight.Add(w.DelayWeight).Equal(decimal.NewFromInt(1)) {
		return shared.NewDomainError("INVALID_WEIGHTS", "Score weights must sum to 1")
	}
	if w.MaxDelayDays <= 0 {
		return shared.NewDomainError("INVALID_WEIGHTS", "Max delay days must be positive")
	}
	return nil
}

// BehaviorClassifier computes payment behavior records from payment history.
// With zero payments the customer has no on-time rate and is excluded from
// segment dashboards; Classify reports that as NO_PAYMENT_HISTORY.
type BehaviorClassifier struct {
	strategy.BaseStrategy
	weights ScoreWeights
}

// NewBehaviorClassifier creates a classifier with the given scoring policy
func NewBehaviorClassifier(weights ScoreWeights) (*BehaviorClassifier, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	return &BehaviorClassifier{
		BaseStrategy: strategy.NewBaseStrategy(
			"weighted_payment_score",
			strategy.StrategyTypeScoring,
			"Weighted composite of on-time rate and a saturating delay penalty",
		),
		weights: weights,
	}, nil
}

// Weights returns the configured scoring policy
func (c *BehaviorClassifier) Weights() ScoreWeights {
	return c.weights
}

// ErrNoPaymentHistory is returned when a customer has no settled payments yet
var ErrNoPaymentHistory = shared.NewDomainError("NO_PAYMENT_HISTORY", "Customer has no payment history to classify")

// Classify computes a customer's payment behavior record from their payment
// history. The score is onTimeWeight x onTimeRate plus delayWeight x a delay
// component that falls linearly from 100 to 0 as the average delay grows to
// MaxDelayDays.
func (c *BehaviorClassifier) Classify(customerID uuid.UUID, customerName string, history []PaymentEvent, calculatedAt time.Time) (*PaymentScoreRecord, error) {
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if len(history) == 0 {
		return nil, ErrNoPaymentHistory
	}

	onTime := 0
	totalDelay := decimal.Zero
	for _, e := range history {
		if e.DaysOverdue < 0 {
			return nil, shared.NewDomainError("INVALID_HISTORY", "Days overdue cannot be negative")
		}
		if e.DaysOverdue == 0 {
			onTime++
		}
		totalDelay = totalDelay.Add(decimal.NewFromInt(int64(e.DaysOverdue)))
	}

	count := decimal.NewFromInt(int64(len(history)))
	onTimeRate := decimal.NewFromInt(int64(onTime)).Div(count).Mul(decimal.NewFromInt(100)).Round(2)
	avgDelay := totalDelay.Div(count).Round(2)

	score := c.computeScore(onTimeRate, avgDelay)

	record := &PaymentScoreRecord{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		CustomerID:        customerID,
		CustomerName:      customerName,
	}
	record.ApplyScore(onTimeRate, avgDelay, score, ClassifyOnTimeRate(onTimeRate), len(history), onTime, calculatedAt)

	return record, nil
}

// computeScore blends the on-time rate with the saturating delay penalty and
// clamps the result to [0, 100]
func (c *BehaviorClassifier) computeScore(onTimeRate, avgDelay decimal.Decimal) decimal.Decimal {
	maxDelay := decimal.NewFromInt(int64(c.weights.MaxDelayDays))
	cappedDelay := decimal.Min(avgDelay, maxDelay)
	delayComponent := decimal.NewFromInt(1).Sub(cappedDelay.Div(maxDelay)).Mul(decimal.NewFromInt(100))

	score := c.weights.OnTimeWeight.Mul(onTimeRate).
		Add(c.weights.DelayWeight.Mul(delayComponent)).
		Round(2)

	if score.IsNegative() {
		return decimal.Zero
	}
	if score.GreaterThan(decimal.NewFromInt(100)) {
		return decimal.NewFromInt(100)
	}
	return score
}
