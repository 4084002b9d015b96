package models

import (
	"time"

	"github.com/debtflow/backend/internal/domain/ledger"
	"github.com/debtflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceModel is the persistence model for the Invoice aggregate root.
type InvoiceModel struct {
	AggregateModel
	InvoiceNumber   string                   `gorm:"type:varchar(50);not null;uniqueIndex:idx_invoice_number"`
	CustomerID      uuid.UUID                `gorm:"type:uuid;not null;index"`
	CustomerName    string                   `gorm:"type:varchar(200);not null"`
	InvoiceDate     time.Time                `gorm:"not null;index"`
	DueDate         time.Time                `gorm:"not null;index"`
	DueDateManual   bool                     `gorm:"not null;default:false"`
	PaymentTermDays int                      `gorm:"not null;default:0"`
	Amount          decimal.Decimal          `gorm:"type:decimal(18,4);not null"`
	CostBasis       decimal.Decimal          `gorm:"type:decimal(18,4);not null"`
	InterestRatePct decimal.Decimal          `gorm:"type:decimal(8,4);not null"`
	PaidAmount      decimal.Decimal          `gorm:"type:decimal(18,4);not null"`
	Outstanding     decimal.Decimal          `gorm:"type:decimal(18,4);not null;index"`
	Status          ledger.InvoiceStatus     `gorm:"type:varchar(20);not null;default:'UNPAID';index"`
	Allocations     ledger.AllocationRecords `gorm:"type:jsonb;default:'[]'"`
	Remark          string                   `gorm:"type:text"`
	PaidAt          *time.Time
	CancelledAt     *time.Time
	CancelReason    string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice entity.
func (m *InvoiceModel) ToDomain() *ledger.Invoice {
	return &ledger.Invoice{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		InvoiceNumber:   m.InvoiceNumber,
		CustomerID:      m.CustomerID,
		CustomerName:    m.CustomerName,
		InvoiceDate:     m.InvoiceDate,
		DueDate:         m.DueDate,
		DueDateManual:   m.DueDateManual,
		PaymentTermDays: m.PaymentTermDays,
		Amount:          m.Amount,
		CostBasis:       m.CostBasis,
		InterestRatePct: m.InterestRatePct,
		PaidAmount:      m.PaidAmount,
		Outstanding:     m.Outstanding,
		Status:          m.Status,
		Allocations:     m.Allocations,
		Remark:          m.Remark,
		PaidAt:          m.PaidAt,
		CancelledAt:     m.CancelledAt,
		CancelReason:    m.CancelReason,
	}
}

// FromDomain populates the persistence model from a domain Invoice entity.
func (m *InvoiceModel) FromDomain(inv *ledger.Invoice) {
	m.FromDomainAggregateRoot(inv.BaseAggregateRoot)
	m.InvoiceNumber = inv.InvoiceNumber
	m.CustomerID = inv.CustomerID
	m.CustomerName = inv.CustomerName
	m.InvoiceDate = inv.InvoiceDate
	m.DueDate = inv.DueDate
	m.DueDateManual = inv.DueDateManual
	m.PaymentTermDays = inv.PaymentTermDays
	m.Amount = inv.Amount
	m.CostBasis = inv.CostBasis
	m.InterestRatePct = inv.InterestRatePct
	m.PaidAmount = inv.PaidAmount
	m.Outstanding = inv.Outstanding
	m.Status = inv.Status
	m.Allocations = inv.Allocations
	m.Remark = inv.Remark
	m.PaidAt = inv.PaidAt
	m.CancelledAt = inv.CancelledAt
	m.CancelReason = inv.CancelReason
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice.
func InvoiceModelFromDomain(inv *ledger.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(inv)
	return m
}

// ReceiptModel is the persistence model for the Receipt aggregate root.
type ReceiptModel struct {
	AggregateModel
	ReceiptNumber     string               `gorm:"type:varchar(50);not null;uniqueIndex:idx_receipt_number"`
	CustomerID        uuid.UUID            `gorm:"type:uuid;not null;index"`
	CustomerName      string               `gorm:"type:varchar(200);not null"`
	Amount            decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	PaymentDate       time.Time            `gorm:"not null;index"`
	PaymentMethod     ledger.PaymentMethod `gorm:"type:varchar(30);not null"`
	PaymentReference  string               `gorm:"type:varchar(100)"`
	InvoiceID         *uuid.UUID           `gorm:"type:uuid;index"`
	AllocatedAmount   decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	UnallocatedAmount decimal.Decimal      `gorm:"type:decimal(18,4);not null;index"`
	Remark            string               `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (ReceiptModel) TableName() string {
	return "receipts"
}

// ToDomain converts the persistence model to a domain Receipt entity.
func (m *ReceiptModel) ToDomain() *ledger.Receipt {
	return &ledger.Receipt{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		ReceiptNumber:     m.ReceiptNumber,
		CustomerID:        m.CustomerID,
		CustomerName:      m.CustomerName,
		Amount:            m.Amount,
		PaymentDate:       m.PaymentDate,
		PaymentMethod:     m.PaymentMethod,
		PaymentReference:  m.PaymentReference,
		InvoiceID:         m.InvoiceID,
		AllocatedAmount:   m.AllocatedAmount,
		UnallocatedAmount: m.UnallocatedAmount,
		Remark:            m.Remark,
	}
}

// FromDomain populates the persistence model from a domain Receipt entity.
func (m *ReceiptModel) FromDomain(r *ledger.Receipt) {
	m.FromDomainAggregateRoot(r.BaseAggregateRoot)
	m.ReceiptNumber = r.ReceiptNumber
	m.CustomerID = r.CustomerID
	m.CustomerName = r.CustomerName
	m.Amount = r.Amount
	m.PaymentDate = r.PaymentDate
	m.PaymentMethod = r.PaymentMethod
	m.PaymentReference = r.PaymentReference
	m.InvoiceID = r.InvoiceID
	m.AllocatedAmount = r.AllocatedAmount
	m.UnallocatedAmount = r.UnallocatedAmount
	m.Remark = r.Remark
}

// ReceiptModelFromDomain creates a new persistence model from a domain Receipt.
func ReceiptModelFromDomain(r *ledger.Receipt) *ReceiptModel {
	m := &ReceiptModel{}
	m.FromDomain(r)
	return m
}

// CreditProfileModel is the persistence model for the CustomerCreditProfile aggregate root.
type CreditProfileModel struct {
	AggregateModel
	CustomerID             uuid.UUID               `gorm:"type:uuid;not null;uniqueIndex:idx_credit_profile_customer"`
	CustomerName           string                  `gorm:"type:varchar(200);not null"`
	Category               ledger.CustomerCategory `gorm:"type:varchar(30);not null;index"`
	CreditLimit            decimal.Decimal         `gorm:"type:decimal(18,4);not null"`
	CategoryOpeningBalance decimal.Decimal         `gorm:"type:decimal(18,4);not null"`
	CustomerOpeningBalance decimal.Decimal         `gorm:"type:decimal(18,4);not null"`
	InterestRatePct        decimal.Decimal         `gorm:"type:decimal(8,4);not null"`
	InterestAnchorDate     *time.Time
}

// TableName returns the table name for GORM
func (CreditProfileModel) TableName() string {
	return "customer_credit_profiles"
}

// ToDomain converts the persistence model to a domain CustomerCreditProfile entity.
func (m *CreditProfileModel) ToDomain() *ledger.CustomerCreditProfile {
	return &ledger.CustomerCreditProfile{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		CustomerID:             m.CustomerID,
		CustomerName:           m.CustomerName,
		Category:               m.Category,
		CreditLimit:            m.CreditLimit,
		CategoryOpeningBalance: m.CategoryOpeningBalance,
		CustomerOpeningBalance: m.CustomerOpeningBalance,
		InterestRatePct:        m.InterestRatePct,
		InterestAnchorDate:     m.InterestAnchorDate,
	}
}

// FromDomain populates the persistence model from a domain CustomerCreditProfile entity.
func (m *CreditProfileModel) FromDomain(p *ledger.CustomerCreditProfile) {
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	m.CustomerID = p.CustomerID
	m.CustomerName = p.CustomerName
	m.Category = p.Category
	m.CreditLimit = p.CreditLimit
	m.CategoryOpeningBalance = p.CategoryOpeningBalance
	m.CustomerOpeningBalance = p.CustomerOpeningBalance
	m.InterestRatePct = p.InterestRatePct
	m.InterestAnchorDate = p.InterestAnchorDate
}

// CreditProfileModelFromDomain creates a new persistence model from a domain CustomerCreditProfile.
func CreditProfileModelFromDomain(p *ledger.CustomerCreditProfile) *CreditProfileModel {
	m := &CreditProfileModel{}
	m.FromDomain(p)
	return m
}

// PaymentScoreModel is the persistence model for the PaymentScoreRecord aggregate root.
type PaymentScoreModel struct {
	AggregateModel
	CustomerID       uuid.UUID                    `gorm:"type:uuid;not null;uniqueIndex:idx_payment_score_customer"`
	CustomerName     string                       `gorm:"type:varchar(200);not null"`
	OnTimeRate       decimal.Decimal              `gorm:"type:decimal(8,4);not null"`
	AvgDelayDays     decimal.Decimal              `gorm:"type:decimal(8,2);not null"`
	PaymentScore     decimal.Decimal              `gorm:"type:decimal(8,2);not null;index"`
	Classification   ledger.PaymentClassification `gorm:"type:varchar(20);not null;index"`
	PaymentCount     int                          `gorm:"not null"`
	OnTimeCount      int                          `gorm:"not null"`
	LastCalculatedAt time.Time                    `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PaymentScoreModel) TableName() string {
	return "payment_scores"
}

// ToDomain converts the persistence model to a domain PaymentScoreRecord entity.
func (m *PaymentScoreModel) ToDomain() *ledger.PaymentScoreRecord {
	return &ledger.PaymentScoreRecord{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		CustomerID:       m.CustomerID,
		CustomerName:     m.CustomerName,
		OnTimeRate:       m.OnTimeRate,
		AvgDelayDays:     m.AvgDelayDays,
		PaymentScore:     m.PaymentScore,
		Classification:   m.Classification,
		PaymentCount:     m.PaymentCount,
		OnTimeCount:      m.OnTimeCount,
		LastCalculatedAt: m.LastCalculatedAt,
	}
}

// FromDomain populates the persistence model from a domain PaymentScoreRecord entity.
func (m *PaymentScoreModel) FromDomain(r *ledger.PaymentScoreRecord) {
	m.FromDomainAggregateRoot(r.BaseAggregateRoot)
	m.CustomerID = r.CustomerID
	m.CustomerName = r.CustomerName
	m.OnTimeRate = r.OnTimeRate
	m.AvgDelayDays = r.AvgDelayDays
	m.PaymentScore = r.PaymentScore
	m.Classification = r.Classification
	m.PaymentCount = r.PaymentCount
	m.OnTimeCount = r.OnTimeCount
	m.LastCalculatedAt = r.LastCalculatedAt
}

// PaymentScoreModelFromDomain creates a new persistence model from a domain PaymentScoreRecord.
func PaymentScoreModelFromDomain(r *ledger.PaymentScoreRecord) *PaymentScoreModel {
	m := &PaymentScoreModel{}
	m.FromDomain(r)
	return m
}
