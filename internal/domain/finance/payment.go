package finance

import (
	"time"

	"github.com/finledger/backend/internal/domain/ledger"
	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentType is the direction of a payment
type PaymentType string

const (
	PaymentTypeInflow  PaymentType = "INFLOW"  // money received from a customer
	PaymentTypeOutflow PaymentType = "OUTFLOW" // money paid to a supplier
)

// IsValid checks if the payment type is valid
func (t PaymentType) IsValid() bool {
	return t == PaymentTypeInflow || t == PaymentTypeOutflow
}

// PaymentMethod is how a payment was settled
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodCheque       PaymentMethod = "CHEQUE"
	PaymentMethodOnline       PaymentMethod = "ONLINE"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodCheque, PaymentMethodOnline:
		return true
	}
	return false
}

// SettlementCode maps the method to the ledger account it settles against
func (m PaymentMethod) SettlementCode() string {
	if m == PaymentMethodCash {
		return ledger.CodeCash
	}
	return ledger.CodeBank
}

// PaymentState is the lifecycle state of a payment
type PaymentState string

const (
	PaymentStatePending   PaymentState = "PENDING"
	PaymentStateCompleted PaymentState = "COMPLETED"
	PaymentStateFailed    PaymentState = "FAILED"
	PaymentStateCancelled PaymentState = "CANCELLED"
)

// IsValid checks if the payment state is valid
func (s PaymentState) IsValid() bool {
	switch s {
	case PaymentStatePending, PaymentStateCompleted, PaymentStateFailed, PaymentStateCancelled:
		return true
	}
	return false
}

// PaymentAllocation records how much of a payment was applied to one
// installment of an EMI plan
type PaymentAllocation struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	PaymentID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"payment_id"`
	PlanID            uuid.UUID       `gorm:"type:uuid;not null;index" json:"plan_id"`
	InstallmentNumber int             `gorm:"not null" json:"installment_number"`
	Amount            decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
}

// TableName returns the database table name
func (PaymentAllocation) TableName() string {
	return "payment_allocations"
}

// Payment records one settlement event against a document or EMI plan.
// Payments are never deleted: cancellation flips the state and triggers a
// ledger reversal, preserving history.
type Payment struct {
	shared.TenantAggregateRoot
	PaymentNumber string              `gorm:"size:50;not null;uniqueIndex:idx_payments_tenant_number,priority:2" json:"payment_number"`
	BranchID      uuid.UUID           `gorm:"type:uuid;not null;index" json:"branch_id"`
	Type          PaymentType         `gorm:"size:10;not null" json:"type"`
	Amount        decimal.Decimal     `gorm:"type:decimal(18,2);not null" json:"amount"`
	Method        PaymentMethod       `gorm:"size:20;not null" json:"method"`
	State         PaymentState        `gorm:"size:20;not null;default:'PENDING'" json:"state"`
	CustomerID    *uuid.UUID          `gorm:"type:uuid;index" json:"customer_id,omitempty"`
	SupplierID    *uuid.UUID          `gorm:"type:uuid;index" json:"supplier_id,omitempty"`
	PurchaseID    *uuid.UUID          `gorm:"type:uuid;index" json:"purchase_id,omitempty"`
	InvoiceID     *uuid.UUID          `gorm:"type:uuid;index" json:"invoice_id,omitempty"`
	EMIPlanID     *uuid.UUID          `gorm:"type:uuid;index" json:"emi_plan_id,omitempty"`
	Allocations   []PaymentAllocation `gorm:"foreignKey:PaymentID" json:"allocations,omitempty"`
	PaymentDate   time.Time           `gorm:"not null" json:"payment_date"`
	GatewayRef    string              `gorm:"size:100" json:"gateway_ref,omitempty"`
	CancelledAt   *time.Time          `json:"cancelled_at,omitempty"`
}

// TableName returns the database table name
func (Payment) TableName() string {
	return "payments"
}

// NewPayment creates a payment in PENDING state
func NewPayment(tenantID, branchID uuid.UUID, number string, paymentType PaymentType, amount valueobject.Money, method PaymentMethod, date time.Time) (*Payment, error) {
	if number == "" {
		return nil, shared.NewValidationError("payment number cannot be empty")
	}
	if !paymentType.IsValid() {
		return nil, shared.NewValidationError("invalid payment type %q", paymentType)
	}
	if !method.IsValid() {
		return nil, shared.NewValidationError("invalid payment method %q", method)
	}
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("payment amount must be positive, got %s", amount)
	}
	if date.IsZero() {
		date = time.Now()
	}

	return &Payment{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		PaymentNumber:       number,
		BranchID:            branchID,
		Type:                paymentType,
		Amount:              amount.Round().Amount(),
		Method:              method,
		State:               PaymentStatePending,
		PaymentDate:         date,
	}, nil
}

// AmountMoney returns the payment amount as Money
func (p *Payment) AmountMoney() valueobject.Money {
	return valueobject.NewMoney(p.Amount)
}

// Complete marks the payment as settled
func (p *Payment) Complete() error {
	if p.State != PaymentStatePending {
		return shared.NewConflictError("payment %s cannot complete from state %s", p.ID, p.State)
	}
	p.State = PaymentStateCompleted
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
	return nil
}

// Cancel marks the payment as cancelled; the caller is responsible for
// posting the compensating ledger entries in the same unit of work.
func (p *Payment) Cancel() error {
	if p.State == PaymentStateCancelled {
		return shared.NewConflictError("payment %s is already cancelled", p.ID)
	}
	if p.State == PaymentStateFailed {
		return shared.NewConflictError("payment %s failed and has nothing to cancel", p.ID)
	}
	now := time.Now()
	p.State = PaymentStateCancelled
	p.CancelledAt = &now
	p.UpdatedAt = now
	p.IncrementVersion()
	return nil
}

// AddAllocation records one installment allocation on the payment
func (p *Payment) AddAllocation(planID uuid.UUID, installmentNumber int, amount decimal.Decimal) {
	p.Allocations = append(p.Allocations, PaymentAllocation{
		ID:                uuid.New(),
		PaymentID:         p.ID,
		PlanID:            planID,
		InstallmentNumber: installmentNumber,
		Amount:            amount,
	})
}
