package emi

import (
	"sort"
	"time"

	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InstallmentStatus is the payment state of one installment
type InstallmentStatus string

const (
	InstallmentStatusPending InstallmentStatus = "PENDING"
	InstallmentStatusPartial InstallmentStatus = "PARTIAL"
	InstallmentStatusPaid    InstallmentStatus = "PAID"
	InstallmentStatusOverdue InstallmentStatus = "OVERDUE"
)

// IsValid checks if the status is a valid InstallmentStatus
func (s InstallmentStatus) IsValid() bool {
	switch s {
	case InstallmentStatusPending, InstallmentStatusPartial, InstallmentStatusPaid, InstallmentStatusOverdue:
		return true
	}
	return false
}

// String returns the string representation of InstallmentStatus
func (s InstallmentStatus) String() string {
	return string(s)
}

// PlanStatus is the lifecycle state of an EMI plan
type PlanStatus string

const (
	PlanStatusActive    PlanStatus = "ACTIVE"
	PlanStatusCompleted PlanStatus = "COMPLETED"
	PlanStatusDefaulted PlanStatus = "DEFAULTED"
)

// IsValid checks if the status is a valid PlanStatus
func (s PlanStatus) IsValid() bool {
	switch s {
	case PlanStatusActive, PlanStatusCompleted, PlanStatusDefaulted:
		return true
	}
	return false
}

// Installment is one scheduled partial obligation of an EMI plan
type Installment struct {
	ID                uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	PlanID            uuid.UUID         `gorm:"type:uuid;not null;index" json:"plan_id"`
	InstallmentNumber int               `gorm:"not null" json:"installment_number"`
	DueDate           time.Time         `gorm:"not null" json:"due_date"`
	TotalAmount       decimal.Decimal   `gorm:"type:decimal(18,2);not null" json:"total_amount"`
	PaidAmount        decimal.Decimal   `gorm:"type:decimal(18,2);not null;default:0" json:"paid_amount"`
	PaymentStatus     InstallmentStatus `gorm:"size:20;not null;default:'PENDING'" json:"payment_status"`
}

// TableName returns the database table name
func (Installment) TableName() string {
	return "emi_installments"
}

// PendingAmount returns how much of the installment remains unpaid
func (i *Installment) PendingAmount() valueobject.Money {
	return valueobject.NewMoney(i.TotalAmount).Subtract(valueobject.NewMoney(i.PaidAmount)).ClampNonNegative()
}

// IsSettled returns true once the installment has nothing pending
func (i *Installment) IsSettled() bool {
	return i.PaymentStatus == InstallmentStatusPaid
}

// apply credits amount against the installment and refreshes its status.
// The amount must already be capped at the pending amount: an installment
// never holds more than its total beyond the rounding tolerance.
func (i *Installment) apply(amount valueobject.Money) {
	i.PaidAmount = i.PaidAmount.Add(amount.Amount()).Round(valueobject.RoundingPlaces)
	if valueobject.NewMoney(i.PaidAmount).EqualsWithinEpsilon(valueobject.NewMoney(i.TotalAmount)) {
		i.PaidAmount = i.TotalAmount
		i.PaymentStatus = InstallmentStatusPaid
	} else {
		i.PaymentStatus = InstallmentStatusPartial
	}
}

// AppliedInstallment reports one slice of an allocation result
type AppliedInstallment struct {
	InstallmentNumber int             `json:"installment_number"`
	Applied           decimal.Decimal `json:"applied"`
	PaymentStatus     InstallmentStatus `json:"payment_status"`
}

// AllocationResult reports how an incoming amount was distributed
type AllocationResult struct {
	Applied      []AppliedInstallment `json:"applied"`
	AdvanceDelta decimal.Decimal      `json:"advance_delta"`
}

// EMIPlan is an ordered installment schedule for one customer document.
// Allocation always proceeds oldest-first by installment number.
type EMIPlan struct {
	shared.TenantAggregateRoot
	PlanNumber     string          `gorm:"size:50;not null;uniqueIndex:idx_emi_plans_tenant_number,priority:2" json:"plan_number"`
	BranchID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"branch_id"`
	CustomerID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"customer_id"`
	InvoiceID      *uuid.UUID      `gorm:"type:uuid;index" json:"invoice_id,omitempty"`
	Installments   []Installment   `gorm:"foreignKey:PlanID" json:"installments"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"total_amount"`
	BalanceAmount  decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"balance_amount"`
	AdvanceBalance decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"advance_balance"`
	Status         PlanStatus      `gorm:"size:20;not null;default:'ACTIVE'" json:"status"`
}

// TableName returns the database table name
func (EMIPlan) TableName() string {
	return "emi_plans"
}

// InstallmentSpec describes one installment when creating a plan
type InstallmentSpec struct {
	DueDate time.Time
	Amount  decimal.Decimal
}

// NewEMIPlan creates an active plan with a numbered installment schedule
func NewEMIPlan(tenantID, branchID, customerID uuid.UUID, planNumber string, specs []InstallmentSpec) (*EMIPlan, error) {
	if planNumber == "" {
		return nil, shared.NewValidationError("plan number cannot be empty")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewValidationError("plan requires a customer id")
	}
	if len(specs) == 0 {
		return nil, shared.NewValidationError("plan %s requires at least one installment", planNumber)
	}

	plan := &EMIPlan{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		PlanNumber:          planNumber,
		BranchID:            branchID,
		CustomerID:          customerID,
		Status:              PlanStatusActive,
		AdvanceBalance:      decimal.Zero,
	}

	total := decimal.Zero
	for n, spec := range specs {
		if !spec.Amount.IsPositive() {
			return nil, shared.NewValidationError("installment %d amount must be positive, got %s", n+1, spec.Amount)
		}
		plan.Installments = append(plan.Installments, Installment{
			ID:                uuid.New(),
			PlanID:            plan.ID,
			InstallmentNumber: n + 1,
			DueDate:           spec.DueDate,
			TotalAmount:       spec.Amount.Round(valueobject.RoundingPlaces),
			PaidAmount:        decimal.Zero,
			PaymentStatus:     InstallmentStatusPending,
		})
		total = total.Add(spec.Amount)
	}
	plan.TotalAmount = total.Round(valueobject.RoundingPlaces)
	plan.BalanceAmount = plan.TotalAmount

	return plan, nil
}

// ordered returns installment indexes sorted ascending by number
func (p *EMIPlan) ordered() []int {
	idx := make([]int, len(p.Installments))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		return p.Installments[idx[a]].InstallmentNumber < p.Installments[idx[b]].InstallmentNumber
	})
	return idx
}

// refresh re-derives balance and plan status from the installments
func (p *EMIPlan) refresh() {
	balance := decimal.Zero
	allPaid := true
	for i := range p.Installments {
		balance = balance.Add(p.Installments[i].PendingAmount().Amount())
		if !p.Installments[i].IsSettled() {
			allPaid = false
		}
	}
	p.BalanceAmount = balance.Round(valueobject.RoundingPlaces)
	if allPaid && p.Status == PlanStatusActive {
		p.Status = PlanStatusCompleted
	}
	p.UpdatedAt = time.Now()
}

// Allocate applies an incoming amount across the schedule oldest-first,
// skipping settled installments. Any surplus after the whole schedule is
// covered is carried to AdvanceBalance rather than lost or rejected.
func (p *EMIPlan) Allocate(incoming valueobject.Money) (*AllocationResult, error) {
	if p.Status == PlanStatusCompleted {
		return nil, shared.NewConflictError("plan %s is completed and cannot accept payments", p.ID)
	}
	if !incoming.IsPositive() {
		return nil, shared.NewValidationError("allocation amount must be positive, got %s", incoming)
	}

	result := &AllocationResult{Applied: make([]AppliedInstallment, 0), AdvanceDelta: decimal.Zero}
	remaining := incoming

	for _, i := range p.ordered() {
		inst := &p.Installments[i]
		if inst.IsSettled() {
			continue
		}
		if !remaining.IsPositive() {
			break
		}
		slice := remaining.Min(inst.PendingAmount())
		inst.apply(slice)
		remaining = remaining.Subtract(slice)
		result.Applied = append(result.Applied, AppliedInstallment{
			InstallmentNumber: inst.InstallmentNumber,
			Applied:           slice.Round().Amount(),
			PaymentStatus:     inst.PaymentStatus,
		})
	}

	if remaining.IsPositive() {
		p.AdvanceBalance = p.AdvanceBalance.Add(remaining.Amount()).Round(valueobject.RoundingPlaces)
		result.AdvanceDelta = remaining.Round().Amount()
	}

	p.refresh()
	p.IncrementVersion()
	return result, nil
}

// ApplyAdvance draws down the plan's advance balance against one target
// installment, capped at that installment's pending amount.
func (p *EMIPlan) ApplyAdvance(installmentNumber int) (valueobject.Money, error) {
	if !p.AdvanceBalance.IsPositive() {
		return valueobject.Zero(), shared.NewConflictError("plan %s has no advance balance to apply", p.ID)
	}

	for _, i := range p.ordered() {
		inst := &p.Installments[i]
		if inst.InstallmentNumber != installmentNumber {
			continue
		}
		if inst.IsSettled() {
			return valueobject.Zero(), shared.NewConflictError("installment %d of plan %s is already paid", installmentNumber, p.ID)
		}
		draw := valueobject.NewMoney(p.AdvanceBalance).Min(inst.PendingAmount())
		inst.apply(draw)
		p.AdvanceBalance = p.AdvanceBalance.Sub(draw.Amount()).Round(valueobject.RoundingPlaces)
		p.refresh()
		p.IncrementVersion()
		return draw, nil
	}

	return valueobject.Zero(), shared.NewNotFoundError("plan %s has no installment %d", p.ID, installmentNumber)
}

// AllocationReversal describes undoing one applied allocation slice
type AllocationReversal struct {
	InstallmentNumber int
	Amount            decimal.Decimal
}

// RevertAllocations backs out previously applied slices when the payment
// that produced them is deleted. Each installment gives back exactly
// what the deleted payment contributed; any surplus the payment carried
// into AdvanceBalance is drawn back out. A completed plan reopens.
func (p *EMIPlan) RevertAllocations(reversals []AllocationReversal, advanceDelta decimal.Decimal) error {
	for _, rev := range reversals {
		if !rev.Amount.IsPositive() {
			return shared.NewValidationError("reversal amount for installment %d must be positive, got %s", rev.InstallmentNumber, rev.Amount)
		}
		found := false
		for i := range p.Installments {
			inst := &p.Installments[i]
			if inst.InstallmentNumber != rev.InstallmentNumber {
				continue
			}
			found = true
			if rev.Amount.GreaterThan(inst.PaidAmount) {
				return shared.NewConflictError("cannot revert %s from installment %d: only %s paid", rev.Amount, rev.InstallmentNumber, inst.PaidAmount)
			}
			inst.PaidAmount = inst.PaidAmount.Sub(rev.Amount).Round(valueobject.RoundingPlaces)
			switch {
			case !inst.PaidAmount.IsPositive():
				inst.PaidAmount = decimal.Zero
				inst.PaymentStatus = InstallmentStatusPending
			default:
				inst.PaymentStatus = InstallmentStatusPartial
			}
		}
		if !found {
			return shared.NewNotFoundError("plan %s has no installment %d", p.ID, rev.InstallmentNumber)
		}
	}

	if advanceDelta.IsPositive() {
		if advanceDelta.GreaterThan(p.AdvanceBalance) {
			return shared.NewConflictError("cannot draw %s back from advance balance %s", advanceDelta, p.AdvanceBalance)
		}
		p.AdvanceBalance = p.AdvanceBalance.Sub(advanceDelta).Round(valueobject.RoundingPlaces)
	}

	if p.Status == PlanStatusCompleted {
		p.Status = PlanStatusActive
	}
	p.refresh()
	p.IncrementVersion()
	return nil
}

// MarkOverdue transitions past-due pending/partial installments to
// overdue. Externally triggered; allocation itself never changes due
// state. Returns the numbers that transitioned.
func (p *EMIPlan) MarkOverdue(now time.Time) []int {
	var flipped []int
	for i := range p.Installments {
		inst := &p.Installments[i]
		if inst.PaymentStatus != InstallmentStatusPending && inst.PaymentStatus != InstallmentStatusPartial {
			continue
		}
		if inst.DueDate.Before(now) {
			inst.PaymentStatus = InstallmentStatusOverdue
			flipped = append(flipped, inst.InstallmentNumber)
		}
	}
	if len(flipped) > 0 {
		p.UpdatedAt = time.Now()
		p.IncrementVersion()
	}
	return flipped
}

// MarkDefaulted transitions an active plan with any non-paid overdue
// installment to defaulted. Externally triggered.
func (p *EMIPlan) MarkDefaulted() error {
	if p.Status != PlanStatusActive {
		return shared.NewConflictError("plan %s cannot default from status %s", p.ID, p.Status)
	}
	for i := range p.Installments {
		if p.Installments[i].PaymentStatus == InstallmentStatusOverdue {
			p.Status = PlanStatusDefaulted
			p.UpdatedAt = time.Now()
			p.IncrementVersion()
			return nil
		}
	}
	return shared.NewConflictError("plan %s has no overdue installments", p.ID)
}
