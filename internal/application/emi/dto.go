package emi

import (
	"time"

	appfinance "github.com/finledger/backend/internal/application/finance"
	"github.com/finledger/backend/internal/domain/emi"
	"github.com/finledger/backend/internal/domain/finance"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InstallmentInput describes one scheduled installment of a new plan
type InstallmentInput struct {
	DueDate time.Time       `json:"due_date"`
	Amount  decimal.Decimal `json:"amount"`
}

// CreatePlanCommand creates an installment plan with an optional down
// payment settled in the same unit of work
type CreatePlanCommand struct {
	TenantID      uuid.UUID
	BranchID      uuid.UUID
	CustomerID    uuid.UUID
	PlanNumber    string
	InvoiceID     *uuid.UUID
	Installments  []InstallmentInput
	DownPayment   decimal.Decimal
	PaymentMethod finance.PaymentMethod
	CreatedBy     *uuid.UUID
}

// PayInstallmentCommand settles an amount against a plan, targeting one
// scheduled installment
type PayInstallmentCommand struct {
	TenantID          uuid.UUID
	PlanID            uuid.UUID
	InstallmentNumber int
	Amount            decimal.Decimal
	Method            finance.PaymentMethod
	CreatedBy         *uuid.UUID
}

// ReconcileCommand settles an externally collected amount, keyed by plan
// or invoice id, as reported by a payment gateway webhook
type ReconcileCommand struct {
	TenantID   uuid.UUID
	PlanID     *uuid.UUID
	InvoiceID  *uuid.UUID
	Amount     decimal.Decimal
	GatewayRef string
}

// InstallmentView is one installment of a plan response
type InstallmentView struct {
	InstallmentNumber int                   `json:"installment_number"`
	DueDate           time.Time             `json:"due_date"`
	TotalAmount       decimal.Decimal       `json:"total_amount"`
	PaidAmount        decimal.Decimal       `json:"paid_amount"`
	PaymentStatus     emi.InstallmentStatus `json:"payment_status"`
}

// PlanResponse is the plan view returned to callers
type PlanResponse struct {
	ID             uuid.UUID         `json:"id"`
	PlanNumber     string            `json:"plan_number"`
	CustomerID     uuid.UUID         `json:"customer_id"`
	InvoiceID      *uuid.UUID        `json:"invoice_id,omitempty"`
	Installments   []InstallmentView `json:"installments"`
	TotalAmount    decimal.Decimal   `json:"total_amount"`
	BalanceAmount  decimal.Decimal   `json:"balance_amount"`
	AdvanceBalance decimal.Decimal   `json:"advance_balance"`
	Status         emi.PlanStatus    `json:"status"`
}

// ToPlanResponse maps a plan aggregate to its response view
func ToPlanResponse(p *emi.EMIPlan) *PlanResponse {
	views := make([]InstallmentView, 0, len(p.Installments))
	for i := range p.Installments {
		inst := &p.Installments[i]
		views = append(views, InstallmentView{
			InstallmentNumber: inst.InstallmentNumber,
			DueDate:           inst.DueDate,
			TotalAmount:       inst.TotalAmount,
			PaidAmount:        inst.PaidAmount,
			PaymentStatus:     inst.PaymentStatus,
		})
	}
	return &PlanResponse{
		ID:             p.ID,
		PlanNumber:     p.PlanNumber,
		CustomerID:     p.CustomerID,
		InvoiceID:      p.InvoiceID,
		Installments:   views,
		TotalAmount:    p.TotalAmount,
		BalanceAmount:  p.BalanceAmount,
		AdvanceBalance: p.AdvanceBalance,
		Status:         p.Status,
	}
}

// PaymentResult pairs the updated plan with the payment and allocation
// that produced it
type PaymentResult struct {
	Plan       *PlanResponse               `json:"plan"`
	Payment    *appfinance.PaymentResponse `json:"payment"`
	Allocation *emi.AllocationResult       `json:"allocation"`
}
