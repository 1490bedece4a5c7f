package finance

import (
	"time"

	"github.com/finledger/backend/internal/domain/finance"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseItemInput is one requested purchase line
type PurchaseItemInput struct {
	ProductID      uuid.UUID       `json:"product_id"`
	Quantity       decimal.Decimal `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
}

// CreatePurchaseCommand creates a purchase with optional initial payment
type CreatePurchaseCommand struct {
	TenantID       uuid.UUID
	BranchID       uuid.UUID
	SupplierID     uuid.UUID
	PurchaseNumber string
	Items          []PurchaseItemInput
	PaidAmount     decimal.Decimal
	PaymentMethod  finance.PaymentMethod
	CreatedBy      *uuid.UUID
}

// RecordPaymentCommand records a payment against a purchase
type RecordPaymentCommand struct {
	TenantID   uuid.UUID
	PurchaseID uuid.UUID
	Amount     decimal.Decimal
	Method     finance.PaymentMethod
	Date       time.Time
	CreatedBy  *uuid.UUID
}

// PurchaseResponse is the purchase document view returned to callers
type PurchaseResponse struct {
	ID             uuid.UUID              `json:"id"`
	PurchaseNumber string                 `json:"purchase_number"`
	SupplierID     uuid.UUID              `json:"supplier_id"`
	BranchID       uuid.UUID              `json:"branch_id"`
	Items          []finance.PurchaseItem `json:"items"`
	SubTotal       decimal.Decimal        `json:"sub_total"`
	TotalTax       decimal.Decimal        `json:"total_tax"`
	TotalDiscount  decimal.Decimal        `json:"total_discount"`
	GrandTotal     decimal.Decimal        `json:"grand_total"`
	PaidAmount     decimal.Decimal        `json:"paid_amount"`
	BalanceAmount  decimal.Decimal        `json:"balance_amount"`
	PaymentStatus  finance.PaymentStatus  `json:"payment_status"`
	Status         finance.DocumentStatus `json:"status"`
}

// ToPurchaseResponse maps a purchase aggregate to its response view
func ToPurchaseResponse(p *finance.Purchase) *PurchaseResponse {
	return &PurchaseResponse{
		ID:             p.ID,
		PurchaseNumber: p.PurchaseNumber,
		SupplierID:     p.SupplierID,
		BranchID:       p.BranchID,
		Items:          p.Items,
		SubTotal:       p.SubTotal,
		TotalTax:       p.TotalTax,
		TotalDiscount:  p.TotalDiscount,
		GrandTotal:     p.GrandTotal,
		PaidAmount:     p.PaidAmount,
		BalanceAmount:  p.BalanceAmount,
		PaymentStatus:  p.PaymentStatus,
		Status:         p.Status,
	}
}

// PaymentResponse is the payment view returned to callers
type PaymentResponse struct {
	ID            uuid.UUID             `json:"id"`
	PaymentNumber string                `json:"payment_number"`
	Type          finance.PaymentType   `json:"type"`
	Amount        decimal.Decimal       `json:"amount"`
	Method        finance.PaymentMethod `json:"method"`
	State         finance.PaymentState  `json:"state"`
	PurchaseID    *uuid.UUID            `json:"purchase_id,omitempty"`
	EMIPlanID     *uuid.UUID            `json:"emi_plan_id,omitempty"`
	PaymentDate   time.Time             `json:"payment_date"`
}

// ToPaymentResponse maps a payment aggregate to its response view
func ToPaymentResponse(p *finance.Payment) *PaymentResponse {
	return &PaymentResponse{
		ID:            p.ID,
		PaymentNumber: p.PaymentNumber,
		Type:          p.Type,
		Amount:        p.Amount,
		Method:        p.Method,
		State:         p.State,
		PurchaseID:    p.PurchaseID,
		EMIPlanID:     p.EMIPlanID,
		PaymentDate:   p.PaymentDate,
	}
}
