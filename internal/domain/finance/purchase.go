package finance

import (
	"time"

	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentStatus is the lifecycle state shared by financial documents
type DocumentStatus string

const (
	DocumentStatusDraft     DocumentStatus = "DRAFT"
	DocumentStatusReceived  DocumentStatus = "RECEIVED"
	DocumentStatusCancelled DocumentStatus = "CANCELLED"
)

// IsValid checks if the status is a valid DocumentStatus
func (s DocumentStatus) IsValid() bool {
	switch s {
	case DocumentStatusDraft, DocumentStatusReceived, DocumentStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of DocumentStatus
func (s DocumentStatus) String() string {
	return string(s)
}

// IsTerminal returns true for terminal states
func (s DocumentStatus) IsTerminal() bool {
	return s == DocumentStatusCancelled
}

// PurchaseItem is one line of a purchase document
type PurchaseItem struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	PurchaseID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"purchase_id"`
	ProductID      uuid.UUID       `gorm:"type:uuid;not null" json:"product_id"`
	Quantity       decimal.Decimal `gorm:"type:decimal(18,3);not null" json:"quantity"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"unit_price"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"tax_amount"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"discount_amount"`
	LineTotal      decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"line_total"`
}

// TableName returns the database table name
func (PurchaseItem) TableName() string {
	return "purchase_items"
}

// NewPurchaseItem creates a purchase line and computes its total
func NewPurchaseItem(productID uuid.UUID, quantity, unitPrice, taxAmount, discountAmount decimal.Decimal) (*PurchaseItem, error) {
	if productID == uuid.Nil {
		return nil, shared.NewValidationError("purchase item requires a product id")
	}
	if !quantity.IsPositive() {
		return nil, shared.NewValidationError("purchase item quantity must be positive, got %s", quantity)
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewValidationError("purchase item unit price cannot be negative, got %s", unitPrice)
	}
	if taxAmount.IsNegative() || discountAmount.IsNegative() {
		return nil, shared.NewValidationError("purchase item tax and discount cannot be negative")
	}

	lineTotal := quantity.Mul(unitPrice).Sub(discountAmount).Add(taxAmount).Round(valueobject.RoundingPlaces)
	if lineTotal.IsNegative() {
		return nil, shared.NewValidationError("purchase item discount %s exceeds line value", discountAmount)
	}

	return &PurchaseItem{
		ID:             uuid.New(),
		ProductID:      productID,
		Quantity:       quantity,
		UnitPrice:      unitPrice,
		TaxAmount:      taxAmount,
		DiscountAmount: discountAmount,
		LineTotal:      lineTotal,
	}, nil
}

// Purchase is a financial document recording goods received from a
// supplier. Its monetary aggregates (paidAmount, balanceAmount,
// paymentStatus) are mutated only through the orchestrated services,
// never by direct field edits once payments exist.
type Purchase struct {
	shared.TenantAggregateRoot
	PurchaseNumber string          `gorm:"size:50;not null;uniqueIndex:idx_purchases_tenant_number,priority:2" json:"purchase_number"`
	BranchID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"branch_id"`
	SupplierID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"supplier_id"`
	Items          []PurchaseItem  `gorm:"foreignKey:PurchaseID" json:"items"`
	SubTotal       decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"sub_total"`
	TotalTax       decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"total_tax"`
	TotalDiscount  decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"total_discount"`
	GrandTotal     decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"grand_total"`
	PaidAmount     decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"paid_amount"`
	BalanceAmount  decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"balance_amount"`
	PaymentStatus  PaymentStatus   `gorm:"size:20;not null;default:'UNPAID'" json:"payment_status"`
	Status         DocumentStatus  `gorm:"size:20;not null;default:'DRAFT'" json:"status"`
	PurchaseDate   time.Time       `gorm:"not null" json:"purchase_date"`
	CancelledAt    *time.Time      `json:"cancelled_at,omitempty"`
	CancelReason   string          `gorm:"size:255" json:"cancel_reason,omitempty"`
}

// TableName returns the database table name
func (Purchase) TableName() string {
	return "purchases"
}

// NewPurchase creates a purchase in RECEIVED state with computed totals
func NewPurchase(tenantID, branchID, supplierID uuid.UUID, purchaseNumber string, items []PurchaseItem) (*Purchase, error) {
	if purchaseNumber == "" {
		return nil, shared.NewValidationError("purchase number cannot be empty")
	}
	if branchID == uuid.Nil {
		return nil, shared.NewValidationError("purchase requires a branch id")
	}
	if supplierID == uuid.Nil {
		return nil, shared.NewValidationError("purchase requires a supplier id")
	}
	if len(items) == 0 {
		return nil, shared.NewValidationError("purchase %s requires at least one item", purchaseNumber)
	}

	p := &Purchase{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		PurchaseNumber:      purchaseNumber,
		BranchID:            branchID,
		SupplierID:          supplierID,
		Status:              DocumentStatusReceived,
		PurchaseDate:        time.Now(),
		PaidAmount:          decimal.Zero,
	}

	subTotal, totalTax, totalDiscount := decimal.Zero, decimal.Zero, decimal.Zero
	for i := range items {
		items[i].PurchaseID = p.ID
		subTotal = subTotal.Add(items[i].Quantity.Mul(items[i].UnitPrice))
		totalTax = totalTax.Add(items[i].TaxAmount)
		totalDiscount = totalDiscount.Add(items[i].DiscountAmount)
	}
	p.Items = items
	p.SubTotal = subTotal.Round(valueobject.RoundingPlaces)
	p.TotalTax = totalTax.Round(valueobject.RoundingPlaces)
	p.TotalDiscount = totalDiscount.Round(valueobject.RoundingPlaces)
	p.GrandTotal = p.SubTotal.Sub(p.TotalDiscount).Add(p.TotalTax).Round(valueobject.RoundingPlaces)
	if !p.GrandTotal.IsPositive() {
		return nil, shared.NewValidationError("purchase %s grand total must be positive, got %s", purchaseNumber, p.GrandTotal)
	}
	p.recompute()

	return p, nil
}

// recompute re-derives balanceAmount and paymentStatus from the stored
// paid/grand totals: balance = max(0, grandTotal - paidAmount).
func (p *Purchase) recompute() {
	balance := valueobject.NewMoney(p.GrandTotal).Subtract(valueobject.NewMoney(p.PaidAmount)).ClampNonNegative()
	p.BalanceAmount = balance.Round().Amount()
	p.PaymentStatus = PaymentStatusFor(valueobject.NewMoney(p.PaidAmount), valueobject.NewMoney(p.GrandTotal))
}

// GrandTotalMoney returns the grand total as Money
func (p *Purchase) GrandTotalMoney() valueobject.Money {
	return valueobject.NewMoney(p.GrandTotal)
}

// BalanceMoney returns the remaining balance as Money
func (p *Purchase) BalanceMoney() valueobject.Money {
	return valueobject.NewMoney(p.BalanceAmount)
}

// HasPayments returns true when any amount has been settled
func (p *Purchase) HasPayments() bool {
	return p.PaidAmount.IsPositive()
}

// ApplyPayment increases paidAmount. A payment exceeding the remaining
// balance beyond the epsilon tolerance is a conflict.
func (p *Purchase) ApplyPayment(amount valueobject.Money) error {
	if p.Status.IsTerminal() {
		return shared.NewConflictError("purchase %s is cancelled and cannot accept payments", p.ID)
	}
	if !amount.IsPositive() {
		return shared.NewValidationError("payment amount must be positive, got %s", amount)
	}
	remaining := p.BalanceMoney()
	if amount.GreaterThan(remaining) && !amount.EqualsWithinEpsilon(remaining) {
		return shared.NewConflictError("payment %s exceeds remaining balance %s on purchase %s", amount, remaining, p.ID)
	}

	p.PaidAmount = p.PaidAmount.Add(amount.Amount()).Round(valueobject.RoundingPlaces)
	p.recompute()
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
	return nil
}

// RevertPayment decreases paidAmount as part of a payment reversal
func (p *Purchase) RevertPayment(amount valueobject.Money) error {
	if !amount.IsPositive() {
		return shared.NewValidationError("reverted amount must be positive, got %s", amount)
	}
	if amount.GreaterThan(valueobject.NewMoney(p.PaidAmount)) {
		return shared.NewConflictError("cannot revert %s: purchase %s has only %s paid", amount, p.ID, p.PaidAmount)
	}

	p.PaidAmount = p.PaidAmount.Sub(amount.Amount()).Round(valueobject.RoundingPlaces)
	p.recompute()
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
	return nil
}

// Cancel transitions the purchase to its terminal state. Cancellation is
// blocked while any paid amount remains: payments must be refunded or
// deleted first so the compensation stays complete.
func (p *Purchase) Cancel(reason string) error {
	if p.Status == DocumentStatusCancelled {
		return shared.NewConflictError("purchase %s is already cancelled", p.ID)
	}
	if p.HasPayments() {
		return shared.NewConflictError("purchase %s has %s paid; delete its payments before cancelling", p.ID, p.PaidAmount)
	}
	if reason == "" {
		return shared.NewValidationError("cancel reason is required")
	}

	now := time.Now()
	p.Status = DocumentStatusCancelled
	p.CancelledAt = &now
	p.CancelReason = reason
	p.UpdatedAt = now
	p.IncrementVersion()
	return nil
}
