package inventory

import (
	"time"

	"github.com/finledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockRecord tracks on-hand quantity of one product at one branch.
// Quantity never goes negative: the guard is enforced at the storage
// layer inside the same atomic unit as the rest of the operation, so
// concurrent movements cannot race past it.
type StockRecord struct {
	shared.TenantAggregateRoot
	BranchID  uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_stock_branch_product,priority:2" json:"branch_id"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_stock_branch_product,priority:3" json:"product_id"`
	Quantity  decimal.Decimal `gorm:"type:decimal(18,3);not null;default:0" json:"quantity"`
}

// TableName returns the database table name
func (StockRecord) TableName() string {
	return "stock_records"
}

// NewStockRecord creates a stock record with an initial quantity
func NewStockRecord(tenantID, branchID, productID uuid.UUID, quantity decimal.Decimal) (*StockRecord, error) {
	if branchID == uuid.Nil || productID == uuid.Nil {
		return nil, shared.NewValidationError("stock record requires branch and product ids")
	}
	if quantity.IsNegative() {
		return nil, shared.NewValidationError("stock quantity cannot be negative, got %s", quantity)
	}
	return &StockRecord{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		BranchID:            branchID,
		ProductID:           productID,
		Quantity:            quantity,
	}, nil
}

// MovementType classifies a stock movement
type MovementType string

const (
	MovementPurchase        MovementType = "PURCHASE"
	MovementPurchaseReverse MovementType = "PURCHASE_REVERSE"
	MovementSale            MovementType = "SALE"
	MovementSaleReturn      MovementType = "SALE_RETURN"
)

// IsValid checks if the movement type is valid
func (t MovementType) IsValid() bool {
	switch t {
	case MovementPurchase, MovementPurchaseReverse, MovementSale, MovementSaleReturn:
		return true
	}
	return false
}

// StockMovement is an append-only audit row for one quantity adjustment
type StockMovement struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"tenant_id"`
	BranchID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"branch_id"`
	ProductID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Type          MovementType    `gorm:"size:30;not null" json:"type"`
	QuantityDelta decimal.Decimal `gorm:"type:decimal(18,3);not null" json:"quantity_delta"`
	ReferenceID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"reference_id"`
	CreatedAt     time.Time       `json:"created_at"`
}

// TableName returns the database table name
func (StockMovement) TableName() string {
	return "stock_movements"
}

// NewStockMovement creates one movement audit row
func NewStockMovement(tenantID, branchID, productID uuid.UUID, movementType MovementType, delta decimal.Decimal, referenceID uuid.UUID) *StockMovement {
	return &StockMovement{
		ID:            uuid.New(),
		TenantID:      tenantID,
		BranchID:      branchID,
		ProductID:     productID,
		Type:          movementType,
		QuantityDelta: delta,
		ReferenceID:   referenceID,
		CreatedAt:     time.Now(),
	}
}
