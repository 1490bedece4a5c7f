package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockRepository persists branch stock records
type StockRepository interface {
	// FindByBranchAndProduct returns the stock record for one
	// branch-product pair
	FindByBranchAndProduct(ctx context.Context, tenantID, branchID, productID uuid.UUID) (*StockRecord, error)
	// AdjustQuantity atomically shifts quantity by delta. The
	// non-negative guard runs in the storage layer's WHERE clause so a
	// concurrent decrement cannot slip below zero; a violation returns
	// shared.ErrInsufficientStock. A missing record is created with the
	// delta in the same atomic step (rejected if delta is negative).
	AdjustQuantity(ctx context.Context, tenantID, branchID, productID uuid.UUID, delta decimal.Decimal) error
	// RecordMovement appends one movement audit row
	RecordMovement(ctx context.Context, movement *StockMovement) error
}
