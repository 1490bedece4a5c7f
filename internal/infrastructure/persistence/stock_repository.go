package persistence

import (
	"context"
	"errors"

	"github.com/finledger/backend/internal/domain/inventory"
	"github.com/finledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStockRepository implements inventory.StockRepository using GORM
type GormStockRepository struct {
	db *gorm.DB
}

// NewGormStockRepository creates a new GormStockRepository
func NewGormStockRepository(db *gorm.DB) *GormStockRepository {
	return &GormStockRepository{db: db}
}

// FindByBranchAndProduct returns the stock record for one branch-product pair
func (r *GormStockRepository) FindByBranchAndProduct(ctx context.Context, tenantID, branchID, productID uuid.UUID) (*inventory.StockRecord, error) {
	var record inventory.StockRecord
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND branch_id = ? AND product_id = ?", tenantID, branchID, productID).
		First(&record).Error; err != nil {
		return nil, translateError(err)
	}
	return &record, nil
}

// AdjustQuantity shifts quantity by delta with the non-negative guard in
// the UPDATE's WHERE clause. The guard runs in the database, not
// client-side, so two concurrent decrements cannot both read a
// sufficient balance and race past it. A missing record is created with
// the delta in the same atomic step.
func (r *GormStockRepository) AdjustQuantity(ctx context.Context, tenantID, branchID, productID uuid.UUID, delta decimal.Decimal) error {
	result := r.db.WithContext(ctx).
		Model(&inventory.StockRecord{}).
		Where("tenant_id = ? AND branch_id = ? AND product_id = ? AND quantity + ? >= 0",
			tenantID, branchID, productID, delta).
		UpdateColumn("quantity", gorm.Expr("quantity + ?", delta))
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	// Either no record exists yet or the guard rejected the write.
	_, err := r.FindByBranchAndProduct(ctx, tenantID, branchID, productID)
	if err == nil {
		return shared.ErrInsufficientStock
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return err
	}
	if delta.IsNegative() {
		return shared.ErrInsufficientStock
	}

	record, err := inventory.NewStockRecord(tenantID, branchID, productID, delta)
	if err != nil {
		return err
	}
	createResult := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "branch_id"}, {Name: "product_id"}},
			DoNothing: true,
		}).
		Create(record)
	if createResult.Error != nil {
		return translateError(createResult.Error)
	}
	if createResult.RowsAffected > 0 {
		return nil
	}

	// Lost the creation race; apply the delta to the winner's row.
	return r.AdjustQuantity(ctx, tenantID, branchID, productID, delta)
}

// RecordMovement appends one movement audit row
func (r *GormStockRepository) RecordMovement(ctx context.Context, movement *inventory.StockMovement) error {
	return translateError(r.db.WithContext(ctx).Create(movement).Error)
}

var _ inventory.StockRepository = (*GormStockRepository)(nil)
