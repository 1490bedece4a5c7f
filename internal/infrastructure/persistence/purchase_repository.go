package persistence

import (
	"context"

	"github.com/finledger/backend/internal/domain/finance"
	"github.com/finledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPurchaseRepository implements finance.PurchaseRepository using GORM
type GormPurchaseRepository struct {
	db *gorm.DB
}

// NewGormPurchaseRepository creates a new GormPurchaseRepository
func NewGormPurchaseRepository(db *gorm.DB) *GormPurchaseRepository {
	return &GormPurchaseRepository{db: db}
}

// FindByID finds a purchase with its items
func (r *GormPurchaseRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*finance.Purchase, error) {
	var purchase finance.Purchase
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&purchase).Error; err != nil {
		return nil, translateError(err)
	}
	return &purchase, nil
}

// Create inserts a purchase with its items
func (r *GormPurchaseRepository) Create(ctx context.Context, purchase *finance.Purchase) error {
	return translateError(r.db.WithContext(ctx).Create(purchase).Error)
}

// SaveWithLock updates the mutable financial fields with optimistic
// locking. A stale version means another writer got there first; the
// caller's unit of work retries from scratch.
func (r *GormPurchaseRepository) SaveWithLock(ctx context.Context, purchase *finance.Purchase) error {
	result := r.db.WithContext(ctx).
		Model(purchase).
		Where("id = ? AND version = ?", purchase.ID, purchase.Version-1).
		Updates(map[string]interface{}{
			"paid_amount":    purchase.PaidAmount,
			"balance_amount": purchase.BalanceAmount,
			"payment_status": purchase.PaymentStatus,
			"status":         purchase.Status,
			"cancelled_at":   purchase.CancelledAt,
			"cancel_reason":  purchase.CancelReason,
			"version":        purchase.Version,
			"updated_at":     purchase.UpdatedAt,
		})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// FindAll returns all purchases for a tenant with their items
func (r *GormPurchaseRepository) FindAll(ctx context.Context, tenantID uuid.UUID) ([]finance.Purchase, error) {
	var purchases []finance.Purchase
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("tenant_id = ?", tenantID).
		Order("purchase_date DESC").
		Find(&purchases).Error; err != nil {
		return nil, translateError(err)
	}
	return purchases, nil
}

var _ finance.PurchaseRepository = (*GormPurchaseRepository)(nil)
