package persistence

import (
	"context"

	"github.com/finledger/backend/internal/domain/finance"
	"github.com/finledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPaymentRepository implements finance.PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByID finds a payment with its allocations
func (r *GormPaymentRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*finance.Payment, error) {
	var payment finance.Payment
	if err := r.db.WithContext(ctx).
		Preload("Allocations").
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&payment).Error; err != nil {
		return nil, translateError(err)
	}
	return &payment, nil
}

// Create inserts a payment with its allocations
func (r *GormPaymentRepository) Create(ctx context.Context, payment *finance.Payment) error {
	return translateError(r.db.WithContext(ctx).Create(payment).Error)
}

// SaveWithLock updates the payment state with optimistic locking
func (r *GormPaymentRepository) SaveWithLock(ctx context.Context, payment *finance.Payment) error {
	result := r.db.WithContext(ctx).
		Model(payment).
		Where("id = ? AND version = ?", payment.ID, payment.Version-1).
		Updates(map[string]interface{}{
			"state":        payment.State,
			"cancelled_at": payment.CancelledAt,
			"version":      payment.Version,
			"updated_at":   payment.UpdatedAt,
		})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// CountCompletedByPurchase counts completed payments attached to one purchase
func (r *GormPaymentRepository) CountCompletedByPurchase(ctx context.Context, tenantID, purchaseID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&finance.Payment{}).
		Where("tenant_id = ? AND purchase_id = ? AND state = ?", tenantID, purchaseID, finance.PaymentStateCompleted).
		Count(&count).Error; err != nil {
		return 0, translateError(err)
	}
	return count, nil
}

var _ finance.PaymentRepository = (*GormPaymentRepository)(nil)
