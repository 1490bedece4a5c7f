package finance

import (
	"context"

	"github.com/google/uuid"
)

// PurchaseRepository persists purchase documents
type PurchaseRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Purchase, error)
	// Create inserts the purchase with its items
	Create(ctx context.Context, purchase *Purchase) error
	// SaveWithLock persists aggregate changes under optimistic locking;
	// a stale version yields shared.ErrConcurrencyConflict.
	SaveWithLock(ctx context.Context, purchase *Purchase) error
	// FindAll returns all purchases for a tenant (auditor read path)
	FindAll(ctx context.Context, tenantID uuid.UUID) ([]Purchase, error)
}

// PaymentRepository persists payments
type PaymentRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Payment, error)
	Create(ctx context.Context, payment *Payment) error
	SaveWithLock(ctx context.Context, payment *Payment) error
	// CountCompletedByPurchase counts completed payments attached to a purchase
	CountCompletedByPurchase(ctx context.Context, tenantID, purchaseID uuid.UUID) (int64, error)
}
