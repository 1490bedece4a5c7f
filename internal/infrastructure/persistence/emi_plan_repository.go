package persistence

import (
	"context"

	"github.com/finledger/backend/internal/domain/emi"
	"github.com/finledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPlanRepository implements emi.PlanRepository using GORM
type GormPlanRepository struct {
	db *gorm.DB
}

// NewGormPlanRepository creates a new GormPlanRepository
func NewGormPlanRepository(db *gorm.DB) *GormPlanRepository {
	return &GormPlanRepository{db: db}
}

// FindByID finds a plan with its installment schedule
func (r *GormPlanRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*emi.EMIPlan, error) {
	var plan emi.EMIPlan
	if err := r.db.WithContext(ctx).
		Preload("Installments", func(db *gorm.DB) *gorm.DB {
			return db.Order("installment_number ASC")
		}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&plan).Error; err != nil {
		return nil, translateError(err)
	}
	return &plan, nil
}

// FindByInvoice finds the plan financing one invoice
func (r *GormPlanRepository) FindByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) (*emi.EMIPlan, error) {
	var plan emi.EMIPlan
	if err := r.db.WithContext(ctx).
		Preload("Installments", func(db *gorm.DB) *gorm.DB {
			return db.Order("installment_number ASC")
		}).
		Where("tenant_id = ? AND invoice_id = ?", tenantID, invoiceID).
		First(&plan).Error; err != nil {
		return nil, translateError(err)
	}
	return &plan, nil
}

// Create inserts a plan with its installments
func (r *GormPlanRepository) Create(ctx context.Context, plan *emi.EMIPlan) error {
	return translateError(r.db.WithContext(ctx).Create(plan).Error)
}

// SaveWithLock updates the plan and its installments with optimistic
// locking on the plan row. The installments ride inside the same
// transaction, so the version check on the parent covers them.
func (r *GormPlanRepository) SaveWithLock(ctx context.Context, plan *emi.EMIPlan) error {
	result := r.db.WithContext(ctx).
		Model(plan).
		Where("id = ? AND version = ?", plan.ID, plan.Version-1).
		Updates(map[string]interface{}{
			"balance_amount":  plan.BalanceAmount,
			"advance_balance": plan.AdvanceBalance,
			"status":          plan.Status,
			"version":         plan.Version,
			"updated_at":      plan.UpdatedAt,
		})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}

	for i := range plan.Installments {
		inst := &plan.Installments[i]
		if err := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{"paid_amount", "payment_status"}),
			}).
			Create(inst).Error; err != nil {
			return translateError(err)
		}
	}
	return nil
}

var _ emi.PlanRepository = (*GormPlanRepository)(nil)
