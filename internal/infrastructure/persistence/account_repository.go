package persistence

import (
	"context"

	"github.com/finledger/backend/internal/domain/ledger"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormAccountRepository implements ledger.AccountRepository using GORM
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a new GormAccountRepository
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// FindByCode finds an account by its tenant-unique code
func (r *GormAccountRepository) FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*ledger.Account, error) {
	var account ledger.Account
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND code = ?", tenantID, code).
		First(&account).Error; err != nil {
		return nil, translateError(err)
	}
	return &account, nil
}

// GetOrCreate resolves an account idempotently. Two callers racing to
// create the same (tenant, code) both succeed: the loser's insert is a
// no-op under ON CONFLICT and the existing row is re-read, so the race
// never surfaces as an error.
func (r *GormAccountRepository) GetOrCreate(ctx context.Context, account *ledger.Account) (*ledger.Account, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "code"}},
			DoNothing: true,
		}).
		Create(account)
	if result.Error != nil {
		return nil, translateError(result.Error)
	}

	if result.RowsAffected == 0 {
		return r.FindByCode(ctx, account.TenantID, account.Code)
	}
	return account, nil
}

// FindByID finds an account by ID within a tenant
func (r *GormAccountRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ledger.Account, error) {
	var account ledger.Account
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&account).Error; err != nil {
		return nil, translateError(err)
	}
	return &account, nil
}

var _ ledger.AccountRepository = (*GormAccountRepository)(nil)
