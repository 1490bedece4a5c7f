package persistence

import (
	"context"

	"github.com/finledger/backend/internal/domain/partner"
	"github.com/finledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCustomerRepository implements partner.CustomerRepository using GORM
type GormCustomerRepository struct {
	db *gorm.DB
}

// NewGormCustomerRepository creates a new GormCustomerRepository
func NewGormCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

// FindByID finds a customer within a tenant
func (r *GormCustomerRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*partner.Customer, error) {
	var customer partner.Customer
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&customer).Error; err != nil {
		return nil, translateError(err)
	}
	return &customer, nil
}

// Create inserts a customer
func (r *GormCustomerRepository) Create(ctx context.Context, customer *partner.Customer) error {
	return translateError(r.db.WithContext(ctx).Create(customer).Error)
}

// SaveWithLock updates the outstanding balance with optimistic locking
func (r *GormCustomerRepository) SaveWithLock(ctx context.Context, customer *partner.Customer) error {
	result := r.db.WithContext(ctx).
		Model(customer).
		Where("id = ? AND version = ?", customer.ID, customer.Version-1).
		Updates(map[string]interface{}{
			"outstanding_balance": customer.OutstandingBalance,
			"version":             customer.Version,
			"updated_at":          customer.UpdatedAt,
		})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// FindAll returns all customers for a tenant
func (r *GormCustomerRepository) FindAll(ctx context.Context, tenantID uuid.UUID) ([]partner.Customer, error) {
	var customers []partner.Customer
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("code ASC").
		Find(&customers).Error; err != nil {
		return nil, translateError(err)
	}
	return customers, nil
}

// GormSupplierRepository implements partner.SupplierRepository using GORM
type GormSupplierRepository struct {
	db *gorm.DB
}

// NewGormSupplierRepository creates a new GormSupplierRepository
func NewGormSupplierRepository(db *gorm.DB) *GormSupplierRepository {
	return &GormSupplierRepository{db: db}
}

// FindByID finds a supplier within a tenant
func (r *GormSupplierRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*partner.Supplier, error) {
	var supplier partner.Supplier
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&supplier).Error; err != nil {
		return nil, translateError(err)
	}
	return &supplier, nil
}

// Create inserts a supplier
func (r *GormSupplierRepository) Create(ctx context.Context, supplier *partner.Supplier) error {
	return translateError(r.db.WithContext(ctx).Create(supplier).Error)
}

// SaveWithLock updates the outstanding balance with optimistic locking
func (r *GormSupplierRepository) SaveWithLock(ctx context.Context, supplier *partner.Supplier) error {
	result := r.db.WithContext(ctx).
		Model(supplier).
		Where("id = ? AND version = ?", supplier.ID, supplier.Version-1).
		Updates(map[string]interface{}{
			"outstanding_balance": supplier.OutstandingBalance,
			"version":             supplier.Version,
			"updated_at":          supplier.UpdatedAt,
		})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// FindAll returns all suppliers for a tenant
func (r *GormSupplierRepository) FindAll(ctx context.Context, tenantID uuid.UUID) ([]partner.Supplier, error) {
	var suppliers []partner.Supplier
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("code ASC").
		Find(&suppliers).Error; err != nil {
		return nil, translateError(err)
	}
	return suppliers, nil
}

var _ partner.CustomerRepository = (*GormCustomerRepository)(nil)
var _ partner.SupplierRepository = (*GormSupplierRepository)(nil)
