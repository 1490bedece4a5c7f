package partner

import (
	"context"

	"github.com/google/uuid"
)

// CustomerRepository persists customers
type CustomerRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Customer, error)
	Create(ctx context.Context, customer *Customer) error
	SaveWithLock(ctx context.Context, customer *Customer) error
	// FindAll returns all customers for a tenant (auditor read path)
	FindAll(ctx context.Context, tenantID uuid.UUID) ([]Customer, error)
}

// SupplierRepository persists suppliers
type SupplierRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Supplier, error)
	Create(ctx context.Context, supplier *Supplier) error
	SaveWithLock(ctx context.Context, supplier *Supplier) error
	FindAll(ctx context.Context, tenantID uuid.UUID) ([]Supplier, error)
}
