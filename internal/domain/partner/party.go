package partner

import (
	"time"

	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Customer is a buying party. OutstandingBalance is the derived amount
// the customer owes: opening balance plus the net of receivable ledger
// movement, maintained incrementally for read performance. The auditor
// exists precisely because incremental maintenance can drift.
type Customer struct {
	shared.TenantAggregateRoot
	Code               string          `gorm:"size:50;not null;uniqueIndex:idx_customers_tenant_code,priority:2" json:"code"`
	Name               string          `gorm:"size:100;not null" json:"name"`
	OpeningBalance     decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"opening_balance"`
	OutstandingBalance decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"outstanding_balance"`
}

// TableName returns the database table name
func (Customer) TableName() string {
	return "customers"
}

// NewCustomer creates a customer
func NewCustomer(tenantID uuid.UUID, code, name string) (*Customer, error) {
	if code == "" || name == "" {
		return nil, shared.NewValidationError("customer code and name are required")
	}
	return &Customer{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Code:                code,
		Name:                name,
	}, nil
}

// AdjustOutstanding shifts the outstanding balance by delta (positive
// when the customer owes more, negative when a receipt settles debt)
func (c *Customer) AdjustOutstanding(delta valueobject.Money) {
	c.OutstandingBalance = c.OutstandingBalance.Add(delta.Amount()).Round(valueobject.RoundingPlaces)
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
}

// Supplier is a selling party; OutstandingBalance is what we owe them
type Supplier struct {
	shared.TenantAggregateRoot
	Code               string          `gorm:"size:50;not null;uniqueIndex:idx_suppliers_tenant_code,priority:2" json:"code"`
	Name               string          `gorm:"size:100;not null" json:"name"`
	OpeningBalance     decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"opening_balance"`
	OutstandingBalance decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"outstanding_balance"`
}

// TableName returns the database table name
func (Supplier) TableName() string {
	return "suppliers"
}

// NewSupplier creates a supplier
func NewSupplier(tenantID uuid.UUID, code, name string) (*Supplier, error) {
	if code == "" || name == "" {
		return nil, shared.NewValidationError("supplier code and name are required")
	}
	return &Supplier{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Code:                code,
		Name:                name,
	}, nil
}

// AdjustOutstanding shifts the outstanding balance by delta (positive
// when we owe the supplier more, negative when a payment settles debt)
func (s *Supplier) AdjustOutstanding(delta valueobject.Money) {
	s.OutstandingBalance = s.OutstandingBalance.Add(delta.Amount()).Round(valueobject.RoundingPlaces)
	s.UpdatedAt = time.Now()
	s.IncrementVersion()
}
