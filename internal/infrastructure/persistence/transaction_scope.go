package persistence

import (
	"context"
	"database/sql"

	"github.com/finledger/backend/internal/application/orchestrator"
	"github.com/finledger/backend/internal/domain/emi"
	"github.com/finledger/backend/internal/domain/finance"
	"github.com/finledger/backend/internal/domain/inventory"
	"github.com/finledger/backend/internal/domain/ledger"
	"github.com/finledger/backend/internal/domain/partner"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope on a GORM connection.
// Units of work run at SERIALIZABLE isolation; a serialization failure
// surfaces as the transient conflict the orchestrator retries on.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn within one database transaction. If fn returns an
// error the transaction is rolled back; otherwise it is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos orchestrator.TxRepositories) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTxRepositories{tx: tx})
	}, &sql.TxOptions{Isolation: sql.LevelSerializable})
	return translateError(err)
}

// gormTxRepositories binds every repository to the current transaction
type gormTxRepositories struct {
	tx *gorm.DB
}

func (r *gormTxRepositories) Accounts() ledger.AccountRepository {
	return NewGormAccountRepository(r.tx)
}

func (r *gormTxRepositories) Entries() ledger.EntryRepository {
	return NewGormEntryRepository(r.tx)
}

func (r *gormTxRepositories) Purchases() finance.PurchaseRepository {
	return NewGormPurchaseRepository(r.tx)
}

func (r *gormTxRepositories) Payments() finance.PaymentRepository {
	return NewGormPaymentRepository(r.tx)
}

func (r *gormTxRepositories) Plans() emi.PlanRepository {
	return NewGormPlanRepository(r.tx)
}

func (r *gormTxRepositories) Customers() partner.CustomerRepository {
	return NewGormCustomerRepository(r.tx)
}

func (r *gormTxRepositories) Suppliers() partner.SupplierRepository {
	return NewGormSupplierRepository(r.tx)
}

func (r *gormTxRepositories) Stock() inventory.StockRepository {
	return NewGormStockRepository(r.tx)
}

var _ orchestrator.TransactionScope = (*GormTransactionScope)(nil)
var _ orchestrator.TxRepositories = (*gormTxRepositories)(nil)
