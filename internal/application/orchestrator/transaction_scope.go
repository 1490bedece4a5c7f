package orchestrator

import (
	"context"

	"github.com/finledger/backend/internal/domain/emi"
	"github.com/finledger/backend/internal/domain/finance"
	"github.com/finledger/backend/internal/domain/inventory"
	"github.com/finledger/backend/internal/domain/ledger"
	"github.com/finledger/backend/internal/domain/partner"
)

// TransactionScope provides transactional access to the engine's
// repositories. A function executed within a scope sees all repository
// operations as one database transaction, committed or rolled back
// atomically. The scope is the ONLY place a unit of work begins; every
// other component receives the transactional repositories as an explicit
// parameter and must not start nested independent units.
type TransactionScope interface {
	// Execute runs fn within a database transaction. If fn returns an
	// error the transaction is rolled back with zero partial effects;
	// otherwise it is committed.
	Execute(ctx context.Context, fn func(repos TxRepositories) error) error
}

// TxRepositories provides access to all engine repositories bound to the
// current transaction.
type TxRepositories interface {
	// Accounts returns the ledger account repository
	Accounts() ledger.AccountRepository
	// Entries returns the ledger entry repository
	Entries() ledger.EntryRepository
	// Purchases returns the purchase document repository
	Purchases() finance.PurchaseRepository
	// Payments returns the payment repository
	Payments() finance.PaymentRepository
	// Plans returns the EMI plan repository
	Plans() emi.PlanRepository
	// Customers returns the customer repository
	Customers() partner.CustomerRepository
	// Suppliers returns the supplier repository
	Suppliers() partner.SupplierRepository
	// Stock returns the branch stock repository
	Stock() inventory.StockRepository
}
