package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountRepository persists ledger accounts
type AccountRepository interface {
	// FindByCode finds an account by its tenant-unique code
	FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*Account, error)
	// GetOrCreate resolves an account idempotently: under a concurrent
	// creation race the loser re-reads and returns the existing row.
	GetOrCreate(ctx context.Context, account *Account) (*Account, error)
	// FindByID finds an account by ID within a tenant
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Account, error)
}

// EntryRepository persists immutable ledger entries
type EntryRepository interface {
	// CreateBatch inserts a balanced set of entries; entries are never updated
	CreateBatch(ctx context.Context, entries []LedgerEntry) error
	// FindByReference returns all entries for one source event
	FindByReference(ctx context.Context, tenantID uuid.UUID, refType ReferenceType, refID uuid.UUID) ([]LedgerEntry, error)
	// FindByPayment returns all entries attached to one payment
	FindByPayment(ctx context.Context, tenantID, paymentID uuid.UUID) ([]LedgerEntry, error)
	// SumByReference returns total debit and credit for one source event
	SumByReference(ctx context.Context, tenantID uuid.UUID, refType ReferenceType, refID uuid.UUID) (debit, credit decimal.Decimal, err error)
	// SumByParty returns net debit-minus-credit on one account code for a
	// customer or supplier
	SumByParty(ctx context.Context, tenantID uuid.UUID, accountCode string, customerID, supplierID *uuid.UUID) (decimal.Decimal, error)
	// FindByParty returns all entries on one account code for a customer
	// or supplier, ordered by entry date
	FindByParty(ctx context.Context, tenantID uuid.UUID, accountCode string, customerID, supplierID *uuid.UUID) ([]LedgerEntry, error)
}
