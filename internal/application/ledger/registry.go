package ledger

import (
	"context"
	"errors"

	domainledger "github.com/finledger/backend/internal/domain/ledger"
	"github.com/finledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AccountRegistry resolves ledger accounts lazily by (tenant, code). The
// registry never begins its own unit of work: it operates on whatever
// transactional repository the caller passes in.
type AccountRegistry struct {
	logger *zap.Logger
}

// NewAccountRegistry creates a new AccountRegistry
func NewAccountRegistry(logger *zap.Logger) *AccountRegistry {
	return &AccountRegistry{logger: logger}
}

// Resolve looks up an account by code, creating it on first use.
// Creation is idempotent under a uniqueness conflict: two callers racing
// to create the same code both succeed and converge on one row; the race
// is never surfaced as an error.
func (r *AccountRegistry) Resolve(ctx context.Context, accounts domainledger.AccountRepository, tenantID uuid.UUID, code, name string, accountType domainledger.AccountType) (*domainledger.Account, error) {
	account, err := accounts.FindByCode(ctx, tenantID, code)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	created, err := domainledger.NewAccount(tenantID, code, name, accountType)
	if err != nil {
		return nil, err
	}
	account, err = accounts.GetOrCreate(ctx, created)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("resolved ledger account",
		zap.String("tenant_id", tenantID.String()),
		zap.String("code", code),
	)
	return account, nil
}

// ResolveChart resolves one of the well-known chart codes, seeding it on
// first reference with its standard name and type.
func (r *AccountRegistry) ResolveChart(ctx context.Context, accounts domainledger.AccountRepository, tenantID uuid.UUID, code string) (*domainledger.Account, error) {
	entry, ok := domainledger.Chart(code)
	if !ok {
		return nil, shared.NewValidationError("account code %q is not part of the standard chart", code)
	}
	return r.Resolve(ctx, accounts, tenantID, entry.Code, entry.Name, entry.Type)
}
