package ledger

import (
	"context"
	"testing"

	"github.com/finledger/backend/internal/application/orchestrator"
	domainledger "github.com/finledger/backend/internal/domain/ledger"
	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testEngine() (*PostingEngine, *orchestrator.MemoryScope) {
	logger := zap.NewNop()
	return NewPostingEngine(NewAccountRegistry(logger), logger), orchestrator.NewMemoryScope()
}

func TestAccountRegistryResolveIsIdempotent(t *testing.T) {
	registry := NewAccountRegistry(zap.NewNop())
	scope := orchestrator.NewMemoryScope()
	tenantID := uuid.New()
	ctx := context.Background()

	var first, second *domainledger.Account
	err := scope.Execute(ctx, func(repos orchestrator.TxRepositories) error {
		var err error
		first, err = registry.ResolveChart(ctx, repos.Accounts(), tenantID, domainledger.CodeCash)
		if err != nil {
			return err
		}
		second, err = registry.ResolveChart(ctx, repos.Accounts(), tenantID, domainledger.CodeCash)
		return err
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Cash", first.Name)
	assert.Equal(t, domainledger.AccountTypeAsset, first.Type)
}

func TestAccountRegistryScopesAccountsByTenant(t *testing.T) {
	registry := NewAccountRegistry(zap.NewNop())
	scope := orchestrator.NewMemoryScope()
	ctx := context.Background()

	var a, b *domainledger.Account
	err := scope.Execute(ctx, func(repos orchestrator.TxRepositories) error {
		var err error
		a, err = registry.ResolveChart(ctx, repos.Accounts(), uuid.New(), domainledger.CodeBank)
		if err != nil {
			return err
		}
		b, err = registry.ResolveChart(ctx, repos.Accounts(), uuid.New(), domainledger.CodeBank)
		return err
	})
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestAccountRegistryRejectsUnknownChartCode(t *testing.T) {
	registry := NewAccountRegistry(zap.NewNop())
	scope := orchestrator.NewMemoryScope()
	ctx := context.Background()

	err := scope.Execute(ctx, func(repos orchestrator.TxRepositories) error {
		_, err := registry.ResolveChart(ctx, repos.Accounts(), uuid.New(), "9999")
		return err
	})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestPostingEnginePost(t *testing.T) {
	engine, scope := testEngine()
	tenantID := uuid.New()
	purchaseID := uuid.New()
	ctx := context.Background()

	var entries []domainledger.LedgerEntry
	err := scope.Execute(ctx, func(repos orchestrator.TxRepositories) error {
		var err error
		entries, err = engine.Post(ctx, repos, &domainledger.PostingEvent{
			Type:        domainledger.ReferencePurchase,
			TenantID:    tenantID,
			BranchID:    uuid.New(),
			ReferenceID: purchaseID,
			GrandTotal:  valueobject.NewMoneyFromFloat(1000),
		})
		return err
	})
	require.NoError(t, err)

	require.Len(t, entries, 2)
	require.NoError(t, domainledger.VerifyBalanced(entries))
	for _, e := range entries {
		assert.NotEqual(t, uuid.Nil, e.AccountID)
		assert.Equal(t, purchaseID, e.ReferenceID)
		assert.False(t, e.IsReversal)
	}

	stored, err := scope.Repos().Entries().FindByReference(ctx, tenantID, domainledger.ReferencePurchase, purchaseID)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestPostingEngineRejectsUnknownEvent(t *testing.T) {
	engine, scope := testEngine()
	ctx := context.Background()

	err := scope.Execute(ctx, func(repos orchestrator.TxRepositories) error {
		_, err := engine.Post(ctx, repos, &domainledger.PostingEvent{
			Type:        "PAYROLL",
			ReferenceID: uuid.New(),
		})
		return err
	})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestPostingEngineReverseReference(t *testing.T) {
	engine, scope := testEngine()
	tenantID := uuid.New()
	purchaseID := uuid.New()
	ctx := context.Background()

	require.NoError(t, scope.Execute(ctx, func(repos orchestrator.TxRepositories) error {
		_, err := engine.Post(ctx, repos, &domainledger.PostingEvent{
			Type:        domainledger.ReferencePurchase,
			TenantID:    tenantID,
			ReferenceID: purchaseID,
			GrandTotal:  valueobject.NewMoneyFromFloat(500),
		})
		return err
	}))

	var reversed []domainledger.LedgerEntry
	err := scope.Execute(ctx, func(repos orchestrator.TxRepositories) error {
		var err error
		reversed, err = engine.ReverseReference(ctx, repos, tenantID, domainledger.ReferencePurchase, purchaseID, "cancelled")
		return err
	})
	require.NoError(t, err)

	require.Len(t, reversed, 2)
	for _, e := range reversed {
		assert.True(t, e.IsReversal)
		assert.Equal(t, "cancelled", e.Narration)
	}
	require.NoError(t, domainledger.VerifyBalanced(reversed))

	// forward and reversal together net to zero per account
	all, err := scope.Repos().Entries().FindByReference(ctx, tenantID, domainledger.ReferencePurchase, purchaseID)
	require.NoError(t, err)
	require.Len(t, all, 4)
	debit, credit := domainledger.SumSides(all)
	assert.True(t, debit.Equal(credit))

	// the same reference cannot be backed out twice
	err = scope.Execute(ctx, func(repos orchestrator.TxRepositories) error {
		_, err := engine.ReverseReference(ctx, repos, tenantID, domainledger.ReferencePurchase, purchaseID, "again")
		return err
	})
	assert.ErrorIs(t, err, shared.ErrConflict)
}

func TestPostingEngineReverseMissingReference(t *testing.T) {
	engine, scope := testEngine()
	ctx := context.Background()

	err := scope.Execute(ctx, func(repos orchestrator.TxRepositories) error {
		_, err := engine.ReverseReference(ctx, repos, uuid.New(), domainledger.ReferencePurchase, uuid.New(), "nothing there")
		return err
	})
	assert.ErrorIs(t, err, shared.ErrConflict)
}

func TestPostingEngineReversePayment(t *testing.T) {
	engine, scope := testEngine()
	tenantID := uuid.New()
	paymentID := uuid.New()
	ctx := context.Background()

	require.NoError(t, scope.Execute(ctx, func(repos orchestrator.TxRepositories) error {
		_, err := engine.Post(ctx, repos, &domainledger.PostingEvent{
			Type:           domainledger.ReferencePayment,
			TenantID:       tenantID,
			ReferenceID:    paymentID,
			Amount:         valueobject.NewMoneyFromFloat(400),
			SettlementCode: domainledger.CodeCash,
			PaymentID:      &paymentID,
		})
		return err
	}))

	var reversed []domainledger.LedgerEntry
	err := scope.Execute(ctx, func(repos orchestrator.TxRepositories) error {
		var err error
		reversed, err = engine.ReversePayment(ctx, repos, tenantID, paymentID, "payment deleted")
		return err
	})
	require.NoError(t, err)
	require.Len(t, reversed, 2)

	all, err := scope.Repos().Entries().FindByPayment(ctx, tenantID, paymentID)
	require.NoError(t, err)
	debit, credit := domainledger.SumSides(all)
	assert.True(t, debit.Equal(credit))
}
