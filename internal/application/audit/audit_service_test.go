package audit

import (
	"context"
	"testing"

	appfinance "github.com/finledger/backend/internal/application/finance"
	appledger "github.com/finledger/backend/internal/application/ledger"
	"github.com/finledger/backend/internal/application/orchestrator"
	"github.com/finledger/backend/internal/domain/finance"
	"github.com/finledger/backend/internal/domain/ledger"
	"github.com/finledger/backend/internal/domain/partner"
	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestAudit(t *testing.T) (*AuditService, *appfinance.PurchaseService, *orchestrator.MemoryScope) {
	t.Helper()
	logger := zap.NewNop()
	scope := orchestrator.NewMemoryScope()
	posting := appledger.NewPostingEngine(appledger.NewAccountRegistry(logger), logger)
	return NewAuditService(scope, logger), appfinance.NewPurchaseService(scope, posting, logger), scope
}

func seedSupplier(t *testing.T, scope *orchestrator.MemoryScope, tenantID uuid.UUID) *partner.Supplier {
	t.Helper()
	supplier, err := partner.NewSupplier(tenantID, "SUP-01", "Acme Traders")
	require.NoError(t, err)
	require.NoError(t, scope.Repos().Suppliers().Create(context.Background(), supplier))
	return supplier
}

// seedDriftedPurchase stores a document whose ledger trail only covers
// part of the grand total, the kind of drift a partial write failure
// would leave behind.
func seedDriftedPurchase(t *testing.T, scope *orchestrator.MemoryScope, tenantID, supplierID uuid.UUID, stored, posted float64) *finance.Purchase {
	t.Helper()
	ctx := context.Background()

	item, err := finance.NewPurchaseItem(uuid.New(), decimal.NewFromInt(1), decimal.NewFromFloat(stored), decimal.Zero, decimal.Zero)
	require.NoError(t, err)
	purchase, err := finance.NewPurchase(tenantID, uuid.New(), supplierID, "PUR-900", []finance.PurchaseItem{*item})
	require.NoError(t, err)
	require.NoError(t, scope.Repos().Purchases().Create(ctx, purchase))

	amount := decimal.NewFromFloat(posted)
	entries := []ledger.LedgerEntry{
		{
			ID:            uuid.New(),
			TenantID:      tenantID,
			AccountID:     uuid.New(),
			AccountCode:   ledger.CodeInventoryAsset,
			Debit:         amount,
			Credit:        decimal.Zero,
			ReferenceType: ledger.ReferencePurchase,
			ReferenceID:   purchase.ID,
			SupplierID:    &supplierID,
		},
		{
			ID:            uuid.New(),
			TenantID:      tenantID,
			AccountID:     uuid.New(),
			AccountCode:   ledger.CodeAccountsPayable,
			Debit:         decimal.Zero,
			Credit:        amount,
			ReferenceType: ledger.ReferencePurchase,
			ReferenceID:   purchase.ID,
			SupplierID:    &supplierID,
		},
	}
	require.NoError(t, scope.Repos().Entries().CreateBatch(ctx, entries))
	return purchase
}

func TestTopMismatchesCleanBooks(t *testing.T) {
	audit, purchases, scope := newTestAudit(t)
	ctx := context.Background()
	tenantID := uuid.New()
	supplier := seedSupplier(t, scope, tenantID)

	_, err := purchases.CreatePurchase(ctx, appfinance.CreatePurchaseCommand{
		TenantID:       tenantID,
		BranchID:       uuid.New(),
		SupplierID:     supplier.ID,
		PurchaseNumber: "PUR-100",
		Items: []appfinance.PurchaseItemInput{{
			ProductID: uuid.New(),
			Quantity:  decimal.NewFromInt(10),
			UnitPrice: decimal.NewFromInt(100),
		}},
		PaidAmount:    decimal.NewFromInt(400),
		PaymentMethod: finance.PaymentMethodCash,
	})
	require.NoError(t, err)

	findings, err := audit.TopMismatches(ctx, tenantID, 0)
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestTopMismatchesFlagsDrift(t *testing.T) {
	audit, _, scope := newTestAudit(t)
	ctx := context.Background()
	tenantID := uuid.New()
	supplier := seedSupplier(t, scope, tenantID)

	// document says 500, ledger only carries 300
	purchase := seedDriftedPurchase(t, scope, tenantID, supplier.ID, 500, 300)

	// the payable side drifts with it: stored outstanding stays zero
	// while the ledger says the supplier is owed 300
	findings, err := audit.TopMismatches(ctx, tenantID, 0)
	require.NoError(t, err)
	require.Len(t, findings, 2)

	// ranked largest drift first: the supplier balance is off by the
	// full posted amount, the document only by the shortfall
	first := findings[0]
	assert.Equal(t, SubjectSupplier, first.Kind)
	assert.Equal(t, supplier.ID, first.SubjectID)
	assert.Equal(t, "-300", first.Diff.String())

	second := findings[1]
	assert.Equal(t, SubjectPurchase, second.Kind)
	assert.Equal(t, purchase.ID, second.SubjectID)
	assert.Equal(t, "PUR-900", second.Reference)
	assert.Equal(t, "500", second.Stored.String())
	assert.Equal(t, "300", second.Derived.String())
	assert.Equal(t, "200", second.Diff.String())
}

func TestTopMismatchesHonorsLimit(t *testing.T) {
	audit, _, scope := newTestAudit(t)
	ctx := context.Background()
	tenantID := uuid.New()
	supplier := seedSupplier(t, scope, tenantID)
	seedDriftedPurchase(t, scope, tenantID, supplier.ID, 500, 300)

	findings, err := audit.TopMismatches(ctx, tenantID, 1)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, SubjectSupplier, findings[0].Kind)
}

func TestTopMismatchesToleratesRoundingNoise(t *testing.T) {
	audit, _, scope := newTestAudit(t)
	ctx := context.Background()
	tenantID := uuid.New()
	supplier := seedSupplier(t, scope, tenantID)

	// two cents of drift on a document stays under the tolerance
	seedDriftedPurchase(t, scope, tenantID, supplier.ID, 500, 499.98)

	// keep the payable side aligned with the ledger so only the
	// document drift is in play
	supplier.AdjustOutstanding(valueobject.NewMoneyFromFloat(499.98))
	require.NoError(t, scope.Repos().Suppliers().SaveWithLock(ctx, supplier))

	findings, err := audit.TopMismatches(ctx, tenantID, 0)
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestTopMismatchesSkipsCancelledPurchases(t *testing.T) {
	audit, purchases, scope := newTestAudit(t)
	ctx := context.Background()
	tenantID := uuid.New()
	supplier := seedSupplier(t, scope, tenantID)

	created, err := purchases.CreatePurchase(ctx, appfinance.CreatePurchaseCommand{
		TenantID:       tenantID,
		BranchID:       uuid.New(),
		SupplierID:     supplier.ID,
		PurchaseNumber: "PUR-101",
		Items: []appfinance.PurchaseItemInput{{
			ProductID: uuid.New(),
			Quantity:  decimal.NewFromInt(5),
			UnitPrice: decimal.NewFromInt(100),
		}},
	})
	require.NoError(t, err)
	_, err = purchases.CancelPurchase(ctx, tenantID, created.ID, "ordered in error")
	require.NoError(t, err)

	findings, err := audit.TopMismatches(ctx, tenantID, 0)
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestTopMismatchesFlagsTamperedCustomerBalance(t *testing.T) {
	audit, _, scope := newTestAudit(t)
	ctx := context.Background()
	tenantID := uuid.New()

	customer, err := partner.NewCustomer(tenantID, "CUST-01", "Meridian Stores")
	require.NoError(t, err)
	require.NoError(t, scope.Repos().Customers().Create(ctx, customer))

	// stored balance claims 100 with no ledger trail behind it
	customer.AdjustOutstanding(valueobject.NewMoneyFromFloat(100))
	require.NoError(t, scope.Repos().Customers().SaveWithLock(ctx, customer))

	findings, err := audit.TopMismatches(ctx, tenantID, 0)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, SubjectCustomer, findings[0].Kind)
	assert.Equal(t, "100", findings[0].Diff.String())
}

func TestPurchaseDetail(t *testing.T) {
	audit, _, scope := newTestAudit(t)
	ctx := context.Background()
	tenantID := uuid.New()
	supplier := seedSupplier(t, scope, tenantID)
	purchase := seedDriftedPurchase(t, scope, tenantID, supplier.ID, 500, 300)

	breakdown, err := audit.PurchaseDetail(ctx, tenantID, purchase.ID)
	require.NoError(t, err)

	assert.Equal(t, SubjectPurchase, breakdown.Kind)
	assert.Equal(t, "500", breakdown.Stored.String())
	assert.Equal(t, "300", breakdown.Derived.String())
	assert.Equal(t, "200", breakdown.Diff.String())
	require.Len(t, breakdown.Lines, 2)

	_, err = audit.PurchaseDetail(ctx, tenantID, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestSupplierDetail(t *testing.T) {
	audit, _, scope := newTestAudit(t)
	ctx := context.Background()
	tenantID := uuid.New()
	supplier := seedSupplier(t, scope, tenantID)
	seedDriftedPurchase(t, scope, tenantID, supplier.ID, 500, 300)

	breakdown, err := audit.SupplierDetail(ctx, tenantID, supplier.ID)
	require.NoError(t, err)

	assert.Equal(t, SubjectSupplier, breakdown.Kind)
	assert.True(t, breakdown.Stored.IsZero())
	assert.Equal(t, "300", breakdown.Derived.String())
	require.Len(t, breakdown.Lines, 1)
	assert.Equal(t, ledger.CodeAccountsPayable, breakdown.Lines[0].AccountCode)
}

func TestCustomerDetail(t *testing.T) {
	audit, _, scope := newTestAudit(t)
	ctx := context.Background()
	tenantID := uuid.New()

	customer, err := partner.NewCustomer(tenantID, "CUST-02", "Harbor Supply")
	require.NoError(t, err)
	require.NoError(t, scope.Repos().Customers().Create(ctx, customer))

	breakdown, err := audit.CustomerDetail(ctx, tenantID, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, SubjectCustomer, breakdown.Kind)
	assert.True(t, breakdown.Derived.IsZero())
	assert.Empty(t, breakdown.Lines)

	_, err = audit.CustomerDetail(ctx, tenantID, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
