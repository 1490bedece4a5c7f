package finance

import (
	"context"
	"testing"

	appledger "github.com/finledger/backend/internal/application/ledger"
	"github.com/finledger/backend/internal/application/orchestrator"
	"github.com/finledger/backend/internal/domain/finance"
	"github.com/finledger/backend/internal/domain/ledger"
	"github.com/finledger/backend/internal/domain/partner"
	"github.com/finledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStack(t *testing.T) (*PurchaseService, *PaymentService, *orchestrator.MemoryScope) {
	t.Helper()
	logger := zap.NewNop()
	scope := orchestrator.NewMemoryScope()
	posting := appledger.NewPostingEngine(appledger.NewAccountRegistry(logger), logger)
	return NewPurchaseService(scope, posting, logger), NewPaymentService(scope, posting, logger), scope
}

func seedSupplier(t *testing.T, scope *orchestrator.MemoryScope, tenantID uuid.UUID) *partner.Supplier {
	t.Helper()
	supplier, err := partner.NewSupplier(tenantID, "SUP-01", "Acme Traders")
	require.NoError(t, err)
	require.NoError(t, scope.Repos().Suppliers().Create(context.Background(), supplier))
	return supplier
}

func purchaseCommand(tenantID, supplierID uuid.UUID, paid float64) CreatePurchaseCommand {
	return CreatePurchaseCommand{
		TenantID:       tenantID,
		BranchID:       uuid.New(),
		SupplierID:     supplierID,
		PurchaseNumber: "PUR-1001",
		Items: []PurchaseItemInput{{
			ProductID: uuid.New(),
			Quantity:  decimal.NewFromInt(10),
			UnitPrice: decimal.NewFromInt(100),
		}},
		PaidAmount:    decimal.NewFromFloat(paid),
		PaymentMethod: finance.PaymentMethodCash,
	}
}

func TestCreatePurchaseWithInitialPayment(t *testing.T) {
	purchases, _, scope := newTestStack(t)
	ctx := context.Background()
	tenantID := uuid.New()
	supplier := seedSupplier(t, scope, tenantID)

	cmd := purchaseCommand(tenantID, supplier.ID, 400)
	resp, err := purchases.CreatePurchase(ctx, cmd)
	require.NoError(t, err)

	assert.Equal(t, "1000", resp.GrandTotal.String())
	assert.Equal(t, "400", resp.PaidAmount.String())
	assert.Equal(t, "600", resp.BalanceAmount.String())
	assert.Equal(t, finance.PaymentStatusPartial, resp.PaymentStatus)
	assert.Equal(t, finance.DocumentStatusReceived, resp.Status)

	// supplier is owed the unsettled remainder
	stored, err := scope.Repos().Suppliers().FindByID(ctx, tenantID, supplier.ID)
	require.NoError(t, err)
	assert.Equal(t, "600", stored.OutstandingBalance.String())

	// goods received: two balanced entries for the document
	entries, err := scope.Repos().Entries().FindByReference(ctx, tenantID, ledger.ReferencePurchase, resp.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.NoError(t, ledger.VerifyBalanced(entries))

	// payable account nets to the outstanding remainder
	net, err := scope.Repos().Entries().SumByParty(ctx, tenantID, ledger.CodeAccountsPayable, nil, &supplier.ID)
	require.NoError(t, err)
	assert.Equal(t, "-600", net.String())

	// stock went up by the received quantity
	record, err := scope.Repos().Stock().FindByBranchAndProduct(ctx, tenantID, cmd.BranchID, cmd.Items[0].ProductID)
	require.NoError(t, err)
	assert.Equal(t, "10", record.Quantity.String())
}

func TestCreatePurchaseFullyPaid(t *testing.T) {
	purchases, _, scope := newTestStack(t)
	ctx := context.Background()
	tenantID := uuid.New()
	supplier := seedSupplier(t, scope, tenantID)

	resp, err := purchases.CreatePurchase(ctx, purchaseCommand(tenantID, supplier.ID, 1000))
	require.NoError(t, err)

	assert.Equal(t, finance.PaymentStatusPaid, resp.PaymentStatus)
	assert.True(t, resp.BalanceAmount.IsZero())

	stored, err := scope.Repos().Suppliers().FindByID(ctx, tenantID, supplier.ID)
	require.NoError(t, err)
	assert.True(t, stored.OutstandingBalance.IsZero())
}

func TestCreatePurchaseRejections(t *testing.T) {
	purchases, _, scope := newTestStack(t)
	ctx := context.Background()
	tenantID := uuid.New()
	supplier := seedSupplier(t, scope, tenantID)

	t.Run("unknown supplier", func(t *testing.T) {
		cmd := purchaseCommand(tenantID, uuid.New(), 0)
		_, err := purchases.CreatePurchase(ctx, cmd)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("negative paid amount", func(t *testing.T) {
		cmd := purchaseCommand(tenantID, supplier.ID, -5)
		_, err := purchases.CreatePurchase(ctx, cmd)
		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("initial payment exceeding the total", func(t *testing.T) {
		cmd := purchaseCommand(tenantID, supplier.ID, 1500)
		_, err := purchases.CreatePurchase(ctx, cmd)
		assert.ErrorIs(t, err, shared.ErrConflict)
	})

	t.Run("no items", func(t *testing.T) {
		cmd := purchaseCommand(tenantID, supplier.ID, 0)
		cmd.Items = nil
		_, err := purchases.CreatePurchase(ctx, cmd)
		assert.ErrorIs(t, err, shared.ErrValidation)
	})
}

func TestCancelPurchaseCompensatesEverything(t *testing.T) {
	purchases, _, scope := newTestStack(t)
	ctx := context.Background()
	tenantID := uuid.New()
	supplier := seedSupplier(t, scope, tenantID)

	cmd := purchaseCommand(tenantID, supplier.ID, 0)
	created, err := purchases.CreatePurchase(ctx, cmd)
	require.NoError(t, err)

	cancelled, err := purchases.CancelPurchase(ctx, tenantID, created.ID, "ordered in error")
	require.NoError(t, err)
	assert.Equal(t, finance.DocumentStatusCancelled, cancelled.Status)

	// supplier owes nothing again
	stored, err := scope.Repos().Suppliers().FindByID(ctx, tenantID, supplier.ID)
	require.NoError(t, err)
	assert.True(t, stored.OutstandingBalance.IsZero())

	// stock increase backed out
	record, err := scope.Repos().Stock().FindByBranchAndProduct(ctx, tenantID, cmd.BranchID, cmd.Items[0].ProductID)
	require.NoError(t, err)
	assert.True(t, record.Quantity.IsZero())

	// forward and reversal entries net to zero under the same reference
	entries, err := scope.Repos().Entries().FindByReference(ctx, tenantID, ledger.ReferencePurchase, created.ID)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	debit, credit := ledger.SumSides(entries)
	assert.True(t, debit.Equal(credit))
}

func TestCancelPurchaseBlockedByCompletedPayments(t *testing.T) {
	purchases, payments, scope := newTestStack(t)
	ctx := context.Background()
	tenantID := uuid.New()
	supplier := seedSupplier(t, scope, tenantID)

	created, err := purchases.CreatePurchase(ctx, purchaseCommand(tenantID, supplier.ID, 0))
	require.NoError(t, err)

	payment, err := payments.RecordPayment(ctx, RecordPaymentCommand{
		TenantID:   tenantID,
		PurchaseID: created.ID,
		Amount:     decimal.NewFromInt(400),
		Method:     finance.PaymentMethodBankTransfer,
	})
	require.NoError(t, err)

	_, err = purchases.CancelPurchase(ctx, tenantID, created.ID, "change of plans")
	assert.ErrorIs(t, err, shared.ErrConflict)

	// deleting the payment unblocks the cancellation
	_, err = payments.DeletePayment(ctx, tenantID, payment.ID)
	require.NoError(t, err)

	cancelled, err := purchases.CancelPurchase(ctx, tenantID, created.ID, "change of plans")
	require.NoError(t, err)
	assert.Equal(t, finance.DocumentStatusCancelled, cancelled.Status)

	stored, err := scope.Repos().Suppliers().FindByID(ctx, tenantID, supplier.ID)
	require.NoError(t, err)
	assert.True(t, stored.OutstandingBalance.IsZero())
}

func TestCancelPurchaseBlockedByConsumedStock(t *testing.T) {
	purchases, _, scope := newTestStack(t)
	ctx := context.Background()
	tenantID := uuid.New()
	supplier := seedSupplier(t, scope, tenantID)

	cmd := purchaseCommand(tenantID, supplier.ID, 0)
	created, err := purchases.CreatePurchase(ctx, cmd)
	require.NoError(t, err)

	// most of the received quantity has since been consumed
	require.NoError(t, scope.Repos().Stock().AdjustQuantity(ctx, tenantID, cmd.BranchID, cmd.Items[0].ProductID, decimal.NewFromInt(-8)))

	_, err = purchases.CancelPurchase(ctx, tenantID, created.ID, "supplier recall")
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrConflict)
	assert.Contains(t, err.Error(), "already consumed")
}

func TestCancelPurchaseTwiceConflicts(t *testing.T) {
	purchases, _, scope := newTestStack(t)
	ctx := context.Background()
	tenantID := uuid.New()
	supplier := seedSupplier(t, scope, tenantID)

	created, err := purchases.CreatePurchase(ctx, purchaseCommand(tenantID, supplier.ID, 0))
	require.NoError(t, err)

	_, err = purchases.CancelPurchase(ctx, tenantID, created.ID, "ordered in error")
	require.NoError(t, err)

	_, err = purchases.CancelPurchase(ctx, tenantID, created.ID, "again")
	assert.ErrorIs(t, err, shared.ErrConflict)
}

func TestGetAndListPurchases(t *testing.T) {
	purchases, _, scope := newTestStack(t)
	ctx := context.Background()
	tenantID := uuid.New()
	supplier := seedSupplier(t, scope, tenantID)

	created, err := purchases.CreatePurchase(ctx, purchaseCommand(tenantID, supplier.ID, 0))
	require.NoError(t, err)

	got, err := purchases.GetPurchase(ctx, tenantID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = purchases.GetPurchase(ctx, tenantID, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)

	// another tenant sees nothing
	_, err = purchases.GetPurchase(ctx, uuid.New(), created.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	list, err := purchases.ListPurchases(ctx, tenantID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
