package finance

import (
	"context"
	"errors"
	"fmt"

	appledger "github.com/finledger/backend/internal/application/ledger"
	"github.com/finledger/backend/internal/application/orchestrator"
	"github.com/finledger/backend/internal/domain/finance"
	"github.com/finledger/backend/internal/domain/inventory"
	"github.com/finledger/backend/internal/domain/ledger"
	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PurchaseService orchestrates the purchase document lifecycle. Each
// operation is one atomic unit of work: the document, stock, ledger and
// supplier balance all commit together or not at all, with a bounded
// retry on transient write conflicts.
type PurchaseService struct {
	scope      orchestrator.TransactionScope
	posting    *appledger.PostingEngine
	logger     *zap.Logger
	maxRetries int
}

// PurchaseServiceOption is a functional option for PurchaseService configuration
type PurchaseServiceOption func(*PurchaseService)

// WithPurchaseMaxRetries overrides the write-conflict retry budget
func WithPurchaseMaxRetries(n int) PurchaseServiceOption {
	return func(s *PurchaseService) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

// NewPurchaseService creates a new PurchaseService
func NewPurchaseService(scope orchestrator.TransactionScope, posting *appledger.PostingEngine, logger *zap.Logger, opts ...PurchaseServiceOption) *PurchaseService {
	s := &PurchaseService{
		scope:      scope,
		posting:    posting,
		logger:     logger,
		maxRetries: orchestrator.DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreatePurchase records goods received from a supplier: the document
// with computed totals, a stock increase per line, the balanced ledger
// entries, the supplier's outstanding balance, and optionally an
// initial payment settled in the same unit.
func (s *PurchaseService) CreatePurchase(ctx context.Context, cmd CreatePurchaseCommand) (*PurchaseResponse, error) {
	paid := valueobject.NewMoney(cmd.PaidAmount)
	if paid.IsNegative() {
		return nil, shared.NewValidationError("paid amount cannot be negative, got %s", cmd.PaidAmount)
	}
	if paid.IsPositive() && !cmd.PaymentMethod.IsValid() {
		return nil, shared.NewValidationError("invalid payment method %q", cmd.PaymentMethod)
	}

	var resp *PurchaseResponse
	err := orchestrator.RunWithRetry(ctx, s.scope, s.maxRetries, func(repos orchestrator.TxRepositories) error {
		supplier, err := repos.Suppliers().FindByID(ctx, cmd.TenantID, cmd.SupplierID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NewNotFoundError("supplier %s not found", cmd.SupplierID)
			}
			return err
		}

		items := make([]finance.PurchaseItem, 0, len(cmd.Items))
		for _, in := range cmd.Items {
			item, err := finance.NewPurchaseItem(in.ProductID, in.Quantity, in.UnitPrice, in.TaxAmount, in.DiscountAmount)
			if err != nil {
				return err
			}
			items = append(items, *item)
		}

		purchase, err := finance.NewPurchase(cmd.TenantID, cmd.BranchID, cmd.SupplierID, cmd.PurchaseNumber, items)
		if err != nil {
			return err
		}
		if cmd.CreatedBy != nil {
			purchase.SetCreatedBy(*cmd.CreatedBy)
		}

		for i := range purchase.Items {
			item := &purchase.Items[i]
			if err := repos.Stock().AdjustQuantity(ctx, cmd.TenantID, cmd.BranchID, item.ProductID, item.Quantity); err != nil {
				return err
			}
			movement := inventory.NewStockMovement(cmd.TenantID, cmd.BranchID, item.ProductID, inventory.MovementPurchase, item.Quantity, purchase.ID)
			if err := repos.Stock().RecordMovement(ctx, movement); err != nil {
				return err
			}
		}

		_, err = s.posting.Post(ctx, repos, &ledger.PostingEvent{
			Type:        ledger.ReferencePurchase,
			TenantID:    cmd.TenantID,
			BranchID:    cmd.BranchID,
			ReferenceID: purchase.ID,
			GrandTotal:  purchase.GrandTotalMoney(),
			SupplierID:  &cmd.SupplierID,
			CreatedBy:   cmd.CreatedBy,
			Narration:   fmt.Sprintf("purchase %s received", purchase.PurchaseNumber),
		})
		if err != nil {
			return err
		}

		// The supplier is owed the grand total, offset in the same unit
		// by whatever was settled up front.
		outstandingDelta := purchase.GrandTotalMoney()

		if paid.IsPositive() {
			payment, err := finance.NewPayment(cmd.TenantID, cmd.BranchID, paymentNumberFor(purchase.PurchaseNumber), finance.PaymentTypeOutflow, paid, cmd.PaymentMethod, purchase.PurchaseDate)
			if err != nil {
				return err
			}
			payment.SupplierID = &cmd.SupplierID
			payment.PurchaseID = &purchase.ID
			if cmd.CreatedBy != nil {
				payment.SetCreatedBy(*cmd.CreatedBy)
			}

			if err := purchase.ApplyPayment(paid); err != nil {
				return err
			}
			if err := payment.Complete(); err != nil {
				return err
			}

			_, err = s.posting.Post(ctx, repos, &ledger.PostingEvent{
				Type:           ledger.ReferencePayment,
				TenantID:       cmd.TenantID,
				BranchID:       cmd.BranchID,
				ReferenceID:    payment.ID,
				Amount:         paid,
				SettlementCode: cmd.PaymentMethod.SettlementCode(),
				Inflow:         false,
				SupplierID:     &cmd.SupplierID,
				PaymentID:      &payment.ID,
				CreatedBy:      cmd.CreatedBy,
				Narration:      fmt.Sprintf("initial payment for purchase %s", purchase.PurchaseNumber),
			})
			if err != nil {
				return err
			}
			if err := repos.Payments().Create(ctx, payment); err != nil {
				return err
			}
			outstandingDelta = outstandingDelta.Subtract(paid)
		}

		if err := repos.Purchases().Create(ctx, purchase); err != nil {
			return err
		}

		supplier.AdjustOutstanding(outstandingDelta)
		if err := repos.Suppliers().SaveWithLock(ctx, supplier); err != nil {
			return err
		}

		resp = ToPurchaseResponse(purchase)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("purchase created",
		zap.String("tenant_id", cmd.TenantID.String()),
		zap.String("purchase_number", cmd.PurchaseNumber),
		zap.String("grand_total", resp.GrandTotal.String()),
		zap.String("payment_status", resp.PaymentStatus.String()),
	)
	return resp, nil
}

// CancelPurchase compensates a received purchase: the stock increase is
// backed out, the forward ledger entries are reversed, and the
// supplier's outstanding drops by the grand total. A purchase with any
// settled payment cannot be cancelled until those payments are deleted.
func (s *PurchaseService) CancelPurchase(ctx context.Context, tenantID, purchaseID uuid.UUID, reason string) (*PurchaseResponse, error) {
	var resp *PurchaseResponse
	err := orchestrator.RunWithRetry(ctx, s.scope, s.maxRetries, func(repos orchestrator.TxRepositories) error {
		purchase, err := repos.Purchases().FindByID(ctx, tenantID, purchaseID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NewNotFoundError("purchase %s not found", purchaseID)
			}
			return err
		}

		completed, err := repos.Payments().CountCompletedByPurchase(ctx, tenantID, purchaseID)
		if err != nil {
			return err
		}
		if completed > 0 {
			return shared.NewConflictError("purchase %s has %d completed payments; delete them before cancelling", purchaseID, completed)
		}

		if err := purchase.Cancel(reason); err != nil {
			return err
		}

		for i := range purchase.Items {
			item := &purchase.Items[i]
			if err := repos.Stock().AdjustQuantity(ctx, tenantID, purchase.BranchID, item.ProductID, item.Quantity.Neg()); err != nil {
				if errors.Is(err, shared.ErrInsufficientStock) {
					return shared.NewConflictError("cannot cancel purchase %s: stock for product %s was already consumed", purchaseID, item.ProductID)
				}
				return err
			}
			movement := inventory.NewStockMovement(tenantID, purchase.BranchID, item.ProductID, inventory.MovementPurchaseReverse, item.Quantity.Neg(), purchase.ID)
			if err := repos.Stock().RecordMovement(ctx, movement); err != nil {
				return err
			}
		}

		_, err = s.posting.ReverseReference(ctx, repos, tenantID, ledger.ReferencePurchase, purchase.ID, fmt.Sprintf("purchase %s cancelled: %s", purchase.PurchaseNumber, reason))
		if err != nil {
			return err
		}

		supplier, err := repos.Suppliers().FindByID(ctx, tenantID, purchase.SupplierID)
		if err != nil {
			return err
		}
		supplier.AdjustOutstanding(purchase.GrandTotalMoney().Negate())
		if err := repos.Suppliers().SaveWithLock(ctx, supplier); err != nil {
			return err
		}

		if err := repos.Purchases().SaveWithLock(ctx, purchase); err != nil {
			return err
		}

		resp = ToPurchaseResponse(purchase)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("purchase cancelled",
		zap.String("tenant_id", tenantID.String()),
		zap.String("purchase_id", purchaseID.String()),
		zap.String("reason", reason),
	)
	return resp, nil
}

// GetPurchase returns one purchase document
func (s *PurchaseService) GetPurchase(ctx context.Context, tenantID, purchaseID uuid.UUID) (*PurchaseResponse, error) {
	var resp *PurchaseResponse
	err := s.scope.Execute(ctx, func(repos orchestrator.TxRepositories) error {
		purchase, err := repos.Purchases().FindByID(ctx, tenantID, purchaseID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NewNotFoundError("purchase %s not found", purchaseID)
			}
			return err
		}
		resp = ToPurchaseResponse(purchase)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// ListPurchases returns all purchase documents for a tenant
func (s *PurchaseService) ListPurchases(ctx context.Context, tenantID uuid.UUID) ([]PurchaseResponse, error) {
	var out []PurchaseResponse
	err := s.scope.Execute(ctx, func(repos orchestrator.TxRepositories) error {
		purchases, err := repos.Purchases().FindAll(ctx, tenantID)
		if err != nil {
			return err
		}
		out = make([]PurchaseResponse, 0, len(purchases))
		for i := range purchases {
			out = append(out, *ToPurchaseResponse(&purchases[i]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func paymentNumberFor(documentNumber string) string {
	return fmt.Sprintf("PAY-%s-%s", documentNumber, uuid.NewString()[:8])
}
