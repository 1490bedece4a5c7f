package finance

import (
	"context"
	"errors"
	"fmt"

	appledger "github.com/finledger/backend/internal/application/ledger"
	"github.com/finledger/backend/internal/application/orchestrator"
	"github.com/finledger/backend/internal/domain/emi"
	"github.com/finledger/backend/internal/domain/finance"
	"github.com/finledger/backend/internal/domain/ledger"
	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentService orchestrates settlements against purchase documents
// and their compensation. Deleting a payment never erases the row: the
// payment flips to CANCELLED, its ledger entries are reversed, and the
// linked document and party balance are rolled back in the same unit.
type PaymentService struct {
	scope      orchestrator.TransactionScope
	posting    *appledger.PostingEngine
	logger     *zap.Logger
	maxRetries int
}

// PaymentServiceOption is a functional option for PaymentService configuration
type PaymentServiceOption func(*PaymentService)

// WithPaymentMaxRetries overrides the write-conflict retry budget
func WithPaymentMaxRetries(n int) PaymentServiceOption {
	return func(s *PaymentService) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(scope orchestrator.TransactionScope, posting *appledger.PostingEngine, logger *zap.Logger, opts ...PaymentServiceOption) *PaymentService {
	s := &PaymentService{
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

// RecordPayment settles an amount against a purchase document: payment
// row, document paid/balance/status, ledger entries and the supplier's
// outstanding all move together.
func (s *PaymentService) RecordPayment(ctx context.Context, cmd RecordPaymentCommand) (*PaymentResponse, error) {
	amount := valueobject.NewMoney(cmd.Amount)
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("payment amount must be positive, got %s", cmd.Amount)
	}
	if !cmd.Method.IsValid() {
		return nil, shared.NewValidationError("invalid payment method %q", cmd.Method)
	}

	var resp *PaymentResponse
	err := orchestrator.RunWithRetry(ctx, s.scope, s.maxRetries, func(repos orchestrator.TxRepositories) error {
		purchase, err := repos.Purchases().FindByID(ctx, cmd.TenantID, cmd.PurchaseID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NewNotFoundError("purchase %s not found", cmd.PurchaseID)
			}
			return err
		}
		supplier, err := repos.Suppliers().FindByID(ctx, cmd.TenantID, purchase.SupplierID)
		if err != nil {
			return err
		}

		payment, err := finance.NewPayment(cmd.TenantID, purchase.BranchID, paymentNumberFor(purchase.PurchaseNumber), finance.PaymentTypeOutflow, amount, cmd.Method, cmd.Date)
		if err != nil {
			return err
		}
		payment.SupplierID = &purchase.SupplierID
		payment.PurchaseID = &purchase.ID
		if cmd.CreatedBy != nil {
			payment.SetCreatedBy(*cmd.CreatedBy)
		}

		if err := purchase.ApplyPayment(amount); err != nil {
			return err
		}
		if err := payment.Complete(); err != nil {
			return err
		}

		_, err = s.posting.Post(ctx, repos, &ledger.PostingEvent{
			Type:           ledger.ReferencePayment,
			TenantID:       cmd.TenantID,
			BranchID:       purchase.BranchID,
			ReferenceID:    payment.ID,
			Amount:         amount,
			SettlementCode: cmd.Method.SettlementCode(),
			Inflow:         false,
			SupplierID:     &purchase.SupplierID,
			PaymentID:      &payment.ID,
			CreatedBy:      cmd.CreatedBy,
			Narration:      fmt.Sprintf("payment against purchase %s", purchase.PurchaseNumber),
		})
		if err != nil {
			return err
		}

		if err := repos.Payments().Create(ctx, payment); err != nil {
			return err
		}
		if err := repos.Purchases().SaveWithLock(ctx, purchase); err != nil {
			return err
		}
		supplier.AdjustOutstanding(amount.Negate())
		if err := repos.Suppliers().SaveWithLock(ctx, supplier); err != nil {
			return err
		}

		resp = ToPaymentResponse(payment)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment recorded",
		zap.String("tenant_id", cmd.TenantID.String()),
		zap.String("purchase_id", cmd.PurchaseID.String()),
		zap.String("amount", cmd.Amount.String()),
	)
	return resp, nil
}

// DeletePayment compensates one completed payment. The ledger entries
// are reversed, the linked purchase or EMI plan gives back exactly what
// the payment contributed, and the party balance is restored. The
// payment row itself survives as CANCELLED.
func (s *PaymentService) DeletePayment(ctx context.Context, tenantID, paymentID uuid.UUID) (*PaymentResponse, error) {
	var resp *PaymentResponse
	err := orchestrator.RunWithRetry(ctx, s.scope, s.maxRetries, func(repos orchestrator.TxRepositories) error {
		payment, err := repos.Payments().FindByID(ctx, tenantID, paymentID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NewNotFoundError("payment %s not found", paymentID)
			}
			return err
		}
		if payment.State != finance.PaymentStateCompleted {
			return shared.NewConflictError("payment %s is %s; only completed payments can be deleted", paymentID, payment.State)
		}

		if err := payment.Cancel(); err != nil {
			return err
		}
		_, err = s.posting.ReversePayment(ctx, repos, tenantID, payment.ID, fmt.Sprintf("payment %s deleted", payment.PaymentNumber))
		if err != nil {
			return err
		}

		amount := payment.AmountMoney()
		switch {
		case payment.PurchaseID != nil:
			if err := s.revertPurchasePayment(ctx, repos, tenantID, payment, amount); err != nil {
				return err
			}
		case payment.EMIPlanID != nil:
			if err := s.revertPlanPayment(ctx, repos, tenantID, payment, amount); err != nil {
				return err
			}
		}

		if payment.Type == finance.PaymentTypeInflow && payment.CustomerID != nil {
			customer, err := repos.Customers().FindByID(ctx, tenantID, *payment.CustomerID)
			if err != nil {
				return err
			}
			customer.AdjustOutstanding(amount)
			if err := repos.Customers().SaveWithLock(ctx, customer); err != nil {
				return err
			}
		}
		if payment.Type == finance.PaymentTypeOutflow && payment.SupplierID != nil {
			supplier, err := repos.Suppliers().FindByID(ctx, tenantID, *payment.SupplierID)
			if err != nil {
				return err
			}
			supplier.AdjustOutstanding(amount)
			if err := repos.Suppliers().SaveWithLock(ctx, supplier); err != nil {
				return err
			}
		}

		if err := repos.Payments().SaveWithLock(ctx, payment); err != nil {
			return err
		}

		resp = ToPaymentResponse(payment)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment deleted",
		zap.String("tenant_id", tenantID.String()),
		zap.String("payment_id", paymentID.String()),
	)
	return resp, nil
}

func (s *PaymentService) revertPurchasePayment(ctx context.Context, repos orchestrator.TxRepositories, tenantID uuid.UUID, payment *finance.Payment, amount valueobject.Money) error {
	purchase, err := repos.Purchases().FindByID(ctx, tenantID, *payment.PurchaseID)
	if err != nil {
		return err
	}
	if err := purchase.RevertPayment(amount); err != nil {
		return err
	}
	return repos.Purchases().SaveWithLock(ctx, purchase)
}

func (s *PaymentService) revertPlanPayment(ctx context.Context, repos orchestrator.TxRepositories, tenantID uuid.UUID, payment *finance.Payment, amount valueobject.Money) error {
	plan, err := repos.Plans().FindByID(ctx, tenantID, *payment.EMIPlanID)
	if err != nil {
		return err
	}

	reversals := make([]emi.AllocationReversal, 0, len(payment.Allocations))
	allocated := decimal.Zero
	for _, alloc := range payment.Allocations {
		reversals = append(reversals, emi.AllocationReversal{
			InstallmentNumber: alloc.InstallmentNumber,
			Amount:            alloc.Amount,
		})
		allocated = allocated.Add(alloc.Amount)
	}
	advanceDelta := amount.Amount().Sub(allocated)

	if err := plan.RevertAllocations(reversals, advanceDelta); err != nil {
		return err
	}
	return repos.Plans().SaveWithLock(ctx, plan)
}

// GetPayment returns one payment
func (s *PaymentService) GetPayment(ctx context.Context, tenantID, paymentID uuid.UUID) (*PaymentResponse, error) {
	var resp *PaymentResponse
	err := s.scope.Execute(ctx, func(repos orchestrator.TxRepositories) error {
		payment, err := repos.Payments().FindByID(ctx, tenantID, paymentID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NewNotFoundError("payment %s not found", paymentID)
			}
			return err
		}
		resp = ToPaymentResponse(payment)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
