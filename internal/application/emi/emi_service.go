package emi

import (
	"context"
	"errors"
	"fmt"
	"time"

	appfinance "github.com/finledger/backend/internal/application/finance"
	appledger "github.com/finledger/backend/internal/application/ledger"
	"github.com/finledger/backend/internal/application/orchestrator"
	"github.com/finledger/backend/internal/domain/emi"
	"github.com/finledger/backend/internal/domain/finance"
	"github.com/finledger/backend/internal/domain/ledger"
	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EMIService orchestrates installment plans: creation with an optional
// down payment, installment settlement, webhook-driven reconciliation,
// and the externally triggered overdue/default transitions.
type EMIService struct {
	scope      orchestrator.TransactionScope
	posting    *appledger.PostingEngine
	logger     *zap.Logger
	maxRetries int
}

// EMIServiceOption is a functional option for EMIService configuration
type EMIServiceOption func(*EMIService)

// WithEMIMaxRetries overrides the write-conflict retry budget
func WithEMIMaxRetries(n int) EMIServiceOption {
	return func(s *EMIService) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

// NewEMIService creates a new EMIService
func NewEMIService(scope orchestrator.TransactionScope, posting *appledger.PostingEngine, logger *zap.Logger, opts ...EMIServiceOption) *EMIService {
	s := &EMIService{
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

// CreatePlan creates an active plan with a numbered schedule. A down
// payment, when given, is allocated oldest-first and posted as a
// balanced inflow in the same unit of work.
func (s *EMIService) CreatePlan(ctx context.Context, cmd CreatePlanCommand) (*PlanResponse, error) {
	down := valueobject.NewMoney(cmd.DownPayment)
	if down.IsNegative() {
		return nil, shared.NewValidationError("down payment cannot be negative, got %s", cmd.DownPayment)
	}
	if down.IsPositive() && !cmd.PaymentMethod.IsValid() {
		return nil, shared.NewValidationError("invalid payment method %q", cmd.PaymentMethod)
	}

	specs := make([]emi.InstallmentSpec, 0, len(cmd.Installments))
	for _, in := range cmd.Installments {
		specs = append(specs, emi.InstallmentSpec{DueDate: in.DueDate, Amount: in.Amount})
	}

	var resp *PlanResponse
	err := orchestrator.RunWithRetry(ctx, s.scope, s.maxRetries, func(repos orchestrator.TxRepositories) error {
		customer, err := repos.Customers().FindByID(ctx, cmd.TenantID, cmd.CustomerID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NewNotFoundError("customer %s not found", cmd.CustomerID)
			}
			return err
		}

		plan, err := emi.NewEMIPlan(cmd.TenantID, cmd.BranchID, cmd.CustomerID, cmd.PlanNumber, specs)
		if err != nil {
			return err
		}
		plan.InvoiceID = cmd.InvoiceID
		if cmd.CreatedBy != nil {
			plan.SetCreatedBy(*cmd.CreatedBy)
		}

		if down.IsPositive() {
			payment, err := finance.NewPayment(cmd.TenantID, cmd.BranchID, fmt.Sprintf("PAY-%s-DP", cmd.PlanNumber), finance.PaymentTypeInflow, down, cmd.PaymentMethod, time.Now())
			if err != nil {
				return err
			}
			payment.CustomerID = &cmd.CustomerID
			payment.EMIPlanID = &plan.ID
			payment.InvoiceID = cmd.InvoiceID
			if cmd.CreatedBy != nil {
				payment.SetCreatedBy(*cmd.CreatedBy)
			}

			result, err := plan.Allocate(down)
			if err != nil {
				return err
			}
			for _, applied := range result.Applied {
				payment.AddAllocation(plan.ID, applied.InstallmentNumber, applied.Applied)
			}
			if err := payment.Complete(); err != nil {
				return err
			}

			_, err = s.posting.Post(ctx, repos, &ledger.PostingEvent{
				Type:           ledger.ReferenceEMIDownPayment,
				TenantID:       cmd.TenantID,
				BranchID:       cmd.BranchID,
				ReferenceID:    payment.ID,
				Amount:         down,
				SettlementCode: cmd.PaymentMethod.SettlementCode(),
				Inflow:         true,
				CustomerID:     &cmd.CustomerID,
				PaymentID:      &payment.ID,
				CreatedBy:      cmd.CreatedBy,
				Narration:      fmt.Sprintf("down payment on plan %s", cmd.PlanNumber),
			})
			if err != nil {
				return err
			}
			if err := repos.Payments().Create(ctx, payment); err != nil {
				return err
			}

			customer.AdjustOutstanding(down.Negate())
			if err := repos.Customers().SaveWithLock(ctx, customer); err != nil {
				return err
			}
		}

		if err := repos.Plans().Create(ctx, plan); err != nil {
			return err
		}

		resp = ToPlanResponse(plan)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("emi plan created",
		zap.String("tenant_id", cmd.TenantID.String()),
		zap.String("plan_number", cmd.PlanNumber),
		zap.Int("installments", len(cmd.Installments)),
		zap.String("down_payment", cmd.DownPayment.String()),
	)
	return resp, nil
}

// PayInstallment settles an amount against a plan. The targeted
// installment must exist and still have something pending; allocation
// itself always walks the schedule oldest-first, so an amount larger
// than the target spills onto later installments and any surplus past
// the whole schedule lands in the advance balance.
func (s *EMIService) PayInstallment(ctx context.Context, cmd PayInstallmentCommand) (*PaymentResult, error) {
	amount := valueobject.NewMoney(cmd.Amount)
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("payment amount must be positive, got %s", cmd.Amount)
	}
	if !cmd.Method.IsValid() {
		return nil, shared.NewValidationError("invalid payment method %q", cmd.Method)
	}

	var result *PaymentResult
	err := orchestrator.RunWithRetry(ctx, s.scope, s.maxRetries, func(repos orchestrator.TxRepositories) error {
		plan, err := repos.Plans().FindByID(ctx, cmd.TenantID, cmd.PlanID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NewNotFoundError("plan %s not found", cmd.PlanID)
			}
			return err
		}

		if err := validateTarget(plan, cmd.InstallmentNumber); err != nil {
			return err
		}

		result, err = s.settle(ctx, repos, plan, amount, cmd.Method, "", cmd.CreatedBy)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("installment paid",
		zap.String("tenant_id", cmd.TenantID.String()),
		zap.String("plan_id", cmd.PlanID.String()),
		zap.Int("installment", cmd.InstallmentNumber),
		zap.String("amount", cmd.Amount.String()),
	)
	return result, nil
}

// ReconcileExternalPayment settles an externally collected amount
// reported by a gateway webhook. The plan is found either directly or
// through the invoice it finances.
func (s *EMIService) ReconcileExternalPayment(ctx context.Context, cmd ReconcileCommand) (*PaymentResult, error) {
	amount := valueobject.NewMoney(cmd.Amount)
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("reconciled amount must be positive, got %s", cmd.Amount)
	}
	if cmd.PlanID == nil && cmd.InvoiceID == nil {
		return nil, shared.NewValidationError("reconciliation requires a plan or invoice id")
	}

	var result *PaymentResult
	err := orchestrator.RunWithRetry(ctx, s.scope, s.maxRetries, func(repos orchestrator.TxRepositories) error {
		var plan *emi.EMIPlan
		var err error
		if cmd.PlanID != nil {
			plan, err = repos.Plans().FindByID(ctx, cmd.TenantID, *cmd.PlanID)
		} else {
			plan, err = repos.Plans().FindByInvoice(ctx, cmd.TenantID, *cmd.InvoiceID)
		}
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NewNotFoundError("no plan matches the reconciliation reference")
			}
			return err
		}

		result, err = s.settle(ctx, repos, plan, amount, finance.PaymentMethodOnline, cmd.GatewayRef, nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("external payment reconciled",
		zap.String("tenant_id", cmd.TenantID.String()),
		zap.String("gateway_ref", cmd.GatewayRef),
		zap.String("amount", cmd.Amount.String()),
	)
	return result, nil
}

// settle allocates one inflow against the plan and records everything
// that moves with it: the payment row with its per-installment
// allocations, the balanced ledger entries, and the customer's
// outstanding balance.
func (s *EMIService) settle(ctx context.Context, repos orchestrator.TxRepositories, plan *emi.EMIPlan, amount valueobject.Money, method finance.PaymentMethod, gatewayRef string, createdBy *uuid.UUID) (*PaymentResult, error) {
	payment, err := finance.NewPayment(plan.TenantID, plan.BranchID, fmt.Sprintf("PAY-%s-%s", plan.PlanNumber, uuid.NewString()[:8]), finance.PaymentTypeInflow, amount, method, time.Now())
	if err != nil {
		return nil, err
	}
	payment.CustomerID = &plan.CustomerID
	payment.EMIPlanID = &plan.ID
	payment.InvoiceID = plan.InvoiceID
	payment.GatewayRef = gatewayRef
	if createdBy != nil {
		payment.SetCreatedBy(*createdBy)
	}

	allocation, err := plan.Allocate(amount)
	if err != nil {
		return nil, err
	}
	for _, applied := range allocation.Applied {
		payment.AddAllocation(plan.ID, applied.InstallmentNumber, applied.Applied)
	}
	if err := payment.Complete(); err != nil {
		return nil, err
	}

	_, err = s.posting.Post(ctx, repos, &ledger.PostingEvent{
		Type:           ledger.ReferenceEMIPayment,
		TenantID:       plan.TenantID,
		BranchID:       plan.BranchID,
		ReferenceID:    payment.ID,
		Amount:         amount,
		SettlementCode: method.SettlementCode(),
		Inflow:         true,
		CustomerID:     &plan.CustomerID,
		PaymentID:      &payment.ID,
		CreatedBy:      createdBy,
		Narration:      fmt.Sprintf("installment payment on plan %s", plan.PlanNumber),
	})
	if err != nil {
		return nil, err
	}

	if err := repos.Payments().Create(ctx, payment); err != nil {
		return nil, err
	}
	if err := repos.Plans().SaveWithLock(ctx, plan); err != nil {
		return nil, err
	}

	customer, err := repos.Customers().FindByID(ctx, plan.TenantID, plan.CustomerID)
	if err != nil {
		return nil, err
	}
	customer.AdjustOutstanding(amount.Negate())
	if err := repos.Customers().SaveWithLock(ctx, customer); err != nil {
		return nil, err
	}

	return &PaymentResult{
		Plan:       ToPlanResponse(plan),
		Payment:    appfinance.ToPaymentResponse(payment),
		Allocation: allocation,
	}, nil
}

func validateTarget(plan *emi.EMIPlan, installmentNumber int) error {
	for i := range plan.Installments {
		inst := &plan.Installments[i]
		if inst.InstallmentNumber != installmentNumber {
			continue
		}
		if inst.IsSettled() {
			return shared.NewConflictError("installment %d of plan %s is already paid", installmentNumber, plan.ID)
		}
		return nil
	}
	return shared.NewNotFoundError("plan %s has no installment %d", plan.ID, installmentNumber)
}

// ApplyAdvance draws the plan's advance balance down against one target
// installment, capped at that installment's pending amount.
func (s *EMIService) ApplyAdvance(ctx context.Context, tenantID, planID uuid.UUID, installmentNumber int) (*PlanResponse, error) {
	var resp *PlanResponse
	err := orchestrator.RunWithRetry(ctx, s.scope, s.maxRetries, func(repos orchestrator.TxRepositories) error {
		plan, err := repos.Plans().FindByID(ctx, tenantID, planID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NewNotFoundError("plan %s not found", planID)
			}
			return err
		}
		drawn, err := plan.ApplyAdvance(installmentNumber)
		if err != nil {
			return err
		}
		if err := repos.Plans().SaveWithLock(ctx, plan); err != nil {
			return err
		}
		s.logger.Info("advance applied",
			zap.String("plan_id", planID.String()),
			zap.Int("installment", installmentNumber),
			zap.String("drawn", drawn.String()),
		)
		resp = ToPlanResponse(plan)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// MarkOverdue transitions past-due pending/partial installments to
// overdue as of the given time. Meant to be driven by a scheduler.
func (s *EMIService) MarkOverdue(ctx context.Context, tenantID, planID uuid.UUID, asOf time.Time) (*PlanResponse, error) {
	var resp *PlanResponse
	err := orchestrator.RunWithRetry(ctx, s.scope, s.maxRetries, func(repos orchestrator.TxRepositories) error {
		plan, err := repos.Plans().FindByID(ctx, tenantID, planID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NewNotFoundError("plan %s not found", planID)
			}
			return err
		}
		flipped := plan.MarkOverdue(asOf)
		if len(flipped) > 0 {
			if err := repos.Plans().SaveWithLock(ctx, plan); err != nil {
				return err
			}
			s.logger.Info("installments marked overdue",
				zap.String("plan_id", planID.String()),
				zap.Ints("installments", flipped),
			)
		}
		resp = ToPlanResponse(plan)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// MarkDefaulted transitions an active plan with a non-paid overdue
// installment to defaulted. Meant to be driven by a scheduler or a
// collections operator.
func (s *EMIService) MarkDefaulted(ctx context.Context, tenantID, planID uuid.UUID) (*PlanResponse, error) {
	var resp *PlanResponse
	err := orchestrator.RunWithRetry(ctx, s.scope, s.maxRetries, func(repos orchestrator.TxRepositories) error {
		plan, err := repos.Plans().FindByID(ctx, tenantID, planID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NewNotFoundError("plan %s not found", planID)
			}
			return err
		}
		if err := plan.MarkDefaulted(); err != nil {
			return err
		}
		if err := repos.Plans().SaveWithLock(ctx, plan); err != nil {
			return err
		}
		resp = ToPlanResponse(plan)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Warn("emi plan defaulted",
		zap.String("tenant_id", tenantID.String()),
		zap.String("plan_id", planID.String()),
	)
	return resp, nil
}

// GetPlan returns one plan with its schedule
func (s *EMIService) GetPlan(ctx context.Context, tenantID, planID uuid.UUID) (*PlanResponse, error) {
	var resp *PlanResponse
	err := s.scope.Execute(ctx, func(repos orchestrator.TxRepositories) error {
		plan, err := repos.Plans().FindByID(ctx, tenantID, planID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NewNotFoundError("plan %s not found", planID)
			}
			return err
		}
		resp = ToPlanResponse(plan)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
