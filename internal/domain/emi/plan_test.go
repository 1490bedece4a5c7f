package emi

import (
	"testing"
	"time"

	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPlan(t *testing.T, amounts ...float64) *EMIPlan {
	t.Helper()
	specs := make([]InstallmentSpec, 0, len(amounts))
	for n, amount := range amounts {
		specs = append(specs, InstallmentSpec{
			DueDate: time.Now().AddDate(0, n+1, 0),
			Amount:  decimal.NewFromFloat(amount),
		})
	}
	plan, err := NewEMIPlan(uuid.New(), uuid.New(), uuid.New(), "EMI-001", specs)
	require.NoError(t, err)
	return plan
}

func installment(t *testing.T, plan *EMIPlan, number int) *Installment {
	t.Helper()
	for i := range plan.Installments {
		if plan.Installments[i].InstallmentNumber == number {
			return &plan.Installments[i]
		}
	}
	t.Fatalf("plan has no installment %d", number)
	return nil
}

func TestNewEMIPlan(t *testing.T) {
	plan := newTestPlan(t, 100, 100, 100)

	assert.Equal(t, "300", plan.TotalAmount.String())
	assert.Equal(t, "300", plan.BalanceAmount.String())
	assert.True(t, plan.AdvanceBalance.IsZero())
	assert.Equal(t, PlanStatusActive, plan.Status)
	require.Len(t, plan.Installments, 3)
	for n, inst := range plan.Installments {
		assert.Equal(t, n+1, inst.InstallmentNumber)
		assert.Equal(t, InstallmentStatusPending, inst.PaymentStatus)
	}
}

func TestNewEMIPlanRejections(t *testing.T) {
	spec := []InstallmentSpec{{DueDate: time.Now(), Amount: decimal.NewFromInt(100)}}

	_, err := NewEMIPlan(uuid.New(), uuid.New(), uuid.New(), "", spec)
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = NewEMIPlan(uuid.New(), uuid.New(), uuid.Nil, "EMI-001", spec)
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = NewEMIPlan(uuid.New(), uuid.New(), uuid.New(), "EMI-001", nil)
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = NewEMIPlan(uuid.New(), uuid.New(), uuid.New(), "EMI-001",
		[]InstallmentSpec{{DueDate: time.Now(), Amount: decimal.Zero}})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestAllocateOldestFirst(t *testing.T) {
	plan := newTestPlan(t, 100, 100, 100)

	result, err := plan.Allocate(valueobject.NewMoneyFromFloat(250))
	require.NoError(t, err)

	require.Len(t, result.Applied, 3)
	assert.Equal(t, "100", result.Applied[0].Applied.String())
	assert.Equal(t, "100", result.Applied[1].Applied.String())
	assert.Equal(t, "50", result.Applied[2].Applied.String())
	assert.True(t, result.AdvanceDelta.IsZero())

	assert.Equal(t, InstallmentStatusPaid, installment(t, plan, 1).PaymentStatus)
	assert.Equal(t, InstallmentStatusPaid, installment(t, plan, 2).PaymentStatus)
	assert.Equal(t, InstallmentStatusPartial, installment(t, plan, 3).PaymentStatus)
	assert.Equal(t, "50", plan.BalanceAmount.String())
	assert.Equal(t, PlanStatusActive, plan.Status)
}

func TestAllocateSurplusBecomesAdvance(t *testing.T) {
	plan := newTestPlan(t, 100, 100, 100)

	result, err := plan.Allocate(valueobject.NewMoneyFromFloat(320))
	require.NoError(t, err)

	require.Len(t, result.Applied, 3)
	assert.Equal(t, "20", result.AdvanceDelta.String())
	assert.Equal(t, "20", plan.AdvanceBalance.String())
	assert.True(t, plan.BalanceAmount.IsZero())
	assert.Equal(t, PlanStatusCompleted, plan.Status)

	for n := 1; n <= 3; n++ {
		assert.Equal(t, InstallmentStatusPaid, installment(t, plan, n).PaymentStatus)
	}
}

func TestAllocateSkipsSettledInstallments(t *testing.T) {
	plan := newTestPlan(t, 100, 100, 100)

	_, err := plan.Allocate(valueobject.NewMoneyFromFloat(100))
	require.NoError(t, err)
	require.Equal(t, InstallmentStatusPaid, installment(t, plan, 1).PaymentStatus)

	result, err := plan.Allocate(valueobject.NewMoneyFromFloat(150))
	require.NoError(t, err)

	require.Len(t, result.Applied, 2)
	assert.Equal(t, 2, result.Applied[0].InstallmentNumber)
	assert.Equal(t, "100", result.Applied[0].Applied.String())
	assert.Equal(t, 3, result.Applied[1].InstallmentNumber)
	assert.Equal(t, "50", result.Applied[1].Applied.String())
}

func TestAllocatePaidWithinEpsilonSnapsToTotal(t *testing.T) {
	plan := newTestPlan(t, 100)

	_, err := plan.Allocate(valueobject.NewMoneyFromFloat(99.97))
	require.NoError(t, err)

	inst := installment(t, plan, 1)
	assert.Equal(t, InstallmentStatusPaid, inst.PaymentStatus)
	assert.Equal(t, "100", inst.PaidAmount.String())
	assert.Equal(t, PlanStatusCompleted, plan.Status)
}

func TestAllocateOnCompletedPlanConflicts(t *testing.T) {
	plan := newTestPlan(t, 100)
	_, err := plan.Allocate(valueobject.NewMoneyFromFloat(100))
	require.NoError(t, err)

	_, err = plan.Allocate(valueobject.NewMoneyFromFloat(10))
	assert.ErrorIs(t, err, shared.ErrConflict)
}

func TestAllocateRejectsNonPositiveAmount(t *testing.T) {
	plan := newTestPlan(t, 100)
	_, err := plan.Allocate(valueobject.Zero())
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestApplyAdvance(t *testing.T) {
	t.Run("draws down against the target", func(t *testing.T) {
		plan := newTestPlan(t, 100, 100, 100)
		_, err := plan.Allocate(valueobject.NewMoneyFromFloat(100))
		require.NoError(t, err)
		plan.AdvanceBalance = decimal.NewFromInt(30)

		drawn, err := plan.ApplyAdvance(2)
		require.NoError(t, err)

		assert.Equal(t, "30.00", drawn.String())
		assert.True(t, plan.AdvanceBalance.IsZero())
		inst := installment(t, plan, 2)
		assert.Equal(t, "30", inst.PaidAmount.String())
		assert.Equal(t, InstallmentStatusPartial, inst.PaymentStatus)
	})

	t.Run("capped at the installment pending amount", func(t *testing.T) {
		plan := newTestPlan(t, 100, 100)
		plan.AdvanceBalance = decimal.NewFromInt(150)

		drawn, err := plan.ApplyAdvance(1)
		require.NoError(t, err)

		assert.Equal(t, "100.00", drawn.String())
		assert.Equal(t, "50", plan.AdvanceBalance.String())
		assert.Equal(t, InstallmentStatusPaid, installment(t, plan, 1).PaymentStatus)
	})

	t.Run("no advance balance", func(t *testing.T) {
		plan := newTestPlan(t, 100)
		_, err := plan.ApplyAdvance(1)
		assert.ErrorIs(t, err, shared.ErrConflict)
	})

	t.Run("settled target", func(t *testing.T) {
		plan := newTestPlan(t, 100, 100)
		_, err := plan.Allocate(valueobject.NewMoneyFromFloat(100))
		require.NoError(t, err)
		plan.AdvanceBalance = decimal.NewFromInt(10)

		_, err = plan.ApplyAdvance(1)
		assert.ErrorIs(t, err, shared.ErrConflict)
	})

	t.Run("unknown installment", func(t *testing.T) {
		plan := newTestPlan(t, 100)
		plan.AdvanceBalance = decimal.NewFromInt(10)

		_, err := plan.ApplyAdvance(9)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestRevertAllocations(t *testing.T) {
	t.Run("gives back applied slices and reopens the plan", func(t *testing.T) {
		plan := newTestPlan(t, 100, 100, 100)
		result, err := plan.Allocate(valueobject.NewMoneyFromFloat(320))
		require.NoError(t, err)
		require.Equal(t, PlanStatusCompleted, plan.Status)

		reversals := make([]AllocationReversal, 0, len(result.Applied))
		for _, applied := range result.Applied {
			reversals = append(reversals, AllocationReversal{
				InstallmentNumber: applied.InstallmentNumber,
				Amount:            applied.Applied,
			})
		}
		require.NoError(t, plan.RevertAllocations(reversals, result.AdvanceDelta))

		assert.Equal(t, PlanStatusActive, plan.Status)
		assert.Equal(t, "300", plan.BalanceAmount.String())
		assert.True(t, plan.AdvanceBalance.IsZero())
		for n := 1; n <= 3; n++ {
			inst := installment(t, plan, n)
			assert.True(t, inst.PaidAmount.IsZero())
			assert.Equal(t, InstallmentStatusPending, inst.PaymentStatus)
		}
	})

	t.Run("partial reversal leaves the remainder", func(t *testing.T) {
		plan := newTestPlan(t, 100)
		_, err := plan.Allocate(valueobject.NewMoneyFromFloat(80))
		require.NoError(t, err)

		require.NoError(t, plan.RevertAllocations([]AllocationReversal{
			{InstallmentNumber: 1, Amount: decimal.NewFromInt(30)},
		}, decimal.Zero))

		inst := installment(t, plan, 1)
		assert.Equal(t, "50", inst.PaidAmount.String())
		assert.Equal(t, InstallmentStatusPartial, inst.PaymentStatus)
	})

	t.Run("reverting more than paid conflicts", func(t *testing.T) {
		plan := newTestPlan(t, 100)
		_, err := plan.Allocate(valueobject.NewMoneyFromFloat(50))
		require.NoError(t, err)

		err = plan.RevertAllocations([]AllocationReversal{
			{InstallmentNumber: 1, Amount: decimal.NewFromInt(60)},
		}, decimal.Zero)
		assert.ErrorIs(t, err, shared.ErrConflict)
	})

	t.Run("drawing back more advance than held conflicts", func(t *testing.T) {
		plan := newTestPlan(t, 100)
		_, err := plan.Allocate(valueobject.NewMoneyFromFloat(50))
		require.NoError(t, err)

		err = plan.RevertAllocations([]AllocationReversal{
			{InstallmentNumber: 1, Amount: decimal.NewFromInt(50)},
		}, decimal.NewFromInt(10))
		assert.ErrorIs(t, err, shared.ErrConflict)
	})

	t.Run("unknown installment", func(t *testing.T) {
		plan := newTestPlan(t, 100)
		err := plan.RevertAllocations([]AllocationReversal{
			{InstallmentNumber: 4, Amount: decimal.NewFromInt(10)},
		}, decimal.Zero)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestMarkOverdue(t *testing.T) {
	plan := newTestPlan(t, 100, 100, 100)
	installment(t, plan, 1).DueDate = time.Now().AddDate(0, 0, -10)
	installment(t, plan, 2).DueDate = time.Now().AddDate(0, 0, -1)

	flipped := plan.MarkOverdue(time.Now())
	assert.Equal(t, []int{1, 2}, flipped)
	assert.Equal(t, InstallmentStatusOverdue, installment(t, plan, 1).PaymentStatus)
	assert.Equal(t, InstallmentStatusOverdue, installment(t, plan, 2).PaymentStatus)
	assert.Equal(t, InstallmentStatusPending, installment(t, plan, 3).PaymentStatus)

	// a second sweep finds nothing new and does not bump the version
	version := plan.Version
	assert.Empty(t, plan.MarkOverdue(time.Now()))
	assert.Equal(t, version, plan.Version)
}

func TestMarkOverdueLeavesPaidAlone(t *testing.T) {
	plan := newTestPlan(t, 100)
	_, err := plan.Allocate(valueobject.NewMoneyFromFloat(100))
	require.NoError(t, err)
	installment(t, plan, 1).DueDate = time.Now().AddDate(0, 0, -10)

	assert.Empty(t, plan.MarkOverdue(time.Now()))
	assert.Equal(t, InstallmentStatusPaid, installment(t, plan, 1).PaymentStatus)
}

func TestOverdueInstallmentStillAcceptsAllocation(t *testing.T) {
	plan := newTestPlan(t, 100, 100)
	installment(t, plan, 1).DueDate = time.Now().AddDate(0, 0, -10)
	require.NotEmpty(t, plan.MarkOverdue(time.Now()))

	result, err := plan.Allocate(valueobject.NewMoneyFromFloat(100))
	require.NoError(t, err)
	require.Len(t, result.Applied, 1)
	assert.Equal(t, 1, result.Applied[0].InstallmentNumber)
	assert.Equal(t, InstallmentStatusPaid, installment(t, plan, 1).PaymentStatus)
}

func TestMarkDefaulted(t *testing.T) {
	t.Run("overdue installment defaults the plan", func(t *testing.T) {
		plan := newTestPlan(t, 100)
		installment(t, plan, 1).DueDate = time.Now().AddDate(0, 0, -10)
		require.NotEmpty(t, plan.MarkOverdue(time.Now()))

		require.NoError(t, plan.MarkDefaulted())
		assert.Equal(t, PlanStatusDefaulted, plan.Status)

		assert.ErrorIs(t, plan.MarkDefaulted(), shared.ErrConflict)
	})

	t.Run("nothing overdue", func(t *testing.T) {
		plan := newTestPlan(t, 100)
		assert.ErrorIs(t, plan.MarkDefaulted(), shared.ErrConflict)
	})
}
