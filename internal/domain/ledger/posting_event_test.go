package ledger

import (
	"testing"

	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func legsBalance(legs []Leg) bool {
	debit, credit := decimal.Zero, decimal.Zero
	for _, l := range legs {
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
	}
	return debit.Equal(credit)
}

func TestPostingEventPurchaseLegs(t *testing.T) {
	ev := &PostingEvent{
		Type:        ReferencePurchase,
		TenantID:    uuid.New(),
		ReferenceID: uuid.New(),
		GrandTotal:  valueobject.NewMoneyFromFloat(1000),
	}

	legs, err := ev.Legs()
	require.NoError(t, err)
	require.Len(t, legs, 2)
	assert.True(t, legsBalance(legs))

	assert.Equal(t, CodeInventoryAsset, legs[0].AccountCode)
	assert.Equal(t, "1000", legs[0].Debit.String())
	assert.Equal(t, CodeAccountsPayable, legs[1].AccountCode)
	assert.Equal(t, "1000", legs[1].Credit.String())
}

func TestPostingEventPurchaseReturnLegs(t *testing.T) {
	ev := &PostingEvent{
		Type:        ReferencePurchaseReturn,
		ReferenceID: uuid.New(),
		GrandTotal:  valueobject.NewMoneyFromFloat(200),
	}

	legs, err := ev.Legs()
	require.NoError(t, err)
	require.Len(t, legs, 2)
	assert.True(t, legsBalance(legs))
	assert.Equal(t, CodeAccountsPayable, legs[0].AccountCode)
	assert.Equal(t, CodeInventoryAsset, legs[1].AccountCode)
}

func TestPostingEventPaymentLegs(t *testing.T) {
	tests := []struct {
		name       string
		refType    ReferenceType
		inflow     bool
		settlement string
		wantDebit  string
		wantCredit string
	}{
		{"supplier payment via cash", ReferencePayment, false, CodeCash, CodeAccountsPayable, CodeCash},
		{"supplier payment via bank", ReferencePayment, false, CodeBank, CodeAccountsPayable, CodeBank},
		{"installment inflow via cash", ReferenceEMIPayment, true, CodeCash, CodeCash, CodeAccountsReceivable},
		{"down payment inflow via bank", ReferenceEMIDownPayment, true, CodeBank, CodeBank, CodeAccountsReceivable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := &PostingEvent{
				Type:           tt.refType,
				ReferenceID:    uuid.New(),
				Amount:         valueobject.NewMoneyFromFloat(400),
				SettlementCode: tt.settlement,
				Inflow:         tt.inflow,
			}

			legs, err := ev.Legs()
			require.NoError(t, err)
			require.Len(t, legs, 2)
			assert.True(t, legsBalance(legs))
			assert.Equal(t, tt.wantDebit, legs[0].AccountCode)
			assert.Equal(t, tt.wantCredit, legs[1].AccountCode)
		})
	}
}

func TestPostingEventCreditNoteLegs(t *testing.T) {
	t.Run("with tax splits three ways", func(t *testing.T) {
		ev := &PostingEvent{
			Type:        ReferenceCreditNote,
			ReferenceID: uuid.New(),
			NetAmount:   valueobject.NewMoneyFromFloat(100),
			TaxAmount:   valueobject.NewMoneyFromFloat(18),
		}

		legs, err := ev.Legs()
		require.NoError(t, err)
		require.Len(t, legs, 3)
		assert.True(t, legsBalance(legs))

		assert.Equal(t, CodeSales, legs[0].AccountCode)
		assert.Equal(t, "100", legs[0].Debit.String())
		assert.Equal(t, CodeTaxPayable, legs[1].AccountCode)
		assert.Equal(t, "18", legs[1].Debit.String())
		assert.Equal(t, CodeAccountsReceivable, legs[2].AccountCode)
		assert.Equal(t, "118", legs[2].Credit.String())
	})

	t.Run("zero tax omits the tax leg", func(t *testing.T) {
		ev := &PostingEvent{
			Type:        ReferenceCreditNote,
			ReferenceID: uuid.New(),
			NetAmount:   valueobject.NewMoneyFromFloat(100),
		}

		legs, err := ev.Legs()
		require.NoError(t, err)
		require.Len(t, legs, 2)
		assert.True(t, legsBalance(legs))
	})

	t.Run("negative tax rejected", func(t *testing.T) {
		ev := &PostingEvent{
			Type:        ReferenceCreditNote,
			ReferenceID: uuid.New(),
			NetAmount:   valueobject.NewMoneyFromFloat(100),
			TaxAmount:   valueobject.NewMoneyFromFloat(-1),
		}

		_, err := ev.Legs()
		assert.ErrorIs(t, err, shared.ErrValidation)
	})
}

func TestPostingEventRejections(t *testing.T) {
	tests := []struct {
		name  string
		event PostingEvent
	}{
		{"unknown type", PostingEvent{Type: "SALARY", ReferenceID: uuid.New()}},
		{"missing reference", PostingEvent{Type: ReferencePurchase, GrandTotal: valueobject.NewMoneyFromFloat(10)}},
		{"zero purchase total", PostingEvent{Type: ReferencePurchase, ReferenceID: uuid.New()}},
		{"zero payment amount", PostingEvent{Type: ReferencePayment, ReferenceID: uuid.New(), SettlementCode: CodeCash}},
		{"settlement not cash or bank", PostingEvent{Type: ReferencePayment, ReferenceID: uuid.New(), Amount: valueobject.NewMoneyFromFloat(10), SettlementCode: CodeSales}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.event.Legs()
			assert.ErrorIs(t, err, shared.ErrValidation)
		})
	}
}

func TestPostingEventEntryCarriesEventContext(t *testing.T) {
	customerID := uuid.New()
	paymentID := uuid.New()
	ev := &PostingEvent{
		Type:           ReferenceEMIPayment,
		TenantID:       uuid.New(),
		BranchID:       uuid.New(),
		ReferenceID:    paymentID,
		Amount:         valueobject.NewMoneyFromFloat(50),
		SettlementCode: CodeCash,
		Inflow:         true,
		CustomerID:     &customerID,
		PaymentID:      &paymentID,
		Narration:      "installment payment",
	}

	legs, err := ev.Legs()
	require.NoError(t, err)

	accountID := uuid.New()
	entry := ev.Entry(legs[0], accountID)
	require.NoError(t, entry.Validate())
	assert.Equal(t, ev.TenantID, entry.TenantID)
	assert.Equal(t, accountID, entry.AccountID)
	assert.Equal(t, legs[0].AccountCode, entry.AccountCode)
	assert.Equal(t, customerID, *entry.CustomerID)
	assert.Equal(t, paymentID, *entry.PaymentID)
	assert.False(t, entry.EntryDate.IsZero())
}
