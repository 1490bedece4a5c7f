package ledger

import (
	"time"

	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PostingEvent describes one money-moving business event to be recorded
// as a balanced set of ledger entries. The Type tag selects exactly one
// posting recipe; events with an unrecognized tag are rejected up front.
type PostingEvent struct {
	Type        ReferenceType
	TenantID    uuid.UUID
	BranchID    uuid.UUID
	ReferenceID uuid.UUID
	EntryDate   time.Time

	// GrandTotal is used by purchase and purchase_return events.
	GrandTotal valueobject.Money
	// Amount is used by payment and EMI events.
	Amount valueobject.Money
	// NetAmount and TaxAmount split a credit note; gross = net + tax.
	NetAmount valueobject.Money
	TaxAmount valueobject.Money

	// SettlementCode is the cash or bank account a payment settles
	// against (CodeCash or CodeBank).
	SettlementCode string
	// Inflow is true for money received, false for money paid out.
	Inflow bool

	CustomerID *uuid.UUID
	SupplierID *uuid.UUID
	PaymentID  *uuid.UUID
	CreatedBy  *uuid.UUID
	Narration  string
}

// Leg is one side of a posting recipe before account resolution
type Leg struct {
	AccountCode string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
}

func debit(code string, amount valueobject.Money) Leg {
	return Leg{AccountCode: code, Debit: amount.Round().Amount(), Credit: decimal.Zero}
}

func credit(code string, amount valueobject.Money) Leg {
	return Leg{AccountCode: code, Debit: decimal.Zero, Credit: amount.Round().Amount()}
}

// Legs expands the event into its posting recipe. Every recipe emits a
// set whose debits and credits are equal by construction; the posting
// engine still re-verifies the sum before writing.
func (ev *PostingEvent) Legs() ([]Leg, error) {
	if !ev.Type.IsValid() {
		return nil, shared.NewValidationError("unrecognized posting event type %q", ev.Type)
	}
	if ev.ReferenceID == uuid.Nil {
		return nil, shared.NewValidationError("posting event requires a reference id")
	}

	switch ev.Type {
	case ReferencePurchase:
		// Goods received: inventory up, supplier owed.
		if !ev.GrandTotal.IsPositive() {
			return nil, shared.NewValidationError("purchase %s: grand total must be positive, got %s", ev.ReferenceID, ev.GrandTotal)
		}
		return []Leg{
			debit(CodeInventoryAsset, ev.GrandTotal),
			credit(CodeAccountsPayable, ev.GrandTotal),
		}, nil

	case ReferencePurchaseReturn:
		if !ev.GrandTotal.IsPositive() {
			return nil, shared.NewValidationError("purchase return %s: grand total must be positive, got %s", ev.ReferenceID, ev.GrandTotal)
		}
		return []Leg{
			debit(CodeAccountsPayable, ev.GrandTotal),
			credit(CodeInventoryAsset, ev.GrandTotal),
		}, nil

	case ReferencePayment, ReferenceEMIPayment, ReferenceEMIDownPayment:
		if !ev.Amount.IsPositive() {
			return nil, shared.NewValidationError("payment %s: amount must be positive, got %s", ev.ReferenceID, ev.Amount)
		}
		settlement := ev.SettlementCode
		if settlement != CodeCash && settlement != CodeBank {
			return nil, shared.NewValidationError("payment %s: settlement account must be cash or bank, got %q", ev.ReferenceID, settlement)
		}
		if ev.Inflow {
			return []Leg{
				debit(settlement, ev.Amount),
				credit(CodeAccountsReceivable, ev.Amount),
			}, nil
		}
		return []Leg{
			debit(CodeAccountsPayable, ev.Amount),
			credit(settlement, ev.Amount),
		}, nil

	case ReferenceCreditNote:
		// Sales return: back out income net of tax, back out the tax
		// liability, and release the customer's receivable for the
		// gross amount. Three-way but still balanced.
		if !ev.NetAmount.IsPositive() {
			return nil, shared.NewValidationError("credit note %s: net amount must be positive, got %s", ev.ReferenceID, ev.NetAmount)
		}
		if ev.TaxAmount.IsNegative() {
			return nil, shared.NewValidationError("credit note %s: tax amount cannot be negative, got %s", ev.ReferenceID, ev.TaxAmount)
		}
		gross := ev.NetAmount.Add(ev.TaxAmount)
		legs := []Leg{debit(CodeSales, ev.NetAmount)}
		if ev.TaxAmount.IsPositive() {
			legs = append(legs, debit(CodeTaxPayable, ev.TaxAmount))
		}
		legs = append(legs, credit(CodeAccountsReceivable, gross))
		return legs, nil
	}

	return nil, shared.NewValidationError("no posting recipe for event type %q", ev.Type)
}

// Entry materializes one leg into a ledger entry for a resolved account
func (ev *PostingEvent) Entry(leg Leg, accountID uuid.UUID) LedgerEntry {
	date := ev.EntryDate
	if date.IsZero() {
		date = time.Now()
	}
	return LedgerEntry{
		ID:            uuid.New(),
		TenantID:      ev.TenantID,
		BranchID:      ev.BranchID,
		AccountID:     accountID,
		AccountCode:   leg.AccountCode,
		EntryDate:     date,
		Debit:         leg.Debit,
		Credit:        leg.Credit,
		ReferenceType: ev.Type,
		ReferenceID:   ev.ReferenceID,
		CustomerID:    ev.CustomerID,
		SupplierID:    ev.SupplierID,
		PaymentID:     ev.PaymentID,
		Narration:     ev.Narration,
		CreatedBy:     ev.CreatedBy,
		CreatedAt:     time.Now(),
	}
}
