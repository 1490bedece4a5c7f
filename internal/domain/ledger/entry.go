package ledger

import (
	"time"

	"github.com/finledger/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReferenceType tags ledger entries with the business event that created
// them. It is a closed set: unrecognized tags are rejected at the boundary
// so no event silently posts nothing.
type ReferenceType string

const (
	ReferencePurchase       ReferenceType = "PURCHASE"
	ReferencePayment        ReferenceType = "PAYMENT"
	ReferenceCreditNote     ReferenceType = "CREDIT_NOTE"
	ReferencePurchaseReturn ReferenceType = "PURCHASE_RETURN"
	ReferenceEMIPayment     ReferenceType = "EMI_PAYMENT"
	ReferenceEMIDownPayment ReferenceType = "EMI_DOWN_PAYMENT"
)

// IsValid checks if the reference type is part of the closed set
func (t ReferenceType) IsValid() bool {
	switch t {
	case ReferencePurchase, ReferencePayment, ReferenceCreditNote,
		ReferencePurchaseReturn, ReferenceEMIPayment, ReferenceEMIDownPayment:
		return true
	}
	return false
}

// String returns the string representation of ReferenceType
func (t ReferenceType) String() string {
	return string(t)
}

// LedgerEntry is one immutable debit-or-credit leg tied to an account and
// a source event. Entries are never updated: forward events insert them,
// reversals insert them with sides inverted. They form the permanent
// audit trail.
type LedgerEntry struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"tenant_id"`
	BranchID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"branch_id"`
	AccountID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"account_id"`
	AccountCode   string          `gorm:"size:20;not null" json:"account_code"`
	EntryDate     time.Time       `gorm:"not null;index" json:"entry_date"`
	Debit         decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"debit"`
	Credit        decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"credit"`
	ReferenceType ReferenceType   `gorm:"size:30;not null;index:idx_ledger_entries_reference,priority:1" json:"reference_type"`
	ReferenceID   uuid.UUID       `gorm:"type:uuid;not null;index:idx_ledger_entries_reference,priority:2" json:"reference_id"`
	CustomerID    *uuid.UUID      `gorm:"type:uuid;index" json:"customer_id,omitempty"`
	SupplierID    *uuid.UUID      `gorm:"type:uuid;index" json:"supplier_id,omitempty"`
	PaymentID     *uuid.UUID      `gorm:"type:uuid;index" json:"payment_id,omitempty"`
	IsReversal    bool            `gorm:"not null;default:false" json:"is_reversal"`
	Narration     string          `gorm:"size:255" json:"narration"`
	CreatedBy     *uuid.UUID      `gorm:"type:uuid" json:"created_by,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// TableName returns the database table name
func (LedgerEntry) TableName() string {
	return "ledger_entries"
}

// Validate checks the single-sided invariant: exactly one of debit/credit
// is populated and neither is negative.
func (e *LedgerEntry) Validate() error {
	if !e.ReferenceType.IsValid() {
		return shared.NewValidationError("unrecognized reference type %q", e.ReferenceType)
	}
	if e.Debit.IsNegative() || e.Credit.IsNegative() {
		return shared.NewValidationError("entry sides cannot be negative: debit=%s credit=%s", e.Debit, e.Credit)
	}
	if e.Debit.IsPositive() == e.Credit.IsPositive() {
		return shared.NewValidationError("exactly one side must be populated: debit=%s credit=%s", e.Debit, e.Credit)
	}
	return nil
}

// Inverted returns a new entry with debit and credit sides swapped,
// preserving the reference so the compensation stays attached to the
// original event's audit trail.
func (e *LedgerEntry) Inverted(narration string) LedgerEntry {
	inv := *e
	inv.ID = uuid.New()
	inv.Debit = e.Credit
	inv.Credit = e.Debit
	inv.IsReversal = true
	inv.Narration = narration
	inv.EntryDate = time.Now()
	inv.CreatedAt = time.Now()
	return inv
}

// SumSides returns the total debit and credit across a set of entries
func SumSides(entries []LedgerEntry) (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, e := range entries {
		debit = debit.Add(e.Debit)
		credit = credit.Add(e.Credit)
	}
	return debit, credit
}

// VerifyBalanced checks that debits equal credits across the entries of
// one reference. A violation is an integrity fault, never a recoverable
// condition.
func VerifyBalanced(entries []LedgerEntry) error {
	debit, credit := SumSides(entries)
	if !debit.Equal(credit) {
		ref := uuid.Nil
		if len(entries) > 0 {
			ref = entries[0].ReferenceID
		}
		return shared.NewIntegrityFault("unbalanced posting for reference %s: debit=%s credit=%s", ref, debit, credit)
	}
	return nil
}
