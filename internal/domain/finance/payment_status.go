package finance

import (
	"github.com/finledger/backend/internal/domain/shared/valueobject"
)

// PaymentStatus summarizes how much of a document's grand total has been
// settled. It is a pure function of (paidAmount, grandTotal) and never
// stored authority on its own.
type PaymentStatus string

const (
	PaymentStatusUnpaid   PaymentStatus = "UNPAID"
	PaymentStatusPartial  PaymentStatus = "PARTIAL"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusOverpaid PaymentStatus = "OVERPAID"
)

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusUnpaid, PaymentStatusPartial, PaymentStatusPaid, PaymentStatusOverpaid:
		return true
	}
	return false
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// PaymentStatusFor derives the payment status from paid vs total.
// Comparisons use the fixed rounding unit with the epsilon tolerance, so
// a paid amount within epsilon of the total counts as fully paid rather
// than flapping between partial and overpaid on accumulated float error.
func PaymentStatusFor(paid, total valueobject.Money) PaymentStatus {
	if !paid.IsPositive() {
		return PaymentStatusUnpaid
	}
	if paid.EqualsWithinEpsilon(total) {
		return PaymentStatusPaid
	}
	if paid.GreaterThan(total) {
		return PaymentStatusOverpaid
	}
	return PaymentStatusPartial
}
