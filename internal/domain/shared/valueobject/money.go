package valueobject

import (
	"database/sql/driver"
	"fmt"

	"github.com/shopspring/decimal"
)

// RoundingPlaces is the fixed rounding unit for all monetary amounts.
const RoundingPlaces int32 = 2

// Epsilon is the tolerance allowed for floating accumulation error when
// comparing monetary amounts (e.g. deciding that a document is fully paid).
var Epsilon = decimal.NewFromFloat(0.05)

// Money is a value object representing a monetary amount.
// It is immutable - all operations return new Money instances.
type Money struct {
	amount decimal.Decimal
}

// NewMoney creates Money from a decimal amount
func NewMoney(amount decimal.Decimal) Money {
	return Money{amount: amount}
}

// NewMoneyFromFloat creates Money from a float64 value
func NewMoneyFromFloat(amount float64) Money {
	return Money{amount: decimal.NewFromFloat(amount)}
}

// NewMoneyFromString creates Money from a string representation
func NewMoneyFromString(amount string) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount string: %w", err)
	}
	return Money{amount: d}, nil
}

// Zero returns a zero-value Money
func Zero() Money {
	return Money{amount: decimal.Zero}
}

// Amount returns the decimal amount
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// IsZero returns true if the amount is zero
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// IsPositive returns true if the amount is positive
func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

// IsNegative returns true if the amount is negative
func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

// Add returns a new Money with the sum of both amounts
func (m Money) Add(other Money) Money {
	return Money{amount: m.amount.Add(other.amount)}
}

// Subtract returns a new Money with the difference
func (m Money) Subtract(other Money) Money {
	return Money{amount: m.amount.Sub(other.amount)}
}

// Negate returns a new Money with the sign reversed
func (m Money) Negate() Money {
	return Money{amount: m.amount.Neg()}
}

// Abs returns a new Money with the absolute value
func (m Money) Abs() Money {
	return Money{amount: m.amount.Abs()}
}

// Min returns the smaller of the two amounts
func (m Money) Min(other Money) Money {
	if m.amount.LessThan(other.amount) {
		return m
	}
	return other
}

// ClampNonNegative returns the amount floored at zero
func (m Money) ClampNonNegative() Money {
	if m.amount.IsNegative() {
		return Zero()
	}
	return m
}

// Round returns the amount rounded to the fixed rounding unit
func (m Money) Round() Money {
	return Money{amount: m.amount.Round(RoundingPlaces)}
}

// Equals returns true if both amounts are exactly equal
func (m Money) Equals(other Money) bool {
	return m.amount.Equal(other.amount)
}

// EqualsWithinEpsilon returns true if the amounts differ by no more than
// the fixed epsilon tolerance
func (m Money) EqualsWithinEpsilon(other Money) bool {
	return m.amount.Sub(other.amount).Abs().LessThanOrEqual(Epsilon)
}

// WithinTolerance returns true if the amounts differ by no more than tol
func (m Money) WithinTolerance(other Money, tol decimal.Decimal) bool {
	return m.amount.Sub(other.amount).Abs().LessThanOrEqual(tol)
}

// LessThan returns true if this Money is less than the other
func (m Money) LessThan(other Money) bool {
	return m.amount.LessThan(other.amount)
}

// LessThanOrEqual returns true if this Money is at most the other
func (m Money) LessThanOrEqual(other Money) bool {
	return m.amount.LessThanOrEqual(other.amount)
}

// GreaterThan returns true if this Money is greater than the other
func (m Money) GreaterThan(other Money) bool {
	return m.amount.GreaterThan(other.amount)
}

// GreaterThanOrEqual returns true if this Money is at least the other
func (m Money) GreaterThanOrEqual(other Money) bool {
	return m.amount.GreaterThanOrEqual(other.amount)
}

// String returns the amount with the fixed rounding unit applied
func (m Money) String() string {
	return m.amount.StringFixed(RoundingPlaces)
}

// Float64 returns the amount as a float64 (may lose precision)
func (m Money) Float64() float64 {
	f, _ := m.amount.Float64()
	return f
}

// Value implements driver.Valuer for database storage
func (m Money) Value() (driver.Value, error) {
	return m.amount.String(), nil
}

// Scan implements sql.Scanner for database retrieval
func (m *Money) Scan(value any) error {
	if value == nil {
		m.amount = decimal.Zero
		return nil
	}

	var strVal string
	switch v := value.(type) {
	case string:
		strVal = v
	case []byte:
		strVal = string(v)
	case float64:
		m.amount = decimal.NewFromFloat(v)
		return nil
	case int64:
		m.amount = decimal.NewFromInt(v)
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Money", value)
	}

	amount, err := decimal.NewFromString(strVal)
	if err != nil {
		return fmt.Errorf("invalid decimal value: %w", err)
	}
	m.amount = amount
	return nil
}
