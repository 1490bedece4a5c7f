package valueobject

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoneyArithmetic(t *testing.T) {
	a := NewMoneyFromFloat(100.50)
	b := NewMoneyFromFloat(40.25)

	assert.Equal(t, "140.75", a.Add(b).String())
	assert.Equal(t, "60.25", a.Subtract(b).String())
	assert.Equal(t, "-100.50", a.Negate().String())
	assert.Equal(t, "100.50", a.Negate().Abs().String())
	assert.Equal(t, "40.25", a.Min(b).String())
}

func TestMoneyClampNonNegative(t *testing.T) {
	assert.True(t, NewMoneyFromFloat(-3).ClampNonNegative().IsZero())
	assert.Equal(t, "3.00", NewMoneyFromFloat(3).ClampNonNegative().String())
}

func TestMoneyRound(t *testing.T) {
	m, err := NewMoneyFromString("10.005")
	require.NoError(t, err)
	assert.Equal(t, "10.01", m.Round().String())

	m, err = NewMoneyFromString("10.004")
	require.NoError(t, err)
	assert.Equal(t, "10.00", m.Round().String())
}

func TestMoneyEqualsWithinEpsilon(t *testing.T) {
	tests := []struct {
		name  string
		a     float64
		b     float64
		equal bool
	}{
		{"exact", 100, 100, true},
		{"within tolerance above", 100.04, 100, true},
		{"within tolerance below", 99.96, 100, true},
		{"at tolerance boundary", 100.05, 100, true},
		{"beyond tolerance", 100.06, 100, false},
		{"far apart", 105, 100, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewMoneyFromFloat(tt.a).EqualsWithinEpsilon(NewMoneyFromFloat(tt.b))
			assert.Equal(t, tt.equal, got)
		})
	}
}

func TestMoneyWithinTolerance(t *testing.T) {
	tol := decimal.NewFromFloat(1.00)
	assert.True(t, NewMoneyFromFloat(100.90).WithinTolerance(NewMoneyFromFloat(100), tol))
	assert.False(t, NewMoneyFromFloat(101.10).WithinTolerance(NewMoneyFromFloat(100), tol))
}

func TestMoneyFromStringRejectsGarbage(t *testing.T) {
	_, err := NewMoneyFromString("not-a-number")
	assert.Error(t, err)
}

func TestMoneyScan(t *testing.T) {
	var m Money
	require.NoError(t, m.Scan("12.34"))
	assert.Equal(t, "12.34", m.String())

	require.NoError(t, m.Scan([]byte("56.78")))
	assert.Equal(t, "56.78", m.String())

	require.NoError(t, m.Scan(nil))
	assert.True(t, m.IsZero())

	assert.Error(t, m.Scan(struct{}{}))
}
