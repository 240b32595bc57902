package types

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRoundsAndNormalizes(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		currency string
		want     string
	}{
		{"already four digits", "25.0000", "usd", "25.0000"},
		{"rounds half up at five digits", "25.00005", "usd", "25.0001"},
		{"rounds half up exactly", "1.00005", "usd", "1.0001"},
		{"normalizes currency case", "10", "usd", "10.0000"},
		{"truncates below half", "1.00004", "usd", "1.0000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amt, err := decimal.NewFromString(tt.amount)
			require.NoError(t, err)

			m, err := New(amt, tt.currency)
			require.NoError(t, err)
			assert.Equal(t, "USD", m.Currency())
			assert.Equal(t, tt.want, m.Decimal().StringFixed(4))
		})
	}
}

func TestNewRejectsInvalidInput(t *testing.T) {
	_, err := New(decimal.NewFromInt(-1), "USD")
	assert.ErrorIs(t, err, ErrMoneyNegative)

	_, err = New(decimal.NewFromInt(1), "US")
	assert.ErrorIs(t, err, ErrMoneyInvalidCurrency)
}

func TestAddRequiresSameCurrency(t *testing.T) {
	usd := MustNew(decimal.NewFromInt(10), "USD")
	eur := MustNew(decimal.NewFromInt(10), "EUR")

	_, err := usd.Add(eur)
	assert.ErrorIs(t, err, ErrMoneyCurrencyMismatch)

	sum, err := usd.Add(usd)
	require.NoError(t, err)
	assert.True(t, sum.Equal(MustNew(decimal.NewFromInt(20), "USD")))
}

func TestSubUnderflow(t *testing.T) {
	ten := MustNew(decimal.NewFromInt(10), "USD")
	five := MustNew(decimal.NewFromInt(5), "USD")

	diff, err := ten.Sub(five)
	require.NoError(t, err)
	assert.True(t, diff.Equal(five))

	_, err = five.Sub(ten)
	assert.ErrorIs(t, err, ErrMoneyUnderflow)
}

func TestMulScalarRejectsNegative(t *testing.T) {
	five := MustNew(decimal.NewFromInt(5), "USD")
	_, err := five.MulScalar(-1)
	assert.ErrorIs(t, err, ErrMoneyNegative)

	tripled, err := five.MulScalar(3)
	require.NoError(t, err)
	assert.True(t, tripled.Equal(MustNew(decimal.NewFromInt(15), "USD")))
}

func TestDivScalarRejectsNonPositive(t *testing.T) {
	ten := MustNew(decimal.NewFromInt(10), "USD")
	_, err := ten.DivScalar(0)
	assert.ErrorIs(t, err, ErrMoneyDivideByZero)

	half, err := ten.DivScalar(2)
	require.NoError(t, err)
	assert.True(t, half.Equal(MustNew(decimal.NewFromInt(5), "USD")))
}

func TestSumAcrossValues(t *testing.T) {
	values := []Money{
		MustNew(decimal.NewFromInt(10), "USD"),
		MustNew(decimal.NewFromInt(15), "USD"),
		MustNew(decimal.NewFromInt(0), "USD"),
	}

	total, err := Sum("USD", values...)
	require.NoError(t, err)
	assert.True(t, total.Equal(MustNew(decimal.NewFromInt(25), "USD")))

	empty, err := Sum("USD")
	require.NoError(t, err)
	assert.True(t, empty.IsZero())
}

func TestMoneyJSONRoundTrip(t *testing.T) {
	original := MustNew(decimal.NewFromFloat(25.5), "USD")

	data, err := json.Marshal(original)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"25.5000","currency":"USD"}`, string(data))

	var decoded Money
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, original.Equal(decoded))
}

func TestMaxMin(t *testing.T) {
	ten := MustNew(decimal.NewFromInt(10), "USD")
	five := MustNew(decimal.NewFromInt(5), "USD")

	max, err := Max(ten, five)
	require.NoError(t, err)
	assert.True(t, max.Equal(ten))

	min, err := Min(ten, five)
	require.NoError(t, err)
	assert.True(t, min.Equal(five))
}
