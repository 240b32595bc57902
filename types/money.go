// Package types provides common value primitives used across RideLedger.
package types

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// moneyScale is the number of fractional digits every Money value is
// rounded to on construction (spec: "precision 19, scale 4").
const moneyScale = 4

// Money represents a non-negative monetary value in a single currency,
// stored as a fixed-point decimal rounded to four fractional digits.
//
// Arithmetic is closed over same-currency operands. A subtraction that
// would go negative, or any cross-currency operation, returns an error
// instead of a result — RideLedger never represents a negative Money.
// A signed "effective amount" (used by the ledger for balance math) is
// always a separate, transient computation; see account.LedgerEntry.
type Money struct {
	amount   decimal.Decimal
	currency string
}

// New constructs a Money value, rounding amt to four fractional digits
// with half-away-from-zero rounding and normalizing currency to
// uppercase. Returns ErrMoneyNegative if amt is negative, or
// ErrMoneyInvalidCurrency if currency is not a 3-letter code.
func New(amt decimal.Decimal, currency string) (Money, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if len(currency) != 3 {
		return Money{}, fmt.Errorf("%w: %q", ErrMoneyInvalidCurrency, currency)
	}
	if amt.IsNegative() {
		return Money{}, fmt.Errorf("%w: %s", ErrMoneyNegative, amt.String())
	}
	return Money{amount: roundHalfAwayFromZero(amt), currency: currency}, nil
}

// MustNew is like New but panics on error. Use only for hardcoded values
// (test fixtures, constants), never for user- or caller-supplied input.
func MustNew(amt decimal.Decimal, currency string) Money {
	m, err := New(amt, currency)
	if err != nil {
		panic(fmt.Sprintf("types: must construct money: %v", err))
	}
	return m
}

// Zero returns a zero-value Money in the given currency.
func Zero(currency string) Money {
	m, err := New(decimal.Zero, currency)
	if err != nil {
		panic(fmt.Sprintf("types: zero currency invalid: %v", err))
	}
	return m
}

// FromFloat is a convenience constructor for literal amounts in tests and
// fixtures (e.g. FromFloat(25.0, "USD")). Production code paths that
// ingest caller-supplied amounts should prefer New with a decimal parsed
// from the wire representation, to avoid float64 precision loss upstream
// of RideLedger's own rounding.
func FromFloat(amt float64, currency string) (Money, error) {
	return New(decimal.NewFromFloat(amt), currency)
}

// Decimal returns the underlying decimal amount.
func (m Money) Decimal() decimal.Decimal { return m.amount }

// Currency returns the ISO 4217 currency code, uppercase.
func (m Money) Currency() string { return m.currency }

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool { return m.amount.IsZero() }

// IsPositive reports whether the amount is strictly greater than zero.
func (m Money) IsPositive() bool { return m.amount.IsPositive() }

// Add returns m + other. Fails with ErrMoneyCurrencyMismatch if the
// currencies differ.
func (m Money) Add(other Money) (Money, error) {
	if err := m.assertSameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{amount: roundHalfAwayFromZero(m.amount.Add(other.amount)), currency: m.currency}, nil
}

// Sub returns m - other. Fails with ErrMoneyUnderflow if the result would
// be negative, or ErrMoneyCurrencyMismatch if the currencies differ.
func (m Money) Sub(other Money) (Money, error) {
	if err := m.assertSameCurrency(other); err != nil {
		return Money{}, err
	}
	result := roundHalfAwayFromZero(m.amount.Sub(other.amount))
	if result.IsNegative() {
		return Money{}, fmt.Errorf("%w: %s - %s", ErrMoneyUnderflow, m.amount.String(), other.amount.String())
	}
	return Money{amount: result, currency: m.currency}, nil
}

// MulScalar returns m multiplied by a non-negative integer quantity.
// Fails with ErrMoneyNegative if qty is negative.
func (m Money) MulScalar(qty int64) (Money, error) {
	if qty < 0 {
		return Money{}, fmt.Errorf("%w: scalar %d", ErrMoneyNegative, qty)
	}
	return Money{amount: roundHalfAwayFromZero(m.amount.Mul(decimal.NewFromInt(qty))), currency: m.currency}, nil
}

// DivScalar returns m divided by a positive integer divisor. Fails with
// ErrMoneyDivideByZero if divisor is not positive.
func (m Money) DivScalar(divisor int64) (Money, error) {
	if divisor <= 0 {
		return Money{}, fmt.Errorf("%w: divisor %d", ErrMoneyDivideByZero, divisor)
	}
	return Money{amount: roundHalfAwayFromZero(m.amount.Div(decimal.NewFromInt(divisor))), currency: m.currency}, nil
}

// Equal reports whether both Money values have equal amount and currency.
func (m Money) Equal(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// LessThan reports whether m < other. Fails with ErrMoneyCurrencyMismatch
// if the currencies differ.
func (m Money) LessThan(other Money) (bool, error) {
	if err := m.assertSameCurrency(other); err != nil {
		return false, err
	}
	return m.amount.LessThan(other.amount), nil
}

// GreaterThan reports whether m > other. Fails with
// ErrMoneyCurrencyMismatch if the currencies differ.
func (m Money) GreaterThan(other Money) (bool, error) {
	if err := m.assertSameCurrency(other); err != nil {
		return false, err
	}
	return m.amount.GreaterThan(other.amount), nil
}

// Max returns the larger of two same-currency Money values. Fails with
// ErrMoneyCurrencyMismatch if the currencies differ.
func Max(a, b Money) (Money, error) {
	if err := a.assertSameCurrency(b); err != nil {
		return Money{}, err
	}
	if a.amount.GreaterThan(b.amount) {
		return a, nil
	}
	return b, nil
}

// Min returns the smaller of two same-currency Money values. Fails with
// ErrMoneyCurrencyMismatch if the currencies differ.
func Min(a, b Money) (Money, error) {
	if err := a.assertSameCurrency(b); err != nil {
		return Money{}, err
	}
	if a.amount.LessThan(b.amount) {
		return a, nil
	}
	return b, nil
}

// Sum adds a sequence of Money values, all of which must share the same
// currency as the supplied default. Returns Zero(currency) for an empty
// sequence.
func Sum(currency string, values ...Money) (Money, error) {
	result := Zero(currency)
	var err error
	for _, v := range values {
		result, err = result.Add(v)
		if err != nil {
			return Money{}, err
		}
	}
	return result, nil
}

// String renders the value as "<amount> <CURRENCY>", e.g. "25.0000 USD".
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.amount.StringFixed(moneyScale), m.currency)
}

// MarshalJSON implements json.Marshaler, encoding the amount as a decimal
// string (never a float) to avoid precision loss on the wire.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   string `json:"amount"`
		Currency string `json:"currency"`
	}{
		Amount:   m.amount.StringFixed(moneyScale),
		Currency: m.currency,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Money) UnmarshalJSON(data []byte) error {
	var wire struct {
		Amount   string `json:"amount"`
		Currency string `json:"currency"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	amt, err := decimal.NewFromString(wire.Amount)
	if err != nil {
		return fmt.Errorf("types: unmarshal money amount: %w", err)
	}
	parsed, err := New(amt, wire.Currency)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func (m Money) assertSameCurrency(other Money) error {
	if m.currency != other.currency {
		return fmt.Errorf("%w: %s != %s", ErrMoneyCurrencyMismatch, m.currency, other.currency)
	}
	return nil
}

// roundHalfAwayFromZero rounds d to moneyScale fractional digits, rounding
// a trailing exact-half digit away from zero rather than the decimal
// package's default round-half-even. Spec §4.1 mandates half-away-from-zero.
func roundHalfAwayFromZero(d decimal.Decimal) decimal.Decimal {
	negative := d.IsNegative()
	abs := d.Abs()

	scaled := abs.Shift(moneyScale)
	truncated := scaled.Truncate(0)
	frac := scaled.Sub(truncated)

	half := decimal.NewFromFloat(0.5)
	if frac.GreaterThanOrEqual(half) {
		truncated = truncated.Add(decimal.NewFromInt(1))
	}
	result := truncated.Shift(-moneyScale)

	if negative && !result.IsZero() {
		return result.Neg()
	}
	return result
}
