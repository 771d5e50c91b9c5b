// Package money provides the fixed-scale monetary amount used across the ledger.
// Amounts are signed decimals at scale 2; rounding is half-even.
package money

import (
	"database/sql/driver"
	"fmt"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits kept on every amount.
const Scale = 2

var hundred = decimal.NewFromInt(100)

// Money is a signed decimal amount with two fractional digits.
type Money struct {
	d decimal.Decimal
}

// Zero is the zero amount.
var Zero = Money{}

// New rounds d to the money scale.
func New(d decimal.Decimal) Money {
	return Money{d: d.RoundBank(Scale)}
}

// FromCents builds an amount from minor units.
func FromCents(cents int64) Money {
	return Money{d: decimal.New(cents, -Scale)}
}

// FromString parses a decimal string such as "150.50".
func FromString(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return New(d), nil
}

// MustParse is FromString for constants and tests.
func MustParse(s string) Money {
	m, err := FromString(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Decimal returns the underlying decimal value.
func (m Money) Decimal() decimal.Decimal { return m.d }

// Add returns m + o.
func (m Money) Add(o Money) Money { return Money{d: m.d.Add(o.d)} }

// Sub returns m - o.
func (m Money) Sub(o Money) Money { return Money{d: m.d.Sub(o.d)} }

// Neg returns -m.
func (m Money) Neg() Money { return Money{d: m.d.Neg()} }

// Percent returns m * pct / 100 rounded half-even to the money scale.
func (m Money) Percent(pct decimal.Decimal) Money {
	return New(m.d.Mul(pct).Div(hundred))
}

// MulRatio returns m * r rounded half-even to the money scale.
func (m Money) MulRatio(r decimal.Decimal) Money {
	return New(m.d.Mul(r))
}

// Ratio returns m / o as a plain decimal; zero when o is zero.
func (m Money) Ratio(o Money) decimal.Decimal {
	if o.d.IsZero() {
		return decimal.Zero
	}
	return m.d.Div(o.d)
}

// Cmp compares m and o.
func (m Money) Cmp(o Money) int { return m.d.Cmp(o.d) }

// Equal reports whether m and o are the same amount.
func (m Money) Equal(o Money) bool { return m.d.Equal(o.d) }

// IsZero reports whether m is zero.
func (m Money) IsZero() bool { return m.d.IsZero() }

// IsPositive reports whether m > 0.
func (m Money) IsPositive() bool { return m.d.IsPositive() }

// IsNegative reports whether m < 0.
func (m Money) IsNegative() bool { return m.d.IsNegative() }

// Cents returns the amount in minor units.
func (m Money) Cents() int64 {
	return m.d.Shift(Scale).IntPart()
}

// String formats the amount with exactly two fractional digits.
func (m Money) String() string { return m.d.StringFixed(Scale) }

// MarshalJSON encodes the amount as a fixed-scale string.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts both quoted strings and bare numbers.
func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	*m = New(d)
	return nil
}

// Scan implements sql.Scanner. Values read back are rounded to the money
// scale, which also absorbs float noise from SQLite aggregates.
func (m *Money) Scan(value interface{}) error {
	if value == nil {
		*m = Zero
		return nil
	}
	var d decimal.Decimal
	if err := d.Scan(value); err != nil {
		return err
	}
	*m = New(d)
	return nil
}

// Value implements driver.Valuer.
func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}

// Sum adds all amounts.
func Sum(amounts ...Money) Money {
	total := Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// Min returns the smaller of a and b.
func Min(a, b Money) Money {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}
