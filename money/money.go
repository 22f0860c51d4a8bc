// Package money holds currency amounts as integer minor units (hundredths).
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Scale is the number of decimal places kept in minor units.
const Scale = 2

// Amount is a currency value in hundredths. GC and SC share the representation.
type Amount int64

var ErrPrecision = errors.New("amount has more than 2 decimal places")

// Parse reads a decimal string such as "12.5" into minor units.
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return FromDecimal(d)
}

// FromDecimal converts an exact decimal. It refuses values finer than a hundredth.
func FromDecimal(d decimal.Decimal) (Amount, error) {
	shifted := d.Shift(Scale)
	if !shifted.Equal(shifted.Truncate(0)) {
		return 0, ErrPrecision
	}
	return Amount(shifted.IntPart()), nil
}

// Units builds an amount from whole currency units.
func Units(n int64) Amount {
	return Amount(n * 100)
}

func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -Scale)
}

func (a Amount) String() string {
	return a.Decimal().StringFixed(Scale)
}

// MulFloor multiplies by an arbitrary factor and rounds down to the minor unit.
// Fractions of a hundredth stay with the house.
func (a Amount) MulFloor(factor decimal.Decimal) Amount {
	return Amount(a.Decimal().Mul(factor).Shift(Scale).Floor().IntPart())
}

// Percent returns pct percent of a, rounded down.
func (a Amount) Percent(pct int64) Amount {
	return a.MulFloor(decimal.New(pct, -2))
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON accepts both quoted and bare numbers.
func (a *Amount) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return err
	}
	v, err := FromDecimal(d)
	if err != nil {
		return err
	}
	*a = v
	return nil
}
