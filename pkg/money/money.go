// Package money represents prices as integer minor units (cents) so that bid
// comparisons never drift. Decimal text is only used at the API boundary.
package money

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Cents is an amount in minor currency units.
type Cents int64

const (
	minorUnitExponent = 2

	// Checked on the raw decimal before it is rescaled.
	minExponent     = -18
	maxExponent     = 18
	maxDigits       = 38
	maxAmountLength = 48
)

var (
	ErrAmountOutOfRange = errors.New("amount is out of range")
	ErrTooManyDecimals  = fmt.Errorf("amount has more than %d decimal places", minorUnitExponent)
	errAmountTooLong    = errors.New("amount is too long")
	maxCents            = decimal.NewFromInt(math.MaxInt64)
	minCents            = decimal.NewFromInt(math.MinInt64)
)

// FromDecimal converts a decimal amount into cents. Amounts with more than two
// fractional digits are rejected rather than rounded.
func FromDecimal(d decimal.Decimal) (Cents, error) {
	if d.IsZero() {
		return 0, nil
	}
	exp := d.Exponent()
	if exp < minExponent || exp > maxExponent || d.NumDigits() > maxDigits {
		return 0, ErrAmountOutOfRange
	}
	scaled := d.Shift(minorUnitExponent)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, ErrTooManyDecimals
	}
	if scaled.GreaterThan(maxCents) || scaled.LessThan(minCents) {
		return 0, ErrAmountOutOfRange
	}
	return Cents(scaled.IntPart()), nil
}

// Parse reads a decimal string such as "150.00" or "150".
func Parse(value string) (Cents, error) {
	value = strings.TrimSpace(value)
	if len(value) > maxAmountLength {
		return 0, errAmountTooLong
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	return FromDecimal(d)
}

// MustParse is Parse for constants and tests.
func MustParse(value string) Cents {
	c, err := Parse(value)
	if err != nil {
		panic(err)
	}
	return c
}

// Decimal returns the amount in major units.
func (c Cents) Decimal() decimal.Decimal {
	return decimal.NewFromInt(int64(c)).Shift(-minorUnitExponent)
}

// String renders the amount with exactly two decimal places.
func (c Cents) String() string {
	return c.Decimal().StringFixed(minorUnitExponent)
}

// IsPositive reports whether c > 0.
func (c Cents) IsPositive() bool {
	return c > 0
}

// MarshalJSON renders the amount as a quoted decimal string.
func (c Cents) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.String() + `"`), nil
}

// UnmarshalJSON accepts either a JSON number or a quoted decimal string.
func (c *Cents) UnmarshalJSON(data []byte) error {
	if len(data) > maxAmountLength+2 {
		return errAmountTooLong
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return errors.New("invalid amount")
	}
	parsed, err := FromDecimal(d)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
