package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a signed amount in minor units (cents)
type Money int64

// moneyPlaces is the number of fractional digits carried by Money
const moneyPlaces = 2

var (
	maxMoney = decimal.NewFromInt(math.MaxInt64)
	minMoney = decimal.NewFromInt(math.MinInt64)
)

// ParseMoney parses a decimal string such as "12.50" or "-3" into Money.
// More than two fractional digits is rejected rather than rounded.
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMoney, s)
	}
	return MoneyFromDecimal(d)
}

// MoneyFromDecimal converts a decimal amount in major units to Money
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	minor := d.Shift(moneyPlaces)
	if !minor.IsInteger() {
		return 0, fmt.Errorf("%w: %s has more than %d decimal places", ErrInvalidMoney, d, moneyPlaces)
	}
	if minor.GreaterThan(maxMoney) || minor.LessThan(minMoney) {
		return 0, fmt.Errorf("%w: %s is out of range", ErrInvalidMoney, d)
	}
	return Money(minor.IntPart()), nil
}

// Decimal returns the amount in major units
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -moneyPlaces)
}

// String formats the amount with exactly two decimal places
func (m Money) String() string {
	return m.Decimal().StringFixed(moneyPlaces)
}

// Neg returns the negated amount
func (m Money) Neg() Money {
	return -m
}

// Add returns m+o, or ErrInvalidMoney when the sum does not fit in Money
func (m Money) Add(o Money) (Money, error) {
	sum := m + o
	if (o > 0 && sum < m) || (o < 0 && sum > m) {
		return 0, fmt.Errorf("%w: %s + %s overflows", ErrInvalidMoney, m, o)
	}
	return sum, nil
}

// Abs returns the absolute amount
func (m Money) Abs() Money {
	if m < 0 {
		return -m
	}
	return m
}

// IsPositive reports whether the amount is strictly greater than zero
func (m Money) IsPositive() bool {
	return m > 0
}

// MarshalJSON encodes money as a decimal string
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(m.String())), nil
}

// UnmarshalJSON accepts either a decimal string or a bare JSON number
func (m *Money) UnmarshalJSON(data []byte) error {
	raw := string(data)
	if raw == "null" {
		return nil
	}
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = unquoted
	}
	parsed, err := ParseMoney(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
