// Package rounding rounds signed amounts to a multiple of a currency minor unit.
// All arithmetic is exact: amounts are decimals, never float64.
package rounding

import (
	"github.com/shopspring/decimal"
)

// Mode is the tie-breaking rule applied when a value sits exactly halfway
// between two integers.
type Mode string

const (
	// HalfUp rounds ties away from zero
	HalfUp Mode = "HALF_UP"

	// HalfDown rounds ties toward zero
	HalfDown Mode = "HALF_DOWN"

	// HalfEven rounds ties to the nearest even integer (banker's rounding)
	HalfEven Mode = "HALF_EVEN"
)

// Valid reports whether m is one of the three supported modes.
func (m Mode) Valid() bool {
	switch m {
	case HalfUp, HalfDown, HalfEven:
		return true
	}
	return false
}

var half = decimal.NewFromFloat(0.5)

// Round rounds v to an integer under mode.
// The sign is extracted first so ties are resolved on the magnitude.
// An unrecognized mode rounds like HalfUp.
func Round(v decimal.Decimal, mode Mode) int64 {
	sign := int64(1)
	if v.IsNegative() {
		sign = -1
	}
	magnitude := v.Abs()
	whole := magnitude.Floor()
	frac := magnitude.Sub(whole)

	n := whole.IntPart()
	switch c := frac.Cmp(half); {
	case c > 0:
		n++
	case c < 0:
	default:
		switch mode {
		case HalfDown:
		case HalfEven:
			if n%2 != 0 {
				n++
			}
		default:
			n++
		}
	}
	return sign * n
}

// RoundMinor rounds amount to the nearest multiple of minorUnit.
// A minorUnit of 1 or less rounds to a whole number of minor units.
func RoundMinor(amount decimal.Decimal, mode Mode, minorUnit int64) int64 {
	if minorUnit <= 1 {
		return Round(amount, mode)
	}
	ratio := amount.Div(decimal.NewFromInt(minorUnit))
	return Round(ratio, mode) * minorUnit
}

// RoundMinorInt is RoundMinor for an amount that is already integral.
func RoundMinorInt(amount int64, mode Mode, minorUnit int64) int64 {
	return RoundMinor(decimal.NewFromInt(amount), mode, minorUnit)
}
