// Package strategy - Price strategy evaluation
// Evaluate turns one price strategy and the state of a quote in progress
// into a signed delta in minor currency units. A nil strategy, or a
// numeric formula applied to a non-numeric value, contributes nothing.
package strategy

import (
	"fmt"

	"github.com/shopspring/decimal"

	"quote-engine/core/rounding"
	"quote-engine/core/schema"
	"quote-engine/core/types"
)

// Context is the state a strategy is evaluated against
type Context struct {
	// ProductBase is the product's base price
	ProductBase int64

	// RunningTotal is the base plus every delta committed so far
	RunningTotal int64

	// Selections holds the values normalized so far, in schema order
	Selections types.NormalizedSelections

	// Value is the evaluated control's own normalized value
	Value any

	// Default is the evaluated control's numeric default, used by
	// PER_UNIT deltaFromDefault
	Default float64

	// Rounding is the schema's rounding policy
	Rounding schema.Rounding
}

func (c Context) round(amount decimal.Decimal) int64 {
	return rounding.RoundMinor(amount, c.Rounding.Mode, c.Rounding.MinorUnit)
}

// Evaluate computes the delta of s in ctx.
// It panics on a strategy type it does not know.
func Evaluate(s schema.PriceStrategy, ctx Context) int64 {
	if s == nil {
		return 0
	}

	switch st := s.(type) {
	case *schema.Fixed:
		return st.AmountCents
	case *schema.Percent:
		base := ctx.RunningTotal
		if st.Base == schema.BaseProduct {
			base = ctx.ProductBase
		}
		return ctx.round(decimal.NewFromInt(base).Mul(decimal.NewFromFloat(st.Percent)))
	case *schema.PerUnit:
		return perUnit(st, ctx)
	case *schema.PerArea:
		return perArea(st, ctx)
	case *schema.ThresholdFixed:
		return thresholdFixed(st, ctx)
	case *schema.TieredByControl:
		return tiered(st, ctx)
	default:
		panic(fmt.Sprintf("strategy: unhandled price strategy %T", s))
	}
}

func perUnit(st *schema.PerUnit, ctx Context) int64 {
	value, ok := types.AsNumber(ctx.Value)
	if !ok {
		return 0
	}

	units := decimal.NewFromFloat(value)
	if st.UnitsFrom == schema.UnitsFromDeltaFromDefault {
		units = units.Sub(decimal.NewFromFloat(ctx.Default)).Abs()
	}
	// TEN_MM groups raw units by ten before the rate applies
	if st.Unit == schema.UnitTenMM {
		units = decimal.NewFromInt(rounding.Round(units.Div(decimal.NewFromInt(10)), rounding.HalfUp))
	}
	return ctx.round(units.Mul(decimal.NewFromFloat(st.RateCents)))
}

func perArea(st *schema.PerArea, ctx Context) int64 {
	width, okW := types.AsNumber(ctx.Selections[st.WidthControlID])
	height, okH := types.AsNumber(ctx.Selections[st.HeightControlID])
	if !okW || !okH {
		return 0
	}

	area := decimal.NewFromFloat(width).Mul(decimal.NewFromFloat(height))
	if st.Divisor != 0 {
		area = area.Div(decimal.NewFromFloat(st.Divisor))
	}
	return ctx.round(area.Mul(decimal.NewFromFloat(st.RateCents)))
}

func thresholdFixed(st *schema.ThresholdFixed, ctx Context) int64 {
	v, ok := types.AsNumber(ctx.Value)
	if !ok {
		return 0
	}
	if Compare(st.Compare, v, st.Threshold) {
		return st.AmountCents
	}
	return 0
}

func tiered(st *schema.TieredByControl, ctx Context) int64 {
	ref, ok := types.CoerceNumber(ctx.Selections[st.ControlID])
	if !ok {
		return 0
	}
	amount := st.BelowAmountCents
	if ref > st.Threshold {
		amount = st.AboveAmountCents
	}
	return ctx.round(decimal.NewFromInt(amount))
}

// Compare applies a THRESHOLD_FIXED comparator.
// An unknown comparator never holds.
func Compare(op schema.Comparator, v, threshold float64) bool {
	switch op {
	case schema.CompareGT:
		return v > threshold
	case schema.CompareGTE:
		return v >= threshold
	case schema.CompareLT:
		return v < threshold
	case schema.CompareLTE:
		return v <= threshold
	}
	return false
}
