// Package display - Presentation of priced quotes
// These helpers run after the engine. They never change how a quote is
// priced, only how its amounts and selections are shown.
package display

import (
	"fmt"

	"github.com/shopspring/decimal"

	"quote-engine/core/controls"
	"quote-engine/core/determinism"
	"quote-engine/core/rounding"
	"quote-engine/core/schema"
	"quote-engine/core/types"
)

func copyResult(r *types.QuoteResult) *types.QuoteResult {
	out := *r
	out.Breakdown = make([]types.BreakdownEntry, len(r.Breakdown))
	copy(out.Breakdown, r.Breakdown)
	return &out
}

func scaleCents(cents int64, factor decimal.Decimal) int64 {
	return rounding.Round(decimal.NewFromInt(cents).Mul(factor), rounding.HalfUp)
}

// Scale applies a display multiplier to every breakdown delta, re-sums the
// adjustments and recomputes the total. The base price is never scaled.
// A multiplier that is not positive leaves amounts unchanged.
func Scale(r *types.QuoteResult, multiplier float64) *types.QuoteResult {
	out := copyResult(r)
	if multiplier <= 0 {
		multiplier = 1
	}
	m := decimal.NewFromFloat(multiplier)

	var adjustments int64
	for i := range out.Breakdown {
		out.Breakdown[i].DeltaCents = scaleCents(out.Breakdown[i].DeltaCents, m)
		adjustments += out.Breakdown[i].DeltaCents
	}
	out.AdjustmentsCents = adjustments
	out.TotalPriceCents = out.BasePriceCents + adjustments
	return out
}

// Convert re-expresses every amount in another currency at rate.
// Each amount converts independently as round(cents × rate).
func Convert(r *types.QuoteResult, rate decimal.Decimal, currency string) (*types.QuoteResult, error) {
	if !rate.IsPositive() {
		return nil, fmt.Errorf("fx rate must be positive, got %s", rate)
	}
	out := copyResult(r)
	out.Currency = currency
	out.BasePriceCents = scaleCents(r.BasePriceCents, rate)
	out.AdjustmentsCents = scaleCents(r.AdjustmentsCents, rate)
	out.TotalPriceCents = scaleCents(r.TotalPriceCents, rate)
	for i := range out.Breakdown {
		out.Breakdown[i].DeltaCents = scaleCents(out.Breakdown[i].DeltaCents, rate)
	}
	return out, nil
}

// ResolvedSelection is a normalized selection with its labels filled in
type ResolvedSelection struct {
	GroupID      string `json:"groupId"`
	GroupLabel   string `json:"groupLabel"`
	ControlID    string `json:"controlId"`
	ControlLabel string `json:"controlLabel"`
	Value        any    `json:"value"`
	DisplayValue string `json:"displayValue"`
}

// Resolve labels normalized selections for reading. Known controls come in
// schema order; ids the schema does not declare follow, sorted.
func Resolve(s *schema.Schema, normalized types.NormalizedSelections) []ResolvedSelection {
	out := make([]ResolvedSelection, 0, len(normalized))
	for gi := range s.Groups {
		g := &s.Groups[gi]
		for _, c := range g.Controls {
			meta := c.Meta()
			value, ok := normalized[meta.ID]
			if !ok {
				continue
			}
			out = append(out, ResolvedSelection{
				GroupID:      g.ID,
				GroupLabel:   g.Label,
				ControlID:    meta.ID,
				ControlLabel: meta.Label,
				Value:        value,
				DisplayValue: displayValue(c, value),
			})
		}
	}

	determinism.RangeMapSorted(normalized, func(id string, value any) bool {
		if !s.Has(id) {
			out = append(out, ResolvedSelection{
				ControlID:    id,
				ControlLabel: id,
				Value:        value,
				DisplayValue: stringify(value),
			})
		}
		return true
	})
	return out
}

func displayValue(c schema.Control, value any) string {
	switch t := c.(type) {
	case *schema.ChoiceControl:
		if id, ok := value.(string); ok {
			if o, found := t.Option(id); found {
				return o.Label
			}
		}
		return stringify(value)
	case *schema.BooleanControl:
		if b, _ := value.(bool); b {
			return "Yes"
		}
		return "No"
	case *schema.RangeControl:
		s := stringify(value)
		if t.Unit != "" {
			s += " " + t.Unit
		}
		return s
	default:
		panic(fmt.Sprintf("display: unhandled control type %T", c))
	}
}

func stringify(v any) string {
	if v == nil {
		return ""
	}
	if n, ok := types.AsNumber(v); ok {
		return controls.FormatNumber(n)
	}
	return fmt.Sprint(v)
}
