// Package controls - Per-control validation, normalization and pricing
// Process validates one raw selection against its control, normalizes it,
// prices it through the strategy evaluator and builds its breakdown line.
package controls

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"quote-engine/core/schema"
	"quote-engine/core/strategy"
	"quote-engine/core/types"
)

// User-facing validation messages
const (
	MsgSelectionRequired = "Selection required"
	MsgInvalidOption     = "Invalid option selected"
	MsgExpectedBoolean   = "Expected boolean value"
	MsgMustBeNumeric     = "Value must be numeric"
)

// Orientation options of the opening control never change the price
var freeOpenings = map[string]bool{"left": true, "right": true}

// Context is everything Process needs besides the raw value
type Context struct {
	Schema  *schema.Schema
	Group   *schema.Group
	Control schema.Control

	ProductBase  int64
	RunningTotal int64

	// Selections holds the values normalized before this control
	Selections types.NormalizedSelections

	// Constraints are the schema's effective cross-field constraints
	Constraints []schema.Constraint

	// Deferred marks a control whose price a derivation rule computes
	Deferred bool
}

// Outcome is the result of processing one control
type Outcome struct {
	Normalized any
	Delta      int64
	Entry      *types.BreakdownEntry

	// Skip is set for an optional choice with nothing selected
	Skip bool
}

// Process validates and prices raw for ctx.Control. A nil raw value means
// the caller supplied nothing. It panics on a control type it does not know.
func Process(ctx Context, raw any) (Outcome, []types.ValidationIssue) {
	switch c := ctx.Control.(type) {
	case *schema.ChoiceControl:
		return processChoice(ctx, c, raw)
	case *schema.BooleanControl:
		return processBoolean(ctx, c, raw)
	case *schema.RangeControl:
		return processRange(ctx, c, raw)
	default:
		panic(fmt.Sprintf("controls: unhandled control type %T", ctx.Control))
	}
}

func (ctx Context) issue(message string) []types.ValidationIssue {
	return []types.ValidationIssue{{
		ControlID: ctx.Control.Meta().ID,
		GroupID:   ctx.Group.ID,
		Message:   message,
	}}
}

func (ctx Context) eval(st schema.PriceStrategy, value any, def float64) int64 {
	return strategy.Evaluate(st, strategy.Context{
		ProductBase:  ctx.ProductBase,
		RunningTotal: ctx.RunningTotal,
		Selections:   ctx.Selections,
		Value:        value,
		Default:      def,
		Rounding:     ctx.Schema.Rounding,
	})
}

// Entry builds a breakdown line for the context's control
func (ctx Context) Entry(selection any, display string, st schema.PriceStrategy, delta int64) *types.BreakdownEntry {
	meta := ctx.Control.Meta()
	return &types.BreakdownEntry{
		ControlID:    meta.ID,
		ControlLabel: meta.Label,
		GroupID:      ctx.Group.ID,
		GroupLabel:   ctx.Group.Label,
		Strategy:     st,
		Selection:    selection,
		DisplayValue: display,
		DeltaCents:   delta,
	}
}

// violation returns the message of the first constraint the selection breaks
func (ctx Context) violation(selection string) (string, bool) {
	id := ctx.Control.Meta().ID
	for _, con := range ctx.Constraints {
		if con.ControlID != id || !con.Blocks(selection) {
			continue
		}
		src, ok := types.CoerceNumber(ctx.Selections[con.SourceControlID])
		if ok && src > con.Above {
			return con.Message, true
		}
	}
	return "", false
}

func processChoice(ctx Context, c *schema.ChoiceControl, raw any) (Outcome, []types.ValidationIssue) {
	selection, isString := raw.(string)
	if !isString {
		selection = c.DefaultValue
	}
	if selection == "" {
		if c.Required {
			return Outcome{}, ctx.issue(MsgSelectionRequired)
		}
		return Outcome{Skip: true}, nil
	}

	if msg, blocked := ctx.violation(selection); blocked {
		return Outcome{}, ctx.issue(msg)
	}

	option, ok := c.Option(selection)
	if !ok {
		return Outcome{}, ctx.issue(MsgInvalidOption)
	}

	if ctx.Deferred {
		return Outcome{Normalized: selection}, nil
	}
	if c.ID == schema.OpeningControlID && freeOpenings[selection] {
		return Outcome{
			Normalized: selection,
			Entry:      ctx.Entry(selection, option.Label, nil, 0),
		}, nil
	}

	delta := ctx.eval(option.PriceStrategy, selection, 0)
	if st := c.PriceStrategy; st != nil {
		var value any = selection
		if n, ok := types.CoerceNumber(selection); ok {
			value = n
		}
		def, _ := types.CoerceNumber(c.DefaultValue)
		delta += ctx.eval(st, value, def)
	}

	shown := c.PriceStrategy
	if shown == nil {
		shown = option.PriceStrategy
	}
	return Outcome{
		Normalized: selection,
		Delta:      delta,
		Entry:      ctx.Entry(selection, option.Label, shown, delta),
	}, nil
}

func processBoolean(ctx Context, c *schema.BooleanControl, raw any) (Outcome, []types.ValidationIssue) {
	var value bool
	switch v := raw.(type) {
	case nil:
		value = c.DefaultValue
	case bool:
		value = v
	case string:
		switch v {
		case "true":
			value = true
		case "false":
			value = false
		default:
			return Outcome{}, ctx.issue(MsgExpectedBoolean)
		}
	default:
		return Outcome{}, ctx.issue(MsgExpectedBoolean)
	}

	var delta int64
	if value {
		delta = ctx.eval(c.PriceStrategy, value, 0)
	}
	display := "No"
	if value {
		display = "Yes"
	}
	return Outcome{
		Normalized: value,
		Delta:      delta,
		Entry:      ctx.Entry(value, display, c.PriceStrategy, delta),
	}, nil
}

func processRange(ctx Context, c *schema.RangeControl, raw any) (Outcome, []types.ValidationIssue) {
	var value float64
	switch v := raw.(type) {
	case nil:
		value = c.DefaultValue
	case string:
		n, ok := types.CoerceNumber(v)
		if !ok {
			return Outcome{}, ctx.issue(MsgMustBeNumeric)
		}
		value = n
	default:
		n, ok := types.AsNumber(v)
		if !ok {
			return Outcome{}, ctx.issue(MsgMustBeNumeric)
		}
		value = n
	}

	if value < c.Min || value > c.Max {
		return Outcome{}, ctx.issue(fmt.Sprintf("Value must be between %s and %s", FormatNumber(c.Min), FormatNumber(c.Max)))
	}
	if c.Step > 0 {
		rem := decimal.NewFromFloat(value).Sub(decimal.NewFromFloat(c.Min)).Mod(decimal.NewFromFloat(c.Step))
		if !rem.IsZero() {
			return Outcome{}, ctx.issue(fmt.Sprintf("Value must increment by %s", FormatNumber(c.Step)))
		}
	}

	delta := ctx.eval(c.PriceStrategy, value, c.DefaultValue)
	display := FormatNumber(value)
	if c.Unit != "" {
		display += " " + c.Unit
	}
	return Outcome{
		Normalized: value,
		Delta:      delta,
		Entry:      ctx.Entry(value, display, c.PriceStrategy, delta),
	}, nil
}

// FormatNumber renders a number the shortest way that round-trips,
// without an exponent: 2000, 0.5, -12.25.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
