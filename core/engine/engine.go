// Package engine provides the quote orchestrator.
// The CLI and request envelopes are thin wrappers around this engine.
package engine

import (
	"go.uber.org/zap"

	"quote-engine/core/controls"
	"quote-engine/core/rounding"
	"quote-engine/core/schema"
	"quote-engine/core/types"
)

// Options configures an Engine
type Options struct {
	// StrictDerivations turns a failing derivation rule into a
	// validation issue instead of skipping it
	StrictDerivations bool

	// Logger receives debug and warning output; nil means no logging
	Logger *zap.Logger
}

// Engine prices quotes. It holds no per-quote state and is safe for
// concurrent use.
type Engine struct {
	strict bool
	log    *zap.Logger
}

// New creates an engine
func New(opts Options) *Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{strict: opts.StrictDerivations, log: log}
}

// Strict reports whether derivation failures surface as issues
func (e *Engine) Strict() bool {
	return e.strict
}

// PriceQuote prices selections with a lenient, silent engine
func PriceQuote(base int64, s *schema.Schema, sel types.Selections) (*types.QuoteResult, error) {
	return New(Options{}).PriceQuote(base, s, sel)
}

// quote is the state of one pricing call
type quote struct {
	schema      *schema.Schema
	selections  types.Selections
	base        int64
	running     int64
	adjustments int64
	breakdown   []types.BreakdownEntry
	normalized  types.NormalizedSelections
	constraints []schema.Constraint

	// derived holds controls the main pass left for a rule to choose
	derived map[string]bool
}

func (q *quote) commit(delta int64, entry *types.BreakdownEntry) {
	q.adjustments += delta
	q.running += delta
	if entry != nil {
		q.breakdown = append(q.breakdown, *entry)
	}
}

func (q *quote) context(g *schema.Group, c schema.Control) controls.Context {
	return controls.Context{
		Schema:       q.schema,
		Group:        g,
		Control:      c,
		ProductBase:  q.base,
		RunningTotal: q.running,
		Selections:   q.normalized,
		Constraints:  q.constraints,
	}
}

// PriceQuote walks the schema in declaration order, prices every control,
// applies the derivation rules and returns the quote. Validation failures
// are collected across all controls and returned together as a
// *types.ValidationError.
func (e *Engine) PriceQuote(base int64, s *schema.Schema, sel types.Selections) (*types.QuoteResult, error) {
	q := &quote{
		schema:      s,
		selections:  sel,
		base:        base,
		running:     base,
		breakdown:   []types.BreakdownEntry{},
		normalized:  types.NormalizedSelections{},
		constraints: s.EffectiveConstraints(),
		derived:     make(map[string]bool),
	}
	rules := s.EffectiveDerivations()
	owned, deferred := plan(rules, sel)

	var issues []types.ValidationIssue
	for gi := range s.Groups {
		g := &s.Groups[gi]
		for _, c := range g.Controls {
			id := c.Meta().ID
			if rule, ok := owned[id]; ok && q.derivable(rule) {
				q.derived[id] = true
				continue
			}
			raw, _ := sel.Get(id)
			ctx := q.context(g, c)
			ctx.Deferred = deferred[id]

			out, errs := controls.Process(ctx, raw)
			if len(errs) > 0 {
				issues = append(issues, errs...)
				continue
			}
			if out.Skip {
				continue
			}
			q.normalized[id] = out.Normalized
			q.commit(out.Delta, out.Entry)
		}
	}

	// Rules read a complete, valid main pass
	if len(issues) == 0 {
		for _, rule := range rules {
			failure := q.apply(rule)
			if failure == nil {
				continue
			}
			if e.strict {
				issues = append(issues, failure.issue())
				continue
			}
			e.log.Warn("derivation skipped",
				zap.String("rule", string(rule.DerivationType())),
				zap.String("control", failure.controlID),
				zap.Error(failure.err()),
			)
		}
	}

	if len(issues) > 0 {
		e.log.Debug("quote rejected", zap.Int("issues", len(issues)))
		return nil, &types.ValidationError{Issues: issues}
	}

	adjustments := rounding.RoundMinorInt(q.adjustments, s.Rounding.Mode, s.Rounding.MinorUnit)
	result := &types.QuoteResult{
		Currency:             s.Currency,
		BasePriceCents:       base,
		AdjustmentsCents:     adjustments,
		TotalPriceCents:      base + adjustments,
		Rounding:             s.Rounding,
		Breakdown:            q.breakdown,
		NormalizedSelections: q.normalized,
	}

	e.log.Debug("quote priced",
		zap.Int("lines", len(result.Breakdown)),
		zap.Int64("adjustments", result.AdjustmentsCents),
		zap.Int64("total", result.TotalPriceCents),
	)
	return result, nil
}
