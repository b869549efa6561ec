package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"quote-engine/core/controls"
	"quote-engine/core/rounding"
	"quote-engine/core/schema"
	"quote-engine/core/strategy"
	"quote-engine/core/types"
	"quote-engine/internal/errors"
)

// ruleFailure is a derivation that could not be applied
type ruleFailure struct {
	rule      schema.DerivationType
	controlID string
	groupID   string
	message   string
}

func (f *ruleFailure) issue() types.ValidationIssue {
	return types.ValidationIssue{ControlID: f.controlID, GroupID: f.groupID, Message: f.message}
}

func (f *ruleFailure) err() error {
	return errors.Derivation(string(f.rule), fmt.Errorf("%s", f.message)).
		WithContext("controlId", f.controlID)
}

func (q *quote) fail(rule schema.DerivationType, controlID, format string, args ...any) *ruleFailure {
	f := &ruleFailure{rule: rule, controlID: controlID, message: fmt.Sprintf(format, args...)}
	if _, g, ok := q.schema.Find(controlID); ok {
		f.groupID = g.ID
	}
	return f
}

// plan lists the controls a rule may price whole, and the controls the
// main pass validates but leaves for a rule to price.
func plan(rules []schema.Derivation, sel types.Selections) (owned map[string]*schema.OptionByThreshold, deferred map[string]bool) {
	owned = make(map[string]*schema.OptionByThreshold)
	deferred = make(map[string]bool)
	for _, rule := range rules {
		switch r := rule.(type) {
		case *schema.OptionByThreshold:
			if _, supplied := sel.Get(r.ControlID); !supplied {
				owned[r.ControlID] = r
			}
		case *schema.UnitTimesCount:
			deferred[r.TypeControlID] = true
		case *schema.ThresholdSurcharge, *schema.DependentSurcharge, *schema.UnitPriceByCount:
		default:
			panic(fmt.Sprintf("engine: unhandled derivation type %T", rule))
		}
	}
	return owned, deferred
}

// derivable reports whether the rule's source already has a numeric
// value. Otherwise the control is processed like any other.
func (q *quote) derivable(r *schema.OptionByThreshold) bool {
	raw, present := q.normalized[r.SourceControlID]
	if !present {
		return false
	}
	_, ok := types.CoerceNumber(raw)
	return ok
}

// retract drops every breakdown line of controlID along with its delta
func (q *quote) retract(controlID string) {
	kept := q.breakdown[:0]
	for _, e := range q.breakdown {
		if e.ControlID == controlID {
			q.adjustments -= e.DeltaCents
			q.running -= e.DeltaCents
			continue
		}
		kept = append(kept, e)
	}
	q.breakdown = kept
}

// apply runs one rule against the completed main pass
func (q *quote) apply(rule schema.Derivation) *ruleFailure {
	switch r := rule.(type) {
	case *schema.OptionByThreshold:
		return q.optionByThreshold(r)
	case *schema.UnitTimesCount:
		return q.unitTimesCount(r)
	case *schema.ThresholdSurcharge:
		return q.thresholdSurcharge(r)
	case *schema.DependentSurcharge:
		return q.dependentSurcharge(r)
	case *schema.UnitPriceByCount:
		return q.unitPriceByCount(r)
	default:
		panic(fmt.Sprintf("engine: unhandled derivation type %T", rule))
	}
}

func (q *quote) optionByThreshold(r *schema.OptionByThreshold) *ruleFailure {
	if _, supplied := q.selections.Get(r.ControlID); supplied {
		return nil
	}
	c, g, ok := q.schema.Find(r.ControlID)
	if !ok {
		return q.fail(r.DerivationType(), r.ControlID, "control %q is not declared", r.ControlID)
	}
	raw, present := q.normalized[r.SourceControlID]
	if !present {
		return nil
	}
	v, ok := types.CoerceNumber(raw)
	if !ok {
		return q.fail(r.DerivationType(), r.ControlID, "source %q is not numeric", r.SourceControlID)
	}
	if !q.derived[r.ControlID] {
		return nil
	}

	optionID := r.Otherwise
	for _, tier := range r.Tiers {
		if v <= tier.UpTo {
			optionID = tier.OptionID
			break
		}
	}

	out, issues := controls.Process(q.context(g, c), optionID)
	if len(issues) > 0 {
		return q.fail(r.DerivationType(), r.ControlID, "derived option %q: %s", optionID, issues[0].Message)
	}
	if out.Skip {
		return nil
	}
	if out.Entry != nil {
		out.Entry.DisplayValue = optionID
	}
	q.normalized[r.ControlID] = out.Normalized
	q.commit(out.Delta, out.Entry)
	return nil
}

func (q *quote) unitTimesCount(r *schema.UnitTimesCount) *ruleFailure {
	typeSel, ok := q.normalized[r.TypeControlID].(string)
	if !ok {
		return nil
	}
	tc, g, ok := q.schema.Find(r.TypeControlID)
	if !ok {
		return q.fail(r.DerivationType(), r.TypeControlID, "control %q is not declared", r.TypeControlID)
	}
	typeCtl, ok := tc.(*schema.ChoiceControl)
	if !ok {
		return q.fail(r.DerivationType(), r.TypeControlID, "control %q is not a choice control", r.TypeControlID)
	}
	option, ok := typeCtl.Option(typeSel)
	if !ok {
		return q.fail(r.DerivationType(), r.TypeControlID, "option %q is not declared", typeSel)
	}

	countRaw, present := q.normalized[r.CountControlID]
	if !present {
		countRaw = r.DefaultCount
		if cc, _, found := q.schema.Find(r.CountControlID); found {
			if choice, isChoice := cc.(*schema.ChoiceControl); isChoice && choice.DefaultValue != "" {
				countRaw = choice.DefaultValue
			}
		}
	}
	count, ok := types.CoerceNumber(countRaw)
	if !ok {
		return q.fail(r.DerivationType(), r.CountControlID, "count %v is not numeric", countRaw)
	}

	perUnit := strategy.Evaluate(option.PriceStrategy, strategy.Context{
		ProductBase:  q.base,
		RunningTotal: q.running,
		Selections:   q.normalized,
		Value:        typeSel,
		Rounding:     q.schema.Rounding,
	})
	delta := rounding.RoundMinor(
		decimal.NewFromInt(perUnit).Mul(decimal.NewFromFloat(count)),
		q.schema.Rounding.Mode, q.schema.Rounding.MinorUnit,
	)

	entryID := r.EntryControlID
	if entryID == "" {
		entryID = r.TypeControlID
	}
	n := controls.FormatNumber(count)
	q.commit(delta, &types.BreakdownEntry{
		ControlID:    entryID,
		ControlLabel: typeCtl.Label,
		GroupID:      g.ID,
		GroupLabel:   g.Label,
		Strategy:     option.PriceStrategy,
		Selection:    typeSel + "×" + n,
		DisplayValue: typeSel + " × " + n,
		DeltaCents:   delta,
	})
	return nil
}

func (q *quote) thresholdSurcharge(r *schema.ThresholdSurcharge) *ruleFailure {
	raw, present := q.normalized[r.SourceControlID]
	if !present {
		return nil
	}
	v, ok := types.CoerceNumber(raw)
	if !ok {
		return q.fail(r.DerivationType(), r.SourceControlID, "source %q is not numeric", r.SourceControlID)
	}
	c, g, ok := q.schema.Find(r.SourceControlID)
	if !ok {
		return q.fail(r.DerivationType(), r.SourceControlID, "control %q is not declared", r.SourceControlID)
	}

	ctx := q.context(g, c)
	for _, tier := range r.Tiers {
		if v <= tier.Above || tier.AmountCents == 0 {
			continue
		}
		delta := rounding.RoundMinorInt(tier.AmountCents, q.schema.Rounding.Mode, q.schema.Rounding.MinorUnit)
		q.commit(delta, ctx.Entry(v, controls.FormatNumber(v), &schema.Fixed{AmountCents: tier.AmountCents}, delta))
	}
	return nil
}

func (q *quote) dependentSurcharge(r *schema.DependentSurcharge) *ruleFailure {
	sel, ok := q.normalized[r.ControlID].(string)
	if !ok || !contains(r.OptionIDs, sel) {
		return nil
	}
	dep, ok := q.normalized[r.DependsOnControlID].(string)
	if !ok {
		return nil
	}
	amount, ok := r.AmountsCents[dep]
	if !ok {
		amount, ok = r.AmountsCents[r.DefaultKey]
	}
	if !ok {
		return q.fail(r.DerivationType(), r.ControlID, "no surcharge for %q=%q", r.DependsOnControlID, dep)
	}

	delta := rounding.RoundMinorInt(amount, q.schema.Rounding.Mode, q.schema.Rounding.MinorUnit)
	if delta == 0 {
		return nil
	}
	c, g, _ := q.schema.Find(r.ControlID)
	q.commit(delta, q.context(g, c).Entry(sel, sel, &schema.Fixed{AmountCents: amount}, delta))
	return nil
}

func (q *quote) unitPriceByCount(r *schema.UnitPriceByCount) *ruleFailure {
	var (
		count              float64
		key                string
		selection, display string
	)
	if r.SourceControlID != "" {
		raw, present := q.normalized[r.SourceControlID]
		if !present {
			return nil
		}
		v, ok := types.CoerceNumber(raw)
		if !ok {
			return q.fail(r.DerivationType(), r.EntryControlID, "source %q is not numeric", r.SourceControlID)
		}
		tier := r.Otherwise
		for i := range r.Tiers {
			if v <= r.Tiers[i].UpTo {
				tier = &r.Tiers[i]
				break
			}
		}
		if tier == nil {
			return q.fail(r.DerivationType(), r.EntryControlID, "no count for %s=%s", r.SourceControlID, controls.FormatNumber(v))
		}
		count, key = float64(tier.Count), tier.UnitKey
		n := controls.FormatNumber(count)
		selection, display = key+"×"+n, key+" × "+n
	} else {
		sel, ok := q.normalized[r.CountControlID].(string)
		if !ok {
			return nil
		}
		v, ok := types.CoerceNumber(sel)
		if !ok {
			return q.fail(r.DerivationType(), r.CountControlID, "count %q is not numeric", sel)
		}
		count, key = v, r.UnitKey
		selection, display = sel, controls.FormatNumber(v)+" × "+key
	}

	q.retract(r.EntryControlID)
	if count <= 0 {
		return nil
	}
	unit := r.UnitPricesCents[key]
	delta := rounding.RoundMinor(
		decimal.NewFromInt(unit).Mul(decimal.NewFromFloat(count)),
		q.schema.Rounding.Mode, q.schema.Rounding.MinorUnit,
	)
	if delta == 0 {
		return nil
	}

	entry := &types.BreakdownEntry{
		ControlID:    r.EntryControlID,
		ControlLabel: r.EntryControlID,
		GroupID:      r.EntryControlID,
		GroupLabel:   r.EntryControlID,
		Strategy:     &schema.Fixed{AmountCents: unit},
		Selection:    selection,
		DisplayValue: display,
		DeltaCents:   delta,
	}
	if c, g, found := q.schema.Find(r.EntryControlID); found {
		entry.ControlLabel = c.Meta().Label
		entry.GroupID, entry.GroupLabel = g.ID, g.Label
	}
	q.commit(delta, entry)
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
