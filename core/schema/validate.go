package schema

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"quote-engine/core/rounding"
	"quote-engine/internal/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("rounding_mode", func(fl validator.FieldLevel) bool {
		return rounding.Mode(fl.Field().String()).Valid()
	})
	return v
}

// Validate checks a schema for authoring defects: structural tags, unique
// ids, declared defaults, and references to controls that are missing or
// declared after the control that reads them. The engine assumes a schema
// that passes Validate.
func Validate(s *Schema) error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}
	check := func(path string, v any) {
		if err := validate.Struct(v); err != nil {
			var ve validator.ValidationErrors
			if !stderrors.As(err, &ve) {
				add("%s: %v", path, err)
				return
			}
			for _, fe := range ve {
				add("%s.%s: failed %q", path, fieldPath(fe), fe.Tag())
			}
		}
	}

	check("schema", s)

	idx := s.Index()
	groupIDs := make(map[string]bool)
	controlIDs := make(map[string]bool)
	position := 0
	for gi := range s.Groups {
		g := &s.Groups[gi]
		if groupIDs[g.ID] {
			add("groups[%d]: duplicate group id %q", gi, g.ID)
		}
		groupIDs[g.ID] = true

		for ci, c := range g.Controls {
			path := fmt.Sprintf("groups[%d].controls[%d]", gi, ci)
			meta := c.Meta()
			check(path, c)
			if controlIDs[meta.ID] {
				add("%s: duplicate control id %q", path, meta.ID)
			}
			controlIDs[meta.ID] = true

			checkControl(path, c, add)

			for _, ref := range strategyRefs(c) {
				loc, ok := idx[ref.id]
				switch {
				case !ok:
					add("%s: %s references undeclared control %q", path, ref.where, ref.id)
				case loc.Index >= position:
					add("%s: %s references control %q declared later", path, ref.where, ref.id)
				}
			}
			for si, st := range strategiesOf(c) {
				check(fmt.Sprintf("%s.strategy[%d]", path, si), st)
			}
			position++
		}
	}

	for i, con := range s.EffectiveConstraints() {
		if s.Constraints == nil && !s.Has(con.ControlID) {
			continue
		}
		target, okTarget := idx[con.ControlID]
		source, okSource := idx[con.SourceControlID]
		if !okTarget {
			add("constraints[%d]: undeclared control %q", i, con.ControlID)
			continue
		}
		if !okSource {
			if s.Constraints != nil {
				add("constraints[%d]: undeclared source control %q", i, con.SourceControlID)
			}
			continue
		}
		if source.Index >= target.Index {
			add("constraints[%d]: source %q must be declared before %q", i, con.SourceControlID, con.ControlID)
		}
		if _, isChoice := target.Control.(*ChoiceControl); !isChoice {
			add("constraints[%d]: %q is not a choice control", i, con.ControlID)
		}
	}

	for i, d := range s.Derivations {
		check(fmt.Sprintf("derivations[%d]", i), d)
		for _, id := range derivationRefs(d) {
			if _, ok := idx[id]; !ok {
				add("derivations[%d]: undeclared control %q", i, id)
			}
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.New(errors.TypeSchema, fmt.Sprintf("schema has %d problem(s)", len(problems))).
		WithContext("problems", problems)
}

// Problems extracts the problem list from a Validate error
func Problems(err error) []string {
	var e *errors.Error
	if !stderrors.As(err, &e) {
		return nil
	}
	p, _ := e.Context["problems"].([]string)
	return p
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func checkControl(path string, c Control, add func(string, ...any)) {
	switch t := c.(type) {
	case *ChoiceControl:
		seen := make(map[string]bool)
		for _, o := range t.Options {
			if seen[o.ID] {
				add("%s: duplicate option id %q", path, o.ID)
			}
			seen[o.ID] = true
		}
		if t.DefaultValue != "" && !seen[t.DefaultValue] {
			add("%s: default option %q is not declared", path, t.DefaultValue)
		}
	case *BooleanControl:
	case *RangeControl:
		if t.missingDefault {
			add("%s: range defaultValue is required", path)
		}
		if t.DefaultValue < t.Min || t.DefaultValue > t.Max {
			add("%s: default %v outside [%v, %v]", path, t.DefaultValue, t.Min, t.Max)
		}
		if t.Step > 0 {
			off := decimal.NewFromFloat(t.DefaultValue).Sub(decimal.NewFromFloat(t.Min)).
				Mod(decimal.NewFromFloat(t.Step))
			if !off.IsZero() {
				add("%s: default %v is not on step %v", path, t.DefaultValue, t.Step)
			}
		}
	default:
		panic(fmt.Sprintf("schema: unhandled control type %T", c))
	}
}

// strategiesOf lists the control strategy followed by option strategies
func strategiesOf(c Control) []PriceStrategy {
	var out []PriceStrategy
	if st := c.Strategy(); st != nil {
		out = append(out, st)
	}
	if choice, ok := c.(*ChoiceControl); ok {
		for _, o := range choice.Options {
			if o.PriceStrategy != nil {
				out = append(out, o.PriceStrategy)
			}
		}
	}
	return out
}

type controlRef struct {
	id    string
	where string
}

func strategyRefs(c Control) []controlRef {
	var refs []controlRef
	for _, st := range strategiesOf(c) {
		switch t := st.(type) {
		case *PerArea:
			refs = append(refs,
				controlRef{t.WidthControlID, "PER_AREA width"},
				controlRef{t.HeightControlID, "PER_AREA height"})
		case *TieredByControl:
			refs = append(refs, controlRef{t.ControlID, "TIERED_BY_CONTROL"})
		}
	}
	return refs
}

func derivationRefs(d Derivation) []string {
	switch t := d.(type) {
	case *OptionByThreshold:
		return []string{t.ControlID, t.SourceControlID}
	case *UnitTimesCount:
		return []string{t.TypeControlID, t.CountControlID}
	case *ThresholdSurcharge:
		return []string{t.SourceControlID}
	case *DependentSurcharge:
		return []string{t.ControlID, t.DependsOnControlID}
	case *UnitPriceByCount:
		var refs []string
		if t.SourceControlID != "" {
			refs = append(refs, t.SourceControlID)
		}
		if t.CountControlID != "" {
			refs = append(refs, t.CountControlID)
		}
		return refs
	default:
		panic(fmt.Sprintf("schema: unhandled derivation type %T", d))
	}
}
