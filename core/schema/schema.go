// Package schema - Parametric pricing schema documents
// A schema describes the selectable controls of a product and how each
// one prices. It is plain data; the engine treats it as immutable.
package schema

import (
	"encoding/json"
	"fmt"

	"quote-engine/core/rounding"
)

// Schema is a versioned configuration document of selectable options
type Schema struct {
	// Currency is the ISO code amounts are expressed in
	Currency string `json:"currency" validate:"required"`

	// Rounding is the rounding policy for every computed delta
	Rounding Rounding `json:"rounding"`

	// DisplayMultiplier optionally scales user-facing deltas (never the base)
	DisplayMultiplier *float64 `json:"displayMultiplier,omitempty" validate:"omitempty,gt=0"`

	// Groups are walked in declaration order
	Groups []Group `json:"groups" validate:"required,min=1,dive"`

	// Constraints are cross-field option restrictions.
	// Nil means the conventional set applies.
	Constraints []Constraint `json:"constraints" validate:"dive"`

	// Derivations are post-pass pricing rules.
	// Nil means the conventional list applies.
	Derivations []Derivation `json:"derivations"`

	// HeightSurcharges is the legacy form of a THRESHOLD_SURCHARGE on heightMm
	HeightSurcharges *HeightSurcharges `json:"heightSurcharges,omitempty"`

	// OpeningInsideSurcharge is the legacy form of a DEPENDENT_SURCHARGE on opening
	OpeningInsideSurcharge *OpeningInsideSurcharge `json:"openingInsideSurcharge,omitempty"`

	// HingeUnitPrices is the legacy form of a UNIT_PRICE_BY_COUNT on hinges
	HingeUnitPrices *HingeUnitPrices `json:"hingeUnitPrices,omitempty"`

	// Budget marks a budget product line: hinges are chosen by the buyer and
	// inside openings carry no surcharge
	Budget bool `json:"budget,omitempty"`
}

// Rounding is the schema's rounding policy
type Rounding struct {
	Mode      rounding.Mode `json:"mode" validate:"rounding_mode"`
	MinorUnit int64         `json:"minorUnit" validate:"gte=0"`
}

// Group is an ordered, labelled set of controls
type Group struct {
	ID          string    `json:"id" validate:"required"`
	Label       string    `json:"label"`
	Description string    `json:"description,omitempty"`
	Controls    []Control `json:"controls"`
}

// HeightSurcharges adds fixed amounts above 2100 mm and 2300 mm
type HeightSurcharges struct {
	Over2100 int64 `json:"over2100,omitempty"`
	Over2300 int64 `json:"over2300,omitempty"`
}

// OpeningInsideSurcharge adds a frame-dependent amount to inside openings
type OpeningInsideSurcharge struct {
	Wood      int64 `json:"wood,omitempty"`
	Aluminium int64 `json:"aluminium,omitempty"`
}

// HingeUnitPrices are per-hinge prices for type A (three hinges) and
// type B (four or more)
type HingeUnitPrices struct {
	A int64 `json:"A,omitempty"`
	B int64 `json:"B,omitempty"`
}

func (g *Group) UnmarshalJSON(data []byte) error {
	type alias Group
	aux := struct {
		*alias
		Controls []json.RawMessage `json:"controls"`
	}{alias: (*alias)(g)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	g.Controls = make([]Control, 0, len(aux.Controls))
	for _, raw := range aux.Controls {
		c, err := DecodeControl(raw)
		if err != nil {
			return fmt.Errorf("group %q: %w", g.ID, err)
		}
		g.Controls = append(g.Controls, c)
	}
	return nil
}

// Locate is the position of a control within a schema
type Locate struct {
	Group   *Group
	Control Control
	Index   int
}

// Find returns the control with the given id and the group declaring it
func (s *Schema) Find(controlID string) (Control, *Group, bool) {
	for gi := range s.Groups {
		g := &s.Groups[gi]
		for _, c := range g.Controls {
			if c.Meta().ID == controlID {
				return c, g, true
			}
		}
	}
	return nil, nil, false
}

// Has reports whether a control with the given id is declared
func (s *Schema) Has(controlID string) bool {
	_, _, ok := s.Find(controlID)
	return ok
}

// Index maps every control id to its position in walk order
func (s *Schema) Index() map[string]Locate {
	idx := make(map[string]Locate)
	n := 0
	for gi := range s.Groups {
		g := &s.Groups[gi]
		for _, c := range g.Controls {
			if _, dup := idx[c.Meta().ID]; !dup {
				idx[c.Meta().ID] = Locate{Group: g, Control: c, Index: n}
			}
			n++
		}
	}
	return idx
}

// Multiplier returns the display multiplier, or 1 when unset or not positive
func (s *Schema) Multiplier() float64 {
	if s.DisplayMultiplier == nil || *s.DisplayMultiplier <= 0 {
		return 1
	}
	return *s.DisplayMultiplier
}
