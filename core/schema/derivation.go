package schema

import (
	"encoding/json"
	"fmt"
)

// Constraint rejects some options of a choice control once another
// control's normalized value exceeds a threshold.
type Constraint struct {
	ControlID       string   `json:"controlId" validate:"required"`
	OptionIDs       []string `json:"optionIds" validate:"required,min=1"`
	SourceControlID string   `json:"sourceControlId" validate:"required"`
	Above           float64  `json:"above"`
	Message         string   `json:"message" validate:"required"`
}

// Blocks reports whether the constraint forbids optionID
func (c Constraint) Blocks(optionID string) bool {
	for _, id := range c.OptionIDs {
		if id == optionID {
			return true
		}
	}
	return false
}

// DerivationType discriminates derivation rules on the wire
type DerivationType string

const (
	DerivationOptionByThreshold  DerivationType = "DERIVE_OPTION_BY_THRESHOLD"
	DerivationUnitTimesCount     DerivationType = "UNIT_TIMES_COUNT"
	DerivationThresholdSurcharge DerivationType = "THRESHOLD_SURCHARGE"
	DerivationDependentSurcharge DerivationType = "DEPENDENT_SURCHARGE"
	DerivationUnitPriceByCount   DerivationType = "UNIT_PRICE_BY_COUNT"
)

// Derivation is a pricing rule run after the per-control pass.
// The set of implementations is closed.
type Derivation interface {
	DerivationType() DerivationType
	isDerivation()
}

// OptionTier maps source values up to UpTo (inclusive) to an option
type OptionTier struct {
	UpTo     float64 `json:"upTo"`
	OptionID string  `json:"optionId" validate:"required"`
}

// OptionByThreshold fills an unselected choice from another control's value
type OptionByThreshold struct {
	ControlID       string       `json:"controlId" validate:"required"`
	SourceControlID string       `json:"sourceControlId" validate:"required"`
	Tiers           []OptionTier `json:"tiers" validate:"dive"`
	Otherwise       string       `json:"otherwise" validate:"required"`
}

// UnitTimesCount prices a type option per unit, times a chosen count
type UnitTimesCount struct {
	TypeControlID  string `json:"typeControlId" validate:"required"`
	CountControlID string `json:"countControlId" validate:"required"`
	EntryControlID string `json:"entryControlId,omitempty"`
	DefaultCount   string `json:"defaultCount,omitempty"`
}

// SurchargeTier adds AmountCents when the source value exceeds Above
type SurchargeTier struct {
	Above       float64 `json:"above"`
	AmountCents int64   `json:"amountCents"`
}

// ThresholdSurcharge adds one fixed line per tier the source value exceeds
type ThresholdSurcharge struct {
	SourceControlID string          `json:"sourceControlId" validate:"required"`
	Tiers           []SurchargeTier `json:"tiers" validate:"required,min=1"`
}

// DependentSurcharge adds an amount keyed by another control's selection
// whenever ControlID resolves to one of OptionIDs.
type DependentSurcharge struct {
	ControlID          string           `json:"controlId" validate:"required"`
	OptionIDs          []string         `json:"optionIds" validate:"required,min=1"`
	DependsOnControlID string           `json:"dependsOnControlId" validate:"required"`
	AmountsCents       map[string]int64 `json:"amountsCents" validate:"required"`
	DefaultKey         string           `json:"defaultKey,omitempty"`
}

// CountTier maps source values up to UpTo (inclusive) to a count and the
// key of its unit price
type CountTier struct {
	UpTo    float64 `json:"upTo"`
	Count   int64   `json:"count" validate:"gt=0"`
	UnitKey string  `json:"unitKey" validate:"required"`
}

// UnitPriceByCount replaces the lines of EntryControlID with one line of
// unit price times count. The count comes either from SourceControlID
// through Tiers and Otherwise, or from the selection of CountControlID
// priced at UnitKey. A source takes precedence over a count control.
type UnitPriceByCount struct {
	EntryControlID  string           `json:"entryControlId" validate:"required"`
	SourceControlID string           `json:"sourceControlId,omitempty" validate:"required_without=CountControlID"`
	Tiers           []CountTier      `json:"tiers,omitempty" validate:"dive"`
	Otherwise       *CountTier       `json:"otherwise,omitempty" validate:"required_with=SourceControlID"`
	CountControlID  string           `json:"countControlId,omitempty"`
	UnitKey         string           `json:"unitKey,omitempty" validate:"required_with=CountControlID"`
	UnitPricesCents map[string]int64 `json:"unitPricesCents" validate:"required"`
}

func (*OptionByThreshold) DerivationType() DerivationType  { return DerivationOptionByThreshold }
func (*UnitTimesCount) DerivationType() DerivationType     { return DerivationUnitTimesCount }
func (*ThresholdSurcharge) DerivationType() DerivationType { return DerivationThresholdSurcharge }
func (*DependentSurcharge) DerivationType() DerivationType { return DerivationDependentSurcharge }
func (*UnitPriceByCount) DerivationType() DerivationType   { return DerivationUnitPriceByCount }

func (*OptionByThreshold) isDerivation()  {}
func (*UnitTimesCount) isDerivation()     {}
func (*ThresholdSurcharge) isDerivation() {}
func (*DependentSurcharge) isDerivation() {}
func (*UnitPriceByCount) isDerivation()   {}

func (d *OptionByThreshold) MarshalJSON() ([]byte, error) {
	type alias OptionByThreshold
	return marshalTagged(DerivationOptionByThreshold, (*alias)(d))
}

func (d *UnitTimesCount) MarshalJSON() ([]byte, error) {
	type alias UnitTimesCount
	return marshalTagged(DerivationUnitTimesCount, (*alias)(d))
}

func (d *ThresholdSurcharge) MarshalJSON() ([]byte, error) {
	type alias ThresholdSurcharge
	return marshalTagged(DerivationThresholdSurcharge, (*alias)(d))
}

func (d *DependentSurcharge) MarshalJSON() ([]byte, error) {
	type alias DependentSurcharge
	return marshalTagged(DerivationDependentSurcharge, (*alias)(d))
}

func (d *UnitPriceByCount) MarshalJSON() ([]byte, error) {
	type alias UnitPriceByCount
	return marshalTagged(DerivationUnitPriceByCount, (*alias)(d))
}

// DecodeDerivation decodes one tagged derivation rule
func DecodeDerivation(data json.RawMessage) (Derivation, error) {
	var head struct {
		Type DerivationType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("derivation: %w", err)
	}

	var d Derivation
	switch head.Type {
	case DerivationOptionByThreshold:
		d = &OptionByThreshold{}
	case DerivationUnitTimesCount:
		d = &UnitTimesCount{}
	case DerivationThresholdSurcharge:
		d = &ThresholdSurcharge{}
	case DerivationDependentSurcharge:
		d = &DependentSurcharge{}
	case DerivationUnitPriceByCount:
		d = &UnitPriceByCount{}
	default:
		return nil, fmt.Errorf("derivation: unknown type %q", head.Type)
	}
	if err := json.Unmarshal(data, d); err != nil {
		return nil, fmt.Errorf("derivation %s: %w", head.Type, err)
	}
	return d, nil
}

func (s *Schema) UnmarshalJSON(data []byte) error {
	type alias Schema
	aux := struct {
		*alias
		Derivations []json.RawMessage `json:"derivations"`
	}{alias: (*alias)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.Derivations = nil
	if aux.Derivations == nil {
		return nil
	}
	s.Derivations = make([]Derivation, 0, len(aux.Derivations))
	for i, raw := range aux.Derivations {
		d, err := DecodeDerivation(raw)
		if err != nil {
			return fmt.Errorf("derivations[%d]: %w", i, err)
		}
		s.Derivations = append(s.Derivations, d)
	}
	return nil
}
