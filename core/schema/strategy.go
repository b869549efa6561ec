package schema

import (
	"encoding/json"
	"fmt"
)

// StrategyType discriminates price strategy variants on the wire
type StrategyType string

const (
	StrategyFixed           StrategyType = "FIXED"
	StrategyPercent         StrategyType = "PERCENT"
	StrategyPerUnit         StrategyType = "PER_UNIT"
	StrategyPerArea         StrategyType = "PER_AREA"
	StrategyThresholdFixed  StrategyType = "THRESHOLD_FIXED"
	StrategyTieredByControl StrategyType = "TIERED_BY_CONTROL"
)

// PriceStrategy is a pricing rule attached to a control or option.
// The set of implementations is closed; consumers switch on the concrete
// type and panic on anything else.
type PriceStrategy interface {
	StrategyType() StrategyType
	isPriceStrategy()
}

// PercentBase selects the amount a PERCENT strategy multiplies
type PercentBase string

const (
	BaseProduct      PercentBase = "PRODUCT_BASE"
	BaseRunningTotal PercentBase = "RUNNING_TOTAL"
)

// UnitsFrom selects how PER_UNIT derives its unit count
type UnitsFrom string

const (
	UnitsFromValue            UnitsFrom = "value"
	UnitsFromDeltaFromDefault UnitsFrom = "deltaFromDefault"
)

// UnitTenMM prices a PER_UNIT rate per ten raw units
const UnitTenMM = "TEN_MM"

// Comparator is the THRESHOLD_FIXED comparison operator
type Comparator string

const (
	CompareGT  Comparator = "GT"
	CompareGTE Comparator = "GTE"
	CompareLT  Comparator = "LT"
	CompareLTE Comparator = "LTE"
)

// Fixed adds a constant delta
type Fixed struct {
	AmountCents int64 `json:"amountCents"`
}

// Percent multiplies the product base or the running total by Percent
type Percent struct {
	Percent float64     `json:"percent"`
	Base    PercentBase `json:"base" validate:"oneof=PRODUCT_BASE RUNNING_TOTAL"`
}

// PerUnit multiplies a unit count taken from the control value by RateCents
type PerUnit struct {
	Unit      string    `json:"unit"`
	RateCents float64   `json:"rateCents"`
	UnitsFrom UnitsFrom `json:"unitsFrom,omitempty" validate:"omitempty,oneof=value deltaFromDefault"`
}

// PerArea prices the area spanned by two other controls
type PerArea struct {
	RateCents       float64 `json:"rateCents"`
	Unit            string  `json:"unit"`
	WidthControlID  string  `json:"widthControlId" validate:"required"`
	HeightControlID string  `json:"heightControlId" validate:"required"`
	Divisor         float64 `json:"divisor,omitempty" validate:"gte=0"`
}

// ThresholdFixed adds AmountCents when the control value satisfies Compare
type ThresholdFixed struct {
	Compare     Comparator `json:"compare" validate:"oneof=GT GTE LT LTE"`
	Threshold   float64    `json:"threshold"`
	AmountCents int64      `json:"amountCents"`
}

// TieredByControl picks an amount by comparing another control's value to Threshold
type TieredByControl struct {
	ControlID        string  `json:"controlId" validate:"required"`
	Threshold        float64 `json:"threshold"`
	BelowAmountCents int64   `json:"belowAmountCents"`
	AboveAmountCents int64   `json:"aboveAmountCents"`
}

func (*Fixed) StrategyType() StrategyType           { return StrategyFixed }
func (*Percent) StrategyType() StrategyType         { return StrategyPercent }
func (*PerUnit) StrategyType() StrategyType         { return StrategyPerUnit }
func (*PerArea) StrategyType() StrategyType         { return StrategyPerArea }
func (*ThresholdFixed) StrategyType() StrategyType  { return StrategyThresholdFixed }
func (*TieredByControl) StrategyType() StrategyType { return StrategyTieredByControl }

func (*Fixed) isPriceStrategy()           {}
func (*Percent) isPriceStrategy()         {}
func (*PerUnit) isPriceStrategy()         {}
func (*PerArea) isPriceStrategy()         {}
func (*ThresholdFixed) isPriceStrategy()  {}
func (*TieredByControl) isPriceStrategy() {}

func (s *Fixed) MarshalJSON() ([]byte, error) {
	type alias Fixed
	return marshalTagged(StrategyFixed, (*alias)(s))
}

func (s *Percent) MarshalJSON() ([]byte, error) {
	type alias Percent
	return marshalTagged(StrategyPercent, (*alias)(s))
}

func (s *PerUnit) MarshalJSON() ([]byte, error) {
	type alias PerUnit
	return marshalTagged(StrategyPerUnit, (*alias)(s))
}

func (s *PerArea) MarshalJSON() ([]byte, error) {
	type alias PerArea
	return marshalTagged(StrategyPerArea, (*alias)(s))
}

func (s *ThresholdFixed) MarshalJSON() ([]byte, error) {
	type alias ThresholdFixed
	return marshalTagged(StrategyThresholdFixed, (*alias)(s))
}

func (s *TieredByControl) MarshalJSON() ([]byte, error) {
	type alias TieredByControl
	return marshalTagged(StrategyTieredByControl, (*alias)(s))
}

// marshalTagged writes v's fields preceded by a "type" discriminator
func marshalTagged[T ~string](tag T, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	head, err := json.Marshal(map[string]T{"type": tag})
	if err != nil {
		return nil, err
	}
	if string(body) == "{}" {
		return head, nil
	}
	// splice {"type":"X"} and {...} into {"type":"X",...}
	out := make([]byte, 0, len(head)+len(body))
	out = append(out, head[:len(head)-1]...)
	out = append(out, ',')
	out = append(out, body[1:]...)
	return out, nil
}

// DecodeStrategy decodes a tagged strategy object.
// A null or empty message yields a nil strategy.
func DecodeStrategy(data json.RawMessage) (PriceStrategy, error) {
	if isNull(data) {
		return nil, nil
	}
	var head struct {
		Type StrategyType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("price strategy: %w", err)
	}

	var s PriceStrategy
	switch head.Type {
	case StrategyFixed:
		s = &Fixed{}
	case StrategyPercent:
		s = &Percent{}
	case StrategyPerUnit:
		s = &PerUnit{}
	case StrategyPerArea:
		s = &PerArea{}
	case StrategyThresholdFixed:
		s = &ThresholdFixed{}
	case StrategyTieredByControl:
		s = &TieredByControl{}
	default:
		return nil, fmt.Errorf("price strategy: unknown type %q", head.Type)
	}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("price strategy %s: %w", head.Type, err)
	}
	return s, nil
}

func isNull(data json.RawMessage) bool {
	s := string(data)
	return s == "" || s == "null"
}
