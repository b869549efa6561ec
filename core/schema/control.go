package schema

import (
	"encoding/json"
	"fmt"
)

// ControlType is the wire tag of a control
type ControlType string

const (
	ControlSelect  ControlType = "select"
	ControlRadio   ControlType = "radio"
	ControlBoolean ControlType = "boolean"
	ControlRange   ControlType = "range"
)

// Control is one configurable parameter. Implementations are
// *ChoiceControl, *BooleanControl and *RangeControl.
type Control interface {
	// Meta returns the fields shared by every control type
	Meta() *ControlMeta

	// Strategy returns the control-level price strategy, if any
	Strategy() PriceStrategy

	isControl()
}

// ControlMeta holds the fields common to every control
type ControlMeta struct {
	ID         string      `json:"id" validate:"required"`
	Type       ControlType `json:"type" validate:"oneof=select radio boolean range"`
	Label      string      `json:"label"`
	Required   bool        `json:"required,omitempty"`
	HelperText string      `json:"helperText,omitempty"`
}

// Option is one selectable choice of a ChoiceControl
type Option struct {
	ID            string        `json:"id" validate:"required"`
	Label         string        `json:"label"`
	Description   string        `json:"description,omitempty"`
	PriceStrategy PriceStrategy `json:"priceStrategy,omitempty"`
}

// ChoiceControl is a select or radio control
type ChoiceControl struct {
	ControlMeta
	Options       []Option      `json:"options" validate:"required,min=1,dive"`
	DefaultValue  string        `json:"defaultValue,omitempty"`
	PriceStrategy PriceStrategy `json:"priceStrategy,omitempty"`
}

// BooleanControl is an on/off toggle
type BooleanControl struct {
	ControlMeta
	DefaultValue  bool          `json:"defaultValue,omitempty"`
	PriceStrategy PriceStrategy `json:"priceStrategy,omitempty"`
}

// RangeControl is a bounded numeric input
type RangeControl struct {
	ControlMeta
	Min           float64       `json:"min"`
	Max           float64       `json:"max" validate:"gtefield=Min"`
	Step          float64       `json:"step,omitempty" validate:"gte=0"`
	Unit          string        `json:"unit,omitempty"`
	DefaultValue  float64       `json:"defaultValue"`
	PriceStrategy PriceStrategy `json:"priceStrategy,omitempty"`

	// missingDefault is set when a decoded document omitted defaultValue
	missingDefault bool
}

func (c *ChoiceControl) Meta() *ControlMeta  { return &c.ControlMeta }
func (c *BooleanControl) Meta() *ControlMeta { return &c.ControlMeta }
func (c *RangeControl) Meta() *ControlMeta   { return &c.ControlMeta }

func (c *ChoiceControl) Strategy() PriceStrategy  { return c.PriceStrategy }
func (c *BooleanControl) Strategy() PriceStrategy { return c.PriceStrategy }
func (c *RangeControl) Strategy() PriceStrategy   { return c.PriceStrategy }

func (*ChoiceControl) isControl()  {}
func (*BooleanControl) isControl() {}
func (*RangeControl) isControl()   {}

// Option returns the declared option with the given id
func (c *ChoiceControl) Option(id string) (*Option, bool) {
	for i := range c.Options {
		if c.Options[i].ID == id {
			return &c.Options[i], true
		}
	}
	return nil, false
}

func (o *Option) UnmarshalJSON(data []byte) error {
	type alias Option
	aux := struct {
		*alias
		PriceStrategy json.RawMessage `json:"priceStrategy"`
	}{alias: (*alias)(o)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s, err := DecodeStrategy(aux.PriceStrategy)
	if err != nil {
		return fmt.Errorf("option %q: %w", o.ID, err)
	}
	o.PriceStrategy = s
	return nil
}

func (c *ChoiceControl) UnmarshalJSON(data []byte) error {
	type alias ChoiceControl
	aux := struct {
		*alias
		PriceStrategy json.RawMessage `json:"priceStrategy"`
	}{alias: (*alias)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s, err := DecodeStrategy(aux.PriceStrategy)
	c.PriceStrategy = s
	return err
}

func (c *BooleanControl) UnmarshalJSON(data []byte) error {
	type alias BooleanControl
	aux := struct {
		*alias
		PriceStrategy json.RawMessage `json:"priceStrategy"`
	}{alias: (*alias)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s, err := DecodeStrategy(aux.PriceStrategy)
	c.PriceStrategy = s
	return err
}

func (c *RangeControl) UnmarshalJSON(data []byte) error {
	type alias RangeControl
	aux := struct {
		*alias
		DefaultValue  *float64        `json:"defaultValue"`
		PriceStrategy json.RawMessage `json:"priceStrategy"`
	}{alias: (*alias)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	c.missingDefault = aux.DefaultValue == nil
	if aux.DefaultValue != nil {
		c.DefaultValue = *aux.DefaultValue
	}
	s, err := DecodeStrategy(aux.PriceStrategy)
	c.PriceStrategy = s
	return err
}

// DecodeControl decodes one control, dispatching on its "type" tag
func DecodeControl(data json.RawMessage) (Control, error) {
	var head struct {
		ID   string      `json:"id"`
		Type ControlType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("control: %w", err)
	}

	var c Control
	switch head.Type {
	case ControlSelect, ControlRadio:
		c = &ChoiceControl{}
	case ControlBoolean:
		c = &BooleanControl{}
	case ControlRange:
		c = &RangeControl{}
	default:
		return nil, fmt.Errorf("control %q: unknown type %q", head.ID, head.Type)
	}
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("control %q: %w", head.ID, err)
	}
	return c, nil
}
