// Package types defines core domain types shared across all layers.
// This package contains NO business logic - only type definitions and
// value coercion helpers.
package types

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Selections maps control ids to raw caller-supplied values.
// Values are strings for choice controls, bools for boolean controls and
// numbers for range controls. Anything else is normalized or rejected by
// the control processor.
type Selections map[string]any

// Get returns the raw value for a control and whether it was supplied.
// A nil value counts as not supplied.
func (s Selections) Get(controlID string) (any, bool) {
	v, ok := s[controlID]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Clone returns a shallow copy
func (s Selections) Clone() Selections {
	out := make(Selections, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// NormalizedSelections is the canonical value chosen for every priced control
type NormalizedSelections map[string]any

// AsNumber converts a strictly numeric value to float64.
// Strings are not numbers here; see CoerceNumber. NaN and infinities are
// rejected.
func AsNumber(v any) (float64, bool) {
	f, ok := asNumber(v)
	if !ok || !finite(f) {
		return 0, false
	}
	return f, true
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// CoerceNumber is AsNumber that also accepts numeric strings
// such as "2200" or " 2.5 ".
func CoerceNumber(v any) (float64, bool) {
	if f, ok := AsNumber(v); ok {
		return f, true
	}
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || !finite(f) {
		return 0, false
	}
	return f, true
}
