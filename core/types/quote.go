// Package types - Quote result types
package types

import (
	"fmt"
	"strings"

	"quote-engine/core/schema"
)

// BreakdownEntry is one priced line of a quote
type BreakdownEntry struct {
	// ControlID is the control the line prices
	ControlID string `json:"controlId"`

	// ControlLabel is the control's display label
	ControlLabel string `json:"controlLabel"`

	// GroupID is the group the control belongs to
	GroupID string `json:"groupId"`

	// GroupLabel is the group's display label
	GroupLabel string `json:"groupLabel"`

	// Strategy is the strategy that priced the line, if any
	Strategy schema.PriceStrategy `json:"strategy,omitempty"`

	// Selection is the normalized value that was priced
	Selection any `json:"selection"`

	// DisplayValue is a human readable rendering of Selection
	DisplayValue string `json:"displayValue,omitempty"`

	// DeltaCents is the line's contribution in minor units
	DeltaCents int64 `json:"deltaCents"`
}

// ValidationIssue is one rejected selection
type ValidationIssue struct {
	ControlID string `json:"controlId"`
	GroupID   string `json:"groupId"`
	Message   string `json:"message"`
}

// String returns a readable form of the issue
func (i ValidationIssue) String() string {
	return fmt.Sprintf("%s/%s: %s", i.GroupID, i.ControlID, i.Message)
}

// ValidationError carries every issue found while pricing a quote
type ValidationError struct {
	Issues []ValidationIssue `json:"issues"`
}

// Error implements error
func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "invalid selections"
	}
	parts := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		parts[i] = is.String()
	}
	return "invalid selections: " + strings.Join(parts, "; ")
}

// QuoteResult is a priced quote.
// TotalPriceCents always equals BasePriceCents + AdjustmentsCents.
type QuoteResult struct {
	Currency             string               `json:"currency"`
	BasePriceCents       int64                `json:"basePriceCents"`
	AdjustmentsCents     int64                `json:"adjustmentsCents"`
	TotalPriceCents      int64                `json:"totalPriceCents"`
	Rounding             schema.Rounding      `json:"rounding"`
	Breakdown            []BreakdownEntry     `json:"breakdown"`
	NormalizedSelections NormalizedSelections `json:"normalizedSelections"`
}

// Entry returns the first breakdown line for a control
func (q *QuoteResult) Entry(controlID string) (BreakdownEntry, bool) {
	for _, e := range q.Breakdown {
		if e.ControlID == controlID {
			return e, true
		}
	}
	return BreakdownEntry{}, false
}
