// Package output provides output formatting interfaces.
// This package produces human and machine-readable quote reports.
package output

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"quote-engine/core/display"
	"quote-engine/core/types"
)

// Format represents output format type
type Format string

const (
	// FormatCLI is a human-readable CLI table
	FormatCLI Format = "cli"

	// FormatJSON is machine-readable JSON
	FormatJSON Format = "json"
)

// Formatter produces output in a specific format
type Formatter interface {
	// Format returns the format type
	Format() Format

	// Render produces output for the given report
	Render(w io.Writer, report *Report) error
}

// Report is everything a quote run produced
type Report struct {
	// Result is the priced quote, nil when selections were rejected
	Result *types.QuoteResult `json:"result,omitempty"`

	// Issues are the validation issues that rejected the selections
	Issues []types.ValidationIssue `json:"issues,omitempty"`

	// Selections are the normalized selections with labels resolved
	Selections []display.ResolvedSelection `json:"selections,omitempty"`

	// Metadata contains execution context
	Metadata Metadata `json:"metadata"`
}

// Metadata identifies the inputs that produced a report
type Metadata struct {
	// RequestID is derived from InputHash
	RequestID string `json:"request_id"`

	// InputHash is a hash of the normalized request
	InputHash string `json:"input_hash"`

	// SchemaChecksum identifies the schema document
	SchemaChecksum string `json:"schema_checksum"`

	// Mode is strict or lenient derivation handling
	Mode string `json:"mode"`

	// DisplayMultiplier is the multiplier applied to deltas, if any
	DisplayMultiplier float64 `json:"display_multiplier,omitempty"`

	// FxRate is the conversion rate applied, if any
	FxRate string `json:"fx_rate,omitempty"`

	// Version is the tool version
	Version string `json:"version"`
}

// Rejected reports whether the report carries validation issues
func (r *Report) Rejected() bool {
	return len(r.Issues) > 0
}

// Options control what the formatters include
type Options struct {
	ShowBreakdown  bool
	ShowSelections bool
}

// Registry manages formatter registration
type Registry struct {
	mu         sync.RWMutex
	formatters map[Format]Formatter
}

// NewRegistry returns a registry holding the CLI and JSON formatters
func NewRegistry(opts Options) *Registry {
	r := &Registry{formatters: make(map[Format]Formatter)}
	_ = r.Register(&CLIFormatter{Options: opts})
	_ = r.Register(&JSONFormatter{Indent: true, Options: opts})
	return r
}

// Register adds a formatter to the registry
func (r *Registry) Register(f Formatter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.formatters[f.Format()]; exists {
		return fmt.Errorf("formatter already registered: %s", f.Format())
	}
	r.formatters[f.Format()] = f
	return nil
}

// Get returns the formatter for a format type
func (r *Registry) Get(format Format) (Formatter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.formatters[format]
	return f, ok
}

// Formats lists the registered format names, sorted
func (r *Registry) Formats() []Format {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Format, 0, len(r.formatters))
	for f := range r.formatters {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Money renders minor units as a major-unit amount with two decimals
func Money(cents int64, currency string) string {
	return currency + " " + decimal.New(cents, -2).StringFixed(2)
}

// Delta renders a signed amount, always with its sign
func Delta(cents int64, currency string) string {
	if cents > 0 {
		return "+" + Money(cents, currency)
	}
	if cents < 0 {
		return "-" + Money(-cents, currency)
	}
	return Money(0, currency)
}
