package output

import (
	"encoding/json"
	"io"
)

// JSONFormatter renders the report as JSON
type JSONFormatter struct {
	Indent  bool
	Options Options
}

// Format returns FormatJSON
func (f *JSONFormatter) Format() Format { return FormatJSON }

// Render writes the report. The breakdown and selections follow Options.
func (f *JSONFormatter) Render(w io.Writer, report *Report) error {
	out := *report
	if !f.Options.ShowSelections {
		out.Selections = nil
	}
	if out.Result != nil && !f.Options.ShowBreakdown {
		trimmed := *out.Result
		trimmed.Breakdown = nil
		out.Result = &trimmed
	}

	enc := json.NewEncoder(w)
	if f.Indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(out)
}
