package output

import (
	"fmt"
	"io"
	"unicode/utf8"
)

const (
	rule    = "├─────────────────────────────────────────────────────────────────────────┤"
	top     = "┌─────────────────────────────────────────────────────────────────────────┐"
	bottom  = "└─────────────────────────────────────────────────────────────────────────┘"
	labelW  = 50
	amountW = 20
)

// CLIFormatter renders a boxed table for terminals
type CLIFormatter struct {
	Options Options
}

// Format returns FormatCLI
func (f *CLIFormatter) Format() Format { return FormatCLI }

// Render writes the report
func (f *CLIFormatter) Render(w io.Writer, report *Report) error {
	p := &printer{w: w}

	if report.Rejected() {
		p.line(top)
		p.row("SELECTIONS REJECTED", fmt.Sprintf("%d issue(s)", len(report.Issues)))
		p.line(rule)
		for _, is := range report.Issues {
			p.row(is.GroupID+"/"+is.ControlID, "")
			p.row("  └─ "+is.Message, "")
		}
		p.line(bottom)
		return p.err
	}

	r := report.Result
	p.line(top)
	p.line("│                              QUOTE SUMMARY                              │")
	p.line(rule)
	if f.Options.ShowBreakdown {
		for _, e := range r.Breakdown {
			p.row(e.GroupLabel+" / "+e.ControlLabel, Delta(e.DeltaCents, r.Currency))
			if e.DisplayValue != "" {
				p.row("  └─ "+e.DisplayValue, "")
			}
		}
		p.line(rule)
	}
	p.row("BASE PRICE", Money(r.BasePriceCents, r.Currency))
	p.row("ADJUSTMENTS", Delta(r.AdjustmentsCents, r.Currency))
	p.row("TOTAL", Money(r.TotalPriceCents, r.Currency))
	p.line(bottom)

	if f.Options.ShowSelections && len(report.Selections) > 0 {
		p.printf("\nSelections:\n")
		for _, s := range report.Selections {
			p.printf("  %-40s %s\n", truncate(s.ControlLabel, 40), s.DisplayValue)
		}
	}

	m := report.Metadata
	p.printf("\nRounding: %s to %d\n", r.Rounding.Mode, r.Rounding.MinorUnit)
	if m.DisplayMultiplier != 0 && m.DisplayMultiplier != 1 {
		p.printf("Display multiplier: %g\n", m.DisplayMultiplier)
	}
	if m.FxRate != "" {
		p.printf("FX rate: %s\n", m.FxRate)
	}
	if m.SchemaChecksum != "" {
		p.printf("Schema: %s\n", truncate(m.SchemaChecksum, 15))
	}
	if m.RequestID != "" {
		p.printf("Request: %s (%s)\n", m.RequestID, m.Mode)
	}
	return p.err
}

// printer keeps the first write error
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) line(s string) {
	p.printf("%s\n", s)
}

func (p *printer) row(label, amount string) {
	p.printf("│ %s %s │\n", pad(truncate(label, labelW), labelW), padLeft(amount, amountW))
}

func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen-3]) + "..."
}

func pad(s string, width int) string {
	for n := utf8.RuneCountInString(s); n < width; n++ {
		s += " "
	}
	return s
}

func padLeft(s string, width int) string {
	for n := utf8.RuneCountInString(s); n < width; n++ {
		s = " " + s
	}
	return s
}
