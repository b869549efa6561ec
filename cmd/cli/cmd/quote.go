package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quote-engine/api/envelope"
	"quote-engine/core/display"
	"quote-engine/core/engine"
	"quote-engine/core/output"
	"quote-engine/core/schema"
	"quote-engine/core/types"
	"quote-engine/internal/config"
	"quote-engine/internal/errors"
	"quote-engine/internal/logging"
)

var (
	quoteSchema         string
	quoteBase           int64
	quoteSelections     string
	quoteSet            []string
	quoteFormat         string
	quoteStrict         bool
	quoteFxRate         string
	quoteCurrency       string
	quoteNoMultiplier   bool
	quoteShowSelections bool
)

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Price a set of selections against a schema",
	Long: `Price a set of selections against a product schema.

Selections come from a JSON or YAML file (--selections), from repeated
--set id=value flags, or both; --set wins on conflicts. Values given with
--set are passed as strings and coerced the same way the engine coerces
form input.

Exit codes:
  0  quote priced
  1  bad input, schema, or configuration
  2  selections rejected (issues are printed)`,
	RunE: runQuote,
}

func init() {
	quoteCmd.Flags().StringVarP(&quoteSchema, "schema", "s", "", "path to the product schema (.json, .yaml)")
	quoteCmd.Flags().Int64VarP(&quoteBase, "base", "b", 0, "product base price in minor units")
	quoteCmd.Flags().StringVar(&quoteSelections, "selections", "", "path to a selections file (.json, .yaml)")
	quoteCmd.Flags().StringArrayVar(&quoteSet, "set", nil, "selection as id=value (repeatable)")
	quoteCmd.Flags().StringVarP(&quoteFormat, "format", "f", "", "output format (cli, json)")
	quoteCmd.Flags().BoolVar(&quoteStrict, "strict", false, "reject the quote when a derivation rule fails")
	quoteCmd.Flags().StringVar(&quoteFxRate, "fx-rate", "", "convert amounts by this rate")
	quoteCmd.Flags().StringVar(&quoteCurrency, "quote-currency", "", "currency label for converted amounts")
	quoteCmd.Flags().BoolVar(&quoteNoMultiplier, "no-multiplier", false, "ignore the schema display multiplier")
	quoteCmd.Flags().BoolVar(&quoteShowSelections, "show-selections", false, "print the resolved selections")

	_ = quoteCmd.MarkFlagRequired("schema")
	_ = quoteCmd.MarkFlagRequired("base")
}

func runQuote(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	log := logging.Named("cli")
	start := time.Now()

	s, err := loadSchema(quoteSchema)
	if err != nil {
		return err
	}

	sel, err := loadSelections(quoteSelections)
	if err != nil {
		return err
	}
	if err := applyAssignments(sel, quoteSet); err != nil {
		return err
	}

	mode := envelope.ModeLenient
	if cfg.Engine.StrictDerivations {
		mode = envelope.ModeStrict
	}
	if cmd.Flags().Changed("strict") {
		mode = envelope.ModeLenient
		if quoteStrict {
			mode = envelope.ModeStrict
		}
	}

	opts := envelope.RawOptions{
		ApplyMultiplier: cfg.Display.ApplyMultiplier && !quoteNoMultiplier,
		FxRate:          cfg.Display.FxRate,
		QuoteCurrency:   cfg.Display.QuoteCurrency,
	}
	if quoteFxRate != "" {
		opts.FxRate = quoteFxRate
	}
	if quoteCurrency != "" {
		opts.QuoteCurrency = quoteCurrency
	}

	env, err := envelope.NewNormalizer().Normalize(envelope.RawInput{
		BasePriceCents: quoteBase,
		Schema:         s,
		Selections:     sel,
		Mode:           mode,
		Options:        opts,
	})
	if err != nil {
		return err
	}
	log.Debug("envelope normalized",
		zap.String("request_id", env.RequestID),
		zap.String("input_hash", env.ShortHash()),
		zap.String("mode", env.Mode))

	audit := envelope.CreateAuditEntry(env)
	auditLog := &envelope.ZapAuditLogger{Logger: logging.Named("audit")}

	eng := env.Engine(engine.Options{Logger: logging.Named("engine")})
	resp, err := envelope.Execute(eng, env, s)
	if err != nil {
		audit.MarkFailed(err)
		audit.SetDuration(time.Since(start))
		_ = auditLog.Log(audit)
		return err
	}
	audit.Record(resp)
	audit.SetDuration(time.Since(start))
	_ = auditLog.Log(audit)

	report := &output.Report{
		Issues: resp.Issues,
		Metadata: output.Metadata{
			RequestID:      env.RequestID,
			InputHash:      env.InputHash,
			SchemaChecksum: env.SchemaChecksum,
			Mode:           env.Mode,
			FxRate:         env.Options.FxRate,
			Version:        Version,
		},
	}
	if !resp.Rejected() {
		result, err := present(resp.QuoteResult, s, env.Options)
		if err != nil {
			return err
		}
		report.Result = result
		if env.Options.ApplyMultiplier {
			report.Metadata.DisplayMultiplier = s.Multiplier()
		}
		report.Selections = display.Resolve(s, resp.NormalizedSelections)
	}

	format := quoteFormat
	if format == "" {
		format = cfg.Output.DefaultFormat
	}
	if err := render(cmd.OutOrStdout(), report, output.Format(format), output.Options{
		ShowBreakdown:  cfg.Output.ShowBreakdown,
		ShowSelections: cfg.Output.ShowSelections || quoteShowSelections,
	}); err != nil {
		return err
	}

	if report.Rejected() {
		return ErrRejected
	}
	return nil
}

// present applies the display multiplier and currency conversion
func present(r *types.QuoteResult, s *schema.Schema, opts envelope.EnvelopeOptions) (*types.QuoteResult, error) {
	if opts.ApplyMultiplier {
		r = display.Scale(r, s.Multiplier())
	}
	if opts.FxRate == "" {
		return r, nil
	}
	rate, err := decimal.NewFromString(opts.FxRate)
	if err != nil {
		return nil, errors.Wrapf(errors.TypeInput, err, "invalid fx rate %q", opts.FxRate)
	}
	return display.Convert(r, rate, opts.QuoteCurrency)
}

func render(w io.Writer, report *output.Report, format output.Format, opts output.Options) error {
	registry := output.NewRegistry(opts)
	f, ok := registry.Get(format)
	if !ok {
		return errors.Newf(errors.TypeInput, "unknown format %q (available: %v)", format, registry.Formats())
	}
	return f.Render(w, report)
}

func loadSchema(path string) (*schema.Schema, error) {
	s, err := schema.Load(path)
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(s); err != nil {
		for _, p := range schema.Problems(err) {
			logging.Named("cli").Warn("schema problem", zap.String("problem", p))
		}
		return nil, err
	}
	return s, nil
}

// loadSelections reads a selections file. An empty path yields empty selections.
func loadSelections(path string) (types.Selections, error) {
	sel := make(types.Selections)
	if path == "" {
		return sel, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.TypeInput, err, "read selections %s", path)
	}
	if schema.FormatForPath(path) == schema.FormatYAML {
		if data, err = schema.YAMLToJSON(data); err != nil {
			return nil, errors.Wrapf(errors.TypeInput, err, "parse selections %s", path)
		}
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&sel); err != nil {
		return nil, errors.Wrapf(errors.TypeInput, err, "parse selections %s", path)
	}
	return sel, nil
}

// applyAssignments merges id=value pairs into sel
func applyAssignments(sel types.Selections, assignments []string) error {
	for _, a := range assignments {
		id, value, ok := strings.Cut(a, "=")
		id = strings.TrimSpace(id)
		if !ok || id == "" {
			return errors.Input(fmt.Sprintf("invalid --set %q, expected id=value", a))
		}
		sel[id] = value
	}
	return nil
}
