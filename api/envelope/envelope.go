// Package envelope - Input normalization and envelope creation
// The engine NEVER sees raw input - only normalized envelopes.
// This ensures determinism and auditability.
package envelope

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"quote-engine/core/determinism"
	"quote-engine/core/schema"
	"quote-engine/core/types"
	"quote-engine/internal/errors"
)

// Modes of derivation failure handling
const (
	ModeStrict  = "strict"
	ModeLenient = "lenient"
)

// requestNamespace scopes request ids derived from input hashes
var requestNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("quote-engine/request"))

// QuoteEnvelope is the normalized, hashed representation of a quote request.
// Identical inputs always produce an identical envelope.
type QuoteEnvelope struct {
	// Identity
	RequestID string `json:"request_id"`
	InputHash string `json:"input_hash"`

	// Inputs
	BasePriceCents int64            `json:"base_price_cents"`
	SchemaChecksum string           `json:"schema_checksum"`
	Selections     types.Selections `json:"selections"`

	// Execution context
	Mode string `json:"mode"`

	// Options
	Options EnvelopeOptions `json:"options"`
}

// EnvelopeOptions are normalized presentation options
type EnvelopeOptions struct {
	ApplyMultiplier bool   `json:"apply_multiplier"`
	FxRate          string `json:"fx_rate,omitempty"`
	QuoteCurrency   string `json:"quote_currency,omitempty"`
}

// RawInput represents unnormalized input
type RawInput struct {
	BasePriceCents int64
	Schema         *schema.Schema
	Selections     types.Selections
	Mode           string
	Options        RawOptions
}

// RawOptions are unnormalized options
type RawOptions struct {
	ApplyMultiplier bool
	FxRate          string
	QuoteCurrency   string
}

// Normalizer normalizes raw input into envelopes
type Normalizer struct{}

// NewNormalizer creates a normalizer
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize transforms raw input to a deterministic envelope
func (n *Normalizer) Normalize(raw RawInput) (*QuoteEnvelope, error) {
	if raw.Schema == nil {
		return nil, errors.Input("schema is required")
	}
	checksum, err := schema.Checksum(raw.Schema)
	if err != nil {
		return nil, errors.Wrap(errors.TypeInternal, "checksum schema", err)
	}
	opts, err := normalizeOptions(raw.Options)
	if err != nil {
		return nil, err
	}

	env := &QuoteEnvelope{
		BasePriceCents: raw.BasePriceCents,
		SchemaChecksum: checksum,
		Selections:     normalizeSelections(raw.Selections),
		Mode:           normalizeMode(raw.Mode),
		Options:        opts,
	}

	hash, err := computeInputHash(env)
	if err != nil {
		return nil, err
	}
	env.InputHash = hash
	env.RequestID = uuid.NewSHA1(requestNamespace, []byte(hash)).String()
	return env, nil
}

func normalizeMode(mode string) string {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case ModeStrict:
		return ModeStrict
	default:
		return ModeLenient
	}
}

// normalizeSelections drops nil values, which price the same as absent keys
func normalizeSelections(sel types.Selections) types.Selections {
	out := make(types.Selections, len(sel))
	for k, v := range sel {
		if v == nil {
			continue
		}
		out[k] = v
	}
	return out
}

func normalizeOptions(raw RawOptions) (EnvelopeOptions, error) {
	opts := EnvelopeOptions{
		ApplyMultiplier: raw.ApplyMultiplier,
		QuoteCurrency:   strings.ToUpper(strings.TrimSpace(raw.QuoteCurrency)),
	}
	if s := strings.TrimSpace(raw.FxRate); s != "" {
		rate, err := decimal.NewFromString(s)
		if err != nil || !rate.IsPositive() {
			return opts, errors.Newf(errors.TypeInput, "invalid fx rate %q", raw.FxRate)
		}
		// canonical form so "41.50" and "41.5" hash alike
		opts.FxRate = rate.String()
		if opts.QuoteCurrency == "" {
			return opts, errors.New(errors.TypeInput, "quote currency is required with an fx rate")
		}
	}
	return opts, nil
}

func computeInputHash(env *QuoteEnvelope) (string, error) {
	// Hash only the fields that affect the quote
	hashData := struct {
		Base       int64
		Schema     string
		Selections types.Selections
		Mode       string
		Options    EnvelopeOptions
	}{
		Base:       env.BasePriceCents,
		Schema:     env.SchemaChecksum,
		Selections: env.Selections,
		Mode:       env.Mode,
		Options:    env.Options,
	}

	h, err := determinism.HashJSON(hashData)
	if err != nil {
		return "", errors.Wrap(errors.TypeInput, "hash selections", err)
	}
	return h.Hex(), nil
}

// Validate validates the envelope
func (e *QuoteEnvelope) Validate() error {
	if e.SchemaChecksum == "" {
		return fmt.Errorf("schema checksum is required")
	}
	if e.InputHash == "" {
		return fmt.Errorf("input hash is required")
	}
	if e.Mode != ModeStrict && e.Mode != ModeLenient {
		return fmt.Errorf("invalid mode: %s", e.Mode)
	}
	return nil
}

// ShortHash returns first 12 characters of hash
func (e *QuoteEnvelope) ShortHash() string {
	if len(e.InputHash) >= 12 {
		return e.InputHash[:12]
	}
	return e.InputHash
}

// IsStrict returns true if strict mode
func (e *QuoteEnvelope) IsStrict() bool {
	return e.Mode == ModeStrict
}
