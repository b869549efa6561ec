// Package envelope - Request conversion and quote execution
package envelope

import (
	stderrors "errors"

	"quote-engine/core/engine"
	"quote-engine/core/schema"
	"quote-engine/core/types"
	"quote-engine/internal/errors"
)

// QuoteRequest is the wire form of a pricing request
type QuoteRequest struct {
	BaseAmountMinorUnits int64            `json:"baseAmountMinorUnits"`
	Schema               *schema.Schema   `json:"schema"`
	Selections           types.Selections `json:"selections"`
	Mode                 string           `json:"mode,omitempty"`
}

// Response is the wire form of a pricing outcome: either the quote
// result fields or a list of issues, never both.
type Response struct {
	*types.QuoteResult
	Issues []types.ValidationIssue `json:"issues,omitempty"`
}

// Rejected reports whether the selections were rejected
func (r *Response) Rejected() bool {
	return r.QuoteResult == nil
}

// FromQuoteRequest converts a QuoteRequest to RawInput
func FromQuoteRequest(req *QuoteRequest, opts RawOptions) RawInput {
	return RawInput{
		BasePriceCents: req.BaseAmountMinorUnits,
		Schema:         req.Schema,
		Selections:     req.Selections,
		Mode:           req.Mode,
		Options:        opts,
	}
}

// Engine builds the engine an envelope asks for
func (e *QuoteEnvelope) Engine(opts engine.Options) *engine.Engine {
	opts.StrictDerivations = e.IsStrict()
	return engine.New(opts)
}

// Execute prices an envelope against the schema it was normalized from.
// Rejected selections produce a Response with issues and a nil error.
func Execute(eng *engine.Engine, env *QuoteEnvelope, s *schema.Schema) (*Response, error) {
	if err := env.Validate(); err != nil {
		return nil, errors.Wrap(errors.TypeInput, "invalid envelope", err)
	}
	checksum, err := schema.Checksum(s)
	if err != nil {
		return nil, errors.Wrap(errors.TypeInternal, "checksum schema", err)
	}
	if checksum != env.SchemaChecksum {
		return nil, errors.New(errors.TypeSchema, "schema does not match envelope checksum").
			WithContext("expected", env.SchemaChecksum).
			WithContext("actual", checksum)
	}

	result, err := eng.PriceQuote(env.BasePriceCents, s, env.Selections)
	if err != nil {
		var ve *types.ValidationError
		if stderrors.As(err, &ve) {
			return &Response{Issues: ve.Issues}, nil
		}
		return nil, err
	}
	return &Response{QuoteResult: result}, nil
}
