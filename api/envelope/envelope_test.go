package envelope

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"quote-engine/core/engine"
	"quote-engine/core/schema"
	"quote-engine/core/types"
	"quote-engine/internal/errors"
)

const requestJSON = `{
  "baseAmountMinorUnits": 34900,
  "mode": "STRICT",
  "schema": {
    "currency": "USD",
    "rounding": {"mode": "HALF_UP", "minorUnit": 1},
    "groups": [{"id": "extras", "label": "Extras", "controls": [
      {"id": "softClose", "type": "boolean", "label": "Soft close", "priceStrategy": {"type": "FIXED", "amountCents": 2200}},
      {"id": "heightMm", "type": "range", "label": "Height", "min": 1900, "max": 2400, "step": 10, "defaultValue": 2000}
    ]}]
  },
  "selections": {"softClose": true, "note": null}
}`

func decodeRequest(t *testing.T) *QuoteRequest {
	t.Helper()
	var req QuoteRequest
	require.NoError(t, json.Unmarshal([]byte(requestJSON), &req))
	return &req
}

func TestNormalizeIsDeterministic(t *testing.T) {
	n := NewNormalizer()
	req := decodeRequest(t)

	a, err := n.Normalize(FromQuoteRequest(req, RawOptions{}))
	require.NoError(t, err)
	b, err := n.Normalize(FromQuoteRequest(decodeRequest(t), RawOptions{}))
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, ModeStrict, a.Mode)
	assert.True(t, a.IsStrict())
	assert.Len(t, a.InputHash, 64)
	assert.Len(t, a.ShortHash(), 12)
	assert.NoError(t, a.Validate())

	id, err := uuid.Parse(a.RequestID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(5), id.Version())

	_, hasNote := a.Selections["note"]
	assert.False(t, hasNote, "nil selections are dropped")
}

func TestNormalizeHashCoversInputs(t *testing.T) {
	n := NewNormalizer()
	base, err := n.Normalize(FromQuoteRequest(decodeRequest(t), RawOptions{}))
	require.NoError(t, err)

	req := decodeRequest(t)
	req.Selections["softClose"] = false
	changed, err := n.Normalize(FromQuoteRequest(req, RawOptions{}))
	require.NoError(t, err)
	assert.NotEqual(t, base.InputHash, changed.InputHash)
	assert.NotEqual(t, base.RequestID, changed.RequestID)

	req = decodeRequest(t)
	req.Mode = ""
	lenient, err := n.Normalize(FromQuoteRequest(req, RawOptions{}))
	require.NoError(t, err)
	assert.Equal(t, ModeLenient, lenient.Mode)
	assert.NotEqual(t, base.InputHash, lenient.InputHash)

	a, err := n.Normalize(FromQuoteRequest(decodeRequest(t), RawOptions{FxRate: "41.50", QuoteCurrency: "uah"}))
	require.NoError(t, err)
	b, err := n.Normalize(FromQuoteRequest(decodeRequest(t), RawOptions{FxRate: "41.5", QuoteCurrency: "UAH"}))
	require.NoError(t, err)
	assert.Equal(t, a.InputHash, b.InputHash)
	assert.Equal(t, "41.5", a.Options.FxRate)
	assert.Equal(t, "UAH", a.Options.QuoteCurrency)
}

func TestNormalizeRejectsBadInput(t *testing.T) {
	n := NewNormalizer()

	_, err := n.Normalize(RawInput{})
	assert.True(t, errors.IsType(err, errors.TypeInput))

	_, err = n.Normalize(FromQuoteRequest(decodeRequest(t), RawOptions{FxRate: "-1", QuoteCurrency: "UAH"}))
	assert.True(t, errors.IsType(err, errors.TypeInput))

	_, err = n.Normalize(FromQuoteRequest(decodeRequest(t), RawOptions{FxRate: "41.5"}))
	assert.True(t, errors.IsType(err, errors.TypeInput))
}

func TestExecute(t *testing.T) {
	req := decodeRequest(t)
	env, err := NewNormalizer().Normalize(FromQuoteRequest(req, RawOptions{}))
	require.NoError(t, err)

	eng := env.Engine(engine.Options{})
	assert.True(t, eng.Strict())

	resp, err := Execute(eng, env, req.Schema)
	require.NoError(t, err)
	require.False(t, resp.Rejected())
	assert.Equal(t, int64(37100), resp.TotalPriceCents)

	data, err := json.Marshal(resp)
	require.NoError(t, err)
	var wire map[string]any
	require.NoError(t, json.Unmarshal(data, &wire))
	assert.Equal(t, 37100.0, wire["totalPriceCents"])
	assert.NotContains(t, wire, "issues")
}

func TestExecuteRejected(t *testing.T) {
	req := decodeRequest(t)
	req.Selections["heightMm"] = 2405
	env, err := NewNormalizer().Normalize(FromQuoteRequest(req, RawOptions{}))
	require.NoError(t, err)

	resp, err := Execute(env.Engine(engine.Options{}), env, req.Schema)
	require.NoError(t, err)
	require.True(t, resp.Rejected())
	assert.Equal(t, []types.ValidationIssue{
		{ControlID: "heightMm", GroupID: "extras", Message: "Value must be between 1900 and 2400"},
	}, resp.Issues)

	data, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"issues":[{"controlId":"heightMm","groupId":"extras","message":"Value must be between 1900 and 2400"}]}`, string(data))
}

func TestExecuteDetectsSchemaDrift(t *testing.T) {
	req := decodeRequest(t)
	env, err := NewNormalizer().Normalize(FromQuoteRequest(req, RawOptions{}))
	require.NoError(t, err)

	req.Schema.Currency = "EUR"
	_, err = Execute(engine.New(engine.Options{}), env, req.Schema)
	assert.True(t, errors.IsType(err, errors.TypeSchema))
}

func TestAuditEntry(t *testing.T) {
	req := decodeRequest(t)
	env, err := NewNormalizer().Normalize(FromQuoteRequest(req, RawOptions{}))
	require.NoError(t, err)
	resp, err := Execute(env.Engine(engine.Options{}), env, req.Schema)
	require.NoError(t, err)

	entry := CreateAuditEntry(env)
	entry.Record(resp)
	assert.True(t, entry.Success)
	assert.Equal(t, int64(37100), entry.TotalPriceCents)
	assert.Contains(t, entry.Envelope, env.InputHash)

	core, logs := observer.New(zapcore.InfoLevel)
	require.NoError(t, (&ZapAuditLogger{Logger: zap.New(core)}).Log(entry))
	records := logs.FilterMessage("quote audit").All()
	require.Len(t, records, 1)
	assert.Equal(t, env.RequestID, records[0].ContextMap()["request_id"])

	entry.MarkFailed(errors.New(errors.TypeInternal, "boom"))
	assert.False(t, entry.Success)
	assert.Contains(t, entry.Error, "boom")
}

func TestSchemaRoundTripsThroughRequest(t *testing.T) {
	req := decodeRequest(t)
	c, _, ok := req.Schema.Find("softClose")
	require.True(t, ok)
	assert.Equal(t, &schema.Fixed{AmountCents: 2200}, c.Strategy())
}
