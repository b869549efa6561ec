package controls

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quote-engine/core/rounding"
	"quote-engine/core/schema"
	"quote-engine/core/types"
)

func testSchema() *schema.Schema {
	return &schema.Schema{
		Currency: "USD",
		Rounding: schema.Rounding{Mode: rounding.HalfUp, MinorUnit: 1},
		Groups: []schema.Group{
			{ID: "sizes", Label: "Sizes", Controls: []schema.Control{
				&schema.RangeControl{
					ControlMeta:   schema.ControlMeta{ID: "heightMm", Type: schema.ControlRange, Label: "Height"},
					Min:           1900,
					Max:           2400,
					Step:          10,
					Unit:          "mm",
					DefaultValue:  2000,
					PriceStrategy: &schema.PerUnit{Unit: "mm", RateCents: 6, UnitsFrom: schema.UnitsFromDeltaFromDefault},
				},
				&schema.ChoiceControl{
					ControlMeta:   schema.ControlMeta{ID: "depthMm", Type: schema.ControlSelect, Label: "Depth"},
					DefaultValue:  "600",
					Options:       []schema.Option{{ID: "600", Label: "600 mm"}, {ID: "800", Label: "800 mm", PriceStrategy: &schema.Fixed{AmountCents: 100}}},
					PriceStrategy: &schema.PerUnit{Unit: "mm", RateCents: 2, UnitsFrom: schema.UnitsFromDeltaFromDefault},
				},
			}},
			{ID: "construction", Label: "Construction", Controls: []schema.Control{
				&schema.ChoiceControl{
					ControlMeta:  schema.ControlMeta{ID: "frame", Type: schema.ControlSelect, Label: "Frame", Required: true},
					DefaultValue: "aluminium",
					Options: []schema.Option{
						{ID: "aluminium", Label: "Aluminium", PriceStrategy: &schema.Fixed{AmountCents: 3000}},
						{ID: "wood", Label: "Wood"},
					},
				},
				&schema.ChoiceControl{
					ControlMeta: schema.ControlMeta{ID: "leafFill", Type: schema.ControlRadio, Label: "Leaf fill", Required: true},
					Options: []schema.Option{
						{ID: "solid", Label: "Solid", PriceStrategy: &schema.Fixed{AmountCents: 4200}},
						{ID: "lightened", Label: "Lightened"},
					},
				},
				&schema.ChoiceControl{
					ControlMeta: schema.ControlMeta{ID: "hinges", Type: schema.ControlRadio, Label: "Hinges"},
					Options:     []schema.Option{{ID: "3", Label: "3"}, {ID: "4", Label: "4"}, {ID: "5", Label: "5"}},
				},
				&schema.ChoiceControl{
					ControlMeta: schema.ControlMeta{ID: "opening", Type: schema.ControlSelect, Label: "Opening"},
					Options: []schema.Option{
						{ID: "left", Label: "Left", PriceStrategy: &schema.Fixed{AmountCents: 500}},
						{ID: "leftInside", Label: "Left inside", PriceStrategy: &schema.Fixed{AmountCents: 500}},
					},
				},
			}},
			{ID: "extras", Label: "Extras", Controls: []schema.Control{
				&schema.BooleanControl{
					ControlMeta:   schema.ControlMeta{ID: "softClose", Type: schema.ControlBoolean, Label: "Soft close"},
					PriceStrategy: &schema.Fixed{AmountCents: 2200},
				},
			}},
		},
	}
}

func contextFor(t *testing.T, s *schema.Schema, id string, sel types.NormalizedSelections) Context {
	t.Helper()
	c, g, ok := s.Find(id)
	require.True(t, ok, "control %s", id)
	if sel == nil {
		sel = types.NormalizedSelections{}
	}
	return Context{
		Schema:       s,
		Group:        g,
		Control:      c,
		ProductBase:  34900,
		RunningTotal: 34900,
		Selections:   sel,
		Constraints:  s.EffectiveConstraints(),
	}
}

func TestChoiceRequiredAndOptional(t *testing.T) {
	s := testSchema()

	_, issues := Process(contextFor(t, s, "leafFill", nil), nil)
	require.Len(t, issues, 1)
	assert.Equal(t, types.ValidationIssue{ControlID: "leafFill", GroupID: "construction", Message: MsgSelectionRequired}, issues[0])

	out, issues := Process(contextFor(t, s, "opening", nil), nil)
	assert.Empty(t, issues)
	assert.True(t, out.Skip)
	assert.Nil(t, out.Entry)
	assert.Nil(t, out.Normalized)

	out, issues = Process(contextFor(t, s, "opening", nil), "")
	assert.Empty(t, issues)
	assert.True(t, out.Skip, "empty optional selection is skipped")

	// an explicit empty string does not fall back to the default
	_, issues = Process(contextFor(t, s, "frame", nil), "")
	require.Len(t, issues, 1)
	assert.Equal(t, MsgSelectionRequired, issues[0].Message)

	out, issues = Process(contextFor(t, s, "depthMm", nil), "")
	assert.Empty(t, issues)
	assert.True(t, out.Skip)
}

func TestChoiceDefaultsAndPricing(t *testing.T) {
	s := testSchema()

	out, issues := Process(contextFor(t, s, "frame", nil), nil)
	require.Empty(t, issues)
	assert.Equal(t, "aluminium", out.Normalized)
	assert.Equal(t, int64(3000), out.Delta)
	require.NotNil(t, out.Entry)
	assert.Equal(t, "Aluminium", out.Entry.DisplayValue)
	assert.Equal(t, &schema.Fixed{AmountCents: 3000}, out.Entry.Strategy)

	// non-string raw values fall back to the default
	out, issues = Process(contextFor(t, s, "frame", nil), 42)
	require.Empty(t, issues)
	assert.Equal(t, "aluminium", out.Normalized)

	out, issues = Process(contextFor(t, s, "leafFill", nil), "solid")
	require.Empty(t, issues)
	assert.Equal(t, int64(4200), out.Delta)
	assert.Equal(t, "construction", out.Entry.GroupID)
	assert.Equal(t, "Construction", out.Entry.GroupLabel)
	assert.Equal(t, "Leaf fill", out.Entry.ControlLabel)

	_, issues = Process(contextFor(t, s, "leafFill", nil), "hollow")
	require.Len(t, issues, 1)
	assert.Equal(t, MsgInvalidOption, issues[0].Message)
}

func TestChoiceControlLevelStrategy(t *testing.T) {
	s := testSchema()

	out, issues := Process(contextFor(t, s, "depthMm", nil), "800")
	require.Empty(t, issues)
	// option FIXED 100 plus control PER_UNIT |800-600| * 2
	assert.Equal(t, int64(500), out.Delta)
	assert.Equal(t, "800", out.Normalized)
	assert.IsType(t, &schema.PerUnit{}, out.Entry.Strategy)

	out, issues = Process(contextFor(t, s, "depthMm", nil), nil)
	require.Empty(t, issues)
	assert.Equal(t, int64(0), out.Delta)
}

func TestChoiceConstraints(t *testing.T) {
	s := testSchema()

	tests := []struct {
		name    string
		control string
		raw     string
		height  float64
		message string
	}{
		{"timber at limit", "frame", "wood", 2300, ""},
		{"timber above limit", "frame", "wood", 2310, "Timber not available above 2300 mm"},
		{"aluminium above limit", "frame", "aluminium", 2400, ""},
		{"three hinges at 2100", "hinges", "3", 2100, ""},
		{"three hinges above 2100", "hinges", "3", 2200, "3 hinges not available above 2100 mm"},
		{"three hinges above 2300", "hinges", "3", 2400, "3 and 4 hinges not available above 2300 mm"},
		{"four hinges at 2300", "hinges", "4", 2300, ""},
		{"four hinges above 2300", "hinges", "4", 2310, "3 and 4 hinges not available above 2300 mm"},
		{"five hinges", "hinges", "5", 2400, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := contextFor(t, s, tt.control, types.NormalizedSelections{"heightMm": tt.height})
			_, issues := Process(ctx, tt.raw)
			if tt.message == "" {
				assert.Empty(t, issues)
				return
			}
			require.Len(t, issues, 1)
			assert.Equal(t, tt.message, issues[0].Message)
		})
	}
}

func TestChoiceConstraintRunsBeforeOptionLookup(t *testing.T) {
	s := testSchema()
	s.Constraints = []schema.Constraint{{
		ControlID: "leafFill", OptionIDs: []string{"ghost"}, SourceControlID: "heightMm", Above: 0, Message: "no ghosts",
	}}
	_, issues := Process(contextFor(t, s, "leafFill", types.NormalizedSelections{"heightMm": 2000.0}), "ghost")
	require.Len(t, issues, 1)
	assert.Equal(t, "no ghosts", issues[0].Message)
}

func TestChoiceDeferredAndOpening(t *testing.T) {
	s := testSchema()

	ctx := contextFor(t, s, "leafFill", nil)
	ctx.Deferred = true
	out, issues := Process(ctx, "solid")
	require.Empty(t, issues)
	assert.Equal(t, "solid", out.Normalized)
	assert.Zero(t, out.Delta)
	assert.Nil(t, out.Entry)

	out, issues = Process(contextFor(t, s, "opening", nil), "left")
	require.Empty(t, issues)
	assert.Zero(t, out.Delta)
	require.NotNil(t, out.Entry)
	assert.Nil(t, out.Entry.Strategy)
	assert.Equal(t, "Left", out.Entry.DisplayValue)

	out, issues = Process(contextFor(t, s, "opening", nil), "leftInside")
	require.Empty(t, issues)
	assert.Equal(t, int64(500), out.Delta)
}

func TestBoolean(t *testing.T) {
	s := testSchema()

	tests := []struct {
		name    string
		raw     any
		want    bool
		delta   int64
		display string
	}{
		{"true", true, true, 2200, "Yes"},
		{"string true", "true", true, 2200, "Yes"},
		{"false", false, false, 0, "No"},
		{"string false", "false", false, 0, "No"},
		{"omitted", nil, false, 0, "No"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, issues := Process(contextFor(t, s, "softClose", nil), tt.raw)
			require.Empty(t, issues)
			assert.Equal(t, tt.want, out.Normalized)
			assert.Equal(t, tt.delta, out.Delta)
			require.NotNil(t, out.Entry)
			assert.Equal(t, tt.display, out.Entry.DisplayValue)
		})
	}

	for _, bad := range []any{"yes", 1, 0.0} {
		_, issues := Process(contextFor(t, s, "softClose", nil), bad)
		require.Len(t, issues, 1, "raw %v", bad)
		assert.Equal(t, MsgExpectedBoolean, issues[0].Message)
	}
}

func TestRange(t *testing.T) {
	s := testSchema()

	tests := []struct {
		name    string
		raw     any
		value   float64
		delta   int64
		message string
	}{
		{"default", nil, 2000, 0, ""},
		{"per unit from default", 2010.0, 2010, 60, ""},
		{"below default", 1990, 1990, 60, ""},
		{"numeric string", "2100", 2100, 600, ""},
		{"at min", 1900.0, 1900, 600, ""},
		{"at max", 2400.0, 2400, 2400, ""},
		{"below min", 1899.0, 0, 0, "Value must be between 1900 and 2400"},
		{"above max", 2401.0, 0, 0, "Value must be between 1900 and 2400"},
		{"off step", 2005.0, 0, 0, "Value must increment by 10"},
		{"not numeric", "tall", 0, 0, MsgMustBeNumeric},
		{"empty string", "", 0, 0, MsgMustBeNumeric},
		{"bool", true, 0, 0, MsgMustBeNumeric},
		{"NaN string", "NaN", 0, 0, MsgMustBeNumeric},
		{"Inf string", "Inf", 0, 0, MsgMustBeNumeric},
		{"negative infinity string", "-Infinity", 0, 0, MsgMustBeNumeric},
		{"NaN float", math.NaN(), 0, 0, MsgMustBeNumeric},
		{"infinite float", math.Inf(1), 0, 0, MsgMustBeNumeric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, issues := Process(contextFor(t, s, "heightMm", nil), tt.raw)
			if tt.message != "" {
				require.Len(t, issues, 1)
				assert.Equal(t, tt.message, issues[0].Message)
				assert.Equal(t, "heightMm", issues[0].ControlID)
				assert.Equal(t, "sizes", issues[0].GroupID)
				return
			}
			require.Empty(t, issues)
			assert.Equal(t, tt.value, out.Normalized)
			assert.Equal(t, tt.delta, out.Delta)
			assert.Equal(t, FormatNumber(tt.value)+" mm", out.Entry.DisplayValue)
		})
	}
}

func TestRangeFractionalStep(t *testing.T) {
	s := &schema.Schema{
		Rounding: schema.Rounding{Mode: rounding.HalfEven, MinorUnit: 1},
		Groups: []schema.Group{{ID: "g", Label: "G", Controls: []schema.Control{
			&schema.RangeControl{
				ControlMeta: schema.ControlMeta{ID: "thickness", Type: schema.ControlRange, Label: "Thickness"},
				Min:         0.1, Max: 1, Step: 0.1, DefaultValue: 0.1,
			},
		}}},
	}

	out, issues := Process(contextFor(t, s, "thickness", nil), 0.3)
	require.Empty(t, issues, "0.3 is on a 0.1 step from 0.1")
	assert.Equal(t, "0.3", out.Entry.DisplayValue)

	_, issues = Process(contextFor(t, s, "thickness", nil), 0.35)
	require.Len(t, issues, 1)
	assert.Equal(t, "Value must increment by 0.1", issues[0].Message)
}
