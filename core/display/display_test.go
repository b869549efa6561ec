package display

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quote-engine/core/rounding"
	"quote-engine/core/schema"
	"quote-engine/core/types"
)

func sampleResult() *types.QuoteResult {
	return &types.QuoteResult{
		Currency:         "USD",
		BasePriceCents:   34900,
		AdjustmentsCents: 13430,
		TotalPriceCents:  48330,
		Rounding:         schema.Rounding{Mode: rounding.HalfUp, MinorUnit: 1},
		Breakdown: []types.BreakdownEntry{
			{ControlID: "doorBlock", DeltaCents: 5850},
			{ControlID: "leafFill", DeltaCents: 4200},
			{ControlID: "casingFront", DeltaCents: 1690},
			{ControlID: "casingInner", DeltaCents: 1690},
			{ControlID: "opening", DeltaCents: 0},
		},
	}
}

func TestScaleLeavesBaseAlone(t *testing.T) {
	in := sampleResult()
	out := Scale(in, 1.3)

	assert.Equal(t, int64(34900), out.BasePriceCents)
	assert.Equal(t, []int64{7605, 5460, 2197, 2197, 0}, deltas(out))
	assert.Equal(t, int64(7605+5460+2197+2197), out.AdjustmentsCents)
	assert.Equal(t, out.BasePriceCents+out.AdjustmentsCents, out.TotalPriceCents)

	// input untouched
	assert.Equal(t, int64(5850), in.Breakdown[0].DeltaCents)
	assert.Equal(t, int64(48330), in.TotalPriceCents)
}

func TestScaleRoundsTiesAwayFromZero(t *testing.T) {
	in := &types.QuoteResult{BasePriceCents: 100, Breakdown: []types.BreakdownEntry{
		{DeltaCents: 5}, {DeltaCents: -150},
	}}
	out := Scale(in, 1.25)
	assert.Equal(t, []int64{6, -188}, deltas(out))
	assert.Equal(t, int64(-182), out.AdjustmentsCents)
	assert.Equal(t, int64(-82), out.TotalPriceCents)
}

func TestScaleIgnoresNonPositiveMultiplier(t *testing.T) {
	out := Scale(sampleResult(), 0)
	assert.Equal(t, sampleResult().Breakdown, out.Breakdown)
	assert.Equal(t, int64(48330), out.TotalPriceCents)
}

func TestConvert(t *testing.T) {
	out, err := Convert(sampleResult(), decimal.RequireFromString("41.5"), "UAH")
	require.NoError(t, err)

	assert.Equal(t, "UAH", out.Currency)
	assert.Equal(t, int64(1448350), out.BasePriceCents)
	assert.Equal(t, int64(557345), out.AdjustmentsCents)
	assert.Equal(t, int64(2005695), out.TotalPriceCents)
	assert.Equal(t, int64(70135), out.Breakdown[2].DeltaCents)

	small, err := Convert(sampleResult(), decimal.RequireFromString("0.0243"), "XYZ")
	require.NoError(t, err)
	assert.Equal(t, int64(848), small.BasePriceCents)

	_, err = Convert(sampleResult(), decimal.Zero, "UAH")
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	s := &schema.Schema{Groups: []schema.Group{
		{ID: "sizes", Label: "Sizes", Controls: []schema.Control{
			&schema.RangeControl{ControlMeta: schema.ControlMeta{ID: "heightMm", Label: "Height"}, Unit: "mm"},
			&schema.RangeControl{ControlMeta: schema.ControlMeta{ID: "ratio", Label: "Ratio"}},
		}},
		{ID: "extras", Label: "Extras", Controls: []schema.Control{
			&schema.ChoiceControl{ControlMeta: schema.ControlMeta{ID: "leafFill", Label: "Leaf fill"},
				Options: []schema.Option{{ID: "solid", Label: "Solid"}}},
			&schema.BooleanControl{ControlMeta: schema.ControlMeta{ID: "softClose", Label: "Soft close"}},
			&schema.ChoiceControl{ControlMeta: schema.ControlMeta{ID: "unused", Label: "Unused"}},
		}},
	}}

	got := Resolve(s, types.NormalizedSelections{
		"softClose": true,
		"zeta":      "x",
		"leafFill":  "solid",
		"heightMm":  2010.0,
		"ratio":     0.5,
		"alpha":     3,
	})

	assert.Equal(t, []ResolvedSelection{
		{GroupID: "sizes", GroupLabel: "Sizes", ControlID: "heightMm", ControlLabel: "Height", Value: 2010.0, DisplayValue: "2010 mm"},
		{GroupID: "sizes", GroupLabel: "Sizes", ControlID: "ratio", ControlLabel: "Ratio", Value: 0.5, DisplayValue: "0.5"},
		{GroupID: "extras", GroupLabel: "Extras", ControlID: "leafFill", ControlLabel: "Leaf fill", Value: "solid", DisplayValue: "Solid"},
		{GroupID: "extras", GroupLabel: "Extras", ControlID: "softClose", ControlLabel: "Soft close", Value: true, DisplayValue: "Yes"},
		{ControlID: "alpha", ControlLabel: "alpha", Value: 3, DisplayValue: "3"},
		{ControlID: "zeta", ControlLabel: "zeta", Value: "x", DisplayValue: "x"},
	}, got)
}

func deltas(r *types.QuoteResult) []int64 {
	out := make([]int64, len(r.Breakdown))
	for i, e := range r.Breakdown {
		out[i] = e.DeltaCents
	}
	return out
}
