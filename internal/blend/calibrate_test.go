// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package blend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshintel/rec-pipeline/pkg/types"
)

func calibConfig() types.CalibrationConfig {
	return types.CalibrationConfig{
		Objective: "like:0.7,watchlist:0.3",
		Alpha:     0.5,
		ClampMin:  0.7,
		ClampMax:  1.3,
	}
}

func TestParseObjective(t *testing.T) {
	tests := []struct {
		name string
		spec string
		want map[string]float64
	}{
		{"default spec", "like:0.7,watchlist:0.3", map[string]float64{"like": 0.7, "watchlist": 0.3}},
		{"renormalizes", "like:2,watch:2", map[string]float64{"like": 0.5, "watch": 0.5}},
		{"empty falls back to like", "", map[string]float64{"like": 1}},
		{"unknown signal dropped", "like:1,clicks:5", map[string]float64{"like": 1}},
		{"negative weight dropped", "like:1,watchlist:-3", map[string]float64{"like": 1}},
		{"unparsable weight dropped", "like:1,watchlist:abc", map[string]float64{"like": 1}},
		{"all dropped falls back", "clicks:1,views:2", map[string]float64{"like": 1}},
		{"dwelllong alias", "dwelllong:1", map[string]float64{"dwell_long": 1}},
		{"duplicates accumulate", "like:1,like:1,watch:2", map[string]float64{"like": 0.5, "watch": 0.5}},
		{"whitespace tolerated", " like : 0.5 , watch : 0.5 ", map[string]float64{"like": 0.5, "watch": 0.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseObjective(tt.spec)
			require.Len(t, got, len(tt.want))
			for k, v := range tt.want {
				assert.InDelta(t, v, got[k], 1e-9, "signal %s", k)
			}
		})
	}
}

func TestNormalizeSource(t *testing.T) {
	aliases := DefaultSourceAliases()
	tests := []struct {
		in   string
		want string
	}{
		{"popular", "popular"},
		{"  Popular  ", "popular"},
		{"segpop", "seg_pop"},
		{"For-You", "for_you"},
		{"", "unknown"},
		{"   ", "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeSource(tt.in, aliases), "input %q", tt.in)
	}
}

func TestSignalForOutcome(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"like", SignalLike, true},
		{"watchlist_add", SignalWatchlist, true},
		{"watchlist", SignalWatchlist, true},
		{"dwell_long", SignalDwellLong, true},
		{"long_dwell", SignalDwellLong, true},
		{"detail_open_long", SignalDwellLong, true},
		{"watched", SignalWatch, true},
		{"completed", SignalWatch, true},
		{"dislike", "", false},
		{"impression", "", false},
	}
	for _, tt := range tests {
		got, ok := signalForOutcome(tt.in)
		assert.Equal(t, tt.ok, ok, "outcome %q", tt.in)
		assert.Equal(t, tt.want, got, "outcome %q", tt.in)
	}
}

func TestSuggestBalancedSourcesAreNeutral(t *testing.T) {
	// Two sources with identical rates: every ratio is 1, so every
	// multiplier is exactly 1 regardless of alpha.
	acc := NewAccumulator(nil)
	for i := 0; i < 100; i++ {
		acc.AddImpression("popular")
		acc.AddImpression("for_you")
	}
	for i := 0; i < 10; i++ {
		acc.AddOutcome("popular", "like")
		acc.AddOutcome("for_you", "like")
	}

	for _, alpha := range []float64{0, 0.5, 1} {
		cfg := calibConfig()
		cfg.Alpha = alpha
		out, err := acc.Suggest(cfg, types.CalibrationInputs{}, time.Now())
		require.NoError(t, err)
		assert.InDelta(t, 1.0, out.SuggestedSourceMultipliers["popular"], 1e-9, "alpha %.1f", alpha)
		assert.InDelta(t, 1.0, out.SuggestedSourceMultipliers["for_you"], 1e-9, "alpha %.1f", alpha)
	}
}

func TestSuggestShrinkageAndClamp(t *testing.T) {
	// popular: 20/100 like rate; seg_pop: 5/100. Overall 25/200 = 0.125.
	acc := NewAccumulator(nil)
	for i := 0; i < 100; i++ {
		acc.AddImpression("popular")
		acc.AddImpression("segpop")
	}
	for i := 0; i < 20; i++ {
		acc.AddOutcome("popular", "like")
	}
	for i := 0; i < 5; i++ {
		acc.AddOutcome("segpop", "like")
	}

	cfg := calibConfig()
	cfg.Objective = "like:1"
	out, err := acc.Suggest(cfg, types.CalibrationInputs{}, time.Now())
	require.NoError(t, err)

	// ratios 1.6 and 0.4; sqrt-shrunk to ~1.265 and ~0.632; the low
	// side hits the 0.7 floor.
	assert.InDelta(t, 1.265, out.SuggestedSourceMultipliers["popular"], 1e-3)
	assert.InDelta(t, 0.7, out.SuggestedSourceMultipliers["seg_pop"], 1e-9)

	// Alpha 0 neutralizes everything.
	cfg.Alpha = 0
	out, err = acc.Suggest(cfg, types.CalibrationInputs{}, time.Now())
	require.NoError(t, err)
	for s, m := range out.SuggestedSourceMultipliers {
		assert.InDelta(t, 1.0, m, 1e-9, "source %s", s)
	}

	// Alpha 1 applies the raw ratio, still clamped.
	cfg.Alpha = 1
	out, err = acc.Suggest(cfg, types.CalibrationInputs{}, time.Now())
	require.NoError(t, err)
	assert.InDelta(t, 1.3, out.SuggestedSourceMultipliers["popular"], 1e-9)
	assert.InDelta(t, 0.7, out.SuggestedSourceMultipliers["seg_pop"], 1e-9)
}

func TestSuggestMultipliersStayInBand(t *testing.T) {
	acc := NewAccumulator(nil)
	acc.AddImpression("hot")
	acc.AddOutcome("hot", "like") // rate 1.0
	for i := 0; i < 1000; i++ {
		acc.AddImpression("cold") // rate 0
	}

	cfg := calibConfig()
	cfg.Alpha = 1
	out, err := acc.Suggest(cfg, types.CalibrationInputs{}, time.Now())
	require.NoError(t, err)
	for s, m := range out.SuggestedSourceMultipliers {
		assert.GreaterOrEqual(t, m, cfg.ClampMin, "source %s", s)
		assert.LessOrEqual(t, m, cfg.ClampMax, "source %s", s)
	}
}

func TestSuggestNoImpressionsDefaultsNeutral(t *testing.T) {
	// Outcomes without impressions: overall rate is 0, so every ratio
	// defaults to the neutral 1.
	acc := NewAccumulator(nil)
	acc.AddOutcome("popular", "like")

	out, err := acc.Suggest(calibConfig(), types.CalibrationInputs{}, time.Now())
	require.NoError(t, err)
	assert.InDelta(t, 1.0, out.SuggestedSourceMultipliers["popular"], 1e-9)
	assert.Zero(t, out.Overall.ObjectiveRate)
}

func TestSuggestFoldsAliasesAndUnknown(t *testing.T) {
	acc := NewAccumulator(nil)
	acc.AddImpression("segpop")
	acc.AddImpression("seg_pop")
	acc.AddImpression("")
	acc.AddOutcome("SegPop", "watchlist_add")
	acc.AddOutcome("  ", "like")

	out, err := acc.Suggest(calibConfig(), types.CalibrationInputs{}, time.Now())
	require.NoError(t, err)

	require.Len(t, out.PerSource, 2)
	assert.Equal(t, "seg_pop", out.PerSource[0].Source)
	assert.Equal(t, 2, out.PerSource[0].Impressions)
	assert.Equal(t, 1, out.PerSource[0].Counts[SignalWatchlist])
	assert.Equal(t, "unknown", out.PerSource[1].Source)
	assert.Equal(t, 1, out.PerSource[1].Counts[SignalLike])
}

func TestSuggestIgnoresNonObjectiveOutcomes(t *testing.T) {
	acc := NewAccumulator(nil)
	acc.AddImpression("popular")
	acc.AddOutcome("popular", "dislike")
	acc.AddOutcome("popular", "skip")
	acc.AddOutcome("popular", "not_interested")

	out, err := acc.Suggest(calibConfig(), types.CalibrationInputs{}, time.Now())
	require.NoError(t, err)
	require.Len(t, out.PerSource, 1)
	for _, sig := range signalOrder {
		assert.Zero(t, out.PerSource[0].Counts[sig])
	}
}

func TestSuggestRejectsInvalidConfig(t *testing.T) {
	acc := NewAccumulator(nil)

	cfg := calibConfig()
	cfg.Alpha = 1.5
	_, err := acc.Suggest(cfg, types.CalibrationInputs{}, time.Now())
	assert.Error(t, err)

	cfg = calibConfig()
	cfg.ClampMin = 1.3
	cfg.ClampMax = 0.7
	_, err = acc.Suggest(cfg, types.CalibrationInputs{}, time.Now())
	assert.Error(t, err)
}

func TestSuggestApplyTarget(t *testing.T) {
	acc := NewAccumulator(nil)
	out, err := acc.Suggest(calibConfig(), types.CalibrationInputs{
		ImpressionsFile: "/data/rec_impressions.jsonl",
		OutcomesFile:    "/data/rec_outcomes.jsonl",
		Objective:       "like:0.7,watchlist:0.3",
		Alpha:           0.5,
		Clamp:           [2]float64{0.7, 1.3},
	}, time.Now())
	require.NoError(t, err)

	assert.Equal(t, "ranking.swipe.blend", out.ApplyToSetting.Key)
	assert.Equal(t, "source_multipliers", out.ApplyToSetting.Path)
	assert.Equal(t, "/data/rec_impressions.jsonl", out.Inputs.ImpressionsFile)
}
