// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package blend computes per-source blend-multiplier suggestions from
// impression and outcome logs. The output is advisory: an operator
// reviews the document and merges the multipliers into the online
// blending configuration by hand.
package blend

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/meshintel/rec-pipeline/pkg/types"
)

// Objective signals. Every other outcome type is ignored by the
// calibrator.
const (
	SignalLike      = "like"
	SignalWatchlist = "watchlist"
	SignalDwellLong = "dwell_long"
	SignalWatch     = "watch"
)

// signalOrder fixes the emission order of per-signal maps' keys in
// diagnostics built from them.
var signalOrder = []string{SignalLike, SignalWatchlist, SignalDwellLong, SignalWatch}

// signalAliases folds objective-spec spellings onto canonical signals.
var signalAliases = map[string]string{
	"dwelllong": SignalDwellLong,
}

// ParseObjective parses a weighted signal spec such as
// "like:0.7,watchlist:0.3" into normalized weights summing to 1.
// Unknown signals, negative weights, and unparsable numbers are
// dropped; duplicate signals accumulate. An empty or fully-dropped
// spec falls back to pure like-rate.
func ParseObjective(spec string) map[string]float64 {
	weights := make(map[string]float64)
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, val, _ := strings.Cut(part, ":")
		sig := strings.ToLower(strings.TrimSpace(key))
		if canon, ok := signalAliases[sig]; ok {
			sig = canon
		}
		if !knownSignal(sig) {
			continue
		}
		w, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil || math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			continue
		}
		weights[sig] += w
	}

	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if sum == 0 {
		return map[string]float64{SignalLike: 1}
	}
	for k := range weights {
		weights[k] /= sum
	}
	return weights
}

func knownSignal(s string) bool {
	for _, sig := range signalOrder {
		if s == sig {
			return true
		}
	}
	return false
}

// signalForOutcome maps a raw outcome type onto its objective signal.
func signalForOutcome(outcomeType string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(outcomeType)) {
	case "like":
		return SignalLike, true
	case "watchlist_add", "watchlist":
		return SignalWatchlist, true
	case "dwell_long", "long_dwell", "detail_open_long":
		return SignalDwellLong, true
	case "watch", "watched", "complete", "completed":
		return SignalWatch, true
	default:
		return "", false
	}
}

// DefaultSourceAliases returns the known source-label synonyms.
func DefaultSourceAliases() map[string]string {
	return map[string]string{
		"segpop":  "seg_pop",
		"for-you": "for_you",
	}
}

// NormalizeSource canonicalizes a raw source label: trim, lowercase,
// fold aliases, and map the empty label to "unknown" so unattributed
// traffic still forms a bucket.
func NormalizeSource(source string, aliases map[string]string) string {
	s := strings.ToLower(strings.TrimSpace(source))
	if s == "" {
		return "unknown"
	}
	if canon, ok := aliases[s]; ok {
		return canon
	}
	return s
}

// DefaultApplyTarget names the online configuration setting the
// suggestion is meant for.
func DefaultApplyTarget() types.ApplyTarget {
	return types.ApplyTarget{
		Key:  "ranking.swipe.blend",
		Path: "source_multipliers",
		Note: "Paste suggested_source_multipliers into ranking.swipe.blend.source_multipliers (server_only), then validate via A/B metrics.",
	}
}

// Accumulator tallies impressions and objective-signal outcomes per
// normalized source. It is not safe for concurrent use.
type Accumulator struct {
	aliases     map[string]string
	impressions map[string]int
	counts      map[string]map[string]int
}

// NewAccumulator returns an empty accumulator. A nil aliases map means
// the default synonyms.
func NewAccumulator(aliases map[string]string) *Accumulator {
	if aliases == nil {
		aliases = DefaultSourceAliases()
	}
	return &Accumulator{
		aliases:     aliases,
		impressions: make(map[string]int),
		counts:      make(map[string]map[string]int),
	}
}

// AddImpression counts one shown item for the source.
func (a *Accumulator) AddImpression(source string) {
	a.impressions[NormalizeSource(source, a.aliases)]++
}

// AddOutcome counts one outcome for the source when its type maps onto
// an objective signal; everything else is ignored.
func (a *Accumulator) AddOutcome(source, outcomeType string) {
	sig, ok := signalForOutcome(outcomeType)
	if !ok {
		return
	}
	s := NormalizeSource(source, a.aliases)
	m := a.counts[s]
	if m == nil {
		m = make(map[string]int)
		a.counts[s] = m
	}
	m[sig]++
}

// sources returns every source seen on either side, sorted.
func (a *Accumulator) sources() []string {
	set := make(map[string]bool, len(a.impressions))
	for s := range a.impressions {
		set[s] = true
	}
	for s := range a.counts {
		set[s] = true
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Suggest computes the calibration document. Per source, the weighted
// objective rate is compared to the overall rate; the ratio is shrunk
// toward 1 by raising it to cfg.Alpha and clamped to the configured
// band. A source with no impressions has rate 0 and lands on the
// clamp floor; when the overall rate itself is 0 every ratio defaults
// to the neutral 1.
func (a *Accumulator) Suggest(cfg types.CalibrationConfig, inputs types.CalibrationInputs, now time.Time) (types.CalibrationSuggestion, error) {
	if err := cfg.Validate(); err != nil {
		return types.CalibrationSuggestion{}, fmt.Errorf("invalid calibration config: %w", err)
	}
	objective := ParseObjective(cfg.Objective)

	sources := a.sources()

	totalImpr := 0
	totalCounts := make(map[string]int, len(signalOrder))
	for _, s := range sources {
		totalImpr += a.impressions[s]
		for _, sig := range signalOrder {
			totalCounts[sig] += a.counts[s][sig]
		}
	}
	overallRate := objectiveRate(objective, totalCounts, totalImpr)

	suggested := make(map[string]float64, len(sources))
	perSource := make([]types.SourceCalibration, 0, len(sources))
	for _, s := range sources {
		impr := a.impressions[s]
		row := types.SourceCalibration{
			Source:      s,
			Impressions: impr,
			Counts:      make(map[string]int, len(signalOrder)),
			Rates:       make(map[string]float64, len(signalOrder)),
		}
		for _, sig := range signalOrder {
			row.Counts[sig] = a.counts[s][sig]
			row.Rates[sig] = round4(safeRate(a.counts[s][sig], impr))
		}
		rate := objectiveRate(objective, a.counts[s], impr)
		row.ObjectiveRate = round4(rate)

		ratio := 1.0
		if overallRate > 0 {
			ratio = rate / overallRate
		}
		shrunk := math.Pow(math.Max(0, ratio), cfg.Alpha)
		row.Multiplier = round3(clampFloat(shrunk, cfg.ClampMin, cfg.ClampMax))

		suggested[s] = row.Multiplier
		perSource = append(perSource, row)
	}

	overall := types.SourceCalibration{
		Source:      "overall",
		Impressions: totalImpr,
		Counts:      make(map[string]int, len(signalOrder)),
		Rates:       make(map[string]float64, len(signalOrder)),
	}
	for _, sig := range signalOrder {
		overall.Counts[sig] = totalCounts[sig]
		overall.Rates[sig] = round4(safeRate(totalCounts[sig], totalImpr))
	}
	overall.ObjectiveRate = round4(overallRate)

	return types.CalibrationSuggestion{
		GeneratedAt:                now.UTC(),
		Inputs:                     inputs,
		Overall:                    overall,
		SuggestedSourceMultipliers: suggested,
		PerSource:                  perSource,
		ApplyToSetting:             DefaultApplyTarget(),
	}, nil
}

// objectiveRate is the objective-weighted combination of per-signal
// rates for one bucket.
func objectiveRate(objective map[string]float64, counts map[string]int, impressions int) float64 {
	rate := 0.0
	for sig, w := range objective {
		rate += w * safeRate(counts[sig], impressions)
	}
	return rate
}

func safeRate(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func clampFloat(x, lo, hi float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return lo
	}
	return math.Min(hi, math.Max(lo, x))
}

func round3(x float64) float64 { return math.Round(x*1000) / 1000 }
func round4(x float64) float64 { return math.Round(x*10000) / 10000 }
