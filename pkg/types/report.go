// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// EvaluationReport is the output of one offline evaluator run: the run
// configuration alongside every metric, so a report is interpretable
// without the invocation that produced it. Produced fresh per run.
type EvaluationReport struct {
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`

	// CandidateSource names the recommender evaluated:
	// "popularity" or "covisitation".
	CandidateSource string `json:"candidate_source" yaml:"candidate_source"`

	// K is the recommendation list length evaluated.
	K int `json:"k" yaml:"k"`

	// TestPoints is the configured per-user held-out count.
	TestPoints int `json:"test_points" yaml:"test_points"`

	// RatingThreshold is the positive-label rating cutoff used.
	RatingThreshold float64 `json:"rating_threshold" yaml:"rating_threshold"`

	// RowsRead and RowsSkipped report raw input volume versus lines
	// dropped as malformed.
	RowsRead    int `json:"rows_read" yaml:"rows_read"`
	RowsSkipped int `json:"rows_skipped" yaml:"rows_skipped"`

	// UsersEvaluated counts users with both train and test material.
	UsersEvaluated int `json:"users_evaluated" yaml:"users_evaluated"`

	// TestPointCount is the total number of held-out test interactions.
	TestPointCount int `json:"test_point_count" yaml:"test_point_count"`

	// TrainItems is the number of distinct items in the train-split
	// popularity table (the coverage denominator).
	TrainItems int `json:"train_items" yaml:"train_items"`

	HitRate float64 `json:"hit_rate" yaml:"hit_rate"`
	MRR     float64 `json:"mrr" yaml:"mrr"`
	NDCG    float64 `json:"ndcg" yaml:"ndcg"`
	MAP     float64 `json:"map" yaml:"map"`

	CatalogCoverage float64 `json:"catalog_coverage" yaml:"catalog_coverage"`
	Novelty         float64 `json:"novelty" yaml:"novelty"`
	Diversity       float64 `json:"diversity" yaml:"diversity"`

	// GenreDrift is the Jensen-Shannon divergence (nats, in [0, ln 2])
	// between recommended and catalog genre distributions.
	GenreDrift float64 `json:"genre_drift" yaml:"genre_drift"`
}

// SourceCalibration is one per-source diagnostic row in a calibration
// suggestion: raw counts, observed rates, and the final multiplier, so
// operators can audit a suggestion before applying it.
type SourceCalibration struct {
	Source      string `json:"source"`
	Impressions int    `json:"impressions"`

	// Counts holds raw outcome counts per objective signal
	// (like, watchlist, dwell_long, watch).
	Counts map[string]int `json:"counts"`

	// Rates holds count/impressions per signal, 0 when the source has
	// no impressions.
	Rates map[string]float64 `json:"rates"`

	// ObjectiveRate is the weighted combination of the signal rates.
	ObjectiveRate float64 `json:"objective_rate"`

	// Multiplier is the shrunk, clamped blend multiplier. Zero on the
	// overall row, which is reference only.
	Multiplier float64 `json:"multiplier,omitempty"`
}

// CalibrationInputs records the files and knobs a suggestion was
// computed from.
type CalibrationInputs struct {
	ImpressionsFile string     `json:"impressions_file"`
	OutcomesFile    string     `json:"outcomes_file"`
	Objective       string     `json:"objective"`
	Alpha           float64    `json:"alpha"`
	Clamp           [2]float64 `json:"clamp"`
}

// ApplyTarget documents where in the online blending configuration a
// suggestion is meant to be merged. The calibrator never writes there
// itself.
type ApplyTarget struct {
	Key  string `json:"key"`
	Path string `json:"path"`
	Note string `json:"note"`
}

// CalibrationSuggestion is the blend calibrator's output document,
// reviewed by an operator and merged into the online configuration by
// hand.
type CalibrationSuggestion struct {
	GeneratedAt time.Time         `json:"generated_at"`
	Inputs      CalibrationInputs `json:"inputs"`

	// Overall holds cross-source totals and rates for reference.
	Overall SourceCalibration `json:"overall"`

	// SuggestedSourceMultipliers is the final multiplier map, keyed by
	// normalized source.
	SuggestedSourceMultipliers map[string]float64 `json:"suggested_source_multipliers"`

	// PerSource lists full diagnostic rows, sorted by source.
	PerSource []SourceCalibration `json:"per_source"`

	ApplyToSetting ApplyTarget `json:"apply_to_setting"`
}
