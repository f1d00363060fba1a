// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// Validation ranges. Out-of-range configuration is a hard input error
// before any processing starts; nothing is silently clamped except the
// calibration multiplier output itself.
const (
	MaxWindowDays = 3650
	MaxTopK       = 5000
	MaxEvalK      = 200
	MaxTestPoints = 20
	MaxPageSize   = 10000
)

// PositivePolicy defines which outcomes count as positive signals:
// like, watchlist_add, and rating at or above RatingThreshold. The
// threshold is product policy, not structure, so it travels as
// configuration.
type PositivePolicy struct {
	// RatingThreshold is the minimum 0-10 rating treated as positive
	// (default 7).
	RatingThreshold float64 `json:"rating_threshold" yaml:"rating_threshold"`
}

// DefaultPositivePolicy returns the product default (rating >= 7).
func DefaultPositivePolicy() PositivePolicy {
	return PositivePolicy{RatingThreshold: 7}
}

// Validate checks the threshold is on the rating scale.
func (p PositivePolicy) Validate() error {
	if p.RatingThreshold < 0 || p.RatingThreshold > 10 {
		return fmt.Errorf("rating threshold %.2f out of range [0, 10]", p.RatingThreshold)
	}
	return nil
}

// Positive reports whether the outcome is a positive signal under this
// policy.
func (p PositivePolicy) Positive(o Outcome) bool {
	switch o.OutcomeType {
	case OutcomeLike, OutcomeWatchlistAdd:
		return true
	case OutcomeRating:
		return o.Rating0to10 != nil && *o.Rating0to10 >= p.RatingThreshold
	default:
		return false
	}
}

// ExportConfig holds settings for the log-store export stage.
type ExportConfig struct {
	// DBPath is the interaction-log SQLite database file.
	DBPath string `json:"db_path" yaml:"db_path"`

	// OutDir receives the exported JSONL files.
	OutDir string `json:"out_dir" yaml:"out_dir"`

	// Days is the lower time bound: export rows created within the
	// last Days days.
	Days int `json:"days" yaml:"days"`

	// PageSize bounds each keyset-paginated query (default 2000).
	PageSize int `json:"page_size" yaml:"page_size"`
}

// Validate checks required paths and numeric ranges.
func (c ExportConfig) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("log store database path is required")
	}
	if c.OutDir == "" {
		return fmt.Errorf("output directory is required")
	}
	if c.Days < 1 || c.Days > MaxWindowDays {
		return fmt.Errorf("days %d out of range [1, %d]", c.Days, MaxWindowDays)
	}
	if c.PageSize < 1 || c.PageSize > MaxPageSize {
		return fmt.Errorf("page size %d out of range [1, %d]", c.PageSize, MaxPageSize)
	}
	return nil
}

// TrainingConfig holds settings for the co-visitation trainer.
type TrainingConfig struct {
	// WindowDays is the training lookback, echoed into the model.
	WindowDays int `json:"window_days" yaml:"window_days"`

	// TopK is the maximum number of neighbors kept per item.
	TopK int `json:"top_k" yaml:"top_k"`

	// MaxUserItems caps a single user's distinct positive items
	// (most recent kept) to bound the O(n^2) pair loop. 0 disables the
	// cap, leaving the lookback window as the only bound.
	MaxUserItems int `json:"max_user_items" yaml:"max_user_items"`

	// Positive is the positive-label policy.
	Positive PositivePolicy `json:"positive" yaml:"positive"`
}

// Validate checks the numeric ranges.
func (c TrainingConfig) Validate() error {
	if c.WindowDays < 1 || c.WindowDays > MaxWindowDays {
		return fmt.Errorf("window days %d out of range [1, %d]", c.WindowDays, MaxWindowDays)
	}
	if c.TopK < 1 || c.TopK > MaxTopK {
		return fmt.Errorf("top-k %d out of range [1, %d]", c.TopK, MaxTopK)
	}
	if c.MaxUserItems < 0 {
		return fmt.Errorf("max user items must not be negative, got %d", c.MaxUserItems)
	}
	return c.Positive.Validate()
}

// EvalConfig holds settings for the offline evaluator.
type EvalConfig struct {
	// K is the recommendation list length.
	K int `json:"k" yaml:"k"`

	// TestPoints is the number of most recent positive interactions
	// held out per user as test targets.
	TestPoints int `json:"test_points" yaml:"test_points"`

	// MaxPairs bounds the sampled item pairs per list for the
	// intra-list diversity metric (default 120).
	MaxPairs int `json:"max_pairs" yaml:"max_pairs"`

	// Positive is the positive-label policy.
	Positive PositivePolicy `json:"positive" yaml:"positive"`
}

// Validate checks the numeric ranges.
func (c EvalConfig) Validate() error {
	if c.K < 1 || c.K > MaxEvalK {
		return fmt.Errorf("k %d out of range [1, %d]", c.K, MaxEvalK)
	}
	if c.TestPoints < 1 || c.TestPoints > MaxTestPoints {
		return fmt.Errorf("test points %d out of range [1, %d]", c.TestPoints, MaxTestPoints)
	}
	if c.MaxPairs < 1 {
		return fmt.Errorf("max pairs must be at least 1, got %d", c.MaxPairs)
	}
	return c.Positive.Validate()
}

// CalibrationConfig holds settings for the source blend calibrator.
type CalibrationConfig struct {
	// Objective is the weighted signal spec, e.g.
	// "like:0.7,watchlist:0.3". Weights are renormalized to sum to 1;
	// unknown or negative entries are dropped.
	Objective string `json:"objective" yaml:"objective"`

	// Alpha is the shrinkage exponent in [0, 1]: 0 shrinks every ratio
	// to the neutral 1.0, 1 applies the raw ratio.
	Alpha float64 `json:"alpha" yaml:"alpha"`

	// ClampMin and ClampMax bound the final multiplier.
	ClampMin float64 `json:"clamp_min" yaml:"clamp_min"`
	ClampMax float64 `json:"clamp_max" yaml:"clamp_max"`

	// SourceAliases folds known source-name synonyms onto canonical
	// labels, applied after trimming and lowercasing.
	SourceAliases map[string]string `json:"source_aliases" yaml:"source_aliases"`
}

// Validate checks the shrinkage exponent and clamp band.
func (c CalibrationConfig) Validate() error {
	if c.Alpha < 0 || c.Alpha > 1 {
		return fmt.Errorf("alpha %.3f out of range [0, 1]", c.Alpha)
	}
	if c.ClampMin <= 0 {
		return fmt.Errorf("clamp min must be positive, got %.3f", c.ClampMin)
	}
	if c.ClampMax < c.ClampMin {
		return fmt.Errorf("clamp band [%.3f, %.3f] is inverted", c.ClampMin, c.ClampMax)
	}
	return nil
}
