// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evaluate

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshintel/rec-pipeline/internal/covisit"
	"github.com/meshintel/rec-pipeline/pkg/types"
)

var evalBase = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func likeAt(user, item string, minutes int) types.Outcome {
	return types.Outcome{
		ID:          user + "-" + item,
		UserID:      user,
		MediaItemID: item,
		OutcomeType: types.OutcomeLike,
		CreatedAt:   evalBase.Add(time.Duration(minutes) * time.Minute),
	}
}

func evalConfig(k, testPoints int) types.EvalConfig {
	return types.EvalConfig{
		K:          k,
		TestPoints: testPoints,
		MaxPairs:   120,
		Positive:   types.DefaultPositivePolicy(),
	}
}

func TestSplitUsersHoldsOutMostRecent(t *testing.T) {
	outcomes := []types.Outcome{
		likeAt("u1", "i3", 3),
		likeAt("u1", "i1", 1),
		likeAt("u1", "i4", 4),
		likeAt("u1", "i2", 2),
	}

	splits := splitUsers(outcomes, types.DefaultPositivePolicy(), 1)
	require.Contains(t, splits, "u1")
	assert.Equal(t, []string{"i1", "i2", "i3"}, splits["u1"].train)
	assert.Equal(t, []string{"i4"}, splits["u1"].test)

	splits = splitUsers(outcomes, types.DefaultPositivePolicy(), 2)
	assert.Equal(t, []string{"i1", "i2"}, splits["u1"].train)
	assert.Equal(t, []string{"i3", "i4"}, splits["u1"].test)
}

func TestSplitUsersCapsTestPoints(t *testing.T) {
	outcomes := []types.Outcome{
		likeAt("u1", "i1", 1),
		likeAt("u1", "i2", 2),
		likeAt("u1", "i3", 3),
	}

	// At least one interaction always stays on the train side.
	splits := splitUsers(outcomes, types.DefaultPositivePolicy(), 10)
	require.Contains(t, splits, "u1")
	assert.Equal(t, []string{"i1"}, splits["u1"].train)
	assert.Equal(t, []string{"i2", "i3"}, splits["u1"].test)
}

func TestSplitUsersExcludesThinAndNonPositive(t *testing.T) {
	dislike := likeAt("u2", "i1", 1)
	dislike.OutcomeType = types.OutcomeDislike
	dislike2 := likeAt("u2", "i2", 2)
	dislike2.OutcomeType = types.OutcomeDislike

	outcomes := []types.Outcome{
		likeAt("u1", "i1", 1), // single positive: no test material
		dislike, dislike2,     // only negatives
		likeAt("u3", "", 1),   // degenerate rows
		likeAt("", "i1", 2),
	}

	splits := splitUsers(outcomes, types.DefaultPositivePolicy(), 1)
	assert.Empty(t, splits)
}

func TestSplitUsersDedupsTrainItems(t *testing.T) {
	outcomes := []types.Outcome{
		likeAt("u1", "i1", 1),
		likeAt("u1", "i1", 2),
		likeAt("u1", "i2", 3),
		likeAt("u1", "i3", 4),
	}

	splits := splitUsers(outcomes, types.DefaultPositivePolicy(), 1)
	require.Contains(t, splits, "u1")
	assert.Equal(t, []string{"i1", "i2"}, splits["u1"].train)
	assert.Equal(t, []string{"i3"}, splits["u1"].test)
}

// popularityFixture yields four users whose held-out items are covered
// by the popularity baseline at rank 1 for three of them and rank 2 for
// the fourth.
func popularityFixture() []types.Outcome {
	return []types.Outcome{
		likeAt("u1", "A", 1), likeAt("u1", "B", 2), likeAt("u1", "D", 3),
		likeAt("u2", "A", 1), likeAt("u2", "D", 2), likeAt("u2", "B", 3),
		likeAt("u3", "A", 1), likeAt("u3", "B", 2), likeAt("u3", "C", 3),
		likeAt("u4", "C", 1), likeAt("u4", "D", 2), likeAt("u4", "A", 3),
	}
}

func TestRunPopularityBaseline(t *testing.T) {
	in := Input{Outcomes: popularityFixture(), RowsRead: 12}

	report, err := Run(in, evalConfig(1, 1), nil, evalBase)
	require.NoError(t, err)

	assert.Equal(t, "popularity", report.CandidateSource)
	assert.Equal(t, 4, report.UsersEvaluated)
	assert.Equal(t, 4, report.TestPointCount)
	assert.Equal(t, 4, report.TrainItems)
	assert.Equal(t, 12, report.RowsRead)

	// Three of four targets sit at rank 1 of the popularity list; with
	// every hit at rank 1 the rank-discounted metrics all collapse to
	// the hit rate.
	assert.InDelta(t, 0.75, report.HitRate, 1e-9)
	assert.InDelta(t, 0.75, report.MRR, 1e-9)
	assert.InDelta(t, 0.75, report.NDCG, 1e-9)
	assert.InDelta(t, 0.75, report.MAP, 1e-9)
}

func TestRunHitRateMonotoneInK(t *testing.T) {
	in := Input{Outcomes: popularityFixture()}

	var prev float64
	for _, k := range []int{1, 2, 3, 5} {
		report, err := Run(in, evalConfig(k, 1), nil, evalBase)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, report.HitRate, prev, "k=%d", k)
		prev = report.HitRate
	}
	assert.InDelta(t, 1.0, prev, 1e-9)
}

func TestRunDeeperHitDiscountsRank(t *testing.T) {
	in := Input{Outcomes: popularityFixture()}

	report, err := Run(in, evalConfig(2, 1), nil, evalBase)
	require.NoError(t, err)

	// u3's target C moves into the list at rank 2: it counts fully for
	// the hit rate but only half for MRR.
	assert.InDelta(t, 1.0, report.HitRate, 1e-9)
	assert.InDelta(t, 0.875, report.MRR, 1e-9)
	assert.InDelta(t, (3+1/math.Log2(3))/4, report.NDCG, 1e-9)
	assert.InDelta(t, 1.0, report.CatalogCoverage, 1e-9)
}

func TestRunCovisitEndToEnd(t *testing.T) {
	// Three users, each covering the full catalog {A, B, C} in rotated
	// order: every held-out item co-occurs with both train items.
	outcomes := []types.Outcome{
		likeAt("u1", "A", 1), likeAt("u1", "B", 2), likeAt("u1", "C", 3),
		likeAt("u2", "B", 1), likeAt("u2", "C", 2), likeAt("u2", "A", 3),
		likeAt("u3", "C", 1), likeAt("u3", "A", 2), likeAt("u3", "B", 3),
	}

	model, stats := covisit.Train(outcomes, types.TrainingConfig{
		WindowDays: 90,
		TopK:       200,
		Positive:   types.DefaultPositivePolicy(),
	}, evalBase)
	require.Equal(t, 3, stats.Users)

	report, err := Run(Input{Outcomes: outcomes}, evalConfig(5, 1), model, evalBase)
	require.NoError(t, err)

	assert.Equal(t, "covisitation", report.CandidateSource)
	assert.Equal(t, 3, report.UsersEvaluated)
	assert.Equal(t, 3, report.TestPointCount)
	assert.Greater(t, report.HitRate, 0.0)
	assert.InDelta(t, 1.0, report.HitRate, 1e-9)
	assert.InDelta(t, 1.0, report.MRR, 1e-9)
}

func TestRunGenreMetrics(t *testing.T) {
	in := Input{
		Outcomes: popularityFixture(),
		Items: map[string]types.ItemMeta{
			"A": {ID: "A", Genre: "Drama, Crime"},
			"B": {ID: "B", Genre: "Comedy"},
			"C": {ID: "C", Genre: "Horror"},
			"D": {ID: "D", Genre: "Drama"},
		},
	}

	report, err := Run(in, evalConfig(2, 1), nil, evalBase)
	require.NoError(t, err)

	assert.Greater(t, report.Novelty, 0.0)
	assert.GreaterOrEqual(t, report.Diversity, 0.0)
	assert.LessOrEqual(t, report.Diversity, 1.0)
	assert.GreaterOrEqual(t, report.GenreDrift, 0.0)
	assert.LessOrEqual(t, report.GenreDrift, math.Ln2+1e-9)
}

func TestRunNoData(t *testing.T) {
	report, err := Run(Input{}, evalConfig(20, 3), nil, evalBase)
	require.NoError(t, err)

	assert.Equal(t, 0, report.UsersEvaluated)
	assert.Equal(t, 0, report.TestPointCount)
	assert.Zero(t, report.HitRate)
	assert.Zero(t, report.MRR)
	assert.Zero(t, report.CatalogCoverage)
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	_, err := Run(Input{}, evalConfig(0, 1), nil, evalBase)
	assert.Error(t, err)

	_, err = Run(Input{}, evalConfig(20, 0), nil, evalBase)
	assert.Error(t, err)
}
