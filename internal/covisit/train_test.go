// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package covisit

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshintel/rec-pipeline/pkg/types"
)

func testCfg() types.TrainingConfig {
	return types.TrainingConfig{
		WindowDays: 90,
		TopK:       200,
		Positive:   types.DefaultPositivePolicy(),
	}
}

func like(user, item string, ts time.Time) types.Outcome {
	return types.Outcome{
		UserID:      user,
		MediaItemID: item,
		OutcomeType: types.OutcomeLike,
		CreatedAt:   ts,
	}
}

func rated(user, item string, rating float64, ts time.Time) types.Outcome {
	return types.Outcome{
		UserID:      user,
		MediaItemID: item,
		OutcomeType: types.OutcomeRating,
		Rating0to10: &rating,
		CreatedAt:   ts,
	}
}

var t0 = time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

func TestTrainSingleUserTriple(t *testing.T) {
	outcomes := []types.Outcome{
		like("u1", "A", t0),
		like("u1", "B", t0.Add(time.Minute)),
		like("u1", "C", t0.Add(2*time.Minute)),
	}

	model, stats := Train(outcomes, testCfg(), t0)

	assert.Equal(t, types.ModelKindCovisitation, model.Kind)
	assert.Equal(t, 90, model.WindowDays)
	assert.Equal(t, 200, model.TopK)
	assert.Equal(t, 1, stats.Users)
	assert.Equal(t, 3, stats.Positives)

	for _, item := range []string{"A", "B", "C"} {
		assert.Equal(t, 1, model.Popularity[item], "popularity of %s", item)
		require.Len(t, model.ItemTop[item], 2, "neighbors of %s", item)
		for _, n := range model.ItemTop[item] {
			assert.Equal(t, 1.0, n.Weight)
			assert.NotEqual(t, item, n.ItemID, "no self-neighbors")
		}
	}
}

func TestTrainDeduplicatesPerUser(t *testing.T) {
	// u1 likes A five times: weight toward B must still be 1, and
	// popularity counts the user once.
	outcomes := []types.Outcome{
		like("u1", "A", t0),
		like("u1", "A", t0.Add(1*time.Minute)),
		like("u1", "A", t0.Add(2*time.Minute)),
		like("u1", "A", t0.Add(3*time.Minute)),
		like("u1", "A", t0.Add(4*time.Minute)),
		like("u1", "B", t0.Add(5*time.Minute)),
	}

	model, _ := Train(outcomes, testCfg(), t0)

	assert.Equal(t, 1, model.Popularity["A"])
	require.Len(t, model.ItemTop["A"], 1)
	assert.Equal(t, types.Neighbor{ItemID: "B", Weight: 1}, model.ItemTop["A"][0])
}

func TestTrainFiltersNonPositivesAndDegenerateRows(t *testing.T) {
	outcomes := []types.Outcome{
		like("u1", "A", t0),
		rated("u1", "B", 9, t0.Add(time.Minute)),
		rated("u1", "C", 4, t0.Add(2*time.Minute)),                                  // below threshold
		{UserID: "u1", MediaItemID: "D", OutcomeType: types.OutcomeSkip, CreatedAt: t0}, // negative
		{UserID: "", MediaItemID: "E", OutcomeType: types.OutcomeLike, CreatedAt: t0},   // no user
		{UserID: "u1", MediaItemID: "", OutcomeType: types.OutcomeLike, CreatedAt: t0},  // no item
	}

	model, stats := Train(outcomes, testCfg(), t0)

	assert.Equal(t, 2, stats.Positives)
	assert.ElementsMatch(t, []string{"A", "B"}, keys(model.Popularity))
}

func TestTrainOrderIndependent(t *testing.T) {
	a := []types.Outcome{
		like("u1", "A", t0), like("u1", "B", t0.Add(time.Minute)),
		like("u2", "B", t0), like("u2", "C", t0.Add(time.Minute)),
		like("u3", "A", t0), like("u3", "C", t0.Add(time.Minute)),
	}
	b := make([]types.Outcome, len(a))
	copy(b, a)
	// Reverse the input; accumulation must commute.
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}

	m1, _ := Train(a, testCfg(), t0)
	m2, _ := Train(b, testCfg(), t0)

	assert.Equal(t, m1.Popularity, m2.Popularity)
	assert.Equal(t, m1.ItemTop, m2.ItemTop)
}

func TestTrainTopKTruncationIsDeterministic(t *testing.T) {
	// B co-occurs with A twice; C, D, E once each. topK=2 keeps B plus
	// the tied neighbor with the smallest id.
	outcomes := []types.Outcome{
		like("u1", "A", t0), like("u1", "B", t0.Add(time.Minute)),
		like("u2", "A", t0), like("u2", "B", t0.Add(time.Minute)),
		like("u3", "A", t0), like("u3", "C", t0.Add(time.Minute)),
		like("u4", "A", t0), like("u4", "D", t0.Add(time.Minute)),
		like("u5", "A", t0), like("u5", "E", t0.Add(time.Minute)),
	}

	cfg := testCfg()
	cfg.TopK = 2
	model, _ := Train(outcomes, cfg, t0)

	require.Len(t, model.ItemTop["A"], 2)
	assert.Equal(t, types.Neighbor{ItemID: "B", Weight: 2}, model.ItemTop["A"][0])
	assert.Equal(t, types.Neighbor{ItemID: "C", Weight: 1}, model.ItemTop["A"][1])
}

func TestTrainMaxUserItemsKeepsMostRecent(t *testing.T) {
	outcomes := []types.Outcome{
		like("u1", "A", t0),
		like("u1", "B", t0.Add(time.Minute)),
		like("u1", "C", t0.Add(2*time.Minute)),
		like("u1", "D", t0.Add(3*time.Minute)),
	}

	cfg := testCfg()
	cfg.MaxUserItems = 2
	model, stats := Train(outcomes, cfg, t0)

	assert.Equal(t, 1, stats.CappedUsers)
	assert.ElementsMatch(t, []string{"C", "D"}, keys(model.Popularity))
}

func TestModelRoundTrip(t *testing.T) {
	outcomes := []types.Outcome{
		like("u1", "A", t0), like("u1", "B", t0.Add(time.Minute)),
		like("u2", "A", t0), like("u2", "C", t0.Add(time.Minute)),
	}
	model, _ := Train(outcomes, testCfg(), t0)

	path := filepath.Join(t.TempDir(), "covisit_model.json")
	require.NoError(t, SaveModel(model, path))

	loaded, err := LoadModel(path)
	require.NoError(t, err)

	assert.Equal(t, model.Kind, loaded.Kind)
	assert.True(t, model.GeneratedAt.Equal(loaded.GeneratedAt))
	assert.Equal(t, model.WindowDays, loaded.WindowDays)
	assert.Equal(t, model.TopK, loaded.TopK)
	assert.Equal(t, model.ItemTop, loaded.ItemTop)
	assert.Equal(t, model.Popularity, loaded.Popularity)
}

func TestLoadModelRejectsWrongKind(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, SaveModel(&types.CoVisitationModel{
		Kind:    "als_v2",
		ItemTop: map[string][]types.Neighbor{},
	}, path))

	_, err := LoadModel(path)
	require.Error(t, err)
}

func keys(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
