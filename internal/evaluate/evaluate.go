// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package evaluate measures ranking quality of a recommender against
// held-out interactions, using a per-user temporal split so no
// test-period information leaks into training statistics.
package evaluate

import (
	"fmt"
	"sort"
	"time"

	"github.com/meshintel/rec-pipeline/pkg/types"
)

// Input is one evaluator run's data: derived outcomes, optional item
// metadata for genre-based metrics, and the raw-row accounting from
// ingestion.
type Input struct {
	Outcomes    []types.Outcome
	Items       map[string]types.ItemMeta
	RowsRead    int
	RowsSkipped int
}

// userSplit holds one user's temporal train/test partition.
type userSplit struct {
	train []string
	seen  map[string]bool
	test  []string
}

// splitUsers orders each user's positive outcomes by time and reserves
// the most recent testPoints as targets. Users with fewer than two
// positives are excluded: they cannot supply both train and test
// material. Every test item is strictly later than every train item
// for the same user.
func splitUsers(outcomes []types.Outcome, policy types.PositivePolicy, testPoints int) map[string]userSplit {
	type timedItem struct {
		item string
		ts   time.Time
	}
	byUser := make(map[string][]timedItem)
	for _, o := range outcomes {
		if !policy.Positive(o) {
			continue
		}
		if o.UserID == "" || o.MediaItemID == "" || o.CreatedAt.IsZero() {
			continue
		}
		byUser[o.UserID] = append(byUser[o.UserID], timedItem{item: o.MediaItemID, ts: o.CreatedAt})
	}

	splits := make(map[string]userSplit)
	for user, arr := range byUser {
		if len(arr) < 2 {
			continue
		}
		sort.SliceStable(arr, func(i, j int) bool { return arr[i].ts.Before(arr[j].ts) })

		tp := testPoints
		if max := len(arr) - 1; tp > max {
			tp = max
		}

		test := make([]string, 0, tp)
		for _, x := range arr[len(arr)-tp:] {
			test = append(test, x.item)
		}

		seen := make(map[string]bool)
		train := make([]string, 0, len(arr)-tp)
		for _, x := range arr[:len(arr)-tp] {
			if seen[x.item] {
				continue
			}
			seen[x.item] = true
			train = append(train, x.item)
		}
		if len(train) == 0 {
			continue
		}
		splits[user] = userSplit{train: train, seen: seen, test: test}
	}
	return splits
}

// Run evaluates a recommender over the input. A nil model selects the
// train-popularity baseline; otherwise candidates come from the model's
// neighbor lookups. All statistics (popularity table, catalog prior,
// candidate scores) derive from train-split data only.
func Run(in Input, cfg types.EvalConfig, model *types.CoVisitationModel, now time.Time) (types.EvaluationReport, error) {
	if err := cfg.Validate(); err != nil {
		return types.EvaluationReport{}, fmt.Errorf("invalid evaluation config: %w", err)
	}

	splits := splitUsers(in.Outcomes, cfg.Positive, cfg.TestPoints)

	// Popularity counts each (user, item) in train once.
	pop := make(map[string]int)
	for _, sp := range splits {
		for _, item := range sp.train {
			pop[item]++
		}
	}

	var rec Recommender
	if model != nil {
		rec = NewCovisit(model)
	} else {
		rec = NewPopularity(pop)
	}

	catalogGenres := make(map[string]int)
	for _, item := range in.Items {
		for _, g := range item.Genres() {
			catalogGenres[g]++
		}
	}

	var (
		testTotal, hits       int
		mrrSum, ndcgSum, apSum float64
		noveltySum            float64
		slots                 int
		divSum                float64
		divLists              int
	)
	recommended := make(map[string]bool)
	recGenres := make(map[string]int)

	for _, sp := range splits {
		recs := rec.Recommend(sp.train, sp.seen, cfg.K)

		for _, item := range recs {
			recommended[item] = true
			noveltySum += novelty(pop[item])
			slots++
			for _, g := range genresOf(in.Items, item) {
				recGenres[g]++
			}
		}

		// Intra-list diversity over a bounded sample of item pairs.
		pairs := 0
		simSum := 0.0
	sample:
		for i := 0; i < len(recs); i++ {
			for j := i + 1; j < len(recs); j++ {
				simSum += jaccard(genresOf(in.Items, recs[i]), genresOf(in.Items, recs[j]))
				pairs++
				if pairs >= cfg.MaxPairs {
					break sample
				}
			}
		}
		if pairs > 0 {
			divSum += 1 - simSum/float64(pairs)
			divLists++
		}

		for _, target := range sp.test {
			testTotal++
			rank := rankOf(recs, target)
			if rank > 0 {
				hits++
				mrrSum += 1 / float64(rank)
				ndcgSum += ndcgAtK(rank, cfg.K)
				// Average precision with a single relevant item is the
				// precision at the hit rank.
				apSum += 1 / float64(rank)
			}
		}
	}

	// Denominators default to 1 so a no-data run reports zeros instead
	// of dividing by zero; UsersEvaluated makes that case visible.
	denom := float64(testTotal)
	if denom == 0 {
		denom = 1
	}

	report := types.EvaluationReport{
		GeneratedAt:     now.UTC(),
		CandidateSource: rec.Name(),
		K:               cfg.K,
		TestPoints:      cfg.TestPoints,
		RatingThreshold: cfg.Positive.RatingThreshold,
		RowsRead:        in.RowsRead,
		RowsSkipped:     in.RowsSkipped,
		UsersEvaluated:  len(splits),
		TestPointCount:  testTotal,
		TrainItems:      len(pop),
		HitRate:         float64(hits) / denom,
		MRR:             mrrSum / denom,
		NDCG:            ndcgSum / denom,
		MAP:             apSum / denom,
		GenreDrift:      jsDivergence(normalizeCounts(recGenres), normalizeCounts(catalogGenres)),
	}
	if len(pop) > 0 {
		report.CatalogCoverage = float64(len(recommended)) / float64(len(pop))
	}
	if slots > 0 {
		report.Novelty = noveltySum / float64(slots)
	}
	if divLists > 0 {
		report.Diversity = divSum / float64(divLists)
	}
	return report, nil
}

// rankOf returns target's 1-indexed rank in recs, 0 when absent.
func rankOf(recs []string, target string) int {
	for i, item := range recs {
		if item == target {
			return i + 1
		}
	}
	return 0
}

func genresOf(items map[string]types.ItemMeta, id string) []string {
	if items == nil {
		return nil
	}
	return items[id].Genres()
}
