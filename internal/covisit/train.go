// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package covisit trains the item-item co-visitation baseline from
// positive outcomes and reads/writes the model document.
package covisit

import (
	"fmt"
	"sort"
	"time"

	"github.com/meshintel/rec-pipeline/pkg/types"
)

// TrainStats reports input volume for one training run.
type TrainStats struct {
	// Outcomes is the number of outcome rows offered.
	Outcomes int

	// Positives is the number retained as positive with both user and
	// item ids present.
	Positives int

	// Users is the number of users contributing at least one item.
	Users int

	// CappedUsers is the number of users whose history hit
	// MaxUserItems.
	CappedUsers int
}

// Train builds a co-visitation model from outcomes. All accumulator
// state is local to the call; each run recomputes the model wholesale.
//
// Per user, positive items are de-duplicated so one hyperactive user
// cannot dominate the graph, then every ordered pair of distinct items
// adds weight 1. Popularity counts each (user, item) once. The pair
// loop is O(n^2) in a user's distinct positive items; cfg.MaxUserItems
// bounds n by keeping only the most recent distinct items. With the cap
// disabled the lookback window is the only bound, which is the accepted
// trade-off for this baseline.
func Train(outcomes []types.Outcome, cfg types.TrainingConfig, now time.Time) (*types.CoVisitationModel, TrainStats) {
	stats := TrainStats{Outcomes: len(outcomes)}

	type timedItem struct {
		item string
		ts   time.Time
	}
	byUser := make(map[string][]timedItem)
	for _, o := range outcomes {
		if !cfg.Positive.Positive(o) {
			continue
		}
		if o.UserID == "" || o.MediaItemID == "" {
			continue
		}
		stats.Positives++
		byUser[o.UserID] = append(byUser[o.UserID], timedItem{item: o.MediaItemID, ts: o.CreatedAt})
	}

	pairWeights := make(map[string]map[string]float64)
	popularity := make(map[string]int)

	for _, history := range byUser {
		sort.SliceStable(history, func(i, j int) bool {
			return history[i].ts.Before(history[j].ts)
		})

		// De-duplicate keeping first occurrence order, then keep the
		// most recent cfg.MaxUserItems distinct items.
		seen := make(map[string]bool, len(history))
		uniq := make([]string, 0, len(history))
		for _, h := range history {
			if seen[h.item] {
				continue
			}
			seen[h.item] = true
			uniq = append(uniq, h.item)
		}
		if cfg.MaxUserItems > 0 && len(uniq) > cfg.MaxUserItems {
			uniq = uniq[len(uniq)-cfg.MaxUserItems:]
			stats.CappedUsers++
		}
		if len(uniq) == 0 {
			continue
		}
		stats.Users++

		for _, item := range uniq {
			popularity[item]++
		}
		for i, a := range uniq {
			for j, b := range uniq {
				if i == j {
					continue
				}
				m := pairWeights[a]
				if m == nil {
					m = make(map[string]float64)
					pairWeights[a] = m
				}
				m[b]++
			}
		}
	}

	itemTop := make(map[string][]types.Neighbor, len(pairWeights))
	for item, weights := range pairWeights {
		neighbors := make([]types.Neighbor, 0, len(weights))
		for other, w := range weights {
			neighbors = append(neighbors, types.Neighbor{ItemID: other, Weight: w})
		}
		// Weight descending, item id ascending on ties, so repeated
		// runs emit identical documents.
		sort.SliceStable(neighbors, func(i, j int) bool {
			if neighbors[i].Weight != neighbors[j].Weight {
				return neighbors[i].Weight > neighbors[j].Weight
			}
			return neighbors[i].ItemID < neighbors[j].ItemID
		})
		if len(neighbors) > cfg.TopK {
			neighbors = neighbors[:cfg.TopK]
		}
		itemTop[item] = neighbors
	}

	model := &types.CoVisitationModel{
		Kind:        types.ModelKindCovisitation,
		GeneratedAt: now.UTC(),
		WindowDays:  cfg.WindowDays,
		TopK:        cfg.TopK,
		ItemTop:     itemTop,
		Popularity:  popularity,
	}
	return model, stats
}

// Validate checks a loaded model document before use.
func Validate(m *types.CoVisitationModel) error {
	if m.Kind != types.ModelKindCovisitation {
		return fmt.Errorf("unsupported model kind %q (want %s)", m.Kind, types.ModelKindCovisitation)
	}
	if m.ItemTop == nil {
		return fmt.Errorf("model has no item neighbor table")
	}
	return nil
}
