// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evaluate

import (
	"sort"

	"github.com/meshintel/rec-pipeline/pkg/types"
)

// Recommender ranks candidate items for one user from that user's
// train-split history. Implementations must never return items in seen.
type Recommender interface {
	Name() string
	Recommend(train []string, seen map[string]bool, k int) []string
}

// Popularity recommends globally popular train items the user has not
// interacted with. The ranking ignores the user's history beyond the
// seen filter.
type Popularity struct {
	ranked []string
}

// NewPopularity builds the baseline from train-split popularity counts.
func NewPopularity(pop map[string]int) *Popularity {
	ranked := make([]string, 0, len(pop))
	for item := range pop {
		ranked = append(ranked, item)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if pop[ranked[i]] != pop[ranked[j]] {
			return pop[ranked[i]] > pop[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})
	return &Popularity{ranked: ranked}
}

// Name implements Recommender.
func (p *Popularity) Name() string { return "popularity" }

// Recommend implements Recommender.
func (p *Popularity) Recommend(_ []string, seen map[string]bool, k int) []string {
	recs := make([]string, 0, k)
	for _, item := range p.ranked {
		if seen[item] {
			continue
		}
		recs = append(recs, item)
		if len(recs) == k {
			break
		}
	}
	return recs
}

// Covisit scores candidates by summing the model's neighbor weights
// over every train item, excluding items the user already interacted
// with.
type Covisit struct {
	model *types.CoVisitationModel
}

// NewCovisit wraps a trained model as a Recommender.
func NewCovisit(m *types.CoVisitationModel) *Covisit {
	return &Covisit{model: m}
}

// Name implements Recommender.
func (c *Covisit) Name() string { return "covisitation" }

// Recommend implements Recommender.
func (c *Covisit) Recommend(train []string, seen map[string]bool, k int) []string {
	scores := make(map[string]float64)
	for _, item := range train {
		for _, n := range c.model.ItemTop[item] {
			if seen[n.ItemID] {
				continue
			}
			scores[n.ItemID] += n.Weight
		}
	}

	ranked := make([]string, 0, len(scores))
	for item := range scores {
		ranked = append(ranked, item)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if scores[ranked[i]] != scores[ranked[j]] {
			return scores[ranked[i]] > scores[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})
	if len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}
