// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evaluate

import "math"

// dcg is the discounted-gain contribution of a single relevant item at
// a 1-indexed rank.
func dcg(rank int) float64 {
	return 1 / math.Log2(float64(rank)+1)
}

// ndcgAtK scores a single-relevant-item list: the DCG at the hit rank
// normalized by the ideal (rank 1) value. Zero when the target is
// outside the top k.
func ndcgAtK(rank, k int) float64 {
	if rank < 1 || rank > k {
		return 0
	}
	return dcg(rank) / dcg(1)
}

// novelty is the inverse-log-popularity of an item: higher for items
// fewer users have positively interacted with.
func novelty(popCount int) float64 {
	return 1 / math.Log2(float64(2+popCount))
}

// jaccard computes set similarity of two genre lists. Two empty sets
// are defined as identical (1).
func jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	setA := make(map[string]bool, len(a))
	for _, x := range a {
		setA[x] = true
	}
	setB := make(map[string]bool, len(b))
	for _, x := range b {
		setB[x] = true
	}
	inter := 0
	for x := range setA {
		if setB[x] {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// normalizeCounts converts a count map into a probability distribution.
func normalizeCounts(counts map[string]int) map[string]float64 {
	total := 0
	for _, v := range counts {
		total += v
	}
	out := make(map[string]float64, len(counts))
	for k, v := range counts {
		if total > 0 {
			out[k] = float64(v) / float64(total)
		} else {
			out[k] = 0
		}
	}
	return out
}

// jsDivergence is the Jensen-Shannon divergence between p and q in
// nats, bounded [0, ln 2]. Zero-probability terms contribute nothing
// rather than producing log(0).
func jsDivergence(p, q map[string]float64) float64 {
	keys := make(map[string]bool, len(p)+len(q))
	for k := range p {
		keys[k] = true
	}
	for k := range q {
		keys[k] = true
	}

	m := make(map[string]float64, len(keys))
	for k := range keys {
		m[k] = 0.5 * (p[k] + q[k])
	}

	kl := func(a, b map[string]float64) float64 {
		sum := 0.0
		for k := range keys {
			x, y := a[k], b[k]
			if x > 0 && y > 0 {
				sum += x * math.Log(x/y)
			}
		}
		return sum
	}
	return 0.5*kl(p, m) + 0.5*kl(q, m)
}
