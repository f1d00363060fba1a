// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// ModelKindCovisitation is the versioned kind literal written into
// co-visitation model documents.
const ModelKindCovisitation = "covisitation_v1"

// Neighbor is one (item, accumulated weight) entry in a model's
// neighbor list. It marshals as a two-element array ["itemId", weight]
// so the document stays compatible with the online ranker's loader.
type Neighbor struct {
	ItemID string
	Weight float64
}

// MarshalJSON encodes the neighbor as ["itemId", weight].
func (n Neighbor) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{n.ItemID, n.Weight})
}

// UnmarshalJSON decodes a ["itemId", weight] pair.
func (n *Neighbor) UnmarshalJSON(data []byte) error {
	var pair [2]json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("neighbor pair: %w", err)
	}
	if err := json.Unmarshal(pair[0], &n.ItemID); err != nil {
		return fmt.Errorf("neighbor item id: %w", err)
	}
	if err := json.Unmarshal(pair[1], &n.Weight); err != nil {
		return fmt.Errorf("neighbor weight: %w", err)
	}
	return nil
}

// CoVisitationModel is the trained item-item affinity artifact.
// Immutable once written; each training run regenerates it wholesale.
//
// Invariant: every neighbor list has length <= TopK and is sorted by
// weight descending, with ties broken by item id ascending so repeated
// runs over the same data produce byte-identical documents.
//
// Field names are camelCase in JSON: this document is read by the
// online blending layer, which predates the snake_case log exports.
type CoVisitationModel struct {
	// Kind is the versioned model literal (ModelKindCovisitation).
	Kind string `json:"kind"`

	// GeneratedAt is the training run's wall-clock time.
	GeneratedAt time.Time `json:"generatedAt"`

	// WindowDays is the training lookback applied to the input.
	WindowDays int `json:"windowDays"`

	// TopK is the maximum number of neighbors kept per item.
	TopK int `json:"topK"`

	// ItemTop maps each source item to its strongest co-visited
	// neighbors, strongest first.
	ItemTop map[string][]Neighbor `json:"itemTop"`

	// Popularity counts, per item, the users who positively interacted
	// with it inside the window.
	Popularity map[string]int `json:"popularity"`
}
