// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package outcome derives normalized positive/negative signals from raw
// interaction events. Derivation is pure and total: any event shape,
// including malformed numeric fields, yields either an Outcome or
// nothing, never an error.
package outcome

import (
	"math"

	"github.com/meshintel/rec-pipeline/pkg/types"
)

// Derive classifies one interaction event into a normalized Outcome.
// Rules are checked in order, first match wins; an event matching no
// rule is dropped (ok=false), which is intentional filtering rather
// than an error.
func Derive(ev types.InteractionEvent) (types.Outcome, bool) {
	switch ev.EventType {
	case "like":
		return fromEvent(ev, types.OutcomeLike), true

	case "dislike":
		switch payloadAction(ev.Payload) {
		case "not_interested":
			return fromEvent(ev, types.OutcomeNotInterested), true
		case "hide":
			return fromEvent(ev, types.OutcomeHide), true
		default:
			return fromEvent(ev, types.OutcomeDislike), true
		}

	case "watchlist_add":
		return fromEvent(ev, types.OutcomeWatchlistAdd), true

	case "watchlist_remove":
		return fromEvent(ev, types.OutcomeWatchlistRemove), true

	case "watchlist":
		// Bare toggle: the post-event membership decides direction.
		if ev.InWatchlist != nil && *ev.InWatchlist {
			return fromEvent(ev, types.OutcomeWatchlistAdd), true
		}
		return fromEvent(ev, types.OutcomeWatchlistRemove), true

	case "rating", "rating_set":
		if ev.Rating0to10 == nil || !isFinite(*ev.Rating0to10) {
			return types.Outcome{}, false
		}
		return fromEvent(ev, types.OutcomeRating), true

	case "dwell":
		if ev.DwellMs == nil || *ev.DwellMs < 0 {
			return types.Outcome{}, false
		}
		return fromEvent(ev, types.OutcomeDwell), true

	case "skip":
		return fromEvent(ev, types.OutcomeSkip), true

	default:
		return types.Outcome{}, false
	}
}

// fromEvent copies the event's identifying fields into an Outcome of
// the given type.
func fromEvent(ev types.InteractionEvent, ot types.OutcomeType) types.Outcome {
	return types.Outcome{
		ID:          ev.ID,
		UserID:      ev.UserID,
		SessionID:   ev.SessionID,
		DeckID:      ev.DeckID,
		Position:    ev.Position,
		MediaItemID: ev.MediaItemID,
		OutcomeType: ot,
		Source:      ev.Source,
		DwellMs:     ev.DwellMs,
		Rating0to10: ev.Rating0to10,
		InWatchlist: ev.InWatchlist,
		CreatedAt:   ev.CreatedAt,
	}
}

// payloadAction extracts payload["action"] when it is a string.
func payloadAction(payload map[string]any) string {
	if payload == nil {
		return ""
	}
	s, _ := payload["action"].(string)
	return s
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
