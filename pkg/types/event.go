// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the offline
// recommendation pipeline: raw log records produced by the application,
// derived outcomes, the trained co-visitation model, and the documents
// each pipeline stage emits.
package types

import (
	"encoding/json"
	"strings"
	"time"
)

// InteractionEvent is one observed user action from the application's
// interaction log. Events are immutable once logged; the pipeline
// consumes them read-only. Optional numeric and boolean fields are
// pointers so that "absent" is distinguishable from zero.
type InteractionEvent struct {
	// ID is the event's unique identifier in the log store.
	ID string `json:"id"`

	// UserID identifies the acting user.
	UserID string `json:"user_id"`

	// SessionID identifies the client session, when known.
	SessionID string `json:"session_id,omitempty"`

	// DeckID identifies the swipe deck the event originated from.
	DeckID string `json:"deck_id,omitempty"`

	// Position is the item's rank in the list shown to the user (0-based).
	Position *int `json:"position,omitempty"`

	// MediaItemID identifies the media item the event refers to.
	MediaItemID string `json:"media_item_id"`

	// EventType is the free-form action tag (like, dislike, watchlist,
	// watchlist_add, watchlist_remove, rating, rating_set, dwell, skip,
	// impression, ...).
	EventType string `json:"event_type"`

	// Source tags the traffic origin that surfaced the item
	// (e.g. "popular", "for_you", "seg_pop").
	Source string `json:"source,omitempty"`

	// DwellMs is the dwell duration in milliseconds, for dwell events.
	DwellMs *int64 `json:"dwell_ms,omitempty"`

	// Rating0to10 is the rating on a 0-10 scale, for rating events.
	Rating0to10 *float64 `json:"rating_0_10,omitempty"`

	// InWatchlist is the watchlist membership after the event, for
	// bare "watchlist" toggle events.
	InWatchlist *bool `json:"in_watchlist,omitempty"`

	// CreatedAt is the event timestamp assigned by the log store.
	CreatedAt time.Time `json:"created_at"`

	// Payload is an open key-value bag attached by the client.
	Payload map[string]any `json:"payload,omitempty"`
}

// OutcomeType classifies a normalized signal derived from one event.
type OutcomeType string

const (
	OutcomeLike            OutcomeType = "like"
	OutcomeDislike         OutcomeType = "dislike"
	OutcomeNotInterested   OutcomeType = "not_interested"
	OutcomeHide            OutcomeType = "hide"
	OutcomeWatchlistAdd    OutcomeType = "watchlist_add"
	OutcomeWatchlistRemove OutcomeType = "watchlist_remove"
	OutcomeRating          OutcomeType = "rating"
	OutcomeDwell           OutcomeType = "dwell"
	OutcomeSkip            OutcomeType = "skip"
)

// Outcome is a normalized positive/negative signal derived
// deterministically from one InteractionEvent. Identifying fields are
// copied from the source event; RecRequestID is present only on
// outcomes exported from the serving-side log, which joins them to the
// recommendation request.
type Outcome struct {
	ID           string      `json:"id"`
	RecRequestID string      `json:"rec_request_id,omitempty"`
	UserID       string      `json:"user_id"`
	SessionID    string      `json:"session_id,omitempty"`
	DeckID       string      `json:"deck_id,omitempty"`
	Position     *int        `json:"position,omitempty"`
	MediaItemID  string      `json:"media_item_id"`
	OutcomeType  OutcomeType `json:"outcome_type"`
	Source       string      `json:"source,omitempty"`
	DwellMs      *int64      `json:"dwell_ms,omitempty"`
	Rating0to10  *float64    `json:"rating_0_10,omitempty"`
	InWatchlist  *bool       `json:"in_watchlist,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

// Impression records that an item was shown to a user. Impressions are
// denominators for calibration rates only, never positive or negative
// signals themselves.
type Impression struct {
	ID             string          `json:"id"`
	RecRequestID   string          `json:"rec_request_id,omitempty"`
	UserID         string          `json:"user_id"`
	SessionID      string          `json:"session_id,omitempty"`
	DeckID         string          `json:"deck_id,omitempty"`
	MediaItemID    string          `json:"media_item_id"`
	Position       *int            `json:"position,omitempty"`
	Source         string          `json:"source,omitempty"`
	DedupeKey      string          `json:"dedupe_key,omitempty"`
	RequestContext json.RawMessage `json:"request_context,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// ItemMeta is the lightweight per-item metadata used by the evaluator
// for novelty, diversity, and drift metrics.
type ItemMeta struct {
	ID       string `json:"id"`
	Kind     string `json:"kind,omitempty"`
	TMDBID   *int64 `json:"tmdb_id,omitempty"`
	Title    string `json:"omdb_title,omitempty"`
	Year     string `json:"omdb_year,omitempty"`
	Genre    string `json:"omdb_genre,omitempty"`
	Actors   string `json:"omdb_actors,omitempty"`
	Director string `json:"omdb_director,omitempty"`
}

// maxGenresPerItem caps the parsed genre list; upstream metadata is
// occasionally garbage and a runaway list would distort Jaccard scores.
const maxGenresPerItem = 20

// Genres parses the item's genre string (comma or semicolon separated)
// into a lowercased, trimmed list.
func (m ItemMeta) Genres() []string {
	if m.Genre == "" {
		return nil
	}
	fields := strings.FieldsFunc(m.Genre, func(r rune) bool {
		return r == ',' || r == ';'
	})
	genres := make([]string, 0, len(fields))
	for _, f := range fields {
		g := strings.ToLower(strings.TrimSpace(f))
		if g == "" {
			continue
		}
		genres = append(genres, g)
		if len(genres) == maxGenresPerItem {
			break
		}
	}
	return genres
}
