// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export pulls interaction events, impressions, and item
// metadata out of the application's log store into JSONL files the
// other pipeline stages consume. Pagination is keyset-based on
// (created_at, id) so an export stays duplicate-free while the store
// keeps receiving inserts.
package export

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/meshintel/rec-pipeline/internal/jsonl"
	"github.com/meshintel/rec-pipeline/pkg/types"
)

const progressEvery = 5000

// Store is a read-only handle on the interaction-log SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens the log store database at path in read-only mode.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening log store: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening log store %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Stats reports rows fetched from the store versus rows dropped as
// malformed during one table export.
type Stats struct {
	Rows    int
	Skipped int
}

// Usable returns the number of rows actually written.
func (st Stats) Usable() int { return st.Rows - st.Skipped }

// ExportEvents streams media_events rows created at or after since into
// w, oldest first. Rows with an unparseable timestamp or without a user
// are counted and skipped; the cursor still advances past them.
func (s *Store) ExportEvents(ctx context.Context, w *jsonl.Writer, since time.Time, pageSize int, progress io.Writer) (Stats, error) {
	var stats Stats
	sinceStr := timestamp(since)
	curCreated, curID := "", ""

	for {
		rows, err := s.db.QueryContext(ctx,
			`SELECT id, user_id, session_id, deck_id, position, media_item_id,
			        event_type, source, dwell_ms, rating_0_10, in_watchlist,
			        created_at, payload
			 FROM media_events
			 WHERE created_at >= ? AND (created_at, id) > (?, ?)
			 ORDER BY created_at, id
			 LIMIT ?`,
			sinceStr, curCreated, curID, pageSize)
		if err != nil {
			return stats, fmt.Errorf("querying media_events: %w", err)
		}

		fetched := 0
		err = scanAll(rows, func() error {
			var (
				id, createdAt                              string
				userID, sessionID, deckID                  sql.NullString
				mediaItemID, eventType, source, payload    sql.NullString
				position, dwellMs                          sql.NullInt64
				rating                                     sql.NullFloat64
				inWatchlist                                sql.NullBool
			)
			if err := rows.Scan(&id, &userID, &sessionID, &deckID, &position,
				&mediaItemID, &eventType, &source, &dwellMs, &rating,
				&inWatchlist, &createdAt, &payload); err != nil {
				return fmt.Errorf("scanning media_events row: %w", err)
			}
			fetched++
			curCreated, curID = createdAt, id

			ts, tsErr := parseTimestamp(createdAt)
			if tsErr != nil || !userID.Valid || userID.String == "" {
				stats.Skipped++
				return nil
			}
			ev := types.InteractionEvent{
				ID:          id,
				UserID:      userID.String,
				SessionID:   sessionID.String,
				DeckID:      deckID.String,
				Position:    nullableInt(position),
				MediaItemID: mediaItemID.String,
				EventType:   eventType.String,
				Source:      source.String,
				DwellMs:     nullableInt64(dwellMs),
				Rating0to10: nullableFloat(rating),
				InWatchlist: nullableBool(inWatchlist),
				CreatedAt:   ts,
				Payload:     parsePayload(payload),
			}
			return w.Write(ev)
		})
		if err != nil {
			return stats, err
		}

		stats.Rows += fetched
		report(progress, "media_events", stats.Rows, fetched)
		if fetched < pageSize {
			break
		}
	}
	return stats, nil
}

// ExportImpressions streams rec_impressions rows created at or after
// since into w, oldest first.
func (s *Store) ExportImpressions(ctx context.Context, w *jsonl.Writer, since time.Time, pageSize int, progress io.Writer) (Stats, error) {
	var stats Stats
	sinceStr := timestamp(since)
	curCreated, curID := "", ""

	for {
		rows, err := s.db.QueryContext(ctx,
			`SELECT id, rec_request_id, user_id, session_id, deck_id,
			        media_item_id, position, source, dedupe_key,
			        request_context, created_at
			 FROM rec_impressions
			 WHERE created_at >= ? AND (created_at, id) > (?, ?)
			 ORDER BY created_at, id
			 LIMIT ?`,
			sinceStr, curCreated, curID, pageSize)
		if err != nil {
			return stats, fmt.Errorf("querying rec_impressions: %w", err)
		}

		fetched := 0
		err = scanAll(rows, func() error {
			var (
				id, createdAt                             string
				recRequestID, userID, sessionID, deckID   sql.NullString
				mediaItemID, source, dedupeKey, reqCtx    sql.NullString
				position                                  sql.NullInt64
			)
			if err := rows.Scan(&id, &recRequestID, &userID, &sessionID,
				&deckID, &mediaItemID, &position, &source, &dedupeKey,
				&reqCtx, &createdAt); err != nil {
				return fmt.Errorf("scanning rec_impressions row: %w", err)
			}
			fetched++
			curCreated, curID = createdAt, id

			ts, tsErr := parseTimestamp(createdAt)
			if tsErr != nil || !userID.Valid || userID.String == "" {
				stats.Skipped++
				return nil
			}
			imp := types.Impression{
				ID:           id,
				RecRequestID: recRequestID.String,
				UserID:       userID.String,
				SessionID:    sessionID.String,
				DeckID:       deckID.String,
				MediaItemID:  mediaItemID.String,
				Position:     nullableInt(position),
				Source:       source.String,
				DedupeKey:    dedupeKey.String,
				CreatedAt:    ts,
			}
			if reqCtx.Valid && json.Valid([]byte(reqCtx.String)) {
				imp.RequestContext = json.RawMessage(reqCtx.String)
			}
			return w.Write(imp)
		})
		if err != nil {
			return stats, err
		}

		stats.Rows += fetched
		report(progress, "rec_impressions", stats.Rows, fetched)
		if fetched < pageSize {
			break
		}
	}
	return stats, nil
}

// ExportItems streams the full media_items table into w, paginated on
// id. Item metadata is small and carries no timestamp, so no time bound
// applies.
func (s *Store) ExportItems(ctx context.Context, w *jsonl.Writer, pageSize int, progress io.Writer) (Stats, error) {
	var stats Stats
	curID := ""

	for {
		rows, err := s.db.QueryContext(ctx,
			`SELECT id, kind, tmdb_id, omdb_title, omdb_year, omdb_genre,
			        omdb_actors, omdb_director
			 FROM media_items
			 WHERE id > ?
			 ORDER BY id
			 LIMIT ?`,
			curID, pageSize)
		if err != nil {
			return stats, fmt.Errorf("querying media_items: %w", err)
		}

		fetched := 0
		err = scanAll(rows, func() error {
			var (
				id                                     string
				kind, title, year, genre, actors, dir  sql.NullString
				tmdbID                                 sql.NullInt64
			)
			if err := rows.Scan(&id, &kind, &tmdbID, &title, &year, &genre,
				&actors, &dir); err != nil {
				return fmt.Errorf("scanning media_items row: %w", err)
			}
			fetched++
			curID = id

			item := types.ItemMeta{
				ID:       id,
				Kind:     kind.String,
				TMDBID:   nullableInt64(tmdbID),
				Title:    title.String,
				Year:     year.String,
				Genre:    genre.String,
				Actors:   actors.String,
				Director: dir.String,
			}
			return w.Write(item)
		})
		if err != nil {
			return stats, err
		}

		stats.Rows += fetched
		report(progress, "media_items", stats.Rows, fetched)
		if fetched < pageSize {
			break
		}
	}
	return stats, nil
}

// scanAll drives rows.Next over one page, closing rows on exit.
func scanAll(rows *sql.Rows, scan func() error) error {
	defer rows.Close()
	for rows.Next() {
		if err := scan(); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating rows: %w", err)
	}
	return nil
}

func report(progress io.Writer, table string, total, fetched int) {
	if progress == nil {
		return
	}
	// Only chatter on page boundaries of large exports.
	if total/progressEvery != (total-fetched)/progressEvery {
		fmt.Fprintf(progress, "... %s: %d rows\n", table, total)
	}
}

// timestamp renders a bound the way the log store writes created_at.
func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTimestamp accepts the timestamp shapes observed in the log
// store: RFC 3339 with or without fractional seconds, and the plain
// "YYYY-MM-DD HH:MM:SS" SQLite default.
func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05.999999999",
		"2006-01-02 15:04:05",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func nullableInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func nullableInt64(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func nullableFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullableBool(v sql.NullBool) *bool {
	if !v.Valid {
		return nil
	}
	b := v.Bool
	return &b
}

func parsePayload(v sql.NullString) map[string]any {
	if !v.Valid || v.String == "" {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(v.String), &m); err != nil {
		return nil
	}
	return m
}
