// Reelsense - Contextual Media Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/reelsense/internal/recommend"
)

// ListInteractions returns the user's title states joined with their titles,
// most recent interaction first.
func (db *DB) ListInteractions(ctx context.Context, userID string) (out []recommend.Interaction, err error) {
	start := time.Now()
	defer func() { observe("select", "user_title_states", start, err) }()

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT s.user_id, s.status, s.liked, s.disliked, s.source, s.last_interaction,
		t.id, t.external_id, t.media_type, t.original_title, t.display_title, t.overview,
		t.year, t.runtime, t.rating, t.popularity, t.genres, t.countries, t.original_language,
		t.adult, t.metadata, t.updated_at
	FROM user_title_states s
	JOIN titles t ON t.id = s.title_id
	WHERE s.user_id = ?
	ORDER BY s.last_interaction DESC, s.title_id`

	rows, err := db.conn.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query interactions: %w", err)
	}
	defer closeWithLog(rows, "rows")

	for rows.Next() {
		var (
			in             recommend.Interaction
			status, source string
		)
		row := &prefixScanner{rows: rows, prefix: []any{
			&in.UserID, &status, &in.Liked, &in.Disliked, &source, &in.LastInteraction,
		}}
		title, err := scanTitle(row)
		if err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		in.Status = recommend.Status(status)
		in.Source = recommend.Source(source)
		in.LastInteraction = in.LastInteraction.UTC()
		in.Title = *title
		in.TitleID = title.ID
		out = append(out, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interactions: %w", err)
	}
	return out, nil
}

// UpsertState inserts or replaces the user's state for one title.
func (db *DB) UpsertState(ctx context.Context, st recommend.UserTitleState) (err error) {
	start := time.Now()
	defer func() { observe("upsert", "user_title_states", start, err) }()

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	source := st.Source
	if source == "" {
		source = recommend.SourceManual
	}
	query := `INSERT INTO user_title_states
		(user_id, title_id, status, liked, disliked, source, last_interaction)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, title_id) DO UPDATE SET
			status = EXCLUDED.status,
			liked = EXCLUDED.liked,
			disliked = EXCLUDED.disliked,
			source = EXCLUDED.source,
			last_interaction = EXCLUDED.last_interaction`

	_, err = db.conn.ExecContext(ctx, query, st.UserID, st.TitleID, string(st.Status),
		st.Liked, st.Disliked, string(source), st.LastInteraction.UTC())
	if err != nil {
		return wrapWriteError("upsert title state", err)
	}
	return nil
}

// GetStates returns the user's states for the given titles keyed by title id.
func (db *DB) GetStates(ctx context.Context, userID string, titleIDs []string) (out map[string]recommend.UserTitleState, err error) {
	start := time.Now()
	defer func() { observe("select", "user_title_states", start, err) }()

	out = make(map[string]recommend.UserTitleState, len(titleIDs))
	if len(titleIDs) == 0 {
		return out, nil
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	args := make([]any, 0, len(titleIDs)+1)
	args = append(args, userID)
	for _, id := range titleIDs {
		args = append(args, id)
	}
	query := `SELECT user_id, title_id, status, liked, disliked, source, last_interaction
		FROM user_title_states
		WHERE user_id = ? AND title_id IN (` + placeholders(len(titleIDs)) + `)`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query title states: %w", err)
	}
	defer closeWithLog(rows, "rows")

	for rows.Next() {
		var (
			st             recommend.UserTitleState
			status, source string
		)
		if err := rows.Scan(&st.UserID, &st.TitleID, &status, &st.Liked, &st.Disliked, &source, &st.LastInteraction); err != nil {
			return nil, fmt.Errorf("scan title state: %w", err)
		}
		st.Status = recommend.Status(status)
		st.Source = recommend.Source(source)
		st.LastInteraction = st.LastInteraction.UTC()
		out[st.TitleID] = st
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate title states: %w", err)
	}
	return out, nil
}

// prefixScanner scans a fixed set of leading columns into prefix and hands
// the remaining destinations to the caller's Scan.
type prefixScanner struct {
	rows interface {
		Scan(dest ...any) error
	}
	prefix []any
}

func (p *prefixScanner) Scan(dest ...any) error {
	all := make([]any, 0, len(p.prefix)+len(dest))
	all = append(all, p.prefix...)
	all = append(all, dest...)
	return p.rows.Scan(all...)
}
