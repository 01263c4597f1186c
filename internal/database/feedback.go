// Reelsense - Contextual Media Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tomtom215/reelsense/internal/recommend"
)

// RecordFeedback appends a feedback event.
func (db *DB) RecordFeedback(ctx context.Context, e *recommend.FeedbackEvent) (err error) {
	start := time.Now()
	defer func() { observe("insert", "feedback_events", start, err) }()

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	_, err = db.conn.ExecContext(ctx, `INSERT INTO feedback_events
		(id, user_id, title_id, value, verdict, context, session_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.TitleID, e.Value, string(e.Verdict), e.Context,
		nullString(e.SessionID), e.CreatedAt.UTC())
	if err != nil {
		return wrapWriteError("insert feedback", err)
	}
	return nil
}

// ListFeedback returns the user's most recent feedback events, newest first.
func (db *DB) ListFeedback(ctx context.Context, userID string, limit int) (out []recommend.FeedbackEvent, err error) {
	start := time.Now()
	defer func() { observe("select", "feedback_events", start, err) }()

	if limit <= 0 {
		return nil, nil
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `SELECT id, user_id, title_id, value, verdict, context, session_id, created_at
		FROM feedback_events WHERE user_id = ?
		ORDER BY created_at DESC, id
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query feedback: %w", err)
	}
	defer closeWithLog(rows, "rows")

	for rows.Next() {
		var (
			e         recommend.FeedbackEvent
			verdict   string
			sessionID sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.TitleID, &e.Value, &verdict, &e.Context, &sessionID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		e.Verdict = recommend.Verdict(verdict)
		e.SessionID = sessionID.String
		e.CreatedAt = e.CreatedAt.UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feedback: %w", err)
	}
	return out, nil
}

var (
	_ recommend.InteractionStore = (*DB)(nil)
	_ recommend.TitleStore       = (*DB)(nil)
	_ recommend.SnapshotStore    = (*DB)(nil)
	_ recommend.SessionStore     = (*DB)(nil)
	_ recommend.ExperimentStore  = (*DB)(nil)
	_ recommend.FeedbackStore    = (*DB)(nil)
)
