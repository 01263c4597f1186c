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

	"github.com/goccy/go-json"

	"github.com/tomtom215/reelsense/internal/recommend"
)

const itemColumns = `id, session_id, title_id, rank, score, signals, role, replaced, created_at`

// CreateSession stores a recommendation session.
func (db *DB) CreateSession(ctx context.Context, s *recommend.Session) (err error) {
	start := time.Now()
	defer func() { observe("insert", "recommendation_sessions", start, err) }()

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	contextJSON, err := json.Marshal(s.Context)
	if err != nil {
		return fmt.Errorf("encode session context: %w", err)
	}
	var experiment sql.NullString
	if s.Experiment != nil {
		b, err := json.Marshal(s.Experiment)
		if err != nil {
			return fmt.Errorf("encode session experiment: %w", err)
		}
		experiment = sql.NullString{String: string(b), Valid: true}
	}

	_, err = db.conn.ExecContext(ctx, `INSERT INTO recommendation_sessions
		(id, user_id, context, variant, experiment, mode, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, string(contextJSON), s.Variant, experiment, nullString(s.Mode), s.CreatedAt.UTC())
	if err != nil {
		return wrapWriteError("insert session", err)
	}
	return nil
}

// GetSession returns a session by id or recommend.ErrNotFound.
func (db *DB) GetSession(ctx context.Context, id string) (s *recommend.Session, err error) {
	start := time.Now()
	defer func() { observe("select", "recommendation_sessions", start, err) }()

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var (
		out         recommend.Session
		contextJSON string
		experiment  sql.NullString
		mode        sql.NullString
	)
	err = db.conn.QueryRowContext(ctx, `SELECT id, user_id, context, variant, experiment, mode, created_at
		FROM recommendation_sessions WHERE id = ?`, id).
		Scan(&out.ID, &out.UserID, &contextJSON, &out.Variant, &experiment, &mode, &out.CreatedAt)
	if err != nil {
		return nil, wrapReadError("get session "+id, err)
	}
	if err := json.Unmarshal([]byte(contextJSON), &out.Context); err != nil {
		return nil, fmt.Errorf("decode session context: %w", err)
	}
	if experiment.Valid && experiment.String != "" {
		var a recommend.Assignment
		if err := json.Unmarshal([]byte(experiment.String), &a); err != nil {
			return nil, fmt.Errorf("decode session experiment: %w", err)
		}
		out.Experiment = &a
	}
	out.Mode = mode.String
	out.CreatedAt = out.CreatedAt.UTC()
	return &out, nil
}

// CreateItems stores all items of a freshly served session in one
// transaction.
func (db *DB) CreateItems(ctx context.Context, items []recommend.SessionItem) (err error) {
	start := time.Now()
	defer func() { observe("insert", "recommendation_items", start, err) }()

	if len(items) == 0 {
		return nil
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin items transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for i := range items {
		if err = insertItem(ctx, tx, &items[i]); err != nil {
			return err
		}
	}
	if err = tx.Commit(); err != nil {
		return wrapWriteError("commit items", err)
	}
	return nil
}

// CreateItem stores one item. A second item for the same (session, title)
// returns recommend.ErrConflict.
func (db *DB) CreateItem(ctx context.Context, item *recommend.SessionItem) (err error) {
	start := time.Now()
	defer func() { observe("insert", "recommendation_items", start, err) }()

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	return insertItem(ctx, db.conn, item)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertItem(ctx context.Context, ex execer, item *recommend.SessionItem) error {
	signals, err := json.Marshal(item.Signals)
	if err != nil {
		return fmt.Errorf("encode item signals: %w", err)
	}
	_, err = ex.ExecContext(ctx, `INSERT INTO recommendation_items (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.SessionID, item.TitleID, item.Rank, item.Score, string(signals),
		nullString(item.Role), item.Replaced, item.CreatedAt.UTC())
	if err != nil {
		return wrapWriteError(fmt.Sprintf("insert item %s/%s", item.SessionID, item.TitleID), err)
	}
	return nil
}

// ListItems returns the session's items in rank order.
func (db *DB) ListItems(ctx context.Context, sessionID string) (out []recommend.SessionItem, err error) {
	start := time.Now()
	defer func() { observe("select", "recommendation_items", start, err) }()

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `SELECT `+itemColumns+`
		FROM recommendation_items WHERE session_id = ? ORDER BY rank, created_at`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query session items: %w", err)
	}
	defer closeWithLog(rows, "rows")

	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session items: %w", err)
	}
	return out, nil
}

// FindItem returns the item for (session, title) or recommend.ErrNotFound.
func (db *DB) FindItem(ctx context.Context, sessionID, titleID string) (item *recommend.SessionItem, err error) {
	start := time.Now()
	defer func() { observe("select", "recommendation_items", start, err) }()

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx, `SELECT `+itemColumns+`
		FROM recommendation_items WHERE session_id = ? AND title_id = ?`, sessionID, titleID)
	item, err = scanItem(row)
	if err != nil {
		return nil, wrapReadError(fmt.Sprintf("find item %s/%s", sessionID, titleID), err)
	}
	return item, nil
}

// MarkReplaced flags the item for (session, title) as replaced.
func (db *DB) MarkReplaced(ctx context.Context, sessionID, titleID string) (err error) {
	start := time.Now()
	defer func() { observe("update", "recommendation_items", start, err) }()

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	_, err = db.conn.ExecContext(ctx,
		`UPDATE recommendation_items SET replaced = true WHERE session_id = ? AND title_id = ?`,
		sessionID, titleID)
	if err != nil {
		return wrapWriteError("mark item replaced", err)
	}
	return nil
}

// RecentServedTitleIDs returns the titles of the user's most recently served
// items, newest first.
func (db *DB) RecentServedTitleIDs(ctx context.Context, userID string, limit int) (out []string, err error) {
	start := time.Now()
	defer func() { observe("select", "recommendation_items", start, err) }()

	if limit <= 0 {
		return nil, nil
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `SELECT i.title_id
		FROM recommendation_items i
		JOIN recommendation_sessions s ON s.id = i.session_id
		WHERE s.user_id = ?
		ORDER BY i.created_at DESC, i.rank
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent served titles: %w", err)
	}
	defer closeWithLog(rows, "rows")

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan served title: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate served titles: %w", err)
	}
	return out, nil
}

func scanItem(row rowScanner) (*recommend.SessionItem, error) {
	var (
		item    recommend.SessionItem
		signals string
		role    sql.NullString
	)
	if err := row.Scan(&item.ID, &item.SessionID, &item.TitleID, &item.Rank, &item.Score,
		&signals, &role, &item.Replaced, &item.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(signals), &item.Signals); err != nil {
		return nil, fmt.Errorf("decode item signals: %w", err)
	}
	item.Role = role.String
	item.CreatedAt = item.CreatedAt.UTC()
	return &item, nil
}
