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

// ReplaceSnapshot stores the rows of one (date, media type, kind) snapshot,
// replacing any rows already written for that day.
func (db *DB) ReplaceSnapshot(ctx context.Context, date time.Time, mediaType recommend.MediaType,
	kind recommend.SnapshotKind, entries []recommend.SnapshotEntry) (err error) {
	start := time.Now()
	defer func() { observe("replace", "catalog_snapshots", start, err) }()

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	day := truncateDay(date)
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`DELETE FROM catalog_snapshots WHERE snapshot_date = ? AND media_type = ? AND kind = ?`,
		day, string(mediaType), string(kind)); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO catalog_snapshots
		(snapshot_date, media_type, kind, external_id, score, list_position)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare snapshot insert: %w", err)
	}
	defer closeQuietly(stmt)

	for i, e := range entries {
		if _, err = stmt.ExecContext(ctx, day, string(mediaType), string(kind), e.ExternalID, e.Score, i); err != nil {
			return fmt.Errorf("insert snapshot row: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return wrapWriteError("commit snapshot", err)
	}
	return nil
}

// LatestSnapshot returns the highest-scored rows of the newest snapshot date
// for the media type and kind, or nil when no snapshot exists.
func (db *DB) LatestSnapshot(ctx context.Context, mediaType recommend.MediaType, kind recommend.SnapshotKind,
	limit int) (out []recommend.SnapshotEntry, err error) {
	start := time.Now()
	defer func() { observe("select", "catalog_snapshots", start, err) }()

	if limit <= 0 {
		return nil, nil
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `SELECT external_id, media_type, score
	FROM catalog_snapshots
	WHERE media_type = ? AND kind = ?
	  AND snapshot_date = (
		SELECT max(snapshot_date) FROM catalog_snapshots WHERE media_type = ? AND kind = ?
	  )
	ORDER BY score DESC, list_position
	LIMIT ?`

	rows, err := db.conn.QueryContext(ctx, query,
		string(mediaType), string(kind), string(mediaType), string(kind), limit)
	if err != nil {
		return nil, fmt.Errorf("query latest snapshot: %w", err)
	}
	defer closeWithLog(rows, "rows")

	for rows.Next() {
		var (
			e  recommend.SnapshotEntry
			mt string
		)
		if err := rows.Scan(&e.ExternalID, &mt, &e.Score); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		e.MediaType = recommend.MediaType(mt)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}
	return out, nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
