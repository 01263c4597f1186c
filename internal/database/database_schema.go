// Reelsense - Contextual Media Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

/*
database_schema.go - Database Schema Management

Tables:
  - titles: local catalog entries, unique by (external_id, catalog_type)
  - user_title_states: per-user watch state, keyed by (user_id, title_id)
  - catalog_snapshots: periodic trending/popular lists by date
  - recommendation_sessions: one row per served request with its context
  - recommendation_items: served titles, unique by (session_id, title_id)
  - experiments / experiment_assignments: variant definitions and sticky assignments
  - feedback_events: append-only user reactions

List and object columns (genres, metadata, context, signals) are stored as
JSON text and decoded in Go.

Snapshot rows carry no key: a refresh replaces the day's rows for one
(media_type, kind) pair with delete + insert inside a transaction.
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates all tables and indexes
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range tableCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}
	return nil
}

func tableCreationQueries() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS titles (
			id VARCHAR PRIMARY KEY,
			external_id BIGINT NOT NULL,
			catalog_type VARCHAR NOT NULL,
			media_type VARCHAR NOT NULL,
			original_title VARCHAR NOT NULL,
			display_title VARCHAR,
			overview VARCHAR,
			year INTEGER,
			runtime INTEGER,
			rating DOUBLE,
			popularity DOUBLE,
			genres VARCHAR NOT NULL DEFAULT '[]',
			countries VARCHAR NOT NULL DEFAULT '[]',
			original_language VARCHAR,
			adult BOOLEAN NOT NULL DEFAULT false,
			metadata VARCHAR,
			updated_at TIMESTAMP NOT NULL,
			UNIQUE (external_id, catalog_type)
		)`,

		`CREATE TABLE IF NOT EXISTS user_title_states (
			user_id VARCHAR NOT NULL,
			title_id VARCHAR NOT NULL,
			status VARCHAR NOT NULL,
			liked BOOLEAN NOT NULL DEFAULT false,
			disliked BOOLEAN NOT NULL DEFAULT false,
			source VARCHAR NOT NULL DEFAULT 'manual',
			last_interaction TIMESTAMP NOT NULL,
			PRIMARY KEY (user_id, title_id)
		)`,

		`CREATE TABLE IF NOT EXISTS catalog_snapshots (
			snapshot_date DATE NOT NULL,
			media_type VARCHAR NOT NULL,
			kind VARCHAR NOT NULL,
			external_id BIGINT NOT NULL,
			score DOUBLE NOT NULL,
			list_position INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS recommendation_sessions (
			id VARCHAR PRIMARY KEY,
			user_id VARCHAR NOT NULL,
			context VARCHAR NOT NULL,
			variant VARCHAR NOT NULL,
			experiment VARCHAR,
			mode VARCHAR,
			created_at TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS recommendation_items (
			id VARCHAR PRIMARY KEY,
			session_id VARCHAR NOT NULL,
			title_id VARCHAR NOT NULL,
			rank INTEGER NOT NULL,
			score DOUBLE NOT NULL,
			signals VARCHAR NOT NULL,
			role VARCHAR,
			replaced BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMP NOT NULL,
			UNIQUE (session_id, title_id)
		)`,

		`CREATE TABLE IF NOT EXISTS experiments (
			experiment_key VARCHAR PRIMARY KEY,
			active BOOLEAN NOT NULL DEFAULT true,
			variants VARCHAR NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS experiment_assignments (
			user_id VARCHAR NOT NULL,
			experiment_key VARCHAR NOT NULL,
			variant_key VARCHAR NOT NULL,
			config VARCHAR NOT NULL,
			created_at TIMESTAMP NOT NULL,
			PRIMARY KEY (user_id, experiment_key)
		)`,

		`CREATE TABLE IF NOT EXISTS feedback_events (
			id VARCHAR PRIMARY KEY,
			user_id VARCHAR NOT NULL,
			title_id VARCHAR NOT NULL,
			value INTEGER NOT NULL,
			verdict VARCHAR NOT NULL,
			context VARCHAR NOT NULL,
			session_id VARCHAR,
			created_at TIMESTAMP NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_snapshots_lookup ON catalog_snapshots(media_type, kind, snapshot_date)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_user ON recommendation_sessions(user_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_items_session ON recommendation_items(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_feedback_user ON feedback_events(user_id, created_at)`,
	}
}
