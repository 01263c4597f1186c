// Reelsense - Contextual Media Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

// Package database is the relational store of Reelsense, backed by DuckDB.
//
// # Overview
//
// A single *DB implements every relational interface the recommendation
// engine depends on (recommend.InteractionStore, TitleStore, SnapshotStore,
// SessionStore, ExperimentStore, FeedbackStore), the title repository used
// by catalog.Resolver and the snapshot.Writer used by the snapshot refresher.
//
// Files:
//   - database.go: connection lifecycle, pool settings, query timeouts
//   - database_schema.go: table and index creation
//   - errors.go: constraint-violation mapping onto recommend sentinels
//   - titles.go: local title cache keyed by (external_id, catalog_type)
//   - interactions.go: per-user title state and interaction history
//   - snapshots.go: dated trending/popular lists
//   - sessions.go: served sessions and their items
//   - experiments.go: experiments and sticky user assignments
//   - feedback.go: append-only feedback events
//
// # Error Handling
//
// Missing rows are reported as recommend.ErrNotFound and unique-constraint
// violations as recommend.ErrConflict, both wrapped with the operation name,
// so callers use errors.Is without importing the driver.
//
// # Testing
//
// Tests open ":memory:" databases:
//
//	db := setupTestDB(t)
//	mustInsertTitle(t, db, testTitle("t1", 603, recommend.MediaMovie))
package database
