// Reelsense - Contextual Media Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/reelsense/internal/logging"
	"github.com/tomtom215/reelsense/internal/recommend"
)

// UpsertExperiment creates or replaces an experiment definition.
func (db *DB) UpsertExperiment(ctx context.Context, e *recommend.Experiment) (err error) {
	start := time.Now()
	defer func() { observe("upsert", "experiments", start, err) }()

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	variants, err := json.Marshal(e.Variants)
	if err != nil {
		return fmt.Errorf("encode experiment variants: %w", err)
	}
	_, err = db.conn.ExecContext(ctx, `INSERT INTO experiments (experiment_key, active, variants)
		VALUES (?, ?, ?)
		ON CONFLICT (experiment_key) DO UPDATE SET active = EXCLUDED.active, variants = EXCLUDED.variants`,
		e.Key, e.Active, string(variants))
	if err != nil {
		return wrapWriteError("upsert experiment "+e.Key, err)
	}
	return nil
}

// GetExperiment returns an experiment definition or recommend.ErrNotFound.
// A stored definition whose variants cannot be decoded is returned with
// Invalid set instead of an error.
func (db *DB) GetExperiment(ctx context.Context, key string) (e *recommend.Experiment, err error) {
	start := time.Now()
	defer func() { observe("select", "experiments", start, err) }()

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var (
		out      recommend.Experiment
		variants string
	)
	err = db.conn.QueryRowContext(ctx,
		`SELECT experiment_key, active, variants FROM experiments WHERE experiment_key = ?`, key).
		Scan(&out.Key, &out.Active, &variants)
	if err != nil {
		return nil, wrapReadError("get experiment "+key, err)
	}
	if decodeErr := json.Unmarshal([]byte(variants), &out.Variants); decodeErr != nil || len(out.Variants) == 0 {
		logging.Warn().Str("experiment", key).AnErr("decode_error", decodeErr).Msg("Experiment has no usable variants")
		out.Variants = nil
		out.Invalid = true
	}
	return &out, nil
}

// GetAssignment returns the user's assignment or recommend.ErrNotFound.
func (db *DB) GetAssignment(ctx context.Context, userID, experimentKey string) (a *recommend.Assignment, err error) {
	start := time.Now()
	defer func() { observe("select", "experiment_assignments", start, err) }()

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var (
		out    recommend.Assignment
		config string
	)
	err = db.conn.QueryRowContext(ctx, `SELECT experiment_key, variant_key, config
		FROM experiment_assignments WHERE user_id = ? AND experiment_key = ?`, userID, experimentKey).
		Scan(&out.ExperimentKey, &out.VariantKey, &config)
	if err != nil {
		return nil, wrapReadError("get assignment", err)
	}
	if err := json.Unmarshal([]byte(config), &out.Config); err != nil {
		return nil, fmt.Errorf("decode assignment config: %w", err)
	}
	return &out, nil
}

// CreateAssignment stores a sticky assignment. An existing assignment for the
// user and experiment returns recommend.ErrConflict.
func (db *DB) CreateAssignment(ctx context.Context, userID string, a recommend.Assignment) (err error) {
	start := time.Now()
	defer func() { observe("insert", "experiment_assignments", start, err) }()

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	config, err := json.Marshal(a.Config)
	if err != nil {
		return fmt.Errorf("encode assignment config: %w", err)
	}
	_, err = db.conn.ExecContext(ctx, `INSERT INTO experiment_assignments
		(user_id, experiment_key, variant_key, config, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		userID, a.ExperimentKey, a.VariantKey, string(config), time.Now().UTC())
	if err != nil {
		return wrapWriteError("insert assignment", err)
	}
	return nil
}
