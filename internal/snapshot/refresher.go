// Reelsense - Contextual Media Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

// Package snapshot captures periodic trending and popular lists from the
// external catalog so the candidate pool can seed from them without a live
// catalog call per request.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/reelsense/internal/config"
	"github.com/tomtom215/reelsense/internal/metrics"
	"github.com/tomtom215/reelsense/internal/recommend"
)

// resolveConcurrency bounds concurrent title get-or-create calls per list.
const resolveConcurrency = 6

// Lister fetches live catalog lists.
type Lister interface {
	Trending(ctx context.Context, mediaType recommend.MediaType) ([]recommend.CatalogItem, error)
	Popular(ctx context.Context, mediaType recommend.MediaType) ([]recommend.CatalogItem, error)
}

// Writer persists one day's snapshot rows.
type Writer interface {
	ReplaceSnapshot(ctx context.Context, date time.Time, mediaType recommend.MediaType,
		kind recommend.SnapshotKind, entries []recommend.SnapshotEntry) error
}

// Refresher pulls trending and popular lists for each configured media type
// and writes them as today's snapshot.
type Refresher struct {
	lister     Lister
	writer     Writer
	resolver   recommend.TitleResolver
	mediaTypes []recommend.MediaType
	topN       int
	now        func() time.Time
	logger     zerolog.Logger
}

// NewRefresher creates a Refresher. resolver may be nil, in which case
// snapshot titles are not materialized locally.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewRefresher(lister Lister, writer Writer, resolver recommend.TitleResolver,
	cfg config.SnapshotConfig, logger zerolog.Logger) *Refresher {
	mediaTypes := make([]recommend.MediaType, 0, len(cfg.MediaTypes))
	for _, mt := range cfg.MediaTypes {
		mediaTypes = append(mediaTypes, recommend.MediaType(mt))
	}
	if len(mediaTypes) == 0 {
		mediaTypes = []recommend.MediaType{recommend.MediaMovie, recommend.MediaTV}
	}
	topN := cfg.TopN
	if topN <= 0 {
		topN = 40
	}
	return &Refresher{
		lister:     lister,
		writer:     writer,
		resolver:   resolver,
		mediaTypes: mediaTypes,
		topN:       topN,
		now:        time.Now,
		logger:     logger.With().Str("component", "snapshot").Logger(),
	}
}

// Refresh runs one snapshot pass. A failing list does not stop the others;
// their errors are joined into the returned error.
func (r *Refresher) Refresh(ctx context.Context) error {
	start := time.Now()
	today := r.now().UTC()

	var errs []error
	lists := 0
	for _, mt := range r.mediaTypes {
		for _, kind := range []recommend.SnapshotKind{recommend.SnapshotTrending, recommend.SnapshotPopular} {
			if err := ctx.Err(); err != nil {
				metrics.SnapshotRefreshes.WithLabelValues("cancelled").Inc()
				return err
			}
			lists++
			if err := r.refreshList(ctx, today, mt, kind); err != nil {
				r.logger.Warn().Err(err).
					Str("media_type", string(mt)).
					Str("kind", string(kind)).
					Msg("snapshot list refresh failed")
				errs = append(errs, err)
			}
		}
	}

	outcome := "ok"
	switch {
	case len(errs) == lists:
		outcome = "error"
	case len(errs) > 0:
		outcome = "partial"
	}
	metrics.SnapshotRefreshes.WithLabelValues(outcome).Inc()

	r.logger.Info().
		Str("outcome", outcome).
		Int("lists", lists).
		Int("failed", len(errs)).
		Dur("duration", time.Since(start)).
		Msg("snapshot refresh complete")

	return errors.Join(errs...)
}

func (r *Refresher) refreshList(ctx context.Context, date time.Time, mt recommend.MediaType, kind recommend.SnapshotKind) error {
	var (
		items []recommend.CatalogItem
		err   error
	)
	if kind == recommend.SnapshotPopular {
		items, err = r.lister.Popular(ctx, mt)
	} else {
		items, err = r.lister.Trending(ctx, mt)
	}
	if err != nil {
		return fmt.Errorf("fetch %s %s: %w", mt, kind, err)
	}
	if len(items) > r.topN {
		items = items[:r.topN]
	}

	entries := make([]recommend.SnapshotEntry, 0, len(items))
	for _, it := range items {
		entries = append(entries, recommend.SnapshotEntry{
			ExternalID: it.ExternalID,
			MediaType:  mt,
			Score:      entryScore(it),
		})
	}
	if err := r.writer.ReplaceSnapshot(ctx, date, mt, kind, entries); err != nil {
		return fmt.Errorf("store %s %s snapshot: %w", mt, kind, err)
	}
	metrics.SnapshotRows.WithLabelValues(string(mt), string(kind)).Add(float64(len(entries)))

	r.resolveTitles(ctx, mt, entries)
	return nil
}

// resolveTitles materializes snapshot titles locally. Failures are logged and
// skipped; the snapshot rows stand on their own.
func (r *Refresher) resolveTitles(ctx context.Context, mt recommend.MediaType, entries []recommend.SnapshotEntry) {
	if r.resolver == nil {
		return
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveConcurrency)
	for _, e := range entries {
		g.Go(func() error {
			if _, err := r.resolver.GetOrCreate(gctx, e.ExternalID, mt); err != nil {
				r.logger.Debug().Err(err).
					Int64("external_id", e.ExternalID).
					Str("media_type", string(mt)).
					Msg("snapshot title resolution failed")
			}
			return nil
		})
	}
	_ = g.Wait()
}

// entryScore ranks a list item by popularity, falling back to its vote
// average when the catalog reports no popularity.
func entryScore(it recommend.CatalogItem) float64 {
	if it.Popularity > 0 {
		return it.Popularity
	}
	return it.VoteAverage
}
