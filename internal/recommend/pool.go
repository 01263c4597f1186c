// Reelsense - Contextual Media Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package recommend

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/reelsense/internal/cache"
	"github.com/tomtom215/reelsense/internal/metrics"
)

// PoolCacheKey identifies a candidate pool. The profile's UpdatedAt is part
// of the key, so any rebuild bypasses previously cached pools.
func PoolCacheKey(userID string, profileUpdatedAt time.Time, c Context) string {
	ta := "t"
	if c.TimeAvailable > 0 {
		ta = strconv.Itoa(c.TimeAvailable)
	}
	return strings.Join([]string{
		"pool",
		userID,
		profileUpdatedAt.UTC().Format(time.RFC3339Nano),
		orDefault(c.Mood, "m"),
		orDefault(c.Mindset, "ms"),
		orDefault(c.Company, "c"),
		ta,
		orDefault(c.NoveltyBias, "mix"),
		orDefault(c.Freshness, "any"),
	}, ":")
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// buildPool assembles up to target de-duplicated, exclusion-filtered
// candidates, using the pool cache when possible.
func (s *Service) buildPool(ctx context.Context, userID string, p *TasteProfile, target int, c Context) ([]Title, error) {
	key := PoolCacheKey(userID, p.UpdatedAt, c)
	if s.pools != nil {
		var cached []Title
		hit, err := cache.GetJSON(ctx, s.pools, key, &cached)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Pool cache read failed")
		}
		metrics.RecordPoolCache(hit)
		if hit {
			if len(cached) > target {
				cached = cached[:target]
			}
			return cached, nil
		}
	}

	exclude := make(map[string]bool, len(p.Seen)+len(p.Disliked))
	for id := range p.Seen {
		exclude[id] = true
	}
	for id := range p.Disliked {
		exclude[id] = true
	}
	recent, err := s.sessions.RecentServedTitleIDs(ctx, userID, s.cfg.RecentServedLimit)
	if err != nil {
		return nil, fmt.Errorf("recent served titles: %w", err)
	}
	for _, id := range recent {
		exclude[id] = true
	}

	seeds := s.collectSeeds(ctx, p, c)

	excludeList := make([]string, 0, len(exclude))
	for id := range exclude {
		excludeList = append(excludeList, id)
	}
	local, err := s.titles.LocalTitles(ctx, target, excludeList)
	if err != nil {
		return nil, fmt.Errorf("local titles: %w", err)
	}

	resolved := s.resolveSeeds(ctx, seeds, exclude, target*2)

	seen := make(map[string]bool, len(resolved)+len(local))
	pool := make([]Title, 0, target)
	for _, group := range [][]Title{resolved, local} {
		for _, t := range group {
			if seen[t.ID] {
				continue
			}
			seen[t.ID] = true
			pool = append(pool, t)
		}
	}
	if len(pool) > target {
		pool = pool[:target]
	}
	metrics.CandidatePoolSize.Observe(float64(len(pool)))

	if s.pools != nil {
		if err := cache.SetJSON(ctx, s.pools, key, pool, s.cfg.PoolTTL); err != nil {
			s.logger.Warn().Err(err).Msg("Pool cache write failed")
		}
	}
	return pool, nil
}

// collectSeeds fans out anchor-similar, trending and (for classic freshness)
// popular lookups and joins them in a fixed order. A failing source is
// logged and contributes nothing.
func (s *Service) collectSeeds(ctx context.Context, p *TasteProfile, c Context) []Seed {
	anchors := p.Anchors
	if len(anchors) > s.cfg.AnchorSeeds {
		anchors = anchors[:s.cfg.AnchorSeeds]
	}
	mediaTypes := make([]MediaType, 0, len(p.PreferredTypes))
	for _, mt := range []MediaType{MediaMovie, MediaTV, MediaAnime, MediaCartoon} {
		if p.PreferredTypes[mt] {
			mediaTypes = append(mediaTypes, mt)
		}
	}
	if len(mediaTypes) == 0 {
		mediaTypes = []MediaType{MediaMovie, MediaTV}
	}
	classic := c.Freshness == "classic"

	similar := make([][]Seed, len(anchors))
	trending := make([][]Seed, len(mediaTypes))
	popular := make([][]Seed, len(mediaTypes))

	g, gctx := errgroup.WithContext(ctx)
	for i, a := range anchors {
		g.Go(func() error {
			items, err := s.catalog.Similar(gctx, a.MediaType.CatalogType(), a.ExternalID)
			if err != nil {
				s.logger.Warn().Err(err).Int64("external_id", a.ExternalID).Msg("Similar lookup failed")
				metrics.SeedResolutionFailures.WithLabelValues("similar").Inc()
				return nil
			}
			seeds := make([]Seed, 0, s.cfg.SimilarPerAnchor)
			for j, it := range items {
				if j >= s.cfg.SimilarPerAnchor {
					break
				}
				seeds = append(seeds, Seed{ExternalID: it.ExternalID, MediaType: a.MediaType, Source: "similar"})
			}
			similar[i] = seeds
			return nil
		})
	}
	for i, mt := range mediaTypes {
		g.Go(func() error {
			trending[i] = s.listSeeds(gctx, mt, SnapshotTrending, s.cfg.TrendingSnapshot, s.cfg.TrendingLive)
			return nil
		})
		if classic {
			g.Go(func() error {
				popular[i] = s.listSeeds(gctx, mt, SnapshotPopular, s.cfg.PopularSnapshot, s.cfg.PopularLive)
				return nil
			})
		}
	}
	_ = g.Wait()

	var out []Seed
	for _, group := range [][][]Seed{similar, trending, popular} {
		for _, seeds := range group {
			out = append(out, seeds...)
		}
	}
	return out
}

// listSeeds prefers the latest snapshot and falls back to a live catalog call.
func (s *Service) listSeeds(ctx context.Context, mt MediaType, kind SnapshotKind, snapshotLimit, liveLimit int) []Seed {
	source := string(kind)
	if s.snapshots != nil {
		rows, err := s.snapshots.LatestSnapshot(ctx, mt, kind, snapshotLimit)
		if err != nil {
			s.logger.Warn().Err(err).Str("media_type", string(mt)).Str("kind", source).Msg("Snapshot read failed, using live catalog")
		} else if len(rows) > 0 {
			seeds := make([]Seed, 0, len(rows))
			for _, r := range rows {
				seeds = append(seeds, Seed{ExternalID: r.ExternalID, MediaType: r.MediaType, Source: source})
			}
			return seeds
		}
	}

	var (
		items []CatalogItem
		err   error
	)
	if kind == SnapshotPopular {
		items, err = s.catalog.Popular(ctx, mt.CatalogType())
	} else {
		items, err = s.catalog.Trending(ctx, mt.CatalogType())
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("media_type", string(mt)).Str("kind", source).Msg("Live catalog list failed")
		metrics.SeedResolutionFailures.WithLabelValues(source).Inc()
		return nil
	}
	seeds := make([]Seed, 0, liveLimit)
	for i, it := range items {
		if i >= liveLimit {
			break
		}
		resolved := mt
		if it.MediaType == MediaMovie || it.MediaType == MediaTV {
			resolved = it.MediaType
		}
		seeds = append(seeds, Seed{ExternalID: it.ExternalID, MediaType: resolved, Source: source})
	}
	return seeds
}

// resolveSeeds resolves unique seeds in concurrent batches until at least
// target titles are collected. Failed or excluded seeds are dropped.
func (s *Service) resolveSeeds(ctx context.Context, seeds []Seed, exclude map[string]bool, target int) []Title {
	seenExt := make(map[int64]bool, len(seeds))
	unique := make([]Seed, 0, len(seeds))
	for _, sd := range seeds {
		if sd.ExternalID == 0 || seenExt[sd.ExternalID] {
			continue
		}
		seenExt[sd.ExternalID] = true
		unique = append(unique, sd)
	}

	result := make([]Title, 0, target)
	batchSize := s.cfg.ResolveBatchSize
	for start := 0; start < len(unique) && len(result) < target; start += batchSize {
		if ctx.Err() != nil {
			break
		}
		end := start + batchSize
		if end > len(unique) {
			end = len(unique)
		}
		batch := unique[start:end]
		resolved := make([]*Title, len(batch))

		var g errgroup.Group
		for i, sd := range batch {
			g.Go(func() error {
				t, err := s.resolver.GetOrCreate(ctx, sd.ExternalID, sd.MediaType)
				if err != nil {
					s.logger.Debug().Err(err).Int64("external_id", sd.ExternalID).Str("source", sd.Source).Msg("Skipping candidate")
					metrics.SeedResolutionFailures.WithLabelValues(sd.Source).Inc()
					return nil
				}
				resolved[i] = t
				return nil
			})
		}
		_ = g.Wait()

		for _, t := range resolved {
			if t != nil && !exclude[t.ID] {
				result = append(result, *t)
			}
		}
	}
	return result
}
