// Reelsense - Contextual Media Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package main

import (
	"context"
	"fmt"

	"github.com/tomtom215/reelsense/internal/cache"
	"github.com/tomtom215/reelsense/internal/config"
	"github.com/tomtom215/reelsense/internal/logging"
	"github.com/tomtom215/reelsense/internal/recommend"
)

// newPoolCache returns the candidate pool cache for the configured backend
// and the function that releases it.
func newPoolCache(ctx context.Context, cfg *config.Config) (cache.Store, func() error, error) {
	switch cfg.Cache.Backend {
	case "", "memory":
		lru := cache.NewLRU(cfg.Recommend.PoolCacheMaxEntries, cfg.Recommend.PoolCacheTTL)
		return lru, func() error { return nil }, nil

	case "redis":
		r, err := cache.NewRedis(ctx, cache.RedisOptions{
			Addr:       cfg.Cache.Redis.Addr,
			Password:   cfg.Cache.Redis.Password,
			DB:         cfg.Cache.Redis.DB,
			KeyPrefix:  cfg.Cache.Redis.KeyPrefix,
			DefaultTTL: cfg.Recommend.PoolCacheTTL,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("create pool cache: %w", err)
		}
		logging.Info().Str("addr", cfg.Cache.Redis.Addr).Msg("Candidate pools cached in Redis")
		return r, r.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}

// recommendConfig maps the loaded configuration onto the engine's tuning;
// fields left zero take recommend.DefaultConfig values.
func recommendConfig(cfg *config.Config) recommend.Config {
	return recommend.Config{
		HalfLifeDays:      cfg.Profiles.HalfLifeDays,
		WeightMode:        cfg.Recommend.WeightMode,
		ExperimentKey:     cfg.Experiments.Key,
		PoolTTL:           cfg.Recommend.PoolCacheTTL,
		RecentServedLimit: cfg.Recommend.RecentServedLimit,
	}
}
