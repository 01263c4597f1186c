// Reelsense - Contextual Media Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateCatalog,
		c.validateDatabase,
		c.validateRecommend,
		c.validateSnapshots,
		c.validateCache,
		c.validateEvents,
		c.validateServer,
		c.validateSecurity,
		c.validateLogging,
	}
	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateCatalog() error {
	u, err := url.Parse(c.Catalog.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("catalog.base_url must be an http(s) URL, got %q", c.Catalog.BaseURL)
	}
	if c.Catalog.MaxRetries < 0 {
		return fmt.Errorf("catalog.max_retries must be non-negative, got %d", c.Catalog.MaxRetries)
	}
	if c.Catalog.Timeout <= 0 {
		return fmt.Errorf("catalog.timeout must be positive, got %v", c.Catalog.Timeout)
	}
	if c.Catalog.RequestsPerSecond <= 0 {
		return fmt.Errorf("catalog.requests_per_second must be positive, got %v", c.Catalog.RequestsPerSecond)
	}
	if c.Catalog.Burst <= 0 {
		return fmt.Errorf("catalog.burst must be positive, got %d", c.Catalog.Burst)
	}
	if c.IsProduction() && c.Catalog.AccessToken == "" && c.Catalog.APIKey == "" {
		return fmt.Errorf("TMDB_ACCESS_TOKEN or TMDB_API_KEY is required in production")
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("database.threads must be non-negative, got %d", c.Database.Threads)
	}
	return nil
}

func (c *Config) validateRecommend() error {
	r := c.Recommend
	switch r.WeightMode {
	case "auto", "A", "B":
	default:
		return fmt.Errorf("recommend.weight_mode must be auto, A or B, got %q", r.WeightMode)
	}
	if r.DefaultLimit <= 0 || r.MaxLimit <= 0 {
		return fmt.Errorf("recommend.default_limit and recommend.max_limit must be positive, got %d/%d", r.DefaultLimit, r.MaxLimit)
	}
	if r.DefaultLimit > r.MaxLimit {
		return fmt.Errorf("recommend.default_limit (%d) must not exceed recommend.max_limit (%d)", r.DefaultLimit, r.MaxLimit)
	}
	if r.PoolCacheTTL <= 0 {
		return fmt.Errorf("recommend.pool_cache_ttl must be positive, got %v", r.PoolCacheTTL)
	}
	if r.RecentServedLimit < 0 {
		return fmt.Errorf("recommend.recent_served_limit must be non-negative, got %d", r.RecentServedLimit)
	}
	if c.Profiles.HalfLifeDays < 0 {
		return fmt.Errorf("profiles.half_life_days must be non-negative, got %v", c.Profiles.HalfLifeDays)
	}
	if c.Experiments.Key == "" {
		return fmt.Errorf("experiments.key is required")
	}
	return nil
}

func (c *Config) validateSnapshots() error {
	if !c.Snapshots.Enabled {
		return nil
	}
	if c.Snapshots.Interval <= 0 {
		return fmt.Errorf("snapshots.interval must be positive, got %v", c.Snapshots.Interval)
	}
	if c.Snapshots.TopN <= 0 {
		return fmt.Errorf("snapshots.top_n must be positive, got %d", c.Snapshots.TopN)
	}
	for _, mt := range c.Snapshots.MediaTypes {
		if mt != "movie" && mt != "tv" {
			return fmt.Errorf("snapshots.media_types entries must be movie or tv, got %q", mt)
		}
	}
	return nil
}

func (c *Config) validateCache() error {
	switch c.Cache.Backend {
	case "memory":
		return nil
	case "redis":
		if c.Cache.Redis.Addr == "" {
			return fmt.Errorf("cache.redis.addr is required when cache.backend=redis")
		}
		return nil
	default:
		return fmt.Errorf("cache.backend must be memory or redis, got %q", c.Cache.Backend)
	}
}

func (c *Config) validateEvents() error {
	if !c.Events.Enabled {
		return nil
	}
	if c.Events.Topic == "" {
		return fmt.Errorf("events.topic is required when events are enabled")
	}
	switch c.Events.Backend {
	case "channel":
		return nil
	case "nats":
		if !c.Events.NATS.EmbeddedServer && c.Events.NATS.URL == "" {
			return fmt.Errorf("events.nats.url is required unless the embedded server is enabled")
		}
		if c.Events.NATS.EmbeddedServer && (c.Events.NATS.Port <= 0 || c.Events.NATS.Port > 65535) {
			return fmt.Errorf("events.nats.port must be between 1 and 65535, got %d", c.Events.NATS.Port)
		}
		return nil
	default:
		return fmt.Errorf("events.backend must be channel or nats, got %q", c.Events.Backend)
	}
}

func (c *Config) validateServer() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive, got %v", c.Server.ShutdownTimeout)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	s := c.Security
	if c.IsProduction() && len(s.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
	}
	if !s.RateLimitDisabled && (s.RateLimitReqs <= 0 || s.RateLimitWindow <= 0) {
		return fmt.Errorf("security.rate_limit_reqs and security.rate_limit_window must be positive when rate limiting is enabled")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("logging.level must be one of trace, debug, info, warn, error, fatal, panic, disabled, got %q", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
