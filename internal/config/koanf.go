// Reelsense - Contextual Media Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists config file locations in priority order.
var DefaultConfigPaths = []string{
	"reelsense.yaml",
	"reelsense.yml",
	"/etc/reelsense/config.yaml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Catalog: CatalogConfig{
			BaseURL:           "https://api.themoviedb.org/3",
			Language:          "ru-RU",
			Timeout:           30 * time.Second,
			MaxRetries:        3,
			RetryBaseDelay:    500 * time.Millisecond,
			RequestsPerSecond: 20,
			Burst:             10,
			DetailsTTL:        30 * time.Minute,
			SimilarTTL:        60 * time.Minute,
			ListTTL:           30 * time.Minute,
			SearchTTL:         5 * time.Minute,
			CacheMaxLen:       5000,
		},
		Database: DatabaseConfig{
			Path:      "/data/reelsense.duckdb",
			MaxMemory: "1GB",
		},
		Profiles: ProfileConfig{
			StorePath:    "/data/profiles",
			HalfLifeDays: 180,
			GCInterval:   10 * time.Minute,
		},
		Recommend: RecommendConfig{
			WeightMode:          "auto",
			DefaultLimit:        5,
			MaxLimit:            20,
			PoolCacheTTL:        5 * time.Minute,
			PoolCacheMaxEntries: 1000,
			RecentServedLimit:   80,
			RequestTimeout:      20 * time.Second,
		},
		Experiments: ExperimentsConfig{Key: "main"},
		Snapshots: SnapshotConfig{
			Enabled:          true,
			Interval:         6 * time.Hour,
			RefreshOnStartup: false,
			TopN:             40,
			MediaTypes:       []string{"movie", "tv"},
		},
		Cache: CacheConfig{
			Backend: "memory",
			Redis:   RedisConfig{Addr: "127.0.0.1:6379", KeyPrefix: "reelsense:pool:"},
		},
		Events: EventsConfig{
			Enabled: true,
			Backend: "channel",
			Topic:   "recommend.feedback",
			NATS: NATSConfig{
				URL:            "nats://127.0.0.1:4222",
				EmbeddedServer: false,
				Host:           "127.0.0.1",
				Port:           4222,
				StoreDir:       "/data/nats",
				MaxMemory:      256 << 20,
				MaxStore:       1 << 30,
				MaxReconnects:  -1,
				ReconnectWait:  2 * time.Second,
				StreamName:     "RECOMMEND",
				DurableName:    "feedback-metrics",
				SubscriberName: "feedback-metrics",
			},
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8088,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Environment:     "development",
		},
		Security: SecurityConfig{
			RateLimitReqs:   60,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadWithKoanf loads configuration in layers: defaults, then the optional
// YAML file, then environment variables, and validates the result.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// sliceConfigPaths are split on commas when they arrive as strings from env.
var sliceConfigPaths = []string{
	"security.cors_origins",
	"snapshots.media_types",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok || s == "" {
			continue
		}
		var parts []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if len(parts) == 0 {
			continue
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps flat environment names (lower-cased) to koanf paths.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	// Catalog
	"tmdb_base_url":            "catalog.base_url",
	"tmdb_access_token":        "catalog.access_token",
	"tmdb_api_key":             "catalog.api_key",
	"tmdb_language":            "catalog.language",
	"tmdb_timeout":             "catalog.timeout",
	"tmdb_max_retries":         "catalog.max_retries",
	"tmdb_retry_delay":         "catalog.retry_base_delay",
	"tmdb_requests_per_second": "catalog.requests_per_second",
	"tmdb_burst":               "catalog.burst",

	// Database
	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",

	// Profiles
	"profile_store_path":     "profiles.store_path",
	"profile_half_life_days": "profiles.half_life_days",
	"profile_gc_interval":    "profiles.gc_interval",

	// Recommendation service
	"recommend_weight_mode":         "recommend.weight_mode",
	"recommend_default_limit":       "recommend.default_limit",
	"recommend_max_limit":           "recommend.max_limit",
	"recommend_pool_cache_ttl":      "recommend.pool_cache_ttl",
	"recommend_pool_cache_entries":  "recommend.pool_cache_max_entries",
	"recommend_recent_served_limit": "recommend.recent_served_limit",
	"recommend_request_timeout":     "recommend.request_timeout",
	"experiment_key":                "experiments.key",

	// Snapshots
	"snapshots_enabled":            "snapshots.enabled",
	"snapshots_interval":           "snapshots.interval",
	"snapshots_refresh_on_startup": "snapshots.refresh_on_startup",
	"snapshots_top_n":              "snapshots.top_n",
	"snapshots_media_types":        "snapshots.media_types",

	// Cache
	"cache_backend":    "cache.backend",
	"redis_addr":       "cache.redis.addr",
	"redis_password":   "cache.redis.password",
	"redis_db":         "cache.redis.db",
	"redis_key_prefix": "cache.redis.key_prefix",

	// Events
	"events_enabled":      "events.enabled",
	"events_backend":      "events.backend",
	"events_topic":        "events.topic",
	"nats_url":            "events.nats.url",
	"nats_embedded":       "events.nats.embedded_server",
	"nats_host":           "events.nats.host",
	"nats_port":           "events.nats.port",
	"nats_store_dir":      "events.nats.store_dir",
	"nats_max_reconnects": "events.nats.max_reconnects",

	// Server
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"environment":           "server.environment",

	// Security
	"jwt_secret":          "security.jwt_secret",
	"jwt_issuer":          "security.jwt_issuer",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable name to its koanf path, or
// "" to skip it.
//
//   - TMDB_ACCESS_TOKEN -> catalog.access_token
//   - DUCKDB_PATH -> database.path
//   - HTTP_PORT -> server.port
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
