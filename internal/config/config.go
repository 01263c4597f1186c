// Reelsense - Contextual Media Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

// Package config loads Reelsense configuration from built-in defaults, an
// optional YAML file and environment variables, in that order of precedence
// (environment wins).
//
//	cfg, err := config.LoadWithKoanf()
//	if err != nil {
//	    logging.Fatal().Err(err).Msg("Invalid configuration")
//	}
//
// The YAML file is found through CONFIG_PATH or the DefaultConfigPaths list.
// Environment variables use flat legacy names (TMDB_ACCESS_TOKEN, DUCKDB_PATH,
// HTTP_PORT, ...) mapped to nested keys by envTransformFunc.
package config

import "time"

// Config is the root configuration object.
type Config struct {
	Catalog     CatalogConfig     `koanf:"catalog"`
	Database    DatabaseConfig    `koanf:"database"`
	Profiles    ProfileConfig     `koanf:"profiles"`
	Recommend   RecommendConfig   `koanf:"recommend"`
	Experiments ExperimentsConfig `koanf:"experiments"`
	Snapshots   SnapshotConfig    `koanf:"snapshots"`
	Cache       CacheConfig       `koanf:"cache"`
	Events      EventsConfig      `koanf:"events"`
	Server      ServerConfig      `koanf:"server"`
	Security    SecurityConfig    `koanf:"security"`
	Logging     LoggingConfig     `koanf:"logging"`
}

// CatalogConfig configures the external media catalog (TMDB) client.
type CatalogConfig struct {
	BaseURL     string `koanf:"base_url"`
	AccessToken string `koanf:"access_token"` // v4 bearer token, preferred
	APIKey      string `koanf:"api_key"`      // v3 key, used when the bearer token is rejected
	Language    string `koanf:"language"`

	Timeout        time.Duration `koanf:"timeout"`
	MaxRetries     int           `koanf:"max_retries"`
	RetryBaseDelay time.Duration `koanf:"retry_base_delay"`

	// Outbound token bucket.
	RequestsPerSecond float64 `koanf:"requests_per_second"`
	Burst             int     `koanf:"burst"`

	// Per-endpoint response cache lifetimes.
	DetailsTTL  time.Duration `koanf:"details_ttl"`
	SimilarTTL  time.Duration `koanf:"similar_ttl"`
	ListTTL     time.Duration `koanf:"list_ttl"`
	SearchTTL   time.Duration `koanf:"search_ttl"`
	CacheMaxLen int           `koanf:"cache_max_entries"`
}

// DatabaseConfig configures the DuckDB store.
type DatabaseConfig struct {
	Path      string `koanf:"path"` // ":memory:" for an ephemeral store
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = runtime.NumCPU()
}

// ProfileConfig configures taste profile storage and weighting.
type ProfileConfig struct {
	StorePath    string  `koanf:"store_path"` // empty = in-memory Badger
	HalfLifeDays float64 `koanf:"half_life_days"`
	// GCInterval is how often Badger value-log garbage collection runs; 0 disables it.
	GCInterval time.Duration `koanf:"gc_interval"`
}

// RecommendConfig tunes the recommendation service.
type RecommendConfig struct {
	// WeightMode forces a scoring variant: auto, A or B.
	WeightMode          string        `koanf:"weight_mode"`
	DefaultLimit        int           `koanf:"default_limit"`
	MaxLimit            int           `koanf:"max_limit"`
	PoolCacheTTL        time.Duration `koanf:"pool_cache_ttl"`
	PoolCacheMaxEntries int           `koanf:"pool_cache_max_entries"`
	RecentServedLimit   int           `koanf:"recent_served_limit"`
	RequestTimeout      time.Duration `koanf:"request_timeout"`
}

// ExperimentsConfig selects the experiment consulted for per-user overrides.
type ExperimentsConfig struct {
	Key string `koanf:"key"`
}

// SnapshotConfig configures the periodic trending/popular snapshot refresh.
type SnapshotConfig struct {
	Enabled          bool          `koanf:"enabled"`
	Interval         time.Duration `koanf:"interval"`
	RefreshOnStartup bool          `koanf:"refresh_on_startup"`
	TopN             int           `koanf:"top_n"`
	MediaTypes       []string      `koanf:"media_types"`
}

// CacheConfig selects the candidate pool cache backend.
type CacheConfig struct {
	Backend string      `koanf:"backend"` // memory or redis
	Redis   RedisConfig `koanf:"redis"`
}

// RedisConfig holds connection settings for the redis cache backend.
type RedisConfig struct {
	Addr      string `koanf:"addr"`
	Password  string `koanf:"password"`
	DB        int    `koanf:"db"`
	KeyPrefix string `koanf:"key_prefix"`
}

// EventsConfig configures publication of feedback events.
type EventsConfig struct {
	Enabled bool       `koanf:"enabled"`
	Backend string     `koanf:"backend"` // channel or nats
	Topic   string     `koanf:"topic"`
	NATS    NATSConfig `koanf:"nats"`
}

// NATSConfig holds NATS JetStream settings for the nats event backend.
type NATSConfig struct {
	URL            string        `koanf:"url"`
	EmbeddedServer bool          `koanf:"embedded_server"`
	Host           string        `koanf:"host"`
	Port           int           `koanf:"port"`
	StoreDir       string        `koanf:"store_dir"`
	MaxMemory      int64         `koanf:"max_memory"`
	MaxStore       int64         `koanf:"max_store"`
	MaxReconnects  int           `koanf:"max_reconnects"`
	ReconnectWait  time.Duration `koanf:"reconnect_wait"`
	StreamName     string        `koanf:"stream_name"`
	DurableName    string        `koanf:"durable_name"`
	SubscriberName string        `koanf:"subscriber_name"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"`
}

// SecurityConfig holds API authentication and throttling settings.
type SecurityConfig struct {
	JWTSecret         string        `koanf:"jwt_secret"`
	JWTIssuer         string        `koanf:"jwt_issuer"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig mirrors logging.Config for file/env loading.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// IsProduction reports whether the server runs with production checks.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}
