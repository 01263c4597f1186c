// Reelsense - Contextual Media Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

/*
Package main is the entry point for the Reelsense server.

Reelsense recommends films and series for the moment: it combines a durable
taste profile built from a user's history with the request context (mood,
company, time available, novelty appetite) and a candidate pool drawn from
the TMDB catalog, then serves a small, diversified, explained list.

# Application Architecture

	RootSupervisor ("reelsense")
	├── "storage-layer"
	│   └── ProfileGCService        Badger value-log GC (on-disk store only)
	├── "background-layer"
	│   ├── SnapshotService         trending/popular snapshots every 6h
	│   └── eventbus.Consumer       feedback event metrics
	└── "api-layer"
	    └── HTTPServerService       Chi router

Initialization order:

 1. Configuration: koanf v2 (defaults, YAML file, environment)
 2. Logging: zerolog, JSON or console
 3. DuckDB store and Badger profile store
 4. Candidate pool cache: in-process LRU or Redis
 5. TMDB client with rate limiter, retries and circuit breaker
 6. Event bus (optional): watermill over Go channels or NATS JetStream
 7. Recommendation service
 8. Supervisor tree and HTTP server

# Configuration

The most common environment variables:

	TMDB_ACCESS_TOKEN   TMDB v4 bearer token (or TMDB_API_KEY)
	DUCKDB_PATH         DuckDB file, ":memory:" for an ephemeral store
	PROFILE_STORE_PATH  Badger directory, empty for in-memory
	JWT_SECRET          HS256 secret for API bearer tokens
	HTTP_PORT           listen port (default 8088)
	CACHE_BACKEND       memory or redis
	EVENTS_BACKEND      channel or nats

# Signal Handling

SIGINT and SIGTERM cancel the root context. The supervisor stops every
service, the HTTP server drains in-flight requests within
HTTP_SHUTDOWN_TIMEOUT, and the stores are closed on the way out.
*/
package main
