// Reelsense - Contextual Media Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

// Package metrics declares the Prometheus collectors exported on /metrics and
// small Record* helpers used by the service, catalog, store and API layers.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Recommendation pipeline
	RecommendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reelsense_recommend_duration_seconds",
			Help:    "End-to-end duration of a recommendation call",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		},
		[]string{"operation", "variant"},
	)

	RecommendErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelsense_recommend_errors_total",
			Help: "Recommendation calls that returned an error",
		},
		[]string{"operation"},
	)

	CandidatePoolSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reelsense_candidate_pool_size",
			Help:    "Number of candidates assembled per request",
			Buckets: []float64{0, 5, 10, 25, 50, 100, 200, 400},
		},
	)

	PoolCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelsense_pool_cache_lookups_total",
			Help: "Candidate pool cache lookups by result",
		},
		[]string{"result"}, // hit, miss
	)

	SeedResolutionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelsense_seed_resolution_failures_total",
			Help: "Seeds dropped because they could not be resolved to local titles",
		},
		[]string{"source"},
	)

	ProfileRebuilds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelsense_profile_rebuilds_total",
			Help: "Taste profile rebuilds by trigger",
		},
		[]string{"trigger"}, // stale, feedback, explicit
	)

	FeedbackEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelsense_feedback_events_total",
			Help: "Feedback events recorded by verdict",
		},
		[]string{"verdict"},
	)

	FeedbackEventsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelsense_feedback_events_consumed_total",
			Help: "Feedback events consumed from the event bus by verdict",
		},
		[]string{"verdict"},
	)

	ExperimentAssignments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelsense_experiment_assignments_total",
			Help: "New experiment assignments by experiment and variant",
		},
		[]string{"experiment", "variant"},
	)

	// Catalog client
	CatalogRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelsense_catalog_requests_total",
			Help: "Requests issued to the external catalog",
		},
		[]string{"endpoint", "outcome"}, // outcome: ok, error, cached
	)

	CatalogRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelsense_catalog_retries_total",
			Help: "Catalog request retries by reason",
		},
		[]string{"reason"}, // rate_limited, server_error, timeout, auth_fallback
	)

	CatalogRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reelsense_catalog_request_duration_seconds",
			Help:    "Catalog request latency including retries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Requests through the circuit breaker by result",
		},
		[]string{"name", "result"}, // success, failure, rejected
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Snapshots
	SnapshotRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelsense_snapshot_refreshes_total",
			Help: "Snapshot refresh runs by outcome",
		},
		[]string{"outcome"},
	)

	SnapshotRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelsense_snapshot_rows_total",
			Help: "Snapshot rows written by media type and kind",
		},
		[]string{"media_type", "kind"},
	)

	// Storage
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	ProfileStoreOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelsense_profile_store_operations_total",
			Help: "Profile store reads and writes by result",
		},
		[]string{"operation", "result"}, // result: ok, miss, error
	)

	ProfileStoreGCRuns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reelsense_profile_store_gc_runs_total",
			Help: "Badger value log GC passes over the profile store",
		},
	)

	// API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)
)

// RecordRecommend records one service call.
func RecordRecommend(operation, variant string, duration time.Duration, err error) {
	RecommendDuration.WithLabelValues(operation, variant).Observe(duration.Seconds())
	if err != nil {
		RecommendErrors.WithLabelValues(operation).Inc()
	}
}

// RecordPoolCache records a candidate pool cache lookup.
func RecordPoolCache(hit bool) {
	if hit {
		PoolCacheLookups.WithLabelValues("hit").Inc()
		return
	}
	PoolCacheLookups.WithLabelValues("miss").Inc()
}

// RecordCatalogRequest records one logical catalog call.
func RecordCatalogRequest(endpoint, outcome string, duration time.Duration) {
	CatalogRequests.WithLabelValues(endpoint, outcome).Inc()
	if outcome != "cached" {
		CatalogRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
	}
}

// RecordDBQuery records a database query metric.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordProfileStore records a profile store operation.
func RecordProfileStore(operation, result string) {
	ProfileStoreOps.WithLabelValues(operation, result).Inc()
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
