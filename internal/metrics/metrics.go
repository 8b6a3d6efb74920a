// Syncline - Multi-Tenant Booking Sync and Data Health Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/syncline

// Package metrics provides Prometheus instrumentation for Syncline:
// sync operations, remote API rate limiting, circuit breaker state,
// database queries, per-tenant health scores, and API endpoints.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Sync operation metrics
	SyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sync_run_duration_seconds",
			Help:    "Duration of a full orchestrator pass in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	SyncTenantDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sync_tenant_duration_seconds",
			Help:    "Duration of one tenant's reconciliation in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	SyncTenantsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_tenants_processed_total",
			Help: "Total tenants processed by the orchestrator",
		},
		[]string{"result"}, // "success", "error", "skipped"
	)

	SyncGapsFound = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_gaps_found_total",
			Help: "Total remote events missing from the local store",
		},
	)

	SyncEventsSynced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_events_synced_total",
			Help: "Total events upserted into the local store",
		},
	)

	SyncErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_errors_total",
			Help: "Total sync errors by type",
		},
		[]string{"error_type"}, // "remote_api", "database", "enrichment", "token"
	)

	SyncLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sync_last_success_timestamp",
			Help: "Unix timestamp of the last fully completed orchestrator pass",
		},
	)

	// Rate limit coordinator metrics
	RateLimitWaits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rate_limit_waits_total",
			Help: "Total acquire calls that waited for the minimum spacing",
		},
	)

	RateLimitCooldowns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rate_limit_cooldowns_total",
			Help: "Total cooldowns imposed after a hard rate-limit signal",
		},
	)

	RateLimitUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rate_limit_provider_usage_ratio",
			Help: "Last observed fraction of the provider request quota in use",
		},
	)

	// Circuit breaker metrics
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
			Help: "Circuit breaker request outcomes",
		},
		[]string{"name", "result"}, // "success", "failure", "rejected"
	)

	// Database metrics
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

	// Health monitor metrics
	TenantHealthScore = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tenant_health_score",
			Help: "Per-tenant health score (0-100)",
		},
		[]string{"tenant", "provider"},
	)

	TenantDataQuality = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tenant_data_quality_score",
			Help: "Per-tenant data quality score (0-100)",
		},
		[]string{"tenant", "provider"},
	)

	AlertsRaised = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "health_alerts_raised_total",
			Help: "Total threshold alerts raised by the health monitor",
		},
		[]string{"metric", "severity"},
	)

	// API endpoint metrics
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

// ObserveDBQuery records one database query observation.
func ObserveDBQuery(operation, table string, start time.Time, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordSyncRun records the batch-level outcome of one orchestrator pass.
func RecordSyncRun(duration time.Duration, succeeded bool) {
	SyncDuration.Observe(duration.Seconds())
	if succeeded {
		SyncLastSuccess.SetToCurrentTime()
	}
}
