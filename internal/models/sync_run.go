// Syncline - Multi-Tenant Booking Sync and Data Health Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/syncline

package models

import "time"

// SyncRun is the append-only record of one orchestrator pass over a single
// tenant. The health monitor consumes recent runs to score the tenant;
// retention pruning is an external concern.
type SyncRun struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenant_id"`
	Provider     string    `json:"provider"`
	Mode         SyncMode  `json:"mode"`
	WindowStart  time.Time `json:"window_start"`
	WindowEnd    time.Time `json:"window_end"`
	RemoteSeen   int       `json:"remote_seen"`
	GapsFound    int       `json:"gaps_found"`
	EventsSynced int       `json:"events_synced"`
	EventsFailed int       `json:"events_failed"`
	RateLimitHit bool      `json:"rate_limit_hit"`
	Success      bool      `json:"success"`
	Error        string    `json:"error,omitempty"`
	DurationMs   int64     `json:"duration_ms"`
	StartedAt    time.Time `json:"started_at"`
}

// SyncSummary is the batch-level result returned to the trigger caller.
// Partial failure is always observable: callers get counts, not a boolean.
type SyncSummary struct {
	TenantsProcessed  int `json:"tenantsProcessed"`
	TenantsWithErrors int `json:"tenantsWithErrors"`
	TotalTenants      int `json:"totalTenants"`
}
