// Syncline - Multi-Tenant Booking Sync and Data Health Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/syncline

package models

import "time"

// ProviderCalendly is the only provider currently wired end to end; the
// schema and policies key on provider strings so more can be added.
const ProviderCalendly = "calendly"

// Integration represents one (tenant, provider) connection to a remote
// scheduling API. A row is created by the external OAuth handoff flow and
// mutated only by the sync orchestrator and health monitor afterwards.
//
// Invariant: LastSync only advances forward on a successful run; it is never
// rewound. Disconnection flips IsConnected to false; rows are never hard-deleted.
type Integration struct {
	TenantID         string     `json:"tenant_id"`
	Provider         string     `json:"provider"`
	IsConnected      bool       `json:"is_connected"`
	AccessToken      string     `json:"-"` // written by the OAuth handoff flow, read-only here
	LastSync         *time.Time `json:"last_sync,omitempty"`
	HealthScore      int        `json:"health_score"`
	DataQualityScore int        `json:"data_quality_score"`
	LastHealthCheck  *time.Time `json:"last_health_check,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// SyncMode selects how the window planner computes the sync window.
type SyncMode string

const (
	// SyncModeIncremental starts just before the last successful cursor.
	SyncModeIncremental SyncMode = "incremental"

	// SyncModeDeep performs a wide-window (90 day) full reconciliation pass.
	SyncModeDeep SyncMode = "deep"

	// SyncModeDefault uses a fixed look-back window (7 days unless overridden).
	SyncModeDefault SyncMode = "default"
)

// ParseSyncMode normalizes a user-supplied mode string. Unknown or empty
// values fall back to SyncModeDefault rather than erroring, matching the
// trigger endpoint contract.
func ParseSyncMode(s string) SyncMode {
	switch SyncMode(s) {
	case SyncModeIncremental, SyncModeDeep:
		return SyncMode(s)
	default:
		return SyncModeDefault
	}
}
