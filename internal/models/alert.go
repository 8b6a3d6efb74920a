// Syncline - Multi-Tenant Booking Sync and Data Health Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/syncline

package models

import "time"

// AlertSeverity classifies a threshold breach.
type AlertSeverity string

const (
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// Alert is raised by the health monitor when a computed metric crosses a
// configured threshold. Acknowledgement and display are external concerns.
type Alert struct {
	ID        string        `json:"id"`
	TenantID  string        `json:"tenant_id"`
	Provider  string        `json:"provider"`
	Metric    string        `json:"metric"`
	Value     float64       `json:"value"`
	Threshold float64       `json:"threshold"`
	Severity  AlertSeverity `json:"severity"`
	Message   string        `json:"message"`
	CreatedAt time.Time     `json:"created_at"`
}

// DedupKey identifies the breach independent of the alert instance: two
// evaluations of the same breach share a key even though each alert gets a
// fresh ID.
func (a *Alert) DedupKey() string {
	return a.TenantID + "|" + a.Provider + "|" + a.Metric
}

// Health report statuses.
const (
	HealthStatusHealthy   = "healthy"
	HealthStatusUnhealthy = "unhealthy"
)

// HealthReport is the per-tenant result of a health evaluation pass.
type HealthReport struct {
	TenantID    string        `json:"tenant_id"`
	Provider    string        `json:"provider"`
	Status      string        `json:"status"` // "healthy" or "unhealthy"
	HealthScore int           `json:"healthScore"`
	DataQuality int           `json:"dataQuality"`
	Metrics     HealthMetrics `json:"metrics"`
	EvaluatedAt time.Time     `json:"evaluated_at"`
}

// HealthMetrics carries the raw signals behind a health score so operators
// can see why a score moved without re-deriving it.
type HealthMetrics struct {
	RunsLast24h       int        `json:"runs_last_24h"`
	SuccessRatio      float64    `json:"success_ratio"`
	StaleActiveEvents int        `json:"stale_active_events"`
	LastSync          *time.Time `json:"last_sync,omitempty"`
}
