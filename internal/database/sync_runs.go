// Syncline - Multi-Tenant Booking Sync and Data Health Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/syncline

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/syncline/internal/metrics"
	"github.com/tomtom215/syncline/internal/models"
)

// RecordSyncRun appends one orchestrator pass record.
func (db *DB) RecordSyncRun(ctx context.Context, run *models.SyncRun) error {
	start := time.Now()

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO sync_runs (id, tenant_id, provider, mode, window_start, window_end,
			remote_seen, gaps_found, events_synced, events_failed, rate_limit_hit,
			success, error, duration_ms, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.TenantID, run.Provider, string(run.Mode), run.WindowStart, run.WindowEnd,
		run.RemoteSeen, run.GapsFound, run.EventsSynced, run.EventsFailed, run.RateLimitHit,
		run.Success, run.Error, run.DurationMs, run.StartedAt)
	metrics.ObserveDBQuery("insert", "sync_runs", start, err)
	if err != nil {
		return fmt.Errorf("failed to record sync run: %w", err)
	}
	return nil
}

// ListRecentSyncRuns returns sync runs for a tenant started at or after the
// given time, newest first. The health monitor scores tenants from these.
func (db *DB) ListRecentSyncRuns(ctx context.Context, tenantID, provider string, since time.Time) ([]models.SyncRun, error) {
	qStart := time.Now()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, tenant_id, provider, mode, window_start, window_end,
			remote_seen, gaps_found, events_synced, events_failed, rate_limit_hit,
			success, error, duration_ms, started_at
		FROM sync_runs
		WHERE tenant_id = ? AND provider = ? AND started_at >= ?
		ORDER BY started_at DESC`,
		tenantID, provider, since)
	metrics.ObserveDBQuery("select", "sync_runs", qStart, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync runs: %w", err)
	}
	defer rows.Close()

	var runs []models.SyncRun
	for rows.Next() {
		var run models.SyncRun
		var mode string
		if err := rows.Scan(&run.ID, &run.TenantID, &run.Provider, &mode,
			&run.WindowStart, &run.WindowEnd, &run.RemoteSeen, &run.GapsFound,
			&run.EventsSynced, &run.EventsFailed, &run.RateLimitHit,
			&run.Success, &run.Error, &run.DurationMs, &run.StartedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sync run: %w", err)
		}
		run.Mode = models.SyncMode(mode)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// InsertAlert stores a threshold breach raised by the health monitor.
func (db *DB) InsertAlert(ctx context.Context, alert *models.Alert) error {
	start := time.Now()

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO alerts (id, tenant_id, provider, metric, value, threshold, severity, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		alert.ID, alert.TenantID, alert.Provider, alert.Metric, alert.Value,
		alert.Threshold, string(alert.Severity), alert.Message, alert.CreatedAt)
	metrics.ObserveDBQuery("insert", "alerts", start, err)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

// HasRecentAlert reports whether an alert for the same breach (tenant,
// provider, metric) was stored at or after the given time. The monitor uses
// it to suppress re-raising an ongoing breach on every evaluation.
func (db *DB) HasRecentAlert(ctx context.Context, tenantID, provider, metric string, since time.Time) (bool, error) {
	start := time.Now()

	var count int
	err := db.conn.QueryRowContext(ctx, `
		SELECT count(*) FROM alerts
		WHERE tenant_id = ? AND provider = ? AND metric = ? AND created_at >= ?`,
		tenantID, provider, metric, since).Scan(&count)
	metrics.ObserveDBQuery("select", "alerts", start, err)
	if err != nil {
		return false, fmt.Errorf("failed to check recent alerts: %w", err)
	}
	return count > 0, nil
}
