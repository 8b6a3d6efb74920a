// Syncline - Multi-Tenant Booking Sync and Data Health Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/syncline

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tomtom215/syncline/internal/metrics"
	"github.com/tomtom215/syncline/internal/models"
)

// ListConnectedIntegrations returns all integrations with is_connected=true
// for the given provider, ordered by creation time (first registered, first
// processed). A non-empty tenantID narrows the result to that tenant.
func (db *DB) ListConnectedIntegrations(ctx context.Context, provider, tenantID string) ([]models.Integration, error) {
	start := time.Now()

	query := `SELECT tenant_id, provider, is_connected, access_token, last_sync,
			health_score, data_quality_score, last_health_check, created_at, updated_at
		FROM integrations
		WHERE provider = ? AND is_connected = true`
	args := []interface{}{provider}
	if tenantID != "" {
		query += ` AND tenant_id = ?`
		args = append(args, tenantID)
	}
	query += ` ORDER BY created_at`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	metrics.ObserveDBQuery("select", "integrations", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list integrations: %w", err)
	}
	defer rows.Close()

	var result []models.Integration
	for rows.Next() {
		var integ models.Integration
		var lastSync, lastCheck sql.NullTime
		if err := rows.Scan(&integ.TenantID, &integ.Provider, &integ.IsConnected,
			&integ.AccessToken, &lastSync, &integ.HealthScore, &integ.DataQualityScore,
			&lastCheck, &integ.CreatedAt, &integ.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan integration: %w", err)
		}
		if lastSync.Valid {
			t := lastSync.Time
			integ.LastSync = &t
		}
		if lastCheck.Valid {
			t := lastCheck.Time
			integ.LastHealthCheck = &t
		}
		result = append(result, integ)
	}
	return result, rows.Err()
}

// UpsertIntegration inserts or updates an integration row. Used by the
// external OAuth handoff flow and by tests to provision tenants.
//
// Timestamps use now(): DuckDB's upsert binder resolves a bare
// current_timestamp in the VALUES list as a column reference.
func (db *DB) UpsertIntegration(ctx context.Context, integ *models.Integration) error {
	start := time.Now()

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO integrations (tenant_id, provider, is_connected, access_token,
			last_sync, health_score, data_quality_score, last_health_check, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, now(), now())
		ON CONFLICT (tenant_id, provider) DO UPDATE SET
			is_connected = excluded.is_connected,
			access_token = excluded.access_token,
			updated_at = now()`,
		integ.TenantID, integ.Provider, integ.IsConnected, integ.AccessToken,
		nullableTime(integ.LastSync), integ.HealthScore, integ.DataQualityScore,
		nullableTime(integ.LastHealthCheck))
	metrics.ObserveDBQuery("upsert", "integrations", start, err)
	if err != nil {
		return fmt.Errorf("failed to upsert integration: %w", err)
	}
	return nil
}

// UpdateLastSync advances the tenant's sync cursor. The cursor is monotonic:
// the WHERE clause refuses to rewind it, so a stale writer cannot move the
// cursor backwards.
func (db *DB) UpdateLastSync(ctx context.Context, tenantID, provider string, ts time.Time) error {
	start := time.Now()

	_, err := db.conn.ExecContext(ctx, `
		UPDATE integrations
		SET last_sync = ?, updated_at = current_timestamp
		WHERE tenant_id = ? AND provider = ?
			AND (last_sync IS NULL OR last_sync < ?)`,
		ts, tenantID, provider, ts)
	metrics.ObserveDBQuery("update", "integrations", start, err)
	if err != nil {
		return fmt.Errorf("failed to update last_sync: %w", err)
	}
	return nil
}

// UpdateHealthScores stores the monitor's scores for a tenant.
func (db *DB) UpdateHealthScores(ctx context.Context, tenantID, provider string, health, quality int, checkedAt time.Time) error {
	start := time.Now()

	_, err := db.conn.ExecContext(ctx, `
		UPDATE integrations
		SET health_score = ?, data_quality_score = ?, last_health_check = ?, updated_at = current_timestamp
		WHERE tenant_id = ? AND provider = ?`,
		health, quality, checkedAt, tenantID, provider)
	metrics.ObserveDBQuery("update", "integrations", start, err)
	if err != nil {
		return fmt.Errorf("failed to update health scores: %w", err)
	}
	return nil
}

// GetTrackedEventTypes returns the tenant's event-type whitelist. Events of
// untracked types are ignored entirely by the reconciler.
func (db *DB) GetTrackedEventTypes(ctx context.Context, tenantID, provider string) ([]string, error) {
	start := time.Now()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT event_type_id FROM tracked_event_types
		WHERE tenant_id = ? AND provider = ?
		ORDER BY event_type_id`, tenantID, provider)
	metrics.ObserveDBQuery("select", "tracked_event_types", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracked event types: %w", err)
	}
	defer rows.Close()

	var types []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan event type: %w", err)
		}
		types = append(types, id)
	}
	return types, rows.Err()
}

// SetTrackedEventTypes replaces the tenant's event-type whitelist.
func (db *DB) SetTrackedEventTypes(ctx context.Context, tenantID, provider string, typeIDs []string) error {
	start := time.Now()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM tracked_event_types WHERE tenant_id = ? AND provider = ?`,
		tenantID, provider); err != nil {
		return fmt.Errorf("failed to clear tracked event types: %w", err)
	}
	for _, id := range typeIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO tracked_event_types (tenant_id, provider, event_type_id) VALUES (?, ?, ?)`,
			tenantID, provider, id); err != nil {
			return fmt.Errorf("failed to insert tracked event type: %w", err)
		}
	}

	err = tx.Commit()
	metrics.ObserveDBQuery("replace", "tracked_event_types", start, err)
	if err != nil {
		return fmt.Errorf("failed to commit tracked event types: %w", err)
	}
	return nil
}

// nullableTime converts an optional time to a driver-friendly value.
func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}
