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

// ListEventIDs returns provider event ids already stored for this tenant
// whose scheduled or created time falls inside the window. Both bounds are
// checked because the remote set merges created-in-window and
// scheduled-in-window query shapes.
func (db *DB) ListEventIDs(ctx context.Context, tenantID string, start, end time.Time) ([]string, error) {
	qStart := time.Now()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT provider_event_id FROM events
		WHERE tenant_id = ?
			AND ((scheduled_at >= ? AND scheduled_at <= ?)
				OR (created_at >= ? AND created_at <= ?))`,
		tenantID, start, end, start, end)
	metrics.ObserveDBQuery("select", "events", qStart, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list event ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan event id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpsertEvent writes an event keyed by (tenant_id, provider_event_id) with
// update-on-conflict semantics. A retried run is a no-op for already-ingested
// events; a status change at the provider updates the stored row in place.
// Invitee fields are only overwritten when the new value is non-null, so a
// degraded re-sync cannot erase previously enriched data.
func (db *DB) UpsertEvent(ctx context.Context, event *models.Event) error {
	start := time.Now()

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO events (tenant_id, provider, provider_event_id, event_type_id,
			event_type_name, scheduled_at, created_at, status, invitee_name, invitee_email, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (tenant_id, provider_event_id) DO UPDATE SET
			event_type_name = excluded.event_type_name,
			scheduled_at = excluded.scheduled_at,
			status = excluded.status,
			invitee_name = coalesce(excluded.invitee_name, invitee_name),
			invitee_email = coalesce(excluded.invitee_email, invitee_email),
			synced_at = excluded.synced_at`,
		event.TenantID, event.Provider, event.ProviderEventID, event.EventTypeID,
		event.EventTypeName, event.ScheduledAt, event.CreatedAt, string(event.Status),
		event.InviteeName, event.InviteeEmail, event.SyncedAt)
	metrics.ObserveDBQuery("upsert", "events", start, err)
	if err != nil {
		return fmt.Errorf("failed to upsert event %s: %w", event.ProviderEventID, err)
	}
	return nil
}

// CountEvents returns the number of stored events for a tenant.
func (db *DB) CountEvents(ctx context.Context, tenantID string) (int, error) {
	start := time.Now()

	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT count(*) FROM events WHERE tenant_id = ?`, tenantID).Scan(&count)
	metrics.ObserveDBQuery("count", "events", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

// GetEvent fetches a single stored event by provider event id.
func (db *DB) GetEvent(ctx context.Context, tenantID, providerEventID string) (*models.Event, error) {
	start := time.Now()

	var e models.Event
	var status string
	err := db.conn.QueryRowContext(ctx, `
		SELECT tenant_id, provider, provider_event_id, event_type_id, event_type_name,
			scheduled_at, created_at, status, invitee_name, invitee_email, synced_at
		FROM events WHERE tenant_id = ? AND provider_event_id = ?`,
		tenantID, providerEventID).Scan(
		&e.TenantID, &e.Provider, &e.ProviderEventID, &e.EventTypeID, &e.EventTypeName,
		&e.ScheduledAt, &e.CreatedAt, &status, &e.InviteeName, &e.InviteeEmail, &e.SyncedAt)
	metrics.ObserveDBQuery("select", "events", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to get event %s: %w", providerEventID, err)
	}
	e.Status = models.EventStatus(status)
	return &e, nil
}

// CountStaleActiveEvents counts events still marked active whose scheduled
// time is before the given cutoff. A non-zero count suggests the provider
// transitioned their status but the reconciler has not observed it yet.
func (db *DB) CountStaleActiveEvents(ctx context.Context, tenantID string, cutoff time.Time) (int, error) {
	start := time.Now()

	var count int
	err := db.conn.QueryRowContext(ctx, `
		SELECT count(*) FROM events
		WHERE tenant_id = ? AND status = ? AND scheduled_at < ?`,
		tenantID, string(models.StatusActive), cutoff).Scan(&count)
	metrics.ObserveDBQuery("count", "events", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to count stale events: %w", err)
	}
	return count, nil
}
