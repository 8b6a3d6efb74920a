// Syncline - Multi-Tenant Booking Sync and Data Health Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/syncline

package database

import (
	"context"
	"fmt"
)

// schemaStatements are executed in order on startup. CREATE IF NOT EXISTS
// keeps startup idempotent; schema changes are additive.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS integrations (
		tenant_id          VARCHAR NOT NULL,
		provider           VARCHAR NOT NULL,
		is_connected       BOOLEAN NOT NULL DEFAULT true,
		access_token       VARCHAR NOT NULL DEFAULT '',
		last_sync          TIMESTAMP,
		health_score       INTEGER NOT NULL DEFAULT 100,
		data_quality_score INTEGER NOT NULL DEFAULT 100,
		last_health_check  TIMESTAMP,
		created_at         TIMESTAMP NOT NULL DEFAULT current_timestamp,
		updated_at         TIMESTAMP NOT NULL DEFAULT current_timestamp,
		PRIMARY KEY (tenant_id, provider)
	)`,

	`CREATE TABLE IF NOT EXISTS tracked_event_types (
		tenant_id     VARCHAR NOT NULL,
		provider      VARCHAR NOT NULL,
		event_type_id VARCHAR NOT NULL,
		PRIMARY KEY (tenant_id, provider, event_type_id)
	)`,

	`CREATE TABLE IF NOT EXISTS events (
		tenant_id         VARCHAR NOT NULL,
		provider          VARCHAR NOT NULL,
		provider_event_id VARCHAR NOT NULL,
		event_type_id     VARCHAR NOT NULL,
		event_type_name   VARCHAR NOT NULL,
		scheduled_at      TIMESTAMP NOT NULL,
		created_at        TIMESTAMP NOT NULL,
		status            VARCHAR NOT NULL,
		invitee_name      VARCHAR,
		invitee_email     VARCHAR,
		synced_at         TIMESTAMP NOT NULL,
		PRIMARY KEY (tenant_id, provider_event_id)
	)`,

	`CREATE TABLE IF NOT EXISTS sync_runs (
		id             VARCHAR NOT NULL PRIMARY KEY,
		tenant_id      VARCHAR NOT NULL,
		provider       VARCHAR NOT NULL,
		mode           VARCHAR NOT NULL,
		window_start   TIMESTAMP NOT NULL,
		window_end     TIMESTAMP NOT NULL,
		remote_seen    INTEGER NOT NULL DEFAULT 0,
		gaps_found     INTEGER NOT NULL DEFAULT 0,
		events_synced  INTEGER NOT NULL DEFAULT 0,
		events_failed  INTEGER NOT NULL DEFAULT 0,
		rate_limit_hit BOOLEAN NOT NULL DEFAULT false,
		success        BOOLEAN NOT NULL DEFAULT false,
		error          VARCHAR NOT NULL DEFAULT '',
		duration_ms    BIGINT NOT NULL DEFAULT 0,
		started_at     TIMESTAMP NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS alerts (
		id         VARCHAR NOT NULL PRIMARY KEY,
		tenant_id  VARCHAR NOT NULL,
		provider   VARCHAR NOT NULL,
		metric     VARCHAR NOT NULL,
		value      DOUBLE NOT NULL,
		threshold  DOUBLE NOT NULL,
		severity   VARCHAR NOT NULL,
		message    VARCHAR NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_events_tenant_scheduled ON events (tenant_id, scheduled_at)`,
	`CREATE INDEX IF NOT EXISTS idx_sync_runs_tenant_started ON sync_runs (tenant_id, started_at)`,
}

// initialize creates the schema if it does not exist.
func (db *DB) initialize(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}
