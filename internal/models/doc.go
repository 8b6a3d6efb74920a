// Syncline - Multi-Tenant Booking Sync and Data Health Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/syncline

// Package models defines the shared data structures for Syncline.
//
// Core types:
//   - Integration: one (tenant, provider) connection with its sync cursor and scores
//   - Event: one remote booking event, idempotently keyed by provider event ID
//   - SyncRun: append-only record of one orchestrator pass over a tenant
//   - Alert / HealthReport: health-monitor outputs
//   - APIResponse: standard HTTP response envelope
//
// Status strings from provider payloads are normalized to the canonical
// EventStatus set at ingestion via NormalizeStatus; no other layer should
// interpret raw provider status spellings.
package models
