// Syncline - Multi-Tenant Booking Sync and Data Health Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/syncline

package models

import (
	"strings"
	"time"
)

// EventStatus is the canonical lifecycle status of a booking event.
// Provider payloads use several overlapping spellings ("canceled" vs
// "cancelled", "no-show" vs "no_show"); NormalizeStatus collapses them to
// this set at ingestion so downstream queries never match on raw strings.
type EventStatus string

const (
	StatusActive    EventStatus = "active"
	StatusCompleted EventStatus = "completed"
	StatusCancelled EventStatus = "cancelled"
	StatusNoShow    EventStatus = "no_show"
)

// NormalizeStatus maps a raw provider status string to the canonical set.
// Unknown values default to active: an event the provider still reports is
// assumed live until a later window says otherwise.
func NormalizeStatus(raw string) EventStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "canceled", "cancelled", "cancel":
		return StatusCancelled
	case "completed", "complete", "done":
		return StatusCompleted
	case "no_show", "no-show", "noshow":
		return StatusNoShow
	default:
		return StatusActive
	}
}

// Event is one remote booking event, keyed by the provider's globally unique
// event identifier. The (TenantID, ProviderEventID) pair is the natural
// idempotency key: re-ingesting the same remote event updates the row in
// place instead of duplicating it.
type Event struct {
	TenantID        string      `json:"tenant_id"`
	Provider        string      `json:"provider"`
	ProviderEventID string      `json:"provider_event_id"`
	EventTypeID     string      `json:"event_type_id"`
	EventTypeName   string      `json:"event_type_name"`
	ScheduledAt     time.Time   `json:"scheduled_at"`
	CreatedAt       time.Time   `json:"created_at"` // creation time at the provider
	Status          EventStatus `json:"status"`
	InviteeName     *string     `json:"invitee_name,omitempty"`
	InviteeEmail    *string     `json:"invitee_email,omitempty"`
	SyncedAt        time.Time   `json:"synced_at"`
}
