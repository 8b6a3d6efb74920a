// Syncline - Multi-Tenant Booking Sync and Data Health Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/syncline

package remote

import (
	"strings"
	"time"
)

// Event is a booking event as reported by the provider API. Raw provider
// payloads are decoded and validated at this boundary; the reconciler never
// handles untyped JSON.
type Event struct {
	// ID is the provider's globally unique event identifier.
	ID string

	// EventTypeID identifies the booking template this event was created from.
	EventTypeID string

	// EventTypeName is the human-readable name of the event type.
	EventTypeName string

	// Status is the raw provider status string. Normalization to the
	// canonical set happens at ingestion, not here.
	Status string

	// StartTime is when the event is scheduled to occur.
	StartTime time.Time

	// CreatedAt is when the booking was made at the provider.
	CreatedAt time.Time
}

// InviteeDetail is the best-effort enrichment payload for one event.
type InviteeDetail struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// wire structures for the provider's JSON responses.

type wireEvent struct {
	URI       string    `json:"uri"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	StartTime time.Time `json:"start_time"`
	CreatedAt time.Time `json:"created_at"`
	EventType string    `json:"event_type"`
}

type wirePagination struct {
	NextPageToken string `json:"next_page_token"`
}

type wireEventList struct {
	Collection []wireEvent    `json:"collection"`
	Pagination wirePagination `json:"pagination"`
}

type wireInvitee struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type wireInviteeList struct {
	Collection []wireInvitee `json:"collection"`
}

// toEvent converts a wire event to the boundary type. The provider embeds
// identifiers in resource URIs; the trailing path segment is the id.
func (w wireEvent) toEvent() Event {
	return Event{
		ID:            lastPathSegment(w.URI),
		EventTypeID:   lastPathSegment(w.EventType),
		EventTypeName: w.Name,
		Status:        w.Status,
		StartTime:     w.StartTime,
		CreatedAt:     w.CreatedAt,
	}
}

func lastPathSegment(uri string) string {
	uri = strings.TrimSuffix(uri, "/")
	if i := strings.LastIndex(uri, "/"); i >= 0 {
		return uri[i+1:]
	}
	return uri
}
