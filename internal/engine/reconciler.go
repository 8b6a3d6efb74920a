// Syncline - Multi-Tenant Booking Sync and Data Health Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/syncline

package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/syncline/internal/logging"
	"github.com/tomtom215/syncline/internal/metrics"
	"github.com/tomtom215/syncline/internal/models"
	"github.com/tomtom215/syncline/internal/remote"
)

// RemoteAPI is the provider surface the reconciler consumes. Satisfied by
// both remote.Client and remote.BreakerClient.
type RemoteAPI interface {
	ListEventsByStartTime(ctx context.Context, token string, start, end time.Time) ([]remote.Event, error)
	ListEventsByCreation(ctx context.Context, token string, start, end time.Time) ([]remote.Event, error)
	GetEventDetail(ctx context.Context, token, eventID string) (*remote.InviteeDetail, error)
}

// Acquirer grants rate-limit slots before remote calls. Satisfied by
// RateLimitCoordinator; injected so tests can run without real delays.
type Acquirer interface {
	Acquire(ctx context.Context) error
}

// EventStore is the local-store surface the reconciler writes through.
type EventStore interface {
	ListEventIDs(ctx context.Context, tenantID string, start, end time.Time) ([]string, error)
	UpsertEvent(ctx context.Context, event *models.Event) error
}

// RunStats are the counts one reconciliation pass produces for a tenant.
// RemoteSeen counts the merged, deduplicated remote set before event-type
// filtering; the other counts cover tracked events only.
type RunStats struct {
	RemoteSeen   int
	GapsFound    int
	EventsSynced int
	EventsFailed int
	RateLimitHit bool
}

// Reconciler detects and fills gaps between the remote provider state and the
// local event store for one tenant at a time.
type Reconciler struct {
	api      RemoteAPI
	store    EventStore
	limiter  Acquirer
	cache    *DetailCache // may be nil, disables the enrichment fallback
	provider string
}

// NewReconciler wires the reconciler's collaborators.
func NewReconciler(api RemoteAPI, store EventStore, limiter Acquirer, cache *DetailCache, provider string) *Reconciler {
	return &Reconciler{
		api:      api,
		store:    store,
		limiter:  limiter,
		cache:    cache,
		provider: provider,
	}
}

// Reconcile runs one pass for a tenant over the given window.
//
// The remote set is the union of two query shapes: events scheduled inside
// the window and events created inside the window. Both are needed because a
// booking made days ago but occurring today, and a booking made today for a
// future date, must each be visible. The merged set is deduplicated by
// provider event id, filtered to tracked event types, and diffed against the
// local store; every surviving remote event is upserted so status changes on
// already-known events are captured in place.
//
// Enrichment is best effort: a failed or throttled invitee fetch degrades the
// record to null invitee fields (or the cached last known-good value) instead
// of failing the event's ingestion.
func (r *Reconciler) Reconcile(ctx context.Context, integ *models.Integration, window Window, tracked []string) (RunStats, error) {
	var stats RunStats

	remoteEvents, err := r.fetchRemoteSet(ctx, integ.AccessToken, window)
	if err != nil {
		metrics.SyncErrors.WithLabelValues("remote_api").Inc()
		return stats, err
	}
	stats.RemoteSeen = len(remoteEvents)

	trackedSet := make(map[string]struct{}, len(tracked))
	for _, id := range tracked {
		trackedSet[id] = struct{}{}
	}
	filtered := remoteEvents[:0]
	for _, e := range remoteEvents {
		if _, ok := trackedSet[e.EventTypeID]; ok {
			filtered = append(filtered, e)
		}
	}

	localIDs, err := r.store.ListEventIDs(ctx, integ.TenantID, window.Start, window.End)
	if err != nil {
		metrics.SyncErrors.WithLabelValues("database").Inc()
		return stats, fmt.Errorf("list local event ids: %w", err)
	}
	localSet := make(map[string]struct{}, len(localIDs))
	for _, id := range localIDs {
		localSet[id] = struct{}{}
	}

	now := time.Now().UTC()
	for _, re := range filtered {
		_, known := localSet[re.ID]

		event := &models.Event{
			TenantID:        integ.TenantID,
			Provider:        r.provider,
			ProviderEventID: re.ID,
			EventTypeID:     re.EventTypeID,
			EventTypeName:   re.EventTypeName,
			ScheduledAt:     re.StartTime,
			CreatedAt:       re.CreatedAt,
			Status:          models.NormalizeStatus(re.Status),
			SyncedAt:        now,
		}

		if !known {
			stats.GapsFound++
			if detail := r.enrich(ctx, integ.TenantID, integ.AccessToken, re.ID, &stats); detail != nil {
				event.InviteeName = optional(detail.Name)
				event.InviteeEmail = optional(detail.Email)
			}
		}

		if err := r.store.UpsertEvent(ctx, event); err != nil {
			stats.EventsFailed++
			metrics.SyncErrors.WithLabelValues("database").Inc()
			logging.Error().Err(err).
				Str("tenant_id", integ.TenantID).
				Str("event_id", re.ID).
				Msg("Failed to upsert event")
			continue
		}
		stats.EventsSynced++
	}

	metrics.SyncGapsFound.Add(float64(stats.GapsFound))
	metrics.SyncEventsSynced.Add(float64(stats.EventsSynced))
	return stats, nil
}

// fetchRemoteSet merges the two query shapes and deduplicates by event id,
// keeping first-seen order.
func (r *Reconciler) fetchRemoteSet(ctx context.Context, token string, window Window) ([]remote.Event, error) {
	if err := r.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	byStart, err := r.api.ListEventsByStartTime(ctx, token, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("list events by start time: %w", err)
	}

	if err := r.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	byCreation, err := r.api.ListEventsByCreation(ctx, token, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("list events by creation: %w", err)
	}

	seen := make(map[string]struct{}, len(byStart)+len(byCreation))
	merged := make([]remote.Event, 0, len(byStart)+len(byCreation))
	for _, e := range append(byStart, byCreation...) {
		if _, dup := seen[e.ID]; dup {
			continue
		}
		seen[e.ID] = struct{}{}
		merged = append(merged, e)
	}
	return merged, nil
}

// enrich fetches the invitee detail for one new event. Never returns an
// error: failure degrades to the cached last known-good value if one exists,
// or to nil.
func (r *Reconciler) enrich(ctx context.Context, tenantID, token, eventID string, stats *RunStats) *remote.InviteeDetail {
	if err := r.limiter.Acquire(ctx); err != nil {
		return r.cachedDetail(tenantID, eventID)
	}

	detail, err := r.api.GetEventDetail(ctx, token, eventID)
	if err == nil {
		if r.cache != nil {
			if err := r.cache.Put(tenantID, eventID, detail); err != nil {
				logging.Warn().Err(err).Str("event_id", eventID).Msg("Failed to cache invitee detail")
			}
		}
		return detail
	}

	if remote.IsRateLimit(err) {
		stats.RateLimitHit = true
	}
	metrics.SyncErrors.WithLabelValues("enrichment").Inc()
	logging.Warn().Err(err).
		Str("tenant_id", tenantID).
		Str("event_id", eventID).
		Msg("Invitee enrichment failed, ingesting degraded record")
	return r.cachedDetail(tenantID, eventID)
}

func (r *Reconciler) cachedDetail(tenantID, eventID string) *remote.InviteeDetail {
	if r.cache == nil {
		return nil
	}
	detail, ok := r.cache.Get(tenantID, eventID)
	if !ok {
		return nil
	}
	return detail
}

// optional converts an empty string to a null field.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
