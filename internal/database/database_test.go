// Syncline - Multi-Tenant Booking Sync and Data Health Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/syncline

package database

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/syncline/internal/config"
	"github.com/tomtom215/syncline/internal/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(&config.DatabaseConfig{Path: ""}) // in-memory
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func strPtr(s string) *string { return &s }

func testEvent(id string) *models.Event {
	return &models.Event{
		TenantID:        "t1",
		Provider:        "calendly",
		ProviderEventID: id,
		EventTypeID:     "et-30min",
		EventTypeName:   "30 Minute Meeting",
		ScheduledAt:     time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC),
		CreatedAt:       time.Date(2026, 8, 18, 9, 0, 0, 0, time.UTC),
		Status:          models.StatusActive,
		InviteeName:     strPtr("Ada"),
		InviteeEmail:    strPtr("ada@example.com"),
		SyncedAt:        time.Now().UTC(),
	}
}

func TestUpsertEventIdempotent(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()

	ev := testEvent("ev-1")
	if err := db.UpsertEvent(ctx, ev); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := db.UpsertEvent(ctx, ev); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	count, err := db.CountEvents(ctx, "t1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 row after repeated upsert, got %d", count)
	}
}

func TestUpsertEventUpdatesStatusInPlace(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()

	ev := testEvent("ev-2")
	if err := db.UpsertEvent(ctx, ev); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// Provider reports a cancellation in a later window.
	cancelled := testEvent("ev-2")
	cancelled.Status = models.StatusCancelled
	cancelled.InviteeName = nil // degraded re-sync must not erase enrichment
	cancelled.InviteeEmail = nil
	if err := db.UpsertEvent(ctx, cancelled); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := db.GetEvent(ctx, "t1", "ev-2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != models.StatusCancelled {
		t.Errorf("status = %q, want cancelled", got.Status)
	}
	if got.InviteeName == nil || *got.InviteeName != "Ada" {
		t.Errorf("invitee name should survive degraded upsert, got %v", got.InviteeName)
	}

	count, _ := db.CountEvents(ctx, "t1")
	if count != 1 {
		t.Errorf("expected 1 row, got %d", count)
	}
}

func TestUpsertIntegrationInsertThenUpdate(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()

	integ := &models.Integration{TenantID: "t1", Provider: "calendly", IsConnected: true, AccessToken: "tok-1"}
	if err := db.UpsertIntegration(ctx, integ); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// Re-provisioning (token rotation) hits the conflict path.
	integ.AccessToken = "tok-2"
	if err := db.UpsertIntegration(ctx, integ); err != nil {
		t.Fatalf("update: %v", err)
	}

	list, err := db.ListConnectedIntegrations(ctx, "calendly", "t1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 integration after re-upsert, got %d", len(list))
	}
	if list[0].AccessToken != "tok-2" {
		t.Errorf("access_token = %q, want tok-2", list[0].AccessToken)
	}
	if list[0].CreatedAt.IsZero() || list[0].UpdatedAt.IsZero() {
		t.Errorf("timestamps not set: created=%v updated=%v", list[0].CreatedAt, list[0].UpdatedAt)
	}
}

func TestUpdateLastSyncIsMonotonic(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()

	integ := &models.Integration{TenantID: "t1", Provider: "calendly", IsConnected: true, AccessToken: "tok"}
	if err := db.UpsertIntegration(ctx, integ); err != nil {
		t.Fatalf("upsert integration: %v", err)
	}

	later := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	earlier := later.Add(-time.Hour)

	if err := db.UpdateLastSync(ctx, "t1", "calendly", later); err != nil {
		t.Fatalf("first update: %v", err)
	}
	// A stale writer must not rewind the cursor.
	if err := db.UpdateLastSync(ctx, "t1", "calendly", earlier); err != nil {
		t.Fatalf("second update: %v", err)
	}

	list, err := db.ListConnectedIntegrations(ctx, "calendly", "t1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 integration, got %d", len(list))
	}
	if list[0].LastSync == nil || !list[0].LastSync.Equal(later) {
		t.Errorf("last_sync = %v, want %v", list[0].LastSync, later)
	}
}

func TestListEventIDsWindow(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()

	inWindow := testEvent("ev-in")
	outOfWindow := testEvent("ev-out")
	outOfWindow.ScheduledAt = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	outOfWindow.CreatedAt = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	createdInWindow := testEvent("ev-created")
	createdInWindow.ScheduledAt = time.Date(2026, 12, 1, 10, 0, 0, 0, time.UTC) // scheduled far out

	for _, ev := range []*models.Event{inWindow, outOfWindow, createdInWindow} {
		if err := db.UpsertEvent(ctx, ev); err != nil {
			t.Fatalf("upsert %s: %v", ev.ProviderEventID, err)
		}
	}

	start := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)
	ids, err := db.ListEventIDs(ctx, "t1", start, end)
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	got := map[string]bool{}
	for _, id := range ids {
		got[id] = true
	}
	if !got["ev-in"] {
		t.Error("expected ev-in (scheduled in window)")
	}
	if !got["ev-created"] {
		t.Error("expected ev-created (created in window, scheduled outside)")
	}
	if got["ev-out"] {
		t.Error("ev-out should be excluded")
	}
}

func TestCountStaleActiveEvents(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()

	stale := testEvent("ev-stale")
	stale.ScheduledAt = time.Now().UTC().Add(-48 * time.Hour)
	fresh := testEvent("ev-fresh")
	fresh.ScheduledAt = time.Now().UTC().Add(48 * time.Hour)
	done := testEvent("ev-done")
	done.ScheduledAt = time.Now().UTC().Add(-48 * time.Hour)
	done.Status = models.StatusCompleted

	for _, ev := range []*models.Event{stale, fresh, done} {
		if err := db.UpsertEvent(ctx, ev); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	count, err := db.CountStaleActiveEvents(ctx, "t1", time.Now().UTC().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("stale count = %d, want 1", count)
	}
}

func TestTrackedEventTypesRoundTrip(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.SetTrackedEventTypes(ctx, "t1", "calendly", []string{"et-a", "et-b"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	// Replacing drops types no longer tracked.
	if err := db.SetTrackedEventTypes(ctx, "t1", "calendly", []string{"et-b", "et-c"}); err != nil {
		t.Fatalf("replace: %v", err)
	}

	types, err := db.GetTrackedEventTypes(ctx, "t1", "calendly")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(types) != 2 || types[0] != "et-b" || types[1] != "et-c" {
		t.Errorf("types = %v, want [et-b et-c]", types)
	}
}

func TestHasRecentAlertMatchesBreachIdentity(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()

	alert := &models.Alert{
		ID:        "alert-1",
		TenantID:  "t1",
		Provider:  "calendly",
		Metric:    "health_score",
		Value:     50,
		Threshold: 70,
		Severity:  models.SeverityWarning,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.InsertAlert(ctx, alert); err != nil {
		t.Fatalf("insert: %v", err)
	}

	since := time.Now().UTC().Add(-time.Hour)
	recent, err := db.HasRecentAlert(ctx, "t1", "calendly", "health_score", since)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !recent {
		t.Error("expected a recent alert for the same breach")
	}

	otherMetric, err := db.HasRecentAlert(ctx, "t1", "calendly", "data_quality_score", since)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if otherMetric {
		t.Error("a different metric must not match")
	}

	expired, err := db.HasRecentAlert(ctx, "t1", "calendly", "health_score", time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if expired {
		t.Error("an alert older than the window must not match")
	}
}

func TestSyncRunRoundTrip(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()

	run := &models.SyncRun{
		ID:           "run-1",
		TenantID:     "t1",
		Provider:     "calendly",
		Mode:         models.SyncModeIncremental,
		WindowStart:  time.Date(2026, 8, 22, 0, 0, 0, 0, time.UTC),
		WindowEnd:    time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC),
		RemoteSeen:   10,
		GapsFound:    3,
		EventsSynced: 3,
		RateLimitHit: true,
		Success:      true,
		DurationMs:   1234,
		StartedAt:    time.Now().UTC(),
	}
	if err := db.RecordSyncRun(ctx, run); err != nil {
		t.Fatalf("record: %v", err)
	}

	runs, err := db.ListRecentSyncRuns(ctx, "t1", "calendly", time.Now().UTC().Add(-time.Hour))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	got := runs[0]
	if got.Mode != models.SyncModeIncremental || got.GapsFound != 3 || !got.RateLimitHit {
		t.Errorf("round trip mismatch: %+v", got)
	}
}
