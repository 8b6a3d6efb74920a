// Syncline - Multi-Tenant Booking Sync and Data Health Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/syncline

package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/syncline/internal/config"
)

// recordingReporter captures usage signals for assertions.
type recordingReporter struct {
	mu          sync.Mutex
	usages      []float64
	rateLimited []time.Duration
}

func (r *recordingReporter) ReportUsage(used float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.usages = append(r.usages, used)
}

func (r *recordingReporter) ReportRateLimited(retryAfter time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rateLimited = append(r.rateLimited, retryAfter)
}

func newTestClient(t *testing.T, handler http.Handler, reporter UsageReporter) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(&config.CalendlyConfig{
		BaseURL:  srv.URL,
		Timeout:  5 * time.Second,
		PageSize: 2, // small page size to exercise pagination
	}, reporter)
}

func eventJSON(id, eventType, status, start, created string) string {
	return fmt.Sprintf(`{
		"uri": "https://api.example.com/scheduled_events/%s",
		"name": "30 Minute Meeting",
		"status": %q,
		"start_time": %q,
		"created_at": %q,
		"event_type": "https://api.example.com/event_types/%s"
	}`, id, status, start, created, eventType)
}

func TestListEventsByStartTimePagination(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("auth header = %q", got)
		}
		if r.URL.Query().Get("min_start_time") == "" {
			t.Error("missing min_start_time")
		}

		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("page_token") == "" {
			fmt.Fprintf(w, `{"collection":[%s,%s],"pagination":{"next_page_token":"p2"}}`,
				eventJSON("e1", "et1", "active", "2026-08-20T10:00:00Z", "2026-08-18T09:00:00Z"),
				eventJSON("e2", "et1", "active", "2026-08-21T10:00:00Z", "2026-08-18T10:00:00Z"))
			return
		}
		fmt.Fprintf(w, `{"collection":[%s],"pagination":{"next_page_token":""}}`,
			eventJSON("e3", "et2", "canceled", "2026-08-22T10:00:00Z", "2026-08-19T09:00:00Z"))
	})

	client := newTestClient(t, handler, nil)
	events, err := client.ListEventsByStartTime(context.Background(), "tok-1",
		time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events across pages, got %d", len(events))
	}
	if events[0].ID != "e1" || events[0].EventTypeID != "et1" {
		t.Errorf("unexpected first event: %+v", events[0])
	}
	if events[2].Status != "canceled" {
		t.Errorf("raw status should be untouched at the boundary, got %q", events[2].Status)
	}
}

func TestListEventsByCreationStopsPastWindow(t *testing.T) {
	t.Parallel()

	pagesServed := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pagesServed++
		w.Header().Set("Content-Type", "application/json")
		// First page: one in-window, one before the window start. The client
		// must stop paging once creation times fall before the window.
		fmt.Fprintf(w, `{"collection":[%s,%s],"pagination":{"next_page_token":"more"}}`,
			eventJSON("new", "et1", "active", "2026-09-01T10:00:00Z", "2026-08-20T09:00:00Z"),
			eventJSON("old", "et1", "active", "2026-09-01T10:00:00Z", "2026-01-01T09:00:00Z"))
	})

	client := newTestClient(t, handler, nil)
	events, err := client.ListEventsByCreation(context.Background(), "tok",
		time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 1 || events[0].ID != "new" {
		t.Fatalf("expected only the in-window event, got %+v", events)
	}
	if pagesServed != 1 {
		t.Errorf("expected early termination after 1 page, served %d", pagesServed)
	}
}

func TestRateLimitSurfacedAsTypedError(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "42")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	reporter := &recordingReporter{}
	client := newTestClient(t, handler, reporter)
	_, err := client.ListEventsByStartTime(context.Background(), "tok",
		time.Now().Add(-time.Hour), time.Now())
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsRateLimit(err) {
		t.Fatalf("expected rate-limit error, got %v", err)
	}
	if len(reporter.rateLimited) != 1 || reporter.rateLimited[0] != 42*time.Second {
		t.Errorf("reporter signals = %v, want [42s]", reporter.rateLimited)
	}
}

func TestUsageHeadersReported(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Ratelimit-Limit", "100")
		w.Header().Set("X-Ratelimit-Remaining", "10")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"collection":[],"pagination":{"next_page_token":""}}`)
	})

	reporter := &recordingReporter{}
	client := newTestClient(t, handler, reporter)
	if _, err := client.ListEventsByStartTime(context.Background(), "tok",
		time.Now().Add(-time.Hour), time.Now()); err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(reporter.usages) != 1 {
		t.Fatalf("expected 1 usage report, got %d", len(reporter.usages))
	}
	if got := reporter.usages[0]; got < 0.89 || got > 0.91 {
		t.Errorf("usage = %v, want ~0.9", got)
	}
}

func TestGetEventDetail(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/scheduled_events/ev-9/invitees" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"collection":[{"name":"Grace Hopper","email":"grace@example.com"}]}`)
	})

	client := newTestClient(t, handler, nil)
	detail, err := client.GetEventDetail(context.Background(), "tok", "ev-9")
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	if detail.Name != "Grace Hopper" || detail.Email != "grace@example.com" {
		t.Errorf("unexpected detail: %+v", detail)
	}
}

func TestServerErrorIsNotRateLimit(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	client := newTestClient(t, handler, nil)
	_, err := client.ListEventsByStartTime(context.Background(), "tok",
		time.Now().Add(-time.Hour), time.Now())
	if err == nil {
		t.Fatal("expected error")
	}
	if IsRateLimit(err) {
		t.Error("5xx must not be classified as rate limit")
	}
}
