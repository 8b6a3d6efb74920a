// Syncline - Multi-Tenant Booking Sync and Data Health Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/syncline

// Package remote provides the authenticated, paginated client for the
// provider's scheduling API.
//
// The client deliberately does not retry on rate limits: it surfaces a typed
// *RateLimitError and reports the signal to the injected UsageReporter, and
// the rate-limit coordinator decides how long everyone waits. Retrying here
// would hide the account-wide signal from the coordinator.
package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/syncline/internal/config"
)

// Client is the HTTP client for the provider API. Access tokens are
// per-tenant and passed per call; the client itself holds no tenant state.
type Client struct {
	baseURL  string
	pageSize int
	client   *http.Client
	reporter UsageReporter
}

// NewClient creates a provider API client. reporter may be nil, in which
// case usage signals are dropped.
func NewClient(cfg *config.CalendlyConfig, reporter UsageReporter) *Client {
	pageSize := cfg.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 100
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:  cfg.BaseURL,
		pageSize: pageSize,
		client:   &http.Client{Timeout: timeout},
		reporter: reporter,
	}
}

// ListEventsByStartTime returns all events scheduled to start inside the
// window, following pagination to exhaustion.
func (c *Client) ListEventsByStartTime(ctx context.Context, token string, start, end time.Time) ([]Event, error) {
	query := url.Values{}
	query.Set("min_start_time", start.UTC().Format(time.RFC3339))
	query.Set("max_start_time", end.UTC().Format(time.RFC3339))
	return c.listEvents(ctx, token, query, nil)
}

// ListEventsByCreation returns events created inside the window regardless of
// when they are scheduled. The provider API cannot filter on creation time,
// so this walks pages sorted by creation descending and stops once a page
// falls entirely before the window.
func (c *Client) ListEventsByCreation(ctx context.Context, token string, start, end time.Time) ([]Event, error) {
	query := url.Values{}
	query.Set("sort", "created_at:desc")

	stopAt := start.UTC()
	keep := func(e Event) (bool, bool) {
		if e.CreatedAt.Before(stopAt) {
			return false, true // past the window, stop paging
		}
		return !e.CreatedAt.After(end.UTC()), false
	}
	return c.listEvents(ctx, token, query, keep)
}

// listEvents pages through /scheduled_events. keep optionally filters each
// event and can signal early termination of the page walk.
func (c *Client) listEvents(ctx context.Context, token string, query url.Values, keep func(Event) (bool, bool)) ([]Event, error) {
	query.Set("count", fmt.Sprintf("%d", c.pageSize))

	var events []Event
	pageToken := ""
	for {
		if pageToken != "" {
			query.Set("page_token", pageToken)
		}

		var page wireEventList
		if err := c.doRequest(ctx, token, "/scheduled_events", query, &page); err != nil {
			return nil, err
		}

		stop := false
		for _, w := range page.Collection {
			event := w.toEvent()
			if keep != nil {
				ok, done := keep(event)
				if done {
					stop = true
					break
				}
				if !ok {
					continue
				}
			}
			events = append(events, event)
		}

		pageToken = page.Pagination.NextPageToken
		if stop || pageToken == "" {
			break
		}
	}
	return events, nil
}

// GetEventDetail fetches the invitee enrichment for one event. Best effort:
// callers treat failures here as non-fatal for the event's ingestion.
func (c *Client) GetEventDetail(ctx context.Context, token, eventID string) (*InviteeDetail, error) {
	var list wireInviteeList
	path := fmt.Sprintf("/scheduled_events/%s/invitees", url.PathEscape(eventID))
	if err := c.doRequest(ctx, token, path, url.Values{"count": {"1"}}, &list); err != nil {
		return nil, err
	}
	if len(list.Collection) == 0 {
		return nil, fmt.Errorf("event %s has no invitees", eventID)
	}
	return &InviteeDetail{
		Name:  list.Collection[0].Name,
		Email: list.Collection[0].Email,
	}, nil
}

// doRequest executes one authenticated GET and decodes the JSON response.
// Rate-limit responses come back as *RateLimitError; usage headers are
// reported on every response so the coordinator sees quota pressure before
// a hard limit is hit.
func (c *Client) doRequest(ctx context.Context, token, path string, query url.Values, result interface{}) error {
	reqURL := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if len(query) > 0 {
		req.URL.RawQuery = query.Encode()
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if c.reporter != nil {
		if used := parseUsage(resp); used >= 0 {
			c.reporter.ReportUsage(used)
		}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := parseRetryAfter(resp)
		if c.reporter != nil {
			c.reporter.ReportRateLimited(retryAfter)
		}
		return &RateLimitError{RetryAfter: retryAfter}
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request %s: unexpected status %d %s", path, resp.StatusCode, resp.Status)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode %s response: %w", path, err)
		}
	}
	return nil
}
