// Syncline - Multi-Tenant Booking Sync and Data Health Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/syncline

package remote

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// RateLimitError is the detectable rate-limit condition, distinct from other
// remote failures so the rate-limit coordinator can react specifically to it.
type RateLimitError struct {
	// RetryAfter is the provider-suggested wait, zero if not supplied.
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("provider rate limit hit, retry after %s", e.RetryAfter)
	}
	return "provider rate limit hit"
}

// IsRateLimit reports whether err is (or wraps) a rate-limit signal.
func IsRateLimit(err error) bool {
	var rle *RateLimitError
	return errors.As(err, &rle)
}

// UsageReporter receives provider usage signals observed on responses.
// The rate-limit coordinator implements this to force cooldowns when usage
// is high or a hard limit was hit. Implementations must be safe for
// concurrent use.
type UsageReporter interface {
	// ReportUsage is called with the observed fraction (0..1) of the
	// provider request quota in use.
	ReportUsage(used float64)

	// ReportRateLimited is called when the provider returned a hard
	// rate-limit signal. retryAfter is zero if the provider gave no hint.
	ReportRateLimited(retryAfter time.Duration)
}

// parseRetryAfter reads the Retry-After header (RFC 6585), seconds form.
func parseRetryAfter(resp *http.Response) time.Duration {
	raw := resp.Header.Get("Retry-After")
	if raw == "" {
		return 0
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}

// parseUsage derives the used-quota fraction from X-Ratelimit headers.
// Returns -1 when the provider did not supply usable headers.
func parseUsage(resp *http.Response) float64 {
	limitRaw := resp.Header.Get("X-Ratelimit-Limit")
	remainingRaw := resp.Header.Get("X-Ratelimit-Remaining")
	if limitRaw == "" || remainingRaw == "" {
		return -1
	}
	limit, err := strconv.ParseFloat(limitRaw, 64)
	if err != nil || limit <= 0 {
		return -1
	}
	remaining, err := strconv.ParseFloat(remainingRaw, 64)
	if err != nil || remaining < 0 {
		return -1
	}
	used := 1 - remaining/limit
	if used < 0 {
		used = 0
	}
	return used
}
