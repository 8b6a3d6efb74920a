// Syncline - Multi-Tenant Booking Sync and Data Health Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/syncline

package engine

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/syncline/internal/config"
	"github.com/tomtom215/syncline/internal/logging"
	"github.com/tomtom215/syncline/internal/metrics"
)

// RateLimitCoordinator enforces the provider's account-wide request budget.
// All spacing and cooldown state is global, not per-tenant, because the
// provider limit applies to the whole account.
//
// It is the process-wide remote.UsageReporter: the remote client feeds
// observed usage and hard 429 signals back here, and every caller that wants
// to make a remote request must pass through Acquire first.
type RateLimitCoordinator struct {
	limiter        *rate.Limiter
	cooldown       time.Duration
	usageThreshold float64

	mu            sync.Mutex
	cooldownUntil time.Time

	// now is swapped in tests.
	now func() time.Time
}

// NewRateLimitCoordinator builds the coordinator from config.
func NewRateLimitCoordinator(cfg *config.RateLimitConfig) *RateLimitCoordinator {
	return &RateLimitCoordinator{
		limiter:        rate.NewLimiter(rate.Every(cfg.MinInterval), 1),
		cooldown:       cfg.Cooldown,
		usageThreshold: cfg.UsageThreshold,
		now:            time.Now,
	}
}

// Acquire blocks until the caller may issue the next remote request: first
// any active cooldown, then the minimum inter-request spacing. Returns early
// with the context error on cancellation.
func (c *RateLimitCoordinator) Acquire(ctx context.Context) error {
	for {
		c.mu.Lock()
		wait := c.cooldownUntil.Sub(c.now())
		c.mu.Unlock()
		if wait <= 0 {
			break
		}

		metrics.RateLimitWaits.Inc()
		logging.Debug().Dur("wait", wait).Msg("Waiting out rate-limit cooldown")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return c.limiter.Wait(ctx)
}

// ReportUsage records the observed fraction of the provider quota in use.
// Crossing the configured threshold preemptively starts a cooldown so the
// batch backs off before the provider starts rejecting.
func (c *RateLimitCoordinator) ReportUsage(used float64) {
	metrics.RateLimitUsage.Set(used)
	if used < c.usageThreshold {
		return
	}

	logging.Warn().
		Float64("used", used).
		Float64("threshold", c.usageThreshold).
		Msg("Provider quota usage high, entering cooldown")
	c.startCooldown(c.cooldown)
}

// ReportRateLimited handles a hard 429 from the provider. The cooldown is the
// larger of the provider's Retry-After hint and the configured floor.
func (c *RateLimitCoordinator) ReportRateLimited(retryAfter time.Duration) {
	d := c.cooldown
	if retryAfter > d {
		d = retryAfter
	}

	logging.Warn().Dur("cooldown", d).Msg("Provider rate limit hit, entering cooldown")
	c.startCooldown(d)
}

// startCooldown extends the cooldown deadline. Never shortens an existing one.
func (c *RateLimitCoordinator) startCooldown(d time.Duration) {
	until := c.now().Add(d)

	c.mu.Lock()
	defer c.mu.Unlock()
	if until.After(c.cooldownUntil) {
		c.cooldownUntil = until
		metrics.RateLimitCooldowns.Inc()
	}
}

// InCooldown reports whether a cooldown is currently active.
func (c *RateLimitCoordinator) InCooldown() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cooldownUntil.After(c.now())
}
