// Syncline - Multi-Tenant Booking Sync and Data Health Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/syncline

package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/syncline/internal/config"
	"github.com/tomtom215/syncline/internal/logging"
	"github.com/tomtom215/syncline/internal/metrics"
	"github.com/tomtom215/syncline/internal/models"
	"github.com/tomtom215/syncline/internal/remote"
)

// ErrNoTenants is returned when no connected integration matches the filter.
// The trigger endpoint maps it to a 404.
var ErrNoTenants = errors.New("no connected tenants matched the filter")

// Store is the local-store surface the orchestrator drives a batch through.
// Satisfied by database.DB.
type Store interface {
	EventStore
	ListConnectedIntegrations(ctx context.Context, provider, tenantID string) ([]models.Integration, error)
	GetTrackedEventTypes(ctx context.Context, tenantID, provider string) ([]string, error)
	UpdateLastSync(ctx context.Context, tenantID, provider string, ts time.Time) error
	RecordSyncRun(ctx context.Context, run *models.SyncRun) error
}

// Orchestrator drives one full reconciliation pass across all connected
// tenants for a provider. Tenants are processed sequentially: the remote
// rate limit is account-wide, so parallelizing buys nothing and complicates
// the coordinator.
type Orchestrator struct {
	store      Store
	reconciler *Reconciler
	limiter    Acquirer
	syncCfg    *config.SyncConfig
	provider   string

	// mu serializes batches so an on-demand trigger cannot overlap a
	// scheduled run. Integration rows have a single writer per tenant.
	mu sync.Mutex

	now func() time.Time
}

// NewOrchestrator wires the orchestrator's collaborators.
func NewOrchestrator(store Store, reconciler *Reconciler, limiter Acquirer, syncCfg *config.SyncConfig, provider string) *Orchestrator {
	return &Orchestrator{
		store:      store,
		reconciler: reconciler,
		limiter:    limiter,
		syncCfg:    syncCfg,
		provider:   provider,
		now:        time.Now,
	}
}

// RunSync drives one batch. tenantFilter narrows the batch to one tenant;
// daysBack overrides the default look-back for default-mode plans (0 keeps
// the configured value).
//
// One tenant's failure never aborts the batch: remote, enrichment, and
// tenant-configuration failures are contained per tenant and reported in the
// summary counts. Only a store failure while loading the tenant list is
// batch-fatal. Cancellation is honored at tenant boundaries, never
// mid-tenant.
func (o *Orchestrator) RunSync(ctx context.Context, mode models.SyncMode, tenantFilter string, daysBack int) (*models.SyncSummary, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	batchStart := o.now()
	logging.Info().
		Str("mode", string(mode)).
		Str("tenant_filter", tenantFilter).
		Msg("Starting sync batch")

	integrations, err := o.store.ListConnectedIntegrations(ctx, o.provider, tenantFilter)
	if err != nil {
		metrics.SyncErrors.WithLabelValues("database").Inc()
		return nil, fmt.Errorf("load integrations: %w", err)
	}
	if len(integrations) == 0 {
		return nil, ErrNoTenants
	}

	summary := &models.SyncSummary{TotalTenants: len(integrations)}
	for i := range integrations {
		if err := ctx.Err(); err != nil {
			logging.Warn().
				Int("processed", summary.TenantsProcessed).
				Int("total", summary.TotalTenants).
				Msg("Sync batch cancelled between tenants")
			return summary, err
		}

		integ := &integrations[i]
		summary.TenantsProcessed++
		if err := o.syncTenant(ctx, integ, mode, daysBack); err != nil {
			summary.TenantsWithErrors++
			metrics.SyncTenantsProcessed.WithLabelValues("error").Inc()
			logging.Error().Err(err).
				Str("tenant_id", integ.TenantID).
				Msg("Tenant sync failed, continuing batch")
			continue
		}
		metrics.SyncTenantsProcessed.WithLabelValues("success").Inc()
	}

	metrics.RecordSyncRun(o.now().Sub(batchStart), summary.TenantsWithErrors == 0)
	logging.Info().
		Int("tenants_processed", summary.TenantsProcessed).
		Int("tenants_with_errors", summary.TenantsWithErrors).
		Dur("duration", o.now().Sub(batchStart)).
		Msg("Sync batch finished")
	return summary, nil
}

// syncTenant runs plan-reconcile-advance for one tenant and records the
// SyncRun row regardless of outcome.
func (o *Orchestrator) syncTenant(ctx context.Context, integ *models.Integration, mode models.SyncMode, daysBack int) error {
	start := o.now()
	run := &models.SyncRun{
		ID:        uuid.NewString(),
		TenantID:  integ.TenantID,
		Provider:  o.provider,
		StartedAt: start,
	}
	defer func() {
		run.DurationMs = o.now().Sub(start).Milliseconds()
		metrics.SyncTenantDuration.Observe(o.now().Sub(start).Seconds())
		if err := o.store.RecordSyncRun(ctx, run); err != nil {
			logging.Error().Err(err).
				Str("tenant_id", integ.TenantID).
				Msg("Failed to record sync run")
		}
	}()

	fail := func(err error) error {
		run.Error = err.Error()
		return err
	}

	plan := PlanWindow(mode, integ.LastSync, daysBack, o.syncCfg, start)
	run.Mode = plan.Mode
	run.WindowStart = plan.Window.Start
	run.WindowEnd = plan.Window.End

	if integ.AccessToken == "" {
		metrics.SyncErrors.WithLabelValues("token").Inc()
		return fail(fmt.Errorf("tenant %s has no access token", integ.TenantID))
	}

	tracked, err := o.store.GetTrackedEventTypes(ctx, integ.TenantID, o.provider)
	if err != nil {
		metrics.SyncErrors.WithLabelValues("database").Inc()
		return fail(fmt.Errorf("load tracked event types: %w", err))
	}
	if len(tracked) == 0 {
		return fail(fmt.Errorf("tenant %s has no tracked event types configured", integ.TenantID))
	}

	if err := o.limiter.Acquire(ctx); err != nil {
		return fail(err)
	}

	stats, err := o.reconciler.Reconcile(ctx, integ, plan.Window, tracked)
	run.RemoteSeen = stats.RemoteSeen
	run.GapsFound = stats.GapsFound
	run.EventsSynced = stats.EventsSynced
	run.EventsFailed = stats.EventsFailed
	run.RateLimitHit = stats.RateLimitHit || remote.IsRateLimit(err)
	if err != nil {
		return fail(fmt.Errorf("reconcile: %w", err))
	}

	// Cursor advances to the run's start, not its end: anything the provider
	// wrote while this run was in flight stays ahead of the cursor.
	if err := o.store.UpdateLastSync(ctx, integ.TenantID, o.provider, start); err != nil {
		metrics.SyncErrors.WithLabelValues("database").Inc()
		return fail(fmt.Errorf("advance sync cursor: %w", err))
	}

	run.Success = true
	logging.Info().
		Str("tenant_id", integ.TenantID).
		Str("mode", string(plan.Mode)).
		Int("remote_seen", stats.RemoteSeen).
		Int("gaps_found", stats.GapsFound).
		Int("events_synced", stats.EventsSynced).
		Int("events_failed", stats.EventsFailed).
		Bool("rate_limit_hit", stats.RateLimitHit).
		Msg("Tenant sync completed")
	return nil
}
