// Syncline - Multi-Tenant Booking Sync and Data Health Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/syncline

// Package scheduler fires incremental sync batches on a fixed cadence.
// No business logic lives here beyond choosing the look-back size and
// occasionally promoting a run to a deep pass.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/syncline/internal/config"
	"github.com/tomtom215/syncline/internal/engine"
	"github.com/tomtom215/syncline/internal/logging"
	"github.com/tomtom215/syncline/internal/models"
)

// SyncRunner is the orchestrator surface the scheduler drives.
type SyncRunner interface {
	RunSync(ctx context.Context, mode models.SyncMode, tenantFilter string, daysBack int) (*models.SyncSummary, error)
}

// Scheduler triggers periodic sync batches.
type Scheduler struct {
	runner SyncRunner
	cfg    *config.SchedulerConfig

	lastSuccess time.Time
	runCount    int

	now func() time.Time
}

// New builds a scheduler. It does nothing until Run is called.
func New(runner SyncRunner, cfg *config.SchedulerConfig) *Scheduler {
	return &Scheduler{
		runner: runner,
		cfg:    cfg,
		now:    time.Now,
	}
}

// Run fires a batch every configured interval until the context is
// cancelled. Intended to run under the supervision tree.
func (s *Scheduler) Run(ctx context.Context) error {
	logging.Info().
		Dur("interval", s.cfg.Interval).
		Int("deep_every", s.cfg.DeepEvery).
		Msg("Scheduler started")

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("Scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

// runOnce fires one batch. Failures are logged, never propagated: the next
// tick is the retry.
func (s *Scheduler) runOnce(ctx context.Context) {
	mode, daysBack := s.planRun()
	s.runCount++

	summary, err := s.runner.RunSync(ctx, mode, "", daysBack)
	if err != nil {
		if errors.Is(err, engine.ErrNoTenants) {
			logging.Debug().Msg("Scheduled sync found no connected tenants")
			return
		}
		logging.Error().Err(err).Msg("Scheduled sync failed")
		return
	}

	if summary.TenantsWithErrors == 0 {
		s.lastSuccess = s.now()
	}
	logging.Info().
		Str("mode", string(mode)).
		Int("days_back", daysBack).
		Int("tenants_processed", summary.TenantsProcessed).
		Int("tenants_with_errors", summary.TenantsWithErrors).
		Msg("Scheduled sync completed")
}

// planRun picks the mode and look-back for the next batch. Every DeepEvery-th
// run is promoted to a deep pass; otherwise incremental, with a reduced
// look-back when the previous scheduled batch succeeded recently. The reduced
// window is a cost saving, not a correctness requirement: the deep pass and
// the incremental cursor overlap cover anything it misses.
func (s *Scheduler) planRun() (models.SyncMode, int) {
	if s.cfg.DeepEvery > 0 && s.runCount > 0 && s.runCount%s.cfg.DeepEvery == 0 {
		return models.SyncModeDeep, 0
	}

	daysBack := 0
	if !s.lastSuccess.IsZero() && s.now().Sub(s.lastSuccess) <= s.cfg.RecentWindow {
		daysBack = s.cfg.RecentDaysBack
	}
	return models.SyncModeIncremental, daysBack
}
