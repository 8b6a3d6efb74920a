// Syncline - Multi-Tenant Booking Sync and Data Health Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/syncline

package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/syncline/internal/config"
	"github.com/tomtom215/syncline/internal/models"
)

type recordedRun struct {
	mode     models.SyncMode
	daysBack int
}

type fakeRunner struct {
	mu      sync.Mutex
	runs    []recordedRun
	summary models.SyncSummary
	err     error
}

func (f *fakeRunner) RunSync(ctx context.Context, mode models.SyncMode, tenantFilter string, daysBack int) (*models.SyncSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, recordedRun{mode: mode, daysBack: daysBack})
	if f.err != nil {
		return nil, f.err
	}
	s := f.summary
	return &s, nil
}

func (f *fakeRunner) recorded() []recordedRun {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRun(nil), f.runs...)
}

func schedulerConfig() *config.SchedulerConfig {
	return &config.SchedulerConfig{
		Enabled:        true,
		Interval:       24 * time.Hour,
		RecentWindow:   36 * time.Hour,
		RecentDaysBack: 2,
		DeepEvery:      0,
	}
}

func TestPlanRunAdaptiveLookBack(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 30, 6, 0, 0, 0, time.UTC)
	s := New(&fakeRunner{}, schedulerConfig())
	s.now = func() time.Time { return now }

	// No prior success: full default look-back.
	if mode, days := s.planRun(); mode != models.SyncModeIncremental || days != 0 {
		t.Errorf("first run plan = (%v, %d), want (incremental, 0)", mode, days)
	}

	// Recent success: reduced look-back.
	s.lastSuccess = now.Add(-12 * time.Hour)
	if mode, days := s.planRun(); mode != models.SyncModeIncremental || days != 2 {
		t.Errorf("recent-success plan = (%v, %d), want (incremental, 2)", mode, days)
	}

	// Stale success: back to the full default.
	s.lastSuccess = now.Add(-48 * time.Hour)
	if _, days := s.planRun(); days != 0 {
		t.Errorf("stale-success plan daysBack = %d, want 0", days)
	}
}

func TestPlanRunDeepPromotion(t *testing.T) {
	t.Parallel()

	cfg := schedulerConfig()
	cfg.DeepEvery = 3
	runner := &fakeRunner{}
	s := New(runner, cfg)

	var modes []models.SyncMode
	for i := 0; i < 6; i++ {
		mode, _ := s.planRun()
		modes = append(modes, mode)
		s.runCount++
	}

	want := []models.SyncMode{
		models.SyncModeIncremental, models.SyncModeIncremental, models.SyncModeIncremental,
		models.SyncModeDeep, models.SyncModeIncremental, models.SyncModeIncremental,
	}
	for i := range want {
		if modes[i] != want[i] {
			t.Errorf("run %d mode = %v, want %v", i, modes[i], want[i])
		}
	}
}

func TestRunOnceTracksSuccess(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{summary: models.SyncSummary{TenantsProcessed: 2}}
	s := New(runner, schedulerConfig())

	s.runOnce(context.Background())
	if s.lastSuccess.IsZero() {
		t.Error("clean batch should record a success timestamp")
	}

	// A batch with tenant errors must not count as a success.
	s.lastSuccess = time.Time{}
	runner.summary.TenantsWithErrors = 1
	s.runOnce(context.Background())
	if !s.lastSuccess.IsZero() {
		t.Error("batch with tenant errors must not record a success")
	}
}

func TestRunFiresOnTicksAndStops(t *testing.T) {
	t.Parallel()

	cfg := schedulerConfig()
	cfg.Interval = 10 * time.Millisecond
	runner := &fakeRunner{}
	s := New(runner, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 55*time.Millisecond)
	defer cancel()
	if err := s.Run(ctx); err != context.DeadlineExceeded {
		t.Errorf("run err = %v, want deadline exceeded", err)
	}

	if got := len(runner.recorded()); got < 2 {
		t.Errorf("expected at least 2 scheduled runs, got %d", got)
	}
}
