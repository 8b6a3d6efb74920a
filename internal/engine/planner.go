// Syncline - Multi-Tenant Booking Sync and Data Health Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/syncline

// Package engine contains the reconciliation core: window planning, gap
// detection, the account-wide rate-limit coordinator, and the per-tenant
// orchestration loop.
package engine

import (
	"time"

	"github.com/tomtom215/syncline/internal/config"
	"github.com/tomtom215/syncline/internal/models"
)

// Window is the time range one reconciliation pass covers.
type Window struct {
	Start time.Time
	End   time.Time
}

// Plan is the planner's output: the window plus the mode that was actually
// applied (an incremental request without a cursor degrades to default).
type Plan struct {
	Window Window
	Mode   models.SyncMode
}

// PlanWindow computes the sync window for one tenant. Pure function, no
// store or network access.
//
// Rules in priority order:
//  1. deep mode: a wide fixed look-back for full reconciliation.
//  2. incremental with a cursor: start just before last_sync. The overlap
//     covers clock skew and late-arriving writes at the provider.
//  3. otherwise: fixed look-back of daysBack (caller override) or the
//     configured default.
func PlanWindow(mode models.SyncMode, lastSync *time.Time, daysBack int, cfg *config.SyncConfig, now time.Time) Plan {
	now = now.UTC()

	if mode == models.SyncModeDeep {
		return Plan{
			Window: Window{Start: now.AddDate(0, 0, -cfg.DeepDays), End: now},
			Mode:   models.SyncModeDeep,
		}
	}

	if mode == models.SyncModeIncremental && lastSync != nil {
		return Plan{
			Window: Window{Start: lastSync.UTC().Add(-cfg.Overlap), End: now},
			Mode:   models.SyncModeIncremental,
		}
	}

	days := daysBack
	if days <= 0 {
		days = cfg.DefaultDaysBack
	}
	return Plan{
		Window: Window{Start: now.AddDate(0, 0, -days), End: now},
		Mode:   models.SyncModeDefault,
	}
}
