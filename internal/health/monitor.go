// Syncline - Multi-Tenant Booking Sync and Data Health Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/syncline

package health

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/syncline/internal/config"
	"github.com/tomtom215/syncline/internal/logging"
	"github.com/tomtom215/syncline/internal/metrics"
	"github.com/tomtom215/syncline/internal/models"
)

// Store is the local-store surface the monitor reads signals from and writes
// scores and alerts to. Satisfied by database.DB.
type Store interface {
	ListConnectedIntegrations(ctx context.Context, provider, tenantID string) ([]models.Integration, error)
	ListRecentSyncRuns(ctx context.Context, tenantID, provider string, since time.Time) ([]models.SyncRun, error)
	CountStaleActiveEvents(ctx context.Context, tenantID string, cutoff time.Time) (int, error)
	UpdateHealthScores(ctx context.Context, tenantID, provider string, health, quality int, checkedAt time.Time) error
	InsertAlert(ctx context.Context, alert *models.Alert) error
	HasRecentAlert(ctx context.Context, tenantID, provider, metric string, since time.Time) (bool, error)
}

// AlertSink receives raised alerts beyond the local store, e.g. a message
// bus. May be nil, which disables external publication.
type AlertSink interface {
	Publish(ctx context.Context, alert *models.Alert) error
}

// Summary aggregates one evaluation pass.
type Summary struct {
	TenantsChecked   int `json:"tenantsChecked"`
	TenantsUnhealthy int `json:"tenantsUnhealthy"`
	AlertsRaised     int `json:"alertsRaised"`
}

// Monitor computes per-tenant health and data-quality scores and raises
// alerts when they cross the configured thresholds.
type Monitor struct {
	store    Store
	sink     AlertSink
	cfg      *config.HealthConfig
	provider string

	now func() time.Time
}

// NewMonitor wires the monitor's collaborators. sink may be nil.
func NewMonitor(store Store, sink AlertSink, cfg *config.HealthConfig, provider string) *Monitor {
	return &Monitor{
		store:    store,
		sink:     sink,
		cfg:      cfg,
		provider: provider,
		now:      time.Now,
	}
}

// CheckAll evaluates every connected tenant (optionally narrowed to one) and
// returns the per-tenant reports plus an aggregate summary. A tenant whose
// signals cannot be read is reported as unhealthy with zero scores rather
// than aborting the pass.
func (m *Monitor) CheckAll(ctx context.Context, tenantFilter string) ([]models.HealthReport, *Summary, error) {
	integrations, err := m.store.ListConnectedIntegrations(ctx, m.provider, tenantFilter)
	if err != nil {
		return nil, nil, fmt.Errorf("load integrations: %w", err)
	}

	summary := &Summary{}
	reports := make([]models.HealthReport, 0, len(integrations))
	for i := range integrations {
		if err := ctx.Err(); err != nil {
			return reports, summary, err
		}

		report := m.CheckTenant(ctx, &integrations[i])
		summary.TenantsChecked++
		if report.Status != models.HealthStatusHealthy {
			summary.TenantsUnhealthy++
		}
		summary.AlertsRaised += m.raiseThresholdAlerts(ctx, report)
		reports = append(reports, *report)
	}
	return reports, summary, nil
}

// CheckTenant evaluates one tenant and persists the resulting scores.
func (m *Monitor) CheckTenant(ctx context.Context, integ *models.Integration) *models.HealthReport {
	now := m.now().UTC()
	report := &models.HealthReport{
		TenantID:    integ.TenantID,
		Provider:    integ.Provider,
		EvaluatedAt: now,
		Metrics:     models.HealthMetrics{LastSync: integ.LastSync},
	}

	runs, err := m.store.ListRecentSyncRuns(ctx, integ.TenantID, integ.Provider, now.Add(-24*time.Hour))
	if err != nil {
		logging.Error().Err(err).Str("tenant_id", integ.TenantID).Msg("Failed to load sync runs for health check")
		report.Status = models.HealthStatusUnhealthy
		return report
	}

	stale, err := m.store.CountStaleActiveEvents(ctx, integ.TenantID, now.Add(-m.cfg.StaleAfter))
	if err != nil {
		logging.Error().Err(err).Str("tenant_id", integ.TenantID).Msg("Failed to count stale events for health check")
		report.Status = models.HealthStatusUnhealthy
		return report
	}

	sig := Signals{
		RunsLast24h:       len(runs),
		StaleActiveEvents: stale,
	}
	if len(runs) > 0 {
		succeeded := 0
		for _, run := range runs {
			if run.Success {
				succeeded++
			}
		}
		sig.SuccessRatio = float64(succeeded) / float64(len(runs))
	}

	health, quality := PolicyFor(integ.Provider).Score(sig)
	report.HealthScore = health
	report.DataQuality = quality
	report.Metrics.RunsLast24h = sig.RunsLast24h
	report.Metrics.SuccessRatio = sig.SuccessRatio
	report.Metrics.StaleActiveEvents = sig.StaleActiveEvents

	report.Status = models.HealthStatusHealthy
	if health < m.cfg.MinHealthScore || quality < m.cfg.MinDataQuality {
		report.Status = models.HealthStatusUnhealthy
	}

	metrics.TenantHealthScore.WithLabelValues(integ.TenantID, integ.Provider).Set(float64(health))
	metrics.TenantDataQuality.WithLabelValues(integ.TenantID, integ.Provider).Set(float64(quality))

	if err := m.store.UpdateHealthScores(ctx, integ.TenantID, integ.Provider, health, quality, now); err != nil {
		logging.Error().Err(err).Str("tenant_id", integ.TenantID).Msg("Failed to persist health scores")
	}
	return report
}

// raiseThresholdAlerts compares the report against the configured minimums
// and records an alert per breached metric. A breach that already has an
// alert within the cooldown window is not re-raised; the sink's duplicate
// window catches anything that slips through.
func (m *Monitor) raiseThresholdAlerts(ctx context.Context, report *models.HealthReport) int {
	raised := 0
	checks := []struct {
		metric    string
		value     int
		threshold int
	}{
		{"health_score", report.HealthScore, m.cfg.MinHealthScore},
		{"data_quality_score", report.DataQuality, m.cfg.MinDataQuality},
	}

	for _, check := range checks {
		if check.value >= check.threshold {
			continue
		}

		if m.cfg.AlertCooldown > 0 {
			recent, err := m.store.HasRecentAlert(ctx, report.TenantID, report.Provider,
				check.metric, m.now().UTC().Add(-m.cfg.AlertCooldown))
			if err != nil {
				// Fail open: a broken dedup check must not silence a breach.
				logging.Error().Err(err).Str("tenant_id", report.TenantID).Msg("Failed to check for recent alerts")
			} else if recent {
				logging.Debug().
					Str("tenant_id", report.TenantID).
					Str("metric", check.metric).
					Msg("Breach already alerted within cooldown, skipping")
				continue
			}
		}

		severity := models.SeverityWarning
		if check.value < check.threshold/2 {
			severity = models.SeverityCritical
		}
		alert := &models.Alert{
			ID:        uuid.NewString(),
			TenantID:  report.TenantID,
			Provider:  report.Provider,
			Metric:    check.metric,
			Value:     float64(check.value),
			Threshold: float64(check.threshold),
			Severity:  severity,
			Message: fmt.Sprintf("%s for tenant %s is %d, below threshold %d",
				check.metric, report.TenantID, check.value, check.threshold),
			CreatedAt: m.now().UTC(),
		}

		if err := m.store.InsertAlert(ctx, alert); err != nil {
			logging.Error().Err(err).Str("tenant_id", report.TenantID).Msg("Failed to store alert")
			continue
		}
		if m.sink != nil {
			if err := m.sink.Publish(ctx, alert); err != nil {
				logging.Warn().Err(err).Str("alert_id", alert.ID).Msg("Failed to publish alert")
			}
		}

		metrics.AlertsRaised.WithLabelValues(check.metric, string(severity)).Inc()
		logging.Warn().
			Str("tenant_id", report.TenantID).
			Str("metric", check.metric).
			Int("value", check.value).
			Int("threshold", check.threshold).
			Msg("Health threshold breached")
		raised++
	}
	return raised
}
