// Syncline - Multi-Tenant Booking Sync and Data Health Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/syncline

package health

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/syncline/internal/config"
	"github.com/tomtom215/syncline/internal/models"
)

// fakeStore serves scripted signals per tenant.
type fakeStore struct {
	integrations []models.Integration
	runs         map[string][]models.SyncRun
	stale        map[string]int

	scores map[string][2]int
	alerts []*models.Alert
}

func newHealthStore(integrations ...models.Integration) *fakeStore {
	return &fakeStore{
		integrations: integrations,
		runs:         map[string][]models.SyncRun{},
		stale:        map[string]int{},
		scores:       map[string][2]int{},
	}
}

func (f *fakeStore) ListConnectedIntegrations(ctx context.Context, provider, tenantID string) ([]models.Integration, error) {
	var result []models.Integration
	for _, integ := range f.integrations {
		if tenantID != "" && integ.TenantID != tenantID {
			continue
		}
		result = append(result, integ)
	}
	return result, nil
}

func (f *fakeStore) ListRecentSyncRuns(ctx context.Context, tenantID, provider string, since time.Time) ([]models.SyncRun, error) {
	return f.runs[tenantID], nil
}

func (f *fakeStore) CountStaleActiveEvents(ctx context.Context, tenantID string, cutoff time.Time) (int, error) {
	return f.stale[tenantID], nil
}

func (f *fakeStore) UpdateHealthScores(ctx context.Context, tenantID, provider string, health, quality int, checkedAt time.Time) error {
	f.scores[tenantID] = [2]int{health, quality}
	return nil
}

func (f *fakeStore) InsertAlert(ctx context.Context, alert *models.Alert) error {
	f.alerts = append(f.alerts, alert)
	return nil
}

func (f *fakeStore) HasRecentAlert(ctx context.Context, tenantID, provider, metric string, since time.Time) (bool, error) {
	for _, a := range f.alerts {
		if a.TenantID == tenantID && a.Provider == provider && a.Metric == metric && !a.CreatedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

// recordingSink captures published alerts.
type recordingSink struct {
	published []*models.Alert
}

func (s *recordingSink) Publish(ctx context.Context, alert *models.Alert) error {
	s.published = append(s.published, alert)
	return nil
}

func healthConfig() *config.HealthConfig {
	return &config.HealthConfig{
		StaleAfter:     24 * time.Hour,
		MinHealthScore: 70,
		MinDataQuality: 70,
		AlertCooldown:  time.Hour,
	}
}

func integration(tenantID string) models.Integration {
	return models.Integration{TenantID: tenantID, Provider: models.ProviderCalendly, IsConnected: true}
}

func syncRuns(total, succeeded int) []models.SyncRun {
	runs := make([]models.SyncRun, total)
	for i := range runs {
		runs[i].Success = i < succeeded
	}
	return runs
}

func TestDefaultPolicyScoring(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		sig         Signals
		wantHealth  int
		wantQuality int
	}{
		{"all good", Signals{RunsLast24h: 10, SuccessRatio: 1.0}, 100, 100},
		{"no runs", Signals{}, 60, 100},
		{"success below 90", Signals{RunsLast24h: 10, SuccessRatio: 0.8}, 80, 100},
		{"success below 70 stacks penalties", Signals{RunsLast24h: 10, SuccessRatio: 0.5}, 50, 100},
		{"stale events hit quality only", Signals{RunsLast24h: 10, SuccessRatio: 1.0, StaleActiveEvents: 3}, 100, 80},
		{"floor at zero", Signals{RunsLast24h: 0, SuccessRatio: 0}, 60, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			health, quality := DefaultPolicy{}.Score(tt.sig)
			if health != tt.wantHealth || quality != tt.wantQuality {
				t.Errorf("Score(%+v) = (%d, %d), want (%d, %d)",
					tt.sig, health, quality, tt.wantHealth, tt.wantQuality)
			}
		})
	}
}

// Lower success ratio never yields a higher health score.
func TestPolicyHealthScoreMonotonicity(t *testing.T) {
	t.Parallel()

	prev := 101
	for ratio := 100; ratio >= 0; ratio -= 5 {
		health, _ := DefaultPolicy{}.Score(Signals{
			RunsLast24h:  10,
			SuccessRatio: float64(ratio) / 100,
		})
		if health > prev {
			t.Fatalf("success ratio %d%% scored %d, higher than better ratio's %d", ratio, health, prev)
		}
		prev = health
	}
}

func TestCheckAllScoresAndPersists(t *testing.T) {
	t.Parallel()

	store := newHealthStore(integration("tenant-a"), integration("tenant-b"))
	store.runs["tenant-a"] = syncRuns(10, 10)
	// tenant-b has no runs at all in the last 24h.
	store.stale["tenant-b"] = 2

	m := NewMonitor(store, nil, healthConfig(), models.ProviderCalendly)
	reports, summary, err := m.CheckAll(context.Background(), "")
	if err != nil {
		t.Fatalf("check all: %v", err)
	}

	if summary.TenantsChecked != 2 || summary.TenantsUnhealthy != 1 {
		t.Errorf("summary = %+v, want 2 checked, 1 unhealthy", summary)
	}
	if reports[0].Status != models.HealthStatusHealthy || reports[0].HealthScore != 100 {
		t.Errorf("tenant-a report = %+v, want healthy 100", reports[0])
	}
	if reports[1].Status != models.HealthStatusUnhealthy || reports[1].HealthScore != 60 {
		t.Errorf("tenant-b report = %+v, want unhealthy 60", reports[1])
	}
	if got := store.scores["tenant-b"]; got != [2]int{60, 80} {
		t.Errorf("persisted scores for tenant-b = %v, want [60 80]", got)
	}
}

func TestThresholdBreachRaisesAlerts(t *testing.T) {
	t.Parallel()

	store := newHealthStore(integration("tenant-a"))
	store.runs["tenant-a"] = syncRuns(10, 5) // 50% success: health 50
	store.stale["tenant-a"] = 1              // quality 80

	sink := &recordingSink{}
	m := NewMonitor(store, sink, healthConfig(), models.ProviderCalendly)
	_, summary, err := m.CheckAll(context.Background(), "")
	if err != nil {
		t.Fatalf("check all: %v", err)
	}

	// health 50 < 70 breaches; quality 80 >= 70 does not.
	if summary.AlertsRaised != 1 {
		t.Fatalf("AlertsRaised = %d, want 1", summary.AlertsRaised)
	}
	if len(store.alerts) != 1 || store.alerts[0].Metric != "health_score" {
		t.Errorf("stored alerts = %+v, want one health_score alert", store.alerts)
	}
	if len(sink.published) != 1 {
		t.Errorf("published alerts = %d, want 1", len(sink.published))
	}
	if store.alerts[0].Severity != models.SeverityWarning {
		t.Errorf("severity = %q, want warning (50 >= 70/2)", store.alerts[0].Severity)
	}
}

func TestOngoingBreachAlertsOncePerCooldown(t *testing.T) {
	t.Parallel()

	store := newHealthStore(integration("tenant-a"))
	store.runs["tenant-a"] = syncRuns(10, 5) // 50% success: health 50, breached

	sink := &recordingSink{}
	m := NewMonitor(store, sink, healthConfig(), models.ProviderCalendly)

	base := time.Date(2026, 8, 30, 8, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return base }

	if _, summary, err := m.CheckAll(context.Background(), ""); err != nil || summary.AlertsRaised != 1 {
		t.Fatalf("first pass: err=%v raised=%d, want 1", err, summary.AlertsRaised)
	}

	// Same signals evaluated again inside the cooldown window.
	m.now = func() time.Time { return base.Add(10 * time.Minute) }
	_, summary, err := m.CheckAll(context.Background(), "")
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if summary.AlertsRaised != 0 {
		t.Errorf("second pass raised %d alerts, want 0", summary.AlertsRaised)
	}
	if len(store.alerts) != 1 {
		t.Errorf("stored alerts = %d, want 1", len(store.alerts))
	}
	if len(sink.published) != 1 {
		t.Errorf("published alerts = %d, want 1", len(sink.published))
	}

	// Once the cooldown expires the still-ongoing breach alerts again.
	m.now = func() time.Time { return base.Add(2 * time.Hour) }
	_, summary, err = m.CheckAll(context.Background(), "")
	if err != nil {
		t.Fatalf("third pass: %v", err)
	}
	if summary.AlertsRaised != 1 || len(store.alerts) != 2 {
		t.Errorf("after cooldown: raised=%d stored=%d, want 1 and 2", summary.AlertsRaised, len(store.alerts))
	}
}

func TestRepeatedBreachAlertsShareDedupKey(t *testing.T) {
	t.Parallel()

	store := newHealthStore(integration("tenant-a"))
	store.runs["tenant-a"] = syncRuns(10, 5)

	cfg := healthConfig()
	cfg.AlertCooldown = 0 // raise on every pass so both alerts exist
	m := NewMonitor(store, nil, cfg, models.ProviderCalendly)

	for pass := 0; pass < 2; pass++ {
		if _, _, err := m.CheckAll(context.Background(), ""); err != nil {
			t.Fatalf("pass %d: %v", pass, err)
		}
	}

	if len(store.alerts) != 2 {
		t.Fatalf("stored alerts = %d, want 2", len(store.alerts))
	}
	if store.alerts[0].ID == store.alerts[1].ID {
		t.Error("alert ids must be unique per instance")
	}
	if store.alerts[0].DedupKey() != store.alerts[1].DedupKey() {
		t.Errorf("dedup keys differ for the same breach: %q vs %q",
			store.alerts[0].DedupKey(), store.alerts[1].DedupKey())
	}
}

func TestHealthyTenantRaisesNoAlerts(t *testing.T) {
	t.Parallel()

	store := newHealthStore(integration("tenant-a"))
	store.runs["tenant-a"] = syncRuns(5, 5)

	m := NewMonitor(store, nil, healthConfig(), models.ProviderCalendly)
	_, summary, err := m.CheckAll(context.Background(), "")
	if err != nil {
		t.Fatalf("check all: %v", err)
	}
	if summary.AlertsRaised != 0 || len(store.alerts) != 0 {
		t.Errorf("expected no alerts, got %+v", store.alerts)
	}
}

func TestCheckAllTenantFilter(t *testing.T) {
	t.Parallel()

	store := newHealthStore(integration("tenant-a"), integration("tenant-b"))
	store.runs["tenant-a"] = syncRuns(5, 5)
	store.runs["tenant-b"] = syncRuns(5, 5)

	m := NewMonitor(store, nil, healthConfig(), models.ProviderCalendly)
	reports, _, err := m.CheckAll(context.Background(), "tenant-b")
	if err != nil {
		t.Fatalf("check all: %v", err)
	}
	if len(reports) != 1 || reports[0].TenantID != "tenant-b" {
		t.Errorf("reports = %+v, want tenant-b only", reports)
	}
}
