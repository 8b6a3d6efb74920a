// Syncline - Multi-Tenant Booking Sync and Data Health Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/syncline

// Package health scores each tenant's sync pipeline and raises alerts on
// threshold breaches.
package health

import (
	"github.com/tomtom215/syncline/internal/models"
)

// Signals are the raw per-tenant inputs a policy scores from.
type Signals struct {
	// RunsLast24h is the number of sync runs recorded in the last 24 hours.
	RunsLast24h int

	// SuccessRatio is the fraction of those runs that succeeded. Undefined
	// (and ignored by policies) when RunsLast24h is zero.
	SuccessRatio float64

	// StaleActiveEvents counts events still marked active whose scheduled
	// time passed longer ago than the staleness threshold.
	StaleActiveEvents int
}

// ProviderPolicy turns raw signals into scores. Policies are per provider
// kind because the same signal means different things across providers: no
// recent runs is alarming for a high-traffic scheduling provider and normal
// for a low-traffic one.
type ProviderPolicy interface {
	// Score returns a health score and a data-quality score, both 0-100.
	Score(sig Signals) (health, quality int)
}

// DefaultPolicy is the baseline scoring rule set. Both scores start at 100
// and only decrease, floored at 0.
type DefaultPolicy struct{}

// Score applies the baseline penalties:
//   - no runs in the last 24h: -40 (the orchestrator is not reaching this
//     tenant at all)
//   - success ratio below 90%: -20; below 70%: -30 more
//   - stale active events present: -20 data quality (the provider likely
//     transitioned their status but the reconciler has not observed it)
func (DefaultPolicy) Score(sig Signals) (int, int) {
	health := 100
	if sig.RunsLast24h == 0 {
		health -= 40
	} else {
		if sig.SuccessRatio < 0.9 {
			health -= 20
		}
		if sig.SuccessRatio < 0.7 {
			health -= 30
		}
	}

	quality := 100
	if sig.StaleActiveEvents > 0 {
		quality -= 20
	}

	return clampScore(health), clampScore(quality)
}

// PolicyFor selects the scoring policy for a provider. Unknown providers get
// the default rule set.
func PolicyFor(provider string) ProviderPolicy {
	switch provider {
	case models.ProviderCalendly:
		return DefaultPolicy{}
	default:
		return DefaultPolicy{}
	}
}

func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
