// Syncline - Multi-Tenant Booking Sync and Data Health Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/syncline

package alerts

import (
	"context"
	"testing"

	"github.com/tomtom215/syncline/internal/config"
	"github.com/tomtom215/syncline/internal/models"
)

func TestNilPublisherIsNoOp(t *testing.T) {
	t.Parallel()

	var p *Publisher
	if err := p.Publish(context.Background(), &models.Alert{ID: "a1"}); err != nil {
		t.Errorf("nil publisher Publish: %v", err)
	}
	p.Close()
}

func TestDisabledConfigYieldsNilPublisher(t *testing.T) {
	t.Parallel()

	p, err := NewPublisher(context.Background(), &config.AlertsConfig{Enabled: false})
	if err != nil {
		t.Fatalf("disabled config: %v", err)
	}
	if p != nil {
		t.Error("expected nil publisher when alerts are disabled")
	}
}
