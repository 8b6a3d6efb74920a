// Syncline - Multi-Tenant Booking Sync and Data Health Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/syncline

// Package alerts publishes health alerts to NATS JetStream so external
// consumers (pager bridges, dashboards) can react without polling the store.
package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/syncline/internal/config"
	"github.com/tomtom215/syncline/internal/logging"
	"github.com/tomtom215/syncline/internal/models"
)

// Publisher writes alerts to a JetStream stream. A nil *Publisher is a valid
// no-op sink, so callers can wire it unconditionally and let config decide.
type Publisher struct {
	nc      *nats.Conn
	js      jetstream.JetStream
	subject string
}

// NewPublisher connects to NATS and ensures the alert stream exists.
// Returns (nil, nil) when alerts are disabled in config.
func NewPublisher(ctx context.Context, cfg *config.AlertsConfig) (*Publisher, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	nc, err := nats.Connect(cfg.URL,
		nats.Name("syncline-alerts"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       cfg.Stream,
		Subjects:   []string{cfg.Subject},
		Retention:  jetstream.LimitsPolicy,
		MaxAge:     7 * 24 * time.Hour,
		Duplicates: 2 * time.Minute,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to ensure alert stream: %w", err)
	}

	logging.Info().
		Str("url", cfg.URL).
		Str("stream", cfg.Stream).
		Str("subject", cfg.Subject).
		Msg("Alert publisher connected")
	return &Publisher{nc: nc, js: js, subject: cfg.Subject}, nil
}

// Publish sends one alert. The breach's dedup key is the JetStream message
// id, so re-evaluating the same breach within the stream's duplicate window
// does not produce a second message even though each alert carries a fresh
// id.
func (p *Publisher) Publish(ctx context.Context, alert *models.Alert) error {
	if p == nil {
		return nil
	}

	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to encode alert: %w", err)
	}

	_, err = p.js.Publish(ctx, p.subject, payload, jetstream.WithMsgID(alert.DedupKey()))
	if err != nil {
		return fmt.Errorf("failed to publish alert %s: %w", alert.ID, err)
	}
	return nil
}

// Close drains the connection.
func (p *Publisher) Close() {
	if p == nil || p.nc == nil {
		return
	}
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
	}
}
