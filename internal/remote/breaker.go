// Syncline - Multi-Tenant Booking Sync and Data Health Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/syncline

package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/syncline/internal/logging"
	"github.com/tomtom215/syncline/internal/metrics"
)

// BreakerClient wraps Client with a circuit breaker so a degraded provider
// API fails fast instead of holding every tenant's slot for a full timeout.
//
// Rate-limit responses are deliberately counted as successes by the breaker:
// they are the provider doing its job, not the provider being down, and the
// rate-limit coordinator already handles them with cooldowns.
type BreakerClient struct {
	client *Client
	cb     *gobreaker.CircuitBreaker[interface{}]
	name   string
}

// NewBreakerClient creates the circuit-breaker wrapper.
// Opens after a 60% failure rate with at least 10 requests in a 1 minute
// window; waits 2 minutes before probing recovery.
func NewBreakerClient(client *Client) *BreakerClient {
	cbName := "provider-api"
	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},

		IsSuccessful: func(err error) bool {
			return err == nil || IsRateLimit(err)
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	return &BreakerClient{client: client, cb: cb, name: cbName}
}

// ListEventsByStartTime delegates through the breaker.
func (b *BreakerClient) ListEventsByStartTime(ctx context.Context, token string, start, end time.Time) ([]Event, error) {
	result, err := b.execute(func() (interface{}, error) {
		return b.client.ListEventsByStartTime(ctx, token, start, end)
	})
	return castEvents(result, err)
}

// ListEventsByCreation delegates through the breaker.
func (b *BreakerClient) ListEventsByCreation(ctx context.Context, token string, start, end time.Time) ([]Event, error) {
	result, err := b.execute(func() (interface{}, error) {
		return b.client.ListEventsByCreation(ctx, token, start, end)
	})
	return castEvents(result, err)
}

// GetEventDetail delegates through the breaker.
func (b *BreakerClient) GetEventDetail(ctx context.Context, token, eventID string) (*InviteeDetail, error) {
	result, err := b.execute(func() (interface{}, error) {
		return b.client.GetEventDetail(ctx, token, eventID)
	})
	if err != nil {
		return nil, err
	}
	detail, ok := result.(*InviteeDetail)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return detail, nil
}

func (b *BreakerClient) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := b.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
		}
		return nil, err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	return result, nil
}

func castEvents(result interface{}, err error) ([]Event, error) {
	if err != nil {
		return nil, err
	}
	events, ok := result.([]Event)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return events, nil
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
