// Syncline - Multi-Tenant Booking Sync and Data Health Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/syncline

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/syncline/internal/engine"
	"github.com/tomtom215/syncline/internal/health"
	"github.com/tomtom215/syncline/internal/logging"
	"github.com/tomtom215/syncline/internal/models"
)

// SyncRunner is the orchestrator surface the trigger endpoint drives.
type SyncRunner interface {
	RunSync(ctx context.Context, mode models.SyncMode, tenantFilter string, daysBack int) (*models.SyncSummary, error)
}

// HealthChecker is the monitor surface the health trigger drives.
type HealthChecker interface {
	CheckAll(ctx context.Context, tenantFilter string) ([]models.HealthReport, *health.Summary, error)
}

// Pinger reports local store reachability for the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers holds the HTTP endpoint implementations.
type Handlers struct {
	syncer  SyncRunner
	checker HealthChecker
	store   Pinger
}

// NewHandlers wires the endpoint collaborators.
func NewHandlers(syncer SyncRunner, checker HealthChecker, store Pinger) *Handlers {
	return &Handlers{syncer: syncer, checker: checker, store: store}
}

// syncTriggerResponse is the trigger endpoint's payload. Success means the
// batch ran to completion; per-tenant failures are visible in the stats.
type syncTriggerResponse struct {
	Success bool               `json:"success"`
	Stats   models.SyncSummary `json:"stats"`
}

// SyncTrigger handles POST /api/v1/sync/trigger.
//
// Responds 200 on a completed batch even when individual tenants failed,
// 404 when no connected tenant matched the filter, and 500 when the
// orchestrator itself could not run.
func (h *Handlers) SyncTrigger(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	var req SyncTriggerRequest
	if err := decodeRequest(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	summary, err := h.syncer.RunSync(r.Context(), models.ParseSyncMode(req.Mode), req.TenantID, req.DaysBack)
	if err != nil {
		if errors.Is(err, engine.ErrNoTenants) {
			respondError(w, http.StatusNotFound, "no_tenants", "no connected tenants matched the filter")
			return
		}
		logging.Error().Err(err).Msg("Sync trigger failed")
		respondError(w, http.StatusInternalServerError, "sync_failed", "sync batch could not run")
		return
	}

	respondJSON(w, http.StatusOK, syncTriggerResponse{Success: true, Stats: *summary}, started)
}

// healthTriggerResponse pairs per-tenant reports with the aggregate summary.
type healthTriggerResponse struct {
	Tenants []models.HealthReport `json:"tenants"`
	Summary health.Summary        `json:"summary"`
}

// HealthCheck handles POST /api/v1/health/check: evaluates tenant health on
// demand and returns the per-tenant reports plus an aggregate summary.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	var req HealthTriggerRequest
	if err := decodeRequest(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.Provider != "" && req.Provider != models.ProviderCalendly {
		respondError(w, http.StatusNotFound, "unknown_provider", "no integrations for provider "+req.Provider)
		return
	}

	reports, summary, err := h.checker.CheckAll(r.Context(), req.TenantID)
	if err != nil {
		logging.Error().Err(err).Msg("Health check failed")
		respondError(w, http.StatusInternalServerError, "health_check_failed", "health evaluation could not run")
		return
	}

	respondJSON(w, http.StatusOK, healthTriggerResponse{Tenants: reports, Summary: *summary}, started)
}

// HealthLive handles GET /api/v1/health/live: process liveness only.
func (h *Handlers) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "alive"}, time.Now())
}

// HealthReady handles GET /api/v1/health/ready: the service is ready once
// the local store answers.
func (h *Handlers) HealthReady(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		logging.Warn().Err(err).Msg("Readiness probe failed")
		respondError(w, http.StatusServiceUnavailable, "not_ready", "local store unreachable")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"}, started)
}
