// Syncline - Multi-Tenant Booking Sync and Data Health Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/syncline

// Command server runs the Syncline daemon: the HTTP trigger API, the sync
// scheduler, and the health monitor, under a supervision tree.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/syncline/internal/alerts"
	"github.com/tomtom215/syncline/internal/api"
	"github.com/tomtom215/syncline/internal/config"
	"github.com/tomtom215/syncline/internal/database"
	"github.com/tomtom215/syncline/internal/engine"
	"github.com/tomtom215/syncline/internal/health"
	"github.com/tomtom215/syncline/internal/logging"
	"github.com/tomtom215/syncline/internal/models"
	"github.com/tomtom215/syncline/internal/remote"
	"github.com/tomtom215/syncline/internal/scheduler"
	"github.com/tomtom215/syncline/internal/supervisor"
	"github.com/tomtom215/syncline/internal/supervisor/services"
)

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("provider_base_url", cfg.Calendly.BaseURL).
		Bool("scheduler_enabled", cfg.Scheduler.Enabled).
		Bool("alerts_enabled", cfg.Alerts.Enabled).
		Msg("Starting Syncline")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	cache, err := engine.NewDetailCache(&cfg.Cache)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open detail cache")
	}
	defer func() {
		if err := cache.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing detail cache")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	publisher, err := alerts.NewPublisher(ctx, &cfg.Alerts)
	if err != nil {
		// Alerting is auxiliary: run degraded rather than refuse to start.
		logging.Error().Err(err).Msg("Alert publisher unavailable, continuing without it")
		publisher = nil
	}
	defer publisher.Close()

	// Reconciliation pipeline. The coordinator doubles as the usage reporter
	// so provider throttle signals immediately slow the whole batch.
	coordinator := engine.NewRateLimitCoordinator(&cfg.RateLimit)
	client := remote.NewBreakerClient(remote.NewClient(&cfg.Calendly, coordinator))
	reconciler := engine.NewReconciler(client, db, coordinator, cache, models.ProviderCalendly)
	orchestrator := engine.NewOrchestrator(db, reconciler, coordinator, &cfg.Sync, models.ProviderCalendly)
	monitor := health.NewMonitor(db, publisher, &cfg.Health, models.ProviderCalendly)

	handlers := api.NewHandlers(orchestrator, monitor, db)
	router := api.NewRouter(handlers, &cfg.Security)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  2 * cfg.Server.Timeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	if cfg.Scheduler.Enabled {
		sched := scheduler.New(orchestrator, &cfg.Scheduler)
		tree.AddWorkerService(services.NewRunnerService("sync-scheduler", sched))
		logging.Info().Dur("interval", cfg.Scheduler.Interval).Msg("Scheduler service added")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutting down, waiting for services to stop")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	logging.Info().Msg("Syncline stopped gracefully")
}
