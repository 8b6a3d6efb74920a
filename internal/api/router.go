// Syncline - Multi-Tenant Booking Sync and Data Health Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/syncline

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/syncline/internal/config"
	"github.com/tomtom215/syncline/internal/middleware"
)

// Router assembles the HTTP surface.
type Router struct {
	handlers *Handlers
	security *config.SecurityConfig
}

// NewRouter creates the router around the given handlers.
func NewRouter(handlers *Handlers, security *config.SecurityConfig) *Router {
	return &Router{handlers: handlers, security: security}
}

// Setup builds the Chi handler tree.
//
// Probes and metrics are unauthenticated; the trigger endpoints sit behind
// JWT auth and per-IP rate limiting.
func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	if len(rt.security.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: rt.security.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
			MaxAge:         300,
		}))
	}

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/health", func(r chi.Router) {
			r.Get("/live", rt.handlers.HealthLive)
			r.Get("/ready", rt.handlers.HealthReady)
		})

		r.Group(func(r chi.Router) {
			if rt.security.RateLimitReqs > 0 {
				r.Use(httprate.LimitByIP(rt.security.RateLimitReqs, rt.security.RateLimitWindow))
			}
			r.Use(middleware.PrometheusMetrics)
			r.Use(middleware.JWTAuth(rt.security))

			r.Post("/sync/trigger", rt.handlers.SyncTrigger)
			r.Post("/health/check", rt.handlers.HealthCheck)
		})
	})

	return r
}
