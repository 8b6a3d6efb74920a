// Syncline - Multi-Tenant Booking Sync and Data Health Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/syncline

// Package config provides layered configuration for Syncline using Koanf v2.
//
// Precedence: environment variables > YAML config file > built-in defaults.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the Syncline server.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Cache     CacheConfig     `koanf:"cache"`
	Calendly  CalendlyConfig  `koanf:"calendly"`
	Sync      SyncConfig      `koanf:"sync"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Health    HealthConfig    `koanf:"health"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
	Alerts    AlertsConfig    `koanf:"alerts"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"`
}

// DatabaseConfig holds DuckDB settings for the local event store.
type DatabaseConfig struct {
	Path                   string `koanf:"path"`
	MaxMemory              string `koanf:"max_memory"`
	Threads                int    `koanf:"threads"` // 0 = runtime.NumCPU()
	PreserveInsertionOrder bool   `koanf:"preserve_insertion_order"`
}

// CacheConfig holds the Badger-backed invitee-detail cache settings.
// The cache stores the last known-good enrichment result per event so a
// throttled detail fetch can fall back instead of degrading the record.
type CacheConfig struct {
	Path string        `koanf:"path"` // empty = in-memory
	TTL  time.Duration `koanf:"ttl"`
}

// CalendlyConfig holds remote provider API settings.
type CalendlyConfig struct {
	BaseURL  string        `koanf:"base_url"`
	Timeout  time.Duration `koanf:"timeout"`
	PageSize int           `koanf:"page_size"`
}

// SyncConfig holds window-planner and reconciler settings.
type SyncConfig struct {
	// DefaultDaysBack is the look-back for default-mode syncs and for
	// incremental syncs with no prior cursor.
	DefaultDaysBack int `koanf:"default_days_back"`

	// DeepDays is the look-back for deep reconciliation passes.
	DeepDays int `koanf:"deep_days"`

	// Overlap is subtracted from the last-sync cursor on incremental runs
	// to cover clock skew and late-arriving writes at the provider.
	Overlap time.Duration `koanf:"overlap"`
}

// RateLimitConfig holds the outbound rate-limit coordinator settings.
// The limit is account-wide at the provider, so spacing and cooldown are
// global across tenants, not per-tenant.
type RateLimitConfig struct {
	// MinInterval is the minimum spacing between tenant requests.
	MinInterval time.Duration `koanf:"min_interval"`

	// Cooldown is the sleep imposed after a hard rate-limit signal.
	Cooldown time.Duration `koanf:"cooldown"`

	// UsageThreshold is the fraction of quota (0..1) above which the
	// coordinator preemptively enters cooldown.
	UsageThreshold float64 `koanf:"usage_threshold"`
}

// HealthConfig holds health-monitor settings.
type HealthConfig struct {
	// StaleAfter is how long past its scheduled time an active event may sit
	// before it counts against the tenant's data-quality score.
	StaleAfter time.Duration `koanf:"stale_after"`

	// MinHealthScore and MinDataQuality are the alert thresholds.
	MinHealthScore int `koanf:"min_health_score"`
	MinDataQuality int `koanf:"min_data_quality"`

	// AlertCooldown suppresses re-raising an alert for a breach that already
	// has one within this window. 0 raises on every evaluation.
	AlertCooldown time.Duration `koanf:"alert_cooldown"`
}

// SchedulerConfig holds the periodic sync trigger settings.
type SchedulerConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Interval time.Duration `koanf:"interval"`

	// RecentWindow controls the adaptive look-back: if the last scheduled
	// run succeeded within this window, the next run uses RecentDaysBack
	// instead of the sync default. Cost saving, not correctness.
	RecentWindow   time.Duration `koanf:"recent_window"`
	RecentDaysBack int           `koanf:"recent_days_back"`

	// DeepEvery promotes every Nth scheduled run to a deep reconciliation
	// pass. 0 disables promotion.
	DeepEvery int `koanf:"deep_every"`
}

// AlertsConfig holds the NATS JetStream alert publisher settings.
type AlertsConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url"`
	Stream  string `koanf:"stream"`
	Subject string `koanf:"subject"`
}

// SecurityConfig holds API authentication and inbound rate-limit settings.
type SecurityConfig struct {
	// AuthDisabled turns off bearer-token auth on trigger endpoints.
	// Intended for local development only.
	AuthDisabled bool   `koanf:"auth_disabled"`
	JWTSecret    string `koanf:"jwt_secret"`

	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for values that would misbehave at
// runtime. Called by LoadWithKoanf after all layers are applied.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if c.Calendly.BaseURL == "" {
		return fmt.Errorf("calendly.base_url must not be empty")
	}
	if c.Calendly.PageSize < 1 || c.Calendly.PageSize > 100 {
		return fmt.Errorf("calendly.page_size must be 1-100, got %d", c.Calendly.PageSize)
	}
	if c.Sync.DefaultDaysBack < 1 {
		return fmt.Errorf("sync.default_days_back must be >= 1, got %d", c.Sync.DefaultDaysBack)
	}
	if c.Sync.DeepDays < c.Sync.DefaultDaysBack {
		return fmt.Errorf("sync.deep_days (%d) must be >= sync.default_days_back (%d)",
			c.Sync.DeepDays, c.Sync.DefaultDaysBack)
	}
	if c.Sync.Overlap < 0 {
		return fmt.Errorf("sync.overlap must not be negative")
	}
	if c.RateLimit.MinInterval <= 0 {
		return fmt.Errorf("rate_limit.min_interval must be positive, got %v", c.RateLimit.MinInterval)
	}
	if c.RateLimit.UsageThreshold <= 0 || c.RateLimit.UsageThreshold > 1 {
		return fmt.Errorf("rate_limit.usage_threshold must be in (0, 1], got %v", c.RateLimit.UsageThreshold)
	}
	if c.Health.MinHealthScore < 0 || c.Health.MinHealthScore > 100 {
		return fmt.Errorf("health.min_health_score must be 0-100, got %d", c.Health.MinHealthScore)
	}
	if c.Health.MinDataQuality < 0 || c.Health.MinDataQuality > 100 {
		return fmt.Errorf("health.min_data_quality must be 0-100, got %d", c.Health.MinDataQuality)
	}
	if c.Health.AlertCooldown < 0 {
		return fmt.Errorf("health.alert_cooldown must not be negative, got %s", c.Health.AlertCooldown)
	}
	if c.Scheduler.Enabled && c.Scheduler.Interval < time.Minute {
		return fmt.Errorf("scheduler.interval must be >= 1m, got %v", c.Scheduler.Interval)
	}
	if c.Alerts.Enabled && c.Alerts.URL == "" {
		return fmt.Errorf("alerts.url must be set when alerts are enabled")
	}
	if !c.Security.AuthDisabled && c.Security.JWTSecret == "" {
		return fmt.Errorf("security.jwt_secret must be set unless security.auth_disabled is true")
	}
	if c.Server.Environment == "production" && c.Security.AuthDisabled {
		return fmt.Errorf("security.auth_disabled is not allowed in production")
	}
	return nil
}
