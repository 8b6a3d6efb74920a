// Syncline - Multi-Tenant Booking Sync and Data Health Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/syncline

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order
// of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/syncline/config.yaml",
	"/etc/syncline/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all defaults applied. These are layered
// first, then overridden by the config file and environment variables.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8642,
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Database: DatabaseConfig{
			Path:                   "/data/syncline.duckdb",
			MaxMemory:              "1GB",
			Threads:                0, // 0 = use runtime.NumCPU()
			PreserveInsertionOrder: true,
		},
		Cache: CacheConfig{
			Path: "/data/detail-cache",
			TTL:  30 * 24 * time.Hour,
		},
		Calendly: CalendlyConfig{
			BaseURL:  "https://api.calendly.com",
			Timeout:  30 * time.Second,
			PageSize: 100,
		},
		Sync: SyncConfig{
			DefaultDaysBack: 7,
			DeepDays:        90,
			Overlap:         time.Hour,
		},
		RateLimit: RateLimitConfig{
			MinInterval:    1500 * time.Millisecond,
			Cooldown:       60 * time.Second,
			UsageThreshold: 0.8,
		},
		Health: HealthConfig{
			StaleAfter:     24 * time.Hour,
			MinHealthScore: 70,
			MinDataQuality: 70,
			AlertCooldown:  time.Hour,
		},
		Scheduler: SchedulerConfig{
			Enabled:        true,
			Interval:       24 * time.Hour,
			RecentWindow:   36 * time.Hour,
			RecentDaysBack: 2,
			DeepEvery:      0, // disabled by default
		},
		Alerts: AlertsConfig{
			Enabled: false,
			URL:     "nats://127.0.0.1:4222",
			Stream:  "SYNCLINE_ALERTS",
			Subject: "syncline.alerts",
		},
		Security: SecurityConfig{
			AuthDisabled:    false,
			JWTSecret:       "",
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: built-in sensible defaults
//  2. Config file: optional YAML file (if it exists)
//  3. Environment variables: override any setting
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: optional config file
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables (highest priority)
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envMappings maps environment variable names (lowercased) to koanf paths.
// Only listed variables are honored; everything else in the process
// environment is ignored so unrelated variables cannot clobber settings.
var envMappings = map[string]string{
	"http_host":   "server.host",
	"http_port":   "server.port",
	"environment": "server.environment",

	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",

	"detail_cache_path": "cache.path",
	"detail_cache_ttl":  "cache.ttl",

	"calendly_base_url":  "calendly.base_url",
	"calendly_timeout":   "calendly.timeout",
	"calendly_page_size": "calendly.page_size",

	"sync_default_days_back": "sync.default_days_back",
	"sync_deep_days":         "sync.deep_days",
	"sync_overlap":           "sync.overlap",

	"rate_limit_min_interval":    "rate_limit.min_interval",
	"rate_limit_cooldown":        "rate_limit.cooldown",
	"rate_limit_usage_threshold": "rate_limit.usage_threshold",

	"health_stale_after":      "health.stale_after",
	"health_min_score":        "health.min_health_score",
	"health_min_data_quality": "health.min_data_quality",
	"health_alert_cooldown":   "health.alert_cooldown",

	"scheduler_enabled":          "scheduler.enabled",
	"scheduler_interval":         "scheduler.interval",
	"scheduler_recent_window":    "scheduler.recent_window",
	"scheduler_recent_days_back": "scheduler.recent_days_back",
	"scheduler_deep_every":       "scheduler.deep_every",

	"alerts_enabled": "alerts.enabled",
	"alerts_url":     "alerts.url",
	"alerts_stream":  "alerts.stream",
	"alerts_subject": "alerts.subject",

	"auth_disabled":     "security.auth_disabled",
	"jwt_secret":        "security.jwt_secret",
	"rate_limit_reqs":   "security.rate_limit_reqs",
	"rate_limit_window": "security.rate_limit_window",
	"cors_origins":      "security.cors_origins",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config
// paths via the explicit mapping table. Unknown variables map to "" and are
// skipped by the env provider.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

// sliceConfigPaths lists config paths parsed as comma-separated slices when
// they arrive as strings from the environment.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for
// known slice fields. Env vars come in as strings; the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue // already a slice (from YAML) or empty
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}
