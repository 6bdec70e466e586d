// Gigwatch - Concert Announcement Tracker and Notifier
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gigwatch

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

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/gigwatch/config.yaml",
	"/etc/gigwatch/config.yml",
}

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by the config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			Timeout:         30 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Ticketmaster: TicketmasterConfig{
			BaseURL:           "https://app.ticketmaster.com/discovery/v2",
			APIKey:            "",
			Keyword:           "",
			CountryCode:       "",
			PageSize:          50,
			RequestsPerSecond: 2,
			Timeout:           10 * time.Second,
		},
		Poll: PollConfig{
			Interval:            3 * time.Hour,
			RunOnStartup:        true,
			DispatchParallelism: 10,
		},
		SMTP: SMTPConfig{
			Host:     "",
			Port:     587,
			From:     "",
			FromName: "Gigwatch",
			UseTLS:   true,
			Timeout:  30 * time.Second,
		},
		Push: PushConfig{
			VAPIDPublicKey:  "",
			VAPIDPrivateKey: "",
			Contact:         "",
			TTL:             86400,
			Timeout:         10 * time.Second,
		},
		Store: StoreConfig{
			Path:     "/data/gigwatch",
			InMemory: false,
		},
		Notifications: NotificationsConfig{
			ArtistName:        "",
			FallbackURL:       "",
			ConfirmationEmail: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load loads configuration using Koanf v2 with layered sources:
//
//  1. Defaults: built-in sensible defaults
//  2. Config file: optional YAML file (if present)
//  3. Environment variables: override any setting
func Load() (*Config, error) {
	k := koanf.New(".")

	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

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

// sliceConfigPaths defines which config paths are parsed as comma-separated
// slices when supplied through environment variables.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for
// known slice fields. Env vars come in as strings but the config expects
// slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		s, ok := val.(string)
		if !ok {
			return fmt.Errorf("config path %s: expected string or slice, got %T", path, val)
		}

		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if err := k.Set(path, out); err != nil {
			return fmt.Errorf("config path %s: %w", path, err)
		}
	}
	return nil
}

// envTransformFunc transforms environment variable names to koanf config
// paths. The mapping keeps backward compatibility with the environment
// variables of earlier deployments.
//
// Examples:
//   - TICKETMASTER_API_KEY -> ticketmaster.api_key
//   - ARTIST_KEYWORD -> ticketmaster.keyword
//   - VAPID_PUBLIC_KEY -> push.vapid_public_key
//   - HTTP_PORT -> server.port
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Server
		"http_host":           "server.host",
		"http_port":           "server.port",
		"port":                "server.port",
		"http_timeout":        "server.timeout",
		"cors_origins":        "server.cors_origins",
		"rate_limit_requests": "server.rate_limit_reqs",
		"rate_limit_window":   "server.rate_limit_window",

		// Ticketmaster
		"ticketmaster_base_url": "ticketmaster.base_url",
		"ticketmaster_api_key":  "ticketmaster.api_key",
		"artist_keyword":        "ticketmaster.keyword",
		"country_code":          "ticketmaster.country_code",
		"ticketmaster_rps":      "ticketmaster.requests_per_second",
		"ticketmaster_timeout":  "ticketmaster.timeout",

		// Poll
		"poll_interval":        "poll.interval",
		"poll_on_startup":      "poll.run_on_startup",
		"dispatch_parallelism": "poll.dispatch_parallelism",

		// SMTP
		"smtp_host":       "smtp.host",
		"smtp_port":       "smtp.port",
		"mail_from_email": "smtp.from",
		"mail_from_name":  "smtp.from_name",
		"smtp_username":   "smtp.username",
		"smtp_password":   "smtp.password",
		"smtp_use_tls":    "smtp.use_tls",

		// Web push
		"vapid_public_key":  "push.vapid_public_key",
		"vapid_private_key": "push.vapid_private_key",
		"vapid_contact":     "push.contact",
		"push_ttl":          "push.ttl",

		// Store
		"store_path":      "store.path",
		"store_in_memory": "store.in_memory",

		// Notifications
		"artist_name":        "notifications.artist_name",
		"fallback_url":       "notifications.fallback_url",
		"confirmation_email": "notifications.confirmation_email",

		// Logging
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	// Unknown variables are ignored rather than guessed at; loading them
	// into the root namespace would shadow config sections.
	return ""
}
