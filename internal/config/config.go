// Gigwatch - Concert Announcement Tracker and Notifier
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gigwatch

// Package config provides layered configuration loading for Gigwatch
// using Koanf v2. Precedence, highest first: environment variables,
// optional YAML config file, built-in defaults.
package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config is the root configuration for the Gigwatch server.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Ticketmaster  TicketmasterConfig  `koanf:"ticketmaster"`
	Poll          PollConfig          `koanf:"poll"`
	SMTP          SMTPConfig          `koanf:"smtp"`
	Push          PushConfig          `koanf:"push"`
	Store         StoreConfig         `koanf:"store"`
	Notifications NotificationsConfig `koanf:"notifications"`
	Logging       LoggingConfig       `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// TicketmasterConfig holds Discovery API settings.
type TicketmasterConfig struct {
	BaseURL     string  `koanf:"base_url"`
	APIKey      string  `koanf:"api_key"`
	Keyword     string  `koanf:"keyword"`
	CountryCode string  `koanf:"country_code"`
	PageSize    int     `koanf:"page_size"`
	// RequestsPerSecond throttles outbound Discovery API calls. The public
	// tier allows 5 req/s; stay under it.
	RequestsPerSecond float64       `koanf:"requests_per_second"`
	Timeout           time.Duration `koanf:"timeout"`
}

// PollConfig controls the poll cycle cadence.
type PollConfig struct {
	// Interval between scheduled cycles. The original deployment checked
	// every 3 hours; announcements are rare enough that more is wasteful.
	Interval     time.Duration `koanf:"interval"`
	RunOnStartup bool          `koanf:"run_on_startup"`
	// DispatchParallelism caps concurrent subscriber sends per event.
	DispatchParallelism int `koanf:"dispatch_parallelism"`
}

// SMTPConfig holds outbound email settings. Email delivery is disabled
// when Host is empty.
type SMTPConfig struct {
	Host     string        `koanf:"host"`
	Port     int           `koanf:"port"`
	From     string        `koanf:"from"`
	FromName string        `koanf:"from_name"`
	Username string        `koanf:"username"`
	Password string        `koanf:"password"`
	UseTLS   bool          `koanf:"use_tls"`
	Timeout  time.Duration `koanf:"timeout"`
}

// Enabled reports whether email delivery is configured.
func (c *SMTPConfig) Enabled() bool {
	return c.Host != "" && c.From != ""
}

// PushConfig holds Web Push / VAPID settings. Push delivery is disabled
// when the key pair is absent.
type PushConfig struct {
	VAPIDPublicKey  string `koanf:"vapid_public_key"`
	VAPIDPrivateKey string `koanf:"vapid_private_key"`
	// Contact is the mailto: or https: subject embedded in VAPID claims.
	Contact string        `koanf:"contact"`
	TTL     int           `koanf:"ttl"`
	Timeout time.Duration `koanf:"timeout"`
}

// Enabled reports whether web push delivery is configured.
func (c *PushConfig) Enabled() bool {
	return c.VAPIDPublicKey != "" && c.VAPIDPrivateKey != ""
}

// StoreConfig holds the embedded database settings.
type StoreConfig struct {
	Path string `koanf:"path"`
	// InMemory runs BadgerDB without disk persistence. Testing only.
	InMemory bool `koanf:"in_memory"`
}

// NotificationsConfig tunes rendered notification content.
type NotificationsConfig struct {
	// ArtistName appears in subjects and push titles, e.g. "Green Day".
	// Defaults to the Ticketmaster keyword when empty.
	ArtistName string `koanf:"artist_name"`
	// FallbackURL is linked when an event carries no URL of its own.
	FallbackURL string `koanf:"fallback_url"`
	// ConfirmationEmail controls the fire-and-forget welcome email on subscribe.
	ConfirmationEmail bool `koanf:"confirmation_email"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for startup-blocking problems.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateTicketmaster(); err != nil {
		return err
	}
	if err := c.validatePoll(); err != nil {
		return err
	}
	if err := c.validateSMTP(); err != nil {
		return err
	}
	if err := c.validatePush(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %s", c.Server.Timeout)
	}
	return nil
}

func (c *Config) validateTicketmaster() error {
	if c.Ticketmaster.APIKey == "" {
		return fmt.Errorf("ticketmaster.api_key is required (TICKETMASTER_API_KEY)")
	}
	if c.Ticketmaster.Keyword == "" {
		return fmt.Errorf("ticketmaster.keyword is required (ARTIST_KEYWORD)")
	}
	u, err := url.Parse(c.Ticketmaster.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("ticketmaster.base_url is not a valid URL: %q", c.Ticketmaster.BaseURL)
	}
	if c.Ticketmaster.PageSize < 1 || c.Ticketmaster.PageSize > 200 {
		return fmt.Errorf("ticketmaster.page_size must be 1-200, got %d", c.Ticketmaster.PageSize)
	}
	return nil
}

func (c *Config) validatePoll() error {
	if c.Poll.Interval < time.Minute {
		return fmt.Errorf("poll.interval must be at least 1m, got %s", c.Poll.Interval)
	}
	if c.Poll.DispatchParallelism < 1 {
		return fmt.Errorf("poll.dispatch_parallelism must be at least 1, got %d", c.Poll.DispatchParallelism)
	}
	return nil
}

func (c *Config) validateSMTP() error {
	if !c.SMTP.Enabled() {
		return nil
	}
	if c.SMTP.Port < 1 || c.SMTP.Port > 65535 {
		return fmt.Errorf("smtp.port must be 1-65535, got %d", c.SMTP.Port)
	}
	return nil
}

func (c *Config) validatePush() error {
	// A half-configured key pair is a misconfiguration, not "disabled".
	if (c.Push.VAPIDPublicKey == "") != (c.Push.VAPIDPrivateKey == "") {
		return fmt.Errorf("push: both vapid_public_key and vapid_private_key must be set together")
	}
	if c.Push.Enabled() && c.Push.Contact == "" {
		return fmt.Errorf("push.contact is required when VAPID keys are set")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "disabled", "":
	default:
		return fmt.Errorf("logging.level %q is not a known level", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console", "":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
