// Gigwatch - Concert Announcement Tracker and Notifier
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gigwatch

// Gigwatch watches the Ticketmaster Discovery API for new events by a
// tracked artist and notifies subscribers over email and Web Push.
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

	"github.com/tomtom215/gigwatch/internal/api"
	"github.com/tomtom215/gigwatch/internal/config"
	"github.com/tomtom215/gigwatch/internal/logging"
	"github.com/tomtom215/gigwatch/internal/notify"
	"github.com/tomtom215/gigwatch/internal/poller"
	"github.com/tomtom215/gigwatch/internal/store"
	"github.com/tomtom215/gigwatch/internal/supervisor"
	"github.com/tomtom215/gigwatch/internal/supervisor/services"
	"github.com/tomtom215/gigwatch/internal/ticketmaster"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("version", version).
		Str("keyword", cfg.Ticketmaster.Keyword).
		Str("store_path", cfg.Store.Path).
		Bool("email", cfg.SMTP.Enabled()).
		Bool("push", cfg.Push.Enabled()).
		Msg("Starting Gigwatch")

	// The store is the only component whose absence is fatal; every
	// delivery channel degrades gracefully instead.
	st, err := store.Open(cfg.Store)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()

	source := ticketmaster.NewCircuitBreakerClient(ticketmaster.NewClient(&cfg.Ticketmaster))

	var emailSender notify.EmailSender
	if cfg.SMTP.Enabled() {
		emailSender = notify.NewSMTPSender(cfg.SMTP)
		logging.Info().Str("smtp_host", cfg.SMTP.Host).Msg("Email delivery enabled")
	} else {
		logging.Info().Msg("Email delivery disabled (SMTP not configured)")
	}

	var pushSender notify.PushSender
	if cfg.Push.Enabled() {
		pushSender = notify.NewWebPushSender(cfg.Push)
		logging.Info().Msg("Web push delivery enabled")
	} else {
		logging.Info().Msg("Web push delivery disabled (VAPID keys not configured)")
	}

	renderer := notify.NewRenderer(&cfg.Notifications, cfg.Ticketmaster.Keyword)
	dispatcher := notify.NewDispatcher(st, emailSender, pushSender, renderer, cfg.Poll.DispatchParallelism)

	pollManager := poller.NewManager(source, st, dispatcher, cfg.Poll.Interval, cfg.Poll.RunOnStartup)

	handler := api.NewHandler(
		st,
		pollManager,
		dispatcher,
		cfg.Push.VAPIDPublicKey,
		cfg.Notifications.ConfirmationEmail,
		version,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(handler, &cfg.Server),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Supervisor events flow through slog; the adapter bridges it back
	// into zerolog.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddPollService(pollManager)
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Dur("poll_interval", cfg.Poll.Interval).Msg("Supervisor tree assembled")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutting down")
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

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Stopped")
}
