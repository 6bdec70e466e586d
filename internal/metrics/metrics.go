// Gigwatch - Concert Announcement Tracker and Notifier
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gigwatch

// Package metrics provides Prometheus instrumentation for poll cycles,
// notification delivery, subscriber churn, and upstream API health.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Poll cycle metrics
	PollCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gigwatch_poll_cycles_total",
			Help: "Total number of poll cycles by outcome",
		},
		[]string{"outcome"}, // "success", "failure"
	)

	PollCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gigwatch_poll_cycle_duration_seconds",
			Help:    "Duration of poll cycles in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	NewEventsFound = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gigwatch_new_events_total",
			Help: "Total number of newly discovered events",
		},
	)

	// Notification metrics
	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gigwatch_notifications_sent_total",
			Help: "Total notification send attempts by channel and outcome",
		},
		[]string{"channel", "outcome"}, // channel: "email"|"push", outcome: "success"|"failure"
	)

	PrunedEndpoints = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gigwatch_pruned_endpoints_total",
			Help: "Total subscriber records removed after a dead push endpoint",
		},
	)

	// Subscriber metrics
	SubscriberOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gigwatch_subscriber_operations_total",
			Help: "Subscriber store operations by type",
		},
		[]string{"operation"}, // "create", "update", "merge", "remove"
	)

	// Upstream API metrics
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gigwatch_upstream_requests_total",
			Help: "Ticketmaster API requests by outcome",
		},
		[]string{"outcome"}, // "success", "error"
	)

	CircuitBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gigwatch_circuit_breaker_state",
			Help: "Ticketmaster circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)
)
