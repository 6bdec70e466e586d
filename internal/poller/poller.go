// Gigwatch - Concert Announcement Tracker and Notifier
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gigwatch

// Package poller runs the announcement check cycle: fetch the current
// event list upstream, diff it against the ledger, dispatch
// notifications for anything new, and settle the ledger afterwards.
// Scheduled runs and manual triggers share the same cycle; overlapping
// cycles are safe because the ledger's record-before-dispatch check is
// the single point of uniqueness.
package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/gigwatch/internal/logging"
	"github.com/tomtom215/gigwatch/internal/metrics"
	"github.com/tomtom215/gigwatch/internal/models"
	"github.com/tomtom215/gigwatch/internal/notify"
	"github.com/tomtom215/gigwatch/internal/store"
	"github.com/tomtom215/gigwatch/internal/ticketmaster"
)

// phase names a stage of the poll cycle, for logs and failure context.
type phase string

const (
	phaseFetching    phase = "fetching"
	phaseDiffing     phase = "diffing"
	phaseDispatching phase = "dispatching"
	phaseSettling    phase = "settling"
)

// Ledger is the slice of the store the poller needs.
type Ledger interface {
	HasSeen(ctx context.Context, eventID string) (bool, error)
	GetSeen(ctx context.Context, eventID string) (*models.SeenEvent, error)
	RecordSeen(ctx context.Context, event models.Event) (*models.SeenEvent, error)
	MarkNotified(ctx context.Context, eventID string, at time.Time) error
}

// EventDispatcher fans one new event out to subscribers.
type EventDispatcher interface {
	Dispatch(ctx context.Context, ev models.Event) (notify.DispatchResult, error)
}

// CheckResult summarizes one completed cycle.
type CheckResult struct {
	// Fetched is the upstream event count before diffing.
	Fetched int `json:"fetched"`
	// Found is the number of previously unseen events dispatched.
	Found int `json:"found"`
	// Events lists the IDs of the new events, in upstream order.
	Events []string `json:"events"`
}

// Manager owns the poll schedule and the cycle itself.
type Manager struct {
	source     ticketmaster.EventSource
	ledger     Ledger
	dispatcher EventDispatcher

	interval     time.Duration
	runOnStartup bool
}

// NewManager wires a poll manager.
func NewManager(source ticketmaster.EventSource, ledger Ledger, dispatcher EventDispatcher, interval time.Duration, runOnStartup bool) *Manager {
	return &Manager{
		source:       source,
		ledger:       ledger,
		dispatcher:   dispatcher,
		interval:     interval,
		runOnStartup: runOnStartup,
	}
}

// Serve runs the poll schedule until the context is cancelled. It
// satisfies the suture service contract: the error returned is the
// context's, so the supervisor treats cancellation as a normal stop.
func (m *Manager) Serve(ctx context.Context) error {
	logging.Info().
		Dur("interval", m.interval).
		Bool("run_on_startup", m.runOnStartup).
		Msg("Poller started")

	if m.runOnStartup {
		if _, err := m.Check(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Startup poll cycle failed")
		}
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := m.Check(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logging.Error().Err(err).Msg("Scheduled poll cycle failed")
			}
		case <-ctx.Done():
			logging.Info().Msg("Poller stopping")
			return ctx.Err()
		}
	}
}

// String names the service in supervisor logs.
func (m *Manager) String() string {
	return "poller"
}

// Check runs one poll cycle and reports what it found. Manual triggers
// call this directly; it is safe to run while a scheduled cycle is in
// flight.
func (m *Manager) Check(ctx context.Context) (CheckResult, error) {
	start := time.Now()
	result, err := m.runCycle(ctx)
	elapsed := time.Since(start)

	metrics.PollCycleDuration.Observe(elapsed.Seconds())
	if err != nil {
		metrics.PollCyclesTotal.WithLabelValues("failure").Inc()
		return result, err
	}

	metrics.PollCyclesTotal.WithLabelValues("success").Inc()
	if result.Found > 0 {
		metrics.NewEventsFound.Add(float64(result.Found))
	}

	logging.Info().
		Int("fetched", result.Fetched).
		Int("new", result.Found).
		Dur("elapsed", elapsed).
		Msg("Poll cycle complete")
	return result, nil
}

func (m *Manager) runCycle(ctx context.Context) (CheckResult, error) {
	var result CheckResult

	events, err := m.source.FetchEvents(ctx)
	if err != nil {
		return result, fmt.Errorf("%s: %w", phaseFetching, err)
	}
	result.Fetched = len(events)

	// One event's failure never blocks the rest of the page: per-event
	// errors are logged with their phase and the loop moves on. Only
	// the fetch itself and context cancellation abort the cycle.
	for _, ev := range events {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		fresh, err := m.diff(ctx, ev)
		if err != nil {
			logging.Error().Err(err).
				Str("phase", string(phaseDiffing)).
				Str("event_id", ev.ID).
				Msg("Event skipped this cycle")
			continue
		}
		if !fresh {
			continue
		}

		result.Found++
		result.Events = append(result.Events, ev.ID)

		// The ledger entry exists before any notification goes out. A
		// failure from here on leaves the event marked seen but
		// unsettled, which is the chosen failure mode: no duplicate
		// announcements.
		if _, err := m.dispatcher.Dispatch(ctx, ev); err != nil {
			logging.Error().Err(err).
				Str("phase", string(phaseDispatching)).
				Str("event_id", ev.ID).
				Msg("Fanout failed, event stays claimed")
			continue
		}

		if err := m.ledger.MarkNotified(ctx, ev.ID, time.Now()); err != nil {
			logging.Error().Err(err).
				Str("phase", string(phaseSettling)).
				Str("event_id", ev.ID).
				Msg("Event delivered but not settled")
		}
	}

	return result, nil
}

// diff claims the event in the ledger. It reports false when the event
// was seen before, including the case where a concurrent cycle claimed
// it between the read and the write.
func (m *Manager) diff(ctx context.Context, ev models.Event) (bool, error) {
	seen, err := m.ledger.HasSeen(ctx, ev.ID)
	if err != nil {
		return false, err
	}
	if seen {
		m.warnUnsettled(ctx, ev.ID)
		return false, nil
	}

	if _, err := m.ledger.RecordSeen(ctx, ev); err != nil {
		if errors.Is(err, store.ErrAlreadySeen) {
			logging.Debug().Str("event_id", ev.ID).Msg("Event claimed by concurrent cycle")
			return false, nil
		}
		return false, err
	}

	logging.Info().
		Str("event_id", ev.ID).
		Str("name", ev.Name).
		Str("city", ev.Venue.City).
		Str("date", ev.Date).
		Msg("New event announced")
	return true, nil
}

// warnUnsettled surfaces ledger entries that were claimed in an earlier
// cycle but never finished fanout, e.g. after a crash between the
// ledger write and delivery. Such events are never re-announced; the
// log line is the operator's cue to notify out of band.
func (m *Manager) warnUnsettled(ctx context.Context, eventID string) {
	rec, err := m.ledger.GetSeen(ctx, eventID)
	if err != nil || rec == nil || rec.NotifiedAt != nil {
		return
	}
	logging.Warn().
		Str("event_id", eventID).
		Time("announced_at", rec.AnnouncedAt).
		Msg("Event recorded but never settled")
}
