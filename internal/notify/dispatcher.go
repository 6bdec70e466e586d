// Gigwatch - Concert Announcement Tracker and Notifier
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gigwatch

package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tomtom215/gigwatch/internal/logging"
	"github.com/tomtom215/gigwatch/internal/metrics"
	"github.com/tomtom215/gigwatch/internal/models"
)

// SubscriberDirectory is the slice of the store the dispatcher needs:
// the current subscriber list and endpoint pruning.
type SubscriberDirectory interface {
	ListSubscribers(ctx context.Context) ([]*models.Subscriber, error)
	RemoveByEndpoint(ctx context.Context, endpoint string) error
}

// DispatchResult summarizes one event's fanout. The failure slices
// carry the subscriber IDs whose send failed; PrunedEndpoints carries
// the push endpoints dropped after a definitive 404/410. The counts are
// the corresponding lengths plus the successful sends.
type DispatchResult struct {
	Subscribers int
	EmailSent   int
	EmailFailed int
	PushSent    int
	PushFailed  int
	Pruned      int

	EmailFailures   []string
	PushFailures    []string
	PrunedEndpoints []string
}

// Dispatcher fans one announcement out to every subscriber. Channel
// senders may be nil when the channel is not configured; subscribers
// registered for a disabled channel are simply skipped on it.
type Dispatcher struct {
	dir         SubscriberDirectory
	email       EmailSender
	push        PushSender
	render      *Renderer
	parallelism int
}

// NewDispatcher wires a dispatcher. parallelism caps concurrent
// subscriber sends; values below 1 fall back to 8.
func NewDispatcher(dir SubscriberDirectory, email EmailSender, push PushSender, render *Renderer, parallelism int) *Dispatcher {
	if parallelism < 1 {
		parallelism = 8
	}
	return &Dispatcher{
		dir:         dir,
		email:       email,
		push:        push,
		render:      render,
		parallelism: parallelism,
	}
}

// Dispatch sends the announcement to a snapshot of the subscriber list.
// Subscribers added mid-fanout catch the next event. Send failures are
// logged and counted, never propagated; the only error is a failure to
// read the subscriber list itself.
func (d *Dispatcher) Dispatch(ctx context.Context, ev models.Event) (DispatchResult, error) {
	subs, err := d.dir.ListSubscribers(ctx)
	if err != nil {
		return DispatchResult{}, fmt.Errorf("list subscribers: %w", err)
	}

	subject := d.render.Subject(ev)
	htmlBody, textBody := d.render.EmailBodies(ev)

	var payload []byte
	if d.push != nil {
		payload, err = d.render.PushPayload(ev)
		if err != nil {
			return DispatchResult{}, fmt.Errorf("render push payload: %w", err)
		}
	}

	result := DispatchResult{Subscribers: len(subs)}
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, d.parallelism)

	for _, sub := range subs {
		wg.Add(1)
		sem <- struct{}{}
		go func(sub *models.Subscriber) {
			defer wg.Done()
			defer func() { <-sem }()

			if d.email != nil && sub.HasEmail() {
				err := d.email.Send(ctx, sub.Email, subject, htmlBody, textBody)
				mu.Lock()
				if err != nil {
					result.EmailFailed++
					result.EmailFailures = append(result.EmailFailures, sub.ID)
					logging.Warn().Err(err).Str("event_id", ev.ID).Msg("Email delivery failed")
					metrics.NotificationsSent.WithLabelValues("email", "failure").Inc()
				} else {
					result.EmailSent++
					metrics.NotificationsSent.WithLabelValues("email", "success").Inc()
				}
				mu.Unlock()
			}

			if d.push != nil && sub.HasPush() {
				err := d.push.Send(ctx, sub.Push, payload)
				mu.Lock()
				switch {
				case errors.Is(err, ErrEndpointGone):
					result.Pruned++
					result.PrunedEndpoints = append(result.PrunedEndpoints, sub.Push.Endpoint)
					metrics.NotificationsSent.WithLabelValues("push", "failure").Inc()
					metrics.PrunedEndpoints.Inc()
					mu.Unlock()
					d.prune(ctx, sub.Push.Endpoint, ev.ID)
					return
				case err != nil:
					result.PushFailed++
					result.PushFailures = append(result.PushFailures, sub.ID)
					logging.Warn().Err(err).Str("event_id", ev.ID).Msg("Push delivery failed")
					metrics.NotificationsSent.WithLabelValues("push", "failure").Inc()
				default:
					result.PushSent++
					metrics.NotificationsSent.WithLabelValues("push", "success").Inc()
				}
				mu.Unlock()
			}
		}(sub)
	}
	wg.Wait()

	logging.Info().
		Str("event_id", ev.ID).
		Int("subscribers", result.Subscribers).
		Int("email_sent", result.EmailSent).
		Int("push_sent", result.PushSent).
		Int("pruned", result.Pruned).
		Msg("Dispatch complete")

	return result, nil
}

// SendConfirmation delivers the welcome email for a new subscription.
func (d *Dispatcher) SendConfirmation(ctx context.Context, email string) error {
	if d.email == nil {
		return nil
	}
	htmlBody, textBody := d.render.ConfirmationBodies()
	return d.email.Send(ctx, email, d.render.ConfirmationSubject(), htmlBody, textBody)
}

// prune drops a subscription whose push endpoint the push service has
// declared dead. Transient delivery failures never reach here; only a
// definitive 404/410 does.
func (d *Dispatcher) prune(ctx context.Context, endpoint, eventID string) {
	if err := d.dir.RemoveByEndpoint(ctx, endpoint); err != nil {
		logging.Error().Err(err).Str("event_id", eventID).Msg("Failed to prune dead endpoint")
		return
	}
	logging.Info().Str("event_id", eventID).Msg("Pruned dead push endpoint")
}
