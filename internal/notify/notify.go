// Gigwatch - Concert Announcement Tracker and Notifier
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gigwatch

// Package notify renders and delivers event announcements to subscribers
// over email and Web Push. Channel failures are isolated per subscriber;
// one bad mailbox or endpoint never blocks the rest of the fanout.
package notify

import (
	"context"
	"errors"

	"github.com/tomtom215/gigwatch/internal/models"
)

// ErrEndpointGone marks a push endpoint the push service reports as
// permanently dead (HTTP 404 or 410). The dispatcher prunes the
// subscription that carries it.
var ErrEndpointGone = errors.New("push endpoint gone")

// EmailSender delivers a rendered email. Implemented by SMTPSender.
type EmailSender interface {
	Send(ctx context.Context, to, subject, htmlBody, textBody string) error
}

// PushSender delivers a rendered push payload to one registration.
// Implemented by WebPushSender.
type PushSender interface {
	Send(ctx context.Context, reg *models.PushRegistration, payload []byte) error
}
