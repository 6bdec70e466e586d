// Gigwatch - Concert Announcement Tracker and Notifier
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gigwatch

package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/tomtom215/gigwatch/internal/config"
	"github.com/tomtom215/gigwatch/internal/models"
)

// WebPushSender delivers Web Push messages signed with the configured
// VAPID key pair.
type WebPushSender struct {
	cfg    config.PushConfig
	client *http.Client
}

// NewWebPushSender creates a push sender from VAPID settings.
func NewWebPushSender(cfg config.PushConfig) *WebPushSender {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &WebPushSender{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

// Send pushes the payload to one registration. A 404 or 410 from the
// push service means the browser dropped the subscription; that is
// reported as ErrEndpointGone so the caller can prune the record.
func (s *WebPushSender) Send(ctx context.Context, reg *models.PushRegistration, payload []byte) error {
	sub := &webpush.Subscription{
		Endpoint: reg.Endpoint,
		Keys: webpush.Keys{
			P256dh: reg.Keys.P256dh,
			Auth:   reg.Keys.Auth,
		},
	}

	ttl := s.cfg.TTL
	if ttl <= 0 {
		ttl = 3600
	}

	resp, err := webpush.SendNotificationWithContext(ctx, payload, sub, &webpush.Options{
		HTTPClient:      s.client,
		Subscriber:      s.cfg.Contact,
		TTL:             ttl,
		VAPIDPublicKey:  s.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: s.cfg.VAPIDPrivateKey,
	})
	if err != nil {
		return fmt.Errorf("send web push: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return fmt.Errorf("%w: HTTP %d", ErrEndpointGone, resp.StatusCode)
	case resp.StatusCode >= 400:
		body := readPushError(resp)
		return fmt.Errorf("push service HTTP %d: %s", resp.StatusCode, body)
	}
	return nil
}

func readPushError(resp *http.Response) []byte {
	buf := make([]byte, 512)
	n, _ := resp.Body.Read(buf)
	return buf[:n]
}
