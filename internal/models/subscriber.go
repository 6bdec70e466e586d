// Gigwatch - Concert Announcement Tracker and Notifier
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gigwatch

package models

import "time"

// PushKeys carries the client keys of a Web Push registration.
// P256dh is the client's public ECDH key, Auth the shared auth secret;
// both are base64url-encoded by the browser.
type PushKeys struct {
	P256dh string `json:"p256dh" validate:"required"`
	Auth   string `json:"auth" validate:"required"`
}

// PushRegistration is the opaque push-endpoint descriptor produced by
// the browser's PushManager. The Endpoint URL uniquely identifies the
// registration and is used as its natural key.
type PushRegistration struct {
	Endpoint string   `json:"endpoint" validate:"required,url"`
	Keys     PushKeys `json:"keys" validate:"required"`
}

// Subscriber is an entity wanting notifications, identified by an email
// address and/or a push registration. A subscriber always has at least
// one of the two; the store rejects records with neither.
type Subscriber struct {
	ID        string            `json:"id"`
	Email     string            `json:"email,omitempty"`
	Push      *PushRegistration `json:"push_subscription,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// HasEmail reports whether the subscriber can receive email.
func (s *Subscriber) HasEmail() bool {
	return s.Email != ""
}

// HasPush reports whether the subscriber can receive web push.
func (s *Subscriber) HasPush() bool {
	return s.Push != nil && s.Push.Endpoint != ""
}
