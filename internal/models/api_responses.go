// Gigwatch - Concert Announcement Tracker and Notifier
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gigwatch

package models

import "time"

// APIResponse is the standardized response wrapper used by all HTTP
// endpoints. Status is "success" or "error"; Error is populated only
// when Status is "error".
//
// Example:
//
//	{
//	  "status": "success",
//	  "data": {"found": 1, "events": ["tm-456"]},
//	  "metadata": {"timestamp": "2026-08-31T12:00:00Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata for observability.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
}

// APIError carries a machine-readable error code plus a human-readable
// message. Details is optional structured context (e.g. the failing field).
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// SubscribeRequest is the payload of POST /api/v1/subscriptions/subscribe.
// Either Email or PushSubscription (or both) must be present; the handler
// rejects a request carrying neither.
type SubscribeRequest struct {
	Email            string            `json:"email" validate:"omitempty,email"`
	PushSubscription *PushRegistration `json:"pushSubscription" validate:"omitempty"`
}

// UnsubscribeRequest is the payload of POST /api/v1/subscriptions/unsubscribe.
type UnsubscribeRequest struct {
	Email    string `json:"email" validate:"omitempty,email"`
	Endpoint string `json:"endpoint" validate:"omitempty,url"`
}

// SubscribeResponse is returned from a successful subscribe call. The
// VAPID public key is included so the browser can create a push
// registration without a second round trip.
type SubscribeResponse struct {
	Subscription   *Subscriber `json:"subscription"`
	VAPIDPublicKey string      `json:"vapidPublicKey,omitempty"`
}

// SubscriptionList is returned from GET /api/v1/subscriptions.
type SubscriptionList struct {
	Count         int           `json:"count"`
	Subscriptions []*Subscriber `json:"subscriptions"`
}
