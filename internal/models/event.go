// Gigwatch - Concert Announcement Tracker and Notifier
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gigwatch

// Package models contains the shared data types for Gigwatch: normalized
// upstream events, subscriber records, ledger entries, and the API
// request/response envelope.
package models

import (
	"time"

	"github.com/goccy/go-json"
)

// Venue describes where an event takes place.
type Venue struct {
	Name    string `json:"name"`
	City    string `json:"city"`
	Country string `json:"country"`
	Address string `json:"address,omitempty"`
}

// Event is a normalized record of an externally announced show, keyed by
// the upstream provider's stable event ID. The Raw field retains the full
// provider payload for audit and debugging.
type Event struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	URL      string          `json:"url"`
	Date     string          `json:"date"`
	Timezone string          `json:"timezone,omitempty"`
	Venue    Venue           `json:"venue"`
	Raw      json.RawMessage `json:"raw,omitempty"`
}

// SeenEvent is a ledger entry marking an event as already observed.
// NotifiedAt stays nil until the dispatch attempt for the event settles;
// an entry with a nil NotifiedAt after a restart indicates a crash between
// recording and dispatch.
type SeenEvent struct {
	EventID     string          `json:"event_id"`
	EventName   string          `json:"event_name"`
	AnnouncedAt time.Time       `json:"announced_at"`
	NotifiedAt  *time.Time      `json:"notified_at,omitempty"`
	Raw         json.RawMessage `json:"raw,omitempty"`
}
