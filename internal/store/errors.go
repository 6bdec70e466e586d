// Gigwatch - Concert Announcement Tracker and Notifier
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gigwatch

package store

import "errors"

var (
	// ErrNoIdentifier is returned when an upsert carries neither an email
	// address nor a push registration.
	ErrNoIdentifier = errors.New("subscription requires an email or a push registration")

	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrAlreadySeen is returned by RecordSeen when the event ID is
	// already present in the ledger.
	ErrAlreadySeen = errors.New("event already recorded")

	// ErrConflict is returned when a write transaction loses a
	// uniqueness race that the upsert merge rules could not resolve.
	ErrConflict = errors.New("subscription conflict")
)
