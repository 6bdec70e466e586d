// Gigwatch - Concert Announcement Tracker and Notifier
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gigwatch

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/gigwatch/internal/models"
)

// HasSeen reports whether the event ID is present in the ledger.
func (s *Store) HasSeen(ctx context.Context, eventID string) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(eventKey(eventID))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check event %s: %w", eventID, err)
	}
	return true, nil
}

// RecordSeen writes the event into the ledger and returns the stored
// entry. If the event ID is already present, ErrAlreadySeen is returned
// and the existing entry is left untouched. This check-and-insert is the
// uniqueness point that keeps concurrent poll cycles from dispatching the
// same event twice.
func (s *Store) RecordSeen(ctx context.Context, event models.Event) (*models.SeenEvent, error) {
	raw, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event %s: %w", event.ID, err)
	}

	entry := &models.SeenEvent{
		EventID:     event.ID,
		EventName:   event.Name,
		AnnouncedAt: time.Now().UTC(),
		Raw:         raw,
	}

	s.eventMu.Lock()
	defer s.eventMu.Unlock()

	err = s.db.Update(func(txn *badger.Txn) error {
		key := eventKey(event.ID)
		_, err := txn.Get(key)
		if err == nil {
			return ErrAlreadySeen
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("check event %s: %w", event.ID, err)
		}

		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("marshal ledger entry: %w", err)
		}
		return txn.Set(key, data)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// MarkNotified stamps the ledger entry with the time its notifications
// finished dispatching. The entry itself was written before dispatch, so
// an entry without a notified timestamp marks a delivery that was cut
// short.
func (s *Store) MarkNotified(ctx context.Context, eventID string, at time.Time) error {
	s.eventMu.Lock()
	defer s.eventMu.Unlock()

	return s.db.Update(func(txn *badger.Txn) error {
		key := eventKey(eventID)
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get event %s: %w", eventID, err)
		}

		var entry models.SeenEvent
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		}); err != nil {
			return fmt.Errorf("unmarshal ledger entry: %w", err)
		}

		ts := at.UTC()
		entry.NotifiedAt = &ts

		data, err := json.Marshal(&entry)
		if err != nil {
			return fmt.Errorf("marshal ledger entry: %w", err)
		}
		return txn.Set(key, data)
	})
}

// GetSeen returns the ledger entry for an event ID, or ErrNotFound.
func (s *Store) GetSeen(ctx context.Context, eventID string) (*models.SeenEvent, error) {
	var entry models.SeenEvent

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(eventKey(eventID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get event %s: %w", eventID, err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
