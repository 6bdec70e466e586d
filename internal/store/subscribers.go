// Gigwatch - Concert Announcement Tracker and Notifier
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gigwatch

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/gigwatch/internal/metrics"
	"github.com/tomtom215/gigwatch/internal/models"
)

// Upsert registers or updates a subscription identified by email, push
// endpoint, or both. Resolution is an explicit decision table over which
// identifiers already match an existing record:
//
//	neither matched               -> create a new subscriber
//	endpoint matched only         -> update that record (attach email)
//	email matched only            -> update that record (attach push)
//	both matched, same record     -> update in place
//	both matched, different       -> merge: the email-matched record is
//	                                 canonical, takes the push
//	                                 registration, and the endpoint-only
//	                                 record is deleted
//
// The returned subscriber reflects the stored state after the operation.
func (s *Store) Upsert(ctx context.Context, email string, push *models.PushRegistration) (*models.Subscriber, error) {
	email = strings.TrimSpace(email)
	if email == "" && push == nil {
		return nil, ErrNoIdentifier
	}

	s.subMu.Lock()
	defer s.subMu.Unlock()

	var result *models.Subscriber
	err := s.db.Update(func(txn *badger.Txn) error {
		var byEndpoint, byEmail *models.Subscriber
		var err error

		if push != nil {
			byEndpoint, err = lookupSubscriber(txn, endpointKey(push.Endpoint))
			if err != nil {
				return err
			}
		}
		if email != "" {
			byEmail, err = lookupSubscriber(txn, emailKey(email))
			if err != nil {
				return err
			}
		}

		switch {
		case byEndpoint == nil && byEmail == nil:
			sub := &models.Subscriber{
				ID:        uuid.NewString(),
				Email:     email,
				Push:      push,
				CreatedAt: time.Now().UTC(),
			}
			if err := putSubscriber(txn, sub); err != nil {
				return err
			}
			metrics.SubscriberOperations.WithLabelValues("create").Inc()
			result = sub

		case byEndpoint != nil && byEmail != nil && byEndpoint.ID != byEmail.ID:
			// Merge. The email record survives and absorbs the push
			// registration; the endpoint record is removed along with
			// its index keys.
			if err := deleteSubscriber(txn, byEndpoint); err != nil {
				return err
			}
			byEmail.Push = push
			if err := putSubscriber(txn, byEmail); err != nil {
				return err
			}
			metrics.SubscriberOperations.WithLabelValues("merge").Inc()
			result = byEmail

		case byEmail != nil:
			// Email matched (alone, or together with the same record's
			// endpoint). Attach or replace the push registration.
			if push != nil {
				if byEmail.Push != nil && byEmail.Push.Endpoint != push.Endpoint {
					if err := txn.Delete(endpointKey(byEmail.Push.Endpoint)); err != nil {
						return fmt.Errorf("delete stale endpoint index: %w", err)
					}
				}
				byEmail.Push = push
			}
			if err := putSubscriber(txn, byEmail); err != nil {
				return err
			}
			metrics.SubscriberOperations.WithLabelValues("update").Inc()
			result = byEmail

		default:
			// Endpoint matched only. Attach or replace the email.
			if email != "" {
				if byEndpoint.Email != "" && byEndpoint.Email != email {
					if err := txn.Delete(emailKey(byEndpoint.Email)); err != nil {
						return fmt.Errorf("delete stale email index: %w", err)
					}
				}
				byEndpoint.Email = email
			}
			byEndpoint.Push = push
			if err := putSubscriber(txn, byEndpoint); err != nil {
				return err
			}
			metrics.SubscriberOperations.WithLabelValues("update").Inc()
			result = byEndpoint
		}
		return nil
	})
	if errors.Is(err, badger.ErrConflict) {
		return nil, fmt.Errorf("%w: %v", ErrConflict, err)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RemoveByEmail deletes the subscriber registered under email. Removing
// an unknown email is a no-op.
func (s *Store) RemoveByEmail(ctx context.Context, email string) error {
	return s.removeBy(emailKey(email))
}

// RemoveByEndpoint deletes the subscriber registered under the push
// endpoint. Removing an unknown endpoint is a no-op.
func (s *Store) RemoveByEndpoint(ctx context.Context, endpoint string) error {
	return s.removeBy(endpointKey(endpoint))
}

func (s *Store) removeBy(indexKey []byte) error {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	return s.db.Update(func(txn *badger.Txn) error {
		sub, err := lookupSubscriber(txn, indexKey)
		if err != nil {
			return err
		}
		if sub == nil {
			return nil
		}
		if err := deleteSubscriber(txn, sub); err != nil {
			return err
		}
		metrics.SubscriberOperations.WithLabelValues("remove").Inc()
		return nil
	})
}

// ListSubscribers returns every stored subscriber. Order is the key
// order of the underlying database, which is stable across calls.
func (s *Store) ListSubscribers(ctx context.Context) ([]*models.Subscriber, error) {
	var subs []*models.Subscriber

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		prefix := []byte(subscriberKeyPrefix)
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var sub models.Subscriber
				if err := json.Unmarshal(val, &sub); err != nil {
					return fmt.Errorf("unmarshal subscriber: %w", err)
				}
				subs = append(subs, &sub)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return subs, nil
}

// lookupSubscriber resolves an index key to its subscriber record.
// A missing index key resolves to nil, nil. A dangling index entry
// whose target record is gone is treated the same way.
func lookupSubscriber(txn *badger.Txn, indexKey []byte) (*models.Subscriber, error) {
	item, err := txn.Get(indexKey)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get index %q: %w", indexKey, err)
	}

	var id string
	if err := item.Value(func(val []byte) error {
		id = string(val)
		return nil
	}); err != nil {
		return nil, err
	}

	recItem, err := txn.Get(subscriberKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get subscriber %s: %w", id, err)
	}

	var sub models.Subscriber
	if err := recItem.Value(func(val []byte) error {
		return json.Unmarshal(val, &sub)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal subscriber %s: %w", id, err)
	}
	return &sub, nil
}

// putSubscriber writes the record and its index keys in the same
// transaction.
func putSubscriber(txn *badger.Txn, sub *models.Subscriber) error {
	data, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("marshal subscriber: %w", err)
	}
	if err := txn.Set(subscriberKey(sub.ID), data); err != nil {
		return fmt.Errorf("set subscriber: %w", err)
	}
	if sub.Email != "" {
		if err := txn.Set(emailKey(sub.Email), []byte(sub.ID)); err != nil {
			return fmt.Errorf("set email index: %w", err)
		}
	}
	if sub.Push != nil {
		if err := txn.Set(endpointKey(sub.Push.Endpoint), []byte(sub.ID)); err != nil {
			return fmt.Errorf("set endpoint index: %w", err)
		}
	}
	return nil
}

// deleteSubscriber removes the record and every index key that points
// at it.
func deleteSubscriber(txn *badger.Txn, sub *models.Subscriber) error {
	if err := txn.Delete(subscriberKey(sub.ID)); err != nil {
		return fmt.Errorf("delete subscriber: %w", err)
	}
	if sub.Email != "" {
		if err := txn.Delete(emailKey(sub.Email)); err != nil {
			return fmt.Errorf("delete email index: %w", err)
		}
	}
	if sub.Push != nil {
		if err := txn.Delete(endpointKey(sub.Push.Endpoint)); err != nil {
			return fmt.Errorf("delete endpoint index: %w", err)
		}
	}
	return nil
}
