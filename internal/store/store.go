// Gigwatch - Concert Announcement Tracker and Notifier
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gigwatch

// Package store provides BadgerDB-backed persistence for subscribers and
// the event ledger. Records are stored as JSON under typed key prefixes,
// with secondary index keys for email and push-endpoint lookups.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/gigwatch/internal/config"
	"github.com/tomtom215/gigwatch/internal/logging"
)

// Key prefixes for BadgerDB storage.
const (
	subscriberKeyPrefix = "subscriber:"
	emailKeyPrefix      = "email:"
	endpointKeyPrefix   = "endpoint:"
	eventKeyPrefix      = "event:"
)

// Store wraps a BadgerDB instance shared by the subscriber store and the
// event ledger. Logical write operations are serialized with per-domain
// mutexes so that multi-key updates (record plus index keys) are never
// interleaved; reads run lock-free through Badger snapshots.
type Store struct {
	db *badger.DB

	subMu   sync.Mutex
	eventMu sync.Mutex
}

// Open opens (or creates) the database at the configured path.
func Open(cfg config.StoreConfig) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Path).
		WithInMemory(cfg.InMemory).
		WithLogger(badgerLogger{})
	if cfg.InMemory {
		opts.Dir = ""
		opts.ValueDir = ""
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", cfg.Path, err)
	}
	return &Store{db: db}, nil
}

// Close flushes and closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func subscriberKey(id string) []byte {
	return []byte(subscriberKeyPrefix + id)
}

func emailKey(email string) []byte {
	return []byte(emailKeyPrefix + email)
}

// endpointKey digests the endpoint URL; push endpoints routinely exceed
// a practical key length.
func endpointKey(endpoint string) []byte {
	sum := sha256.Sum256([]byte(endpoint))
	return []byte(endpointKeyPrefix + hex.EncodeToString(sum[:]))
}

func eventKey(id string) []byte {
	return []byte(eventKeyPrefix + id)
}

// badgerLogger routes Badger's internal logging through zerolog.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{}) {
	logging.Error().Msgf("badger: "+format, args...)
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	logging.Warn().Msgf("badger: "+format, args...)
}

func (badgerLogger) Infof(format string, args ...interface{}) {
	logging.Debug().Msgf("badger: "+format, args...)
}

func (badgerLogger) Debugf(format string, args ...interface{}) {
	logging.Debug().Msgf("badger: "+format, args...)
}
