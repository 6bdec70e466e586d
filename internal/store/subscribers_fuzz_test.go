// Gigwatch - Concert Announcement Tracker and Notifier
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gigwatch

package store

import (
	"context"
	"errors"
	"testing"

	"github.com/tomtom215/gigwatch/internal/models"
)

// FuzzUpsert drives random interleavings of email-only, push-only and
// combined upserts over a small identifier pool and checks the store's
// core invariant afterwards: no email address and no push endpoint may
// ever appear on two subscriber records.
func FuzzUpsert(f *testing.F) {
	// Seed corpus: each byte is one upsert op. Low two bits pick the
	// shape (email-only, push-only, both), the higher bits pick which
	// email and endpoint from the pool.
	f.Add([]byte{0})
	f.Add([]byte{1})
	f.Add([]byte{2})
	f.Add([]byte{0, 1, 2})                   // create all three shapes
	f.Add([]byte{0, 5, 2, 2})                // attach, then repeat merge
	f.Add([]byte{2, 2 | 1<<2, 2 | 1<<4})     // same shape, shifting identifiers
	f.Add([]byte{1, 0, 2, 6, 18, 34, 2, 1})  // crossing merges
	f.Add([]byte{255, 170, 85, 0, 255, 170}) // high-bit identifier churn

	emails := []string{"a@example.com", "b@example.com", "c@example.com"}
	endpoints := []string{
		"https://push.example.com/ep-1",
		"https://push.example.com/ep-2",
		"https://push.example.com/ep-3",
	}

	f.Fuzz(func(t *testing.T, ops []byte) {
		s := newTestStore(t)
		ctx := context.Background()

		for _, op := range ops {
			var email string
			var push *models.PushRegistration

			switch op % 3 {
			case 0:
				email = emails[int(op>>2)%len(emails)]
			case 1:
				push = pushReg(endpoints[int(op>>4)%len(endpoints)])
			case 2:
				email = emails[int(op>>2)%len(emails)]
				push = pushReg(endpoints[int(op>>4)%len(endpoints)])
			}

			if _, err := s.Upsert(ctx, email, push); err != nil && !errors.Is(err, ErrConflict) {
				t.Fatalf("Upsert(%q, %v) error = %v", email, push, err)
			}
		}

		subs, err := s.ListSubscribers(ctx)
		if err != nil {
			t.Fatalf("ListSubscribers() error = %v", err)
		}

		byEmail := make(map[string]string)
		byEndpoint := make(map[string]string)
		for _, sub := range subs {
			if sub.HasEmail() {
				if other, ok := byEmail[sub.Email]; ok {
					t.Errorf("email %q on records %s and %s", sub.Email, other, sub.ID)
				}
				byEmail[sub.Email] = sub.ID
			}
			if sub.HasPush() {
				if other, ok := byEndpoint[sub.Push.Endpoint]; ok {
					t.Errorf("endpoint %q on records %s and %s", sub.Push.Endpoint, other, sub.ID)
				}
				byEndpoint[sub.Push.Endpoint] = sub.ID
			}
			if !sub.HasEmail() && !sub.HasPush() {
				t.Errorf("record %s has no identifier", sub.ID)
			}
		}
	})
}
