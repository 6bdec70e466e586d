// Gigwatch - Concert Announcement Tracker and Notifier
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gigwatch

package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/tomtom215/gigwatch/internal/config"
	"github.com/tomtom215/gigwatch/internal/models"
)

type fakeDirectory struct {
	mu      sync.Mutex
	subs    []*models.Subscriber
	removed []string
	listErr error
}

func (f *fakeDirectory) ListSubscribers(ctx context.Context) ([]*models.Subscriber, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Subscriber, len(f.subs))
	copy(out, f.subs)
	return out, nil
}

func (f *fakeDirectory) RemoveByEndpoint(ctx context.Context, endpoint string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, endpoint)
	return nil
}

type fakeEmailSender struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (f *fakeEmailSender) Send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to)
	return nil
}

type fakePushSender struct {
	mu     sync.Mutex
	sent   []string
	errFor map[string]error
}

func (f *fakePushSender) Send(ctx context.Context, reg *models.PushRegistration, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errFor[reg.Endpoint]; ok {
		return err
	}
	f.sent = append(f.sent, reg.Endpoint)
	return nil
}

func testRenderer() *Renderer {
	return NewRenderer(&config.NotificationsConfig{ArtistName: "Green Day"}, "green day")
}

func emailSub(email string) *models.Subscriber {
	return &models.Subscriber{ID: email, Email: email}
}

func pushSub(endpoint string) *models.Subscriber {
	return &models.Subscriber{
		ID: endpoint,
		Push: &models.PushRegistration{
			Endpoint: endpoint,
			Keys:     models.PushKeys{P256dh: "p", Auth: "a"},
		},
	}
}

func TestDispatchFansOutBothChannels(t *testing.T) {
	dir := &fakeDirectory{subs: []*models.Subscriber{
		emailSub("a@example.com"),
		emailSub("b@example.com"),
		pushSub("https://push.example.com/1"),
	}}
	email := &fakeEmailSender{}
	push := &fakePushSender{}

	d := NewDispatcher(dir, email, push, testRenderer(), 4)
	result, err := d.Dispatch(context.Background(), models.Event{ID: "ev1", Name: "Green Day"})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	if result.Subscribers != 3 {
		t.Errorf("Subscribers = %d, want 3", result.Subscribers)
	}
	if result.EmailSent != 2 {
		t.Errorf("EmailSent = %d, want 2", result.EmailSent)
	}
	if result.PushSent != 1 {
		t.Errorf("PushSent = %d, want 1", result.PushSent)
	}
	if len(email.sent) != 2 {
		t.Errorf("email deliveries = %d, want 2", len(email.sent))
	}
	if len(push.sent) != 1 {
		t.Errorf("push deliveries = %d, want 1", len(push.sent))
	}
}

func TestDispatchPrunesGoneEndpoints(t *testing.T) {
	gone := "https://push.example.com/gone"
	alive := "https://push.example.com/alive"
	dir := &fakeDirectory{subs: []*models.Subscriber{pushSub(gone), pushSub(alive)}}
	push := &fakePushSender{errFor: map[string]error{
		gone: fmt.Errorf("%w: HTTP 410", ErrEndpointGone),
	}}

	d := NewDispatcher(dir, nil, push, testRenderer(), 4)
	result, err := d.Dispatch(context.Background(), models.Event{ID: "ev1", Name: "Green Day"})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	if result.Pruned != 1 {
		t.Errorf("Pruned = %d, want 1", result.Pruned)
	}
	if len(result.PrunedEndpoints) != 1 || result.PrunedEndpoints[0] != gone {
		t.Errorf("PrunedEndpoints = %v, want [%s]", result.PrunedEndpoints, gone)
	}
	if result.PushSent != 1 {
		t.Errorf("PushSent = %d, want 1", result.PushSent)
	}
	if len(dir.removed) != 1 || dir.removed[0] != gone {
		t.Errorf("removed = %v, want [%s]", dir.removed, gone)
	}
}

func TestDispatchTransientFailureDoesNotPrune(t *testing.T) {
	flaky := "https://push.example.com/flaky"
	dir := &fakeDirectory{subs: []*models.Subscriber{pushSub(flaky)}}
	push := &fakePushSender{errFor: map[string]error{
		flaky: errors.New("push service HTTP 500"),
	}}

	d := NewDispatcher(dir, nil, push, testRenderer(), 4)
	result, err := d.Dispatch(context.Background(), models.Event{ID: "ev1", Name: "Green Day"})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	if result.PushFailed != 1 {
		t.Errorf("PushFailed = %d, want 1", result.PushFailed)
	}
	if len(result.PushFailures) != 1 || result.PushFailures[0] != flaky {
		t.Errorf("PushFailures = %v, want [%s]", result.PushFailures, flaky)
	}
	if result.Pruned != 0 {
		t.Errorf("Pruned = %d, want 0", result.Pruned)
	}
	if len(result.PrunedEndpoints) != 0 {
		t.Errorf("PrunedEndpoints = %v, want none", result.PrunedEndpoints)
	}
	if len(dir.removed) != 0 {
		t.Errorf("removed = %v, want none", dir.removed)
	}
}

func TestDispatchEmailFailureIsIsolated(t *testing.T) {
	dir := &fakeDirectory{subs: []*models.Subscriber{
		emailSub("a@example.com"),
		pushSub("https://push.example.com/1"),
	}}
	email := &fakeEmailSender{err: errors.New("connection refused")}
	push := &fakePushSender{}

	d := NewDispatcher(dir, email, push, testRenderer(), 4)
	result, err := d.Dispatch(context.Background(), models.Event{ID: "ev1", Name: "Green Day"})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	if result.EmailFailed != 1 {
		t.Errorf("EmailFailed = %d, want 1", result.EmailFailed)
	}
	if len(result.EmailFailures) != 1 || result.EmailFailures[0] != "a@example.com" {
		t.Errorf("EmailFailures = %v, want the failed subscriber ID", result.EmailFailures)
	}
	if result.PushSent != 1 {
		t.Errorf("PushSent = %d, want 1 despite email failures", result.PushSent)
	}
}

func TestDispatchSkipsDisabledChannels(t *testing.T) {
	dir := &fakeDirectory{subs: []*models.Subscriber{
		emailSub("a@example.com"),
		pushSub("https://push.example.com/1"),
	}}

	// No senders configured at all.
	d := NewDispatcher(dir, nil, nil, testRenderer(), 4)
	result, err := d.Dispatch(context.Background(), models.Event{ID: "ev1", Name: "Green Day"})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if result.EmailSent+result.PushSent+result.EmailFailed+result.PushFailed != 0 {
		t.Errorf("deliveries attempted with no channels configured: %+v", result)
	}
}

func TestDispatchListError(t *testing.T) {
	dir := &fakeDirectory{listErr: errors.New("db closed")}
	d := NewDispatcher(dir, &fakeEmailSender{}, nil, testRenderer(), 4)

	if _, err := d.Dispatch(context.Background(), models.Event{ID: "ev1"}); err == nil {
		t.Error("Dispatch() error = nil, want list error")
	}
}

func TestSendConfirmation(t *testing.T) {
	email := &fakeEmailSender{}
	d := NewDispatcher(&fakeDirectory{}, email, nil, testRenderer(), 4)

	if err := d.SendConfirmation(context.Background(), "new@example.com"); err != nil {
		t.Fatalf("SendConfirmation() error = %v", err)
	}
	if len(email.sent) != 1 || email.sent[0] != "new@example.com" {
		t.Errorf("sent = %v", email.sent)
	}

	// Disabled email channel is a quiet no-op.
	d = NewDispatcher(&fakeDirectory{}, nil, nil, testRenderer(), 4)
	if err := d.SendConfirmation(context.Background(), "new@example.com"); err != nil {
		t.Errorf("SendConfirmation() with no sender error = %v", err)
	}
}
