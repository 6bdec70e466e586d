// Gigwatch - Concert Announcement Tracker and Notifier
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gigwatch

package notify

import (
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/gigwatch/internal/config"
	"github.com/tomtom215/gigwatch/internal/models"
)

func fullEvent() models.Event {
	return models.Event{
		ID:   "ev1",
		Name: "The Saviors Tour",
		URL:  "https://www.ticketmaster.com/event/ev1",
		Date: "2026-06-21",
		Venue: models.Venue{
			Name:    "Wembley Stadium",
			City:    "London",
			Country: "Great Britain",
		},
	}
}

func TestSubject(t *testing.T) {
	tests := []struct {
		name  string
		event models.Event
		want  string
	}{
		{"full", fullEvent(), "Green Day: The Saviors Tour - London, 2026-06-21"},
		{"no city", models.Event{Name: "TBA Show", Date: "2026-07-01"}, "Green Day: TBA Show, 2026-07-01"},
		{"no date", models.Event{Name: "TBA Show", Venue: models.Venue{City: "Paris"}}, "Green Day: TBA Show - Paris"},
	}

	r := testRenderer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Subject(tt.event); got != tt.want {
				t.Errorf("Subject() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestArtistFallsBackToKeyword(t *testing.T) {
	r := NewRenderer(&config.NotificationsConfig{}, "green day")
	subject := r.Subject(models.Event{Name: "Show"})
	if !strings.HasPrefix(subject, "green day:") {
		t.Errorf("Subject() = %q, want keyword prefix", subject)
	}
}

func TestEmailBodies(t *testing.T) {
	r := testRenderer()
	htmlBody, textBody := r.EmailBodies(fullEvent())

	for _, want := range []string{"The Saviors Tour", "Wembley Stadium", "https://www.ticketmaster.com/event/ev1"} {
		if !strings.Contains(htmlBody, want) {
			t.Errorf("HTML body missing %q", want)
		}
		if !strings.Contains(textBody, want) {
			t.Errorf("text body missing %q", want)
		}
	}
}

func TestEmailBodiesEscapeHTML(t *testing.T) {
	r := testRenderer()
	ev := models.Event{Name: `<script>alert("x")</script>`}
	htmlBody, _ := r.EmailBodies(ev)
	if strings.Contains(htmlBody, "<script>") {
		t.Error("HTML body contains unescaped event name")
	}
}

func TestPushPayload(t *testing.T) {
	r := testRenderer()
	data, err := r.PushPayload(fullEvent())
	if err != nil {
		t.Fatalf("PushPayload() error = %v", err)
	}

	var payload struct {
		Title string `json:"title"`
		Body  string `json:"body"`
		URL   string `json:"url"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("payload not valid JSON: %v", err)
	}

	if payload.Title != "Green Day event announced" {
		t.Errorf("title = %q", payload.Title)
	}
	if payload.Body != "The Saviors Tour - London, 2026-06-21" {
		t.Errorf("body = %q", payload.Body)
	}
	if payload.URL != "https://www.ticketmaster.com/event/ev1" {
		t.Errorf("url = %q", payload.URL)
	}
}

func TestFallbackURL(t *testing.T) {
	r := NewRenderer(&config.NotificationsConfig{
		ArtistName:  "Green Day",
		FallbackURL: "https://www.greenday.com/tour",
	}, "green day")

	data, err := r.PushPayload(models.Event{Name: "Show"})
	if err != nil {
		t.Fatalf("PushPayload() error = %v", err)
	}
	if !strings.Contains(string(data), "https://www.greenday.com/tour") {
		t.Errorf("payload %s missing fallback URL", data)
	}
}
