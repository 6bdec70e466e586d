// Gigwatch - Concert Announcement Tracker and Notifier
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gigwatch

package notify

import (
	"fmt"
	"html"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/gigwatch/internal/config"
	"github.com/tomtom215/gigwatch/internal/models"
)

// Renderer produces notification content for one tracked artist.
type Renderer struct {
	artist      string
	fallbackURL string
}

// NewRenderer builds a renderer from notification settings. The artist
// name falls back to the Ticketmaster keyword so content never renders
// with an empty headline.
func NewRenderer(cfg *config.NotificationsConfig, keyword string) *Renderer {
	artist := cfg.ArtistName
	if artist == "" {
		artist = keyword
	}
	return &Renderer{
		artist:      artist,
		fallbackURL: cfg.FallbackURL,
	}
}

// pushPayload is the JSON body handed to the service worker.
type pushPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url"`
}

// Subject renders the email subject for an announcement.
func (r *Renderer) Subject(ev models.Event) string {
	return fmt.Sprintf("%s: %s", r.artist, r.summary(ev))
}

// EmailBodies renders the HTML and plain-text email bodies.
func (r *Renderer) EmailBodies(ev models.Event) (htmlBody, textBody string) {
	link := r.eventURL(ev)
	summary := r.summary(ev)

	var b strings.Builder
	b.WriteString("<h2>New event announced</h2>")
	b.WriteString(fmt.Sprintf("<p><strong>%s</strong></p>", html.EscapeString(summary)))
	if ev.Venue.Name != "" {
		b.WriteString(fmt.Sprintf("<p>%s</p>", html.EscapeString(r.venueLine(ev))))
	}
	if link != "" {
		b.WriteString(fmt.Sprintf(`<p><a href="%s">Get tickets</a></p>`, html.EscapeString(link)))
	}
	htmlBody = b.String()

	var t strings.Builder
	t.WriteString("New event announced\n\n")
	t.WriteString(summary + "\n")
	if ev.Venue.Name != "" {
		t.WriteString(r.venueLine(ev) + "\n")
	}
	if link != "" {
		t.WriteString("\nTickets: " + link + "\n")
	}
	textBody = t.String()

	return htmlBody, textBody
}

// PushPayload renders the push notification body.
func (r *Renderer) PushPayload(ev models.Event) ([]byte, error) {
	payload := pushPayload{
		Title: fmt.Sprintf("%s event announced", r.artist),
		Body:  r.summary(ev),
		URL:   r.eventURL(ev),
	}
	return json.Marshal(payload)
}

// ConfirmationSubject renders the welcome email subject.
func (r *Renderer) ConfirmationSubject() string {
	return fmt.Sprintf("You're subscribed to %s alerts", r.artist)
}

// ConfirmationBodies renders the welcome email bodies.
func (r *Renderer) ConfirmationBodies() (htmlBody, textBody string) {
	htmlBody = fmt.Sprintf(
		"<p>You'll get an email whenever a new %s event is announced.</p>",
		html.EscapeString(r.artist),
	)
	textBody = fmt.Sprintf(
		"You'll get an email whenever a new %s event is announced.\n",
		r.artist,
	)
	return htmlBody, textBody
}

// summary is the "name - city, date" line shared by every channel.
func (r *Renderer) summary(ev models.Event) string {
	parts := []string{ev.Name}
	if ev.Venue.City != "" {
		parts = append(parts, ev.Venue.City)
	}
	line := strings.Join(parts, " - ")
	if ev.Date != "" {
		line += ", " + ev.Date
	}
	return line
}

func (r *Renderer) venueLine(ev models.Event) string {
	line := ev.Venue.Name
	if ev.Venue.City != "" {
		line += ", " + ev.Venue.City
	}
	if ev.Venue.Country != "" {
		line += ", " + ev.Venue.Country
	}
	return line
}

func (r *Renderer) eventURL(ev models.Event) string {
	if ev.URL != "" {
		return ev.URL
	}
	return r.fallbackURL
}
