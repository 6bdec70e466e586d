// Gigwatch - Concert Announcement Tracker and Notifier
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gigwatch

package ticketmaster

import (
	"github.com/goccy/go-json"

	"github.com/tomtom215/gigwatch/internal/models"
)

// discoveryResponse mirrors the Discovery API page envelope. Only the
// fields Gigwatch consumes are declared; each event's full JSON is kept
// verbatim for the ledger.
type discoveryResponse struct {
	Embedded struct {
		Events []json.RawMessage `json:"events"`
	} `json:"_embedded"`
}

type discoveryEvent struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	URL   string `json:"url"`
	Dates struct {
		Start struct {
			LocalDate string `json:"localDate"`
			DateTime  string `json:"dateTime"`
		} `json:"start"`
		Timezone string `json:"timezone"`
	} `json:"dates"`
	Embedded struct {
		Venues []struct {
			Name string `json:"name"`
			City struct {
				Name string `json:"name"`
			} `json:"city"`
			Country struct {
				Name string `json:"name"`
			} `json:"country"`
			Address struct {
				Line1 string `json:"line1"`
			} `json:"address"`
		} `json:"venues"`
	} `json:"_embedded"`
}

// normalizeEvents flattens Discovery event envelopes into the Event
// model. Events without an ID are dropped; they cannot be deduplicated.
func normalizeEvents(raws []json.RawMessage) []models.Event {
	events := make([]models.Event, 0, len(raws))

	for _, raw := range raws {
		var de discoveryEvent
		if err := json.Unmarshal(raw, &de); err != nil {
			continue
		}
		if de.ID == "" {
			continue
		}

		ev := models.Event{
			ID:       de.ID,
			Name:     de.Name,
			URL:      de.URL,
			Date:     de.Dates.Start.LocalDate,
			Timezone: de.Dates.Timezone,
			Raw:      raw,
		}
		if ev.Date == "" {
			ev.Date = de.Dates.Start.DateTime
		}
		if len(de.Embedded.Venues) > 0 {
			v := de.Embedded.Venues[0]
			ev.Venue = models.Venue{
				Name:    v.Name,
				City:    v.City.Name,
				Country: v.Country.Name,
				Address: v.Address.Line1,
			}
		}
		events = append(events, ev)
	}

	return events
}
