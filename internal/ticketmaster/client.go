// Gigwatch - Concert Announcement Tracker and Notifier
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gigwatch

// Package ticketmaster talks to the Ticketmaster Discovery API. The
// client throttles outbound requests, retries HTTP 429 with exponential
// backoff, and normalizes the Discovery event envelope into the flat
// Event model the rest of the system consumes.
package ticketmaster

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/gigwatch/internal/config"
	"github.com/tomtom215/gigwatch/internal/metrics"
	"github.com/tomtom215/gigwatch/internal/models"
)

// maxErrorBodySize limits how much of an error response body is read
// for diagnostics.
const maxErrorBodySize = 64 * 1024

// ErrUpstream wraps non-2xx Discovery API responses.
var ErrUpstream = errors.New("discovery api error")

// EventSource is the read side of the Discovery API consumed by the
// poller. Implemented by Client and CircuitBreakerClient.
type EventSource interface {
	FetchEvents(ctx context.Context) ([]models.Event, error)
}

// Client is a Ticketmaster Discovery API client.
type Client struct {
	baseURL     string
	apiKey      string
	keyword     string
	countryCode string
	pageSize    int

	client         *http.Client
	limiter        *rate.Limiter
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewClient creates a Discovery API client from configuration.
func NewClient(cfg *config.TicketmasterConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}

	return &Client{
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		keyword:     cfg.Keyword,
		countryCode: cfg.CountryCode,
		pageSize:    cfg.PageSize,
		client: &http.Client{
			Timeout: timeout,
		},
		limiter:        rate.NewLimiter(rate.Limit(rps), 1),
		maxRetries:     5,
		retryBaseDelay: time.Second,
	}
}

// FetchEvents queries the Discovery API for events matching the
// configured keyword and country, sorted soonest first. An empty result
// page (no _embedded envelope) returns an empty slice, not an error.
func (c *Client) FetchEvents(ctx context.Context) ([]models.Event, error) {
	params := url.Values{}
	params.Set("apikey", c.apiKey)
	params.Set("keyword", c.keyword)
	params.Set("sort", "date,asc")
	params.Set("size", fmt.Sprintf("%d", c.pageSize))
	if c.countryCode != "" {
		params.Set("countryCode", c.countryCode)
	}

	reqURL := fmt.Sprintf("%s/events.json?%s", c.baseURL, params.Encode())

	resp, err := c.doRequestWithRateLimit(ctx, reqURL)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues("error").Inc()
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.UpstreamRequests.WithLabelValues("error").Inc()
		body := readBodyForError(resp.Body)
		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrUpstream, resp.StatusCode, body)
	}

	var envelope discoveryResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		metrics.UpstreamRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("decode discovery response: %w", err)
	}

	metrics.UpstreamRequests.WithLabelValues("success").Inc()
	return normalizeEvents(envelope.Embedded.Events), nil
}

// doRequestWithRateLimit waits for the client-side throttle, then
// performs the request with exponential backoff on HTTP 429.
func (c *Client) doRequestWithRateLimit(ctx context.Context, reqURL string) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("discovery request: %w", err)
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		_ = resp.Body.Close()

		if attempt == c.maxRetries {
			lastErr = fmt.Errorf("%w: rate limit exceeded after %d retries", ErrUpstream, c.maxRetries)
			break
		}

		delay := c.retryBaseDelay * time.Duration(1<<uint(attempt))
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := time.ParseDuration(retryAfter + "s"); err == nil {
				delay = seconds
			}
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}

func readBodyForError(r io.Reader) []byte {
	limited := io.LimitReader(r, maxErrorBodySize)
	body, err := io.ReadAll(limited)
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("... (truncated)")...)
	}
	return body
}
