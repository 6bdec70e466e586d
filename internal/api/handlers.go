// Gigwatch - Concert Announcement Tracker and Notifier
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gigwatch

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/gigwatch/internal/logging"
	"github.com/tomtom215/gigwatch/internal/models"
	"github.com/tomtom215/gigwatch/internal/poller"
	"github.com/tomtom215/gigwatch/internal/store"
)

// maxListedSubscriptions caps the subscription listing response.
const maxListedSubscriptions = 200

// SubscriptionStore is the store surface the handlers use.
type SubscriptionStore interface {
	Upsert(ctx context.Context, email string, push *models.PushRegistration) (*models.Subscriber, error)
	RemoveByEmail(ctx context.Context, email string) error
	RemoveByEndpoint(ctx context.Context, endpoint string) error
	ListSubscribers(ctx context.Context) ([]*models.Subscriber, error)
}

// Checker triggers one poll cycle on demand.
type Checker interface {
	Check(ctx context.Context) (poller.CheckResult, error)
}

// ConfirmationSender delivers the welcome email for new subscriptions.
type ConfirmationSender interface {
	SendConfirmation(ctx context.Context, email string) error
}

// Handler carries the dependencies for all HTTP handlers.
type Handler struct {
	store        SubscriptionStore
	checker      Checker
	confirmation ConfirmationSender

	vapidPublicKey   string
	sendConfirmation bool
	version          string
}

// NewHandler creates the HTTP handler set. confirmation may be nil when
// the welcome email is disabled.
func NewHandler(store SubscriptionStore, checker Checker, confirmation ConfirmationSender, vapidPublicKey string, sendConfirmation bool, version string) *Handler {
	return &Handler{
		store:            store,
		checker:          checker,
		confirmation:     confirmation,
		vapidPublicKey:   vapidPublicKey,
		sendConfirmation: sendConfirmation,
		version:          version,
	}
}

// Health reports service liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: map[string]string{
			"status":  "ok",
			"version": h.version,
		},
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

// Subscribe registers or updates a subscription. The response carries
// the stored record plus the VAPID public key the browser needs to
// create a push subscription.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.SubscribeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.Email == "" && req.PushSubscription == nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Provide an email address, a push subscription, or both", nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	sub, err := h.store.Upsert(r.Context(), req.Email, req.PushSubscription)
	if err != nil {
		if errors.Is(err, store.ErrNoIdentifier) {
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
			return
		}
		if errors.Is(err, store.ErrConflict) {
			respondError(w, http.StatusConflict, "CONFLICT", "Subscription conflicts with an existing record", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "STORAGE_ERROR", "Failed to store subscription", err)
		return
	}

	// The welcome email is fire-and-forget; subscription success never
	// depends on it.
	if h.sendConfirmation && h.confirmation != nil && req.Email != "" {
		go func(email string) {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			if err := h.confirmation.SendConfirmation(ctx, email); err != nil {
				logging.Warn().Err(err).Msg("Confirmation email failed")
			}
		}(req.Email)
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: models.SubscribeResponse{
			Subscription:   sub,
			VAPIDPublicKey: h.vapidPublicKey,
		},
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// Unsubscribe removes the subscription matching the supplied email or
// push endpoint. Removing something already gone still succeeds.
func (h *Handler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req models.UnsubscribeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" && req.Endpoint == "" {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Provide the email address or push endpoint to remove", nil)
		return
	}

	if req.Email != "" {
		if err := h.store.RemoveByEmail(r.Context(), req.Email); err != nil {
			respondError(w, http.StatusInternalServerError, "STORAGE_ERROR", "Failed to remove subscription", err)
			return
		}
	}
	if req.Endpoint != "" {
		if err := h.store.RemoveByEndpoint(r.Context(), req.Endpoint); err != nil {
			respondError(w, http.StatusInternalServerError, "STORAGE_ERROR", "Failed to remove subscription", err)
			return
		}
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status:   "success",
		Data:     map[string]string{"status": "unsubscribed"},
		Metadata: models.Metadata{Timestamp: time.Now()},
	})
}

// ListSubscriptions returns stored subscriptions, capped.
func (h *Handler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	subs, err := h.store.ListSubscribers(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "STORAGE_ERROR", "Failed to list subscriptions", err)
		return
	}

	if len(subs) > maxListedSubscriptions {
		subs = subs[:maxListedSubscriptions]
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: models.SubscriptionList{
			Count:         len(subs),
			Subscriptions: subs,
		},
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// Check runs one poll cycle synchronously and reports what it found.
// The handler shares the cycle implementation with the scheduler; a
// manual trigger racing a scheduled run is safe.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	result, err := h.checker.Check(r.Context())
	if err != nil {
		respondError(w, http.StatusBadGateway, "UPSTREAM_ERROR", "Check failed", err)
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   result,
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}
